// Package kafka 提供了与 Kafka 消息队列交互的功能。
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"mediconnect/internal/config"
	"mediconnect/pkg/database"
	"mediconnect/pkg/log"
	"mediconnect/pkg/tasks"
)

// ReportProcessor 定义了报告索引任务的处理接口，
// 使消费者与具体的管道实现解耦。
type ReportProcessor interface {
	Process(ctx context.Context, task tasks.ReportProcessingTask) error
}

// FeedbackHandler 定义了反馈事件的落库接口。
type FeedbackHandler interface {
	Handle(ctx context.Context, event tasks.FeedbackEvent) error
}

var (
	reportProducer   *kafka.Writer
	feedbackProducer *kafka.Writer
)

// InitProducers 初始化报告任务与反馈事件两个生产者。
func InitProducers(cfg config.KafkaConfig) {
	reportProducer = &kafka.Writer{
		Addr:     kafka.TCP(cfg.Brokers),
		Topic:    cfg.ReportTopic,
		Balancer: &kafka.LeastBytes{},
	}
	feedbackProducer = &kafka.Writer{
		Addr:     kafka.TCP(cfg.Brokers),
		Topic:    cfg.FeedbackTopic,
		Balancer: &kafka.LeastBytes{},
	}
	log.Info("Kafka 生产者初始化成功")
}

// ProduceReportTask 发送一个报告索引任务到 Kafka。
func ProduceReportTask(task tasks.ReportProcessingTask) error {
	taskBytes, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return reportProducer.WriteMessages(context.Background(),
		kafka.Message{Value: taskBytes},
	)
}

// ProduceFeedbackEvent 发送一个反馈事件到 Kafka。
func ProduceFeedbackEvent(event tasks.FeedbackEvent) error {
	eventBytes, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return feedbackProducer.WriteMessages(context.Background(),
		kafka.Message{Value: eventBytes},
	)
}

// StartReportConsumer 启动报告任务消费者。
// 单个任务最多处理 3 次，失败计数存 Redis，超限后提交 offset 终止重试。
func StartReportConsumer(cfg config.KafkaConfig, processor ReportProcessor) {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  []string{cfg.Brokers},
		Topic:    cfg.ReportTopic,
		GroupID:  "mediconnect-report-consumer",
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})

	log.Infof("Kafka 报告消费者已启动，正在监听主题 '%s'", cfg.ReportTopic)

	for {
		m, err := r.FetchMessage(context.Background())
		if err != nil {
			log.Error("从 Kafka 读取消息失败", err)
			break
		}

		var task tasks.ReportProcessingTask
		if err := json.Unmarshal(m.Value, &task); err != nil {
			log.Errorf("无法解析报告任务消息: %v, value: %s", err, string(m.Value))
			// 消息格式错误，直接提交，避免阻塞队列
			if err := r.CommitMessages(context.Background(), m); err != nil {
				log.Errorf("提交错误消息失败: %v", err)
			}
			continue
		}

		log.Infof("开始处理报告任务: reportID=%d, fileName=%s", task.ReportID, task.FileName)
		if err := processor.Process(context.Background(), task); err != nil {
			log.Errorf("处理报告任务失败: reportID=%d, error: %v", task.ReportID, err)
			attemptsKey := fmt.Sprintf("kafka:report:attempts:%d", task.ReportID)
			attempts, incErr := database.RDB.Incr(context.Background(), attemptsKey).Result()
			if incErr == nil {
				_ = database.RDB.Expire(context.Background(), attemptsKey, 24*time.Hour).Err()
			}
			if incErr != nil {
				// Redis 异常时保守处理：不提交 offset，让 Kafka 重试
				continue
			}
			if attempts >= 3 {
				log.Errorf("报告任务多次失败(>=3)，提交 offset 终止重试: reportID=%d", task.ReportID)
				if err := r.CommitMessages(context.Background(), m); err != nil {
					log.Errorf("提交 Kafka 消息 offset 失败: %v", err)
				}
			}
		} else {
			log.Infof("报告任务处理成功: reportID=%d", task.ReportID)
			_ = database.RDB.Del(context.Background(), fmt.Sprintf("kafka:report:attempts:%d", task.ReportID)).Err()
			if err := r.CommitMessages(context.Background(), m); err != nil {
				log.Errorf("提交 Kafka 消息 offset 失败: %v", err)
			}
		}
	}

	if err := r.Close(); err != nil {
		log.Fatalf("关闭 Kafka 消费者失败: %v", err)
	}
}

// StartFeedbackConsumer 启动反馈事件消费者。反馈属于尽力而为的辅助数据，
// 落库失败只记日志并提交 offset，不重试。
func StartFeedbackConsumer(cfg config.KafkaConfig, handler FeedbackHandler) {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  []string{cfg.Brokers},
		Topic:    cfg.FeedbackTopic,
		GroupID:  "mediconnect-feedback-consumer",
		MinBytes: 1,
		MaxBytes: 10e6,
	})

	log.Infof("Kafka 反馈消费者已启动，正在监听主题 '%s'", cfg.FeedbackTopic)

	for {
		m, err := r.FetchMessage(context.Background())
		if err != nil {
			log.Error("从 Kafka 读取消息失败", err)
			break
		}

		var event tasks.FeedbackEvent
		if err := json.Unmarshal(m.Value, &event); err != nil {
			log.Errorf("无法解析反馈事件: %v, value: %s", err, string(m.Value))
		} else if err := handler.Handle(context.Background(), event); err != nil {
			log.Errorf("反馈事件落库失败: messageID=%s, error: %v", event.MessageID, err)
		}
		if err := r.CommitMessages(context.Background(), m); err != nil {
			log.Errorf("提交 Kafka 消息 offset 失败: %v", err)
		}
	}

	if err := r.Close(); err != nil {
		log.Fatalf("关闭 Kafka 消费者失败: %v", err)
	}
}
