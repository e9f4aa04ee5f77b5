// Package pipeline 定义了医疗报告的索引处理流程。
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"mediconnect/internal/config"
	"mediconnect/internal/model"
	"mediconnect/internal/repository"
	"mediconnect/pkg/embedding"
	"mediconnect/pkg/es"
	"mediconnect/pkg/log"
	"mediconnect/pkg/storage"
	"mediconnect/pkg/tasks"
	"mediconnect/pkg/tika"
)

// 文本切块参数。
const (
	chunkSize    = 1000
	chunkOverlap = 100
)

// Processor 封装了报告索引的所有依赖：
// 从 MinIO 取文件，Tika 抽取文本，切块后向量化并写入 Elasticsearch。
type Processor struct {
	tikaClient      *tika.Client
	embeddingClient embedding.Client
	esCfg           config.ElasticsearchConfig
	minioCfg        config.MinIOConfig
	embeddingCfg    config.EmbeddingConfig
	reportRepo      repository.ReportRepository
}

// NewProcessor 创建一个新的 Processor 实例。
func NewProcessor(
	tikaClient *tika.Client,
	embeddingClient embedding.Client,
	esCfg config.ElasticsearchConfig,
	minioCfg config.MinIOConfig,
	embeddingCfg config.EmbeddingConfig,
	reportRepo repository.ReportRepository,
) *Processor {
	return &Processor{
		tikaClient:      tikaClient,
		embeddingClient: embeddingClient,
		esCfg:           esCfg,
		minioCfg:        minioCfg,
		embeddingCfg:    embeddingCfg,
		reportRepo:      reportRepo,
	}
}

// Process 处理单个报告索引任务。任何一步失败都把报告标记为失败并返回错误，
// 由 Kafka 消费侧决定是否重试。
func (p *Processor) Process(ctx context.Context, task tasks.ReportProcessingTask) error {
	if err := p.process(ctx, task); err != nil {
		if markErr := p.reportRepo.UpdateStatus(task.ReportID, model.ReportFailed); markErr != nil {
			log.Errorf("标记报告失败状态出错, reportID=%d: %v", task.ReportID, markErr)
		}
		return err
	}
	return p.reportRepo.MarkIndexed(task.ReportID)
}

func (p *Processor) process(ctx context.Context, task tasks.ReportProcessingTask) error {
	log.Infof("开始处理报告, reportID=%d, fileName=%s", task.ReportID, task.FileName)

	// 1. 从 MinIO 下载报告文件
	object, err := storage.GetObject(ctx, p.minioCfg.BucketName, task.ObjectName)
	if err != nil {
		return fmt.Errorf("从 MinIO 下载报告失败: %w", err)
	}
	defer object.Close()

	buf := new(bytes.Buffer)
	size, err := buf.ReadFrom(object)
	if err != nil {
		return fmt.Errorf("读取 MinIO 对象流失败: %w", err)
	}
	if size == 0 {
		return errors.New("报告文件内容为空")
	}

	// 2. 使用 Tika 提取文本
	textContent, err := p.tikaClient.ExtractText(bytes.NewReader(buf.Bytes()), task.FileName)
	if err != nil {
		return fmt.Errorf("使用 Tika 提取文本失败: %w", err)
	}
	if textContent == "" {
		return errors.New("提取的文本内容为空")
	}
	log.Infof("文本提取成功, reportID=%d, 长度: %d 字符", task.ReportID, utf8.RuneCountInString(textContent))

	// 3. 文本切块
	chunks := splitText(textContent, chunkSize, chunkOverlap)
	if len(chunks) == 0 {
		return errors.New("未生成任何文本分块")
	}

	// 4. 向量化并索引到 Elasticsearch
	for i, chunk := range chunks {
		vector, err := p.embeddingClient.CreateEmbedding(ctx, chunk)
		if err != nil {
			return fmt.Errorf("块 %d 向量化失败: %w", i, err)
		}

		doc := model.ReportChunkDoc{
			ChunkKey:     fmt.Sprintf("%d_%d", task.ReportID, i),
			ReportID:     task.ReportID,
			PatientID:    task.PatientID,
			ChunkID:      i,
			FileName:     task.FileName,
			TextContent:  chunk,
			Vector:       vector,
			ModelVersion: p.embeddingCfg.Model,
		}
		if err := es.IndexChunk(ctx, p.esCfg.IndexName, doc); err != nil {
			return fmt.Errorf("索引块 %d 到 Elasticsearch 失败: %w", i, err)
		}
	}

	log.Infof("报告处理成功完成, reportID=%d, 共 %d 个分块", task.ReportID, len(chunks))
	return nil
}

// splitText 将长文本按指定大小和重叠进行切分。
func splitText(text string, size, overlap int) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	if size <= overlap {
		overlap = 0
	}

	var chunks []string
	step := size - overlap
	for i := 0; i < len(runes); i += step {
		end := i + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[i:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}
