package service

import (
	"context"

	"mediconnect/internal/model"
	"mediconnect/internal/repository"
	"mediconnect/pkg/tasks"
)

// FeedbackRecorder 消费 Kafka 上的反馈事件并落库。
type FeedbackRecorder struct {
	consultRepo repository.ConsultationRepository
}

// NewFeedbackRecorder 创建一个新的 FeedbackRecorder 实例。
func NewFeedbackRecorder(consultRepo repository.ConsultationRepository) *FeedbackRecorder {
	return &FeedbackRecorder{consultRepo: consultRepo}
}

// Handle 把单个反馈事件写入数据库。
func (r *FeedbackRecorder) Handle(_ context.Context, event tasks.FeedbackEvent) error {
	return r.consultRepo.CreateFeedback(&model.ConsultFeedback{
		MessageID: event.MessageID,
		PatientID: event.PatientID,
		Type:      event.Type,
	})
}
