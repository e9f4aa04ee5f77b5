package repository

import (
	"time"

	"gorm.io/gorm"

	"mediconnect/internal/model"
)

// ConsultationRepository 接口定义了 AI 问诊记录与反馈的持久化操作。
type ConsultationRepository interface {
	Create(consultation *model.AiConsultation) error
	// FindRecentByPatient 返回患者在 window 时间窗内最近的一条问诊记录，
	// 没有则返回 gorm.ErrRecordNotFound。
	FindRecentByPatient(patientID uint, window time.Duration) (*model.AiConsultation, error)
	FindByConversation(conversationID string) ([]model.AiConsultation, error)
	FindHistoryByPatient(patientID uint, limit int) ([]model.AiConsultation, error)
	CreateFeedback(feedback *model.ConsultFeedback) error
}

// consultationRepository 是 ConsultationRepository 接口的 GORM 实现。
type consultationRepository struct {
	db *gorm.DB
}

// NewConsultationRepository 创建一个新的 ConsultationRepository 实例。
func NewConsultationRepository(db *gorm.DB) ConsultationRepository {
	return &consultationRepository{db: db}
}

func (r *consultationRepository) Create(consultation *model.AiConsultation) error {
	return r.db.Create(consultation).Error
}

// FindRecentByPatient 用于会话恢复：Redis 上下文缺失时，
// 回查时间窗内的最近一次问诊以续接同一会话。
func (r *consultationRepository) FindRecentByPatient(patientID uint, window time.Duration) (*model.AiConsultation, error) {
	var consultation model.AiConsultation
	cutoff := time.Now().Add(-window)
	err := r.db.Where("patient_id = ? AND created_at >= ?", patientID, cutoff).
		Order("created_at DESC").First(&consultation).Error
	if err != nil {
		return nil, err
	}
	return &consultation, nil
}

// FindByConversation 按消息顺序返回同一会话内的全部问答。
func (r *consultationRepository) FindByConversation(conversationID string) ([]model.AiConsultation, error) {
	var consultations []model.AiConsultation
	err := r.db.Where("conversation_id = ?", conversationID).
		Order("message_order ASC, created_at ASC").Find(&consultations).Error
	return consultations, err
}

// FindHistoryByPatient 按时间倒序返回患者最近 limit 条问诊记录。
func (r *consultationRepository) FindHistoryByPatient(patientID uint, limit int) ([]model.AiConsultation, error) {
	var consultations []model.AiConsultation
	q := r.db.Where("patient_id = ?", patientID).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&consultations).Error
	return consultations, err
}

func (r *consultationRepository) CreateFeedback(feedback *model.ConsultFeedback) error {
	return r.db.Create(feedback).Error
}
