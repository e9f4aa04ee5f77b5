package model

import "time"

// AiConsultation 代表一次问答交互的持久化记录。
// ConversationID/SessionID/MessageOrder 用于把多轮问答串成一次逻辑会话。
type AiConsultation struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	PatientID      uint      `gorm:"index;not null" json:"patientId"`
	Question       string    `gorm:"type:text;not null" json:"question"`
	Answer         string    `gorm:"type:text;not null" json:"answer"`
	ConversationID string    `gorm:"type:varchar(64);index" json:"conversationId"`
	SessionID      string    `gorm:"type:varchar(64)" json:"sessionId"`
	MessageOrder   int       `json:"messageOrder"`
	DoctorSummary  string    `gorm:"type:text" json:"doctorSummary"`
	RiskLevel      string    `gorm:"type:varchar(16)" json:"riskLevel"`
	RedFlags       string    `gorm:"type:text" json:"redFlags"`
	HomeRemedies   string    `gorm:"type:text" json:"homeRemedies"`
	Specialization string    `gorm:"type:varchar(64)" json:"specializationHint"`
	AiUsed         bool      `gorm:"not null;default:false" json:"aiUsed"`
	CreatedAt      time.Time `gorm:"autoCreateTime;index" json:"createdAt"`
}

func (AiConsultation) TableName() string {
	return "ai_consultations"
}

// ConsultFeedback 记录用户对单条 AI 回复的点赞/点踩反馈。
// 写入路径是 Kafka 异步消费，反馈失败只记日志。
type ConsultFeedback struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	MessageID string    `gorm:"type:varchar(64);index;not null" json:"messageId"`
	PatientID uint      `gorm:"index;not null" json:"patientId"`
	Type      string    `gorm:"type:varchar(16);not null" json:"type"` // positive 或 negative
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (ConsultFeedback) TableName() string {
	return "consult_feedbacks"
}
