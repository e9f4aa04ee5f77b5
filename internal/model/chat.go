package model

import (
	"encoding/json"
	"time"
)

// 消息角色常量。
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// PrescribedMedicine 是分诊结果中建议的单个药品。
type PrescribedMedicine struct {
	Name              string `json:"name"`
	Dose              string `json:"dose"`
	Frequency         string `json:"frequency"`
	Duration          string `json:"duration"`
	OtcOrPrescription string `json:"otcOrPrescription"`
}

// DoctorSummary 是医生摘要的带标签联合类型：
// 模型返回结构化 JSON 对象时为 Structured，否则降级保留原始文本。
// 该判定只在摄取边界做一次，读取方不再嗅探类型。
type DoctorSummary struct {
	Structured map[string]interface{} `json:"structured,omitempty"`
	Raw        string                 `json:"raw,omitempty"`
}

// IsZero 报告摘要是否为空。
func (d DoctorSummary) IsZero() bool {
	return d.Structured == nil && d.Raw == ""
}

// String 返回摘要的文本表示，用于入库等需要单一字符串的场合。
func (d DoctorSummary) String() string {
	if d.Structured != nil {
		return mapToJSON(d.Structured)
	}
	return d.Raw
}

func mapToJSON(m map[string]interface{}) string {
	b, err := json.Marshal(m)
	if err != nil {
		return ""
	}
	return string(b)
}

// ChatMessage 代表会话时间线中的单条消息。
// 分诊字段只在 assistant 消息上出现。
type ChatMessage struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`

	PatientAdvice      string               `json:"patientAdvice,omitempty"`
	DoctorSummary      DoctorSummary        `json:"doctorSummary,omitempty"`
	PrescribedMedicine []PrescribedMedicine `json:"prescribedMedicines,omitempty"`
	RiskLevel          string               `json:"riskLevel,omitempty"`
	RedFlags           []string             `json:"redFlags,omitempty"`
	HomeRemedies       []string             `json:"homeRemedies,omitempty"`
	SpecializationHint string               `json:"specializationHint,omitempty"`

	Liked    bool `json:"liked,omitempty"`
	Disliked bool `json:"disliked,omitempty"`
	Error    bool `json:"error,omitempty"`
}

// ConversationContext 保存把多次问诊请求关联为一次逻辑会话的标识。
// 首轮请求前 ConversationID/SessionID 为空，由服务端在首次应答时分配。
type ConversationContext struct {
	ConversationID string `json:"conversationId"`
	SessionID      string `json:"sessionId"`
	MessageOrder   int    `json:"messageOrder"`
	SavedAt        int64  `json:"savedAt"` // Unix 毫秒，用于过期判定
}

// TriageResult 是一次问诊调用解析后的完整分诊结果。
type TriageResult struct {
	PatientAdvice      string               `json:"patientAdvice"`
	Answer             string               `json:"answer"`
	DoctorSummary      DoctorSummary        `json:"doctorSummary"`
	PrescribedMedicine []PrescribedMedicine `json:"prescribedMedicines"`
	RiskLevel          string               `json:"riskLevel"`
	RedFlags           []string             `json:"redFlags"`
	HomeRemedies       []string             `json:"homeRemedies"`
	SpecializationHint string               `json:"specializationHint"`
	AiUsed             bool                 `json:"aiUsed"`
}

// ConversationExport 是会话导出产物的结构。
type ConversationExport struct {
	PatientID      uint          `json:"patientId"`
	ConversationID string        `json:"conversationId"`
	Messages       []ChatMessage `json:"messages"`
	ExportedAt     time.Time     `json:"exportedAt"`
}
