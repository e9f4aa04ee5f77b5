// Package tasks 定义了投递到 Kafka 的任务与事件结构。
package tasks

// ReportProcessingTask 描述一次医疗报告的索引任务：
// 从对象存储取回文件、抽取文本、切块、向量化并写入索引。
type ReportProcessingTask struct {
	ReportID   uint   `json:"report_id"`
	PatientID  uint   `json:"patient_id"`
	ObjectName string `json:"object_name"`
	FileName   string `json:"file_name"`
}

// FeedbackEvent 描述用户对单条 AI 回复的点赞或点踩。
// 问诊主链路只负责投递事件，落库由消费者异步完成。
type FeedbackEvent struct {
	MessageID string `json:"message_id"`
	PatientID uint   `json:"patient_id"`
	Type      string `json:"type"` // positive 或 negative
}
