package model

import "time"

// 报告处理状态常量。
const (
	ReportUploaded = 0
	ReportIndexed  = 1
	ReportFailed   = 2
)

// MedicalReport 定义了患者上传的医疗报告文件元数据。
// 文件本体存放在 MinIO，文本内容经管道处理后进入 Elasticsearch。
type MedicalReport struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	PatientID  uint      `gorm:"index;not null" json:"patientId"`
	FileName   string    `gorm:"type:varchar(255);not null" json:"fileName"`
	ObjectName string    `gorm:"type:varchar(255);not null" json:"objectName"`
	FileSize   int64     `json:"fileSize"`
	Status     int       `gorm:"type:tinyint;not null;default:0" json:"status"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"createdAt"`
	IndexedAt  *time.Time `gorm:"default:null" json:"indexedAt"`
}

func (MedicalReport) TableName() string {
	return "medical_reports"
}

// ReportChunkDoc 代表存储在 Elasticsearch 中的报告文本分块。
type ReportChunkDoc struct {
	ChunkKey     string    `json:"chunk_key"` // reportID + chunkID 唯一标识
	ReportID     uint      `json:"report_id"`
	PatientID    uint      `json:"patient_id"`
	ChunkID      int       `json:"chunk_id"`
	FileName     string    `json:"file_name"`
	TextContent  string    `json:"text_content"`
	Vector       []float32 `json:"vector"`
	ModelVersion string    `json:"model_version"`
}

// ReportSearchResult 定义了返回给医生端的报告检索结果。
type ReportSearchResult struct {
	ReportID    uint    `json:"reportId"`
	PatientID   uint    `json:"patientId"`
	FileName    string  `json:"fileName"`
	ChunkID     int     `json:"chunkId"`
	TextContent string  `json:"textContent"`
	Score       float64 `json:"score"`
}
