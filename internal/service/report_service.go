package service

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"mediconnect/internal/config"
	"mediconnect/internal/model"
	"mediconnect/internal/repository"
	"mediconnect/pkg/embedding"
	"mediconnect/pkg/es"
	"mediconnect/pkg/kafka"
	"mediconnect/pkg/log"
	"mediconnect/pkg/storage"
	"mediconnect/pkg/tasks"
	"mediconnect/pkg/token"
)

// ReportService 接口定义了医疗报告的上传、查询与检索操作。
type ReportService interface {
	Upload(ctx context.Context, patientID uint, fileName string, reader io.Reader, size int64, contentType string) (*model.MedicalReport, error)
	ListForPatient(patientID uint) ([]model.MedicalReport, error)
	DownloadURL(reportID, requesterID uint) (string, error)
	Search(ctx context.Context, patientID uint, query string, size int) ([]model.ReportSearchResult, error)
}

type reportService struct {
	reportRepo      repository.ReportRepository
	embeddingClient embedding.Client
	minioCfg        config.MinIOConfig
	esCfg           config.ElasticsearchConfig

	// 测试注入点
	produceTask func(tasks.ReportProcessingTask) error
}

// NewReportService 创建一个新的 ReportService 实例。
func NewReportService(reportRepo repository.ReportRepository, embeddingClient embedding.Client, minioCfg config.MinIOConfig, esCfg config.ElasticsearchConfig) ReportService {
	return &reportService{
		reportRepo:      reportRepo,
		embeddingClient: embeddingClient,
		minioCfg:        minioCfg,
		esCfg:           esCfg,
		produceTask:     kafka.ProduceReportTask,
	}
}

// Upload 把报告文件写入 MinIO、落元数据并投递索引任务。
func (s *reportService) Upload(ctx context.Context, patientID uint, fileName string, reader io.Reader, size int64, contentType string) (*model.MedicalReport, error) {
	objectName := fmt.Sprintf("reports/%d/%s%s", patientID, token.GenerateRandomString(8), filepath.Ext(fileName))

	if err := storage.PutObject(ctx, s.minioCfg.BucketName, objectName, reader, size, contentType); err != nil {
		return nil, fmt.Errorf("上传报告到对象存储失败: %w", err)
	}

	report := &model.MedicalReport{
		PatientID:  patientID,
		FileName:   fileName,
		ObjectName: objectName,
		FileSize:   size,
		Status:     model.ReportUploaded,
	}
	if err := s.reportRepo.Create(report); err != nil {
		return nil, err
	}

	// 索引任务异步执行，投递失败时报告停留在 uploaded 状态
	if err := s.produceTask(tasks.ReportProcessingTask{
		ReportID:   report.ID,
		PatientID:  patientID,
		ObjectName: objectName,
		FileName:   fileName,
	}); err != nil {
		log.Errorf("投递报告索引任务失败, reportID=%d: %v", report.ID, err)
	}

	return report, nil
}

func (s *reportService) ListForPatient(patientID uint) ([]model.MedicalReport, error) {
	return s.reportRepo.FindByPatient(patientID)
}

// DownloadURL 返回报告文件的临时下载链接。
func (s *reportService) DownloadURL(reportID, requesterID uint) (string, error) {
	report, err := s.reportRepo.FindByID(reportID)
	if err != nil {
		return "", err
	}
	if report.PatientID != requesterID {
		return "", fmt.Errorf("报告不属于该患者")
	}
	return storage.GetPresignedURL(s.minioCfg.BucketName, report.ObjectName, 15*time.Minute)
}

// Search 在患者的报告分块上做混合检索。
// 向量化失败时降级为纯文本检索，不中断查询。
func (s *reportService) Search(ctx context.Context, patientID uint, query string, size int) ([]model.ReportSearchResult, error) {
	var queryVector []float32
	vector, err := s.embeddingClient.CreateEmbedding(ctx, query)
	if err != nil {
		log.Warnf("查询向量化失败，降级为文本检索: %v", err)
	} else {
		queryVector = vector
	}
	return es.SearchChunks(ctx, s.esCfg.IndexName, patientID, query, queryVector, size)
}
