package repository

import (
	"time"

	"gorm.io/gorm"

	"mediconnect/internal/model"
)

// ReportRepository 接口定义了医疗报告元数据的持久化操作。
type ReportRepository interface {
	Create(report *model.MedicalReport) error
	FindByID(reportID uint) (*model.MedicalReport, error)
	FindByPatient(patientID uint) ([]model.MedicalReport, error)
	UpdateStatus(reportID uint, status int) error
	MarkIndexed(reportID uint) error
}

// reportRepository 是 ReportRepository 接口的 GORM 实现。
type reportRepository struct {
	db *gorm.DB
}

// NewReportRepository 创建一个新的 ReportRepository 实例。
func NewReportRepository(db *gorm.DB) ReportRepository {
	return &reportRepository{db: db}
}

func (r *reportRepository) Create(report *model.MedicalReport) error {
	return r.db.Create(report).Error
}

func (r *reportRepository) FindByID(reportID uint) (*model.MedicalReport, error) {
	var report model.MedicalReport
	err := r.db.First(&report, reportID).Error
	if err != nil {
		return nil, err
	}
	return &report, nil
}

func (r *reportRepository) FindByPatient(patientID uint) ([]model.MedicalReport, error) {
	var reports []model.MedicalReport
	err := r.db.Where("patient_id = ?", patientID).
		Order("created_at DESC").Find(&reports).Error
	return reports, err
}

// UpdateStatus 更新报告的处理状态。
func (r *reportRepository) UpdateStatus(reportID uint, status int) error {
	return r.db.Model(&model.MedicalReport{}).
		Where("id = ?", reportID).
		Update("status", status).Error
}

// MarkIndexed 把报告标记为已入索引并记录完成时间。
func (r *reportRepository) MarkIndexed(reportID uint) error {
	now := time.Now()
	return r.db.Model(&model.MedicalReport{}).
		Where("id = ?", reportID).
		Updates(map[string]interface{}{
			"status":     model.ReportIndexed,
			"indexed_at": &now,
		}).Error
}
