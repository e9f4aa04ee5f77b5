package repository

import (
	"gorm.io/gorm"

	"mediconnect/internal/model"
)

// PrescriptionRepository 接口定义了处方记录的持久化操作。
type PrescriptionRepository interface {
	Create(prescription *model.Prescription) error
	FindByID(prescriptionID uint) (*model.Prescription, error)
	FindByNumber(number string) (*model.Prescription, error)
	Update(prescription *model.Prescription) error
	FindByPatient(patientID uint) ([]model.Prescription, error)
	FindByDoctor(doctorID uint) ([]model.Prescription, error)
}

// prescriptionRepository 是 PrescriptionRepository 接口的 GORM 实现。
type prescriptionRepository struct {
	db *gorm.DB
}

// NewPrescriptionRepository 创建一个新的 PrescriptionRepository 实例。
func NewPrescriptionRepository(db *gorm.DB) PrescriptionRepository {
	return &prescriptionRepository{db: db}
}

// Create 在一个事务中写入处方及其药品条目。
func (r *prescriptionRepository) Create(prescription *model.Prescription) error {
	return r.db.Create(prescription).Error
}

func (r *prescriptionRepository) FindByID(prescriptionID uint) (*model.Prescription, error) {
	var prescription model.Prescription
	err := r.db.Preload("Medicines").First(&prescription, prescriptionID).Error
	if err != nil {
		return nil, err
	}
	return &prescription, nil
}

// FindByNumber 按处方编号查找处方，药房下单时据此核对。
func (r *prescriptionRepository) FindByNumber(number string) (*model.Prescription, error) {
	var prescription model.Prescription
	err := r.db.Preload("Medicines").
		Where("prescription_number = ?", number).First(&prescription).Error
	if err != nil {
		return nil, err
	}
	return &prescription, nil
}

func (r *prescriptionRepository) Update(prescription *model.Prescription) error {
	return r.db.Save(prescription).Error
}

func (r *prescriptionRepository) FindByPatient(patientID uint) ([]model.Prescription, error) {
	var prescriptions []model.Prescription
	err := r.db.Preload("Medicines").
		Where("patient_id = ?", patientID).
		Order("created_at DESC").Find(&prescriptions).Error
	return prescriptions, err
}

func (r *prescriptionRepository) FindByDoctor(doctorID uint) ([]model.Prescription, error) {
	var prescriptions []model.Prescription
	err := r.db.Preload("Medicines").
		Where("doctor_id = ?", doctorID).
		Order("created_at DESC").Find(&prescriptions).Error
	return prescriptions, err
}
