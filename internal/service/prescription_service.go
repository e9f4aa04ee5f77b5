package service

import (
	"errors"
	"fmt"
	"time"

	"mediconnect/internal/model"
	"mediconnect/internal/repository"
	"mediconnect/pkg/token"
)

// PrescriptionInput 是开具处方的入参。
type PrescriptionInput struct {
	PatientID     uint                         `json:"patientId"`
	AppointmentID *uint                        `json:"appointmentId"`
	Diagnosis     string                       `json:"diagnosis"`
	Symptoms      string                       `json:"symptoms"`
	DoctorNotes   string                       `json:"doctorNotes"`
	Medicines     []model.PrescriptionMedicine `json:"medicines"`
}

// PrescriptionService 接口定义了处方相关的业务操作。
type PrescriptionService interface {
	Issue(doctorID uint, input PrescriptionInput) (*model.Prescription, error)
	GetByNumber(number string) (*model.Prescription, error)
	ListForPatient(patientID uint) ([]model.Prescription, error)
	ListForDoctor(doctorID uint) ([]model.Prescription, error)
	UpdateStatus(prescriptionID, doctorID uint, status string) error
}

type prescriptionService struct {
	prescriptionRepo repository.PrescriptionRepository
}

// NewPrescriptionService 创建一个新的 PrescriptionService 实例。
func NewPrescriptionService(prescriptionRepo repository.PrescriptionRepository) PrescriptionService {
	return &prescriptionService{prescriptionRepo: prescriptionRepo}
}

// Issue 开具处方并分配唯一处方编号。
func (s *prescriptionService) Issue(doctorID uint, input PrescriptionInput) (*model.Prescription, error) {
	if len(input.Medicines) == 0 {
		return nil, errors.New("处方至少包含一种药品")
	}
	prescription := &model.Prescription{
		PrescriptionNumber: newPrescriptionNumber(),
		PatientID:          input.PatientID,
		DoctorID:           doctorID,
		AppointmentID:      input.AppointmentID,
		Diagnosis:          input.Diagnosis,
		Symptoms:           input.Symptoms,
		DoctorNotes:        input.DoctorNotes,
		Status:             model.PrescriptionActive,
		Medicines:          input.Medicines,
	}
	if err := s.prescriptionRepo.Create(prescription); err != nil {
		return nil, err
	}
	return prescription, nil
}

// newPrescriptionNumber 生成形如 RX-20260830-xxxxxx 的处方编号。
func newPrescriptionNumber() string {
	return fmt.Sprintf("RX-%s-%s", time.Now().Format("20060102"), token.GenerateRandomString(3))
}

func (s *prescriptionService) GetByNumber(number string) (*model.Prescription, error) {
	return s.prescriptionRepo.FindByNumber(number)
}

func (s *prescriptionService) ListForPatient(patientID uint) ([]model.Prescription, error) {
	return s.prescriptionRepo.FindByPatient(patientID)
}

func (s *prescriptionService) ListForDoctor(doctorID uint) ([]model.Prescription, error) {
	return s.prescriptionRepo.FindByDoctor(doctorID)
}

// UpdateStatus 由开方医生更新处方状态。
func (s *prescriptionService) UpdateStatus(prescriptionID, doctorID uint, status string) error {
	if status != model.PrescriptionCompleted && status != model.PrescriptionCancelled {
		return fmt.Errorf("非法的处方状态: %s", status)
	}
	prescription, err := s.prescriptionRepo.FindByID(prescriptionID)
	if err != nil {
		return err
	}
	if prescription.DoctorID != doctorID {
		return errors.New("处方不属于该医生")
	}
	prescription.Status = status
	return s.prescriptionRepo.Update(prescription)
}
