package service

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"mediconnect/internal/model"
	"mediconnect/internal/repository"
	"mediconnect/pkg/log"
)

// AppointmentService 接口定义了预约相关的业务操作。
type AppointmentService interface {
	Book(patientID, doctorID, slotID uint, notes string) (*model.Appointment, error)
	UpdateStatus(appointmentID uint, doctorID uint, status string) (*model.Appointment, error)
	Cancel(appointmentID, patientID uint) error
	ListForPatient(patientID uint) ([]model.Appointment, error)
	ListForDoctor(doctorID uint) ([]model.Appointment, error)
}

type appointmentService struct {
	appointmentRepo repository.AppointmentRepository
	doctorRepo      repository.DoctorRepository
	consultRepo     repository.ConsultationRepository
}

// NewAppointmentService 创建一个新的 AppointmentService 实例。
func NewAppointmentService(appointmentRepo repository.AppointmentRepository, doctorRepo repository.DoctorRepository, consultRepo repository.ConsultationRepository) AppointmentService {
	return &appointmentService{
		appointmentRepo: appointmentRepo,
		doctorRepo:      doctorRepo,
		consultRepo:     consultRepo,
	}
}

// Book 预约医生时段。若患者近期做过 AI 问诊，
// 把最近一次分诊结果快照到预约上，供医生接诊前参考。
func (s *appointmentService) Book(patientID, doctorID, slotID uint, notes string) (*model.Appointment, error) {
	slot, err := s.appointmentSlot(slotID)
	if err != nil {
		return nil, err
	}
	if slot.Booked {
		return nil, errors.New("该时段已被预约")
	}
	if slot.DoctorID != doctorID {
		return nil, errors.New("时段不属于该医生")
	}

	appointment := &model.Appointment{
		PatientID: patientID,
		DoctorID:  doctorID,
		SlotID:    slotID,
		Status:    model.AppointmentPending,
		Notes:     notes,
	}

	// 分诊快照，取 24 小时内的最近问诊
	recent, err := s.consultRepo.FindRecentByPatient(patientID, 24*time.Hour)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Warnf("查询问诊快照失败, patientID=%d: %v", patientID, err)
	}
	if recent != nil {
		appointment.AiSummary = recent.Answer
		appointment.DoctorSummary = recent.DoctorSummary
		appointment.RiskLevel = recent.RiskLevel
		appointment.RedFlags = recent.RedFlags
		appointment.HomeRemedies = recent.HomeRemedies
		appointment.SpecializationHint = recent.Specialization
	}

	if err := s.appointmentRepo.Create(appointment); err != nil {
		return nil, err
	}

	slot.Booked = true
	if err := s.doctorRepo.UpdateSlot(slot); err != nil {
		log.Errorf("标记时段已预约失败, slotID=%d: %v", slotID, err)
	}
	return appointment, nil
}

func (s *appointmentService) appointmentSlot(slotID uint) (*model.DoctorSlot, error) {
	slot, err := s.doctorRepo.FindSlot(slotID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("时段不存在")
		}
		return nil, err
	}
	return slot, nil
}

// UpdateStatus 由医生推进预约状态（确认或完成）。
func (s *appointmentService) UpdateStatus(appointmentID, doctorID uint, status string) (*model.Appointment, error) {
	if status != model.AppointmentConfirmed && status != model.AppointmentCompleted {
		return nil, fmt.Errorf("非法的预约状态: %s", status)
	}
	appointment, err := s.appointmentRepo.FindByID(appointmentID)
	if err != nil {
		return nil, err
	}
	if appointment.DoctorID != doctorID {
		return nil, errors.New("预约不属于该医生")
	}
	if appointment.Status == model.AppointmentCancelled {
		return nil, errors.New("预约已取消")
	}
	appointment.Status = status
	if err := s.appointmentRepo.Update(appointment); err != nil {
		return nil, err
	}
	return appointment, nil
}

// Cancel 由患者取消预约并释放时段。
func (s *appointmentService) Cancel(appointmentID, patientID uint) error {
	appointment, err := s.appointmentRepo.FindByID(appointmentID)
	if err != nil {
		return err
	}
	if appointment.PatientID != patientID {
		return errors.New("预约不属于该患者")
	}
	if appointment.Status == model.AppointmentCompleted {
		return errors.New("已完成的预约不可取消")
	}
	appointment.Status = model.AppointmentCancelled
	if err := s.appointmentRepo.Update(appointment); err != nil {
		return err
	}

	if slot, err := s.doctorRepo.FindSlot(appointment.SlotID); err == nil {
		slot.Booked = false
		if err := s.doctorRepo.UpdateSlot(slot); err != nil {
			log.Errorf("释放时段失败, slotID=%d: %v", slot.ID, err)
		}
	}
	return nil
}

func (s *appointmentService) ListForPatient(patientID uint) ([]model.Appointment, error) {
	return s.appointmentRepo.FindByPatient(patientID)
}

func (s *appointmentService) ListForDoctor(doctorID uint) ([]model.Appointment, error) {
	return s.appointmentRepo.FindByDoctor(doctorID)
}
