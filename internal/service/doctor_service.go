package service

import (
	"fmt"
	"time"

	"mediconnect/internal/model"
	"mediconnect/internal/repository"
)

// DoctorService 接口定义了医生侧的业务操作。
type DoctorService interface {
	GetByUserID(userID uint) (*model.Doctor, error)
	ListVerified() ([]model.Doctor, error)
	SearchBySpecialization(specialization string) ([]model.Doctor, error)
	AddSlot(doctorUserID uint, start, end time.Time) (*model.DoctorSlot, error)
	ListAvailableSlots(doctorID uint) ([]model.DoctorSlot, error)
}

type doctorService struct {
	doctorRepo repository.DoctorRepository
}

// NewDoctorService 创建一个新的 DoctorService 实例。
func NewDoctorService(doctorRepo repository.DoctorRepository) DoctorService {
	return &doctorService{doctorRepo: doctorRepo}
}

func (s *doctorService) GetByUserID(userID uint) (*model.Doctor, error) {
	return s.doctorRepo.FindByUserID(userID)
}

func (s *doctorService) ListVerified() ([]model.Doctor, error) {
	return s.doctorRepo.FindVerified()
}

// SearchBySpecialization 按专科检索医生。专科为空时返回空列表而非全量。
func (s *doctorService) SearchBySpecialization(specialization string) ([]model.Doctor, error) {
	if specialization == "" {
		return []model.Doctor{}, nil
	}
	return s.doctorRepo.FindBySpecialization(specialization)
}

// AddSlot 为医生增加一个可预约时段。
func (s *doctorService) AddSlot(doctorUserID uint, start, end time.Time) (*model.DoctorSlot, error) {
	if !end.After(start) {
		return nil, fmt.Errorf("时段结束时间必须晚于开始时间")
	}
	doctor, err := s.doctorRepo.FindByUserID(doctorUserID)
	if err != nil {
		return nil, err
	}
	slot := &model.DoctorSlot{
		DoctorID:  doctor.ID,
		StartTime: start,
		EndTime:   end,
	}
	if err := s.doctorRepo.CreateSlot(slot); err != nil {
		return nil, err
	}
	return slot, nil
}

func (s *doctorService) ListAvailableSlots(doctorID uint) ([]model.DoctorSlot, error) {
	return s.doctorRepo.FindAvailableSlots(doctorID)
}
