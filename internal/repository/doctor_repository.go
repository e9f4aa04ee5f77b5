package repository

import (
	"gorm.io/gorm"

	"mediconnect/internal/model"
)

// DoctorRepository 接口定义了医生档案与可预约时段的持久化操作。
type DoctorRepository interface {
	Create(doctor *model.Doctor) error
	FindByID(doctorID uint) (*model.Doctor, error)
	FindByUserID(userID uint) (*model.Doctor, error)
	Update(doctor *model.Doctor) error
	FindVerified() ([]model.Doctor, error)
	FindBySpecialization(specialization string) ([]model.Doctor, error)

	CreateSlot(slot *model.DoctorSlot) error
	FindSlot(slotID uint) (*model.DoctorSlot, error)
	FindAvailableSlots(doctorID uint) ([]model.DoctorSlot, error)
	UpdateSlot(slot *model.DoctorSlot) error
}

// doctorRepository 是 DoctorRepository 接口的 GORM 实现。
type doctorRepository struct {
	db *gorm.DB
}

// NewDoctorRepository 创建一个新的 DoctorRepository 实例。
func NewDoctorRepository(db *gorm.DB) DoctorRepository {
	return &doctorRepository{db: db}
}

func (r *doctorRepository) Create(doctor *model.Doctor) error {
	return r.db.Create(doctor).Error
}

func (r *doctorRepository) FindByID(doctorID uint) (*model.Doctor, error) {
	var doctor model.Doctor
	err := r.db.First(&doctor, doctorID).Error
	if err != nil {
		return nil, err
	}
	return &doctor, nil
}

func (r *doctorRepository) FindByUserID(userID uint) (*model.Doctor, error) {
	var doctor model.Doctor
	err := r.db.Where("user_id = ?", userID).First(&doctor).Error
	if err != nil {
		return nil, err
	}
	return &doctor, nil
}

func (r *doctorRepository) Update(doctor *model.Doctor) error {
	return r.db.Save(doctor).Error
}

// FindVerified 检索所有通过资质审核的医生。
func (r *doctorRepository) FindVerified() ([]model.Doctor, error) {
	var doctors []model.Doctor
	err := r.db.Where("verified = ?", true).Find(&doctors).Error
	return doctors, err
}

// FindBySpecialization 按专科检索已审核医生，用于 AI 问诊后的专科医生推荐。
func (r *doctorRepository) FindBySpecialization(specialization string) ([]model.Doctor, error) {
	var doctors []model.Doctor
	err := r.db.Where("verified = ? AND specialization = ?", true, specialization).
		Find(&doctors).Error
	return doctors, err
}

func (r *doctorRepository) CreateSlot(slot *model.DoctorSlot) error {
	return r.db.Create(slot).Error
}

func (r *doctorRepository) FindSlot(slotID uint) (*model.DoctorSlot, error) {
	var slot model.DoctorSlot
	err := r.db.First(&slot, slotID).Error
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

// FindAvailableSlots 检索医生未被预订的时段，按开始时间升序。
func (r *doctorRepository) FindAvailableSlots(doctorID uint) ([]model.DoctorSlot, error) {
	var slots []model.DoctorSlot
	err := r.db.Where("doctor_id = ? AND booked = ?", doctorID, false).
		Order("start_time ASC").Find(&slots).Error
	return slots, err
}

func (r *doctorRepository) UpdateSlot(slot *model.DoctorSlot) error {
	return r.db.Save(slot).Error
}
