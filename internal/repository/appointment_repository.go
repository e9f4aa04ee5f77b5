package repository

import (
	"gorm.io/gorm"

	"mediconnect/internal/model"
)

// AppointmentRepository 接口定义了预约记录的持久化操作。
type AppointmentRepository interface {
	Create(appointment *model.Appointment) error
	FindByID(appointmentID uint) (*model.Appointment, error)
	Update(appointment *model.Appointment) error
	FindByPatient(patientID uint) ([]model.Appointment, error)
	FindByDoctor(doctorID uint) ([]model.Appointment, error)
}

// appointmentRepository 是 AppointmentRepository 接口的 GORM 实现。
type appointmentRepository struct {
	db *gorm.DB
}

// NewAppointmentRepository 创建一个新的 AppointmentRepository 实例。
func NewAppointmentRepository(db *gorm.DB) AppointmentRepository {
	return &appointmentRepository{db: db}
}

func (r *appointmentRepository) Create(appointment *model.Appointment) error {
	return r.db.Create(appointment).Error
}

func (r *appointmentRepository) FindByID(appointmentID uint) (*model.Appointment, error) {
	var appointment model.Appointment
	err := r.db.First(&appointment, appointmentID).Error
	if err != nil {
		return nil, err
	}
	return &appointment, nil
}

func (r *appointmentRepository) Update(appointment *model.Appointment) error {
	return r.db.Save(appointment).Error
}

// FindByPatient 按创建时间倒序检索患者的全部预约。
func (r *appointmentRepository) FindByPatient(patientID uint) ([]model.Appointment, error) {
	var appointments []model.Appointment
	err := r.db.Where("patient_id = ?", patientID).
		Order("created_at DESC").Find(&appointments).Error
	return appointments, err
}

// FindByDoctor 按创建时间倒序检索医生名下的全部预约。
func (r *appointmentRepository) FindByDoctor(doctorID uint) ([]model.Appointment, error) {
	var appointments []model.Appointment
	err := r.db.Where("doctor_id = ?", doctorID).
		Order("created_at DESC").Find(&appointments).Error
	return appointments, err
}
