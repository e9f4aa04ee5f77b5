package model

import "time"

// 预约状态常量。
const (
	AppointmentPending   = "PENDING"
	AppointmentConfirmed = "CONFIRMED"
	AppointmentCompleted = "COMPLETED"
	AppointmentCancelled = "CANCELLED"
)

// DoctorSlot 定义了医生的可预约时段。
type DoctorSlot struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	DoctorID  uint      `gorm:"index;not null" json:"doctorId"`
	StartTime time.Time `gorm:"not null" json:"startTime"`
	EndTime   time.Time `gorm:"not null" json:"endTime"`
	Booked    bool      `gorm:"not null;default:false" json:"booked"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (DoctorSlot) TableName() string {
	return "doctor_slots"
}

// Appointment 定义了患者与医生的预约。
// AI 快照字段记录预约发起时最近一次问诊的分诊结果，供医生接诊前参考。
type Appointment struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	PatientID uint   `gorm:"index;not null" json:"patientId"`
	DoctorID  uint   `gorm:"index;not null" json:"doctorId"`
	SlotID    uint   `gorm:"not null" json:"slotId"`
	Status    string `gorm:"type:varchar(16);not null;default:'PENDING'" json:"status"`
	Notes     string `gorm:"type:text" json:"notes"`

	// AI 分诊快照
	AiSummary          string `gorm:"type:text" json:"aiSummary"`
	DoctorSummary      string `gorm:"type:text" json:"doctorSummary"`
	PatientAdvice      string `gorm:"type:text" json:"patientAdvice"`
	PrescribedMedicine string `gorm:"type:text" json:"prescribedMedicines"`
	RiskLevel          string `gorm:"type:varchar(16)" json:"riskLevel"`
	RedFlags           string `gorm:"type:text" json:"redFlags"`
	HomeRemedies       string `gorm:"type:text" json:"homeRemedies"`
	SpecializationHint string `gorm:"type:varchar(64)" json:"specializationHint"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Appointment) TableName() string {
	return "appointments"
}
