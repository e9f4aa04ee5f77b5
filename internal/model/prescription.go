package model

import "time"

// 处方状态常量。
const (
	PrescriptionActive    = "ACTIVE"
	PrescriptionCompleted = "COMPLETED"
	PrescriptionCancelled = "CANCELLED"
)

// Prescription 定义了医生开具的处方。
type Prescription struct {
	ID                 uint                   `gorm:"primaryKey" json:"id"`
	PrescriptionNumber string                 `gorm:"type:varchar(32);uniqueIndex;not null" json:"prescriptionNumber"`
	PatientID          uint                   `gorm:"index;not null" json:"patientId"`
	DoctorID           uint                   `gorm:"index;not null" json:"doctorId"`
	AppointmentID      *uint                  `json:"appointmentId"`
	Diagnosis          string                 `gorm:"type:text" json:"diagnosis"`
	Symptoms           string                 `gorm:"type:text" json:"symptoms"`
	DoctorNotes        string                 `gorm:"type:text" json:"doctorNotes"`
	Status             string                 `gorm:"type:varchar(16);not null;default:'ACTIVE'" json:"status"`
	Medicines          []PrescriptionMedicine `gorm:"foreignKey:PrescriptionID" json:"medicines"`
	CreatedAt          time.Time              `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt          time.Time              `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Prescription) TableName() string {
	return "prescriptions"
}

// PrescriptionMedicine 定义了处方中的单个药品条目。
type PrescriptionMedicine struct {
	ID             uint   `gorm:"primaryKey" json:"id"`
	PrescriptionID uint   `gorm:"index;not null" json:"prescriptionId"`
	Name           string `gorm:"type:varchar(128);not null" json:"name"`
	Dose           string `gorm:"type:varchar(64)" json:"dose"`
	Frequency      string `gorm:"type:varchar(64)" json:"frequency"`
	Duration       string `gorm:"type:varchar(64)" json:"duration"`
	// OTC 或 PRESCRIPTION
	OtcOrPrescription string `gorm:"type:varchar(16)" json:"otcOrPrescription"`
}

func (PrescriptionMedicine) TableName() string {
	return "prescription_medicines"
}
