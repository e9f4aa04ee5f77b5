// Package model 定义了与数据库表对应的 Go 结构体。
package model

import "time"

// 用户角色常量。
const (
	RolePatient    = "PATIENT"
	RoleDoctor     = "DOCTOR"
	RolePharmacist = "PHARMACIST"
)

// User 定义了 users 表的 ORM 模型，是三类角色共用的账号实体。
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"username"`
	Password  string    `gorm:"type:varchar(128);not null" json:"-"`
	Email     string    `gorm:"type:varchar(128)" json:"email"`
	Role      string    `gorm:"type:varchar(16);not null;default:'PATIENT'" json:"role"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (User) TableName() string {
	return "users"
}

// Patient 定义了患者档案。
type Patient struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"uniqueIndex;not null" json:"userId"`
	FullName  string    `gorm:"type:varchar(128)" json:"fullName"`
	Age       int       `json:"age"`
	Gender    string    `gorm:"type:varchar(16)" json:"gender"`
	Phone     string    `gorm:"type:varchar(32)" json:"phone"`
	Address   string    `gorm:"type:varchar(255)" json:"address"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (Patient) TableName() string {
	return "patients"
}

// Doctor 定义了医生档案。Specialization 用于 AI 问诊的专科推荐匹配。
type Doctor struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	UserID         uint      `gorm:"uniqueIndex;not null" json:"userId"`
	FullName       string    `gorm:"type:varchar(128)" json:"fullName"`
	Specialization string    `gorm:"type:varchar(64);index" json:"specialization"`
	Qualification  string    `gorm:"type:varchar(128)" json:"qualification"`
	ExperienceYrs  int       `json:"experienceYears"`
	Verified       bool      `gorm:"not null;default:false" json:"verified"`
	ClinicAddress  string    `gorm:"type:varchar(255)" json:"clinicAddress"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (Doctor) TableName() string {
	return "doctors"
}

// PharmacyStore 定义了药房门店档案。
type PharmacyStore struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"uniqueIndex;not null" json:"userId"`
	StoreName string    `gorm:"type:varchar(128)" json:"storeName"`
	Address   string    `gorm:"type:varchar(255)" json:"address"`
	Phone     string    `gorm:"type:varchar(32)" json:"phone"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (PharmacyStore) TableName() string {
	return "pharmacy_stores"
}
