package repository

import (
	"gorm.io/gorm"

	"mediconnect/internal/model"
)

// UserRepository 接口定义了用户账号及角色档案的持久化操作。
type UserRepository interface {
	Create(user *model.User) error
	FindByUsername(username string) (*model.User, error)
	FindByID(userID uint) (*model.User, error)
	Update(user *model.User) error

	CreatePatient(patient *model.Patient) error
	FindPatientByUserID(userID uint) (*model.Patient, error)
	CreatePharmacy(store *model.PharmacyStore) error
	FindPharmacyByUserID(userID uint) (*model.PharmacyStore, error)
}

// userRepository 是 UserRepository 接口的 GORM 实现。
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository 创建一个新的 UserRepository 实例。
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Create 在数据库中创建一个新的用户记录。
func (r *userRepository) Create(user *model.User) error {
	return r.db.Create(user).Error
}

// FindByUsername 根据用户名从数据库中查找一个用户。
func (r *userRepository) FindByUsername(username string) (*model.User, error) {
	var user model.User
	err := r.db.Where("username = ?", username).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID 根据用户 ID 从数据库中查找一个用户。
func (r *userRepository) FindByID(userID uint) (*model.User, error) {
	var user model.User
	err := r.db.First(&user, userID).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Update 更新数据库中一个已存在的用户记录。
func (r *userRepository) Update(user *model.User) error {
	return r.db.Save(user).Error
}

// CreatePatient 创建患者档案。
func (r *userRepository) CreatePatient(patient *model.Patient) error {
	return r.db.Create(patient).Error
}

// FindPatientByUserID 根据账号 ID 查找患者档案。
func (r *userRepository) FindPatientByUserID(userID uint) (*model.Patient, error) {
	var patient model.Patient
	err := r.db.Where("user_id = ?", userID).First(&patient).Error
	if err != nil {
		return nil, err
	}
	return &patient, nil
}

// CreatePharmacy 创建药房门店档案。
func (r *userRepository) CreatePharmacy(store *model.PharmacyStore) error {
	return r.db.Create(store).Error
}

// FindPharmacyByUserID 根据账号 ID 查找药房门店档案。
func (r *userRepository) FindPharmacyByUserID(userID uint) (*model.PharmacyStore, error) {
	var store model.PharmacyStore
	err := r.db.Where("user_id = ?", userID).First(&store).Error
	if err != nil {
		return nil, err
	}
	return &store, nil
}
