package repository

import (
	"gorm.io/gorm"

	"mediconnect/internal/model"
)

// OrderRepository 接口定义了药品订单的持久化操作。
type OrderRepository interface {
	Create(order *model.MedicineOrder) error
	FindByID(orderID uint) (*model.MedicineOrder, error)
	Update(order *model.MedicineOrder) error
	FindByPatient(patientID uint) ([]model.MedicineOrder, error)
	FindByPharmacy(pharmacyID uint) ([]model.MedicineOrder, error)
	FindPending() ([]model.MedicineOrder, error)
	AddDeliveryUpdate(update *model.DeliveryUpdate) error
}

// orderRepository 是 OrderRepository 接口的 GORM 实现。
type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository 创建一个新的 OrderRepository 实例。
func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(order *model.MedicineOrder) error {
	return r.db.Create(order).Error
}

func (r *orderRepository) FindByID(orderID uint) (*model.MedicineOrder, error) {
	var order model.MedicineOrder
	err := r.db.Preload("Items").Preload("DeliveryUpdates").
		First(&order, orderID).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) Update(order *model.MedicineOrder) error {
	return r.db.Save(order).Error
}

func (r *orderRepository) FindByPatient(patientID uint) ([]model.MedicineOrder, error) {
	var orders []model.MedicineOrder
	err := r.db.Preload("Items").Preload("DeliveryUpdates").
		Where("patient_id = ?", patientID).
		Order("created_at DESC").Find(&orders).Error
	return orders, err
}

func (r *orderRepository) FindByPharmacy(pharmacyID uint) ([]model.MedicineOrder, error) {
	var orders []model.MedicineOrder
	err := r.db.Preload("Items").Preload("DeliveryUpdates").
		Where("pharmacy_id = ?", pharmacyID).
		Order("created_at DESC").Find(&orders).Error
	return orders, err
}

// FindPending 检索尚未被任何药房接单的订单。
func (r *orderRepository) FindPending() ([]model.MedicineOrder, error) {
	var orders []model.MedicineOrder
	err := r.db.Preload("Items").
		Where("status = ?", model.OrderPending).
		Order("created_at ASC").Find(&orders).Error
	return orders, err
}

// AddDeliveryUpdate 追加一条配送轨迹记录。
func (r *orderRepository) AddDeliveryUpdate(update *model.DeliveryUpdate) error {
	return r.db.Create(update).Error
}
