package model

import "time"

// 药品订单状态常量，按配送流水线推进。
const (
	OrderPending        = "PENDING"
	OrderAccepted       = "ACCEPTED"
	OrderRejected       = "REJECTED"
	OrderPreparing      = "PREPARING"
	OrderOutForDelivery = "OUT_FOR_DELIVERY"
	OrderDelivered      = "DELIVERED"
	OrderCancelled      = "CANCELLED"
)

// MedicineOrder 定义了基于处方创建的药品订单。
type MedicineOrder struct {
	ID              uint             `gorm:"primaryKey" json:"id"`
	OrderNumber     string           `gorm:"type:varchar(32);uniqueIndex;not null" json:"orderNumber"`
	PatientID       uint             `gorm:"index;not null" json:"patientId"`
	PrescriptionID  uint             `gorm:"index;not null" json:"prescriptionId"`
	PharmacyID      *uint            `gorm:"index" json:"pharmacyId"`
	Status          string           `gorm:"type:varchar(24);not null;default:'PENDING'" json:"status"`
	TotalAmount     float64          `json:"totalAmount"`
	DeliveryAddress string           `gorm:"type:varchar(255)" json:"deliveryAddress"`
	RejectReason    string           `gorm:"type:varchar(255)" json:"rejectReason"`
	Items           []OrderItem      `gorm:"foreignKey:OrderID" json:"items"`
	DeliveryUpdates []DeliveryUpdate `gorm:"foreignKey:OrderID" json:"deliveryUpdates"`
	CreatedAt       time.Time        `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt       time.Time        `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (MedicineOrder) TableName() string {
	return "medicine_orders"
}

// OrderItem 定义了订单中的药品条目。
type OrderItem struct {
	ID           uint    `gorm:"primaryKey" json:"id"`
	OrderID      uint    `gorm:"index;not null" json:"orderId"`
	MedicineName string  `gorm:"type:varchar(128);not null" json:"medicineName"`
	Quantity     int     `gorm:"not null;default:1" json:"quantity"`
	UnitPrice    float64 `json:"unitPrice"`
}

func (OrderItem) TableName() string {
	return "order_items"
}

// DeliveryUpdate 记录订单配送状态的变更轨迹。
type DeliveryUpdate struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	OrderID   uint      `gorm:"index;not null" json:"orderId"`
	Status    string    `gorm:"type:varchar(24);not null" json:"status"`
	Message   string    `gorm:"type:varchar(255)" json:"message"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (DeliveryUpdate) TableName() string {
	return "delivery_updates"
}
