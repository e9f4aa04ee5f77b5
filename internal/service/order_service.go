package service

import (
	"errors"
	"fmt"
	"time"

	"mediconnect/internal/model"
	"mediconnect/internal/repository"
	"mediconnect/pkg/token"
)

// 订单状态机：PENDING -> ACCEPTED -> PREPARING -> OUT_FOR_DELIVERY -> DELIVERED，
// PENDING 可被拒绝，DELIVERED 之前患者可取消。
var orderTransitions = map[string][]string{
	model.OrderPending:        {model.OrderAccepted, model.OrderRejected, model.OrderCancelled},
	model.OrderAccepted:       {model.OrderPreparing, model.OrderCancelled},
	model.OrderPreparing:      {model.OrderOutForDelivery, model.OrderCancelled},
	model.OrderOutForDelivery: {model.OrderDelivered},
}

// OrderService 接口定义了药品订单的业务操作。
type OrderService interface {
	Place(patientID, prescriptionID uint, deliveryAddress string) (*model.MedicineOrder, error)
	Accept(orderID, pharmacyID uint) (*model.MedicineOrder, error)
	Reject(orderID, pharmacyID uint, reason string) (*model.MedicineOrder, error)
	AdvanceStatus(orderID, pharmacyID uint, status, message string) (*model.MedicineOrder, error)
	Cancel(orderID, patientID uint) error
	ListForPatient(patientID uint) ([]model.MedicineOrder, error)
	ListForPharmacy(pharmacyID uint) ([]model.MedicineOrder, error)
	ListPending() ([]model.MedicineOrder, error)
	PharmacyStats(pharmacyID uint) (*PharmacyOrderStats, error)
}

// PharmacyOrderStats 汇总药房名下订单的状态分布。
type PharmacyOrderStats struct {
	Total      int64            `json:"total"`
	Delivered  int64            `json:"delivered"`
	InProgress int64            `json:"inProgress"`
	ByStatus   map[string]int64 `json:"byStatus"`
}

type orderService struct {
	orderRepo        repository.OrderRepository
	prescriptionRepo repository.PrescriptionRepository
}

// NewOrderService 创建一个新的 OrderService 实例。
func NewOrderService(orderRepo repository.OrderRepository, prescriptionRepo repository.PrescriptionRepository) OrderService {
	return &orderService{
		orderRepo:        orderRepo,
		prescriptionRepo: prescriptionRepo,
	}
}

// Place 基于处方下单，订单条目从处方药品展开。
func (s *orderService) Place(patientID, prescriptionID uint, deliveryAddress string) (*model.MedicineOrder, error) {
	prescription, err := s.prescriptionRepo.FindByID(prescriptionID)
	if err != nil {
		return nil, err
	}
	if prescription.PatientID != patientID {
		return nil, errors.New("处方不属于该患者")
	}
	if prescription.Status != model.PrescriptionActive {
		return nil, errors.New("处方已失效")
	}

	items := make([]model.OrderItem, 0, len(prescription.Medicines))
	for _, med := range prescription.Medicines {
		items = append(items, model.OrderItem{
			MedicineName: med.Name,
			Quantity:     1,
		})
	}

	order := &model.MedicineOrder{
		OrderNumber:     newOrderNumber(),
		PatientID:       patientID,
		PrescriptionID:  prescriptionID,
		Status:          model.OrderPending,
		DeliveryAddress: deliveryAddress,
		Items:           items,
	}
	if err := s.orderRepo.Create(order); err != nil {
		return nil, err
	}
	return order, nil
}

// newOrderNumber 生成形如 ORD-20260830-xxxxxx 的订单编号。
func newOrderNumber() string {
	return fmt.Sprintf("ORD-%s-%s", time.Now().Format("20060102"), token.GenerateRandomString(3))
}

// Accept 药房接单。
func (s *orderService) Accept(orderID, pharmacyID uint) (*model.MedicineOrder, error) {
	order, err := s.orderRepo.FindByID(orderID)
	if err != nil {
		return nil, err
	}
	if err := checkTransition(order.Status, model.OrderAccepted); err != nil {
		return nil, err
	}
	order.Status = model.OrderAccepted
	order.PharmacyID = &pharmacyID
	if err := s.orderRepo.Update(order); err != nil {
		return nil, err
	}
	s.recordUpdate(order.ID, model.OrderAccepted, "药房已接单")
	return order, nil
}

// Reject 药房拒单并记录原因。
func (s *orderService) Reject(orderID, pharmacyID uint, reason string) (*model.MedicineOrder, error) {
	order, err := s.orderRepo.FindByID(orderID)
	if err != nil {
		return nil, err
	}
	if err := checkTransition(order.Status, model.OrderRejected); err != nil {
		return nil, err
	}
	order.Status = model.OrderRejected
	order.PharmacyID = &pharmacyID
	order.RejectReason = reason
	if err := s.orderRepo.Update(order); err != nil {
		return nil, err
	}
	s.recordUpdate(order.ID, model.OrderRejected, reason)
	return order, nil
}

// AdvanceStatus 由接单药房推进配送状态。
func (s *orderService) AdvanceStatus(orderID, pharmacyID uint, status, message string) (*model.MedicineOrder, error) {
	order, err := s.orderRepo.FindByID(orderID)
	if err != nil {
		return nil, err
	}
	if order.PharmacyID == nil || *order.PharmacyID != pharmacyID {
		return nil, errors.New("订单不属于该药房")
	}
	if err := checkTransition(order.Status, status); err != nil {
		return nil, err
	}
	order.Status = status
	if err := s.orderRepo.Update(order); err != nil {
		return nil, err
	}
	s.recordUpdate(order.ID, status, message)
	return order, nil
}

// Cancel 患者在送达前取消订单。
func (s *orderService) Cancel(orderID, patientID uint) error {
	order, err := s.orderRepo.FindByID(orderID)
	if err != nil {
		return err
	}
	if order.PatientID != patientID {
		return errors.New("订单不属于该患者")
	}
	if err := checkTransition(order.Status, model.OrderCancelled); err != nil {
		return err
	}
	order.Status = model.OrderCancelled
	if err := s.orderRepo.Update(order); err != nil {
		return err
	}
	s.recordUpdate(order.ID, model.OrderCancelled, "患者取消订单")
	return nil
}

func (s *orderService) recordUpdate(orderID uint, status, message string) {
	_ = s.orderRepo.AddDeliveryUpdate(&model.DeliveryUpdate{
		OrderID: orderID,
		Status:  status,
		Message: message,
	})
}

// checkTransition 校验状态机是否允许该迁移。
func checkTransition(from, to string) error {
	for _, allowed := range orderTransitions[from] {
		if allowed == to {
			return nil
		}
	}
	return fmt.Errorf("订单状态不允许从 %s 迁移到 %s", from, to)
}

func (s *orderService) ListForPatient(patientID uint) ([]model.MedicineOrder, error) {
	return s.orderRepo.FindByPatient(patientID)
}

func (s *orderService) ListForPharmacy(pharmacyID uint) ([]model.MedicineOrder, error) {
	return s.orderRepo.FindByPharmacy(pharmacyID)
}

func (s *orderService) ListPending() ([]model.MedicineOrder, error) {
	return s.orderRepo.FindPending()
}

// PharmacyStats 统计药房订单的状态分布。
func (s *orderService) PharmacyStats(pharmacyID uint) (*PharmacyOrderStats, error) {
	orders, err := s.orderRepo.FindByPharmacy(pharmacyID)
	if err != nil {
		return nil, err
	}
	stats := &PharmacyOrderStats{ByStatus: make(map[string]int64)}
	for _, order := range orders {
		stats.Total++
		stats.ByStatus[order.Status]++
		switch order.Status {
		case model.OrderDelivered:
			stats.Delivered++
		case model.OrderAccepted, model.OrderPreparing, model.OrderOutForDelivery:
			stats.InProgress++
		}
	}
	return stats, nil
}
