package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"mediconnect/internal/service"
	"mediconnect/pkg/log"
)

// OrderHandler 负责处理药品订单相关的 API 请求。
type OrderHandler struct {
	orderService service.OrderService
}

// NewOrderHandler 创建一个新的 OrderHandler 实例。
func NewOrderHandler(orderService service.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

// PlaceOrderRequest 定义了下单 API 的请求体结构。
type PlaceOrderRequest struct {
	PrescriptionID  uint   `json:"prescriptionId" binding:"required"`
	DeliveryAddress string `json:"deliveryAddress" binding:"required"`
}

// Place 由患者基于处方下单。
func (h *OrderHandler) Place(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "无法获取用户信息"})
		return
	}

	var req PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无效的请求负载"})
		return
	}

	order, err := h.orderService.Place(user.ID, req.PrescriptionID, req.DeliveryAddress)
	if err != nil {
		log.Warnf("Place order failed, userID=%d: %v", user.ID, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": order})
}

// Accept 药房接单。
func (h *OrderHandler) Accept(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "无法获取用户信息"})
		return
	}

	orderID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无效的订单 ID"})
		return
	}

	order, err := h.orderService.Accept(uint(orderID), user.ID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": order})
}

// RejectOrderRequest 定义了拒单 API 的请求体结构。
type RejectOrderRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// Reject 药房拒单。
func (h *OrderHandler) Reject(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "无法获取用户信息"})
		return
	}

	orderID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无效的订单 ID"})
		return
	}

	var req RejectOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无效的请求负载"})
		return
	}

	order, err := h.orderService.Reject(uint(orderID), user.ID, req.Reason)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": order})
}

// AdvanceStatusRequest 定义了配送状态推进 API 的请求体结构。
type AdvanceStatusRequest struct {
	Status  string `json:"status" binding:"required"`
	Message string `json:"message"`
}

// AdvanceStatus 由接单药房推进配送状态。
func (h *OrderHandler) AdvanceStatus(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "无法获取用户信息"})
		return
	}

	orderID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无效的订单 ID"})
		return
	}

	var req AdvanceStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无效的请求负载"})
		return
	}

	order, err := h.orderService.AdvanceStatus(uint(orderID), user.ID, req.Status, req.Message)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": order})
}

// Cancel 患者在送达前取消订单。
func (h *OrderHandler) Cancel(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "无法获取用户信息"})
		return
	}

	orderID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无效的订单 ID"})
		return
	}

	if err := h.orderService.Cancel(uint(orderID), user.ID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success"})
}

// Mine 返回当前患者的全部订单。
func (h *OrderHandler) Mine(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "无法获取用户信息"})
		return
	}

	orders, err := h.orderService.ListForPatient(user.ID)
	if err != nil {
		log.Errorf("List orders failed, userID=%d: %v", user.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "获取订单列表失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": orders})
}

// ForPharmacy 返回当前药房接手的全部订单。
func (h *OrderHandler) ForPharmacy(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "无法获取用户信息"})
		return
	}

	orders, err := h.orderService.ListForPharmacy(user.ID)
	if err != nil {
		log.Errorf("List pharmacy orders failed, userID=%d: %v", user.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "获取订单列表失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": orders})
}

// Stats 返回当前药房订单的状态分布统计。
func (h *OrderHandler) Stats(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "无法获取用户信息"})
		return
	}

	stats, err := h.orderService.PharmacyStats(user.ID)
	if err != nil {
		log.Errorf("Pharmacy stats failed, userID=%d: %v", user.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "获取订单统计失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": stats})
}

// Pending 返回所有待接单订单，供药房抢单。
func (h *OrderHandler) Pending(c *gin.Context) {
	orders, err := h.orderService.ListPending()
	if err != nil {
		log.Errorf("List pending orders failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "获取订单列表失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": orders})
}
