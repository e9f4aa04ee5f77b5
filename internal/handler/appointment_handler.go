package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"mediconnect/internal/service"
	"mediconnect/pkg/log"
)

// AppointmentHandler 负责处理预约相关的 API 请求。
type AppointmentHandler struct {
	appointmentService service.AppointmentService
	doctorService      service.DoctorService
}

// NewAppointmentHandler 创建一个新的 AppointmentHandler 实例。
func NewAppointmentHandler(appointmentService service.AppointmentService, doctorService service.DoctorService) *AppointmentHandler {
	return &AppointmentHandler{
		appointmentService: appointmentService,
		doctorService:      doctorService,
	}
}

// BookRequest 定义了预约 API 的请求体结构。
type BookRequest struct {
	DoctorID uint   `json:"doctorId" binding:"required"`
	SlotID   uint   `json:"slotId" binding:"required"`
	Notes    string `json:"notes"`
}

// Book 由患者预约医生时段。
func (h *AppointmentHandler) Book(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "无法获取用户信息"})
		return
	}

	var req BookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无效的请求负载"})
		return
	}

	appointment, err := h.appointmentService.Book(user.ID, req.DoctorID, req.SlotID, req.Notes)
	if err != nil {
		log.Warnf("Book appointment failed, userID=%d: %v", user.ID, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": appointment})
}

// UpdateStatusRequest 定义了预约状态更新 API 的请求体结构。
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateStatus 由医生确认或完成预约。
func (h *AppointmentHandler) UpdateStatus(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "无法获取用户信息"})
		return
	}

	appointmentID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无效的预约 ID"})
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无效的请求负载"})
		return
	}

	doctor, err := h.doctorService.GetByUserID(user.ID)
	if err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "医生档案不存在"})
		return
	}

	appointment, err := h.appointmentService.UpdateStatus(uint(appointmentID), doctor.ID, req.Status)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": appointment})
}

// Cancel 由患者取消预约。
func (h *AppointmentHandler) Cancel(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "无法获取用户信息"})
		return
	}

	appointmentID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无效的预约 ID"})
		return
	}

	if err := h.appointmentService.Cancel(uint(appointmentID), user.ID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success"})
}

// Mine 返回当前患者的全部预约。
func (h *AppointmentHandler) Mine(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "无法获取用户信息"})
		return
	}

	appointments, err := h.appointmentService.ListForPatient(user.ID)
	if err != nil {
		log.Errorf("List appointments failed, userID=%d: %v", user.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "获取预约列表失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": appointments})
}

// ForDoctor 返回当前医生名下的全部预约。
func (h *AppointmentHandler) ForDoctor(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "无法获取用户信息"})
		return
	}

	doctor, err := h.doctorService.GetByUserID(user.ID)
	if err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "医生档案不存在"})
		return
	}

	appointments, err := h.appointmentService.ListForDoctor(doctor.ID)
	if err != nil {
		log.Errorf("List doctor appointments failed, doctorID=%d: %v", doctor.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "获取预约列表失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": appointments})
}
