package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"mediconnect/internal/service"
	"mediconnect/pkg/log"
)

// DoctorHandler 负责处理医生目录与时段相关的 API 请求。
type DoctorHandler struct {
	doctorService service.DoctorService
}

// NewDoctorHandler 创建一个新的 DoctorHandler 实例。
func NewDoctorHandler(doctorService service.DoctorService) *DoctorHandler {
	return &DoctorHandler{doctorService: doctorService}
}

// List 返回所有通过审核的医生。
func (h *DoctorHandler) List(c *gin.Context) {
	doctors, err := h.doctorService.ListVerified()
	if err != nil {
		log.Errorf("List doctors failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "获取医生列表失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": doctors})
}

// Search 按专科检索医生。
func (h *DoctorHandler) Search(c *gin.Context) {
	specialization := c.Query("specialization")
	doctors, err := h.doctorService.SearchBySpecialization(specialization)
	if err != nil {
		log.Errorf("Search doctors failed, specialization=%s: %v", specialization, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "检索医生失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": doctors})
}

// AddSlotRequest 定义了新增时段 API 的请求体结构。
type AddSlotRequest struct {
	StartTime time.Time `json:"startTime" binding:"required"`
	EndTime   time.Time `json:"endTime" binding:"required"`
}

// AddSlot 为当前医生新增一个可预约时段。
func (h *DoctorHandler) AddSlot(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "无法获取用户信息"})
		return
	}

	var req AddSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无效的请求负载"})
		return
	}

	slot, err := h.doctorService.AddSlot(user.ID, req.StartTime, req.EndTime)
	if err != nil {
		log.Warnf("AddSlot failed, userID=%d: %v", user.ID, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": slot})
}

// Slots 返回指定医生的可预约时段。
func (h *DoctorHandler) Slots(c *gin.Context) {
	doctorID, err := strconv.ParseUint(c.Param("doctorId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无效的医生 ID"})
		return
	}
	slots, err := h.doctorService.ListAvailableSlots(uint(doctorID))
	if err != nil {
		log.Errorf("List slots failed, doctorID=%d: %v", doctorID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "获取时段失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": slots})
}
