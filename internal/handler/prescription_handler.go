package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"mediconnect/internal/service"
	"mediconnect/pkg/log"
)

// PrescriptionHandler 负责处理处方相关的 API 请求。
type PrescriptionHandler struct {
	prescriptionService service.PrescriptionService
	doctorService       service.DoctorService
}

// NewPrescriptionHandler 创建一个新的 PrescriptionHandler 实例。
func NewPrescriptionHandler(prescriptionService service.PrescriptionService, doctorService service.DoctorService) *PrescriptionHandler {
	return &PrescriptionHandler{
		prescriptionService: prescriptionService,
		doctorService:       doctorService,
	}
}

// Issue 由医生开具处方。
func (h *PrescriptionHandler) Issue(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "无法获取用户信息"})
		return
	}

	var input service.PrescriptionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无效的请求负载"})
		return
	}

	doctor, err := h.doctorService.GetByUserID(user.ID)
	if err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "医生档案不存在"})
		return
	}

	prescription, err := h.prescriptionService.Issue(doctor.ID, input)
	if err != nil {
		log.Warnf("Issue prescription failed, doctorID=%d: %v", doctor.ID, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": prescription})
}

// ByNumber 按处方编号查询处方，供药房核验。
func (h *PrescriptionHandler) ByNumber(c *gin.Context) {
	number := c.Param("number")
	prescription, err := h.prescriptionService.GetByNumber(number)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"code": http.StatusNotFound, "message": "处方不存在"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": prescription})
}

// Mine 返回当前患者的全部处方。
func (h *PrescriptionHandler) Mine(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "无法获取用户信息"})
		return
	}

	prescriptions, err := h.prescriptionService.ListForPatient(user.ID)
	if err != nil {
		log.Errorf("List prescriptions failed, userID=%d: %v", user.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "获取处方列表失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": prescriptions})
}

// ForDoctor 返回当前医生开具的全部处方。
func (h *PrescriptionHandler) ForDoctor(c *gin.Context) {
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

	prescriptions, err := h.prescriptionService.ListForDoctor(doctor.ID)
	if err != nil {
		log.Errorf("List doctor prescriptions failed, doctorID=%d: %v", doctor.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "获取处方列表失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": prescriptions})
}

// UpdateStatus 由开方医生更新处方状态。
func (h *PrescriptionHandler) UpdateStatus(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "无法获取用户信息"})
		return
	}

	prescriptionID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无效的处方 ID"})
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

	if err := h.prescriptionService.UpdateStatus(uint(prescriptionID), doctor.ID, req.Status); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success"})
}
