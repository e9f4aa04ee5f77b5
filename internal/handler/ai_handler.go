package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"mediconnect/internal/service"
	"mediconnect/pkg/log"
)

// AiHandler 负责处理 AI 问诊相关的 API 请求。
type AiHandler struct {
	consultationService service.ConsultationService
}

// NewAiHandler 创建一个新的 AiHandler 实例。
func NewAiHandler(consultationService service.ConsultationService) *AiHandler {
	return &AiHandler{consultationService: consultationService}
}

// Consult 处理一次问诊请求。
func (h *AiHandler) Consult(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "无法获取用户信息"})
		return
	}

	var req service.ConsultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无效的请求负载"})
		return
	}

	resp, err := h.consultationService.Consult(c.Request.Context(), user.ID, req)
	if err != nil {
		if errors.Is(err, service.ErrEmptyQuestion) || errors.Is(err, service.ErrQuestionTooLong) {
			c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": err.Error()})
			return
		}
		log.Errorf("Consult failed, userID=%d: %v", user.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "问诊服务暂时不可用"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": resp})
}

// History 返回患者的问诊时间线。
func (h *AiHandler) History(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "无法获取用户信息"})
		return
	}

	messages, err := h.consultationService.GetHistory(c.Request.Context(), user.ID)
	if err != nil {
		log.Errorf("History failed, userID=%d: %v", user.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "获取历史失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": messages})
}

// Conversation 返回单个会话内按序排列的问答记录。
func (h *AiHandler) Conversation(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "无法获取用户信息"})
		return
	}

	conversationID := c.Param("conversationId")
	records, err := h.consultationService.GetConversation(user.ID, conversationID)
	if err != nil {
		log.Errorf("Conversation failed, conversationID=%s: %v", conversationID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "获取会话失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": records})
}

// RecentQuestions 返回患者最近的提问列表，用于快捷提示。
func (h *AiHandler) RecentQuestions(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "无法获取用户信息"})
		return
	}
	questions := h.consultationService.RecentQuestions(c.Request.Context(), user.ID)
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": questions})
}

// FeedbackRequest 定义了反馈 API 的请求体结构。
type FeedbackRequest struct {
	MessageID string `json:"messageId" binding:"required"`
	Type      string `json:"type" binding:"required"`
}

// Feedback 记录对单条回复的点赞或点踩。
func (h *AiHandler) Feedback(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "无法获取用户信息"})
		return
	}

	var req FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无效的请求负载"})
		return
	}
	if req.Type != "positive" && req.Type != "negative" {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "反馈类型必须是 positive 或 negative"})
		return
	}

	h.consultationService.SubmitFeedback(c.Request.Context(), user.ID, req.MessageID, req.Type)
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success"})
}

// Export 导出当前会话时间线。
func (h *AiHandler) Export(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "无法获取用户信息"})
		return
	}

	export, err := h.consultationService.Export(c.Request.Context(), user.ID)
	if err != nil {
		log.Errorf("Export failed, userID=%d: %v", user.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "导出失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": export})
}

// NewConversation 原子地重置患者的会话状态。
func (h *AiHandler) NewConversation(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "无法获取用户信息"})
		return
	}

	if err := h.consultationService.StartNewConversation(c.Request.Context(), user.ID); err != nil {
		log.Errorf("NewConversation failed, userID=%d: %v", user.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "重置会话失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success"})
}
