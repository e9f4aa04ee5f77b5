package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"mediconnect/internal/service"
	"mediconnect/pkg/log"
	"mediconnect/pkg/token"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // 允许所有来源
	},
}

// ChatHandler 负责处理 WebSocket 问诊连接：
// 每条入站消息作为一次提问走完整问诊链路，应答以 JSON 帧回发。
type ChatHandler struct {
	consultationService service.ConsultationService
	userService         service.UserService
	jwtManager          *token.JWTManager
}

// NewChatHandler 创建一个新的 ChatHandler 实例。
func NewChatHandler(consultationService service.ConsultationService, userService service.UserService, jwtManager *token.JWTManager) *ChatHandler {
	return &ChatHandler{
		consultationService: consultationService,
		userService:         userService,
		jwtManager:          jwtManager,
	}
}

// inboundChatMessage 是 WebSocket 入站帧的结构，与 HTTP 问诊请求对齐。
type inboundChatMessage struct {
	Question       string `json:"question"`
	ConversationID string `json:"conversationId"`
	SessionID      string `json:"sessionId"`
	MessageOrder   int    `json:"messageOrder"`
}

// Handle 处理一个传入的 WebSocket 连接。
// 浏览器 WebSocket 无法携带请求头，令牌经路径参数传入。
func (h *ChatHandler) Handle(c *gin.Context) {
	tokenString := c.Param("token")
	claims, err := h.jwtManager.VerifyToken(tokenString)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": "无效的 token", "data": nil})
		return
	}

	user, err := h.userService.GetProfile(claims.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "无法获取用户信息", "data": nil})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WebSocket 升级失败", err)
		return
	}
	defer conn.Close()
	// 连接断开时拆除会话，终止挂起的重试
	defer h.consultationService.CloseSession(user.ID)

	log.Infof("问诊 WebSocket 连接已建立，用户: %s", claims.Username)

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			log.Warnf("从 WebSocket 读取消息失败: %v", err)
			break
		}

		var inbound inboundChatMessage
		if err := json.Unmarshal(message, &inbound); err != nil {
			// 非 JSON 帧按纯文本提问处理
			inbound = inboundChatMessage{Question: string(message)}
		}

		resp, err := h.consultationService.Consult(c.Request.Context(), user.ID, service.ConsultRequest{
			Question:       inbound.Question,
			ConversationID: inbound.ConversationID,
			SessionID:      inbound.SessionID,
			MessageOrder:   inbound.MessageOrder,
		})
		if err != nil {
			errFrame, _ := json.Marshal(gin.H{"type": "error", "message": err.Error()})
			if writeErr := conn.WriteMessage(websocket.TextMessage, errFrame); writeErr != nil {
				break
			}
			continue
		}

		frame, _ := json.Marshal(gin.H{
			"type":      "answer",
			"data":      resp,
			"timestamp": time.Now().UnixMilli(),
		})
		if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			log.Warnf("写入 WebSocket 应答失败: %v", err)
			break
		}
	}
}
