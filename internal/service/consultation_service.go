package service

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"mediconnect/internal/aichat"
	"mediconnect/internal/config"
	"mediconnect/internal/model"
	"mediconnect/internal/repository"
	"mediconnect/pkg/kafka"
	"mediconnect/pkg/llm"
	"mediconnect/pkg/log"
	"mediconnect/pkg/tasks"
)

// MaxQuestionLen 是单次提问的字符数上限。
const MaxQuestionLen = 1000

// recentConversationWindow 是无上下文时回查数据库续接会话的时间窗。
const recentConversationWindow = 30 * time.Minute

// 历史缓存的键，整缓存随时间线变更一起失效，键本身不承载信息。
const historyCacheKey = "history"

var (
	// ErrEmptyQuestion 表示提问为空。
	ErrEmptyQuestion = errors.New("问题不能为空")
	// ErrQuestionTooLong 表示提问超出长度上限。
	ErrQuestionTooLong = errors.New("问题长度超出限制")
)

// apologyMessage 是重试耗尽后的兜底回复文案。
const apologyMessage = "I apologize, but I'm having trouble processing your question right now. Please try again in a moment, or consider booking an appointment with one of our doctors for immediate assistance."

// ConsultRequest 是一次问诊请求。会话标识可缺省，由服务端恢复或分配。
type ConsultRequest struct {
	Question       string `json:"question"`
	ConversationID string `json:"conversationId"`
	SessionID      string `json:"sessionId"`
	MessageOrder   int    `json:"messageOrder"`
}

// ConsultResponse 是一次问诊的完整应答。
type ConsultResponse struct {
	Answer             string                     `json:"answer"`
	PatientAdvice      string                     `json:"patientAdvice"`
	DoctorSummary      model.DoctorSummary        `json:"doctorSummary"`
	PrescribedMedicine []model.PrescribedMedicine `json:"prescribedMedicines"`
	RiskLevel          string                     `json:"riskLevel"`
	RedFlags           []string                   `json:"redFlags"`
	HomeRemedies       []string                   `json:"homeRemedies"`
	SpecializationHint string                     `json:"specializationHint"`
	Specialists        []model.Doctor             `json:"specialists"`
	ConversationID     string                     `json:"conversationId"`
	SessionID          string                     `json:"sessionId"`
	MessageOrder       int                        `json:"messageOrder"`
	AiUsed             bool                       `json:"aiUsed"`
	Error              bool                       `json:"error,omitempty"`
	Message            model.ChatMessage          `json:"message"`
}

// ConsultationService 接口定义了 AI 问诊相关的业务操作。
type ConsultationService interface {
	Consult(ctx context.Context, patientID uint, req ConsultRequest) (*ConsultResponse, error)
	GetHistory(ctx context.Context, patientID uint) ([]model.ChatMessage, error)
	GetConversation(patientID uint, conversationID string) ([]model.AiConsultation, error)
	RecentQuestions(ctx context.Context, patientID uint) []string
	SubmitFeedback(ctx context.Context, patientID uint, messageID, feedbackType string)
	Export(ctx context.Context, patientID uint) (*model.ConversationExport, error)
	StartNewConversation(ctx context.Context, patientID uint) error
	CloseSession(patientID uint)
}

type consultationService struct {
	consultRepo repository.ConsultationRepository
	doctorRepo  repository.DoctorRepository
	sessions    *aichat.Manager
	client      llm.Client
	dispatcher  *aichat.Dispatcher
	promptRules string

	// 测试注入点
	publishFeedback func(tasks.FeedbackEvent) error
	now             func() time.Time
}

// NewConsultationService 创建一个新的 ConsultationService 实例。
func NewConsultationService(
	consultRepo repository.ConsultationRepository,
	doctorRepo repository.DoctorRepository,
	sessions *aichat.Manager,
	client llm.Client,
	dispatcher *aichat.Dispatcher,
	aiCfg config.AIConfig,
) ConsultationService {
	rules := aiCfg.Prompt.Rules
	if rules == "" {
		rules = defaultSystemPrompt
	}
	return &consultationService{
		consultRepo:     consultRepo,
		doctorRepo:      doctorRepo,
		sessions:        sessions,
		client:          client,
		dispatcher:      dispatcher,
		promptRules:     rules,
		publishFeedback: kafka.ProduceFeedbackEvent,
		now:             time.Now,
	}
}

// Consult 处理一次问诊：校验输入、恢复会话上下文、调用模型并持久化结果。
// 模型调用在重试耗尽后不返回错误，而是产出一条带 error 标记的道歉消息，
// 且不推进会话上下文，下一次提问仍落在同一会话。
func (s *consultationService) Consult(ctx context.Context, patientID uint, req ConsultRequest) (*ConsultResponse, error) {
	question := trimQuestion(req.Question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}
	if len([]rune(question)) > MaxQuestionLen {
		return nil, ErrQuestionTooLong
	}

	session := s.sessions.Session(patientID)
	conversationID, sessionID, messageOrder, history := s.resolveContext(ctx, patientID, req)

	userMsg := model.ChatMessage{
		ID:        aichat.NewMessageID(),
		Role:      model.RoleUser,
		Content:   question,
		Timestamp: s.now(),
	}
	session.Timeline().Append(userMsg)

	result, callErr := s.generateTriage(session.Context(), question, history)
	if callErr != nil {
		log.Errorf("问诊调用最终失败, patientID=%d: %v", patientID, callErr)
		errMsg := model.ChatMessage{
			ID:        aichat.NewMessageID(),
			Role:      model.RoleAssistant,
			Content:   apologyMessage,
			Timestamp: s.now(),
			Error:     true,
		}
		session.Timeline().Append(errMsg)
		// 上下文不推进：本轮未产生有效应答，会话标识与序号保持原样
		return &ConsultResponse{
			Answer:         apologyMessage,
			ConversationID: conversationID,
			SessionID:      sessionID,
			MessageOrder:   messageOrder,
			Error:          true,
			Message:        errMsg,
		}, nil
	}

	record := &model.AiConsultation{
		PatientID:      patientID,
		Question:       question,
		Answer:         result.Answer,
		ConversationID: conversationID,
		SessionID:      sessionID,
		MessageOrder:   messageOrder,
		DoctorSummary:  result.DoctorSummary.String(),
		RiskLevel:      result.RiskLevel,
		RedFlags:       joinList(result.RedFlags),
		HomeRemedies:   joinList(result.HomeRemedies),
		Specialization: result.SpecializationHint,
		AiUsed:         result.AiUsed,
	}
	if err := s.consultRepo.Create(record); err != nil {
		log.Errorf("保存问诊记录失败, patientID=%d: %v", patientID, err)
	}

	// 应答成功才推进上下文，序号指向下一条消息
	if err := s.sessions.Contexts().Save(ctx, patientID, &model.ConversationContext{
		ConversationID: conversationID,
		SessionID:      sessionID,
		MessageOrder:   messageOrder + 1,
	}); err != nil {
		log.Warnf("保存会话上下文失败, patientID=%d: %v", patientID, err)
	}

	s.sessions.Questions().Add(ctx, patientID, question)

	assistantMsg := model.ChatMessage{
		ID:                 aichat.NewMessageID(),
		Role:               model.RoleAssistant,
		Content:            result.Answer,
		Timestamp:          s.now(),
		PatientAdvice:      result.PatientAdvice,
		DoctorSummary:      result.DoctorSummary,
		PrescribedMedicine: result.PrescribedMedicine,
		RiskLevel:          result.RiskLevel,
		RedFlags:           result.RedFlags,
		HomeRemedies:       result.HomeRemedies,
		SpecializationHint: result.SpecializationHint,
	}
	session.Timeline().Append(assistantMsg)

	var specialists []model.Doctor
	if result.SpecializationHint != "" {
		var err error
		specialists, err = s.doctorRepo.FindBySpecialization(result.SpecializationHint)
		if err != nil {
			log.Warnf("查询专科医生失败, specialization=%s: %v", result.SpecializationHint, err)
		}
	}

	return &ConsultResponse{
		Answer:             result.Answer,
		PatientAdvice:      result.PatientAdvice,
		DoctorSummary:      result.DoctorSummary,
		PrescribedMedicine: result.PrescribedMedicine,
		RiskLevel:          result.RiskLevel,
		RedFlags:           result.RedFlags,
		HomeRemedies:       result.HomeRemedies,
		SpecializationHint: result.SpecializationHint,
		Specialists:        specialists,
		ConversationID:     conversationID,
		SessionID:          sessionID,
		MessageOrder:       messageOrder + 1,
		AiUsed:             result.AiUsed,
		Message:            assistantMsg,
	}, nil
}

// resolveContext 恢复本次提问所属的会话：
// 请求自带标识优先；其次是未过期的持久化上下文；再查时间窗内的
// 最近问诊记录续接；都没有则分配全新标识。
func (s *consultationService) resolveContext(ctx context.Context, patientID uint, req ConsultRequest) (conversationID, sessionID string, messageOrder int, history []model.AiConsultation) {
	conversationID = req.ConversationID
	sessionID = req.SessionID
	messageOrder = req.MessageOrder

	if conversationID == "" {
		if saved := s.sessions.Contexts().Load(ctx, patientID); saved != nil {
			conversationID = saved.ConversationID
			sessionID = saved.SessionID
			messageOrder = saved.MessageOrder
		}
	}

	if conversationID == "" {
		recent, err := s.consultRepo.FindRecentByPatient(patientID, recentConversationWindow)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warnf("回查最近问诊失败, patientID=%d: %v", patientID, err)
		}
		if recent != nil && recent.ConversationID != "" {
			conversationID = recent.ConversationID
			sessionID = recent.SessionID
		}
	}

	if conversationID != "" {
		var err error
		history, err = s.consultRepo.FindByConversation(conversationID)
		if err != nil {
			log.Warnf("加载会话历史失败, conversationID=%s: %v", conversationID, err)
		}
	}

	if conversationID == "" {
		conversationID = aichat.NewConversationID()
	}
	if sessionID == "" {
		sessionID = aichat.NewSessionID()
	}
	if messageOrder <= 0 {
		messageOrder = len(history) + 1
	}
	return conversationID, sessionID, messageOrder, history
}

// generateTriage 经重试策略调用模型。模型未配置时直接走本地回退；
// 输出不可解析按 Java 端语义降级为回退建议而非报错。
func (s *consultationService) generateTriage(ctx context.Context, question string, history []model.AiConsultation) (*model.TriageResult, error) {
	if !s.client.Available() {
		return fallbackTriage(question), nil
	}

	prompt := s.promptRules + "\n\n" + buildConversationSummary(history, question)

	var text string
	err := s.dispatcher.Do(ctx, func(ctx context.Context) error {
		var callErr error
		text, callErr = s.client.GenerateJSON(ctx, prompt)
		return callErr
	})
	if err != nil {
		return nil, err
	}

	result, parseErr := parseTriageResult(text, question)
	if parseErr != nil {
		log.Warnf("模型输出解析失败，使用本地回退: %v", parseErr)
		return fallbackTriage(question), nil
	}
	return result, nil
}

// GetHistory 返回患者的问诊时间线，缓存命中直接返回，
// 未命中时从数据库重建并写入缓存。
func (s *consultationService) GetHistory(ctx context.Context, patientID uint) ([]model.ChatMessage, error) {
	session := s.sessions.Session(patientID)
	if cached, ok := session.Cache().Get(historyCacheKey); ok {
		return cached, nil
	}

	records, err := s.consultRepo.FindHistoryByPatient(patientID, aichat.MaxMessages/2)
	if err != nil {
		return nil, err
	}

	// 倒序取回，转正序后展开为 user/assistant 消息对
	messages := make([]model.ChatMessage, 0, len(records)*2)
	for i := len(records) - 1; i >= 0; i-- {
		rec := records[i]
		messages = append(messages, model.ChatMessage{
			ID:        aichat.NewMessageID(),
			Role:      model.RoleUser,
			Content:   rec.Question,
			Timestamp: rec.CreatedAt,
		})
		messages = append(messages, model.ChatMessage{
			ID:                 aichat.NewMessageID(),
			Role:               model.RoleAssistant,
			Content:            rec.Answer,
			Timestamp:          rec.CreatedAt,
			RiskLevel:          rec.RiskLevel,
			RedFlags:           splitList(rec.RedFlags),
			HomeRemedies:       splitList(rec.HomeRemedies),
			SpecializationHint: rec.Specialization,
		})
	}

	session.Cache().Set(historyCacheKey, messages)
	return messages, nil
}

// GetConversation 返回单个会话内按序排列的问答记录。
func (s *consultationService) GetConversation(patientID uint, conversationID string) ([]model.AiConsultation, error) {
	records, err := s.consultRepo.FindByConversation(conversationID)
	if err != nil {
		return nil, err
	}
	// 只返回属于该患者的记录
	filtered := records[:0]
	for _, rec := range records {
		if rec.PatientID == patientID {
			filtered = append(filtered, rec)
		}
	}
	return filtered, nil
}

// RecentQuestions 返回患者最近的提问列表，最新在前。
func (s *consultationService) RecentQuestions(ctx context.Context, patientID uint) []string {
	return s.sessions.Questions().Get(ctx, patientID)
}

// SubmitFeedback 记录对单条回复的点赞或点踩。本地时间线立即生效，
// 落库经 Kafka 异步完成，投递失败只记日志，绝不影响问诊主链路。
func (s *consultationService) SubmitFeedback(ctx context.Context, patientID uint, messageID, feedbackType string) {
	session := s.sessions.Session(patientID)
	session.Timeline().Update(messageID, func(m *model.ChatMessage) {
		m.Liked = feedbackType == "positive"
		m.Disliked = feedbackType == "negative"
	})

	if err := s.publishFeedback(tasks.FeedbackEvent{
		MessageID: messageID,
		PatientID: patientID,
		Type:      feedbackType,
	}); err != nil {
		log.Warnf("投递反馈事件失败, messageID=%s: %v", messageID, err)
	}
}

// Export 导出当前会话时间线。
func (s *consultationService) Export(ctx context.Context, patientID uint) (*model.ConversationExport, error) {
	session := s.sessions.Session(patientID)
	conversationID := ""
	if saved := s.sessions.Contexts().Load(ctx, patientID); saved != nil {
		conversationID = saved.ConversationID
	}
	return &model.ConversationExport{
		PatientID:      patientID,
		ConversationID: conversationID,
		Messages:       session.Timeline().Messages(),
		ExportedAt:     s.now(),
	}, nil
}

// StartNewConversation 原子地重置患者的会话状态。
func (s *consultationService) StartNewConversation(ctx context.Context, patientID uint) error {
	return s.sessions.StartNewConversation(ctx, patientID)
}

// CloseSession 拆除患者的会话期状态，终止挂起的重试。
func (s *consultationService) CloseSession(patientID uint) {
	s.sessions.Close(patientID)
}
