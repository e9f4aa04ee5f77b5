package aichat

import (
	"context"
	"sync"
	"time"
)

// Session 聚合单个患者的会话期状态：消息时间线、历史缓存与会话级取消。
// 上下文与提问历史落在 SessionStore，时间线与缓存只存活于会话期内。
type Session struct {
	PatientID uint

	mu       sync.Mutex
	timeline *Timeline
	cache    *HistoryCache

	ctx    context.Context
	cancel context.CancelFunc
}

// Timeline 返回会话的消息时间线。
func (s *Session) Timeline() *Timeline {
	return s.timeline
}

// Cache 返回会话的历史缓存。
func (s *Session) Cache() *HistoryCache {
	return s.cache
}

// Context 返回会话级上下文；会话拆除时它被取消，
// 挂起的重试与在途请求据此协作式终止。
func (s *Session) Context() context.Context {
	return s.ctx
}

// Manager 按患者维护 Session 的生命周期，并共享上下文与提问历史的管理器。
type Manager struct {
	contexts  *ContextManager
	questions *QuestionHistory

	maxMessages int

	mu       sync.Mutex
	sessions map[uint]*Session
}

// NewManager 创建会话管理器。
func NewManager(store SessionStore, contextTTL time.Duration, maxMessages, maxQuestions int) *Manager {
	return &Manager{
		contexts:    NewContextManager(store, contextTTL),
		questions:   NewQuestionHistory(store, maxQuestions),
		maxMessages: maxMessages,
		sessions:    make(map[uint]*Session),
	}
}

// Contexts 返回共享的会话上下文管理器。
func (m *Manager) Contexts() *ContextManager {
	return m.contexts
}

// Questions 返回共享的提问历史管理器。
func (m *Manager) Questions() *QuestionHistory {
	return m.questions
}

// Session 返回患者的会话，不存在时创建。
func (m *Manager) Session(patientID uint) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[patientID]; ok {
		return s
	}
	cache := NewHistoryCache()
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		PatientID: patientID,
		timeline:  NewTimeline(m.maxMessages, cache),
		cache:     cache,
		ctx:       ctx,
		cancel:    cancel,
	}
	m.sessions[patientID] = s
	return s
}

// Close 拆除患者的会话：取消会话级上下文（终止一切挂起的重试定时器
// 与在途请求）并从管理器中移除。持久化上下文保持原样，供下次恢复。
func (m *Manager) Close(patientID uint) {
	m.mu.Lock()
	s, ok := m.sessions[patientID]
	if ok {
		delete(m.sessions, patientID)
	}
	m.mu.Unlock()
	if ok {
		s.cancel()
	}
}

// StartNewConversation 开始新会话：清除持久化上下文、清空时间线与缓存。
// 三者在会话锁内一次完成，不允许出现上下文已清而旧消息仍可见的撕裂状态。
func (m *Manager) StartNewConversation(ctx context.Context, patientID uint) error {
	s := m.Session(patientID)
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := m.contexts.Clear(ctx, patientID); err != nil {
		return err
	}
	s.timeline.Clear()
	s.cache.Clear()
	return nil
}
