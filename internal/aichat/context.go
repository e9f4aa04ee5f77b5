package aichat

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"mediconnect/internal/model"
	"mediconnect/pkg/log"
)

// DefaultContextTTL 是持久化会话上下文的默认有效期。
// 超过该时长未活动的上下文在加载时被丢弃，视为全新会话。
const DefaultContextTTL = time.Hour

// ContextManager 维护把多次问诊调用关联成一次逻辑会话的标识，
// 并负责其持久化与按 TTL 过期的恢复。
type ContextManager struct {
	store SessionStore
	ttl   time.Duration
	now   func() time.Time
}

// NewContextManager 创建一个 ContextManager。ttl <= 0 时使用默认值。
func NewContextManager(store SessionStore, ttl time.Duration) *ContextManager {
	if ttl <= 0 {
		ttl = DefaultContextTTL
	}
	return &ContextManager{store: store, ttl: ttl, now: time.Now}
}

func contextKey(patientID uint) string {
	return fmt.Sprintf("ai:chat:context:%d", patientID)
}

// Load 读取患者的持久化会话上下文。
// 上下文不存在、已过期或数据损坏时返回 nil（全新会话），损坏只记警告，绝不向上抛错。
// 过期判定为 now-savedAt < ttl 保留，恰好等于 TTL 的上下文按过期处理。
func (m *ContextManager) Load(ctx context.Context, patientID uint) *model.ConversationContext {
	raw, ok, err := m.store.Get(ctx, contextKey(patientID))
	if err != nil {
		log.Warnf("加载会话上下文失败, patientID=%d: %v", patientID, err)
		return nil
	}
	if !ok {
		return nil
	}

	var c model.ConversationContext
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		log.Warnf("会话上下文数据损坏，按全新会话处理, patientID=%d: %v", patientID, err)
		return nil
	}

	timeDiff := m.now().UnixMilli() - c.SavedAt
	if timeDiff >= m.ttl.Milliseconds() {
		return nil
	}
	return &c
}

// Save 盖上 savedAt 时间戳后把上下文写入存储。
// 每次成功应答后以及会话收尾时都会调用。
func (m *ContextManager) Save(ctx context.Context, patientID uint, c *model.ConversationContext) error {
	c.SavedAt = m.now().UnixMilli()
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("序列化会话上下文失败: %w", err)
	}
	return m.store.Set(ctx, contextKey(patientID), string(data), m.ttl)
}

// Clear 删除持久化的会话上下文，"开始新会话"时调用。
func (m *ContextManager) Clear(ctx context.Context, patientID uint) error {
	return m.store.Del(ctx, contextKey(patientID))
}
