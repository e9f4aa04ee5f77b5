package aichat

import (
	"sync"

	"mediconnect/internal/model"
)

// MaxMessages 是时间线保留的消息条数上限。
const MaxMessages = 100

// Timeline 维护有序、有界的会话消息序列。
// 消息按其触发操作完成的顺序追加，不按发起顺序重排；
// 快速连发下慢响应可能排在快响应之后，这是有意保留的行为。
type Timeline struct {
	mu       sync.Mutex
	messages []model.ChatMessage
	max      int
	cache    *HistoryCache
}

// NewTimeline 创建时间线。max <= 0 时使用 MaxMessages；
// cache 非 nil 时，任何变更都会把它整体清空。
func NewTimeline(max int, cache *HistoryCache) *Timeline {
	if max <= 0 {
		max = MaxMessages
	}
	return &Timeline{max: max, cache: cache}
}

// Append 把消息追加到末尾；超出上限时从头部逐条淘汰最旧消息。
// 作为副作用整体清空历史缓存。
func (t *Timeline) Append(msg model.ChatMessage) {
	t.mu.Lock()
	t.messages = append(t.messages, msg)
	if len(t.messages) > t.max {
		t.messages = t.messages[len(t.messages)-t.max:]
	}
	t.mu.Unlock()

	if t.cache != nil {
		t.cache.Clear()
	}
}

// Update 按 id 查找消息并应用变更函数，返回是否命中。
// id 冲突时命中首条，后写覆盖先写。
func (t *Timeline) Update(id string, fn func(*model.ChatMessage)) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.messages {
		if t.messages[i].ID == id {
			fn(&t.messages[i])
			return true
		}
	}
	return false
}

// Messages 返回当前消息序列的副本。
func (t *Timeline) Messages() []model.ChatMessage {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]model.ChatMessage, len(t.messages))
	copy(out, t.messages)
	return out
}

// Replace 用给定序列整体替换时间线内容，超出上限时截断保留最新部分。
// 用于从后端历史回填，不触发缓存清空。
func (t *Timeline) Replace(msgs []model.ChatMessage) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(msgs) > t.max {
		msgs = msgs[len(msgs)-t.max:]
	}
	t.messages = make([]model.ChatMessage, len(msgs))
	copy(t.messages, msgs)
}

// Clear 清空时间线并整体清空历史缓存。
func (t *Timeline) Clear() {
	t.mu.Lock()
	t.messages = nil
	t.mu.Unlock()

	if t.cache != nil {
		t.cache.Clear()
	}
}

// Len 返回当前消息条数。
func (t *Timeline) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.messages)
}
