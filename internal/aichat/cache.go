package aichat

import (
	"sync"

	"mediconnect/internal/model"
)

// HistoryCache 是按 key 缓存已物化消息列表的读穿透备忘录。
// 它不是数据源：时间线的任何变更都会整体清空缓存，宁可重取也不容忍脏读。
type HistoryCache struct {
	mu      sync.RWMutex
	entries map[string][]model.ChatMessage
}

// NewHistoryCache 创建一个空的 HistoryCache。
func NewHistoryCache() *HistoryCache {
	return &HistoryCache{entries: make(map[string][]model.ChatMessage)}
}

// Get 返回 key 对应的缓存条目，未命中时第二个返回值为 false。
// 缓存未命中时由调用方负责回源并回填，缓存自身从不主动加载。
func (c *HistoryCache) Get(key string) ([]model.ChatMessage, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	msgs, ok := c.entries[key]
	return msgs, ok
}

// Set 写入一个缓存条目。
func (c *HistoryCache) Set(key string, msgs []model.ChatMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = msgs
}

// Clear 无条件清空全部条目，而非仅失效受影响的 key。
func (c *HistoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string][]model.ChatMessage)
}

// Len 返回当前缓存条目数。
func (c *HistoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
