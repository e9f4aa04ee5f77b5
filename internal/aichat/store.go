// Package aichat 实现了 AI 问诊的会话连续性核心：
// 会话上下文管理、重试分发、消息时间线与历史缓存。
package aichat

import (
	"context"
	"time"
)

// SessionStore 抽象了按 key 存取 JSON 字符串的会话存储。
// 生产实现基于 Redis（见 repository 包），测试中使用内存实现。
// 读到的坏数据由调用方按"不存在"处理，存储层不做格式校验。
type SessionStore interface {
	// Get 返回 key 对应的值；第二个返回值为 false 表示 key 不存在。
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}
