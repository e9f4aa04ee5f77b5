// Package repository 提供了数据访问层的实现。
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// SessionStore 定义了会话期键值数据的持久化操作，
// 会话上下文与提问历史都经由它落到 Redis。
type SessionStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

type redisSessionStore struct {
	redisClient *redis.Client
}

// NewSessionStore 创建一个新的 SessionStore 实例。
func NewSessionStore(redisClient *redis.Client) SessionStore {
	return &redisSessionStore{redisClient: redisClient}
}

// Get 读取键值。键不存在时返回 ok=false 且不报错。
func (s *redisSessionStore) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.redisClient.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get session key: %w", err)
	}
	return val, true, nil
}

// Set 写入键值。ttl <= 0 表示不过期。
func (s *redisSessionStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := s.redisClient.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set session key: %w", err)
	}
	return nil
}

// Del 删除键值。键不存在不视为错误。
func (s *redisSessionStore) Del(ctx context.Context, key string) error {
	if err := s.redisClient.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete session key: %w", err)
	}
	return nil
}

// TokenRepository 定义了已注销令牌黑名单的操作接口。
type TokenRepository interface {
	Blacklist(ctx context.Context, jti string, ttl time.Duration) error
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

type redisTokenRepository struct {
	redisClient *redis.Client
}

// NewTokenRepository 创建一个新的 TokenRepository 实例。
func NewTokenRepository(redisClient *redis.Client) TokenRepository {
	return &redisTokenRepository{redisClient: redisClient}
}

// Blacklist 把令牌标识写入黑名单，ttl 取令牌剩余有效期。
func (r *redisTokenRepository) Blacklist(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		// 已过期的令牌无需拉黑
		return nil
	}
	key := fmt.Sprintf("auth:blacklist:%s", jti)
	if err := r.redisClient.Set(ctx, key, "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to blacklist token: %w", err)
	}
	return nil
}

// IsBlacklisted 检查令牌是否已被注销。
func (r *redisTokenRepository) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	key := fmt.Sprintf("auth:blacklist:%s", jti)
	n, err := r.redisClient.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token blacklist: %w", err)
	}
	return n > 0, nil
}
