package aichat

import (
	"context"
	"fmt"
	"time"
)

// 重试策略默认值：首次失败后最多再重试 3 次，延迟 1s/2s/4s。
const (
	DefaultMaxRetries = 3
	DefaultBaseDelay  = time.Second
)

// Dispatcher 负责把一次问诊调用发出去，并在瞬时失败时按指数退避重试，
// 向调用方保证最终给出成功或失败的信号。
// 重试不含抖动，也没有尝试上限之外的延迟封顶。
type Dispatcher struct {
	maxRetries int
	baseDelay  time.Duration
	sleep      func(ctx context.Context, d time.Duration) error
}

// NewDispatcher 创建 Dispatcher。maxRetries < 0 或 baseDelay <= 0 时使用默认值。
func NewDispatcher(maxRetries int, baseDelay time.Duration) *Dispatcher {
	if maxRetries < 0 {
		maxRetries = DefaultMaxRetries
	}
	if baseDelay <= 0 {
		baseDelay = DefaultBaseDelay
	}
	return &Dispatcher{maxRetries: maxRetries, baseDelay: baseDelay, sleep: sleepCtx}
}

// Do 执行 attempt，失败时重试至多 maxRetries 次，第 k 次重试前等待 baseDelay*2^k。
// 每次尝试前检查 ctx 是否已取消：会话被拆除后不会再有任何重试发生（协作式取消）。
// 全部尝试失败后返回包装了末次错误的终态错误。
func (d *Dispatcher) Do(ctx context.Context, attempt func(ctx context.Context) error) error {
	var lastErr error
	for k := 0; k <= d.maxRetries; k++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = attempt(ctx)
		if lastErr == nil {
			return nil
		}
		if k == d.maxRetries {
			break
		}
		// 延迟 baseDelay * 2^k：1s, 2s, 4s
		if err := d.sleep(ctx, d.baseDelay<<uint(k)); err != nil {
			return err
		}
	}
	return fmt.Errorf("问诊调用在 %d 次尝试后仍然失败: %w", d.maxRetries+1, lastErr)
}

// sleepCtx 等待指定时长，期间 ctx 取消则立即返回取消错误。
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
