package aichat

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDispatcherRetriesThenFails(t *testing.T) {
	d := NewDispatcher(3, time.Second)
	var delays []time.Duration
	d.sleep = func(_ context.Context, dur time.Duration) error {
		delays = append(delays, dur)
		return nil
	}

	attempts := 0
	errBoom := errors.New("boom")
	err := d.Do(context.Background(), func(context.Context) error {
		attempts++
		return errBoom
	})

	// 恰好 1 次初始尝试 + 3 次重试
	if attempts != 4 {
		t.Fatalf("expected 4 attempts, got %d", attempts)
	}
	if err == nil || !errors.Is(err, errBoom) {
		t.Fatalf("expected terminal error wrapping last failure, got %v", err)
	}
	// 延迟序列 2^k * 1s
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}
	if len(delays) != len(want) {
		t.Fatalf("expected %d delays, got %d", len(want), len(delays))
	}
	for i := range want {
		if delays[i] != want[i] {
			t.Fatalf("delay %d: expected %v, got %v", i, want[i], delays[i])
		}
	}
}

func TestDispatcherSucceedsMidway(t *testing.T) {
	d := NewDispatcher(3, time.Millisecond)
	d.sleep = func(context.Context, time.Duration) error { return nil }

	attempts := 0
	err := d.Do(context.Background(), func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do err: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestDispatcherCancelledBeforeRetry(t *testing.T) {
	d := NewDispatcher(3, time.Second)
	ctx, cancel := context.WithCancel(context.Background())

	attempts := 0
	err := d.Do(ctx, func(context.Context) error {
		attempts++
		// 模拟会话在首次失败后被拆除
		cancel()
		return errors.New("transient")
	})

	if attempts != 1 {
		t.Fatalf("no retry may run after teardown, got %d attempts", attempts)
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestDispatcherCancelledContextNoAttempt(t *testing.T) {
	d := NewDispatcher(3, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := d.Do(ctx, func(context.Context) error {
		called = true
		return nil
	})
	if called {
		t.Fatal("attempt must not run on cancelled context")
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
