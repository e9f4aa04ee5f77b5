package aichat

import (
	"context"
	"testing"
	"time"

	"mediconnect/internal/model"
)

func TestContextManagerSaveLoad(t *testing.T) {
	store := newMemoryStore()
	m := NewContextManager(store, time.Hour)
	ctx := context.Background()

	c := &model.ConversationContext{ConversationID: "c1", SessionID: "s1", MessageOrder: 2}
	if err := m.Save(ctx, 7, c); err != nil {
		t.Fatalf("Save err: %v", err)
	}
	if c.SavedAt == 0 {
		t.Fatal("Save should stamp savedAt")
	}

	got := m.Load(ctx, 7)
	if got == nil {
		t.Fatal("expected context, got nil")
	}
	if got.ConversationID != "c1" || got.SessionID != "s1" || got.MessageOrder != 2 {
		t.Fatalf("unexpected context: %+v", got)
	}
}

func TestContextManagerExpiry(t *testing.T) {
	store := newMemoryStore()
	m := NewContextManager(store, time.Hour)
	ctx := context.Background()

	base := time.Now()
	m.now = func() time.Time { return base }
	if err := m.Save(ctx, 7, &model.ConversationContext{ConversationID: "c1"}); err != nil {
		t.Fatalf("Save err: %v", err)
	}

	// TTL 内可恢复
	m.now = func() time.Time { return base.Add(59 * time.Minute) }
	if got := m.Load(ctx, 7); got == nil {
		t.Fatal("context within TTL should load")
	}

	// 恰好等于 TTL：按过期处理（源语义为 timeDiff < TTL 保留）
	m.now = func() time.Time { return base.Add(time.Hour) }
	if got := m.Load(ctx, 7); got != nil {
		t.Fatalf("context exactly at TTL boundary should expire, got %+v", got)
	}

	// 超过 TTL
	m.now = func() time.Time { return base.Add(2 * time.Hour) }
	if got := m.Load(ctx, 7); got != nil {
		t.Fatalf("stale context should never be returned, got %+v", got)
	}
}

func TestContextManagerCorruptData(t *testing.T) {
	store := newMemoryStore()
	m := NewContextManager(store, time.Hour)
	ctx := context.Background()

	if err := store.Set(ctx, contextKey(7), "{not json", 0); err != nil {
		t.Fatalf("Set err: %v", err)
	}
	// 损坏数据按不存在处理，绝不 panic 或报错
	if got := m.Load(ctx, 7); got != nil {
		t.Fatalf("corrupt context should be treated as absence, got %+v", got)
	}
}

func TestContextManagerClear(t *testing.T) {
	store := newMemoryStore()
	m := NewContextManager(store, time.Hour)
	ctx := context.Background()

	if err := m.Save(ctx, 7, &model.ConversationContext{ConversationID: "c1"}); err != nil {
		t.Fatalf("Save err: %v", err)
	}
	if err := m.Clear(ctx, 7); err != nil {
		t.Fatalf("Clear err: %v", err)
	}
	if got := m.Load(ctx, 7); got != nil {
		t.Fatalf("cleared context should not load, got %+v", got)
	}
}
