package aichat

import (
	"context"
	"testing"
	"time"

	"mediconnect/internal/model"
)

func TestStartNewConversationAtomicReset(t *testing.T) {
	store := newMemoryStore()
	m := NewManager(store, time.Hour, 100, 10)
	ctx := context.Background()

	s := m.Session(7)
	s.Timeline().Append(model.ChatMessage{ID: "m1", Role: model.RoleUser})
	s.Cache().Set("history-7", []model.ChatMessage{{ID: "h1"}})
	if err := m.Contexts().Save(ctx, 7, &model.ConversationContext{ConversationID: "c1", SessionID: "s1", MessageOrder: 3}); err != nil {
		t.Fatalf("Save err: %v", err)
	}

	if err := m.StartNewConversation(ctx, 7); err != nil {
		t.Fatalf("StartNewConversation err: %v", err)
	}

	// 上下文、时间线、缓存三者必须同时清空
	if got := m.Contexts().Load(ctx, 7); got != nil {
		t.Fatalf("context should be cleared, got %+v", got)
	}
	if s.Timeline().Len() != 0 {
		t.Fatalf("timeline should be empty, got %d messages", s.Timeline().Len())
	}
	if s.Cache().Len() != 0 {
		t.Fatalf("cache should be empty, got %d entries", s.Cache().Len())
	}
}

func TestSessionCloseCancelsContext(t *testing.T) {
	store := newMemoryStore()
	m := NewManager(store, time.Hour, 100, 10)

	s := m.Session(7)
	ctx := s.Context()
	m.Close(7)

	select {
	case <-ctx.Done():
	default:
		t.Fatal("session context should be cancelled on teardown")
	}

	// 关闭后重新获取得到全新会话
	s2 := m.Session(7)
	if s2 == s {
		t.Fatal("expected a fresh session after close")
	}
	if s2.Context().Err() != nil {
		t.Fatal("fresh session context should be live")
	}
}

func TestQuestionHistoryBound(t *testing.T) {
	store := newMemoryStore()
	h := NewQuestionHistory(store, 10)
	ctx := context.Background()

	for i := 0; i < 15; i++ {
		h.Add(ctx, 7, time.Now().Format("15:04:05.000000")+"-q")
	}
	h.Add(ctx, 7, "latest question")

	got := h.Get(ctx, 7)
	if len(got) != 10 {
		t.Fatalf("expected 10 entries, got %d", len(got))
	}
	if got[0] != "latest question" {
		t.Fatalf("most recent question should be first, got %q", got[0])
	}
}

func TestQuestionHistoryCorruptData(t *testing.T) {
	store := newMemoryStore()
	h := NewQuestionHistory(store, 10)
	ctx := context.Background()

	if err := store.Set(ctx, questionKey(7), "[broken", 0); err != nil {
		t.Fatalf("Set err: %v", err)
	}
	if got := h.Get(ctx, 7); got != nil {
		t.Fatalf("corrupt history should be treated as empty, got %v", got)
	}
}
