package aichat

import (
	"fmt"
	"testing"

	"mediconnect/internal/model"
)

func TestTimelineBound(t *testing.T) {
	tl := NewTimeline(100, nil)
	for i := 0; i < 150; i++ {
		tl.Append(model.ChatMessage{ID: fmt.Sprintf("m%d", i), Role: model.RoleUser})
		if tl.Len() > 100 {
			t.Fatalf("timeline exceeded bound after append %d: len=%d", i, tl.Len())
		}
	}
	msgs := tl.Messages()
	if len(msgs) != 100 {
		t.Fatalf("expected 100 messages, got %d", len(msgs))
	}
	// 最旧的先被淘汰，保留的是 m50..m149
	if msgs[0].ID != "m50" {
		t.Fatalf("expected oldest surviving message m50, got %s", msgs[0].ID)
	}
	if msgs[99].ID != "m149" {
		t.Fatalf("expected newest message m149, got %s", msgs[99].ID)
	}
}

func TestTimelineAppendClearsCache(t *testing.T) {
	cache := NewHistoryCache()
	tl := NewTimeline(100, cache)

	cache.Set("history-1", []model.ChatMessage{{ID: "h1"}})
	cache.Set("history-2", []model.ChatMessage{{ID: "h2"}})

	tl.Append(model.ChatMessage{ID: "m1"})

	// 任意 key 都必须未命中：缓存整体清空，而非仅失效受影响条目
	if _, ok := cache.Get("history-1"); ok {
		t.Fatal("cache should be fully cleared after append")
	}
	if _, ok := cache.Get("history-2"); ok {
		t.Fatal("cache should be fully cleared after append")
	}
	if cache.Len() != 0 {
		t.Fatalf("expected empty cache, got %d entries", cache.Len())
	}
}

func TestTimelineUpdate(t *testing.T) {
	tl := NewTimeline(10, nil)
	tl.Append(model.ChatMessage{ID: "m1", Role: model.RoleAssistant})

	ok := tl.Update("m1", func(m *model.ChatMessage) {
		m.Liked = true
		m.Disliked = false
	})
	if !ok {
		t.Fatal("expected update to hit message m1")
	}
	if !tl.Messages()[0].Liked {
		t.Fatal("update not applied")
	}

	if tl.Update("missing", func(*model.ChatMessage) {}) {
		t.Fatal("update on unknown id should miss")
	}
}

func TestTimelineReplaceCaps(t *testing.T) {
	tl := NewTimeline(3, nil)
	msgs := make([]model.ChatMessage, 5)
	for i := range msgs {
		msgs[i] = model.ChatMessage{ID: fmt.Sprintf("m%d", i)}
	}
	tl.Replace(msgs)
	got := tl.Messages()
	if len(got) != 3 {
		t.Fatalf("expected capped length 3, got %d", len(got))
	}
	if got[0].ID != "m2" {
		t.Fatalf("replace should keep newest entries, got first=%s", got[0].ID)
	}
}

func TestHistoryCacheMissAfterClear(t *testing.T) {
	cache := NewHistoryCache()
	cache.Set("k", []model.ChatMessage{{ID: "m"}})
	if _, ok := cache.Get("k"); !ok {
		t.Fatal("expected cache hit before clear")
	}
	cache.Clear()
	if _, ok := cache.Get("k"); ok {
		t.Fatal("expected miss after clear")
	}
}
