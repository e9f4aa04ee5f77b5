package aichat

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"mediconnect/pkg/log"
)

// MaxQuestionHistory 是快捷提示召回保留的原始提问条数上限。
const MaxQuestionHistory = 10

// 提问历史的持久化有效期，与会话上下文相互独立。
const questionHistoryTTL = 7 * 24 * time.Hour

// QuestionHistory 维护按患者隔离的提问原文列表，最新在前，
// 用于快捷提示召回。独立于会话上下文持久化，开启新会话时不清空。
type QuestionHistory struct {
	store SessionStore
	max   int

	mu   sync.Mutex
	memo map[uint][]string
}

// NewQuestionHistory 创建 QuestionHistory。max <= 0 时使用 MaxQuestionHistory。
func NewQuestionHistory(store SessionStore, max int) *QuestionHistory {
	if max <= 0 {
		max = MaxQuestionHistory
	}
	return &QuestionHistory{store: store, max: max, memo: make(map[uint][]string)}
}

func questionKey(patientID uint) string {
	return fmt.Sprintf("ai:chat:questions:%d", patientID)
}

// Get 返回患者的提问历史，优先读内存备忘，未命中时回源存储。
// 持久化数据损坏按空历史处理，只记警告。
func (h *QuestionHistory) Get(ctx context.Context, patientID uint) []string {
	h.mu.Lock()
	if cached, ok := h.memo[patientID]; ok {
		out := make([]string, len(cached))
		copy(out, cached)
		h.mu.Unlock()
		return out
	}
	h.mu.Unlock()

	raw, ok, err := h.store.Get(ctx, questionKey(patientID))
	if err != nil || !ok {
		if err != nil {
			log.Warnf("加载提问历史失败, patientID=%d: %v", patientID, err)
		}
		return nil
	}

	var history []string
	if err := json.Unmarshal([]byte(raw), &history); err != nil {
		log.Warnf("提问历史数据损坏，按空历史处理, patientID=%d: %v", patientID, err)
		return nil
	}

	h.mu.Lock()
	h.memo[patientID] = history
	h.mu.Unlock()
	return history
}

// Add 把新提问插到最前并截断到上限，同时更新备忘与持久化存储。
// 持久化失败只记警告，不影响本次问诊。
func (h *QuestionHistory) Add(ctx context.Context, patientID uint, question string) {
	history := h.Get(ctx, patientID)
	history = append([]string{question}, history...)
	if len(history) > h.max {
		history = history[:h.max]
	}

	h.mu.Lock()
	h.memo[patientID] = history
	h.mu.Unlock()

	data, err := json.Marshal(history)
	if err != nil {
		log.Warnf("序列化提问历史失败, patientID=%d: %v", patientID, err)
		return
	}
	if err := h.store.Set(ctx, questionKey(patientID), string(data), questionHistoryTTL); err != nil {
		log.Warnf("持久化提问历史失败, patientID=%d: %v", patientID, err)
	}
}
