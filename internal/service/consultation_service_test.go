package service

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"mediconnect/internal/aichat"
	"mediconnect/internal/config"
	"mediconnect/internal/model"
	"mediconnect/pkg/log"
	"mediconnect/pkg/tasks"
)

func TestMain(m *testing.M) {
	log.Init("error", "console", "")
	os.Exit(m.Run())
}

// memoryStore 是 aichat.SessionStore 的内存实现，仅用于测试。
type memoryStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: make(map[string]string)}
}

func (s *memoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *memoryStore) Set(_ context.Context, key, value string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *memoryStore) Del(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// fakeConsultRepo 在内存中记录问诊行，模拟 GORM 仓储。
type fakeConsultRepo struct {
	mu        sync.Mutex
	records   []model.AiConsultation
	feedbacks []model.ConsultFeedback
	histHits  int
}

func (r *fakeConsultRepo) Create(c *model.AiConsultation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.ID = uint(len(r.records) + 1)
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	r.records = append(r.records, *c)
	return nil
}

func (r *fakeConsultRepo) FindRecentByPatient(patientID uint, window time.Duration) (*model.AiConsultation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := time.Now().Add(-window)
	for i := len(r.records) - 1; i >= 0; i-- {
		rec := r.records[i]
		if rec.PatientID == patientID && rec.CreatedAt.After(cutoff) && rec.ConversationID != "" {
			out := rec
			return &out, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeConsultRepo) FindByConversation(conversationID string) ([]model.AiConsultation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.AiConsultation
	for _, rec := range r.records {
		if rec.ConversationID == conversationID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *fakeConsultRepo) FindHistoryByPatient(patientID uint, limit int) ([]model.AiConsultation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.histHits++
	var out []model.AiConsultation
	for i := len(r.records) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		if r.records[i].PatientID == patientID {
			out = append(out, r.records[i])
		}
	}
	return out, nil
}

func (r *fakeConsultRepo) CreateFeedback(f *model.ConsultFeedback) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.feedbacks = append(r.feedbacks, *f)
	return nil
}

// fakeDoctorRepo 只实现专科检索，其余操作不会被问诊链路触达。
type fakeDoctorRepo struct {
	doctors []model.Doctor
}

func (r *fakeDoctorRepo) Create(*model.Doctor) error                  { return nil }
func (r *fakeDoctorRepo) FindByID(uint) (*model.Doctor, error)        { return nil, gorm.ErrRecordNotFound }
func (r *fakeDoctorRepo) FindByUserID(uint) (*model.Doctor, error)    { return nil, gorm.ErrRecordNotFound }
func (r *fakeDoctorRepo) Update(*model.Doctor) error                  { return nil }
func (r *fakeDoctorRepo) FindVerified() ([]model.Doctor, error)       { return r.doctors, nil }
func (r *fakeDoctorRepo) CreateSlot(*model.DoctorSlot) error          { return nil }
func (r *fakeDoctorRepo) FindSlot(uint) (*model.DoctorSlot, error)    { return nil, gorm.ErrRecordNotFound }
func (r *fakeDoctorRepo) UpdateSlot(*model.DoctorSlot) error          { return nil }
func (r *fakeDoctorRepo) FindAvailableSlots(uint) ([]model.DoctorSlot, error) {
	return nil, nil
}

func (r *fakeDoctorRepo) FindBySpecialization(spec string) ([]model.Doctor, error) {
	var out []model.Doctor
	for _, d := range r.doctors {
		if d.Specialization == spec {
			out = append(out, d)
		}
	}
	return out, nil
}

// fakeLLM 按预设脚本应答，记录实际调用次数。
type fakeLLM struct {
	mu        sync.Mutex
	available bool
	response  string
	err       error
	failTimes int // 前 failTimes 次调用返回 err，之后返回 response
	calls     int
}

func (f *fakeLLM) Available() bool { return f.available }

func (f *fakeLLM) GenerateJSON(context.Context, string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil && (f.failTimes == 0 || f.calls <= f.failTimes) {
		return "", f.err
	}
	return f.response, nil
}

const validTriageJSON = `{"patientAdvice":"Rest well and hydrate.","doctorSummary":{"chiefComplaint":"fever"},` +
	`"prescribedMedicines":[],"riskLevel":"LOW","redFlags":[],"homeRemedies":["Rest"],"specializationHint":"cardiology"}`

func newTestService(repo *fakeConsultRepo, llmClient *fakeLLM, doctors *fakeDoctorRepo) (*consultationService, *aichat.Manager) {
	sessions := aichat.NewManager(newMemoryStore(), time.Hour, aichat.MaxMessages, aichat.MaxQuestionHistory)
	svc := NewConsultationService(
		repo, doctors, sessions, llmClient,
		aichat.NewDispatcher(3, time.Millisecond),
		config.AIConfig{},
	).(*consultationService)
	svc.publishFeedback = func(tasks.FeedbackEvent) error { return nil }
	return svc, sessions
}

func TestConsultValidation(t *testing.T) {
	svc, _ := newTestService(&fakeConsultRepo{}, &fakeLLM{}, &fakeDoctorRepo{})
	ctx := context.Background()

	if _, err := svc.Consult(ctx, 1, ConsultRequest{Question: "   "}); !errors.Is(err, ErrEmptyQuestion) {
		t.Fatalf("expected ErrEmptyQuestion, got %v", err)
	}
	long := strings.Repeat("x", MaxQuestionLen+1)
	if _, err := svc.Consult(ctx, 1, ConsultRequest{Question: long}); !errors.Is(err, ErrQuestionTooLong) {
		t.Fatalf("expected ErrQuestionTooLong, got %v", err)
	}
	// 恰好 1000 字符合法
	ok := strings.Repeat("x", MaxQuestionLen)
	if _, err := svc.Consult(ctx, 1, ConsultRequest{Question: ok}); err != nil {
		t.Fatalf("boundary-length question should pass, got %v", err)
	}
}

func TestConsultFreshConversation(t *testing.T) {
	repo := &fakeConsultRepo{}
	llmClient := &fakeLLM{available: true, response: validTriageJSON}
	doctors := &fakeDoctorRepo{doctors: []model.Doctor{{ID: 1, Specialization: "cardiology", Verified: true}}}
	svc, sessions := newTestService(repo, llmClient, doctors)
	ctx := context.Background()

	resp, err := svc.Consult(ctx, 1, ConsultRequest{Question: "I have chest pain"})
	if err != nil {
		t.Fatalf("Consult err: %v", err)
	}
	if resp.ConversationID == "" || resp.SessionID == "" {
		t.Fatalf("expected assigned ids, got %+v", resp)
	}
	if !strings.HasPrefix(resp.ConversationID, "conv_") || !strings.HasPrefix(resp.SessionID, "session_") {
		t.Fatalf("unexpected id shapes: %s / %s", resp.ConversationID, resp.SessionID)
	}
	if resp.MessageOrder != 2 {
		t.Fatalf("expected next message order 2, got %d", resp.MessageOrder)
	}
	if !resp.AiUsed || resp.Answer != "Rest well and hydrate." {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if len(resp.Specialists) != 1 {
		t.Fatalf("expected cardiology specialist suggestion, got %v", resp.Specialists)
	}

	// 持久化：行写入，序号为 1
	if len(repo.records) != 1 || repo.records[0].MessageOrder != 1 {
		t.Fatalf("unexpected persisted records: %+v", repo.records)
	}
	// 上下文推进到下一序号
	saved := sessions.Contexts().Load(ctx, 1)
	if saved == nil || saved.MessageOrder != 2 || saved.ConversationID != resp.ConversationID {
		t.Fatalf("unexpected saved context: %+v", saved)
	}
	// 时间线：user + assistant 两条
	msgs := sessions.Session(1).Timeline().Messages()
	if len(msgs) != 2 || msgs[0].Role != model.RoleUser || msgs[1].Role != model.RoleAssistant {
		t.Fatalf("unexpected timeline: %+v", msgs)
	}
	// 提问历史已记录
	if qs := svc.RecentQuestions(ctx, 1); len(qs) != 1 || qs[0] != "I have chest pain" {
		t.Fatalf("unexpected question history: %v", qs)
	}
}

func TestConsultContinuesConversationFromContext(t *testing.T) {
	repo := &fakeConsultRepo{}
	llmClient := &fakeLLM{available: true, response: validTriageJSON}
	svc, _ := newTestService(repo, llmClient, &fakeDoctorRepo{})
	ctx := context.Background()

	first, err := svc.Consult(ctx, 1, ConsultRequest{Question: "I have a fever"})
	if err != nil {
		t.Fatalf("first Consult err: %v", err)
	}
	// 第二轮不带任何标识，应从持久化上下文恢复同一会话
	second, err := svc.Consult(ctx, 1, ConsultRequest{Question: "It got worse"})
	if err != nil {
		t.Fatalf("second Consult err: %v", err)
	}
	if second.ConversationID != first.ConversationID || second.SessionID != first.SessionID {
		t.Fatalf("expected continued conversation, got %s then %s", first.ConversationID, second.ConversationID)
	}
	if repo.records[1].MessageOrder != 2 {
		t.Fatalf("expected second row order 2, got %d", repo.records[1].MessageOrder)
	}
	if second.MessageOrder != 3 {
		t.Fatalf("expected next order 3, got %d", second.MessageOrder)
	}
}

func TestConsultContinuesRecentConversationFromDB(t *testing.T) {
	repo := &fakeConsultRepo{}
	_ = repo.Create(&model.AiConsultation{
		PatientID: 1, Question: "earlier question", Answer: "earlier answer",
		ConversationID: "conv_1_1", SessionID: "session_1_1", MessageOrder: 1,
	})
	llmClient := &fakeLLM{available: true, response: validTriageJSON}
	svc, _ := newTestService(repo, llmClient, &fakeDoctorRepo{})

	// 上下文存储为空，但数据库里有 30 分钟内的记录，应续接它
	resp, err := svc.Consult(context.Background(), 1, ConsultRequest{Question: "follow up"})
	if err != nil {
		t.Fatalf("Consult err: %v", err)
	}
	if resp.ConversationID != "conv_1_1" || resp.SessionID != "session_1_1" {
		t.Fatalf("expected continuation of recent conversation, got %+v", resp)
	}
	if repo.records[1].MessageOrder != 2 {
		t.Fatalf("expected order 2 for continuation, got %d", repo.records[1].MessageOrder)
	}
}

func TestConsultRetryExhaustion(t *testing.T) {
	repo := &fakeConsultRepo{}
	llmClient := &fakeLLM{available: true, err: errors.New("upstream down")}
	svc, sessions := newTestService(repo, llmClient, &fakeDoctorRepo{})
	ctx := context.Background()

	resp, err := svc.Consult(ctx, 1, ConsultRequest{Question: "I have a fever"})
	if err != nil {
		t.Fatalf("Consult should not surface transport errors, got %v", err)
	}
	// 1 次初始尝试 + 3 次重试
	if llmClient.calls != 4 {
		t.Fatalf("expected 4 attempts, got %d", llmClient.calls)
	}
	if !resp.Error || resp.Answer != apologyMessage {
		t.Fatalf("expected apology error response, got %+v", resp)
	}
	// 失败不落库、不推进上下文
	if len(repo.records) != 0 {
		t.Fatalf("no record may be persisted on failure, got %+v", repo.records)
	}
	if saved := sessions.Contexts().Load(ctx, 1); saved != nil {
		t.Fatalf("context must not advance on failure, got %+v", saved)
	}
	// 时间线上保留用户消息与带标记的错误消息
	msgs := sessions.Session(1).Timeline().Messages()
	if len(msgs) != 2 || !msgs[1].Error {
		t.Fatalf("unexpected timeline after failure: %+v", msgs)
	}
	// 提问历史不记录失败轮次
	if qs := svc.RecentQuestions(ctx, 1); len(qs) != 0 {
		t.Fatalf("failed round must not enter question history, got %v", qs)
	}
}

func TestConsultRecoversAfterTransientFailures(t *testing.T) {
	repo := &fakeConsultRepo{}
	llmClient := &fakeLLM{available: true, err: errors.New("flaky"), failTimes: 2, response: validTriageJSON}
	svc, _ := newTestService(repo, llmClient, &fakeDoctorRepo{})

	resp, err := svc.Consult(context.Background(), 1, ConsultRequest{Question: "I have a fever"})
	if err != nil {
		t.Fatalf("Consult err: %v", err)
	}
	if llmClient.calls != 3 {
		t.Fatalf("expected success on third attempt, got %d calls", llmClient.calls)
	}
	if resp.Error || !resp.AiUsed {
		t.Fatalf("expected successful response, got %+v", resp)
	}
	if len(repo.records) != 1 {
		t.Fatalf("expected one persisted record, got %d", len(repo.records))
	}
}

func TestConsultFallbackWithoutAPIKey(t *testing.T) {
	repo := &fakeConsultRepo{}
	llmClient := &fakeLLM{available: false}
	svc, _ := newTestService(repo, llmClient, &fakeDoctorRepo{})

	resp, err := svc.Consult(context.Background(), 1, ConsultRequest{Question: "skin rash"})
	if err != nil {
		t.Fatalf("Consult err: %v", err)
	}
	if llmClient.calls != 0 {
		t.Fatal("model must not be called without an API key")
	}
	if resp.AiUsed || resp.RiskLevel != "LOW" {
		t.Fatalf("expected heuristic fallback, got %+v", resp)
	}
	if resp.SpecializationHint != "dermatology" {
		t.Fatalf("unexpected specialization: %q", resp.SpecializationHint)
	}
	// 回退结果同样落库并推进会话
	if len(repo.records) != 1 || repo.records[0].AiUsed {
		t.Fatalf("unexpected persisted record: %+v", repo.records)
	}
}

func TestGetHistoryCacheLifecycle(t *testing.T) {
	repo := &fakeConsultRepo{}
	_ = repo.Create(&model.AiConsultation{
		PatientID: 1, Question: "q1", Answer: "a1",
		ConversationID: "conv_1_1", RedFlags: "chest pain", HomeRemedies: "Rest; Hydration",
	})
	svc, sessions := newTestService(repo, &fakeLLM{}, &fakeDoctorRepo{})
	ctx := context.Background()

	first, err := svc.GetHistory(ctx, 1)
	if err != nil {
		t.Fatalf("GetHistory err: %v", err)
	}
	if len(first) != 2 || first[0].Role != model.RoleUser || first[1].Role != model.RoleAssistant {
		t.Fatalf("unexpected history: %+v", first)
	}
	if got := first[1].HomeRemedies; len(got) != 2 || got[0] != "Rest" {
		t.Fatalf("remedies not restored: %v", got)
	}

	// 第二次读取命中缓存，不再回源
	if _, err := svc.GetHistory(ctx, 1); err != nil {
		t.Fatalf("GetHistory err: %v", err)
	}
	if repo.histHits != 1 {
		t.Fatalf("expected single repository hit, got %d", repo.histHits)
	}

	// 时间线变更使缓存整体失效，下一次读取回源
	sessions.Session(1).Timeline().Append(model.ChatMessage{ID: "m1", Role: model.RoleUser})
	if _, err := svc.GetHistory(ctx, 1); err != nil {
		t.Fatalf("GetHistory err: %v", err)
	}
	if repo.histHits != 2 {
		t.Fatalf("expected cache miss after timeline change, got %d hits", repo.histHits)
	}
}

func TestSubmitFeedback(t *testing.T) {
	svc, sessions := newTestService(&fakeConsultRepo{}, &fakeLLM{}, &fakeDoctorRepo{})
	ctx := context.Background()

	sessions.Session(1).Timeline().Append(model.ChatMessage{ID: "m1", Role: model.RoleAssistant})

	var published []tasks.FeedbackEvent
	svc.publishFeedback = func(e tasks.FeedbackEvent) error {
		published = append(published, e)
		return nil
	}

	svc.SubmitFeedback(ctx, 1, "m1", "positive")

	msgs := sessions.Session(1).Timeline().Messages()
	if !msgs[0].Liked || msgs[0].Disliked {
		t.Fatalf("feedback not applied to timeline: %+v", msgs[0])
	}
	if len(published) != 1 || published[0].MessageID != "m1" || published[0].Type != "positive" {
		t.Fatalf("unexpected published events: %+v", published)
	}

	// 投递失败不得中断调用方
	svc.publishFeedback = func(tasks.FeedbackEvent) error { return errors.New("broker down") }
	svc.SubmitFeedback(ctx, 1, "m1", "negative")
	if msgs := sessions.Session(1).Timeline().Messages(); !msgs[0].Disliked {
		t.Fatalf("feedback flip not applied: %+v", msgs[0])
	}
}

func TestExport(t *testing.T) {
	repo := &fakeConsultRepo{}
	llmClient := &fakeLLM{available: true, response: validTriageJSON}
	svc, _ := newTestService(repo, llmClient, &fakeDoctorRepo{})
	ctx := context.Background()

	resp, err := svc.Consult(ctx, 1, ConsultRequest{Question: "I have a fever"})
	if err != nil {
		t.Fatalf("Consult err: %v", err)
	}

	export, err := svc.Export(ctx, 1)
	if err != nil {
		t.Fatalf("Export err: %v", err)
	}
	if export.PatientID != 1 || export.ConversationID != resp.ConversationID {
		t.Fatalf("unexpected export header: %+v", export)
	}
	if len(export.Messages) != 2 || export.ExportedAt.IsZero() {
		t.Fatalf("unexpected export payload: %+v", export)
	}
}

func TestStartNewConversationResetsEverything(t *testing.T) {
	repo := &fakeConsultRepo{}
	llmClient := &fakeLLM{available: true, response: validTriageJSON}
	svc, sessions := newTestService(repo, llmClient, &fakeDoctorRepo{})
	ctx := context.Background()

	if _, err := svc.Consult(ctx, 1, ConsultRequest{Question: "I have a fever"}); err != nil {
		t.Fatalf("Consult err: %v", err)
	}
	if _, err := svc.GetHistory(ctx, 1); err != nil {
		t.Fatalf("GetHistory err: %v", err)
	}

	if err := svc.StartNewConversation(ctx, 1); err != nil {
		t.Fatalf("StartNewConversation err: %v", err)
	}

	if saved := sessions.Contexts().Load(ctx, 1); saved != nil {
		t.Fatalf("context should be cleared, got %+v", saved)
	}
	if sessions.Session(1).Timeline().Len() != 0 {
		t.Fatal("timeline should be empty")
	}
	if sessions.Session(1).Cache().Len() != 0 {
		t.Fatal("cache should be empty")
	}
	// 提问历史独立于会话，不随新会话清空
	if qs := svc.RecentQuestions(ctx, 1); len(qs) != 1 {
		t.Fatalf("question history must survive new conversation, got %v", qs)
	}
}
