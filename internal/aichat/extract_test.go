package aichat

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestExtractRemedies(t *testing.T) {
	if got := ExtractRemedies(""); len(got) != 0 {
		t.Fatalf("empty input should yield no remedies, got %v", got)
	}
	if got := ExtractRemedies("   \n  \r .  . "); len(got) != 0 {
		t.Fatalf("whitespace-only input should yield no remedies, got %v", got)
	}

	got := ExtractRemedies("Rest well. Drink water.\nUse a warm compress")
	want := []string{"Rest well", "Drink water", "Use a warm compress"}
	if len(got) != len(want) {
		t.Fatalf("expected %d remedies, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("remedy %d: expected %q, got %q", i, want[i], got[i])
		}
	}

	// 超过 6 段时恰好截断到 6 条
	long := strings.Repeat("Advice segment. ", 10)
	if got := ExtractRemedies(long); len(got) != 6 {
		t.Fatalf("expected exactly 6 remedies, got %d", len(got))
	}
}

func TestDecodeStringList(t *testing.T) {
	if got := DecodeStringList(nil); got != nil {
		t.Fatalf("nil raw should decode to nil, got %v", got)
	}
	if got := DecodeStringList(json.RawMessage(`["a","b"]`)); len(got) != 2 || got[0] != "a" {
		t.Fatalf("array decode failed: %v", got)
	}
	// 裸字符串包装为单元素列表
	if got := DecodeStringList(json.RawMessage(`"fever"`)); len(got) != 1 || got[0] != "fever" {
		t.Fatalf("single string should wrap as one-element list, got %v", got)
	}
	if got := DecodeStringList(json.RawMessage(`{"x":1}`)); got != nil {
		t.Fatalf("unparseable shape should decode to empty, got %v", got)
	}
}

func TestDecodeMedicines(t *testing.T) {
	raw := json.RawMessage(`[{"name":"Paracetamol","dose":"500mg","frequency":"every 6 hours","duration":"3 days","otcOrPrescription":"OTC"}]`)
	meds := DecodeMedicines(raw)
	if len(meds) != 1 || meds[0].Name != "Paracetamol" || meds[0].OtcOrPrescription != "OTC" {
		t.Fatalf("unexpected medicines: %+v", meds)
	}
	if got := DecodeMedicines(json.RawMessage(`"garbage"`)); got != nil {
		t.Fatalf("malformed medicines should decode to empty, got %v", got)
	}
}

func TestDecodeDoctorSummary(t *testing.T) {
	s := DecodeDoctorSummary(json.RawMessage(`{"chiefComplaint":"fever"}`))
	if s.Structured == nil || s.Structured["chiefComplaint"] != "fever" {
		t.Fatalf("expected structured summary, got %+v", s)
	}

	s = DecodeDoctorSummary(json.RawMessage(`"plain text summary"`))
	if s.Raw != "plain text summary" || s.Structured != nil {
		t.Fatalf("expected raw summary, got %+v", s)
	}

	if s = DecodeDoctorSummary(nil); !s.IsZero() {
		t.Fatalf("expected zero summary, got %+v", s)
	}
}

func TestNewMessageIDShape(t *testing.T) {
	id := NewMessageID()
	if !strings.HasPrefix(id, "msg_") {
		t.Fatalf("unexpected id shape: %s", id)
	}
	if id == NewMessageID() && id == NewMessageID() {
		t.Fatalf("ids should be practically unique: %s", id)
	}
}
