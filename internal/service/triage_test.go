package service

import (
	"strings"
	"testing"

	"mediconnect/internal/model"
)

func TestHeuristicAdvice(t *testing.T) {
	cases := []struct {
		question string
		want     string
	}{
		{"I have a fever since yesterday", "mild fever or cold"},
		{"terrible headache", "quiet room"},
		{"stomach hurts after eating", "bland diet"},
		{"feeling generally unwell", "rest and hydration"},
	}
	for _, c := range cases {
		got := heuristicAdvice(c.question)
		if !strings.Contains(got, c.want) {
			t.Fatalf("heuristicAdvice(%q) = %q, want it to mention %q", c.question, got, c.want)
		}
	}
}

func TestExtractSpecialization(t *testing.T) {
	cases := []struct {
		question string
		want     string
	}{
		{"I have chest pain", "cardiology"},
		{"a rash on my arm", "dermatology"},
		{"migraine every morning", "neurology"},
		{"my joint is swollen", "orthopedics"},
		{"persistent cough", "pulmonology"},
		{"tooth ache", "dentistry"},
		{"hello there", ""},
	}
	for _, c := range cases {
		if got := extractSpecialization(c.question); got != c.want {
			t.Fatalf("extractSpecialization(%q) = %q, want %q", c.question, got, c.want)
		}
	}
}

func TestBuildConversationSummary(t *testing.T) {
	if got := buildConversationSummary(nil, "current"); got != "current" {
		t.Fatalf("empty history should return the question itself, got %q", got)
	}

	history := []model.AiConsultation{
		{Question: "I have a fever", Answer: "Rest and hydrate."},
		{Question: "Now my chest hurts too", Answer: "Please monitor closely."},
	}
	got := buildConversationSummary(history, "Should I see a doctor?")
	for _, want := range []string{
		"CONVERSATION CONTEXT:",
		"fever",
		"chest/heart issues",
		"1. Patient: I have a fever",
		"AI Response: Rest and hydrate.",
		"CURRENT QUESTION: Should I see a doctor?",
		"INSTRUCTIONS:",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("summary missing %q:\n%s", want, got)
		}
	}
}

func TestParseTriageResult(t *testing.T) {
	text := `{"patientAdvice":"Rest well. Hydrate often.","doctorSummary":{"chiefComplaint":"fever"},` +
		`"prescribedMedicines":[{"name":"Paracetamol","dose":"500mg"}],"riskLevel":"HIGH",` +
		`"redFlags":["chest pain"],"homeRemedies":["Rest","Hydration"],"specializationHint":"cardiology"}`
	result, err := parseTriageResult(text, "chest pain and fever")
	if err != nil {
		t.Fatalf("parseTriageResult err: %v", err)
	}
	if result.PatientAdvice != "Rest well. Hydrate often." {
		t.Fatalf("unexpected advice: %q", result.PatientAdvice)
	}
	if result.DoctorSummary.Structured["chiefComplaint"] != "fever" {
		t.Fatalf("unexpected doctor summary: %+v", result.DoctorSummary)
	}
	if result.RiskLevel != "HIGH" || len(result.PrescribedMedicine) != 1 || !result.AiUsed {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestParseTriageResultWithSurroundingText(t *testing.T) {
	text := "Here is the result:\n{\"patientAdvice\":\"ok\",\"riskLevel\":\"LOW\"}\nThanks!"
	result, err := parseTriageResult(text, "q")
	if err != nil {
		t.Fatalf("parseTriageResult err: %v", err)
	}
	if result.PatientAdvice != "ok" || result.RiskLevel != "LOW" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestParseTriageResultDefaults(t *testing.T) {
	result, err := parseTriageResult(`{}`, "I have a headache")
	if err != nil {
		t.Fatalf("parseTriageResult err: %v", err)
	}
	// 缺失字段回退：建议走启发式，风险默认 MEDIUM，专科从问题推断
	if result.PatientAdvice == "" || result.Answer != result.PatientAdvice {
		t.Fatalf("expected heuristic advice fallback, got %+v", result)
	}
	if result.RiskLevel != defaultRiskLevel {
		t.Fatalf("expected default risk level, got %q", result.RiskLevel)
	}
	if result.SpecializationHint != "neurology" {
		t.Fatalf("expected specialization from question, got %q", result.SpecializationHint)
	}
	if len(result.HomeRemedies) == 0 {
		t.Fatal("expected remedies extracted from advice text")
	}
}

func TestParseTriageResultGarbage(t *testing.T) {
	if _, err := parseTriageResult("not json at all", "q"); err == nil {
		t.Fatal("expected error for unparseable output")
	}
}

func TestFallbackTriage(t *testing.T) {
	result := fallbackTriage("skin rash on my arm")
	if result.AiUsed {
		t.Fatal("fallback must not claim AI was used")
	}
	if result.RiskLevel != "LOW" {
		t.Fatalf("unexpected risk level: %q", result.RiskLevel)
	}
	if len(result.HomeRemedies) != 2 || result.HomeRemedies[0] != "Rest" {
		t.Fatalf("unexpected remedies: %v", result.HomeRemedies)
	}
	if result.SpecializationHint != "dermatology" {
		t.Fatalf("unexpected specialization: %q", result.SpecializationHint)
	}
}

func TestJoinSplitList(t *testing.T) {
	items := []string{"chest pain", "persistent fever"}
	if got := splitList(joinList(items)); len(got) != 2 || got[1] != "persistent fever" {
		t.Fatalf("round trip failed: %v", got)
	}
	if splitList("") != nil {
		t.Fatal("empty string should split to nil")
	}
}
