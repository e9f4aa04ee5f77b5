// Package service 包含了应用的业务逻辑实现。
package service

import (
	"encoding/json"
	"fmt"
	"strings"

	"mediconnect/internal/aichat"
	"mediconnect/internal/model"
)

// 模型输出无法解析时的兜底风险等级。
const defaultRiskLevel = "MEDIUM"

// defaultSystemPrompt 是问诊的系统提示：要求模型同时产出患者建议与
// SOAP 格式的医生摘要，并严格以 JSON 输出。
const defaultSystemPrompt = "You are MediConnect AI, a medical assistant." +
	" For every consultation, return BOTH a detailed, actionable patientAdvice and a SOAP-format doctorSummary." +
	" doctorSummary must be a JSON object with: chiefComplaint, historyOfPresentIllness, medicalHistory, assessment, plan, prescribedMedicines (array of objects: name, dose, frequency, duration, otcOrPrescription), redFlags, specialistRecommendation." +
	" patientAdvice must be clear, actionable, and safe." +
	" prescribedMedicines: array of objects (name, dose, frequency, duration, otcOrPrescription). Only suggest OTC medicines unless enough info is available for prescription." +
	" If the user's input is vague or missing key details (age, duration, severity, history), ask clarifying questions before giving advice." +
	" If the question is not about health, respond: 'Sorry, I can only assist with medical and health-related questions.' and set all other fields to empty/null." +
	" Respond STRICTLY as compact JSON with these keys: patientAdvice (string), doctorSummary (object), prescribedMedicines (array), riskLevel (LOW|MEDIUM|HIGH), specializationHint (string), redFlags (array), homeRemedies (array). No other text."

// heuristicAdvice 在模型不可用时给出保守的本地建议。
func heuristicAdvice(question string) string {
	q := strings.ToLower(question)
	switch {
	case strings.Contains(q, "fever") || strings.Contains(q, "cold"):
		return "For mild fever or cold, rest, hydrate well, and consider acetaminophen as directed. If symptoms persist beyond 3 days or worsen, consult a doctor."
	case strings.Contains(q, "headache"):
		return "For a mild headache, rest in a quiet room, hydrate, and consider over-the-counter pain relief. If severe or accompanied by other symptoms, see a neurologist."
	case strings.Contains(q, "stomach") || strings.Contains(q, "acidity"):
		return "For mild stomach discomfort, try a bland diet, avoid spicy food, and hydrate. If persistent, consider consulting a gastroenterologist."
	}
	return "Based on your symptoms, consider rest and hydration. If symptoms persist or worsen, consult a specialist. I can suggest nearby doctors if you tell me your concern (e.g., cardiology, dermatology)."
}

// specializationKeywords 把问题关键词映射到专科名称，顺序即匹配优先级。
var specializationKeywords = []struct {
	spec     string
	keywords []string
}{
	{"cardiology", []string{"heart", "chest", "cardio", "blood pressure", "pulse"}},
	{"dermatology", []string{"skin", "derma", "rash", "acne", "eczema"}},
	{"neurology", []string{"neuro", "headache", "migraine", "brain", "nerve"}},
	{"orthopedics", []string{"ortho", "bone", "joint", "fracture", "arthritis"}},
	{"gastroenterology", []string{"gastro", "stomach", "digestive", "intestine", "liver"}},
	{"ent", []string{"ent", "ear", "nose", "throat", "sinus"}},
	{"psychiatry", []string{"psych", "mental", "anxiety", "depression", "stress"}},
	{"urology", []string{"uro", "urinary", "bladder", "kidney stone"}},
	{"nephrology", []string{"nephro", "kidney", "dialysis"}},
	{"oncology", []string{"onco", "cancer", "tumor", "chemotherapy"}},
	{"pulmonology", []string{"lung", "breathing", "respiratory", "asthma", "cough"}},
	{"ophthalmology", []string{"eye", "vision", "sight", "ophthalmology"}},
	{"pediatrics", []string{"pediatric", "child", "baby", "infant"}},
	{"gynecology", []string{"gyneco", "pregnancy", "menstrual", "women"}},
	{"dentistry", []string{"dental", "tooth", "teeth", "gum"}},
}

// extractSpecialization 从问题文本中推断专科，无法判断时返回空串。
func extractSpecialization(question string) string {
	q := strings.ToLower(question)
	for _, entry := range specializationKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(q, kw) {
				return entry.spec
			}
		}
	}
	return ""
}

// symptomKeywords 把问题关键词归类为症状标签，用于会话摘要。
var symptomKeywords = []struct {
	label    string
	keywords []string
}{
	{"fever", []string{"fever"}},
	{"headache", []string{"headache"}},
	{"chest/heart issues", []string{"chest", "heart"}},
	{"stomach pain", []string{"stomach", "pain"}},
	{"respiratory symptoms", []string{"cough", "cold"}},
	{"dizziness/weakness", []string{"dizzy", "weakness"}},
	{"skin issues", []string{"skin", "rash"}},
	{"musculoskeletal issues", []string{"joint", "bone"}},
}

// buildConversationSummary 把会话历史压缩成单条提示：
// 先列出历史中出现过的症状标签，再附上完整的问答流水与当前问题。
// 没有历史时直接返回当前问题。
func buildConversationSummary(history []model.AiConsultation, currentQuestion string) string {
	if len(history) == 0 {
		return currentQuestion
	}

	var symptoms []string
	seen := make(map[string]bool)
	for _, msg := range history {
		q := strings.ToLower(msg.Question)
		for _, entry := range symptomKeywords {
			if seen[entry.label] {
				continue
			}
			for _, kw := range entry.keywords {
				if strings.Contains(q, kw) {
					symptoms = append(symptoms, entry.label)
					seen[entry.label] = true
					break
				}
			}
		}
	}

	var sb strings.Builder
	sb.WriteString("CONVERSATION CONTEXT:\n")
	sb.WriteString("Patient has been discussing the following concerns:\n")
	if len(symptoms) > 0 {
		sb.WriteString("Symptoms mentioned: ")
		sb.WriteString(strings.Join(symptoms, ", "))
		sb.WriteString("\n")
	}
	sb.WriteString("\nDetailed conversation:\n")
	for i, msg := range history {
		fmt.Fprintf(&sb, "%d. Patient: %s\n", i+1, msg.Question)
		fmt.Fprintf(&sb, "   AI Response: %s\n\n", msg.Answer)
	}
	sb.WriteString("CURRENT QUESTION: ")
	sb.WriteString(currentQuestion)
	sb.WriteString("\n\nINSTRUCTIONS: Analyze the ENTIRE conversation above and provide comprehensive medical advice. ")
	sb.WriteString("Consider ALL symptoms, concerns, and previous advice when formulating your response. ")
	sb.WriteString("If new symptoms are mentioned, combine them with previous symptoms for a complete assessment. ")
	sb.WriteString("Provide detailed, specific, and actionable medical advice based on the complete conversation context.")
	return sb.String()
}

// extractJSON 容忍模型输出前后混入的多余文本，截取首个 { 到最后一个 } 的片段。
func extractJSON(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		return text[start : end+1]
	}
	return text
}

// rawTriage 是模型 JSON 输出的宽松视图：
// 形态易漂移的字段保持 RawMessage，统一走容错解码。
type rawTriage struct {
	PatientAdvice      string          `json:"patientAdvice"`
	DoctorSummary      json.RawMessage `json:"doctorSummary"`
	PrescribedMedicine json.RawMessage `json:"prescribedMedicines"`
	RiskLevel          string          `json:"riskLevel"`
	RedFlags           json.RawMessage `json:"redFlags"`
	HomeRemedies       json.RawMessage `json:"homeRemedies"`
	SpecializationHint string          `json:"specializationHint"`
}

// parseTriageResult 解析模型的 JSON 输出为分诊结果。
// 输出完全不可解析时返回错误，由调用方决定重试或回退。
func parseTriageResult(text, question string) (*model.TriageResult, error) {
	var raw rawTriage
	if err := json.Unmarshal([]byte(extractJSON(text)), &raw); err != nil {
		return nil, fmt.Errorf("无法解析模型输出: %w", err)
	}

	result := &model.TriageResult{
		PatientAdvice:      raw.PatientAdvice,
		DoctorSummary:      aichat.DecodeDoctorSummary(raw.DoctorSummary),
		PrescribedMedicine: aichat.DecodeMedicines(raw.PrescribedMedicine),
		RiskLevel:          raw.RiskLevel,
		RedFlags:           aichat.DecodeStringList(raw.RedFlags),
		HomeRemedies:       aichat.DecodeStringList(raw.HomeRemedies),
		SpecializationHint: raw.SpecializationHint,
		AiUsed:             true,
	}
	if result.PatientAdvice == "" {
		result.PatientAdvice = heuristicAdvice(question)
	}
	result.Answer = result.PatientAdvice
	if result.RiskLevel == "" {
		result.RiskLevel = defaultRiskLevel
	}
	if result.SpecializationHint == "" {
		result.SpecializationHint = extractSpecialization(question)
	}
	// 结构化 homeRemedies 缺失时从建议文本里尽力提取
	if len(result.HomeRemedies) == 0 {
		result.HomeRemedies = aichat.ExtractRemedies(result.PatientAdvice)
	}
	return result, nil
}

func trimQuestion(q string) string {
	return strings.TrimSpace(q)
}

// joinList 与 splitList 约定列表字段的入库格式。
func joinList(items []string) string {
	return strings.Join(items, "; ")
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "; ")
}

// fallbackTriage 在模型不可用或输出不可解析时给出本地分诊结果。
func fallbackTriage(question string) *model.TriageResult {
	advice := heuristicAdvice(question)
	return &model.TriageResult{
		PatientAdvice:      advice,
		Answer:             advice,
		DoctorSummary:      model.DoctorSummary{Raw: "Fallback response due to AI service unavailability"},
		RiskLevel:          "LOW",
		HomeRemedies:       []string{"Rest", "Hydration"},
		SpecializationHint: extractSpecialization(question),
		AiUsed:             false,
	}
}
