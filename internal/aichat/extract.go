package aichat

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"mediconnect/internal/model"
)

// maxRemedies 是从自由文本中提取居家护理建议的条数上限。
const maxRemedies = 6

// NewMessageID 生成客户端消息标识，形如 msg_{毫秒时间戳}_{随机后缀}。
// 唯一性是概率意义上的，不做全局保证；冲突按后写覆盖处理。
func NewMessageID() string {
	return fmt.Sprintf("msg_%d_%s", time.Now().UnixMilli(), randSuffix(9))
}

// NewConversationID 生成服务端会话标识。
func NewConversationID() string {
	return fmt.Sprintf("conv_%d_%d", time.Now().UnixMilli(), rand.Intn(1000))
}

// NewSessionID 生成服务端 session 标识。
func NewSessionID() string {
	return fmt.Sprintf("session_%d_%d", time.Now().UnixMilli(), rand.Intn(1000))
}

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

func randSuffix(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = base36[rand.Intn(len(base36))]
	}
	return string(b)
}

// ExtractRemedies 在结构化 homeRemedies 缺失时，从自由文本中尽力提取护理建议：
// 按句号/换行/回车切分、去空白、丢弃空段、截断到 6 条。
// 这是启发式而非解析器，对任意非结构化文本都不应失败。
func ExtractRemedies(answer string) []string {
	if answer == "" {
		return nil
	}
	parts := strings.FieldsFunc(answer, func(r rune) bool {
		return r == '.' || r == '\n' || r == '\r'
	})
	var remedies []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		remedies = append(remedies, p)
		if len(remedies) == maxRemedies {
			break
		}
	}
	return remedies
}

// DecodeStringList 对模型返回的松散 JSON 字段做统一的容错解码：
// JSON 数组按元素取字符串；裸字符串包装为单元素列表；其余情况返回空。
// 该回退策略集中在这里，各读取点不再各自解析。
func DecodeStringList(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil && single != "" {
		return []string{single}
	}
	return nil
}

// DecodeMedicines 容错解码建议用药列表，失败时返回空列表。
func DecodeMedicines(raw json.RawMessage) []model.PrescribedMedicine {
	if len(raw) == 0 {
		return nil
	}
	var meds []model.PrescribedMedicine
	if err := json.Unmarshal(raw, &meds); err == nil {
		return meds
	}
	return nil
}

// DecodeDoctorSummary 在摄取边界一次性判定医生摘要的形态：
// JSON 对象解析为 Structured，裸字符串降级为 Raw，其余为空摘要。
func DecodeDoctorSummary(raw json.RawMessage) model.DoctorSummary {
	if len(raw) == 0 {
		return model.DoctorSummary{}
	}
	var structured map[string]interface{}
	if err := json.Unmarshal(raw, &structured); err == nil && structured != nil {
		return model.DoctorSummary{Structured: structured}
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return model.DoctorSummary{Raw: text}
	}
	return model.DoctorSummary{}
}
