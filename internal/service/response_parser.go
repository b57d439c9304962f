package service

import (
	"encoding/json"
	"regexp"
	"strings"
)

// QuestionContent 是一次修复产出的三个目标字段，只在内存中流转，不落库
type QuestionContent struct {
	QuestionText string
	Answer       string
	Options      []string
}

type ParseOutcome string

const (
	// ParseOutcomeParsed 严格 JSON 解析成功
	ParseOutcomeParsed ParseOutcome = "parsed"
	// ParseOutcomeRecovered 走了正则兜底，字段尽力恢复
	ParseOutcomeRecovered ParseOutcome = "recovered"
	// ParseOutcomeFailed 响应为空，彻底失败，调用方应跳过该记录
	ParseOutcomeFailed ParseOutcome = "failed"
)

type ParseResult struct {
	Outcome ParseOutcome
	Content QuestionContent
	// Cleaned 是去围栏、补转义后实际参与解析的文本，供诊断日志输出
	Cleaned string
}

var (
	questionTextPattern = regexp.MustCompile(`(?s)"question_text"\s*:\s*"(.*)"\s*,\s*"answer"`)
	answerPattern       = regexp.MustCompile(`(?s)"answer"\s*:\s*"(.*)"\s*,\s*"options"`)
	optionsPattern      = regexp.MustCompile(`(?s)"options"\s*:\s*(\[.*\])`)
)

// ParseModelResponse 把模型返回的原始文本逐层降级解析成结构化字段：
// 去围栏 -> 补反斜杠转义 -> 严格 JSON 解析 -> 正则逐字段恢复。
// fallback 是该题修复前的原始内容，恢复不到的字段原样保留，保证不丢数据。
func ParseModelResponse(raw string, fallback QuestionContent) ParseResult {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ParseResult{Outcome: ParseOutcomeFailed, Content: fallback}
	}

	cleaned := repairBackslashes(stripCodeFence(trimmed))

	if content, ok := parseStrict(cleaned); ok {
		return ParseResult{Outcome: ParseOutcomeParsed, Content: content, Cleaned: cleaned}
	}

	return ParseResult{Outcome: ParseOutcomeRecovered, Content: recoverFields(cleaned, fallback), Cleaned: cleaned}
}

// stripCodeFence 去掉包住整个响应的一层 markdown 代码围栏（```json ... ```）。
// 只认首尾各一行围栏，响应中间出现的围栏不动。
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	lines := strings.Split(s, "\n")
	if len(lines) < 2 {
		return s
	}
	if strings.TrimSpace(lines[len(lines)-1]) != "```" {
		return s
	}
	return strings.TrimSpace(strings.Join(lines[1:len(lines)-1], "\n"))
}

// repairBackslashes 把孤立的反斜杠补成双反斜杠。
// 模型输出 LaTeX 时习惯写单反斜杠（\frac），这在 JSON 字符串里是非法转义；
// 已成对的 \\ 整体跳过，所以对已修复过的文本再跑一遍结果不变。
func repairBackslashes(s string) string {
	var b strings.Builder
	b.Grow(len(s) + len(s)/8)
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' {
			b.WriteByte(s[i])
			continue
		}
		if i+1 < len(s) && s[i+1] == '\\' {
			b.WriteString(`\\`)
			i++
			continue
		}
		b.WriteString(`\\`)
	}
	return b.String()
}

// parseStrict 要求响应是恰好含三个键的 JSON 对象，缺任何一个键都算失败
func parseStrict(s string) (QuestionContent, bool) {
	var payload struct {
		QuestionText *string   `json:"question_text"`
		Answer       *string   `json:"answer"`
		Options      *[]string `json:"options"`
	}
	if err := json.Unmarshal([]byte(s), &payload); err != nil {
		return QuestionContent{}, false
	}
	if payload.QuestionText == nil || payload.Answer == nil || payload.Options == nil {
		return QuestionContent{}, false
	}
	return QuestionContent{
		QuestionText: *payload.QuestionText,
		Answer:       *payload.Answer,
		Options:      *payload.Options,
	}, true
}

// recoverFields 在 JSON 解析失败的残缺文本里按 key 顺序逐字段捞取，
// 捞不到的字段回落到修复前的原始值
func recoverFields(s string, fallback QuestionContent) QuestionContent {
	content := fallback

	if m := questionTextPattern.FindStringSubmatch(s); m != nil {
		content.QuestionText = decodeJSONString(m[1])
	}
	if m := answerPattern.FindStringSubmatch(s); m != nil {
		content.Answer = decodeJSONString(m[1])
	}
	if m := optionsPattern.FindStringSubmatch(s); m != nil {
		content.Options = parseOptionsLiteral(m[1])
	}

	return content
}

// parseOptionsLiteral 解析 options 的数组字面量，JSON 解析失败就手工切分
func parseOptionsLiteral(literal string) []string {
	var opts []string
	if err := json.Unmarshal([]byte(literal), &opts); err == nil {
		return opts
	}

	inner := strings.TrimSpace(literal)
	inner = strings.TrimPrefix(inner, "[")
	inner = strings.TrimSuffix(inner, "]")
	inner = strings.TrimSpace(inner)
	if inner == "" {
		return []string{}
	}

	parts := strings.Split(inner, ",")
	opts = make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		p = trimOneQuote(p)
		opts = append(opts, decodeJSONString(p))
	}
	return opts
}

// trimOneQuote 去掉首尾各一个引号，单双引号都认
func trimOneQuote(s string) string {
	if len(s) > 0 && (s[0] == '"' || s[0] == '\'') {
		s = s[1:]
	}
	if len(s) > 0 && (s[len(s)-1] == '"' || s[len(s)-1] == '\'') {
		s = s[:len(s)-1]
	}
	return s
}

// decodeJSONString 尝试按 JSON 字符串规则解码恢复出来的片段，
// 让正则路径和严格解析路径对同一份响应产出相同的字符串；解不开就原样返回
func decodeJSONString(s string) string {
	var out string
	if err := json.Unmarshal([]byte(`"`+s+`"`), &out); err == nil {
		return out
	}
	return s
}
