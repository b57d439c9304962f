package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepairBackslashes(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"单反斜杠补成双反斜杠", `\alpha`, `\\alpha`},
		{"已转义的反斜杠保持不变", `\\alpha`, `\\alpha`},
		{"行内公式定界符", `\(x\)`, `\\(x\\)`},
		{"末尾的单反斜杠", `x = 1\`, `x = 1\\`},
		{"双反斜杠后跟单反斜杠", `\\\`, `\\\\`},
		{"混合公式", `\(\frac{a}{b}\)`, `\\(\\frac{a}{b}\\)`},
		{"无反斜杠原样返回", "plain text", "plain text"},
		{"空字符串", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, repairBackslashes(tt.input))
		})
	}
}

func TestRepairBackslashesIdempotent(t *testing.T) {
	inputs := []string{
		`\alpha`,
		`\\alpha`,
		`a\`,
		`\\\`,
		`\(\frac{a}{b}\) 且 \\[x\\]`,
		`{"question_text": "求 \(x^2\) 的导数"}`,
	}
	for _, in := range inputs {
		once := repairBackslashes(in)
		assert.Equal(t, once, repairBackslashes(once), "repairBackslashes(%q) 应当幂等", in)
	}
}

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"json 标记围栏", "```json\n{\"a\": 1}\n```", "{\"a\": 1}"},
		{"无标记围栏", "```\n{}\n```", "{}"},
		{"多行内容", "```json\n{\n  \"a\": 1\n}\n```", "{\n  \"a\": 1\n}"},
		{"围栏前有文字不剥离", "说明 ```json\n{}\n```", "说明 ```json\n{}\n```"},
		{"围栏后有文字不剥离", "```json\n{}\n``` 以上", "```json\n{}\n``` 以上"},
		{"缺少收尾围栏不剥离", "```json\n{}", "```json\n{}"},
		{"围栏在行中间不剥离", "见 ``` 代码 ``` 处", "见 ``` 代码 ``` 处"},
		{"普通 JSON 原样返回", "{\"a\": 1}", "{\"a\": 1}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripCodeFence(tt.input))
		})
	}
}

func TestParseOptionsLiteral(t *testing.T) {
	tests := []struct {
		name    string
		literal string
		want    []string
	}{
		{"标准 JSON 数组", `["A", "B"]`, []string{"A", "B"}},
		{"空数组", `[]`, []string{}},
		{"仅空白的数组", `[ ]`, []string{}},
		{"中文选项", `["第一项", "第二项"]`, []string{"第一项", "第二项"}},
		{"裸词与单引号混排", `[foo, "bar baz", 'qux']`, []string{"foo", "bar baz", "qux"}},
		{"带转义公式的选项", `["\\(1\\)", "\\(2\\)"]`, []string{`\(1\)`, `\(2\)`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseOptionsLiteral(tt.literal))
		})
	}
}

func TestParseModelResponse(t *testing.T) {
	fallback := QuestionContent{
		QuestionText: "原题干 $x$",
		Answer:       "原答案",
		Options:      []string{"原选项A", "原选项B"},
	}

	t.Run("单反斜杠的响应经转义修复后严格解析", func(t *testing.T) {
		raw := `{"question_text": "化简 \(2x + 3\) 当 \(\alpha = 0\) 时。", "answer": "\alpha = 0", "options": ["\(1\)", "\(2\)"]}`
		got := ParseModelResponse(raw, fallback)
		require.Equal(t, ParseOutcomeParsed, got.Outcome)
		assert.Equal(t, `化简 \(2x + 3\) 当 \(\alpha = 0\) 时。`, got.Content.QuestionText)
		assert.Equal(t, `\alpha = 0`, got.Content.Answer)
		assert.Equal(t, []string{`\(1\)`, `\(2\)`}, got.Content.Options)
	})

	t.Run("双反斜杠的合法 JSON 直接解析", func(t *testing.T) {
		raw := `{"question_text": "面积是 \\(\\pi r^2\\)。", "answer": "\\(\\pi\\)", "options": []}`
		got := ParseModelResponse(raw, fallback)
		require.Equal(t, ParseOutcomeParsed, got.Outcome)
		assert.Equal(t, `面积是 \(\pi r^2\)。`, got.Content.QuestionText)
		assert.Equal(t, `\(\pi\)`, got.Content.Answer)
		assert.Equal(t, []string{}, got.Content.Options)
	})

	t.Run("剥离代码围栏后解析", func(t *testing.T) {
		raw := "```json\n{\"question_text\": \"题干\", \"answer\": \"答案\", \"options\": [\"A\"]}\n```"
		got := ParseModelResponse(raw, fallback)
		require.Equal(t, ParseOutcomeParsed, got.Outcome)
		assert.Equal(t, "题干", got.Content.QuestionText)
		assert.Equal(t, "答案", got.Content.Answer)
		assert.Equal(t, []string{"A"}, got.Content.Options)
	})

	t.Run("空响应判定失败并保留原内容", func(t *testing.T) {
		for _, raw := range []string{"", "   ", "\n\t "} {
			got := ParseModelResponse(raw, fallback)
			assert.Equal(t, ParseOutcomeFailed, got.Outcome)
			assert.Equal(t, fallback, got.Content)
		}
	})

	t.Run("缺少 options 键时逐字段回退", func(t *testing.T) {
		raw := `{"question_text": "新题干", "answer": "新答案"}`
		got := ParseModelResponse(raw, fallback)
		require.Equal(t, ParseOutcomeRecovered, got.Outcome)
		assert.Equal(t, "新题干", got.Content.QuestionText)
		// answer 的定位依赖后随的 "options" 键，缺失时回退原值
		assert.Equal(t, fallback.Answer, got.Content.Answer)
		assert.Equal(t, fallback.Options, got.Content.Options)
	})

	t.Run("缺少右花括号时正则恢复各字段", func(t *testing.T) {
		raw := `{"question_text": "求 \(x\) 的值？", "answer": "42", "options": ["A", "B"]`
		got := ParseModelResponse(raw, fallback)
		require.Equal(t, ParseOutcomeRecovered, got.Outcome)
		assert.Equal(t, `求 \(x\) 的值？`, got.Content.QuestionText)
		assert.Equal(t, "42", got.Content.Answer)
		assert.Equal(t, []string{"A", "B"}, got.Content.Options)
	})

	t.Run("选项数组不合法时手工切分", func(t *testing.T) {
		raw := `{"question_text": "q1", "answer": "a1", "options": [foo, "bar baz", 'qux']}`
		got := ParseModelResponse(raw, fallback)
		require.Equal(t, ParseOutcomeRecovered, got.Outcome)
		assert.Equal(t, "q1", got.Content.QuestionText)
		assert.Equal(t, "a1", got.Content.Answer)
		assert.Equal(t, []string{"foo", "bar baz", "qux"}, got.Content.Options)
	})

	t.Run("纯文本响应整体回退", func(t *testing.T) {
		raw := "无法处理该请求，请提供更多信息。"
		got := ParseModelResponse(raw, fallback)
		require.Equal(t, ParseOutcomeRecovered, got.Outcome)
		assert.Equal(t, fallback, got.Content)
	})

	t.Run("JSON 前有提示语时正则恢复", func(t *testing.T) {
		raw := `修复后的结果如下：{"question_text": "求 \(y\) 的值", "answer": "\(3\)", "options": ["\(1\)", "\(3\)"]}`
		got := ParseModelResponse(raw, fallback)
		require.Equal(t, ParseOutcomeRecovered, got.Outcome)
		assert.Equal(t, `求 \(y\) 的值`, got.Content.QuestionText)
		assert.Equal(t, `\(3\)`, got.Content.Answer)
		assert.Equal(t, []string{`\(1\)`, `\(3\)`}, got.Content.Options)
	})
}

func TestParseModelResponseReturnsCleanedText(t *testing.T) {
	fallback := QuestionContent{QuestionText: "原题干", Answer: "原答案"}

	t.Run("去围栏补转义后的文本随结果返回", func(t *testing.T) {
		raw := "```json\n{\"question_text\": \"求 \\(x\\) 的值\", \"answer\": \"\\(2\\)\", \"options\": []}\n```"
		got := ParseModelResponse(raw, fallback)
		require.Equal(t, ParseOutcomeParsed, got.Outcome)
		assert.Equal(t, `{"question_text": "求 \\(x\\) 的值", "answer": "\\(2\\)", "options": []}`, got.Cleaned)
	})

	t.Run("本就合法的响应清洗前后一致", func(t *testing.T) {
		raw := `{"question_text": "面积 \\(\\pi\\)", "answer": "\\(\\pi\\)", "options": []}`
		got := ParseModelResponse(raw, fallback)
		require.Equal(t, ParseOutcomeParsed, got.Outcome)
		assert.Equal(t, raw, got.Cleaned)
	})

	t.Run("正则恢复路径同样带出清洗文本", func(t *testing.T) {
		raw := `修复后的结果如下：{"question_text": "新题干"`
		got := ParseModelResponse(raw, fallback)
		require.Equal(t, ParseOutcomeRecovered, got.Outcome)
		assert.Equal(t, raw, got.Cleaned)
	})

	t.Run("空响应无清洗文本", func(t *testing.T) {
		got := ParseModelResponse("   ", fallback)
		require.Equal(t, ParseOutcomeFailed, got.Outcome)
		assert.Empty(t, got.Cleaned)
	})
}
