package service

import (
	"encoding/json"
	"fmt"
)

const fixSystemPrompt = "你是一个数学公式排版专家，精通 LaTeX 行内公式规范。" +
	"你的任务是把试题文本中书写混乱的数学表达式统一为 \\( \\) 行内定界符，除此之外不做任何改动。"

// BuildFixMessages 组装修复一道题目所用的对话消息。
// 纯函数，相同输入必定产出相同消息，便于缓存和测试。
func BuildFixMessages(questionText, answer string, options []string) []AIChatMessage {
	if options == nil {
		options = []string{}
	}
	optionsJSON, _ := json.Marshal(options)

	userContent := fmt.Sprintf(
		"请修复以下题目中数学表达式的定界符，要求：\n"+
			"1. 识别文本中所有数学表达式（分数、根号、希腊字母、上下标、方程、带指数的单位等）。\n"+
			"2. 每个数学表达式用且仅用一对 \\( \\) 包裹，严禁包裹整句或纯文字内容。\n"+
			"3. 把已有的 $...$、$$...$$、\\[...\\] 等定界符全部改写为 \\( \\)。\n"+
			"4. 数学表达式之外的文字、空格、标点必须原样保留，严禁增删内容。\n"+
			"5. 严格按 JSON 对象返回，键为 question_text、answer、options（options 为字符串数组），不要输出任何解释。\n\n"+
			"question_text: %s\n"+
			"answer: %s\n"+
			"options: %s",
		questionText, answer, string(optionsJSON),
	)

	return []AIChatMessage{
		{Role: "system", Content: fixSystemPrompt},
		{Role: "user", Content: userContent},
	}
}
