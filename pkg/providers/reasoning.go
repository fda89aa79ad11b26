package providers

import (
	"strings"
)

// reasoningTags 推理模型输出思考过程时使用的标记对
var reasoningTags = [][2]string{
	{"<think>", "</think>"},
	{"<thinking>", "</thinking>"},
	{"<thought>", "</thought>"},
	{"<reasoning>", "</reasoning>"},
	{"[THINKING]", "[/THINKING]"},
	{"[REASONING]", "[/REASONING]"},
}

// StripReasoning 移除推理模型（deepseek-r1、qwen3 等）放在译文前面的思考过程
//
// 只处理出现在开头的标记块，正文中的同名文本保持不变。未闭合的标记不做处理。
func StripReasoning(text string) string {
	for {
		trimmed := strings.TrimLeft(text, " \t\r\n")
		stripped := false
		for _, tag := range reasoningTags {
			if !strings.HasPrefix(trimmed, tag[0]) {
				continue
			}
			end := strings.Index(trimmed, tag[1])
			if end < 0 {
				return text
			}
			text = strings.TrimLeft(trimmed[end+len(tag[1]):], " \t\r\n")
			stripped = true
			break
		}
		if !stripped {
			return text
		}
	}
}

// CleanModelOutput 依次去掉思考过程和外层代码块
func CleanModelOutput(text string) string {
	return StripFences(StripReasoning(text))
}
