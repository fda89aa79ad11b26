package providers

import (
	"fmt"
	"strings"
)

// systemPrompt 大语言模型提供商使用的系统提示
const systemPrompt = `You are a professional translator working on LaTeX documents.
The text you receive has had all LaTeX markup replaced by placeholder tokens made of a
symbol, a number and the same symbol again (for example @12@). Rules:
- Copy every placeholder token exactly as it appears. Never translate, renumber, merge or drop one.
- Keep blank lines where they are. Do not add or remove paragraphs.
- Output only the translation, without explanations or code fences.`

// SystemPrompt 返回系统提示，instruction 非空时追加在末尾
func SystemPrompt(instruction string) string {
	if strings.TrimSpace(instruction) == "" {
		return systemPrompt
	}
	return systemPrompt + "\n\n" + instruction
}

// UserPrompt 构造用户消息
func UserPrompt(req *ProviderRequest) string {
	source := req.SourceLanguage
	if source == "" {
		source = "the detected language"
	}
	return fmt.Sprintf("Translate the following text from %s to %s:\n\n%s", source, req.TargetLanguage, req.Text)
}

// Instruction 从请求元数据中读取额外指令
func Instruction(req *ProviderRequest) string {
	if req.Metadata == nil {
		return ""
	}
	s, _ := req.Metadata["instruction"].(string)
	return s
}

// StripFences 去掉模型偶尔包裹在输出外层的代码块标记
func StripFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") || !strings.HasSuffix(trimmed, "```") || len(trimmed) < 6 {
		return text
	}
	inner := strings.TrimSuffix(strings.TrimPrefix(trimmed, "```"), "```")
	if i := strings.IndexByte(inner, '\n'); i >= 0 && !strings.ContainsAny(inner[:i], " \t") {
		inner = inner[i+1:]
	}
	return strings.Trim(inner, "\n")
}
