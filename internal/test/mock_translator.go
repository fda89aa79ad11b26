package test

import (
	"context"
	"strings"
	"sync"

	"github.com/dlclark/regexp2"
	"github.com/stretchr/testify/mock"
)

// MockTranslator 是一个模拟的分块翻译适配器
type MockTranslator struct {
	mock.Mock
}

// Translate 实现 translation.Translator
func (m *MockTranslator) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	args := m.Called(ctx, text, sourceLang, targetLang)
	return args.String(0), args.Error(1)
}

// RecordingTranslator 记录每次调用并按规则改写文本，模拟翻译服务的常见副作用
type RecordingTranslator struct {
	mu    sync.Mutex
	calls []string

	// Transform 对分块的改写；为空时原样返回
	Transform func(string) string
}

// NewEchoTranslator 原样返回输入
func NewEchoTranslator() *RecordingTranslator {
	return &RecordingTranslator{}
}

// NewPaddingTranslator 在占位符 ID 两侧以及紧随其后的 "{" 之前插入空格，模拟机器翻译的空白扰动
func NewPaddingTranslator(sentinel string) *RecordingTranslator {
	q := regexp2.Escape(sentinel)
	token := regexp2.MustCompile(q+`([0-9]+)`+q+`(\{)?`, regexp2.None)
	return &RecordingTranslator{
		Transform: func(s string) string {
			out, err := token.ReplaceFunc(s, func(m regexp2.Match) string {
				padded := sentinel + " " + m.GroupByNumber(1).String() + " " + sentinel
				if len(m.GroupByNumber(2).Captures) > 0 {
					padded += " {"
				}
				return padded
			}, -1, -1)
			if err != nil {
				return s
			}
			return out
		},
	}
}

// NewUppercaseTranslator 把正文转成大写，占位符不受影响
func NewUppercaseTranslator() *RecordingTranslator {
	return &RecordingTranslator{Transform: strings.ToUpper}
}

// Translate 实现 translation.Translator
func (r *RecordingTranslator) Translate(_ context.Context, text, _, _ string) (string, error) {
	r.mu.Lock()
	r.calls = append(r.calls, text)
	r.mu.Unlock()

	if r.Transform == nil {
		return text, nil
	}
	return r.Transform(text), nil
}

// Calls 返回按顺序记录的输入
func (r *RecordingTranslator) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}
