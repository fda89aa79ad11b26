package masking

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/dlclark/regexp2"
)

// DefaultSentinel 默认的占位符定界符
const DefaultSentinel = "@"

// AutoSentinel 配置值，表示根据文档内容自动选择定界符
const AutoSentinel = "auto"

// SentinelCandidates 自动选择定界符时依次尝试的候选项
var SentinelCandidates = []string{"@", "§", "¤", "\uE000"}

// 定界符中不允许出现的字符：会被遮蔽规则当作 LaTeX 语法，或与 ID 数字混淆
const forbiddenSentinelChars = `\{}[]()$%*`

// TokenScheme 占位符编码方案，形如 @42@
type TokenScheme struct {
	sentinel string
}

// NewTokenScheme 创建占位符编码方案
func NewTokenScheme(sentinel string) (TokenScheme, error) {
	if sentinel == "" {
		return TokenScheme{}, fmt.Errorf("%w: empty sentinel", ErrInvalidSentinel)
	}
	for _, r := range sentinel {
		switch {
		case unicode.IsSpace(r):
			return TokenScheme{}, fmt.Errorf("%w: %q contains whitespace", ErrInvalidSentinel, sentinel)
		case unicode.IsDigit(r):
			return TokenScheme{}, fmt.Errorf("%w: %q contains a digit", ErrInvalidSentinel, sentinel)
		case unicode.IsLetter(r):
			return TokenScheme{}, fmt.Errorf("%w: %q contains a letter", ErrInvalidSentinel, sentinel)
		case strings.ContainsRune(forbiddenSentinelChars, r):
			return TokenScheme{}, fmt.Errorf("%w: %q contains LaTeX syntax character %q", ErrInvalidSentinel, sentinel, r)
		}
	}
	return TokenScheme{sentinel: sentinel}, nil
}

// DefaultTokenScheme 使用默认定界符的编码方案
func DefaultTokenScheme() TokenScheme {
	return TokenScheme{sentinel: DefaultSentinel}
}

// Sentinel 返回定界符
func (s TokenScheme) Sentinel() string {
	if s.sentinel == "" {
		return DefaultSentinel
	}
	return s.sentinel
}

// Token 生成 ID 对应的占位符
func (s TokenScheme) Token(id int) string {
	sentinel := s.Sentinel()
	return sentinel + strconv.Itoa(id) + sentinel
}

// Collisions 统计文本中已存在的定界符数量
//
// 非零意味着原文与占位符可能混淆，还原结果不再有保证。
func (s TokenScheme) Collisions(text string) int {
	return strings.Count(text, s.Sentinel())
}

// exactPattern 严格匹配占位符
func (s TokenScheme) exactPattern() string {
	q := regexp2.Escape(s.Sentinel())
	return q + `([0-9]+)` + q
}

// trimPattern 容忍翻译服务在 ID 两侧插入的单个空格，并吸收其后紧跟 "{" 之前的空格
func (s TokenScheme) trimPattern() string {
	q := regexp2.Escape(s.Sentinel())
	return q + ` ?([0-9]+) ?` + q + `( \{)?`
}

// loosePattern 用于还原后检测残留的占位符
func (s TokenScheme) loosePattern() string {
	q := regexp2.Escape(s.Sentinel())
	return q + `\s*[0-9]+\s*` + q
}

// ChooseSentinel 返回第一个不在文本中出现的候选定界符
func ChooseSentinel(text string) (string, bool) {
	for _, candidate := range SentinelCandidates {
		if !strings.Contains(text, candidate) {
			return candidate, true
		}
	}
	return DefaultSentinel, false
}

// ResolveTokenScheme 根据配置值解析编码方案，"auto" 时按文档内容选择
func ResolveTokenScheme(sentinel, document string) (TokenScheme, error) {
	switch sentinel {
	case "":
		return DefaultTokenScheme(), nil
	case AutoSentinel:
		chosen, _ := ChooseSentinel(document)
		return NewTokenScheme(chosen)
	default:
		return NewTokenScheme(sentinel)
	}
}

// TokenIDs 按出现顺序返回文本中占位符的 ID
//
// 与还原时一样容忍 ID 两侧的空白，用于统计翻译服务保留占位符的情况。
func (s TokenScheme) TokenIDs(text string) []int {
	re := regexp2.MustCompile(regexp2.Escape(s.Sentinel())+`\s*([0-9]+)\s*`+regexp2.Escape(s.Sentinel()), regexp2.None)
	var ids []int
	m, err := re.FindStringMatch(text)
	for m != nil && err == nil {
		if id, convErr := strconv.Atoi(m.GroupByNumber(1).String()); convErr == nil {
			ids = append(ids, id)
		}
		m, err = re.FindNextMatch(m)
	}
	return ids
}
