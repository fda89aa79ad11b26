package masking

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/dlclark/regexp2"
)

// Masker 按固定规则顺序把非正文片段替换为占位符
type Masker struct {
	rules   []Rule
	scheme  TokenScheme
	timeout time.Duration
}

// Option Masker 选项
type Option func(*Masker)

// WithTokenScheme 指定占位符编码方案
func WithTokenScheme(scheme TokenScheme) Option {
	return func(m *Masker) {
		m.scheme = scheme
	}
}

// WithMatchTimeout 为每条规则设置匹配超时，防止病态输入导致回溯失控
func WithMatchTimeout(d time.Duration) Option {
	return func(m *Masker) {
		m.timeout = d
	}
}

// NewMasker 根据规则数据创建 Masker
func NewMasker(set RuleSet, opts ...Option) (*Masker, error) {
	m := &Masker{scheme: DefaultTokenScheme()}
	for _, opt := range opts {
		opt(m)
	}

	rules, err := BuildRules(set, m.timeout)
	if err != nil {
		return nil, err
	}
	m.rules = rules
	return m, nil
}

// Rules 返回有序规则列表
func (m *Masker) Rules() []Rule {
	out := make([]Rule, len(m.rules))
	copy(out, m.rules)
	return out
}

// Scheme 返回占位符编码方案
func (m *Masker) Scheme() TokenScheme {
	return m.scheme
}

// RuleCount 单条规则的替换次数
type RuleCount struct {
	Rule  string
	Kind  Kind
	Count int
}

// Result 遮蔽结果
type Result struct {
	// Text 遮蔽后的文本
	Text string
	// Registry 本次遮蔽填充的注册表
	Registry *Registry
	// Counts 每条规则的替换次数，顺序与规则一致
	Counts []RuleCount
	// Collisions 原文中已出现的定界符个数
	Collisions int
}

// Replacements 替换总数
func (r *Result) Replacements() int {
	return r.Registry.Len()
}

// Mask 遮蔽文档，使用新的注册表
func (m *Masker) Mask(document string) (*Result, error) {
	reg := NewRegistry()
	text, counts, err := m.MaskInto(document, reg)
	if err != nil {
		return nil, err
	}
	return &Result{
		Text:       text,
		Registry:   reg,
		Counts:     counts,
		Collisions: m.scheme.Collisions(document),
	}, nil
}

// MaskInto 遮蔽文档并把原文追加到给定注册表
//
// 每条规则都作用于上一条规则的输出。document 必须是合法的 UTF-8，
// 否则返回 ErrInvalidUTF8：非法字节经正则引擎后会变成 U+FFFD，无法原样还原。
func (m *Masker) MaskInto(document string, reg *Registry) (string, []RuleCount, error) {
	if !utf8.ValidString(document) {
		return "", nil, ErrInvalidUTF8
	}
	text := document
	counts := make([]RuleCount, 0, len(m.rules))

	for _, rule := range m.rules {
		n := 0
		replaced, err := rule.re.ReplaceFunc(text, func(match regexp2.Match) string {
			n++
			return m.scheme.Token(reg.Add(match.String()))
		}, -1, -1)
		if err != nil {
			return "", nil, fmt.Errorf("rule %s: %w", rule.Name, err)
		}
		text = replaced
		counts = append(counts, RuleCount{Rule: rule.Name, Kind: rule.Kind, Count: n})
	}

	return text, counts, nil
}
