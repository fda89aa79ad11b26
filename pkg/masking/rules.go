package masking

import (
	"fmt"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
)

// Kind 规则类别，决定规则在遮蔽流程中的位置
type Kind int

const (
	// KindEnvironment 连同内容整体遮蔽的环境，如 equation
	KindEnvironment Kind = iota
	// KindLineBreak 换行命令 \\ 及其可选间距参数
	KindLineBreak
	// KindMath 行内/行间数学公式
	KindMath
	// KindEnvironmentBoundary 单独的 \begin{...} / \end{...}
	KindEnvironmentBoundary
	// KindCommandWithArgument 连同参数一起遮蔽的命令，如 \cite{...}
	KindCommandWithArgument
	// KindCommand 其余的裸命令，参数保留为正文
	KindCommand
	// KindComment 非空的行尾注释
	KindComment
)

// String 返回类别名称
func (k Kind) String() string {
	switch k {
	case KindEnvironment:
		return "environment"
	case KindLineBreak:
		return "line-break"
	case KindMath:
		return "math"
	case KindEnvironmentBoundary:
		return "environment-boundary"
	case KindCommandWithArgument:
		return "command-with-argument"
	case KindCommand:
		return "command"
	case KindComment:
		return "comment"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Discard 返回该类别的丢弃方式
func (k Kind) Discard() string {
	switch k {
	case KindCommandWithArgument:
		return "command+argument"
	case KindCommand:
		return "command only"
	default:
		return "whole match"
	}
}

// DefaultEnvironments 默认整体遮蔽的环境
var DefaultEnvironments = []string{
	"equation", "equation*", "align", "align*", "alignat", "alignat*",
	"lstlisting", "eqnarray", "comment",
}

// DefaultCommands 默认连同参数遮蔽的命令
var DefaultCommands = []string{
	"usepackage", "documentclass", "begin", "end", "includegraphics",
	"label", "ref", "cite", "citep", "citet", "vspace", "hspace",
	"vspace*", "hspace*", "bibliography", "url", "href",
}

// RuleSet 可配置的规则数据
type RuleSet struct {
	// Environments 连同内容遮蔽的环境名
	Environments []string `mapstructure:"discard_environments" toml:"environments" json:"environments"`
	// Commands 连同参数遮蔽的命令名（不含反斜杠）
	Commands []string `mapstructure:"discard_commands" toml:"commands" json:"commands"`
}

// DefaultRuleSet 返回默认规则数据的副本
func DefaultRuleSet() RuleSet {
	return RuleSet{
		Environments: append([]string(nil), DefaultEnvironments...),
		Commands:     append([]string(nil), DefaultCommands...),
	}
}

// Rule 一条已编译的遮蔽规则
type Rule struct {
	Name    string
	Kind    Kind
	Pattern string

	re *regexp2.Regexp
}

const (
	spanOptions = regexp2.Multiline | regexp2.Singleline
	lineOptions = regexp2.Multiline
)

type ruleSpec struct {
	name    string
	kind    Kind
	pattern string
	options regexp2.RegexOptions
}

// BuildRules 按固定顺序生成全部规则
//
// 顺序不可调整：靠前的规则先把片段替换为占位符，靠后的较窄模式才不会再次匹配其中内容。
func BuildRules(set RuleSet, timeout time.Duration) ([]Rule, error) {
	specs := make([]ruleSpec, 0, len(set.Environments)+2*len(set.Commands)+10)

	for _, env := range set.Environments {
		env = strings.TrimSpace(env)
		if env == "" {
			continue
		}
		q := regexp2.Escape(env)
		specs = append(specs, ruleSpec{
			name:    "env:" + env,
			kind:    KindEnvironment,
			pattern: `\\begin\{` + q + `\}(.+?)\\end\{` + q + `\}`,
			options: spanOptions,
		})
	}

	specs = append(specs,
		ruleSpec{"linebreak", KindLineBreak, `\\\\(\[(.+?)\])?`, spanOptions},
		// 由宽到窄；\\ 已在上一步被遮蔽，单字符后顾即可排除转义的 \$
		ruleSpec{"math:$$", KindMath, `(?<!\\)\$\$(.+?)\$\$`, spanOptions},
		ruleSpec{`math:\[`, KindMath, `\\\[(.+?)\\\]`, spanOptions},
		ruleSpec{"math:$", KindMath, `(?<!\\)\$(.+?)(?<!\\)\$`, spanOptions},
		ruleSpec{`math:\(`, KindMath, `\\\((.+?)\\\)`, spanOptions},
		ruleSpec{`begin`, KindEnvironmentBoundary, `\\begin\{(.+?)\}`, spanOptions},
		ruleSpec{`end`, KindEnvironmentBoundary, `\\end\{(.+?)\}`, spanOptions},
	)

	for _, cmd := range set.Commands {
		cmd = strings.TrimPrefix(strings.TrimSpace(cmd), `\`)
		if cmd == "" {
			continue
		}
		q := regexp2.Escape(cmd)
		specs = append(specs,
			ruleSpec{`cmd:\` + cmd, KindCommandWithArgument, `\\` + q + `\{(.+?)\}`, spanOptions},
			ruleSpec{`cmd:\` + cmd + "[]", KindCommandWithArgument, `\\` + q + `\[(.*?)\]\{(.+?)\}`, spanOptions},
		)
	}

	specs = append(specs,
		ruleSpec{"command", KindCommand, `\\[a-zA-Z]+\*?`, spanOptions},
		ruleSpec{"comment", KindComment, `(?<!\\)%.+?$`, lineOptions},
	)

	rules := make([]Rule, 0, len(specs))
	for _, spec := range specs {
		re, err := regexp2.Compile(spec.pattern, spec.options)
		if err != nil {
			return nil, fmt.Errorf("%w %s: %v", ErrInvalidRule, spec.name, err)
		}
		if timeout > 0 {
			re.MatchTimeout = timeout
		}
		rules = append(rules, Rule{
			Name:    spec.name,
			Kind:    spec.kind,
			Pattern: spec.pattern,
			re:      re,
		})
	}
	return rules, nil
}
