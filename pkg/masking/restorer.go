package masking

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/dlclark/regexp2"
)

// Restorer 把翻译后文本中的占位符替换回原文
type Restorer struct {
	scheme TokenScheme
	trim   bool

	token *regexp2.Regexp
	loose *regexp2.Regexp
}

// NewRestorer 创建 Restorer
//
// trim 为 true 时容忍占位符内外各一个空格（翻译服务常见的副作用），
// 紧跟 " {" 的占位符会吞掉中间的空格。直通测试模式下应关闭，否则会改变原文。
func NewRestorer(scheme TokenScheme, trim bool) *Restorer {
	pattern := scheme.exactPattern()
	if trim {
		pattern = scheme.trimPattern()
	}
	return &Restorer{
		scheme: scheme,
		trim:   trim,
		token:  regexp2.MustCompile(pattern, regexp2.None),
		loose:  regexp2.MustCompile(scheme.loosePattern(), regexp2.None),
	}
}

// Report 还原诊断信息
type Report struct {
	// Iterations 实际执行的替换轮数
	Iterations int
	// Converged 是否在上限内到达不动点
	Converged bool
	// Unresolved 还原后残留的类占位符文本
	Unresolved []string
	// Missing 从未出现过的 ID（被翻译服务破坏或删除）
	Missing []int
	// Duplicated 出现不止一次的 ID
	Duplicated []int
}

// Clean 还原是否完全一致
func (r Report) Clean() bool {
	return r.Converged && len(r.Unresolved) == 0 && len(r.Missing) == 0 && len(r.Duplicated) == 0
}

// Err 不干净时返回 *MismatchError
func (r Report) Err() error {
	if r.Clean() {
		return nil
	}
	return &MismatchError{Report: r}
}

// Restore 反复替换直到文本不再变化
//
// 嵌套占位符（还原出的原文里又含有更早分配的占位符）在后续轮次中解析。
// 轮数上限为 reg.Len()+1，病态输入不会导致死循环。
func (r *Restorer) Restore(text string, reg *Registry) (string, Report, error) {
	seen := make([]int, reg.Len())
	report := Report{}

	current := text
	limit := reg.Len() + 1
	for report.Iterations < limit {
		next, err := r.pass(current, reg, seen)
		if err != nil {
			return "", report, err
		}
		report.Iterations++
		if next == current {
			report.Converged = true
			break
		}
		current = next
	}

	residual, err := r.residual(current)
	if err != nil {
		return "", report, err
	}
	report.Unresolved = residual

	for id, n := range seen {
		switch {
		case n == 0:
			report.Missing = append(report.Missing, id)
		case n > 1:
			report.Duplicated = append(report.Duplicated, id)
		}
	}
	sort.Ints(report.Missing)
	sort.Ints(report.Duplicated)

	return current, report, nil
}

// pass 执行一轮替换；只替换文本中实际存在且 ID 已登记的占位符
func (r *Restorer) pass(text string, reg *Registry, seen []int) (string, error) {
	out, err := r.token.ReplaceFunc(text, func(m regexp2.Match) string {
		id, err := strconv.Atoi(m.GroupByNumber(1).String())
		if err != nil {
			return m.String()
		}
		original, ok := reg.Get(id)
		if !ok {
			return m.String()
		}
		seen[id]++
		// 原文按字面量返回，不经过替换模板解析
		if r.trim && len(m.GroupByNumber(2).Captures) > 0 {
			return original + "{"
		}
		return original
	}, -1, -1)
	if err != nil {
		return "", fmt.Errorf("restore placeholders: %w", err)
	}
	return out, nil
}

func (r *Restorer) residual(text string) ([]string, error) {
	var found []string
	m, err := r.loose.FindStringMatch(text)
	for m != nil && err == nil {
		found = append(found, m.String())
		m, err = r.loose.FindNextMatch(m)
	}
	if err != nil {
		return nil, fmt.Errorf("scan residual placeholders: %w", err)
	}
	return found, nil
}

// Restore 使用默认编码方案还原，便于一次性调用
func Restore(text string, reg *Registry, trim bool) (string, error) {
	restored, report, err := NewRestorer(DefaultTokenScheme(), trim).Restore(text, reg)
	if err != nil {
		return "", err
	}
	return restored, report.Err()
}
