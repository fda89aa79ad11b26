package masking

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidSentinel 定界符不可用
	ErrInvalidSentinel = errors.New("invalid placeholder sentinel")

	// ErrInvalidRule 规则列表包含无法编译的条目
	ErrInvalidRule = errors.New("invalid masking rule")

	// ErrInvalidSnapshot 注册表快照损坏或版本不兼容
	ErrInvalidSnapshot = errors.New("invalid registry snapshot")

	// ErrInvalidUTF8 输入不是合法的 UTF-8
	ErrInvalidUTF8 = errors.New("document is not valid UTF-8")

	// ErrRestorationMismatch 还原后仍有占位符未解析，或占位符丢失/重复
	ErrRestorationMismatch = errors.New("restoration mismatch")
)

// MismatchError 描述一次不干净的还原
type MismatchError struct {
	Report Report
}

func (e *MismatchError) Error() string {
	var parts []string
	if n := len(e.Report.Unresolved); n > 0 {
		parts = append(parts, fmt.Sprintf("%d unresolved token(s) %v", n, truncateList(e.Report.Unresolved, 5)))
	}
	if n := len(e.Report.Missing); n > 0 {
		parts = append(parts, fmt.Sprintf("%d missing id(s) %v", n, truncateList(e.Report.Missing, 10)))
	}
	if n := len(e.Report.Duplicated); n > 0 {
		parts = append(parts, fmt.Sprintf("%d duplicated id(s) %v", n, truncateList(e.Report.Duplicated, 10)))
	}
	if !e.Report.Converged {
		parts = append(parts, fmt.Sprintf("no fixed point after %d iterations", e.Report.Iterations))
	}
	return fmt.Sprintf("%s: %s", ErrRestorationMismatch, strings.Join(parts, "; "))
}

// Unwrap 支持 errors.Is(err, ErrRestorationMismatch)
func (e *MismatchError) Unwrap() error {
	return ErrRestorationMismatch
}

func truncateList[T any](items []T, limit int) []T {
	if len(items) <= limit {
		return items
	}
	return items[:limit]
}
