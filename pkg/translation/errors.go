package translation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nerdneilsfield/latex-translator/pkg/masking"
)

// 预定义错误
var (
	// ErrNoTranslator 未设置翻译适配器
	ErrNoTranslator = errors.New("translator not configured")

	// ErrInvalidConfig 无效配置
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidChunkSize 分块大小必须为正数
	ErrInvalidChunkSize = errors.New("chunk size must be positive")

	// ErrChunkOverflow 单个段落超过分块大小
	ErrChunkOverflow = errors.New("paragraph exceeds chunk size")

	// ErrAdapterFailure 翻译适配器调用失败或返回了不合法的结果
	ErrAdapterFailure = errors.New("translation adapter failed")

	// ErrCacheFailed 缓存操作失败
	ErrCacheFailed = errors.New("cache operation failed")

	// ErrTimeout 超时错误
	ErrTimeout = errors.New("translation timeout")

	// ErrRateLimited 速率限制错误
	ErrRateLimited = errors.New("rate limited")

	// ErrRestorationMismatch 还原不一致，与 masking 包共用同一个哨兵
	ErrRestorationMismatch = masking.ErrRestorationMismatch
)

// ChunkOverflowError 描述超长段落
type ChunkOverflowError struct {
	Paragraph int // 从 1 开始的段落序号
	Size      int // 段落码点数（含分隔符）
	MaxSize   int
}

func (e *ChunkOverflowError) Error() string {
	return fmt.Sprintf("cannot chunk input because paragraph %d has %d codepoints, which is longer than chunk size of %d",
		e.Paragraph, e.Size, e.MaxSize)
}

// Unwrap 支持 errors.Is(err, ErrChunkOverflow)
func (e *ChunkOverflowError) Unwrap() error {
	return ErrChunkOverflow
}

// TranslationError 翻译错误
type TranslationError struct {
	Code    string // 错误代码
	Message string // 错误消息
	Cause   error  // 原因
	Chunk   int    // 发生错误的分块序号，从 1 开始；0 表示与分块无关
	Retry   bool   // 是否可重试
}

// Error 实现error接口
func (e *TranslationError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Chunk > 0 {
		msg = fmt.Sprintf("[%s] %s at chunk %d", e.Code, e.Message, e.Chunk)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap 返回原因错误
func (e *TranslationError) Unwrap() error {
	return e.Cause
}

// Is 适配器错误同时匹配 ErrAdapterFailure
func (e *TranslationError) Is(target error) bool {
	return target == ErrAdapterFailure && e.Code == ErrCodeAdapter
}

// IsRetryable 是否可重试
func (e *TranslationError) IsRetryable() bool {
	return e.Retry
}

// NewTranslationError 创建翻译错误
func NewTranslationError(code, message string, cause error) *TranslationError {
	return &TranslationError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewAdapterError 创建某个分块的适配器错误
func NewAdapterError(chunk int, cause error) *TranslationError {
	return &TranslationError{
		Code:    ErrCodeAdapter,
		Message: "translation adapter failed",
		Cause:   cause,
		Chunk:   chunk,
		Retry:   isRetryableError(cause),
	}
}

// 错误代码常量
const (
	ErrCodeConfig     = "CONFIG_ERROR"
	ErrCodeValidation = "VALIDATION_ERROR"
	ErrCodeChunk      = "CHUNK_ERROR"
	ErrCodeMask       = "MASK_ERROR"
	ErrCodeAdapter    = "ADAPTER_ERROR"
	ErrCodeRestore    = "RESTORE_ERROR"
	ErrCodeCache      = "CACHE_ERROR"
	ErrCodeUnknown    = "UNKNOWN_ERROR"
)

// WrapError 包装错误
func WrapError(err error, code, message string) *TranslationError {
	if err == nil {
		return nil
	}

	// 如果已经是TranslationError，保留原有信息
	var te *TranslationError
	if errors.As(err, &te) {
		return &TranslationError{
			Code:    te.Code,
			Message: message + ": " + te.Message,
			Cause:   te.Cause,
			Chunk:   te.Chunk,
			Retry:   te.Retry,
		}
	}

	return &TranslationError{
		Code:    code,
		Message: message,
		Cause:   err,
		Retry:   isRetryableError(err),
	}
}

// retryable 由提供商错误实现
type retryable interface {
	IsRetryable() bool
}

// isRetryableError 判断错误是否可重试
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var r retryable
	if errors.As(err, &r) {
		return r.IsRetryable()
	}

	switch {
	case errors.Is(err, ErrTimeout),
		errors.Is(err, ErrRateLimited),
		errors.Is(err, context.DeadlineExceeded):
		return true
	case errors.Is(err, context.Canceled):
		return false
	}

	errStr := strings.ToLower(err.Error())
	retryablePatterns := []string{
		"timeout",
		"deadline exceeded",
		"connection refused",
		"connection reset",
		"temporary failure",
		"rate limit",
		"429",
		"503",
		"504",
		"broken pipe",
		"no such host",
		"network is unreachable",
	}
	for _, pattern := range retryablePatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}
