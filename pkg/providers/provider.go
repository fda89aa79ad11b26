package providers

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Settings 单个提供商的配置，对应配置文件中的 providers.<name>
type Settings struct {
	// API配置
	APIKey      string `mapstructure:"api_key" json:"api_key,omitempty"`
	APIEndpoint string `mapstructure:"api_endpoint" json:"api_endpoint,omitempty"`

	// Google Cloud Translation v3
	ProjectID   string `mapstructure:"project_id" json:"project_id,omitempty"`
	Location    string `mapstructure:"location" json:"location,omitempty"`
	AccessToken string `mapstructure:"access_token" json:"access_token,omitempty"`

	// LLM 提供商
	Model       string  `mapstructure:"model" json:"model,omitempty"`
	Temperature float64 `mapstructure:"temperature" json:"temperature,omitempty"`

	// DeepL
	Formality string `mapstructure:"formality" json:"formality,omitempty"`

	// 超时和重试
	Timeout    time.Duration `mapstructure:"timeout" json:"timeout"`
	MaxRetries int           `mapstructure:"max_retries" json:"max_retries"`

	// 自定义头部
	Headers map[string]string `mapstructure:"headers" json:"headers,omitempty"`
}

// DefaultSettings 返回默认配置
func DefaultSettings() Settings {
	return Settings{
		Timeout:    2 * time.Minute,
		MaxRetries: 3,
		Headers:    make(map[string]string),
	}
}

// WithDefaults 用默认值补全未设置的字段
func (s Settings) WithDefaults() Settings {
	d := DefaultSettings()
	if s.Timeout <= 0 {
		s.Timeout = d.Timeout
	}
	if s.MaxRetries < 0 {
		s.MaxRetries = 0
	}
	if s.Headers == nil {
		s.Headers = d.Headers
	}
	return s
}

// TranslationProvider 提供商基础接口
type TranslationProvider interface {
	// Translate 执行翻译
	Translate(ctx context.Context, req *ProviderRequest) (*ProviderResponse, error)

	// GetName 获取提供商名称
	GetName() string
}

// Provider 提供商接口（扩展 TranslationProvider）
type Provider interface {
	TranslationProvider

	// GetCapabilities 获取提供商能力
	GetCapabilities() Capabilities

	// HealthCheck 健康检查
	HealthCheck(ctx context.Context) error
}

// Capabilities 提供商能力
type Capabilities struct {
	// 最大文本长度（码点），0 表示不限制
	MaxTextLength int `json:"max_text_length"`

	// 是否需要API密钥
	RequiresAPIKey bool `json:"requires_api_key"`

	// 是否基于大语言模型（输出可能不逐字保留占位符）
	IsLLM bool `json:"is_llm"`

	// 速率限制
	RateLimit *RateLimit `json:"rate_limit,omitempty"`
}

// RateLimit 速率限制
type RateLimit struct {
	RequestsPerMinute int `json:"requests_per_minute"`
	CharactersPerDay  int `json:"characters_per_day"`
}

// 错误代码
const (
	CodeRateLimit   = "rate_limit"
	CodeTimeout     = "timeout"
	CodeServerError = "server_error"
	CodeAuth        = "auth_error"
	CodeClientError = "client_error"
	CodeBadResponse = "bad_response"
	CodeConfig      = "config_error"
)

// Error 提供商错误
type Error struct {
	Provider string                 `json:"provider,omitempty"`
	Code     string                 `json:"code"`
	Message  string                 `json:"message"`
	Status   int                    `json:"status,omitempty"`
	Details  map[string]interface{} `json:"details,omitempty"`
}

func (e *Error) Error() string {
	if e.Provider == "" {
		return e.Message
	}
	if e.Status > 0 {
		return fmt.Sprintf("%s: %s (HTTP %d)", e.Provider, e.Message, e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// IsRetryable 判断错误是否可重试
func (e *Error) IsRetryable() bool {
	switch e.Code {
	case CodeRateLimit, CodeTimeout, CodeServerError:
		return true
	default:
		return false
	}
}

// NewError 创建提供商错误
func NewError(code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// NewErrorWithDetails 创建带详情的错误
func NewErrorWithDetails(code, message string, details map[string]interface{}) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// ErrorFromStatus 根据 HTTP 状态码构造提供商错误
func ErrorFromStatus(provider string, status int, message string) *Error {
	code := CodeClientError
	switch {
	case status == http.StatusTooManyRequests:
		code = CodeRateLimit
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		code = CodeTimeout
	case status >= 500:
		code = CodeServerError
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		code = CodeAuth
	}
	if message == "" {
		message = http.StatusText(status)
	}
	return &Error{
		Provider: provider,
		Code:     code,
		Message:  message,
		Status:   status,
	}
}

// ProviderRequest 提供商请求
type ProviderRequest struct {
	Text           string                 `json:"text"`
	SourceLanguage string                 `json:"source_language,omitempty"`
	TargetLanguage string                 `json:"target_language,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// ProviderResponse 提供商响应
type ProviderResponse struct {
	Text       string                 `json:"text"`
	Model      string                 `json:"model,omitempty"`
	SourceLang string                 `json:"source_lang,omitempty"`
	TokensIn   int                    `json:"tokens_in,omitempty"`
	TokensOut  int                    `json:"tokens_out,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}
