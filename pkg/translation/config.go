package translation

import (
	"fmt"
	"strings"
	"time"

	"github.com/nerdneilsfield/latex-translator/pkg/masking"
)

// Config 翻译流水线配置，不依赖外部配置框架
type Config struct {
	// 语言配置，使用标准语言标签，如 en、zh-CN
	SourceLanguage string `json:"source_language"`
	TargetLanguage string `json:"target_language"`

	// ChunkSize 单次提交给翻译服务的最大码点数
	ChunkSize int `json:"chunk_size"`

	// MaskingEnabled 输入是否为 LaTeX；关闭时不遮蔽也不还原
	MaskingEnabled bool `json:"masking_enabled"`

	// TrimWhitespace 还原时容忍占位符周围的单个空格；直通模式下必须关闭
	TrimWhitespace bool `json:"trim_whitespace"`

	// StrictRestore 还原不一致时返回错误而不是只记录警告
	StrictRestore bool `json:"strict_restore"`

	// Sentinel 占位符定界符，"auto" 表示按文档内容选择
	Sentinel string `json:"sentinel"`

	// Rules 遮蔽规则数据
	Rules masking.RuleSet `json:"rules"`

	// MatchTimeout 单条规则的匹配超时，0 表示不限制
	MatchTimeout time.Duration `json:"match_timeout"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		SourceLanguage: "en",
		TargetLanguage: "zh-CN",
		ChunkSize:      DefaultChunkSize,
		MaskingEnabled: true,
		TrimWhitespace: true,
		Sentinel:       masking.DefaultSentinel,
		Rules:          masking.DefaultRuleSet(),
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidChunkSize, c.ChunkSize)
	}
	if strings.TrimSpace(c.SourceLanguage) == "" {
		return fmt.Errorf("%w: source language is required", ErrInvalidConfig)
	}
	if strings.TrimSpace(c.TargetLanguage) == "" {
		return fmt.Errorf("%w: target language is required", ErrInvalidConfig)
	}
	if c.MatchTimeout < 0 {
		return fmt.Errorf("%w: match timeout must not be negative", ErrInvalidConfig)
	}
	if c.Sentinel != "" && c.Sentinel != masking.AutoSentinel {
		if _, err := masking.NewTokenScheme(c.Sentinel); err != nil {
			return err
		}
	}
	return nil
}

// Clone 深拷贝配置
func (c *Config) Clone() *Config {
	clone := *c
	clone.Rules = masking.RuleSet{
		Environments: append([]string(nil), c.Rules.Environments...),
		Commands:     append([]string(nil), c.Rules.Commands...),
	}
	return &clone
}
