package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/nerdneilsfield/latex-translator/pkg/masking"
	"github.com/nerdneilsfield/latex-translator/pkg/providers"
	"github.com/nerdneilsfield/latex-translator/pkg/translation"
)

// EnvPrefix 环境变量前缀，如 LATEX_TRANSLATOR_CHUNK_SIZE
const EnvPrefix = "LATEX_TRANSLATOR"

// Config 保存翻译器的所有配置
type Config struct {
	SourceLang string `mapstructure:"source_lang"`
	TargetLang string `mapstructure:"target_lang"`
	Provider   string `mapstructure:"provider"`
	ChunkSize  int    `mapstructure:"chunk_size"` // 分块大小（码点）

	LaTeX          bool          `mapstructure:"latex"`           // 输入为 LaTeX，启用遮蔽与还原
	TestMode       bool          `mapstructure:"test_mode"`       // 不调用翻译服务，原样返回
	TrimWhitespace bool          `mapstructure:"trim_whitespace"` // 还原时容忍占位符周围的空格
	StrictRestore  bool          `mapstructure:"strict_restore"`  // 还原不一致时失败
	Sentinel       string        `mapstructure:"sentinel"`        // 占位符定界符，或 auto
	MatchTimeout   time.Duration `mapstructure:"match_timeout"`   // 单条规则的匹配超时

	// 遮蔽规则，可被 rules_file 覆盖或扩展
	Rules     masking.RuleSet `mapstructure:",squash"`
	RulesFile string          `mapstructure:"rules_file"`

	SaveInputOutput bool   `mapstructure:"save_input_output"` // 保存翻译前后的中间文本
	UseCache        bool   `mapstructure:"use_cache"`
	CacheDir        string `mapstructure:"cache_dir"`
	Stats           bool   `mapstructure:"stats"`      // 记录提供商统计
	StatsFile       string `mapstructure:"stats_file"` // 统计文件，默认位于缓存目录

	Debug   bool `mapstructure:"debug"`
	Verbose bool `mapstructure:"verbose"`

	// 提供商配置，键为提供商名称
	Providers map[string]providers.Settings `mapstructure:"providers"`
}

// LoadConfig 从文件加载配置
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(home)
		v.AddConfigPath(".")
		v.SetConfigName(".latex-translator")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// 找不到配置文件时使用默认值
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// 提供商名称可能含有点号，逐个解析
	providersRaw := v.GetStringMap("providers")
	config.Providers = make(map[string]providers.Settings, len(providersRaw))
	for name := range providersRaw {
		var settings providers.Settings
		if err := v.UnmarshalKey("providers."+name, &settings); err != nil {
			return nil, fmt.Errorf("failed to parse settings of provider %s: %w", name, err)
		}
		config.Providers[strings.ToLower(name)] = settings
	}

	if config.CacheDir == "" {
		config.CacheDir = getDefaultCacheDir()
	}
	if config.StatsFile == "" {
		config.StatsFile = filepath.Join(config.CacheDir, "provider-stats.json")
	}

	if config.RulesFile != "" {
		if err := config.ApplyRulesFile(config.RulesFile); err != nil {
			return nil, err
		}
	}

	return &config, nil
}

// NewDefaultConfig 创建一个新的默认配置
func NewDefaultConfig() *Config {
	cacheDir := getDefaultCacheDir()
	return &Config{
		SourceLang:     "en",
		TargetLang:     "zh-CN",
		Provider:       "google",
		ChunkSize:      translation.DefaultChunkSize,
		TrimWhitespace: true,
		Sentinel:       masking.DefaultSentinel,
		MatchTimeout:   5 * time.Second,
		Rules:          masking.DefaultRuleSet(),
		CacheDir:       cacheDir,
		StatsFile:      filepath.Join(cacheDir, "provider-stats.json"),
		Providers:      make(map[string]providers.Settings),
	}
}

// SaveConfig 将配置保存到文件
func SaveConfig(config *Config, configPath string) error {
	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		configPath = filepath.Join(home, ".latex-translator.yaml")
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	if err := v.MergeConfigMap(structToMap(config)); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return err
	}
	return v.WriteConfig()
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive, got %d", c.ChunkSize)
	}
	if strings.TrimSpace(c.TargetLang) == "" {
		return fmt.Errorf("target_lang must be specified")
	}
	if !c.TestMode && strings.TrimSpace(c.Provider) == "" {
		return fmt.Errorf("provider must be specified")
	}
	return c.ToTranslationConfig().Validate()
}

// ProviderName 实际使用的提供商，测试模式下固定为 raw
func (c *Config) ProviderName() string {
	if c.TestMode {
		return "raw"
	}
	return strings.ToLower(strings.TrimSpace(c.Provider))
}

// ProviderSettings 返回指定提供商的配置，未配置的密钥从常见环境变量补全
func (c *Config) ProviderSettings(name string) providers.Settings {
	settings := c.Providers[strings.ToLower(name)]
	for _, fb := range envFallbacks[strings.ToLower(name)] {
		if *fb.field(&settings) == "" {
			*fb.field(&settings) = os.Getenv(fb.env)
		}
	}
	return settings.WithDefaults()
}

type envFallback struct {
	env   string
	field func(*providers.Settings) *string
}

func apiKey(s *providers.Settings) *string      { return &s.APIKey }
func projectID(s *providers.Settings) *string   { return &s.ProjectID }
func accessToken(s *providers.Settings) *string { return &s.AccessToken }

var envFallbacks = map[string][]envFallback{
	"google": {
		{"GOOGLE_CLOUD_PROJECT", projectID},
		{"GOOGLE_ACCESS_TOKEN", accessToken},
		{"GOOGLE_API_KEY", apiKey},
	},
	"deepl":  {{"DEEPL_API_KEY", apiKey}},
	"openai": {{"OPENAI_API_KEY", apiKey}},
}

// ToTranslationConfig 转换为翻译流水线配置
//
// 测试模式下关闭空白修剪，使输出与输入逐字节一致。
func (c *Config) ToTranslationConfig() *translation.Config {
	return &translation.Config{
		SourceLanguage: c.SourceLang,
		TargetLanguage: c.TargetLang,
		ChunkSize:      c.ChunkSize,
		MaskingEnabled: c.LaTeX,
		TrimWhitespace: c.TrimWhitespace && !c.TestMode,
		StrictRestore:  c.StrictRestore,
		Sentinel:       c.Sentinel,
		Rules: masking.RuleSet{
			Environments: append([]string(nil), c.Rules.Environments...),
			Commands:     append([]string(nil), c.Rules.Commands...),
		},
		MatchTimeout: c.MatchTimeout,
	}
}

// getDefaultCacheDir 获取默认缓存目录
func getDefaultCacheDir() string {
	if cacheDir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(cacheDir, "latex-translator")
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".latex-translator", "cache")
	}
	return "./latex-translator-cache"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("source_lang", "en")
	v.SetDefault("target_lang", "zh-CN")
	v.SetDefault("provider", "google")
	v.SetDefault("chunk_size", translation.DefaultChunkSize)
	v.SetDefault("latex", false)
	v.SetDefault("test_mode", false)
	v.SetDefault("trim_whitespace", true)
	v.SetDefault("strict_restore", false)
	v.SetDefault("sentinel", masking.DefaultSentinel)
	v.SetDefault("match_timeout", "5s")
	v.SetDefault("discard_environments", masking.DefaultEnvironments)
	v.SetDefault("discard_commands", masking.DefaultCommands)
	v.SetDefault("rules_file", "")
	v.SetDefault("save_input_output", false)
	v.SetDefault("use_cache", false)
	v.SetDefault("cache_dir", "")
	v.SetDefault("stats", false)
	v.SetDefault("stats_file", "")
	v.SetDefault("debug", false)
	v.SetDefault("verbose", false)
}

// structToMap 将结构体转换为map
func structToMap(config *Config) map[string]interface{} {
	providersMap := make(map[string]interface{}, len(config.Providers))
	for name, s := range config.Providers {
		providersMap[name] = map[string]interface{}{
			"api_key":      s.APIKey,
			"api_endpoint": s.APIEndpoint,
			"project_id":   s.ProjectID,
			"location":     s.Location,
			"model":        s.Model,
			"temperature":  s.Temperature,
			"formality":    s.Formality,
			"timeout":      s.Timeout.String(),
			"max_retries":  s.MaxRetries,
		}
	}

	return map[string]interface{}{
		"source_lang":          config.SourceLang,
		"target_lang":          config.TargetLang,
		"provider":             config.Provider,
		"chunk_size":           config.ChunkSize,
		"latex":                config.LaTeX,
		"test_mode":            config.TestMode,
		"trim_whitespace":      config.TrimWhitespace,
		"strict_restore":       config.StrictRestore,
		"sentinel":             config.Sentinel,
		"match_timeout":        config.MatchTimeout.String(),
		"discard_environments": config.Rules.Environments,
		"discard_commands":     config.Rules.Commands,
		"rules_file":           config.RulesFile,
		"save_input_output":    config.SaveInputOutput,
		"use_cache":            config.UseCache,
		"cache_dir":            config.CacheDir,
		"stats":                config.Stats,
		"stats_file":           config.StatsFile,
		"debug":                config.Debug,
		"verbose":              config.Verbose,
		"providers":            providersMap,
	}
}
