package libretranslate

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/nerdneilsfield/latex-translator/pkg/providers"
)

// Name 提供商名称
const Name = "libretranslate"

// DefaultEndpoint 公共 LibreTranslate 实例
const DefaultEndpoint = "https://libretranslate.com"

// Provider LibreTranslate提供商
type Provider struct {
	settings providers.Settings
	client   providers.Doer
}

// New 创建新的LibreTranslate提供商
func New(settings providers.Settings) (*Provider, error) {
	settings = settings.WithDefaults()
	if settings.APIEndpoint == "" {
		settings.APIEndpoint = DefaultEndpoint
	}
	settings.APIEndpoint = strings.TrimRight(settings.APIEndpoint, "/")
	return &Provider{
		settings: settings,
		client:   providers.NewHTTPClient(settings),
	}, nil
}

// Factory 注册表使用的构造函数
func Factory(settings providers.Settings) (providers.Provider, error) {
	return New(settings)
}

// Translate 执行翻译
func (p *Provider) Translate(ctx context.Context, req *providers.ProviderRequest) (*providers.ProviderResponse, error) {
	body := translateRequest{
		Q:      req.Text,
		Source: normalizeLanguageCode(req.SourceLanguage),
		Target: normalizeLanguageCode(req.TargetLanguage),
		Format: "text",
		APIKey: p.settings.APIKey,
	}
	if body.Source == "" {
		body.Source = "auto"
	}

	var resp translateResponse
	err := providers.PostJSON(ctx, p.client, Name, p.settings.APIEndpoint+"/translate", p.settings.Headers, body, &resp, extractError)
	if err != nil {
		return nil, err
	}

	out := &providers.ProviderResponse{
		Text:  resp.TranslatedText,
		Model: "libretranslate",
	}
	if resp.DetectedLanguage != nil {
		out.SourceLang = resp.DetectedLanguage.Language
	}
	return out, nil
}

// GetName 获取提供商名称
func (p *Provider) GetName() string {
	return Name
}

// GetCapabilities 获取提供商能力
func (p *Provider) GetCapabilities() providers.Capabilities {
	return providers.Capabilities{
		RequiresAPIKey: p.settings.APIKey != "",
	}
}

// HealthCheck 健康检查
func (p *Provider) HealthCheck(ctx context.Context) error {
	_, err := p.Translate(ctx, &providers.ProviderRequest{Text: "Hello", SourceLanguage: "en", TargetLanguage: "es"})
	return err
}

// normalizeLanguageCode 标准化语言代码
func normalizeLanguageCode(lang string) string {
	lower := strings.ToLower(strings.TrimSpace(lang))
	replacements := map[string]string{
		"chinese":    "zh",
		"zh-cn":      "zh",
		"zh_cn":      "zh",
		"zh-hans":    "zh",
		"english":    "en",
		"spanish":    "es",
		"french":     "fr",
		"german":     "de",
		"japanese":   "ja",
		"korean":     "ko",
		"portuguese": "pt",
		"russian":    "ru",
		"italian":    "it",
	}
	if normalized, ok := replacements[lower]; ok {
		return normalized
	}
	return lower
}

type translateRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
	APIKey string `json:"api_key,omitempty"`
}

type translateResponse struct {
	TranslatedText   string `json:"translatedText"`
	DetectedLanguage *struct {
		Confidence float64 `json:"confidence"`
		Language   string  `json:"language"`
	} `json:"detectedLanguage,omitempty"`
}

func extractError(body []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &e); err != nil {
		return ""
	}
	return e.Error
}
