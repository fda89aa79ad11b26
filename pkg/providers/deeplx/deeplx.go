package deeplx

import (
	"context"
	"strings"

	"github.com/nerdneilsfield/latex-translator/pkg/providers"
)

// Name 提供商名称
const Name = "deeplx"

// DefaultEndpoint 本地 DeepLX 服务地址
const DefaultEndpoint = "http://localhost:1188/translate"

// Provider DeepLX提供商（自建的 DeepL 兼容服务）
type Provider struct {
	settings providers.Settings
	client   providers.Doer
}

// New 创建新的DeepLX提供商
func New(settings providers.Settings) (*Provider, error) {
	settings = settings.WithDefaults()
	if settings.APIEndpoint == "" {
		settings.APIEndpoint = DefaultEndpoint
	}
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
		Text:       req.Text,
		SourceLang: normalizeLanguageCode(req.SourceLanguage),
		TargetLang: normalizeLanguageCode(req.TargetLanguage),
	}

	headers := make(map[string]string, len(p.settings.Headers)+1)
	for k, v := range p.settings.Headers {
		headers[k] = v
	}
	token := p.settings.AccessToken
	if token == "" {
		token = p.settings.APIKey
	}
	if token != "" {
		headers["Authorization"] = "Bearer " + token
	}

	var resp translateResponse
	if err := providers.PostJSON(ctx, p.client, Name, p.settings.APIEndpoint, headers, body, &resp, nil); err != nil {
		return nil, err
	}
	// DeepLX 在 HTTP 200 中用 code 字段报告错误
	if resp.Code != 0 && resp.Code != 200 {
		return nil, providers.ErrorFromStatus(Name, resp.Code, resp.Message)
	}

	return &providers.ProviderResponse{
		Text:       resp.Data,
		Model:      "deeplx",
		SourceLang: resp.SourceLang,
	}, nil
}

// GetName 获取提供商名称
func (p *Provider) GetName() string {
	return Name
}

// GetCapabilities 获取提供商能力
func (p *Provider) GetCapabilities() providers.Capabilities {
	return providers.Capabilities{
		MaxTextLength: 5000,
	}
}

// HealthCheck 健康检查
func (p *Provider) HealthCheck(ctx context.Context) error {
	_, err := p.Translate(ctx, &providers.ProviderRequest{Text: "Hello", SourceLanguage: "en", TargetLanguage: "de"})
	return err
}

// normalizeLanguageCode DeepLX 使用大写的基础语言代码
func normalizeLanguageCode(lang string) string {
	upper := strings.ToUpper(strings.TrimSpace(lang))
	replacements := map[string]string{
		"CHINESE":  "ZH",
		"ENGLISH":  "EN",
		"SPANISH":  "ES",
		"FRENCH":   "FR",
		"GERMAN":   "DE",
		"JAPANESE": "JA",
		"KOREAN":   "KO",
		"RUSSIAN":  "RU",
		"ITALIAN":  "IT",
	}
	if normalized, ok := replacements[upper]; ok {
		return normalized
	}
	if i := strings.IndexAny(upper, "-_"); i > 0 {
		return upper[:i]
	}
	if upper == "" {
		return "AUTO"
	}
	return upper
}

type translateRequest struct {
	Text       string `json:"text"`
	SourceLang string `json:"source_lang"`
	TargetLang string `json:"target_lang"`
}

type translateResponse struct {
	Code       int    `json:"code"`
	Message    string `json:"message,omitempty"`
	Data       string `json:"data"`
	SourceLang string `json:"source_lang,omitempty"`
}
