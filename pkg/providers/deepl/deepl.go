package deepl

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/nerdneilsfield/latex-translator/pkg/providers"
)

// Name 提供商名称
const Name = "deepl"

const (
	proEndpoint  = "https://api.deepl.com/v2"
	freeEndpoint = "https://api-free.deepl.com/v2"
)

// Provider DeepL提供商
type Provider struct {
	settings providers.Settings
	client   providers.Doer
}

// New 创建新的DeepL提供商
//
// 未指定地址时，以 ":fx" 结尾的密钥使用免费版 API。
func New(settings providers.Settings) (*Provider, error) {
	settings = settings.WithDefaults()
	if settings.APIKey == "" {
		return nil, &providers.Error{Provider: Name, Code: providers.CodeConfig, Message: "api_key is required"}
	}
	if settings.APIEndpoint == "" {
		settings.APIEndpoint = proEndpoint
		if strings.HasSuffix(settings.APIKey, ":fx") {
			settings.APIEndpoint = freeEndpoint
		}
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
	params := url.Values{}
	params.Set("text", req.Text)
	params.Set("target_lang", normalizeLanguageCode(req.TargetLanguage, false))
	if src := normalizeLanguageCode(req.SourceLanguage, true); src != "" {
		params.Set("source_lang", src)
	}
	// 段落结构由分块器负责，不让 DeepL 重新断句
	params.Set("preserve_formatting", "1")
	params.Set("split_sentences", "nonewlines")
	if p.settings.Formality != "" {
		params.Set("formality", p.settings.Formality)
	}

	headers := make(map[string]string, len(p.settings.Headers)+1)
	for k, v := range p.settings.Headers {
		headers[k] = v
	}
	headers["Authorization"] = "DeepL-Auth-Key " + p.settings.APIKey

	var resp translateResponse
	if err := providers.PostForm(ctx, p.client, Name, p.settings.APIEndpoint+"/translate", headers, params, &resp, extractMessage); err != nil {
		return nil, err
	}
	if len(resp.Translations) == 0 {
		return nil, &providers.Error{Provider: Name, Code: providers.CodeBadResponse, Message: "no translation returned"}
	}

	return &providers.ProviderResponse{
		Text:       resp.Translations[0].Text,
		Model:      "deepl",
		SourceLang: resp.Translations[0].DetectedSourceLanguage,
	}, nil
}

// GetName 获取提供商名称
func (p *Provider) GetName() string {
	return Name
}

// GetCapabilities 获取提供商能力
func (p *Provider) GetCapabilities() providers.Capabilities {
	return providers.Capabilities{
		MaxTextLength:  128 * 1024,
		RequiresAPIKey: true,
	}
}

// HealthCheck 健康检查
func (p *Provider) HealthCheck(ctx context.Context) error {
	_, err := p.Translate(ctx, &providers.ProviderRequest{Text: "Hello", SourceLanguage: "en", TargetLanguage: "de"})
	return err
}

// normalizeLanguageCode 标准化语言代码为DeepL格式
func normalizeLanguageCode(lang string, isSource bool) string {
	upper := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(lang), "_", "-"))

	replacements := map[string]string{
		"CHINESE":    "ZH",
		"ENGLISH":    "EN",
		"SPANISH":    "ES",
		"FRENCH":     "FR",
		"GERMAN":     "DE",
		"JAPANESE":   "JA",
		"KOREAN":     "KO",
		"PORTUGUESE": "PT",
		"RUSSIAN":    "RU",
		"ITALIAN":    "IT",
	}
	if normalized, ok := replacements[upper]; ok {
		upper = normalized
	}

	// 源语言只接受基础语言代码
	if isSource {
		if i := strings.Index(upper, "-"); i > 0 {
			return upper[:i]
		}
		return upper
	}

	switch upper {
	case "EN":
		return "EN-US"
	case "PT":
		return "PT-BR"
	case "ZH-CN", "ZH-SG":
		return "ZH-HANS"
	case "ZH-TW", "ZH-HK":
		return "ZH-HANT"
	}
	return upper
}

type translateResponse struct {
	Translations []struct {
		DetectedSourceLanguage string `json:"detected_source_language"`
		Text                   string `json:"text"`
	} `json:"translations"`
}

func extractMessage(body []byte) string {
	var e struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &e); err != nil {
		return ""
	}
	return e.Message
}
