package google

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/nerdneilsfield/latex-translator/pkg/providers"
)

// Name 提供商名称
const Name = "google"

// DefaultEndpoint Google Cloud Translation 的默认地址
const DefaultEndpoint = "https://translation.googleapis.com"

// Provider Google Translate提供商
//
// 设置了 ProjectID 时使用 Cloud Translation v3（Bearer 令牌，纯文本 mimeType），
// 否则使用 v2（API key，format=text）。
type Provider struct {
	settings providers.Settings
	client   providers.Doer
}

// New 创建新的Google Translate提供商
func New(settings providers.Settings) (*Provider, error) {
	settings = settings.WithDefaults()
	if settings.APIEndpoint == "" {
		settings.APIEndpoint = DefaultEndpoint
	}
	settings.APIEndpoint = strings.TrimRight(settings.APIEndpoint, "/")

	if settings.ProjectID == "" && settings.APIKey == "" {
		return nil, &providers.Error{Provider: Name, Code: providers.CodeConfig, Message: "either project_id (v3) or api_key (v2) is required"}
	}
	if settings.ProjectID != "" && settings.AccessToken == "" {
		return nil, &providers.Error{Provider: Name, Code: providers.CodeConfig, Message: "access_token is required when project_id is set"}
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

// UsesV3 是否使用 Cloud Translation v3
func (p *Provider) UsesV3() bool {
	return p.settings.ProjectID != ""
}

// Translate 执行翻译
func (p *Provider) Translate(ctx context.Context, req *providers.ProviderRequest) (*providers.ProviderResponse, error) {
	if p.UsesV3() {
		return p.translateV3(ctx, req)
	}
	return p.translateV2(ctx, req)
}

func (p *Provider) translateV3(ctx context.Context, req *providers.ProviderRequest) (*providers.ProviderResponse, error) {
	location := p.settings.Location
	if location == "" {
		location = "global"
	}
	endpoint := fmt.Sprintf("%s/v3/projects/%s/locations/%s:translateText",
		p.settings.APIEndpoint, url.PathEscape(p.settings.ProjectID), url.PathEscape(location))

	body := translateTextRequest{
		Contents:           []string{req.Text},
		MimeType:           "text/plain",
		SourceLanguageCode: normalizeLanguageCode(req.SourceLanguage),
		TargetLanguageCode: normalizeLanguageCode(req.TargetLanguage),
	}

	headers := p.headers()
	headers["Authorization"] = "Bearer " + p.settings.AccessToken
	headers["x-goog-user-project"] = p.settings.ProjectID

	var resp translateTextResponse
	if err := providers.PostJSON(ctx, p.client, Name, endpoint, headers, body, &resp, extractAPIError); err != nil {
		return nil, err
	}
	if len(resp.Translations) == 0 {
		return nil, &providers.Error{Provider: Name, Code: providers.CodeBadResponse, Message: "no translation returned"}
	}

	t := resp.Translations[0]
	return &providers.ProviderResponse{
		Text:       t.TranslatedText,
		Model:      "google-translate-v3",
		SourceLang: t.DetectedLanguageCode,
	}, nil
}

func (p *Provider) translateV2(ctx context.Context, req *providers.ProviderRequest) (*providers.ProviderResponse, error) {
	params := url.Values{}
	params.Set("key", p.settings.APIKey)
	params.Set("q", req.Text)
	if src := normalizeLanguageCode(req.SourceLanguage); src != "" {
		params.Set("source", src)
	}
	params.Set("target", normalizeLanguageCode(req.TargetLanguage))
	params.Set("format", "text")

	var resp translateV2Response
	endpoint := p.settings.APIEndpoint + "/language/translate/v2"
	if err := providers.PostForm(ctx, p.client, Name, endpoint, p.headers(), params, &resp, extractAPIError); err != nil {
		return nil, err
	}
	if len(resp.Data.Translations) == 0 {
		return nil, &providers.Error{Provider: Name, Code: providers.CodeBadResponse, Message: "no translation returned"}
	}

	t := resp.Data.Translations[0]
	return &providers.ProviderResponse{
		Text:       t.TranslatedText,
		Model:      "google-translate-v2",
		SourceLang: t.DetectedSourceLanguage,
	}, nil
}

func (p *Provider) headers() map[string]string {
	headers := make(map[string]string, len(p.settings.Headers)+2)
	for k, v := range p.settings.Headers {
		headers[k] = v
	}
	return headers
}

// GetName 获取提供商名称
func (p *Provider) GetName() string {
	return Name
}

// GetCapabilities 获取提供商能力
func (p *Provider) GetCapabilities() providers.Capabilities {
	maxLen := 5000 // v2 单次请求建议上限
	if p.UsesV3() {
		maxLen = 30000
	}
	return providers.Capabilities{
		MaxTextLength:  maxLen,
		RequiresAPIKey: true,
		RateLimit: &providers.RateLimit{
			RequestsPerMinute: 600,
		},
	}
}

// HealthCheck 健康检查
func (p *Provider) HealthCheck(ctx context.Context) error {
	_, err := p.Translate(ctx, &providers.ProviderRequest{
		Text:           "Hello",
		SourceLanguage: "en",
		TargetLanguage: "es",
	})
	return err
}

// normalizeLanguageCode 标准化语言代码
func normalizeLanguageCode(lang string) string {
	replacements := map[string]string{
		"chinese":             "zh",
		"chinese_simplified":  "zh-CN",
		"chinese_traditional": "zh-TW",
		"english":             "en",
		"spanish":             "es",
		"french":              "fr",
		"german":              "de",
		"japanese":            "ja",
		"korean":              "ko",
		"portuguese":          "pt",
		"russian":             "ru",
		"italian":             "it",
	}

	lang = strings.TrimSpace(lang)
	if normalized, ok := replacements[strings.ToLower(lang)]; ok {
		return normalized
	}
	// xx_YY -> xx-YY
	return strings.Replace(lang, "_", "-", 1)
}

// translateTextRequest v3 请求
type translateTextRequest struct {
	Contents           []string `json:"contents"`
	MimeType           string   `json:"mimeType"`
	SourceLanguageCode string   `json:"sourceLanguageCode,omitempty"`
	TargetLanguageCode string   `json:"targetLanguageCode"`
}

// translateTextResponse v3 响应
type translateTextResponse struct {
	Translations []struct {
		TranslatedText       string `json:"translatedText"`
		DetectedLanguageCode string `json:"detectedLanguageCode,omitempty"`
	} `json:"translations"`
}

// translateV2Response v2 响应
type translateV2Response struct {
	Data struct {
		Translations []struct {
			TranslatedText         string `json:"translatedText"`
			DetectedSourceLanguage string `json:"detectedSourceLanguage,omitempty"`
		} `json:"translations"`
	} `json:"data"`
}

// apiError v2 与 v3 共用的错误格式
type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func extractAPIError(body []byte) string {
	var e apiError
	if err := json.Unmarshal(body, &e); err != nil {
		return ""
	}
	return e.Error.Message
}
