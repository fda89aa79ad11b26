package ollama

import (
	"context"
	"errors"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/nerdneilsfield/latex-translator/pkg/providers"
	"github.com/nerdneilsfield/latex-translator/pkg/providers/retry"
)

// Name 提供商名称
const Name = "ollama"

const (
	// DefaultEndpoint 本地 Ollama 服务地址
	DefaultEndpoint = "http://localhost:11434"
	// DefaultModel 未配置模型时使用
	DefaultModel = "qwen2.5:7b"
)

// Provider Ollama提供商，通过 OpenAI 兼容的 /v1 接口访问
type Provider struct {
	settings providers.Settings
	client   *openai.Client
}

// New 创建新的Ollama提供商
func New(settings providers.Settings) (*Provider, error) {
	settings = settings.WithDefaults()
	if settings.APIEndpoint == "" {
		settings.APIEndpoint = DefaultEndpoint
	}
	if settings.Model == "" {
		settings.Model = DefaultModel
	}

	// Ollama 不校验密钥，但客户端要求非空
	token := settings.APIKey
	if token == "" {
		token = "ollama"
	}

	config := openai.DefaultConfig(token)
	config.BaseURL = baseURL(settings.APIEndpoint)
	retrier := retry.NewNetworkRetrier(retry.DefaultRetryConfig().WithMaxRetries(settings.MaxRetries))
	config.HTTPClient = &http.Client{
		Timeout:   settings.Timeout,
		Transport: withHeaders(retrier.WrapTransport(nil), settings.Headers),
	}

	return &Provider{
		settings: settings,
		client:   openai.NewClientWithConfig(config),
	}, nil
}

// Factory 注册表使用的构造函数
func Factory(settings providers.Settings) (providers.Provider, error) {
	return New(settings)
}

// baseURL 补全 /v1 后缀
func baseURL(endpoint string) string {
	endpoint = strings.TrimRight(endpoint, "/")
	if strings.HasSuffix(endpoint, "/v1") {
		return endpoint
	}
	return endpoint + "/v1"
}

// Translate 执行翻译
func (p *Provider) Translate(ctx context.Context, req *providers.ProviderRequest) (*providers.ProviderResponse, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.settings.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: providers.SystemPrompt(providers.Instruction(req))},
			{Role: openai.ChatMessageRoleUser, Content: providers.UserPrompt(req)},
		},
		Temperature: float32(p.settings.Temperature),
	})
	if err != nil {
		return nil, convertError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, &providers.Error{Provider: Name, Code: providers.CodeBadResponse, Message: "no choices returned"}
	}

	return &providers.ProviderResponse{
		Text:      providers.CleanModelOutput(resp.Choices[0].Message.Content),
		Model:     resp.Model,
		TokensIn:  resp.Usage.PromptTokens,
		TokensOut: resp.Usage.CompletionTokens,
	}, nil
}

// GetName 获取提供商名称
func (p *Provider) GetName() string {
	return Name
}

// GetCapabilities 获取提供商能力
func (p *Provider) GetCapabilities() providers.Capabilities {
	return providers.Capabilities{
		IsLLM: true,
	}
}

// HealthCheck 健康检查
func (p *Provider) HealthCheck(ctx context.Context) error {
	_, err := p.client.ListModels(ctx)
	if err != nil {
		return convertError(err)
	}
	return nil
}

func convertError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return providers.ErrorFromStatus(Name, apiErr.HTTPStatusCode, apiErr.Message)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return providers.ErrorFromStatus(Name, reqErr.HTTPStatusCode, reqErr.Error())
	}
	return err
}

// withHeaders 为每个请求添加自定义头部
func withHeaders(base http.RoundTripper, headers map[string]string) http.RoundTripper {
	if len(headers) == 0 {
		return base
	}
	return headerTransport{base: base, headers: headers}
}

type headerTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

func (t headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}
	return t.base.RoundTrip(req)
}
