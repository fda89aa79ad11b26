package openai

import (
	"context"
	"errors"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/nerdneilsfield/latex-translator/pkg/providers"
)

// Name 提供商名称
const Name = "openai"

// DefaultModel 未配置模型时使用
const DefaultModel = "gpt-4o-mini"

// getModel 根据字符串获取模型常量
func getModel(model string) openai.ChatModel {
	switch model {
	case "":
		return openai.ChatModel(DefaultModel)
	case "gpt-4":
		return openai.ChatModelGPT4
	case "gpt-4-turbo", "gpt-4-turbo-preview":
		return openai.ChatModelGPT4Turbo
	case "gpt-4o":
		return openai.ChatModelGPT4o
	case "gpt-4o-mini":
		return openai.ChatModelGPT4oMini
	default:
		// 新模型或兼容服务的自定义模型
		return openai.ChatModel(model)
	}
}

// Provider OpenAI提供商（使用官方SDK）
//
// 重试由 SDK 负责，次数取自 max_retries。
type Provider struct {
	settings providers.Settings
	client   openai.Client
}

var _ providers.Provider = (*Provider)(nil)

// New 创建新的OpenAI提供商
func New(settings providers.Settings) (*Provider, error) {
	settings = settings.WithDefaults()
	if settings.APIKey == "" {
		return nil, &providers.Error{Provider: Name, Code: providers.CodeConfig, Message: "api_key is required"}
	}

	opts := []option.RequestOption{
		option.WithAPIKey(settings.APIKey),
		option.WithMaxRetries(settings.MaxRetries),
		option.WithRequestTimeout(settings.Timeout),
	}
	if settings.APIEndpoint != "" {
		opts = append(opts, option.WithBaseURL(settings.APIEndpoint))
	}
	for k, v := range settings.Headers {
		opts = append(opts, option.WithHeader(k, v))
	}

	return &Provider{
		settings: settings,
		client:   openai.NewClient(opts...),
	}, nil
}

// Factory 注册表使用的构造函数
func Factory(settings providers.Settings) (providers.Provider, error) {
	return New(settings)
}

// Translate 执行翻译
func (p *Provider) Translate(ctx context.Context, req *providers.ProviderRequest) (*providers.ProviderResponse, error) {
	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(providers.SystemPrompt(providers.Instruction(req))),
			openai.UserMessage(providers.UserPrompt(req)),
		},
		Model: getModel(p.settings.Model),
	}
	if p.settings.Temperature > 0 {
		params.Temperature = openai.Float(p.settings.Temperature)
	}

	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, convertError(err)
	}
	if len(completion.Choices) == 0 {
		return nil, &providers.Error{Provider: Name, Code: providers.CodeBadResponse, Message: "no choices returned"}
	}

	return &providers.ProviderResponse{
		Text:      providers.CleanModelOutput(completion.Choices[0].Message.Content),
		Model:     completion.Model,
		TokensIn:  int(completion.Usage.PromptTokens),
		TokensOut: int(completion.Usage.CompletionTokens),
		Metadata: map[string]interface{}{
			"finish_reason": completion.Choices[0].FinishReason,
			"id":            completion.ID,
		},
	}, nil
}

// GetName 获取提供商名称
func (p *Provider) GetName() string {
	return Name
}

// GetCapabilities 获取提供商能力
func (p *Provider) GetCapabilities() providers.Capabilities {
	return providers.Capabilities{
		MaxTextLength:  8000,
		RequiresAPIKey: true,
		IsLLM:          true,
		RateLimit: &providers.RateLimit{
			RequestsPerMinute: 60,
		},
	}
}

// HealthCheck 健康检查
func (p *Provider) HealthCheck(ctx context.Context) error {
	_, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages:  []openai.ChatCompletionMessageParamUnion{openai.UserMessage("Hello")},
		Model:     getModel(p.settings.Model),
		MaxTokens: openai.Int(10),
	})
	if err != nil {
		return convertError(err)
	}
	return nil
}

// convertError 将 SDK 错误转换为提供商错误
func convertError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		message := apiErr.Message
		if message == "" {
			message = apiErr.Error()
		}
		return providers.ErrorFromStatus(Name, apiErr.StatusCode, message)
	}
	return err
}
