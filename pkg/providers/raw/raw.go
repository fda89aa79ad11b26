package raw

import (
	"context"

	"github.com/nerdneilsfield/latex-translator/pkg/providers"
)

// Name 提供商名称
const Name = "raw"

// Provider Raw 提供商实现（跳过翻译，直接返回原文）
//
// 用于测试模式：配合关闭空白修剪的还原，输出应与输入逐字节一致。
type Provider struct{}

// New 创建新的 Raw 提供商
func New() *Provider {
	return &Provider{}
}

// Factory 注册表使用的构造函数
func Factory(providers.Settings) (providers.Provider, error) {
	return New(), nil
}

// Translate 执行翻译（直接返回原文）
func (p *Provider) Translate(ctx context.Context, req *providers.ProviderRequest) (*providers.ProviderResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &providers.ProviderResponse{
		Text:       req.Text,
		Model:      Name,
		SourceLang: req.SourceLanguage,
		Metadata: map[string]interface{}{
			"type": "raw_passthrough",
		},
	}, nil
}

// GetName 获取提供商名称
func (p *Provider) GetName() string {
	return Name
}

// GetCapabilities 获取提供商能力
func (p *Provider) GetCapabilities() providers.Capabilities {
	return providers.Capabilities{}
}

// HealthCheck 健康检查
func (p *Provider) HealthCheck(ctx context.Context) error {
	return ctx.Err()
}
