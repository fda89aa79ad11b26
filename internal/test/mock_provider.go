package test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/nerdneilsfield/latex-translator/pkg/providers"
)

// MockProvider 是一个模拟的翻译提供商
type MockProvider struct {
	mock.Mock
}

// Translate 执行翻译
func (m *MockProvider) Translate(ctx context.Context, req *providers.ProviderRequest) (*providers.ProviderResponse, error) {
	args := m.Called(ctx, req)
	if resp, ok := args.Get(0).(*providers.ProviderResponse); ok {
		return resp, args.Error(1)
	}
	return nil, args.Error(1)
}

// GetName 返回提供商名称
func (m *MockProvider) GetName() string {
	args := m.Called()
	return args.String(0)
}

// GetCapabilities 返回提供商能力
func (m *MockProvider) GetCapabilities() providers.Capabilities {
	args := m.Called()
	return args.Get(0).(providers.Capabilities)
}

// HealthCheck 健康检查
func (m *MockProvider) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
