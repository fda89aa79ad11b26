package translation

import (
	"context"
	"fmt"
	"strings"

	"github.com/nerdneilsfield/latex-translator/pkg/providers"
)

// providerTranslator 将 providers.TranslationProvider 适配为 Translator
type providerTranslator struct {
	provider providers.TranslationProvider
	model    string
	cache    Cache
}

// AdapterOption 适配器选项
type AdapterOption func(*providerTranslator)

// WithAdapterCache 为适配器设置分块缓存
func WithAdapterCache(cache Cache) AdapterOption {
	return func(a *providerTranslator) {
		a.cache = cache
	}
}

// WithAdapterModel 设置参与缓存 key 计算的模型名
func WithAdapterModel(model string) AdapterOption {
	return func(a *providerTranslator) {
		a.model = model
	}
}

// NewProviderTranslator 创建提供商适配器
func NewProviderTranslator(provider providers.TranslationProvider, opts ...AdapterOption) Translator {
	a := &providerTranslator{provider: provider}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Translate 实现 Translator 接口
func (a *providerTranslator) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	var key string
	if a.cache != nil {
		key = GenerateCacheKey(CacheKeyComponents{
			Provider:   a.provider.GetName(),
			Model:      a.model,
			SourceLang: sourceLang,
			TargetLang: targetLang,
			Text:       text,
		})
		if cached, ok := a.cache.Get(key); ok {
			return cached, nil
		}
	}

	resp, err := a.provider.Translate(ctx, &providers.ProviderRequest{
		Text:           text,
		SourceLanguage: sourceLang,
		TargetLanguage: targetLang,
	})
	if err != nil {
		return "", fmt.Errorf("provider '%s': %w", a.provider.GetName(), err)
	}
	if resp == nil {
		return "", fmt.Errorf("provider '%s' returned no response", a.provider.GetName())
	}
	// 非空输入得到空输出视为结果不合法
	if strings.TrimSpace(resp.Text) == "" && strings.TrimSpace(text) != "" {
		return "", fmt.Errorf("provider '%s' returned empty text", a.provider.GetName())
	}

	if a.cache != nil {
		// 写缓存失败不影响本次结果
		_ = a.cache.Set(key, resp.Text)
	}
	return resp.Text, nil
}
