package factory

import (
	"github.com/nerdneilsfield/latex-translator/pkg/providers"
	"github.com/nerdneilsfield/latex-translator/pkg/providers/deepl"
	"github.com/nerdneilsfield/latex-translator/pkg/providers/deeplx"
	"github.com/nerdneilsfield/latex-translator/pkg/providers/google"
	"github.com/nerdneilsfield/latex-translator/pkg/providers/libretranslate"
	"github.com/nerdneilsfield/latex-translator/pkg/providers/ollama"
	"github.com/nerdneilsfield/latex-translator/pkg/providers/openai"
	"github.com/nerdneilsfield/latex-translator/pkg/providers/raw"
)

// DefaultProvider 未指定时使用的提供商
const DefaultProvider = google.Name

// NewRegistry 创建注册了全部内置提供商的注册表
func NewRegistry() *providers.Registry {
	r := providers.NewRegistry()
	builtin := []struct {
		name        string
		description string
		factory     providers.Factory
	}{
		{raw.Name, "pass-through, returns every chunk unchanged (test mode)", raw.Factory},
		{google.Name, "Google Cloud Translation (v3 with project_id, v2 with api_key)", google.Factory},
		{deepl.Name, "DeepL API (free keys ending in :fx use api-free.deepl.com)", deepl.Factory},
		{deeplx.Name, "self-hosted DeepLX endpoint", deeplx.Factory},
		{libretranslate.Name, "LibreTranslate instance", libretranslate.Factory},
		{openai.Name, "OpenAI chat completions (official SDK)", openai.Factory},
		{ollama.Name, "local Ollama through its OpenAI-compatible /v1 API", ollama.Factory},
	}
	for _, b := range builtin {
		// 名称在此处唯一，注册不会失败
		_ = r.Register(b.name, b.description, b.factory)
	}
	return r
}

// Create 使用内置注册表创建提供商
func Create(name string, settings providers.Settings) (providers.Provider, error) {
	if name == "" {
		name = DefaultProvider
	}
	return NewRegistry().Create(name, settings)
}
