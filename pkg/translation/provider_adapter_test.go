package translation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/nerdneilsfield/latex-translator/internal/test"
	"github.com/nerdneilsfield/latex-translator/pkg/providers"
)

type countingProvider struct {
	calls int
	reply string
	err   error
}

func (p *countingProvider) Translate(_ context.Context, req *providers.ProviderRequest) (*providers.ProviderResponse, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	reply := p.reply
	if reply == "" {
		reply = "[" + req.TargetLanguage + "] " + req.Text
	}
	return &providers.ProviderResponse{Text: reply}, nil
}

func (p *countingProvider) GetName() string { return "counting" }

func TestProviderTranslatorUsesCache(t *testing.T) {
	provider := &countingProvider{}
	cache := NewMemoryCache()
	tr := NewProviderTranslator(provider, WithAdapterCache(cache), WithAdapterModel("m1"))

	out, err := tr.Translate(context.Background(), "Hello @0@", "en", "de")
	require.NoError(t, err)
	assert.Equal(t, "[de] Hello @0@", out)

	out, err = tr.Translate(context.Background(), "Hello @0@", "en", "de")
	require.NoError(t, err)
	assert.Equal(t, "[de] Hello @0@", out)
	assert.Equal(t, 1, provider.calls)

	// 目标语言不同，不能命中
	_, err = tr.Translate(context.Background(), "Hello @0@", "en", "fr")
	require.NoError(t, err)
	assert.Equal(t, 2, provider.calls)

	stats := cache.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(2), stats.Size)
}

func TestProviderTranslatorSendsLanguages(t *testing.T) {
	provider := new(test.MockProvider)
	provider.On("GetName").Return("mock").Maybe()
	provider.On("Translate", mock.Anything, mock.MatchedBy(func(req *providers.ProviderRequest) bool {
		return req.Text == "Hallo @0@" && req.SourceLanguage == "de" && req.TargetLanguage == "en"
	})).Return(&providers.ProviderResponse{Text: "Hello @0@"}, nil).Once()

	out, err := NewProviderTranslator(provider).Translate(context.Background(), "Hallo @0@", "de", "en")
	require.NoError(t, err)
	assert.Equal(t, "Hello @0@", out)
	provider.AssertExpectations(t)
}

func TestProviderTranslatorNilResponse(t *testing.T) {
	provider := new(test.MockProvider)
	provider.On("GetName").Return("mock")
	provider.On("Translate", mock.Anything, mock.Anything).Return(nil, nil)

	_, err := NewProviderTranslator(provider).Translate(context.Background(), "text", "en", "de")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "returned no response")
}

func TestProviderTranslatorRejectsEmptyReply(t *testing.T) {
	provider := &countingProvider{reply: "   "}
	tr := NewProviderTranslator(provider)

	_, err := tr.Translate(context.Background(), "text", "en", "de")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty text")
}

func TestProviderTranslatorWrapsProviderError(t *testing.T) {
	providerErr := providers.NewError("rate_limit", "slow down")
	tr := NewProviderTranslator(&countingProvider{err: providerErr})

	_, err := tr.Translate(context.Background(), "text", "en", "de")
	require.Error(t, err)

	var pe *providers.Error
	require.True(t, errors.As(err, &pe))
	assert.True(t, NewAdapterError(1, err).IsRetryable())
}

func TestGenerateCacheKey(t *testing.T) {
	base := CacheKeyComponents{Provider: "google", SourceLang: "en", TargetLang: "de", Text: "x"}
	key := GenerateCacheKey(base)
	assert.Len(t, key, 64)
	assert.Equal(t, key, GenerateCacheKey(base))

	changed := base
	changed.Text = "y"
	assert.NotEqual(t, key, GenerateCacheKey(changed))
}

func TestFileCache(t *testing.T) {
	dir := t.TempDir()
	cache, err := NewFileCache(dir)
	require.NoError(t, err)

	key := GenerateCacheKey(CacheKeyComponents{Text: "hello"})
	require.NoError(t, cache.Set(key, "hallo"))

	// 新实例只能从磁盘读取
	reopened, err := NewFileCache(dir)
	require.NoError(t, err)
	value, ok := reopened.Get(key)
	require.True(t, ok)
	assert.Equal(t, "hallo", value)

	require.NoError(t, reopened.Delete(key))
	_, ok = reopened.Get(key)
	assert.False(t, ok)

	require.NoError(t, cache.Clear())
	_, ok = cache.Get(key)
	assert.False(t, ok)
}

func TestNewCache(t *testing.T) {
	c, err := NewCache(false, "")
	require.NoError(t, err)
	assert.Nil(t, c)

	c, err = NewCache(true, "")
	require.NoError(t, err)
	assert.IsType(t, &MemoryCache{}, c)

	c, err = NewCache(true, t.TempDir())
	require.NoError(t, err)
	assert.IsType(t, &FileCache{}, c)
}
