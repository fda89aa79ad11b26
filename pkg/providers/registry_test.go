package providers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct{ name string }

func (p stubProvider) Translate(_ context.Context, req *ProviderRequest) (*ProviderResponse, error) {
	return &ProviderResponse{Text: req.Text}, nil
}
func (p stubProvider) GetName() string                   { return p.name }
func (p stubProvider) GetCapabilities() Capabilities     { return Capabilities{} }
func (p stubProvider) HealthCheck(context.Context) error { return nil }

func stubFactory(name string) Factory {
	return func(Settings) (Provider, error) { return stubProvider{name: name}, nil }
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("google", "g", stubFactory("google")))
	require.NoError(t, r.Register("DeepL", "d", stubFactory("deepl")))
	assert.Error(t, r.Register("deepl", "again", stubFactory("deepl")))
	assert.Error(t, r.Register(" ", "blank", stubFactory("")))

	assert.True(t, r.Has("deepl"))
	assert.True(t, r.Has(" Google "))
	assert.Equal(t, "d", r.Describe("DEEPL"))
	assert.Equal(t, []string{"deepl", "google"}, r.List())

	p, err := r.Create("google", Settings{})
	require.NoError(t, err)
	assert.Equal(t, "google", p.GetName())
}

func TestRegistrySuggest(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"google", "deepl", "deeplx", "ollama"} {
		require.NoError(t, r.Register(name, name, stubFactory(name)))
	}

	assert.Equal(t, "google", r.Suggest("gogle")[0])
	assert.Contains(t, r.Suggest("googletranslate"), "google")
	assert.Equal(t, []string{"deepl", "deeplx"}, r.Suggest("dpl"))
	assert.Empty(t, r.Suggest(""))
	assert.Empty(t, r.Suggest("zzz"))

	_, err := r.Create("olama", Settings{})
	var unknown *UnknownProviderError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, []string{"ollama"}, unknown.Suggestions)
}

func TestErrorFromStatus(t *testing.T) {
	tests := []struct {
		status    int
		code      string
		retryable bool
	}{
		{429, CodeRateLimit, true},
		{504, CodeTimeout, true},
		{500, CodeServerError, true},
		{401, CodeAuth, false},
		{400, CodeClientError, false},
	}
	for _, tt := range tests {
		err := ErrorFromStatus("p", tt.status, "")
		assert.Equal(t, tt.code, err.Code)
		assert.Equal(t, tt.retryable, err.IsRetryable())
		assert.Contains(t, err.Error(), "HTTP")
	}
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, "a @0@\nb", StripFences("```latex\na @0@\nb\n```"))
	assert.Equal(t, "plain", StripFences("plain"))
	assert.Equal(t, "``` not closed", StripFences("``` not closed"))
}
