package deeplx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerdneilsfield/latex-translator/pkg/providers"
)

func TestDeepLXTranslate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req translateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "EN", req.SourceLang)
		assert.Equal(t, "ZH", req.TargetLang)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		_ = json.NewEncoder(w).Encode(translateResponse{Code: 200, Data: "译文 " + req.Text})
	}))
	defer server.Close()

	p, err := New(providers.Settings{APIEndpoint: server.URL, AccessToken: "tok"})
	require.NoError(t, err)

	resp, err := p.Translate(context.Background(), &providers.ProviderRequest{
		Text:           "@0@",
		SourceLanguage: "en",
		TargetLanguage: "zh-CN",
	})
	require.NoError(t, err)
	assert.Equal(t, "译文 @0@", resp.Text)
}

func TestDeepLXErrorCodeInBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":429,"message":"too many requests"}`))
	}))
	defer server.Close()

	p, err := New(providers.Settings{APIEndpoint: server.URL})
	require.NoError(t, err)

	_, err = p.Translate(context.Background(), &providers.ProviderRequest{Text: "x", TargetLanguage: "de"})
	var pe *providers.Error
	require.ErrorAs(t, err, &pe)
	assert.True(t, pe.IsRetryable())
}

func TestDeepLXLanguageCodes(t *testing.T) {
	assert.Equal(t, "AUTO", normalizeLanguageCode(""))
	assert.Equal(t, "ZH", normalizeLanguageCode("zh_TW"))
	assert.Equal(t, "FR", normalizeLanguageCode("french"))
}
