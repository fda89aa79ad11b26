package libretranslate

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

func TestLibreTranslate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/translate", r.URL.Path)
		var req translateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "auto", req.Source)
		assert.Equal(t, "zh", req.Target)
		assert.Equal(t, "text", req.Format)
		assert.Equal(t, "k", req.APIKey)

		_, _ = w.Write([]byte(`{"translatedText":"你好 @0@","detectedLanguage":{"confidence":90,"language":"en"}}`))
	}))
	defer server.Close()

	p, err := New(providers.Settings{APIEndpoint: server.URL + "/", APIKey: "k"})
	require.NoError(t, err)

	resp, err := p.Translate(context.Background(), &providers.ProviderRequest{Text: "Hello @0@", TargetLanguage: "zh-CN"})
	require.NoError(t, err)
	assert.Equal(t, "你好 @0@", resp.Text)
	assert.Equal(t, "en", resp.SourceLang)
}

func TestLibreTranslateError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"zz is not supported"}`))
	}))
	defer server.Close()

	p, err := New(providers.Settings{APIEndpoint: server.URL})
	require.NoError(t, err)

	_, err = p.Translate(context.Background(), &providers.ProviderRequest{Text: "x", TargetLanguage: "zz"})
	var pe *providers.Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, providers.CodeClientError, pe.Code)
	assert.Equal(t, "zz is not supported", pe.Message)
}
