package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerdneilsfield/latex-translator/pkg/providers"
)

func TestGoogleV3(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/projects/my-project/locations/global:translateText", r.URL.Path)
		assert.Equal(t, "Bearer token-123", r.Header.Get("Authorization"))

		var req translateTextRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "text/plain", req.MimeType)
		assert.Equal(t, "en", req.SourceLanguageCode)
		assert.Equal(t, "zh-CN", req.TargetLanguageCode)
		assert.Equal(t, []string{"Hello @0@"}, req.Contents)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"translations":[{"translatedText":"你好 @0@"}]}`))
	}))
	defer server.Close()

	p, err := New(providers.Settings{
		APIEndpoint: server.URL,
		ProjectID:   "my-project",
		AccessToken: "token-123",
	})
	require.NoError(t, err)
	assert.True(t, p.UsesV3())

	resp, err := p.Translate(context.Background(), &providers.ProviderRequest{
		Text:           "Hello @0@",
		SourceLanguage: "en",
		TargetLanguage: "zh_CN",
	})
	require.NoError(t, err)
	assert.Equal(t, "你好 @0@", resp.Text)
}

func TestGoogleV2(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/language/translate/v2", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "key-1", r.PostForm.Get("key"))
		assert.Equal(t, "text", r.PostForm.Get("format"))
		assert.Equal(t, "de", r.PostForm.Get("target"))

		_, _ = w.Write([]byte(`{"data":{"translations":[{"translatedText":"Hallo ` + r.PostForm.Get("q") + `"}]}}`))
	}))
	defer server.Close()

	p, err := New(providers.Settings{APIEndpoint: server.URL, APIKey: "key-1"})
	require.NoError(t, err)

	resp, err := p.Translate(context.Background(), &providers.ProviderRequest{
		Text:           "@1@",
		SourceLanguage: "english",
		TargetLanguage: "german",
	})
	require.NoError(t, err)
	assert.Equal(t, "Hallo @1@", resp.Text)
}

func TestGoogleRetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"data":{"translations":[{"translatedText":"ok"}]}}`))
	}))
	defer server.Close()

	p, err := New(providers.Settings{APIEndpoint: server.URL, APIKey: "k", MaxRetries: 1})
	require.NoError(t, err)

	resp, err := p.Translate(context.Background(), &providers.ProviderRequest{Text: "x", TargetLanguage: "de"})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Text)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestGoogleAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"API key not valid"}}`))
	}))
	defer server.Close()

	p, err := New(providers.Settings{APIEndpoint: server.URL, APIKey: "bad"})
	require.NoError(t, err)

	_, err = p.Translate(context.Background(), &providers.ProviderRequest{Text: "x", TargetLanguage: "de"})
	require.Error(t, err)

	var pe *providers.Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, providers.CodeAuth, pe.Code)
	assert.Equal(t, "API key not valid", pe.Message)
	assert.False(t, pe.IsRetryable())
}

func TestGoogleConfigValidation(t *testing.T) {
	_, err := New(providers.Settings{})
	assert.Error(t, err)

	_, err = New(providers.Settings{ProjectID: "p"})
	assert.Error(t, err)
}
