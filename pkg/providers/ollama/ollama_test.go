package ollama

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerdneilsfield/latex-translator/internal/test"
	"github.com/nerdneilsfield/latex-translator/pkg/providers"
)

func TestOllamaTranslate(t *testing.T) {
	server := test.NewMockChatServer(t)
	server.SetReply(func(text string) string { return "[zh] " + text })

	p, err := New(providers.Settings{
		APIEndpoint: server.URL,
		Headers:     map[string]string{"X-Test": "1"},
	})
	require.NoError(t, err)

	resp, err := p.Translate(context.Background(), &providers.ProviderRequest{
		Text:           "Hello @0@",
		SourceLanguage: "en",
		TargetLanguage: "zh",
	})
	require.NoError(t, err)
	assert.Equal(t, "[zh] Hello @0@", resp.Text)

	requests := server.Requests()
	require.Len(t, requests, 1)
	assert.Equal(t, "/v1/chat/completions", requests[0].Path)
	assert.Equal(t, DefaultModel, requests[0].Model)
	assert.Equal(t, "Bearer ollama", requests[0].Authorization)
}

func TestOllamaRetriesServerError(t *testing.T) {
	server := test.NewMockChatServer(t)
	server.FailNext(1, http.StatusServiceUnavailable, "loading model")

	p, err := New(providers.Settings{APIEndpoint: server.URL, MaxRetries: 1})
	require.NoError(t, err)

	resp, err := p.Translate(context.Background(), &providers.ProviderRequest{Text: "x", TargetLanguage: "de"})
	require.NoError(t, err)
	assert.Equal(t, "x", resp.Text)
	assert.Len(t, server.Requests(), 2)
}

func TestOllamaConvertsErrors(t *testing.T) {
	server := test.NewMockChatServer(t)
	server.FailNext(1, http.StatusNotFound, "model not found")

	p, err := New(providers.Settings{APIEndpoint: server.URL, MaxRetries: 0})
	require.NoError(t, err)

	_, err = p.Translate(context.Background(), &providers.ProviderRequest{Text: "x", TargetLanguage: "de"})
	var pe *providers.Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, http.StatusNotFound, pe.Status)
	assert.Equal(t, "model not found", pe.Message)
}

func TestOllamaHealthCheck(t *testing.T) {
	server := test.NewMockChatServer(t)
	p, err := New(providers.Settings{APIEndpoint: server.URL + "/v1/"})
	require.NoError(t, err)
	assert.NoError(t, p.HealthCheck(context.Background()))
}

func TestBaseURL(t *testing.T) {
	assert.Equal(t, "http://h:11434/v1", baseURL("http://h:11434"))
	assert.Equal(t, "http://h:11434/v1", baseURL("http://h:11434/"))
	assert.Equal(t, "http://h:11434/v1", baseURL("http://h:11434/v1/"))
}
