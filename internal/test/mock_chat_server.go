package test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

// ChatRequest 模拟服务器记录的请求
type ChatRequest struct {
	Path          string
	Authorization string
	Model         string
	System        string
	User          string
}

// MockChatServer 模拟 OpenAI 兼容的 chat/completions 接口
//
// 默认回复为用户消息中待翻译的正文（提示与正文之间以空行分隔），
// 即表现为一个原样返回的翻译服务。
type MockChatServer struct {
	Server *httptest.Server
	URL    string

	mu        sync.Mutex
	requests  []ChatRequest
	reply     func(text string) string
	failures  int
	failCode  int
	failError string
}

// NewMockChatServer 创建一个新的模拟服务器，测试结束时自动关闭
func NewMockChatServer(t *testing.T) *MockChatServer {
	t.Helper()
	m := &MockChatServer{}

	m.Server = httptest.NewServer(http.HandlerFunc(m.handle))
	m.URL = m.Server.URL
	t.Cleanup(m.Server.Close)
	return m
}

// SetReply 设置回复函数，参数为待翻译的正文
func (m *MockChatServer) SetReply(reply func(text string) string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reply = reply
}

// FailNext 让接下来的 n 个请求返回指定状态码
func (m *MockChatServer) FailNext(n, status int, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = n
	m.failCode = status
	m.failError = message
}

// Requests 返回已记录的请求
func (m *MockChatServer) Requests() []ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ChatRequest(nil), m.requests...)
}

func (m *MockChatServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/models") {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[{"id":"mock-model","object":"model","owned_by":"test"}]}`))
		return
	}

	var body struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeChatError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req := ChatRequest{
		Path:          r.URL.Path,
		Authorization: r.Header.Get("Authorization"),
		Model:         body.Model,
	}
	for _, msg := range body.Messages {
		switch msg.Role {
		case "system":
			req.System = msg.Content
		case "user":
			req.User = msg.Content
		}
	}

	m.mu.Lock()
	m.requests = append(m.requests, req)
	if m.failures > 0 {
		m.failures--
		code, message := m.failCode, m.failError
		m.mu.Unlock()
		writeChatError(w, code, message)
		return
	}
	reply := m.reply
	m.mu.Unlock()

	text := req.User
	if i := strings.Index(text, "\n\n"); i >= 0 {
		text = text[i+2:]
	}
	if reply != nil {
		text = reply(text)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"id":      "chatcmpl-mock",
		"object":  "chat.completion",
		"created": time.Now().Unix(),
		"model":   body.Model,
		"choices": []map[string]interface{}{
			{
				"index":         0,
				"message":       map[string]interface{}{"role": "assistant", "content": text},
				"finish_reason": "stop",
			},
		},
		"usage": map[string]interface{}{
			"prompt_tokens":     len(req.User),
			"completion_tokens": len(text),
			"total_tokens":      len(req.User) + len(text),
		},
	})
}

func writeChatError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]interface{}{
			"message": message,
			"type":    "mock_error",
		},
	})
}
