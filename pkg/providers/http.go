package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/nerdneilsfield/latex-translator/pkg/providers/retry"
)

// maxErrorBody 错误响应最多读取的字节数
const maxErrorBody = 4096

// Doer 执行 HTTP 请求，retry.RetryableHTTPClient 与 *http.Client 都满足
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// PostJSON 发送 JSON 请求并把 2xx 响应解码到 out
//
// 非 2xx 响应转换为 *Error，message 由 extract 从响应体中提取（可为 nil）。
func PostJSON(ctx context.Context, client Doer, provider, endpoint string, headers map[string]string, in, out interface{}, extract func([]byte) string) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return do(client, req, provider, headers, out, extract)
}

// PostForm 发送表单请求并把 2xx 响应解码到 out
func PostForm(ctx context.Context, client Doer, provider, endpoint string, headers map[string]string, form url.Values, out interface{}, extract func([]byte) string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return do(client, req, provider, headers, out, extract)
}

func do(client Doer, req *http.Request, provider string, headers map[string]string, out interface{}, extract func([]byte) string) error {
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		message := ""
		if extract != nil {
			message = extract(errBody)
		}
		if message == "" {
			message = strings.TrimSpace(string(errBody))
		}
		return ErrorFromStatus(provider, resp.StatusCode, message)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Provider: provider, Code: CodeBadResponse, Message: fmt.Sprintf("failed to decode response: %v", err)}
	}
	return nil
}

// NewHTTPClient 按配置创建带重试的 HTTP 客户端
func NewHTTPClient(settings Settings) Doer {
	settings = settings.WithDefaults()
	retrier := retry.NewNetworkRetrier(retry.DefaultRetryConfig().WithMaxRetries(settings.MaxRetries))
	return retrier.WrapHTTPClient(&http.Client{Timeout: settings.Timeout})
}
