package stats

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/nerdneilsfield/latex-translator/pkg/masking"
	"github.com/nerdneilsfield/latex-translator/pkg/providers"
)

// StatisticsMiddleware 统计中间件，记录每次调用以及占位符的保留情况
type StatisticsMiddleware struct {
	next         providers.Provider
	statsManager *StatsManager
	modelName    string
	scheme       masking.TokenScheme
}

var _ providers.Provider = (*StatisticsMiddleware)(nil)

// NewStatisticsMiddleware 创建统计中间件
func NewStatisticsMiddleware(next providers.Provider, statsManager *StatsManager, modelName string, scheme masking.TokenScheme) *StatisticsMiddleware {
	return &StatisticsMiddleware{
		next:         next,
		statsManager: statsManager,
		modelName:    modelName,
		scheme:       scheme,
	}
}

// Translate 带统计的翻译方法
func (sm *StatisticsMiddleware) Translate(ctx context.Context, req *providers.ProviderRequest) (*providers.ProviderResponse, error) {
	startTime := time.Now()
	resp, err := sm.next.Translate(ctx, req)
	latency := time.Since(startTime)

	result := RequestResult{
		Success:    err == nil,
		Latency:    latency,
		Characters: utf8.RuneCountInString(req.Text),
	}
	sent := sm.scheme.TokenIDs(req.Text)
	result.PlaceholdersSent = len(sent)

	if err != nil {
		result.ErrorType = classifyError(err)
	} else if resp != nil {
		result.TokensIn = resp.TokensIn
		result.TokensOut = resp.TokensOut
		result.PlaceholdersLost, result.PlaceholdersExtra = comparePlaceholders(sent, sm.scheme.TokenIDs(resp.Text))
	}

	sm.statsManager.RecordRequest(sm.next.GetName(), sm.modelName, result)
	return resp, err
}

// GetName 获取提供商名称
func (sm *StatisticsMiddleware) GetName() string {
	return sm.next.GetName()
}

// GetCapabilities 获取提供商能力
func (sm *StatisticsMiddleware) GetCapabilities() providers.Capabilities {
	return sm.next.GetCapabilities()
}

// HealthCheck 健康检查
func (sm *StatisticsMiddleware) HealthCheck(ctx context.Context) error {
	return sm.next.HealthCheck(ctx)
}

// comparePlaceholders 比较请求和响应中的占位符，返回缺失数和多余数
func comparePlaceholders(sent, received []int) (lost, extra int) {
	want := make(map[int]int, len(sent))
	for _, id := range sent {
		want[id]++
	}
	for _, id := range received {
		if want[id] > 0 {
			want[id]--
			continue
		}
		extra++
	}
	for _, n := range want {
		lost += n
	}
	return lost, extra
}

func classifyError(err error) string {
	var pe *providers.Error
	switch {
	case errors.As(err, &pe):
		return pe.Code
	case errors.Is(err, context.DeadlineExceeded):
		return providers.CodeTimeout
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "unknown"
	}
}
