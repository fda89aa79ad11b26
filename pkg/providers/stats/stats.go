package stats

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"go.uber.org/zap"
)

// ProviderStats 提供商统计
type ProviderStats struct {
	ProviderName       string `json:"provider_name"`
	ModelName          string `json:"model_name"`
	TotalRequests      int64  `json:"total_requests"`
	SuccessfulRequests int64  `json:"successful_requests"`
	FailedRequests     int64  `json:"failed_requests"`
	TotalTokensIn      int64  `json:"total_tokens_in"`
	TotalTokensOut     int64  `json:"total_tokens_out"`
	TotalCharacters    int64  `json:"total_characters"`

	// 占位符保留情况
	PlaceholdersSent    int64 `json:"placeholders_sent"`
	PlaceholdersLost    int64 `json:"placeholders_lost"`
	PlaceholdersExtra   int64 `json:"placeholders_extra"`
	ChunksWithLostMarks int64 `json:"chunks_with_lost_marks"`

	// 性能指标
	AverageLatency time.Duration `json:"average_latency"`
	MinLatency     time.Duration `json:"min_latency"`
	MaxLatency     time.Duration `json:"max_latency"`
	TotalLatency   time.Duration `json:"total_latency"`

	// 按错误类型统计
	ErrorTypes map[string]int64 `json:"error_types"`

	FirstRequestTime time.Time `json:"first_request_time"`
	LastRequestTime  time.Time `json:"last_request_time"`

	mu sync.RWMutex
}

// RequestResult 单次请求结果
type RequestResult struct {
	Success           bool
	Latency           time.Duration
	TokensIn          int
	TokensOut         int
	Characters        int
	ErrorType         string
	PlaceholdersSent  int // 请求中的占位符数
	PlaceholdersLost  int // 响应中缺失的占位符数
	PlaceholdersExtra int // 响应中多出的占位符数（未知或重复）
}

// Metrics 派生指标
type Metrics struct {
	SuccessRate       float64
	ErrorRate         float64
	PlaceholderRate   float64 // 占位符保留率
	AverageLatencyMS  int64
	CharactersPerCall float64
}

// StatsManager 统计管理器
type StatsManager struct {
	stats  map[string]*ProviderStats // key: provider:model
	dbPath string
	logger *zap.Logger
	mu     sync.RWMutex
}

// NewStatsManager 创建统计管理器，dbPath 为空时不持久化
func NewStatsManager(dbPath string, logger *zap.Logger) *StatsManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatsManager{
		stats:  make(map[string]*ProviderStats),
		dbPath: dbPath,
		logger: logger,
	}
}

func (sm *StatsManager) getKey(provider, model string) string {
	return fmt.Sprintf("%s:%s", provider, model)
}

func (sm *StatsManager) getOrCreateStats(provider, model string) *ProviderStats {
	key := sm.getKey(provider, model)

	sm.mu.Lock()
	defer sm.mu.Unlock()

	if stats, exists := sm.stats[key]; exists {
		return stats
	}
	stats := &ProviderStats{
		ProviderName: provider,
		ModelName:    model,
		ErrorTypes:   make(map[string]int64),
	}
	sm.stats[key] = stats
	return stats
}

// RecordRequest 记录请求结果
func (sm *StatsManager) RecordRequest(provider, model string, result RequestResult) {
	stats := sm.getOrCreateStats(provider, model)

	stats.mu.Lock()
	defer stats.mu.Unlock()

	now := time.Now()
	if stats.FirstRequestTime.IsZero() {
		stats.FirstRequestTime = now
	}
	stats.LastRequestTime = now

	stats.TotalRequests++
	if result.Success {
		stats.SuccessfulRequests++
	} else {
		stats.FailedRequests++
		if result.ErrorType != "" {
			stats.ErrorTypes[result.ErrorType]++
		}
	}

	stats.TotalTokensIn += int64(result.TokensIn)
	stats.TotalTokensOut += int64(result.TokensOut)
	stats.TotalCharacters += int64(result.Characters)

	stats.PlaceholdersSent += int64(result.PlaceholdersSent)
	stats.PlaceholdersLost += int64(result.PlaceholdersLost)
	stats.PlaceholdersExtra += int64(result.PlaceholdersExtra)
	if result.PlaceholdersLost > 0 {
		stats.ChunksWithLostMarks++
	}

	stats.TotalLatency += result.Latency
	if stats.MinLatency == 0 || result.Latency < stats.MinLatency {
		stats.MinLatency = result.Latency
	}
	if result.Latency > stats.MaxLatency {
		stats.MaxLatency = result.Latency
	}
	stats.AverageLatency = stats.TotalLatency / time.Duration(stats.TotalRequests)
}

// GetStats 获取指定提供商的统计副本
func (sm *StatsManager) GetStats(provider, model string) *ProviderStats {
	sm.mu.RLock()
	stats, exists := sm.stats[sm.getKey(provider, model)]
	sm.mu.RUnlock()
	if !exists {
		return nil
	}
	return stats.snapshot()
}

// GetAllStats 获取所有统计信息
func (sm *StatsManager) GetAllStats() map[string]*ProviderStats {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	result := make(map[string]*ProviderStats, len(sm.stats))
	for key, stats := range sm.stats {
		result[key] = stats.snapshot()
	}
	return result
}

func (ps *ProviderStats) snapshot() *ProviderStats {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	cp := &ProviderStats{
		ProviderName:        ps.ProviderName,
		ModelName:           ps.ModelName,
		TotalRequests:       ps.TotalRequests,
		SuccessfulRequests:  ps.SuccessfulRequests,
		FailedRequests:      ps.FailedRequests,
		TotalTokensIn:       ps.TotalTokensIn,
		TotalTokensOut:      ps.TotalTokensOut,
		TotalCharacters:     ps.TotalCharacters,
		PlaceholdersSent:    ps.PlaceholdersSent,
		PlaceholdersLost:    ps.PlaceholdersLost,
		PlaceholdersExtra:   ps.PlaceholdersExtra,
		ChunksWithLostMarks: ps.ChunksWithLostMarks,
		AverageLatency:      ps.AverageLatency,
		MinLatency:          ps.MinLatency,
		MaxLatency:          ps.MaxLatency,
		TotalLatency:        ps.TotalLatency,
		ErrorTypes:          make(map[string]int64, len(ps.ErrorTypes)),
		FirstRequestTime:    ps.FirstRequestTime,
		LastRequestTime:     ps.LastRequestTime,
	}
	for k, v := range ps.ErrorTypes {
		cp.ErrorTypes[k] = v
	}
	return cp
}

// CalculateMetrics 计算派生指标
func (ps *ProviderStats) CalculateMetrics() Metrics {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	m := Metrics{
		AverageLatencyMS: ps.AverageLatency.Milliseconds(),
		PlaceholderRate:  100,
	}
	if ps.TotalRequests > 0 {
		m.SuccessRate = float64(ps.SuccessfulRequests) / float64(ps.TotalRequests) * 100
		m.ErrorRate = float64(ps.FailedRequests) / float64(ps.TotalRequests) * 100
		m.CharactersPerCall = float64(ps.TotalCharacters) / float64(ps.TotalRequests)
	}
	if ps.PlaceholdersSent > 0 {
		m.PlaceholderRate = float64(ps.PlaceholdersSent-ps.PlaceholdersLost) / float64(ps.PlaceholdersSent) * 100
	}
	return m
}

// SaveToDB 保存统计数据
func (sm *StatsManager) SaveToDB() error {
	if sm.dbPath == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(sm.dbPath), 0o755); err != nil {
		return fmt.Errorf("failed to create stats directory: %w", err)
	}

	jsonData, err := json.MarshalIndent(sm.GetAllStats(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal stats data: %w", err)
	}

	tempPath := sm.dbPath + ".tmp"
	if err := os.WriteFile(tempPath, jsonData, 0o644); err != nil {
		return fmt.Errorf("failed to write stats file: %w", err)
	}
	if err := os.Rename(tempPath, sm.dbPath); err != nil {
		return fmt.Errorf("failed to rename stats file: %w", err)
	}

	sm.logger.Debug("stats saved", zap.String("path", sm.dbPath))
	return nil
}

// LoadFromDB 加载统计数据，文件不存在时从零开始
func (sm *StatsManager) LoadFromDB() error {
	if sm.dbPath == "" {
		return nil
	}
	data, err := os.ReadFile(sm.dbPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read stats file: %w", err)
	}

	var statsData map[string]*ProviderStats
	if err := json.Unmarshal(data, &statsData); err != nil {
		return fmt.Errorf("failed to unmarshal stats data: %w", err)
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()
	for key, stats := range statsData {
		if stats.ErrorTypes == nil {
			stats.ErrorTypes = make(map[string]int64)
		}
		sm.stats[key] = stats
	}

	sm.logger.Debug("stats loaded", zap.String("path", sm.dbPath), zap.Int("providers", len(statsData)))
	return nil
}

// RenderTable 以表格形式输出统计
func (sm *StatsManager) RenderTable(w io.Writer) {
	allStats := sm.GetAllStats()
	keys := make([]string, 0, len(allStats))
	for k := range allStats {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle("Provider Statistics")
	t.AppendHeader(table.Row{"Provider", "Model", "Requests", "Success%", "Placeholders%", "Lost", "Avg Latency", "Chars"})
	for _, k := range keys {
		s := allStats[k]
		m := s.CalculateMetrics()
		t.AppendRow(table.Row{
			s.ProviderName,
			s.ModelName,
			s.TotalRequests,
			fmt.Sprintf("%.1f", m.SuccessRate),
			fmt.Sprintf("%.1f", m.PlaceholderRate),
			s.PlaceholdersLost,
			fmt.Sprintf("%dms", m.AverageLatencyMS),
			s.TotalCharacters,
		})
	}
	t.Render()
}

// AutoSaveRoutine 定期自动保存统计数据，ctx 结束时再保存一次
func (sm *StatsManager) AutoSaveRoutine(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if err := sm.SaveToDB(); err != nil {
				sm.logger.Error("failed to save stats on shutdown", zap.Error(err))
			}
			return
		case <-ticker.C:
			if err := sm.SaveToDB(); err != nil {
				sm.logger.Error("failed to auto-save stats", zap.Error(err))
			}
		}
	}
}
