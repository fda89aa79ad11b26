package providers

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Factory 根据配置创建提供商
type Factory func(settings Settings) (Provider, error)

type registration struct {
	factory     Factory
	description string
}

// Registry 提供商注册表
type Registry struct {
	mu        sync.RWMutex
	factories map[string]registration
}

// NewRegistry 创建新的注册表
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]registration),
	}
}

// Register 注册提供商工厂
func (r *Registry) Register(name, description string, factory Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return fmt.Errorf("provider name must not be empty")
	}
	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("provider %s already registered", name)
	}

	r.factories[name] = registration{factory: factory, description: description}
	return nil
}

// Create 创建提供商
func (r *Registry) Create(name string, settings Settings) (Provider, error) {
	r.mu.RLock()
	reg, exists := r.factories[strings.ToLower(strings.TrimSpace(name))]
	r.mu.RUnlock()

	if !exists {
		return nil, &UnknownProviderError{Name: name, Suggestions: r.Suggest(name)}
	}
	return reg.factory(settings.WithDefaults())
}

// Has 是否已注册
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

// Describe 返回提供商说明
func (r *Registry) Describe(name string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.factories[strings.ToLower(strings.TrimSpace(name))].description
}

// List 按名称排序列出所有提供商
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Suggest 为拼写错误的名称给出候选项，按相似度排序
func (r *Registry) Suggest(name string) []string {
	names := r.List()
	query := strings.ToLower(strings.TrimSpace(name))
	if query == "" {
		return nil
	}

	ranks := fuzzy.RankFindNormalizedFold(query, names)
	// 反向匹配：输入比名称长，如 "googletranslate"
	for _, n := range names {
		if fuzzy.MatchNormalizedFold(n, query) {
			ranks = append(ranks, fuzzy.Rank{Source: n, Target: n, Distance: len(query) - len(n)})
		}
	}
	sort.Sort(ranks)

	seen := make(map[string]bool)
	var out []string
	for _, rank := range ranks {
		if !seen[rank.Target] {
			seen[rank.Target] = true
			out = append(out, rank.Target)
		}
	}
	return out
}

// UnknownProviderError 未注册的提供商
type UnknownProviderError struct {
	Name        string
	Suggestions []string
}

func (e *UnknownProviderError) Error() string {
	if len(e.Suggestions) > 0 {
		return fmt.Sprintf("unknown provider %q, did you mean %s?", e.Name, strings.Join(e.Suggestions, ", "))
	}
	return fmt.Sprintf("unknown provider %q", e.Name)
}
