package translation

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/zeebo/blake3"
)

// Cache 分块翻译结果缓存
type Cache interface {
	// Get 获取缓存
	Get(key string) (string, bool)

	// Set 设置缓存
	Set(key string, value string) error

	// Delete 删除缓存
	Delete(key string) error

	// Clear 清除所有缓存
	Clear() error

	// Stats 获取缓存统计信息
	Stats() CacheStats
}

// CacheStats 缓存统计信息
type CacheStats struct {
	Hits   int64
	Misses int64
	Size   int64
}

// MemoryCache 内存缓存实现
type MemoryCache struct {
	data  map[string]cacheEntry
	mutex sync.Mutex
	stats CacheStats
}

// cacheEntry 缓存条目
type cacheEntry struct {
	Value     string        `json:"value"`
	Timestamp time.Time     `json:"timestamp"`
	TTL       time.Duration `json:"ttl,omitempty"`
}

func (e cacheEntry) expired() bool {
	return e.TTL > 0 && time.Since(e.Timestamp) > e.TTL
}

// NewMemoryCache 创建内存缓存
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		data: make(map[string]cacheEntry),
	}
}

// Get 获取缓存
func (c *MemoryCache) Get(key string) (string, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	entry, exists := c.data[key]
	if !exists {
		c.stats.Misses++
		return "", false
	}

	if entry.expired() {
		delete(c.data, key)
		c.stats.Size = int64(len(c.data))
		c.stats.Misses++
		return "", false
	}

	c.stats.Hits++
	return entry.Value, true
}

// Set 设置缓存
func (c *MemoryCache) Set(key string, value string) error {
	return c.SetWithTTL(key, value, 0)
}

// SetWithTTL 设置带过期时间的缓存
func (c *MemoryCache) SetWithTTL(key string, value string, ttl time.Duration) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.data[key] = cacheEntry{
		Value:     value,
		Timestamp: time.Now(),
		TTL:       ttl,
	}
	c.stats.Size = int64(len(c.data))
	return nil
}

// Delete 删除缓存
func (c *MemoryCache) Delete(key string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	delete(c.data, key)
	c.stats.Size = int64(len(c.data))
	return nil
}

// Clear 清除所有缓存
func (c *MemoryCache) Clear() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.data = make(map[string]cacheEntry)
	c.stats = CacheStats{}
	return nil
}

// Stats 获取缓存统计信息
func (c *MemoryCache) Stats() CacheStats {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return c.stats
}

// FileCache 文件缓存实现，内存缓存作为一级缓存
type FileCache struct {
	basePath string
	memory   *MemoryCache
	stats    CacheStats
	mutex    sync.Mutex
}

// NewFileCache 创建文件缓存
func NewFileCache(basePath string) (*FileCache, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create cache directory: %v", ErrCacheFailed, err)
	}
	return &FileCache{
		basePath: basePath,
		memory:   NewMemoryCache(),
	}, nil
}

// getFilePath 获取缓存文件路径；key 已是哈希，直接作文件名
func (c *FileCache) getFilePath(key string) string {
	return filepath.Join(c.basePath, key+".cache")
}

// Get 获取缓存
func (c *FileCache) Get(key string) (string, bool) {
	if value, ok := c.memory.Get(key); ok {
		return value, true
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	filePath := c.getFilePath(key)
	data, err := os.ReadFile(filePath)
	if err != nil {
		c.stats.Misses++
		return "", false
	}

	var entry cacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		c.stats.Misses++
		return "", false
	}

	if entry.expired() {
		os.Remove(filePath)
		c.stats.Misses++
		return "", false
	}

	_ = c.memory.Set(key, entry.Value)
	c.stats.Hits++
	return entry.Value, true
}

// Set 设置缓存
func (c *FileCache) Set(key string, value string) error {
	return c.SetWithTTL(key, value, 0)
}

// SetWithTTL 设置带过期时间的缓存
func (c *FileCache) SetWithTTL(key string, value string, ttl time.Duration) error {
	if err := c.memory.SetWithTTL(key, value, ttl); err != nil {
		return err
	}

	data, err := json.Marshal(cacheEntry{
		Value:     value,
		Timestamp: time.Now(),
		TTL:       ttl,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCacheFailed, err)
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if err := os.WriteFile(c.getFilePath(key), data, 0o644); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheFailed, err)
	}
	c.stats.Size++
	return nil
}

// Delete 删除缓存
func (c *FileCache) Delete(key string) error {
	_ = c.memory.Delete(key)

	c.mutex.Lock()
	defer c.mutex.Unlock()

	err := os.Remove(c.getFilePath(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: %v", ErrCacheFailed, err)
	}
	if err == nil && c.stats.Size > 0 {
		c.stats.Size--
	}
	return nil
}

// Clear 清除所有缓存
func (c *FileCache) Clear() error {
	_ = c.memory.Clear()

	files, err := filepath.Glob(filepath.Join(c.basePath, "*.cache"))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCacheFailed, err)
	}
	for _, file := range files {
		os.Remove(file)
	}

	c.mutex.Lock()
	c.stats = CacheStats{}
	c.mutex.Unlock()
	return nil
}

// Stats 获取缓存统计信息
func (c *FileCache) Stats() CacheStats {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	memStats := c.memory.Stats()
	return CacheStats{
		Hits:   c.stats.Hits + memStats.Hits,
		Misses: c.stats.Misses,
		Size:   c.stats.Size,
	}
}

// CacheKeyComponents 缓存key组件
type CacheKeyComponents struct {
	Provider   string // 提供商名称 (google, deepl, etc.)
	Model      string // 模型名称，非 LLM 提供商为空
	SourceLang string
	TargetLang string
	Text       string // 待翻译分块（已遮蔽）
}

// GenerateCacheKey 生成基于多个组件的缓存key
func GenerateCacheKey(components CacheKeyComponents) string {
	h := blake3.New()
	fmt.Fprintf(h, "provider:%s|model:%s|src:%s|tgt:%s|text:",
		components.Provider,
		components.Model,
		components.SourceLang,
		components.TargetLang,
	)
	h.Write([]byte(components.Text))
	return hex.EncodeToString(h.Sum(nil))
}

// NewCache 根据配置创建缓存实例；未启用时返回 nil
func NewCache(useCache bool, cacheDir string) (Cache, error) {
	if !useCache {
		return nil, nil
	}
	if cacheDir != "" {
		fc, err := NewFileCache(cacheDir)
		if err != nil {
			return nil, err
		}
		return fc, nil
	}
	return NewMemoryCache(), nil
}
