package document

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Format 文档格式
type Format string

const (
	// FormatLaTeX LaTeX 源文件，翻译前需要遮蔽
	FormatLaTeX Format = "latex"
	// FormatText 纯文本，整体提交翻译
	FormatText Format = "text"
)

// Masked 该格式是否需要遮蔽
func (f Format) Masked() bool {
	return f == FormatLaTeX
}

// Registry 文件扩展名到格式的映射
type Registry struct {
	mu         sync.RWMutex
	extensions map[string]Format
}

// globalRegistry 全局注册表实例
var globalRegistry = NewRegistry()

// NewRegistry 创建预置 LaTeX 扩展名的注册表
func NewRegistry() *Registry {
	r := &Registry{extensions: make(map[string]Format)}
	for _, ext := range []string{"tex", "ltx", "latex", "sty", "cls", "bbx", "cbx"} {
		r.RegisterExtension(ext, FormatLaTeX)
	}
	for _, ext := range []string{"txt", "text"} {
		r.RegisterExtension(ext, FormatText)
	}
	return r
}

// RegisterExtension 注册文件扩展名
func RegisterExtension(ext string, format Format) {
	globalRegistry.RegisterExtension(ext, format)
}

// FormatOf 根据文件扩展名判断格式
func FormatOf(filename string) (Format, bool) {
	return globalRegistry.FormatOf(filename)
}

// RegisterExtension 注册文件扩展名映射
func (r *Registry) RegisterExtension(ext string, format Format) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// 标准化扩展名（去除点号，转小写）
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	r.extensions[ext] = format
}

// FormatOf 根据文件扩展名判断格式，未注册的扩展名返回 false
func (r *Registry) FormatOf(filename string) (Format, bool) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if ext == "" {
		return "", false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	format, ok := r.extensions[ext]
	return format, ok
}

// Extensions 返回某格式的所有扩展名
func (r *Registry) Extensions(format Format) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var exts []string
	for ext, f := range r.extensions {
		if f == format {
			exts = append(exts, ext)
		}
	}
	sort.Strings(exts)
	return exts
}
