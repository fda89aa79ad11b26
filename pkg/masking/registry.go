package masking

// Registry 占位符注册表
//
// ID 从 0 开始顺序分配，稠密且不复用；已分配 ID 的原文不可修改。
// 注册表只在遮蔽阶段写入，还原阶段只读，不做并发保护。
type Registry struct {
	entries []string
}

// NewRegistry 创建空注册表
func NewRegistry() *Registry {
	return &Registry{entries: make([]string, 0, 64)}
}

// Add 记录原文并返回新分配的 ID
func (r *Registry) Add(original string) int {
	r.entries = append(r.entries, original)
	return len(r.entries) - 1
}

// Get 获取 ID 对应的原文
func (r *Registry) Get(id int) (string, bool) {
	if id < 0 || id >= len(r.entries) {
		return "", false
	}
	return r.entries[id], true
}

// Len 已分配的 ID 数量
func (r *Registry) Len() int {
	return len(r.entries)
}

// Entries 返回原文列表的副本，下标即 ID
func (r *Registry) Entries() []string {
	out := make([]string, len(r.entries))
	copy(out, r.entries)
	return out
}

// registryFromEntries 由有序原文列表重建注册表
func registryFromEntries(entries []string) *Registry {
	r := &Registry{entries: make([]string, len(entries))}
	copy(r.entries, entries)
	return r
}
