package masking

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// SnapshotVersion 当前快照格式版本
const SnapshotVersion = 1

// Snapshot 注册表的持久化形式，用于遮蔽与还原分别在不同进程中执行的场景
type Snapshot struct {
	Version   int       `json:"version"`
	ID        string    `json:"id"`
	Sentinel  string    `json:"sentinel"`
	Trim      bool      `json:"trim"`
	CreatedAt time.Time `json:"created_at"`
	Entries   []Entry   `json:"entries"`
}

// Entry 快照中的单个注册项
type Entry struct {
	ID       int    `json:"id"`
	Original string `json:"original"`
}

// NewSnapshot 从注册表生成快照
func NewSnapshot(reg *Registry, scheme TokenScheme) *Snapshot {
	entries := make([]Entry, reg.Len())
	for id, original := range reg.entries {
		entries[id] = Entry{ID: id, Original: original}
	}
	return &Snapshot{
		Version:   SnapshotVersion,
		ID:        uuid.New().String(),
		Sentinel:  scheme.Sentinel(),
		CreatedAt: time.Now().UTC(),
		Entries:   entries,
	}
}

// Registry 重建注册表，并校验 ID 稠密有序
func (s *Snapshot) Registry() (*Registry, error) {
	if s.Version != SnapshotVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidSnapshot, s.Version)
	}
	originals := make([]string, len(s.Entries))
	for i, e := range s.Entries {
		if e.ID != i {
			return nil, fmt.Errorf("%w: entry %d has id %d, ids must be dense and ordered", ErrInvalidSnapshot, i, e.ID)
		}
		originals[i] = e.Original
	}
	return registryFromEntries(originals), nil
}

// TokenScheme 返回快照记录的编码方案
func (s *Snapshot) TokenScheme() (TokenScheme, error) {
	scheme, err := NewTokenScheme(s.Sentinel)
	if err != nil {
		return TokenScheme{}, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	return scheme, nil
}

// SaveSnapshot 写入快照文件
func SaveSnapshot(path string, s *Snapshot) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal registry snapshot: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create snapshot directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write registry snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot 读取快照文件
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read registry snapshot: %w", err)
	}
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	return &s, nil
}
