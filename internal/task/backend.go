package task

import (
	"context"
	"sync"
)

// Backend 抽象了任务集合的持久化。每次写入都替换全部内容。
type Backend interface {
	// Load 按插入顺序返回已持久化的记录；尚无数据时返回 (nil, nil)。
	Load(ctx context.Context) ([]Record, error)
	// Save 一次性写入完整的记录集合。
	Save(ctx context.Context, records []Record) error
	Close() error
}

// MemoryBackend 以内存方式保存快照，主要用于测试。
type MemoryBackend struct {
	mu      sync.RWMutex
	records []Record
	saves   int
	failErr error
}

// NewMemoryBackend 创建 MemoryBackend，可选地预置初始记录。
func NewMemoryBackend(initial ...Record) *MemoryBackend {
	return &MemoryBackend{records: cloneRecords(initial)}
}

// Load 实现 Backend 接口。
func (m *MemoryBackend) Load(_ context.Context) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.records) == 0 {
		return nil, nil
	}
	return cloneRecords(m.records), nil
}

// Save 实现 Backend 接口。
func (m *MemoryBackend) Save(_ context.Context, records []Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return m.failErr
	}
	m.records = cloneRecords(records)
	m.saves++
	return nil
}

// Saves 返回成功写入的次数。
func (m *MemoryBackend) Saves() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves
}

// FailWith 让后续的 Save 返回 err；传入 nil 恢复正常。
func (m *MemoryBackend) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failErr = err
}

// Close 对内存存储无需操作。
func (m *MemoryBackend) Close() error {
	return nil
}

func cloneRecords(records []Record) []Record {
	if records == nil {
		return nil
	}
	cloned := make([]Record, len(records))
	for i, rec := range records {
		cloned[i] = rec.Clone()
	}
	return cloned
}

var _ Backend = (*MemoryBackend)(nil)
