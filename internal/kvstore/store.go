// Package kvstore 提供状态容器使用的键值持久化能力。
//
// 所有操作都可能失败，调用方（状态容器）负责记录日志并保持内存状态为准。
package kvstore

import (
	"context"
	"sync"
)

// Store 键值存储能力
type Store interface {
	// Get 读取键值，键不存在时 ok=false 且 err=nil
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	// Remove 删除键，键不存在不视为错误
	Remove(ctx context.Context, key string) error
}

// ── 内存实现 ──

// Memory 进程内存储，重启后丢失
type Memory struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemory 创建内存存储
func NewMemory() *Memory {
	return &Memory{data: make(map[string]string)}
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *Memory) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// Len 当前键数量
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

// ── 前缀隔离 ──

type scoped struct {
	inner  Store
	prefix string
}

// Scoped 为所有键加上前缀，用于区分会话与工作区
func Scoped(inner Store, prefix string) Store {
	if prefix == "" {
		return inner
	}
	return &scoped{inner: inner, prefix: prefix}
}

func (s *scoped) Get(ctx context.Context, key string) (string, bool, error) {
	return s.inner.Get(ctx, s.prefix+key)
}

func (s *scoped) Set(ctx context.Context, key, value string) error {
	return s.inner.Set(ctx, s.prefix+key, value)
}

func (s *scoped) Remove(ctx context.Context, key string) error {
	return s.inner.Remove(ctx, s.prefix+key)
}
