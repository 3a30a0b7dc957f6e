// Package optimistic 实现"先本地修改、后提交后端"的列表更新。
//
// 流程：本地立即修改（pending）→ 提交成功后以后端数据刷新（confirmed），
// 提交失败则恢复修改前的快照（reverted）。同一列表的修改按顺序提交，
// 后一次修改的快照总在前一次结束之后获取。
package optimistic

import (
	"context"
	"slices"
	"sync"
)

// Phase 修改所处阶段
type Phase string

const (
	PhasePending   Phase = "pending"
	PhaseConfirmed Phase = "confirmed"
	PhaseReverted  Phase = "reverted"
)

// List 前端展示的列表副本
type List[T any] struct {
	// commit 串行化 Apply；读取只需 mu，提交期间可见 pending 列表
	commit sync.Mutex
	mu     sync.RWMutex
	items  []T
	phase  Phase
}

// NewList 以初始数据创建列表
func NewList[T any](items []T) *List[T] {
	return &List[T]{items: slices.Clone(items), phase: PhaseConfirmed}
}

// Items 返回当前列表副本
func (l *List[T]) Items() []T {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.items)
}

// Phase 最近一次修改的阶段
func (l *List[T]) Phase() Phase {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.phase
}

// Replace 以后端数据整体替换
func (l *List[T]) Replace(items []T) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = slices.Clone(items)
}

// Outcome 一次乐观修改的结果
type Outcome[T any] struct {
	Phase Phase
	Items []T
	// Err 提交失败的原因，Phase=reverted 时非 nil
	Err error
	// RefreshErr 提交成功但刷新失败，此时保留乐观修改后的列表
	RefreshErr error
}

// Mutation 对列表副本的本地修改
type Mutation[T any] func(items []T) []T

// Apply 执行一次乐观修改
// commit 提交后端；refresh 为 nil 时不刷新。
// 同一列表上的 Apply 依次执行，失败的修改不会被后续回滚重新带回
func Apply[T any](
	ctx context.Context,
	l *List[T],
	mutate Mutation[T],
	commit func(ctx context.Context) error,
	refresh func(ctx context.Context) ([]T, error),
) Outcome[T] {
	l.commit.Lock()
	defer l.commit.Unlock()

	l.mu.Lock()
	snapshot := slices.Clone(l.items)
	l.items = mutate(slices.Clone(l.items))
	l.phase = PhasePending
	l.mu.Unlock()

	if err := commit(ctx); err != nil {
		l.mu.Lock()
		l.items = snapshot
		l.phase = PhaseReverted
		items := slices.Clone(l.items)
		l.mu.Unlock()
		return Outcome[T]{Phase: PhaseReverted, Items: items, Err: err}
	}

	var refreshErr error
	if refresh != nil {
		fresh, err := refresh(ctx)
		if err != nil {
			refreshErr = err
		} else {
			l.Replace(fresh)
		}
	}

	l.mu.Lock()
	l.phase = PhaseConfirmed
	items := slices.Clone(l.items)
	l.mu.Unlock()
	return Outcome[T]{Phase: PhaseConfirmed, Items: items, RefreshErr: refreshErr}
}

// ── 常用修改 ──

// Append 末尾追加
func Append[T any](item T) Mutation[T] {
	return func(items []T) []T {
		return append(items, item)
	}
}

// ReplaceWhere 替换满足条件的元素
func ReplaceWhere[T any](match func(T) bool, update func(T) T) Mutation[T] {
	return func(items []T) []T {
		for i := range items {
			if match(items[i]) {
				items[i] = update(items[i])
			}
		}
		return items
	}
}

// RemoveWhere 删除满足条件的元素
func RemoveWhere[T any](match func(T) bool) Mutation[T] {
	return func(items []T) []T {
		return slices.DeleteFunc(items, match)
	}
}
