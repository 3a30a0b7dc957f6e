package state

import (
	"context"
	"strconv"
	"sync"
)

const routineLockStorageKey = "routine_isLocked"

// RoutineLockStore 课表锁，锁定期间禁止重新生成
type RoutineLockStore struct {
	mu      sync.RWMutex
	locked  bool
	persist persister
}

// NewRoutineLockStore 加载持久化的锁状态，只有 "true" 视为锁定
func NewRoutineLockStore(ctx context.Context, deps Deps) *RoutineLockStore {
	deps = deps.withDefaults()
	s := &RoutineLockStore{persist: newPersister(deps)}
	if raw, ok := s.persist.load(ctx, routineLockStorageKey); ok {
		s.locked = raw == "true"
	}
	return s
}

// IsLocked 当前是否锁定
func (s *RoutineLockStore) IsLocked() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.locked
}

// SetLocked 设置锁并以 "true"/"false" 持久化
func (s *RoutineLockStore) SetLocked(ctx context.Context, locked bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locked = locked
	s.persist.saveRaw(ctx, routineLockStorageKey, strconv.FormatBool(locked))
	return s.locked
}
