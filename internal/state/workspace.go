package state

import (
	"context"
	"sync"

	"routine-desk/server/internal/kvstore"
)

const (
	workspacePrefix = "workspace:"
	sessionPrefix   = "session:"
)

// Workspace 所有会话共享的课表状态
type Workspace struct {
	ClassOff     *ClassOffStore
	Availability *AvailabilityStore
	Lock         *RoutineLockStore
}

// NewWorkspace 在 "workspace:" 前缀下加载共享状态
func NewWorkspace(ctx context.Context, deps Deps) *Workspace {
	deps = deps.withDefaults()
	deps.Store = kvstore.Scoped(deps.Store, workspacePrefix)
	return &Workspace{
		ClassOff:     NewClassOffStore(ctx, deps),
		Availability: NewAvailabilityStore(ctx, deps),
		Lock:         NewRoutineLockStore(ctx, deps),
	}
}

// Resolve 结合停课记录与教师出勤计算课程状态
func (w *Workspace) Resolve(key ClassKey) Resolution {
	return Resolve(w.ClassOff.Snapshot(), w.Availability.Snapshot(), key)
}

// Resolver 取一次快照，批量计算时避免重复加锁
func (w *Workspace) Resolver() func(key ClassKey) Resolution {
	off := w.ClassOff.Snapshot()
	avail := w.Availability.Snapshot()
	return func(key ClassKey) Resolution {
		return Resolve(off, avail, key)
	}
}

// Sessions 按会话 ID 管理身份容器
type Sessions struct {
	mu   sync.Mutex
	deps Deps
	auth map[string]*AuthStore
}

// NewSessions 创建会话管理器
func NewSessions(deps Deps) *Sessions {
	return &Sessions{deps: deps.withDefaults(), auth: make(map[string]*AuthStore)}
}

// Auth 获取会话身份容器，首次访问时从持久化数据恢复
func (s *Sessions) Auth(ctx context.Context, sessionID string) *AuthStore {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a, ok := s.auth[sessionID]; ok {
		return a
	}
	deps := s.deps
	deps.Store = kvstore.Scoped(deps.Store, sessionPrefix+sessionID+":")
	a := NewAuthStore(ctx, deps)
	s.auth[sessionID] = a
	return a
}

// Peek 已加载会话的身份快照；未加载的会话返回零值，不创建容器
func (s *Sessions) Peek(sessionID string) AuthState {
	s.mu.Lock()
	a, ok := s.auth[sessionID]
	s.mu.Unlock()
	if !ok {
		return AuthState{}
	}
	return a.Snapshot()
}

// Forget 释放会话容器（持久化数据由 ResetAuth 清除）
func (s *Sessions) Forget(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.auth, sessionID)
}

// Len 已加载的会话数
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.auth)
}
