package state

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"go.uber.org/zap"
)

const availabilityStorageKey = "teacherAvailability"

// AvailabilityState 教师出勤表，缺省视为在岗
type AvailabilityState struct {
	Map map[string]bool `json:"map"`
}

// NewAvailabilityState 空出勤表
func NewAvailabilityState() AvailabilityState {
	return AvailabilityState{Map: map[string]bool{}}
}

func (s AvailabilityState) clone() AvailabilityState {
	out := AvailabilityState{Map: make(map[string]bool, len(s.Map))}
	for k, v := range s.Map {
		out.Map[k] = v
	}
	return out
}

// IsAvailable 未记录的教师视为在岗
func (s AvailabilityState) IsAvailable(teacherID string) bool {
	v, ok := s.Map[strings.TrimSpace(teacherID)]
	return !ok || v
}

// ── 动作 ──

// AvailabilityAction 出勤表的动作
type AvailabilityAction interface {
	applyAvailability(s AvailabilityState) AvailabilityState
}

// SetTeacherStatus 设置教师出勤
type SetTeacherStatus struct {
	TeacherID string
	IsOn      bool
}

func (a SetTeacherStatus) applyAvailability(s AvailabilityState) AvailabilityState {
	id := strings.TrimSpace(a.TeacherID)
	if id == "" {
		return s
	}
	s.Map[id] = a.IsOn
	return s
}

// ToggleTeacherStatus 切换教师出勤；未记录视为在岗，切换后为缺勤
type ToggleTeacherStatus struct {
	TeacherID string
}

func (a ToggleTeacherStatus) applyAvailability(s AvailabilityState) AvailabilityState {
	id := strings.TrimSpace(a.TeacherID)
	if id == "" {
		return s
	}
	s.Map[id] = !s.IsAvailable(id)
	return s
}

// BulkSetAvailability 合并写入多位教师的出勤
type BulkSetAvailability struct {
	Values map[string]bool
}

func (a BulkSetAvailability) applyAvailability(s AvailabilityState) AvailabilityState {
	for k, v := range a.Values {
		if id := strings.TrimSpace(k); id != "" {
			s.Map[id] = v
		}
	}
	return s
}

// ResetAvailability 清空出勤表
type ResetAvailability struct{}

func (ResetAvailability) applyAvailability(AvailabilityState) AvailabilityState {
	return NewAvailabilityState()
}

// ReduceAvailability 纯函数：不修改入参
func ReduceAvailability(s AvailabilityState, a AvailabilityAction) AvailabilityState {
	return a.applyAvailability(s.clone())
}

// ── 容器 ──

// AvailabilityStore 教师出勤容器
type AvailabilityStore struct {
	mu      sync.RWMutex
	state   AvailabilityState
	persist persister
}

// NewAvailabilityStore 加载持久化出勤表
func NewAvailabilityStore(ctx context.Context, deps Deps) *AvailabilityStore {
	deps = deps.withDefaults()
	s := &AvailabilityStore{
		state:   NewAvailabilityState(),
		persist: newPersister(deps),
	}
	if raw, ok := s.persist.load(ctx, availabilityStorageKey); ok {
		var loaded AvailabilityState
		if err := json.Unmarshal([]byte(raw), &loaded); err != nil {
			deps.Logger.Warn("教师出勤数据格式无效，已忽略", zap.Error(err))
		} else if loaded.Map != nil {
			s.state = loaded
		}
	}
	return s
}

// Snapshot 返回状态副本
func (s *AvailabilityStore) Snapshot() AvailabilityState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

// Dispatch 应用动作并持久化，返回新状态副本
func (s *AvailabilityStore) Dispatch(ctx context.Context, action AvailabilityAction) AvailabilityState {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = ReduceAvailability(s.state, action)
	if _, reset := action.(ResetAvailability); reset {
		s.persist.remove(ctx, availabilityStorageKey)
	} else {
		s.persist.saveJSON(ctx, availabilityStorageKey, s.state)
	}
	return s.state.clone()
}
