package state

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const classOffStorageKey = "classOffMap"

// ClassOffRecord 停课记录，存在即表示停课
type ClassOffRecord struct {
	Status bool   `json:"status"`
	Reason string `json:"reason"`
}

// ClassOffState 停课记录表
type ClassOffState struct {
	OffMap map[string]ClassOffRecord `json:"offMap"`
}

// NewClassOffState 空记录表
func NewClassOffState() ClassOffState {
	return ClassOffState{OffMap: map[string]ClassOffRecord{}}
}

func (s ClassOffState) clone() ClassOffState {
	out := ClassOffState{OffMap: make(map[string]ClassOffRecord, len(s.OffMap))}
	for k, v := range s.OffMap {
		out.OffMap[k] = v
	}
	return out
}

// Lookup 查询停课记录
func (s ClassOffState) Lookup(key ClassKey) (ClassOffRecord, bool) {
	rec, ok := s.OffMap[key.String()]
	if !ok || !rec.Status {
		return ClassOffRecord{}, false
	}
	return rec, true
}

// ClassOffEntry 停课记录及其解析后的键
type ClassOffEntry struct {
	Key    ClassKey       `json:"key"`
	Record ClassOffRecord `json:"record"`
}

// Entries 按键排序列出所有记录
func (s ClassOffState) Entries() []ClassOffEntry {
	keys := make([]string, 0, len(s.OffMap))
	for k := range s.OffMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]ClassOffEntry, 0, len(keys))
	for _, k := range keys {
		ck, _ := ParseClassKey(k)
		out = append(out, ClassOffEntry{Key: ck, Record: s.OffMap[k]})
	}
	return out
}

// ── 动作 ──

// ClassOffAction 停课记录表的动作
type ClassOffAction interface {
	applyClassOff(s ClassOffState) ClassOffState
}

// MarkOff 标记停课；教师或开始时间为空时不做任何事
type MarkOff struct {
	Key    ClassKey
	Reason string
}

func (a MarkOff) applyClassOff(s ClassOffState) ClassOffState {
	if !a.Key.Valid() {
		return s
	}
	reason := strings.TrimSpace(a.Reason)
	if reason == "" {
		reason = DefaultReason
	}
	s.OffMap[a.Key.String()] = ClassOffRecord{Status: true, Reason: reason}
	return s
}

// MarkOn 恢复上课；键不存在时不做任何事
type MarkOn struct {
	Key ClassKey
}

func (a MarkOn) applyClassOff(s ClassOffState) ClassOffState {
	delete(s.OffMap, a.Key.String())
	return s
}

// CleanupForDay 只保留日期前缀等于 Today 的记录
type CleanupForDay struct {
	Today string
}

func (a CleanupForDay) applyClassOff(s ClassOffState) ClassOffState {
	prefix := a.Today + keySeparator
	for k := range s.OffMap {
		if !strings.HasPrefix(k, prefix) {
			delete(s.OffMap, k)
		}
	}
	return s
}

// ResetClassOff 清空全部记录
type ResetClassOff struct{}

func (ResetClassOff) applyClassOff(ClassOffState) ClassOffState {
	return NewClassOffState()
}

// ReduceClassOff 纯函数：不修改入参
func ReduceClassOff(s ClassOffState, a ClassOffAction) ClassOffState {
	return a.applyClassOff(s.clone())
}

// ── 容器 ──

// ClassOffStore 停课记录容器
type ClassOffStore struct {
	mu      sync.RWMutex
	state   ClassOffState
	persist persister
	clock   Clock
	logger  *zap.Logger
}

// NewClassOffStore 加载持久化记录并清理非当天数据
func NewClassOffStore(ctx context.Context, deps Deps) *ClassOffStore {
	deps = deps.withDefaults()
	s := &ClassOffStore{
		state:   NewClassOffState(),
		persist: newPersister(deps),
		clock:   deps.Clock,
		logger:  deps.Logger,
	}

	if raw, ok := s.persist.load(ctx, classOffStorageKey); ok {
		loaded, err := decodeClassOff(raw)
		if err != nil {
			s.logger.Warn("停课记录格式无效，已忽略", zap.Error(err))
		} else {
			s.state = loaded
		}
	}

	before := len(s.state.OffMap)
	s.state = ReduceClassOff(s.state, CleanupForDay{Today: s.Today()})
	if len(s.state.OffMap) != before {
		s.persist.saveJSON(ctx, classOffStorageKey, s.state)
	}
	return s
}

// Today 当前本地日期
func (s *ClassOffStore) Today() string {
	return LocalDate(s.clock())
}

// Snapshot 返回状态副本
func (s *ClassOffStore) Snapshot() ClassOffState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

// Dispatch 应用动作并持久化，返回新状态副本
func (s *ClassOffStore) Dispatch(ctx context.Context, action ClassOffAction) ClassOffState {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = ReduceClassOff(s.state, action)
	if _, reset := action.(ResetClassOff); reset {
		s.persist.remove(ctx, classOffStorageKey)
	} else {
		s.persist.saveJSON(ctx, classOffStorageKey, s.state)
	}
	return s.state.clone()
}

// KeyFor 以指定日期（nil 表示今天）构造键
func (s *ClassOffStore) KeyFor(slot Slot, date *time.Time) ClassKey {
	d := s.Today()
	if date != nil {
		d = LocalDate(*date)
	}
	return KeyFor(d, slot)
}

// MarkOff 标记停课，返回使用的键；slot 不完整时 applied=false
func (s *ClassOffStore) MarkOff(ctx context.Context, slot Slot, reason string, date *time.Time) (ClassKey, bool) {
	key := s.KeyFor(slot, date)
	if !key.Valid() {
		return key, false
	}
	s.Dispatch(ctx, MarkOff{Key: key, Reason: reason})
	return key, true
}

// MarkOn 恢复上课
func (s *ClassOffStore) MarkOn(ctx context.Context, slot Slot, date *time.Time) ClassKey {
	key := s.KeyFor(slot, date)
	s.Dispatch(ctx, MarkOn{Key: key})
	return key
}

// Cleanup 清理非当天记录，返回移除数量
func (s *ClassOffStore) Cleanup(ctx context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := len(s.state.OffMap)
	s.state = ReduceClassOff(s.state, CleanupForDay{Today: s.Today()})
	removed := before - len(s.state.OffMap)
	if removed > 0 {
		s.persist.saveJSON(ctx, classOffStorageKey, s.state)
	}
	return removed
}

// Reset 清空全部记录并删除持久化数据
func (s *ClassOffStore) Reset(ctx context.Context) {
	s.Dispatch(ctx, ResetClassOff{})
}

// decodeClassOff 兼容旧格式：无 offMap 包装的裸表、布尔值记录
func decodeClassOff(raw string) (ClassOffState, error) {
	var envelope struct {
		OffMap map[string]json.RawMessage `json:"offMap"`
	}
	if err := json.Unmarshal([]byte(raw), &envelope); err != nil {
		return ClassOffState{}, err
	}
	entries := envelope.OffMap
	if entries == nil {
		if err := json.Unmarshal([]byte(raw), &entries); err != nil {
			return ClassOffState{}, err
		}
	}

	out := NewClassOffState()
	for k, v := range entries {
		if _, ok := ParseClassKey(k); !ok {
			continue
		}
		var flag bool
		if json.Unmarshal(v, &flag) == nil {
			if flag {
				out.OffMap[k] = ClassOffRecord{Status: true, Reason: DefaultReason}
			}
			continue
		}
		var rec ClassOffRecord
		if json.Unmarshal(v, &rec) != nil || !rec.Status {
			continue
		}
		if strings.TrimSpace(rec.Reason) == "" {
			rec.Reason = DefaultReason
		}
		out.OffMap[k] = rec
	}
	return out, nil
}
