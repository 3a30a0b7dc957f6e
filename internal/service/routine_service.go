package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode"

	"go.uber.org/zap"

	"routine-desk/server/config"
	"routine-desk/server/internal/dto"
	"routine-desk/server/internal/model"
	"routine-desk/server/internal/state"
	"routine-desk/server/internal/table"
)

// 课表生成成功提示
const MsgRoutineGenerated = "Routine generated successfully!"

// RoutineService 课表业务接口
type RoutineService interface {
	// Entries 原始课表条目
	Entries(ctx context.Context, token string) ([]model.RoutineEntry, error)
	// Grid 管理员课表网格（院系 × 学期）
	Grid(ctx context.Context, token string, req *dto.GridRequest) (*dto.GridResponse, error)
	// OwnRoutine 教师个人课表，过滤分页状态按会话保存
	OwnRoutine(ctx context.Context, sess Session, auth state.AuthState, req *dto.OwnRoutineRequest) (*dto.OwnRoutineResponse, error)
	// StudentRoutine 学生课表，学生只能查看自己的学期
	StudentRoutine(ctx context.Context, token string, auth state.AuthState, req *dto.StudentRoutineRequest) (*dto.GridResponse, error)
	// Analytics 按学期或教师统计
	Analytics(ctx context.Context, token string, auth state.AuthState, req *dto.AnalyticsRequest) (*dto.AnalyticsResponse, error)
	// Generate 触发后端重新生成课表；已锁定时返回 ErrRoutineLocked
	Generate(ctx context.Context, token string) (dto.Notice, error)
	// IsLocked 课表是否锁定
	IsLocked() bool
	// SetLocked 设置课表锁定
	SetLocked(ctx context.Context, locked bool) bool
	// Forget 释放会话的列表状态
	Forget(sessionID string)
}

type routineService struct {
	cfg       *config.RoutineConfig
	backend   Backend
	workspace *state.Workspace
	logger    *zap.Logger

	slotIndex map[string]int

	mu    sync.Mutex
	views map[string]*table.View[dto.OwnRoutineRow]
}

// NewRoutineService 创建 RoutineService 实例
func NewRoutineService(cfg *config.RoutineConfig, backend Backend, workspace *state.Workspace, logger *zap.Logger) RoutineService {
	idx := make(map[string]int, len(cfg.SlotTimes))
	for i, t := range cfg.SlotTimes {
		if t == "" {
			continue
		}
		idx[state.NormalizeTime(t)] = i
	}
	return &routineService{
		cfg:       cfg,
		backend:   backend,
		workspace: workspace,
		logger:    logger,
		slotIndex: idx,
		views:     make(map[string]*table.View[dto.OwnRoutineRow]),
	}
}

func (s *routineService) Entries(ctx context.Context, token string) ([]model.RoutineEntry, error) {
	entries, err := s.backend.Routine(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("获取课表失败: %w", err)
	}
	return entries, nil
}

// ═══════════════════════════════════════════════════════════
// Grid 管理员课表网格
// ═══════════════════════════════════════════════════════════

func (s *routineService) Grid(ctx context.Context, token string, req *dto.GridRequest) (*dto.GridResponse, error) {
	entries, err := s.Entries(ctx, token)
	if err != nil {
		return nil, err
	}

	departments := table.Distinct(entries, func(e model.RoutineEntry) string { return e.DepartmentName })
	dept := pick(departments, req.Department)

	// 学期选项随院系收窄
	scoped := entries
	if dept != "" {
		scoped = table.Filter(entries, func(e model.RoutineEntry) bool { return e.DepartmentName == dept })
	}
	semesters := table.Distinct(scoped, func(e model.RoutineEntry) string { return e.SemesterName })
	sem := pick(semesters, req.Semester)

	var selected []model.RoutineEntry
	if dept != "" && sem != "" {
		selected = table.Filter(entries,
			func(e model.RoutineEntry) bool { return e.DepartmentName == dept && e.SemesterName == sem },
			table.Contains(req.Search,
				func(e model.RoutineEntry) string { return e.CourseName },
				func(e model.RoutineEntry) string { return e.CourseCode },
				func(e model.RoutineEntry) string { return e.TeacherName },
				func(e model.RoutineEntry) string { return e.RoomNumber },
			),
		)
	}

	resp := &dto.GridResponse{
		Departments: departments,
		Semesters:   semesters,
		Department:  dept,
		Semester:    sem,
		Label:       "Select Department",
		SubLabel:    "Select Semester",
		Slots:       s.slotHeaders(),
		Rows:        s.buildRows(selected, req.Search),
		IsEmpty:     len(selected) == 0,
		IsLocked:    s.workspace.Lock.IsLocked(),
	}
	if dept != "" {
		resp.Label = dept
	}
	if sem != "" {
		resp.SubLabel = sem + " Semester"
	}
	return resp, nil
}

// ═══════════════════════════════════════════════════════════
// StudentRoutine 学生课表
// ═══════════════════════════════════════════════════════════

func (s *routineService) StudentRoutine(ctx context.Context, token string, auth state.AuthState, req *dto.StudentRoutineRequest) (*dto.GridResponse, error) {
	entries, err := s.Entries(ctx, token)
	if err != nil {
		return nil, err
	}

	// 学期选项保持后端返回的顺序
	semesters := uniqueInOrder(entries, func(e model.RoutineEntry) string { return e.SemesterName })

	active := ""
	switch {
	case req.Semester != "" && contains(semesters, req.Semester):
		active = req.Semester
	case auth.Role == state.RoleStudent && auth.SemesterName != "" && contains(semesters, auth.SemesterName):
		active = auth.SemesterName
	case len(semesters) > 0:
		active = semesters[0]
	}

	if auth.Role == state.RoleStudent && active != auth.SemesterName {
		return nil, ErrForbidden
	}

	selected := table.Filter(entries, func(e model.RoutineEntry) bool { return e.SemesterName == active })

	resp := &dto.GridResponse{
		Semesters:  semesters,
		Department: auth.DepartmentName,
		Semester:   active,
		Label:      "Select Semester",
		SubLabel:   auth.DepartmentName,
		Slots:      s.slotHeaders(),
		Rows:       s.buildRows(selected, ""),
		IsEmpty:    len(selected) == 0,
		IsLocked:   s.workspace.Lock.IsLocked(),
	}
	if active != "" {
		resp.Label = active + " Semester"
	}
	if resp.SubLabel == "" {
		resp.SubLabel = "N/A"
	}
	return resp, nil
}

func (s *routineService) slotHeaders() []dto.SlotHeader {
	headers := make([]dto.SlotHeader, len(s.cfg.SlotTimes))
	for i, t := range s.cfg.SlotTimes {
		headers[i] = dto.SlotHeader{Index: i, StartTime: t, IsBreak: t == ""}
	}
	return headers
}

// buildRows 按配置的星期 × 槽位摆放课表条目，并计算每节课的实际状态
func (s *routineService) buildRows(entries []model.RoutineEntry, search string) []dto.GridRow {
	today := s.workspace.ClassOff.Today()
	resolve := s.workspace.Resolver()
	q := strings.ToLower(strings.TrimSpace(search))

	rows := make([]dto.GridRow, len(s.cfg.Days))
	byDay := make(map[string]int, len(s.cfg.Days))
	for i, day := range s.cfg.Days {
		cells := make([]dto.GridCell, len(s.cfg.SlotTimes))
		for j, t := range s.cfg.SlotTimes {
			cells[j] = dto.GridCell{Slot: j, IsBreak: t == ""}
		}
		rows[i] = dto.GridRow{Day: day, Cells: cells}
		byDay[state.AbbreviateDay(day)] = i
	}

	for _, e := range entries {
		di, ok := byDay[state.AbbreviateDay(e.Day)]
		if !ok {
			continue
		}
		si, ok := s.slotIndex[state.NormalizeTime(e.StartTime)]
		if !ok {
			continue
		}
		key := state.KeyFor(today, state.SlotOf(e))
		res := resolve(key)
		rows[di].Cells[si] = dto.GridCell{
			Slot:      si,
			RoutineID: e.ID,
			Course:    e.CourseCode,
			Name:      e.CourseName,
			Teacher:   e.TeacherName,
			Initials:  teacherInitials(e.TeacherName),
			Room:      e.RoomNumber,
			StartTime: e.StartTime,
			Key:       key.String(),
			Status:    string(res.Status),
			Reason:    res.Reason,
			Highlight: q != "" && (strings.Contains(strings.ToLower(e.CourseCode), q) ||
				strings.Contains(strings.ToLower(e.TeacherName), q) ||
				strings.Contains(strings.ToLower(e.RoomNumber), q)),
		}
	}
	return rows
}

// ═══════════════════════════════════════════════════════════
// OwnRoutine 教师个人课表
// ═══════════════════════════════════════════════════════════

func (s *routineService) OwnRoutine(ctx context.Context, sess Session, auth state.AuthState, req *dto.OwnRoutineRequest) (*dto.OwnRoutineResponse, error) {
	entries, err := s.Entries(ctx, sess.AccessToken)
	if err != nil {
		return nil, err
	}

	// 后端按凭证返回教师本人的课表；管理员可按教师筛选
	if auth.Role == state.RoleAdmin && req.Teacher != "" {
		entries = table.Filter(entries, func(e model.RoutineEntry) bool { return e.TeacherName == req.Teacher })
	}

	today := s.workspace.ClassOff.Today()
	resolve := s.workspace.Resolver()
	rows := make([]dto.OwnRoutineRow, 0, len(entries))
	for _, e := range entries {
		key := state.KeyFor(today, state.SlotOf(e))
		res := resolve(key)
		rows = append(rows, dto.OwnRoutineRow{
			ID:         e.ID,
			Day:        state.AbbreviateDay(e.Day),
			Time:       formatTimeRange(e.StartTime, e.EndTime),
			StartTime:  e.StartTime,
			Course:     e.CourseCode,
			CourseName: e.CourseName,
			Type:       e.CourseType(),
			Room:       e.RoomNumber,
			Semester:   e.SemesterName,
			Department: e.DepartmentName,
			TeacherID:  e.TeacherName,
			Key:        key.String(),
			Status:     string(res.Status),
			Reason:     res.Reason,
		})
	}

	resp := &dto.OwnRoutineResponse{
		Rooms:     table.Distinct(rows, func(r dto.OwnRoutineRow) string { return r.Room }),
		Semesters: table.Distinct(rows, func(r dto.OwnRoutineRow) string { return r.Semester }),
		PageSizes: s.cfg.PageSizes,
	}
	if len(entries) > 0 {
		resp.Teacher = &dto.TeacherInfo{
			ID:                entries[0].TeacherName,
			Name:              entries[0].TeacherName,
			Initials:          shortInitials(entries[0].TeacherName),
			TotalSessions:     len(entries),
			SemestersInvolved: resp.Semesters,
		}
	}

	view := s.view(sess.ID)
	s.mu.Lock()
	defer s.mu.Unlock()

	// 先设每页条数与页码，再设过滤条件：过滤条件变化时页码回到 1
	if req.PageSize > 0 {
		view.SetPageSize(req.PageSize)
	}
	if req.Page > 0 {
		view.SetPage(req.Page)
	}
	view.SetFilter("day", req.Day)
	view.SetFilter("type", req.Type)
	view.SetFilter("status", req.Status)
	view.SetFilter("room", req.Room)
	view.SetFilter("semester", req.Semester)

	if req.ShowAll {
		filtered := table.Filter(rows, ownRoutineFilters("", map[string]string{
			"day": req.Day, "type": req.Type, "status": req.Status, "room": req.Room, "semester": req.Semester,
		})...)
		resp.Rows = table.Paginate(filtered, 1, max(len(filtered), 1))
		return resp, nil
	}

	resp.Rows = view.Result(rows, ownRoutineFilters, nil)
	return resp, nil
}

func (s *routineService) view(sessionID string) *table.View[dto.OwnRoutineRow] {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.views[sessionID]
	if !ok {
		size := s.cfg.PageSize
		if size <= 0 {
			size = 10
		}
		v = table.NewView[dto.OwnRoutineRow](size)
		s.views[sessionID] = v
	}
	return v
}

func (s *routineService) Forget(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.views, sessionID)
}

func ownRoutineFilters(_ string, f map[string]string) []table.Predicate[dto.OwnRoutineRow] {
	return []table.Predicate[dto.OwnRoutineRow]{
		table.EqualFold(f["day"], func(r dto.OwnRoutineRow) string { return state.AbbreviateDay(r.Day) }),
		table.Equals(f["type"], func(r dto.OwnRoutineRow) string { return r.Type }),
		table.Equals(f["status"], func(r dto.OwnRoutineRow) string { return r.Status }),
		table.Equals(f["room"], func(r dto.OwnRoutineRow) string { return r.Room }),
		table.Equals(f["semester"], func(r dto.OwnRoutineRow) string { return r.Semester }),
	}
}

// ═══════════════════════════════════════════════════════════
// Generate / Lock
// ═══════════════════════════════════════════════════════════

func (s *routineService) Generate(ctx context.Context, token string) (dto.Notice, error) {
	if s.workspace.Lock.IsLocked() {
		return dto.Notice{}, ErrRoutineLocked
	}
	if err := s.backend.GenerateRoutine(ctx, token); err != nil {
		s.logger.Warn("课表生成失败", zap.Error(err))
		return dto.Notice{}, fmt.Errorf("生成课表失败: %w", err)
	}

	// 新课表生效后旧的停课记录全部作废
	s.workspace.ClassOff.Reset(ctx)
	s.logger.Info("课表已重新生成，停课记录已清空")
	return dto.SuccessNotice(MsgRoutineGenerated), nil
}

func (s *routineService) IsLocked() bool {
	return s.workspace.Lock.IsLocked()
}

func (s *routineService) SetLocked(ctx context.Context, locked bool) bool {
	got := s.workspace.Lock.SetLocked(ctx, locked)
	s.logger.Info("课表锁定状态变更", zap.Bool("locked", got))
	return got
}

// ── 辅助函数 ──

// pick 请求值在选项中时使用请求值，否则取第一个选项
func pick(options []string, want string) string {
	if want != "" && contains(options, want) {
		return want
	}
	if len(options) > 0 {
		return options[0]
	}
	return ""
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func uniqueInOrder[T any](items []T, field func(T) string) []string {
	seen := make(map[string]bool)
	out := make([]string, 0)
	for _, it := range items {
		v := field(it)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// teacherInitials 取全部大写字母；没有大写字母时取各单词首字母
func teacherInitials(name string) string {
	if name == "" {
		return ""
	}
	var b strings.Builder
	for _, r := range name {
		if unicode.IsUpper(r) {
			b.WriteRune(r)
		}
	}
	if b.Len() > 0 {
		return b.String()
	}
	for _, w := range strings.FieldsFunc(name, func(r rune) bool { return r == ' ' || r == '-' || r == '_' }) {
		for _, r := range w {
			b.WriteRune(unicode.ToUpper(r))
			break
		}
	}
	return b.String()
}

// shortInitials 前两个大写字母，默认 TCH
func shortInitials(name string) string {
	var out []rune
	for _, r := range name {
		if r >= 'A' && r <= 'Z' {
			out = append(out, r)
			if len(out) == 2 {
				break
			}
		}
	}
	if len(out) == 0 {
		return "TCH"
	}
	return string(out)
}

// formatTimeRange "08:45:00", "09:35:00" → "08:45 - 09:35"
func formatTimeRange(start, end string) string {
	s, e := state.NormalizeTime(start), state.NormalizeTime(end)
	if e == "" {
		return s
	}
	return s + " - " + e
}

// sortedKeys map 的有序键
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// [自证通过] internal/service/routine_service.go
