package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"routine-desk/server/internal/dto"
	"routine-desk/server/internal/model"
	"routine-desk/server/internal/optimistic"
	"routine-desk/server/internal/table"
	apperrors "routine-desk/server/pkg/errors"
)

// ResourceSpec 资源列表的过滤、排序、下拉选项与提示文案
type ResourceSpec[T model.Entity] struct {
	Singular string
	Label    func(T) string
	Filters  func(search string, filters map[string]string) []table.Predicate[T]
	Sorters  map[string]table.Compare[T]
	Options  func(items []T) map[string][]string
}

// ResourceList 列表视图结果
type ResourceList[T any] struct {
	Page    table.Page[T]
	Options map[string][]string
}

// ResourceService 后端资源的乐观增删改查
//
// 每个会话持有一份"展示中"的列表与视图状态：
//   - 修改先作用于本地列表（pending），再提交后端
//   - 成功后从后端刷新（confirmed），失败恢复修改前的快照（reverted）
//   - 单次尝试，不重试；同一会话的修改依次提交，后完成者覆盖
type ResourceService[T model.Entity] struct {
	api      ResourceAPI[T]
	spec     ResourceSpec[T]
	pageSize int
	logger   *zap.Logger

	mu       sync.Mutex
	sessions map[string]*resourceSession[T]
	seq      atomic.Int64
}

type resourceSession[T model.Entity] struct {
	mu     sync.Mutex // 保护 view 与 loaded
	list   *optimistic.List[T]
	view   *table.View[T]
	loaded bool
}

// NewResourceService 创建资源服务
func NewResourceService[T model.Entity](api ResourceAPI[T], spec ResourceSpec[T], pageSize int, logger *zap.Logger) *ResourceService[T] {
	if pageSize <= 0 {
		pageSize = 10
	}
	return &ResourceService[T]{
		api:      api,
		spec:     spec,
		pageSize: pageSize,
		logger:   logger,
		sessions: make(map[string]*resourceSession[T]),
	}
}

func (s *ResourceService[T]) session(id string) *resourceSession[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	rs, ok := s.sessions[id]
	if !ok {
		rs = &resourceSession[T]{
			list: optimistic.NewList[T](nil),
			view: table.NewView[T](s.pageSize),
		}
		s.sessions[id] = rs
	}
	return rs
}

// Forget 释放会话的列表与视图状态
func (s *ResourceService[T]) Forget(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}

// ═══════════════════════════════════════════════════════════
// List 过滤 / 排序 / 分页
// ═══════════════════════════════════════════════════════════

// List 首次访问或 refresh=true 时从后端拉取，其余情况使用会话中展示的列表
func (s *ResourceService[T]) List(ctx context.Context, sess Session, q *dto.ListQuery) (*ResourceList[T], error) {
	rs := s.session(sess.ID)

	rs.mu.Lock()
	needFetch := !rs.loaded || q.Refresh
	rs.mu.Unlock()

	if needFetch {
		items, err := s.api.List(ctx, sess.AccessToken)
		if err != nil {
			return nil, fmt.Errorf("获取%s列表失败: %w", s.api.Name(), err)
		}
		rs.list.Replace(items)
		rs.mu.Lock()
		rs.loaded = true
		rs.mu.Unlock()
	}

	items := rs.list.Items()

	rs.mu.Lock()
	defer rs.mu.Unlock()

	// 先设每页条数与页码，再设过滤条件：过滤条件变化时页码回到 1
	if q.PageSize > 0 {
		rs.view.SetPageSize(q.PageSize)
	}
	if q.Page > 0 {
		rs.view.SetPage(q.Page)
	}
	if q.Search != nil {
		rs.view.SetSearch(*q.Search)
	}
	for _, name := range sortedKeys(q.Filters) {
		rs.view.SetFilter(name, q.Filters[name])
	}
	if q.Sort != "" {
		if _, ok := s.spec.Sorters[q.Sort]; ok {
			if q.Order != "" {
				rs.view.SortBy(q.Sort, table.ParseDirection(q.Order))
			} else {
				rs.view.SetSort(q.Sort)
			}
		}
	}

	out := &ResourceList[T]{Page: rs.view.Result(items, s.filters, s.spec.Sorters)}
	if s.spec.Options != nil {
		out.Options = s.spec.Options(items)
	}
	return out, nil
}

func (s *ResourceService[T]) filters(search string, f map[string]string) []table.Predicate[T] {
	if s.spec.Filters == nil {
		return nil
	}
	return s.spec.Filters(search, f)
}

// ═══════════════════════════════════════════════════════════
// Create / Update / Delete 乐观修改
// ═══════════════════════════════════════════════════════════

// Create 新增；本地先以临时负数 ID 追加
func (s *ResourceService[T]) Create(ctx context.Context, sess Session, payload map[string]interface{}) (*dto.MutationResult[T], error) {
	rs := s.session(sess.ID)

	mutate := optimistic.Mutation[T](func(items []T) []T { return items })
	pending, ok := decodeAs[T](payload, map[string]interface{}{"id": -s.seq.Add(1)})
	if ok {
		mutate = optimistic.Append(pending)
	}

	var created *T
	out := optimistic.Apply(ctx, rs.list, mutate,
		func(ctx context.Context) error {
			item, err := s.api.Create(ctx, sess.AccessToken, payload)
			created = item
			return err
		},
		s.refresher(sess),
	)

	label := ""
	if created != nil && s.spec.Label != nil {
		label = s.spec.Label(*created)
	} else if ok && s.spec.Label != nil {
		label = s.spec.Label(pending)
	}
	msg := fmt.Sprintf("%s added successfully", s.spec.Singular)
	if label != "" {
		msg = fmt.Sprintf("%s %q added successfully", s.spec.Singular, label)
	}
	return s.finish(out, created, "create", msg)
}

// Update 更新；本地先把 payload 覆盖到对应条目
func (s *ResourceService[T]) Update(ctx context.Context, sess Session, id int64, payload map[string]interface{}) (*dto.MutationResult[T], error) {
	rs := s.session(sess.ID)

	mutate := optimistic.ReplaceWhere(
		func(item T) bool { return item.EntityID() == id },
		func(item T) T {
			updated, ok := overlay(item, payload)
			if !ok {
				return item
			}
			return updated
		},
	)

	var updated *T
	out := optimistic.Apply(ctx, rs.list, mutate,
		func(ctx context.Context) error {
			item, err := s.api.Update(ctx, sess.AccessToken, id, payload)
			updated = item
			return err
		},
		s.refresher(sess),
	)
	return s.finish(out, updated, "update", fmt.Sprintf("%s updated successfully", s.spec.Singular))
}

// Delete 删除；本地先移除对应条目
func (s *ResourceService[T]) Delete(ctx context.Context, sess Session, id int64) (*dto.MutationResult[T], error) {
	rs := s.session(sess.ID)

	out := optimistic.Apply(ctx, rs.list,
		optimistic.RemoveWhere(func(item T) bool { return item.EntityID() == id }),
		func(ctx context.Context) error {
			return s.api.Delete(ctx, sess.AccessToken, id)
		},
		s.refresher(sess),
	)
	return s.finish(out, nil, "delete", fmt.Sprintf("%s deleted successfully", s.spec.Singular))
}

func (s *ResourceService[T]) refresher(sess Session) func(ctx context.Context) ([]T, error) {
	return func(ctx context.Context) ([]T, error) {
		return s.api.List(ctx, sess.AccessToken)
	}
}

// finish 把乐观修改结果转换为响应；回滚时同时返回错误
func (s *ResourceService[T]) finish(out optimistic.Outcome[T], item *T, op, successMsg string) (*dto.MutationResult[T], error) {
	res := &dto.MutationResult[T]{
		Phase: string(out.Phase),
		Item:  item,
		List:  out.Items,
	}
	if res.List == nil {
		res.List = []T{}
	}

	if out.Phase == optimistic.PhaseReverted {
		s.logger.Info("修改失败，已回滚",
			zap.String("resource", s.api.Name()),
			zap.String("op", op),
			zap.Error(out.Err),
		)
		res.Notice = dto.ErrorNotice(apperrors.UserMessage(out.Err))
		return res, out.Err
	}

	if out.RefreshErr != nil {
		s.logger.Warn("修改成功但刷新列表失败",
			zap.String("resource", s.api.Name()),
			zap.String("op", op),
			zap.Error(out.RefreshErr),
		)
	}
	res.Notice = dto.SuccessNotice(successMsg)
	return res, nil
}

// ── JSON 辅助 ──

// decodeAs 将若干字段表合并后解码为 T，后出现的字段覆盖先出现的
func decodeAs[T any](fields ...map[string]interface{}) (T, bool) {
	var zero T
	merged := make(map[string]interface{})
	for _, f := range fields {
		for k, v := range f {
			merged[k] = v
		}
	}
	b, err := json.Marshal(merged)
	if err != nil {
		return zero, false
	}
	var out T
	if err := json.Unmarshal(b, &out); err != nil {
		return zero, false
	}
	return out, true
}

// overlay 把 payload 覆盖到已有条目上，ID 保持不变
func overlay[T model.Entity](item T, payload map[string]interface{}) (T, bool) {
	b, err := json.Marshal(item)
	if err != nil {
		return item, false
	}
	base := make(map[string]interface{})
	if err := json.Unmarshal(b, &base); err != nil {
		return item, false
	}
	return decodeAs[T](base, payload, map[string]interface{}{"id": item.EntityID()})
}

// ═══════════════════════════════════════════════════════════
// 各资源的列表规则
// ═══════════════════════════════════════════════════════════

// DepartmentSpec 院系：按名称搜索
func DepartmentSpec() ResourceSpec[model.Department] {
	return ResourceSpec[model.Department]{
		Singular: "Department",
		Label:    func(d model.Department) string { return d.Name },
		Filters: func(search string, _ map[string]string) []table.Predicate[model.Department] {
			return []table.Predicate[model.Department]{
				table.Contains(search, func(d model.Department) string { return d.Name }),
			}
		},
		Sorters: map[string]table.Compare[model.Department]{
			"id":   table.By(func(d model.Department) int64 { return d.ID }),
			"name": table.ByNatural(func(d model.Department) string { return d.Name }),
		},
	}
}

// SemesterSpec 学期：名称按自然顺序排序
func SemesterSpec() ResourceSpec[model.Semester] {
	return ResourceSpec[model.Semester]{
		Singular: "Semester",
		Label:    func(s model.Semester) string { return s.Name },
		Filters: func(search string, _ map[string]string) []table.Predicate[model.Semester] {
			return []table.Predicate[model.Semester]{
				table.Contains(search, func(s model.Semester) string { return s.Name }),
			}
		},
		Sorters: map[string]table.Compare[model.Semester]{
			"id":    table.By(func(s model.Semester) int64 { return s.ID }),
			"name":  table.ByNatural(func(s model.Semester) string { return s.Name }),
			"order": table.By(func(s model.Semester) int { return s.Order }),
		},
	}
}

// TimeSlotSpec 时间段
func TimeSlotSpec() ResourceSpec[model.TimeSlot] {
	return ResourceSpec[model.TimeSlot]{
		Singular: "Time slot",
		Label: func(t model.TimeSlot) string {
			return formatTimeRange(t.StartTime, t.EndTime)
		},
		Filters: func(search string, _ map[string]string) []table.Predicate[model.TimeSlot] {
			return []table.Predicate[model.TimeSlot]{
				table.Contains(search,
					func(t model.TimeSlot) string { return t.StartTime },
					func(t model.TimeSlot) string { return t.EndTime },
				),
			}
		},
		Sorters: map[string]table.Compare[model.TimeSlot]{
			"id":         table.By(func(t model.TimeSlot) int64 { return t.ID }),
			"start_time": table.By(func(t model.TimeSlot) string { return normalizedClock(t.StartTime) }),
			"end_time":   table.By(func(t model.TimeSlot) string { return normalizedClock(t.EndTime) }),
		},
	}
}

// CourseSpec 课程：按名称/代码搜索，学期、学分、教师、院系、类型过滤
func CourseSpec() ResourceSpec[model.Course] {
	semester := func(c model.Course) string { return c.SemesterName }
	credits := func(c model.Course) string { return c.Credits.String() }
	teacher := func(c model.Course) string { return c.TeacherName }
	department := func(c model.Course) string { return c.DepartmentName }
	courseType := func(c model.Course) string { return c.CourseType }

	return ResourceSpec[model.Course]{
		Singular: "Course",
		Label:    func(c model.Course) string { return c.CourseCode },
		Filters: func(search string, f map[string]string) []table.Predicate[model.Course] {
			return []table.Predicate[model.Course]{
				table.Contains(search,
					func(c model.Course) string { return c.CourseName },
					func(c model.Course) string { return c.CourseCode },
				),
				table.Equals(f["semester"], semester),
				table.Equals(f["credits"], credits),
				table.Equals(f["teacher"], teacher),
				table.Equals(f["department"], department),
				table.EqualFold(f["course_type"], courseType),
			}
		},
		Sorters: map[string]table.Compare[model.Course]{
			"id":              table.By(func(c model.Course) int64 { return c.ID }),
			"course_code":     table.ByNatural(func(c model.Course) string { return c.CourseCode }),
			"course_name":     table.By(func(c model.Course) string { return strings.ToLower(c.CourseName) }),
			"room_number":     table.ByNatural(func(c model.Course) string { return c.RoomNumber }),
			"credits":         table.By(func(c model.Course) float64 { return float64(c.Credits) }),
			"course_type":     table.By(courseType),
			"teacher_name":    table.By(teacher),
			"department_name": table.By(department),
			"semester_name":   table.ByNatural(semester),
		},
		Options: func(items []model.Course) map[string][]string {
			return map[string][]string{
				"semester":    table.DistinctFunc(items, semester, table.Natural),
				"credits":     table.DistinctFunc(items, credits, table.Natural),
				"teacher":     table.Distinct(items, teacher),
				"department":  table.Distinct(items, department),
				"course_type": table.Distinct(items, courseType),
			}
		},
	}
}

// UserSpec 用户：按姓名/用户名搜索；院系过滤仅对教师和学生生效，学期过滤仅对学生生效
func UserSpec() ResourceSpec[model.User] {
	department := func(u model.User) string { return u.DepartmentName }
	semester := func(u model.User) string { return u.SemesterName }
	role := func(u model.User) string { return u.Role }

	return ResourceSpec[model.User]{
		Singular: "User",
		Label:    func(u model.User) string { return u.Username },
		Filters: func(search string, f map[string]string) []table.Predicate[model.User] {
			preds := []table.Predicate[model.User]{
				table.Contains(search,
					func(u model.User) string { return u.DisplayName() },
					func(u model.User) string { return u.Username },
				),
				table.EqualFold(f["role"], role),
			}
			r := strings.ToUpper(strings.TrimSpace(f["role"]))
			if r == model.UserRoleTeacher || r == model.UserRoleStudent {
				preds = append(preds, table.Equals(f["department"], department))
			}
			if r == model.UserRoleStudent {
				preds = append(preds, table.Equals(f["semester"], semester))
			}
			return preds
		},
		Sorters: map[string]table.Compare[model.User]{
			"id":          table.By(func(u model.User) int64 { return u.ID }),
			"username":    table.By(func(u model.User) string { return strings.ToLower(u.Username) }),
			"name":        table.By(func(u model.User) string { return strings.ToLower(u.DisplayName()) }),
			"email":       table.By(func(u model.User) string { return strings.ToLower(u.Email) }),
			"role":        table.By(role),
			"date_joined": table.By(func(u model.User) string { return u.DateJoined }),
		},
		Options: func(items []model.User) map[string][]string {
			return map[string][]string{
				"role":       table.Distinct(items, role),
				"department": table.Distinct(items, department),
				"semester":   table.DistinctFunc(items, semester, table.Natural),
			}
		},
	}
}

func normalizedClock(t string) string {
	n := clockMinutes(t)
	return fmt.Sprintf("%04d", n)
}

// [自证通过] internal/service/resource_service.go
