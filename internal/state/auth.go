package state

import (
	"context"
	"strconv"
	"strings"
	"sync"
)

// Role 前端角色（小写）
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

// ParseRole 大小写不敏感；无法识别时 ok=false
func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleAdmin:
		return RoleAdmin, true
	case RoleTeacher:
		return RoleTeacher, true
	case RoleStudent:
		return RoleStudent, true
	default:
		return "", false
	}
}

// 持久化键名
const (
	authKeyAuthenticated = "isAuthenticated"
	authKeyUsername      = "username"
	authKeyRole          = "role"
	authKeyEmail         = "email"
	authKeyDeptName      = "department_name"
	authKeyDeptID        = "department_id"
	authKeySemester      = "semester_name"
	authKeyStudentID     = "student_id"
)

var authKeys = []string{
	authKeyAuthenticated,
	authKeyUsername,
	authKeyRole,
	authKeyEmail,
	authKeyDeptName,
	authKeyDeptID,
	authKeySemester,
	authKeyStudentID,
}

// AuthState 会话身份
type AuthState struct {
	IsAuthenticated bool   `json:"isAuthenticated"`
	Username        string `json:"username"`
	Role            Role   `json:"role"`
	Email           string `json:"email"`
	DepartmentName  string `json:"department_name"`
	DepartmentID    int64  `json:"department_id"`
	SemesterName    string `json:"semester_name"`
	StudentID       string `json:"student_id"`
	IsLoading       bool   `json:"isLoading"`
}

// UserData 登录或凭证解码得到的用户资料，零值字段不会覆盖已有值
type UserData struct {
	Username       string
	Role           string
	Email          string
	DepartmentName string
	DepartmentID   int64
	SemesterName   string
	StudentID      string
}

// ── 动作 ──

// AuthAction 会话身份的动作
type AuthAction interface {
	applyAuth(s AuthState) AuthState
}

// SetAuthenticated 设置登录标记
type SetAuthenticated struct{ Value bool }

func (a SetAuthenticated) applyAuth(s AuthState) AuthState {
	s.IsAuthenticated = a.Value
	return s
}

// SetLoading 设置加载标记（不持久化）
type SetLoading struct{ Value bool }

func (a SetLoading) applyAuth(s AuthState) AuthState {
	s.IsLoading = a.Value
	return s
}

// SetUserData 选择性合并用户资料
type SetUserData struct{ Data UserData }

func (a SetUserData) applyAuth(s AuthState) AuthState {
	d := a.Data
	if d.Username != "" {
		s.Username = d.Username
	}
	if d.Role != "" {
		if r, ok := ParseRole(d.Role); ok {
			s.Role = r
		}
	}
	if d.Email != "" {
		s.Email = d.Email
	}
	if d.DepartmentName != "" {
		s.DepartmentName = d.DepartmentName
	}
	if d.DepartmentID != 0 {
		s.DepartmentID = d.DepartmentID
	}
	if d.SemesterName != "" {
		s.SemesterName = d.SemesterName
	}
	if d.StudentID != "" {
		s.StudentID = d.StudentID
	}
	return s
}

// ResetAuth 登出或凭证过期时清空
type ResetAuth struct{}

func (ResetAuth) applyAuth(AuthState) AuthState {
	return AuthState{}
}

// ReduceAuth 纯函数
func ReduceAuth(s AuthState, a AuthAction) AuthState {
	return a.applyAuth(s)
}

// ── 容器 ──

// AuthStore 单个会话的身份容器
type AuthStore struct {
	mu      sync.RWMutex
	state   AuthState
	persist persister
}

// NewAuthStore 从持久化数据恢复；只有 isAuthenticated="true" 时才恢复资料
func NewAuthStore(ctx context.Context, deps Deps) *AuthStore {
	deps = deps.withDefaults()
	s := &AuthStore{persist: newPersister(deps)}

	if v, _ := s.persist.load(ctx, authKeyAuthenticated); v != "true" {
		return s
	}

	get := func(key string) string {
		v, _ := s.persist.load(ctx, key)
		return v
	}
	role, ok := ParseRole(get(authKeyRole))
	if !ok {
		role = RoleStudent
	}
	deptID, _ := strconv.ParseInt(get(authKeyDeptID), 10, 64)

	s.state = AuthState{
		IsAuthenticated: true,
		Username:        get(authKeyUsername),
		Role:            role,
		Email:           get(authKeyEmail),
		DepartmentName:  get(authKeyDeptName),
		DepartmentID:    deptID,
		SemesterName:    get(authKeySemester),
		StudentID:       get(authKeyStudentID),
	}
	return s
}

// Snapshot 返回当前身份
func (s *AuthStore) Snapshot() AuthState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Dispatch 应用动作并持久化
func (s *AuthStore) Dispatch(ctx context.Context, action AuthAction) AuthState {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = ReduceAuth(s.state, action)
	if _, loading := action.(SetLoading); !loading {
		s.save(ctx)
	}
	return s.state
}

// save 非空字段写入，空字段删除
func (s *AuthStore) save(ctx context.Context) {
	values := map[string]string{
		authKeyUsername:  s.state.Username,
		authKeyRole:      string(s.state.Role),
		authKeyEmail:     s.state.Email,
		authKeyDeptName:  s.state.DepartmentName,
		authKeySemester:  s.state.SemesterName,
		authKeyStudentID: s.state.StudentID,
	}
	if s.state.IsAuthenticated {
		values[authKeyAuthenticated] = "true"
	}
	if s.state.DepartmentID != 0 {
		values[authKeyDeptID] = strconv.FormatInt(s.state.DepartmentID, 10)
	}

	for _, key := range authKeys {
		if v := values[key]; v != "" {
			s.persist.saveRaw(ctx, key, v)
		} else {
			s.persist.remove(ctx, key)
		}
	}
}
