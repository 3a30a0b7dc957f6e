package model

import "strings"

// 后端用户角色（大写）
const (
	UserRoleAdmin   = "ADMIN"
	UserRoleTeacher = "TEACHER"
	UserRoleStudent = "STUDENT"
)

// User 用户
type User struct {
	ID             int64  `json:"id"`
	Username       string `json:"username"`
	Email          string `json:"email"`
	Name           string `json:"name"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Role           string `json:"role"`
	DepartmentName string `json:"department_name"`
	DepartmentID   *int64 `json:"department_id"`
	SemesterName   string `json:"semester_name"`
	SemesterID     *int64 `json:"semester_id"`
	StudentID      string `json:"student_id,omitempty"`
	DateJoined     string `json:"date_joined,omitempty"`
}

// EntityID 实现 Entity
func (u User) EntityID() int64 { return u.ID }

// DisplayName 优先 name，其次 first_name + last_name，最后 username
func (u User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	if full := strings.TrimSpace(u.FirstName + " " + u.LastName); full != "" {
		return full
	}
	return u.Username
}
