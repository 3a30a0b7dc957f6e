package dto

// ── 院系模块 DTO ──

// DepartmentRequest 创建/更新院系
type DepartmentRequest struct {
	Name string `json:"name" binding:"required,min=1,max=100"`
}

// [自证通过] internal/dto/department.go
