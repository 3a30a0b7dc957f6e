package dto

// ── 学期模块 DTO ──

// SemesterRequest 创建/更新学期
type SemesterRequest struct {
	Name  string `json:"name"            binding:"required,min=1,max=50"`
	Order *int   `json:"order,omitempty" binding:"omitempty,min=0"`
}
