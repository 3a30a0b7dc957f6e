package dto

// ── 时间段模块 DTO ──

// TimeSlotRequest 创建/更新时间段
type TimeSlotRequest struct {
	StartTime string `json:"start_time" binding:"required,clock"`
	EndTime   string `json:"end_time"   binding:"required,clock"`
}
