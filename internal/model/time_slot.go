package model

// TimeSlot 上课时间段
type TimeSlot struct {
	ID        int64  `json:"id"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// EntityID 实现 Entity
func (t TimeSlot) EntityID() int64 { return t.ID }
