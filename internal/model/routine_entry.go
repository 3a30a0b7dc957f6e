package model

import "strings"

// RoutineEntry 课表条目（只读，由后端生成）
type RoutineEntry struct {
	ID             int64   `json:"id"`
	Day            string  `json:"day"`
	StartTime      string  `json:"start_time"`
	EndTime        string  `json:"end_time"`
	CourseName     string  `json:"course_name"`
	CourseCode     string  `json:"course_code"`
	TeacherName    string  `json:"teacher_name"`
	DepartmentName string  `json:"department_name"`
	SemesterName   string  `json:"semester_name"`
	RoomNumber     string  `json:"room_number"`
	Credits        Decimal `json:"credits"`
}

// EntityID 实现 Entity
func (e RoutineEntry) EntityID() int64 { return e.ID }

// IsLab 课程代码以 L 结尾或课程名包含 lab 视为实验课
func (e RoutineEntry) IsLab() bool {
	code := strings.TrimSpace(e.CourseCode)
	return strings.HasSuffix(strings.ToUpper(code), "L") ||
		strings.Contains(strings.ToLower(e.CourseName), "lab")
}

// CourseType 实验课 / 理论课
func (e RoutineEntry) CourseType() string {
	if e.IsLab() {
		return CourseTypeLab
	}
	return CourseTypeTheory
}

const (
	CourseTypeLab    = "Lab"
	CourseTypeTheory = "Theory"
)
