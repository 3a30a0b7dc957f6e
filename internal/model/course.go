package model

// Course 课程
type Course struct {
	ID             int64   `json:"id"`
	CourseCode     string  `json:"course_code"`
	CourseName     string  `json:"course_name"`
	RoomNumber     string  `json:"room_number"`
	Credits        Decimal `json:"credits"`
	CourseType     string  `json:"course_type"`
	Teacher        *int64  `json:"teacher"`
	TeacherName    string  `json:"teacher_name"`
	Department     *int64  `json:"department"`
	DepartmentName string  `json:"department_name"`
	Semester       *int64  `json:"semester"`
	SemesterName   string  `json:"semester_name"`
}

// EntityID 实现 Entity
func (c Course) EntityID() int64 { return c.ID }
