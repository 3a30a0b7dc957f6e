package model

// Semester 学期
type Semester struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Order int    `json:"order"`
}

// EntityID 实现 Entity
func (s Semester) EntityID() int64 { return s.ID }
