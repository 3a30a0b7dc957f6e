package model

// Department 院系
type Department struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// EntityID 实现 Entity
func (d Department) EntityID() int64 { return d.ID }
