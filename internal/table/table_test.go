package table

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

type course struct {
	Code     string
	Name     string
	Semester string
	Credits  int
	Teacher  string
}

func makeCourses(n int) []course {
	out := make([]course, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, course{
			Code:     fmt.Sprintf("CSE %d", 3600+i),
			Name:     fmt.Sprintf("Course %02d", i),
			Semester: fmt.Sprintf("%dth", i%3+4),
			Credits:  i%2 + 2,
		})
	}
	return out
}

func courseFilters(search string, f map[string]string) []Predicate[course] {
	return []Predicate[course]{
		Contains(search, func(c course) string { return c.Name }, func(c course) string { return c.Code }),
		Equals(f["semester"], func(c course) string { return c.Semester }),
		Equals(f["credits"], func(c course) string { return fmt.Sprint(c.Credits) }),
	}
}

func TestPaginate_Boundaries(t *testing.T) {
	items := makeCourses(23)

	p1 := Paginate(items, 1, 10)
	p2 := Paginate(items, 2, 10)
	p3 := Paginate(items, 3, 10)
	assert.Len(t, p1.Items, 10)
	assert.Len(t, p2.Items, 10)
	assert.Len(t, p3.Items, 3)
	assert.Equal(t, 3, p1.TotalPages)

	clamped := Paginate(items, 5, 10)
	assert.Equal(t, 3, clamped.Page, "页码 5 应夹取为 3")
	assert.Len(t, clamped.Items, 3)

	low := Paginate(items, 0, 10)
	assert.Equal(t, 1, low.Page)

	empty := Paginate([]course{}, 4, 10)
	assert.Equal(t, 1, empty.TotalPages, "空列表 totalPages 应为 1")
	assert.Equal(t, 1, empty.Page)
	assert.NotNil(t, empty.Items)
	assert.Len(t, empty.Items, 0)
}

func TestFilter_Composition(t *testing.T) {
	items := makeCourses(30)
	search := Contains("course 1", func(c course) string { return c.Name })
	sem := Equals("5th", func(c course) string { return c.Semester })

	both := Filter(items, search, sem)
	for _, c := range both {
		assert.True(t, search(c) && sem(c), "结果必须同时满足两个条件")
	}
	// 合取等价于逐个过滤
	assert.Equal(t, Filter(Filter(items, search), sem), both)

	// 未启用的条件不影响结果
	assert.Equal(t, items, Filter(items, Equals[course]("All", func(c course) string { return c.Semester }), nil))
}

func TestContains_CourseCodeSearch(t *testing.T) {
	items := []course{
		{Code: "CSE 3603", Name: "Compiler Design"},
		{Code: "CSE 3604L", Name: "Compiler Lab"},
		{Code: "EEE 1101", Name: "Circuits"},
	}
	got := Filter(items, Contains("CSE 3603", func(c course) string { return c.Name }, func(c course) string { return c.Code }))
	assert.Len(t, got, 1)
	assert.Equal(t, "CSE 3603", got[0].Code)

	got = Filter(items, Contains("compiler", func(c course) string { return c.Name }))
	assert.Len(t, got, 2, "搜索应大小写不敏感")
}

func TestSort(t *testing.T) {
	items := makeCourses(5)
	desc := Sort(items, By(func(c course) string { return c.Code }), Desc)
	assert.Equal(t, "CSE 3605", desc[0].Code)
	assert.Equal(t, "CSE 3601", items[0].Code, "Sort 不应修改入参")

	same := Sort(items, nil, Desc)
	assert.Equal(t, items, same)
}

func TestNatural(t *testing.T) {
	assert.Negative(t, Natural("2nd", "10th"))
	assert.Positive(t, Natural("Semester 10", "Semester 9"))
	assert.Zero(t, Natural("abc", "ABC"))
	assert.Negative(t, Natural("1st", "1st year"))

	got := DistinctFunc([]string{"10th", "2nd", "", "1st", "2nd"}, func(s string) string { return s }, Natural)
	assert.Equal(t, []string{"1st", "2nd", "10th"}, got)
}

func TestView_FilterResetsPage(t *testing.T) {
	items := makeCourses(23)
	v := NewView[course](10)

	v.SetPage(3)
	p := v.Result(items, courseFilters, nil)
	assert.Equal(t, 3, p.Page)

	v.SetFilter("credits", "3")
	assert.Equal(t, 1, v.Page(), "过滤条件变化应重置页码")

	v.SetPage(3)
	v.SetFilter("credits", "3")
	assert.Equal(t, 3, v.Page(), "过滤值未变化时不应重置")

	v.SetSearch("course")
	assert.Equal(t, 1, v.Page())

	v.SetPage(99)
	p = v.Result(items, courseFilters, nil)
	assert.Equal(t, p.TotalPages, p.Page, "越界页码应夹取到最后一页")
	assert.Equal(t, p.TotalPages, v.Page(), "夹取结果应写回视图")
}

func TestView_SortToggle(t *testing.T) {
	v := NewView[course](10)
	v.SetSort("code")
	key, dir := v.SortKey()
	assert.Equal(t, "code", key)
	assert.Equal(t, Asc, dir)

	v.SetSort("code")
	_, dir = v.SortKey()
	assert.Equal(t, Desc, dir)

	v.SetSort("name")
	_, dir = v.SortKey()
	assert.Equal(t, Asc, dir, "切换列时方向重置为 asc")
}
