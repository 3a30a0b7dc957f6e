// Package table 实现列表视图的过滤、排序与分页。
package table

import (
	"cmp"
	"math"
	"slices"
	"sort"
	"strings"
	"unicode"
)

// Predicate 过滤条件
type Predicate[T any] func(item T) bool

// IsAll 空值或 "All" 表示该过滤条件未启用
func IsAll(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || strings.EqualFold(v, "all")
}

// Contains 大小写不敏感的子串搜索，任一字段命中即可；query 为空时恒为真
func Contains[T any](query string, fields ...func(T) string) Predicate[T] {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	return func(item T) bool {
		for _, f := range fields {
			if strings.Contains(strings.ToLower(f(item)), q) {
				return true
			}
		}
		return false
	}
}

// Equals 精确匹配；want 为空或 "All" 时不启用
func Equals[T any](want string, field func(T) string) Predicate[T] {
	if IsAll(want) {
		return nil
	}
	want = strings.TrimSpace(want)
	return func(item T) bool {
		return field(item) == want
	}
}

// EqualFold 大小写不敏感的精确匹配
func EqualFold[T any](want string, field func(T) string) Predicate[T] {
	if IsAll(want) {
		return nil
	}
	want = strings.TrimSpace(want)
	return func(item T) bool {
		return strings.EqualFold(field(item), want)
	}
}

// Filter 所有非 nil 条件同时满足（合取）
func Filter[T any](items []T, preds ...Predicate[T]) []T {
	active := make([]Predicate[T], 0, len(preds))
	for _, p := range preds {
		if p != nil {
			active = append(active, p)
		}
	}
	out := make([]T, 0, len(items))
	for _, item := range items {
		ok := true
		for _, p := range active {
			if !p(item) {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, item)
		}
	}
	return out
}

// ── 排序 ──

// Direction 排序方向
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ParseDirection 非 desc 一律视为 asc
func ParseDirection(s string) Direction {
	if strings.EqualFold(strings.TrimSpace(s), string(Desc)) {
		return Desc
	}
	return Asc
}

// Compare 比较函数，语义同 cmp.Compare
type Compare[T any] func(a, b T) int

// By 按可排序字段比较
func By[T any, V cmp.Ordered](field func(T) V) Compare[T] {
	return func(a, b T) int {
		return cmp.Compare(field(a), field(b))
	}
}

// ByNatural 按字符串的自然顺序比较（"2nd" < "10th"）
func ByNatural[T any](field func(T) string) Compare[T] {
	return func(a, b T) int {
		return Natural(field(a), field(b))
	}
}

// Sort 稳定排序，返回新切片；cmpFn 为 nil 时保持原顺序
func Sort[T any](items []T, cmpFn Compare[T], dir Direction) []T {
	out := slices.Clone(items)
	if cmpFn == nil {
		return out
	}
	slices.SortStableFunc(out, func(a, b T) int {
		if dir == Desc {
			return cmpFn(b, a)
		}
		return cmpFn(a, b)
	})
	return out
}

// Natural 数字片段按数值比较，其余按大小写不敏感字典序
func Natural(a, b string) int {
	ra, rb := []rune(strings.ToLower(a)), []rune(strings.ToLower(b))
	i, j := 0, 0
	for i < len(ra) && j < len(rb) {
		if unicode.IsDigit(ra[i]) && unicode.IsDigit(rb[j]) {
			si := i
			for i < len(ra) && unicode.IsDigit(ra[i]) {
				i++
			}
			sj := j
			for j < len(rb) && unicode.IsDigit(rb[j]) {
				j++
			}
			na := strings.TrimLeft(string(ra[si:i]), "0")
			nb := strings.TrimLeft(string(rb[sj:j]), "0")
			if len(na) != len(nb) {
				return cmp.Compare(len(na), len(nb))
			}
			if c := strings.Compare(na, nb); c != 0 {
				return c
			}
			continue
		}
		if ra[i] != rb[j] {
			return cmp.Compare(ra[i], rb[j])
		}
		i++
		j++
	}
	return cmp.Compare(len(ra)-i, len(rb)-j)
}

// ── 分页 ──

// Page 分页结果
type Page[T any] struct {
	Items      []T `json:"list"`
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// TotalPages max(1, ceil(total/pageSize))
func TotalPages(total, pageSize int) int {
	if pageSize <= 0 {
		return 1
	}
	n := int(math.Ceil(float64(total) / float64(pageSize)))
	if n < 1 {
		return 1
	}
	return n
}

// Paginate 页码夹取到 [1, totalPages]，返回对应切片
func Paginate[T any](items []T, page, pageSize int) Page[T] {
	if pageSize <= 0 {
		pageSize = len(items)
		if pageSize == 0 {
			pageSize = 1
		}
	}
	total := len(items)
	totalPages := TotalPages(total, pageSize)
	page = min(max(page, 1), totalPages)

	start := (page - 1) * pageSize
	end := min(page*pageSize, total)
	var slice []T
	if start < end {
		slice = items[start:end]
	}
	if slice == nil {
		slice = []T{}
	}
	return Page[T]{
		Items:      slice,
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
	}
}

// Query 一次完整的列表查询
type Query[T any] struct {
	Filters  []Predicate[T]
	Compare  Compare[T]
	Dir      Direction
	Page     int
	PageSize int
}

// Run 过滤 → 排序 → 分页
func Run[T any](items []T, q Query[T]) Page[T] {
	filtered := Filter(items, q.Filters...)
	sorted := Sort(filtered, q.Compare, q.Dir)
	return Paginate(sorted, q.Page, q.PageSize)
}

// Distinct 非空取值去重后排序，用于下拉选项
func Distinct[T any](items []T, field func(T) string) []string {
	return DistinctFunc(items, field, strings.Compare)
}

// DistinctFunc 同 Distinct，使用自定义排序
func DistinctFunc[T any](items []T, field func(T) string, less func(a, b string) int) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, item := range items {
		v := strings.TrimSpace(field(item))
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) < 0 })
	return out
}
