package table

// View 有状态的列表视图
// 修改任一过滤条件、搜索词或每页条数都会把页码重置为 1
type View[T any] struct {
	search   string
	filters  map[string]string
	sortKey  string
	dir      Direction
	page     int
	pageSize int
}

// NewView 创建视图
func NewView[T any](pageSize int) *View[T] {
	return &View[T]{
		filters:  make(map[string]string),
		dir:      Asc,
		page:     1,
		pageSize: pageSize,
	}
}

// SetSearch 设置搜索词
func (v *View[T]) SetSearch(q string) {
	if q != v.search {
		v.search = q
		v.page = 1
	}
}

// SetFilter 设置具名过滤条件
func (v *View[T]) SetFilter(name, value string) {
	if v.filters[name] != value {
		v.filters[name] = value
		v.page = 1
	}
}

// SetSort 设置排序；再次选择同一列时切换方向
func (v *View[T]) SetSort(key string) {
	if key == v.sortKey {
		if v.dir == Asc {
			v.dir = Desc
		} else {
			v.dir = Asc
		}
		return
	}
	v.sortKey = key
	v.dir = Asc
}

// SortBy 显式设置排序列与方向，不切换
func (v *View[T]) SortBy(key string, dir Direction) {
	v.sortKey = key
	v.dir = dir
}

// SetPage 设置页码，夹取在 Result 中完成
func (v *View[T]) SetPage(page int) {
	v.page = page
}

// SetPageSize 设置每页条数
func (v *View[T]) SetPageSize(size int) {
	if size != v.pageSize {
		v.pageSize = size
		v.page = 1
	}
}

// Search 当前搜索词
func (v *View[T]) Search() string { return v.search }

// Filter 当前过滤值
func (v *View[T]) Filter(name string) string { return v.filters[name] }

// SortKey 当前排序列与方向
func (v *View[T]) SortKey() (string, Direction) { return v.sortKey, v.dir }

// Page 当前页码（未夹取）
func (v *View[T]) Page() int { return v.page }

// Result 根据当前状态计算结果，并把夹取后的页码写回
// buildFilters 根据过滤值生成条件，sorters 提供列名到比较函数的映射
func (v *View[T]) Result(items []T, buildFilters func(search string, filters map[string]string) []Predicate[T], sorters map[string]Compare[T]) Page[T] {
	page := Run(items, Query[T]{
		Filters:  buildFilters(v.search, v.filters),
		Compare:  sorters[v.sortKey],
		Dir:      v.dir,
		Page:     v.page,
		PageSize: v.pageSize,
	})
	v.page = page.Page
	return page
}
