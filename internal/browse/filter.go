package browse

import "strings"

// SortOrder 描述价格排序方式。
type SortOrder string

const (
	// SortNone keeps the catalog order.
	SortNone SortOrder = ""
	// SortAsc orders by price, cheapest first.
	SortAsc SortOrder = "asc"
	// SortDesc orders by price, most expensive first.
	SortDesc SortOrder = "desc"
)

const (
	DefaultMinPrice    = 0
	DefaultMaxPrice    = 10000
	DefaultPageSize    = 6
	DefaultMaxPageSize = 60
)

// Filter 是商品网格的完整筛选状态。Rating 为 0 表示未选择评分，
// PageSize 为 0 表示使用服务端配置的每页数量。
type Filter struct {
	Category string
	Title    string
	MinPrice float64
	MaxPrice float64
	Rating   int
	Sort     SortOrder
	Page     int
	PageSize int
}

// Option mutates a Filter before normalisation.
type Option func(*Filter)

// WithCategory restricts results to a single category.
func WithCategory(category string) Option {
	return func(f *Filter) {
		f.Category = category
	}
}

// WithTitle keeps products whose title contains the query, ignoring case.
func WithTitle(title string) Option {
	return func(f *Filter) {
		f.Title = title
	}
}

// WithPriceRange keeps products priced inside [min, max].
func WithPriceRange(min, max float64) Option {
	return func(f *Filter) {
		f.MinPrice = min
		f.MaxPrice = max
	}
}

// WithRating keeps products whose floored rating equals stars.
func WithRating(stars int) Option {
	return func(f *Filter) {
		f.Rating = stars
	}
}

// WithSort changes the result ordering.
func WithSort(order SortOrder) Option {
	return func(f *Filter) {
		f.Sort = order
	}
}

// WithPage selects a 1-based page.
func WithPage(page int) Option {
	return func(f *Filter) {
		f.Page = page
	}
}

// WithPageSize overrides the number of cards per page.
func WithPageSize(size int) Option {
	return func(f *Filter) {
		f.PageSize = size
	}
}

// NewFilter 在默认筛选状态上应用 opts 并做规范化。
func NewFilter(opts ...Option) Filter {
	f := Filter{
		MinPrice: DefaultMinPrice,
		MaxPrice: DefaultMaxPrice,
		Page:     1,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&f)
		}
	}
	f.applyDefaults(DefaultMaxPageSize)
	return f
}

// Normalize 返回规范化后的副本，maxPageSize <= 0 时使用默认上限。
func (f Filter) Normalize(maxPageSize int) Filter {
	if maxPageSize <= 0 {
		maxPageSize = DefaultMaxPageSize
	}
	f.applyDefaults(maxPageSize)
	return f
}

func (f *Filter) applyDefaults(maxPageSize int) {
	f.Category = strings.TrimSpace(f.Category)
	f.Title = strings.TrimSpace(f.Title)
	if f.MinPrice < 0 {
		f.MinPrice = 0
	}
	if f.MaxPrice < 0 {
		f.MaxPrice = 0
	}
	if f.MinPrice > f.MaxPrice {
		f.MinPrice, f.MaxPrice = f.MaxPrice, f.MinPrice
	}
	if f.Rating < 0 {
		f.Rating = 0
	}
	switch SortOrder(strings.ToLower(string(f.Sort))) {
	case SortAsc:
		f.Sort = SortAsc
	case SortDesc:
		f.Sort = SortDesc
	default:
		f.Sort = SortNone
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 0 {
		f.PageSize = 0
	}
	if f.PageSize > maxPageSize {
		f.PageSize = maxPageSize
	}
}
