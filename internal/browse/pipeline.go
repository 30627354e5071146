package browse

import (
	"math"
	"sort"
	"strings"

	"storefront/internal/catalog"
)

// Page 是一次管道计算的结果。
type Page struct {
	Items      []catalog.Product
	Page       int
	PageSize   int
	TotalItems int
	TotalPages int
}

// HasPrev reports whether an earlier page exists.
func (p Page) HasPrev() bool { return p.Page > 1 && p.TotalPages > 0 }

// HasNext reports whether a later page exists.
func (p Page) HasNext() bool { return p.Page < p.TotalPages }

// Apply 依次执行分类、标题、价格、评分过滤，排序后截取当前页。
// 输入切片不会被修改，越界页码返回空列表；未设置每页数量时使用 DefaultPageSize。
func Apply(products []catalog.Product, f Filter) Page {
	f.applyDefaults(max(f.PageSize, DefaultMaxPageSize))
	if f.PageSize == 0 {
		f.PageSize = DefaultPageSize
	}

	matched := Match(products, f)
	total := len(matched)

	page := Page{
		Items:      []catalog.Product{},
		Page:       f.Page,
		PageSize:   f.PageSize,
		TotalItems: total,
		TotalPages: int(math.Ceil(float64(total) / float64(f.PageSize))),
	}
	start := (f.Page - 1) * f.PageSize
	if start >= total {
		return page
	}
	end := start + f.PageSize
	if end > total {
		end = total
	}
	page.Items = matched[start:end:end]
	return page
}

// Match 返回满足筛选条件且已排序的全部商品，不分页。
func Match(products []catalog.Product, f Filter) []catalog.Product {
	title := strings.ToLower(strings.TrimSpace(f.Title))
	category := strings.TrimSpace(f.Category)

	result := make([]catalog.Product, 0, len(products))
	for _, product := range products {
		if category != "" && product.Category != category {
			continue
		}
		if title != "" && !strings.Contains(strings.ToLower(product.Title), title) {
			continue
		}
		if product.Price < f.MinPrice || product.Price > f.MaxPrice {
			continue
		}
		if f.Rating > 0 && Stars(product.Rating.Rate) != f.Rating {
			continue
		}
		result = append(result, product)
	}

	switch f.Sort {
	case SortAsc:
		sort.SliceStable(result, func(i, j int) bool { return result[i].Price < result[j].Price })
	case SortDesc:
		sort.SliceStable(result, func(i, j int) bool { return result[i].Price > result[j].Price })
	}
	return result
}

// Stars 返回评分向下取整后的星级，范围 0..5。
func Stars(rate float64) int {
	if math.IsNaN(rate) || rate <= 0 {
		return 0
	}
	stars := int(math.Floor(rate))
	if stars > 5 {
		return 5
	}
	return stars
}
