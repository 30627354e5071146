package browse

import (
	"math"

	"storefront/internal/catalog"
)

// CategoryCount 是单个分类下的商品数。
type CategoryCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// RatingBucket 是某个星级下的商品数。
type RatingBucket struct {
	Stars int `json:"stars"`
	Count int `json:"count"`
}

// PriceBounds 是价格滑块的取值范围。
type PriceBounds struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Facets 是侧边栏展示所需的聚合信息。
type Facets struct {
	Categories []CategoryCount `json:"categories"`
	Price      PriceBounds     `json:"price"`
	Ratings    []RatingBucket  `json:"ratings"`
}

// DefaultPriceBounds is used when the catalog is empty.
var DefaultPriceBounds = PriceBounds{Min: 0, Max: 1000}

// BuildFacets 根据分类列表与全部商品计算侧边栏数据。
// categories 决定分类顺序；商品中出现但不在列表里的分类追加在末尾。
func BuildFacets(categories []string, products []catalog.Product) Facets {
	counts := make(map[string]int, len(categories))
	var extra []string
	known := make(map[string]struct{}, len(categories))
	for _, name := range categories {
		known[name] = struct{}{}
	}
	for _, product := range products {
		if _, ok := known[product.Category]; !ok {
			known[product.Category] = struct{}{}
			extra = append(extra, product.Category)
		}
		counts[product.Category]++
	}

	facets := Facets{
		Categories: make([]CategoryCount, 0, len(categories)+len(extra)),
		Price:      PriceRange(products),
		Ratings:    make([]RatingBucket, 0, 5),
	}
	for _, name := range append(append([]string(nil), categories...), extra...) {
		facets.Categories = append(facets.Categories, CategoryCount{Name: name, Count: counts[name]})
	}

	var buckets [6]int
	for _, product := range products {
		buckets[Stars(product.Rating.Rate)]++
	}
	for stars := 5; stars >= 1; stars-- {
		facets.Ratings = append(facets.Ratings, RatingBucket{Stars: stars, Count: buckets[stars]})
	}
	return facets
}

// PriceRange 返回 floor(最低价) 与 ceil(最高价)。
func PriceRange(products []catalog.Product) PriceBounds {
	if len(products) == 0 {
		return DefaultPriceBounds
	}
	lo, hi := products[0].Price, products[0].Price
	for _, product := range products[1:] {
		lo = math.Min(lo, product.Price)
		hi = math.Max(hi, product.Price)
	}
	return PriceBounds{Min: math.Floor(lo), Max: math.Ceil(hi)}
}
