// Package render 将管道结果转换为前端直接使用的卡片、网格与详情视图。
package render

import (
	"fmt"
	"strconv"
	"strings"

	"storefront/internal/browse"
	"storefront/internal/catalog"
)

// Card 是网格中的单个商品卡片。
type Card struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Image       string  `json:"image"`
	Price       float64 `json:"price"`
	PriceLabel  string  `json:"price_label"`
	Stars       string  `json:"stars"`
	RatingCount int     `json:"rating_count"`
	Href        string  `json:"href"`
}

// Grid 是一页商品卡片以及分页信息。
type Grid struct {
	Cards      []Card `json:"cards"`
	Page       int    `json:"page"`
	PageSize   int    `json:"page_size"`
	TotalItems int    `json:"total_items"`
	TotalPages int    `json:"total_pages"`
	HasPrev    bool   `json:"has_prev"`
	HasNext    bool   `json:"has_next"`
}

// Detail 是商品详情页。
type Detail struct {
	Card
	Category   string  `json:"category"`
	RatingRate float64 `json:"rating_rate"`
}

// NewCard 根据商品生成卡片。
func NewCard(p catalog.Product) Card {
	return Card{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Image:       p.Image,
		Price:       p.Price,
		PriceLabel:  PriceLabel(p.Price),
		Stars:       StarBar(p.Rating.Rate),
		RatingCount: p.Rating.Count,
		Href:        ProductHref(p.ID),
	}
}

// NewGrid 根据管道输出生成网格。
func NewGrid(page browse.Page) Grid {
	cards := make([]Card, 0, len(page.Items))
	for _, item := range page.Items {
		cards = append(cards, NewCard(item))
	}
	return Grid{
		Cards:      cards,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalItems: page.TotalItems,
		TotalPages: page.TotalPages,
		HasPrev:    page.HasPrev(),
		HasNext:    page.HasNext(),
	}
}

// NewDetail 根据商品生成详情视图。
func NewDetail(p catalog.Product) Detail {
	return Detail{
		Card:       NewCard(p),
		Category:   p.Category,
		RatingRate: p.Rating.Rate,
	}
}

// PriceLabel 格式化价格，保留两位小数。
func PriceLabel(price float64) string {
	return "₹ " + strconv.FormatFloat(price, 'f', 2, 64)
}

// StarBar 返回五个字符的实心/空心星条。
func StarBar(rate float64) string {
	filled := browse.Stars(rate)
	return strings.Repeat("★", filled) + strings.Repeat("☆", 5-filled)
}

// ProductHref 返回详情页的站内路径。
func ProductHref(id int) string {
	return fmt.Sprintf("/product/%d", id)
}
