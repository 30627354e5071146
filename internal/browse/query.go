package browse

import (
	"net/url"
	"strconv"
	"strings"

	xerrors "storefront/internal/errors"
)

// Query parameter names shared by the HTTP API, the SDK and the CLI.
const (
	ParamCategory = "category"
	ParamTitle    = "title"
	ParamMinPrice = "min_price"
	ParamMaxPrice = "max_price"
	ParamRating   = "rating"
	ParamSort     = "sort"
	ParamPage     = "page"
	ParamPageSize = "page_size"
)

// ParseQuery 将查询参数解析为筛选状态。缺少 page 时视为第一页，缺少 page_size 时 PageSize 为 0。
func ParseQuery(values url.Values, maxPageSize int) (Filter, error) {
	opts := []Option{
		WithCategory(values.Get(ParamCategory)),
		WithTitle(values.Get(ParamTitle)),
	}

	var fieldErrs []xerrors.Option
	minPrice, maxPrice := float64(DefaultMinPrice), float64(DefaultMaxPrice)
	if raw := strings.TrimSpace(values.Get(ParamMinPrice)); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 {
			fieldErrs = append(fieldErrs, xerrors.WithMetadata(ParamMinPrice, "must be a non-negative number"))
		} else {
			minPrice = v
		}
	}
	if raw := strings.TrimSpace(values.Get(ParamMaxPrice)); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 {
			fieldErrs = append(fieldErrs, xerrors.WithMetadata(ParamMaxPrice, "must be a non-negative number"))
		} else {
			maxPrice = v
		}
	}
	opts = append(opts, WithPriceRange(minPrice, maxPrice))

	if raw := strings.TrimSpace(values.Get(ParamRating)); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 || v > 5 {
			fieldErrs = append(fieldErrs, xerrors.WithMetadata(ParamRating, "must be an integer between 0 and 5"))
		} else {
			opts = append(opts, WithRating(v))
		}
	}

	switch sort := SortOrder(strings.ToLower(strings.TrimSpace(values.Get(ParamSort)))); sort {
	case SortNone, SortAsc, SortDesc:
		opts = append(opts, WithSort(sort))
	default:
		fieldErrs = append(fieldErrs, xerrors.WithMetadata(ParamSort, "must be asc or desc"))
	}

	for _, field := range []struct {
		name  string
		apply func(int) Option
	}{{ParamPage, WithPage}, {ParamPageSize, WithPageSize}} {
		raw := strings.TrimSpace(values.Get(field.name))
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			fieldErrs = append(fieldErrs, xerrors.WithMetadata(field.name, "must be a positive integer"))
			continue
		}
		opts = append(opts, field.apply(v))
	}

	if len(fieldErrs) > 0 {
		return Filter{}, xerrors.New(xerrors.CodeInvalidArgument, "invalid browse query", fieldErrs...)
	}
	f := Filter{MinPrice: DefaultMinPrice, MaxPrice: DefaultMaxPrice, Page: 1}
	for _, opt := range opts {
		opt(&f)
	}
	return f.Normalize(maxPageSize), nil
}

// Values 将筛选状态编码为查询参数，默认值会被省略。
func (f Filter) Values() url.Values {
	values := url.Values{}
	if f.Category != "" {
		values.Set(ParamCategory, f.Category)
	}
	if f.Title != "" {
		values.Set(ParamTitle, f.Title)
	}
	if f.MinPrice != DefaultMinPrice {
		values.Set(ParamMinPrice, strconv.FormatFloat(f.MinPrice, 'f', -1, 64))
	}
	if f.MaxPrice != DefaultMaxPrice {
		values.Set(ParamMaxPrice, strconv.FormatFloat(f.MaxPrice, 'f', -1, 64))
	}
	if f.Rating > 0 {
		values.Set(ParamRating, strconv.Itoa(f.Rating))
	}
	if f.Sort != SortNone {
		values.Set(ParamSort, string(f.Sort))
	}
	if f.Page > 1 {
		values.Set(ParamPage, strconv.Itoa(f.Page))
	}
	if f.PageSize > 0 {
		values.Set(ParamPageSize, strconv.Itoa(f.PageSize))
	}
	return values
}
