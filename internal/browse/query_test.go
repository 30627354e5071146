package browse

import (
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"

	xerrors "storefront/internal/errors"
)

func TestParseQuery(t *testing.T) {
	values := url.Values{
		"category":  {"electronics"},
		"title":     {"ssd"},
		"min_price": {"10"},
		"max_price": {"200.5"},
		"rating":    {"4"},
		"sort":      {"DESC"},
		"page":      {"2"},
	}
	f, err := ParseQuery(values, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := Filter{Category: "electronics", Title: "ssd", MinPrice: 10, MaxPrice: 200.5, Rating: 4, Sort: SortDesc, Page: 2}
	if diff := cmp.Diff(want, f); diff != "" {
		t.Fatalf("unexpected filter (-want +got):\n%s", diff)
	}
}

func TestParseQueryDefaultsToFirstPage(t *testing.T) {
	f, err := ParseQuery(url.Values{"category": {"jewelery"}}, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Page != 1 || f.PageSize != 0 || f.MaxPrice != DefaultMaxPrice {
		t.Fatalf("unexpected defaults: %+v", f)
	}
}

func TestParseQueryClampsPageSize(t *testing.T) {
	f, err := ParseQuery(url.Values{"page_size": {"500"}}, 24)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.PageSize != 24 {
		t.Fatalf("expected page size clamped to 24, got %d", f.PageSize)
	}
}

func TestParseQueryRejectsMalformedInput(t *testing.T) {
	values := url.Values{
		"min_price": {"cheap"},
		"rating":    {"7"},
		"sort":      {"random"},
		"page":      {"0"},
	}
	_, err := ParseQuery(values, 0)
	if xerrors.CodeOf(err) != xerrors.CodeInvalidArgument {
		t.Fatalf("expected INVALID_ARGUMENT, got %v", err)
	}
	e, _ := xerrors.From(err)
	meta := e.Metadata()
	for _, field := range []string{"min_price", "rating", "sort", "page"} {
		if _, ok := meta[field]; !ok {
			t.Fatalf("expected field error for %s, got %v", field, meta)
		}
	}
}

func TestValuesRoundTripsThroughParseQuery(t *testing.T) {
	f := NewFilter(WithCategory("jewelery"), WithRating(3), WithSort(SortAsc), WithPage(2))
	parsed, err := ParseQuery(f.Values(), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff(f, parsed); diff != "" {
		t.Fatalf("unexpected filter (-want +got):\n%s", diff)
	}
	if len(NewFilter().Values()) != 0 {
		t.Fatalf("default filter must encode to no parameters")
	}
}

func TestValuesKeepsExplicitDefaultPageSize(t *testing.T) {
	f := NewFilter(WithPageSize(DefaultPageSize))
	if got := f.Values().Get(ParamPageSize); got != "6" {
		t.Fatalf("explicit page size must be encoded, got %q", got)
	}
	parsed, err := ParseQuery(f.Values(), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if parsed.PageSize != DefaultPageSize {
		t.Fatalf("expected page size 6, got %d", parsed.PageSize)
	}
}
