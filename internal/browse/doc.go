// Package browse implements the product grid pipeline: filtering by
// category, title, price range and rating bucket, price sorting and page
// slicing, plus the sidebar facets derived from the full catalog.
//
// The pipeline is pure. It never mutates the slice it is given and it
// never keeps page state between calls.
package browse
