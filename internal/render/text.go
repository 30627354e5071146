package render

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"storefront/internal/browse"
)

// WriteGrid 以表格形式输出一页商品，供命令行使用。
func WriteGrid(w io.Writer, grid Grid) error {
	if len(grid.Cards) == 0 {
		_, err := fmt.Fprintf(w, "no products match (page %d of %d)\n", grid.Page, grid.TotalPages)
		return err
	}
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "Title", "Price", "Rating", "Reviews"})
	table.SetAutoWrapText(false)
	table.SetColWidth(48)
	for _, card := range grid.Cards {
		table.Append([]string{
			strconv.Itoa(card.ID),
			truncate(card.Title, 48),
			card.PriceLabel,
			card.Stars,
			strconv.Itoa(card.RatingCount),
		})
	}
	table.Render()

	_, err := fmt.Fprintf(w, "page %d of %d, %d products%s\n",
		grid.Page, grid.TotalPages, grid.TotalItems, navHint(grid))
	return err
}

// WriteDetail 输出单个商品详情。
func WriteDetail(w io.Writer, d Detail) error {
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(true)
	table.SetColWidth(72)
	table.AppendBulk([][]string{
		{"ID", strconv.Itoa(d.ID)},
		{"Title", d.Title},
		{"Category", d.Category},
		{"Price", d.PriceLabel},
		{"Rating", fmt.Sprintf("%s %.1f (%d reviews)", d.Stars, d.RatingRate, d.RatingCount)},
		{"Image", d.Image},
		{"Description", d.Description},
	})
	table.Render()
	return nil
}

// WriteFacets 输出分类、价格区间与星级分布。
func WriteFacets(w io.Writer, f browse.Facets) error {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Facet", "Value", "Products"})
	table.SetAutoWrapText(false)
	for _, c := range f.Categories {
		table.Append([]string{"category", c.Name, strconv.Itoa(c.Count)})
	}
	for _, r := range f.Ratings {
		table.Append([]string{"rating", StarBar(float64(r.Stars)), strconv.Itoa(r.Count)})
	}
	table.Render()

	_, err := fmt.Fprintf(w, "price range %s - %s\n", PriceLabel(f.Price.Min), PriceLabel(f.Price.Max))
	return err
}

func navHint(grid Grid) string {
	switch {
	case grid.HasPrev && grid.HasNext:
		return " (more before and after)"
	case grid.HasNext:
		return " (next: --page " + strconv.Itoa(grid.Page+1) + ")"
	case grid.HasPrev:
		return " (prev: --page " + strconv.Itoa(grid.Page-1) + ")"
	}
	return ""
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
