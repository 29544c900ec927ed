package dashboard

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/wildhealth/cwd-dashboard/internal/normalize"
)

// renderMap writes a scatter chart of sample locations, positives and
// negatives as separate series so positives stand out.
func renderMap(w io.Writer, records []normalize.Record) error {
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "CWD surveillance samples",
			Subtitle: fmt.Sprintf("%d samples", len(records)),
		}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Longitude", Type: "value", Scale: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Latitude", Type: "value", Scale: opts.Bool(true)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)

	var positives, others []opts.ScatterData
	for _, r := range records {
		if r.Longitude == 0 && r.Latitude == 0 {
			continue
		}
		point := opts.ScatterData{
			Name:       r.SampleID,
			Value:      []any{r.Longitude, r.Latitude},
			SymbolSize: 6,
		}
		if strings.EqualFold(r.Result, "positive") {
			point.SymbolSize = 10
			positives = append(positives, point)
		} else {
			others = append(others, point)
		}
	}

	scatter.AddSeries("Negative / pending", others)
	scatter.AddSeries("Positive", positives,
		charts.WithItemStyleOpts(opts.ItemStyle{Color: "#c0392b"}),
	)

	return scatter.Render(w)
}

// tableRowLimit keeps the HTML view responsive on large datasets. The full
// dataset is always available from /api/records.
const tableRowLimit = 1000

func renderTable(records []normalize.Record) string {
	tbl := table.NewWriter()
	tbl.SetTitle("CWD surveillance samples")
	tbl.AppendHeader(table.Row{
		"Sample", "Species", "Sex", "Year", "Result", "Municipality", "Found", "Lon", "Lat",
	})

	shown := records
	truncated := false
	if len(shown) > tableRowLimit {
		shown = shown[:tableRowLimit]
		truncated = true
	}

	for _, r := range shown {
		tbl.AppendRow(table.Row{
			r.SampleID, r.Species, r.Sex, r.Year, r.Result,
			r.Municipality, r.FoundDate, r.Longitude, r.Latitude,
		})
	}

	footer := fmt.Sprintf("%d samples", len(records))
	if truncated {
		footer = fmt.Sprintf("showing %d of %d samples", tableRowLimit, len(records))
	}
	tbl.AppendFooter(table.Row{footer})

	return "<!DOCTYPE html><html><head><meta charset=\"utf-8\"><title>CWD samples</title></head><body>" +
		tbl.RenderHTML() +
		"</body></html>"
}
