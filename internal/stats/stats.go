// Package stats computes summary statistics over normalized surveillance
// records and renders them for logs and the dashboard.
package stats

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/wildhealth/cwd-dashboard/internal/normalize"
)

// Summary aggregates one loaded dataset.
type Summary struct {
	Total     int            `json:"total"`
	Positives int            `json:"positives"`
	BySpecies map[string]int `json:"by_species"`
	ByYear    map[int]int    `json:"by_year"`
	ByResult  map[string]int `json:"by_result"`
}

// Compute builds a Summary from records. Samples with an empty field are
// bucketed under "unknown".
func Compute(records []normalize.Record) Summary {
	s := Summary{
		BySpecies: make(map[string]int),
		ByYear:    make(map[int]int),
		ByResult:  make(map[string]int),
	}

	for _, r := range records {
		s.Total++
		s.BySpecies[orUnknown(r.Species)]++
		s.ByYear[r.Year]++
		s.ByResult[orUnknown(r.Result)]++

		if strings.EqualFold(r.Result, "positive") {
			s.Positives++
		}
	}

	return s
}

func orUnknown(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}

// Render produces a text table of the per-species breakdown, suitable for
// log output and the CLI.
func (s Summary) Render() string {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"Species", "Samples", "Share"})

	for _, species := range sortedKeys(s.BySpecies) {
		count := s.BySpecies[species]
		share := 0.0
		if s.Total > 0 {
			share = float64(count) / float64(s.Total) * 100
		}
		tbl.AppendRow(table.Row{species, count, fmt.Sprintf("%.1f%%", share)})
	}

	tbl.AppendFooter(table.Row{"Total", s.Total, ""})

	return tbl.Render()
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
