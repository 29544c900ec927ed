package stats

import (
	"strings"
	"testing"

	"github.com/wildhealth/cwd-dashboard/internal/normalize"
)

func sample(species, result string, year int) normalize.Record {
	return normalize.Record{Species: species, Result: result, Year: year}
}

func TestCompute(t *testing.T) {
	records := []normalize.Record{
		sample("Moose", "Negative", 2020),
		sample("Moose", "Positive", 2020),
		sample("Reindeer", "positive", 2021), // result casing varies upstream
		sample("Red deer", "Negative", 2021),
		sample("", "", 2021),
	}

	s := Compute(records)

	if s.Total != 5 {
		t.Errorf("Total = %d, want 5", s.Total)
	}
	if s.Positives != 2 {
		t.Errorf("Positives = %d, want 2 (case-insensitive)", s.Positives)
	}
	if s.BySpecies["Moose"] != 2 {
		t.Errorf("BySpecies[Moose] = %d, want 2", s.BySpecies["Moose"])
	}
	if s.BySpecies["unknown"] != 1 {
		t.Errorf("BySpecies[unknown] = %d, want 1", s.BySpecies["unknown"])
	}
	if s.ByYear[2021] != 3 {
		t.Errorf("ByYear[2021] = %d, want 3", s.ByYear[2021])
	}
	if s.ByResult["unknown"] != 1 {
		t.Errorf("ByResult[unknown] = %d, want 1", s.ByResult["unknown"])
	}
}

func TestCompute_Empty(t *testing.T) {
	s := Compute(nil)
	if s.Total != 0 || s.Positives != 0 {
		t.Errorf("Compute(nil) = %+v, want zero summary", s)
	}
	if s.BySpecies == nil || s.ByYear == nil || s.ByResult == nil {
		t.Error("Compute(nil) should return initialized maps")
	}
}

func TestRender(t *testing.T) {
	s := Compute([]normalize.Record{
		sample("Moose", "Negative", 2020),
		sample("Reindeer", "Positive", 2021),
	})

	out := s.Render()

	for _, want := range []string{"Moose", "Reindeer", "Total", "50.0%"} {
		if !strings.Contains(out, want) {
			t.Errorf("Render output missing %q:\n%s", want, out)
		}
	}
}

func TestRender_EmptyDataset(t *testing.T) {
	out := Compute(nil).Render()
	if !strings.Contains(out, "Total") {
		t.Errorf("Render on empty dataset missing footer:\n%s", out)
	}
}
