// Package normalize converts raw feature attributes into typed surveillance
// records. The upstream layer is loose about types: numbers arrive as JSON
// float64 or as strings, dates as epoch milliseconds, and the same sample can
// appear in more than one page after a source-side re-export.
package normalize

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/wildhealth/cwd-dashboard/pkg/gis"
)

// Raw attribute names as published by the feature layer.
const (
	attrSampleID     = "SAMPLE_ID"
	attrSpecies      = "SPECIES"
	attrSex          = "SEX"
	attrSampleYear   = "SAMPLE_YEAR"
	attrTestResult   = "TEST_RESULT"
	attrMunicipality = "MUNICIPALITY"
	attrFoundDate    = "FOUND_DATE"
)

// Record is one normalized surveillance sample.
type Record struct {
	SampleID     string  `json:"sample_id"`
	Species      string  `json:"species"`
	Sex          string  `json:"sex"`
	Year         int     `json:"year"`
	Result       string  `json:"result"`
	Municipality string  `json:"municipality"`
	FoundDate    string  `json:"found_date,omitempty"`
	Longitude    float64 `json:"longitude"`
	Latitude     float64 `json:"latitude"`
}

// Normalizer converts features to records.
type Normalizer struct {
	logger zerolog.Logger
}

// New creates a Normalizer.
func New(logger zerolog.Logger) *Normalizer {
	return &Normalizer{
		logger: logger.With().Str("component", "normalize").Logger(),
	}
}

// Records converts features into deduplicated records. Input order is
// preserved; when the same sample appears more than once, the first
// occurrence wins.
func (n *Normalizer) Records(features []gis.Feature) []Record {
	records := make([]Record, 0, len(features))
	seen := make(map[string]struct{}, len(features))
	dropped := 0

	for _, f := range features {
		rec := fromFeature(f)

		key := rec.SampleID
		if key == "" {
			// No natural key; fall back to a composite that still catches
			// byte-identical duplicates.
			key = fmt.Sprintf("%s|%d|%s|%.6f|%.6f",
				rec.Species, rec.Year, rec.Municipality, rec.Longitude, rec.Latitude)
		}
		if _, ok := seen[key]; ok {
			dropped++
			continue
		}
		seen[key] = struct{}{}

		records = append(records, rec)
	}

	if dropped > 0 {
		n.logger.Debug().
			Int("duplicates", dropped).
			Int("records", len(records)).
			Msg("Dropped duplicate samples")
	}

	return records
}

func fromFeature(f gis.Feature) Record {
	rec := Record{
		SampleID:     stringAttr(f.Attributes, attrSampleID),
		Species:      stringAttr(f.Attributes, attrSpecies),
		Sex:          stringAttr(f.Attributes, attrSex),
		Year:         intAttr(f.Attributes, attrSampleYear),
		Result:       stringAttr(f.Attributes, attrTestResult),
		Municipality: stringAttr(f.Attributes, attrMunicipality),
		FoundDate:    dateAttr(f.Attributes, attrFoundDate),
	}
	if f.Geometry != nil {
		rec.Longitude = f.Geometry.X
		rec.Latitude = f.Geometry.Y
	}
	return rec
}

// stringAttr reads an attribute as a string, converting numeric values the
// layer occasionally emits for text fields.
func stringAttr(attrs map[string]any, name string) string {
	switch v := attrs[name].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

// intAttr reads an attribute as an int. JSON numbers decode as float64;
// some exports quote them.
func intAttr(attrs map[string]any, name string) int {
	switch v := attrs[name].(type) {
	case float64:
		return int(v)
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0
		}
		return i
	default:
		return 0
	}
}

// dateAttr reads an epoch-milliseconds attribute and renders it as an ISO
// date. Missing or zero values produce an empty string.
func dateAttr(attrs map[string]any, name string) string {
	millis, ok := attrs[name].(float64)
	if !ok || millis <= 0 {
		return ""
	}
	return time.UnixMilli(int64(millis)).UTC().Format("2006-01-02")
}
