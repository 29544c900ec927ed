// Package fallback serves a small embedded snapshot of surveillance records.
// It is consulted only when a paginated load fails outright and aggregates
// nothing; a partial load never falls back.
package fallback

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/wildhealth/cwd-dashboard/pkg/gis"
)

//go:embed data/records.json
var rawRecords []byte

type document struct {
	Features []gis.Feature `json:"features"`
}

// Load decodes the embedded snapshot. A decode failure here is fatal for the
// load job; there is no further fallback.
func Load() ([]gis.Feature, error) {
	var doc document
	if err := json.Unmarshal(rawRecords, &doc); err != nil {
		return nil, fmt.Errorf("decoding embedded fallback data: %w", err)
	}
	if len(doc.Features) == 0 {
		return nil, fmt.Errorf("embedded fallback data contains no features")
	}
	return doc.Features, nil
}
