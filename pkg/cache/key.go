package cache

import (
	"fmt"
	"strings"
)

// PageKey represents a unique identifier for a cached feature page.
type PageKey struct {
	// Layer is the feature layer path (e.g. "/0/query").
	Layer string

	// Offset is the page offset within the query result set.
	Offset int
}

// String generates a deterministic cache key string.
// Format: cwd:<layer>:offset=<n>
//
// Example:
//
//	cwd:0/query:offset=2000
func (k PageKey) String() string {
	parts := []string{"cwd"}

	layer := strings.Trim(k.Layer, "/")
	if layer != "" {
		parts = append(parts, layer)
	}

	parts = append(parts, fmt.Sprintf("offset=%d", k.Offset))

	return strings.Join(parts, ":")
}
