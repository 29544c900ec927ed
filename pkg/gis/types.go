// Package gis fetches pages of surveillance features from an ArcGIS-style
// FeatureServer query endpoint.
package gis

// Geometry is a point location in the layer's spatial reference.
type Geometry struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Feature is one raw surveillance record: an unstructured attribute mapping
// plus an optional point geometry.
type Feature struct {
	Attributes map[string]any `json:"attributes"`
	Geometry   *Geometry      `json:"geometry,omitempty"`
}

// Page is one fetched unit of features plus the continuation flag.
// Offset is the zero-based index of the first record, always a multiple of
// the batch size.
type Page struct {
	Offset                int
	Features              []Feature
	ExceededTransferLimit bool
}

// queryResponse mirrors the feature service JSON body. The service reports
// some failures inside a 200 body rather than via the status code.
type queryResponse struct {
	Features              []Feature     `json:"features"`
	ExceededTransferLimit bool          `json:"exceededTransferLimit"`
	Error                 *serviceError `json:"error,omitempty"`
}

type serviceError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
