// Package testutil provides testing utilities for the surveillance dashboard.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"
)

// MockPage scripts the response for one resultOffset.
type MockPage struct {
	// Features is the raw features payload; nil means an empty page.
	Features []map[string]any

	// ExceededTransferLimit is emitted verbatim when true. When false the
	// field is omitted, matching services that drop it on the last page.
	ExceededTransferLimit bool

	// FailCount makes the first N requests for this offset return 500
	// before succeeding. Use AlwaysFail for a permanent failure.
	FailCount int

	// AlwaysFail makes every request for this offset return 500.
	AlwaysFail bool

	// Delay is applied before responding.
	Delay time.Duration
}

// MockFeatureServer is a configurable paginated feature service for tests.
// Offsets without a scripted page return an empty page, which downstream
// code treats as end of data.
type MockFeatureServer struct {
	server *httptest.Server
	mu     sync.Mutex
	pages  map[int]*MockPage

	// attempts counts requests per offset, including failed ones.
	attempts map[int]int

	// RequestCount is the total number of query requests served.
	RequestCount int
}

// NewMockFeatureServer creates a mock server with no scripted pages.
func NewMockFeatureServer() *MockFeatureServer {
	mock := &MockFeatureServer{
		pages:    make(map[int]*MockPage),
		attempts: make(map[int]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(mock.handleQuery))

	return mock
}

// URL returns the mock server base URL.
func (m *MockFeatureServer) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockFeatureServer) Close() {
	m.server.Close()
}

// SetPage scripts the response for an offset.
func (m *MockFeatureServer) SetPage(offset int, page MockPage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages[offset] = &page
}

// Attempts returns how many requests were made for an offset.
func (m *MockFeatureServer) Attempts(offset int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts[offset]
}

// SamplePage builds a features payload of sequentially numbered samples,
// tagged with the offset so record order can be asserted.
func SamplePage(offset, count int) []map[string]any {
	features := make([]map[string]any, count)
	for i := range features {
		features[i] = map[string]any{
			"attributes": map[string]any{
				"SAMPLE_ID":    fmt.Sprintf("S-%d", offset+i),
				"SPECIES":      "Moose",
				"TEST_RESULT":  "Negative",
				"SAMPLE_YEAR":  2021,
				"MUNICIPALITY": "Selbu",
			},
			"geometry": map[string]any{"x": 11.0, "y": 63.2},
		}
	}
	return features
}

func (m *MockFeatureServer) handleQuery(w http.ResponseWriter, r *http.Request) {
	offset, _ := strconv.Atoi(r.URL.Query().Get("resultOffset"))

	m.mu.Lock()
	m.RequestCount++
	m.attempts[offset]++
	attempt := m.attempts[offset]
	page := m.pages[offset]
	m.mu.Unlock()

	if page == nil {
		writeJSON(w, map[string]any{"features": []any{}})
		return
	}

	if page.Delay > 0 {
		time.Sleep(page.Delay)
	}

	if page.AlwaysFail || attempt <= page.FailCount {
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
		return
	}

	body := map[string]any{"features": page.Features}
	if body["features"] == nil {
		body["features"] = []any{}
	}
	if page.ExceededTransferLimit {
		body["exceededTransferLimit"] = true
	}
	writeJSON(w, body)
}

func writeJSON(w http.ResponseWriter, body map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}
