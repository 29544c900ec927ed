// Package dashboard exposes the surveillance data over HTTP: a small JSON
// API for load control and data access, plus rendered map and table views.
package dashboard

import (
	"context"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/wildhealth/cwd-dashboard/internal/fallback"
	"github.com/wildhealth/cwd-dashboard/internal/normalize"
	"github.com/wildhealth/cwd-dashboard/internal/stats"
	"github.com/wildhealth/cwd-dashboard/pkg/batch"
	"github.com/wildhealth/cwd-dashboard/pkg/gis"
)

// LoadFunc runs one full paginated fetch, reporting progress to the
// observer. The dashboard never builds its own fetch pipeline; the caller
// injects it.
type LoadFunc func(ctx context.Context, obs batch.Observer) (*batch.Result, error)

// FallbackFunc supplies the static dataset used when a load aggregates
// nothing at all.
type FallbackFunc func() ([]gis.Feature, error)

// Server is the dashboard HTTP server. All collaborators are injected.
type Server struct {
	engine     *gin.Engine
	load       LoadFunc
	fallbackFn FallbackFunc
	normalizer *normalize.Normalizer
	logger     zerolog.Logger

	mu      sync.Mutex
	job     *loadJob
	jobSeq  int
	dataset *dataset
}

// dataset is one fully loaded, normalized snapshot. Replaced wholesale when
// a load finishes; never mutated in place.
type dataset struct {
	records  []normalize.Record
	summary  stats.Summary
	degraded bool
}

// New creates a dashboard server. fallbackFn may be nil, in which case the
// embedded snapshot is used.
func New(load LoadFunc, fallbackFn FallbackFunc, logger zerolog.Logger) *Server {
	if fallbackFn == nil {
		fallbackFn = fallback.Load
	}

	s := &Server{
		load:       load,
		fallbackFn: fallbackFn,
		normalizer: normalize.New(logger),
		logger:     logger.With().Str("component", "dashboard").Logger(),
	}

	gin.SetMode(gin.ReleaseMode)
	s.engine = gin.New()
	s.engine.Use(gin.Recovery())

	api := s.engine.Group("/api")
	api.POST("/load", s.handleStartLoad)
	api.GET("/load/status", s.handleLoadStatus)
	api.GET("/records", s.handleRecords)
	api.GET("/stats", s.handleStats)

	s.engine.GET("/map", s.handleMap)
	s.engine.GET("/table", s.handleTable)
	s.engine.GET("/health", s.handleHealth)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until the listener fails.
func (s *Server) Run(addr string) error {
	s.logger.Info().Str("addr", addr).Msg("Starting dashboard server")
	return s.engine.Run(addr)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
