package batch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/wildhealth/cwd-dashboard/pkg/gis"
)

// Prometheus metrics for batch fetch runs.
var (
	pagesFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cwd_batch_pages_fetched_total",
		Help: "Total pages fetched successfully across all runs",
	})

	pagesFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cwd_batch_pages_failed_total",
		Help: "Total pages that exhausted their retry budget",
	})

	fetchesInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cwd_batch_fetches_in_flight",
		Help: "Page fetches currently in flight",
	})

	recordsLoaded = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cwd_batch_records_loaded",
		Help: "Records aggregated into the ordered output of the current run",
	})
)

// ErrNoData is returned when a run aggregated nothing and at least one
// offset failed. It distinguishes "every attempt failed" from a genuinely
// empty source, which is a successful run with an empty output.
var ErrNoData = errors.New("no data aggregated")

// PageFetcher fetches a single page by offset. Implemented by pkg/gis.
// Retries and timeouts are the fetcher's concern; an error here is terminal
// for that offset.
type PageFetcher interface {
	FetchPage(ctx context.Context, offset int) (*gis.Page, error)
}

// Config holds scheduler configuration.
type Config struct {
	// BatchSize is the page size in records; offsets advance by this amount.
	BatchSize int

	// MaxConcurrent bounds the number of in-flight page fetches.
	MaxConcurrent int

	// Observer receives a progress update after each scheduler iteration.
	// Optional; nil means no reporting.
	Observer Observer
}

// DefaultConfig returns safe defaults for the surveillance service.
func DefaultConfig() Config {
	return Config{
		BatchSize:     gis.DefaultBatchSize,
		MaxConcurrent: 4,
	}
}

// Result is the outcome of one load run.
type Result struct {
	// Features is the ordered concatenation of all aggregated pages.
	Features []gis.Feature

	// Failed lists offsets that exhausted retries, ascending. Non-empty
	// Failed with non-empty Features is a partial success.
	Failed []int

	// TotalFetched counts records across all completed pages, including
	// pages stranded above a failed offset.
	TotalFetched int
}

// Scheduler drives a full multi-page fetch to completion.
type Scheduler struct {
	fetcher PageFetcher
	config  Config
	logger  zerolog.Logger
}

// NewScheduler creates a batch scheduler.
func NewScheduler(fetcher PageFetcher, config Config, logger zerolog.Logger) *Scheduler {
	if config.BatchSize <= 0 {
		config.BatchSize = gis.DefaultBatchSize
	}
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 4
	}

	return &Scheduler{
		fetcher: fetcher,
		config:  config,
		logger:  logger.With().Str("component", "batch-scheduler").Logger(),
	}
}

// settle carries one finished fetch back to the scheduler loop. Every
// dispatched offset produces exactly one settle event, success or failure.
type settle struct {
	offset int
	page   *gis.Page
	err    error
}

// FetchAll fetches pages until the source reports no more data, returning
// the ordered concatenation of all successfully aggregated records.
//
// Offsets are dispatched speculatively to keep the concurrency window full;
// completions arriving out of order are buffered and drained contiguously,
// so the output order always matches ascending offset order. A terminal
// failure at an offset is a permanent hole: nothing above it can ever be
// aggregated, so the scheduler stops requesting new pages, drains the
// window, and returns what it has (partial success). ErrNoData is returned
// when the hole is at the very start and nothing was aggregated at all.
func (s *Scheduler) FetchAll(ctx context.Context) (*Result, error) {
	start := time.Now()

	// Cancelling releases any fetches still in flight on early return.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	st := newFetchState(s.config.BatchSize)
	tracker := newProgressTracker(s.config.Observer)
	settled := make(chan settle, s.config.MaxConcurrent)

	var features []gis.Feature
	pagesAggregated := 0

	s.logger.Info().
		Int("batch_size", s.config.BatchSize).
		Int("max_concurrent", s.config.MaxConcurrent).
		Msg("Starting batch fetch")

	canDispatch := func() bool {
		return st.hasMore && len(st.failed) == 0 && ctx.Err() == nil
	}

	for canDispatch() || len(st.inFlight) > 0 {
		// Fill the concurrency window. nextFetchOffset advances at dispatch
		// time so offsets are issued monotonically and at most once, while
		// completions may arrive in any order.
		for canDispatch() && len(st.inFlight) < s.config.MaxConcurrent {
			offset := st.nextFetchOffset
			st.inFlight[offset] = struct{}{}
			st.nextFetchOffset += st.batchSize
			fetchesInFlight.Inc()

			go func() {
				page, err := s.fetcher.FetchPage(ctx, offset)
				settled <- settle{offset: offset, page: page, err: err}
			}()

			s.logger.Debug().Int("offset", offset).Msg("Dispatched page fetch")
		}

		// Suspend until any one in-flight fetch settles.
		res := <-settled
		delete(st.inFlight, res.offset)
		fetchesInFlight.Dec()

		if res.err != nil {
			st.failed[res.offset] = struct{}{}
			pagesFailedTotal.Inc()
			s.logger.Warn().
				Err(res.err).
				Int("offset", res.offset).
				Msg("Page fetch failed; aggregation will stop at this hole")
		} else {
			st.completed[res.offset] = res.page
			st.totalFetched += len(res.page.Features)
			pagesFetchedTotal.Inc()
		}

		// Drain contiguous completed pages in ascending offset order. A
		// still-pending or failed lower offset blocks everything above it.
		for {
			page, ok := st.completed[st.nextAggregateOffset]
			if !ok {
				break
			}
			delete(st.completed, st.nextAggregateOffset)
			st.nextAggregateOffset += st.batchSize

			features = append(features, page.Features...)
			pagesAggregated++

			if !page.ExceededTransferLimit {
				// Terminal signal: no further dispatch, drain what's left.
				st.hasMore = false
			}
		}
		recordsLoaded.Set(float64(len(features)))

		if pagesAggregated > 0 && pagesAggregated%50 == 0 {
			s.logger.Info().
				Int("pages", pagesAggregated).
				Int("records", len(features)).
				Msg("Fetch progress")
		}

		tracker.report(len(features), st.totalFetched, st.hasMore)
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("load aborted: %w", err)
	}

	failed := st.failedOffsets()

	if len(features) == 0 && len(failed) > 0 {
		s.logger.Error().
			Ints("failed_offsets", failed).
			Msg("Load produced no data")
		return nil, fmt.Errorf("%w: %d offset(s) failed", ErrNoData, len(failed))
	}

	if len(failed) > 0 {
		s.logger.Warn().
			Ints("failed_offsets", failed).
			Int("stranded_pages", len(st.completed)).
			Int("records", len(features)).
			Msg("Load completed with a gap; records above the first failed offset were discarded")
	}

	if features == nil {
		features = []gis.Feature{}
	}

	s.logger.Info().
		Int("records", len(features)).
		Int("pages", pagesAggregated).
		Int("failed_offsets", len(failed)).
		Dur("duration", time.Since(start)).
		Msg("Batch fetch complete")

	return &Result{
		Features:     features,
		Failed:       failed,
		TotalFetched: st.totalFetched,
	}, nil
}
