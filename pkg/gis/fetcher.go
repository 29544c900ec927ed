package gis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/wildhealth/cwd-dashboard/pkg/cache"
)

// DefaultBatchSize is the service's per-request record cap.
const DefaultBatchSize = 2000

// SourceClient performs one HTTP query against the feature service.
// Implemented by pkg/client; retries and timeouts live there.
type SourceClient interface {
	Get(ctx context.Context, path string, query url.Values) ([]byte, error)
}

// PageCache is the optional cache consulted before the network.
// Implemented by pkg/cache.
type PageCache interface {
	Get(ctx context.Context, key cache.PageKey) (*cache.Entry, error)
	Set(ctx context.Context, key cache.PageKey, entry *cache.Entry) error
}

// Config holds fetcher configuration.
type Config struct {
	// Layer is the layer path under the service base URL (e.g. "/0").
	Layer string

	// BatchSize is the requested page size (resultRecordCount).
	BatchSize int
}

// DefaultConfig returns a fetcher configuration for layer 0 with the
// service's maximum page size.
func DefaultConfig() Config {
	return Config{
		Layer:     "/0",
		BatchSize: DefaultBatchSize,
	}
}

// Fetcher retrieves single feature pages by offset.
// Fetchers are stateless; one instance serves any number of concurrent calls.
type Fetcher struct {
	client SourceClient
	cache  PageCache // nil disables caching
	config Config
	logger zerolog.Logger
}

// NewFetcher creates a page fetcher. pageCache may be nil.
func NewFetcher(client SourceClient, pageCache PageCache, cfg Config, logger zerolog.Logger) *Fetcher {
	if cfg.Layer == "" {
		cfg.Layer = "/0"
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}

	return &Fetcher{
		client: client,
		cache:  pageCache,
		config: cfg,
		logger: logger.With().Str("component", "page-fetcher").Logger(),
	}
}

// BatchSize returns the configured page size.
func (f *Fetcher) BatchSize() int {
	return f.config.BatchSize
}

// FetchPage fetches the page starting at offset. An empty page is not an
// error; it signals end of stream. A terminal failure (retry budget spent in
// the client) is returned as *ExhaustedError for that offset.
func (f *Fetcher) FetchPage(ctx context.Context, offset int) (*Page, error) {
	queryPath := f.config.Layer + "/query"
	key := cache.PageKey{Layer: queryPath, Offset: offset}

	if f.cache != nil {
		entry, err := f.cache.Get(ctx, key)
		switch {
		case err == nil:
			page, decodeErr := f.decodePage(offset, entry.Data)
			if decodeErr == nil {
				f.logger.Debug().
					Int("offset", offset).
					Dur("age", entry.Age()).
					Msg("Page cache hit")
				return page, nil
			}
			f.logger.Warn().Err(decodeErr).Int("offset", offset).Msg("Discarding undecodable cache entry")
		case !errors.Is(err, cache.ErrCacheMiss):
			f.logger.Warn().Err(err).Int("offset", offset).Msg("Page cache get error")
		}
	}

	query := url.Values{}
	query.Set("f", "json")
	query.Set("where", "1=1")
	query.Set("outFields", "*")
	query.Set("resultOffset", strconv.Itoa(offset))
	query.Set("resultRecordCount", strconv.Itoa(f.config.BatchSize))

	body, err := f.client.Get(ctx, queryPath, query)
	if err != nil {
		return nil, &ExhaustedError{Offset: offset, Err: err}
	}

	page, err := f.decodePage(offset, body)
	if err != nil {
		return nil, err
	}

	if f.cache != nil {
		entry := &cache.Entry{Data: body, CachedAt: time.Now()}
		if err := f.cache.Set(ctx, key, entry); err != nil {
			f.logger.Warn().Err(err).Int("offset", offset).Msg("Page cache set error")
		}
	}

	return page, nil
}

// decodePage parses a query response body into a Page. The continuation flag
// is the explicit source flag OR a full page; both mean more data likely
// exists beyond this page.
func (f *Fetcher) decodePage(offset int, body []byte) (*Page, error) {
	var resp queryResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode page at offset %d: %w", offset, err)
	}

	if resp.Error != nil {
		return nil, fmt.Errorf("feature service error at offset %d (code %d): %s",
			offset, resp.Error.Code, resp.Error.Message)
	}

	features := resp.Features
	if features == nil {
		features = []Feature{}
	}

	return &Page{
		Offset:                offset,
		Features:              features,
		ExceededTransferLimit: resp.ExceededTransferLimit || len(features) == f.config.BatchSize,
	}, nil
}
