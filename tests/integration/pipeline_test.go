package integration

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/wildhealth/cwd-dashboard/internal/normalize"
	"github.com/wildhealth/cwd-dashboard/internal/stats"
	"github.com/wildhealth/cwd-dashboard/internal/testutil"
	"github.com/wildhealth/cwd-dashboard/pkg/batch"
	"github.com/wildhealth/cwd-dashboard/pkg/cache"
	"github.com/wildhealth/cwd-dashboard/pkg/client"
	"github.com/wildhealth/cwd-dashboard/pkg/gis"
)

// setupRedis creates a Redis container for integration testing.
func setupRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})

	cleanup := func() {
		redisClient.Close()
		container.Terminate(ctx)
	}

	return redisClient, cleanup
}

// fastRetry keeps integration runs quick without changing retry semantics.
func fastRetry() client.RetryConfig {
	return client.RetryConfig{
		MaxAttempts:       4,
		InitialBackoff:    10 * time.Millisecond,
		MaxBackoff:        100 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}
}

func buildFetcher(t *testing.T, mock *testutil.MockFeatureServer, pageCache gis.PageCache, batchSize int) *gis.Fetcher {
	t.Helper()

	sourceClient, err := client.New(client.Config{
		BaseURL: mock.URL(),
		Retry:   fastRetry(),
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	return gis.NewFetcher(sourceClient, pageCache, gis.Config{
		Layer:     "/0",
		BatchSize: batchSize,
	}, zerolog.Nop())
}

// TestFullLoadPipeline drives mock server → client → fetcher → scheduler →
// normalizer and checks the records come out complete and in source order.
func TestFullLoadPipeline(t *testing.T) {
	mock := testutil.NewMockFeatureServer()
	defer mock.Close()

	const batchSize = 5
	mock.SetPage(0, testutil.MockPage{Features: testutil.SamplePage(0, batchSize)})
	mock.SetPage(5, testutil.MockPage{Features: testutil.SamplePage(5, batchSize)})
	mock.SetPage(10, testutil.MockPage{Features: testutil.SamplePage(10, 2)})

	fetcher := buildFetcher(t, mock, nil, batchSize)
	scheduler := batch.NewScheduler(fetcher, batch.Config{
		BatchSize:     batchSize,
		MaxConcurrent: 3,
	}, zerolog.Nop())

	result, err := scheduler.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("FetchAll failed: %v", err)
	}
	if len(result.Features) != 12 {
		t.Fatalf("Fetched %d features, want 12", len(result.Features))
	}
	if len(result.Failed) != 0 {
		t.Errorf("Failed = %v, want empty", result.Failed)
	}

	records := normalize.New(zerolog.Nop()).Records(result.Features)
	if len(records) != 12 {
		t.Fatalf("Normalized %d records, want 12", len(records))
	}
	for i, r := range records {
		if want := fmt.Sprintf("S-%d", i); r.SampleID != want {
			t.Fatalf("Record %d = %q, want %q (output out of order)", i, r.SampleID, want)
		}
	}

	summary := stats.Compute(records)
	if summary.Total != 12 || summary.BySpecies["Moose"] != 12 {
		t.Errorf("Summary = %+v", summary)
	}
}

// TestTransientFailureRecovers: a page that fails twice before succeeding
// must be retried inside the client and end up in the output.
func TestTransientFailureRecovers(t *testing.T) {
	mock := testutil.NewMockFeatureServer()
	defer mock.Close()

	const batchSize = 5
	mock.SetPage(0, testutil.MockPage{Features: testutil.SamplePage(0, batchSize)})
	mock.SetPage(5, testutil.MockPage{Features: testutil.SamplePage(5, 3), FailCount: 2})

	fetcher := buildFetcher(t, mock, nil, batchSize)
	scheduler := batch.NewScheduler(fetcher, batch.Config{
		BatchSize:     batchSize,
		MaxConcurrent: 2,
	}, zerolog.Nop())

	result, err := scheduler.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("FetchAll failed: %v", err)
	}

	if len(result.Features) != 8 {
		t.Errorf("Fetched %d features, want 8", len(result.Features))
	}
	if got := mock.Attempts(5); got != 3 {
		t.Errorf("Attempts(5) = %d, want 3 (two failures, one success)", got)
	}
}

// TestPermanentFailureLeavesGap: an offset that fails every attempt strands
// everything above it; the run still returns the records below the hole.
func TestPermanentFailureLeavesGap(t *testing.T) {
	mock := testutil.NewMockFeatureServer()
	defer mock.Close()

	const batchSize = 5
	mock.SetPage(0, testutil.MockPage{Features: testutil.SamplePage(0, batchSize)})
	mock.SetPage(5, testutil.MockPage{AlwaysFail: true})
	mock.SetPage(10, testutil.MockPage{Features: testutil.SamplePage(10, 2)})

	fetcher := buildFetcher(t, mock, nil, batchSize)
	scheduler := batch.NewScheduler(fetcher, batch.Config{
		BatchSize:     batchSize,
		MaxConcurrent: 3,
	}, zerolog.Nop())

	result, err := scheduler.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("Partial success must not be an error: %v", err)
	}

	if len(result.Features) != 5 {
		t.Errorf("Fetched %d features, want 5 (only below the hole)", len(result.Features))
	}
	if len(result.Failed) != 1 || result.Failed[0] != 5 {
		t.Errorf("Failed = %v, want [5]", result.Failed)
	}
	if got := mock.Attempts(5); got != 4 {
		t.Errorf("Attempts(5) = %d, want 4 (full retry budget)", got)
	}
}

// TestPageCacheRoundTrip verifies a second fetch of the same page is served
// from Redis without touching the source.
func TestPageCacheRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping container test in short mode")
	}

	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockFeatureServer()
	defer mock.Close()

	const batchSize = 5
	mock.SetPage(0, testutil.MockPage{Features: testutil.SamplePage(0, 3)})

	manager := cache.NewManager(redisClient, time.Minute)
	fetcher := buildFetcher(t, mock, manager, batchSize)

	ctx := context.Background()

	first, err := fetcher.FetchPage(ctx, 0)
	if err != nil {
		t.Fatalf("First fetch failed: %v", err)
	}
	if mock.RequestCount != 1 {
		t.Fatalf("RequestCount = %d after first fetch, want 1", mock.RequestCount)
	}

	second, err := fetcher.FetchPage(ctx, 0)
	if err != nil {
		t.Fatalf("Second fetch failed: %v", err)
	}
	if mock.RequestCount != 1 {
		t.Errorf("RequestCount = %d after cached fetch, want 1 (cache must be hit)", mock.RequestCount)
	}
	if len(second.Features) != len(first.Features) {
		t.Errorf("Cached page has %d features, want %d", len(second.Features), len(first.Features))
	}
}
