// Command cwd-dashboard serves the chronic wasting disease surveillance
// dashboard: it loads sample records from an ArcGIS feature service in
// concurrent pages and exposes them over HTTP as JSON, a map and a table.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wildhealth/cwd-dashboard/internal/config"
	"github.com/wildhealth/cwd-dashboard/internal/dashboard"
	"github.com/wildhealth/cwd-dashboard/pkg/batch"
	"github.com/wildhealth/cwd-dashboard/pkg/cache"
	"github.com/wildhealth/cwd-dashboard/pkg/client"
	"github.com/wildhealth/cwd-dashboard/pkg/gis"
	"github.com/wildhealth/cwd-dashboard/pkg/logging"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to TOML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "cwd-dashboard: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.Log.Level),
		Pretty: cfg.Log.Pretty,
		Output: os.Stderr,
	})
	logger := logging.NewLogger("main")

	// The page cache is optional: an unreachable Redis degrades to direct
	// fetches instead of blocking startup.
	var pageCache gis.PageCache
	if cfg.Redis.Enabled {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := redisClient.Ping(ctx).Err()
		cancel()

		if err != nil {
			logger.Warn().Err(err).Str("addr", cfg.Redis.Addr).
				Msg("Redis unreachable; page cache disabled")
		} else {
			pageCache = cache.NewManager(redisClient, cfg.Redis.TTL)
			logger.Info().Str("addr", cfg.Redis.Addr).Msg("Page cache enabled")
		}
	}

	sourceClient, err := client.New(client.Config{
		BaseURL: cfg.Source.URL,
		Timeout: cfg.Source.Timeout,
	}, logger)
	if err != nil {
		return fmt.Errorf("creating source client: %w", err)
	}

	fetcher := gis.NewFetcher(sourceClient, pageCache, gis.Config{
		Layer:     cfg.Source.Layer,
		BatchSize: cfg.Source.BatchSize,
	}, logger)

	load := func(ctx context.Context, obs batch.Observer) (*batch.Result, error) {
		scheduler := batch.NewScheduler(fetcher, batch.Config{
			BatchSize:     cfg.Source.BatchSize,
			MaxConcurrent: cfg.Source.MaxConcurrent,
			Observer:      obs,
		}, logger)
		return scheduler.FetchAll(ctx)
	}

	server := dashboard.New(load, nil, logger)

	logger.Info().
		Str("source", cfg.Source.URL).
		Int("batch_size", cfg.Source.BatchSize).
		Int("max_concurrent", cfg.Source.MaxConcurrent).
		Msg("Starting cwd-dashboard")

	return server.Run(cfg.Server.Addr)
}
