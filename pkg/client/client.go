// Package client provides the HTTP client for the surveillance feature
// service with request timeouts, error classification and retry handling.
package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for feature-service requests.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cwd_source_requests_total",
		Help: "Total feature service requests by path and status",
	}, []string{"path", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cwd_source_request_duration_seconds",
		Help:    "Feature service request duration in seconds by path",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"path"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cwd_source_errors_total",
		Help: "Total feature service errors by class",
	}, []string{"class"})
)

// ErrorClass represents a classification of request errors.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx responses.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx responses.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassNetwork represents transport and timeout errors.
	ErrorClassNetwork ErrorClass = "network"
)

// Config holds the client configuration.
type Config struct {
	// BaseURL is the feature service root, e.g.
	// "https://gis.example.org/arcgis/rest/services/cwd/FeatureServer".
	BaseURL string

	// UserAgent identifies this loader to the service.
	UserAgent string

	// Timeout applies per request attempt.
	Timeout time.Duration

	// Retry controls backoff for transient failures.
	Retry RetryConfig
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:   baseURL,
		UserAgent: "cwd-dashboard/0.1.0",
		Timeout:   30 * time.Second,
		Retry:     DefaultRetryConfig(),
	}
}

// Client is the feature service HTTP client.
type Client struct {
	httpClient *http.Client
	config     Config
	logger     zerolog.Logger
}

// New creates a new feature service client.
func New(cfg Config, logger zerolog.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "cwd-dashboard/0.1.0"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = DefaultRetryConfig()
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		config: cfg,
		logger: logger.With().Str("component", "source-client").Logger(),
	}, nil
}

// Get performs a GET request against path (relative to the base URL) and
// returns the response body. Transient failures are retried with exponential
// backoff; the error wraps ErrRetryExhausted once the budget is spent.
func (c *Client) Get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(path).Observe(time.Since(startTime).Seconds())
	}()

	requestURL := c.config.BaseURL + path
	if len(query) > 0 {
		requestURL += "?" + query.Encode()
	}

	var body []byte
	var errClass ErrorClass

	attempt := func() error {
		reqCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()

		req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, requestURL, nil)
		if err != nil {
			errClass = ""
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("User-Agent", c.config.UserAgent)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			errClass = ErrorClassNetwork
			errorsTotal.WithLabelValues(string(errClass)).Inc()
			requestsTotal.WithLabelValues(path, "network_error").Inc()
			c.logger.Warn().Err(err).Str("path", path).Msg("HTTP request failed")
			return fmt.Errorf("execute request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			errClass = classifyStatus(resp.StatusCode)
			errorsTotal.WithLabelValues(string(errClass)).Inc()
			requestsTotal.WithLabelValues(path, strconv.Itoa(resp.StatusCode)).Inc()

			c.logger.Warn().
				Str("path", path).
				Int("status", resp.StatusCode).
				Str("error_class", string(errClass)).
				Msg("Feature service request error")

			return &RequestError{
				StatusCode: resp.StatusCode,
				Class:      errClass,
				Message:    resp.Status,
			}
		}

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			errClass = ErrorClassNetwork
			errorsTotal.WithLabelValues(string(errClass)).Inc()
			return fmt.Errorf("read response body: %w", err)
		}

		requestsTotal.WithLabelValues(path, strconv.Itoa(resp.StatusCode)).Inc()
		body = data
		return nil
	}

	err := retryWithBackoff(ctx, c.config.Retry, attempt, func(error) ErrorClass {
		return errClass
	})
	if err != nil {
		return nil, err
	}

	return body, nil
}

// classifyStatus categorizes an HTTP status code for observability.
func classifyStatus(statusCode int) ErrorClass {
	switch {
	case statusCode >= 400 && statusCode < 500:
		return ErrorClassClient
	case statusCode >= 500:
		return ErrorClassServer
	default:
		return ErrorClassNetwork
	}
}
