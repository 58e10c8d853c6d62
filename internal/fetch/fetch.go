// Package fetch implements the retrying fetcher used for all upstream API
// calls: a single logical GET with classification-driven exponential
// backoff. Only transient failures are retried, everything else propagates
// immediately.
package fetch

import (
	"context"
	"io"
	"log"
	"log/slog"
	"net/http"
	"time"

	"github.com/averlon/fieldatlas/internal/conf"
	"github.com/averlon/fieldatlas/internal/httpclient"
	"github.com/averlon/fieldatlas/internal/logging"
	"github.com/google/uuid"
)

// Package-level logger specific to the fetch layer
var (
	logger          *slog.Logger
	serviceLevelVar = new(slog.LevelVar)
	closeLogger     func() error
)

func init() {
	var err error
	serviceLevelVar.Set(slog.LevelDebug)
	logger, closeLogger, err = logging.NewFileLogger("logs/fetch.log", "fetch", serviceLevelVar)
	if err != nil {
		log.Printf("Failed to initialize fetch file logger: %v. Service logging disabled.", err)
		fbHandler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: serviceLevelVar})
		logger = slog.New(fbHandler).With("service", "fetch")
		closeLogger = func() error { return nil }
	}
}

// Fetcher issues single logical GETs with a bounded retry budget for
// transient failures. Attempt k waits baseDelay * 2^k before retrying.
type Fetcher struct {
	client      *httpclient.Client
	maxAttempts int
	baseDelay   time.Duration

	// sleep is replaced in tests to observe backoff without waiting
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a fetcher on top of the shared HTTP client.
func New(client *httpclient.Client, cfg conf.FetchSettings) *Fetcher {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	baseDelay := cfg.BaseDelay
	if baseDelay <= 0 {
		baseDelay = time.Second
	}
	return &Fetcher{
		client:      client,
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		sleep:       sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Get fetches the URL and returns the response body. Transient failures
// (429, connection reset, connection aborted, interrupted TLS handshake)
// are retried with exponential backoff until the attempt budget is spent,
// at which point the error wraps ErrRetriesExhausted. Any other failure
// propagates immediately as a classified *Error.
func (f *Fetcher) Get(ctx context.Context, url string) ([]byte, error) {
	reqID := uuid.New().String()[:8]
	reqLogger := logger.With("request_id", reqID, "url", url)

	var lastErr *Error
	for attempt := 0; attempt < f.maxAttempts; attempt++ {
		body, fetchErr := f.once(ctx, url)
		if fetchErr == nil {
			if attempt > 0 {
				reqLogger.Info("Request succeeded after retries", "attempts", attempt+1)
			}
			return body, nil
		}

		if !fetchErr.Transient() {
			reqLogger.Warn("Request failed with non-retryable error",
				"kind", fetchErr.Kind,
				"status_code", fetchErr.StatusCode,
				"error", fetchErr.Err)
			return nil, fetchErr
		}

		lastErr = fetchErr
		if attempt == f.maxAttempts-1 {
			break
		}

		delay := f.baseDelay << attempt
		reqLogger.Warn("Transient failure, retrying",
			"kind", fetchErr.Kind,
			"attempt", attempt+1,
			"max_attempts", f.maxAttempts,
			"delay_ms", delay.Milliseconds())
		if err := f.sleep(ctx, delay); err != nil {
			return nil, &Error{Kind: lastErr.Kind, StatusCode: lastErr.StatusCode, URL: url, Err: err}
		}
	}

	reqLogger.Error("Retry budget exhausted",
		"kind", lastErr.Kind,
		"max_attempts", f.maxAttempts)
	return nil, &Error{
		Kind:       lastErr.Kind,
		StatusCode: lastErr.StatusCode,
		URL:        url,
		Err:        joinExhausted(lastErr.Err),
	}
}

// once performs a single GET attempt and classifies any failure.
func (f *Fetcher) once(ctx context.Context, url string) ([]byte, *Error) {
	resp, err := f.client.Get(ctx, url)
	if err != nil {
		return nil, &Error{Kind: classifyTransport(err), URL: url, Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &Error{
			Kind:       classifyStatus(resp.StatusCode),
			StatusCode: resp.StatusCode,
			URL:        url,
			Err:        errStatus(resp.StatusCode),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: classifyTransport(err), URL: url, Err: err}
	}
	return body, nil
}

// Close releases the fetch layer's log file.
func Close() {
	if closeLogger != nil {
		_ = closeLogger()
	}
}
