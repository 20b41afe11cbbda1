package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/tradedeck/delta-adapter/internal/rate"
)

// Backoff returns the retry sleep duration for the given attempt number.
func Backoff(attempt int) time.Duration {
	switch attempt {
	case 0:
		return 100 * time.Millisecond
	case 1:
		return 250 * time.Millisecond
	default:
		return 500 * time.Millisecond
	}
}

// Executor handles rate-limited, retrying HTTP execution against the venue.
// Retries cover transport failures and 5xx responses only; a 4xx is a venue
// verdict and is surfaced immediately through the errorHandler.
type Executor struct {
	logger       *zap.Logger
	rateMgr      *rate.Manager
	http         *http.Client
	retryMax     int
	venueTag     string
	errorHandler func(status int, body []byte) error
}

// New creates an Executor. errorHandler is called on 4xx responses to produce
// a venue-specific error; returning nil accepts the body as a valid payload
// (the venue reports business failures inside 4xx envelopes). If the handler
// itself is nil, a default error is returned.
func New(
	logger *zap.Logger,
	rateMgr *rate.Manager,
	httpClient *http.Client,
	retryMax int,
	venueTag string,
	errorHandler func(status int, body []byte) error,
) *Executor {
	return &Executor{
		logger:       logger,
		rateMgr:      rateMgr,
		http:         httpClient,
		retryMax:     retryMax,
		venueTag:     venueTag,
		errorHandler: errorHandler,
	}
}

// Do executes req with rate limiting and retries and returns the raw response
// body. The adapter layer owns decoding, since the venue answers with more
// than one JSON shape for the same endpoint.
func (e *Executor) Do(ctx context.Context, req *http.Request, rateLimitKey string) ([]byte, error) {
	if e.rateMgr != nil {
		if err := e.rateMgr.Wait(ctx, rateLimitKey); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	var lastErr error
	for attempt := 0; attempt <= e.retryMax; attempt++ {
		start := time.Now()
		resp, err := e.http.Do(req)
		if err != nil {
			lastErr = err
			e.logger.Warn(e.venueTag+".http_failed",
				zap.String("url", req.URL.String()),
				zap.Error(err),
				zap.Int("attempt", attempt))
			time.Sleep(Backoff(attempt))
			continue
		}

		body, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		elapsed := time.Since(start)

		if resp.StatusCode >= 500 {
			e.logger.Warn(e.venueTag+".server_error",
				zap.Int("status", resp.StatusCode),
				zap.String("url", req.URL.String()),
				zap.Duration("latency", elapsed))
			lastErr = fmt.Errorf("%s server error: %d", e.venueTag, resp.StatusCode)
			time.Sleep(Backoff(attempt))
			continue
		}

		if resp.StatusCode >= 400 {
			if e.errorHandler == nil {
				return nil, fmt.Errorf("%s returned %d", e.venueTag, resp.StatusCode)
			}
			if herr := e.errorHandler(resp.StatusCode, body); herr != nil {
				return nil, herr
			}
			return body, nil
		}

		e.logger.Debug(e.venueTag+".http_success",
			zap.String("url", req.URL.String()),
			zap.Int("status", resp.StatusCode),
			zap.Duration("elapsed", elapsed))

		return body, nil
	}

	return nil, fmt.Errorf("%s request failed after %d attempts: %w", e.venueTag, e.retryMax, lastErr)
}
