// Raw HTTP layer shared by the provider clients
package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/desertthunder/spx/internal/shared"
	"golang.org/x/time/rate"
)

// APIService performs bearer-authenticated GET requests with a per-call timeout
// and optional request pacing. It never retries.
type APIService struct {
	httpClient *http.Client
	timeout    time.Duration
	limiter    *rate.Limiter
}

// NewAPIService creates a new raw API service.
//
// A nil client uses [http.DefaultClient]; a zero timeout means 15 seconds;
// requestsPerSecond <= 0 disables pacing.
func NewAPIService(client *http.Client, timeout time.Duration, requestsPerSecond float64) *APIService {
	if client == nil {
		client = http.DefaultClient
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	var limiter *rate.Limiter
	if requestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
	}

	return &APIService{
		httpClient: client,
		timeout:    timeout,
		limiter:    limiter,
	}
}

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// OK reports a 2xx status.
func (r *APIResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Get performs an authenticated GET request to rawURL and returns the raw response.
//
// A request that outlives the per-call timeout fails with [shared.ErrTimeout].
func (a *APIService) Get(ctx context.Context, rawURL, token string) (*APIResponse, error) {
	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("request pacing: %w", err)
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, a.wrapErr(ctx, rawURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, a.wrapErr(ctx, rawURL, fmt.Errorf("failed to read response: %w", err))
	}

	return &APIResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       body,
	}, nil
}

// wrapErr turns a deadline hit by the per-call timeout into [shared.ErrTimeout].
//
// Cancellation of the caller's own context is returned unchanged.
func (a *APIService) wrapErr(parent context.Context, rawURL string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) && parent.Err() == nil {
		return fmt.Errorf("%w: GET %s exceeded %v", shared.ErrTimeout, rawURL, a.timeout)
	}
	return fmt.Errorf("request failed: %w", err)
}
