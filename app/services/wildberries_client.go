// Package services contains clients for external collaborators.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/wbtools/tariffs-keeper/app/dto"
	"github.com/wbtools/tariffs-keeper/metrics"
	"github.com/wbtools/tariffs-keeper/utils"
	"golang.org/x/time/rate"
)

// fetchOutcome is the state the retry machine lands in after one attempt.
type fetchOutcome int

const (
	outcomeSuccess fetchOutcome = iota
	// outcomeRetryable covers network faults, 5xx responses and
	// malformed or structurally invalid bodies.
	outcomeRetryable
	// outcomeTerminal covers 4xx responses: the request itself is
	// wrong, retrying cannot help.
	outcomeTerminal
)

// fetchError carries the attempt failure with its retry classification.
type fetchError struct {
	outcome   fetchOutcome
	errorType string // metric label: network, http_4xx, http_5xx, invalid_shape
	err       error
}

func (e *fetchError) Error() string { return e.err.Error() }

// WildberriesClient fetches box tariff data from the WB API with bounded
// retries. A fetch round never surfaces an error for ordinary exhaustion;
// the caller receives a nil payload instead.
type WildberriesClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries int
	retryDelay time.Duration
	logger     *log.Logger
}

// NewWildberriesClient creates a WB tariffs client. token may be empty;
// limiter may be nil to disable throttling. Non-positive timeout, retry
// count, or delay fall back to the defaults.
func NewWildberriesClient(baseURL, token string, timeout time.Duration, maxRetries int, retryDelay time.Duration, limiter *rate.Limiter, logger *log.Logger) *WildberriesClient {
	if timeout <= 0 {
		timeout = utils.DefaultFetchTimeout
	}
	if maxRetries <= 0 {
		maxRetries = utils.DefaultMaxRetries
	}
	if retryDelay <= 0 {
		retryDelay = utils.DefaultRetryDelay
	}
	if logger == nil {
		logger = log.Default()
	}
	return &WildberriesClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
		logger:     logger,
	}
}

// FetchTariffs retrieves today's box tariffs. The date parameter is
// computed once and reused for every attempt of this call. Returns
// (nil, nil) when the attempt budget is exhausted or a 4xx made the
// request terminal; an error only reflects context cancellation.
func (c *WildberriesClient) FetchTariffs(ctx context.Context) (*dto.TariffsBoxResponse, error) {
	date := utils.FormatDate(utils.UTCNow())
	start := time.Now()
	defer func() {
		metrics.ObserveWBAPIDuration(time.Since(start))
	}()

	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				metrics.RecordWBAPIRequest("error")
				return nil, fmt.Errorf("rate limiter wait: %w", err)
			}
		}

		c.logger.Printf("wb: fetching tariffs (attempt %d/%d) for date %s", attempt, c.maxRetries, date)

		resp, fErr := c.attempt(ctx, date)
		if fErr == nil {
			metrics.RecordWBAPIRequest("success")
			return resp, nil
		}

		lastErr = fErr
		metrics.RecordWBAPIError(fErr.errorType)
		c.logger.Printf("wb: attempt %d/%d failed (%s): %v", attempt, c.maxRetries, fErr.errorType, fErr.err)

		if fErr.outcome == outcomeTerminal {
			c.logger.Printf("wb: client error, not retrying")
			break
		}

		if attempt < c.maxRetries {
			select {
			case <-ctx.Done():
				metrics.RecordWBAPIRequest("error")
				return nil, ctx.Err()
			case <-time.After(c.retryDelay):
			}
		}
	}

	c.logger.Printf("wb: failed to fetch tariffs after %d attempts: %v", c.maxRetries, lastErr)
	metrics.RecordWBAPIRequest("error")
	return nil, nil
}

// attempt performs one HTTP round trip and classifies its failure.
func (c *WildberriesClient) attempt(ctx context.Context, date string) (*dto.TariffsBoxResponse, *fetchError) {
	url := c.baseURL + utils.TariffsBoxPath + "?date=" + date

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &fetchError{outcome: outcomeRetryable, errorType: "network", err: err}
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &fetchError{outcome: outcomeRetryable, errorType: "network", err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		io.Copy(io.Discard, resp.Body)
		return nil, &fetchError{
			outcome:   outcomeTerminal,
			errorType: "http_4xx",
			err:       fmt.Errorf("wb api returned status %d", resp.StatusCode),
		}
	}
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, &fetchError{
			outcome:   outcomeRetryable,
			errorType: "http_5xx",
			err:       fmt.Errorf("wb api returned status %d", resp.StatusCode),
		}
	}

	var payload dto.TariffsBoxResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &fetchError{outcome: outcomeRetryable, errorType: "invalid_shape", err: fmt.Errorf("decode response body: %w", err)}
	}

	// A missing envelope burns a retry just like a transport fault.
	if payload.Response == nil {
		return nil, &fetchError{
			outcome:   outcomeRetryable,
			errorType: "invalid_shape",
			err:       errors.New("response missing top-level envelope"),
		}
	}

	return &payload, nil
}
