package predictor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker/v2"

	"skycast/internal/types"
)

// RetryPolicy configures the retry behavior for the remote predictor client.
type RetryPolicy struct {
	MaxRetries int
	MinWait    time.Duration
	MaxWait    time.Duration
}

// DefaultRetryPolicy returns sensible defaults for prediction service calls.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 3,
		MinWait:    500 * time.Millisecond,
		MaxWait:    10 * time.Second,
	}
}

// RemoteSource is a types.ForecastSource backed by an external prediction
// service. All calls share one HTTP client and one circuit breaker so a
// failing upstream is cut off for every variable at once.
type RemoteSource struct {
	baseURL     string
	client      *http.Client
	breaker     *gobreaker.CircuitBreaker[*http.Response]
	retryPolicy RetryPolicy
	sleepFn     func(time.Duration) // for testability; defaults to time.Sleep
}

// RemoteSourceOption is a functional option for configuring a RemoteSource.
type RemoteSourceOption func(*RemoteSource)

// WithSleepFunc overrides the sleep function used between retries.
// This is intended for testing to avoid real delays.
func WithSleepFunc(fn func(time.Duration)) RemoteSourceOption {
	return func(s *RemoteSource) {
		s.sleepFn = fn
	}
}

// WithRetryPolicy overrides the default retry policy.
func WithRetryPolicy(p RetryPolicy) RemoteSourceOption {
	return func(s *RemoteSource) {
		s.retryPolicy = p
	}
}

// NewRemoteSource creates a RemoteSource targeting baseURL.
func NewRemoteSource(baseURL string, httpClient *http.Client, opts ...RemoteSourceOption) *RemoteSource {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}

	cb := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        "prediction-service",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil
		},
	})

	s := &RemoteSource{
		baseURL:     baseURL,
		client:      httpClient,
		breaker:     cb,
		retryPolicy: DefaultRetryPolicy(),
		sleepFn:     time.Sleep,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Predictor returns a predictor bound to one variable. All variables are
// valid on a remote source; availability surfaces at Predict time.
func (s *RemoteSource) Predictor(v types.Variable) (types.Predictor, error) {
	if !v.IsValid() {
		return nil, types.NewAppErrorWithDetails(
			types.ErrCodePredictionUnavailable,
			fmt.Sprintf("unknown variable %s", v),
			nil,
			map[string]any{"variable": string(v)},
		)
	}
	return &remotePredictor{source: s, variable: v}, nil
}

type remotePredictor struct {
	source   *RemoteSource
	variable types.Variable
}

// remotePoint is the wire format for a single prediction sample.
type remotePoint struct {
	Timestamp int64   `json:"timestamp"`
	Value     float64 `json:"value"`
}

// remotePredictionResponse is the wire format of the prediction endpoint.
type remotePredictionResponse struct {
	Variable string        `json:"variable"`
	Points   []remotePoint `json:"points"`
}

// Predict fetches the series for this predictor's variable from the remote
// service.
func (p *remotePredictor) Predict(ctx context.Context, horizonHours, intervalHours int) ([]types.SeriesPoint, error) {
	q := url.Values{}
	q.Set("variable", string(p.variable))
	q.Set("horizon_hours", strconv.Itoa(horizonHours))
	q.Set("interval_hours", strconv.Itoa(intervalHours))

	reqURL := fmt.Sprintf("%s/predict?%s", p.source.baseURL, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to build prediction request", err)
	}
	if requestID := types.GetRequestID(ctx); requestID != "" {
		req.Header.Set("X-Request-Id", requestID)
	}

	resp, err := p.source.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, types.NewAppErrorWithDetails(
			types.ErrCodePredictionUnavailable,
			fmt.Sprintf("prediction service returned %d for %s", resp.StatusCode, p.variable),
			nil,
			map[string]any{"variable": string(p.variable), "status": resp.StatusCode, "body": string(body)},
		)
	}

	var decoded remotePredictionResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, types.NewAppError(
			types.ErrCodePredictionUnavailable,
			fmt.Sprintf("failed to decode prediction response for %s", p.variable),
			err,
		)
	}

	points := make([]types.SeriesPoint, 0, len(decoded.Points))
	for _, rp := range decoded.Points {
		points = append(points, types.SeriesPoint{
			Timestamp: time.Unix(rp.Timestamp, 0).UTC(),
			Value:     rp.Value,
		})
	}
	return points, nil
}

// do executes the request through the circuit breaker, retrying 429 and 5xx
// responses with exponential backoff. The caller owns the response body on
// success.
func (s *RemoteSource) do(req *http.Request) (*http.Response, error) {
	var lastResp *http.Response
	var lastErr error

	maxAttempts := 1 + s.retryPolicy.MaxRetries
	for attempt := 0; attempt < maxAttempts; attempt++ {
		resp, err := s.breaker.Execute(func() (*http.Response, error) {
			r, doErr := s.client.Do(req)
			if doErr != nil {
				return nil, doErr
			}
			if r.StatusCode >= 500 {
				return r, fmt.Errorf("upstream returned %d", r.StatusCode)
			}
			if r.StatusCode == http.StatusTooManyRequests {
				return r, fmt.Errorf("upstream returned 429")
			}
			return r, nil
		})

		if err == nil {
			return resp, nil
		}

		lastErr = err
		if resp != nil {
			if attempt < maxAttempts-1 {
				resp.Body.Close()
			} else {
				lastResp = resp
			}
		}

		// An open breaker will not recover within this request's retries.
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			break
		}

		if attempt < maxAttempts-1 {
			s.sleepFn(s.computeBackoff(attempt, resp))
		}
	}

	if lastResp != nil {
		lastResp.Body.Close()
	}
	return nil, s.mapError(lastResp, lastErr)
}

// computeBackoff determines the wait duration before the next retry attempt.
// It respects the Retry-After header if present, otherwise uses exponential
// backoff with jitter clamped to [MinWait, MaxWait].
func (s *RemoteSource) computeBackoff(attempt int, resp *http.Response) time.Duration {
	if resp != nil {
		if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
			if seconds, err := strconv.Atoi(retryAfter); err == nil && seconds > 0 {
				wait := time.Duration(seconds) * time.Second
				if wait > s.retryPolicy.MaxWait {
					wait = s.retryPolicy.MaxWait
				}
				return wait
			}
		}
	}

	base := float64(s.retryPolicy.MinWait) * math.Pow(2, float64(attempt))
	maxWait := float64(s.retryPolicy.MaxWait)
	if base > maxWait {
		base = maxWait
	}

	minWait := float64(s.retryPolicy.MinWait)
	if base <= minWait {
		return s.retryPolicy.MinWait
	}
	jittered := minWait + rand.Float64()*(base-minWait)
	return time.Duration(jittered)
}

// mapError translates transport-level failures into domain AppErrors.
func (s *RemoteSource) mapError(resp *http.Response, err error) *types.AppError {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return types.NewAppError(
			types.ErrCodeUpstreamRateLimited,
			"circuit breaker is open; prediction service unavailable",
			err,
		)
	}

	if resp != nil {
		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			return types.NewAppError(
				types.ErrCodeUpstreamRateLimited,
				"prediction service rate limit exceeded",
				err,
			)
		case resp.StatusCode >= 500:
			return types.NewAppError(
				types.ErrCodePredictionUnavailable,
				fmt.Sprintf("prediction service returned %d after retries", resp.StatusCode),
				err,
			)
		}
	}

	return types.NewAppError(
		types.ErrCodePredictionUnavailable,
		"prediction service request failed",
		err,
	)
}
