package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker/v2"
)

// CircuitBreakerConfig configures the breaker in front of an upstream API.
type CircuitBreakerConfig struct {
	// Name labels the breaker in metrics and logs.
	Name string

	// MaxRequests is how many probes pass while half-open (0 means 1).
	MaxRequests uint32

	// Interval clears the closed-state counts; 0 never clears them.
	Interval time.Duration

	// Timeout is how long the breaker stays open before probing again.
	Timeout time.Duration

	// FailureRatio trips the breaker once failures/requests reaches it.
	FailureRatio float64

	// MinRequests is the sample size required before FailureRatio applies.
	MinRequests uint32
}

// DefaultCircuitBreakerConfig returns the breaker settings used for the LMS
// API. The timeout is long enough for a sleeping host to start.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:         name,
		MaxRequests:  1,
		Interval:     60 * time.Second,
		Timeout:      30 * time.Second,
		FailureRatio: 0.5,
		MinRequests:  5,
	}
}

const maxErrorBody = 1 << 20

var circuitBreakerState = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "lms_circuit_breaker_state",
		Help: "Current state of the circuit breaker (0=closed, 1=half-open, 2=open)",
	},
	[]string{"name"},
)

var circuitBreakerRejected = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "lms_circuit_breaker_rejected_total",
		Help: "Requests rejected without being sent because the breaker was open",
	},
	[]string{"name"},
)

func init() {
	prometheus.MustRegister(circuitBreakerState, circuitBreakerRejected)
}

func stateValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// StatusError is returned when the upstream answered with a 5xx. The body
// has already been read and closed.
type StatusError struct {
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned %d: %s", e.StatusCode, string(e.Body))
}

// ErrCircuitOpen is returned while the breaker rejects requests.
var ErrCircuitOpen = gobreaker.ErrOpenState

// CircuitBreakerClient sends requests through a Client guarded by a breaker.
// Only transport errors and 5xx responses count as failures: 4xx answers
// (401 included) and requests the caller canceled leave the counts alone.
type CircuitBreakerClient struct {
	client  *Client
	breaker *gobreaker.CircuitBreaker[*http.Response]
	logger  *slog.Logger
	name    string
}

// NewCircuitBreakerClient wraps client with a breaker.
func NewCircuitBreakerClient(client *Client, cfg CircuitBreakerConfig, logger *slog.Logger) *CircuitBreakerClient {
	cb := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			circuitBreakerState.WithLabelValues(name).Set(stateValue(to))
		},
	})
	circuitBreakerState.WithLabelValues(cfg.Name).Set(0)

	return &CircuitBreakerClient{
		client:  client,
		breaker: cb,
		logger:  logger,
		name:    cfg.Name,
	}
}

// Do sends req. A 5xx response is returned as a *StatusError.
func (c *CircuitBreakerClient) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		resp, err := c.client.Do(ctx, req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 500 {
			body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
			if err != nil {
				body = []byte{}
			}
			_ = resp.Body.Close()
			return nil, &StatusError{StatusCode: resp.StatusCode, Body: body}
		}
		return resp, nil
	})
	if errors.Is(err, ErrCircuitOpen) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		circuitBreakerRejected.WithLabelValues(c.name).Inc()
		c.logger.WarnContext(ctx, "request rejected by circuit breaker",
			slog.String("breaker", c.name),
			slog.String("url", req.URL.Path),
		)
	}
	return resp, err
}

// State returns the breaker state.
func (c *CircuitBreakerClient) State() gobreaker.State {
	return c.breaker.State()
}

// Counts returns the breaker's counts for the current generation.
func (c *CircuitBreakerClient) Counts() gobreaker.Counts {
	return c.breaker.Counts()
}
