// Package api is the client for the LMS REST API. It attaches the stored
// access token to every request and recovers a 401 with one token refresh.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/dev-tahsin7/LMS-TestApp/internal/session"
	apperrors "github.com/dev-tahsin7/LMS-TestApp/pkg/errors"
	"github.com/dev-tahsin7/LMS-TestApp/pkg/httpclient"
	"github.com/dev-tahsin7/LMS-TestApp/pkg/logger"
	"github.com/dev-tahsin7/LMS-TestApp/pkg/tracing"
)

const (
	// DefaultBaseURL is the hosted LMS backend.
	DefaultBaseURL = "https://lms-backend-xpwc.onrender.com"

	correlationHeader = "X-Correlation-ID"
	tracerName        = "github.com/dev-tahsin7/LMS-TestApp/internal/api"
)

// ErrSessionExpired is returned when a 401 could not be recovered because the
// token refresh was rejected. The store has been cleared by then.
var ErrSessionExpired = errors.New("session expired")

// Navigator is told to send the user back to the login entry point after an
// irrecoverable authorization failure.
type Navigator interface {
	RedirectToLogin(ctx context.Context)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(ctx context.Context)

func (f NavigatorFunc) RedirectToLogin(ctx context.Context) { f(ctx) }

// Doer sends a single HTTP request. *httpclient.CircuitBreakerClient
// satisfies it.
type Doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Config configures the API client.
type Config struct {
	BaseURL   string
	HTTP      httpclient.Config
	Breaker   httpclient.CircuitBreakerConfig
	RateLimit float64
	RateBurst int
}

// DefaultConfig returns the configuration for the hosted backend.
func DefaultConfig() Config {
	httpCfg := httpclient.DefaultConfig()
	httpCfg.MaxRetries = 0
	return Config{
		BaseURL: DefaultBaseURL,
		HTTP:    httpCfg,
		Breaker: httpclient.DefaultCircuitBreakerConfig("lms-api"),
	}
}

// Client talks to the LMS API on behalf of the session held in a Store.
type Client struct {
	baseURL *url.URL
	http    Doer
	store   session.Store
	limiter *rate.Limiter
	tracer  trace.Tracer
	logger  *slog.Logger

	navMu     sync.RWMutex
	navigator Navigator
}

// New builds a client whose requests go through a circuit-breaking HTTP
// client. Each call is sent once: transport errors and 5xx answers are
// returned to the caller, and a 401 is only recovered by the refresh flow.
func New(cfg Config, store session.Store, logger *slog.Logger) (*Client, error) {
	httpCfg := cfg.HTTP
	httpCfg.MaxRetries = 0
	cb := httpclient.NewCircuitBreakerClient(httpclient.New(httpCfg), cfg.Breaker, logger)
	return NewWithDoer(cfg, cb, store, logger)
}

// NewWithDoer builds a client over an existing transport.
func NewWithDoer(cfg Config, doer Doer, store session.Store, logger *slog.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("parse base url: unsupported scheme %q", base.Scheme)
	}
	if base.Host == "" {
		return nil, fmt.Errorf("parse base url: missing host")
	}

	c := &Client{
		baseURL: base,
		http:    doer,
		store:   store,
		tracer:  tracing.Tracer(tracerName),
		logger:  logger,
	}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return c, nil
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// SetNavigator registers who is told about forced logouts. Without one the
// store is still cleared.
func (c *Client) SetNavigator(n Navigator) {
	c.navMu.Lock()
	defer c.navMu.Unlock()
	c.navigator = n
}

func (c *Client) redirectToLogin(ctx context.Context) {
	c.navMu.RLock()
	n := c.navigator
	c.navMu.RUnlock()
	if n != nil {
		n.RedirectToLogin(ctx)
	}
}

type endpoint struct {
	name   string
	method string
	path   string
	// bare endpoints are neither tagged with a stored token nor recovered
	// on 401.
	bare bool
}

// call runs one API request. A 401 on an intercepted endpoint triggers a
// single refresh and retry.
func (c *Client) call(ctx context.Context, ep endpoint, in, out any) error {
	var body []byte
	if in != nil {
		var err error
		if body, err = json.Marshal(in); err != nil {
			return fmt.Errorf("encode %s request: %w", ep.name, err)
		}
	}

	if ep.bare {
		return c.roundTrip(ctx, ep, body, "", out)
	}

	s, err := c.store.Get(ctx)
	if err != nil {
		return fmt.Errorf("read session: %w", err)
	}

	err = c.roundTrip(ctx, ep, body, s.AccessToken, out)
	if err == nil || !apperrors.IsStatus(err, http.StatusUnauthorized) {
		return err
	}

	access, rerr := c.refreshAfter(ctx, ep, err)
	if rerr != nil {
		return rerr
	}
	return c.roundTrip(ctx, ep, body, access, out)
}

// refreshAfter exchanges the stored refresh token for a new access token
// after original failed with 401. It returns original unchanged when there is
// no refresh token.
func (c *Client) refreshAfter(ctx context.Context, ep endpoint, original error) (string, error) {
	s, err := c.store.Get(ctx)
	if err != nil || s.RefreshToken == "" {
		tokenRefreshTotal.WithLabelValues(refreshSkipped).Inc()
		return "", original
	}

	access, err := c.RefreshToken(ctx, s.RefreshToken)
	if err != nil {
		tokenRefreshTotal.WithLabelValues(refreshFailed).Inc()
		c.log(ctx).WarnContext(ctx, "token refresh rejected, ending session",
			slog.String("endpoint", ep.name),
			slog.String("error", err.Error()),
		)
		if cerr := c.store.Clear(ctx); cerr != nil {
			c.log(ctx).ErrorContext(ctx, "failed to clear session store",
				slog.String("error", cerr.Error()),
			)
		}
		c.redirectToLogin(ctx)
		return "", fmt.Errorf("%w: %w", ErrSessionExpired, original)
	}

	if err := c.store.SetAccessToken(ctx, access); err != nil {
		tokenRefreshTotal.WithLabelValues(refreshFailed).Inc()
		return "", fmt.Errorf("store refreshed token: %w", err)
	}

	tokenRefreshTotal.WithLabelValues(refreshSucceeded).Inc()
	c.log(ctx).DebugContext(ctx, "access token refreshed", slog.String("endpoint", ep.name))
	return access, nil
}

func (c *Client) roundTrip(ctx context.Context, ep endpoint, body []byte, token string, out any) (err error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%s: wait for rate limiter: %w", ep.name, err)
		}
	}

	ctx, span := c.tracer.Start(ctx, "lms-api "+ep.name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", ep.method),
			attribute.String("url.path", ep.path),
		),
	)
	start := time.Now()
	status := 0
	defer func() {
		observeRequest(ep, status, err, time.Since(start))
		if status != 0 {
			span.SetAttributes(attribute.Int("http.response.status_code", status))
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	var reader io.Reader = http.NoBody
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, ep.method, c.baseURL.String()+ep.path, reader)
	if err != nil {
		return fmt.Errorf("create %s request: %w", ep.name, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set(correlationHeader, correlationID(ctx))
	tracing.InjectHeaders(ctx, req.Header)

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		var se *httpclient.StatusError
		if errors.As(err, &se) {
			status = se.StatusCode
			return httpclient.ParseErrorBody(se.StatusCode, se.Body, "")
		}
		return fmt.Errorf("%s %s: %w", ep.method, ep.path, err)
	}
	defer resp.Body.Close()
	status = resp.StatusCode

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return httpclient.ParseResponseError(resp, "")
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", ep.name, err)
	}
	return nil
}

func (c *Client) log(ctx context.Context) *slog.Logger {
	return logger.WithContext(ctx, c.logger)
}

func correlationID(ctx context.Context) string {
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		return id
	}
	return uuid.NewString()
}

func idPath(format string, id int64) string {
	return fmt.Sprintf(format, strconv.FormatInt(id, 10))
}
