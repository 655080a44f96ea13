package duel

//go:generate mockgen -source=client.go -destination=mock/initializer.go -package=mock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/fadedpez/duelbot/internal/logging"
	"github.com/fadedpez/duelbot/internal/types"
	"github.com/google/uuid"
)

const (
	// PracticeRoute is appended to the backend base URL
	PracticeRoute = "/bot/practice"

	// DefaultTimeout covers connect, headers and body
	DefaultTimeout = 20 * time.Second

	// RequestIDHeader carries a per-call id the backend can log
	RequestIDHeader = "X-Request-ID"

	maxBodyExcerpt = 300
	maxBodyRead    = 64 << 10
)

// Initializer starts practice duels on the backend
type Initializer interface {
	// InitPractice asks the backend to set up a fresh bot duel and returns
	// the raw duel state it answered with.
	InitPractice(ctx context.Context) (json.RawMessage, error)
}

// StatusError is returned when the backend answers with anything but 200
type StatusError struct {
	StatusCode int
	Body       string // at most the first 300 characters
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("Backend responded %d: %s", e.StatusCode, e.Body)
}

// Client talks to the duel backend over HTTP
type Client struct {
	endpoint   string
	timeout    time.Duration
	httpClient *http.Client
	logger     *logging.Logger
}

// Option customizes a Client
type Option func(*Client)

// WithTimeout overrides DefaultTimeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets the logger used for request tracing
func WithLogger(logger *logging.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a client for the backend at baseURL
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		endpoint: strings.TrimRight(baseURL, "/") + PracticeRoute,
		timeout:  DefaultTimeout,
		logger:   logging.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{
			Transport: http.DefaultTransport.(*http.Transport).Clone(),
		}
	}
	c.httpClient.Timeout = c.timeout
	return c
}

// Ensure Client implements Initializer
var _ Initializer = (*Client)(nil)

// Endpoint returns the full practice initialization URL
func (c *Client) Endpoint() string {
	return c.endpoint
}

// InitPractice implements Initializer. Errors are *types.DuelError tagged
// ErrBackendTimeout, ErrBackendStatus (wrapping *StatusError) or ErrNetworkError.
func (c *Client) InitPractice(ctx context.Context) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	// Nothing is kept open between invocations
	defer c.httpClient.CloseIdleConnections()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return nil, types.WrapError(types.ErrNetworkError, err.Error(), err)
	}
	requestID := uuid.NewString()
	req.Header.Set(RequestIDHeader, requestID)
	req.Header.Set("Accept", "application/json")

	logger := c.logger.With("request_id", requestID, "endpoint", c.endpoint)
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Warn("Practice init request failed after %s: %v", time.Since(start), err)
		return nil, classify(err)
	}
	defer resp.Body.Close()

	logger.Debug("Practice init answered %d in %s", resp.StatusCode, time.Since(start))

	if resp.StatusCode != http.StatusOK {
		raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyRead))
		if err != nil {
			// A deadline hit mid-body is still a timeout, not a status failure
			if tagged := classify(err); types.IsDuelError(tagged, types.ErrBackendTimeout) {
				logger.Warn("Practice init body read timed out after %s: %v", time.Since(start), err)
				return nil, tagged
			}
		}
		statusErr := &StatusError{
			StatusCode: resp.StatusCode,
			Body:       excerpt(string(raw), maxBodyExcerpt),
		}
		return nil, types.WrapError(types.ErrBackendStatus, statusErr.Error(), statusErr)
	}

	var state json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		return nil, classify(fmt.Errorf("invalid duel state: %w", err))
	}
	return state, nil
}

// classify tags transport errors as timeouts or generic network failures
func classify(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return types.WrapError(types.ErrBackendTimeout, "duel server timed out", err)
	}
	return types.WrapError(types.ErrNetworkError, err.Error(), err)
}

// excerpt returns at most n characters of s without splitting a rune
func excerpt(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
