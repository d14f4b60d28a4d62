// internals/features/integrations/glpi/client/glpi_client.go
package client

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"loginuv_backend/internals/configs"
)

var (
	ErrNotConfigured = errors.New("GLPI credentials are not configured")
	ErrSyncFailed    = errors.New("GLPI request failed after retries")
	ErrNoSession     = errors.New("GLPI initSession response missing session_token")
)

// DefaultDelays is the wait before each attempt; the first attempt goes out immediately.
var DefaultDelays = []time.Duration{0, 5 * time.Second, 15 * time.Second, 30 * time.Second}

const (
	defaultUserRange     = 1000
	defaultComputerRange = 2000
	maxErrorBody         = 512
)

// StatusError is a non-2xx reply. 5xx and 429 are retried, other codes are final.
type StatusError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GLPI %s returned HTTP %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

func (e *StatusError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// RequestError wraps transport failures and undecodable bodies. Always retried.
type RequestError struct {
	Endpoint string
	Err      error
}

func (e *RequestError) Error() string { return fmt.Sprintf("GLPI %s: %v", e.Endpoint, e.Err) }
func (e *RequestError) Unwrap() error { return e.Err }

// Record is one untyped GLPI item.
type Record map[string]any

// String renders a scalar field as trimmed text. Numeric ids come back as float64
// from the decoder and are printed without a fractional part.
func (r Record) String(key string) string {
	switch v := r[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%g", v)
	case bool:
		if v {
			return "1"
		}
		return "0"
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// Sleeper waits for d or until ctx ends.
type Sleeper func(ctx context.Context, d time.Duration) error

func contextSleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type Client struct {
	baseURL   string
	appToken  string
	userToken string

	http   *http.Client
	delays []time.Duration
	sleep  Sleeper
	log    *zap.Logger

	userRange     int
	computerRange int
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }
func WithSleeper(s Sleeper) Option         { return func(c *Client) { c.sleep = s } }
func WithDelays(d []time.Duration) Option  { return func(c *Client) { c.delays = d } }

// New fails with ErrNotConfigured before any network activity when credentials are missing.
func New(cfg configs.GLPIConfig, log *zap.Logger, opts ...Option) (*Client, error) {
	if !cfg.Configured() {
		return nil, ErrNotConfigured
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if !cfg.VerifySSL {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // self-signed GLPI installs
	}

	c := &Client{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		appToken:      cfg.AppToken,
		userToken:     cfg.UserToken,
		http:          &http.Client{Timeout: cfg.Timeout, Transport: transport},
		delays:        DefaultDelays,
		sleep:         contextSleep,
		log:           log.Named("glpi"),
		userRange:     defaultUserRange,
		computerRange: defaultComputerRange,
	}
	for _, opt := range opts {
		opt(c)
	}
	if len(c.delays) == 0 {
		c.delays = []time.Duration{0}
	}
	return c, nil
}

/* =========================================================
   API
========================================================= */

func (c *Client) InitSession(ctx context.Context) (string, error) {
	body, err := c.request(ctx, "/apirest.php/initSession", map[string]string{
		"Authorization": "user_token " + c.userToken,
	}, nil)
	if err != nil {
		return "", err
	}
	obj, _ := body.(map[string]any)
	token := Record(obj).String("session_token")
	if token == "" {
		return "", ErrNoSession
	}
	return token, nil
}

func (c *Client) KillSession(ctx context.Context, sessionToken string) error {
	_, err := c.request(ctx, "/apirest.php/killSession", map[string]string{
		"Session-Token": sessionToken,
	}, nil)
	return err
}

func (c *Client) ListUsers(ctx context.Context, sessionToken string) ([]Record, error) {
	return c.list(ctx, "/apirest.php/User", sessionToken, c.userRange)
}

func (c *Client) ListComputers(ctx context.Context, sessionToken string) ([]Record, error) {
	return c.list(ctx, "/apirest.php/Computer", sessionToken, c.computerRange)
}

func (c *Client) list(ctx context.Context, endpoint, sessionToken string, limit int) ([]Record, error) {
	params := url.Values{}
	params.Set("range", fmt.Sprintf("0-%d", max(0, limit-1)))

	body, err := c.request(ctx, endpoint, map[string]string{"Session-Token": sessionToken}, params)
	if err != nil {
		return nil, err
	}
	items, ok := body.([]any)
	if !ok {
		return []Record{}, nil
	}
	out := make([]Record, 0, len(items))
	for _, it := range items {
		if m, ok := it.(map[string]any); ok {
			out = append(out, Record(m))
		}
	}
	return out, nil
}

/* =========================================================
   TRANSPORT
========================================================= */

func (c *Client) request(ctx context.Context, endpoint string, headers map[string]string, params url.Values) (any, error) {
	var last error
	for attempt, delay := range c.delays {
		if delay > 0 {
			if err := c.sleep(ctx, delay); err != nil {
				return nil, err
			}
		}

		body, err := c.once(ctx, endpoint, headers, params)
		if err == nil {
			return body, nil
		}
		if !retriable(ctx, err) {
			return nil, err
		}
		last = err
		c.log.Warn("request GLPI gagal",
			zap.String("endpoint", endpoint),
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", len(c.delays)),
			zap.Error(err),
		)
	}
	return nil, fmt.Errorf("%w: %v", ErrSyncFailed, last)
}

func (c *Client) once(ctx context.Context, endpoint string, headers map[string]string, params url.Values) (any, error) {
	target := c.baseURL + endpoint
	if len(params) > 0 {
		target += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("App-Token", c.appToken)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &RequestError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &RequestError{Endpoint: endpoint, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := string(raw)
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		return nil, &StatusError{Endpoint: endpoint, StatusCode: resp.StatusCode, Body: strings.TrimSpace(snippet)}
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return map[string]any{}, nil
	}

	var out any
	if err := sonic.Unmarshal(raw, &out); err != nil {
		return nil, &RequestError{Endpoint: endpoint, Err: fmt.Errorf("decode body: %w", err)}
	}
	return out, nil
}

func retriable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	var re *RequestError
	return errors.As(err, &re)
}
