package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"podforge/internal/config"
	"podforge/internal/services"
)

const (
	synthesizePath = "/v1/synthesize"
	healthPath     = "/health"

	defaultRequestTimeout = 15 * time.Minute
	retryBaseDelay        = 2 * time.Second
	retryMaxDelay         = 30 * time.Second

	maxResponseBytes = 8 << 20
	maxBodySnippet   = 160
)

// Request describes one synthesis run handed to the engine. Profile payloads
// travel as raw JSON so the engine schema can evolve without a client change.
type Request struct {
	EpisodeName    string          `json:"episode_name"`
	Content        string          `json:"content"`
	Briefing       string          `json:"briefing,omitempty"`
	EpisodeProfile json.RawMessage `json:"episode_profile,omitempty"`
	SpeakerProfile json.RawMessage `json:"speaker_profile,omitempty"`
	OutputDir      string          `json:"output_dir"`
}

// Response carries what the engine reports back. AudioPath is optional; when
// empty the caller derives the artifact location from the output directory.
type Response struct {
	AudioPath  string          `json:"audio_path,omitempty"`
	Transcript json.RawMessage `json:"transcript,omitempty"`
	Outline    json.RawMessage `json:"outline,omitempty"`
}

// Synthesizer is the engine surface the generation worker depends on.
type Synthesizer interface {
	Synthesize(ctx context.Context, req Request) (*Response, error)
	HealthCheck(ctx context.Context) error
}

// Sleeper pauses between retry attempts and should return early when the
// context ends. Tests substitute one that records delays instead of waiting.
type Sleeper func(ctx context.Context, d time.Duration) error

// Client talks to the synthesis engine over HTTP with bounded retries.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client

	retryBaseDelay   time.Duration
	retryMaxDelay    time.Duration
	retryMaxAttempts int
	sleep            Sleeper
}

var _ Synthesizer = (*Client)(nil)

// Option adjusts optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used for engine requests.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithRetryMaxAttempts overrides the total number of attempts per call.
func WithRetryMaxAttempts(attempts int) Option {
	return func(c *Client) {
		if attempts > 0 {
			c.retryMaxAttempts = attempts
		}
	}
}

// WithRetryBackoff overrides the base and maximum delay between attempts.
func WithRetryBackoff(base, max time.Duration) Option {
	return func(c *Client) {
		if base > 0 {
			c.retryBaseDelay = base
		}
		if max > 0 {
			c.retryMaxDelay = max
		}
	}
}

// WithSleeper overrides how the client waits between attempts.
func WithSleeper(sleep Sleeper) Option {
	return func(c *Client) {
		if sleep != nil {
			c.sleep = sleep
		}
	}
}

// NewClient builds an engine client from resolved configuration.
func NewClient(cfg config.EngineConfig, opts ...Option) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, services.Wrap(services.ErrConfiguration, "engine", "configure", "engine base URL is required", nil)
	}
	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, services.Wrap(services.ErrConfiguration, "engine", "configure", fmt.Sprintf("engine base URL %q is not an absolute URL", cfg.BaseURL), err)
	}

	timeout := defaultRequestTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	attempts := cfg.MaxRetries + 1
	if attempts < 1 {
		attempts = 1
	}

	client := &Client{
		baseURL:          baseURL,
		apiKey:           strings.TrimSpace(cfg.APIKey),
		httpClient:       &http.Client{Timeout: timeout},
		retryBaseDelay:   retryBaseDelay,
		retryMaxDelay:    retryMaxDelay,
		retryMaxAttempts: attempts,
		sleep:            defaultSleep,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	if client.retryMaxDelay < client.retryBaseDelay {
		client.retryMaxDelay = client.retryBaseDelay
	}
	return client, nil
}

// BaseURL reports the normalized engine endpoint.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Synthesize submits one request and waits for the engine's verdict. Transient
// failures (timeouts, 408/429, 5xx) are retried with capped backoff, honoring
// any Retry-After the engine sends. The returned error wraps ErrSynthesis.
func (c *Client) Synthesize(ctx context.Context, req Request) (*Response, error) {
	if strings.TrimSpace(req.EpisodeName) == "" {
		return nil, services.Wrap(services.ErrValidation, "engine", "synthesize", "episode name is required", nil)
	}
	if strings.TrimSpace(req.Content) == "" {
		return nil, services.Wrap(services.ErrValidation, "engine", "synthesize", "content is required", nil)
	}
	if strings.TrimSpace(req.OutputDir) == "" {
		return nil, services.Wrap(services.ErrValidation, "engine", "synthesize", "output directory is required", nil)
	}

	var lastErr error
	for attempt := 1; attempt <= c.retryMaxAttempts; attempt++ {
		resp, err := c.synthesizeOnce(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		delay, retry := c.retryDelay(err, attempt)
		if !retry || attempt == c.retryMaxAttempts {
			break
		}
		if sleepErr := c.sleep(ctx, delay); sleepErr != nil {
			lastErr = sleepErr
			break
		}
	}
	return nil, services.Wrap(services.ErrSynthesis, "engine", "synthesize",
		fmt.Sprintf("engine request for %q failed", req.EpisodeName), lastErr)
}

// HealthCheck probes the engine's health endpoint once, without retries.
func (c *Client) HealthCheck(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+healthPath, nil)
	if err != nil {
		return services.Wrap(services.ErrSynthesis, "engine", "health", "build health request", err)
	}
	c.applyHeaders(httpReq, false)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return services.Wrap(services.ErrSynthesis, "engine", "health",
			fmt.Sprintf("engine at %s is unreachable", c.baseURL), err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))

	if resp.StatusCode != http.StatusOK {
		return services.Wrap(services.ErrSynthesis, "engine", "health",
			fmt.Sprintf("engine health returned status %d", resp.StatusCode), nil)
	}
	return nil
}

func (c *Client) synthesizeOnce(ctx context.Context, req Request) (*Response, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode synthesis request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+synthesizePath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build synthesis request: %w", err)
	}
	c.applyHeaders(httpReq, true)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send synthesis request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read synthesis response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &httpStatusError{
			StatusCode: resp.StatusCode,
			Body:       snippet(string(body)),
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}

	out := &Response{}
	if len(bytes.TrimSpace(body)) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return nil, fmt.Errorf("decode synthesis response: %w (body %q)", err, snippet(string(body)))
	}
	return out, nil
}

func (c *Client) applyHeaders(req *http.Request, jsonBody bool) {
	if jsonBody {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

// retryDelay reports how long to wait before the next attempt and whether the
// error is worth retrying at all.
func (c *Client) retryDelay(err error, attempt int) (time.Duration, bool) {
	if err == nil {
		return 0, false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return 0, false
	}

	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode == http.StatusRequestTimeout,
			statusErr.StatusCode == http.StatusTooManyRequests,
			statusErr.StatusCode >= 500:
			delay := c.backoffDelay(attempt)
			if statusErr.RetryAfter > delay {
				delay = c.capDelay(statusErr.RetryAfter)
			}
			return delay, true
		default:
			return 0, false
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return c.backoffDelay(attempt), true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return c.backoffDelay(attempt), true
	}
	return 0, false
}

func (c *Client) backoffDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := c.retryBaseDelay << (attempt - 1)
	return c.capDelay(delay)
}

func (c *Client) capDelay(delay time.Duration) time.Duration {
	if delay > c.retryMaxDelay {
		return c.retryMaxDelay
	}
	if delay < 0 {
		return 0
	}
	return delay
}

func defaultSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// httpStatusError captures a non-2xx engine response.
type httpStatusError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *httpStatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("engine returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("engine returned status %d: %s", e.StatusCode, e.Body)
}

// parseRetryAfter understands both delta-seconds and HTTP-date forms.
func parseRetryAfter(header string) time.Duration {
	header = strings.TrimSpace(header)
	if header == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(header); err == nil {
		if seconds <= 0 {
			return 0
		}
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(header); err == nil {
		if wait := time.Until(at); wait > 0 {
			return wait
		}
	}
	return 0
}

// snippet trims a response body down to a log-friendly excerpt.
func snippet(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= maxBodySnippet {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxBodySnippet]) + "..."
}
