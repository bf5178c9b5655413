package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Defaults for New.
const (
	DefaultBaseURL    = "https://api.github.com"
	DefaultAPIVersion = "2022-11-28"
	DefaultTimeout    = 5 * time.Minute
)

// Client is a minimal GitHub REST client covering the Actions artifact and
// commit endpoints.
type Client struct {
	baseURL    string
	token      string
	apiVersion string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures the Client during construction.
type Option func(*clientConfig) error

type clientConfig struct {
	httpClient *http.Client
	logger     *slog.Logger
	timeout    time.Duration
	apiVersion string
}

// New creates a Client for the API at baseURL (DefaultBaseURL when empty).
// The token is sent as "Authorization: token <token>" on every request.
// Requests are bounded by DefaultTimeout unless WithTimeout says otherwise.
func New(baseURL, token string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	cfg := &clientConfig{timeout: DefaultTimeout, apiVersion: DefaultAPIVersion}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	httpClient := cfg.httpClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if cfg.timeout > 0 {
		httpClient.Timeout = cfg.timeout
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Client{
		baseURL:    baseURL,
		token:      token,
		apiVersion: cfg.apiVersion,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cfg *clientConfig) error {
		cfg.httpClient = c
		return nil
	}
}

// WithLogger configures structured logging.
func WithLogger(l *slog.Logger) Option {
	return func(cfg *clientConfig) error {
		cfg.logger = l
		return nil
	}
}

// WithTimeout sets a timeout on the HTTP client. Zero keeps the default.
func WithTimeout(d time.Duration) Option {
	return func(cfg *clientConfig) error {
		if d < 0 {
			return fmt.Errorf("github: negative timeout %s", d)
		}
		if d > 0 {
			cfg.timeout = d
		}
		return nil
	}
}

// WithAPIVersion sets the X-GitHub-Api-Version header value.
func WithAPIVersion(v string) Option {
	return func(cfg *clientConfig) error {
		if v != "" {
			cfg.apiVersion = v
		}
		return nil
	}
}

// do executes a GET request and returns the response when the status is 2xx.
// Otherwise the body is drained into an *APIError and the response closed.
func (c *Client) do(ctx context.Context, url, operation string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", operation, err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", c.apiVersion)
	if c.token != "" {
		req.Header.Set("Authorization", "token "+c.token)
	}

	c.logger.DebugContext(ctx, "API request", "operation", operation, "url", url)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: do request: %w", operation, err)
	}

	c.logger.DebugContext(ctx, "API response", "operation", operation, "status", resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		var errRS struct {
			Message          string `json:"message"`
			DocumentationURL string `json:"documentation_url"`
		}
		if json.Unmarshal(body, &errRS) == nil && errRS.Message != "" {
			return nil, newAPIError(operation, resp.StatusCode, errRS.Message, errRS.DocumentationURL)
		}
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = resp.Status
		}
		return nil, newAPIError(operation, resp.StatusCode, msg, "")
	}
	return resp, nil
}

// getJSON executes a GET request and decodes the JSON response into dst.
func (c *Client) getJSON(ctx context.Context, url, operation string, dst any) error {
	resp, err := c.do(ctx, url, operation)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("%s: decode response: %w", operation, err)
	}
	return nil
}
