// Package juliaclient talks to the Julia set web application: it fetches the
// validation constraints and requests rendered image markup.
package juliaclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"juliaform/core"
	"juliaform/params"
)

// Endpoint paths, relative to the application root.
const (
	ConstraintsPath = "/getConstraints"
	GeneratePath    = "/generateJuliaSet.html"
)

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 4 << 20

// errorBodyBytes is how much of a failed response is kept for the error.
const errorBodyBytes = 512

// ErrRequest matches any *RequestError via errors.Is.
var ErrRequest = errors.New("juliaclient: request failed")

// RequestError is a transport failure or a non-200 response from either endpoint.
type RequestError struct {
	Endpoint   string
	StatusCode int    // 0 when no response was received
	Body       string // start of the response body, for diagnostics
	Err        error
}

func (e *RequestError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("juliaclient: GET %s: status %d: %s", e.Endpoint, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("juliaclient: GET %s: %v", e.Endpoint, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

func (e *RequestError) Is(target error) bool { return target == ErrRequest }

// Config holds configuration for the Client.
type Config struct {
	// BaseURL is the application root, without trailing slash.
	BaseURL string

	// HTTPClient is used for every request. Default: 30s timeout client.
	HTTPClient *http.Client

	// Sanitize strips scripts, event handlers and other active content from
	// returned markup before it is shown.
	Sanitize bool
}

// Client is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	policy  *bluemonday.Policy
	logger  *zap.Logger
}

// New creates a Client. A nil logger disables logging.
func New(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: core.DefaultRequestTimeout}
	}
	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    httpClient,
		logger:  logger.Named("juliaclient"),
	}
	if cfg.Sanitize {
		c.policy = bluemonday.UGCPolicy()
	}
	return c
}

// NewFromConfig builds a Client from the process configuration.
func NewFromConfig(cfg *core.Config, logger *zap.Logger) *Client {
	return New(Config{
		BaseURL:    cfg.BaseURL,
		HTTPClient: core.GetHTTPClient(cfg),
		Sanitize:   cfg.SanitizeMarkup,
	}, logger)
}

// GetConstraints fetches the raw constraints JSON.
func (c *Client) GetConstraints(ctx context.Context) ([]byte, error) {
	return c.get(ctx, ConstraintsPath, "")
}

// GenerateImage requests the markup for the image described by s. The ten
// fields are sent as query parameters, verbatim.
func (c *Client) GenerateImage(ctx context.Context, s params.Snapshot) (string, error) {
	body, err := c.get(ctx, GeneratePath, s.Values().Encode())
	if err != nil {
		return "", err
	}
	markup := string(body)
	if c.policy != nil {
		markup = c.policy.Sanitize(markup)
	}
	return markup, nil
}

func (c *Client) get(ctx context.Context, path, query string) ([]byte, error) {
	target := c.baseURL + path
	if query != "" {
		target += "?" + query
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &RequestError{Endpoint: path, Err: err}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("request failed",
			zap.String("endpoint", path),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, &RequestError{Endpoint: path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyBytes))
		c.logger.Warn("unexpected status",
			zap.String("endpoint", path),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", snippet))
		return nil, &RequestError{
			Endpoint:   path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(snippet)),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &RequestError{Endpoint: path, StatusCode: resp.StatusCode, Err: err}
	}

	c.logger.Debug("request complete",
		zap.String("endpoint", path),
		zap.Int("bytes", len(body)),
		zap.Duration("elapsed", time.Since(start)))
	return body, nil
}
