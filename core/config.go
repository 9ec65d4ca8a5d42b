// Package core holds process-wide configuration, error types and exit codes.
package core

import (
	"crypto/tls"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Config holds all configuration values.
type Config struct {
	// Image service
	BaseURL              string        // application root serving getConstraints and generateJuliaSet.html
	RequestTimeout       time.Duration // per request, 0 disables the timeout
	SanitizeMarkup       bool          // strip scripts and handlers from returned markup
	AllowSelfSignedCerts bool

	// Form session server
	ListenAddr string

	// One-shot run
	ParamsFile string // YAML presets; when set the binary renders once and exits
	OutputFile string

	// Render history, disabled when HistoryDB is empty
	HistoryDB        string
	HistoryRetention time.Duration // 0 keeps every render

	// Logging
	DevMode  bool
	LogFile  string
	LogLevel string
}

// Defaults.
const (
	DefaultRequestTimeout = 30 * time.Second
	DefaultListenAddr     = ":8090"
	DefaultOutputFile     = "juliaSet.html"
	DefaultLogFile        = "juliaform.log"
)

// LoadConfig reads configuration from the environment. Only JULIA_BASE_URL is
// required.
func LoadConfig() (*Config, error) {
	baseURL := GetEnvOrDefault("JULIA_BASE_URL", "")
	if baseURL == "" {
		return nil, ErrMissingConfig("JULIA_BASE_URL")
	}
	if err := ValidateBaseURL(baseURL); err != nil {
		return nil, err
	}

	timeout := ParseDurationEnv("JULIA_REQUEST_TIMEOUT", DefaultRequestTimeout)
	if timeout < 0 {
		return nil, ErrInvalidValue("JULIA_REQUEST_TIMEOUT", timeout.String(), "must not be negative")
	}

	retention := ParseDurationEnv("JULIA_HISTORY_RETENTION", 0)
	if retention < 0 {
		return nil, ErrInvalidValue("JULIA_HISTORY_RETENTION", retention.String(), "must not be negative")
	}

	return &Config{
		BaseURL:              strings.TrimRight(baseURL, "/"),
		RequestTimeout:       timeout,
		SanitizeMarkup:       ParseBoolEnv("JULIA_SANITIZE_MARKUP", true),
		AllowSelfSignedCerts: ParseBoolEnv("ALLOW_SELF_SIGNED_CERTS", false),
		ListenAddr:           GetEnvOrDefault("JULIA_LISTEN_ADDR", DefaultListenAddr),
		ParamsFile:           GetEnvOrDefault("JULIA_PARAMS_FILE", ""),
		OutputFile:           GetEnvOrDefault("JULIA_OUTPUT_FILE", DefaultOutputFile),
		HistoryDB:            GetEnvOrDefault("JULIA_HISTORY_DB", ""),
		HistoryRetention:     retention,
		DevMode:              ParseBoolEnv("DEV_MODE", false),
		LogFile:              GetEnvOrDefault("JULIA_LOG_FILE", DefaultLogFile),
		LogLevel:             GetEnvOrDefault("JULIA_LOG_LEVEL", ""),
	}, nil
}

// ValidateBaseURL checks that raw is an absolute http(s) URL with a host.
func ValidateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return ErrInvalidBaseURL(raw, err.Error())
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ErrInvalidBaseURL(raw, "scheme must be http or https")
	}
	if u.Host == "" {
		return ErrInvalidBaseURL(raw, "missing host")
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return ErrInvalidBaseURL(raw, "must not carry a query or fragment")
	}
	return nil
}

// IsOneShot reports whether the binary should render a presets file and exit.
func (c *Config) IsOneShot() bool {
	return c.ParamsFile != ""
}

// HistoryEnabled reports whether issued requests are stored.
func (c *Config) HistoryEnabled() bool {
	return c.HistoryDB != ""
}

// GetHTTPClient returns an HTTP client honouring RequestTimeout and
// AllowSelfSignedCerts.
func GetHTTPClient(cfg *Config) *http.Client {
	client := &http.Client{Timeout: cfg.RequestTimeout}
	if cfg.AllowSelfSignedCerts {
		client.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}
	return client
}
