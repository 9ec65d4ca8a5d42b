package core

import (
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"
)

var configVars = []string{
	"JULIA_BASE_URL",
	"JULIA_REQUEST_TIMEOUT",
	"JULIA_SANITIZE_MARKUP",
	"ALLOW_SELF_SIGNED_CERTS",
	"JULIA_LISTEN_ADDR",
	"JULIA_PARAMS_FILE",
	"JULIA_OUTPUT_FILE",
	"JULIA_HISTORY_DB",
	"JULIA_HISTORY_RETENTION",
	"DEV_MODE",
	"JULIA_LOG_FILE",
	"JULIA_LOG_LEVEL",
}

// clearConfigEnv blanks every variable LoadConfig reads for the test's duration.
func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, v := range configVars {
		t.Setenv(v, "")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("JULIA_BASE_URL", "http://localhost:8080/juliasets/")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}

	if cfg.BaseURL != "http://localhost:8080/juliasets" {
		t.Errorf("BaseURL = %q, want trailing slash trimmed", cfg.BaseURL)
	}
	if cfg.RequestTimeout != DefaultRequestTimeout {
		t.Errorf("RequestTimeout = %v, want %v", cfg.RequestTimeout, DefaultRequestTimeout)
	}
	if !cfg.SanitizeMarkup {
		t.Error("SanitizeMarkup should default to true")
	}
	if cfg.ListenAddr != DefaultListenAddr {
		t.Errorf("ListenAddr = %q", cfg.ListenAddr)
	}
	if cfg.OutputFile != DefaultOutputFile || cfg.LogFile != DefaultLogFile {
		t.Errorf("OutputFile/LogFile = %q/%q", cfg.OutputFile, cfg.LogFile)
	}
	if cfg.IsOneShot() {
		t.Error("IsOneShot() = true without JULIA_PARAMS_FILE")
	}
	if cfg.HistoryEnabled() || cfg.HistoryRetention != 0 {
		t.Errorf("history = %q/%v, want disabled", cfg.HistoryDB, cfg.HistoryRetention)
	}
}

func TestLoadConfig_Overrides(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("JULIA_BASE_URL", "https://julia.example.com")
	t.Setenv("JULIA_REQUEST_TIMEOUT", "5")
	t.Setenv("JULIA_SANITIZE_MARKUP", "off")
	t.Setenv("JULIA_PARAMS_FILE", "params.yaml")
	t.Setenv("DEV_MODE", "yes")
	t.Setenv("JULIA_HISTORY_DB", "data/history.db")
	t.Setenv("JULIA_HISTORY_RETENTION", "72h")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if cfg.RequestTimeout != 5*time.Second {
		t.Errorf("RequestTimeout = %v, want 5s", cfg.RequestTimeout)
	}
	if cfg.SanitizeMarkup {
		t.Error("SanitizeMarkup = true, want false")
	}
	if !cfg.IsOneShot() || !cfg.DevMode {
		t.Errorf("IsOneShot/DevMode = %v/%v", cfg.IsOneShot(), cfg.DevMode)
	}
	if !cfg.HistoryEnabled() || cfg.HistoryRetention != 72*time.Hour {
		t.Errorf("history = %q/%v", cfg.HistoryDB, cfg.HistoryRetention)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name     string
		baseURL  string
		timeout  string
		wantCode string
	}{
		{name: "missing base url", wantCode: ErrCodeMissingConfig},
		{name: "relative base url", baseURL: "/juliasets", wantCode: ErrCodeInvalidBaseURL},
		{name: "ftp scheme", baseURL: "ftp://host/x", wantCode: ErrCodeInvalidBaseURL},
		{name: "query string", baseURL: "http://host/x?a=1", wantCode: ErrCodeInvalidBaseURL},
		{name: "negative timeout", baseURL: "http://host", timeout: "-3", wantCode: ErrCodeInvalidValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearConfigEnv(t)
			t.Setenv("JULIA_BASE_URL", tt.baseURL)
			t.Setenv("JULIA_REQUEST_TIMEOUT", tt.timeout)

			_, err := LoadConfig()
			if err == nil {
				t.Fatal("LoadConfig() expected error")
			}
			if got := GetErrorCode(err); got != tt.wantCode {
				t.Errorf("GetErrorCode() = %q, want %q (err: %v)", got, tt.wantCode, err)
			}
		})
	}
}

func TestGetHTTPClient(t *testing.T) {
	cfg := &Config{RequestTimeout: 7 * time.Second}
	client := GetHTTPClient(cfg)
	if client.Timeout != 7*time.Second {
		t.Errorf("Timeout = %v, want 7s", client.Timeout)
	}
	if client.Transport != nil {
		t.Error("Transport should be default when self-signed certs are not allowed")
	}

	cfg.AllowSelfSignedCerts = true
	tr, ok := GetHTTPClient(cfg).Transport.(*http.Transport)
	if !ok || !tr.TLSClientConfig.InsecureSkipVerify {
		t.Error("expected InsecureSkipVerify transport")
	}
}

func TestConfigError(t *testing.T) {
	err := ErrMissingConfig("JULIA_BASE_URL")
	if !strings.Contains(err.Error(), "JULIA_BASE_URL") || !strings.Contains(err.Error(), ".env") {
		t.Errorf("Error() = %q", err.Error())
	}

	wrapped := errors.Join(errors.New("startup"), err)
	if GetErrorCode(wrapped) != ErrCodeMissingConfig {
		t.Errorf("GetErrorCode(wrapped) = %q", GetErrorCode(wrapped))
	}
	if GetErrorCode(errors.New("plain")) != "" {
		t.Error("GetErrorCode(plain) should be empty")
	}

	noAction := ErrInvalidValue("X", "1", "bad")
	if noAction.Error() != "Invalid X '1': bad" {
		t.Errorf("Error() = %q", noAction.Error())
	}
}
