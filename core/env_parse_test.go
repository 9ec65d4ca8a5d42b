package core

import (
	"testing"
	"time"
)

func TestGetEnvOrDefault(t *testing.T) {
	const key = "TEST_JULIA_GET_ENV"

	tests := []struct {
		name  string
		value string
		want  string
	}{
		{name: "set", value: "custom", want: "custom"},
		{name: "blank", value: "   ", want: "default"},
		{name: "empty", value: "", want: "default"},
		{name: "trimmed", value: " v ", want: "v"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(key, tt.value)
			if got := GetEnvOrDefault(key, "default"); got != tt.want {
				t.Errorf("GetEnvOrDefault() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseIntEnv(t *testing.T) {
	const key = "TEST_JULIA_PARSE_INT"

	tests := []struct {
		value string
		want  int
	}{
		{"42", 42},
		{"-10", -10},
		{"", 7},
		{"abc", 7},
		{"4.5", 7},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv(key, tt.value)
			if got := ParseIntEnv(key, 7); got != tt.want {
				t.Errorf("ParseIntEnv(%q) = %d, want %d", tt.value, got, tt.want)
			}
		})
	}
}

func TestParseBoolEnv(t *testing.T) {
	const key = "TEST_JULIA_PARSE_BOOL"

	tests := []struct {
		value        string
		defaultValue bool
		want         bool
	}{
		{"true", false, true},
		{"YES", false, true},
		{"1", false, true},
		{"on", false, true},
		{"false", true, false},
		{"Off", true, false},
		{"0", true, false},
		{"maybe", true, true},
		{"", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv(key, tt.value)
			if got := ParseBoolEnv(key, tt.defaultValue); got != tt.want {
				t.Errorf("ParseBoolEnv(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestParseDurationEnv(t *testing.T) {
	const key = "TEST_JULIA_PARSE_DURATION"

	tests := []struct {
		value string
		want  time.Duration
	}{
		{"30", 30 * time.Second},
		{"0", 0},
		{"1m30s", 90 * time.Second},
		{"", time.Minute},
		{"soon", time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv(key, tt.value)
			if got := ParseDurationEnv(key, time.Minute); got != tt.want {
				t.Errorf("ParseDurationEnv(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestExitCodeName(t *testing.T) {
	tests := map[int]string{
		ExitCodeSuccess: "success",
		ExitCodeError:   "error",
		ExitCodeInvalid: "invalid parameters",
		ExitCodeSIGINT:  "interrupted (SIGINT)",
		99:              "unknown",
	}
	for code, want := range tests {
		if got := ExitCodeName(code); got != want {
			t.Errorf("ExitCodeName(%d) = %q, want %q", code, got, want)
		}
	}
}
