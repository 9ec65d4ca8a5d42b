package core

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// GetEnvOrDefault returns the trimmed value of key, or defaultValue when the
// variable is unset or blank.
func GetEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

// ParseIntEnv parses key as an integer, falling back to defaultValue when unset
// or unparsable.
func ParseIntEnv(key string, defaultValue int) int {
	value := GetEnvOrDefault(key, "")
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

// ParseBoolEnv accepts true/1/yes/on and false/0/no/off, case-insensitively.
// Anything else yields defaultValue.
func ParseBoolEnv(key string, defaultValue bool) bool {
	switch strings.ToLower(GetEnvOrDefault(key, "")) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	}
	return defaultValue
}

// ParseDurationEnv reads key as a whole number of seconds. A Go duration
// string such as "1m30s" is accepted as well.
func ParseDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := GetEnvOrDefault(key, "")
	if value == "" {
		return defaultValue
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	return defaultValue
}
