package core

import (
	"errors"
	"fmt"
)

// ConfigError is a configuration problem together with what to do about it.
type ConfigError struct {
	Code    string // stable identifier for programmatic handling
	Message string
	Action  string // how to fix it, may be empty
}

func (e *ConfigError) Error() string {
	if e.Action != "" {
		return fmt.Sprintf("%s. %s", e.Message, e.Action)
	}
	return e.Message
}

// Error codes for configuration errors.
const (
	ErrCodeMissingConfig  = "MISSING_CONFIG"
	ErrCodeInvalidBaseURL = "INVALID_BASE_URL"
	ErrCodeInvalidValue   = "INVALID_VALUE"
)

// ErrMissingConfig reports a required variable that is not set.
func ErrMissingConfig(varName string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeMissingConfig,
		Message: fmt.Sprintf("Missing required configuration: %s", varName),
		Action:  fmt.Sprintf("Set %s in the environment or in .env", varName),
	}
}

// ErrInvalidBaseURL reports a JULIA_BASE_URL that cannot address the image service.
func ErrInvalidBaseURL(url, reason string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeInvalidBaseURL,
		Message: fmt.Sprintf("Invalid JULIA_BASE_URL '%s': %s", url, reason),
		Action:  "Set JULIA_BASE_URL to the application root, e.g. http://localhost:8080/juliasets",
	}
}

// ErrInvalidValue reports a variable whose value is out of range.
func ErrInvalidValue(varName, value, reason string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeInvalidValue,
		Message: fmt.Sprintf("Invalid %s '%s': %s", varName, value, reason),
	}
}

// GetErrorCode returns the code of a wrapped ConfigError, or "".
func GetErrorCode(err error) string {
	var ce *ConfigError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}
