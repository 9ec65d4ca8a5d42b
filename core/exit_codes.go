package core

// Process exit codes.
const (
	// ExitCodeSuccess is a clean run.
	ExitCodeSuccess = 0

	// ExitCodeError covers configuration, logging and transport failures.
	ExitCodeError = 1

	// ExitCodeInvalid means the form parameters did not validate, so no image
	// was requested.
	ExitCodeInvalid = 2

	// ExitCodeSIGINT is 128 + SIGINT.
	ExitCodeSIGINT = 130
)

// ExitCodeName returns a human-readable name for an exit code.
func ExitCodeName(code int) string {
	switch code {
	case ExitCodeSuccess:
		return "success"
	case ExitCodeError:
		return "error"
	case ExitCodeInvalid:
		return "invalid parameters"
	case ExitCodeSIGINT:
		return "interrupted (SIGINT)"
	default:
		return "unknown"
	}
}
