package constants

// Error codes used in API responses.
// These are the machine-readable codes returned in the "error" field.
const (
	// Common error codes
	CodeInvalidRequest = "invalid-request"
	CodeInternalError  = "server-error"
	CodeNotFound       = "not-found"

	// Shortener-specific codes
	CodeInvalidTarget   = "invalid-target"
	CodeInvalidCode     = "invalid-code"
	CodeCodeExists      = "code-exists"
	CodeCodeUnavailable = "code-unavailable"
)
