package constants

// Error messages used in API responses.
// These are the human-readable messages returned in the "message" field.
const (
	// Common messages
	MsgInvalidRequestBody = "Invalid request body"
	MsgInternalError      = "An internal error occurred"
	MsgNotFound           = "Not found"

	// Shortener-specific messages
	MsgInvalidTarget   = "Target must be an absolute http or https URL"
	MsgTargetRequired  = "Target is required"
	MsgTargetNotString = "Target must be a string"
	MsgInvalidCode     = "Code must be 6 to 8 letters or digits"
	MsgCodeNotString   = "Code must be a string"
	MsgCodeExists      = "Code is already taken"
	MsgCodeUnavailable = "Could not allocate a unique code, try again"
)
