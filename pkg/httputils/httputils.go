package httputils

import (
	"encoding/json"
	"net/http"

	"github.com/IgorGrieder/shorty/internal/constants"
	"github.com/IgorGrieder/shorty/internal/infrastructure/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const CorrelationIDHeader = "X-Correlation-Id"

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	Error   string `json:"error" example:"code-exists"`
	Message string `json:"message,omitempty" example:"Code is already taken"`
}

// GetCorrelationID extracts the correlation ID from the request header
// If not present, generates a new UUID v4
func GetCorrelationID(r *http.Request) string {
	correlationID := r.Header.Get(CorrelationIDHeader)
	if correlationID == "" {
		correlationID = uuid.New().String()
	}
	return correlationID
}

// WriteAPIError writes an error response using a predefined APIError
func WriteAPIError(w http.ResponseWriter, r *http.Request, apiErr constants.APIError) {
	WriteJSON(w, r, apiErr.Status, ErrorResponse{
		Error:   apiErr.Code,
		Message: apiErr.Message,
	})
}

// WriteJSON writes data as the JSON response body and echoes the correlation ID.
func WriteJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	w.Header().Set(CorrelationIDHeader, GetCorrelationID(r))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode json response", zap.Error(err))
	}
}
