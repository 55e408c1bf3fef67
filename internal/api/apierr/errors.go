package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mcoot/shadowtag/internal/model"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Common error codes
const (
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeInvalidPhaseAction = "INVALID_PHASE_ACTION"
	CodeUnauthorizedAction = "UNAUTHORIZED_ACTION"
	CodeRoomNotFound       = "ROOM_NOT_FOUND"
	CodeSessionClosed      = "SESSION_CLOSED"
	CodeMissingPlayer      = "MISSING_PLAYER"
	CodeInternalError      = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// Status returns the HTTP status an error maps to
func Status(err error) int {
	return toHTTPError(err).status
}

// toHTTPError converts an error to an httpError. The specific error's
// message is kept so clients can tell rejections apart.
func toHTTPError(err error) *httpError {
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	switch {
	case errors.Is(err, model.ErrRoomNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeRoomNotFound, err.Error()}}
	case errors.Is(err, model.ErrInvalidPhaseAction):
		return &httpError{http.StatusConflict, APIError{CodeInvalidPhaseAction, err.Error()}}
	case errors.Is(err, model.ErrUnauthorizedAction):
		return &httpError{http.StatusForbidden, APIError{CodeUnauthorizedAction, err.Error()}}
	case errors.Is(err, model.ErrInvalidRequest):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, err.Error()}}
	case errors.Is(err, model.ErrSessionClosed):
		return &httpError{http.StatusGone, APIError{CodeSessionClosed, "Room has closed"}}
	default:
		return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, message}}
}

// NewMissingPlayerError is returned when an action has no acting player
func NewMissingPlayerError() error {
	return &httpError{http.StatusUnauthorized, APIError{CodeMissingPlayer, "X-Player-ID header is required"}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}
