package server

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"

	"keystone-mrm/arbiter/pkg/telemetry/logging"
)

// Error codes returned in ErrorResponse.Code.
const (
	CodeInvalidRequest   = "invalid_request"
	CodeInvalidRecord    = "invalid_record"
	CodeInvalidQuery     = "invalid_query"
	CodeNoRuleset        = "no_ruleset"
	CodeReloadFailed     = "reload_failed"
	CodeNotFound         = "not_found"
	CodeMethodNotAllowed = "method_not_allowed"
	CodeStorageDisabled  = "storage_disabled"
	CodeStorageFailed    = "storage_failed"
	CodeBodyTooLarge     = "body_too_large"
	CodeInternal         = "internal_error"
)

var (
	errRouteNotFound    = errors.New("route not found")
	errMethodNotAllowed = errors.New("method not allowed")
	errStorageDisabled  = errors.New("decision storage is disabled")
)

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"requestId,omitempty"`
}

func (s *Server) respondError(w http.ResponseWriter, r *http.Request, status int, code string, err error) {
	if status >= 500 {
		logging.FromContext(r.Context()).Error("request failed", "code", code, "error", err)
	}
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{
		Error:     err.Error(),
		Code:      code,
		RequestID: logging.GetRequestID(r.Context()),
	})
}

// decodeError maps a body decoding failure onto a status and code.
func decodeError(err error) (int, string) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge, CodeBodyTooLarge
	}
	return http.StatusBadRequest, CodeInvalidRequest
}
