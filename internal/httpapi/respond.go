package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/foxseedlab/mensetsu/internal/session"
)

const maxRequestBodyBytes = 1 << 20

var (
	errMalformedBody = errors.New("request body must be a JSON object")
	errMissingField  = errors.New("required field is missing")
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Warn("failed to write response body", "error", err)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return errMalformedBody
	}
	return nil
}

type errorMapping struct {
	target error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{errMalformedBody, http.StatusBadRequest, "malformed_body"},
	{errMissingField, http.StatusBadRequest, "missing_field"},
	{session.ErrInvalidSchedule, http.StatusBadRequest, "invalid_schedule"},
	{session.ErrNotFound, http.StatusNotFound, "not_found"},
	{session.ErrSessionNotFound, http.StatusNotFound, "session_not_found"},
	{session.ErrInvalidLink, http.StatusForbidden, "invalid_link"},
	{session.ErrNotYetStarted, http.StatusForbidden, "not_yet_started"},
	{session.ErrLinkExpired, http.StatusForbidden, "link_expired"},
	{session.ErrSessionInactive, http.StatusConflict, "session_inactive"},
	{session.ErrSessionNotStarted, http.StatusConflict, "session_not_started"},
	{session.ErrConcurrentUpdate, http.StatusConflict, "concurrent_update"},
	{session.ErrGenerationFailed, http.StatusBadGateway, "generation_failed"},
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := http.StatusInternalServerError, "internal_error"
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			status, code = m.status, m.code
			break
		}
	}

	detail := session.Reason(err)
	switch code {
	case "malformed_body", "missing_field":
		detail = err.Error()
	}

	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "code", code, "error", err)
	} else {
		slog.Info("request rejected", "method", r.Method, "path", r.URL.Path, "code", code, "error", err)
	}
	writeJSON(w, status, errorResponse{Success: false, Code: code, Detail: detail})
}
