package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"competitoriq-engine/internal/backend"
)

type APIError struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"request_id,omitempty"`
	} `json:"error"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	var e APIError
	e.Error.Code = code
	e.Error.Message = message
	e.Error.RequestID = RequestIDFrom(r.Context())
	WriteJSON(w, status, e)
}

// writeFlowError maps the tracking-service error taxonomy onto the local
// API: validation stays a 400, a duplicate competitor a 409, everything
// else surfaces as a bad gateway since the fault is upstream.
func writeFlowError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case backend.IsValidation(err):
		WriteError(w, r, http.StatusBadRequest, "validation", err.Error())
	case backend.IsConflict(err):
		WriteError(w, r, http.StatusConflict, "conflict", err.Error())
	default:
		var re *backend.RemoteError
		if errors.As(err, &re) && re.Status == http.StatusNotFound {
			WriteError(w, r, http.StatusNotFound, "not_found", err.Error())
			return
		}
		WriteError(w, r, http.StatusBadGateway, "remote_error", err.Error())
	}
}
