package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/talgya/hexrealm/internal/persistence"
	"github.com/talgya/hexrealm/internal/world"
)

type errorBody struct {
	Code    world.Code `json:"code"`
	Field   string     `json:"field,omitempty"`
	Message string     `json:"message"`
}

// statusFor maps a failure to its HTTP status.
func statusFor(err error) int {
	if errors.Is(err, persistence.ErrNotFound) {
		return http.StatusNotFound
	}
	var werr *world.Error
	if !errors.As(err, &werr) {
		return http.StatusInternalServerError
	}
	switch werr.Code {
	case world.CodeHexNotFound, world.CodeMythNotFound:
		return http.StatusNotFound
	case world.CodeMythExists, world.CodeMythOccupied, world.CodeNoHolding, world.CodeSeatOfPowerCleared:
		return http.StatusConflict
	case world.CodeMalformedImport:
		return http.StatusUnprocessableEntity
	case world.CodeInvariant:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// writeError sends err as a JSON body with its mapped status.
func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	body := errorBody{Message: err.Error()}
	var werr *world.Error
	if errors.As(err, &werr) {
		body.Code, body.Field = werr.Code, werr.Field
	}
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
		if body.Code == "" {
			body.Message = "internal error"
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
