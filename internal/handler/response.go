package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/orderdesk/internal/engine"
	"github.com/freeeve/orderdesk/internal/selection"
	"github.com/freeeve/orderdesk/internal/service"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Error encoding response")
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decodeJSON reads and decodes JSON from a request body.
func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// statusFor maps a desk action error to an HTTP status. A click on an empty
// region is informational and still succeeds.
func statusFor(err error) int {
	switch {
	case err == nil, errors.Is(err, selection.ErrNoUnitAtRegion):
		return http.StatusOK
	case errors.Is(err, errUnknownAction):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrUnknownParty):
		return http.StatusNotFound
	case selection.IsLocalRejection(err), errors.Is(err, service.ErrUnknownRegion):
		return http.StatusUnprocessableEntity
	case engine.IsRejection(err):
		return http.StatusConflict
	default:
		return http.StatusBadGateway
	}
}
