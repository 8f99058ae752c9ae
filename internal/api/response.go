package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
)

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("encoding response", "error", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}

// writeError maps domain errors to their status code. Anything else, and
// storage failures, are logged and reported as a bare 500.
func writeError(w http.ResponseWriter, logger *slog.Logger, msg string, err error) {
	var coded interface{ StatusCode() int }
	if errors.As(err, &coded) && coded.StatusCode() < http.StatusInternalServerError {
		jsonError(w, coded.StatusCode(), err.Error())
		return
	}
	logger.Error(msg, "error", err)
	jsonError(w, http.StatusInternalServerError, msg)
}
