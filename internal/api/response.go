package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

var fallbackErrorResponse = []byte(`{"error":"internal server error"}`)

// writeJSON marshals before writing headers so an encoding failure still
// produces a well-formed 500.
func writeJSON(w http.ResponseWriter, statusCode int, response any) {
	data, err := json.Marshal(response)
	if err != nil {
		slog.Error("failed to marshal JSON response", "error", err)
		data = fallbackErrorResponse
		statusCode = http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if _, err := w.Write(data); err != nil {
		slog.Error("failed to write JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, statusCode int, msg string) {
	writeJSON(w, statusCode, map[string]string{"error": msg})
}
