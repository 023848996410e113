package httpapi

import (
	"encoding/json"
	"net/http"
)

// respondJSON writes payload with the given status; encoding failures fall
// back to http.Error.
func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, "failed to encode json", http.StatusInternalServerError)
	}
}

// respondError writes a standardized JSON error payload.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
