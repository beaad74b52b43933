package utils

import (
	"encoding/json"
	"net/http"

	"cropcart/apperr"
)

// Sends a JSON response
func RespondWithJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// RespondWithAppError maps a taxonomy error onto a failure acknowledgment body.
// Every mutating endpoint goes through here on the failure path so nothing
// fails silently.
func RespondWithAppError(w http.ResponseWriter, err error) {
	RespondWithJSON(w, apperr.Status(err), M{"success": false, "message": err.Error()})
}

type M map[string]interface{}
