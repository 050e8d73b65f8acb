package utils

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"ecodrop-backend/internal/apperr"
)

// RespondJSON sends a JSON response
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// RespondSuccess wraps data in the {success, message, data} envelope
func RespondSuccess(w http.ResponseWriter, status int, message string, data interface{}) {
	body := map[string]interface{}{
		"success": true,
		"data":    data,
	}
	if message != "" {
		body["message"] = message
	}
	RespondJSON(w, status, body)
}

// RespondError sends an error response
func RespondError(w http.ResponseWriter, status int, message string) {
	RespondJSON(w, status, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}

// RespondAppError translates a classified error into the error envelope.
// Unclassified errors are logged and answered with a generic message.
func RespondAppError(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	message := "Internal server error"

	var e *apperr.Error
	if errors.As(err, &e) && e.Message != "" {
		message = e.Message
	}
	if kind == apperr.Unexpected {
		log.Printf("❌ Unexpected error: %v", err)
	}

	RespondJSON(w, apperr.HTTPStatus(kind), map[string]interface{}{
		"success": false,
		"error":   string(kind),
		"message": message,
	})
}
