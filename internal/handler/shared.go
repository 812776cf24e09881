package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// Dependencies holds the services required by the handlers.
type Dependencies struct {
	Database DatabaseClient
	Blob     BlobClient
	Queue    QueueClient
	Email    EmailClient // Optional

	// UserEmail receives processing and digest notifications; empty disables them.
	UserEmail string

	Now func() time.Time
}

func (d *Dependencies) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func (d *Dependencies) notificationsEnabled() bool {
	return d.Email != nil && d.UserEmail != ""
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", "error", err)
		}
	}
}

// WriteError writes an error response.
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]string{"error": message})
}
