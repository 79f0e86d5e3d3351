package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/erazemk/galerija/internal/transfer"
)

// jsonResponse writes data as JSON with the given status code. A nil data
// writes the status only.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("encoding response", "status", status, "error", err)
	}
}

// jsonError writes {"error": message}, the body every client parses on a
// non-200 answer.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// decodeJSON reads a body of at most limit bytes into target. On failure it
// also returns the status to answer with.
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, target any) (int, error) {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return http.StatusRequestEntityTooLarge, fmt.Errorf("request body exceeds %d bytes", tooLarge.Limit)
		}
		return http.StatusBadRequest, fmt.Errorf("%w: invalid JSON body", transfer.ErrMalformedPayload)
	}
	return http.StatusOK, nil
}

// submitStatus maps a submit error to its status. Rejected requests are 400
// and carry the error text; anything else is a storage fault.
func submitStatus(err error) int {
	for _, kind := range transfer.Kinds {
		if errors.Is(err, kind) {
			return http.StatusBadRequest
		}
	}
	return http.StatusInternalServerError
}
