package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/amaumene/aacfetch/internal/models"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// extractionStatus maps a metadata lookup failure to an HTTP status
func extractionStatus(err error) int {
	var extractErr *models.ExtractionError
	if errors.As(err, &extractErr) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusBadGateway
}
