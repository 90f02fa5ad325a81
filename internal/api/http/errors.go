package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mind-path/mindpath-server/internal/grading"
	"github.com/mind-path/mindpath-server/internal/quiz"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeErr maps domain errors onto HTTP statuses: unknown resources are 404,
// state conflicts are 409, rejected input is 400 and upstream grading
// failures are 502. Anything else is a 500.
func writeErr(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case quiz.IsNotFound(err):
		status = http.StatusNotFound
	case quiz.IsInvalidState(err):
		status = http.StatusConflict
	case quiz.IsValidation(err):
		status = http.StatusBadRequest
	case errors.Is(err, grading.ErrAIGradingFailed):
		status = http.StatusBadGateway
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
