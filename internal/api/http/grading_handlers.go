package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mind-path/mindpath-server/internal/grading"
	"github.com/mind-path/mindpath-server/internal/quiz"
)

// GradeOpenEndedHandler records a teacher's grade for one open-ended
// response and rescores the attempt. The teacher grade overrides any AI
// grade.
func GradeOpenEndedHandler(orch *grading.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		attemptID := chi.URLParam(r, "attemptID")
		questionID := chi.URLParam(r, "questionID")
		var req struct {
			Score float64 `json:"score"` // 0..1
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", 400)
			return
		}
		if err := orch.GradeOpenEnded(r.Context(), attemptID, questionID, req.Score); err != nil {
			writeErr(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// RegradeHandler re-queues an attempt for the AI grading pass.
func RegradeHandler(queue quiz.GradeQueue) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		attemptID := chi.URLParam(r, "attemptID")
		if !queue.Enqueue(attemptID) {
			http.Error(w, "grading queue full", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}
}
