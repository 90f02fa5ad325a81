package http

import (
	"encoding/json"
	"net/http"

	"github.com/mind-path/mindpath-server/internal/auth"
	"github.com/mind-path/mindpath-server/internal/quiz"
)

// CreateSessionHandler opens a timed access window for a quiz and returns
// the access code students join with.
func CreateSessionHandler(sessions *quiz.SessionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			QuizID          string `json:"quiz_id"`
			DurationMinutes int    `json:"duration_minutes"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", 400)
			return
		}
		if req.QuizID == "" {
			http.Error(w, "quiz_id required", 400)
			return
		}
		teacherID := auth.SubjectFromContext(r.Context())
		sess, err := sessions.CreateSession(r.Context(), teacherID, req.QuizID, req.DurationMinutes)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, sess)
	}
}
