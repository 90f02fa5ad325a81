package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mind-path/mindpath-server/internal/auth"
	"github.com/mind-path/mindpath-server/internal/quiz"
)

// StartAttemptHandler starts an attempt, or resumes the caller's attempt
// that is still in progress on the same quiz.
func StartAttemptHandler(svc *quiz.AttemptService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			QuizID     string `json:"quiz_id"`
			AccessCode string `json:"access_code"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", 400)
			return
		}
		if req.QuizID == "" {
			http.Error(w, "quiz_id required", 400)
			return
		}
		userID := auth.SubjectFromContext(r.Context())
		a, err := svc.StartAttempt(r.Context(), userID, req.QuizID, req.AccessCode)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, a)
	}
}

// SubmitAnswerHandler records the caller's answer to one question,
// replacing any earlier answer to it.
func SubmitAnswerHandler(svc *quiz.AttemptService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "attemptID")
		var req quiz.SubmitAnswerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", 400)
			return
		}
		userID := auth.SubjectFromContext(r.Context())
		correct, err := svc.SubmitAnswer(r.Context(), id, userID, req)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"is_correct": correct})
	}
}

// SubmitAttemptHandler finalizes the attempt and scores it.
func SubmitAttemptHandler(svc *quiz.AttemptService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "attemptID")
		var req struct {
			TotalTime int `json:"total_time"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", 400)
			return
		}
		userID := auth.SubjectFromContext(r.Context())
		a, err := svc.SubmitAttempt(r.Context(), id, userID, req.TotalTime)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

// SaveProgressHandler is the heartbeat that keeps an attempt from being
// swept as abandoned.
func SaveProgressHandler(svc *quiz.AttemptService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "attemptID")
		userID := auth.SubjectFromContext(r.Context())
		if err := svc.SaveProgress(r.Context(), id, userID); err != nil {
			writeErr(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func GetAttemptHandler(svc *quiz.AttemptService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "attemptID")
		userID := auth.SubjectFromContext(r.Context())
		a, err := svc.GetAttempt(r.Context(), id, userID)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

// AttemptResultsHandler returns the per-question breakdown once the attempt
// is submitted or graded.
func AttemptResultsHandler(svc *quiz.AttemptService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "attemptID")
		res, err := svc.GetAttemptResults(r.Context(), id)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func ListInProgressHandler(svc *quiz.AttemptService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := auth.SubjectFromContext(r.Context())
		out, err := svc.ListInProgress(r.Context(), userID)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func ListCompletedHandler(svc *quiz.AttemptService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := auth.SubjectFromContext(r.Context())
		out, err := svc.ListCompleted(r.Context(), userID)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}
