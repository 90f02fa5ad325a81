package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mind-path/mindpath-server/internal/auth"
	"github.com/mind-path/mindpath-server/internal/quiz"
	"github.com/mind-path/mindpath-server/internal/rbac"
)

type answerIn struct {
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct"`
}

type questionIn struct {
	Text       string     `json:"text"`
	Type       string     `json:"type"`
	Difficulty string     `json:"difficulty"`
	Answers    []answerIn `json:"answers"`
}

// CreateQuizHandler creates a quiz together with its questions and answers.
// Open-ended questions carry their rubric as a single answer row marked
// correct.
func CreateQuizHandler(store quiz.Store, now quiz.Clock) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Title     string       `json:"title"`
			Status    string       `json:"status"`
			Questions []questionIn `json:"questions"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", 400)
			return
		}
		if strings.TrimSpace(req.Title) == "" {
			http.Error(w, "title required", 400)
			return
		}
		status := quiz.QuizDraft
		if req.Status == string(quiz.QuizActive) {
			status = quiz.QuizActive
		}
		q := quiz.Quiz{
			ID:        uuid.NewString(),
			Title:     req.Title,
			CreatedBy: auth.SubjectFromContext(r.Context()),
			Status:    status,
			CreatedAt: now(),
		}
		if err := store.PutQuiz(r.Context(), q); err != nil {
			writeErr(w, err)
			return
		}
		for _, in := range req.Questions {
			qq := quiz.Question{
				ID:         uuid.NewString(),
				QuizID:     q.ID,
				Text:       in.Text,
				Type:       quiz.QuestionType(in.Type),
				Difficulty: quiz.Difficulty(in.Difficulty),
				CreatedAt:  now(),
			}
			if qq.Type == "" {
				qq.Type = quiz.SingleChoice
			}
			if qq.Difficulty == "" {
				qq.Difficulty = quiz.Medium
			}
			for _, a := range in.Answers {
				qq.Answers = append(qq.Answers, quiz.Answer{
					ID:         uuid.NewString(),
					QuestionID: qq.ID,
					Text:       a.Text,
					IsCorrect:  a.IsCorrect,
				})
			}
			if err := store.PutQuestion(r.Context(), qq); err != nil {
				writeErr(w, err)
				return
			}
		}
		writeJSON(w, http.StatusCreated, q)
	}
}

// GetQuizHandler returns a quiz with its questions. Students get a sanitized
// view: correctness flags are stripped and open-ended rubrics are withheld.
func GetQuizHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "quizID")
		q, err := store.GetQuiz(r.Context(), id)
		if err != nil {
			writeErr(w, err)
			return
		}
		questions, err := store.ListQuizQuestions(r.Context(), id)
		if err != nil {
			writeErr(w, err)
			return
		}
		if !rbac.Has(rbac.RoleFromContext(r.Context()), "quiz:manage") {
			questions = sanitizeQuestions(questions)
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"quiz":      q,
			"questions": questions,
		})
	}
}

func sanitizeQuestions(in []quiz.Question) []quiz.Question {
	out := make([]quiz.Question, len(in))
	for i, q := range in {
		if q.Type == quiz.OpenEnded {
			q.Answers = nil
		} else {
			answers := make([]quiz.Answer, len(q.Answers))
			for j, a := range q.Answers {
				a.IsCorrect = false
				answers[j] = a
			}
			q.Answers = answers
		}
		out[i] = q
	}
	return out
}

// UpdateQuizStatusHandler moves a quiz between draft, active and archived.
// Only the owner may change it.
func UpdateQuizStatusHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "quizID")
		var req struct {
			Status string `json:"status"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", 400)
			return
		}
		status := quiz.QuizStatus(req.Status)
		switch status {
		case quiz.QuizDraft, quiz.QuizActive, quiz.QuizArchived:
		default:
			http.Error(w, "bad status", 400)
			return
		}
		q, err := store.GetQuiz(r.Context(), id)
		if err != nil {
			writeErr(w, err)
			return
		}
		if q.CreatedBy != auth.SubjectFromContext(r.Context()) {
			writeErr(w, quiz.ErrNotQuizOwner)
			return
		}
		q.Status = status
		if err := store.PutQuiz(r.Context(), q); err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, q)
	}
}
