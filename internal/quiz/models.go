package quiz

import "time"

type QuizStatus string

const (
	QuizDraft    QuizStatus = "draft"
	QuizActive   QuizStatus = "active"
	QuizArchived QuizStatus = "archived"
)

type QuestionType string

const (
	SingleChoice   QuestionType = "single_choice"
	MultipleChoice QuestionType = "multiple_choice"
	OpenEnded      QuestionType = "open_ended"
)

type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

type SessionStatus string

const (
	SessionActive  SessionStatus = "active"
	SessionExpired SessionStatus = "expired"
)

type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptSubmitted  AttemptStatus = "submitted"
	AttemptGraded     AttemptStatus = "graded"
	AttemptAbandoned  AttemptStatus = "abandoned"
)

// Clock is injected wherever the current time is compared, so tests can
// control expiry.
type Clock func() time.Time

type Quiz struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	CreatedBy string     `json:"created_by"`
	Status    QuizStatus `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
}

type Question struct {
	ID         string       `json:"id"`
	QuizID     string       `json:"quiz_id"`
	Text       string       `json:"text"`
	Type       QuestionType `json:"type"`
	Difficulty Difficulty   `json:"difficulty"`
	CreatedAt  time.Time    `json:"created_at"`
	Answers    []Answer     `json:"answers,omitempty"`
}

// For open_ended questions the single answer row marked correct carries the
// grading rubric text; it is never a selectable option.
type Answer struct {
	ID         string `json:"id"`
	QuestionID string `json:"question_id"`
	Text       string `json:"text"`
	IsCorrect  bool   `json:"is_correct"`
}

// RubricAnswer returns the rubric carrier of an open-ended question.
func (q Question) RubricAnswer() (Answer, bool) {
	for _, a := range q.Answers {
		if a.IsCorrect {
			return a, true
		}
	}
	return Answer{}, false
}

type Session struct {
	ID         string        `json:"id"`
	QuizID     string        `json:"quiz_id"`
	CreatedBy  string        `json:"created_by"`
	AccessCode string        `json:"access_code"`
	StartTime  time.Time     `json:"start_time"`
	EndTime    time.Time     `json:"end_time"`
	Status     SessionStatus `json:"status"`
}

type Attempt struct {
	ID                   string        `json:"id"`
	UserID               string        `json:"user_id"`
	QuizID               string        `json:"quiz_id"`
	SessionID            string        `json:"session_id,omitempty"` // "" = no session gate
	Status               AttemptStatus `json:"status"`
	Score                float64       `json:"score"` // 0..100
	StartedAt            time.Time     `json:"started_at"`
	LastAccessedAt       *time.Time    `json:"last_accessed_at,omitempty"`
	CompletedAt          *time.Time    `json:"completed_at,omitempty"`
	AttemptTime          int           `json:"attempt_time"` // client-reported seconds
	HasUngradedOpenEnded bool          `json:"has_ungraded_open_ended"`
}

type Response struct {
	ID           string   `json:"id"`
	AttemptID    string   `json:"attempt_id"`
	QuestionID   string   `json:"question_id"`
	AnswerID     string   `json:"answer_id"` // rubric answer for open_ended
	TextAnswer   string   `json:"text_answer,omitempty"`
	IsCorrect    bool     `json:"is_correct"`
	ResponseTime int      `json:"response_time"` // seconds
	TeacherScore *float64 `json:"teacher_score,omitempty"`
	AIScore      *float64 `json:"ai_score,omitempty"`
	AIFeedback   string   `json:"ai_feedback,omitempty"`
}

// FinalScore is the effective open-ended score: a teacher grade always wins
// over the AI grade. Nil means ungraded.
func (r Response) FinalScore() *float64 {
	if r.TeacherScore != nil {
		return r.TeacherScore
	}
	return r.AIScore
}

// Graded reports whether the response carries any grade at all.
func (r Response) Graded() bool {
	return r.TeacherScore != nil || r.AIScore != nil
}
