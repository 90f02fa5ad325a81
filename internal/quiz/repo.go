package quiz

import (
	"context"
	"time"
)

// TypedResponse is a response joined with its question's type, used by
// scoring-adjacent reads that must not load the whole question graph.
type TypedResponse struct {
	Response
	QuestionType QuestionType
}

// Store is the durable-storage capability the services run against. Both the
// SQL store and the in-memory store satisfy it.
type Store interface {
	PutQuiz(ctx context.Context, q Quiz) error
	GetQuiz(ctx context.Context, id string) (Quiz, error)

	// PutQuestion persists the question together with its answers.
	PutQuestion(ctx context.Context, q Question) error
	GetQuestion(ctx context.Context, id string) (Question, error)
	ListQuizQuestions(ctx context.Context, quizID string) ([]Question, error)

	PutSession(ctx context.Context, s Session) error
	GetSession(ctx context.Context, id string) (Session, error)
	GetSessionByCode(ctx context.Context, code string) (Session, error)
	GetActiveSessionForQuiz(ctx context.Context, quizID string) (Session, error)
	ListSessionsByStatus(ctx context.Context, st SessionStatus) ([]Session, error)

	PutAttempt(ctx context.Context, a Attempt) error
	GetAttempt(ctx context.Context, id string) (Attempt, error)
	GetAttemptForUser(ctx context.Context, attemptID, userID string) (Attempt, error)
	ListAttempts(ctx context.Context, userID, quizID string) ([]Attempt, error)
	ListAttemptsByUser(ctx context.Context, userID string, st AttemptStatus) ([]Attempt, error)
	ListAttemptsByStatus(ctx context.Context, st AttemptStatus) ([]Attempt, error)

	// ReplaceResponses atomically deletes any prior responses for
	// (attempt, question) and inserts the given rows. Answer replacement is
	// always destructive, never a merge.
	ReplaceResponses(ctx context.Context, attemptID, questionID string, rs []Response) error
	SaveResponse(ctx context.Context, r Response) error
	GetResponse(ctx context.Context, attemptID, questionID string) (Response, error)
	ListAttemptResponses(ctx context.Context, attemptID string) ([]Response, error)
	ListOpenEndedResponses(ctx context.Context, attemptID string) ([]Response, error)

	// ListResponsesForUser returns typed responses belonging to the user's
	// attempts completed in [from, to).
	ListResponsesForUser(ctx context.Context, userID string, from, to time.Time) ([]TypedResponse, error)
}

// EventSink receives domain events. Implemented by the event log; a nil sink
// is allowed and drops events.
type EventSink interface {
	Append(ctx context.Context, typ, key, dataJSON string) error
}

// GradeQueue schedules the asynchronous AI grading pass for an attempt.
// Enqueue must not block; it reports whether the job was accepted.
type GradeQueue interface {
	Enqueue(attemptID string) bool
}
