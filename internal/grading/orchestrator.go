package grading

import (
	"context"
	"log/slog"
	"time"

	"github.com/mind-path/mindpath-server/internal/quiz"
)

// Orchestrator funnels every grading event — the asynchronous AI pass and
// teacher overrides — through the same regrade operation, so score and
// status stay consistent no matter which path fired.
type Orchestrator struct {
	store  quiz.Store
	grader Grader
	log    *slog.Logger
	now    quiz.Clock
}

func NewOrchestrator(store quiz.Store, grader Grader, log *slog.Logger, now quiz.Clock) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &Orchestrator{store: store, grader: grader, log: log, now: now}
}

// RegradeAttempt recomputes the attempt score from its stored responses and
// marks it graded. Recomputation is deterministic, so concurrent or repeated
// calls converge; last writer wins.
func (o *Orchestrator) RegradeAttempt(ctx context.Context, attemptID string) error {
	a, err := o.store.GetAttempt(ctx, attemptID)
	if err != nil {
		return err
	}
	questions, err := o.store.ListQuizQuestions(ctx, a.QuizID)
	if err != nil {
		return err
	}
	responses, err := o.store.ListAttemptResponses(ctx, a.ID)
	if err != nil {
		return err
	}

	a.Score = quiz.Score(questions, responses)
	a.Status = quiz.AttemptGraded
	a.HasUngradedOpenEnded = quiz.HasUngradedOpenEnded(questions, responses)
	return o.store.PutAttempt(ctx, a)
}

// GradeAttempt is the AI pass fired once per submitted attempt. Responses
// that already carry a grade are skipped, so re-triggering is safe. A grader
// failure is logged and ends the pass without a regrade, leaving the attempt
// observably "needs attention".
func (o *Orchestrator) GradeAttempt(ctx context.Context, attemptID string) {
	openEnded, err := o.store.ListOpenEndedResponses(ctx, attemptID)
	if err != nil {
		o.log.Error("ai pass: load responses", "attempt_id", attemptID, "err", err)
		return
	}
	if len(openEnded) == 0 {
		return
	}

	for _, r := range openEnded {
		if r.Graded() {
			continue
		}
		q, err := o.store.GetQuestion(ctx, r.QuestionID)
		if err != nil {
			o.log.Error("ai pass: load question", "attempt_id", attemptID, "question_id", r.QuestionID, "err", err)
			return
		}
		rubric, ok := q.RubricAnswer()
		if !ok {
			o.log.Error("ai pass: question has no rubric", "question_id", q.ID)
			return
		}

		res, err := o.grader.Grade(ctx, q.Text, rubric.Text, r.TextAnswer)
		if err != nil {
			o.log.Error("ai pass: grade", "attempt_id", attemptID, "question_id", q.ID, "err", err)
			return
		}

		score := res.Score
		r.AIScore = &score
		r.AIFeedback = res.Feedback
		r.IsCorrect = score >= 0.5
		if err := o.store.SaveResponse(ctx, r); err != nil {
			o.log.Error("ai pass: save response", "attempt_id", attemptID, "question_id", q.ID, "err", err)
			return
		}
	}

	if err := o.RegradeAttempt(ctx, attemptID); err != nil {
		o.log.Error("ai pass: regrade", "attempt_id", attemptID, "err", err)
	}
}

// GradeOpenEnded applies a teacher's manual score to one open-ended response
// and regrades the attempt. The teacher score always wins over the AI score
// afterwards; repeating the same score is a no-op on the outcome.
func (o *Orchestrator) GradeOpenEnded(ctx context.Context, attemptID, questionID string, score float64) error {
	if score < 0 || score > 1 {
		return quiz.ErrInvalidScore
	}
	r, err := o.store.GetResponse(ctx, attemptID, questionID)
	if err != nil {
		return err
	}
	r.TeacherScore = &score
	r.IsCorrect = score >= 0.5
	if err := o.store.SaveResponse(ctx, r); err != nil {
		return err
	}
	return o.RegradeAttempt(ctx, attemptID)
}
