package quiz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// SubmitAnswerRequest carries one answer submission. Choice questions use
// SelectedAnswerIDs; open-ended questions use TextResponse.
type SubmitAnswerRequest struct {
	QuestionID        string   `json:"question_id"`
	SelectedAnswerIDs []string `json:"selected_answer_ids,omitempty"`
	TextResponse      string   `json:"text_response,omitempty"`
	ResponseTime      int      `json:"response_time"`
}

// AttemptResult is the full per-question breakdown returned once an attempt
// has been submitted.
type AttemptResult struct {
	AttemptID      string           `json:"attempt_id"`
	QuizID         string           `json:"quiz_id"`
	QuizTitle      string           `json:"quiz_title"`
	Status         AttemptStatus    `json:"status"`
	Score          float64          `json:"score"`
	AttemptTime    int              `json:"attempt_time"`
	StartedAt      time.Time        `json:"started_at"`
	CompletedAt    *time.Time       `json:"completed_at,omitempty"`
	TotalQuestions int              `json:"total_questions"`
	CorrectAnswers int              `json:"correct_answers"`
	Questions      []QuestionResult `json:"questions"`
}

// AttemptService owns the attempt state machine:
// in_progress -> submitted -> graded, and in_progress -> abandoned.
type AttemptService struct {
	store    Store
	sessions *SessionService
	queue    GradeQueue
	events   EventSink
	log      *slog.Logger
	now      Clock
}

func NewAttemptService(store Store, sessions *SessionService, queue GradeQueue, events EventSink, log *slog.Logger, now Clock) *AttemptService {
	if log == nil {
		log = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &AttemptService{store: store, sessions: sessions, queue: queue, events: events, log: log, now: now}
}

// StartAttempt begins (or resumes) an attempt. An in-progress attempt whose
// session is still valid is returned unchanged; one whose session lapsed is
// abandoned and a fresh attempt is created.
func (s *AttemptService) StartAttempt(ctx context.Context, userID, quizID, accessCode string) (Attempt, error) {
	q, err := s.store.GetQuiz(ctx, quizID)
	if err != nil {
		return Attempt{}, err
	}
	if q.Status != QuizActive {
		return Attempt{}, ErrQuizNotActive
	}

	var sess Session
	if accessCode != "" {
		sess, err = s.sessions.ValidateAccessCode(ctx, accessCode, quizID)
		if err != nil {
			return Attempt{}, err
		}
	}

	attempts, err := s.store.ListAttempts(ctx, userID, quizID)
	if err != nil {
		return Attempt{}, err
	}
	for _, a := range attempts {
		if a.Status != AttemptInProgress {
			continue
		}
		ok, err := s.checkAndUpdateStatus(ctx, &a)
		if err != nil {
			return Attempt{}, err
		}
		if ok {
			return a, nil // idempotent resume
		}
	}

	now := s.now()
	attempt := Attempt{
		ID:        newID(),
		UserID:    userID,
		QuizID:    quizID,
		SessionID: sess.ID,
		Status:    AttemptInProgress,
		Score:     0,
		StartedAt: now,
	}
	if err := s.store.PutAttempt(ctx, attempt); err != nil {
		return Attempt{}, err
	}
	s.emit(ctx, "AttemptStarted", attempt.ID, attempt)
	return attempt, nil
}

// checkAndUpdateStatus is the single gate in front of every operation on an
// in-progress attempt. It abandons an attempt whose session has silently
// expired and reports whether the attempt is still usable.
func (s *AttemptService) checkAndUpdateStatus(ctx context.Context, a *Attempt) (bool, error) {
	if a.Status != AttemptInProgress {
		return false, nil
	}
	if a.SessionID == "" {
		return true, nil
	}

	sess, err := s.store.GetSession(ctx, a.SessionID)
	if err != nil && !errors.Is(err, ErrSessionNotFound) {
		return false, err
	}
	if errors.Is(err, ErrSessionNotFound) ||
		sess.Status != SessionActive || sess.EndTime.Before(s.now()) {
		if err := s.abandon(ctx, a); err != nil {
			return false, err
		}
		return false, nil
	}
	return true, nil
}

func (s *AttemptService) abandon(ctx context.Context, a *Attempt) error {
	a.Status = AttemptAbandoned
	if err := s.store.PutAttempt(ctx, *a); err != nil {
		return err
	}
	s.emit(ctx, "AttemptAbandoned", a.ID, a)
	return nil
}

// SubmitAnswer records the student's answer to one question, replacing any
// previous answer for it. The returned flag tells the client whether the
// selection exactly matched the correct set (always false for open-ended).
func (s *AttemptService) SubmitAnswer(ctx context.Context, attemptID, userID string, req SubmitAnswerRequest) (bool, error) {
	a, err := s.gated(ctx, attemptID, userID)
	if err != nil {
		return false, err
	}

	q, err := s.store.GetQuestion(ctx, req.QuestionID)
	if err != nil {
		return false, err
	}
	if q.QuizID != a.QuizID {
		return false, ErrQuestionMismatch
	}

	if q.Type == OpenEnded {
		if strings.TrimSpace(req.TextResponse) == "" {
			return false, ErrMissingTextResponse
		}
		rubric, ok := q.RubricAnswer()
		if !ok {
			return false, ErrMissingRubric
		}
		r := Response{
			ID:           newID(),
			AttemptID:    a.ID,
			QuestionID:   q.ID,
			AnswerID:     rubric.ID,
			TextAnswer:   req.TextResponse,
			ResponseTime: req.ResponseTime,
			IsCorrect:    false, // pending AI or teacher grading
		}
		return false, s.store.ReplaceResponses(ctx, a.ID, q.ID, []Response{r})
	}

	if len(req.SelectedAnswerIDs) == 0 {
		return false, ErrNoAnswerSelected
	}
	if q.Type != MultipleChoice && len(req.SelectedAnswerIDs) > 1 {
		return false, ErrTooManySelections
	}

	byID := make(map[string]Answer, len(q.Answers))
	correct := map[string]bool{}
	for _, ans := range q.Answers {
		byID[ans.ID] = ans
		if ans.IsCorrect {
			correct[ans.ID] = true
		}
	}

	selected := map[string]bool{}
	rows := make([]Response, 0, len(req.SelectedAnswerIDs))
	for _, id := range req.SelectedAnswerIDs {
		ans, ok := byID[id]
		if !ok {
			return false, ErrAnswerMismatch
		}
		selected[id] = true
		rows = append(rows, Response{
			ID:           newID(),
			AttemptID:    a.ID,
			QuestionID:   q.ID,
			AnswerID:     ans.ID,
			ResponseTime: req.ResponseTime,
			IsCorrect:    ans.IsCorrect,
		})
	}
	if err := s.store.ReplaceResponses(ctx, a.ID, q.ID, rows); err != nil {
		return false, err
	}
	return setsEqual(selected, correct), nil
}

// SubmitAttempt closes the attempt: scores it, stamps completion, and
// schedules the asynchronous AI grading pass. A full grade queue is logged
// and ignored; it never fails the submission.
func (s *AttemptService) SubmitAttempt(ctx context.Context, attemptID, userID string, totalTime int) (Attempt, error) {
	a, err := s.gated(ctx, attemptID, userID)
	if err != nil {
		return Attempt{}, err
	}

	questions, err := s.store.ListQuizQuestions(ctx, a.QuizID)
	if err != nil {
		return Attempt{}, err
	}
	if len(questions) == 0 {
		return Attempt{}, fmt.Errorf("quiz %s has no questions", a.QuizID)
	}
	responses, err := s.store.ListAttemptResponses(ctx, a.ID)
	if err != nil {
		return Attempt{}, err
	}

	now := s.now()
	a.Score = Score(questions, responses)
	a.Status = AttemptSubmitted
	a.CompletedAt = &now
	a.AttemptTime = totalTime
	a.HasUngradedOpenEnded = HasUngradedOpenEnded(questions, responses)

	if err := s.store.PutAttempt(ctx, a); err != nil {
		return Attempt{}, err
	}
	s.emit(ctx, "AttemptSubmitted", a.ID, a)

	if s.queue != nil && !s.queue.Enqueue(a.ID) {
		s.log.Warn("grade queue rejected attempt", "attempt_id", a.ID)
	}
	return a, nil
}

// SaveProgress is a liveness heartbeat; it only refreshes lastAccessedAt.
func (s *AttemptService) SaveProgress(ctx context.Context, attemptID, userID string) error {
	a, err := s.gated(ctx, attemptID, userID)
	if err != nil {
		return err
	}
	now := s.now()
	a.LastAccessedAt = &now
	return s.store.PutAttempt(ctx, a)
}

// GetAttempt returns the attempt after running the expiry gate, so a stale
// in-progress attempt reads back as abandoned.
func (s *AttemptService) GetAttempt(ctx context.Context, attemptID, userID string) (Attempt, error) {
	a, err := s.store.GetAttemptForUser(ctx, attemptID, userID)
	if err != nil {
		return Attempt{}, err
	}
	if _, err := s.checkAndUpdateStatus(ctx, &a); err != nil {
		return Attempt{}, err
	}
	return a, nil
}

// GetAttemptResults returns the per-question breakdown for a submitted or
// graded attempt, promoting submitted to graded as a side effect. Repeated
// calls are safe.
func (s *AttemptService) GetAttemptResults(ctx context.Context, attemptID string) (AttemptResult, error) {
	a, err := s.store.GetAttempt(ctx, attemptID)
	if err != nil {
		return AttemptResult{}, err
	}
	if a.Status != AttemptSubmitted && a.Status != AttemptGraded {
		return AttemptResult{}, ErrResultsNotReady
	}
	if a.Status != AttemptGraded {
		a.Status = AttemptGraded
		if err := s.store.PutAttempt(ctx, a); err != nil {
			return AttemptResult{}, err
		}
		s.emit(ctx, "AttemptGraded", a.ID, a)
	}
	return s.buildResult(ctx, a)
}

func (s *AttemptService) buildResult(ctx context.Context, a Attempt) (AttemptResult, error) {
	q, err := s.store.GetQuiz(ctx, a.QuizID)
	if err != nil {
		return AttemptResult{}, err
	}
	questions, err := s.store.ListQuizQuestions(ctx, a.QuizID)
	if err != nil {
		return AttemptResult{}, err
	}
	responses, err := s.store.ListAttemptResponses(ctx, a.ID)
	if err != nil {
		return AttemptResult{}, err
	}

	res := AttemptResult{
		AttemptID:      a.ID,
		QuizID:         a.QuizID,
		QuizTitle:      q.Title,
		Status:         a.Status,
		Score:          a.Score,
		AttemptTime:    a.AttemptTime,
		StartedAt:      a.StartedAt,
		CompletedAt:    a.CompletedAt,
		TotalQuestions: len(questions),
	}
	for _, question := range questions {
		qr := Classify(question, responses)
		if qr.IsCorrect {
			res.CorrectAnswers++
		}
		res.Questions = append(res.Questions, qr)
	}
	return res, nil
}

// ListInProgress returns the user's live attempts, dropping (and abandoning)
// the ones whose session lapsed.
func (s *AttemptService) ListInProgress(ctx context.Context, userID string) ([]Attempt, error) {
	attempts, err := s.store.ListAttemptsByUser(ctx, userID, AttemptInProgress)
	if err != nil {
		return nil, err
	}
	out := make([]Attempt, 0, len(attempts))
	for _, a := range attempts {
		ok, err := s.checkAndUpdateStatus(ctx, &a)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, a)
		}
	}
	return out, nil
}

// ListCompleted returns result breakdowns for the user's graded attempts.
func (s *AttemptService) ListCompleted(ctx context.Context, userID string) ([]AttemptResult, error) {
	attempts, err := s.store.ListAttemptsByUser(ctx, userID, AttemptGraded)
	if err != nil {
		return nil, err
	}
	out := make([]AttemptResult, 0, len(attempts))
	for _, a := range attempts {
		res, err := s.GetAttemptResults(ctx, a.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, nil
}

// UpdateAbandonedAttempts is the sweeper entry point: it abandons every
// in-progress attempt whose session is expired or past its end time. One
// failing attempt does not abort the sweep.
func (s *AttemptService) UpdateAbandonedAttempts(ctx context.Context) (int, error) {
	attempts, err := s.store.ListAttemptsByStatus(ctx, AttemptInProgress)
	if err != nil {
		return 0, err
	}
	now := s.now()
	updated := 0
	for _, a := range attempts {
		if a.SessionID == "" {
			continue
		}
		sess, err := s.store.GetSession(ctx, a.SessionID)
		if err != nil && !errors.Is(err, ErrSessionNotFound) {
			s.log.Warn("sweep attempt: load session", "attempt_id", a.ID, "err", err)
			continue
		}
		if err == nil && sess.Status == SessionActive && !sess.EndTime.Before(now) {
			continue
		}
		a := a
		if err := s.abandon(ctx, &a); err != nil {
			s.log.Warn("sweep attempt: abandon", "attempt_id", a.ID, "err", err)
			continue
		}
		updated++
	}
	return updated, nil
}

// gated loads the attempt and runs the expiry gate; operations behind it
// only ever see a usable in-progress attempt.
func (s *AttemptService) gated(ctx context.Context, attemptID, userID string) (Attempt, error) {
	a, err := s.store.GetAttemptForUser(ctx, attemptID, userID)
	if err != nil {
		return Attempt{}, err
	}
	ok, err := s.checkAndUpdateStatus(ctx, &a)
	if err != nil {
		return Attempt{}, err
	}
	if !ok {
		return Attempt{}, ErrAttemptNotActive
	}
	return a, nil
}

func (s *AttemptService) emit(ctx context.Context, typ, key string, data any) {
	emit(ctx, s.events, s.log, typ, key, data)
}

// HasUngradedOpenEnded reports whether any open-ended response still lacks
// both a teacher score and an AI score.
func HasUngradedOpenEnded(questions []Question, responses []Response) bool {
	openEnded := map[string]bool{}
	for _, q := range questions {
		if q.Type == OpenEnded {
			openEnded[q.ID] = true
		}
	}
	for _, r := range responses {
		if openEnded[r.QuestionID] && !r.Graded() {
			return true
		}
	}
	return false
}
