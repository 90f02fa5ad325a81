package quiz

import (
	"context"
	"errors"
	"testing"
	"time"
)

type testClock struct{ t time.Time }

func (c *testClock) now() time.Time          { return c.t }
func (c *testClock) advance(d time.Duration) { c.t = c.t.Add(d) }

type fakeQueue struct {
	ids    []string
	reject bool
}

func (q *fakeQueue) Enqueue(id string) bool {
	if q.reject {
		return false
	}
	q.ids = append(q.ids, id)
	return true
}

type fixture struct {
	store    *MemStore
	clock    *testClock
	queue    *fakeQueue
	sessions *SessionService
	attempts *AttemptService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := NewMemStore()
	clock := &testClock{t: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	queue := &fakeQueue{}
	sessions := NewSessionService(store, nil, nil, clock.now)
	attempts := NewAttemptService(store, sessions, queue, nil, nil, clock.now)
	return &fixture{store: store, clock: clock, queue: queue, sessions: sessions, attempts: attempts}
}

// seedQuiz installs an active quiz owned by "teacher1" with one single
// choice, one multiple choice and one open-ended question.
func (f *fixture) seedQuiz(t *testing.T) (Quiz, []Question) {
	t.Helper()
	ctx := context.Background()
	q := Quiz{ID: "quiz1", Title: "Basics", CreatedBy: "teacher1", Status: QuizActive, CreatedAt: f.clock.t}
	if err := f.store.PutQuiz(ctx, q); err != nil {
		t.Fatal(err)
	}
	questions := []Question{
		{
			ID: "q1", QuizID: "quiz1", Text: "Pick one", Type: SingleChoice, CreatedAt: f.clock.t,
			Answers: []Answer{
				{ID: "q1a1", QuestionID: "q1", Text: "right", IsCorrect: true},
				{ID: "q1a2", QuestionID: "q1", Text: "wrong"},
			},
		},
		{
			ID: "q2", QuizID: "quiz1", Text: "Pick all", Type: MultipleChoice, CreatedAt: f.clock.t.Add(time.Second),
			Answers: []Answer{
				{ID: "q2a1", QuestionID: "q2", Text: "yes", IsCorrect: true},
				{ID: "q2a2", QuestionID: "q2", Text: "also", IsCorrect: true},
				{ID: "q2a3", QuestionID: "q2", Text: "no"},
			},
		},
		{
			ID: "q3", QuizID: "quiz1", Text: "Explain", Type: OpenEnded, CreatedAt: f.clock.t.Add(2 * time.Second),
			Answers: []Answer{
				{ID: "q3rub", QuestionID: "q3", Text: "mentions X and Y", IsCorrect: true},
			},
		},
	}
	for _, question := range questions {
		if err := f.store.PutQuestion(ctx, question); err != nil {
			t.Fatal(err)
		}
	}
	return q, questions
}

func TestStartAttemptRequiresActiveQuiz(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	quiz, _ := f.seedQuiz(t)

	quiz.Status = QuizDraft
	if err := f.store.PutQuiz(ctx, quiz); err != nil {
		t.Fatal(err)
	}
	if _, err := f.attempts.StartAttempt(ctx, "stu1", "quiz1", ""); !errors.Is(err, ErrQuizNotActive) {
		t.Fatalf("err = %v, want ErrQuizNotActive", err)
	}

	if _, err := f.attempts.StartAttempt(ctx, "stu1", "missing", ""); !errors.Is(err, ErrQuizNotFound) {
		t.Fatalf("err = %v, want ErrQuizNotFound", err)
	}
}

func TestStartAttemptResumesInProgress(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedQuiz(t)

	first, err := f.attempts.StartAttempt(ctx, "stu1", "quiz1", "")
	if err != nil {
		t.Fatal(err)
	}
	second, err := f.attempts.StartAttempt(ctx, "stu1", "quiz1", "")
	if err != nil {
		t.Fatal(err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected resume of %s, got new attempt %s", first.ID, second.ID)
	}

	// Another student gets their own attempt.
	other, err := f.attempts.StartAttempt(ctx, "stu2", "quiz1", "")
	if err != nil {
		t.Fatal(err)
	}
	if other.ID == first.ID {
		t.Fatal("attempts must be per student")
	}
}

func TestStartAttemptWithAccessCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedQuiz(t)

	sess, err := f.sessions.CreateSession(ctx, "teacher1", "quiz1", 30)
	if err != nil {
		t.Fatal(err)
	}

	a, err := f.attempts.StartAttempt(ctx, "stu1", "quiz1", sess.AccessCode)
	if err != nil {
		t.Fatal(err)
	}
	if a.SessionID != sess.ID {
		t.Fatalf("attempt not bound to session: %q", a.SessionID)
	}

	// While the session is live the same code resumes the same attempt.
	again, err := f.attempts.StartAttempt(ctx, "stu1", "quiz1", sess.AccessCode)
	if err != nil {
		t.Fatal(err)
	}
	if again.ID != a.ID {
		t.Fatalf("expected resume of %s, got %s", a.ID, again.ID)
	}

	if _, err := f.attempts.StartAttempt(ctx, "stu1", "quiz1", "WRONGCOD"); !errors.Is(err, ErrInvalidAccessCode) {
		t.Fatalf("err = %v, want ErrInvalidAccessCode", err)
	}
}

func TestSessionExpiryAbandonsAttempt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedQuiz(t)

	sess, err := f.sessions.CreateSession(ctx, "teacher1", "quiz1", 30)
	if err != nil {
		t.Fatal(err)
	}
	a, err := f.attempts.StartAttempt(ctx, "stu1", "quiz1", sess.AccessCode)
	if err != nil {
		t.Fatal(err)
	}

	f.clock.advance(31 * time.Minute)

	// Any gated read now demotes the attempt.
	got, err := f.attempts.GetAttempt(ctx, a.ID, "stu1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != AttemptAbandoned {
		t.Fatalf("status = %s, want abandoned", got.Status)
	}

	// Operations on the abandoned attempt are rejected.
	_, err = f.attempts.SubmitAnswer(ctx, a.ID, "stu1", SubmitAnswerRequest{
		QuestionID: "q1", SelectedAnswerIDs: []string{"q1a1"},
	})
	if !errors.Is(err, ErrAttemptNotActive) {
		t.Fatalf("err = %v, want ErrAttemptNotActive", err)
	}

	// The lapsed code no longer admits anyone.
	if _, err := f.attempts.StartAttempt(ctx, "stu1", "quiz1", sess.AccessCode); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("err = %v, want ErrSessionExpired", err)
	}

	// Without a code a fresh attempt is created instead of resuming.
	fresh, err := f.attempts.StartAttempt(ctx, "stu1", "quiz1", "")
	if err != nil {
		t.Fatal(err)
	}
	if fresh.ID == a.ID {
		t.Fatal("abandoned attempt must not be resumed")
	}
}

func TestSubmitAnswerValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedQuiz(t)

	a, err := f.attempts.StartAttempt(ctx, "stu1", "quiz1", "")
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name string
		req  SubmitAnswerRequest
		want error
	}{
		{"no selection", SubmitAnswerRequest{QuestionID: "q1"}, ErrNoAnswerSelected},
		{"two picks on single choice", SubmitAnswerRequest{QuestionID: "q1", SelectedAnswerIDs: []string{"q1a1", "q1a2"}}, ErrTooManySelections},
		{"answer from other question", SubmitAnswerRequest{QuestionID: "q1", SelectedAnswerIDs: []string{"q2a1"}}, ErrAnswerMismatch},
		{"blank essay", SubmitAnswerRequest{QuestionID: "q3", TextResponse: "   "}, ErrMissingTextResponse},
		{"unknown question", SubmitAnswerRequest{QuestionID: "nope", SelectedAnswerIDs: []string{"x"}}, ErrQuestionNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := f.attempts.SubmitAnswer(ctx, a.ID, "stu1", tc.req); !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}

	// A question from another quiz is rejected even if it exists.
	foreign := Question{ID: "fq", QuizID: "quiz2", Type: SingleChoice,
		Answers: []Answer{{ID: "fqa", QuestionID: "fq", IsCorrect: true}}}
	if err := f.store.PutQuestion(ctx, foreign); err != nil {
		t.Fatal(err)
	}
	_, err = f.attempts.SubmitAnswer(ctx, a.ID, "stu1", SubmitAnswerRequest{
		QuestionID: "fq", SelectedAnswerIDs: []string{"fqa"},
	})
	if !errors.Is(err, ErrQuestionMismatch) {
		t.Fatalf("err = %v, want ErrQuestionMismatch", err)
	}
}

func TestSubmitAnswerReplacesPrevious(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedQuiz(t)

	a, err := f.attempts.StartAttempt(ctx, "stu1", "quiz1", "")
	if err != nil {
		t.Fatal(err)
	}

	correct, err := f.attempts.SubmitAnswer(ctx, a.ID, "stu1", SubmitAnswerRequest{
		QuestionID: "q2", SelectedAnswerIDs: []string{"q2a1", "q2a2"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !correct {
		t.Fatal("exact match should report correct")
	}

	// Changing the answer replaces the earlier rows instead of merging.
	correct, err = f.attempts.SubmitAnswer(ctx, a.ID, "stu1", SubmitAnswerRequest{
		QuestionID: "q2", SelectedAnswerIDs: []string{"q2a3"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if correct {
		t.Fatal("wrong-only selection reported correct")
	}
	rs, err := f.store.ListAttemptResponses(ctx, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(rs) != 1 || rs[0].AnswerID != "q2a3" {
		t.Fatalf("responses after replace = %+v, want single q2a3 row", rs)
	}
}

func TestSubmitAttemptScoresAndQueues(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedQuiz(t)

	a, err := f.attempts.StartAttempt(ctx, "stu1", "quiz1", "")
	if err != nil {
		t.Fatal(err)
	}

	mustAnswer := func(req SubmitAnswerRequest) {
		t.Helper()
		if _, err := f.attempts.SubmitAnswer(ctx, a.ID, "stu1", req); err != nil {
			t.Fatal(err)
		}
	}
	mustAnswer(SubmitAnswerRequest{QuestionID: "q1", SelectedAnswerIDs: []string{"q1a1"}})
	mustAnswer(SubmitAnswerRequest{QuestionID: "q2", SelectedAnswerIDs: []string{"q2a1", "q2a2"}})
	mustAnswer(SubmitAnswerRequest{QuestionID: "q3", TextResponse: "my essay"})

	got, err := f.attempts.SubmitAttempt(ctx, a.ID, "stu1", 240)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != AttemptSubmitted {
		t.Fatalf("status = %s, want submitted", got.Status)
	}
	// q1 and q2 are full marks, q3 is ungraded: 2/3 of 100.
	if !almostEqual(got.Score, 200.0/3.0) {
		t.Fatalf("score = %v, want %v", got.Score, 200.0/3.0)
	}
	if !got.HasUngradedOpenEnded {
		t.Fatal("open-ended response should be flagged ungraded")
	}
	if got.CompletedAt == nil || got.AttemptTime != 240 {
		t.Fatalf("completion not stamped: %+v", got)
	}
	if len(f.queue.ids) != 1 || f.queue.ids[0] != a.ID {
		t.Fatalf("queue = %v, want [%s]", f.queue.ids, a.ID)
	}

	// Double submit is rejected: the attempt already left in_progress.
	if _, err := f.attempts.SubmitAttempt(ctx, a.ID, "stu1", 240); !errors.Is(err, ErrAttemptNotActive) {
		t.Fatalf("err = %v, want ErrAttemptNotActive", err)
	}
}

func TestSubmitAttemptSurvivesFullQueue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedQuiz(t)
	f.queue.reject = true

	a, err := f.attempts.StartAttempt(ctx, "stu1", "quiz1", "")
	if err != nil {
		t.Fatal(err)
	}
	got, err := f.attempts.SubmitAttempt(ctx, a.ID, "stu1", 10)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != AttemptSubmitted {
		t.Fatalf("status = %s, want submitted despite full queue", got.Status)
	}
}

func TestGetAttemptResults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedQuiz(t)

	a, err := f.attempts.StartAttempt(ctx, "stu1", "quiz1", "")
	if err != nil {
		t.Fatal(err)
	}

	// Results are gated until the attempt is submitted.
	if _, err := f.attempts.GetAttemptResults(ctx, a.ID); !errors.Is(err, ErrResultsNotReady) {
		t.Fatalf("err = %v, want ErrResultsNotReady", err)
	}

	if _, err := f.attempts.SubmitAnswer(ctx, a.ID, "stu1", SubmitAnswerRequest{
		QuestionID: "q1", SelectedAnswerIDs: []string{"q1a1"},
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.attempts.SubmitAttempt(ctx, a.ID, "stu1", 60); err != nil {
		t.Fatal(err)
	}

	res, err := f.attempts.GetAttemptResults(ctx, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != AttemptGraded {
		t.Fatalf("status = %s, want graded", res.Status)
	}
	if res.TotalQuestions != 3 || res.CorrectAnswers != 1 {
		t.Fatalf("totals = %d/%d, want 1/3", res.CorrectAnswers, res.TotalQuestions)
	}
	if res.QuizTitle != "Basics" {
		t.Fatalf("title = %q", res.QuizTitle)
	}

	// Reading results twice is safe and stays graded.
	again, err := f.attempts.GetAttemptResults(ctx, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if again.Status != AttemptGraded || again.Score != res.Score {
		t.Fatalf("second read diverged: %+v vs %+v", again, res)
	}
}

func TestSaveProgressHeartbeat(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedQuiz(t)

	a, err := f.attempts.StartAttempt(ctx, "stu1", "quiz1", "")
	if err != nil {
		t.Fatal(err)
	}
	f.clock.advance(2 * time.Minute)
	if err := f.attempts.SaveProgress(ctx, a.ID, "stu1"); err != nil {
		t.Fatal(err)
	}
	got, err := f.store.GetAttempt(ctx, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.LastAccessedAt == nil || !got.LastAccessedAt.Equal(f.clock.t) {
		t.Fatalf("lastAccessedAt = %v, want %v", got.LastAccessedAt, f.clock.t)
	}

	if err := f.attempts.SaveProgress(ctx, a.ID, "intruder"); !errors.Is(err, ErrAttemptNotFound) {
		t.Fatalf("err = %v, want ErrAttemptNotFound for foreign user", err)
	}
}

func TestListInProgressDropsLapsed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedQuiz(t)

	sess, err := f.sessions.CreateSession(ctx, "teacher1", "quiz1", 10)
	if err != nil {
		t.Fatal(err)
	}
	gatedAttempt, err := f.attempts.StartAttempt(ctx, "stu1", "quiz1", sess.AccessCode)
	if err != nil {
		t.Fatal(err)
	}

	// Second quiz without a session stays alive forever.
	q2 := Quiz{ID: "quiz2", Title: "Other", CreatedBy: "teacher1", Status: QuizActive, CreatedAt: f.clock.t}
	if err := f.store.PutQuiz(ctx, q2); err != nil {
		t.Fatal(err)
	}
	free, err := f.attempts.StartAttempt(ctx, "stu1", "quiz2", "")
	if err != nil {
		t.Fatal(err)
	}

	f.clock.advance(11 * time.Minute)

	live, err := f.attempts.ListInProgress(ctx, "stu1")
	if err != nil {
		t.Fatal(err)
	}
	if len(live) != 1 || live[0].ID != free.ID {
		t.Fatalf("live = %+v, want only the sessionless attempt", live)
	}
	got, err := f.store.GetAttempt(ctx, gatedAttempt.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != AttemptAbandoned {
		t.Fatalf("lapsed attempt status = %s, want abandoned", got.Status)
	}
}

func TestUpdateAbandonedAttemptsSweep(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedQuiz(t)

	sess, err := f.sessions.CreateSession(ctx, "teacher1", "quiz1", 10)
	if err != nil {
		t.Fatal(err)
	}
	gatedAttempt, err := f.attempts.StartAttempt(ctx, "stu1", "quiz1", sess.AccessCode)
	if err != nil {
		t.Fatal(err)
	}
	free, err := f.attempts.StartAttempt(ctx, "stu2", "quiz1", "")
	if err != nil {
		t.Fatal(err)
	}

	// Nothing lapsed yet.
	n, err := f.attempts.UpdateAbandonedAttempts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("swept %d attempts, want 0", n)
	}

	f.clock.advance(11 * time.Minute)
	n, err = f.attempts.UpdateAbandonedAttempts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("swept %d attempts, want 1", n)
	}
	got, _ := f.store.GetAttempt(ctx, gatedAttempt.ID)
	if got.Status != AttemptAbandoned {
		t.Fatalf("status = %s, want abandoned", got.Status)
	}
	untouched, _ := f.store.GetAttempt(ctx, free.ID)
	if untouched.Status != AttemptInProgress {
		t.Fatalf("sessionless attempt status = %s, want in_progress", untouched.Status)
	}
}
