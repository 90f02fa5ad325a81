package quiz

import (
	"context"
	"errors"
	"testing"
	"time"
)

func seedActiveQuiz(t *testing.T, store *MemStore, id, owner string) {
	t.Helper()
	err := store.PutQuiz(context.Background(), Quiz{
		ID: id, Title: "T", CreatedBy: owner, Status: QuizActive,
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestCreateSession(t *testing.T) {
	store := NewMemStore()
	clock := &testClock{t: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	svc := NewSessionService(store, nil, nil, clock.now)
	ctx := context.Background()
	seedActiveQuiz(t, store, "quiz1", "teacher1")

	sess, err := svc.CreateSession(ctx, "teacher1", "quiz1", 45)
	if err != nil {
		t.Fatal(err)
	}
	if len(sess.AccessCode) != 8 {
		t.Fatalf("access code %q, want 8 chars", sess.AccessCode)
	}
	if !sess.EndTime.Equal(clock.t.Add(45 * time.Minute)) {
		t.Fatalf("end time = %v", sess.EndTime)
	}

	// A second live session on the same quiz is a conflict.
	if _, err := svc.CreateSession(ctx, "teacher1", "quiz1", 45); !errors.Is(err, ErrSessionAlreadyActive) {
		t.Fatalf("err = %v, want ErrSessionAlreadyActive", err)
	}

	// Only the owner can open sessions.
	if _, err := svc.CreateSession(ctx, "teacher2", "quiz1", 45); !errors.Is(err, ErrNotQuizOwner) {
		t.Fatalf("err = %v, want ErrNotQuizOwner", err)
	}
}

func TestCreateSessionRollsOverLapsed(t *testing.T) {
	store := NewMemStore()
	clock := &testClock{t: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	svc := NewSessionService(store, nil, nil, clock.now)
	ctx := context.Background()
	seedActiveQuiz(t, store, "quiz1", "teacher1")

	old, err := svc.CreateSession(ctx, "teacher1", "quiz1", 10)
	if err != nil {
		t.Fatal(err)
	}
	clock.advance(11 * time.Minute)

	// The lapsed session is flipped to expired and a fresh one opens.
	fresh, err := svc.CreateSession(ctx, "teacher1", "quiz1", 10)
	if err != nil {
		t.Fatal(err)
	}
	if fresh.ID == old.ID {
		t.Fatal("expected a new session")
	}
	got, err := store.GetSession(ctx, old.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != SessionExpired {
		t.Fatalf("old session status = %s, want expired", got.Status)
	}
}

func TestCreateSessionDefaultDuration(t *testing.T) {
	store := NewMemStore()
	clock := &testClock{t: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	svc := NewSessionService(store, nil, nil, clock.now)
	seedActiveQuiz(t, store, "quiz1", "teacher1")

	sess, err := svc.CreateSession(context.Background(), "teacher1", "quiz1", 0)
	if err != nil {
		t.Fatal(err)
	}
	if !sess.EndTime.Equal(clock.t.Add(30 * time.Minute)) {
		t.Fatalf("end time = %v, want 30m default", sess.EndTime)
	}
}

func TestValidateAccessCode(t *testing.T) {
	store := NewMemStore()
	clock := &testClock{t: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	svc := NewSessionService(store, nil, nil, clock.now)
	ctx := context.Background()
	seedActiveQuiz(t, store, "quiz1", "teacher1")

	sess, err := svc.CreateSession(ctx, "teacher1", "quiz1", 30)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.ValidateAccessCode(ctx, sess.AccessCode, "quiz1"); err != nil {
		t.Fatalf("valid code rejected: %v", err)
	}
	if _, err := svc.ValidateAccessCode(ctx, "NOPE1234", "quiz1"); !errors.Is(err, ErrInvalidAccessCode) {
		t.Fatalf("err = %v, want ErrInvalidAccessCode", err)
	}
	if _, err := svc.ValidateAccessCode(ctx, sess.AccessCode, "quiz2"); !errors.Is(err, ErrQuizMismatch) {
		t.Fatalf("err = %v, want ErrQuizMismatch", err)
	}

	// Not started yet.
	future := sess
	future.ID = "future"
	future.AccessCode = "FUTURECD"
	future.StartTime = clock.t.Add(time.Hour)
	future.EndTime = clock.t.Add(2 * time.Hour)
	if err := store.PutSession(ctx, future); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.ValidateAccessCode(ctx, "FUTURECD", "quiz1"); !errors.Is(err, ErrSessionNotStarted) {
		t.Fatalf("err = %v, want ErrSessionNotStarted", err)
	}
}

func TestValidateAccessCodeExpiresLazily(t *testing.T) {
	store := NewMemStore()
	clock := &testClock{t: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	svc := NewSessionService(store, nil, nil, clock.now)
	ctx := context.Background()
	seedActiveQuiz(t, store, "quiz1", "teacher1")

	sess, err := svc.CreateSession(ctx, "teacher1", "quiz1", 30)
	if err != nil {
		t.Fatal(err)
	}
	clock.advance(31 * time.Minute)

	if _, err := svc.ValidateAccessCode(ctx, sess.AccessCode, "quiz1"); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("err = %v, want ErrSessionExpired", err)
	}
	// The lapse was persisted, not just reported.
	got, err := store.GetSession(ctx, sess.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != SessionExpired {
		t.Fatalf("status = %s, want expired", got.Status)
	}
}

func TestExpireStale(t *testing.T) {
	store := NewMemStore()
	clock := &testClock{t: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	svc := NewSessionService(store, nil, nil, clock.now)
	ctx := context.Background()
	seedActiveQuiz(t, store, "quiz1", "teacher1")
	seedActiveQuiz(t, store, "quiz2", "teacher1")

	short, err := svc.CreateSession(ctx, "teacher1", "quiz1", 10)
	if err != nil {
		t.Fatal(err)
	}
	long, err := svc.CreateSession(ctx, "teacher1", "quiz2", 60)
	if err != nil {
		t.Fatal(err)
	}

	clock.advance(20 * time.Minute)
	n, err := svc.ExpireStale(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expired %d sessions, want 1", n)
	}
	if got, _ := store.GetSession(ctx, short.ID); got.Status != SessionExpired {
		t.Fatalf("short session status = %s", got.Status)
	}
	if got, _ := store.GetSession(ctx, long.ID); got.Status != SessionActive {
		t.Fatalf("long session status = %s", got.Status)
	}
}
