package report

import (
	"context"
	"testing"
	"time"

	"github.com/mind-path/mindpath-server/internal/quiz"
)

func seedStore(t *testing.T) *quiz.MemStore {
	t.Helper()
	store := quiz.NewMemStore()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	questions := []quiz.Question{
		{ID: "q1", QuizID: "quiz1", Type: quiz.SingleChoice},
		{ID: "q2", QuizID: "quiz1", Type: quiz.MultipleChoice},
		{ID: "q3", QuizID: "quiz1", Type: quiz.OpenEnded},
	}
	for _, q := range questions {
		if err := store.PutQuestion(ctx, q); err != nil {
			t.Fatal(err)
		}
	}

	put := func(a quiz.Attempt, rs ...quiz.Response) {
		t.Helper()
		if err := store.PutAttempt(ctx, a); err != nil {
			t.Fatal(err)
		}
		for _, r := range rs {
			if err := store.ReplaceResponses(ctx, r.AttemptID, r.QuestionID, []quiz.Response{r}); err != nil {
				t.Fatal(err)
			}
		}
	}

	inWindow := base.Add(24 * time.Hour)
	put(quiz.Attempt{ID: "a1", UserID: "stu1", QuizID: "quiz1", Status: quiz.AttemptGraded, CompletedAt: &inWindow},
		// Incorrect and fast: a rushing error.
		quiz.Response{ID: "r1", AttemptID: "a1", QuestionID: "q1", IsCorrect: false, ResponseTime: 3},
		// Incorrect but deliberate.
		quiz.Response{ID: "r2", AttemptID: "a1", QuestionID: "q2", IsCorrect: false, ResponseTime: 40},
		quiz.Response{ID: "r3", AttemptID: "a1", QuestionID: "q3", IsCorrect: true, ResponseTime: 90},
	)

	// Outside the window: must not count.
	old := base.AddDate(0, -2, 0)
	put(quiz.Attempt{ID: "a2", UserID: "stu1", QuizID: "quiz1", Status: quiz.AttemptGraded, CompletedAt: &old},
		quiz.Response{ID: "r4", AttemptID: "a2", QuestionID: "q1", IsCorrect: false, ResponseTime: 2})

	// Someone else's work: must not count.
	put(quiz.Attempt{ID: "a3", UserID: "stu2", QuizID: "quiz1", Status: quiz.AttemptGraded, CompletedAt: &inWindow},
		quiz.Response{ID: "r5", AttemptID: "a3", QuestionID: "q1", IsCorrect: false, ResponseTime: 1})

	// Still in progress: no completion, no report contribution.
	put(quiz.Attempt{ID: "a4", UserID: "stu1", QuizID: "quiz1", Status: quiz.AttemptInProgress},
		quiz.Response{ID: "r6", AttemptID: "a4", QuestionID: "q1", IsCorrect: false, ResponseTime: 1})

	return store
}

func TestWeaknessReport(t *testing.T) {
	store := seedStore(t)
	svc := NewService(store)

	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)
	rep, err := svc.Weakness(context.Background(), "stu1", from, to)
	if err != nil {
		t.Fatal(err)
	}

	if rep.TotalQuestions != 3 {
		t.Fatalf("total = %d, want 3", rep.TotalQuestions)
	}
	if rep.RushingErrors != 1 {
		t.Fatalf("rushing errors = %d, want 1", rep.RushingErrors)
	}

	sc := rep.StatsByType[string(quiz.SingleChoice)]
	if sc.Attempted != 1 || sc.Incorrect != 1 || sc.AverageTimeSec != 3 {
		t.Fatalf("single choice stats = %+v", sc)
	}
	oe := rep.StatsByType[string(quiz.OpenEnded)]
	if oe.Attempted != 1 || oe.Incorrect != 0 || oe.AverageTimeSec != 90 {
		t.Fatalf("open ended stats = %+v", oe)
	}
}

func TestWeaknessReportEmptyWindow(t *testing.T) {
	store := seedStore(t)
	svc := NewService(store)

	from := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	rep, err := svc.Weakness(context.Background(), "stu1", from, from.AddDate(0, 1, 0))
	if err != nil {
		t.Fatal(err)
	}
	if rep.TotalQuestions != 0 || rep.RushingErrors != 0 || len(rep.StatsByType) != 0 {
		t.Fatalf("expected empty report, got %+v", rep)
	}
}
