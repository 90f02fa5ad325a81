package sweeper

import (
	"context"
	"log/slog"
	"time"

	"github.com/mind-path/mindpath-server/internal/quiz"
)

// Sweeper is the safety net for attempts whose owner never comes back: the
// lazy gate only fires on a request, so stale in-progress attempts and
// lapsed sessions are also demoted on a fixed interval.
type Sweeper struct {
	attempts *quiz.AttemptService
	sessions *quiz.SessionService
	log      *slog.Logger

	AttemptEvery time.Duration
	SessionEvery time.Duration
}

func New(attempts *quiz.AttemptService, sessions *quiz.SessionService, log *slog.Logger) *Sweeper {
	if log == nil {
		log = slog.Default()
	}
	return &Sweeper{
		attempts:     attempts,
		sessions:     sessions,
		log:          log,
		AttemptEvery: 5 * time.Minute,
		SessionEvery: time.Minute,
	}
}

// Run blocks until ctx is cancelled, ticking both sweeps on their own
// intervals.
func (s *Sweeper) Run(ctx context.Context) {
	attemptTick := time.NewTicker(s.AttemptEvery)
	defer attemptTick.Stop()
	sessionTick := time.NewTicker(s.SessionEvery)
	defer sessionTick.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-attemptTick.C:
			s.SweepAttempts(ctx)
		case <-sessionTick.C:
			s.SweepSessions(ctx)
		}
	}
}

func (s *Sweeper) SweepAttempts(ctx context.Context) {
	n, err := s.attempts.UpdateAbandonedAttempts(ctx)
	if err != nil {
		s.log.Error("attempt sweep failed", "err", err)
		return
	}
	if n > 0 {
		s.log.Info("abandoned stale attempts", "count", n)
	}
}

func (s *Sweeper) SweepSessions(ctx context.Context) {
	n, err := s.sessions.ExpireStale(ctx)
	if err != nil {
		s.log.Error("session sweep failed", "err", err)
		return
	}
	if n > 0 {
		s.log.Info("expired stale sessions", "count", n)
	}
}
