package quiz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

func newID() string { return uuid.NewString() }

// newAccessCode derives a short code students can type.
func newAccessCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// SessionService decides whether a timed access session is usable "now" and
// owns session creation. Expiry is detected lazily on every read in addition
// to the background sweep.
type SessionService struct {
	store  Store
	events EventSink
	log    *slog.Logger
	now    Clock
}

func NewSessionService(store Store, events EventSink, log *slog.Logger, now Clock) *SessionService {
	if log == nil {
		log = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &SessionService{store: store, events: events, log: log, now: now}
}

// IsUsable reports whether the session admits attempts at the given instant.
func (s *SessionService) IsUsable(sess Session, now time.Time) bool {
	return sess.Status == SessionActive &&
		!now.Before(sess.StartTime) && !now.After(sess.EndTime)
}

// ValidateAccessCode resolves an access code for the given quiz. A session
// found past its end time is flipped to expired before the error returns.
func (s *SessionService) ValidateAccessCode(ctx context.Context, code, quizID string) (Session, error) {
	sess, err := s.store.GetSessionByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return Session{}, ErrInvalidAccessCode
		}
		return Session{}, err
	}

	now := s.now()
	if sess.Status == SessionActive && sess.EndTime.Before(now) {
		if err := s.expire(ctx, &sess); err != nil {
			return Session{}, err
		}
		return Session{}, ErrSessionExpired
	}
	if sess.Status != SessionActive {
		return Session{}, ErrSessionExpired
	}
	if quizID != "" && sess.QuizID != quizID {
		return Session{}, ErrQuizMismatch
	}
	if now.Before(sess.StartTime) {
		return Session{}, ErrSessionNotStarted
	}
	return sess, nil
}

// CreateSession opens a timed session for a quiz the teacher owns. A lapsed
// active session is rolled over; a live one is a conflict.
func (s *SessionService) CreateSession(ctx context.Context, teacherID, quizID string, durationMinutes int) (Session, error) {
	q, err := s.store.GetQuiz(ctx, quizID)
	if err != nil {
		return Session{}, err
	}
	if q.CreatedBy != teacherID {
		return Session{}, ErrNotQuizOwner
	}
	if q.Status != QuizActive {
		return Session{}, ErrQuizNotActive
	}

	now := s.now()
	existing, err := s.store.GetActiveSessionForQuiz(ctx, quizID)
	switch {
	case err == nil:
		if existing.EndTime.After(now) {
			return Session{}, ErrSessionAlreadyActive
		}
		if err := s.expire(ctx, &existing); err != nil {
			return Session{}, err
		}
	case !errors.Is(err, ErrSessionNotFound):
		return Session{}, err
	}

	if durationMinutes <= 0 {
		durationMinutes = 30
	}
	sess := Session{
		ID:         newID(),
		QuizID:     quizID,
		CreatedBy:  teacherID,
		AccessCode: newAccessCode(),
		StartTime:  now,
		EndTime:    now.Add(time.Duration(durationMinutes) * time.Minute),
		Status:     SessionActive,
	}
	if err := s.store.PutSession(ctx, sess); err != nil {
		return Session{}, err
	}
	s.emit(ctx, "SessionCreated", sess.ID, sess)
	return sess, nil
}

// ExpireStale flips every active session past its end time to expired and
// returns how many it touched. One failing row does not abort the rest.
func (s *SessionService) ExpireStale(ctx context.Context) (int, error) {
	sessions, err := s.store.ListSessionsByStatus(ctx, SessionActive)
	if err != nil {
		return 0, err
	}
	now := s.now()
	updated := 0
	for _, sess := range sessions {
		if !sess.EndTime.Before(now) {
			continue
		}
		sess := sess
		if err := s.expire(ctx, &sess); err != nil {
			s.log.Warn("expire session", "session_id", sess.ID, "err", err)
			continue
		}
		updated++
	}
	return updated, nil
}

func (s *SessionService) expire(ctx context.Context, sess *Session) error {
	sess.Status = SessionExpired
	if err := s.store.PutSession(ctx, *sess); err != nil {
		return fmt.Errorf("expire session %s: %w", sess.ID, err)
	}
	s.emit(ctx, "SessionExpired", sess.ID, sess)
	return nil
}

func (s *SessionService) emit(ctx context.Context, typ, key string, data any) {
	emit(ctx, s.events, s.log, typ, key, data)
}

func emit(ctx context.Context, sink EventSink, log *slog.Logger, typ, key string, data any) {
	if sink == nil {
		return
	}
	b, err := json.Marshal(data)
	if err != nil {
		return
	}
	if err := sink.Append(ctx, typ, key, string(b)); err != nil {
		log.Warn("event append failed", "type", typ, "key", key, "err", err)
	}
}
