package quiz

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemStore is an in-memory Store used by tests and offline single-process
// runs. Mutation goes through one mutex, which also makes ReplaceResponses
// atomic with respect to concurrent reads.
type MemStore struct {
	mu        sync.RWMutex
	quizzes   map[string]Quiz
	questions map[string]Question
	sessions  map[string]Session
	attempts  map[string]Attempt
	responses map[string]Response
}

func NewMemStore() *MemStore {
	return &MemStore{
		quizzes:   map[string]Quiz{},
		questions: map[string]Question{},
		sessions:  map[string]Session{},
		attempts:  map[string]Attempt{},
		responses: map[string]Response{},
	}
}

func (m *MemStore) PutQuiz(_ context.Context, q Quiz) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quizzes[q.ID] = q
	return nil
}

func (m *MemStore) GetQuiz(_ context.Context, id string) (Quiz, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q, ok := m.quizzes[id]
	if !ok {
		return Quiz{}, ErrQuizNotFound
	}
	return q, nil
}

func (m *MemStore) PutQuestion(_ context.Context, q Question) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.questions[q.ID] = q
	return nil
}

func (m *MemStore) GetQuestion(_ context.Context, id string) (Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q, ok := m.questions[id]
	if !ok {
		return Question{}, ErrQuestionNotFound
	}
	return q, nil
}

func (m *MemStore) ListQuizQuestions(_ context.Context, quizID string) ([]Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Question
	for _, q := range m.questions {
		if q.QuizID == quizID {
			out = append(out, q)
		}
	}
	sortByCreated(out)
	return out, nil
}

func (m *MemStore) PutSession(_ context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return nil
}

func (m *MemStore) GetSession(_ context.Context, id string) (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	return s, nil
}

func (m *MemStore) GetSessionByCode(_ context.Context, code string) (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.sessions {
		if s.AccessCode == code {
			return s, nil
		}
	}
	return Session{}, ErrSessionNotFound
}

func (m *MemStore) GetActiveSessionForQuiz(_ context.Context, quizID string) (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.sessions {
		if s.QuizID == quizID && s.Status == SessionActive {
			return s, nil
		}
	}
	return Session{}, ErrSessionNotFound
}

func (m *MemStore) ListSessionsByStatus(_ context.Context, st SessionStatus) ([]Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Session
	for _, s := range m.sessions {
		if s.Status == st {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *MemStore) PutAttempt(_ context.Context, a Attempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts[a.ID] = a
	return nil
}

func (m *MemStore) GetAttempt(_ context.Context, id string) (Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.attempts[id]
	if !ok {
		return Attempt{}, ErrAttemptNotFound
	}
	return a, nil
}

func (m *MemStore) GetAttemptForUser(_ context.Context, attemptID, userID string) (Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.attempts[attemptID]
	if !ok || a.UserID != userID {
		return Attempt{}, ErrAttemptNotFound
	}
	return a, nil
}

func (m *MemStore) ListAttempts(_ context.Context, userID, quizID string) ([]Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Attempt
	for _, a := range m.attempts {
		if a.UserID == userID && a.QuizID == quizID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *MemStore) ListAttemptsByUser(_ context.Context, userID string, st AttemptStatus) ([]Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Attempt
	for _, a := range m.attempts {
		if a.UserID == userID && a.Status == st {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *MemStore) ListAttemptsByStatus(_ context.Context, st AttemptStatus) ([]Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Attempt
	for _, a := range m.attempts {
		if a.Status == st {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *MemStore) ReplaceResponses(_ context.Context, attemptID, questionID string, rs []Response) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, r := range m.responses {
		if r.AttemptID == attemptID && r.QuestionID == questionID {
			delete(m.responses, id)
		}
	}
	for _, r := range rs {
		r.AttemptID = attemptID
		r.QuestionID = questionID
		m.responses[r.ID] = r
	}
	return nil
}

func (m *MemStore) SaveResponse(_ context.Context, r Response) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.responses[r.ID]; !ok {
		return ErrResponseNotFound
	}
	m.responses[r.ID] = r
	return nil
}

func (m *MemStore) GetResponse(_ context.Context, attemptID, questionID string) (Response, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.responses {
		if r.AttemptID == attemptID && r.QuestionID == questionID {
			return r, nil
		}
	}
	return Response{}, ErrResponseNotFound
}

func (m *MemStore) ListAttemptResponses(_ context.Context, attemptID string) ([]Response, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Response
	for _, r := range m.responses {
		if r.AttemptID == attemptID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *MemStore) ListOpenEndedResponses(_ context.Context, attemptID string) ([]Response, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Response
	for _, r := range m.responses {
		if r.AttemptID != attemptID {
			continue
		}
		if q, ok := m.questions[r.QuestionID]; ok && q.Type == OpenEnded {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *MemStore) ListResponsesForUser(_ context.Context, userID string, from, to time.Time) ([]TypedResponse, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []TypedResponse
	for _, r := range m.responses {
		a, ok := m.attempts[r.AttemptID]
		if !ok || a.UserID != userID || a.CompletedAt == nil {
			continue
		}
		if a.CompletedAt.Before(from) || !a.CompletedAt.Before(to) {
			continue
		}
		q, ok := m.questions[r.QuestionID]
		if !ok {
			continue
		}
		out = append(out, TypedResponse{Response: r, QuestionType: q.Type})
	}
	return out, nil
}

func sortByCreated(qs []Question) {
	sort.Slice(qs, func(i, j int) bool {
		if !qs[i].CreatedAt.Equal(qs[j].CreatedAt) {
			return qs[i].CreatedAt.Before(qs[j].CreatedAt)
		}
		return qs[i].ID < qs[j].ID
	})
}
