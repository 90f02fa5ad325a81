package quiz

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// SQLStore persists the domain through database/sql. Queries use $1-style
// placeholders, which both the pgx and modernc sqlite drivers accept.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

func (s *SQLStore) PutQuiz(ctx context.Context, q Quiz) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO quizzes (id,title,created_by,status,created_at)
		 VALUES ($1,$2,$3,$4,$5)
		 ON CONFLICT (id) DO UPDATE SET title=EXCLUDED.title, status=EXCLUDED.status`,
		q.ID, q.Title, q.CreatedBy, string(q.Status), q.CreatedAt.Unix())
	return err
}

func (s *SQLStore) GetQuiz(ctx context.Context, id string) (Quiz, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id,title,created_by,status,created_at FROM quizzes WHERE id=$1`, id)
	var q Quiz
	var status string
	var created int64
	if err := row.Scan(&q.ID, &q.Title, &q.CreatedBy, &status, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Quiz{}, ErrQuizNotFound
		}
		return Quiz{}, err
	}
	q.Status = QuizStatus(status)
	q.CreatedAt = time.Unix(created, 0)
	return q, nil
}

func (s *SQLStore) PutQuestion(ctx context.Context, q Question) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO questions (id,quiz_id,question_text,qtype,difficulty,created_at)
		 VALUES ($1,$2,$3,$4,$5,$6)
		 ON CONFLICT (id) DO UPDATE SET question_text=EXCLUDED.question_text,
		   qtype=EXCLUDED.qtype, difficulty=EXCLUDED.difficulty`,
		q.ID, q.QuizID, q.Text, string(q.Type), string(q.Difficulty), q.CreatedAt.Unix())
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM answers WHERE question_id=$1`, q.ID); err != nil {
		return err
	}
	for _, a := range q.Answers {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO answers (id,question_id,answer_text,is_correct) VALUES ($1,$2,$3,$4)`,
			a.ID, q.ID, a.Text, a.IsCorrect)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLStore) GetQuestion(ctx context.Context, id string) (Question, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id,quiz_id,question_text,qtype,difficulty,created_at FROM questions WHERE id=$1`, id)
	q, err := scanQuestion(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Question{}, ErrQuestionNotFound
		}
		return Question{}, err
	}
	answers, err := s.listAnswers(ctx, q.ID)
	if err != nil {
		return Question{}, err
	}
	q.Answers = answers
	return q, nil
}

func (s *SQLStore) ListQuizQuestions(ctx context.Context, quizID string) ([]Question, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id,quiz_id,question_text,qtype,difficulty,created_at
		 FROM questions WHERE quiz_id=$1 ORDER BY created_at, id`, quizID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		answers, err := s.listAnswers(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Answers = answers
	}
	return out, nil
}

func (s *SQLStore) listAnswers(ctx context.Context, questionID string) ([]Answer, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id,question_id,answer_text,is_correct FROM answers WHERE question_id=$1 ORDER BY id`,
		questionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Answer
	for rows.Next() {
		var a Answer
		if err := rows.Scan(&a.ID, &a.QuestionID, &a.Text, &a.IsCorrect); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLStore) PutSession(ctx context.Context, sess Session) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO quiz_sessions (id,quiz_id,created_by,access_code,start_time,end_time,status)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)
		 ON CONFLICT (id) DO UPDATE SET status=EXCLUDED.status, end_time=EXCLUDED.end_time`,
		sess.ID, sess.QuizID, sess.CreatedBy, sess.AccessCode,
		sess.StartTime.Unix(), sess.EndTime.Unix(), string(sess.Status))
	return err
}

func (s *SQLStore) GetSession(ctx context.Context, id string) (Session, error) {
	return s.getSession(ctx, `SELECT id,quiz_id,created_by,access_code,start_time,end_time,status
		FROM quiz_sessions WHERE id=$1`, id)
}

func (s *SQLStore) GetSessionByCode(ctx context.Context, code string) (Session, error) {
	return s.getSession(ctx, `SELECT id,quiz_id,created_by,access_code,start_time,end_time,status
		FROM quiz_sessions WHERE access_code=$1`, code)
}

func (s *SQLStore) GetActiveSessionForQuiz(ctx context.Context, quizID string) (Session, error) {
	return s.getSession(ctx, `SELECT id,quiz_id,created_by,access_code,start_time,end_time,status
		FROM quiz_sessions WHERE quiz_id=$1 AND status=$2`, quizID, string(SessionActive))
}

func (s *SQLStore) getSession(ctx context.Context, query string, args ...any) (Session, error) {
	row := s.db.QueryRowContext(ctx, query, args...)
	sess, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, ErrSessionNotFound
		}
		return Session{}, err
	}
	return sess, nil
}

func (s *SQLStore) ListSessionsByStatus(ctx context.Context, st SessionStatus) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id,quiz_id,created_by,access_code,start_time,end_time,status
		 FROM quiz_sessions WHERE status=$1`, string(st))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

func (s *SQLStore) PutAttempt(ctx context.Context, a Attempt) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO attempts (id,user_id,quiz_id,session_id,status,score,started_at,
		   last_accessed_at,completed_at,attempt_time,has_ungraded_open_ended)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		 ON CONFLICT (id) DO UPDATE SET status=EXCLUDED.status, score=EXCLUDED.score,
		   last_accessed_at=EXCLUDED.last_accessed_at, completed_at=EXCLUDED.completed_at,
		   attempt_time=EXCLUDED.attempt_time,
		   has_ungraded_open_ended=EXCLUDED.has_ungraded_open_ended`,
		a.ID, a.UserID, a.QuizID, a.SessionID, string(a.Status), a.Score, a.StartedAt.Unix(),
		unixPtr(a.LastAccessedAt), unixPtr(a.CompletedAt), a.AttemptTime, a.HasUngradedOpenEnded)
	return err
}

func (s *SQLStore) GetAttempt(ctx context.Context, id string) (Attempt, error) {
	row := s.db.QueryRowContext(ctx, selectAttempt+` WHERE id=$1`, id)
	a, err := scanAttempt(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Attempt{}, ErrAttemptNotFound
		}
		return Attempt{}, err
	}
	return a, nil
}

func (s *SQLStore) GetAttemptForUser(ctx context.Context, attemptID, userID string) (Attempt, error) {
	row := s.db.QueryRowContext(ctx, selectAttempt+` WHERE id=$1 AND user_id=$2`, attemptID, userID)
	a, err := scanAttempt(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Attempt{}, ErrAttemptNotFound
		}
		return Attempt{}, err
	}
	return a, nil
}

func (s *SQLStore) ListAttempts(ctx context.Context, userID, quizID string) ([]Attempt, error) {
	return s.listAttempts(ctx, selectAttempt+` WHERE user_id=$1 AND quiz_id=$2 ORDER BY started_at`,
		userID, quizID)
}

func (s *SQLStore) ListAttemptsByUser(ctx context.Context, userID string, st AttemptStatus) ([]Attempt, error) {
	return s.listAttempts(ctx, selectAttempt+` WHERE user_id=$1 AND status=$2 ORDER BY started_at`,
		userID, string(st))
}

func (s *SQLStore) ListAttemptsByStatus(ctx context.Context, st AttemptStatus) ([]Attempt, error) {
	return s.listAttempts(ctx, selectAttempt+` WHERE status=$1 ORDER BY started_at`, string(st))
}

func (s *SQLStore) listAttempts(ctx context.Context, query string, args ...any) ([]Attempt, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Attempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLStore) ReplaceResponses(ctx context.Context, attemptID, questionID string, rs []Response) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`DELETE FROM responses WHERE attempt_id=$1 AND question_id=$2`, attemptID, questionID)
	if err != nil {
		return err
	}
	for _, r := range rs {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO responses (id,attempt_id,question_id,answer_id,text_answer,is_correct,
			   response_time,teacher_score,ai_score,ai_feedback)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
			r.ID, attemptID, questionID, r.AnswerID, r.TextAnswer, r.IsCorrect,
			r.ResponseTime, r.TeacherScore, r.AIScore, r.AIFeedback)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLStore) SaveResponse(ctx context.Context, r Response) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE responses SET is_correct=$1, teacher_score=$2, ai_score=$3, ai_feedback=$4 WHERE id=$5`,
		r.IsCorrect, r.TeacherScore, r.AIScore, r.AIFeedback, r.ID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrResponseNotFound
	}
	return nil
}

func (s *SQLStore) GetResponse(ctx context.Context, attemptID, questionID string) (Response, error) {
	row := s.db.QueryRowContext(ctx, selectResponse+` WHERE attempt_id=$1 AND question_id=$2`,
		attemptID, questionID)
	r, err := scanResponse(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Response{}, ErrResponseNotFound
		}
		return Response{}, err
	}
	return r, nil
}

func (s *SQLStore) ListAttemptResponses(ctx context.Context, attemptID string) ([]Response, error) {
	return s.listResponses(ctx, selectResponse+` WHERE attempt_id=$1 ORDER BY id`, attemptID)
}

func (s *SQLStore) ListOpenEndedResponses(ctx context.Context, attemptID string) ([]Response, error) {
	return s.listResponses(ctx,
		`SELECT r.id,r.attempt_id,r.question_id,r.answer_id,r.text_answer,r.is_correct,
		   r.response_time,r.teacher_score,r.ai_score,r.ai_feedback
		 FROM responses r JOIN questions q ON q.id=r.question_id
		 WHERE r.attempt_id=$1 AND q.qtype=$2 ORDER BY r.id`,
		attemptID, string(OpenEnded))
}

func (s *SQLStore) listResponses(ctx context.Context, query string, args ...any) ([]Response, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Response
	for rows.Next() {
		r, err := scanResponse(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLStore) ListResponsesForUser(ctx context.Context, userID string, from, to time.Time) ([]TypedResponse, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT r.id,r.attempt_id,r.question_id,r.answer_id,r.text_answer,r.is_correct,
		   r.response_time,r.teacher_score,r.ai_score,r.ai_feedback,q.qtype
		 FROM responses r
		 JOIN attempts a ON a.id=r.attempt_id
		 JOIN questions q ON q.id=r.question_id
		 WHERE a.user_id=$1 AND a.completed_at IS NOT NULL
		   AND a.completed_at >= $2 AND a.completed_at < $3`,
		userID, from.Unix(), to.Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TypedResponse
	for rows.Next() {
		var r Response
		var ts, as sql.NullFloat64
		var qtype string
		if err := rows.Scan(&r.ID, &r.AttemptID, &r.QuestionID, &r.AnswerID, &r.TextAnswer,
			&r.IsCorrect, &r.ResponseTime, &ts, &as, &r.AIFeedback, &qtype); err != nil {
			return nil, err
		}
		r.TeacherScore = nullFloat(ts)
		r.AIScore = nullFloat(as)
		out = append(out, TypedResponse{Response: r, QuestionType: QuestionType(qtype)})
	}
	return out, rows.Err()
}

// --- scanning helpers ---

const selectAttempt = `SELECT id,user_id,quiz_id,session_id,status,score,started_at,
  last_accessed_at,completed_at,attempt_time,has_ungraded_open_ended FROM attempts`

const selectResponse = `SELECT id,attempt_id,question_id,answer_id,text_answer,is_correct,
  response_time,teacher_score,ai_score,ai_feedback FROM responses`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuestion(row rowScanner) (Question, error) {
	var q Question
	var qtype, diff string
	var created int64
	if err := row.Scan(&q.ID, &q.QuizID, &q.Text, &qtype, &diff, &created); err != nil {
		return Question{}, err
	}
	q.Type = QuestionType(qtype)
	q.Difficulty = Difficulty(diff)
	q.CreatedAt = time.Unix(created, 0)
	return q, nil
}

func scanSession(row rowScanner) (Session, error) {
	var sess Session
	var status string
	var start, end int64
	if err := row.Scan(&sess.ID, &sess.QuizID, &sess.CreatedBy, &sess.AccessCode,
		&start, &end, &status); err != nil {
		return Session{}, err
	}
	sess.StartTime = time.Unix(start, 0)
	sess.EndTime = time.Unix(end, 0)
	sess.Status = SessionStatus(status)
	return sess, nil
}

func scanAttempt(row rowScanner) (Attempt, error) {
	var a Attempt
	var status string
	var started int64
	var lastAccessed, completed sql.NullInt64
	if err := row.Scan(&a.ID, &a.UserID, &a.QuizID, &a.SessionID, &status, &a.Score,
		&started, &lastAccessed, &completed, &a.AttemptTime, &a.HasUngradedOpenEnded); err != nil {
		return Attempt{}, err
	}
	a.Status = AttemptStatus(status)
	a.StartedAt = time.Unix(started, 0)
	a.LastAccessedAt = timePtr(lastAccessed)
	a.CompletedAt = timePtr(completed)
	return a, nil
}

func scanResponse(row rowScanner) (Response, error) {
	var r Response
	var ts, as sql.NullFloat64
	if err := row.Scan(&r.ID, &r.AttemptID, &r.QuestionID, &r.AnswerID, &r.TextAnswer,
		&r.IsCorrect, &r.ResponseTime, &ts, &as, &r.AIFeedback); err != nil {
		return Response{}, err
	}
	r.TeacherScore = nullFloat(ts)
	r.AIScore = nullFloat(as)
	return r, nil
}

func unixPtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Unix()
}

func timePtr(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(v.Int64, 0)
	return &t
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
