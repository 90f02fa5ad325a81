package quiz

import "errors"

// Not-found family.
var (
	ErrQuizNotFound     = errors.New("quiz not found")
	ErrQuestionNotFound = errors.New("question not found")
	ErrAnswerNotFound   = errors.New("answer not found")
	ErrAttemptNotFound  = errors.New("attempt not found")
	ErrResponseNotFound = errors.New("response not found")
	ErrSessionNotFound  = errors.New("session not found")
	ErrUserNotFound     = errors.New("user not found")
)

// Invalid-state family.
var (
	ErrQuizNotActive        = errors.New("quiz is not active")
	ErrAttemptNotActive     = errors.New("attempt is no longer in progress")
	ErrResultsNotReady      = errors.New("attempt results are not available until the quiz is submitted")
	ErrInvalidAccessCode    = errors.New("invalid access code")
	ErrSessionExpired       = errors.New("quiz session has expired")
	ErrSessionNotStarted    = errors.New("quiz session has not started yet")
	ErrQuizMismatch         = errors.New("access code does not match this quiz")
	ErrSessionAlreadyActive = errors.New("an active session already exists for this quiz")
	ErrNotQuizOwner         = errors.New("sessions can only be created for your own quizzes")
)

// Validation family.
var (
	ErrNoAnswerSelected    = errors.New("no answers submitted for this question")
	ErrTooManySelections   = errors.New("single choice question must have only one selected answer")
	ErrAnswerMismatch      = errors.New("answer does not belong to this question")
	ErrQuestionMismatch    = errors.New("question does not belong to this quiz")
	ErrMissingTextResponse = errors.New("text response is required for open-ended questions")
	ErrInvalidScore        = errors.New("score must be between 0 and 1")
	ErrMissingRubric       = errors.New("no rubric answer found for this question")
)

// IsNotFound reports whether err belongs to the not-found family.
func IsNotFound(err error) bool {
	for _, e := range []error{
		ErrQuizNotFound, ErrQuestionNotFound, ErrAnswerNotFound,
		ErrAttemptNotFound, ErrResponseNotFound, ErrSessionNotFound,
		ErrUserNotFound,
	} {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}

// IsInvalidState reports whether err belongs to the invalid-state family.
func IsInvalidState(err error) bool {
	for _, e := range []error{
		ErrQuizNotActive, ErrAttemptNotActive, ErrResultsNotReady,
		ErrInvalidAccessCode, ErrSessionExpired, ErrSessionNotStarted,
		ErrQuizMismatch, ErrSessionAlreadyActive, ErrNotQuizOwner,
	} {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}

// IsValidation reports whether err belongs to the validation family.
func IsValidation(err error) bool {
	for _, e := range []error{
		ErrNoAnswerSelected, ErrTooManySelections, ErrAnswerMismatch,
		ErrQuestionMismatch, ErrMissingTextResponse, ErrInvalidScore,
		ErrMissingRubric,
	} {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}
