package domain

import "errors"

var (
	// ErrSessionNotFound is returned when no quiz session record exists yet.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrNoQuestions is returned when the operator starts a quiz without questions.
	ErrNoQuestions = errors.New("no questions available")
	// ErrQuestionNotFound indicates a question ID is unknown.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrQuizActive guards operations that require an idle session (start, upload).
	ErrQuizActive = errors.New("quiz already active")
	// ErrWrongPhase rejects a submission arriving outside the question phase.
	ErrWrongPhase = errors.New("submission rejected: not in question phase")
	// ErrWrongQuestion rejects a submission for a question that is not current.
	ErrWrongQuestion = errors.New("submission rejected: question not current")
	// ErrInvalidOption rejects a submission whose option is not one of A-D.
	ErrInvalidOption = errors.New("submission rejected: invalid option")
	// ErrRegistrationClosed is returned when a new user connects while registration is closed.
	ErrRegistrationClosed = errors.New("registration closed")
	// ErrNotAdmin is returned by the command boundary for unauthorized operator frames.
	ErrNotAdmin = errors.New("operator command requires admin")
)
