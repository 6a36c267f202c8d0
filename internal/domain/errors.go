package domain

import "errors"

var (
	// ErrQuestionSetNotFound indicates the quiz content could not be loaded.
	ErrQuestionSetNotFound = errors.New("question set not found")
	// ErrNoQuestions is returned when validation leaves nothing to ask.
	ErrNoQuestions = errors.New("no valid questions available")
	// ErrAttemptComplete is returned for events against a finished attempt.
	ErrAttemptComplete = errors.New("attempt already complete")
	// ErrTermsNotAccepted is returned for events before the attempt started.
	ErrTermsNotAccepted = errors.New("terms not accepted")
)
