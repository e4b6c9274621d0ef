package domain

import "errors"

var (
	// ErrQuestionNotFound is returned when a question id has no ground truth.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrSessionNotFound is returned when no session was started for a question.
	ErrSessionNotFound = errors.New("question session not found")
	// ErrMalformedSubmission indicates a payload that could not be normalized.
	ErrMalformedSubmission = errors.New("malformed submission")
	// ErrIdentityMismatch indicates a scene/video tag that does not belong to
	// the question. Always wrapped by ErrMalformedSubmission.
	ErrIdentityMismatch = errors.New("scene/video does not match question")
)
