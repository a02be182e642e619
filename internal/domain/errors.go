package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrBankNotFound is returned when the question source does not exist.
	ErrBankNotFound = errors.New("question bank not found")
	// ErrBankMalformed is returned when the source is not a list of entries at all.
	ErrBankMalformed = errors.New("question bank is malformed")
	// ErrNoQuestions indicates there is nothing to build a quiz from.
	ErrNoQuestions = errors.New("no questions available")
	// ErrVisitorNotFound is returned by session stores for unknown visitor ids.
	ErrVisitorNotFound = errors.New("visitor not found")
)

// ValidationError reports the first malformed entry of a question bank.
type ValidationError struct {
	Index      int    // zero-based position of the entry in the source
	QuestionID string // empty when the id itself is missing or invalid
	Field      string
	Reason     string
}

func (e *ValidationError) Error() string {
	if e.QuestionID != "" {
		return fmt.Sprintf("invalid question %q (entry %d): %s: %s", e.QuestionID, e.Index, e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid question (entry %d): %s: %s", e.Index, e.Field, e.Reason)
}
