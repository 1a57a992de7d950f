package header

import "fmt"

// MalformedReason explains why a question column could not be classified.
type MalformedReason string

const (
	// ReasonUnrecognizedBracket: the field contains "[" but neither the
	// compact nor the spaced bracket form.
	ReasonUnrecognizedBracket MalformedReason = "UNRECOGNIZED_BRACKET"
	// ReasonInvalidQuestionNumber: the token before the text is not a question number.
	ReasonInvalidQuestionNumber MalformedReason = "INVALID_QUESTION_NUMBER"
	// ReasonMissingQuestionText: the question number has no text after it.
	ReasonMissingQuestionText MalformedReason = "MISSING_QUESTION_TEXT"
)

// MalformedColumnError reports a "Q" column that fits neither question shape.
type MalformedColumnError struct {
	Position int    // zero-based column index; set by Normalizer
	Raw      string // the field as it appeared in the header
	Reason   MalformedReason
	Output   string // best-effort name written in permissive mode
}

func (e *MalformedColumnError) Error() string {
	return fmt.Sprintf("malformed column %d %q: %s", e.Position, e.Raw, e.Reason)
}

func malformed(raw string, reason MalformedReason) *MalformedColumnError {
	return &MalformedColumnError{Raw: raw, Reason: reason}
}
