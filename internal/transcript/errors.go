package transcript

import (
	"errors"
	"fmt"
)

var (
	// ErrNothingToProcess marks a recording with no transcript or no chat messages.
	// It is a terminal outcome, not a failure.
	ErrNothingToProcess = errors.New("nothing to process")

	// ErrMalformedInput marks metadata that is missing required keys or cannot be parsed.
	ErrMalformedInput = errors.New("malformed input")
)

type Stage string

const (
	StageParse   Stage = "parse"
	StageDecode  Stage = "decode"
	StageCut     Stage = "cut"
	StageWrite   Stage = "write"
	StageMark    Stage = "mark"
	StageUpload  Stage = "upload"
	StagePublish Stage = "publish"
)

// StageError reports which pipeline stage failed and, when the failure is scoped to
// one chat message, which message.
type StageError struct {
	Stage     Stage
	MessageID string
	Err       error
}

func (e *StageError) Error() string {
	if e.MessageID != "" {
		return fmt.Sprintf("%s message %s: %v", e.Stage, e.MessageID, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func malformed(format string, args ...any) error {
	return &StageError{
		Stage: StageParse,
		Err:   fmt.Errorf("%w: %s", ErrMalformedInput, fmt.Sprintf(format, args...)),
	}
}
