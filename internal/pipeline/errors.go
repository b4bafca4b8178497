package pipeline

import (
	"errors"
	"fmt"
)

// ErrSuperseded is returned under PolicyLatestWins when a newer invocation
// started before this one reached its next stage boundary.
var ErrSuperseded = errors.New("invocation superseded by a newer one")

// DecodeError means the input bytes could not be rasterized.
type DecodeError struct {
	Codec string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode failed (%s codec): %v", e.Codec, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// EncodeError means the processed buffer could not be serialized.
type EncodeError struct {
	Codec  string
	Format string
	Err    error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encode to %s failed (%s codec): %v", e.Format, e.Codec, e.Err)
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}

// StageError wraps a failure inside a preprocessing stage.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
