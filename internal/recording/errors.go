package recording

import (
	"errors"
	"fmt"
)

var (
	ErrNoSurface     = errors.New("no render surface")
	ErrNoEncoder     = errors.New("no encoder")
	ErrSessionActive = errors.New("a recording is already active")
	ErrSessionUsed   = errors.New("recording session already used")
	ErrNotStarted    = errors.New("recording not started")
	ErrInvalidSize   = errors.New("capture surface has no area")
	ErrUnknownFormat = errors.New("unknown output format")
)

// Kind classifies a recording failure.
type Kind int

const (
	// KindPrecondition means the operation was refused; no state changed.
	KindPrecondition Kind = iota + 1
	// KindInput means the session configuration is invalid.
	KindInput
	// KindEncoder means the encoder failed; the session is stopped.
	KindEncoder
	// KindCapture means the surface could not be captured; the session is stopped.
	KindCapture
)

func (k Kind) String() string {
	switch k {
	case KindPrecondition:
		return "precondition"
	case KindInput:
		return "input"
	case KindEncoder:
		return "encoder"
	case KindCapture:
		return "capture"
	default:
		return "unknown"
	}
}

// Error is returned by Session operations.
type Error struct {
	Op   string
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("recording %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsPrecondition reports whether err is a refused operation.
func IsPrecondition(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindPrecondition
}

func precondition(op string, err error) error {
	return &Error{Op: op, Kind: KindPrecondition, Err: err}
}
