package session

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrWindowNotFound  = errors.New("window snapshot not found")
	ErrImageNotFound   = errors.New("thumbnail not found")
	ErrCorruptSnapshot = errors.New("snapshot is corrupt")
	ErrStoreClosed     = errors.New("store is closed")
)

// ErrorKind classifies storage failures
type ErrorKind int

const (
	ReadError ErrorKind = iota
	WriteError
)

// String returns the string representation of the kind
func (k ErrorKind) String() string {
	switch k {
	case ReadError:
		return "read"
	case WriteError:
		return "write"
	default:
		return "unknown"
	}
}

// StorageError reports a failed storage operation. WindowID is uuid.Nil for
// operations that are not scoped to one window.
type StorageError struct {
	Op       string
	Kind     ErrorKind
	WindowID uuid.UUID
	Err      error
}

func (e *StorageError) Error() string {
	if e.WindowID != uuid.Nil {
		return fmt.Sprintf("%s %s (window %s): %v", e.Kind, e.Op, e.WindowID, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Kind, e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func readErr(op string, windowID uuid.UUID, err error) error {
	return &StorageError{Op: op, Kind: ReadError, WindowID: windowID, Err: err}
}

func writeErr(op string, windowID uuid.UUID, err error) error {
	return &StorageError{Op: op, Kind: WriteError, WindowID: windowID, Err: err}
}

// IsWriteError reports whether err is a storage write failure.
func IsWriteError(err error) bool {
	var se *StorageError
	return errors.As(err, &se) && se.Kind == WriteError
}
