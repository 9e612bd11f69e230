package tabs

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrTabNotFound = errors.New("tab not found")
	// ErrRestoreInProgress rejects mutations while a restore is rebuilding the tab list.
	ErrRestoreInProgress = errors.New("restore in progress")
	ErrManagerClosed     = errors.New("tab manager is closed")
)

// InvariantViolation describes persisted state that broke a registry
// invariant and was repaired during restore.
type InvariantViolation struct {
	WindowID uuid.UUID
	TabID    uuid.UUID
	Detail   string
}

func (v *InvariantViolation) Error() string {
	if v.TabID != uuid.Nil {
		return fmt.Sprintf("window %s, tab %s: %s", v.WindowID, v.TabID, v.Detail)
	}
	return fmt.Sprintf("window %s: %s", v.WindowID, v.Detail)
}
