package integration

import (
	"errors"
	"fmt"
)

var (
	// ErrNotReady means the panel could not be reached during setup, and
	// setup should be retried later.
	ErrNotReady      = errors.New("config entry not ready")
	ErrAlreadyLoaded = errors.New("config entry already loaded")
	ErrNotLoaded     = errors.New("config entry not loaded")
)

// PanelError is a local error caused by what the user asked for, like
// arming without a code.
type PanelError struct {
	Message string
}

func (e *PanelError) Error() string {
	return e.Message
}

func codeRequired(action string) error {
	return &PanelError{Message: fmt.Sprintf("Code required to %s", action)}
}
