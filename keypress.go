package concord4

import (
	"errors"
	"fmt"
)

// ErrInvalidCode is returned when a user code has anything but digits in it.
var ErrInvalidCode = errors.New("invalid code")

// Keypress is a single keypad key as the panel understands it.
type Keypress byte

// CodeToKeypresses turns a numeric user code into the keys that would be
// typed on a keypad to enter it.
func CodeToKeypresses(code string) ([]Keypress, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidCode)
	}
	keys := make([]Keypress, 0, len(code))
	for _, r := range code {
		if r < '0' || r > '9' {
			return nil, fmt.Errorf("%w: %q", ErrInvalidCode, code)
		}
		keys = append(keys, Keypress(r-'0'))
	}
	return keys, nil
}
