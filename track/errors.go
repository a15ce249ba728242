package track

import (
	"errors"
	"fmt"
)

// ErrInvariant is wrapped by every error reporting an impossible FSM state.
var ErrInvariant = errors.New("track: invariant violation")

// InvariantViolation is returned by Tick when a mode handler finds its axis
// in a state it has no transition for.
type InvariantViolation struct {
	Mode  Mode
	Axis  string
	State int
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("track: %v: %s in unknown state %d", e.Mode, e.Axis, e.State)
}

func (e *InvariantViolation) Unwrap() error {
	return ErrInvariant
}
