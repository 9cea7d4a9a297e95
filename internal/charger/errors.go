package charger

import (
	"errors"
	"fmt"
)

// Sentinel errors for charger operations.
var (
	// ErrInvalidTransition is returned when an event has no transition from
	// the current state. The state is left unchanged.
	ErrInvalidTransition = errors.New("charger: invalid transition")

	// ErrDisallowed is returned when a change is structurally possible but
	// forbidden by policy, such as switching off while charging.
	ErrDisallowed = errors.New("charger: transition disallowed")

	// ErrNoConnectors is returned by New when no connector is configured.
	ErrNoConnectors = errors.New("charger: at least one connector is required")
)

// TransitionErrorKind classifies a TransitionError.
type TransitionErrorKind string

const (
	KindInvalid    TransitionErrorKind = "invalid"
	KindDisallowed TransitionErrorKind = "disallowed"
)

// TransitionError reports a rejected state change.
type TransitionError struct {
	Kind  TransitionErrorKind
	State State
	// Event is empty for administrative changes.
	Event Event
	// Target is set for administrative changes.
	Target State
}

func (e *TransitionError) Error() string {
	if e.Event != "" {
		return fmt.Sprintf("charger: %s transition: event %s in state %s", e.Kind, e.Event, e.State)
	}
	return fmt.Sprintf("charger: %s transition: %s -> %s", e.Kind, e.State, e.Target)
}

// Is matches ErrInvalidTransition or ErrDisallowed according to Kind.
func (e *TransitionError) Is(target error) bool {
	switch target {
	case ErrInvalidTransition:
		return e.Kind == KindInvalid
	case ErrDisallowed:
		return e.Kind == KindDisallowed
	}
	return false
}
