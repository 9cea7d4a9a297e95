package charger

import (
	"fmt"
	"slices"
	"sync"
	"time"
)

// Cause records what drove a state change.
type Cause string

const (
	// CauseEvent is a change driven by a hardware event through the table.
	CauseEvent Cause = "event"
	// CauseRecovery is the timed return from Error.
	CauseRecovery Cause = "recovery"
	// CauseAdmin is an administrative override or availability change.
	CauseAdmin Cause = "admin"
)

// Change describes one completed state change.
type Change struct {
	From   State     `json:"from"`
	To     State     `json:"to"`
	Event  Event     `json:"event,omitempty"`
	Effect Effect    `json:"effect,omitempty"`
	Cause  Cause     `json:"cause"`
	At     time.Time `json:"at"`
}

// Options configures a Charger.
type Options struct {
	// ID identifies the charger. A random id is generated when empty.
	ID Identity

	// Connectors is the ordered, non-empty list of outlets.
	Connectors []Connector

	// Initial is the boot state. Default: StateAvailable.
	Initial State

	// Clock returns the current time. Default: time.Now.
	Clock func() time.Time
}

// Charger holds the state of one charge point.
//
// All state reads and writes happen under a single mutex, so a transition is
// an atomic read-modify-write and concurrent readers never observe a partial
// update. Connectors are fixed at construction.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type Charger struct {
	id         Identity
	connectors []Connector
	now        func() time.Time

	mu    sync.Mutex
	state State
}

// New creates a Charger in its initial state.
//
// Returns:
//   - *Charger: Ready for use
//   - error: ErrNoConnectors if none configured, or an unknown initial state
func New(opts Options) (*Charger, error) {
	if len(opts.Connectors) == 0 {
		return nil, ErrNoConnectors
	}

	initial := opts.Initial
	if initial == "" {
		initial = StateAvailable
	}
	if _, err := ParseState(string(initial)); err != nil {
		return nil, fmt.Errorf("initial state: %w", err)
	}

	id := opts.ID
	if id == "" {
		id = NewIdentity()
	}

	now := opts.Clock
	if now == nil {
		now = time.Now
	}

	return &Charger{
		id:         id,
		connectors: slices.Clone(opts.Connectors),
		now:        now,
		state:      initial,
	}, nil
}

// ID returns the charger identity.
func (c *Charger) ID() Identity {
	return c.id
}

// Connectors returns a copy of the connector list.
func (c *Charger) Connectors() []Connector {
	return slices.Clone(c.connectors)
}

// State returns a snapshot of the current state.
func (c *Charger) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Apply feeds event through the transition table.
//
// On success the new state is stored and the resulting Change returned. On
// failure the state is untouched and the error matches ErrInvalidTransition.
func (c *Charger) Apply(event Event) (Change, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	next, effect, err := Transition(c.state, event)
	if err != nil {
		return Change{}, err
	}

	change := Change{
		From:   c.state,
		To:     next,
		Event:  event,
		Effect: effect,
		Cause:  CauseEvent,
		At:     c.now(),
	}
	c.state = next
	return change, nil
}

// ForceState sets the state without consulting the table. It is an
// administrative override and always succeeds.
func (c *Charger) ForceState(state State) Change {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.setLocked(state, CauseAdmin)
}

// RecoverFromError moves the charger to target only if it is still in
// StateError. It reports whether the change happened.
func (c *Charger) RecoverFromError(target State) (Change, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateError {
		return Change{}, false
	}
	return c.setLocked(target, CauseRecovery), true
}

// SetAvailability takes the charger out of service (available=false) or
// returns it to service (available=true).
//
// Going out of service moves any state except Charging to StateOff; while
// Charging it fails with ErrDisallowed. Returning to service moves StateOff to
// StateAvailable. In every other case the call is a no-op and reports false.
func (c *Charger) SetAvailability(available bool) (Change, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if available {
		if c.state != StateOff {
			return Change{}, false, nil
		}
		return c.setLocked(StateAvailable, CauseAdmin), true, nil
	}

	switch c.state {
	case StateOff:
		return Change{}, false, nil
	case StateCharging:
		return Change{}, false, &TransitionError{Kind: KindDisallowed, State: c.state, Target: StateOff}
	default:
		return c.setLocked(StateOff, CauseAdmin), true, nil
	}
}

// setLocked stores state. Caller must hold c.mu.
func (c *Charger) setLocked(state State, cause Cause) Change {
	change := Change{From: c.state, To: state, Cause: cause, At: c.now()}
	c.state = state
	return change
}
