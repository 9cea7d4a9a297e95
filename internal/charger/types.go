package charger

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Identity is the opaque, immutable id of a charger.
type Identity string

// NewIdentity returns a random Identity.
func NewIdentity() Identity {
	return Identity(uuid.NewString())
}

// String returns the identity as a string.
func (id Identity) String() string {
	return string(id)
}

// ConnectorType is the physical plug standard of a connector.
type ConnectorType string

const (
	ConnectorType2   ConnectorType = "Type2"
	ConnectorCHAdeMO ConnectorType = "CHAdeMO"
	ConnectorCCS     ConnectorType = "CCS"
)

// ParseConnectorType maps a configuration string to a ConnectorType.
// Matching is case-insensitive.
func ParseConnectorType(s string) (ConnectorType, error) {
	for _, t := range []ConnectorType{ConnectorType2, ConnectorCHAdeMO, ConnectorCCS} {
		if strings.EqualFold(s, string(t)) {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown connector type %q", s)
}

// Connector describes one outlet of the charger.
type Connector struct {
	ID     string        `json:"id"`
	Type   ConnectorType `json:"type"`
	PowerW uint32        `json:"power_w"`
}

// State is the physical state of the charger.
type State string

const (
	StateAvailable State = "available"
	StateOccupied  State = "occupied"
	StateCharging  State = "charging"
	StateError     State = "error"
	StateOff       State = "off"
)

// ParseState maps a string to a State. Matching is case-insensitive.
func ParseState(s string) (State, error) {
	switch st := State(strings.ToLower(strings.TrimSpace(s))); st {
	case StateAvailable, StateOccupied, StateCharging, StateError, StateOff:
		return st, nil
	}
	return "", fmt.Errorf("unknown charger state %q", s)
}

// Title returns the display form of the state, e.g. "Charging".
func (s State) Title() string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(string(s[:1])) + string(s[1:])
}

// Event is a hardware stimulus.
type Event string

const (
	EventPlugIn  Event = "plugin"
	EventPlugOut Event = "plugout"
	EventSwipe   Event = "swipe"
)

// ParseEvent maps a string to an Event. Matching is case-insensitive.
func ParseEvent(s string) (Event, error) {
	switch ev := Event(strings.ToLower(strings.TrimSpace(s))); ev {
	case EventPlugIn, EventPlugOut, EventSwipe:
		return ev, nil
	}
	return "", fmt.Errorf("unknown charger event %q", s)
}

// Effect is the output action a transition asks the caller to perform.
// Effects are values; the charger never touches hardware itself.
type Effect string

const (
	EffectUnlocked         Effect = "unlocked"
	EffectLockedAndPowerOn Effect = "locked_and_power_on"
	EffectErrored          Effect = "errored"
)
