package dispatch

import (
	"github.com/lorenzodonini/ocpp-go/ocpp1.6/core"

	"github.com/nerrad567/chargepoint-core/internal/charger"
)

// Display layout.
const (
	// DisplayTitle is the first display line.
	DisplayTitle = "EV Charger"

	// maxMessageLen is the width of the message line in characters.
	maxMessageLen = 16
)

var stateMessages = map[charger.State]string{
	charger.StateAvailable: "Plug in cable",
	charger.StateOccupied:  "Swipe to charge",
	charger.StateCharging:  "Swipe to stop",
	charger.StateError:     "Cable removed!",
	charger.StateOff:       "Out of service",
}

// DisplayLines builds the four display lines for state: title, address,
// capitalised state and a short prompt.
func DisplayLines(address string, state charger.State) []string {
	return []string{
		DisplayTitle,
		address,
		state.Title(),
		limit(stateMessages[state], maxMessageLen),
	}
}

func limit(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// StatusFor maps a charger state to the OCPP 1.6 connector status.
func StatusFor(state charger.State) core.ChargePointStatus {
	switch state {
	case charger.StateAvailable:
		return core.ChargePointStatusAvailable
	case charger.StateOccupied:
		return core.ChargePointStatusPreparing
	case charger.StateCharging:
		return core.ChargePointStatusCharging
	case charger.StateError:
		return core.ChargePointStatusFaulted
	default:
		return core.ChargePointStatusUnavailable
	}
}
