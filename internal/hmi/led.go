package hmi

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nerrad567/chargepoint-core/internal/charger"
)

// LED is the status light colour.
type LED string

const (
	LEDGreen  LED = "green"
	LEDYellow LED = "yellow"
	LEDBlue   LED = "blue"
	LEDRed    LED = "red"
	LEDDark   LED = "dark"
)

// LEDFor returns the light colour shown in state.
func LEDFor(state charger.State) LED {
	switch state {
	case charger.StateAvailable:
		return LEDGreen
	case charger.StateOccupied:
		return LEDYellow
	case charger.StateCharging:
		return LEDBlue
	case charger.StateError:
		return LEDRed
	default:
		return LEDDark
	}
}

// ansi maps an LED to a 16-colour terminal palette entry.
func (l LED) ansi() lipgloss.Color {
	switch l {
	case LEDGreen:
		return lipgloss.Color("10")
	case LEDYellow:
		return lipgloss.Color("11")
	case LEDBlue:
		return lipgloss.Color("12")
	case LEDRed:
		return lipgloss.Color("9")
	default:
		return lipgloss.Color("240")
	}
}
