package hmi

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nerrad567/chargepoint-core/internal/charger"
	"github.com/nerrad567/chargepoint-core/internal/dispatch"
)

var (
	_ dispatch.Effects   = (*Terminal)(nil)
	_ dispatch.Indicator = (*Terminal)(nil)
)

func TestLEDFor(t *testing.T) {
	tests := []struct {
		state charger.State
		want  LED
	}{
		{charger.StateAvailable, LEDGreen},
		{charger.StateOccupied, LEDYellow},
		{charger.StateCharging, LEDBlue},
		{charger.StateError, LEDRed},
		{charger.StateOff, LEDDark},
	}

	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			assert.Equal(t, tt.want, LEDFor(tt.state))
		})
	}
}

func TestTerminal_Render(t *testing.T) {
	var buf bytes.Buffer
	term := NewTerminal(&buf)

	term.SetOutput(true)
	term.SetIndicator(charger.StateCharging)
	term.RenderText(dispatch.DisplayLines("10.0.0.7", charger.StateCharging))

	out := buf.String()
	for _, want := range []string{"EV Charger", "10.0.0.7", "Charging", "Swipe to stop", "blue", "POWER ON"} {
		assert.Contains(t, out, want)
	}

	lines, led, output := term.Snapshot()
	assert.Equal(t, []string{"EV Charger", "10.0.0.7", "Charging", "Swipe to stop"}, lines)
	assert.Equal(t, LEDBlue, led)
	assert.True(t, output)
}

func TestTerminal_RedrawsOnEachRender(t *testing.T) {
	var buf bytes.Buffer
	term := NewTerminal(&buf)

	term.RenderText([]string{"EV Charger", "", "Available", "Plug in cable"})
	first := buf.Len()
	term.SetOutput(false)
	term.SetIndicator(charger.StateError)
	term.RenderText([]string{"EV Charger", "", "Error", "Cable removed!"})

	assert.Greater(t, buf.Len(), first)
	assert.Contains(t, buf.String()[first:], "Cable removed!")
	assert.Contains(t, buf.String()[first:], "power off")
	assert.Contains(t, buf.String()[first:], "red")
}

func TestTerminal_SnapshotIsCopy(t *testing.T) {
	term := NewTerminal(&bytes.Buffer{})
	term.RenderText([]string{"a", "b"})

	lines, _, _ := term.Snapshot()
	lines[0] = "changed"

	again, _, _ := term.Snapshot()
	assert.Equal(t, "a", again[0])
}
