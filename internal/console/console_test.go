package console

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/nerrad567/chargepoint-core/internal/charger"
	"github.com/nerrad567/chargepoint-core/internal/dispatch"
)

type fakeController struct {
	events       []charger.Event
	availability []bool
	state        charger.State
	session      dispatch.Session
	availErr     error
}

func (f *fakeController) PushHardwareEvent(ev charger.Event) { f.events = append(f.events, ev) }

func (f *fakeController) SetAvailability(available bool) error {
	if f.availErr != nil {
		return f.availErr
	}
	f.availability = append(f.availability, available)
	if available {
		f.state = charger.StateAvailable
	} else {
		f.state = charger.StateOff
	}
	return nil
}

func (f *fakeController) CurrentState() charger.State { return f.state }
func (f *fakeController) Session() dispatch.Session   { return f.session }

func TestExecute_HardwareEvents(t *testing.T) {
	ctrl := &fakeController{state: charger.StateAvailable}
	var out bytes.Buffer

	for _, line := range []string{"plugin", "  SWIPE ", "plugout"} {
		assert.False(t, execute(ctrl, &out, line))
	}

	assert.Equal(t, []charger.Event{charger.EventPlugIn, charger.EventSwipe, charger.EventPlugOut}, ctrl.events)
	assert.Contains(t, out.String(), "queued plugin")
}

func TestExecute_Availability(t *testing.T) {
	ctrl := &fakeController{state: charger.StateAvailable}
	var out bytes.Buffer

	execute(ctrl, &out, "off")
	execute(ctrl, &out, "on")

	assert.Equal(t, []bool{false, true}, ctrl.availability)
	assert.Contains(t, out.String(), "Off")
	assert.Contains(t, out.String(), "Available")
}

func TestExecute_AvailabilityRefused(t *testing.T) {
	ctrl := &fakeController{state: charger.StateCharging, availErr: charger.ErrDisallowed}
	var out bytes.Buffer

	execute(ctrl, &out, "off")

	assert.Contains(t, out.String(), "cannot go off")
	assert.Empty(t, ctrl.availability)
}

func TestExecute_StateAndSession(t *testing.T) {
	ctrl := &fakeController{
		state: charger.StateCharging,
		session: dispatch.Session{
			Registration:      "Accepted",
			HeartbeatInterval: 30 * time.Second,
			TransactionActive: true,
			TransactionID:     77,
			HasTransactionID:  true,
			MeterStart:        1200,
		},
	}
	var out bytes.Buffer

	execute(ctrl, &out, "state")
	execute(ctrl, &out, "session")

	s := out.String()
	assert.Contains(t, s, "Charging")
	assert.Contains(t, s, "registration: Accepted")
	assert.Contains(t, s, "heartbeat:    30s")
	assert.Contains(t, s, "transaction:  77 (meter start 1200 Wh)")
}

func TestExecute_SessionWithoutResponses(t *testing.T) {
	var out bytes.Buffer
	execute(&fakeController{}, &out, "session")

	assert.Contains(t, out.String(), "(no response)")
	assert.Contains(t, out.String(), "transaction:  none")
}

func TestExecute_QuitHelpAndUnknown(t *testing.T) {
	ctrl := &fakeController{}
	var out bytes.Buffer

	assert.False(t, execute(ctrl, &out, ""))
	assert.False(t, execute(ctrl, &out, "help"))
	assert.Contains(t, out.String(), "Commands:")

	assert.False(t, execute(ctrl, &out, "dance"))
	assert.Contains(t, out.String(), `unknown command "dance"`)

	assert.True(t, execute(ctrl, &out, "quit"))
	assert.True(t, execute(ctrl, &out, "EXIT"))
	assert.Empty(t, ctrl.events)
}
