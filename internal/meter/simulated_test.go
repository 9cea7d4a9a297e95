package meter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/nerrad567/chargepoint-core/internal/charger"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func TestSimulated_IntegratesChargingTime(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	m := NewSimulated(22000, 1000, clock.now)

	assert.Equal(t, 1000, m.EnergyWh())

	m.Observe(charger.Change{From: charger.StateOccupied, To: charger.StateCharging, At: clock.t})
	clock.t = clock.t.Add(30 * time.Minute)
	assert.Equal(t, 12000, m.EnergyWh(), "in-progress charging counts")

	m.Observe(charger.Change{From: charger.StateCharging, To: charger.StateOccupied, At: clock.t})
	clock.t = clock.t.Add(time.Hour)
	assert.Equal(t, 12000, m.EnergyWh(), "register holds while idle")
}

func TestSimulated_IgnoresUnrelatedChanges(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	m := NewSimulated(7000, 0, clock.now)

	m.Observe(charger.Change{From: charger.StateAvailable, To: charger.StateOccupied, At: clock.t})
	m.Observe(charger.Change{From: charger.StateOccupied, To: charger.StateError, At: clock.t})
	clock.t = clock.t.Add(time.Hour)

	assert.Equal(t, 0, m.EnergyWh())
}

func TestSimulated_ClockSkewNeverSubtracts(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	m := NewSimulated(7000, 500, clock.now)

	m.Observe(charger.Change{To: charger.StateCharging, At: clock.t})
	clock.t = clock.t.Add(-time.Minute)

	assert.Equal(t, 500, m.EnergyWh())
}
