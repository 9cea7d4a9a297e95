// Package meter provides energy registers for transaction meter readings.
package meter

import (
	"sync"
	"time"

	"github.com/nerrad567/chargepoint-core/internal/charger"
)

// Simulated is an energy register that counts the connector's rated power
// for as long as the charger is in Charging.
//
// Thread Safety: All methods are safe for concurrent use.
type Simulated struct {
	powerW float64
	now    func() time.Time

	mu            sync.Mutex
	wh            float64
	charging      bool
	chargingSince time.Time
}

// NewSimulated returns a register starting at startWh. clock may be nil.
func NewSimulated(powerW uint32, startWh int, clock func() time.Time) *Simulated {
	if clock == nil {
		clock = time.Now
	}
	return &Simulated{powerW: float64(powerW), now: clock, wh: float64(startWh)}
}

// Observe follows the charger in and out of Charging. Register it with
// Dispatcher.OnStateChange.
func (m *Simulated) Observe(c charger.Change) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case c.To == charger.StateCharging && !m.charging:
		m.charging = true
		m.chargingSince = c.At
	case c.To != charger.StateCharging && m.charging:
		m.wh += m.energySince(c.At)
		m.charging = false
	}
}

// EnergyWh returns the register, including any charging still in progress.
func (m *Simulated) EnergyWh() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	wh := m.wh
	if m.charging {
		wh += m.energySince(m.now())
	}
	return int(wh)
}

// energySince is the energy delivered since chargingSince. Caller holds mu.
func (m *Simulated) energySince(t time.Time) float64 {
	d := t.Sub(m.chargingSince)
	if d <= 0 {
		return 0
	}
	return m.powerW * d.Hours()
}
