package dispatch

import (
	"context"
	"time"

	"github.com/lorenzodonini/ocpp-go/ocpp1.6/core"

	"github.com/nerrad567/chargepoint-core/internal/charger"
	"github.com/nerrad567/chargepoint-core/internal/protocol"
)

// RunHardware consumes hardware events until ctx is cancelled.
//
// Each event is applied to the charger. Invalid events are logged and leave
// both state and hardware untouched.
func (d *Dispatcher) RunHardware(ctx context.Context) {
	d.logger.Info("hardware loop started")
	defer d.logger.Info("hardware loop stopped")

	for {
		ev, err := d.events.PopContext(ctx)
		if err != nil {
			return
		}
		d.handleEvent(ev)
	}
}

func (d *Dispatcher) handleEvent(ev charger.Event) {
	d.changeMu.Lock()
	defer d.changeMu.Unlock()

	change, err := d.charger.Apply(ev)
	if err != nil {
		d.logger.Warn("ignoring hardware event",
			"event", ev,
			"state", d.charger.State(),
			"error", err)
		return
	}

	d.logger.Info("charger state changed",
		"from", change.From,
		"to", change.To,
		"event", change.Event,
		"effect", change.Effect)

	d.afterChange(change)
}

// SetAvailability takes the charger out of service or returns it to service.
// It fails with charger.ErrDisallowed while charging.
func (d *Dispatcher) SetAvailability(available bool) error {
	d.changeMu.Lock()
	defer d.changeMu.Unlock()

	change, changed, err := d.charger.SetAvailability(available)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}

	d.logger.Info("charger availability changed", "from", change.From, "to", change.To)
	d.afterChange(change)
	return nil
}

// ForceState overrides the charger state without validation.
func (d *Dispatcher) ForceState(state charger.State) {
	d.changeMu.Lock()
	defer d.changeMu.Unlock()

	change := d.charger.ForceState(state)
	d.logger.Warn("charger state forced", "from", change.From, "to", change.To)
	d.afterChange(change)
}

// afterChange performs the work that follows a state change. Caller must
// hold d.changeMu.
func (d *Dispatcher) afterChange(change charger.Change) {
	d.show(change.To, outputLevel(change))

	d.updateTransaction(change)

	if change.To == charger.StateError {
		d.scheduleRecovery()
	}

	d.notifyStateChange(change)
}

// Refresh re-applies the effects for the current state without changing
// it. Used at startup to put the display and relay in a known condition.
func (d *Dispatcher) Refresh() {
	d.changeMu.Lock()
	defer d.changeMu.Unlock()

	state := d.charger.State()
	d.show(state, state == charger.StateCharging)
}

func (d *Dispatcher) show(state charger.State, output bool) {
	d.effects.SetOutput(output)
	if ind, ok := d.effects.(Indicator); ok {
		ind.SetIndicator(state)
	}
	d.effects.RenderText(DisplayLines(d.address, state))
}

// outputLevel is the relay level after change.
func outputLevel(change charger.Change) bool {
	if change.Effect != "" {
		return change.Effect == charger.EffectLockedAndPowerOn
	}
	return change.To == charger.StateCharging
}

// updateTransaction opens a transaction on entering Charging and closes it on
// leaving.
func (d *Dispatcher) updateTransaction(change charger.Change) {
	switch {
	case change.To == charger.StateCharging && change.From != charger.StateCharging:
		d.startTransaction(change)
	case change.From == charger.StateCharging && change.To != charger.StateCharging:
		reason := core.ReasonLocal
		if change.Effect == charger.EffectErrored {
			reason = core.ReasonEVDisconnected
		}
		d.stopTransaction(change, reason)
	}
}

func (d *Dispatcher) startTransaction(change charger.Change) {
	meter := d.readMeter()

	d.sessionMu.Lock()
	d.session.TransactionActive = true
	d.session.HasTransactionID = false
	d.session.TransactionID = 0
	d.session.MeterStart = meter
	d.session.StartedAt = change.At
	d.sessionMu.Unlock()

	d.enqueue(protocol.ActionStartTransaction,
		protocol.StartTransaction(d.connectorID, d.idTag, meter, change.At))
}

func (d *Dispatcher) stopTransaction(change charger.Change, reason core.Reason) {
	d.sessionMu.Lock()
	s := d.session
	d.session.TransactionActive = false
	d.sessionMu.Unlock()

	if !s.TransactionActive {
		return
	}
	if !s.HasTransactionID {
		d.logger.Warn("stopping transaction before StartTransaction was confirmed")
	}

	meter := d.readMeter()
	d.enqueue(protocol.ActionStopTransaction,
		protocol.StopTransaction(s.TransactionID, d.idTag, meter, change.At, reason))

	d.notifySessionEnd(SessionEnd{
		TransactionID:    s.TransactionID,
		HasTransactionID: s.HasTransactionID,
		IDTag:            d.idTag,
		MeterStart:       s.MeterStart,
		MeterStop:        meter,
		Reason:           string(reason),
		StartedAt:        s.StartedAt,
		StoppedAt:        change.At,
	})
}

func (d *Dispatcher) readMeter() int {
	if d.meter == nil {
		return 0
	}
	return d.meter.EnergyWh()
}

// scheduleRecovery arms the Error timeout. Re-arming supersedes a pending
// timer.
func (d *Dispatcher) scheduleRecovery() {
	d.recoveryMu.Lock()
	defer d.recoveryMu.Unlock()

	if d.recovery != nil {
		d.recovery.Stop()
	}
	d.recoveryGen++
	gen := d.recoveryGen
	d.recovery = time.AfterFunc(d.recoveryDelay, func() { d.recoverFromError(gen) })

	d.logger.Info("error recovery scheduled", "delay", d.recoveryDelay)
}

func (d *Dispatcher) recoverFromError(gen uint64) {
	d.recoveryMu.Lock()
	current := gen == d.recoveryGen
	if current {
		d.recovery = nil
	}
	d.recoveryMu.Unlock()
	if !current {
		return
	}

	d.changeMu.Lock()
	defer d.changeMu.Unlock()

	change, ok := d.charger.RecoverFromError(charger.StateAvailable)
	if !ok {
		d.logger.Debug("error recovery skipped", "state", d.charger.State())
		return
	}

	d.logger.Info("charger recovered from error", "to", change.To)
	d.afterChange(change)
}
