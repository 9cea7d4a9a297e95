// Package charger models the physical state of a charge point.
//
// The state machine is a fixed table:
//
//	Available + PlugIn  -> Occupied  (Unlocked)
//	Occupied  + PlugOut -> Available (Unlocked)
//	Occupied  + Swipe   -> Charging  (LockedAndPowerOn)
//	Charging  + Swipe   -> Occupied  (Unlocked)
//	Charging  + PlugOut -> Error     (Errored)
//
// Every other (state, event) pair is invalid and leaves the state unchanged.
// Transition evaluates the table without side effects; Charger wraps it in a
// mutex-guarded cell that is shared by pointer between the goroutines that
// feed events and the ones that read state.
//
// Effects are plain values returned to the caller. Driving relays, locks or
// displays is the caller's job.
//
// # Administrative changes
//
// ForceState, RecoverFromError and SetAvailability change state outside the
// table. RecoverFromError re-reads the state under the lock so a delayed
// recovery cannot overwrite a state entered after the error.
package charger
