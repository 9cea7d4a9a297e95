package charger

type transitionKey struct {
	state State
	event Event
}

type outcome struct {
	next   State
	effect Effect
}

// table is the complete set of event-driven transitions. Any pair not listed
// is invalid.
var table = map[transitionKey]outcome{
	{StateAvailable, EventPlugIn}: {StateOccupied, EffectUnlocked},
	{StateOccupied, EventPlugOut}: {StateAvailable, EffectUnlocked},
	{StateOccupied, EventSwipe}:   {StateCharging, EffectLockedAndPowerOn},
	{StateCharging, EventSwipe}:   {StateOccupied, EffectUnlocked},
	{StateCharging, EventPlugOut}: {StateError, EffectErrored},
}

// Transition returns the state and effect that event produces in state.
// It has no side effects. Pairs outside the table fail with a
// *TransitionError matching ErrInvalidTransition.
func Transition(state State, event Event) (State, Effect, error) {
	out, ok := table[transitionKey{state, event}]
	if !ok {
		return state, "", &TransitionError{Kind: KindInvalid, State: state, Event: event}
	}
	return out.next, out.effect, nil
}
