package mqtt

import "strings"

// DefaultPrefix is the root topic segment used when Topics.Prefix is empty.
const DefaultPrefix = "chargepoint"

// Topics builds the topic names a single charge point uses on the broker.
//
// Layout:
//
//	{prefix}/{charger}/call     requests sent by the charge point
//	{prefix}/{charger}/result   responses from the central system
//	{prefix}/{charger}/status   retained online/offline presence
//
// Usage:
//
//	t := mqtt.Topics{Prefix: "chargepoint", ChargerID: "cp-01"}
//	client.Publish(t.Call(), frame, 1, false)
type Topics struct {
	Prefix    string
	ChargerID string
}

func (t Topics) base() string {
	prefix := strings.Trim(t.Prefix, "/")
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return prefix + "/" + t.ChargerID
}

// Call is the topic outgoing request frames are published to.
func (t Topics) Call() string {
	return t.base() + "/call"
}

// Result is the topic the central system answers on.
func (t Topics) Result() string {
	return t.base() + "/result"
}

// Status is the retained presence topic, also used for the Last Will.
func (t Topics) Status() string {
	return t.base() + "/status"
}

// AllResults matches the result topic of every charger under the prefix.
// Useful for a central-system simulator serving several chargers.
func (t Topics) AllResults() string {
	return Topics{Prefix: t.Prefix, ChargerID: "+"}.Result()
}

// ChargerFromTopic extracts the charger segment from a topic built by Topics.
// Returns false if the topic does not sit under the prefix.
func (t Topics) ChargerFromTopic(topic string) (string, bool) {
	prefix := strings.Trim(t.Prefix, "/")
	if prefix == "" {
		prefix = DefaultPrefix
	}
	rest, ok := strings.CutPrefix(topic, prefix+"/")
	if !ok {
		return "", false
	}
	id, _, found := strings.Cut(rest, "/")
	if !found || id == "" {
		return "", false
	}
	return id, true
}
