package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementState   = "charger_state"
	MeasurementMessage = "charger_message"
	MeasurementSession = "charger_session"
)

// StateChange is one charger state transition.
type StateChange struct {
	ChargerID string
	From      string
	To        string
	Event     string
	Effect    string
	Cause     string
	At        time.Time
}

// Message is one protocol frame crossing the transport.
type Message struct {
	ChargerID string
	Direction string
	Kind      string
	Action    string
	At        time.Time
}

// Session summarises a finished charging transaction.
type Session struct {
	ChargerID     string
	TransactionID int
	IDTag         string
	EnergyWh      int
	Duration      time.Duration
	Reason        string
	At            time.Time
}

// WriteStateChange records a transition. States and cause are tags so
// dashboards can group by them; event and effect are fields as they may
// be empty for admin changes.
func (c *Client) WriteStateChange(sc StateChange) {
	c.write(write.NewPoint(
		MeasurementState,
		map[string]string{
			"charger_id": sc.ChargerID,
			"from":       sc.From,
			"to":         sc.To,
			"cause":      sc.Cause,
		},
		map[string]any{
			"event":  sc.Event,
			"effect": sc.Effect,
		},
		timestamp(sc.At),
	))
}

// WriteMessage records one protocol frame.
func (c *Client) WriteMessage(m Message) {
	c.write(write.NewPoint(
		MeasurementMessage,
		map[string]string{
			"charger_id": m.ChargerID,
			"direction":  m.Direction,
			"kind":       m.Kind,
			"action":     m.Action,
		},
		map[string]any{"count": 1},
		timestamp(m.At),
	))
}

// WriteSession records the energy delivered by a completed transaction.
func (c *Client) WriteSession(s Session) {
	tags := map[string]string{"charger_id": s.ChargerID}
	if s.Reason != "" {
		tags["reason"] = s.Reason
	}
	c.write(write.NewPoint(
		MeasurementSession,
		tags,
		map[string]any{
			"transaction_id":   s.TransactionID,
			"id_tag":           s.IDTag,
			"energy_wh":        s.EnergyWh,
			"duration_seconds": s.Duration.Seconds(),
		},
		timestamp(s.At),
	))
}

func (c *Client) write(p *write.Point) {
	if !c.IsConnected() || c.writer == nil {
		return
	}
	c.writer.WritePoint(p)
}

func timestamp(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}
