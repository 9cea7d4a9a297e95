package dispatch

import (
	"time"

	"github.com/nerrad567/chargepoint-core/internal/protocol"
)

// Session is the protocol-level state of the charge point as seen by the
// central system.
type Session struct {
	// Registration is the last BootNotification status ("Accepted",
	// "Pending", "Rejected"), empty until the first response.
	Registration string `json:"registration"`

	// HeartbeatInterval is the current heartbeat period.
	HeartbeatInterval time.Duration `json:"heartbeat_interval"`

	// LastServerTime is the central system clock from the last Heartbeat or
	// BootNotification response.
	LastServerTime time.Time `json:"last_server_time,omitzero"`

	// TransactionActive is true between StartTransaction and
	// StopTransaction being sent.
	TransactionActive bool `json:"transaction_active"`

	// TransactionID is the id assigned by the central system, valid when
	// HasTransactionID is true.
	TransactionID    int  `json:"transaction_id"`
	HasTransactionID bool `json:"has_transaction_id"`

	// MeterStart is the energy register at StartTransaction.
	MeterStart int `json:"meter_start"`

	// StartedAt is when the current or last transaction began.
	StartedAt time.Time `json:"started_at,omitzero"`
}

// SessionEnd summarises a transaction once StopTransaction is queued.
type SessionEnd struct {
	TransactionID    int
	HasTransactionID bool
	IDTag            string
	MeterStart       int
	MeterStop        int
	Reason           string
	StartedAt        time.Time
	StoppedAt        time.Time
}

// EnergyWh is the energy delivered during the transaction.
func (s SessionEnd) EnergyWh() int {
	return max(s.MeterStop-s.MeterStart, 0)
}

// Duration is the wall time between start and stop.
func (s SessionEnd) Duration() time.Duration {
	return s.StoppedAt.Sub(s.StartedAt)
}

// Session returns a snapshot of the protocol session.
func (d *Dispatcher) Session() Session {
	d.sessionMu.Lock()
	defer d.sessionMu.Unlock()
	return d.session
}

// Direction of a protocol message relative to the charge point.
type Direction string

const (
	Outbound Direction = "out"
	Inbound  Direction = "in"
)

// MessageEvent describes one message that crossed the transport.
type MessageEvent struct {
	Direction Direction
	Kind      protocol.MessageKind
	Action    string
	ID        string
	At        time.Time
}
