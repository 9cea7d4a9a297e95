package dispatch

import (
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/chargepoint-core/internal/charger"
	"github.com/nerrad567/chargepoint-core/internal/mailbox"
	"github.com/nerrad567/chargepoint-core/internal/protocol"
)

// Dispatcher defaults.
const (
	// DefaultHeartbeatInterval is used until the central system sends one.
	DefaultHeartbeatInterval = 60 * time.Second

	// MaxHeartbeatInterval caps the interval a central system may set.
	MaxHeartbeatInterval = 24 * time.Hour

	// DefaultRecoveryDelay is how long the charger stays in Error before it
	// is returned to Available.
	DefaultRecoveryDelay = 5 * time.Second

	// defaultConnectorID is the OCPP connector number reported in
	// StartTransaction. OCPP numbers connectors from 1.
	defaultConnectorID = 1
)

// Effects drives the charger's physical outputs.
// Implementations must be safe for concurrent use: the recovery timer calls
// them from its own goroutine.
type Effects interface {
	// SetOutput drives the power relay line.
	SetOutput(level bool)

	// RenderText replaces the display contents.
	RenderText(lines []string)
}

// Indicator is an optional extension of Effects for a status light that
// follows the charger state.
type Indicator interface {
	SetIndicator(state charger.State)
}

// Publisher sends encoded requests to the central system.
// *mqtt.Client satisfies this interface.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Meter reports the energy register used for meterStart / meterStop.
type Meter interface {
	EnergyWh() int
}

// Logger is the logging interface used by the dispatcher.
// *logging.Logger satisfies this interface.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

type noopEffects struct{}

func (noopEffects) SetOutput(bool)      {}
func (noopEffects) RenderText([]string) {}

// BootInfo identifies the charge point in BootNotification.
type BootInfo struct {
	Vendor string
	Model  string
	Serial string
}

// Options configures a Dispatcher.
type Options struct {
	// Charger is the shared state cell. Required.
	Charger *charger.Charger

	// Effects receives output and display updates. Optional.
	Effects Effects

	// IDs generates correlation ids. A randomly seeded generator is used
	// when nil.
	IDs *protocol.IDGenerator

	// Logger is optional.
	Logger Logger

	// Meter is optional; meter readings are reported as 0 without one.
	Meter Meter

	// Boot is sent in BootNotification.
	Boot BootInfo

	// IDTag is the authorisation tag reported in transactions.
	IDTag string

	// ConnectorID is the OCPP connector number. Default: 1.
	ConnectorID int

	// Address is shown on the second display line.
	Address string

	// CallTopic is where RunTransmit publishes requests.
	CallTopic string

	// QoS is the MQTT quality of service for published requests.
	QoS byte

	// HeartbeatInterval is the initial heartbeat period.
	// Default: DefaultHeartbeatInterval.
	HeartbeatInterval time.Duration

	// RecoveryDelay is the time spent in Error before recovery.
	// Default: DefaultRecoveryDelay.
	RecoveryDelay time.Duration

	// Clock returns the current time. Default: time.Now.
	Clock func() time.Time
}

// Dispatcher moves hardware events, inbound responses and outgoing requests
// between the charger and the transport.
//
// Three mailboxes decouple producers from the loops that drain them:
// hardware events feed RunHardware, inbound bytes feed RunInbound, and
// requests produced by either (plus RunHeartbeat and Boot) feed RunTransmit.
//
// Thread Safety: All methods are safe for concurrent use.
type Dispatcher struct {
	charger *charger.Charger
	effects Effects
	ids     *protocol.IDGenerator
	logger  Logger
	meter   Meter
	now     func() time.Time

	boot          BootInfo
	idTag         string
	connectorID   int
	address       string
	callTopic     string
	qos           byte
	recoveryDelay time.Duration

	events *mailbox.Mailbox[charger.Event]
	inbox  *mailbox.Mailbox[[]byte]
	outbox *mailbox.Mailbox[protocol.Request]

	// changeMu serialises a state change with its follow-up work so
	// observers see changes in the order they happened.
	changeMu sync.Mutex

	sessionMu sync.Mutex
	session   Session
	intervals chan time.Duration

	recoveryMu  sync.Mutex
	recovery    *time.Timer
	recoveryGen uint64

	observersMu      sync.RWMutex
	stateObservers   []func(charger.Change)
	messageObservers []func(MessageEvent)
	sessionObservers []func(SessionEnd)
}

// New creates a Dispatcher. Call the Run* loops to start it.
func New(opts Options) (*Dispatcher, error) {
	if opts.Charger == nil {
		return nil, fmt.Errorf("charger is required")
	}

	d := &Dispatcher{
		charger:       opts.Charger,
		effects:       opts.Effects,
		ids:           opts.IDs,
		logger:        opts.Logger,
		meter:         opts.Meter,
		now:           opts.Clock,
		boot:          opts.Boot,
		idTag:         opts.IDTag,
		connectorID:   opts.ConnectorID,
		address:       opts.Address,
		callTopic:     opts.CallTopic,
		qos:           opts.QoS,
		recoveryDelay: opts.RecoveryDelay,
		events:        mailbox.New[charger.Event](),
		inbox:         mailbox.New[[]byte](),
		outbox:        mailbox.New[protocol.Request](),
		intervals:     make(chan time.Duration, 1),
	}

	if d.effects == nil {
		d.effects = noopEffects{}
	}
	if d.ids == nil {
		d.ids = protocol.NewIDGenerator()
	}
	if d.logger == nil {
		d.logger = noopLogger{}
	}
	if d.now == nil {
		d.now = time.Now
	}
	if d.connectorID <= 0 {
		d.connectorID = defaultConnectorID
	}
	if d.recoveryDelay <= 0 {
		d.recoveryDelay = DefaultRecoveryDelay
	}

	d.session.HeartbeatInterval = opts.HeartbeatInterval
	if d.session.HeartbeatInterval <= 0 {
		d.session.HeartbeatInterval = DefaultHeartbeatInterval
	}

	return d, nil
}

// Charger returns the shared charger.
func (d *Dispatcher) Charger() *charger.Charger {
	return d.charger
}

// PushHardwareEvent queues a hardware event for RunHardware.
func (d *Dispatcher) PushHardwareEvent(ev charger.Event) {
	d.events.Push(ev)
}

// PushIncomingMessage queues raw bytes received from the transport for
// RunInbound. The bytes are copied.
func (d *Dispatcher) PushIncomingMessage(data []byte) {
	d.inbox.Push(append([]byte(nil), data...))
}

// PopOutgoingMessage blocks until a request is queued and returns it.
// RunTransmit is the usual consumer; this is for callers that drive their
// own transport.
func (d *Dispatcher) PopOutgoingMessage() protocol.Request {
	return d.outbox.Pop()
}

// PendingOutgoing returns the number of queued requests.
func (d *Dispatcher) PendingOutgoing() int {
	return d.outbox.Len()
}

// CurrentState returns a snapshot of the charger state.
func (d *Dispatcher) CurrentState() charger.State {
	return d.charger.State()
}

// OnStateChange registers fn to be called after every state change,
// including recovery and administrative changes. Callbacks run
// synchronously, in change order, and must not block for long.
func (d *Dispatcher) OnStateChange(fn func(charger.Change)) {
	d.observersMu.Lock()
	d.stateObservers = append(d.stateObservers, fn)
	d.observersMu.Unlock()
}

// OnMessage registers fn to be called for every request published and every
// response decoded.
func (d *Dispatcher) OnMessage(fn func(MessageEvent)) {
	d.observersMu.Lock()
	d.messageObservers = append(d.messageObservers, fn)
	d.observersMu.Unlock()
}

// OnSessionEnd registers fn to be called when a transaction is stopped.
func (d *Dispatcher) OnSessionEnd(fn func(SessionEnd)) {
	d.observersMu.Lock()
	d.sessionObservers = append(d.sessionObservers, fn)
	d.observersMu.Unlock()
}

// Close stops a pending error recovery. The Run* loops stop when their
// context is cancelled.
func (d *Dispatcher) Close() {
	d.recoveryMu.Lock()
	defer d.recoveryMu.Unlock()
	if d.recovery != nil {
		d.recovery.Stop()
		d.recovery = nil
	}
	d.recoveryGen++
}

func (d *Dispatcher) notifyStateChange(change charger.Change) {
	d.observersMu.RLock()
	observers := d.stateObservers
	d.observersMu.RUnlock()

	for _, fn := range observers {
		fn(change)
	}
}

func (d *Dispatcher) notifyMessage(ev MessageEvent) {
	d.observersMu.RLock()
	observers := d.messageObservers
	d.observersMu.RUnlock()

	for _, fn := range observers {
		fn(ev)
	}
}

func (d *Dispatcher) notifySessionEnd(end SessionEnd) {
	d.observersMu.RLock()
	observers := d.sessionObservers
	d.observersMu.RUnlock()

	for _, fn := range observers {
		fn(end)
	}
}
