package journal

import (
	"context"
	"time"

	"github.com/nerrad567/chargepoint-core/internal/charger"
	"github.com/nerrad567/chargepoint-core/internal/dispatch"
	"github.com/nerrad567/chargepoint-core/internal/mailbox"
)

const (
	writeTimeout = 5 * time.Second

	// DefaultPruneInterval is how often RunPruner removes expired entries.
	DefaultPruneInterval = time.Hour
)

// Logger is the logging interface used by the recorder.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any) {}
func (noopLogger) Warn(string, ...any) {}

// entry is either a transition or a message waiting to be written.
type entry struct {
	transition *Transition
	message    *Message
}

// Recorder feeds dispatcher observations into a Repository.
//
// Observe* only enqueue, so the dispatcher never waits on SQLite; Run does
// the writes. The journal is an audit trail only and is never read back to
// restore charger state.
type Recorder struct {
	repo      Repository
	chargerID string
	logger    Logger
	queue     *mailbox.Mailbox[entry]
}

// NewRecorder creates a Recorder writing to repo. logger may be nil.
func NewRecorder(repo Repository, chargerID string, logger Logger) *Recorder {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Recorder{
		repo:      repo,
		chargerID: chargerID,
		logger:    logger,
		queue:     mailbox.New[entry](),
	}
}

// Attach registers the recorder as a state and message observer of d.
func (r *Recorder) Attach(d *dispatch.Dispatcher) {
	d.OnStateChange(r.ObserveChange)
	d.OnMessage(r.ObserveMessage)
}

// ObserveChange queues a state change.
func (r *Recorder) ObserveChange(c charger.Change) {
	r.queue.Push(entry{transition: &Transition{
		ChargerID:  r.chargerID,
		From:       string(c.From),
		To:         string(c.To),
		Event:      string(c.Event),
		Effect:     string(c.Effect),
		Cause:      string(c.Cause),
		OccurredAt: c.At,
	}})
}

// ObserveMessage queues a protocol message.
func (r *Recorder) ObserveMessage(ev dispatch.MessageEvent) {
	r.queue.Push(entry{message: &Message{
		ChargerID:  r.chargerID,
		Direction:  string(ev.Direction),
		Kind:       ev.Kind.String(),
		Action:     ev.Action,
		MessageID:  ev.ID,
		OccurredAt: ev.At,
	}})
}

// Pending returns the number of entries not yet written.
func (r *Recorder) Pending() int {
	return r.queue.Len()
}

// Run writes queued entries until ctx is cancelled, then drains what is
// already queued.
func (r *Recorder) Run(ctx context.Context) {
	for {
		e, err := r.queue.PopContext(ctx)
		if err != nil {
			return
		}
		r.write(context.WithoutCancel(ctx), e)
	}
}

func (r *Recorder) write(parent context.Context, e entry) {
	ctx, cancel := context.WithTimeout(parent, writeTimeout)
	defer cancel()

	var err error
	switch {
	case e.transition != nil:
		err = r.repo.Record(ctx, e.transition)
	case e.message != nil:
		err = r.repo.RecordMessage(ctx, e.message)
	}
	if err != nil {
		r.logger.Warn("journal write failed", "error", err)
	}
}

// RunPruner deletes entries older than retention every interval until ctx is
// cancelled. A non-positive retention disables pruning.
func RunPruner(ctx context.Context, repo Repository, retention, interval time.Duration, logger Logger) {
	if retention <= 0 {
		return
	}
	if logger == nil {
		logger = noopLogger{}
	}
	if interval <= 0 {
		interval = DefaultPruneInterval
	}

	prune := func() {
		n, err := repo.Prune(ctx, time.Now().Add(-retention))
		if err != nil {
			logger.Warn("journal prune failed", "error", err)
			return
		}
		if n > 0 {
			logger.Info("journal pruned", "removed", n, "retention", retention)
		}
	}

	prune()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			prune()
		}
	}
}
