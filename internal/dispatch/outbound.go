package dispatch

import (
	"context"
	"time"

	"github.com/nerrad567/chargepoint-core/internal/protocol"
)

// Boot queues the BootNotification announcing the charge point. Call it once
// after the transport is up.
func (d *Dispatcher) Boot() {
	d.enqueue(protocol.ActionBootNotification,
		protocol.BootNotification(d.boot.Vendor, d.boot.Model, d.boot.Serial))
}

// Heartbeat queues one Heartbeat request.
func (d *Dispatcher) Heartbeat() {
	d.enqueue(protocol.ActionHeartbeat, protocol.Heartbeat())
}

// enqueue assigns a correlation id and queues the request for RunTransmit.
func (d *Dispatcher) enqueue(action string, payload any) {
	req, err := protocol.NewRequest(d.ids.Next(), action, payload)
	if err != nil {
		d.logger.Error("building request", "action", action, "error", err)
		return
	}
	d.outbox.Push(req)
	d.logger.Debug("request queued", "action", action, "id", req.ID)
}

// RunHeartbeat queues a Heartbeat every interval until ctx is cancelled.
// The interval follows the value adopted from BootNotification responses.
func (d *Dispatcher) RunHeartbeat(ctx context.Context) {
	interval := d.Session().HeartbeatInterval
	if interval <= 0 || interval > MaxHeartbeatInterval {
		interval = DefaultHeartbeatInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	d.logger.Info("heartbeat loop started", "interval", interval)
	defer d.logger.Info("heartbeat loop stopped")

	for {
		select {
		case <-ctx.Done():
			return
		case next := <-d.intervals:
			if next > 0 && next != interval {
				interval = next
				ticker.Reset(interval)
				d.logger.Info("heartbeat interval changed", "interval", interval)
			}
		case <-ticker.C:
			d.Heartbeat()
		}
	}
}

// RunTransmit publishes queued requests until ctx is cancelled.
//
// Requests that fail to encode or publish are logged and dropped; reconnect
// and redelivery are the transport's concern.
func (d *Dispatcher) RunTransmit(ctx context.Context, pub Publisher) {
	d.logger.Info("transmit loop started", "topic", d.callTopic)
	defer d.logger.Info("transmit loop stopped")

	for {
		req, err := d.outbox.PopContext(ctx)
		if err != nil {
			return
		}
		d.transmit(pub, req)
	}
}

func (d *Dispatcher) transmit(pub Publisher, req protocol.Request) {
	data, err := protocol.EncodeRequest(req)
	if err != nil {
		d.logger.Error("encoding request", "action", req.Action, "id", req.ID, "error", err)
		return
	}

	if err := pub.Publish(d.callTopic, data, d.qos, false); err != nil {
		d.logger.Warn("publishing request failed, dropped",
			"action", req.Action,
			"id", req.ID,
			"error", err)
		return
	}

	d.logger.Debug("request sent", "action", req.Action, "id", req.ID)
	d.notifyMessage(MessageEvent{
		Direction: Outbound,
		Kind:      protocol.Call,
		Action:    req.Action,
		ID:        req.ID,
		At:        d.now(),
	})
}

// setHeartbeatInterval records interval and hands it to RunHeartbeat.
func (d *Dispatcher) setHeartbeatInterval(interval time.Duration) {
	d.sessionMu.Lock()
	d.session.HeartbeatInterval = interval
	d.sessionMu.Unlock()

	// Keep only the newest value if RunHeartbeat has not picked up the last.
	select {
	case <-d.intervals:
	default:
	}
	select {
	case d.intervals <- interval:
	default:
	}
}
