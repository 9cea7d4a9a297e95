package dispatch

import (
	"context"
	"encoding/json"
	"time"

	"github.com/lorenzodonini/ocpp-go/ocpp1.6/core"
	"github.com/lorenzodonini/ocpp-go/ocpp1.6/types"

	"github.com/nerrad567/chargepoint-core/internal/protocol"
)

// RunInbound decodes and handles responses from the central system until ctx
// is cancelled. Undecodable messages are logged and dropped.
func (d *Dispatcher) RunInbound(ctx context.Context) {
	d.logger.Info("inbound loop started")
	defer d.logger.Info("inbound loop stopped")

	for {
		data, err := d.inbox.PopContext(ctx)
		if err != nil {
			return
		}
		d.handleMessage(data)
	}
}

func (d *Dispatcher) handleMessage(data []byte) {
	resp, err := protocol.DecodeResponse(data)
	if err != nil {
		d.logger.Warn("dropping undecodable message", "error", err, "size", len(data))
		return
	}

	d.notifyMessage(MessageEvent{
		Direction: Inbound,
		Kind:      resp.Kind,
		Action:    resp.Action,
		At:        d.now(),
	})

	if resp.Kind == protocol.CallError {
		d.logger.Warn("central system returned error",
			"action", resp.Action,
			"payload", string(resp.Payload))
		return
	}

	switch resp.Action {
	case protocol.ActionBootNotification:
		d.handleBootNotification(resp.Payload)
	case protocol.ActionHeartbeat:
		d.handleHeartbeat(resp.Payload)
	case protocol.ActionStartTransaction:
		d.handleStartTransaction(resp.Payload)
	case protocol.ActionStopTransaction:
		d.handleStopTransaction(resp.Payload)
	default:
		d.logger.Warn("dropping response for unknown action", "action", resp.Action)
	}
}

func (d *Dispatcher) handleBootNotification(payload json.RawMessage) {
	conf, err := protocol.DecodePayload[core.BootNotificationConfirmation](payload)
	if err != nil {
		d.logger.Warn("invalid BootNotification response", "error", err)
		return
	}

	d.sessionMu.Lock()
	d.session.Registration = string(conf.Status)
	if t := serverTime(conf.CurrentTime); !t.IsZero() {
		d.session.LastServerTime = t
	}
	d.sessionMu.Unlock()

	if conf.Status != core.RegistrationStatusAccepted {
		d.logger.Warn("registration not accepted", "status", conf.Status)
	} else {
		d.logger.Info("registration accepted", "interval", conf.Interval)
	}

	switch {
	case conf.Interval <= 0:
	case int64(conf.Interval) > int64(MaxHeartbeatInterval/time.Second):
		d.logger.Warn("heartbeat interval out of range, capped", "interval", conf.Interval, "max", MaxHeartbeatInterval)
		d.setHeartbeatInterval(MaxHeartbeatInterval)
	default:
		d.setHeartbeatInterval(time.Duration(conf.Interval) * time.Second)
	}
}

func (d *Dispatcher) handleHeartbeat(payload json.RawMessage) {
	conf, err := protocol.DecodePayload[core.HeartbeatConfirmation](payload)
	if err != nil {
		d.logger.Warn("invalid Heartbeat response", "error", err)
		return
	}

	t := serverTime(conf.CurrentTime)
	if t.IsZero() {
		return
	}

	d.sessionMu.Lock()
	d.session.LastServerTime = t
	d.sessionMu.Unlock()

	d.logger.Debug("heartbeat acknowledged", "server_time", t)
}

func (d *Dispatcher) handleStartTransaction(payload json.RawMessage) {
	conf, err := protocol.DecodePayload[core.StartTransactionConfirmation](payload)
	if err != nil {
		d.logger.Warn("invalid StartTransaction response", "error", err)
		return
	}

	d.sessionMu.Lock()
	d.session.TransactionID = conf.TransactionId
	d.session.HasTransactionID = true
	active := d.session.TransactionActive
	d.sessionMu.Unlock()

	if !active {
		d.logger.Warn("transaction confirmed after session ended", "transaction_id", conf.TransactionId)
	}
	if conf.IdTagInfo != nil && conf.IdTagInfo.Status != types.AuthorizationStatusAccepted {
		d.logger.Warn("id tag not accepted",
			"transaction_id", conf.TransactionId,
			"status", conf.IdTagInfo.Status)
		return
	}

	d.logger.Info("transaction started", "transaction_id", conf.TransactionId)
}

func (d *Dispatcher) handleStopTransaction(payload json.RawMessage) {
	if _, err := protocol.DecodePayload[core.StopTransactionConfirmation](payload); err != nil {
		d.logger.Warn("invalid StopTransaction response", "error", err)
		return
	}

	d.sessionMu.Lock()
	txID := d.session.TransactionID
	if !d.session.TransactionActive {
		d.session.TransactionID = 0
		d.session.HasTransactionID = false
	}
	d.sessionMu.Unlock()

	d.logger.Info("transaction stopped", "transaction_id", txID)
}

func serverTime(dt *types.DateTime) time.Time {
	if dt == nil {
		return time.Time{}
	}
	return dt.Time
}
