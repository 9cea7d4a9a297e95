package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/lorenzodonini/ocpp-go/ocpp1.6/core"
	"github.com/lorenzodonini/ocpp-go/ocpp1.6/types"
)

// Actions exchanged with the management system. Only these four are modelled.
const (
	ActionBootNotification = core.BootNotificationFeatureName
	ActionHeartbeat        = core.HeartbeatFeatureName
	ActionStartTransaction = core.StartTransactionFeatureName
	ActionStopTransaction  = core.StopTransactionFeatureName
)

// NewRequest builds a Call for action with payload marshalled to JSON.
func NewRequest(id, action string, payload any) (Request, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Request{}, fmt.Errorf("marshalling %s payload: %w", action, err)
	}
	return Request{ID: id, Action: action, Payload: raw}, nil
}

// BootNotification returns the payload announcing the charge point.
func BootNotification(vendor, model, serial string) *core.BootNotificationRequest {
	return &core.BootNotificationRequest{
		ChargePointVendor:       vendor,
		ChargePointModel:        model,
		ChargePointSerialNumber: serial,
	}
}

// Heartbeat returns the empty heartbeat payload.
func Heartbeat() *core.HeartbeatRequest {
	return &core.HeartbeatRequest{}
}

// StartTransaction returns the payload opening a charging session.
func StartTransaction(connectorID int, idTag string, meterStart int, at time.Time) *core.StartTransactionRequest {
	return &core.StartTransactionRequest{
		ConnectorId: connectorID,
		IdTag:       idTag,
		MeterStart:  meterStart,
		Timestamp:   types.NewDateTime(at),
	}
}

// StopTransaction returns the payload closing a charging session.
func StopTransaction(transactionID int, idTag string, meterStop int, at time.Time, reason core.Reason) *core.StopTransactionRequest {
	return &core.StopTransactionRequest{
		IdTag:         idTag,
		MeterStop:     meterStop,
		Timestamp:     types.NewDateTime(at),
		TransactionId: transactionID,
		Reason:        reason,
	}
}

// DecodePayload unmarshals a response payload into T.
func DecodePayload[T any](payload json.RawMessage) (*T, error) {
	var v T
	if err := json.Unmarshal(payloadOrEmpty(payload), &v); err != nil {
		return nil, malformed(fmt.Sprintf("decoding %T payload", v), err)
	}
	return &v, nil
}
