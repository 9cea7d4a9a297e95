package protocol

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/lorenzodonini/ocpp-go/ocpp1.6/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequest_BootNotification(t *testing.T) {
	req, err := NewRequest("12", ActionBootNotification, BootNotification("acme", "wallbox-1", "SN-001"))
	require.NoError(t, err)

	data, err := EncodeRequest(req)
	require.NoError(t, err)

	var frame []json.RawMessage
	require.NoError(t, json.Unmarshal(data, &frame))
	require.Len(t, frame, 4)
	assert.JSONEq(t, `2`, string(frame[0]))
	assert.JSONEq(t, `"12"`, string(frame[1]))
	assert.JSONEq(t, `"BootNotification"`, string(frame[2]))

	var payload map[string]any
	require.NoError(t, json.Unmarshal(frame[3], &payload))
	assert.Equal(t, "acme", payload["chargePointVendor"])
	assert.Equal(t, "wallbox-1", payload["chargePointModel"])
	assert.Equal(t, "SN-001", payload["chargePointSerialNumber"])
}

func TestNewRequest_Heartbeat(t *testing.T) {
	req, err := NewRequest("1", ActionHeartbeat, Heartbeat())
	require.NoError(t, err)

	data, err := EncodeRequest(req)
	require.NoError(t, err)
	assert.JSONEq(t, `[2,"1","Heartbeat",{}]`, string(data))
}

func TestStartStopTransactionPayloads(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	start, err := NewRequest("5", ActionStartTransaction, StartTransaction(1, "TAG1", 1500, at))
	require.NoError(t, err)

	var sp map[string]any
	require.NoError(t, json.Unmarshal(start.Payload, &sp))
	assert.EqualValues(t, 1, sp["connectorId"])
	assert.Equal(t, "TAG1", sp["idTag"])
	assert.EqualValues(t, 1500, sp["meterStart"])
	assert.Contains(t, sp["timestamp"], "2026-03-01T12:00:00")

	stop, err := NewRequest("6", ActionStopTransaction, StopTransaction(77, "TAG1", 2300, at, core.ReasonEVDisconnected))
	require.NoError(t, err)

	var tp map[string]any
	require.NoError(t, json.Unmarshal(stop.Payload, &tp))
	assert.EqualValues(t, 77, tp["transactionId"])
	assert.EqualValues(t, 2300, tp["meterStop"])
	assert.Equal(t, "EVDisconnected", tp["reason"])
}

func TestDecodePayload(t *testing.T) {
	t.Run("boot notification confirmation", func(t *testing.T) {
		conf, err := DecodePayload[core.BootNotificationConfirmation](
			json.RawMessage(`{"currentTime":"2026-03-01T12:00:00Z","interval":120,"status":"Accepted"}`))
		require.NoError(t, err)
		assert.Equal(t, 120, conf.Interval)
		assert.Equal(t, core.RegistrationStatusAccepted, conf.Status)
	})

	t.Run("start transaction confirmation", func(t *testing.T) {
		conf, err := DecodePayload[core.StartTransactionConfirmation](
			json.RawMessage(`{"idTagInfo":{"status":"Accepted"},"transactionId":31}`))
		require.NoError(t, err)
		assert.Equal(t, 31, conf.TransactionId)
	})

	t.Run("empty payload", func(t *testing.T) {
		conf, err := DecodePayload[core.HeartbeatConfirmation](nil)
		require.NoError(t, err)
		assert.Nil(t, conf.CurrentTime)
	})

	t.Run("wrong shape", func(t *testing.T) {
		_, err := DecodePayload[core.StartTransactionConfirmation](json.RawMessage(`{"transactionId":"abc"}`))
		assert.ErrorIs(t, err, ErrMalformed)
	})
}
