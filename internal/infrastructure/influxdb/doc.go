// Package influxdb exports charger history to InfluxDB v2.
//
// Three measurements are written:
//   - charger_state: every state transition (tags: from, to, cause)
//   - charger_message: every protocol frame sent or received
//   - charger_session: energy and duration of each finished transaction
//
// The export is optional. Writes are batched and non-blocking, so a slow or
// missing server never delays the dispatcher.
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // run without history export
//	}
//	defer client.Close()
//
//	client.WriteStateChange(influxdb.StateChange{ChargerID: id, From: "available", To: "occupied"})
package influxdb
