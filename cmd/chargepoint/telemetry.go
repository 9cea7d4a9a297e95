package main

import (
	"github.com/nerrad567/chargepoint-core/internal/charger"
	"github.com/nerrad567/chargepoint-core/internal/dispatch"
	"github.com/nerrad567/chargepoint-core/internal/infrastructure/influxdb"
)

// telemetryWriter is the part of *influxdb.Client the observers use.
type telemetryWriter interface {
	WriteStateChange(sc influxdb.StateChange)
	WriteMessage(m influxdb.Message)
	WriteSession(s influxdb.Session)
}

// observable is the observer registration surface of *dispatch.Dispatcher.
type observable interface {
	OnStateChange(fn func(charger.Change))
	OnMessage(fn func(dispatch.MessageEvent))
	OnSessionEnd(fn func(dispatch.SessionEnd))
}

// attachTelemetry mirrors state changes, protocol traffic and finished
// sessions into InfluxDB. Writes are batched by the client and never block.
func attachTelemetry(d observable, w telemetryWriter, chargerID string) {
	d.OnStateChange(func(c charger.Change) {
		w.WriteStateChange(influxdb.StateChange{
			ChargerID: chargerID,
			From:      string(c.From),
			To:        string(c.To),
			Event:     string(c.Event),
			Effect:    string(c.Effect),
			Cause:     string(c.Cause),
			At:        c.At,
		})
	})

	d.OnMessage(func(ev dispatch.MessageEvent) {
		w.WriteMessage(influxdb.Message{
			ChargerID: chargerID,
			Direction: string(ev.Direction),
			Kind:      ev.Kind.String(),
			Action:    ev.Action,
			At:        ev.At,
		})
	})

	d.OnSessionEnd(func(end dispatch.SessionEnd) {
		w.WriteSession(influxdb.Session{
			ChargerID:     chargerID,
			TransactionID: end.TransactionID,
			IDTag:         end.IDTag,
			EnergyWh:      end.EnergyWh(),
			Duration:      end.Duration(),
			Reason:        end.Reason,
			At:            end.StoppedAt,
		})
	})
}
