// Package dispatch runs the charge point: it feeds hardware events into the
// charger state machine, turns state changes into effects and protocol
// requests, and handles responses from the central system.
//
// # Loops
//
// Each loop is a method that blocks until its context is cancelled and is
// meant to run in its own goroutine:
//
//	RunHardware   hardware events  -> charger.Apply -> effects, requests
//	RunInbound    inbound bytes    -> protocol.DecodeResponse -> handlers
//	RunHeartbeat  ticker           -> Heartbeat request
//	RunTransmit   outgoing queue   -> protocol.EncodeRequest -> Publisher
//
// Loops communicate only through mailboxes and the shared *charger.Charger.
//
// # Transactions
//
// Entering Charging queues StartTransaction. Leaving Charging queues
// StopTransaction with reason Local, or EVDisconnected when the cable was
// pulled while charging. Responses are matched to requests by action.
//
// # Error recovery
//
// Entering Error arms a timer (RecoveryDelay). When it fires the charger is
// moved back to Available only if it is still in Error.
//
// # Usage
//
//	d, err := dispatch.New(dispatch.Options{
//	    Charger:   cp,
//	    Effects:   terminal,
//	    Logger:    logger,
//	    CallTopic: topics.Call(),
//	})
//	go d.RunHardware(ctx)
//	go d.RunInbound(ctx)
//	go d.RunHeartbeat(ctx)
//	go d.RunTransmit(ctx, mqttClient)
//	d.Boot()
package dispatch
