// Package protocol frames charge-point messages exchanged with the central
// management system.
//
// Messages are JSON arrays in the OCPP-J style. Outgoing requests (Calls)
// carry a correlation id:
//
//	[2, "<correlationId>", "<action>", <payload>]
//
// Incoming responses carry the action they answer instead of the id:
//
//	[3, "<action>", <payload>]   // CallResult
//	[4, "<action>", <payload>]   // CallError
//
// Payloads are opaque to the codec (json.RawMessage). The typed payloads for
// BootNotification, Heartbeat, StartTransaction and StopTransaction come from
// github.com/lorenzodonini/ocpp-go/ocpp1.6/core and are built with the helpers
// in actions.go.
//
// # Errors
//
// Decode failures are returned as *CodecError and match ErrUnknownMessageKind
// or ErrMalformed via errors.Is:
//
//	resp, err := protocol.DecodeResponse(data)
//	if errors.Is(err, protocol.ErrMalformed) {
//	    // drop and log
//	}
//
// # Correlation ids
//
// IDGenerator produces ids from a counter seeded at a random value in
// [0, 10000). Responses are matched to requests by action only.
package protocol
