package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// MessageKind is the numeric type code leading every envelope.
type MessageKind int

const (
	Call       MessageKind = 2
	CallResult MessageKind = 3
	CallError  MessageKind = 4
)

// String returns the OCPP-J name of the kind.
func (k MessageKind) String() string {
	switch k {
	case Call:
		return "Call"
	case CallResult:
		return "CallResult"
	case CallError:
		return "CallError"
	default:
		return fmt.Sprintf("MessageKind(%d)", int(k))
	}
}

// Envelope arities.
const (
	requestElements  = 4 // [2, id, action, payload]
	responseElements = 3 // [kind, action, payload]
)

var emptyPayload = json.RawMessage(`{}`)

// Request is an outgoing Call.
type Request struct {
	// ID is the correlation id, unique for the process lifetime.
	ID      string
	Action  string
	Payload json.RawMessage
}

// Response is an incoming CallResult or CallError.
type Response struct {
	Kind    MessageKind
	Action  string
	Payload json.RawMessage
}

// EncodeRequest serialises r as [2, "<id>", "<action>", <payload>].
// An empty payload encodes as {}.
func EncodeRequest(r Request) ([]byte, error) {
	if r.ID == "" {
		return nil, malformed("request id is empty", nil)
	}
	if r.Action == "" {
		return nil, malformed("request action is empty", nil)
	}

	data, err := json.Marshal([]any{int(Call), r.ID, r.Action, payloadOrEmpty(r.Payload)})
	if err != nil {
		return nil, malformed("encoding request", err)
	}
	return data, nil
}

// DecodeRequest parses [2, "<id>", "<action>", <payload>]. It is the peer-side
// counterpart of EncodeRequest.
func DecodeRequest(data []byte) (Request, error) {
	elems, kind, err := splitEnvelope(data)
	if err != nil {
		return Request{}, err
	}
	if kind != Call {
		return Request{}, malformed(fmt.Sprintf("expected Call, got %s", kind), nil)
	}
	if len(elems) != requestElements {
		return Request{}, malformed(fmt.Sprintf("call has %d elements, want %d", len(elems), requestElements), nil)
	}

	id, err := decodeString(elems[1], "correlation id")
	if err != nil {
		return Request{}, err
	}
	action, err := decodeString(elems[2], "action")
	if err != nil {
		return Request{}, err
	}

	return Request{ID: id, Action: action, Payload: clonePayload(elems[3])}, nil
}

// EncodeResponse serialises r as [<3|4>, "<action>", <payload>].
func EncodeResponse(r Response) ([]byte, error) {
	if r.Kind != CallResult && r.Kind != CallError {
		return nil, malformed(fmt.Sprintf("cannot encode %s as a response", r.Kind), nil)
	}
	if r.Action == "" {
		return nil, malformed("response action is empty", nil)
	}

	data, err := json.Marshal([]any{int(r.Kind), r.Action, payloadOrEmpty(r.Payload)})
	if err != nil {
		return nil, malformed("encoding response", err)
	}
	return data, nil
}

// DecodeResponse parses [<3|4>, "<action>", <payload>].
//
// An unrecognised type code fails with ErrUnknownMessageKind. Anything else
// that is not a three-element array of (integer, string, JSON value) fails
// with ErrMalformed.
func DecodeResponse(data []byte) (Response, error) {
	elems, kind, err := splitEnvelope(data)
	if err != nil {
		return Response{}, err
	}
	if kind == Call {
		return Response{}, malformed("call received where a response was expected", nil)
	}
	if len(elems) != responseElements {
		return Response{}, malformed(fmt.Sprintf("response has %d elements, want %d", len(elems), responseElements), nil)
	}

	action, err := decodeString(elems[1], "action")
	if err != nil {
		return Response{}, err
	}

	return Response{Kind: kind, Action: action, Payload: clonePayload(elems[2])}, nil
}

// splitEnvelope decodes the outer array and its leading type code.
func splitEnvelope(data []byte) ([]json.RawMessage, MessageKind, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		return nil, 0, malformed("not a JSON array", err)
	}
	if elems == nil {
		return nil, 0, malformed("not a JSON array", nil)
	}
	if len(elems) == 0 {
		return nil, 0, malformed("empty array", nil)
	}

	if isNull(elems[0]) {
		return nil, 0, malformed("type code is null", nil)
	}
	// json.Number also accepts numeric strings, so check for a bare number.
	raw := bytes.TrimSpace(elems[0])
	if len(raw) == 0 || (raw[0] != '-' && (raw[0] < '0' || raw[0] > '9')) {
		return nil, 0, malformed("type code is not a number", nil)
	}
	var code json.Number
	if err := json.Unmarshal(raw, &code); err != nil {
		return nil, 0, malformed("type code is not a number", err)
	}

	// Out of range or fractional codes are still numbers, just not known kinds.
	n, err := code.Int64()
	if err != nil {
		return nil, 0, unknownKind(code)
	}
	switch n {
	case int64(Call), int64(CallResult), int64(CallError):
		return elems, MessageKind(n), nil
	default:
		return nil, 0, unknownKind(code)
	}
}

func decodeString(raw json.RawMessage, field string) (string, error) {
	if isNull(raw) {
		return "", malformed(field+" is null", nil)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", malformed(field+" is not a string", err)
	}
	if s == "" {
		return "", malformed(field+" is empty", nil)
	}
	return s, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func payloadOrEmpty(p json.RawMessage) json.RawMessage {
	if len(bytes.TrimSpace(p)) == 0 {
		return emptyPayload
	}
	return p
}

// clonePayload detaches the payload from the decode buffer.
func clonePayload(raw json.RawMessage) json.RawMessage {
	return append(json.RawMessage(nil), raw...)
}
