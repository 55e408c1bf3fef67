package protocol

import (
	"encoding/json"
	"errors"

	"github.com/mcoot/shadowtag/internal/model"
)

// Message is an encoded outbound message ready for a transport
type Message struct {
	Type model.EventType
	Data []byte // JSON envelope
}

// Payload returns the raw payload of the message's envelope
func (m Message) Payload() json.RawMessage {
	var env Envelope
	if err := json.Unmarshal(m.Data, &env); err != nil {
		return nil
	}
	return env.Payload
}

func encode(eventType model.EventType, payload any) (Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Message{}, err
	}
	data, err := json.Marshal(Envelope{Type: string(eventType), Payload: raw})
	if err != nil {
		return Message{}, err
	}
	return Message{Type: eventType, Data: data}, nil
}

// EncodeSnapshot encodes a room snapshot as seen by viewer
func EncodeSnapshot(eventType model.EventType, snap model.Snapshot, viewer model.PlayerID) (Message, error) {
	return encode(eventType, snap.ViewFor(viewer))
}

// EncodeGuessResult encodes the reply to a codebreaker's guess
func EncodeGuessResult(result *model.GuessResult) (Message, error) {
	return encode(model.EventGuessResult, result)
}

// EncodeError encodes an error for the client whose action failed.
// Internal failures are reported without their details.
func EncodeError(err error) Message {
	code := model.ErrorCode(err)
	message := err.Error()
	if code == "INTERNAL_ERROR" {
		message = "internal error"
	}
	msg, encErr := encode(model.EventError, model.ErrorPayload{Code: code, Message: message})
	if encErr != nil {
		return Message{Type: model.EventError, Data: []byte(`{"type":"error","payload":{"code":"INTERNAL_ERROR","message":"internal error"}}`)}
	}
	return msg
}

// DecodeMessage parses an outbound envelope; used by clients
func DecodeMessage(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, err
	}
	if env.Type == "" {
		return Envelope{}, errors.New("message has no type")
	}
	return env, nil
}
