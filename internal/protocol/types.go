package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

const (
	// client - server
	MsgConnect    = "connect"
	MsgFindMatch  = "findMatch"
	MsgPlayerMove = "playerMove"
	MsgPing       = "ping"

	// server - client
	MsgConnected   = "connected"
	MsgMatchmaking = "matchmaking"
	MsgGameStart   = "gameStart"
	MsgRoundResult = "roundResult"
	MsgNextRound   = "nextRound"
	MsgGameEnd     = "gameEnd"
	MsgPlayerLeft  = "playerLeft"
	MsgError       = "error"
	MsgPong        = "pong"
)

var ErrUnknownType = errors.New("unknown message type")

// Message is the envelope for every frame in both directions.
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// Inbound is a decoded client frame; Payload is kept raw until the type is known.
type Inbound struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Decode parses a client frame and validates its type.
func Decode(raw []byte) (Inbound, error) {
	var in Inbound
	if err := json.Unmarshal(raw, &in); err != nil {
		return Inbound{}, fmt.Errorf("decode frame: %w", err)
	}

	switch in.Type {
	case MsgConnect, MsgFindMatch, MsgPlayerMove, MsgPing:
		return in, nil
	}
	return Inbound{}, fmt.Errorf("%w: %q", ErrUnknownType, in.Type)
}

// Bind unmarshals the payload into dst. An absent payload leaves dst untouched.
func (in Inbound) Bind(dst any) error {
	if len(in.Payload) == 0 || string(in.Payload) == "null" {
		return nil
	}
	if err := json.Unmarshal(in.Payload, dst); err != nil {
		return fmt.Errorf("decode %s payload: %w", in.Type, err)
	}
	return nil
}

func Error(message string) Message {
	return Message{Type: MsgError, Payload: ErrorPayload{Message: message}}
}
