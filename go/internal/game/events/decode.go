package events

import (
	"encoding/json"
	"fmt"
)

// Decode parses an event payload into its typed variant. Names outside the
// vocabulary decode to Unknown rather than failing.
func Decode(name string, payload json.RawMessage) (Inbound, error) {
	switch Name(name) {
	case NameConnected:
		return decodeInto[Connected](name, payload)
	case NamePlayerJoined:
		return decodeInto[PlayerJoined](name, payload)
	case NamePlayerLeft:
		return decodeInto[PlayerLeft](name, payload)
	case NameGameStarted:
		return decodeInto[GameStarted](name, payload)
	case NameNewTurn:
		return decodeInto[NewTurn](name, payload)
	case NameWordAccepted:
		return decodeInto[WordAccepted](name, payload)
	case NameWordRejected:
		return decodeInto[WordRejected](name, payload)
	case NamePlayerTimeout:
		return decodeInto[PlayerTimeout](name, payload)
	case NamePlayerEliminated:
		return decodeInto[PlayerEliminated](name, payload)
	case NameGameEnded:
		return decodeInto[GameEnded](name, payload)
	case NameChatMessage:
		return decodeInto[ChatMessage](name, payload)
	case NameRoomState:
		return decodeInto[RoomState](name, payload)
	case NamePlayerTyping:
		return decodeInto[PlayerTyping](name, payload)
	case NameError:
		return decodeError(payload)
	default:
		return Unknown{Name: name, Payload: payload}, nil
	}
}

// decodeInto unmarshals payload into a fresh T; an absent payload yields the zero value.
func decodeInto[T Inbound](name string, payload json.RawMessage) (Inbound, error) {
	var v T
	if len(payload) == 0 || string(payload) == "null" {
		return v, nil
	}
	if err := json.Unmarshal(payload, &v); err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return v, nil
}

// decodeError accepts both {"message": "..."} and a bare string.
func decodeError(payload json.RawMessage) (Inbound, error) {
	var e ServerError
	if len(payload) == 0 {
		return e, nil
	}
	if err := json.Unmarshal(payload, &e); err == nil {
		return e, nil
	}
	var msg string
	if err := json.Unmarshal(payload, &msg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", NameError, err)
	}
	return ServerError{Message: msg}, nil
}
