package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// EngineVersion is the Engine.IO protocol revision spoken by the client.
const EngineVersion = "4"

// recordSeparator delimits packets inside a long-polling payload.
const recordSeparator = 0x1e

var (
	ErrEmptyPacket        = errors.New("empty packet")
	ErrUnknownPacketType  = errors.New("unknown packet type")
	ErrMalformedOpen      = errors.New("malformed open packet")
	ErrMalformedEvent     = errors.New("malformed event packet")
	ErrUnsupportedBinary  = errors.New("binary packets are not supported")
	ErrUnexpectedResponse = errors.New("unexpected handshake response")
)

// EnginePacketType is the leading digit of every Engine.IO packet.
type EnginePacketType byte

const (
	EngineOpen    EnginePacketType = '0'
	EngineClose   EnginePacketType = '1'
	EnginePing    EnginePacketType = '2'
	EnginePong    EnginePacketType = '3'
	EngineMessage EnginePacketType = '4'
	EngineUpgrade EnginePacketType = '5'
	EngineNoop    EnginePacketType = '6'
)

func (t EnginePacketType) String() string {
	switch t {
	case EngineOpen:
		return "open"
	case EngineClose:
		return "close"
	case EnginePing:
		return "ping"
	case EnginePong:
		return "pong"
	case EngineMessage:
		return "message"
	case EngineUpgrade:
		return "upgrade"
	case EngineNoop:
		return "noop"
	default:
		return fmt.Sprintf("unknown(%q)", byte(t))
	}
}

// EnginePacket is a single Engine.IO text packet.
type EnginePacket struct {
	Type EnginePacketType
	Data string
}

// OpenInfo is the handshake payload carried by the open packet.
type OpenInfo struct {
	SID          string   `json:"sid"`
	Upgrades     []string `json:"upgrades"`
	PingInterval int      `json:"pingInterval"` // milliseconds
	PingTimeout  int      `json:"pingTimeout"`  // milliseconds
	MaxPayload   int      `json:"maxPayload"`
}

// CanUpgradeTo reports whether the server offered the given transport.
func (o OpenInfo) CanUpgradeTo(transport string) bool {
	for _, u := range o.Upgrades {
		if u == transport {
			return true
		}
	}
	return false
}

// EncodeEngine renders a packet as a text frame.
func EncodeEngine(p EnginePacket) []byte {
	buf := make([]byte, 0, len(p.Data)+1)
	buf = append(buf, byte(p.Type))
	return append(buf, p.Data...)
}

// DecodeEngine parses a single text frame.
func DecodeEngine(frame []byte) (EnginePacket, error) {
	if len(frame) == 0 {
		return EnginePacket{}, ErrEmptyPacket
	}
	t := EnginePacketType(frame[0])
	if t < EngineOpen || t > EngineNoop {
		if frame[0] == 'b' {
			return EnginePacket{}, ErrUnsupportedBinary
		}
		return EnginePacket{}, fmt.Errorf("%w: %q", ErrUnknownPacketType, frame[0])
	}
	return EnginePacket{Type: t, Data: string(frame[1:])}, nil
}

// DecodePollingPayload splits a long-polling response body into packets.
func DecodePollingPayload(body []byte) ([]EnginePacket, error) {
	parts := bytes.Split(body, []byte{recordSeparator})
	packets := make([]EnginePacket, 0, len(parts))
	for _, part := range parts {
		p, err := DecodeEngine(part)
		if err != nil {
			return nil, err
		}
		packets = append(packets, p)
	}
	return packets, nil
}

// ParseOpen decodes the JSON body of an open packet.
func ParseOpen(p EnginePacket) (OpenInfo, error) {
	if p.Type != EngineOpen {
		return OpenInfo{}, fmt.Errorf("%w: got %s packet", ErrMalformedOpen, p.Type)
	}
	var info OpenInfo
	if err := json.Unmarshal([]byte(p.Data), &info); err != nil {
		return OpenInfo{}, fmt.Errorf("%w: %v", ErrMalformedOpen, err)
	}
	if info.SID == "" {
		return OpenInfo{}, fmt.Errorf("%w: missing sid", ErrMalformedOpen)
	}
	return info, nil
}
