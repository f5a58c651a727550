package protocol

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// SocketPacketType is the Socket.IO v4 packet type carried inside an
// Engine.IO message packet.
type SocketPacketType byte

const (
	SocketConnect      SocketPacketType = '0'
	SocketDisconnect   SocketPacketType = '1'
	SocketEvent        SocketPacketType = '2'
	SocketAck          SocketPacketType = '3'
	SocketConnectError SocketPacketType = '4'
	SocketBinaryEvent  SocketPacketType = '5'
	SocketBinaryAck    SocketPacketType = '6'
)

// DefaultNamespace is the namespace joined by the client.
const DefaultNamespace = "/"

// SocketPacket is a decoded Socket.IO packet. AckID is -1 when absent.
type SocketPacket struct {
	Type      SocketPacketType
	Namespace string
	AckID     int
	Data      json.RawMessage
}

// EncodeSocket renders a Socket.IO packet as the data of an Engine.IO message.
func EncodeSocket(p SocketPacket) string {
	var b strings.Builder
	b.WriteByte(byte(p.Type))
	if p.Namespace != "" && p.Namespace != DefaultNamespace {
		b.WriteString(p.Namespace)
		b.WriteByte(',')
	}
	if p.AckID >= 0 && (p.Type == SocketEvent || p.Type == SocketAck) {
		b.WriteString(strconv.Itoa(p.AckID))
	}
	b.Write(p.Data)
	return b.String()
}

// DecodeSocket parses the data of an Engine.IO message packet.
func DecodeSocket(s string) (SocketPacket, error) {
	if s == "" {
		return SocketPacket{}, ErrEmptyPacket
	}
	p := SocketPacket{Type: SocketPacketType(s[0]), Namespace: DefaultNamespace, AckID: -1}
	switch p.Type {
	case SocketConnect, SocketDisconnect, SocketEvent, SocketAck, SocketConnectError:
	case SocketBinaryEvent, SocketBinaryAck:
		return SocketPacket{}, ErrUnsupportedBinary
	default:
		return SocketPacket{}, fmt.Errorf("%w: %q", ErrUnknownPacketType, s[0])
	}

	rest := s[1:]
	if strings.HasPrefix(rest, "/") {
		end := strings.IndexByte(rest, ',')
		if end < 0 {
			// namespace with no payload, e.g. "1/admin"
			p.Namespace = rest
			return p, nil
		}
		p.Namespace = rest[:end]
		rest = rest[end+1:]
	}

	digits := 0
	for digits < len(rest) && rest[digits] >= '0' && rest[digits] <= '9' {
		digits++
	}
	if digits > 0 {
		id, err := strconv.Atoi(rest[:digits])
		if err != nil {
			return SocketPacket{}, fmt.Errorf("%w: ack id: %v", ErrMalformedEvent, err)
		}
		p.AckID = id
		rest = rest[digits:]
	}

	if rest != "" {
		if !json.Valid([]byte(rest)) {
			return SocketPacket{}, fmt.Errorf("%w: invalid json payload", ErrMalformedEvent)
		}
		p.Data = json.RawMessage(rest)
	}
	return p, nil
}

// EncodeEvent builds an EVENT packet of the form 2["name",payload].
func EncodeEvent(name string, payload any) (SocketPacket, error) {
	args := []any{name}
	if payload != nil {
		args = append(args, payload)
	}
	data, err := json.Marshal(args)
	if err != nil {
		return SocketPacket{}, fmt.Errorf("encode %s: %w", name, err)
	}
	return SocketPacket{Type: SocketEvent, Namespace: DefaultNamespace, AckID: -1, Data: data}, nil
}

// DecodeEvent splits an EVENT packet payload into its name and first argument.
// Events without an argument yield a nil payload.
func DecodeEvent(p SocketPacket) (string, json.RawMessage, error) {
	if p.Type != SocketEvent {
		return "", nil, fmt.Errorf("%w: not an event packet", ErrMalformedEvent)
	}
	var args []json.RawMessage
	if err := json.Unmarshal(p.Data, &args); err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if len(args) == 0 {
		return "", nil, fmt.Errorf("%w: missing event name", ErrMalformedEvent)
	}
	var name string
	if err := json.Unmarshal(args[0], &name); err != nil {
		return "", nil, fmt.Errorf("%w: event name: %v", ErrMalformedEvent, err)
	}
	if len(args) == 1 {
		return name, nil, nil
	}
	return name, args[1], nil
}

// ConnectErrorMessage extracts the message of a CONNECT_ERROR packet.
func ConnectErrorMessage(p SocketPacket) string {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(p.Data, &body); err != nil || body.Message == "" {
		return string(p.Data)
	}
	return body.Message
}
