package socket

import (
	"encoding/json"
)

// Disconnect reasons reported in Disconnected notifications.
const (
	ReasonServerDisconnect = "io server disconnect"
	ReasonClientDisconnect = "io client disconnect"
	ReasonPingTimeout      = "ping timeout"
	ReasonTransportClose   = "transport close"
	ReasonTransportError   = "transport error"
)

// Notification is a lifecycle or message notification emitted by a Channel.
type Notification interface {
	isNotification()
}

// Connecting is emitted before every connection attempt.
type Connecting struct {
	Attempt int
}

// Connected is emitted once the namespace handshake completes.
type Connected struct {
	SID       string
	Reconnect bool
}

// ConnectError is emitted for every failed attempt.
type ConnectError struct {
	Attempt int
	Err     error
}

// Disconnected is emitted when an established connection is lost.
type Disconnected struct {
	Reason        string
	WillReconnect bool
}

// Failed is terminal: no further attempts are made until Connect is called again.
type Failed struct {
	Attempts int
	Err      error
}

// Message carries one inbound named event.
type Message struct {
	Name    string
	Payload json.RawMessage
}

func (Connecting) isNotification()   {}
func (Connected) isNotification()    {}
func (ConnectError) isNotification() {}
func (Disconnected) isNotification() {}
func (Failed) isNotification()       {}
func (Message) isNotification()      {}
