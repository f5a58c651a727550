package models

// RoomStatus defines the lifecycle status of a room.
type RoomStatus string

const (
	RoomStatusWaiting  RoomStatus = "waiting"
	RoomStatusPlaying  RoomStatus = "playing"
	RoomStatusFinished RoomStatus = "finished"
)

// ParseRoomStatus maps a server state string onto a RoomStatus. Anything
// unrecognised is treated as waiting.
func ParseRoomStatus(s string) RoomStatus {
	switch RoomStatus(s) {
	case RoomStatusPlaying:
		return RoomStatusPlaying
	case RoomStatusFinished:
		return RoomStatusFinished
	default:
		return RoomStatusWaiting
	}
}

// RoomInfo holds the configuration and status of the room the client is bound to.
type RoomInfo struct {
	Code           string     `json:"code"`
	Gamemode       int        `json:"gamemode"`
	Difficulty     int        `json:"difficulty"`
	LivesPerPlayer int        `json:"lives"`
	MaxPlayers     int        `json:"max_players"`
	State          RoomStatus `json:"state"`
	Creator        string     `json:"creator,omitempty"` // sticky, see state.mergeRoomInfo
}

// ConnectionStatus describes the transport as seen by the store.
type ConnectionStatus string

const (
	ConnectionDisconnected ConnectionStatus = "disconnected"
	ConnectionConnecting   ConnectionStatus = "connecting"
	ConnectionConnected    ConnectionStatus = "connected"
	ConnectionFailed       ConnectionStatus = "failed"
)

// ConnectionInfo is the transport status mirrored into session state.
type ConnectionInfo struct {
	Status     ConnectionStatus `json:"status"`
	Attempt    int              `json:"attempt"`
	LastReason string           `json:"last_reason,omitempty"`
}
