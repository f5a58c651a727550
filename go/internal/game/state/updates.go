package state

import (
	"time"

	"github.com/mcdev12/wordrush/go/internal/game/events"
	"github.com/mcdev12/wordrush/go/internal/models"
)

// Update is one state transition accepted by the Store.
type Update interface {
	isUpdate()
}

// Server-asserted updates mirror their inbound events.
type (
	PlayerJoined     events.PlayerJoined
	PlayerLeft       events.PlayerLeft
	GameStarted      events.GameStarted
	TurnChanged      events.NewTurn
	WordAccepted     events.WordAccepted
	WordRejected     events.WordRejected
	PlayerTimedOut   events.PlayerTimeout
	PlayerEliminated events.PlayerEliminated
	GameEnded        events.GameEnded
	ChatAppended     events.ChatMessage
	RoomSnapshot     events.RoomState
	TypingChanged    events.PlayerTyping
)

// RoomInfoChanged replaces room metadata, keeping a known creator.
type RoomInfoChanged struct {
	Info models.RoomInfo
}

// LoadingSet toggles the loading flag.
type LoadingSet struct {
	Loading bool
}

// ErrorSet stores a user visible error. An empty message clears it.
type ErrorSet struct {
	Message string
}

// Tick advances the countdown to Now.
type Tick struct {
	Now time.Time
}

// SessionBound records the (room, username) binding established by a join.
type SessionBound struct {
	RoomCode string
	Username string
}

// ConnectionChanged mirrors the transport status.
type ConnectionChanged struct {
	Info models.ConnectionInfo
}

// Reset returns to the initial state.
type Reset struct{}

func (PlayerJoined) isUpdate()      {}
func (PlayerLeft) isUpdate()        {}
func (GameStarted) isUpdate()       {}
func (TurnChanged) isUpdate()       {}
func (WordAccepted) isUpdate()      {}
func (WordRejected) isUpdate()      {}
func (PlayerTimedOut) isUpdate()    {}
func (PlayerEliminated) isUpdate()  {}
func (GameEnded) isUpdate()         {}
func (ChatAppended) isUpdate()      {}
func (RoomSnapshot) isUpdate()      {}
func (TypingChanged) isUpdate()     {}
func (RoomInfoChanged) isUpdate()   {}
func (LoadingSet) isUpdate()        {}
func (ErrorSet) isUpdate()          {}
func (Tick) isUpdate()              {}
func (SessionBound) isUpdate()      {}
func (ConnectionChanged) isUpdate() {}
func (Reset) isUpdate()             {}
