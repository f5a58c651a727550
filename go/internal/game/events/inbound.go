package events

import (
	"encoding/json"

	"github.com/mcdev12/wordrush/go/internal/models"
)

// Name is the wire name of a server-pushed event.
type Name string

const (
	NameConnected        Name = "connected"
	NamePlayerJoined     Name = "player_joined"
	NamePlayerLeft       Name = "player_left"
	NameGameStarted      Name = "game_started"
	NameNewTurn          Name = "new_turn"
	NameWordAccepted     Name = "word_accepted"
	NameWordRejected     Name = "word_rejected"
	NamePlayerTimeout    Name = "player_timeout"
	NamePlayerEliminated Name = "player_eliminated"
	NameGameEnded        Name = "game_ended"
	NameChatMessage      Name = "chat_message"
	NameRoomState        Name = "room_state"
	NamePlayerTyping     Name = "player_typing"
	NameError            Name = "error"
)

// InboundNames lists the full server event vocabulary.
var InboundNames = []Name{
	NameConnected, NamePlayerJoined, NamePlayerLeft, NameGameStarted, NameNewTurn,
	NameWordAccepted, NameWordRejected, NamePlayerTimeout, NamePlayerEliminated,
	NameGameEnded, NameChatMessage, NameRoomState, NamePlayerTyping, NameError,
}

// Inbound is the closed set of server events. Only types in this package
// implement it.
type Inbound interface {
	EventName() Name
	isInbound()
}

// PlayerPayload is a roster entry as sent by the server. Lives and IsAlive
// are optional on the wire.
type PlayerPayload struct {
	Username string `json:"username"`
	Points   int    `json:"points"`
	Lives    *int   `json:"lives,omitempty"`
	IsAlive  *bool  `json:"is_alive,omitempty"`
	Avatar   string `json:"avatar,omitempty"`
}

// RoomInfoPayload is the room description embedded in roster events.
type RoomInfoPayload struct {
	Code       string `json:"code"`
	Gamemode   int    `json:"gamemode"`
	Difficulty int    `json:"difficulty"`
	Lives      int    `json:"lives"`
	MaxPlayers int    `json:"max_players"`
	State      string `json:"state"`
	Creator    string `json:"creator,omitempty"`
}

// ToModel converts the payload, leaving Creator empty when absent.
func (r RoomInfoPayload) ToModel() models.RoomInfo {
	return models.RoomInfo{
		Code:           r.Code,
		Gamemode:       r.Gamemode,
		Difficulty:     r.Difficulty,
		LivesPerPlayer: r.Lives,
		MaxPlayers:     r.MaxPlayers,
		State:          models.ParseRoomStatus(r.State),
		Creator:        r.Creator,
	}
}

// Connected confirms the server accepted the socket.
type Connected struct {
	Message string `json:"message"`
}

// PlayerJoined carries the full roster after someone joined.
type PlayerJoined struct {
	Username string           `json:"username"`
	Players  []PlayerPayload  `json:"players"`
	RoomInfo *RoomInfoPayload `json:"room_info,omitempty"`
}

type PlayerLeft struct {
	Username string `json:"username"`
}

type GameStarted struct {
	Players []PlayerPayload `json:"players"`
}

// NewTurn starts a turn. Lives maps username to remaining lives and may be partial.
type NewTurn struct {
	Player      string         `json:"player"`
	PlayerIndex int            `json:"player_index"`
	Prompt      models.Prompt  `json:"prompt"`
	TimeLimit   int            `json:"time_limit"`
	Round       int            `json:"round"`
	Lives       map[string]int `json:"lives"`
}

type WordAccepted struct {
	Username    string `json:"username"`
	Word        string `json:"word"`
	TotalPoints int    `json:"total_points"`
}

type WordRejected struct {
	Username       string `json:"username"`
	Word           string `json:"word"`
	Reason         string `json:"reason"`
	LivesRemaining int    `json:"lives_remaining"`
}

type PlayerTimeout struct {
	Username       string `json:"username"`
	LivesRemaining int    `json:"lives_remaining"`
}

type PlayerEliminated struct {
	Username string `json:"username"`
}

type GameEnded struct {
	Winner      string              `json:"winner"`
	FinalScores []models.FinalScore `json:"final_scores"`
	TotalRounds int                 `json:"total_rounds"`
	TotalWords  int                 `json:"total_words"`
}

// ChatMessage is a chat line. Timestamp is epoch milliseconds when the server provides one.
type ChatMessage struct {
	Username  string `json:"username"`
	Message   string `json:"message"`
	Timestamp *int64 `json:"timestamp,omitempty"`
}

// GameStateFragment is the optional in-game part of a room snapshot.
type GameStateFragment struct {
	CurrentPlayer string         `json:"current_player"`
	CurrentPrompt *models.Prompt `json:"current_prompt,omitempty"`
	Round         int            `json:"round"`
}

// RoomState is a full room snapshot used to resynchronize.
type RoomState struct {
	RoomCode   string             `json:"room_code"`
	Players    []PlayerPayload    `json:"players"`
	State      string             `json:"state"`
	Gamemode   int                `json:"gamemode"`
	Difficulty int                `json:"difficulty"`
	Lives      int                `json:"lives"`
	MaxPlayers int                `json:"max_players"`
	Creator    string             `json:"creator,omitempty"`
	GameState  *GameStateFragment `json:"game_state,omitempty"`
}

type PlayerTyping struct {
	Username string `json:"username"`
	Word     string `json:"word"`
}

// ServerError is a protocol level error pushed by the server.
type ServerError struct {
	Message string `json:"message"`
}

// Unknown wraps an event name outside the vocabulary.
type Unknown struct {
	Name    string
	Payload json.RawMessage
}

func (Connected) EventName() Name        { return NameConnected }
func (PlayerJoined) EventName() Name     { return NamePlayerJoined }
func (PlayerLeft) EventName() Name       { return NamePlayerLeft }
func (GameStarted) EventName() Name      { return NameGameStarted }
func (NewTurn) EventName() Name          { return NameNewTurn }
func (WordAccepted) EventName() Name     { return NameWordAccepted }
func (WordRejected) EventName() Name     { return NameWordRejected }
func (PlayerTimeout) EventName() Name    { return NamePlayerTimeout }
func (PlayerEliminated) EventName() Name { return NamePlayerEliminated }
func (GameEnded) EventName() Name        { return NameGameEnded }
func (ChatMessage) EventName() Name      { return NameChatMessage }
func (RoomState) EventName() Name        { return NameRoomState }
func (PlayerTyping) EventName() Name     { return NamePlayerTyping }
func (ServerError) EventName() Name      { return NameError }
func (u Unknown) EventName() Name        { return Name(u.Name) }

func (Connected) isInbound()        {}
func (PlayerJoined) isInbound()     {}
func (PlayerLeft) isInbound()       {}
func (GameStarted) isInbound()      {}
func (NewTurn) isInbound()          {}
func (WordAccepted) isInbound()     {}
func (WordRejected) isInbound()     {}
func (PlayerTimeout) isInbound()    {}
func (PlayerEliminated) isInbound() {}
func (GameEnded) isInbound()        {}
func (ChatMessage) isInbound()      {}
func (RoomState) isInbound()        {}
func (PlayerTyping) isInbound()     {}
func (ServerError) isInbound()      {}
func (Unknown) isInbound()          {}
