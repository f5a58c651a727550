package state

import (
	"github.com/mcdev12/wordrush/go/internal/models"
)

// DefaultTimeLimitSeconds is the turn length assumed before the first turn arrives.
const DefaultTimeLimitSeconds = 15

// State is the local mirror of the bound room. Values returned by the Store
// share slices with later states and must be treated as read-only.
type State struct {
	// Session binding
	RoomCode string `json:"room_code,omitempty"`
	Username string `json:"username,omitempty"`

	RoomInfo *models.RoomInfo  `json:"room_info,omitempty"`
	Players  []models.Player   `json:"players"`
	Status   models.RoomStatus `json:"status"`
	Turn     models.TurnState  `json:"turn"`

	Chat     []models.ChatMessage    `json:"chat"`
	GameEnd  *models.GameEndSummary  `json:"game_end,omitempty"`
	LastWord *models.WordOutcome     `json:"last_word,omitempty"`
	Typing   *models.TypingIndicator `json:"typing,omitempty"`

	Loading bool   `json:"loading"`
	Error   string `json:"error,omitempty"`

	// Connection is transport scoped and survives Reset.
	Connection models.ConnectionInfo `json:"connection"`
}

// Initial returns the empty, unbound state.
func Initial() State {
	return State{
		Status: models.RoomStatusWaiting,
		Turn:   models.TurnState{TimeLimitSeconds: DefaultTimeLimitSeconds},
		Connection: models.ConnectionInfo{
			Status: models.ConnectionDisconnected,
		},
	}
}

// Bound reports whether a room binding exists.
func (s State) Bound() bool {
	return s.RoomCode != "" && s.Username != ""
}

// Player returns the roster entry for username.
func (s State) Player(username string) (models.Player, bool) {
	i := models.IndexOfPlayer(s.Players, username)
	if i < 0 {
		return models.Player{}, false
	}
	return s.Players[i], true
}

// Creator returns the sticky room creator, if known.
func (s State) Creator() string {
	if s.RoomInfo == nil {
		return ""
	}
	return s.RoomInfo.Creator
}
