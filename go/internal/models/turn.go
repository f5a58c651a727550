package models

import "time"

// Prompt is the challenge the current player must answer.
type Prompt struct {
	Type        string `json:"type"`
	Value       string `json:"value"`
	Description string `json:"description"`
}

// TurnState is the locally mirrored state of the active turn.
type TurnState struct {
	CurrentPlayer        string    `json:"current_player,omitempty"`
	PlayerIndex          int       `json:"player_index"`
	Prompt               *Prompt   `json:"prompt,omitempty"`
	Round                int       `json:"round"`
	TimeLimitSeconds     int       `json:"time_limit"`
	StartedAt            time.Time `json:"started_at"`             // local receipt time, not server time
	TimeRemainingSeconds int       `json:"time_remaining_seconds"` // derived locally by the countdown
}

// Active reports whether a turn is currently in progress.
func (t TurnState) Active() bool {
	return t.CurrentPlayer != ""
}

// RemainingAt computes the seconds left in the turn at now. It never goes
// below zero.
func (t TurnState) RemainingAt(now time.Time) int {
	if t.StartedAt.IsZero() {
		return 0
	}
	elapsed := int(now.Sub(t.StartedAt) / time.Second)
	if elapsed < 0 {
		elapsed = 0
	}
	remaining := t.TimeLimitSeconds - elapsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

// WordStatus is the server verdict on a submitted word.
type WordStatus string

const (
	WordAccepted WordStatus = "accepted"
	WordRejected WordStatus = "rejected"
)

// WordOutcome is the last word verdict of the current turn. Cleared on every new turn.
type WordOutcome struct {
	Word   string     `json:"word"`
	Status WordStatus `json:"status"`
	Reason string     `json:"reason,omitempty"`
}

// GameEndSummary is the terminal scoreboard of a game.
type GameEndSummary struct {
	Winner      string       `json:"winner"`
	FinalScores []FinalScore `json:"final_scores"`
	TotalRounds int          `json:"total_rounds"`
	TotalWords  int          `json:"total_words"`
}
