package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/wordrush/go/internal/game/client"
	"github.com/mcdev12/wordrush/go/internal/game/state"
	"github.com/mcdev12/wordrush/go/internal/models"
)

// watch logs state changes and performs the configured auto-join once the
// first connection is up.
func watch(ctx context.Context, c *client.Client, room, username string) {
	states, unsubscribe := c.Subscribe()
	defer unsubscribe()

	autoJoin := room != "" && username != ""
	prev := c.State()

	for {
		select {
		case <-ctx.Done():
			return
		case next, ok := <-states:
			if !ok {
				return
			}
			for _, line := range describe(prev, next) {
				log.Info().Str("room_code", next.RoomCode).Msg(line)
			}
			if autoJoin && next.Connection.Status == models.ConnectionConnected && !next.Bound() {
				autoJoin = false
				c.JoinRoom(room, username)
			}
			prev = next
		}
	}
}

// describe lists the user visible changes between two states.
func describe(prev, next state.State) []string {
	var out []string

	if prev.Connection.Status != next.Connection.Status {
		line := fmt.Sprintf("connection %s", next.Connection.Status)
		if next.Connection.LastReason != "" {
			line += " (" + next.Connection.LastReason + ")"
		}
		out = append(out, line)
	}
	if prev.RoomCode != next.RoomCode {
		if next.RoomCode == "" {
			out = append(out, "left room")
		} else {
			out = append(out, fmt.Sprintf("joined room %s as %s", next.RoomCode, next.Username))
		}
	}
	if len(next.Players) != len(prev.Players) {
		out = append(out, fmt.Sprintf("players: %v", models.Usernames(next.Players)))
	}
	if prev.Status != next.Status {
		out = append(out, fmt.Sprintf("room is %s", next.Status))
	}
	if next.Turn.Active() && (prev.Turn.CurrentPlayer != next.Turn.CurrentPlayer || !prev.Turn.StartedAt.Equal(next.Turn.StartedAt)) {
		prompt := ""
		if next.Turn.Prompt != nil {
			prompt = next.Turn.Prompt.Value
		}
		out = append(out, fmt.Sprintf("round %d: %s to play %q, %ds", next.Turn.Round, next.Turn.CurrentPlayer, prompt, next.Turn.TimeLimitSeconds))
	}
	if next.LastWord != nil && (prev.LastWord == nil || *prev.LastWord != *next.LastWord) {
		line := fmt.Sprintf("%s %s", next.LastWord.Word, next.LastWord.Status)
		if next.LastWord.Reason != "" {
			line += ": " + next.LastWord.Reason
		}
		out = append(out, line)
	}
	for _, p := range next.Players {
		if old, ok := prev.Player(p.Username); ok && old.IsAlive && !p.IsAlive {
			out = append(out, fmt.Sprintf("%s was eliminated", p.Username))
		}
	}
	for _, m := range next.Chat[min(len(prev.Chat), len(next.Chat)):] {
		out = append(out, fmt.Sprintf("<%s> %s", m.Username, m.Message))
	}
	if next.GameEnd != nil && prev.GameEnd == nil {
		out = append(out, fmt.Sprintf("game over, %s wins after %d rounds", next.GameEnd.Winner, next.GameEnd.TotalRounds))
	}
	if next.Error != "" && next.Error != prev.Error {
		out = append(out, "error: "+next.Error)
	}
	return out
}
