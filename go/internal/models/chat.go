package models

import "time"

// ChatMessage is a single room chat line, kept in server delivery order.
type ChatMessage struct {
	Username  string    `json:"username"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// TypingIndicator shows what another player is currently typing.
type TypingIndicator struct {
	Username string `json:"username"`
	Word     string `json:"word"`
}
