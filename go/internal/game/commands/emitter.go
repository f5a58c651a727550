package commands

import (
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/mcdev12/wordrush/go/internal/game/events"
)

// Default typing throttle. Typing updates are ephemeral, so excess ones are dropped.
const (
	DefaultTypingRate  = rate.Limit(5)
	DefaultTypingBurst = 2
)

// Sender is the transport surface commands are written to.
type Sender interface {
	Emit(name string, payload any) error
	Connected() bool
}

// Binding is the (room, username) pair that commands act for.
type Binding struct {
	RoomCode string
	Username string
}

// Valid reports whether both the room code and username are set.
func (b Binding) Valid() bool {
	return b.RoomCode != "" && b.Username != ""
}

// Option configures an Emitter.
type Option func(*Emitter)

// WithTypingLimit overrides the typing throttle.
func WithTypingLimit(limit rate.Limit, burst int) Option {
	return func(e *Emitter) {
		e.typing = rate.NewLimiter(limit, burst)
	}
}

// WithBindHook registers fn to run whenever JoinRoom or StartGame
// establishes or refreshes the binding.
func WithBindHook(fn func(Binding)) Option {
	return func(e *Emitter) {
		e.onBind = fn
	}
}

// Emitter turns user intents into outbound commands. Every command needs a
// live connection and all but JoinRoom need a binding. A command that cannot
// be sent is logged and dropped; the bool result reports whether it was sent.
type Emitter struct {
	sender Sender
	typing *rate.Limiter
	onBind func(Binding)

	mu      sync.Mutex
	binding Binding
}

// New creates an emitter writing to sender with the default typing limit.
func New(sender Sender, opts ...Option) *Emitter {
	e := &Emitter{
		sender: sender,
		typing: rate.NewLimiter(DefaultTypingRate, DefaultTypingBurst),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// JoinRoom binds (roomCode, username) and asks the server to join.
func (e *Emitter) JoinRoom(roomCode, username string) bool {
	roomCode = strings.TrimSpace(roomCode)
	username = strings.TrimSpace(username)
	if roomCode == "" || username == "" {
		log.Warn().Msg("join_room needs a room code and username, ignoring")
		return false
	}
	if !e.connected(events.CmdJoinRoom) {
		return false
	}

	b := Binding{RoomCode: roomCode, Username: username}
	e.setBinding(b)
	if e.onBind != nil {
		e.onBind(b)
	}
	return e.send(events.JoinRoom{RoomCode: roomCode, Username: username})
}

// LeaveRoom notifies the server and clears the binding.
func (e *Emitter) LeaveRoom() bool {
	b, ok := e.bound(events.CmdLeaveRoom)
	if !ok {
		return false
	}
	sent := e.send(events.LeaveRoom{RoomCode: b.RoomCode, Username: b.Username})
	e.ClearBinding()
	return sent
}

// StartGame asks the server to start the bound room and refreshes the binding.
func (e *Emitter) StartGame() bool {
	b, ok := e.bound(events.CmdStartGame)
	if !ok {
		return false
	}
	if e.onBind != nil {
		e.onBind(b)
	}
	return e.send(events.StartGame{RoomCode: b.RoomCode, Username: b.Username})
}

// SubmitWord sends word trimmed and upper-cased. Blank words are dropped.
func (e *Emitter) SubmitWord(word string) bool {
	word = strings.ToUpper(strings.TrimSpace(word))
	if word == "" {
		log.Debug().Msg("blank word, not submitting")
		return false
	}
	b, ok := e.bound(events.CmdSubmitWord)
	if !ok {
		return false
	}
	return e.send(events.SubmitWord{RoomCode: b.RoomCode, Username: b.Username, Word: word})
}

// SendMessage sends a trimmed chat line. Blank lines are dropped.
func (e *Emitter) SendMessage(message string) bool {
	message = strings.TrimSpace(message)
	if message == "" {
		log.Debug().Msg("blank chat message, not sending")
		return false
	}
	b, ok := e.bound(events.CmdSendMessage)
	if !ok {
		return false
	}
	return e.send(events.SendMessage{RoomCode: b.RoomCode, Username: b.Username, Message: message})
}

// RequestRoomState asks for a full snapshot. Only the room code is required.
func (e *Emitter) RequestRoomState() bool {
	if !e.connected(events.CmdGetRoomState) {
		return false
	}
	b := e.Binding()
	if b.RoomCode == "" {
		log.Warn().Str("command", events.CmdGetRoomState).Msg("no room bound, ignoring")
		return false
	}
	return e.send(events.GetRoomState{RoomCode: b.RoomCode})
}

// SendTyping publishes the in-progress word. Updates beyond the typing rate
// are dropped; an empty word always goes through so the indicator clears.
func (e *Emitter) SendTyping(word string) bool {
	b, ok := e.bound(events.CmdTypingWord)
	if !ok {
		return false
	}
	if word != "" && !e.typing.Allow() {
		return false
	}
	return e.send(events.TypingWord{RoomCode: b.RoomCode, Username: b.Username, Word: word})
}

// Binding returns the current binding.
func (e *Emitter) Binding() Binding {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.binding
}

// CurrentRoom returns the bound room code.
func (e *Emitter) CurrentRoom() string {
	return e.Binding().RoomCode
}

// CurrentUsername returns the bound username.
func (e *Emitter) CurrentUsername() string {
	return e.Binding().Username
}

// ClearBinding drops the binding without telling the server.
func (e *Emitter) ClearBinding() {
	e.setBinding(Binding{})
}

func (e *Emitter) setBinding(b Binding) {
	e.mu.Lock()
	e.binding = b
	e.mu.Unlock()
}

func (e *Emitter) connected(cmd string) bool {
	if e.sender.Connected() {
		return true
	}
	log.Warn().Str("command", cmd).Msg("not connected, dropping command")
	return false
}

func (e *Emitter) bound(cmd string) (Binding, bool) {
	if !e.connected(cmd) {
		return Binding{}, false
	}
	b := e.Binding()
	if !b.Valid() {
		log.Warn().Str("command", cmd).Msg("no room bound, dropping command")
		return Binding{}, false
	}
	return b, true
}

func (e *Emitter) send(cmd events.Outbound) bool {
	if err := e.sender.Emit(cmd.CommandName(), cmd); err != nil {
		log.Warn().
			Err(err).
			Str("command", cmd.CommandName()).
			Msg("failed to send command")
		return false
	}
	return true
}
