package client

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/mcdev12/wordrush/go/internal/game/commands"
	"github.com/mcdev12/wordrush/go/internal/game/countdown"
	"github.com/mcdev12/wordrush/go/internal/game/dispatch"
	"github.com/mcdev12/wordrush/go/internal/game/events"
	"github.com/mcdev12/wordrush/go/internal/game/relay"
	"github.com/mcdev12/wordrush/go/internal/game/socket"
	"github.com/mcdev12/wordrush/go/internal/game/state"
	"github.com/mcdev12/wordrush/go/internal/models"
)

// Transport is the realtime channel the client drives.
type Transport interface {
	Connect(ctx context.Context)
	Disconnect()
	Emit(name string, payload any) error
	Connected() bool
	Notifications() <-chan socket.Notification
}

// StatePublisher receives every state change of a bound session.
type StatePublisher interface {
	Publish(st state.State) error
}

// Options configures a Client. Zero values select the defaults.
type Options struct {
	ID           string
	Clock        clockwork.Clock
	TickInterval time.Duration

	// DisableResync turns off the automatic get_room_state after a reconnect.
	DisableResync bool

	TypingRate  rate.Limit
	TypingBurst int

	Relay StatePublisher
}

// Client owns one game session: transport, dispatcher, store, command
// emitter and countdown. Notifications, countdown ticks and commands are all
// applied on a single loop goroutine, in arrival order.
type Client struct {
	id         string
	transport  Transport
	store      *state.Store
	dispatcher *dispatch.Dispatcher
	emitter    *commands.Emitter
	countdown  *countdown.Countdown
	relay      StatePublisher
	resync     bool

	calls chan func()

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	// serializes commands issued while the loop is not running
	inline sync.Mutex
}

// New creates a client on transport. The session loop starts with Connect.
func New(transport Transport, opts Options) *Client {
	if opts.ID == "" {
		opts.ID = uuid.New().String()[:8]
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}

	c := &Client{
		id:        opts.ID,
		transport: transport,
		store:     state.NewStore(opts.Clock),
		countdown: countdown.New(opts.Clock, opts.TickInterval),
		relay:     opts.Relay,
		resync:    !opts.DisableResync,
		calls:     make(chan func()),
	}
	c.dispatcher = dispatch.New(c.store)

	emitterOpts := []commands.Option{
		commands.WithBindHook(func(b commands.Binding) {
			c.store.Update(state.SessionBound{RoomCode: b.RoomCode, Username: b.Username})
		}),
	}
	if opts.TypingRate > 0 {
		emitterOpts = append(emitterOpts, commands.WithTypingLimit(opts.TypingRate, max(opts.TypingBurst, 1)))
	}
	c.emitter = commands.New(transport, emitterOpts...)

	return c
}

// ID returns the client instance id used in logs and relayed states.
func (c *Client) ID() string { return c.id }

// Connect starts the session loop and the transport. Both are no-ops when
// already running.
func (c *Client) Connect(ctx context.Context) {
	c.mu.Lock()
	if c.done == nil {
		loopCtx, cancel := context.WithCancel(context.Background())
		c.cancel = cancel
		c.done = make(chan struct{})
		go c.loop(loopCtx, c.done)
	}
	c.mu.Unlock()

	log.Info().Str("client_id", c.id).Msg("connecting")
	c.transport.Connect(ctx)
}

// Disconnect tears the transport down and clears the session unconditionally.
func (c *Client) Disconnect() {
	c.transport.Disconnect()
	c.do(func() {
		c.teardown()
		c.store.Update(state.ConnectionChanged{Info: models.ConnectionInfo{
			Status:     models.ConnectionDisconnected,
			LastReason: socket.ReasonClientDisconnect,
		}})
	})
	log.Info().Str("client_id", c.id).Msg("disconnected")
}

// Close disconnects and stops the session loop.
func (c *Client) Close() {
	c.Disconnect()

	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	c.countdown.Stop()
}

// IsConnected reports whether the transport has a live connection.
func (c *Client) IsConnected() bool { return c.transport.Connected() }

// CurrentRoom returns the bound room code, or "" when unbound.
func (c *Client) CurrentRoom() string { return c.emitter.CurrentRoom() }

// CurrentUsername returns the bound username, or "" when unbound.
func (c *Client) CurrentUsername() string { return c.emitter.CurrentUsername() }

// State returns the current session state.
func (c *Client) State() state.State { return c.store.Snapshot() }

// Subscribe registers for state changes. See state.Store.Subscribe.
func (c *Client) Subscribe() (<-chan state.State, func()) { return c.store.Subscribe() }

// CountdownRunning reports whether the turn countdown is ticking.
func (c *Client) CountdownRunning() bool { return c.countdown.Running() }

// JoinRoom binds the session to roomCode as username and asks the server to
// join. The loading flag stays set until the server answers.
func (c *Client) JoinRoom(roomCode, username string) bool {
	var ok bool
	c.do(func() {
		if ok = c.emitter.JoinRoom(roomCode, username); ok {
			c.store.Update(state.LoadingSet{Loading: true})
		}
	})
	return ok
}

// LeaveRoom tells the server and resets the local session whether or not the
// command could be sent.
func (c *Client) LeaveRoom() bool {
	var ok bool
	c.do(func() {
		ok = c.emitter.LeaveRoom()
		c.teardown()
	})
	return ok
}

// StartGame asks the server to start the bound room.
func (c *Client) StartGame() bool {
	var ok bool
	c.do(func() { ok = c.emitter.StartGame() })
	return ok
}

// SubmitWord submits word for the current turn. See commands.Emitter.SubmitWord.
func (c *Client) SubmitWord(word string) bool {
	var ok bool
	c.do(func() { ok = c.emitter.SubmitWord(word) })
	return ok
}

// SendMessage sends a chat line to the bound room.
func (c *Client) SendMessage(message string) bool {
	var ok bool
	c.do(func() { ok = c.emitter.SendMessage(message) })
	return ok
}

// RequestRoomState asks the server for a full snapshot of the bound room.
func (c *Client) RequestRoomState() bool {
	var ok bool
	c.do(func() {
		if ok = c.emitter.RequestRoomState(); ok {
			c.store.Update(state.LoadingSet{Loading: true})
		}
	})
	return ok
}

// SendTyping shares the in-progress word, subject to the typing limit.
func (c *Client) SendTyping(word string) bool {
	var ok bool
	c.do(func() { ok = c.emitter.SendTyping(word) })
	return ok
}

// do runs fn on the loop goroutine, or inline when the loop is not running.
func (c *Client) do(fn func()) {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()

	if done != nil {
		finished := make(chan struct{})
		select {
		case c.calls <- func() { fn(); close(finished) }:
			<-finished
			return
		case <-done:
		}
	}

	c.inline.Lock()
	defer c.inline.Unlock()
	fn()
}

func (c *Client) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		select {
		case <-ctx.Done():
			return
		case n := <-c.transport.Notifications():
			c.handle(n)
		case now := <-c.countdown.Ticks():
			c.store.Update(state.Tick{Now: now})
		case fn := <-c.calls:
			fn()
			c.publish()
		}
	}
}

func (c *Client) handle(n socket.Notification) {
	ev := c.dispatcher.Handle(n)

	switch n := n.(type) {
	case socket.Connected:
		if n.Reconnect && c.resync && c.emitter.CurrentRoom() != "" {
			log.Info().
				Str("client_id", c.id).
				Str("room_code", c.emitter.CurrentRoom()).
				Msg("reconnected, requesting room state")
			if c.emitter.RequestRoomState() {
				c.store.Update(state.LoadingSet{Loading: true})
			}
		}
	case socket.Disconnected:
		// The server will not take us back; the session is over.
		if !n.WillReconnect && n.Reason != socket.ReasonClientDisconnect {
			c.teardown()
		}
	case socket.Failed:
		c.countdown.Stop()
		c.emitter.ClearBinding()
	}

	switch ev.(type) {
	case events.NewTurn, events.GameStarted, events.RoomState:
		c.syncCountdown()
	case events.GameEnded:
		c.countdown.Stop()
	}

	// a roster or snapshot answers a pending join or resync
	switch ev.(type) {
	case events.PlayerJoined, events.RoomState:
		if c.store.Snapshot().Loading {
			c.store.Update(state.LoadingSet{Loading: false})
		}
	}

	c.publish()
}

// syncCountdown runs the countdown exactly while a bound session has a turn
// in progress.
func (c *Client) syncCountdown() {
	st := c.store.Snapshot()
	if st.Bound() && st.Status == models.RoomStatusPlaying && st.Turn.Active() {
		c.countdown.Start()
		return
	}
	c.countdown.Stop()
}

// teardown clears every session-scoped piece of state.
func (c *Client) teardown() {
	c.countdown.Stop()
	c.emitter.ClearBinding()
	c.store.Update(state.Reset{})
}

func (c *Client) publish() {
	if c.relay == nil {
		return
	}
	if err := c.relay.Publish(c.store.Snapshot()); err != nil && !errors.Is(err, relay.ErrUnbound) {
		log.Warn().Err(err).Str("client_id", c.id).Msg("failed to relay state")
	}
}
