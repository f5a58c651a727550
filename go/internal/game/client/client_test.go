package client

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/wordrush/go/internal/game/dispatch"
	"github.com/mcdev12/wordrush/go/internal/game/events"
	"github.com/mcdev12/wordrush/go/internal/game/socket"
	"github.com/mcdev12/wordrush/go/internal/game/state"
	"github.com/mcdev12/wordrush/go/internal/models"
)

var epoch = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

type emitted struct {
	name    string
	payload any
}

type fakeTransport struct {
	mu          sync.Mutex
	connected   bool
	connects    int
	disconnects int
	sent        []emitted
	notes       chan socket.Notification
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{notes: make(chan socket.Notification, 64)}
}

func (f *fakeTransport) Connect(context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connects++
}

func (f *fakeTransport) Disconnect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnects++
	f.connected = false
}

func (f *fakeTransport) Emit(name string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected {
		return socket.ErrNotConnected
	}
	f.sent = append(f.sent, emitted{name: name, payload: payload})
	return nil
}

func (f *fakeTransport) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeTransport) Notifications() <-chan socket.Notification { return f.notes }

// up marks the link established and delivers the Connected notification.
func (f *fakeTransport) up(reconnect bool) {
	f.mu.Lock()
	f.connected = true
	f.mu.Unlock()
	f.notes <- socket.Connected{SID: "s1", Reconnect: reconnect}
}

func (f *fakeTransport) down(reason string, willReconnect bool) {
	f.mu.Lock()
	f.connected = false
	f.mu.Unlock()
	f.notes <- socket.Disconnected{Reason: reason, WillReconnect: willReconnect}
}

func (f *fakeTransport) event(t *testing.T, name string, payload any) {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	f.notes <- socket.Message{Name: name, Payload: raw}
}

func (f *fakeTransport) sentNames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, 0, len(f.sent))
	for _, e := range f.sent {
		names = append(names, e.name)
	}
	return names
}

func (f *fakeTransport) first() emitted {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return emitted{}
	}
	return f.sent[0]
}

func (f *fakeTransport) last() emitted {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return emitted{}
	}
	return f.sent[len(f.sent)-1]
}

type capturedStates struct {
	mu     sync.Mutex
	states []state.State
}

func (c *capturedStates) Publish(st state.State) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if st.RoomCode == "" {
		return nil
	}
	c.states = append(c.states, st)
	return nil
}

func (c *capturedStates) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.states)
}

func waitForState(t *testing.T, c *Client, cond func(state.State) bool) state.State {
	t.Helper()
	require.Eventually(t, func() bool { return cond(c.State()) }, 2*time.Second, 5*time.Millisecond)
	return c.State()
}

type harness struct {
	client    *Client
	transport *fakeTransport
	clock     *clockwork.FakeClock
	ctx       context.Context
}

func newHarness(t *testing.T, opts Options) *harness {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	clock := clockwork.NewFakeClockAt(epoch)
	opts.Clock = clock
	opts.TickInterval = time.Second
	tr := newFakeTransport()
	c := New(tr, opts)
	t.Cleanup(c.Close)

	c.Connect(ctx)
	tr.up(false)
	waitForState(t, c, func(s state.State) bool { return s.Connection.Status == models.ConnectionConnected })

	return &harness{client: c, transport: tr, clock: clock, ctx: ctx}
}

// joinAndStart binds alice to AB12 and plays up to alice's first turn.
func (h *harness) joinAndStart(t *testing.T) {
	t.Helper()
	require.True(t, h.client.JoinRoom("AB12", "alice"))

	h.transport.event(t, "player_joined", events.PlayerJoined{
		Username: "bob",
		Players:  []events.PlayerPayload{{Username: "alice"}, {Username: "bob"}},
		RoomInfo: &events.RoomInfoPayload{Code: "AB12", Lives: 3, MaxPlayers: 4, State: "waiting", Creator: "alice"},
	})
	h.transport.event(t, "game_started", events.GameStarted{Players: []events.PlayerPayload{{Username: "alice"}, {Username: "bob"}}})
	h.transport.event(t, "new_turn", events.NewTurn{
		Player:    "alice",
		Prompt:    models.Prompt{Type: "contains", Value: "AT"},
		TimeLimit: 10,
		Round:     1,
		Lives:     map[string]int{"alice": 3, "bob": 3},
	})
	waitForState(t, h.client, func(s state.State) bool { return s.Turn.CurrentPlayer == "alice" })
}

func TestClientPlaysThroughAGame(t *testing.T) {
	h := newHarness(t, Options{})
	c, tr := h.client, h.transport

	h.joinAndStart(t)
	assert.Equal(t, events.JoinRoom{RoomCode: "AB12", Username: "alice"}, tr.first().payload)
	assert.Equal(t, "AB12", c.CurrentRoom())
	assert.Equal(t, "alice", c.CurrentUsername())
	assert.True(t, c.IsConnected())

	st := c.State()
	assert.Equal(t, models.RoomStatusPlaying, st.Status)
	assert.Equal(t, "alice", st.Creator())
	require.Eventually(t, c.CountdownRunning, 2*time.Second, 5*time.Millisecond)

	for i := 0; i < 3; i++ {
		require.NoError(t, h.clock.BlockUntilContext(h.ctx, 1))
		h.clock.Advance(time.Second)
		want := 10 - (i + 1)
		waitForState(t, c, func(s state.State) bool { return s.Turn.TimeRemainingSeconds == want })
	}

	require.True(t, c.SubmitWord(" cat "))
	assert.Equal(t, events.SubmitWord{RoomCode: "AB12", Username: "alice", Word: "CAT"}, tr.last().payload)

	tr.event(t, "word_accepted", events.WordAccepted{Username: "alice", Word: "CAT", TotalPoints: 3})
	tr.event(t, "game_ended", events.GameEnded{Winner: "alice", TotalRounds: 1, TotalWords: 1})

	st = waitForState(t, c, func(s state.State) bool { return s.Status == models.RoomStatusFinished })
	require.NotNil(t, st.GameEnd)
	assert.Equal(t, "alice", st.GameEnd.Winner)
	require.Eventually(t, func() bool { return !c.CountdownRunning() }, 2*time.Second, 5*time.Millisecond)
}

func TestClientResyncsAfterReconnect(t *testing.T) {
	h := newHarness(t, Options{})
	h.joinAndStart(t)

	h.transport.down(socket.ReasonTransportClose, true)
	waitForState(t, h.client, func(s state.State) bool { return s.Connection.Status == models.ConnectionDisconnected })
	assert.True(t, h.client.State().Bound(), "binding survives a recoverable drop")

	h.transport.up(true)
	require.Eventually(t, func() bool { return h.transport.last().name == events.CmdGetRoomState }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, events.GetRoomState{RoomCode: "AB12"}, h.transport.last().payload)
}

func TestClientResyncCanBeDisabled(t *testing.T) {
	h := newHarness(t, Options{DisableResync: true})
	require.True(t, h.client.JoinRoom("AB12", "alice"))

	h.transport.down(socket.ReasonPingTimeout, true)
	h.transport.up(true)
	// notifications are applied in order, so once this lands the reconnect has been handled
	h.transport.event(t, "chat_message", events.ChatMessage{Username: "bob", Message: "back"})
	waitForState(t, h.client, func(s state.State) bool { return len(s.Chat) == 1 })

	assert.Equal(t, []string{events.CmdJoinRoom}, h.transport.sentNames())
}

func TestClientFailedConnectionClearsSession(t *testing.T) {
	h := newHarness(t, Options{})
	h.joinAndStart(t)

	h.transport.down(socket.ReasonTransportClose, true)
	h.transport.notes <- socket.Failed{Attempts: 5, Err: errors.New("dial: refused")}

	st := waitForState(t, h.client, func(s state.State) bool { return s.Error == dispatch.ErrMsgConnectionFailed })
	assert.Equal(t, models.ConnectionFailed, st.Connection.Status)
	assert.False(t, st.Bound())
	assert.Empty(t, st.Players)
	require.Eventually(t, func() bool {
		return h.client.CurrentRoom() == "" && !h.client.CountdownRunning()
	}, 2*time.Second, 5*time.Millisecond)
}

func TestClientServerDisconnectClearsSession(t *testing.T) {
	h := newHarness(t, Options{})
	h.joinAndStart(t)

	h.transport.down(socket.ReasonServerDisconnect, false)

	waitForState(t, h.client, func(s state.State) bool { return !s.Bound() })
	assert.False(t, h.client.CountdownRunning())
	assert.Empty(t, h.client.CurrentUsername())
}

func TestClientLeaveRoomResets(t *testing.T) {
	h := newHarness(t, Options{})
	h.joinAndStart(t)

	assert.True(t, h.client.LeaveRoom())
	assert.Equal(t, events.LeaveRoom{RoomCode: "AB12", Username: "alice"}, h.transport.last().payload)

	st := h.client.State()
	assert.False(t, st.Bound())
	assert.Empty(t, st.Players)
	assert.Equal(t, models.RoomStatusWaiting, st.Status)
	assert.Equal(t, models.ConnectionConnected, st.Connection.Status)
	assert.False(t, h.client.CountdownRunning())

	// a tick after teardown changes nothing
	h.clock.Advance(5 * time.Second)
	assert.Equal(t, state.DefaultTimeLimitSeconds, h.client.State().Turn.TimeLimitSeconds)
}

func TestClientDisconnectResetsUnconditionally(t *testing.T) {
	h := newHarness(t, Options{})
	h.joinAndStart(t)

	h.client.Disconnect()

	st := h.client.State()
	assert.False(t, st.Bound())
	assert.Equal(t, models.ConnectionDisconnected, st.Connection.Status)
	h.transport.mu.Lock()
	assert.Equal(t, 1, h.transport.disconnects)
	h.transport.mu.Unlock()
	assert.False(t, h.client.IsConnected())
	assert.False(t, h.client.CountdownRunning())
	assert.False(t, h.client.SubmitWord("cat"))
}

func TestClientCommandsBeforeConnectAreDropped(t *testing.T) {
	tr := newFakeTransport()
	c := New(tr, Options{Clock: clockwork.NewFakeClockAt(epoch)})
	defer c.Close()

	assert.False(t, c.JoinRoom("AB12", "alice"))
	assert.False(t, c.StartGame())
	assert.False(t, c.SendMessage("hello"))
	assert.False(t, c.SendTyping("CA"))
	assert.False(t, c.RequestRoomState())
	assert.Empty(t, tr.sentNames())
	assert.NotEmpty(t, c.ID())
}

func TestClientRelaysBoundStates(t *testing.T) {
	sink := &capturedStates{}
	h := newHarness(t, Options{Relay: sink, ID: "test-client"})
	assert.Equal(t, "test-client", h.client.ID())

	h.joinAndStart(t)
	require.Eventually(t, func() bool { return sink.count() >= 4 }, 2*time.Second, 5*time.Millisecond)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Equal(t, "AB12", sink.states[len(sink.states)-1].RoomCode)
}

func TestClientChatAndTyping(t *testing.T) {
	h := newHarness(t, Options{})
	require.True(t, h.client.JoinRoom("AB12", "alice"))

	require.True(t, h.client.SendMessage("  hi bob "))
	assert.Equal(t, events.SendMessage{RoomCode: "AB12", Username: "alice", Message: "hi bob"}, h.transport.last().payload)

	require.True(t, h.client.SendTyping("CA"))
	assert.Equal(t, events.CmdTypingWord, h.transport.last().name)

	h.transport.event(t, "player_typing", events.PlayerTyping{Username: "bob", Word: "DO"})
	st := waitForState(t, h.client, func(s state.State) bool { return s.Typing != nil })
	assert.Equal(t, "DO", st.Typing.Word)

	h.transport.event(t, "chat_message", events.ChatMessage{Username: "bob", Message: "hey"})
	st = waitForState(t, h.client, func(s state.State) bool { return len(s.Chat) == 1 })
	assert.Equal(t, epoch, st.Chat[0].Timestamp)
}

func TestClientLoadingTracksPendingJoinAndResync(t *testing.T) {
	h := newHarness(t, Options{})

	require.True(t, h.client.JoinRoom("AB12", "alice"))
	assert.True(t, h.client.State().Loading)

	h.transport.event(t, "player_joined", events.PlayerJoined{
		Username: "alice",
		Players:  []events.PlayerPayload{{Username: "alice"}},
	})
	waitForState(t, h.client, func(s state.State) bool { return !s.Loading && len(s.Players) == 1 })

	require.True(t, h.client.RequestRoomState())
	assert.True(t, h.client.State().Loading)

	h.transport.event(t, "room_state", events.RoomState{
		RoomCode: "AB12",
		Players:  []events.PlayerPayload{{Username: "alice"}, {Username: "bob"}},
		State:    "waiting",
	})
	st := waitForState(t, h.client, func(s state.State) bool { return len(s.Players) == 2 && !s.Loading })
	assert.Equal(t, []string{"alice", "bob"}, models.Usernames(st.Players))
}

func TestClientIgnoresEventsAfterLeaving(t *testing.T) {
	h := newHarness(t, Options{})
	h.joinAndStart(t)
	require.True(t, h.client.LeaveRoom())

	h.transport.event(t, "new_turn", events.NewTurn{
		Player:    "bob",
		Prompt:    models.Prompt{Type: "contains", Value: "OG"},
		TimeLimit: 10,
		Round:     2,
	})
	h.transport.event(t, "chat_message", events.ChatMessage{Username: "bob", Message: "where did you go"})
	// the loop handles one item at a time, so a queued call runs after both events
	require.Eventually(t, func() bool { return len(h.transport.notes) == 0 }, 2*time.Second, 5*time.Millisecond)
	h.client.do(func() {})

	want := state.Initial()
	want.Connection = h.client.State().Connection
	assert.Equal(t, want, h.client.State())
	assert.False(t, h.client.CountdownRunning())

	h.clock.Advance(3 * time.Second)
	h.client.do(func() {})
	assert.Equal(t, want, h.client.State())
}
