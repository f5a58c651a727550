package dispatch

import (
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/wordrush/go/internal/game/events"
	"github.com/mcdev12/wordrush/go/internal/game/socket"
	"github.com/mcdev12/wordrush/go/internal/game/state"
	"github.com/mcdev12/wordrush/go/internal/models"
)

const (
	ErrMsgConnect          = "error connecting to server"
	ErrMsgConnectionFailed = "connection failed"
)

// Store is the update surface the dispatcher writes to.
type Store interface {
	Update(u state.Update) state.State
}

// Dispatcher routes transport notifications and inbound events to store
// updates. It keeps no state of its own and applies events in delivery order.
type Dispatcher struct {
	store Store
}

// New creates a dispatcher writing to store.
func New(store Store) *Dispatcher {
	return &Dispatcher{store: store}
}

// Handle applies one transport notification. For message notifications it
// returns the decoded event, or nil when the payload could not be decoded.
func (d *Dispatcher) Handle(n socket.Notification) events.Inbound {
	switch n := n.(type) {
	case socket.Connecting:
		d.connection(models.ConnectionConnecting, n.Attempt, "")
	case socket.Connected:
		d.connection(models.ConnectionConnected, 0, "")
	case socket.ConnectError:
		reason := ""
		if n.Err != nil {
			reason = n.Err.Error()
		}
		d.connection(models.ConnectionConnecting, n.Attempt, reason)
		d.store.Update(state.ErrorSet{Message: ErrMsgConnect})
	case socket.Disconnected:
		d.connection(models.ConnectionDisconnected, 0, n.Reason)
	case socket.Failed:
		reason := ""
		if n.Err != nil {
			reason = n.Err.Error()
		}
		d.store.Update(state.Reset{})
		d.connection(models.ConnectionFailed, n.Attempts, reason)
		d.store.Update(state.ErrorSet{Message: ErrMsgConnectionFailed})
	case socket.Message:
		ev, err := events.Decode(n.Name, n.Payload)
		if err != nil {
			log.Warn().
				Err(err).
				Str("event", n.Name).
				Msg("dropping undecodable event")
			return nil
		}
		d.HandleEvent(ev)
		return ev
	}
	return nil
}

func (d *Dispatcher) connection(status models.ConnectionStatus, attempt int, reason string) {
	d.store.Update(state.ConnectionChanged{Info: models.ConnectionInfo{
		Status:     status,
		Attempt:    attempt,
		LastReason: reason,
	}})
}

// HandleEvent applies one decoded inbound event.
func (d *Dispatcher) HandleEvent(ev events.Inbound) {
	switch ev := ev.(type) {
	case nil:
		return
	case events.Connected:
		log.Info().Str("message", ev.Message).Msg("server greeted connection")
	case events.PlayerJoined:
		d.store.Update(state.PlayerJoined(ev))
	case events.PlayerLeft:
		d.store.Update(state.PlayerLeft(ev))
	case events.GameStarted:
		d.store.Update(state.GameStarted(ev))
	case events.NewTurn:
		d.store.Update(state.TurnChanged(ev))
	case events.WordAccepted:
		d.store.Update(state.WordAccepted(ev))
	case events.WordRejected:
		d.store.Update(state.WordRejected(ev))
	case events.PlayerTimeout:
		d.store.Update(state.PlayerTimedOut(ev))
	case events.PlayerEliminated:
		d.store.Update(state.PlayerEliminated(ev))
	case events.GameEnded:
		d.store.Update(state.GameEnded(ev))
	case events.ChatMessage:
		d.store.Update(state.ChatAppended(ev))
	case events.RoomState:
		d.store.Update(state.RoomSnapshot(ev))
	case events.PlayerTyping:
		d.store.Update(state.TypingChanged(ev))
	case events.ServerError:
		log.Warn().Str("message", ev.Message).Msg("server reported error")
		d.store.Update(state.ErrorSet{Message: ev.Message})
	case events.Unknown:
		log.Debug().Str("event", ev.Name).Msg("ignoring unknown event")
	default:
		log.Warn().Str("event", string(ev.EventName())).Msg("no handler for event")
	}
}
