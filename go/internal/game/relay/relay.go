package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/wordrush/go/internal/game/state"
)

var ErrUnbound = errors.New("state has no bound room")

// Config holds the NATS connection and stream settings of the relay.
type Config struct {
	URL                string
	StreamName         string
	SubjectPrefix      string
	MaxReconnects      int
	ReconnectWait      time.Duration
	MaxAge             time.Duration // How long to keep states
	MaxMsgsPerSubject  int64         // States kept per room
	DuplicateWindow    time.Duration // Window for duplicate detection
	MaxPendingAcks     int
	CloseFlushDeadline time.Duration
}

// DefaultConfig returns the relay configuration used when only a NATS URL is given.
func DefaultConfig() Config {
	return Config{
		URL:                nats.DefaultURL,
		StreamName:         "WORDRUSH_STATE",
		SubjectPrefix:      "wordrush.state",
		MaxReconnects:      -1, // Infinite
		ReconnectWait:      2 * time.Second,
		MaxAge:             time.Hour,
		MaxMsgsPerSubject:  100,
		DuplicateWindow:    2 * time.Minute,
		MaxPendingAcks:     256,
		CloseFlushDeadline: 2 * time.Second,
	}
}

// MsgPublisher is the part of jetstream.JetStream the relay needs.
type MsgPublisher interface {
	PublishMsgAsync(msg *nats.Msg, opts ...jetstream.PublishOpt) (jetstream.PubAckFuture, error)
}

// Relay mirrors state changes of the bound room onto a JetStream stream so
// other local processes can observe the session. Every state carries a
// message id, so a republished state is dropped by the stream's duplicate
// window.
type Relay struct {
	pub      MsgPublisher
	cfg      Config
	clientID string
	clock    clockwork.Clock

	nc *nats.Conn
	js jetstream.JetStream
}

// Connect dials NATS, makes sure the state stream exists and returns a relay
// publishing into it.
func Connect(ctx context.Context, cfg Config, clientID string) (*Relay, error) {
	opts := []nats.Option{
		nats.Name("wordrush-" + clientID),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc,
		jetstream.WithPublishAsyncMaxPending(cfg.MaxPendingAcks),
		jetstream.WithPublishAsyncErrHandler(func(_ jetstream.JetStream, msg *nats.Msg, err error) {
			log.Warn().
				Err(err).
				Str("subject", msg.Subject).
				Str("event_id", msg.Header.Get("Event-ID")).
				Msg("state relay not acknowledged")
		}),
	)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	if err := ensureStream(ctx, js, cfg); err != nil {
		nc.Close()
		return nil, err
	}

	r := New(js, cfg, clientID, nil)
	r.nc = nc
	r.js = js
	return r, nil
}

func ensureStream(ctx context.Context, js jetstream.JetStream, cfg Config) error {
	sc := jetstream.StreamConfig{
		Name:              cfg.StreamName,
		Description:       "Client session states mirrored per room",
		Subjects:          []string{fmt.Sprintf("%s.>", cfg.SubjectPrefix)},
		Retention:         jetstream.LimitsPolicy,
		MaxAge:            cfg.MaxAge,
		MaxMsgsPerSubject: cfg.MaxMsgsPerSubject,
		Storage:           jetstream.MemoryStorage,
		Duplicates:        cfg.DuplicateWindow,
	}

	if _, err := js.CreateOrUpdateStream(ctx, sc); err != nil {
		return fmt.Errorf("ensure stream %s: %w", cfg.StreamName, err)
	}
	log.Info().
		Str("stream", cfg.StreamName).
		Str("subjects", sc.Subjects[0]).
		Msg("state relay stream ready")
	return nil
}

// New wraps an existing publisher. Zero config fields take their defaults and
// a nil clock uses the real clock.
func New(pub MsgPublisher, cfg Config, clientID string, clock clockwork.Clock) *Relay {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	def := DefaultConfig()
	if cfg.SubjectPrefix == "" {
		cfg.SubjectPrefix = def.SubjectPrefix
	}
	if cfg.StreamName == "" {
		cfg.StreamName = def.StreamName
	}
	if cfg.CloseFlushDeadline <= 0 {
		cfg.CloseFlushDeadline = def.CloseFlushDeadline
	}
	return &Relay{pub: pub, cfg: cfg, clientID: clientID, clock: clock}
}

// Subject returns the subject used for roomCode.
func (r *Relay) Subject(roomCode string) string {
	return fmt.Sprintf("%s.%s", r.cfg.SubjectPrefix, roomCode)
}

type envelope struct {
	EventID   string      `json:"eventId"`
	ClientID  string      `json:"clientId"`
	RoomCode  string      `json:"roomCode"`
	Timestamp time.Time   `json:"timestamp"`
	State     state.State `json:"state"`
}

// Publish queues st for the bound room's subject. It does not wait for the
// stream's acknowledgement; unacknowledged states are logged.
func (r *Relay) Publish(st state.State) error {
	if st.RoomCode == "" {
		return ErrUnbound
	}

	id := uuid.New().String()
	data, err := json.Marshal(envelope{
		EventID:   id,
		ClientID:  r.clientID,
		RoomCode:  st.RoomCode,
		Timestamp: r.clock.Now().UTC(),
		State:     st,
	})
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	msg := &nats.Msg{
		Subject: r.Subject(st.RoomCode),
		Data:    data,
		Header: nats.Header{
			"Event-ID":  []string{id},
			"Client-ID": []string{r.clientID},
			"Room-Code": []string{st.RoomCode},
		},
	}
	if _, err := r.pub.PublishMsgAsync(msg,
		jetstream.WithMsgID(id),
		jetstream.WithExpectStream(r.cfg.StreamName),
	); err != nil {
		return fmt.Errorf("publish %s: %w", msg.Subject, err)
	}

	log.Debug().
		Str("subject", msg.Subject).
		Str("event_id", id).
		Msg("state relayed")
	return nil
}

// Close waits briefly for outstanding acknowledgements and drains the NATS
// connection when the relay owns one.
func (r *Relay) Close() {
	if r.nc == nil {
		return
	}
	if r.js != nil {
		select {
		case <-r.js.PublishAsyncComplete():
		case <-time.After(r.cfg.CloseFlushDeadline):
			log.Warn().
				Int("pending", r.js.PublishAsyncPending()).
				Msg("closing state relay with unacknowledged states")
		}
	}
	if err := r.nc.Drain(); err != nil {
		log.Warn().Err(err).Msg("NATS drain failed")
		r.nc.Close()
	}
}
