package socket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/wordrush/go/internal/game/protocol"
)

var (
	ErrNotConnected      = errors.New("not connected")
	ErrSendBufferFull    = errors.New("send buffer full")
	ErrConnClosed        = errors.New("connection closed")
	ErrHandshakeClosed   = errors.New("connection closed during handshake")
	ErrConnectionRefused = errors.New("connection refused by server")
)

// Conn is a message-oriented duplex connection carrying Engine.IO text frames.
type Conn interface {
	ReadMessage() ([]byte, error)
	WriteMessage(data []byte) error
	SetReadDeadline(t time.Time) error
	Close() error
}

// Dialer opens an Engine.IO session and returns the negotiated connection.
type Dialer interface {
	Dial(ctx context.Context, token string) (Conn, protocol.OpenInfo, error)
}

// Channel owns a single realtime connection and its reconnect loop.
type Channel struct {
	cfg    Config
	dialer Dialer
	tokens TokenSource
	clock  clockwork.Clock
	notes  chan Notification

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	link   *link
}

type link struct {
	conn   Conn
	sid    string
	open   protocol.OpenInfo
	send   chan []byte
	closed chan struct{}

	mu       sync.Mutex
	isClosed bool
}

func (l *link) close() {
	l.mu.Lock()
	if l.isClosed {
		l.mu.Unlock()
		return
	}
	l.isClosed = true
	close(l.closed)
	l.mu.Unlock()

	_ = l.conn.Close()
}

// enqueue hands frame to the write pump. It fails once the link is closed,
// so no frame is accepted that the pump will never see.
func (l *link) enqueue(frame []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.isClosed {
		return ErrNotConnected
	}
	select {
	case l.send <- frame:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// drain discards frames still queued after close and returns how many.
func (l *link) drain() int {
	n := 0
	for {
		select {
		case <-l.send:
			n++
		default:
			return n
		}
	}
}

// NewChannel creates a channel. A nil clock uses the real clock and a nil
// token source connects without credentials.
func NewChannel(cfg Config, dialer Dialer, tokens TokenSource, clock clockwork.Clock) *Channel {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if tokens == nil {
		tokens = StaticToken("")
	}
	return &Channel{
		cfg:    cfg.withDefaults(),
		dialer: dialer,
		tokens: tokens,
		clock:  clock,
		notes:  make(chan Notification, 64),
	}
}

// Notifications returns the stream of lifecycle and message notifications.
// It is never closed.
func (c *Channel) Notifications() <-chan Notification {
	return c.notes
}

// Connect starts the connection loop. It is a no-op while a loop is already
// running, whether connected or between attempts.
func (c *Channel) Connect(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.done != nil {
		log.Debug().Msg("connect called while channel active, ignoring")
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	c.cancel = cancel
	c.done = done

	go c.run(runCtx, cancel, done)
}

// Disconnect tears down the connection and cancels any pending reconnect.
// It blocks until the loop has exited.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Connected reports whether the namespace handshake has completed on the
// current connection.
func (c *Channel) Connected() bool {
	return c.currentLink() != nil
}

// Emit queues a named event on the live connection. It never queues while
// disconnected. A nil error means the frame was accepted by the write pump;
// frames still queued when the link drops are discarded and logged, not
// retried on the next connection.
func (c *Channel) Emit(name string, payload any) error {
	l := c.currentLink()
	if l == nil {
		return ErrNotConnected
	}

	pkt, err := protocol.EncodeEvent(name, payload)
	if err != nil {
		return err
	}
	frame := protocol.EncodeEngine(protocol.EnginePacket{
		Type: protocol.EngineMessage,
		Data: protocol.EncodeSocket(pkt),
	})

	return l.enqueue(frame)
}

func (c *Channel) active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done != nil
}

func (c *Channel) currentLink() *link {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.link
}

func (c *Channel) setLink(l *link) {
	c.mu.Lock()
	c.link = l
	c.mu.Unlock()
}

func (c *Channel) run(ctx context.Context, cancel context.CancelFunc, done chan struct{}) {
	defer func() {
		c.mu.Lock()
		if c.done == done {
			c.done = nil
			c.cancel = nil
		}
		c.link = nil
		c.mu.Unlock()
		cancel()
		close(done)
	}()

	failures := 0
	connectedBefore := false

	for {
		attempt := failures + 1
		c.notify(ctx, Connecting{Attempt: attempt})

		l, err := c.establish(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			failures++
			log.Warn().
				Err(err).
				Str("url", c.cfg.URL).
				Int("attempt", failures).
				Int("max_attempts", c.cfg.ReconnectionAttempts).
				Msg("connection attempt failed")
			c.notify(ctx, ConnectError{Attempt: failures, Err: err})

			if failures >= c.cfg.ReconnectionAttempts {
				log.Error().
					Int("attempts", failures).
					Msg("giving up on connection")
				c.notify(ctx, Failed{Attempts: failures, Err: err})
				return
			}
			if !c.wait(ctx) {
				return
			}
			continue
		}

		failures = 0
		c.setLink(l)
		log.Info().
			Str("sid", l.sid).
			Bool("reconnect", connectedBefore).
			Msg("realtime channel connected")
		c.notify(ctx, Connected{SID: l.sid, Reconnect: connectedBefore})
		connectedBefore = true

		reason := c.serve(ctx, l)
		c.setLink(nil)

		if ctx.Err() != nil {
			c.tryNotify(Disconnected{Reason: ReasonClientDisconnect})
			return
		}

		reconnect := reason != ReasonServerDisconnect
		log.Info().
			Str("reason", reason).
			Bool("will_reconnect", reconnect).
			Msg("realtime channel disconnected")
		c.notify(ctx, Disconnected{Reason: reason, WillReconnect: reconnect})
		if !reconnect {
			return
		}
		if !c.wait(ctx) {
			return
		}
	}
}

func (c *Channel) wait(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-c.clock.After(c.cfg.ReconnectionDelay):
		return true
	}
}

func (c *Channel) notify(ctx context.Context, n Notification) {
	select {
	case c.notes <- n:
	case <-ctx.Done():
	}
}

func (c *Channel) tryNotify(n Notification) {
	select {
	case c.notes <- n:
	default:
	}
}

// establish dials and performs the namespace connect handshake.
func (c *Channel) establish(ctx context.Context) (*link, error) {
	hctx, cancel := context.WithTimeout(ctx, c.cfg.HandshakeTimeout)
	defer cancel()

	token, err := c.tokens.Token(hctx)
	if err != nil {
		return nil, fmt.Errorf("get token: %w", err)
	}

	conn, open, err := c.dialer.Dial(hctx, token)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}

	stop := context.AfterFunc(hctx, func() { _ = conn.Close() })
	sid, err := c.handshake(conn, token)
	if !stop() || err != nil {
		_ = conn.Close()
		if err == nil {
			err = hctx.Err()
		}
		return nil, err
	}

	return &link{
		conn:   conn,
		sid:    sid,
		open:   open,
		send:   make(chan []byte, c.cfg.SendBufferSize),
		closed: make(chan struct{}),
	}, nil
}

func (c *Channel) handshake(conn Conn, token string) (string, error) {
	auth := map[string]string{}
	if token != "" {
		auth["token"] = token
	}
	data, err := json.Marshal(auth)
	if err != nil {
		return "", err
	}
	frame := protocol.EncodeEngine(protocol.EnginePacket{
		Type: protocol.EngineMessage,
		Data: protocol.EncodeSocket(protocol.SocketPacket{
			Type:      protocol.SocketConnect,
			Namespace: protocol.DefaultNamespace,
			AckID:     -1,
			Data:      data,
		}),
	})
	if err := conn.WriteMessage(frame); err != nil {
		return "", fmt.Errorf("send connect: %w", err)
	}

	for {
		msg, err := conn.ReadMessage()
		if err != nil {
			return "", fmt.Errorf("await connect ack: %w", err)
		}
		pkt, err := protocol.DecodeEngine(msg)
		if err != nil {
			return "", err
		}

		switch pkt.Type {
		case protocol.EnginePing:
			if err := conn.WriteMessage(protocol.EncodeEngine(protocol.EnginePacket{Type: protocol.EnginePong})); err != nil {
				return "", err
			}
		case protocol.EngineClose:
			return "", ErrHandshakeClosed
		case protocol.EngineMessage:
			sp, err := protocol.DecodeSocket(pkt.Data)
			if err != nil {
				return "", err
			}
			switch sp.Type {
			case protocol.SocketConnect:
				var ack struct {
					SID string `json:"sid"`
				}
				if len(sp.Data) > 0 {
					_ = json.Unmarshal(sp.Data, &ack)
				}
				return ack.SID, nil
			case protocol.SocketConnectError:
				return "", fmt.Errorf("%w: %s", ErrConnectionRefused, protocol.ConnectErrorMessage(sp))
			}
		}
	}
}

// serve pumps frames until the link drops and returns the disconnect reason.
func (c *Channel) serve(ctx context.Context, l *link) string {
	go c.writePump(l)

	stop := context.AfterFunc(ctx, l.close)
	defer stop()
	defer l.close()

	return c.readPump(ctx, l)
}

func (c *Channel) writePump(l *link) {
	defer func() {
		if n := l.drain(); n > 0 {
			log.Warn().
				Int("frames", n).
				Str("sid", l.sid).
				Msg("link closed with unsent frames, dropping")
		}
	}()

	for {
		select {
		case <-l.closed:
			return
		case frame := <-l.send:
			if err := l.conn.WriteMessage(frame); err != nil {
				log.Error().
					Err(err).
					Str("sid", l.sid).
					Msg("failed to write frame")
				l.close()
				return
			}
		}
	}
}

func (c *Channel) readPump(ctx context.Context, l *link) string {
	window := time.Duration(l.open.PingInterval+l.open.PingTimeout) * time.Millisecond

	for {
		// net deadlines are wall clock, not the injected clock
		if window > 0 {
			_ = l.conn.SetReadDeadline(time.Now().Add(window))
		}

		msg, err := l.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ReasonClientDisconnect
			}
			return readFailureReason(err)
		}

		pkt, err := protocol.DecodeEngine(msg)
		if err != nil {
			log.Warn().Err(err).Str("sid", l.sid).Msg("dropping undecodable frame")
			continue
		}

		switch pkt.Type {
		case protocol.EnginePing:
			pong := protocol.EncodeEngine(protocol.EnginePacket{Type: protocol.EnginePong, Data: pkt.Data})
			select {
			case l.send <- pong:
			case <-l.closed:
				return ReasonTransportClose
			}
		case protocol.EngineClose:
			return ReasonTransportClose
		case protocol.EngineMessage:
			if reason, done := c.handleSocketPacket(ctx, l, pkt.Data); done {
				return reason
			}
		}
	}
}

func (c *Channel) handleSocketPacket(ctx context.Context, l *link, data string) (string, bool) {
	sp, err := protocol.DecodeSocket(data)
	if err != nil {
		log.Warn().Err(err).Str("sid", l.sid).Msg("dropping malformed socket packet")
		return "", false
	}

	switch sp.Type {
	case protocol.SocketEvent:
		name, payload, err := protocol.DecodeEvent(sp)
		if err != nil {
			log.Warn().Err(err).Str("sid", l.sid).Msg("dropping malformed event")
			return "", false
		}
		c.notify(ctx, Message{Name: name, Payload: payload})
	case protocol.SocketDisconnect:
		return ReasonServerDisconnect, true
	case protocol.SocketConnectError:
		log.Warn().
			Str("sid", l.sid).
			Str("message", protocol.ConnectErrorMessage(sp)).
			Msg("server rejected namespace")
		return ReasonServerDisconnect, true
	default:
		log.Debug().Str("type", fmt.Sprintf("%c", sp.Type)).Msg("ignoring socket packet")
	}
	return "", false
}

func readFailureReason(err error) string {
	var ne net.Error
	if errors.Is(err, os.ErrDeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return ReasonPingTimeout
	}
	if errors.Is(err, ErrConnClosed) {
		return ReasonTransportClose
	}
	return ReasonTransportError
}
