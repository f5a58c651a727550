package socket

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/wordrush/go/clients"
	"github.com/mcdev12/wordrush/go/internal/game/protocol"
)

var ErrUpgradeUnavailable = errors.New("server did not offer a websocket upgrade")

// WebsocketDialer negotiates an Engine.IO session over HTTP long-polling and
// upgrades it to a websocket. With polling disabled it dials the websocket
// directly.
type WebsocketDialer struct {
	cfg  Config
	http *clients.BaseClient
	ws   websocket.Dialer
}

// NewWebsocketDialer creates a dialer for cfg.URL. Zero fields of cfg take their defaults.
func NewWebsocketDialer(cfg Config) *WebsocketDialer {
	cfg = cfg.withDefaults()

	httpClient := clients.NewBaseClient(strings.TrimRight(cfg.URL, "/"))
	httpClient.SetTimeout(cfg.HandshakeTimeout)
	httpClient.SetHeader("Accept", "*/*")

	return &WebsocketDialer{
		cfg:  cfg,
		http: httpClient,
		ws: websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: cfg.HandshakeTimeout,
			ReadBufferSize:   4096,
			WriteBufferSize:  4096,
		},
	}
}

// Dial opens an Engine.IO session, presenting token as a bearer credential,
// and returns the websocket connection with the server's open packet.
func (d *WebsocketDialer) Dial(ctx context.Context, token string) (Conn, protocol.OpenInfo, error) {
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	if d.cfg.usesPolling() {
		return d.dialUpgrade(ctx, header)
	}
	return d.dialDirect(ctx, header)
}

func (d *WebsocketDialer) dialUpgrade(ctx context.Context, header http.Header) (Conn, protocol.OpenInfo, error) {
	body, err := d.http.Get(ctx, d.pollingEndpoint(), header)
	if err != nil {
		return nil, protocol.OpenInfo{}, fmt.Errorf("polling handshake: %w", err)
	}

	packets, err := protocol.DecodePollingPayload(body)
	if err != nil {
		return nil, protocol.OpenInfo{}, fmt.Errorf("polling handshake: %w", err)
	}
	if len(packets) == 0 {
		return nil, protocol.OpenInfo{}, protocol.ErrUnexpectedResponse
	}
	open, err := protocol.ParseOpen(packets[0])
	if err != nil {
		return nil, protocol.OpenInfo{}, err
	}
	if !open.CanUpgradeTo(TransportWebsocket) {
		return nil, protocol.OpenInfo{}, ErrUpgradeUnavailable
	}

	log.Debug().
		Str("sid", open.SID).
		Int("ping_interval_ms", open.PingInterval).
		Msg("polling handshake complete, upgrading")

	conn, err := d.dialWebsocket(ctx, open.SID, header)
	if err != nil {
		return nil, protocol.OpenInfo{}, err
	}

	if err := d.probe(conn); err != nil {
		_ = conn.Close()
		return nil, protocol.OpenInfo{}, fmt.Errorf("upgrade probe: %w", err)
	}
	return conn, open, nil
}

func (d *WebsocketDialer) dialDirect(ctx context.Context, header http.Header) (Conn, protocol.OpenInfo, error) {
	conn, err := d.dialWebsocket(ctx, "", header)
	if err != nil {
		return nil, protocol.OpenInfo{}, err
	}

	_ = conn.SetReadDeadline(time.Now().Add(d.cfg.HandshakeTimeout))
	msg, err := conn.ReadMessage()
	if err != nil {
		_ = conn.Close()
		return nil, protocol.OpenInfo{}, fmt.Errorf("read open packet: %w", err)
	}
	pkt, err := protocol.DecodeEngine(msg)
	if err != nil {
		_ = conn.Close()
		return nil, protocol.OpenInfo{}, err
	}
	open, err := protocol.ParseOpen(pkt)
	if err != nil {
		_ = conn.Close()
		return nil, protocol.OpenInfo{}, err
	}
	_ = conn.SetReadDeadline(time.Time{})
	return conn, open, nil
}

func (d *WebsocketDialer) dialWebsocket(ctx context.Context, sid string, header http.Header) (*wsConn, error) {
	target, err := d.websocketURL(sid)
	if err != nil {
		return nil, err
	}

	c, resp, err := d.ws.DialContext(ctx, target, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket dial: %w (status %d)", err, resp.StatusCode)
		}
		return nil, fmt.Errorf("websocket dial: %w", err)
	}
	c.SetReadLimit(d.cfg.MaxMessageSize)

	return &wsConn{conn: c, writeTimeout: d.cfg.WriteTimeout}, nil
}

// probe runs the 2probe/3probe/5 exchange that moves the session onto the
// websocket.
func (d *WebsocketDialer) probe(conn *wsConn) error {
	ping := protocol.EncodeEngine(protocol.EnginePacket{Type: protocol.EnginePing, Data: "probe"})
	if err := conn.WriteMessage(ping); err != nil {
		return err
	}

	_ = conn.SetReadDeadline(time.Now().Add(d.cfg.HandshakeTimeout))
	defer conn.SetReadDeadline(time.Time{})

	msg, err := conn.ReadMessage()
	if err != nil {
		return err
	}
	pkt, err := protocol.DecodeEngine(msg)
	if err != nil {
		return err
	}
	if pkt.Type != protocol.EnginePong || pkt.Data != "probe" {
		return fmt.Errorf("%w: got %s %q", protocol.ErrUnexpectedResponse, pkt.Type, pkt.Data)
	}

	return conn.WriteMessage(protocol.EncodeEngine(protocol.EnginePacket{Type: protocol.EngineUpgrade}))
}

func (d *WebsocketDialer) pollingEndpoint() string {
	q := url.Values{}
	q.Set("EIO", protocol.EngineVersion)
	q.Set("transport", TransportPolling)
	return d.cfg.Path + "?" + q.Encode()
}

func (d *WebsocketDialer) websocketURL(sid string) (string, error) {
	u, err := url.Parse(d.cfg.URL)
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}
	u.Path = d.cfg.Path

	q := url.Values{}
	q.Set("EIO", protocol.EngineVersion)
	q.Set("transport", TransportWebsocket)
	if sid != "" {
		q.Set("sid", sid)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// wsConn adapts a gorilla connection to Conn.
type wsConn struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
}

func (c *wsConn) ReadMessage() ([]byte, error) {
	for {
		mt, data, err := c.conn.ReadMessage()
		if err != nil {
			return nil, translateReadError(err)
		}
		if mt != websocket.TextMessage {
			log.Debug().Int("message_type", mt).Msg("ignoring non-text frame")
			continue
		}
		return data, nil
	}
}

func (c *wsConn) WriteMessage(data []byte) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *wsConn) SetReadDeadline(t time.Time) error {
	return c.conn.SetReadDeadline(t)
}

func (c *wsConn) Close() error {
	_ = c.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	return c.conn.Close()
}

func translateReadError(err error) error {
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: %v", ErrConnClosed, err)
	}
	return err
}
