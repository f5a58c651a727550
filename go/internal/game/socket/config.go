package socket

import (
	"context"
	"time"
)

const (
	TransportPolling   = "polling"
	TransportWebsocket = "websocket"
)

// Config holds configuration for the realtime channel.
type Config struct {
	URL        string
	Path       string
	Transports []string

	ReconnectionAttempts int
	ReconnectionDelay    time.Duration

	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	MaxMessageSize   int64
	SendBufferSize   int
}

// DefaultConfig returns the channel configuration used by the game client.
func DefaultConfig(url string) Config {
	return Config{
		URL:                  url,
		Path:                 "/socket.io/",
		Transports:           []string{TransportPolling, TransportWebsocket},
		ReconnectionAttempts: 5,
		ReconnectionDelay:    time.Second,
		HandshakeTimeout:     10 * time.Second,
		WriteTimeout:         10 * time.Second,
		MaxMessageSize:       1 << 20,
		SendBufferSize:       64,
	}
}

func (c Config) usesPolling() bool {
	for _, t := range c.Transports {
		if t == TransportPolling {
			return true
		}
	}
	return false
}

func (c Config) withDefaults() Config {
	d := DefaultConfig(c.URL)
	if c.Path == "" {
		c.Path = d.Path
	}
	if len(c.Transports) == 0 {
		c.Transports = d.Transports
	}
	if c.ReconnectionAttempts <= 0 {
		c.ReconnectionAttempts = d.ReconnectionAttempts
	}
	if c.ReconnectionDelay <= 0 {
		c.ReconnectionDelay = d.ReconnectionDelay
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = d.HandshakeTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = d.MaxMessageSize
	}
	if c.SendBufferSize <= 0 {
		c.SendBufferSize = d.SendBufferSize
	}
	return c
}

// TokenSource supplies the bearer token presented on every connection attempt.
// Token acquisition itself lives outside this package.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource that always returns the same token.
type StaticToken string

// Token returns t.
func (t StaticToken) Token(context.Context) (string, error) {
	return string(t), nil
}
