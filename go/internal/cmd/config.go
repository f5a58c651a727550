package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"

	"github.com/mcdev12/wordrush/go/internal/game/countdown"
	"github.com/mcdev12/wordrush/go/internal/game/relay"
	"github.com/mcdev12/wordrush/go/internal/game/socket"
)

type Config struct {
	Server struct {
		URL                  string        `yaml:"url"`
		Path                 string        `yaml:"path"`
		Transports           []string      `yaml:"transports"`
		ReconnectionAttempts int           `yaml:"reconnection_attempts"`
		ReconnectionDelay    time.Duration `yaml:"reconnection_delay"`
		HandshakeTimeout     time.Duration `yaml:"handshake_timeout"`
	} `yaml:"server"`

	Session struct {
		Token    string `yaml:"token"`
		Username string `yaml:"username"`
		Room     string `yaml:"room"`
	} `yaml:"session"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	Countdown struct {
		Interval time.Duration `yaml:"interval"`
	} `yaml:"countdown"`

	Typing struct {
		Rate  float64 `yaml:"rate"`
		Burst int     `yaml:"burst"`
	} `yaml:"typing"`

	Relay struct {
		NATSURL       string `yaml:"nats_url"`
		Stream        string `yaml:"stream"`
		SubjectPrefix string `yaml:"subject_prefix"`
	} `yaml:"relay"`

	ResyncOnReconnect bool `yaml:"resync_on_reconnect"`
}

func defaultConfig() *Config {
	sc := socket.DefaultConfig("http://localhost:7777")

	var cfg Config
	cfg.Server.URL = sc.URL
	cfg.Server.Path = sc.Path
	cfg.Server.Transports = sc.Transports
	cfg.Server.ReconnectionAttempts = sc.ReconnectionAttempts
	cfg.Server.ReconnectionDelay = sc.ReconnectionDelay
	cfg.Server.HandshakeTimeout = sc.HandshakeTimeout
	cfg.Log.Level = "info"
	cfg.Countdown.Interval = countdown.DefaultInterval
	cfg.Typing.Rate = 5
	cfg.Typing.Burst = 2
	cfg.Relay.Stream = relay.DefaultConfig().StreamName
	cfg.Relay.SubjectPrefix = relay.DefaultConfig().SubjectPrefix
	cfg.ResyncOnReconnect = true
	return &cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// loadConfig reads path over the defaults. A missing file is not an error.
func loadConfig(path string) (*Config, error) {
	config := defaultConfig()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return config, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// applyEnv lets the environment override the file.
func (c *Config) applyEnv() {
	c.Server.URL = getEnv("WORDRUSH_SERVER_URL", c.Server.URL)
	c.Server.ReconnectionAttempts = getEnvAsInt("WORDRUSH_RECONNECT_ATTEMPTS", c.Server.ReconnectionAttempts)
	c.Session.Token = getEnv("WORDRUSH_TOKEN", c.Session.Token)
	c.Session.Username = getEnv("WORDRUSH_USERNAME", c.Session.Username)
	c.Session.Room = getEnv("WORDRUSH_ROOM", c.Session.Room)
	c.Log.Level = getEnv("WORDRUSH_LOG_LEVEL", c.Log.Level)
	c.Relay.NATSURL = getEnv("NATS_URL", c.Relay.NATSURL)
}

func (c *Config) validate() error {
	if c.Server.URL == "" {
		return errors.New("server url is required")
	}
	for _, t := range c.Server.Transports {
		if t != socket.TransportPolling && t != socket.TransportWebsocket {
			return fmt.Errorf("unknown transport %q", t)
		}
	}
	return nil
}

func (c *Config) socketConfig() socket.Config {
	sc := socket.DefaultConfig(c.Server.URL)
	sc.Path = c.Server.Path
	sc.Transports = c.Server.Transports
	sc.ReconnectionAttempts = c.Server.ReconnectionAttempts
	sc.ReconnectionDelay = c.Server.ReconnectionDelay
	sc.HandshakeTimeout = c.Server.HandshakeTimeout
	return sc
}

func (c *Config) relayConfig() relay.Config {
	rc := relay.DefaultConfig()
	rc.URL = c.Relay.NATSURL
	if c.Relay.Stream != "" {
		rc.StreamName = c.Relay.Stream
	}
	if c.Relay.SubjectPrefix != "" {
		rc.SubjectPrefix = c.Relay.SubjectPrefix
	}
	return rc
}

func (c *Config) typingLimit() rate.Limit {
	return rate.Limit(c.Typing.Rate)
}
