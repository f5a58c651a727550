package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/wordrush/go/internal/game/client"
	"github.com/mcdev12/wordrush/go/internal/game/relay"
	"github.com/mcdev12/wordrush/go/internal/game/socket"
)

func main() {
	configPath := flag.String("config", "wordrush.yaml", "path to config file")
	flag.Parse()

	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("could not load .env file")
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	setupLogging(cfg.Log.Level)

	clientID := uuid.New().String()[:8]
	log.Info().
		Str("client_id", clientID).
		Str("server", cfg.Server.URL).
		Strs("transports", cfg.Server.Transports).
		Msg("starting wordrush client")

	var stateRelay *relay.Relay
	if cfg.Relay.NATSURL != "" {
		relayCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		stateRelay, err = relay.Connect(relayCtx, cfg.relayConfig(), clientID)
		cancel()
		if err != nil {
			log.Error().Err(err).Str("nats_url", cfg.Relay.NATSURL).Msg("state relay disabled")
		} else {
			defer stateRelay.Close()
		}
	}

	sc := cfg.socketConfig()
	channel := socket.NewChannel(sc, socket.NewWebsocketDialer(sc), socket.StaticToken(cfg.Session.Token), nil)

	opts := client.Options{
		ID:            clientID,
		TickInterval:  cfg.Countdown.Interval,
		DisableResync: !cfg.ResyncOnReconnect,
		TypingRate:    cfg.typingLimit(),
		TypingBurst:   cfg.Typing.Burst,
	}
	if stateRelay != nil {
		opts.Relay = stateRelay
	}
	session := client.New(channel, opts)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session.Connect(ctx)
	go watch(ctx, session, cfg.Session.Room, cfg.Session.Username)

	if err := runCommands(ctx, os.Stdin, session); err != nil {
		log.Error().Err(err).Msg("reading commands failed")
	}

	session.Close()
	log.Info().Msg("wordrush client shutdown complete")
}

func setupLogging(level string) {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		log.Warn().Str("level", level).Msg("unknown log level, using info")
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}
