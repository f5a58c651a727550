package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/wordrush/go/internal/game/state"
)

// session is the part of client.Client the terminal drives.
type session interface {
	JoinRoom(roomCode, username string) bool
	LeaveRoom() bool
	StartGame() bool
	SubmitWord(word string) bool
	SendMessage(message string) bool
	RequestRoomState() bool
	SendTyping(word string) bool
	State() state.State
}

const usage = `commands:
  /join CODE NAME   join a room
  /start            start the game
  /leave            leave the room
  /say MESSAGE      send a chat message
  /typing WORD      show WORD as your in-progress word
  /sync             request a full room snapshot
  /state            print the local state
  /quit             exit
  anything else     submit it as a word`

// runCommands reads one command per line until EOF, /quit or ctx is done.
func runCommands(ctx context.Context, in io.Reader, s session) error {
	lines := make(chan string)
	errs := make(chan error, 1)

	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		errs <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return <-errs
			}
			if quit := execute(s, line); quit {
				return nil
			}
		}
	}
}

// execute runs a single input line and reports whether the user asked to quit.
func execute(s session, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	if !strings.HasPrefix(line, "/") {
		s.SubmitWord(line)
		return false
	}

	name, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch name {
	case "/join":
		args := strings.Fields(rest)
		if len(args) != 2 {
			log.Warn().Msg("usage: /join CODE NAME")
			return false
		}
		s.JoinRoom(strings.ToUpper(args[0]), args[1])
	case "/start":
		s.StartGame()
	case "/leave":
		s.LeaveRoom()
	case "/say":
		s.SendMessage(rest)
	case "/typing":
		s.SendTyping(rest)
	case "/sync":
		s.RequestRoomState()
	case "/state":
		printState(s.State())
	case "/quit", "/exit":
		return true
	case "/help":
		fmt.Println(usage)
	default:
		log.Warn().Str("command", name).Msg("unknown command, try /help")
	}
	return false
}

func printState(st state.State) {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		log.Error().Err(err).Msg("failed to render state")
		return
	}
	fmt.Println(string(data))
}
