package state

import (
	"slices"
	"time"

	"github.com/mcdev12/wordrush/go/internal/game/events"
	"github.com/mcdev12/wordrush/go/internal/models"
)

// Reduce applies u to s and returns the resulting state. It never mutates s
// or any slice reachable from it. now is the local receipt time.
func Reduce(s State, u Update, now time.Time) State {
	// Events still in flight after a leave or teardown belong to a session
	// that no longer exists.
	if !s.Bound() && sessionScoped(u) {
		return s
	}

	switch u := u.(type) {
	case PlayerJoined:
		return applyPlayerJoined(s, u)
	case PlayerLeft:
		return applyPlayerLeft(s, u)
	case RoomInfoChanged:
		return mergeRoomInfo(s, u.Info)
	case GameStarted:
		return applyGameStarted(s, u)
	case TurnChanged:
		return applyTurnChanged(s, u, now)
	case WordAccepted:
		return applyWordAccepted(s, u)
	case WordRejected:
		return applyWordRejected(s, u)
	case PlayerTimedOut:
		return applyPlayerTimedOut(s, u)
	case PlayerEliminated:
		return applyPlayerEliminated(s, u)
	case GameEnded:
		return applyGameEnded(s, u)
	case ChatAppended:
		return applyChat(s, u, now)
	case RoomSnapshot:
		return applySnapshot(s, u)
	case TypingChanged:
		if u.Word == "" {
			s.Typing = nil
		} else {
			s.Typing = &models.TypingIndicator{Username: u.Username, Word: u.Word}
		}
		return s
	case LoadingSet:
		s.Loading = u.Loading
		return s
	case ErrorSet:
		s.Error = u.Message
		s.Loading = false
		return s
	case Tick:
		return applyTick(s, u.Now)
	case SessionBound:
		return applySessionBound(s, u)
	case ConnectionChanged:
		s.Connection = u.Info
		return s
	case Reset:
		return reset(s)
	default:
		return s
	}
}

// sessionScoped reports whether u only makes sense for a bound room: every
// server-asserted update plus countdown ticks.
func sessionScoped(u Update) bool {
	switch u.(type) {
	case PlayerJoined, PlayerLeft, RoomInfoChanged, GameStarted, TurnChanged,
		WordAccepted, WordRejected, PlayerTimedOut, PlayerEliminated, GameEnded,
		ChatAppended, RoomSnapshot, TypingChanged, Tick:
		return true
	default:
		return false
	}
}

func reset(s State) State {
	next := Initial()
	next.Connection = s.Connection
	return next
}

func livesPerPlayer(s State) int {
	if s.RoomInfo == nil {
		return 0
	}
	return s.RoomInfo.LivesPerPlayer
}

// normalizeRoster converts a server roster into models, dropping duplicate
// usernames. Fields missing on the wire fall back to the previous roster entry
// unless fresh is set, then to defaultLives and alive.
func normalizeRoster(prev []models.Player, incoming []events.PlayerPayload, defaultLives int, fresh bool) []models.Player {
	out := make([]models.Player, 0, len(incoming))
	for _, p := range incoming {
		if p.Username == "" || models.IndexOfPlayer(out, p.Username) >= 0 {
			continue
		}
		player := models.Player{
			Username: p.Username,
			Points:   p.Points,
			Lives:    defaultLives,
			IsAlive:  true,
			Avatar:   p.Avatar,
		}
		if !fresh {
			if i := models.IndexOfPlayer(prev, p.Username); i >= 0 {
				player.Lives = prev[i].Lives
				player.IsAlive = prev[i].IsAlive
				if player.Avatar == "" {
					player.Avatar = prev[i].Avatar
				}
			}
		}
		if p.Lives != nil {
			player.Lives = *p.Lives
		}
		if p.IsAlive != nil {
			player.IsAlive = *p.IsAlive
		}
		out = append(out, player)
	}
	return out
}

// mergeRoomInfo replaces room metadata. A creator, once known, is kept when
// the incoming info omits it.
func mergeRoomInfo(s State, info models.RoomInfo) State {
	if info.Creator == "" && s.RoomInfo != nil {
		info.Creator = s.RoomInfo.Creator
	}
	s.RoomInfo = &info
	s.Status = info.State
	if s.Status == models.RoomStatusFinished {
		s.Turn = clearedTurn(s.Turn)
	}
	return s
}

func withRoomState(s State, status models.RoomStatus) State {
	s.Status = status
	if s.RoomInfo != nil {
		info := *s.RoomInfo
		info.State = status
		s.RoomInfo = &info
	}
	return s
}

func applyPlayerJoined(s State, u PlayerJoined) State {
	if u.RoomInfo != nil {
		s = mergeRoomInfo(s, u.RoomInfo.ToModel())
	}
	if len(u.Players) > 0 {
		s.Players = normalizeRoster(s.Players, u.Players, livesPerPlayer(s), false)
	}
	if u.Username != "" && models.IndexOfPlayer(s.Players, u.Username) < 0 {
		s.Players = append(slices.Clip(s.Players), models.Player{
			Username: u.Username,
			Lives:    livesPerPlayer(s),
			IsAlive:  true,
		})
	}
	return s
}

func applyPlayerLeft(s State, u PlayerLeft) State {
	if models.IndexOfPlayer(s.Players, u.Username) < 0 {
		return s
	}
	s.Players = slices.DeleteFunc(slices.Clone(s.Players), func(p models.Player) bool {
		return p.Username == u.Username
	})
	if s.Typing != nil && s.Typing.Username == u.Username {
		s.Typing = nil
	}
	return s
}

func applyGameStarted(s State, u GameStarted) State {
	s = withRoomState(s, models.RoomStatusPlaying)
	if len(u.Players) > 0 {
		s.Players = normalizeRoster(nil, u.Players, livesPerPlayer(s), true)
	}
	if s.Turn.Round < 1 {
		s.Turn.Round = 1
	}
	s.GameEnd = nil
	s.LastWord = nil
	return s
}

func applyTurnChanged(s State, u TurnChanged, now time.Time) State {
	// A turn that arrives after the game ended is stale.
	if s.Status == models.RoomStatusFinished {
		return s
	}
	if s.Status != models.RoomStatusPlaying {
		s = withRoomState(s, models.RoomStatusPlaying)
	}

	limit := u.TimeLimit
	if limit <= 0 {
		limit = s.Turn.TimeLimitSeconds
	}
	prompt := u.Prompt
	s.Turn = models.TurnState{
		CurrentPlayer:        u.Player,
		PlayerIndex:          u.PlayerIndex,
		Prompt:               &prompt,
		Round:                max(s.Turn.Round, u.Round),
		TimeLimitSeconds:     limit,
		StartedAt:            now,
		TimeRemainingSeconds: limit,
	}
	s.LastWord = nil

	players := slices.Clone(s.Players)
	for i := range players {
		lives, ok := u.Lives[players[i].Username]
		if !ok {
			continue
		}
		players[i].Lives = lives
		players[i].IsAlive = players[i].IsAlive && lives > 0
	}
	s.Players = players
	return s
}

func applyWordAccepted(s State, u WordAccepted) State {
	i := models.IndexOfPlayer(s.Players, u.Username)
	if i < 0 {
		return s
	}
	s.Players = slices.Clone(s.Players)
	s.Players[i].Points = u.TotalPoints
	s.LastWord = &models.WordOutcome{Word: u.Word, Status: models.WordAccepted}
	return s
}

// applyWordRejected updates lives only. Elimination is never inferred here.
func applyWordRejected(s State, u WordRejected) State {
	i := models.IndexOfPlayer(s.Players, u.Username)
	if i < 0 {
		return s
	}
	s.Players = slices.Clone(s.Players)
	if s.Players[i].IsAlive {
		s.Players[i].Lives = u.LivesRemaining
	}
	s.LastWord = &models.WordOutcome{Word: u.Word, Status: models.WordRejected, Reason: u.Reason}
	return s
}

func applyPlayerTimedOut(s State, u PlayerTimedOut) State {
	i := models.IndexOfPlayer(s.Players, u.Username)
	if i < 0 || !s.Players[i].IsAlive {
		return s
	}
	s.Players = slices.Clone(s.Players)
	s.Players[i].Lives = u.LivesRemaining
	s.Players[i].IsAlive = u.LivesRemaining > 0
	return s
}

func applyPlayerEliminated(s State, u PlayerEliminated) State {
	i := models.IndexOfPlayer(s.Players, u.Username)
	if i < 0 {
		return s
	}
	s.Players = slices.Clone(s.Players)
	s.Players[i].Lives = 0
	s.Players[i].IsAlive = false
	return s
}

func clearedTurn(t models.TurnState) models.TurnState {
	return models.TurnState{Round: t.Round, TimeLimitSeconds: t.TimeLimitSeconds}
}

func applyGameEnded(s State, u GameEnded) State {
	// The summary is immutable once set.
	if s.Status == models.RoomStatusFinished && s.GameEnd != nil {
		return s
	}
	s = withRoomState(s, models.RoomStatusFinished)
	s.GameEnd = &models.GameEndSummary{
		Winner:      u.Winner,
		FinalScores: slices.Clone(u.FinalScores),
		TotalRounds: u.TotalRounds,
		TotalWords:  u.TotalWords,
	}
	s.Turn = clearedTurn(s.Turn)
	return s
}

func applyChat(s State, u ChatAppended, now time.Time) State {
	ts := now
	if u.Timestamp != nil {
		ts = time.UnixMilli(*u.Timestamp)
	}
	s.Chat = append(slices.Clip(s.Chat), models.ChatMessage{
		Username:  u.Username,
		Message:   u.Message,
		Timestamp: ts,
	})
	return s
}

// applySnapshot resynchronizes from a full room push. Snapshots for a room
// we are not bound to are ignored.
func applySnapshot(s State, u RoomSnapshot) State {
	if !s.Bound() {
		return s
	}
	if u.RoomCode != "" && u.RoomCode != s.RoomCode {
		return s
	}

	s = mergeRoomInfo(s, models.RoomInfo{
		Code:           s.RoomCode,
		Gamemode:       u.Gamemode,
		Difficulty:     u.Difficulty,
		LivesPerPlayer: u.Lives,
		MaxPlayers:     u.MaxPlayers,
		State:          models.ParseRoomStatus(u.State),
		Creator:        u.Creator,
	})
	s.Players = normalizeRoster(s.Players, u.Players, u.Lives, false)

	if s.Status == models.RoomStatusPlaying {
		s.GameEnd = nil
	}
	if u.GameState != nil && s.Status != models.RoomStatusFinished {
		s.Turn.CurrentPlayer = u.GameState.CurrentPlayer
		if u.GameState.CurrentPrompt != nil {
			prompt := *u.GameState.CurrentPrompt
			s.Turn.Prompt = &prompt
		} else {
			s.Turn.Prompt = nil
		}
		s.Turn.Round = max(s.Turn.Round, u.GameState.Round)
	}
	return s
}

// applyTick recomputes the countdown. The remaining time never increases
// within a turn.
func applyTick(s State, now time.Time) State {
	if s.Status != models.RoomStatusPlaying || !s.Turn.Active() {
		return s
	}
	if remaining := s.Turn.RemainingAt(now); remaining < s.Turn.TimeRemainingSeconds {
		s.Turn.TimeRemainingSeconds = remaining
	}
	return s
}

func applySessionBound(s State, u SessionBound) State {
	if s.RoomCode != "" && s.RoomCode != u.RoomCode {
		s = reset(s)
	}
	s.RoomCode = u.RoomCode
	s.Username = u.Username
	return s
}
