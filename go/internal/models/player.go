package models

// Player represents a participant in a room's roster. Username is the
// identity key; the server never assigns numeric IDs.
type Player struct {
	Username string `json:"username"`
	Points   int    `json:"points"`
	Lives    int    `json:"lives"`
	IsAlive  bool   `json:"is_alive"`
	Avatar   string `json:"avatar,omitempty"`
}

// FinalScore is one row of the end-of-game scoreboard.
type FinalScore struct {
	Username string `json:"username"`
	Points   int    `json:"points"`
	Lives    int    `json:"lives"`
}

// IndexOfPlayer returns the roster position of username, or -1.
func IndexOfPlayer(players []Player, username string) int {
	for i := range players {
		if players[i].Username == username {
			return i
		}
	}
	return -1
}

// Usernames returns the roster usernames in display order.
func Usernames(players []Player) []string {
	names := make([]string, 0, len(players))
	for _, p := range players {
		names = append(names, p.Username)
	}
	return names
}
