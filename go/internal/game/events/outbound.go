package events

// Outbound is the closed set of client commands.
type Outbound interface {
	CommandName() string
	isOutbound()
}

const (
	CmdJoinRoom     = "join_room"
	CmdLeaveRoom    = "leave_room"
	CmdStartGame    = "start_game"
	CmdSubmitWord   = "submit_word"
	CmdSendMessage  = "send_message"
	CmdGetRoomState = "get_room_state"
	CmdTypingWord   = "typing_word"
)

type JoinRoom struct {
	RoomCode string `json:"room_code"`
	Username string `json:"username"`
}

type LeaveRoom struct {
	RoomCode string `json:"room_code"`
	Username string `json:"username"`
}

type StartGame struct {
	RoomCode string `json:"room_code"`
	Username string `json:"username"`
}

// SubmitWord carries an already normalized (trimmed, upper-cased) word.
type SubmitWord struct {
	RoomCode string `json:"room_code"`
	Username string `json:"username"`
	Word     string `json:"word"`
}

type SendMessage struct {
	RoomCode string `json:"room_code"`
	Username string `json:"username"`
	Message  string `json:"message"`
}

type GetRoomState struct {
	RoomCode string `json:"room_code"`
}

type TypingWord struct {
	RoomCode string `json:"room_code"`
	Username string `json:"username"`
	Word     string `json:"word"`
}

func (JoinRoom) CommandName() string     { return CmdJoinRoom }
func (LeaveRoom) CommandName() string    { return CmdLeaveRoom }
func (StartGame) CommandName() string    { return CmdStartGame }
func (SubmitWord) CommandName() string   { return CmdSubmitWord }
func (SendMessage) CommandName() string  { return CmdSendMessage }
func (GetRoomState) CommandName() string { return CmdGetRoomState }
func (TypingWord) CommandName() string   { return CmdTypingWord }

func (JoinRoom) isOutbound()     {}
func (LeaveRoom) isOutbound()    {}
func (StartGame) isOutbound()    {}
func (SubmitWord) isOutbound()   {}
func (SendMessage) isOutbound()  {}
func (GetRoomState) isOutbound() {}
func (TypingWord) isOutbound()   {}
