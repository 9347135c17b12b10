package main

import "encoding/json"

// Client -> Server message types
const (
	MsgCreate      = "create" // create a run
	MsgJoin        = "join"   // take the pilot seat or spectate
	MsgLeave       = "leave"
	MsgInput       = "input"
	MsgRetry       = "retry" // restart the failed level
	MsgList        = "list"
	MsgCheck       = "check"
	MsgRegister    = "register"
	MsgLogin       = "login"
	MsgAuth        = "auth"
	MsgProfile     = "profile"
	MsgLeaderboard = "leaderboard"
)

// Server -> Client message types
const (
	MsgState       = "state" // binary msgpack GameState
	MsgEvents      = "events"
	MsgPhase       = "phase"
	MsgResult      = "result"
	MsgCreated     = "created"
	MsgJoined      = "joined"
	MsgSessions    = "sessions"
	MsgChecked     = "checked"
	MsgError       = "error"
	MsgAuthOK      = "auth_ok"
	MsgProfileData = "profile_data"
	MsgBoard       = "board"
)

// binaryInputTag prefixes msgpack-encoded PlayerInput frames
const binaryInputTag = 0x01

// Envelope wraps all outgoing messages with a type field
type Envelope struct {
	T    string `json:"t"`
	Data any    `json:"d,omitempty"`
}

// InEnvelope is used for incoming messages; json.RawMessage avoids double-unmarshal
type InEnvelope struct {
	T string          `json:"t"`
	D json.RawMessage `json:"d,omitempty"`
}

// CreateMsg starts a new run at the given level (0-based)
type CreateMsg struct {
	Name  string `json:"name"`
	Level int    `json:"level"`
}

// JoinMsg attaches a connection to a run
type JoinMsg struct {
	Name      string `json:"name"`
	SessionID string `json:"sid"`
	Pilot     bool   `json:"pilot"`
}

// JoinedMsg confirms a join
type JoinedMsg struct {
	SessionID string `json:"sid"`
	PlayerID  string `json:"id,omitempty"`
	Pilot     bool   `json:"pilot"`
}

// GameState is the per-broadcast snapshot of a run
type GameState struct {
	Phase      string    `json:"phase" msgpack:"phase"`
	Level      LevelView `json:"lvl" msgpack:"lvl"`
	Spectators int       `json:"spec" msgpack:"spec"`
	Tick       uint64    `json:"tick" msgpack:"tick"`
}

// PhaseMsg announces a run phase change
type PhaseMsg struct {
	Phase string `json:"phase"`
	Level int    `json:"level"`
	Name  string `json:"name"`
}

// ResultMsg reports a finished level attempt
type ResultMsg struct {
	Level        int      `json:"level"`
	Won          bool     `json:"won"`
	Duration     float64  `json:"dur"`
	Kills        int      `json:"kills"`
	Fragments    int      `json:"frags"`
	Accuracy     float64  `json:"acc"`
	XP           int      `json:"xp,omitempty"`
	Rank         int      `json:"rank,omitempty"`
	Achievements []string `json:"ach,omitempty"`
}

// SessionInfo is used in the session list
type SessionInfo struct {
	ID         string `json:"id"`
	Pilot      string `json:"pilot"`
	Level      int    `json:"level"`
	Phase      string `json:"phase"`
	Spectators int    `json:"spectators"`
}

// ErrorMsg sends error to client
type ErrorMsg struct {
	Msg string `json:"msg"`
}

// CheckMsg is sent by client to check if a session exists
type CheckMsg struct {
	SID string `json:"sid"`
}

// CheckedMsg is the response to a session check
type CheckedMsg struct {
	SID        string `json:"sid"`
	Exists     bool   `json:"exists"`
	Pilot      string `json:"pilot,omitempty"`
	Level      int    `json:"level,omitempty"`
	Spectators int    `json:"spectators,omitempty"`
}

// RegisterMsg / LoginMsg carry account credentials
type RegisterMsg struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginMsg struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthMsg resumes a session from a stored token
type AuthMsg struct {
	Token string `json:"token"`
}

// AuthOKMsg confirms authentication
type AuthOKMsg struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	PlayerID int64  `json:"pid"`
}

// ProfileDataMsg is the account overview
type ProfileDataMsg struct {
	Username     string   `json:"username"`
	Rank         int      `json:"rank"`
	XP           int      `json:"xp"`
	Kills        int      `json:"kills"`
	Deaths       int      `json:"deaths"`
	Clears       int      `json:"clears"`
	Fragments    int      `json:"frags"`
	Playtime     float64  `json:"playtime"`
	Cleared      []int    `json:"cleared"`
	Achievements []string `json:"ach"`
}

// LeaderboardMsg requests the fastest clears of a level
type LeaderboardMsg struct {
	Level int `json:"level"`
	Limit int `json:"limit"`
}

// BoardMsg answers a leaderboard request
type BoardMsg struct {
	Level   int                `json:"level"`
	Entries []LeaderboardEntry `json:"entries"`
}
