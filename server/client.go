package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	writeWait         = 10 * time.Second
	pongWait          = 60 * time.Second
	pingPeriod        = (pongWait * 9) / 10
	maxMessageSize    = 4096
	sendBufSize       = 256
	maxMessagesPerSec = 80
	maxNameLen        = 16
	maxBoardLimit     = 50
)

// Client represents a WebSocket connection
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	clientID   string // player id for the pilot, spectator id otherwise
	sessionID  string
	pilot      bool
	remoteAddr string
	msgCount   int
	msgResetAt time.Time
	// Auth state
	authPlayerID int64  // 0 = guest
	authUsername string // "" = guest
}

// NewClient creates a new Client
func NewClient(hub *Hub, conn *websocket.Conn, remoteAddr string) *Client {
	return &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, sendBufSize),
		remoteAddr: remoteAddr,
	}
}

// ReadPump reads messages from the WebSocket connection
func (c *Client) ReadPump() {
	defer func() {
		c.hub.TrackDisconnect(c.remoteAddr)
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		msgType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("ws read error", "addr", c.remoteAddr, "err", err)
			}
			break
		}

		now := time.Now()
		if now.After(c.msgResetAt) {
			c.msgCount = 0
			c.msgResetAt = now.Add(time.Second)
		}
		c.msgCount++
		if c.msgCount > maxMessagesPerSec {
			slog.Warn("rate limit exceeded, disconnecting", "addr", c.remoteAddr)
			break
		}

		// Binary input frames: [0x01, msgpack(PlayerInput)...]
		if msgType == websocket.BinaryMessage && len(message) > 1 && message[0] == binaryInputTag {
			c.handleBinaryInput(message[1:])
		} else {
			c.handleMessage(message)
		}
	}
}

// WritePump writes messages to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			// 0xFF prefix marks frames queued by SendBinary
			var err error
			if len(message) > 0 && message[0] == 0xFF {
				err = c.conn.WriteMessage(websocket.BinaryMessage, message[1:])
			} else {
				err = c.conn.WriteMessage(websocket.TextMessage, message)
			}
			if err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendJSON sends a JSON message to the client
func (c *Client) SendJSON(msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("marshal error", "err", err)
		return
	}
	c.SendRaw(data)
}

// SendRaw sends pre-marshaled bytes as a text message to the client
func (c *Client) SendRaw(data []byte) {
	defer func() { recover() }() // send may already be closed
	select {
	case c.send <- data:
	default:
		// Client too slow, drop message
	}
}

// SendBinary sends pre-marshaled bytes as a binary WebSocket message
func (c *Client) SendBinary(data []byte) {
	defer func() { recover() }()
	msg := make([]byte, len(data)+1)
	msg[0] = 0xFF
	copy(msg[1:], data)
	select {
	case c.send <- msg:
	default:
	}
}

func (c *Client) sendError(msg string) {
	c.SendJSON(Envelope{T: MsgError, Data: ErrorMsg{Msg: msg}})
}

// handleMessage routes incoming messages (single-pass decode via InEnvelope)
func (c *Client) handleMessage(raw []byte) {
	var env InEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		slog.Debug("bad message", "addr", c.remoteAddr, "err", err)
		return
	}

	switch env.T {
	case MsgList:
		c.handleList()
	case MsgCreate:
		c.handleCreate(env.D)
	case MsgJoin:
		c.handleJoin(env.D)
	case MsgInput:
		c.handleInput(env.D)
	case MsgRetry:
		c.handleRetry()
	case MsgLeave:
		c.handleLeave()
	case MsgCheck:
		c.handleCheck(env.D)
	case MsgRegister:
		c.handleRegister(env.D)
	case MsgLogin:
		c.handleLogin(env.D)
	case MsgAuth:
		c.handleAuth(env.D)
	case MsgProfile:
		c.handleProfile()
	case MsgLeaderboard:
		c.handleLeaderboard(env.D)
	}
}

func cleanName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return GenerateGuestName()
	}
	if len(name) > maxNameLen {
		name = name[:maxNameLen]
	}
	return name
}

func (c *Client) handleList() {
	c.SendJSON(Envelope{T: MsgSessions, Data: c.hub.sessions.ListSessions()})
}

func (c *Client) handleCreate(data json.RawMessage) {
	var msg CreateMsg
	if len(data) > 0 {
		if err := json.Unmarshal(data, &msg); err != nil {
			return
		}
	}
	sess, err := c.hub.sessions.CreateSession(cleanName(msg.Name), msg.Level)
	if err != nil {
		if errors.Is(err, ErrUnknownLevel) {
			c.sendError("unknown level")
		} else {
			c.sendError(err.Error())
		}
		return
	}
	c.SendJSON(Envelope{T: MsgCreated, Data: map[string]string{"sid": sess.ID}})
}

func (c *Client) handleJoin(data json.RawMessage) {
	var msg JoinMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	if c.sessionID != "" {
		c.handleLeave()
	}
	sess := c.hub.sessions.GetSession(msg.SessionID)
	if sess == nil {
		c.sendError("session not found")
		return
	}

	var id string
	if msg.Pilot {
		name := msg.Name
		if c.authUsername != "" {
			name = c.authUsername
		}
		p, err := sess.Game.SetPilot(cleanName(name), c.authPlayerID, c)
		if err != nil {
			c.sendError(err.Error())
			return
		}
		id = p.ID
	} else {
		var err error
		if id, err = sess.Game.AddSpectator(c); err != nil {
			c.sendError(err.Error())
			return
		}
	}
	c.clientID = id
	c.sessionID = sess.ID
	c.pilot = msg.Pilot
	c.hub.sessions.MarkActive(sess.ID)
	slog.Info("joined run", "session", sess.ID, "client", id, "pilot", msg.Pilot)
}

func (c *Client) game() *Game {
	if c.sessionID == "" {
		return nil
	}
	sess := c.hub.sessions.GetSession(c.sessionID)
	if sess == nil {
		return nil
	}
	return sess.Game
}

// handleBinaryInput decodes a msgpack PlayerInput frame
func (c *Client) handleBinaryInput(payload []byte) {
	if !c.pilot {
		return
	}
	var in PlayerInput
	if err := msgpack.Unmarshal(payload, &in); err != nil {
		return
	}
	if g := c.game(); g != nil {
		g.HandleInput(c.clientID, in)
	}
}

func (c *Client) handleInput(data json.RawMessage) {
	if !c.pilot {
		return
	}
	var in PlayerInput
	if err := json.Unmarshal(data, &in); err != nil {
		return
	}
	if g := c.game(); g != nil {
		g.HandleInput(c.clientID, in)
	}
}

func (c *Client) handleRetry() {
	g := c.game()
	if g == nil {
		return
	}
	if err := g.Retry(c.clientID); err != nil {
		c.sendError(err.Error())
		return
	}
	c.hub.sessions.MarkActive(c.sessionID)
}

func (c *Client) handleCheck(data json.RawMessage) {
	var msg CheckMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	sess := c.hub.sessions.GetSession(msg.SID)
	if sess == nil {
		c.SendJSON(Envelope{T: MsgChecked, Data: CheckedMsg{SID: msg.SID}})
		return
	}
	pilot, level, _, spectators := sess.Game.Info()
	c.SendJSON(Envelope{T: MsgChecked, Data: CheckedMsg{
		SID:        msg.SID,
		Exists:     true,
		Pilot:      pilot,
		Level:      level,
		Spectators: spectators,
	}})
}

func (c *Client) handleLeave() {
	if c.sessionID == "" {
		return
	}
	c.hub.sessions.RemoveClient(c.sessionID, c.clientID)
	c.sessionID = ""
	c.clientID = ""
	c.pilot = false
}

func (c *Client) handleRegister(data json.RawMessage) {
	if c.hub.auth == nil {
		c.sendError("accounts unavailable")
		return
	}
	var msg RegisterMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	id, token, err := c.hub.auth.Register(msg.Username, msg.Password)
	if err != nil {
		c.sendError(err.Error())
		return
	}
	c.authenticated(id, strings.TrimSpace(msg.Username), token)
}

func (c *Client) handleLogin(data json.RawMessage) {
	if c.hub.auth == nil {
		c.sendError("accounts unavailable")
		return
	}
	var msg LoginMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	id, token, err := c.hub.auth.Login(msg.Username, msg.Password, c.remoteAddr)
	if err != nil {
		c.sendError(err.Error())
		return
	}
	c.authenticated(id, msg.Username, token)
}

func (c *Client) handleAuth(data json.RawMessage) {
	if c.hub.auth == nil {
		c.sendError("accounts unavailable")
		return
	}
	var msg AuthMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	id, username, err := c.hub.auth.ValidateToken(msg.Token)
	if err != nil {
		c.sendError("invalid token")
		return
	}
	c.authenticated(id, username, msg.Token)
}

func (c *Client) authenticated(id int64, username, token string) {
	c.authPlayerID = id
	c.authUsername = username
	c.SendJSON(Envelope{T: MsgAuthOK, Data: AuthOKMsg{
		Token:    token,
		Username: username,
		PlayerID: id,
	}})
}

func (c *Client) handleProfile() {
	db := c.hub.db
	if db == nil || c.authPlayerID == 0 {
		c.sendError("not authenticated")
		return
	}
	stats, err := db.GetStats(c.authPlayerID)
	if err != nil || stats == nil {
		c.sendError("profile not found")
		return
	}
	cleared, err := db.ClearedLevels(c.authPlayerID)
	if err != nil {
		slog.Error("load cleared levels", "player", c.authPlayerID, "err", err)
	}
	achievements, err := db.GetAchievements(c.authPlayerID)
	if err != nil {
		slog.Error("load achievements", "player", c.authPlayerID, "err", err)
	}
	c.SendJSON(Envelope{T: MsgProfileData, Data: ProfileDataMsg{
		Username:     c.authUsername,
		Rank:         stats.Rank,
		XP:           stats.XP,
		Kills:        stats.Kills,
		Deaths:       stats.Deaths,
		Clears:       stats.Clears,
		Fragments:    stats.Fragments,
		Playtime:     stats.Playtime,
		Cleared:      cleared,
		Achievements: achievements,
	}})
}

func (c *Client) handleLeaderboard(data json.RawMessage) {
	var msg LeaderboardMsg
	if len(data) > 0 {
		if err := json.Unmarshal(data, &msg); err != nil {
			return
		}
	}
	entries := []LeaderboardEntry{}
	if c.hub.db != nil {
		var err error
		if entries, err = c.hub.db.GetLeaderboard(msg.Level, boardLimit(msg.Limit)); err != nil {
			slog.Error("leaderboard", "level", msg.Level, "err", err)
			c.sendError("leaderboard unavailable")
			return
		}
	}
	c.SendJSON(Envelope{T: MsgBoard, Data: BoardMsg{Level: msg.Level, Entries: entries}})
}

func boardLimit(n int) int {
	if n <= 0 || n > maxBoardLimit {
		return maxBoardLimit
	}
	return n
}
