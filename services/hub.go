package services

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Hub owns every live websocket connection and routes projected state to the
// right audience: organizer views to organizer subscribers, public views to
// everyone in the room. Delivery is best-effort per connection; a slow
// subscriber drops messages instead of blocking the room.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	mutex      sync.RWMutex
	registry   *Registry
}

// Client is one websocket connection. It may be bound to a player, to an
// organizer subscription, or to nothing yet. Binding fields are guarded by
// the hub mutex since broadcasts read them from other goroutines.
type Client struct {
	hub    *Hub
	id     string
	socket *websocket.Conn
	send   chan []byte

	gameID    string
	playerID  string
	organizer bool
	// canOrganize is set at upgrade time from a verified organizer token.
	canOrganize bool
}

// Message is the inbound wire format.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Envelope is the outbound wire format.
type Envelope struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

func NewHub(registry *Registry) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		registry:   registry,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mutex.Unlock()
			log.Printf("Client registered: %s - Total clients: %d", client.id, total)

		case client := <-h.unregister:
			h.mutex.Lock()
			_, ok := h.clients[client]
			if ok {
				delete(h.clients, client)
				close(client.send)
			}
			gameID := client.gameID
			playerID := client.playerID
			total := len(h.clients)
			h.mutex.Unlock()

			if !ok {
				continue
			}
			log.Printf("Client unregistered: %s - Total clients: %d", client.id, total)

			// A network drop carries no explicit disconnect event, so the
			// session's disconnect handling is invoked here, exactly once
			// per connection.
			if playerID != "" && gameID != "" {
				if sess, ok := h.registry.Get(gameID); ok {
					sess.Disconnect(context.Background(), client.id)
				}
			}
		}
	}
}

// RegisterClient attaches a new websocket connection to the hub and starts
// its read/write pumps.
func (h *Hub) RegisterClient(conn *websocket.Conn, canOrganize bool) *Client {
	client := &Client{
		hub:         h,
		id:          uuid.NewString(),
		socket:      conn,
		send:        make(chan []byte, 256),
		canOrganize: canOrganize,
	}

	h.register <- client

	go client.writePump()
	go client.readPump()

	return client
}

// ToConnection delivers an event to a single connection.
func (h *Hub) ToConnection(connectionID, event string, payload interface{}) {
	data, err := encodeEvent(event, payload)
	if err != nil {
		return
	}
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	for client := range h.clients {
		if client.id == connectionID {
			client.trySend(data)
			return
		}
	}
}

// ToOrganizers delivers an event to the room's organizer subscribers only.
func (h *Hub) ToOrganizers(gameID, event string, payload interface{}) {
	data, err := encodeEvent(event, payload)
	if err != nil {
		return
	}
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	for client := range h.clients {
		if client.gameID == gameID && client.organizer {
			client.trySend(data)
		}
	}
}

// ToRoom delivers an event to every subscriber of the room, players and
// organizers alike.
func (h *Hub) ToRoom(gameID, event string, payload interface{}) {
	data, err := encodeEvent(event, payload)
	if err != nil {
		return
	}
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	for client := range h.clients {
		if client.gameID == gameID {
			client.trySend(data)
		}
	}
}

// RoomSize counts the room's current subscribers, for diagnostics.
func (h *Hub) RoomSize(gameID string) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	n := 0
	for client := range h.clients {
		if client.gameID == gameID {
			n++
		}
	}
	return n
}

func (h *Hub) bindRoom(c *Client, gameID string) {
	h.mutex.Lock()
	c.gameID = gameID
	h.mutex.Unlock()
}

func (h *Hub) bindPlayer(c *Client, playerID string) {
	h.mutex.Lock()
	c.playerID = playerID
	h.mutex.Unlock()
}

func (h *Hub) setOrganizer(c *Client, organizer bool) {
	h.mutex.Lock()
	c.organizer = organizer
	if !organizer && c.playerID == "" {
		c.gameID = ""
	}
	h.mutex.Unlock()
}

func (h *Hub) clientRoom(c *Client) (gameID, playerID string) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return c.gameID, c.playerID
}

func (h *Hub) sessionFor(c *Client) (*Session, bool) {
	gameID, _ := h.clientRoom(c)
	if gameID == "" {
		return nil, false
	}
	return h.registry.Get(gameID)
}

func encodeEvent(event string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(Envelope{Type: event, Payload: payload})
	if err != nil {
		log.Printf("Error marshaling %s event: %v", event, err)
		return nil, err
	}
	return data, nil
}

func (c *Client) trySend(data []byte) {
	select {
	case c.send <- data:
	default:
		// Slow subscriber; drop rather than block the room.
		log.Printf("Client %s send buffer full, dropping message", c.id)
	}
}

func (c *Client) sendEvent(event string, payload interface{}) {
	data, err := encodeEvent(event, payload)
	if err != nil {
		return
	}
	c.trySend(data)
}

// sendError delivers a structured error event to this connection only.
// Engine errors carry their own stable code; anything else gets the
// operation's generic code.
func (c *Client) sendError(err error, fallbackCode string) {
	if gameErr, ok := err.(*GameError); ok {
		c.sendEvent(EventError, ErrorPayload{Message: gameErr.Message, Code: gameErr.Code})
		return
	}
	c.sendEvent(EventError, ErrorPayload{Message: "internal error", Code: fallbackCode})
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.socket.Close()
	}()

	for {
		_, message, err := c.socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket read error: %v", err)
			}
			break
		}

		var msg Message
		if err := json.Unmarshal(message, &msg); err != nil {
			log.Printf("Error unmarshaling message from client %s: %v", c.id, err)
			continue
		}

		c.handleMessage(msg)
	}
}

func (c *Client) writePump() {
	defer func() {
		c.socket.Close()
	}()

	for message := range c.send {
		w, err := c.socket.NextWriter(websocket.TextMessage)
		if err != nil {
			return
		}
		w.Write(message)
		if err := w.Close(); err != nil {
			return
		}
	}
	c.socket.WriteMessage(websocket.CloseMessage, []byte{})
}

func (c *Client) handleMessage(msg Message) {
	ctx := context.Background()

	switch msg.Type {
	case EventJoinGame:
		var p struct {
			RoomCode string `json:"roomCode"`
			Nickname string `json:"nickname"`
		}
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			c.sendError(err, CodeJoinError)
			return
		}
		sess, err := c.hub.registry.SessionByCode(ctx, p.RoomCode)
		if err != nil {
			c.sendError(err, CodeJoinError)
			return
		}
		// Bind to the room first so the join broadcast reaches this
		// connection too.
		c.hub.bindRoom(c, sess.GameID())
		player, state, err := sess.Join(ctx, c.id, p.Nickname)
		if err != nil {
			c.hub.bindRoom(c, "")
			c.sendError(err, CodeJoinError)
			return
		}
		c.hub.bindPlayer(c, player.ID)
		c.sendEvent(EventGameState, state)

	case EventReconnectPlayer:
		var p struct {
			PlayerID string `json:"playerId"`
			GameID   string `json:"gameId"`
		}
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			c.sendError(err, CodeReconnectError)
			return
		}
		sess, err := c.hub.registry.GetOrCreate(ctx, p.GameID)
		if err != nil {
			// The room is gone; the client must clear its local session.
			c.sendError(ErrInvalidReconnect, CodeReconnectError)
			return
		}
		c.hub.bindRoom(c, sess.GameID())
		player, state, err := sess.Reconnect(ctx, c.id, p.PlayerID, p.GameID)
		if err != nil {
			c.hub.bindRoom(c, "")
			c.sendError(err, CodeReconnectError)
			return
		}
		c.hub.bindPlayer(c, player.ID)
		c.sendEvent(EventGameState, state)

	case EventSubmitAnswer:
		var p struct {
			PlayerID   string `json:"playerId"`
			QuestionID string `json:"questionId"`
			ExternalID int64  `json:"externalId"`
			Text       string `json:"text"`
		}
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			c.sendError(err, CodeSubmitError)
			return
		}
		sess, ok := c.hub.sessionFor(c)
		if !ok {
			c.sendError(ErrPlayerNotFound, CodeSubmitError)
			return
		}
		if err := sess.SubmitAnswer(ctx, p.PlayerID, p.QuestionID, p.ExternalID, p.Text); err != nil {
			c.sendError(err, CodeSubmitError)
		}

	case EventHeartbeat:
		var p struct {
			PlayerID string `json:"playerId"`
		}
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return
		}
		if sess, ok := c.hub.sessionFor(c); ok {
			if err := sess.Heartbeat(ctx, p.PlayerID); err != nil {
				log.Printf("heartbeat error for client %s: %v", c.id, err)
			}
		}

	case EventAdminJoinRoom:
		if !c.requireOrganizer(CodeJoinError) {
			return
		}
		var p struct {
			GameID string `json:"gameId"`
		}
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			c.sendError(err, CodeJoinError)
			return
		}
		sess, err := c.hub.registry.GetOrCreate(ctx, p.GameID)
		if err != nil {
			c.sendError(err, CodeJoinError)
			return
		}
		c.hub.bindRoom(c, p.GameID)
		c.hub.setOrganizer(c, true)
		c.sendEvent(EventAdminGameState, sess.OrganizerState())
		log.Printf("Organizer joined room %s", p.GameID)

	case EventAdminLeaveRoom:
		c.hub.setOrganizer(c, false)

	case EventStartRound:
		c.handleAdminRoundCommand(msg.Payload, CodeStartRoundError, func(sess *Session, roundID string) error {
			return sess.StartRound(ctx, roundID)
		})

	case EventLockRound:
		c.handleAdminRoundCommand(msg.Payload, CodeLockRoundError, func(sess *Session, roundID string) error {
			return sess.LockRound(ctx, roundID)
		})

	case EventRevealAnswers:
		c.handleAdminRoundCommand(msg.Payload, CodeRevealError, func(sess *Session, roundID string) error {
			return sess.RevealAnswers(ctx, roundID)
		})

	case EventResetGame:
		if !c.requireOrganizer(CodeResetError) {
			return
		}
		var p struct {
			GameID string `json:"gameId"`
		}
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			c.sendError(err, CodeResetError)
			return
		}
		sess, err := c.hub.registry.GetOrCreate(ctx, p.GameID)
		if err != nil {
			c.sendError(err, CodeResetError)
			return
		}
		if err := sess.ResetGame(ctx, p.GameID); err != nil {
			c.sendError(err, CodeResetError)
		}

	default:
		log.Printf("Unknown message type %q from client %s", msg.Type, c.id)
	}
}

func (c *Client) handleAdminRoundCommand(payload json.RawMessage, code string, op func(*Session, string) error) {
	if !c.requireOrganizer(code) {
		return
	}
	var p struct {
		RoundID string `json:"roundId"`
	}
	if err := json.Unmarshal(payload, &p); err != nil {
		c.sendError(err, code)
		return
	}
	sess, ok := c.hub.sessionFor(c)
	if !ok {
		c.sendError(ErrGameNotFound, code)
		return
	}
	if err := op(sess, p.RoundID); err != nil {
		c.sendError(err, code)
	}
}

func (c *Client) requireOrganizer(code string) bool {
	if c.canOrganize {
		return true
	}
	c.sendEvent(EventError, ErrorPayload{Message: "organizer credentials required", Code: code})
	return false
}
