package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhumataybara/quiz-app/models"
	"github.com/zhumataybara/quiz-app/store"
)

// addTestClient inserts a client into the hub directly, bypassing the
// register channel and the socket pumps. Routing only looks at the client
// set and the binding fields.
func addTestClient(h *Hub, id, gameID string, organizer bool) *Client {
	c := &Client{
		hub:         h,
		id:          id,
		send:        make(chan []byte, 8),
		gameID:      gameID,
		organizer:   organizer,
		canOrganize: organizer,
	}
	h.mutex.Lock()
	h.clients[c] = true
	h.mutex.Unlock()
	return c
}

func receivedEvents(c *Client) []Envelope {
	var out []Envelope
	for {
		select {
		case data := <-c.send:
			var env Envelope
			if err := json.Unmarshal(data, &env); err != nil {
				return out
			}
			out = append(out, env)
		default:
			return out
		}
	}
}

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	ms := store.NewMemoryStore()
	ms.Add(sessionFixture())
	reg := NewRegistry(ms, nil)
	hub := NewHub(reg)
	reg.SetBroadcaster(hub)
	return hub
}

func TestHubToRoomReachesEveryRoomSubscriber(t *testing.T) {
	hub := newTestHub(t)
	player := addTestClient(hub, "conn-1", "g1", false)
	organizer := addTestClient(hub, "conn-2", "g1", true)
	outsider := addTestClient(hub, "conn-3", "g2", false)
	unbound := addTestClient(hub, "conn-4", "", false)

	hub.ToRoom("g1", EventRoundLocked, RoundLockedPayload{RoundID: "r1"})

	require.Len(t, receivedEvents(player), 1)
	require.Len(t, receivedEvents(organizer), 1)
	assert.Empty(t, receivedEvents(outsider))
	assert.Empty(t, receivedEvents(unbound))
}

func TestHubToOrganizersSkipsPlayers(t *testing.T) {
	hub := newTestHub(t)
	player := addTestClient(hub, "conn-1", "g1", false)
	organizer := addTestClient(hub, "conn-2", "g1", true)
	otherRoomOrganizer := addTestClient(hub, "conn-3", "g2", true)

	hub.ToOrganizers("g1", EventAnswerSubmitted, AnswerSubmittedPayload{PlayerID: "p1"})

	events := receivedEvents(organizer)
	require.Len(t, events, 1)
	assert.Equal(t, EventAnswerSubmitted, events[0].Type)
	assert.Empty(t, receivedEvents(player))
	assert.Empty(t, receivedEvents(otherRoomOrganizer))
}

func TestHubToConnectionTargetsOneClient(t *testing.T) {
	hub := newTestHub(t)
	target := addTestClient(hub, "conn-1", "g1", false)
	other := addTestClient(hub, "conn-2", "g1", false)

	hub.ToConnection("conn-1", EventRoundStarted, RoundStartedPayload{RoundID: "r1"})

	events := receivedEvents(target)
	require.Len(t, events, 1)
	assert.Equal(t, EventRoundStarted, events[0].Type)
	assert.Empty(t, receivedEvents(other))
}

func TestHubSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	hub := newTestHub(t)
	slow := addTestClient(hub, "conn-1", "g1", false)

	// Overflow the send buffer; ToRoom must return regardless.
	for i := 0; i < cap(slow.send)+5; i++ {
		hub.ToRoom("g1", EventGameState, nil)
	}

	assert.Len(t, receivedEvents(slow), cap(slow.send))
}

func TestHubRoomSize(t *testing.T) {
	hub := newTestHub(t)
	addTestClient(hub, "conn-1", "g1", false)
	addTestClient(hub, "conn-2", "g1", true)
	addTestClient(hub, "conn-3", "g2", false)

	assert.Equal(t, 2, hub.RoomSize("g1"))
	assert.Equal(t, 1, hub.RoomSize("g2"))
	assert.Equal(t, 0, hub.RoomSize("g3"))
}

func TestSendErrorUsesEngineCode(t *testing.T) {
	hub := newTestHub(t)
	client := addTestClient(hub, "conn-1", "g1", false)

	client.sendError(ErrRoundNotActive, CodeSubmitError)

	events := receivedEvents(client)
	require.Len(t, events, 1)
	assert.Equal(t, EventError, events[0].Type)

	data, _ := json.Marshal(events[0].Payload)
	var payload ErrorPayload
	require.NoError(t, json.Unmarshal(data, &payload))
	assert.Equal(t, "ROUND_NOT_ACTIVE", payload.Code)
	assert.Equal(t, "round is not active or already locked", payload.Message)
}

func TestSendErrorFallsBackToOperationCode(t *testing.T) {
	hub := newTestHub(t)
	client := addTestClient(hub, "conn-1", "g1", false)

	client.sendError(errors.New("connection refused"), CodeSubmitError)

	events := receivedEvents(client)
	require.Len(t, events, 1)

	data, _ := json.Marshal(events[0].Payload)
	var payload ErrorPayload
	require.NoError(t, json.Unmarshal(data, &payload))
	assert.Equal(t, "SUBMIT_ERROR", payload.Code)
	// Raw error text never leaks to clients.
	assert.Equal(t, "internal error", payload.Message)
}

func TestRequireOrganizerRejectsUnprivilegedClient(t *testing.T) {
	hub := newTestHub(t)
	player := addTestClient(hub, "conn-1", "g1", false)

	msg := Message{Type: EventStartRound, Payload: json.RawMessage(`{"roundId":"r1"}`)}
	player.handleMessage(msg)

	events := receivedEvents(player)
	require.Len(t, events, 1)
	assert.Equal(t, EventError, events[0].Type)

	// The round was never started.
	sess, err := hub.registry.GetOrCreate(context.Background(), "g1")
	require.NoError(t, err)
	assert.Equal(t, models.GameStatusLobby, sess.OrganizerState().Game.Status)
}

func TestOrganizerCommandFlowsThroughHub(t *testing.T) {
	hub := newTestHub(t)
	organizer := addTestClient(hub, "conn-1", "", true)

	organizer.handleMessage(Message{Type: EventAdminJoinRoom, Payload: json.RawMessage(`{"gameId":"g1"}`)})
	events := receivedEvents(organizer)
	require.Len(t, events, 1)
	assert.Equal(t, EventAdminGameState, events[0].Type)

	organizer.handleMessage(Message{Type: EventStartRound, Payload: json.RawMessage(`{"roundId":"r1"}`)})

	sess, ok := hub.registry.Get("g1")
	require.True(t, ok)
	assert.Equal(t, models.RoundStateActive, sess.OrganizerState().Game.Rounds[0].State)
}
