package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zhumataybara/quiz-app/services"
)

type GameHandler struct {
	registry *services.Registry
	hub      *services.Hub
}

func NewGameHandler(registry *services.Registry, hub *services.Hub) *GameHandler {
	return &GameHandler{
		registry: registry,
		hub:      hub,
	}
}

// GetGameByCode returns the public projection of a room, for spectator
// screens loading before their websocket opens.
func (h *GameHandler) GetGameByCode(c *gin.Context) {
	code := c.Param("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Room code required"})
		return
	}

	sess, err := h.registry.SessionByCode(c.Request.Context(), code)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Game not found"})
		return
	}

	c.JSON(http.StatusOK, sess.PublicState())
}

// ListSessions enumerates live rooms with their subscriber counts.
func (h *GameHandler) ListSessions(c *gin.Context) {
	infos := h.registry.Sessions()
	out := make([]gin.H, len(infos))
	for i, info := range infos {
		out[i] = gin.H{
			"gameId":         info.GameID,
			"roomCode":       info.RoomCode,
			"status":         info.Status,
			"playerCount":    info.PlayerCount,
			"connectedCount": info.ConnectedCount,
			"subscribers":    h.hub.RoomSize(info.GameID),
		}
	}
	c.JSON(http.StatusOK, gin.H{"sessions": out})
}
