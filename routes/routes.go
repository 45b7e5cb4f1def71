package routes

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/zhumataybara/quiz-app/handlers"
	"github.com/zhumataybara/quiz-app/middleware"
	"github.com/zhumataybara/quiz-app/services"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

func SetupRoutes(
	router *gin.Engine,
	gameHandler *handlers.GameHandler,
	hub *services.Hub,
	jwtSecret string,
) {
	api := router.Group("/api")
	{
		games := api.Group("/games")
		{
			games.GET("/:code", gameHandler.GetGameByCode)
		}

		api.GET("/sessions", gameHandler.ListSessions)
	}

	// WebSocket endpoint for real-time game communication. Organizer rights
	// are granted at upgrade time when a valid token is presented.
	router.GET("/ws", func(c *gin.Context) {
		canOrganize := false
		if token := c.Query("token"); token != "" {
			if err := middleware.VerifyOrganizerToken(token, jwtSecret); err != nil {
				log.Printf("Organizer token rejected: %v", err)
			} else {
				canOrganize = true
			}
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("WebSocket upgrade failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upgrade connection"})
			return
		}

		hub.RegisterClient(conn, canOrganize)
	})

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
