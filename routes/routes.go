package routes

import (
	"errors"
	"log"
	"net/http"

	"quizlive/handlers"
	"quizlive/middleware"
	"quizlive/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

func SetupRoutes(
	router *gin.Engine,
	authHandler *handlers.AuthHandler,
	quizHandler *handlers.QuizHandler,
	gameHandler *handlers.GameHandler,
	hub *services.Hub,
	broadcaster *services.Broadcaster,
	jwtSecret string,
) {
	// API routes
	api := router.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
		}

		// Protected routes
		protected := api.Group("/")
		protected.Use(middleware.AuthMiddleware(jwtSecret))
		{
			// User profile
			protected.GET("/auth/profile", authHandler.GetProfile)

			// Quiz routes
			quizzes := protected.Group("/quizzes")
			{
				quizzes.GET("", quizHandler.GetUserQuizzes)
				quizzes.POST("", quizHandler.CreateQuiz)
				quizzes.GET("/:id", quizHandler.GetQuizByID)
				quizzes.PUT("/:id", quizHandler.UpdateQuiz)
				quizzes.DELETE("/:id", quizHandler.DeleteQuiz)
			}

			// Host game controls
			games := protected.Group("/games")
			{
				games.POST("", gameHandler.CreateGame)
				games.POST("/:id/start", gameHandler.StartGame)
				games.POST("/:id/next", gameHandler.NextTask)
				games.POST("/:id/quit", gameHandler.QuitGame)
				games.GET("/:id/clients", gameHandler.ConnectedClients)
			}
		}

		// Public game routes
		games := api.Group("/games")
		{
			games.POST("/join", gameHandler.JoinGame)
			games.GET("/pin/:pin", gameHandler.GetGameByPin)
			games.POST("/:id/answer", gameHandler.SubmitAnswer)
			games.POST("/:id/leave", gameHandler.LeaveGame)
		}
	}

	// Live stream endpoint: one long-lived push connection per
	// participant, fed by the participant's role-filtered event stream.
	router.GET("/ws/:gameID/:participantID", func(c *gin.Context) {
		gameID := c.Param("gameID")
		participantID := c.Param("participantID")

		// Authorize before upgrading: unknown game or participant maps
		// to a plain HTTP status, not a dead socket.
		events, detach, err := broadcaster.GetEventStream(c.Request.Context(), gameID, participantID)
		if err != nil {
			status := http.StatusNotFound
			if errors.Is(err, services.ErrParticipantNotFound) {
				status = http.StatusUnauthorized
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			detach()
			log.Printf("WebSocket upgrade failed for game %s, participant %s: %v", gameID, participantID, err)
			return
		}

		log.Printf("WebSocket connection established for game %s, participant %s", gameID, participantID)
		hub.RegisterClient(conn, gameID, participantID, events, detach)
	})

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
