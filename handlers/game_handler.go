package handlers

import (
	"context"
	"errors"
	"net/http"

	"quizlive/services"

	"github.com/gin-gonic/gin"
)

type GameHandler struct {
	gameService *services.GameService
	hub         *services.Hub
}

func NewGameHandler(gameService *services.GameService, hub *services.Hub) *GameHandler {
	return &GameHandler{
		gameService: gameService,
		hub:         hub,
	}
}

// statusForError maps the service error kinds onto HTTP statuses so
// clients can tell retryable congestion from real failures.
func statusForError(err error) int {
	switch {
	case errors.Is(err, services.ErrGameNotFound),
		errors.Is(err, services.ErrParticipantNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrLockNotAcquired),
		errors.Is(err, services.ErrTaskAlreadyCompleted),
		errors.Is(err, services.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, services.ErrNotHost):
		return http.StatusForbidden
	default:
		return http.StatusBadRequest
	}
}

func (h *GameHandler) CreateGame(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req services.CreateGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	doc, err := h.gameService.CreateGame(c.Request.Context(), userID, &req)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"game_id": doc.ID,
		"pin":     doc.PIN,
		"host_id": doc.Host.ID,
	})
}

func (h *GameHandler) JoinGame(c *gin.Context) {
	var req services.JoinGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	doc, participant, err := h.gameService.Join(c.Request.Context(), &req)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"game_id":        doc.ID,
		"participant_id": participant.ID,
		"name":           participant.Name,
	})
}

func (h *GameHandler) LeaveGame(c *gin.Context) {
	gameID := c.Param("id")
	participantID := c.Query("participant_id")
	if participantID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "participant_id required"})
		return
	}

	if err := h.gameService.Leave(c.Request.Context(), gameID, participantID); err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Left game"})
}

// GetGameByPin is the public lobby lookup: enough to render a join
// screen, nothing role-sensitive.
func (h *GameHandler) GetGameByPin(c *gin.Context) {
	pin := c.Param("pin")
	doc, err := h.gameService.GetGameByPin(c.Request.Context(), pin)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": "Game not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"game_id":         doc.ID,
		"pin":             doc.PIN,
		"title":           doc.Quiz.Title,
		"status":          doc.Status,
		"players":         len(doc.Players),
		"total_questions": len(doc.Quiz.Questions),
	})
}

func (h *GameHandler) StartGame(c *gin.Context) {
	h.hostAction(c, h.gameService.Start, "Game started")
}

func (h *GameHandler) NextTask(c *gin.Context) {
	h.hostAction(c, h.gameService.Next, "Advanced to next task")
}

func (h *GameHandler) QuitGame(c *gin.Context) {
	h.hostAction(c, h.gameService.Quit, "Game ended")
}

// hostAction authenticates the JWT user as the game's owner, resolves
// the host participant identity, and runs the trigger.
func (h *GameHandler) hostAction(c *gin.Context, action func(ctx context.Context, gameID, hostID string) error, message string) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	gameID := c.Param("id")

	if err := h.gameService.IsHostUser(gameID, userID); err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	doc, err := h.gameService.GetGame(c.Request.Context(), gameID)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	if err := action(c.Request.Context(), gameID, doc.Host.ID); err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": message})
}

func (h *GameHandler) ConnectedClients(c *gin.Context) {
	gameID := c.Param("id")
	c.JSON(http.StatusOK, gin.H{
		"game_id": gameID,
		"clients": h.hub.ConnectedClients(gameID),
	})
}

func (h *GameHandler) SubmitAnswer(c *gin.Context) {
	gameID := c.Param("id")
	participantID := c.Query("participant_id")
	if participantID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "participant_id required"})
		return
	}

	var req services.SubmitAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.gameService.SubmitAnswer(c.Request.Context(), gameID, participantID, &req); err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Answer submitted successfully"})
}
