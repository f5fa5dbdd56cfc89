package handlers

import (
	"net/http"

	"tripmate/internal/http/middleware"
	"tripmate/internal/services"

	"github.com/gin-gonic/gin"
)

// POST /api/rooms/:roomId/trips
// Returns immediately once the room's generation lease is acquired; the planner
// call runs on the worker pool and the client polls for the outcome.
func (a API) RequestGeneration(c *gin.Context) {
	roomID, ok := paramID(c, "roomId")
	if !ok {
		return
	}
	userID, ok := middleware.GetUserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "unauthorized", "missing user identity")
		return
	}

	if err := a.Gen.RequestGeneration(c.Request.Context(), roomID, userID); err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": services.GenerationWaiting})
}

// GET /api/rooms/:roomId/trips/status
func (a API) PollStatus(c *gin.Context) {
	roomID, ok := paramID(c, "roomId")
	if !ok {
		return
	}
	status, err := a.Gen.PollStatus(c.Request.Context(), roomID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// POST /api/trips/:tripId/accept
func (a API) AcceptTrip(c *gin.Context) {
	tripID, ok := paramID(c, "tripId")
	if !ok {
		return
	}
	trip, err := a.Trips.AcceptTrip(c.Request.Context(), tripID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, trip)
}
