package handlers

import (
	"net/http"

	"tripmate/internal/domain/models"

	"github.com/gin-gonic/gin"
)

// GET /api/trips/:tripId/days/:day
func (a API) GetDaySchedule(c *gin.Context) {
	tripID, ok := paramID(c, "tripId")
	if !ok {
		return
	}
	day, ok := paramInt(c, "day")
	if !ok {
		return
	}
	stops, err := a.Sched.GetDaySchedule(c.Request.Context(), tripID, day)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"day": day, "schedules": stops})
}

type batchRequest struct {
	Items []models.ModificationItem `json:"items"`
}

// POST /api/trips/:tripId/days/:day/preview
// Runs the full edit pipeline against a copy of the day and returns the result
// without persisting anything.
func (a API) PreviewModifications(c *gin.Context) {
	tripID, ok := paramID(c, "tripId")
	if !ok {
		return
	}
	day, ok := paramInt(c, "day")
	if !ok {
		return
	}
	var req batchRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	stops, err := a.Mods.Preview(c.Request.Context(), tripID, day, req.Items)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"day": day, "schedules": stops, "preview": true})
}

// POST /api/trips/:tripId/days/:day/batch
func (a API) BatchApply(c *gin.Context) {
	tripID, ok := paramID(c, "tripId")
	if !ok {
		return
	}
	day, ok := paramInt(c, "day")
	if !ok {
		return
	}
	var req batchRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	stops, err := a.Mods.Apply(c.Request.Context(), tripID, day, req.Items)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"day": day, "schedules": stops})
}

type addStopRequest struct {
	PlaceName string  `json:"place_name"`
	PlaceTag  string  `json:"place_tag"`
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	Minutes   int     `json:"minutes"`
}

// POST /api/trips/:tripId/days/:day/schedules
// Synchronous add: calls the route provider for the new legs before returning.
func (a API) AddStop(c *gin.Context) {
	tripID, ok := paramID(c, "tripId")
	if !ok {
		return
	}
	day, ok := paramInt(c, "day")
	if !ok {
		return
	}
	var req addStopRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	stops, err := a.Sched.AddStopNow(c.Request.Context(), tripID, day, models.ModificationItem{
		PlaceName: req.PlaceName,
		PlaceTag:  req.PlaceTag,
		Lat:       req.Lat,
		Lng:       req.Lng,
		Minutes:   req.Minutes,
	})
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"day": day, "schedules": stops})
}

// DELETE /api/schedules/:id
func (a API) DeleteSchedule(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	stops, err := a.Sched.DeleteStop(c.Request.Context(), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"schedules": stops})
}

// PUT /api/schedules/:id/position
func (a API) ReorderSchedule(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Position int `json:"position"`
	}
	if !BindJSONOrError(c, &req) {
		return
	}
	stops, err := a.Sched.ReorderStop(c.Request.Context(), id, req.Position)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"schedules": stops})
}

// PUT /api/schedules/:id/stay-duration
func (a API) UpdateStayDuration(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Minutes int `json:"minutes"`
	}
	if !BindJSONOrError(c, &req) {
		return
	}
	stops, err := a.Sched.UpdateStayDuration(c.Request.Context(), id, req.Minutes)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"schedules": stops})
}

// PUT /api/schedules/:id/visit-time
func (a API) UpdateVisitTime(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req struct {
		VisitTime string `json:"visit_time"`
	}
	if !BindJSONOrError(c, &req) {
		return
	}
	stops, err := a.Sched.UpdateVisitTime(c.Request.Context(), id, req.VisitTime)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"schedules": stops})
}

// PUT /api/schedules/:id/accommodation
func (a API) UpdateAccommodation(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req struct {
		PlaceName string  `json:"place_name"`
		Lat       float64 `json:"lat"`
		Lng       float64 `json:"lng"`
	}
	if !BindJSONOrError(c, &req) {
		return
	}
	stops, err := a.Sched.UpdateAccommodation(c.Request.Context(), id, req.PlaceName, req.Lat, req.Lng)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"schedules": stops})
}

// PUT /api/schedules/:id/travel-time
func (a API) UpdateTravelTime(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Minutes int `json:"minutes"`
	}
	if !BindJSONOrError(c, &req) {
		return
	}
	stops, err := a.Sched.UpdateTravelTime(c.Request.Context(), id, req.Minutes)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"schedules": stops})
}

// PUT /api/schedules/:id/visited
func (a API) SetVisited(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Visited bool `json:"visited"`
	}
	if !BindJSONOrError(c, &req) {
		return
	}
	if err := a.Sched.MarkVisited(c.Request.Context(), id, req.Visited); err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
