package handlers

import (
	"net/http"

	intconfig "tripmate/internal/config"
	"tripmate/internal/services"

	"github.com/gin-gonic/gin"
)

// API groups the service layer behind the HTTP handlers.
type API struct {
	Gen   services.GenerationService
	Trips services.TripService
	Sched services.ScheduleService
	Mods  services.ModificationService
}

func (a API) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (a API) DBCheck(c *gin.Context) {
	if intconfig.DB == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database not connected"})
		return
	}
	var n int
	if err := intconfig.DB.QueryRow("SELECT COUNT(*) FROM trips").Scan(&n); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database query failed: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "database OK", "trips_in_db": n})
}
