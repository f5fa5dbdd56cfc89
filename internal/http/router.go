package api

import (
	"log"
	stdhttp "net/http"

	intconfig "tripmate/internal/config"
	h "tripmate/internal/http/handlers"
	"tripmate/internal/http/middleware"

	"github.com/gin-gonic/gin"
)

func NewRouter(env intconfig.Env, a h.API) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Logger(), gin.Recovery(), middleware.CORS())

	if err := r.SetTrustedProxies(nil); err != nil {
		log.Printf("warning: failed to set trusted proxies: %v", err)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(stdhttp.StatusNotFound, gin.H{
			"error":  "route not found",
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		})
	})

	api := r.Group("/api")
	{
		api.GET("/health", a.Health)
		api.GET("/db-check", a.DBCheck)

		authed := api.Group("")
		authed.Use(middleware.Auth(env.JWTSecret))

		// Generation
		rooms := authed.Group("/rooms")
		rooms.POST("/:roomId/trips", a.RequestGeneration)
		rooms.GET("/:roomId/trips/status", a.PollStatus)

		// Trips & day schedules
		trips := authed.Group("/trips")
		trips.POST("/:tripId/accept", a.AcceptTrip)
		trips.GET("/:tripId/days/:day", a.GetDaySchedule)
		trips.POST("/:tripId/days/:day/preview", a.PreviewModifications)
		trips.POST("/:tripId/days/:day/batch", a.BatchApply)
		trips.POST("/:tripId/days/:day/schedules", a.AddStop)

		// Single-stop edits
		schedules := authed.Group("/schedules")
		schedules.DELETE("/:id", a.DeleteSchedule)
		schedules.PUT("/:id/position", a.ReorderSchedule)
		schedules.PUT("/:id/stay-duration", a.UpdateStayDuration)
		schedules.PUT("/:id/visit-time", a.UpdateVisitTime)
		schedules.PUT("/:id/accommodation", a.UpdateAccommodation)
		schedules.PUT("/:id/travel-time", a.UpdateTravelTime)
		schedules.PUT("/:id/visited", a.SetVisited)
	}

	return r
}
