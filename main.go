package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tripmate/internal/clients"
	intconfig "tripmate/internal/config"
	"tripmate/internal/events"
	router "tripmate/internal/http"
	"tripmate/internal/http/handlers"
	"tripmate/internal/lock"
	"tripmate/internal/services"
	"tripmate/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {
	env := intconfig.LoadEnv()
	if env.GinMode != "" {
		gin.SetMode(env.GinMode)
	}

	intconfig.ConnectDB(env)
	defer intconfig.CloseDB()

	redisClient := intconfig.ConnectRedis(env)
	defer intconfig.CloseRedis()

	pool := worker.NewPool(4)
	defer pool.Shutdown()

	planner := clients.NewHTTPPlannerClient(env.PlannerBaseURL, env.PlannerAPIKey)
	routeProvider := clients.NewHTTPRouteTimeProvider(env.RouteBaseURL, env.RouteAPIKey)
	leaseLock := lock.RedisLock{Client: redisClient}
	publisher := events.RedisPublisher{Client: redisClient}

	recalc := services.RecalcService{Provider: routeProvider}
	mods := services.ModificationService{Recalc: recalc}

	api := handlers.API{
		Gen: services.GenerationService{
			Planner:    planner,
			Lock:       leaseLock,
			Publisher:  publisher,
			Pool:       pool,
			WaitingTTL: env.LeaseWaitingTTL,
			RunningTTL: env.LeaseRunningTTL,
		},
		Trips: services.TripService{},
		Sched: services.ScheduleService{Mods: mods, Recalc: recalc},
		Mods:  mods,
	}

	r := router.NewRouter(env, api)

	srv := &http.Server{
		Addr:              env.AppAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       20 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("server listening on %s", env.AppAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("server shutdown failed: %v", err)
	}

	log.Println("server stopped cleanly")
}
