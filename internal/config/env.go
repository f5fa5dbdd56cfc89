package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Env struct {
	AppAddr string
	GinMode string

	DBUser string
	DBPass string
	DBHost string
	DBName string

	RedisAddr string
	RedisDB   int

	PlannerBaseURL string
	PlannerAPIKey  string
	RouteBaseURL   string
	RouteAPIKey    string

	JWTSecret string

	LeaseWaitingTTL time.Duration
	LeaseRunningTTL time.Duration
}

func LoadEnv() Env {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("warning: could not load .env: %v", err)
	}

	appAddr := getenv("APP_ADDR", ":8080")

	return Env{
		AppAddr: appAddr,
		GinMode: strings.TrimSpace(os.Getenv("GIN_MODE")),

		DBUser: getenv("DB_USER", "root"),
		DBPass: strings.TrimSpace(os.Getenv("DB_PASS")),
		DBHost: getenv("DB_HOST", "127.0.0.1:3306"),
		DBName: getenv("DB_NAME", "tripmate"),

		RedisAddr: getenv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisDB:   getenvInt("REDIS_DB", 0),

		PlannerBaseURL: getenv("PLANNER_BASE_URL", "http://localhost:9000"),
		PlannerAPIKey:  strings.TrimSpace(os.Getenv("PLANNER_API_KEY")),
		RouteBaseURL:   getenv("ROUTE_BASE_URL", "http://localhost:9001"),
		RouteAPIKey:    strings.TrimSpace(os.Getenv("ROUTE_API_KEY")),

		JWTSecret: getenv("JWT_SECRET", "super-secret-key-change-me"),

		LeaseWaitingTTL: getenvDuration("LEASE_WAITING_TTL", 2*time.Minute),
		LeaseRunningTTL: getenvDuration("LEASE_RUNNING_TTL", 10*time.Minute),
	}
}

func getenv(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("warning: %s=%q is not a number, using %d", key, v, def)
		return def
	}
	return n
}

func getenvDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("warning: %s=%q is not a duration, using %s", key, v, def)
		return def
	}
	return d
}
