package config

import (
	"net/url"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the matrix pipeline. It is built once
// from the environment in the composition root and threaded explicitly
// through every constructor; no component reads ambient state.
type Config struct {
	// Trip planner
	PlannerBaseURL        string
	PlannerAPIKey         string
	NumItineraries        int
	MaxWalkDistanceMeters int
	BikeSpeedMPS          float64

	// Scheduling
	Concurrency   int
	PaceDelay     time.Duration
	RetryAttempts int
	RetryBackoff  time.Duration
	FlushEvery    int

	// Storage
	DataDir      string
	CatalogPath  string
	MetadataPath string

	// Optional trip result cache (at most one of the two is used)
	TripCacheSQLitePath  string
	TripCacheDatabaseURL string
}

// Load reads configuration from environment variables with defaults tuned
// for a local planner instance. Against a shared remote service set
// CONCURRENCY=1 and a PACE_DELAY_MS; that pairing is a politeness contract,
// not a performance choice.
func Load() *Config {
	return &Config{
		PlannerBaseURL:        getEnv("PLANNER_BASE_URL", "http://localhost:8080"),
		PlannerAPIKey:         getEnv("PLANNER_API_KEY", ""),
		NumItineraries:        getEnvInt("PLANNER_NUM_ITINERARIES", 3),
		MaxWalkDistanceMeters: getEnvInt("PLANNER_MAX_WALK_DISTANCE", 2000),
		BikeSpeedMPS:          getEnvFloat("PLANNER_BIKE_SPEED_MPS", 4.5),

		Concurrency:   getEnvInt("CONCURRENCY", 10),
		PaceDelay:     time.Duration(getEnvInt("PACE_DELAY_MS", 0)) * time.Millisecond,
		RetryAttempts: getEnvInt("RETRY_ATTEMPTS", 4),
		RetryBackoff:  time.Duration(getEnvInt("RETRY_BACKOFF_MS", 200)) * time.Millisecond,
		FlushEvery:    getEnvInt("FLUSH_EVERY", 50),

		DataDir:      getEnv("DATA_DIR", "data/matrix"),
		CatalogPath:  getEnv("CATALOG_PATH", "data/zones.json"),
		MetadataPath: getEnv("METADATA_PATH", "data/pipeline.json"),

		TripCacheSQLitePath:  getEnv("TRIP_CACHE_SQLITE_PATH", ""),
		TripCacheDatabaseURL: getEnv("TRIP_CACHE_DATABASE_URL", ""),
	}
}

// RemotePlanner reports whether the planner endpoint is a shared remote
// service (anything not bound to the local host). Remote targets require a
// credential before any work starts.
func (c *Config) RemotePlanner() bool {
	u, err := url.Parse(c.PlannerBaseURL)
	if err != nil {
		return true
	}
	switch u.Hostname() {
	case "localhost", "127.0.0.1", "::1", "0.0.0.0", "":
		return false
	}
	return true
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
