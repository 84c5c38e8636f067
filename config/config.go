package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every runtime setting for the service.
type Config struct {
	DatabaseURL  string
	JWTSecretKey string
	ServerPort   int

	// RegistrationURL is the base URL of the registration service that
	// owns teams, judges and rubrics.
	RegistrationURL string

	// Live feed settings.
	HubRetention int

	// Session policy.
	SessionIdleTimeout time.Duration
	SweepInterval      time.Duration

	// Scoring policy defaults.
	MinorConflictPercent float64

	// Scheduling.
	MinTeamBuffer time.Duration

	// Judge submission throttle.
	ScoreRatePerSecond float64
	ScoreRateBurst     int
}

// Load reads configuration from environment variables, optionally
// preloading a .env file for local development.
func Load() (*Config, error) {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	jwtKey := os.Getenv("JWT_SECRET_KEY")
	if jwtKey == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY environment variable is not set")
	}

	port, err := intEnv("SERVER_PORT", 8080)
	if err != nil {
		return nil, err
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}

	registrationURL := os.Getenv("REGISTRATION_URL")
	if registrationURL == "" {
		return nil, fmt.Errorf("REGISTRATION_URL environment variable is not set")
	}

	retention, err := intEnv("HUB_RETENTION", 256)
	if err != nil {
		return nil, err
	}
	idleTimeout, err := durationEnv("SESSION_IDLE_TIMEOUT", 10*time.Minute)
	if err != nil {
		return nil, err
	}
	sweepInterval, err := durationEnv("SESSION_SWEEP_INTERVAL", time.Minute)
	if err != nil {
		return nil, err
	}
	minorPercent, err := floatEnv("MINOR_CONFLICT_PERCENT", 5)
	if err != nil {
		return nil, err
	}
	minBuffer, err := durationEnv("MIN_TEAM_BUFFER", 15*time.Minute)
	if err != nil {
		return nil, err
	}
	scoreRate, err := floatEnv("SCORE_RATE_PER_SECOND", 5)
	if err != nil {
		return nil, err
	}
	scoreBurst, err := intEnv("SCORE_RATE_BURST", 20)
	if err != nil {
		return nil, err
	}

	return &Config{
		DatabaseURL:          dbURL,
		JWTSecretKey:         jwtKey,
		ServerPort:           port,
		RegistrationURL:      registrationURL,
		HubRetention:         retention,
		SessionIdleTimeout:   idleTimeout,
		SweepInterval:        sweepInterval,
		MinorConflictPercent: minorPercent,
		MinTeamBuffer:        minBuffer,
		ScoreRatePerSecond:   scoreRate,
		ScoreRateBurst:       scoreBurst,
	}, nil
}

func intEnv(name string, fallback int) (int, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", name, err)
	}
	return v, nil
}

func floatEnv(name string, fallback float64) (float64, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", name, err)
	}
	return v, nil
}

func durationEnv(name string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", name, err)
	}
	return v, nil
}
