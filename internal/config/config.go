// Package config loads and validates environment variables at startup.
// Fail-fast: if a required variable is missing, the process exits with an error.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Sample cache backends.
const (
	SampleCacheRedis  = "redis"
	SampleCacheMemory = "memory"
)

// Config holds all runtime configuration for the verification service.
type Config struct {
	Port               string
	GRPCPort           string
	DatabaseURL        string
	RedisURL           string
	SweepIntervalHours int    // How often the expiry sweep fires
	PolicyFile         string // Optional YAML decision policy
	SampleCache        string // "redis" (default) or "memory"
	Policy             *Policy
}

// LoadDotEnv loads a .env file from the working directory when present.
// Variables already set in the environment win.
func LoadDotEnv() {
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			log.Printf("[config] .env not loaded: %v", err)
		}
		return
	}
	log.Println("[config] .env loaded")
}

// Load reads environment variables and returns a validated Config.
func Load() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}

	interval := 24
	if s := os.Getenv("SWEEP_INTERVAL_HOURS"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 {
			return nil, fmt.Errorf("SWEEP_INTERVAL_HOURS must be a positive integer, got %q", s)
		}
		interval = v
	}

	port := os.Getenv("VERIFICATION_PORT")
	if port == "" {
		port = "8083"
	}

	grpcPort := os.Getenv("VERIFICATION_GRPC_PORT")
	if grpcPort == "" {
		grpcPort = "9093"
	}

	sampleCache := os.Getenv("SAMPLE_CACHE")
	switch sampleCache {
	case "":
		sampleCache = SampleCacheRedis
	case SampleCacheRedis, SampleCacheMemory:
	default:
		return nil, fmt.Errorf("SAMPLE_CACHE must be %q or %q, got %q", SampleCacheRedis, SampleCacheMemory, sampleCache)
	}

	policyFile := os.Getenv("POLICY_FILE")
	policy := DefaultPolicy()
	if policyFile != "" {
		p, err := LoadPolicy(policyFile)
		if err != nil {
			return nil, err
		}
		policy = p
	}

	return &Config{
		Port:               port,
		GRPCPort:           grpcPort,
		DatabaseURL:        dbURL,
		RedisURL:           redisURL,
		SweepIntervalHours: interval,
		PolicyFile:         policyFile,
		SampleCache:        sampleCache,
		Policy:             policy,
	}, nil
}
