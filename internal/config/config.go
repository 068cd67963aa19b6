package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration for the moderation service. Every
// collaborator receives its settings from here at construction time; nothing
// reads credentials from package-level state.
type Config struct {
	Port string

	AWSRegion string

	SightengineAPIUser   string
	SightengineAPISecret string
	SightengineEndpoint  string
	SightengineLang      string

	// PageMinConfidence is the moderation-label floor applied to document
	// pages; ImageMinConfidence applies to the image-only endpoint.
	PageMinConfidence  float32
	ImageMinConfidence float32

	RemoteCallTimeout   time.Duration
	PipelineConcurrency int
}

// Load reads configuration from the environment, after loading a .env file
// when one is present. Missing required variables fail construction.
func Load() (*Config, error) {
	// Best effort; in deployed environments there is no .env file.
	_ = godotenv.Load()

	cfg := &Config{
		Port:                 GetEnv("PORT", "8080"),
		AWSRegion:            GetEnv("AWS_REGION", "ap-south-1"),
		SightengineAPIUser:   GetEnv("SIGHTENGINE_API_USER", ""),
		SightengineAPISecret: GetEnv("SIGHTENGINE_API_SECRET", ""),
		SightengineEndpoint:  GetEnv("SIGHTENGINE_ENDPOINT", "https://api.sightengine.com/1.0/text/check.json"),
		SightengineLang:      GetEnv("SIGHTENGINE_LANG", "en"),
		PageMinConfidence:    getEnvFloat32("PAGE_MIN_CONFIDENCE", 60),
		ImageMinConfidence:   getEnvFloat32("IMAGE_MIN_CONFIDENCE", 70),
		RemoteCallTimeout:    getEnvDuration("REMOTE_CALL_TIMEOUT", 30*time.Second),
		PipelineConcurrency:  getEnvInt("PIPELINE_CONCURRENCY", 10),
	}

	if cfg.SightengineAPIUser == "" || cfg.SightengineAPISecret == "" {
		return nil, fmt.Errorf("SIGHTENGINE_API_USER and SIGHTENGINE_API_SECRET environment variables must be set")
	}
	if cfg.PageMinConfidence < 0 || cfg.PageMinConfidence > 100 {
		return nil, fmt.Errorf("PAGE_MIN_CONFIDENCE must be within [0,100], got %v", cfg.PageMinConfidence)
	}
	return cfg, nil
}

// GetEnv is a helper to read an environment variable or return a default value.
func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvFloat32(key string, fallback float32) float32 {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(value, 32)
	if err != nil {
		return fallback
	}
	return float32(f)
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}
