package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server  ServerConfig
	Backend BackendConfig
	Collab  CollabConfig
	Scene   SceneConfig
	CORS    CORSConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string
	Env  string
}

// BackendConfig holds the external project API connection settings.
type BackendConfig struct {
	URL    string
	APIKey string
}

// CollabConfig holds the collaboration room subscription settings.
type CollabConfig struct {
	// WSURL is the ws(s):// base URL of the collaboration hub that
	// sessions join to follow remote activity. Empty disables the
	// subscription.
	WSURL string
}

// SceneConfig holds scene construction tuning.
type SceneConfig struct {
	// ContextRadiusMeters is the radius of the OSM surroundings fetch
	// around the project location.
	ContextRadiusMeters float64
	// FrameIntervalMS is the session frame loop cadence.
	FrameIntervalMS int
}

// CORSConfig holds CORS configuration.
type CORSConfig struct {
	Origins []string
}

// Load reads configuration from environment variables.
// It uses viper to read values and provides sensible defaults for development.
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults for development
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("BACKEND_URL", "http://localhost:8000")
	v.SetDefault("CONTEXT_RADIUS_M", 500.0)
	v.SetDefault("FRAME_INTERVAL_MS", 16)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000,http://localhost:3001")

	// Bind environment variables
	v.AutomaticEnv()

	// Build configuration
	cfg := &Config{
		Server: ServerConfig{
			Port: v.GetString("PORT"),
			Env:  v.GetString("ENV"),
		},
		Backend: BackendConfig{
			URL:    v.GetString("BACKEND_URL"),
			APIKey: v.GetString("BACKEND_API_KEY"),
		},
		Collab: CollabConfig{
			WSURL: v.GetString("COLLAB_WS_URL"),
		},
		Scene: SceneConfig{
			ContextRadiusMeters: v.GetFloat64("CONTEXT_RADIUS_M"),
			FrameIntervalMS:     v.GetInt("FRAME_INTERVAL_MS"),
		},
		CORS: CORSConfig{
			Origins: parseOrigins(v.GetString("CORS_ORIGINS")),
		},
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	// Validate backend config
	if c.Backend.URL == "" {
		return fmt.Errorf("BACKEND_URL is required")
	}
	if !strings.HasPrefix(c.Backend.URL, "http://") && !strings.HasPrefix(c.Backend.URL, "https://") {
		return fmt.Errorf("BACKEND_URL must be an http(s) URL")
	}

	// Validate collab config
	if c.Collab.WSURL != "" &&
		!strings.HasPrefix(c.Collab.WSURL, "ws://") && !strings.HasPrefix(c.Collab.WSURL, "wss://") {
		return fmt.Errorf("COLLAB_WS_URL must be a ws(s) URL")
	}

	// Validate scene config
	if c.Scene.ContextRadiusMeters <= 0 {
		return fmt.Errorf("CONTEXT_RADIUS_M must be positive")
	}
	if c.Scene.FrameIntervalMS < 1 {
		return fmt.Errorf("FRAME_INTERVAL_MS must be at least 1")
	}

	// Validate CORS config
	if len(c.CORS.Origins) == 0 {
		return fmt.Errorf("CORS_ORIGINS is required")
	}

	return nil
}

// parseOrigins splits a comma-separated string of origins into a slice.
func parseOrigins(origins string) []string {
	if origins == "" {
		return []string{}
	}

	parts := strings.Split(origins, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
