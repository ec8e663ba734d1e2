// Package config provides centralized configuration management.
// This is the SINGLE SOURCE OF TRUTH for all server and gameplay settings.
//
// IMPORTANT: When changing defaults, only modify this file.
// All other parts of the codebase should reference these values.
package config

import (
	"os"
	"strconv"
	"time"
)

// =============================================================================
// NETWORK CONFIGURATION
// =============================================================================

// NetworkConfig holds the listener settings for both planes.
type NetworkConfig struct {
	HTTPPort      int // Control plane (lobby discovery, leaderboards)
	UDPPort       int // Gameplay traffic
	MaxPacketSize int // Largest accepted inbound datagram in bytes
}

// DefaultNetwork returns the default network configuration.
func DefaultNetwork() NetworkConfig {
	return NetworkConfig{
		HTTPPort:      8080,
		UDPPort:       8081,
		MaxPacketSize: 1024,
	}
}

// NetworkFromEnv returns network configuration with environment overrides.
func NetworkFromEnv() NetworkConfig {
	cfg := DefaultNetwork()

	if p := getEnvInt("HTTP_PORT", 0); p > 0 {
		cfg.HTTPPort = p
	}
	if p := getEnvInt("UDP_PORT", 0); p > 0 {
		cfg.UDPPort = p
	}
	if s := getEnvInt("MAX_PACKET_SIZE", 0); s > 0 {
		cfg.MaxPacketSize = s
	}

	return cfg
}

// =============================================================================
// GAMEPLAY CONFIGURATION
// =============================================================================

// GameConfig holds the per-lobby tick engine settings.
type GameConfig struct {
	TickInterval              time.Duration // Cadence of the per-lobby tick loop
	InactivityTimeout         time.Duration // Drop a player after this much silence
	InactivityWarningFraction float64       // Warn once past this fraction of the timeout
	CleanupInterval           time.Duration // How often the inactivity sweep runs
	DefaultMaxPlayers         uint32        // Lobby capacity when a create request omits it
	DefaultScene              string        // Scene when a create request omits it
}

// DefaultGame returns the default gameplay configuration.
func DefaultGame() GameConfig {
	return GameConfig{
		TickInterval:              20 * time.Millisecond, // 50 Hz
		InactivityTimeout:         15 * time.Second,
		InactivityWarningFraction: 0.5,
		CleanupInterval:           5 * time.Second,
		DefaultMaxPlayers:         4,
		DefaultScene:              "world",
	}
}

// GameFromEnv returns gameplay configuration with environment overrides.
func GameFromEnv() GameConfig {
	cfg := DefaultGame()

	if ms := getEnvInt("TICK_INTERVAL_MS", 0); ms > 0 {
		cfg.TickInterval = time.Duration(ms) * time.Millisecond
	}
	if s := getEnvInt("PLAYER_INACTIVITY_TIMEOUT_SECS", 0); s > 0 {
		cfg.InactivityTimeout = time.Duration(s) * time.Second
	}
	if f := getEnvFloat("INACTIVITY_WARNING_FRACTION", -1); f > 0 && f < 1 {
		cfg.InactivityWarningFraction = f
	}
	if s := getEnvInt("CLEANUP_INTERVAL_SECS", 0); s > 0 {
		cfg.CleanupInterval = time.Duration(s) * time.Second
	}

	return cfg
}

// =============================================================================
// RATE LIMITING
// =============================================================================

// LimitsConfig controls ingress protection on both planes.
type LimitsConfig struct {
	UDPPacketsPerSecond   float64 // Per source address, before parsing
	UDPBurst              int
	HTTPRequestsPerSecond float64 // Per client IP
	HTTPBurst             int
	CommandQueueSize      int // Bounded per-lobby command channel
}

// DefaultLimits returns production-safe ingress limits.
func DefaultLimits() LimitsConfig {
	return LimitsConfig{
		UDPPacketsPerSecond:   100,
		UDPBurst:              100,
		HTTPRequestsPerSecond: 10,
		HTTPBurst:             20,
		CommandQueueSize:      1024,
	}
}

// LimitsFromEnv returns ingress limits with environment overrides.
func LimitsFromEnv() LimitsConfig {
	cfg := DefaultLimits()

	if r := getEnvFloat("RATE_LIMIT_PER_SECOND", -1); r > 0 {
		cfg.UDPPacketsPerSecond = r
		cfg.UDPBurst = int(r)
	}
	if n := getEnvInt("COMMAND_QUEUE_SIZE", 0); n > 0 {
		cfg.CommandQueueSize = n
	}

	return cfg
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds the complete server configuration.
type AppConfig struct {
	Network NetworkConfig
	Game    GameConfig
	Limits  LimitsConfig
}

// Load returns the complete configuration with environment overrides.
func Load() AppConfig {
	return AppConfig{
		Network: NetworkFromEnv(),
		Game:    GameFromEnv(),
		Limits:  LimitsFromEnv(),
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}
