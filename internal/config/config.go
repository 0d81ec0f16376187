/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config covers process level configuration read from environment variables.
type Config struct {
	Environment string
	HTTPBind    string
	HTTPPort    int

	// Content layout. Everything lives under BaseDir unless overridden.
	BaseDir          string
	VideosDir        string
	PresentationsDir string
	SlidesCacheDir   string
	OrderingFile     string // persisted playlist ordering (JSON)
	CommandsDir      string // mailbox files live here
	PlaylistM3U      string // generated local player playlist
	PIDFile          string // player daemon pidfile

	// Local player process.
	PlayerBin     string
	PlayerArgs    []string
	SlideDuration time.Duration
	CheckInterval time.Duration
	StopGrace     time.Duration

	// Conversion tools.
	LibreOfficeBin    string
	ImageMagickBin    string
	FFProbeBin        string
	ConversionTimeout time.Duration

	// Stream server behavior.
	CatalogTTL time.Duration
	ClientTTL  time.Duration

	// Tracing configuration.
	TracingEnabled    bool
	OTLPEndpoint      string
	TracingSampleRate float64
}

// PlayerMailbox returns the path of the local controller's delete-on-read mailbox.
func (c *Config) PlayerMailbox() string {
	return filepath.Join(c.CommandsDir, "player.json")
}

// DisplayMailbox returns the path of the read-only relay mailbox for network displays.
func (c *Config) DisplayMailbox() string {
	return filepath.Join(c.CommandsDir, "displays.json")
}

// Load reads environment variables, applies defaults, and validates the result.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	base := getEnv("HEIMDALL_BASE_DIR", filepath.Join(home, "signage"))

	cfg := &Config{
		Environment: getEnv("HEIMDALL_ENV", "development"),
		HTTPBind:    getEnv("HEIMDALL_HTTP_BIND", "0.0.0.0"),
		HTTPPort:    getEnvInt("HEIMDALL_HTTP_PORT", 8080),

		BaseDir:          base,
		VideosDir:        getEnv("HEIMDALL_VIDEOS_DIR", filepath.Join(base, "content", "videos")),
		PresentationsDir: getEnv("HEIMDALL_PRESENTATIONS_DIR", filepath.Join(base, "content", "presentations")),
		SlidesCacheDir:   getEnv("HEIMDALL_SLIDES_CACHE_DIR", filepath.Join(base, "cache", "slides")),
		OrderingFile:     getEnv("HEIMDALL_ORDERING_FILE", filepath.Join(base, "playlist.json")),
		CommandsDir:      getEnv("HEIMDALL_COMMANDS_DIR", filepath.Join(base, "commands")),
		PlaylistM3U:      getEnv("HEIMDALL_PLAYLIST_M3U", filepath.Join(base, "playlist.m3u")),
		PIDFile:          getEnv("HEIMDALL_PIDFILE", filepath.Join(base, "player.pid")),

		PlayerBin:     getEnv("HEIMDALL_PLAYER_BIN", "cvlc"),
		PlayerArgs:    getEnvList("HEIMDALL_PLAYER_ARGS", defaultPlayerArgs),
		SlideDuration: getEnvDuration("HEIMDALL_SLIDE_DURATION", 10*time.Second),
		CheckInterval: getEnvDuration("HEIMDALL_CHECK_INTERVAL", 20*time.Second),
		StopGrace:     getEnvDuration("HEIMDALL_STOP_GRACE", 3*time.Second),

		LibreOfficeBin:    getEnv("HEIMDALL_LIBREOFFICE_BIN", "libreoffice"),
		ImageMagickBin:    getEnv("HEIMDALL_IMAGEMAGICK_BIN", "convert"),
		FFProbeBin:        getEnv("HEIMDALL_FFPROBE_BIN", "ffprobe"),
		ConversionTimeout: getEnvDuration("HEIMDALL_CONVERSION_TIMEOUT", 120*time.Second),

		CatalogTTL: getEnvDuration("HEIMDALL_CATALOG_TTL", 5*time.Second),
		ClientTTL:  getEnvDuration("HEIMDALL_CLIENT_TTL", 60*time.Second),

		TracingEnabled:    getEnvBool("HEIMDALL_TRACING_ENABLED", false),
		OTLPEndpoint:      getEnv("HEIMDALL_OTLP_ENDPOINT", "localhost:4317"),
		TracingSampleRate: getEnvFloat("HEIMDALL_TRACING_SAMPLE_RATE", 1.0),
	}

	if cfg.HTTPPort <= 0 || cfg.HTTPPort > 65535 {
		return nil, fmt.Errorf("HEIMDALL_HTTP_PORT %d out of range", cfg.HTTPPort)
	}
	if cfg.SlideDuration <= 0 {
		return nil, fmt.Errorf("HEIMDALL_SLIDE_DURATION must be positive")
	}
	if cfg.CheckInterval < time.Second {
		return nil, fmt.Errorf("HEIMDALL_CHECK_INTERVAL must be at least 1s")
	}
	if cfg.ConversionTimeout <= 0 {
		return nil, fmt.Errorf("HEIMDALL_CONVERSION_TIMEOUT must be positive")
	}

	return cfg, nil
}

// defaultPlayerArgs drive a kiosk-style fullscreen loop that exits after one
// pass over the playlist, so the controller observes end-of-cycle.
var defaultPlayerArgs = []string{
	"--fullscreen",
	"--no-video-title-show",
	"--no-osd",
	"--no-video-deco",
	"--video-on-top",
	"--no-interact",
	"--play-and-exit",
}

// EnsureDirs creates the content and cache directories this process relies on.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.VideosDir, c.PresentationsDir, c.SlidesCacheDir, c.CommandsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "true" || v == "1" || v == "yes" {
			return true
		}
		if v == "false" || v == "0" || v == "no" {
			return false
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			return parsed
		}
	}
	return def
}

// getEnvDuration accepts Go duration strings ("20s") or bare seconds ("20").
func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
		if secs, err := strconv.Atoi(v); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return def
}

func getEnvList(key string, def []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Fields(v)
		if len(parts) > 0 {
			return parts
		}
	}
	return def
}
