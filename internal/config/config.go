// Package config loads settings for the buho front end and API server.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Default values
const (
	DefaultAPIURL         = "http://127.0.0.1:8000/api/"
	DefaultListenAddr     = "127.0.0.1:8000"
	DefaultAccessTTL      = 60 * time.Minute
	DefaultRefreshTTL     = 24 * time.Hour
	DefaultRequestTimeout = 15 * time.Second
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "text"
)

// DefaultCORSOrigins are the dev servers allowed to call the API
var DefaultCORSOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173", "http://localhost:3000"}

// Config holds settings shared by both binaries
type Config struct {
	// Front end
	APIURL         string   `toml:"api_url"`
	RequestTimeout Duration `toml:"request_timeout"`

	// API server
	ListenAddr  string   `toml:"listen_addr"`
	DBPath      string   `toml:"db_path"`
	JWTSecret   string   `toml:"jwt_secret"`
	AccessTTL   Duration `toml:"access_ttl"`
	RefreshTTL  Duration `toml:"refresh_ttl"`
	CORSOrigins []string `toml:"cors_origins"`
	NATSURL     string   `toml:"nats_url"`

	// Logging
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
	LogFile   string `toml:"log_file"`
}

// Duration is a time.Duration that decodes from strings like "15m"
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func setDefaults(cfg *Config) {
	cfg.APIURL = DefaultAPIURL
	cfg.RequestTimeout = Duration{DefaultRequestTimeout}
	cfg.ListenAddr = DefaultListenAddr
	cfg.AccessTTL = Duration{DefaultAccessTTL}
	cfg.RefreshTTL = Duration{DefaultRefreshTTL}
	cfg.CORSOrigins = append([]string(nil), DefaultCORSOrigins...)
	cfg.LogLevel = DefaultLogLevel
	cfg.LogFormat = DefaultLogFormat
}

// validate rejects values no component can work with
func validate(cfg *Config) error {
	if cfg.APIURL == "" {
		return fmt.Errorf("api_url is empty")
	}
	if cfg.AccessTTL.Duration <= 0 || cfg.RefreshTTL.Duration <= 0 {
		return fmt.Errorf("token lifetimes must be positive")
	}
	switch cfg.LogFormat {
	case "text", "json", "logfmt":
	default:
		return fmt.Errorf("unknown log_format %q", cfg.LogFormat)
	}
	return nil
}
