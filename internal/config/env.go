package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// loadFromEnv overrides config from BUHO_* environment variables.
func loadFromEnv(cfg *Config) error {
	stringVars := map[string]*string{
		"BUHO_API_URL":     &cfg.APIURL,
		"BUHO_LISTEN_ADDR": &cfg.ListenAddr,
		"BUHO_DB_PATH":     &cfg.DBPath,
		"BUHO_JWT_SECRET":  &cfg.JWTSecret,
		"BUHO_NATS_URL":    &cfg.NATSURL,
		"BUHO_LOG_LEVEL":   &cfg.LogLevel,
		"BUHO_LOG_FORMAT":  &cfg.LogFormat,
		"BUHO_LOG_FILE":    &cfg.LogFile,
	}
	for key, target := range stringVars {
		if v := os.Getenv(key); v != "" {
			*target = v
		}
	}

	durations := map[string]*Duration{
		"BUHO_ACCESS_TTL":      &cfg.AccessTTL,
		"BUHO_REFRESH_TTL":     &cfg.RefreshTTL,
		"BUHO_REQUEST_TIMEOUT": &cfg.RequestTimeout,
	}
	for key, target := range durations {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		target.Duration = d
	}

	if v := os.Getenv("BUHO_CORS_ORIGINS"); v != "" {
		cfg.CORSOrigins = splitList(v)
	}
	return nil
}

// splitList splits a comma-separated list, dropping blanks
func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
