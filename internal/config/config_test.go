package config

import (
	"flag"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// isolate points every config source at empty temp locations
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	for _, key := range []string{"BUHO_API_URL", "BUHO_DB_PATH", "BUHO_ACCESS_TTL", "BUHO_CORS_ORIGINS", "BUHO_LOG_LEVEL", "BUHO_NATS_URL"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	t.Chdir(dir)
	return dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load(flag.NewFlagSet("test", flag.ContinueOnError), nil)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.APIURL != DefaultAPIURL {
		t.Errorf("APIURL: got %q, want %q", cfg.APIURL, DefaultAPIURL)
	}
	if cfg.AccessTTL.Duration != DefaultAccessTTL {
		t.Errorf("AccessTTL: got %v", cfg.AccessTTL)
	}
	if len(cfg.CORSOrigins) != len(DefaultCORSOrigins) {
		t.Errorf("CORSOrigins: got %v", cfg.CORSOrigins)
	}
}

func TestPrecedence(t *testing.T) {
	dir := isolate(t)

	writeFile(t, filepath.Join(dir, "config", "buho", "buho.toml"), `
api_url = "http://user.example/api"
log_level = "debug"
access_ttl = "5m"
`)
	writeFile(t, filepath.Join(dir, "buho.toml"), `
api_url = "http://project.example/api/"
cors_origins = ["http://a.example"]
`)
	writeFile(t, filepath.Join(dir, ".env"), "BUHO_NATS_URL=nats://dotenv:4222\n")
	t.Setenv("BUHO_LOG_LEVEL", "warn")

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg, err := Load(fs, []string{"-db", "~/buho.db"})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"project file overrides user file", cfg.APIURL, "http://project.example/api/"},
		{"user file applies", cfg.AccessTTL.Duration, 5 * time.Minute},
		{"env overrides file", cfg.LogLevel, "warn"},
		{"dotenv applies", cfg.NATSURL, "nats://dotenv:4222"},
		{"list from file", len(cfg.CORSOrigins), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}

	home, _ := os.UserHomeDir()
	if cfg.DBPath != filepath.Join(home, "buho.db") {
		t.Errorf("DBPath not expanded: %q", cfg.DBPath)
	}
}

func TestFlagsOverrideEnv(t *testing.T) {
	isolate(t)
	t.Setenv("BUHO_API_URL", "http://env.example/api/")
	t.Setenv("BUHO_CORS_ORIGINS", "http://x.example, ,http://y.example")

	cfg, err := Load(flag.NewFlagSet("test", flag.ContinueOnError), []string{"-api-url", "http://flag.example/api"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.APIURL != "http://flag.example/api/" {
		t.Errorf("APIURL = %q", cfg.APIURL)
	}
	if len(cfg.CORSOrigins) != 2 {
		t.Errorf("CORSOrigins = %v", cfg.CORSOrigins)
	}
}

func TestInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		args []string
	}{
		{"bad duration", map[string]string{"BUHO_ACCESS_TTL": "soon"}, nil},
		{"bad format", nil, []string{"-log-format", "xml"}},
		{"unknown flag", nil, []string{"-nope"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			fs := flag.NewFlagSet("test", flag.ContinueOnError)
			fs.SetOutput(io.Discard)
			if _, err := Load(fs, tt.args); err == nil {
				t.Error("expected error")
			}
		})
	}
}
