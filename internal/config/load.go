package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load loads configuration from multiple sources in priority order:
// 1. Defaults
// 2. User config file ($XDG_CONFIG_HOME/buho/buho.toml)
// 3. Project config file (buho.toml or .buho.toml in current directory)
// 4. .env in the current directory (never overrides the real environment)
// 5. Environment variables
// 6. CLI flags
func Load(fset *flag.FlagSet, args []string) (*Config, error) {
	cfg := &Config{}

	// 1. Set defaults
	setDefaults(cfg)

	// 2. Try to load from user config file
	if path := findUserConfigFile(); path != "" {
		if err := loadConfigFile(cfg, path); err != nil {
			return nil, fmt.Errorf("loading user config file %s: %w", path, err)
		}
	}

	// 3. Try to load from project config file (overrides user config)
	if path := findProjectConfigFile(); path != "" {
		if err := loadConfigFile(cfg, path); err != nil {
			return nil, fmt.Errorf("loading project config file %s: %w", path, err)
		}
	}

	// 4. Merge .env into the process environment
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	// 5. Override from environment
	if err := loadFromEnv(cfg); err != nil {
		return nil, err
	}

	// 6. Parse CLI flags (they override everything)
	if err := parseFlags(cfg, fset, args); err != nil {
		return nil, fmt.Errorf("parsing flags: %w", err)
	}

	cfg.DBPath = expandPath(cfg.DBPath)
	cfg.LogFile = expandPath(cfg.LogFile)
	if !strings.HasSuffix(cfg.APIURL, "/") {
		cfg.APIURL += "/"
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadConfigFile loads TOML config from the given file.
func loadConfigFile(cfg *Config, path string) error {
	_, err := toml.DecodeFile(path, cfg)
	return err
}

// findUserConfigFile returns the per-user config file if it exists
func findUserConfigFile() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		var err error
		if dir, err = os.UserConfigDir(); err != nil {
			return ""
		}
	}
	return firstExisting(filepath.Join(dir, "buho", "buho.toml"))
}

// findProjectConfigFile returns buho.toml or .buho.toml from the working directory
func findProjectConfigFile() string {
	return firstExisting("buho.toml", ".buho.toml")
}

func firstExisting(paths ...string) string {
	for _, p := range paths {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return ""
}

// expandPath expands ~/ and environment variables in paths.
func expandPath(p string) string {
	if p == "" {
		return p
	}
	expanded := os.ExpandEnv(p)
	if expanded == "~" || strings.HasPrefix(expanded, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return expanded
		}
		return filepath.Join(home, strings.TrimPrefix(expanded[1:], "/"))
	}
	return expanded
}
