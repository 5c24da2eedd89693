package config

import (
	"flag"
)

// parseFlags defines and parses CLI flags.
func parseFlags(cfg *Config, fs *flag.FlagSet, args []string) error {
	if fs == nil {
		fs = flag.NewFlagSet("buho", flag.ContinueOnError)
	}

	fs.StringVar(&cfg.APIURL, "api-url", cfg.APIURL, "Base URL of the REST API")
	fs.DurationVar(&cfg.RequestTimeout.Duration, "timeout", cfg.RequestTimeout.Duration, "Per-request timeout")
	fs.StringVar(&cfg.ListenAddr, "listen", cfg.ListenAddr, "Address the API server listens on")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to the sqlite database")
	fs.StringVar(&cfg.NATSURL, "nats-url", cfg.NATSURL, "NATS server for change events")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format (text, json, logfmt)")
	fs.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "Log file path")

	var origins string
	fs.StringVar(&origins, "cors-origins", "", "Comma-separated allowed CORS origins")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if origins != "" {
		cfg.CORSOrigins = splitList(origins)
	}
	return nil
}
