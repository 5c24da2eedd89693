package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/digitalbuho/buho/internal/client"
	"github.com/digitalbuho/buho/internal/config"
	"github.com/digitalbuho/buho/internal/db"
	"github.com/digitalbuho/buho/internal/logging"
	"github.com/digitalbuho/buho/internal/ui"
)

// Version information set via ldflags
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	// Handle version flag
	if len(os.Args) > 1 && (os.Args[1] == "--version" || os.Args[1] == "-v") {
		fmt.Printf("buho %s (commit: %s, built: %s)\n", version, commit, date)
		os.Exit(0)
	}

	cfg, err := config.Load(flag.NewFlagSet("buho", flag.ExitOnError), os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	dataDir, err := db.DataDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error locating data dir: %v\n", err)
		os.Exit(1)
	}
	logger, logFile, err := logging.OpenFile(dataDir, logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening log file: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()
	log.SetDefault(logger)

	// Local state: tokens and the last opened project
	database, err := db.New("buho")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing database: %v\n", err)
		os.Exit(1)
	}
	defer database.Close()

	api, err := client.New(cfg.APIURL, cfg.RequestTimeout.Duration, database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error configuring API client: %v\n", err)
		os.Exit(1)
	}
	log.Info("starting", "version", version, "api", api.BaseURL())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app := ui.NewApp(ctx, api, database)
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		log.Error("application stopped", "err", err)
		fmt.Fprintf(os.Stderr, "Error running application: %v\n", err)
		os.Exit(1)
	}
}
