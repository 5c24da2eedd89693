package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/digitalbuho/buho/internal/auth"
	"github.com/digitalbuho/buho/internal/config"
	"github.com/digitalbuho/buho/internal/db"
	"github.com/digitalbuho/buho/internal/events"
	"github.com/digitalbuho/buho/internal/logging"
	"github.com/digitalbuho/buho/internal/server"
	"github.com/google/uuid"
)

// Version information set via ldflags
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if len(os.Args) > 1 && (os.Args[1] == "--version" || os.Args[1] == "-v") {
		fmt.Printf("buhod %s (commit: %s, built: %s)\n", version, commit, date)
		os.Exit(0)
	}

	fs := flag.NewFlagSet("buhod", flag.ExitOnError)
	seed := fs.Bool("seed", false, "Create the admin account and demo projects, then keep serving")
	adminEmail := fs.String("admin-email", os.Getenv("BUHO_ADMIN_EMAIL"), "Admin account email used by -seed")
	adminPassword := fs.String("admin-password", os.Getenv("BUHO_ADMIN_PASSWORD"), "Admin account password used by -seed")

	cfg, err := config.Load(fs, os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewService("buhod", os.Stderr, logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})

	if cfg.JWTSecret == "" {
		cfg.JWTSecret = uuid.NewString()
		logger.Warn("jwt_secret is not set; using a random secret, tokens will not survive a restart")
	}

	var store *db.DB
	if cfg.DBPath != "" {
		store, err = db.Open(cfg.DBPath)
	} else {
		store, err = db.New("buhod")
	}
	if err != nil {
		logger.WithError(err).Fatal("open database")
	}
	defer store.Close()

	if *seed {
		err := server.Seed(store, server.Admin{Email: *adminEmail, Password: *adminPassword}, logger)
		if err != nil {
			logger.WithError(err).Fatal("seed")
		}
	}

	publisher, err := events.New(cfg.NATSURL)
	if err != nil {
		logger.WithError(err).Fatal("connect to NATS")
	}
	defer publisher.Close()

	srv, err := server.New(server.Options{
		Store:       store,
		Tokens:      auth.NewManager(cfg.JWTSecret, cfg.AccessTTL.Duration, cfg.RefreshTTL.Duration),
		Events:      publisher,
		Log:         logger,
		CORSOrigins: cfg.CORSOrigins,
	})
	if err != nil {
		logger.WithError(err).Fatal("build server")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.WithField("version", version).Info("starting")
	if err := srv.Run(ctx, cfg.ListenAddr); err != nil {
		logger.WithError(err).Error("server stopped")
		os.Exit(1)
	}
}
