// Package logging builds the loggers used by the front end and the API server.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/sirupsen/logrus"
)

// Options selects level, format and destination
type Options struct {
	Level  string // debug, info, warn, error
	Format string // text, json, logfmt
	File   string // empty means the default destination
}

// NewConsole returns a charmbracelet logger writing to w
func NewConsole(w io.Writer, opts Options) *log.Logger {
	level, err := log.ParseLevel(opts.Level)
	if err != nil {
		level = log.InfoLevel
	}

	formatter := log.TextFormatter
	switch opts.Format {
	case "json":
		formatter = log.JSONFormatter
	case "logfmt":
		formatter = log.LogfmtFormatter
	}

	return log.NewWithOptions(w, log.Options{
		Level:           level,
		Formatter:       formatter,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Prefix:          "buho",
	})
}

// OpenFile returns a console logger appending to opts.File, or to
// buho.log under dataDir when no file is configured. The terminal
// belongs to the UI, so the front end never logs to stdout.
func OpenFile(dataDir string, opts Options) (*log.Logger, io.Closer, error) {
	path := opts.File
	if path == "" {
		path = filepath.Join(dataDir, "buho.log")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return NewConsole(f, opts), f, nil
}

// NewService returns a structured logrus logger tagged with the service name
func NewService(service string, w io.Writer, opts Options) *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(w)

	if opts.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: time.RFC3339})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "ts",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	}

	level, err := logrus.ParseLevel(opts.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	return logger.WithField("service", service)
}

// WithRequestID adds the request id to a service log entry
func WithRequestID(entry *logrus.Entry, requestID string) *logrus.Entry {
	if requestID == "" {
		return entry
	}
	return entry.WithField("request_id", requestID)
}
