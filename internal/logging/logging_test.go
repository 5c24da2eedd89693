package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewServiceJSON(t *testing.T) {
	var buf bytes.Buffer
	entry := NewService("buhod", &buf, Options{Level: "debug", Format: "json"})
	WithRequestID(entry, "req-1").Debug("hola")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("not JSON: %q", buf.String())
	}
	if line["service"] != "buhod" || line["request_id"] != "req-1" || line["message"] != "hola" {
		t.Errorf("line = %v", line)
	}
}

func TestNewServiceLevel(t *testing.T) {
	var buf bytes.Buffer
	entry := NewService("buhod", &buf, Options{Level: "warn", Format: "json"})
	entry.Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("info logged at warn level: %q", buf.String())
	}
}

func TestConsoleFormats(t *testing.T) {
	var buf bytes.Buffer
	NewConsole(&buf, Options{Level: "info", Format: "logfmt"}).Info("cargado", "proyectos", 3)
	if !strings.Contains(buf.String(), "proyectos=3") {
		t.Errorf("logfmt output = %q", buf.String())
	}

	buf.Reset()
	NewConsole(&buf, Options{Level: "error"}).Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("info logged at error level: %q", buf.String())
	}
}

func TestOpenFile(t *testing.T) {
	dir := t.TempDir()
	logger, closer, err := OpenFile(dir, Options{Level: "info"})
	if err != nil {
		t.Fatal(err)
	}
	logger.Info("inicio")
	closer.Close()

	data, err := os.ReadFile(filepath.Join(dir, "buho.log"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "inicio") {
		t.Errorf("log file = %q", data)
	}
}
