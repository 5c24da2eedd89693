package db

import (
	"database/sql"
	_ "embed"
	"errors"
	"os"
	"path/filepath"

	"github.com/digitalbuho/buho/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schema string

// ErrNotFound is returned when a lookup matches no row
var ErrNotFound = errors.New("not found")

// Token setting keys
const (
	accessTokenKey  = "access_token"
	refreshTokenKey = "refresh_token"
)

// DB wraps the database connection
type DB struct {
	*sql.DB
}

// New opens the database at the default data path
func New(name string) (*DB, error) {
	dbPath, err := DefaultPath(name)
	if err != nil {
		return nil, err
	}
	return Open(dbPath)
}

// Open creates a database connection at path and initializes the schema
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	// sqlite serializes writers; one connection avoids SQLITE_BUSY under the API server
	db.SetMaxOpenConns(1)

	// Initialize schema
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	return &DB{db}, nil
}

// DefaultPath returns the path to the named database file
func DefaultPath(name string) (string, error) {
	appDir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(appDir, name+".db"), nil
}

// DataDir returns the application data directory, creating it if needed
func DataDir() (string, error) {
	// Use XDG data directory or fallback to home directory
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dataDir = filepath.Join(home, ".local", "share")
	}

	appDir := filepath.Join(dataDir, "buho")
	if err := os.MkdirAll(appDir, 0755); err != nil {
		return "", err
	}
	return appDir, nil
}

// GetSetting retrieves a setting value by key
func (db *DB) GetSetting(key string) (string, error) {
	var value string
	err := db.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// SetSetting sets a setting value
func (db *DB) SetSetting(key, value string) error {
	_, err := db.Exec(`
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

// DeleteSetting removes a setting
func (db *DB) DeleteSetting(key string) error {
	_, err := db.Exec("DELETE FROM settings WHERE key = ?", key)
	return err
}

// Tokens returns the stored access and refresh tokens
func (db *DB) Tokens() (access, refresh string, err error) {
	if access, err = db.GetSetting(accessTokenKey); err != nil {
		return "", "", err
	}
	if refresh, err = db.GetSetting(refreshTokenKey); err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

// SetTokens stores the access and refresh tokens
func (db *DB) SetTokens(access, refresh string) error {
	if err := db.SetSetting(accessTokenKey, access); err != nil {
		return err
	}
	if refresh == "" {
		return nil
	}
	return db.SetSetting(refreshTokenKey, refresh)
}

// ClearTokens forgets both tokens
func (db *DB) ClearTokens() error {
	if err := db.DeleteSetting(accessTokenKey); err != nil {
		return err
	}
	return db.DeleteSetting(refreshTokenKey)
}

// notFound maps sql.ErrNoRows to ErrNotFound
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// nullDate stores an unset date as NULL
func nullDate(d models.Date) any {
	if d.IsZero() {
		return nil
	}
	return d.String()
}

// nullRef stores an unset reference as NULL
func nullRef(r models.Ref) any {
	if !r.Valid() {
		return nil
	}
	return r.ID()
}

// scanDate parses a nullable date column
func scanDate(s sql.NullString) models.Date {
	if !s.Valid {
		return models.Date{}
	}
	d, _ := models.ParseDate(s.String)
	return d
}

type scanner interface {
	Scan(dest ...any) error
}
