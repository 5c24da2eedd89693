package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// Subjects published by the API
const (
	ProjectCreated = "buho.proyectos.created"
	ProjectUpdated = "buho.proyectos.updated"
	ProjectDeleted = "buho.proyectos.deleted"
	TaskCreated    = "buho.tareas.created"
	TaskUpdated    = "buho.tareas.updated"
	TaskDeleted    = "buho.tareas.deleted"
)

// Event is the envelope sent on every subject
type Event struct {
	Subject string    `json:"subject"`
	ID      int64     `json:"id"`
	At      time.Time `json:"at"`
	Data    any       `json:"data,omitempty"`
}

// Publisher sends change events
type Publisher interface {
	Publish(subject string, id int64, data any) error
	Close()
}

// Nop discards every event
type Nop struct{}

// Publish implements Publisher
func (Nop) Publish(string, int64, any) error { return nil }

// Close implements Publisher
func (Nop) Close() {}

// NATS publishes events as JSON on a NATS connection
type NATS struct {
	conn *nats.Conn
}

// Connect dials the NATS server at url
func Connect(url string) (*NATS, error) {
	nc, err := nats.Connect(url, nats.Name("buhod"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("connect to nats %s: %w", url, err)
	}
	return &NATS{conn: nc}, nil
}

// New returns a NATS publisher when url is set and a Nop otherwise
func New(url string) (Publisher, error) {
	if url == "" {
		return Nop{}, nil
	}
	return Connect(url)
}

// Publish implements Publisher
func (n *NATS) Publish(subject string, id int64, data any) error {
	payload, err := json.Marshal(Event{Subject: subject, ID: id, At: time.Now().UTC(), Data: data})
	if err != nil {
		return err
	}
	return n.conn.Publish(subject, payload)
}

// Close flushes pending events and closes the connection
func (n *NATS) Close() {
	n.conn.Drain()
}
