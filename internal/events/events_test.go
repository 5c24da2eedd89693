package events

import (
	"encoding/json"
	"testing"
)

func TestNewWithoutURL(t *testing.T) {
	p, err := New("")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := p.(Nop); !ok {
		t.Fatalf("New(\"\") = %T, want Nop", p)
	}
	if err := p.Publish(ProjectCreated, 1, nil); err != nil {
		t.Errorf("Nop.Publish: %v", err)
	}
	p.Close()
}

func TestConnectFailure(t *testing.T) {
	if _, err := Connect("nats://127.0.0.1:1"); err == nil {
		t.Error("expected connection error")
	}
}

func TestEventEncoding(t *testing.T) {
	b, err := json.Marshal(Event{Subject: TaskUpdated, ID: 3, Data: map[string]string{"estado": "C"}})
	if err != nil {
		t.Fatal(err)
	}
	var back map[string]any
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatal(err)
	}
	if back["subject"] != TaskUpdated || back["id"].(float64) != 3 {
		t.Errorf("event = %s", b)
	}
}
