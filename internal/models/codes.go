package models

import (
	"encoding/json"
	"strings"
)

// Priority is the single-letter priority code shared by projects and tasks
type Priority string

const (
	PriorityLow    Priority = "B"
	PriorityMedium Priority = "M"
	PriorityHigh   Priority = "A"
	PriorityUrgent Priority = "U"
)

// Priorities lists every priority from lowest to highest
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}

// Status is the single-letter status code shared by projects and tasks
type Status string

const (
	StatusPending    Status = "P"
	StatusInProgress Status = "E"
	StatusCompleted  Status = "C"
	StatusDelayed    Status = "A"
)

// Statuses lists every status in workflow order
var Statuses = []Status{StatusPending, StatusInProgress, StatusCompleted, StatusDelayed}

var prioritySpellings = map[string]Priority{
	"B":        PriorityLow,
	"BAJA":     PriorityLow,
	"LOW":      PriorityLow,
	"M":        PriorityMedium,
	"MEDIA":    PriorityMedium,
	"MEDIUM":   PriorityMedium,
	"NORMAL":   PriorityMedium,
	"A":        PriorityHigh,
	"ALTA":     PriorityHigh,
	"HIGH":     PriorityHigh,
	"U":        PriorityUrgent,
	"URGENTE":  PriorityUrgent,
	"URGENT":   PriorityUrgent,
	"CRITICA":  PriorityUrgent,
	"CRÍTICA":  PriorityUrgent,
	"CRITICAL": PriorityUrgent,
}

var statusSpellings = map[string]Status{
	"P":           StatusPending,
	"PENDING":     StatusPending,
	"PENDIENTE":   StatusPending,
	"E":           StatusInProgress,
	"IP":          StatusInProgress,
	"IN_PROGRESS": StatusInProgress,
	"EN_PROGRESO": StatusInProgress,
	"C":           StatusCompleted,
	"COMPLETE":    StatusCompleted,
	"COMPLETED":   StatusCompleted,
	"COMPLETADO":  StatusCompleted,
	"COMPLETADA":  StatusCompleted,
	"A":           StatusDelayed,
	"DELAYED":     StatusDelayed,
	"ATRASADO":    StatusDelayed,
	"ATRASADA":    StatusDelayed,
	"CANCELED":    StatusDelayed,
	"CANCELLED":   StatusDelayed,
	"CANCELADO":   StatusDelayed,
}

// canonical upper-cases s and folds spaces and hyphens into underscores
func canonical(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(s)
}

// ParsePriority maps any known spelling of a priority to its code
func ParsePriority(s string) (Priority, bool) {
	p, ok := prioritySpellings[canonical(s)]
	return p, ok
}

// NormalizePriority maps s to a priority code, defaulting to Media
func NormalizePriority(s string) Priority {
	if p, ok := ParsePriority(s); ok {
		return p
	}
	return PriorityMedium
}

// ParseStatus maps any known spelling of a status to its code
func ParseStatus(s string) (Status, bool) {
	st, ok := statusSpellings[canonical(s)]
	return st, ok
}

// NormalizeStatus maps s to a status code, defaulting to Pendiente
func NormalizeStatus(s string) Status {
	if st, ok := ParseStatus(s); ok {
		return st
	}
	return StatusPending
}

// Valid reports whether p is one of the four codes
func (p Priority) Valid() bool {
	_, ok := priorityLabels[p]
	return ok
}

var priorityLabels = map[Priority]string{
	PriorityLow:    "Baja",
	PriorityMedium: "Media",
	PriorityHigh:   "Alta",
	PriorityUrgent: "Urgente",
}

// Label returns the human-readable priority
func (p Priority) Label() string {
	if l, ok := priorityLabels[p]; ok {
		return l
	}
	return "Desconocida"
}

// Rank orders priorities from 0 (Baja) to 3 (Urgente); unknown codes rank as Media
func (p Priority) Rank() int {
	for i, q := range Priorities {
		if q == p {
			return i
		}
	}
	return 1
}

// UnmarshalJSON accepts any known spelling and stores the code
func (p *Priority) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == nil {
		*p = PriorityMedium
		return nil
	}
	*p = NormalizePriority(*s)
	return nil
}

// Valid reports whether s is one of the four codes
func (s Status) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

var statusLabels = map[Status]string{
	StatusPending:    "Pendiente",
	StatusInProgress: "En progreso",
	StatusCompleted:  "Completado",
	StatusDelayed:    "Atrasado",
}

// Label returns the project wording of the status
func (s Status) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return "Desconocido"
}

// TaskLabel returns the task wording of the status
func (s Status) TaskLabel() string {
	switch s {
	case StatusCompleted:
		return "Completada"
	case StatusDelayed:
		return "Atrasada"
	}
	return s.Label()
}

// UnmarshalJSON accepts any known spelling and stores the code
func (s *Status) UnmarshalJSON(data []byte) error {
	var raw *string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		*s = StatusPending
		return nil
	}
	*s = NormalizeStatus(*raw)
	return nil
}
