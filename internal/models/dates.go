package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the wire format for date-only fields
const DateLayout = "2006-01-02"

// DisplayLayout is how dates are shown to users
const DisplayLayout = "02/01/2006"

// Date is a calendar date without time of day. The zero value means unset.
type Date struct {
	time.Time
}

// NewDate returns the date part of t
func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// ParseDate accepts YYYY-MM-DD, RFC 3339 and DD/MM/YYYY. Blank input yields the zero date.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, nil
	}
	for _, layout := range []string{DateLayout, time.RFC3339, DisplayLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			return NewDate(t), nil
		}
	}
	return Date{}, fmt.Errorf("invalid date %q", s)
}

// String returns the wire format, or "" when unset
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// Display renders DD/MM/YYYY, or "Sin fecha" when unset
func (d Date) Display() string {
	if d.IsZero() {
		return "Sin fecha"
	}
	return d.Format(DisplayLayout)
}

// MarshalJSON implements json.Marshaler
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format(DateLayout))
}

// UnmarshalJSON implements json.Unmarshaler
func (d *Date) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Ref is a loosely typed reference to another entity. Zero means unset.
type Ref int64

// ParseRef coerces an arbitrary decoded JSON value into an ID
func ParseRef(v any) Ref {
	switch x := v.(type) {
	case nil:
		return 0
	case float64:
		return Ref(x)
	case int:
		return Ref(x)
	case int64:
		return Ref(x)
	case json.Number:
		n, _ := x.Int64()
		return Ref(n)
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		if err != nil {
			return 0
		}
		return Ref(n)
	case map[string]any:
		return ParseRef(x["id"])
	}
	return 0
}

// Valid reports whether the reference points at something
func (r Ref) Valid() bool {
	return r > 0
}

// ID returns the reference as a plain int64
func (r Ref) ID() int64 {
	return int64(r)
}

// MarshalJSON writes null for an unset reference
func (r Ref) MarshalJSON() ([]byte, error) {
	if !r.Valid() {
		return []byte("null"), nil
	}
	return strconv.AppendInt(nil, int64(r), 10), nil
}

// UnmarshalJSON accepts numbers, numeric strings, objects with an id, and null
func (r *Ref) UnmarshalJSON(data []byte) error {
	var v any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return err
	}
	if m, ok := v.(map[string]any); ok {
		v = m["id"]
	}
	*r = ParseRef(v)
	return nil
}
