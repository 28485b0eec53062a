package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DateLayout is the ISO calendar date form used in event records and
// output filenames.
const DateLayout = "2006-01-02"

// ErrInvalidDate is returned when a date value is not a valid YYYY-MM-DD
// calendar date.
var ErrInvalidDate = errors.New("invalid date")

// Date is a civil calendar date without time or zone. The zero value means
// "not set".
type Date struct {
	t time.Time
}

// ParseDate parses s as YYYY-MM-DD.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w %q", ErrInvalidDate, s)
	}
	return Date{t: t}, nil
}

// MustDate is ParseDate for literals known to be valid (tests, defaults).
func MustDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// DateOf returns the calendar date of t as seen in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{t: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

func (d Date) IsZero() bool { return d.t.IsZero() }

// Time returns midnight of the date. The location carries no meaning.
func (d Date) Time() time.Time { return d.t }

func (d Date) Before(o Date) bool { return d.t.Before(o.t) }

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(DateLayout)
}

func (d *Date) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: %w: expected a scalar", node.Line, ErrInvalidDate)
	}
	parsed, err := ParseDate(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*d = parsed
	return nil
}

func (d Date) MarshalYAML() (any, error) {
	return d.String(), nil
}

// ClockTime is a session start/end time kept as written in the record
// ("9", "10:00", "9.30"). YAML would otherwise turn 9.30 into a float and
// lose the trailing zero.
type ClockTime string

func (c *ClockTime) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a time scalar", node.Line)
	}
	*c = ClockTime(strings.TrimSpace(node.Value))
	return nil
}

func (c ClockTime) String() string { return string(c) }

// Session is one dated occurrence of a multi-day event.
type Session struct {
	Date      Date      `yaml:"date"`
	StartTime ClockTime `yaml:"start_time"`
	EndTime   ClockTime `yaml:"end_time"`
}

// Event is one event record as loaded from the events directory.
// Events with no sessions are single-day, all-day events.
type Event struct {
	Title           string    `yaml:"title"`
	Date            Date      `yaml:"date"`
	City            string    `yaml:"city"`
	Address         string    `yaml:"address"`
	Description     string    `yaml:"description"`
	RegistrationURL string    `yaml:"registration_url"`
	Icon            string    `yaml:"icon"`
	Sessions        []Session `yaml:"sessions,omitempty"`

	// Source is the file the record was loaded from, for error messages.
	Source string `yaml:"-"`
}

// HasSessions reports whether the event renders as multiple timed entries.
func (e Event) HasSessions() bool {
	return len(e.Sessions) > 0
}

// Location is the human readable place: the city, followed by the address
// when one is set.
func (e Event) Location() string {
	if strings.TrimSpace(e.Address) == "" {
		return e.City
	}
	return e.City + ", " + e.Address
}

// PublicationRecord describes one published aggregate calendar for the
// subscription list on the listing page.
type PublicationRecord struct {
	Name string
	URL  string
	// CityTag is the city the calendar is filtered to; empty for the
	// all-events calendar.
	CityTag string
}
