// Package publish decides which calendar files a run produces, where they
// live and how they are listed on the site.
package publish

import (
	"errors"
	"fmt"
	"path"
	"slices"
	"strings"

	"onevents/internal/ics"
	appLog "onevents/internal/log"
	"onevents/internal/model"
	"onevents/internal/text"
)

// ErrSlugCollision is returned when two outputs would be written to the same
// file, or a city has no usable slug.
var ErrSlugCollision = errors.New("slug collision")

const (
	CalendarDir = "calendar"
	AllFile     = "all.ics"
	CityDir     = "city"
)

// EventFileName is the download name of an event's own calendar file.
func EventFileName(ev model.Event) string {
	slug := text.MakeSlug(ev.Title)
	if slug == "" {
		return ev.Date.String() + ".ics"
	}
	return ev.Date.String() + "-" + slug + ".ics"
}

// EventPath is EventFileName relative to the site root.
func EventPath(ev model.Event) string {
	return path.Join(CalendarDir, EventFileName(ev))
}

// CityPath is the site relative path of a city calendar.
func CityPath(slug string) string {
	return path.Join(CalendarDir, CityDir, slug+".ics")
}

// AllPath is the site relative path of the all-events calendar.
func AllPath() string {
	return path.Join(CalendarDir, AllFile)
}

// Publisher plans the calendar outputs of a site.
type Publisher struct {
	Builder *ics.Builder

	// BaseURL is the public site root, without a trailing slash.
	BaseURL string

	// Meta is the template for every aggregate calendar. Name and
	// Description are used as is for the all-events calendar and suffixed
	// with the city for city calendars.
	Meta ics.PublicMeta
}

// File is one calendar document and its site relative path.
type File struct {
	Path     string
	Document ics.Document
}

// Plan is the full set of outputs of one run.
type Plan struct {
	// All holds every event sorted by date; Upcoming the ones on or after
	// the run date.
	All      []model.Event
	Upcoming []model.Event

	EventFiles     []File
	AggregateFiles []File

	// Records lists the aggregate calendars: all events first, then one
	// per city in sorted order.
	Records []model.PublicationRecord
}

// Files returns every planned document.
func (p *Plan) Files() []File {
	return append(slices.Clone(p.EventFiles), p.AggregateFiles...)
}

// Plan builds every document for events as seen on today.
func (p *Publisher) Plan(events []model.Event, today model.Date) (*Plan, error) {
	b := p.Builder
	if b == nil {
		b = ics.NewBuilder()
	}

	all := slices.Clone(events)
	slices.SortStableFunc(all, func(x, y model.Event) int {
		return x.Date.Time().Compare(y.Date.Time())
	})

	plan := &Plan{All: all}
	for _, ev := range all {
		if !ev.Date.Before(today) {
			plan.Upcoming = append(plan.Upcoming, ev)
		}
	}

	seen := make(map[string]string)
	claim := func(file, owner string) error {
		if prev, ok := seen[file]; ok {
			return fmt.Errorf("%w: %s is produced by both %q and %q", ErrSlugCollision, file, prev, owner)
		}
		seen[file] = owner
		return nil
	}

	for _, ev := range plan.Upcoming {
		file := EventPath(ev)
		if err := claim(file, ev.Source+" "+ev.Title); err != nil {
			return nil, err
		}
		doc, err := b.BuildSingleEventDocument(ev)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", file, err)
		}
		plan.EventFiles = append(plan.EventFiles, File{Path: file, Document: doc})
	}

	allMeta := p.meta("", AllPath())
	doc, err := b.BuildPublicDocument(all, allMeta)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", AllPath(), err)
	}
	if err := claim(AllPath(), "all events"); err != nil {
		return nil, err
	}
	plan.AggregateFiles = append(plan.AggregateFiles, File{Path: AllPath(), Document: doc})
	plan.Records = append(plan.Records, model.PublicationRecord{Name: allMeta.Name, URL: allMeta.URL})

	for _, city := range Cities(all) {
		slug := text.MakeSlug(city)
		if slug == "" {
			return nil, fmt.Errorf("%w: city %q has an empty slug", ErrSlugCollision, city)
		}
		file := CityPath(slug)
		if err := claim(file, city); err != nil {
			return nil, err
		}

		meta := p.meta(city, file)
		doc, err := b.BuildPublicDocument(ByCity(all, city), meta)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", file, err)
		}
		plan.AggregateFiles = append(plan.AggregateFiles, File{Path: file, Document: doc})
		plan.Records = append(plan.Records, model.PublicationRecord{Name: meta.Name, URL: meta.URL, CityTag: city})
	}

	appLog.Info("publication planned",
		"events", len(all),
		"upcoming", len(plan.Upcoming),
		"event_files", len(plan.EventFiles),
		"aggregate_files", len(plan.AggregateFiles),
	)
	return plan, nil
}

func (p *Publisher) meta(city, file string) ics.PublicMeta {
	m := p.Meta
	if m.Name == "" {
		m.Name = ics.DefaultCalendarName
	}
	if m.Description == "" {
		m.Description = ics.DefaultCalendarDescription
	}
	if city != "" {
		m.Name += ": " + city
		m.Description += " (" + city + ")"
	}
	m.URL = p.URL(file)
	return m
}

// URL is the public address of a site relative path.
func (p *Publisher) URL(rel string) string {
	base := strings.TrimRight(p.BaseURL, "/")
	if base == "" {
		return "/" + rel
	}
	return base + "/" + rel
}

// Cities returns the distinct trimmed non-empty cities of events, sorted.
func Cities(events []model.Event) []string {
	var out []string
	for _, ev := range events {
		if c := strings.TrimSpace(ev.City); c != "" && !slices.Contains(out, c) {
			out = append(out, c)
		}
	}
	slices.Sort(out)
	return out
}

// ByCity keeps the events whose trimmed city equals city, in order.
func ByCity(events []model.Event, city string) []model.Event {
	var out []model.Event
	for _, ev := range events {
		if strings.TrimSpace(ev.City) == city {
			out = append(out, ev)
		}
	}
	return out
}
