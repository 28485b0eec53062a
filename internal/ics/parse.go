package ics

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "onevents/internal/log"
	"onevents/internal/text"
)

// ErrMalformedDocument is returned when a calendar body does not parse or
// a VEVENT lacks a required property.
var ErrMalformedDocument = errors.New("malformed calendar document")

// ParsedEntry is a VEVENT read back from a serialized document. The
// embedded Entry uses the same escaped TEXT form the builder produces, so a
// parsed entry compares equal to the entry it was rendered from.
type ParsedEntry struct {
	Entry
	Stamp time.Time
}

// ParsedDocument is a serialized document read back: calendar level
// properties by name plus its entries in file order.
type ParsedDocument struct {
	Properties map[string]string
	Entries    []ParsedEntry
}

// Parse reads a serialized calendar. Unlike a subscriber's reader it does
// not skip broken VEVENTs: every entry must carry UID, DTSTAMP and DTSTART.
func Parse(body []byte) (*ParsedDocument, error) {
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrMalformedDocument)
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedDocument, err)
	}

	out := &ParsedDocument{Properties: make(map[string]string, len(cal.CalendarProperties))}
	for _, p := range cal.CalendarProperties {
		out.Properties[p.IANAToken] = p.Value
	}

	for i, ve := range cal.Events() {
		entry, err := parseVEvent(ve)
		if err != nil {
			return nil, fmt.Errorf("%w: vevent %d: %w", ErrMalformedDocument, i+1, err)
		}
		out.Entries = append(out.Entries, entry)
	}

	appLog.Debug("ics parse completed", "event_count", len(out.Entries))
	return out, nil
}

// ParseDocument returns the entries of a serialized calendar.
func ParseDocument(body []byte) ([]ParsedEntry, error) {
	doc, err := Parse(body)
	if err != nil {
		return nil, err
	}
	return doc.Entries, nil
}

func parseVEvent(ve *ical.VEvent) (ParsedEntry, error) {
	var out ParsedEntry

	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return out, errors.New("missing UID")
	}
	out.UID = uidProp.Value

	stampProp := ve.GetProperty(ical.ComponentPropertyDtstamp)
	if stampProp == nil {
		return out, errors.New("missing DTSTAMP")
	}
	stamp, err := time.Parse("20060102T150405Z", stampProp.Value)
	if err != nil {
		return out, fmt.Errorf("DTSTAMP: %w", err)
	}
	out.Stamp = stamp

	startProp := ve.GetProperty(ical.ComponentPropertyDtStart)
	if startProp == nil {
		return out, errors.New("missing DTSTART")
	}
	if vs := startProp.ICalParameters[string(ical.ParameterValue)]; len(vs) > 0 && strings.EqualFold(vs[0], string(ical.ValueDataTypeDate)) {
		out.AllDay = true
		out.Start, err = time.Parse(DateValueLayout, startProp.Value)
	} else {
		out.Start, err = time.Parse(LocalDateTimeLayout, startProp.Value)
	}
	if err != nil {
		return out, fmt.Errorf("DTSTART: %w", err)
	}

	if endProp := ve.GetProperty(ical.ComponentPropertyDtEnd); endProp != nil {
		if out.End, err = time.Parse(LocalDateTimeLayout, endProp.Value); err != nil {
			return out, fmt.Errorf("DTEND: %w", err)
		}
	}

	// The library unescapes TEXT on the way in.
	out.Summary = textValue(ve, ical.ComponentPropertySummary)
	out.Description = textValue(ve, ical.ComponentPropertyDescription)
	out.Location = textValue(ve, ical.ComponentPropertyLocation)
	if p := ve.GetProperty(ical.ComponentPropertyStatus); p != nil {
		out.Status = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyTransp); p != nil {
		out.Transparency = p.Value
	}
	return out, nil
}

func textValue(ve *ical.VEvent, prop ical.ComponentProperty) string {
	p := ve.GetProperty(prop)
	if p == nil {
		return ""
	}
	return text.EscapeText(p.Value)
}
