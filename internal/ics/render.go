package ics

import (
	"fmt"
	"io"
	"math"
	"time"

	ical "github.com/arran4/golang-ical"
)

// propertyXOriginalURL mirrors URL for clients that only read the X- form.
const propertyXOriginalURL ical.Property = "X-ORIGINAL-URL"

// Calendar maps the document onto a golang-ical calendar.
//
// golang-ical escapes TEXT values itself, so the already escaped entry
// fields are unescaped with ical.FromText before they are handed over. The
// serialized form then carries exactly the escaping of text.CleanText.
func (d Document) Calendar() *ical.Calendar {
	cal := ical.NewCalendar()
	cal.SetProductId(d.ProductID)
	cal.SetCalscale("GREGORIAN")
	cal.SetMethod(ical.MethodPublish)

	if d.Public {
		m := d.Meta
		ttl := formatDuration(m.RefreshInterval)
		cal.SetName(m.Name)
		cal.SetDescription(m.Description)
		cal.SetXWRCalDesc(m.Description)
		cal.SetXWRTimezone(m.Timezone)
		cal.SetRefreshInterval(ttl)
		cal.SetXPublishedTTL(ttl)
		cal.SetLastModified(d.Generated)
		if m.URL != "" {
			cal.SetUrl(m.URL)
			cal.CalendarProperties = append(cal.CalendarProperties, ical.CalendarProperty{
				BaseProperty: ical.BaseProperty{
					IANAToken:      string(propertyXOriginalURL),
					ICalParameters: map[string][]string{},
					Value:          m.URL,
				},
			})
		}
	}

	for _, e := range d.Entries {
		ev := cal.AddEvent(e.UID)
		ev.SetDtStampTime(d.Generated)
		if e.AllDay {
			ev.SetAllDayStartAt(e.Start)
		} else {
			ev.SetProperty(ical.ComponentPropertyDtStart, e.Start.Format(LocalDateTimeLayout))
			ev.SetProperty(ical.ComponentPropertyDtEnd, e.End.Format(LocalDateTimeLayout))
		}
		ev.SetSummary(ical.FromText(e.Summary))
		ev.SetDescription(ical.FromText(e.Description))
		ev.SetLocation(ical.FromText(e.Location))
		ev.SetStatus(ical.ObjectStatus(e.Status))
		ev.SetTimeTransparency(ical.TimeTransparency(e.Transparency))
	}
	return cal
}

// Serialize renders the document as CRLF-terminated iCalendar text with
// lines folded at 75 octets.
func (d Document) Serialize() string {
	return d.Calendar().Serialize()
}

// WriteTo writes the serialized document to w.
func (d Document) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	if err := d.Calendar().SerializeTo(cw); err != nil {
		return cw.n, fmt.Errorf("serialize calendar: %w", err)
	}
	return cw.n, cw.err
}

type countingWriter struct {
	w   io.Writer
	n   int64
	err error
}

func (c *countingWriter) Write(p []byte) (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	n, err := c.w.Write(p)
	c.n += int64(n)
	c.err = err
	return n, err
}

// formatDuration renders d as an RFC 5545 DURATION in whole hours or
// minutes ("PT1H", "PT90M").
func formatDuration(d time.Duration) string {
	if d <= 0 {
		d = DefaultRefreshInterval
	}
	if d%time.Hour == 0 {
		return fmt.Sprintf("PT%dH", int64(d/time.Hour))
	}
	return fmt.Sprintf("PT%dM", int64(math.Ceil(d.Minutes())))
}
