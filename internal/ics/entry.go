package ics

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"onevents/internal/model"
	"onevents/internal/text"
)

const (
	StatusConfirmed    = "CONFIRMED"
	TransparencyOpaque = "OPAQUE"

	// LocalDateTimeLayout is a floating DATE-TIME: no Z, no TZID.
	LocalDateTimeLayout = "20060102T150405"
	DateValueLayout     = "20060102"

	DefaultUIDDomain = "onevents.ru"
	DefaultProductID = "-//OnEvents//OnEvents Calendar//RU"
)

// Entry is one VEVENT. Summary, Description and Location hold the escaped
// TEXT form, exactly as it appears on the wire.
type Entry struct {
	UID string

	// Start is the date (AllDay) or the floating local date-time of the
	// entry. Its location is not meaningful.
	Start  time.Time
	End    time.Time
	AllDay bool

	Summary     string
	Description string
	Location    string

	Status       string
	Transparency string
}

// Builder turns events into entries and documents.
type Builder struct {
	ProductID string
	UIDDomain string
	UTM       UTM

	// Now stamps generated documents. time.Now when nil.
	Now func() time.Time
}

// NewBuilder returns a Builder with the site defaults.
func NewBuilder() *Builder {
	return &Builder{
		ProductID: DefaultProductID,
		UIDDomain: DefaultUIDDomain,
		UTM:       DefaultUTM(),
	}
}

func (b *Builder) now() time.Time {
	if b.Now != nil {
		return b.Now()
	}
	return time.Now()
}

func (b *Builder) uidDomain() string {
	if b.UIDDomain == "" {
		return DefaultUIDDomain
	}
	return b.UIDDomain
}

// BuildEntry renders one event as a single all-day entry, or one of its
// sessions as a timed entry when session is non-nil. index is the 1-based
// position of session among the event's date-sorted sessions.
func (b *Builder) BuildEntry(ev model.Event, session *model.Session, index int) (Entry, error) {
	if ev.Date.IsZero() {
		return Entry{}, fmt.Errorf("event %q: %w", ev.Title, model.ErrInvalidDate)
	}

	description := text.CleanText(ev.Description) +
		text.EscapeText("\n\nСсылка на регистрацию: "+b.UTM.Tag(ev.RegistrationURL))

	entry := Entry{
		UID:          Identity(ev, session, index) + "@" + b.uidDomain(),
		Summary:      text.CleanText(ev.Title),
		Location:     text.EscapeText(ev.Location()),
		Status:       StatusConfirmed,
		Transparency: TransparencyOpaque,
	}

	if session == nil {
		entry.AllDay = true
		entry.Start = ev.Date.Time()
		entry.Description = description
		return entry, nil
	}

	if session.Date.IsZero() {
		return Entry{}, fmt.Errorf("event %q session %d: %w", ev.Title, index, model.ErrInvalidDate)
	}
	start, err := sessionTime(session.Date, session.StartTime)
	if err != nil {
		return Entry{}, fmt.Errorf("event %q session %d start: %w", ev.Title, index, err)
	}
	end, err := sessionTime(session.Date, session.EndTime)
	if err != nil {
		return Entry{}, fmt.Errorf("event %q session %d end: %w", ev.Title, index, err)
	}

	entry.Start = start
	entry.End = end
	entry.Summary = fmt.Sprintf("%s (%s)", entry.Summary, text.FormatDayMonth(session.Date.Time()))
	entry.Description = description + text.EscapeText(fmt.Sprintf("\n\nВремя: %s-%s",
		strings.TrimSpace(session.StartTime.String()), strings.TrimSpace(session.EndTime.String())))
	return entry, nil
}

func sessionTime(d model.Date, c model.ClockTime) (time.Time, error) {
	hhmmss, err := text.ToHHMMSS(c.String())
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(LocalDateTimeLayout, d.Time().Format(DateValueLayout)+"T"+hhmmss)
	if err != nil {
		return time.Time{}, errors.Join(text.ErrInvalidTime, err)
	}
	return t, nil
}
