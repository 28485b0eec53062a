package ics

import (
	"slices"

	appLog "onevents/internal/log"
	"onevents/internal/model"
)

// SortedSessions returns a copy of the event's sessions ordered by date.
// Sessions on the same date keep their record order. The event itself is
// not modified.
func SortedSessions(ev model.Event) []model.Session {
	sessions := slices.Clone(ev.Sessions)
	slices.SortStableFunc(sessions, func(a, b model.Session) int {
		return a.Date.Time().Compare(b.Date.Time())
	})
	return sessions
}

// ExpandEvent builds the entries of one event: a timed entry per session,
// or a single all-day entry when the event has no sessions.
func (b *Builder) ExpandEvent(ev model.Event) ([]Entry, error) {
	if !ev.HasSessions() {
		entry, err := b.BuildEntry(ev, nil, 0)
		if err != nil {
			return nil, err
		}
		return []Entry{entry}, nil
	}

	sessions := SortedSessions(ev)
	out := make([]Entry, 0, len(sessions))
	for i := range sessions {
		entry, err := b.BuildEntry(ev, &sessions[i], i+1)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	appLog.Debug("expanded sessions", "title", ev.Title, "count", len(out))
	return out, nil
}

// ExpandEvents expands every event in input order.
func (b *Builder) ExpandEvents(events []model.Event) ([]Entry, error) {
	out := make([]Entry, 0, len(events))
	for _, ev := range events {
		entries, err := b.ExpandEvent(ev)
		if err != nil {
			return nil, err
		}
		out = append(out, entries...)
	}
	return out, nil
}
