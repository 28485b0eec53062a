package ics

import (
	"time"

	"onevents/internal/model"
)

const (
	DefaultCalendarName        = "События 1С - OnEvents"
	DefaultCalendarDescription = "Календарь мероприятий 1С с сайта onevents.ru"
	DefaultTimezone            = "Europe/Moscow"
	DefaultRefreshInterval     = time.Hour
)

// PublicMeta is the header metadata of a subscribable calendar.
type PublicMeta struct {
	Name            string
	Description     string
	Timezone        string
	URL             string
	RefreshInterval time.Duration
}

func (m PublicMeta) withDefaults() PublicMeta {
	if m.Name == "" {
		m.Name = DefaultCalendarName
	}
	if m.Description == "" {
		m.Description = DefaultCalendarDescription
	}
	if m.Timezone == "" {
		m.Timezone = DefaultTimezone
	}
	if m.RefreshInterval <= 0 {
		m.RefreshInterval = DefaultRefreshInterval
	}
	return m
}

// Document is a complete calendar file. Public is false for single-event
// exports, which carry no name, URL or refresh metadata.
type Document struct {
	ProductID string
	Public    bool
	Meta      PublicMeta

	// Generated is the UTC build time, used for DTSTAMP and LAST-MODIFIED.
	Generated time.Time
	Entries   []Entry
}

// BuildSingleEventDocument builds the downloadable calendar of one event.
func (b *Builder) BuildSingleEventDocument(ev model.Event) (Document, error) {
	entries, err := b.ExpandEvent(ev)
	if err != nil {
		return Document{}, err
	}
	return Document{
		ProductID: b.productID(),
		Generated: b.now().UTC(),
		Entries:   entries,
	}, nil
}

// BuildPublicDocument builds a subscribable calendar from events, keeping
// their order.
func (b *Builder) BuildPublicDocument(events []model.Event, meta PublicMeta) (Document, error) {
	entries, err := b.ExpandEvents(events)
	if err != nil {
		return Document{}, err
	}
	return Document{
		ProductID: b.productID(),
		Public:    true,
		Meta:      meta.withDefaults(),
		Generated: b.now().UTC(),
		Entries:   entries,
	}, nil
}

func (b *Builder) productID() string {
	if b.ProductID == "" {
		return DefaultProductID
	}
	return b.ProductID
}
