// Package site renders the static listing page.
package site

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"onevents/internal/ics"
	"onevents/internal/model"
	"onevents/internal/publish"
	"onevents/internal/text"
)

// Placeholders substituted into the page template.
const (
	EventsPlaceholder        = "{{ events }}"
	SubscriptionsPlaceholder = "{{ subscriptions }}"
	BuildDatePlaceholder     = "{{ builddate }}"
)

//go:embed templates/*.html
var templateFS embed.FS

var fragments = template.Must(template.New("").Funcs(template.FuncMap{
	"safeHTML": func(s string) template.HTML { return template.HTML(s) },
}).ParseFS(templateFS, "templates/*.html"))

// Card is the view of one upcoming event.
type Card struct {
	Title           string
	Date            string
	DisplayDate     string
	City            string
	Location        string
	Description     string
	Icon            string
	RegistrationURL string
	CalendarFile    string
	CalendarPath    string
}

// Subscription is the view of one aggregate calendar. WebcalURL is typed
// as trusted because html/template rejects the webcal scheme.
type Subscription struct {
	Name       string
	URL        string
	WebcalURL  template.URL
	City       string
	IsAllEvent bool
}

// NewCard prepares ev for the events fragment.
func NewCard(ev model.Event, utm ics.UTM) Card {
	return Card{
		Title:           ev.Title,
		Date:            ev.Date.String(),
		DisplayDate:     text.FormatDate(ev.Date.Time()),
		City:            strings.TrimSpace(ev.City),
		Location:        ev.Location(),
		Description:     ev.Description,
		Icon:            ev.Icon,
		RegistrationURL: utm.Tag(ev.RegistrationURL),
		CalendarFile:    publish.EventFileName(ev),
		CalendarPath:    publish.EventPath(ev),
	}
}

// NewSubscription prepares r for the subscriptions fragment.
func NewSubscription(r model.PublicationRecord) Subscription {
	return Subscription{
		Name:       r.Name,
		URL:        r.URL,
		WebcalURL:  template.URL(Webcal(r.URL)),
		City:       r.CityTag,
		IsAllEvent: r.CityTag == "",
	}
}

// Webcal rewrites an http(s) URL to the webcal scheme calendar apps
// subscribe to. Other URLs are returned unchanged.
func Webcal(u string) string {
	for _, scheme := range []string{"https://", "http://"} {
		if rest, ok := strings.CutPrefix(u, scheme); ok {
			return "webcal://" + rest
		}
	}
	return u
}

// RenderEvents renders the card list.
func RenderEvents(events []model.Event, utm ics.UTM) (string, error) {
	cards := make([]Card, 0, len(events))
	for _, ev := range events {
		cards = append(cards, NewCard(ev, utm))
	}
	return execute("events.html", cards)
}

// RenderSubscriptions renders the subscription list.
func RenderSubscriptions(records []model.PublicationRecord) (string, error) {
	subs := make([]Subscription, 0, len(records))
	for _, r := range records {
		subs = append(subs, NewSubscription(r))
	}
	return execute("subscriptions.html", subs)
}

func execute(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := fragments.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

// Page is the input of the listing page.
type Page struct {
	Template  string
	Events    []model.Event
	Records   []model.PublicationRecord
	BuildDate time.Time
	UTM       ics.UTM
}

// Render fills the page template. Placeholders missing from the template
// are skipped.
func Render(p Page) (string, error) {
	events, err := RenderEvents(p.Events, p.UTM)
	if err != nil {
		return "", err
	}
	subs, err := RenderSubscriptions(p.Records)
	if err != nil {
		return "", err
	}
	r := strings.NewReplacer(
		EventsPlaceholder, events,
		SubscriptionsPlaceholder, subs,
		BuildDatePlaceholder, text.FormatDate(p.BuildDate),
	)
	return r.Replace(p.Template), nil
}
