package ics_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"onevents/internal/ics"
	"onevents/internal/model"
	"onevents/internal/text"
)

func sampleEvent() model.Event {
	return model.Event{
		Title:           "Конференция <b>1С</b>",
		Date:            model.MustDate("2025-09-15"),
		City:            "Москва",
		Address:         "ул. Тверская, 1",
		Description:     "<p>Доклады; кофе</p>",
		RegistrationURL: "https://x.ru/r",
		Icon:            "conf.png",
	}
}

func TestUTMTag(t *testing.T) {
	u := ics.DefaultUTM()
	const params = "utm_source=onevents.ru&utm_medium=website&utm_campaign=news&utm_content=link"
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "https://x.ru/r", want: "https://x.ru/r?" + params},
		{name: "query", in: "https://x.ru/r?id=7", want: "https://x.ru/r?id=7&" + params},
		{name: "fragment", in: "https://x.ru/r#form", want: "https://x.ru/r?" + params + "#form"},
		{name: "already tagged", in: "https://x.ru/r?utm_source=vk", want: "https://x.ru/r?utm_source=vk"},
		{name: "empty", in: "", want: ""},
		{name: "unparsable", in: "http://[::1", want: "http://[::1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := u.Tag(tt.in)
			if got != tt.want {
				t.Errorf("Tag(%q) = %q, want %q", tt.in, got, tt.want)
			}
			if again := u.Tag(got); again != got {
				t.Errorf("Tag not idempotent: %q then %q", got, again)
			}
		})
	}
}

func TestIdentity(t *testing.T) {
	ev := sampleEvent()
	a := ics.Identity(ev, nil, 0)
	if a != ics.Identity(ev, nil, 0) {
		t.Fatal("Identity is not stable across calls")
	}
	if len(a) != 32 || strings.ToLower(a) != a {
		t.Errorf("Identity = %q, want 32 lowercase hex chars", a)
	}

	variants := map[string]func(*model.Event){
		"title":   func(e *model.Event) { e.Title += "!" },
		"date":    func(e *model.Event) { e.Date = model.MustDate("2025-09-16") },
		"city":    func(e *model.Event) { e.City = "Казань" },
		"address": func(e *model.Event) { e.Address = "" },
		"url":     func(e *model.Event) { e.RegistrationURL = "https://x.ru/other" },
	}
	for name, mutate := range variants {
		e := sampleEvent()
		mutate(&e)
		if ics.Identity(e, nil, 0) == a {
			t.Errorf("changing %s did not change the identity", name)
		}
	}

	s := model.Session{Date: model.MustDate("2025-09-15"), StartTime: "10:00", EndTime: "12:00"}
	first := ics.Identity(ev, &s, 1)
	if first == a {
		t.Errorf("session identity equals the event identity %q", a)
	}
	if first != ics.Identity(ev, &s, 1) {
		t.Fatal("session Identity is not stable across calls")
	}

	sessionVariants := []struct {
		name   string
		mutate func(*model.Session)
		index  int
	}{
		{name: "session date", mutate: func(s *model.Session) { s.Date = model.MustDate("2025-09-16") }, index: 1},
		{name: "start_time", mutate: func(s *model.Session) { s.StartTime = "10:30" }, index: 1},
		{name: "end_time", mutate: func(s *model.Session) { s.EndTime = "13:00" }, index: 1},
		{name: "index", mutate: func(*model.Session) {}, index: 2},
	}
	for _, tt := range sessionVariants {
		v := s
		tt.mutate(&v)
		if ics.Identity(ev, &v, tt.index) == first {
			t.Errorf("changing %s did not change the session identity", tt.name)
		}
	}
}

func TestBuildEntryAllDay(t *testing.T) {
	b := ics.NewBuilder()
	ev := sampleEvent()
	got, err := b.BuildEntry(ev, nil, 0)
	if err != nil {
		t.Fatalf("BuildEntry: %v", err)
	}

	if !got.AllDay || !got.End.IsZero() {
		t.Errorf("AllDay = %v, End = %v; want all-day entry without end", got.AllDay, got.End)
	}
	if want := time.Date(2025, 9, 15, 0, 0, 0, 0, time.UTC); !got.Start.Equal(want) {
		t.Errorf("Start = %v, want %v", got.Start, want)
	}
	if got.Summary != "Конференция 1С" {
		t.Errorf("Summary = %q", got.Summary)
	}
	if want := `Москва\, ул. Тверская\, 1`; got.Location != want {
		t.Errorf("Location = %q, want %q", got.Location, want)
	}
	wantDesc := `Доклады\; кофе\n\nСсылка на регистрацию: https://x.ru/r?utm_source=onevents.ru&utm_medium=website&utm_campaign=news&utm_content=link`
	if got.Description != wantDesc {
		t.Errorf("Description = %q, want %q", got.Description, wantDesc)
	}
	if !strings.HasSuffix(got.UID, "@onevents.ru") || got.UID != ics.Identity(ev, nil, 0)+"@onevents.ru" {
		t.Errorf("UID = %q", got.UID)
	}
	if got.Status != "CONFIRMED" || got.Transparency != "OPAQUE" {
		t.Errorf("Status/Transparency = %q/%q", got.Status, got.Transparency)
	}
}

func TestBuildEntryTimed(t *testing.T) {
	b := ics.NewBuilder()
	ev := sampleEvent()
	ev.Address = ""
	s := model.Session{Date: model.MustDate("2025-09-16"), StartTime: "9.30", EndTime: "18"}

	got, err := b.BuildEntry(ev, &s, 2)
	if err != nil {
		t.Fatalf("BuildEntry: %v", err)
	}
	if got.AllDay {
		t.Error("session entry must be timed")
	}
	if want := time.Date(2025, 9, 16, 9, 30, 0, 0, time.UTC); !got.Start.Equal(want) {
		t.Errorf("Start = %v, want %v", got.Start, want)
	}
	if want := time.Date(2025, 9, 16, 18, 0, 0, 0, time.UTC); !got.End.Equal(want) {
		t.Errorf("End = %v, want %v", got.End, want)
	}
	if want := "Конференция 1С (16 сентября)"; got.Summary != want {
		t.Errorf("Summary = %q, want %q", got.Summary, want)
	}
	if !strings.HasSuffix(got.Description, `\n\nВремя: 9.30-18`) {
		t.Errorf("Description = %q, want time range suffix", got.Description)
	}
	if got.Location != "Москва" {
		t.Errorf("Location = %q, want city only", got.Location)
	}
	if got.UID != ics.Identity(ev, &s, 2)+"@onevents.ru" {
		t.Errorf("UID = %q", got.UID)
	}
}

func TestBuildEntryInvalidTime(t *testing.T) {
	b := ics.NewBuilder()
	s := model.Session{Date: model.MustDate("2025-09-16"), StartTime: "99:99", EndTime: "18"}
	_, err := b.BuildEntry(sampleEvent(), &s, 1)
	if !errors.Is(err, text.ErrInvalidTime) {
		t.Fatalf("BuildEntry error = %v, want ErrInvalidTime", err)
	}
}

func TestBuildEntryDoesNotMutateEvent(t *testing.T) {
	b := ics.NewBuilder()
	ev := sampleEvent()
	ev.Sessions = []model.Session{
		{Date: model.MustDate("2025-09-17"), StartTime: "10", EndTime: "11"},
		{Date: model.MustDate("2025-09-16"), StartTime: "10", EndTime: "11"},
	}
	before := ev.Sessions[0]
	if _, err := b.BuildSingleEventDocument(ev); err != nil {
		t.Fatalf("BuildSingleEventDocument: %v", err)
	}
	if ev.Sessions[0] != before {
		t.Errorf("sessions reordered in place: %v", ev.Sessions)
	}
}
