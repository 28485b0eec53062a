package build_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"onevents/internal/build"
	"onevents/internal/config"
	"onevents/internal/events"
	"onevents/internal/metrics"
)

const page = `<html><body><ul>{{ subscriptions }}</ul>{{ events }}<footer>{{ builddate }}</footer></body></html>`

const conference = `title: Конференция 1С
date: 2025-09-15
city: Москва
address: ул. Тверская, 1
description: <p>Доклады и кофе</p>
registration_url: https://conf.example.ru/r
icon: conf.png
`

const school = `title: Школа разработчика
date: 2025-10-02
city: Казань
address: IT-парк
description: Три дня практики
registration_url: https://school.example.ru/reg
icon: school.png
sessions:
  - date: 2025-10-03
    start_time: "10:00"
    end_time: "17:00"
  - date: 2025-10-02
    start_time: "9.30"
    end_time: 18
`

const past = `title: Прошедший семинар
date: 2025-08-01
city: Москва
address: ""
description: ""
registration_url: ""
icon: past.png
`

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func newConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()

	writeFile(t, filepath.Join(root, "events", "conference.yml"), conference)
	writeFile(t, filepath.Join(root, "events", "school.yml"), school)
	writeFile(t, filepath.Join(root, "events", "past.yml"), past)
	writeFile(t, filepath.Join(root, "web", "index.html"), page)
	writeFile(t, filepath.Join(root, "img", "logo.svg"), "<svg/>")

	cfg := config.DefaultConfig()
	cfg.EventsDir = filepath.Join(root, "events")
	cfg.Template = filepath.Join(root, "web", "index.html")
	cfg.OutputDir = filepath.Join(root, "site")
	cfg.Assets = []string{filepath.Join(root, "img"), filepath.Join(root, "icons")}
	cfg.MetricsFile = filepath.Join(root, "onevents.prom")
	return cfg
}

func fixedNow() time.Time {
	msk := time.FixedZone("MSK", 3*60*60)
	return time.Date(2025, 9, 1, 12, 30, 0, 0, msk)
}

func TestRun(t *testing.T) {
	cfg := newConfig(t)
	rec := metrics.NewRecorder()
	p, err := build.New(cfg, rec)
	if err != nil {
		t.Fatal(err)
	}
	p.Now = fixedNow

	rep, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.Events != 3 || rep.Upcoming != 2 {
		t.Errorf("events=%d upcoming=%d, want 3 and 2", rep.Events, rep.Upcoming)
	}
	// two event files, all.ics and one per city
	if rep.Documents != 5 {
		t.Errorf("documents = %d, want 5", rep.Documents)
	}
	if len(rep.Records) != 3 {
		t.Errorf("records = %d, want 3", len(rep.Records))
	}

	for _, rel := range []string{
		"index.html",
		"img/logo.svg",
		"calendar/all.ics",
		"calendar/2025-09-15-конференция-1с.ics",
	} {
		if _, err := os.Stat(filepath.Join(cfg.OutputDir, filepath.FromSlash(rel))); err != nil {
			t.Errorf("missing %s: %v", rel, err)
		}
	}

	index, err := os.ReadFile(filepath.Join(cfg.OutputDir, "index.html"))
	if err != nil {
		t.Fatal(err)
	}
	html := string(index)
	if strings.Contains(html, "{{ events }}") || strings.Contains(html, "{{ subscriptions }}") {
		t.Error("placeholders left in page")
	}
	if strings.Contains(html, "Прошедший семинар") {
		t.Error("past event rendered")
	}
	if !strings.Contains(html, "Школа разработчика") {
		t.Error("upcoming event missing from page")
	}

	all, err := os.ReadFile(filepath.Join(cfg.OutputDir, "calendar", "all.ics"))
	if err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(string(all), "BEGIN:VEVENT"); n != 4 {
		t.Errorf("all.ics has %d entries, want 4", n)
	}

	if _, err := os.Stat(cfg.MetricsFile); err != nil {
		t.Errorf("metrics file not written: %v", err)
	}

	// A rebuild replaces the tree and leaves no staging or backup dirs.
	if _, err := p.Run(context.Background()); err != nil {
		t.Fatalf("second Run: %v", err)
	}
	entries, err := os.ReadDir(filepath.Dir(cfg.OutputDir))
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.Contains(e.Name(), "staging") || strings.HasSuffix(e.Name(), ".old") {
			t.Errorf("leftover %s after rebuild", e.Name())
		}
	}
}

func TestRunFailureKeepsPreviousOutput(t *testing.T) {
	cfg := newConfig(t)
	p, err := build.New(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	p.Now = fixedNow
	if _, err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	noLink := strings.Replace(conference, "registration_url: https://conf.example.ru/r\n", "", 1)
	writeFile(t, filepath.Join(cfg.EventsDir, "broken.yml"), noLink)
	if _, err := p.Run(context.Background()); !errors.Is(err, events.ErrMissingField) {
		t.Fatalf("Run with a record lacking registration_url = %v, want ErrMissingField", err)
	}
	if _, err := os.Stat(filepath.Join(cfg.OutputDir, "calendar", "all.ics")); err != nil {
		t.Errorf("previous output lost: %v", err)
	}
}

func TestRunCancelled(t *testing.T) {
	cfg := newConfig(t)
	p, err := build.New(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Run(ctx); err == nil {
		t.Fatal("Run succeeded with a cancelled context")
	}
	if _, err := os.Stat(cfg.OutputDir); !os.IsNotExist(err) {
		t.Errorf("output dir created by cancelled run: %v", err)
	}
}

func TestNewRejectsBadTimezone(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Timezone = "Mars/Olympus"
	if _, err := build.New(cfg, nil); err == nil {
		t.Fatal("New accepted an unknown timezone")
	}
}
