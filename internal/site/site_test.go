package site_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"onevents/internal/ics"
	"onevents/internal/model"
	"onevents/internal/site"
)

func TestRender(t *testing.T) {
	events := []model.Event{{
		Title:           "Форум <1С>",
		Date:            model.MustDate("2025-09-15"),
		City:            "Москва",
		Address:         "ул. Тверская, 1",
		Description:     "Доклады и <b>кофе</b>",
		RegistrationURL: "https://x.ru/r",
		Icon:            "forum.png",
	}}
	records := []model.PublicationRecord{
		{Name: "Все события", URL: "https://onevents.ru/calendar/all.ics"},
		{Name: "Москва", URL: "https://onevents.ru/calendar/city/moscow.ics", CityTag: "Москва"},
	}

	out, err := site.Render(site.Page{
		Template:  "<main>{{ events }}</main><aside>{{ subscriptions }}</aside><footer>{{ builddate }}</footer>",
		Events:    events,
		Records:   records,
		BuildDate: time.Date(2025, 9, 1, 10, 0, 0, 0, time.UTC),
		UTM:       ics.DefaultUTM(),
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	for _, want := range []string{
		`data-city="Москва"`,
		`Форум &lt;1С&gt;`,
		`<time itemprop="startDate" datetime="2025-09-15">15 сентября 2025</time>`,
		`Москва, ул. Тверская, 1`,
		`Доклады и <b>кофе</b>`,
		`src="img/forum.png"`,
		`href="https://x.ru/r?utm_source=onevents.ru&amp;utm_medium=website`,
		`href="webcal://onevents.ru/calendar/all.ics"`,
		`href="https://onevents.ru/calendar/city/moscow.ics"`,
		`<li class="all-events">`,
		`<footer>1 сентября 2025</footer>`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered page lacks %q:\n%s", want, out)
		}
	}
	for _, placeholder := range []string{site.EventsPlaceholder, site.SubscriptionsPlaceholder, site.BuildDatePlaceholder} {
		if strings.Contains(out, placeholder) {
			t.Errorf("placeholder %s left in output", placeholder)
		}
	}
}

func TestWebcal(t *testing.T) {
	tests := map[string]string{
		"https://onevents.ru/calendar/all.ics": "webcal://onevents.ru/calendar/all.ics",
		"http://localhost:8080/all.ics":        "webcal://localhost:8080/all.ics",
		"/calendar/all.ics":                    "/calendar/all.ics",
	}
	for in, want := range tests {
		if got := site.Webcal(in); got != want {
			t.Errorf("Webcal(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCopyAssets(t *testing.T) {
	src := t.TempDir()
	img := filepath.Join(src, "img")
	if err := os.MkdirAll(filepath.Join(img, "logos"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(img, "logos", "a.png"), []byte("png"), 0o644); err != nil {
		t.Fatal(err)
	}

	dst := t.TempDir()
	if err := site.CopyAssets(dst, img, filepath.Join(src, "icons")); err != nil {
		t.Fatalf("CopyAssets: %v", err)
	}
	got, err := os.ReadFile(filepath.Join(dst, "img", "logos", "a.png"))
	if err != nil || string(got) != "png" {
		t.Errorf("copied asset = %q, %v", got, err)
	}
	if _, err := os.Stat(filepath.Join(dst, "icons")); !os.IsNotExist(err) {
		t.Errorf("missing source dir produced output: %v", err)
	}
}
