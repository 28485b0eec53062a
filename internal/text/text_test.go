package text_test

import (
	"errors"
	"testing"
	"time"

	"onevents/internal/text"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "lone tag", in: "<br>", want: ""},
		{name: "wrapped", in: "<a>hello</a>", want: "hello"},
		{name: "lone backslash", in: `\`, want: `\\`},
		{name: "backslash next to tags", in: `<b>\</b>`, want: `\\`},
		{name: "comma and semicolon", in: "a,b;c", want: `a\,b\;c`},
		{name: "newline", in: "line1\nline2", want: `line1\nline2`},
		{name: "escaped comma is not double escaped", in: `x\,`, want: `x\\\,`},
		{name: "attributes", in: `<a href="https://x.ru">Регистрация</a>, сейчас`, want: `Регистрация\, сейчас`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := text.CleanText(tt.in); got != tt.want {
				t.Errorf("CleanText(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCleanTextIdempotentOnCleanText(t *testing.T) {
	for _, s := range []string{"", "hello", "Встреча в Москве", "plain words 123"} {
		once := text.CleanText(s)
		if twice := text.CleanText(once); twice != once {
			t.Errorf("CleanText not idempotent for %q: %q then %q", s, once, twice)
		}
	}
}

func TestToHHMMSS(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "22:00", want: "220000"},
		{in: "9", want: "090000"},
		{in: "9.30", want: "093000"},
		{in: "09:05", want: "090500"},
		{in: "18.3", want: "180300"},
		{in: " 10:00 ", want: "100000"},
		{in: "0", want: "000000"},
		{in: "", wantErr: true},
		{in: "24:00", wantErr: true},
		{in: "10:60", wantErr: true},
		{in: "99:99", wantErr: true},
		{in: "ten", wantErr: true},
		{in: "10:00:00", wantErr: true},
		{in: "100", wantErr: true},
		{in: "-1", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := text.ToHHMMSS(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ToHHMMSS(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if err != nil {
				if !errors.Is(err, text.ErrInvalidTime) {
					t.Errorf("ToHHMMSS(%q) error %v is not ErrInvalidTime", tt.in, err)
				}
				return
			}
			if got != tt.want {
				t.Errorf("ToHHMMSS(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormatDayMonth(t *testing.T) {
	d := time.Date(2025, time.September, 15, 0, 0, 0, 0, time.UTC)
	if got := text.FormatDayMonth(d); got != "15 сентября" {
		t.Errorf("FormatDayMonth() = %q, want %q", got, "15 сентября")
	}
	if got := text.FormatDate(d); got != "15 сентября 2025" {
		t.Errorf("FormatDate() = %q, want %q", got, "15 сентября 2025")
	}
}
