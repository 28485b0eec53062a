// Package text holds the string normalizers shared by the calendar and HTML
// renderers: markup stripping, iCalendar TEXT escaping, clock time
// normalization, slugs and Russian date formatting.
package text

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrInvalidTime is returned by ToHHMMSS for values that are not a clock time.
var ErrInvalidTime = errors.New("invalid time")

var tagPattern = regexp.MustCompile(`<[^>]+>`)

// Backslash goes first so the backslashes inserted by the later rules are
// not escaped again. A Replacer scans once, which gives the same result.
var textEscaper = strings.NewReplacer(
	`\`, `\\`,
	`,`, `\,`,
	`;`, `\;`,
	"\n", `\n`,
)

// StripTags removes every <...> markup tag.
func StripTags(s string) string {
	return tagPattern.ReplaceAllString(s, "")
}

// EscapeText escapes s for an iCalendar TEXT value.
func EscapeText(s string) string {
	return textEscaper.Replace(s)
}

// CleanText strips markup and escapes the rest for an iCalendar TEXT value.
func CleanText(s string) string {
	return EscapeText(StripTags(s))
}

// ToHHMMSS normalizes "H", "HH", "H:MM", "HH:MM" or "HH.MM" into the
// six-digit HHMMSS form used in iCalendar date-times. Seconds are always 00.
func ToHHMMSS(v string) (string, error) {
	s := strings.ReplaceAll(strings.TrimSpace(v), ".", ":")
	hour, minute, found := strings.Cut(s, ":")
	if !found {
		minute = "00"
	}

	h, err := clockField(hour, 23)
	if err != nil {
		return "", fmt.Errorf("%w %q: hour %v", ErrInvalidTime, v, err)
	}
	m, err := clockField(minute, 59)
	if err != nil {
		return "", fmt.Errorf("%w %q: minute %v", ErrInvalidTime, v, err)
	}
	return fmt.Sprintf("%02d%02d00", h, m), nil
}

func clockField(s string, max int) (int, error) {
	if len(s) == 0 || len(s) > 2 {
		return 0, fmt.Errorf("must be one or two digits, got %q", s)
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("must be decimal, got %q", s)
		}
	}
	n, _ := strconv.Atoi(s)
	if n > max {
		return 0, fmt.Errorf("%d out of range 0-%d", n, max)
	}
	return n, nil
}
