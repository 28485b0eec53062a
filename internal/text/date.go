package text

import (
	"time"

	"github.com/goodsign/monday"
)

const locale = monday.LocaleRuRU

// FormatDayMonth renders "15 сентября". monday switches to the genitive
// month form when the day precedes the month.
func FormatDayMonth(t time.Time) string {
	return monday.Format(t, "2 January", locale)
}

// FormatDate renders "15 сентября 2025".
func FormatDate(t time.Time) string {
	return monday.Format(t, "2 January 2006", locale)
}
