package eventdate

import (
	"fmt"
	"strings"
	"time"
)

// Locale names the language used for section headers.
type Locale string

const (
	LocaleIT Locale = "it"
	LocaleEN Locale = "en"
)

var weekdayNames = map[Locale][7]string{
	LocaleIT: {"domenica", "lunedì", "martedì", "mercoledì", "giovedì", "venerdì", "sabato"},
	LocaleEN: {"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"},
}

var monthNames = map[Locale][12]string{
	LocaleIT: {"gennaio", "febbraio", "marzo", "aprile", "maggio", "giugno",
		"luglio", "agosto", "settembre", "ottobre", "novembre", "dicembre"},
	LocaleEN: {"January", "February", "March", "April", "May", "June",
		"July", "August", "September", "October", "November", "December"},
}

// ParseLocale falls back to Italian for anything unknown.
func ParseLocale(s string) Locale {
	if Locale(strings.ToLower(s)) == LocaleEN {
		return LocaleEN
	}
	return LocaleIT
}

// FormatHeader renders a strict YYYY-MM-DD string as "sabato 27 dicembre".
// Malformed input is echoed back unchanged.
func FormatHeader(iso string, loc Locale) string {
	m := bareDateRe.FindStringSubmatch(strings.TrimSpace(iso))
	if m == nil {
		return iso
	}
	d, err := fromParts(iso, m[1], m[2], m[3])
	if err != nil {
		return iso
	}

	days, ok := weekdayNames[loc]
	if !ok {
		loc = LocaleIT
		days = weekdayNames[loc]
	}
	wd := d.Time().Weekday()
	return fmt.Sprintf("%s %d %s", days[wd], d.Day, monthNames[loc][d.Month-time.January])
}
