// Package eventdate normalizes the date strings attached to events.
//
// Events arrive with heterogeneous encodings: ISO date-times, space separated
// date-times, bare dates and a legacy "31 DIC | 23:00" form that carries no
// year. Everything is reduced to a calendar Date with day granularity.
package eventdate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	apperrors "pierre/internal/errors"
)

// Date is a calendar day without time of day or zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

var (
	isoDateTimeRe   = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})T\d{2}:\d{2}(:\d{2})?`)
	spaceDateTimeRe = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2}) \d{2}:\d{2}(:\d{2})?`)
	bareDateRe      = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)
	legacyRe        = regexp.MustCompile(`^(\d{1,2})\s+([A-Za-z]{3})(\s*\|\s*\d{1,2}:\d{2})?$`)
)

// legacyMonths maps the three letter Italian abbreviations used by venues.
var legacyMonths = map[string]time.Month{
	"GEN": time.January,
	"FEB": time.February,
	"MAR": time.March,
	"APR": time.April,
	"MAG": time.May,
	"GIU": time.June,
	"LUG": time.July,
	"AGO": time.August,
	"SET": time.September,
	"OTT": time.October,
	"NOV": time.November,
	"DIC": time.December,
}

// FromTime truncates t to its calendar day in t's location.
func FromTime(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Key renders the date as YYYY-MM-DD.
func (d Date) Key() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func (d Date) String() string { return d.Key() }

// Time returns midnight UTC of the day.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// Compare returns -1, 0 or +1.
func (d Date) Compare(o Date) int {
	switch {
	case d.Year != o.Year:
		return sign(d.Year - o.Year)
	case d.Month != o.Month:
		return sign(int(d.Month) - int(o.Month))
	default:
		return sign(d.Day - o.Day)
	}
}

func (d Date) Before(o Date) bool { return d.Compare(o) < 0 }

func sign(v int) int {
	switch {
	case v < 0:
		return -1
	case v > 0:
		return 1
	}
	return 0
}

// Parse normalizes raw into a Date. now supplies the reference year for the
// legacy form, which carries no year of its own.
func Parse(raw string, now time.Time) (Date, error) {
	s := strings.TrimSpace(raw)

	for _, re := range []*regexp.Regexp{isoDateTimeRe, spaceDateTimeRe, bareDateRe} {
		if m := re.FindStringSubmatch(s); m != nil {
			return fromParts(raw, m[1], m[2], m[3])
		}
	}

	if m := legacyRe.FindStringSubmatch(s); m != nil {
		return parseLegacy(raw, m[1], m[2], now)
	}

	return Date{}, apperrors.New(apperrors.KindParse, "unrecognized event date %q", raw)
}

func fromParts(raw, ys, ms, ds string) (Date, error) {
	y, _ := strconv.Atoi(ys)
	m, _ := strconv.Atoi(ms)
	d, _ := strconv.Atoi(ds)
	if !valid(y, time.Month(m), d) {
		return Date{}, apperrors.New(apperrors.KindParse, "invalid calendar date %q", raw)
	}
	return Date{Year: y, Month: time.Month(m), Day: d}, nil
}

func parseLegacy(raw, ds, mon string, now time.Time) (Date, error) {
	month, ok := legacyMonths[strings.ToUpper(mon)]
	if !ok {
		return Date{}, apperrors.New(apperrors.KindParse, "unknown month abbreviation in %q", raw)
	}
	d, _ := strconv.Atoi(ds)

	year := now.Year()
	if month < now.Month() {
		year++
	}
	if !valid(year, month, d) {
		return Date{}, apperrors.New(apperrors.KindParse, "invalid calendar date %q", raw)
	}
	return Date{Year: year, Month: month, Day: d}, nil
}

// valid rejects dates that time.Date would silently normalize, e.g. 31 Feb.
func valid(y int, m time.Month, d int) bool {
	if m < time.January || m > time.December || d < 1 {
		return false
	}
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return t.Day() == d && t.Month() == m
}

// IsInFuture reports whether raw falls on today or later. Unparseable input
// yields false together with the parse error so the caller can report it.
func IsInFuture(raw string, now time.Time) (bool, error) {
	d, err := Parse(raw, now)
	if err != nil {
		return false, err
	}
	return !d.Before(FromTime(now)), nil
}
