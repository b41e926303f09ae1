// Package discovery turns a fetched event list into what a user browses:
// events on or after an anchor date, narrowed by a free-text query and
// grouped into date sections.
package discovery

import (
	"sort"
	"strings"
	"time"

	"pierre/internal/eventdate"
	"pierre/internal/fuzzy"
	"pierre/internal/models"
)

// Rejection records an event left out because its date could not be read.
type Rejection struct {
	Event models.Event
	Err   error
}

// Result is the visible set plus the events excluded for bad dates.
type Result struct {
	Events   []models.Event
	Rejected []Rejection
}

// Bucket is one date section. Header is filled by callers that render it.
type Bucket struct {
	Date   eventdate.Date
	Header string
	Events []models.Event
}

type dated struct {
	event models.Event
	date  eventdate.Date
}

// Filter keeps events dated on or after anchor (today when nil) whose title,
// venue or description fuzzily match query. A blank query matches everything.
// Original order is preserved.
func Filter(events []models.Event, query string, anchor *eventdate.Date, now time.Time) Result {
	kept, rejected := filter(events, query, anchor, now)
	res := Result{Events: make([]models.Event, 0, len(kept)), Rejected: rejected}
	for _, d := range kept {
		res.Events = append(res.Events, d.event)
	}
	return res
}

func filter(events []models.Event, query string, anchor *eventdate.Date, now time.Time) ([]dated, []Rejection) {
	from := eventdate.FromTime(now)
	if anchor != nil {
		from = *anchor
	}
	q := strings.TrimSpace(query)

	var kept []dated
	var rejected []Rejection
	for _, e := range events {
		d, err := eventdate.Parse(e.Date, now)
		if err != nil {
			rejected = append(rejected, Rejection{Event: e, Err: err})
			continue
		}
		if d.Before(from) {
			continue
		}
		if q != "" && !fuzzy.MatchAny(q, e.Title, e.Venue, e.DescriptionText()) {
			continue
		}
		kept = append(kept, dated{event: e, date: d})
	}
	return kept, rejected
}

// GroupByDate buckets the events Filter would keep for a blank query by
// their normalized date, ascending. Events keep their relative order inside
// a bucket.
func GroupByDate(events []models.Event, anchor *eventdate.Date, now time.Time) ([]Bucket, []Rejection) {
	return GroupMatching(events, "", anchor, now)
}

// GroupMatching is GroupByDate restricted to events matching query.
func GroupMatching(events []models.Event, query string, anchor *eventdate.Date, now time.Time) ([]Bucket, []Rejection) {
	kept, rejected := filter(events, query, anchor, now)

	index := make(map[string]int)
	var buckets []Bucket
	for _, d := range kept {
		key := d.date.Key()
		i, ok := index[key]
		if !ok {
			i = len(buckets)
			index[key] = i
			buckets = append(buckets, Bucket{Date: d.date})
		}
		buckets[i].Events = append(buckets[i].Events, d.event)
	}

	sort.SliceStable(buckets, func(i, j int) bool {
		return buckets[i].Date.Before(buckets[j].Date)
	})
	return buckets, rejected
}

// WithHeaders fills each bucket's Header in the given locale.
func WithHeaders(buckets []Bucket, loc eventdate.Locale) []Bucket {
	for i := range buckets {
		buckets[i].Header = eventdate.FormatHeader(buckets[i].Date.Key(), loc)
	}
	return buckets
}
