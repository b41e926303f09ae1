package client

import (
	"context"
	"time"

	"pierre/internal/discovery"
	"pierre/internal/eventdate"
	"pierre/internal/logger"
	"pierre/internal/models"
)

// EventFeed keeps the fetched event list and answers browse queries from it.
type EventFeed struct {
	api     API
	catalog *discovery.Catalog
	guard   Guard
	now     func() time.Time
}

func (c *Client) NewEventFeed() *EventFeed {
	return &EventFeed{
		api:     c.api,
		catalog: discovery.NewCatalog(nil),
		now:     c.now,
	}
}

// Refresh refetches and swaps the whole list. A failed fetch keeps the
// previous list. A refresh overtaken by a newer one is discarded.
func (f *EventFeed) Refresh(ctx context.Context) error {
	ticket := f.guard.Begin()
	events, err := f.api.ListEvents(ctx)
	if err != nil {
		logger.WithContext(ctx).Warn("Failed to refresh events", "error", err)
		return err
	}
	if !ticket.Apply(func() { f.catalog.Replace(events) }) {
		logger.WithContext(ctx).Debug("Discarded stale event refresh")
	}
	return nil
}

// Close discards refreshes still in flight.
func (f *EventFeed) Close() {
	f.guard.Invalidate()
}

// Visible is the browse list for query and anchor. Events with unreadable
// dates are logged and left out.
func (f *EventFeed) Visible(ctx context.Context, query string, anchor *eventdate.Date) []models.Event {
	res := f.catalog.Filter(query, anchor, f.now())
	logRejected(ctx, res.Rejected)
	return res.Events
}

// Sections groups visible events by date with headers in loc.
func (f *EventFeed) Sections(ctx context.Context, query string, anchor *eventdate.Date, loc eventdate.Locale) []discovery.Bucket {
	buckets, rejected := discovery.GroupMatching(f.catalog.Snapshot(), query, anchor, f.now())
	logRejected(ctx, rejected)
	return discovery.WithHeaders(buckets, loc)
}

// Event returns a cached event by id.
func (f *EventFeed) Event(id string) (models.Event, bool) {
	for _, e := range f.catalog.Snapshot() {
		if e.ID.String() == id {
			return e, true
		}
	}
	return models.Event{}, false
}

func logRejected(ctx context.Context, rejected []discovery.Rejection) {
	for _, r := range rejected {
		logger.WithContext(ctx).Warn("Skipping event with unreadable date",
			"event_id", r.Event.ID,
			"date", r.Event.Date,
			"error", r.Err)
	}
}
