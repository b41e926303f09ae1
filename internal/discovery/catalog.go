package discovery

import (
	"sync/atomic"
	"time"

	"pierre/internal/eventdate"
	"pierre/internal/models"
)

// Catalog holds the current event list. Replace swaps the whole list at
// once, so a Filter running during a refresh sees either the old list or
// the new one.
type Catalog struct {
	events    atomic.Pointer[[]models.Event]
	updatedAt atomic.Int64
}

func NewCatalog(events []models.Event) *Catalog {
	c := &Catalog{}
	c.Replace(events)
	return c
}

// Replace installs a copy of events as the current list.
func (c *Catalog) Replace(events []models.Event) {
	snapshot := make([]models.Event, len(events))
	copy(snapshot, events)
	c.events.Store(&snapshot)
	c.updatedAt.Store(time.Now().UnixNano())
}

// Snapshot returns the current list. Callers must not modify it.
func (c *Catalog) Snapshot() []models.Event {
	p := c.events.Load()
	if p == nil {
		return nil
	}
	return *p
}

// UpdatedAt is the time of the last Replace.
func (c *Catalog) UpdatedAt() time.Time {
	return time.Unix(0, c.updatedAt.Load())
}

func (c *Catalog) Len() int {
	return len(c.Snapshot())
}

func (c *Catalog) Filter(query string, anchor *eventdate.Date, now time.Time) Result {
	return Filter(c.Snapshot(), query, anchor, now)
}

func (c *Catalog) GroupByDate(anchor *eventdate.Date, now time.Time) ([]Bucket, []Rejection) {
	return GroupByDate(c.Snapshot(), anchor, now)
}
