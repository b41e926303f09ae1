package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pierre/internal/discovery"
	apperrors "pierre/internal/errors"
	"pierre/internal/eventdate"
	"pierre/internal/logger"
	"pierre/internal/models"

	"github.com/google/uuid"
)

type EventService struct {
	eventRepo EventStore
	index     EventIndex
	cache     Cache
	locale    eventdate.Locale
	now       func() time.Time
}

func NewEventService(eventRepo EventStore, index EventIndex, cache Cache, locale eventdate.Locale, now func() time.Time) *EventService {
	if cache == nil {
		cache = noCache{}
	}
	return &EventService{
		eventRepo: eventRepo,
		index:     index,
		cache:     cache,
		locale:    locale,
		now:       now,
	}
}

func (s *EventService) all(ctx context.Context) ([]models.Event, error) {
	if events, ok := s.cache.Events(ctx); ok {
		return events, nil
	}

	events, err := s.eventRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	s.cache.SetEvents(ctx, events)
	return events, nil
}

// parseAnchor reads the optional date filter; blank means today.
func (s *EventService) parseAnchor(raw string) (*eventdate.Date, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	d, err := eventdate.Parse(raw, s.now())
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindValidation, err, "invalid date filter %q", raw)
	}
	return &d, nil
}

func (s *EventService) logRejected(ctx context.Context, rejected []discovery.Rejection) {
	for _, r := range rejected {
		logger.WithContext(ctx).Warn("Event excluded: unreadable date",
			"event_id", r.Event.ID,
			"date", r.Event.Date,
			"error", r.Err)
	}
}

// List returns upcoming events matching query, on or after date.
func (s *EventService) List(ctx context.Context, query, date string) ([]models.Event, error) {
	anchor, err := s.parseAnchor(date)
	if err != nil {
		return nil, err
	}

	events, err := s.all(ctx)
	if err != nil {
		return nil, err
	}

	result := discovery.Filter(events, query, anchor, s.now())
	s.logRejected(ctx, result.Rejected)
	return result.Events, nil
}

// Grouped returns the same selection as List in per-day sections.
func (s *EventService) Grouped(ctx context.Context, query, date string) ([]models.EventBucket, error) {
	anchor, err := s.parseAnchor(date)
	if err != nil {
		return nil, err
	}

	events, err := s.all(ctx)
	if err != nil {
		return nil, err
	}

	buckets, rejected := discovery.GroupMatching(events, query, anchor, s.now())
	s.logRejected(ctx, rejected)

	out := make([]models.EventBucket, 0, len(buckets))
	for _, b := range discovery.WithHeaders(buckets, s.locale) {
		out = append(out, models.EventBucket{
			Date:   b.Date.Key(),
			Header: b.Header,
			Events: b.Events,
		})
	}
	return out, nil
}

// Search asks the text index when one is configured and falls back to the
// fuzzy filter otherwise or when the index fails.
func (s *EventService) Search(ctx context.Context, query, date string, page, pageSize int) ([]models.Event, error) {
	anchor, err := s.parseAnchor(date)
	if err != nil {
		return nil, err
	}
	if anchor == nil {
		today := eventdate.FromTime(s.now())
		anchor = &today
	}

	if s.index != nil {
		events, err := s.index.Search(ctx, query, anchor.Key(), page, pageSize)
		if err == nil {
			return events, nil
		}
		logger.WithContext(ctx).Warn("Search index unavailable, falling back to filter", "error", err)
	}

	events, err := s.List(ctx, query, anchor.Key())
	if err != nil {
		return nil, err
	}
	return paginate(events, page, pageSize), nil
}

func paginate(events []models.Event, page, pageSize int) []models.Event {
	if pageSize <= 0 {
		return events
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * pageSize
	if start >= len(events) {
		return []models.Event{}
	}
	end := start + pageSize
	if end > len(events) {
		end = len(events)
	}
	return events[start:end]
}

func (s *EventService) Get(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	event, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	if event == nil {
		return nil, apperrors.New(apperrors.KindNotFound, "event %s not found", id)
	}
	return event, nil
}

// Create stores an event. A date no encoding can read is accepted but the
// event will never be listed.
func (s *EventService) Create(ctx context.Context, req *models.CreateEventRequest) (*models.Event, error) {
	event := &models.Event{
		Title:       strings.TrimSpace(req.Title),
		Venue:       strings.TrimSpace(req.Venue),
		Date:        strings.TrimSpace(req.Date),
		Image:       req.Image,
		Status:      req.Status,
		Time:        req.Time,
		AgeLimit:    req.AgeLimit,
		EndTime:     req.EndTime,
		Price:       req.Price,
		Description: req.Description,
	}
	if event.Title == "" || event.Venue == "" || event.Date == "" {
		return nil, apperrors.New(apperrors.KindValidation, "title, venue and date are required")
	}

	if _, err := eventdate.Parse(event.Date, s.now()); err != nil {
		logger.WithContext(ctx).Warn("Event date cannot be read and will not be listed",
			"date", event.Date, "error", err)
	}

	if err := s.eventRepo.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	s.cache.InvalidateEvents(ctx)
	if s.index != nil {
		if err := s.index.IndexEvent(ctx, *event); err != nil {
			logger.WithContext(ctx).Error("Failed to index event", "error", err, "event_id", event.ID)
		}
	}

	return event, nil
}

// Reindex pushes every stored event into the text index, in one bulk
// request when the index supports it.
func (s *EventService) Reindex(ctx context.Context) (int, error) {
	if s.index == nil {
		return 0, nil
	}
	events, err := s.eventRepo.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list events: %w", err)
	}

	if bulk, ok := s.index.(bulkIndex); ok {
		if err := bulk.Reindex(ctx, events); err != nil {
			return 0, fmt.Errorf("failed to reindex events: %w", err)
		}
		return len(events), nil
	}

	for _, e := range events {
		if err := s.index.IndexEvent(ctx, e); err != nil {
			return 0, fmt.Errorf("failed to index event %s: %w", e.ID, err)
		}
	}
	return len(events), nil
}

type bulkIndex interface {
	Reindex(ctx context.Context, events []models.Event) error
}
