package client

import (
	"context"

	"pierre/internal/logger"
	"pierre/internal/models"
)

// ListAvailableTables returns the event's tables that are available,
// fetching them when the event carries none. A failed fetch yields an
// empty list together with the failure, which is also logged.
func (c *Client) ListAvailableTables(ctx context.Context, event models.Event) ([]models.Table, error) {
	tables := event.Tables
	if len(tables) == 0 {
		fetched, err := c.api.ListTables(ctx, event.ID.String())
		if err != nil {
			logger.WithContext(ctx).Warn("Failed to fetch tables, showing none",
				"error", err,
				"event_id", event.ID)
			return []models.Table{}, err
		}
		tables = fetched
	}
	return availableOnly(tables), nil
}

func availableOnly(tables []models.Table) []models.Table {
	out := make([]models.Table, 0, len(tables))
	for _, t := range tables {
		if t.Available {
			out = append(out, t)
		}
	}
	return out
}

// SelectDefaultTable returns requested when given, else the first available
// table of the event, else nil.
func SelectDefaultTable(event models.Event, requested *models.Table) *models.Table {
	if requested != nil {
		return requested
	}
	for i := range event.Tables {
		if event.Tables[i].Available {
			t := event.Tables[i]
			return &t
		}
	}
	return nil
}
