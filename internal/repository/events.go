package repository

import (
	"context"
	"database/sql"
	"fmt"

	"pierre/internal/database"
	"pierre/internal/models"

	"github.com/google/uuid"
)

// EventRepository stores events. Dates are kept as supplied and filtered in
// Go, since legacy encodings cannot be compared in SQL.
type EventRepository struct {
	db *database.DB
}

func NewEventRepository(db *database.DB) *EventRepository {
	return &EventRepository{db: db}
}

const eventColumns = `id, title, venue, date, image, status, time, age_limit, end_time, price, description, created_at`

func scanEvent(row rowScanner) (*models.Event, error) {
	event := &models.Event{}
	err := row.Scan(
		&event.ID,
		&event.Title,
		&event.Venue,
		&event.Date,
		&event.Image,
		&event.Status,
		&event.Time,
		&event.AgeLimit,
		&event.EndTime,
		&event.Price,
		&event.Description,
		&event.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return event, err
}

func (r *EventRepository) Create(ctx context.Context, event *models.Event) error {
	query := `
		INSERT INTO events (title, venue, date, image, status, time, age_limit, end_time, price, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at`

	return r.db.QueryRowContext(ctx, query,
		event.Title,
		event.Venue,
		event.Date,
		event.Image,
		event.Status,
		event.Time,
		event.AgeLimit,
		event.EndTime,
		event.Price,
		event.Description,
	).Scan(&event.ID, &event.CreatedAt)
}

func (r *EventRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	return scanEvent(r.db.QueryRowContext(ctx, query, id))
}

// List returns every event in insertion order.
func (r *EventRepository) List(ctx context.Context) ([]models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events ORDER BY created_at, id`

	rows, err := r.db.QueryWithRetry(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	events := []models.Event{}
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, *event)
	}
	return events, rows.Err()
}
