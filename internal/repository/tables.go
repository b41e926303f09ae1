package repository

import (
	"context"
	"database/sql"
	"fmt"

	"pierre/internal/database"
	"pierre/internal/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type TableRepository struct {
	db *database.DB
}

func NewTableRepository(db *database.DB) *TableRepository {
	return &TableRepository{db: db}
}

const tableColumns = `id, event_id, name, zone, capacity, min_spend, total_cost, available,
	location_description, features, created_at, updated_at`

func scanTable(row rowScanner) (*models.Table, error) {
	t := &models.Table{}
	err := row.Scan(
		&t.ID,
		&t.EventID,
		&t.Name,
		&t.Zone,
		&t.Capacity,
		&t.MinSpend,
		&t.TotalCost,
		&t.Available,
		&t.LocationDescription,
		pq.Array(&t.Features),
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return t, err
}

func (r *TableRepository) Create(ctx context.Context, t *models.Table) error {
	query := `
		INSERT INTO tables (event_id, name, zone, capacity, min_spend, total_cost, available, location_description, features)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`

	features := t.Features
	if features == nil {
		features = []string{}
	}

	return r.db.QueryRowContext(ctx, query,
		t.EventID,
		t.Name,
		t.Zone,
		t.Capacity,
		t.MinSpend,
		t.TotalCost,
		t.Available,
		t.LocationDescription,
		pq.Array(features),
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
}

func (r *TableRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Table, error) {
	query := `SELECT ` + tableColumns + ` FROM tables WHERE id = $1`
	return scanTable(r.db.QueryRowContext(ctx, query, id))
}

// ListByEvent returns the event's tables by name, optionally only available ones.
func (r *TableRepository) ListByEvent(ctx context.Context, eventID uuid.UUID, onlyAvailable bool) ([]models.Table, error) {
	query := `SELECT ` + tableColumns + ` FROM tables WHERE event_id = $1`
	if onlyAvailable {
		query += ` AND available`
	}
	query += ` ORDER BY name, id`

	rows, err := r.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	tables := []models.Table{}
	for rows.Next() {
		t, err := scanTable(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan table: %w", err)
		}
		tables = append(tables, *t)
	}
	return tables, rows.Err()
}
