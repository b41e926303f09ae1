package service

import (
	"context"
	"fmt"
	"strings"

	apperrors "pierre/internal/errors"
	"pierre/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TableService struct {
	tableRepo TableStore
	eventRepo EventStore
}

func NewTableService(tableRepo TableStore, eventRepo EventStore) *TableService {
	return &TableService{tableRepo: tableRepo, eventRepo: eventRepo}
}

func (s *TableService) requireEvent(ctx context.Context, eventID uuid.UUID) error {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return fmt.Errorf("failed to get event: %w", err)
	}
	if event == nil {
		return apperrors.New(apperrors.KindNotFound, "event %s not found", eventID)
	}
	return nil
}

// ListByEvent returns the event's tables, optionally only the free ones.
func (s *TableService) ListByEvent(ctx context.Context, eventID uuid.UUID, onlyAvailable bool) ([]models.Table, error) {
	if err := s.requireEvent(ctx, eventID); err != nil {
		return nil, err
	}
	tables, err := s.tableRepo.ListByEvent(ctx, eventID, onlyAvailable)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	return tables, nil
}

// Create adds a table; its total cost is the per-person minimum spend for
// every seat.
func (s *TableService) Create(ctx context.Context, req *models.CreateTableRequest) (*models.Table, error) {
	eventID, err := uuid.Parse(req.EventID)
	if err != nil {
		return nil, apperrors.New(apperrors.KindValidation, "invalid event id %q", req.EventID)
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, apperrors.New(apperrors.KindValidation, "table name is required")
	}
	if req.Capacity < 1 {
		return nil, apperrors.New(apperrors.KindValidation, "capacity must be at least 1")
	}
	if !req.MinSpend.IsPositive() {
		return nil, apperrors.New(apperrors.KindValidation, "minimum spend must be positive")
	}
	if err := s.requireEvent(ctx, eventID); err != nil {
		return nil, err
	}

	available := true
	if req.Available != nil {
		available = req.Available.Bool()
	}

	minSpend := req.MinSpend.Round(2)
	table := &models.Table{
		EventID:             eventID,
		Name:                strings.TrimSpace(req.Name),
		Zone:                req.Zone,
		Capacity:            req.Capacity,
		MinSpend:            minSpend,
		TotalCost:           minSpend.Mul(decimal.NewFromInt(int64(req.Capacity))),
		Available:           available,
		LocationDescription: req.LocationDescription,
		Features:            req.Features,
	}

	if err := s.tableRepo.Create(ctx, table); err != nil {
		return nil, fmt.Errorf("failed to create table: %w", err)
	}
	return table, nil
}
