package repository

import (
	"pierre/internal/database"
)

type Repositories struct {
	Users        *UserRepository
	Events       *EventRepository
	Tables       *TableRepository
	Reservations *ReservationRepository
}

func NewRepositories(db *database.DB) *Repositories {
	return &Repositories{
		Users:        NewUserRepository(db),
		Events:       NewEventRepository(db),
		Tables:       NewTableRepository(db),
		Reservations: NewReservationRepository(db),
	}
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}
