package repository

import (
	"context"
	"database/sql"
	"fmt"

	"pierre/internal/models"

	"github.com/google/uuid"
)

// TicketCheck sees the locked reservation and how many tickets it already
// holds. Returning an error leaves the links untouched.
type TicketCheck func(current models.Reservation, linked int) error

// LinkTicket attaches ticketID to the reservation under a row lock, so two
// concurrent links cannot both pass check.
func (r *ReservationRepository) LinkTicket(ctx context.Context, code string, ticketID uuid.UUID, check TicketCheck) error {
	return r.withTickets(ctx, code, func(tx *sql.Tx, current models.Reservation, linked int) error {
		if err := check(current, linked); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO table_reservation_tickets (reservation_id, ticket_id) VALUES ($1, $2)`,
			current.ID, ticketID)
		if isUniqueViolation(err, "") {
			return ErrTicketLinked
		}
		if err != nil {
			return fmt.Errorf("failed to link ticket: %w", err)
		}
		return nil
	})
}

// UnlinkTicket removes ticketID from the reservation.
func (r *ReservationRepository) UnlinkTicket(ctx context.Context, code string, ticketID uuid.UUID, check TicketCheck) error {
	return r.withTickets(ctx, code, func(tx *sql.Tx, current models.Reservation, linked int) error {
		if err := check(current, linked); err != nil {
			return err
		}
		result, err := tx.ExecContext(ctx,
			`DELETE FROM table_reservation_tickets WHERE reservation_id = $1 AND ticket_id = $2`,
			current.ID, ticketID)
		if err != nil {
			return fmt.Errorf("failed to unlink ticket: %w", err)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return ErrTicketNotLinked
		}
		return nil
	})
}

func (r *ReservationRepository) withTickets(ctx context.Context, code string, fn func(tx *sql.Tx, current models.Reservation, linked int) error) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		query := `SELECT ` + reservationColumns + ` FROM table_reservations r WHERE r.reservation_code = $1 FOR UPDATE`
		current, err := scanReservation(tx.QueryRowContext(ctx, query, code))
		if err != nil {
			return fmt.Errorf("failed to lock reservation: %w", err)
		}
		if current == nil {
			return ErrReservationNotFound
		}

		var linked int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM table_reservation_tickets WHERE reservation_id = $1`, current.ID,
		).Scan(&linked); err != nil {
			return fmt.Errorf("failed to count tickets: %w", err)
		}
		return fn(tx, *current, linked)
	})
}

// ListTickets returns the ticket ids linked to a reservation, oldest first.
func (r *ReservationRepository) ListTickets(ctx context.Context, reservationID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT ticket_id FROM table_reservation_tickets
		WHERE reservation_id = $1
		ORDER BY created_at, ticket_id`, reservationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	defer rows.Close()

	ids := []uuid.UUID{}
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan ticket: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
