package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"pierre/internal/database"
	"pierre/internal/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

var (
	ErrReservationNotFound = errors.New("reservation not found")
	ErrTableUnavailable    = errors.New("table is no longer available")
	ErrDuplicatePayment    = errors.New("payment already applied")
	ErrDuplicateCode       = errors.New("reservation code already in use")
	ErrTicketLinked        = errors.New("ticket already linked")
	ErrTicketNotLinked     = errors.New("ticket not linked to reservation")
)

const uniqueViolation = "23505"

// Mutation receives the locked row and returns its new state plus the
// payment to record with it, if any. Returning an error aborts the
// transaction and leaves the row untouched.
type Mutation func(current models.Reservation) (models.Reservation, *models.ReservationPayment, error)

type ReservationRepository struct {
	db *database.DB
}

func NewReservationRepository(db *database.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

const reservationColumns = `r.id, r.reservation_code, r.table_id, r.event_id, r.user_id, r.status, r.num_people,
	r.guest_phones, r.total_amount, r.amount_paid, r.contact_name, r.contact_email, r.contact_phone,
	r.special_requests, r.created_at, r.updated_at`

const detailColumns = reservationColumns + `,
	t.id, t.event_id, t.name, t.zone, t.capacity, t.min_spend, t.total_cost, t.available,
	t.location_description, t.features, t.created_at, t.updated_at,
	e.id, e.title, e.venue, e.date, e.image, e.status, e.time, e.age_limit, e.end_time, e.price,
	e.description, e.created_at`

const detailFrom = `
	FROM table_reservations r
	JOIN tables t ON t.id = r.table_id
	JOIN events e ON e.id = r.event_id`

func reservationDest(r *models.Reservation) []any {
	return []any{
		&r.ID,
		&r.Code,
		&r.TableID,
		&r.EventID,
		&r.UserID,
		&r.Status,
		&r.NumPeople,
		pq.Array(&r.GuestPhones),
		&r.TotalAmount,
		&r.AmountPaid,
		&r.ContactName,
		&r.ContactEmail,
		&r.ContactPhone,
		&r.SpecialRequests,
		&r.CreatedAt,
		&r.UpdatedAt,
	}
}

func scanReservation(row rowScanner) (*models.Reservation, error) {
	r := &models.Reservation{}
	if err := row.Scan(reservationDest(r)...); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return r, nil
}

func scanReservationDetails(row rowScanner) (*models.Reservation, error) {
	r := &models.Reservation{Table: &models.Table{}, Event: &models.Event{}}
	t, e := r.Table, r.Event

	dest := reservationDest(r)
	dest = append(dest,
		&t.ID, &t.EventID, &t.Name, &t.Zone, &t.Capacity, &t.MinSpend, &t.TotalCost, &t.Available,
		&t.LocationDescription, pq.Array(&t.Features), &t.CreatedAt, &t.UpdatedAt,
		&e.ID, &e.Title, &e.Venue, &e.Date, &e.Image, &e.Status, &e.Time, &e.AgeLimit, &e.EndTime, &e.Price,
		&e.Description, &e.CreatedAt,
	)
	if err := row.Scan(dest...); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return r, nil
}

func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != uniqueViolation {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}

func (r *ReservationRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM table_reservations WHERE reservation_code = $1)`, code,
	).Scan(&exists)
	return exists, err
}

// Create stores a reservation with its first payment and takes the table
// out of availability, all in one transaction.
func (r *ReservationRepository) Create(ctx context.Context, res *models.Reservation, payment *models.ReservationPayment) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		var available bool
		err := tx.QueryRowContext(ctx,
			`SELECT available FROM tables WHERE id = $1 FOR UPDATE`, res.TableID,
		).Scan(&available)
		if err == sql.ErrNoRows || (err == nil && !available) {
			return ErrTableUnavailable
		}
		if err != nil {
			return fmt.Errorf("failed to lock table: %w", err)
		}

		query := `
			INSERT INTO table_reservations (id, reservation_code, table_id, event_id, user_id, status, num_people,
				guest_phones, total_amount, amount_paid, contact_name, contact_email, contact_phone,
				special_requests, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

		phones := res.GuestPhones
		if phones == nil {
			phones = []string{}
		}

		_, err = tx.ExecContext(ctx, query,
			res.ID, res.Code, res.TableID, res.EventID, res.UserID, res.Status, res.NumPeople,
			pq.Array(phones), res.TotalAmount, res.AmountPaid, res.ContactName, res.ContactEmail,
			res.ContactPhone, res.SpecialRequests, res.CreatedAt, res.UpdatedAt,
		)
		if isUniqueViolation(err, "table_reservations_reservation_code_key") {
			return ErrDuplicateCode
		}
		if err != nil {
			return fmt.Errorf("failed to insert reservation: %w", err)
		}

		if payment != nil {
			payment.ReservationID = res.ID
			if err := insertPayment(ctx, tx, payment); err != nil {
				return err
			}
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE tables SET available = FALSE, updated_at = NOW() WHERE id = $1`, res.TableID,
		); err != nil {
			return fmt.Errorf("failed to mark table reserved: %w", err)
		}
		return nil
	})
}

func insertPayment(ctx context.Context, tx *sql.Tx, p *models.ReservationPayment) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO table_reservation_payments (id, reservation_id, payment_id, num_people, amount, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		p.ID, p.ReservationID, p.PaymentID, p.NumPeople, p.Amount, p.CreatedAt,
	)
	if isUniqueViolation(err, "") {
		return ErrDuplicatePayment
	}
	if err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}
	return nil
}

// GetByCode returns the reservation with its table and event, or nil.
func (r *ReservationRepository) GetByCode(ctx context.Context, code string) (*models.Reservation, error) {
	query := `SELECT ` + detailColumns + detailFrom + ` WHERE r.reservation_code = $1`
	return scanReservationDetails(r.db.QueryRowContext(ctx, query, code))
}

// ListByUser returns the user's reservations, newest first.
func (r *ReservationRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Reservation, error) {
	query := `SELECT ` + detailColumns + detailFrom + ` WHERE r.user_id = $1 ORDER BY r.created_at DESC`
	return r.listDetails(ctx, query, userID)
}

// ListByStatus returns reservations in status with table and event attached.
func (r *ReservationRepository) ListByStatus(ctx context.Context, status models.ReservationStatus) ([]models.Reservation, error) {
	query := `SELECT ` + detailColumns + detailFrom + ` WHERE r.status = $1 ORDER BY r.created_at`
	return r.listDetails(ctx, query, status)
}

func (r *ReservationRepository) listDetails(ctx context.Context, query string, args ...any) ([]models.Reservation, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}
	defer rows.Close()

	out := []models.Reservation{}
	for rows.Next() {
		res, err := scanReservationDetails(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reservation: %w", err)
		}
		out = append(out, *res)
	}
	return out, rows.Err()
}

// Update locks the reservation row, applies fn and writes the result
// together with the payment fn returned. Cancelling frees the table again.
func (r *ReservationRepository) Update(ctx context.Context, code string, fn Mutation) (*models.Reservation, error) {
	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		query := `SELECT ` + reservationColumns + ` FROM table_reservations r WHERE r.reservation_code = $1 FOR UPDATE`
		current, err := scanReservation(tx.QueryRowContext(ctx, query, code))
		if err != nil {
			return fmt.Errorf("failed to lock reservation: %w", err)
		}
		if current == nil {
			return ErrReservationNotFound
		}

		next, payment, err := fn(*current)
		if err != nil {
			return err
		}

		if payment != nil {
			payment.ReservationID = current.ID
			if err := insertPayment(ctx, tx, payment); err != nil {
				return err
			}
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE table_reservations
			SET status = $1, amount_paid = $2, updated_at = $3
			WHERE id = $4`,
			next.Status, next.AmountPaid, next.UpdatedAt, current.ID,
		); err != nil {
			return fmt.Errorf("failed to update reservation: %w", err)
		}

		if next.Status == models.StatusCancelled && current.Status != models.StatusCancelled {
			if _, err := tx.ExecContext(ctx,
				`UPDATE tables SET available = TRUE, updated_at = NOW() WHERE id = $1`, current.TableID,
			); err != nil {
				return fmt.Errorf("failed to release table: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.GetByCode(ctx, code)
}

// ListPayments returns the contributions recorded for a reservation.
func (r *ReservationRepository) ListPayments(ctx context.Context, reservationID uuid.UUID) ([]models.ReservationPayment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, reservation_id, payment_id, num_people, amount, settlement, created_at
		FROM table_reservation_payments
		WHERE reservation_id = $1
		ORDER BY created_at`, reservationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	payments := []models.ReservationPayment{}
	for rows.Next() {
		var p models.ReservationPayment
		if err := rows.Scan(&p.ID, &p.ReservationID, &p.PaymentID, &p.NumPeople, &p.Amount, &p.Settlement, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// PaymentRecorded reports whether paymentID already backs a reservation.
func (r *ReservationRepository) PaymentRecorded(ctx context.Context, paymentID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM table_reservation_payments WHERE payment_id = $1)`, paymentID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to look up payment: %w", err)
	}
	return exists, nil
}

// MarkSettled records the gateway outcome of an authorized payment. Settled
// payments are left alone.
func (r *ReservationRepository) MarkSettled(ctx context.Context, paymentID string, outcome models.Settlement) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE table_reservation_payments
		SET settlement = $2, settled_at = NOW()
		WHERE payment_id = $1 AND settlement = 'authorized'`,
		paymentID, outcome)
	if err != nil {
		return fmt.Errorf("failed to mark payment %s %s: %w", paymentID, outcome, err)
	}
	return nil
}

// ListUnsettled returns completed or cancelled reservations, last changed
// before cutoff, that still hold authorized payments.
func (r *ReservationRepository) ListUnsettled(ctx context.Context, cutoff time.Time) ([]models.Reservation, error) {
	query := `SELECT ` + detailColumns + detailFrom + `
		WHERE r.status IN ('completed', 'cancelled')
		  AND r.updated_at < $1
		  AND EXISTS (
			SELECT 1 FROM table_reservation_payments p
			WHERE p.reservation_id = r.id AND p.settlement = 'authorized')
		ORDER BY r.updated_at`
	return r.listDetails(ctx, query, cutoff)
}
