package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// User represents an account able to create reservations
type User struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Name         string    `json:"name" db:"name"`
	PhoneNumber  *string   `json:"phone_number,omitempty" db:"phone_number"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Event is immutable once fetched; a refetch replaces the whole list.
// Date keeps the raw encoding supplied by the venue.
type Event struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Title       string    `json:"title" db:"title"`
	Venue       string    `json:"venue" db:"venue"`
	Date        string    `json:"date" db:"date"`
	Image       string    `json:"image" db:"image"`
	Status      *string   `json:"status,omitempty" db:"status"`
	Time        *string   `json:"time,omitempty" db:"time"`
	AgeLimit    *string   `json:"ageLimit,omitempty" db:"age_limit"`
	EndTime     *string   `json:"endTime,omitempty" db:"end_time"`
	Price       *string   `json:"price,omitempty" db:"price"`
	Description *string   `json:"description,omitempty" db:"description"`
	Tables      []Table   `json:"-"`
	CreatedAt   time.Time `json:"-" db:"created_at"`
}

// DescriptionText returns the description or an empty string.
func (e Event) DescriptionText() string {
	if e.Description == nil {
		return ""
	}
	return *e.Description
}

// Table is a reservable table at an event. Availability is owned by the
// service; clients only read it.
type Table struct {
	ID                  uuid.UUID       `db:"id"`
	EventID             uuid.UUID       `db:"event_id"`
	Name                string          `db:"name"`
	Zone                *string         `db:"zone"`
	Capacity            int             `db:"capacity"`
	MinSpend            decimal.Decimal `db:"min_spend"`
	TotalCost           decimal.Decimal `db:"total_cost"`
	Available           bool            `db:"available"`
	LocationDescription *string         `db:"location_description"`
	Features            []string        `db:"features"`
	CreatedAt           time.Time       `db:"created_at"`
	UpdatedAt           time.Time       `db:"updated_at"`
}

type ReservationStatus string

const (
	StatusPending   ReservationStatus = "pending"
	StatusConfirmed ReservationStatus = "confirmed"
	StatusCompleted ReservationStatus = "completed"
	StatusCancelled ReservationStatus = "cancelled"
)

// Terminal reports whether no further transition is allowed.
func (s ReservationStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Reservation is a shared table booking settled by several contributions.
// TotalAmount is fixed at creation; AmountPaid only grows.
type Reservation struct {
	ID              uuid.UUID         `db:"id"`
	Code            string            `db:"reservation_code"`
	TableID         uuid.UUID         `db:"table_id"`
	EventID         uuid.UUID         `db:"event_id"`
	UserID          uuid.UUID         `db:"user_id"`
	Status          ReservationStatus `db:"status"`
	NumPeople       int               `db:"num_people"`
	GuestPhones     []string          `db:"guest_phones"`
	TotalAmount     decimal.Decimal   `db:"total_amount"`
	AmountPaid      decimal.Decimal   `db:"amount_paid"`
	ContactName     string            `db:"contact_name"`
	ContactEmail    string            `db:"contact_email"`
	ContactPhone    string            `db:"contact_phone"`
	SpecialRequests *string           `db:"special_requests"`
	CreatedAt       time.Time         `db:"created_at"`
	UpdatedAt       time.Time         `db:"updated_at"`

	// Filled by joins, not stored on the row
	Table *Table `db:"-"`
	Event *Event `db:"-"`
}

// AmountRemaining is always derived, never stored.
func (r Reservation) AmountRemaining() decimal.Decimal {
	return r.TotalAmount.Sub(r.AmountPaid)
}

// PerPersonAmount is the minimum spend each participant owes.
func (r Reservation) PerPersonAmount() decimal.Decimal {
	if r.NumPeople <= 0 {
		return decimal.Zero
	}
	return r.TotalAmount.Div(decimal.NewFromInt(int64(r.NumPeople)))
}

// ReservationPayment records one contribution toward a reservation
type ReservationPayment struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	ReservationID uuid.UUID       `json:"reservation_id" db:"reservation_id"`
	PaymentID     string          `json:"payment_id" db:"payment_id"`
	NumPeople     int             `json:"num_people" db:"num_people"`
	Amount        decimal.Decimal `json:"amount" db:"amount"`
	Settlement    Settlement      `json:"settlement" db:"settlement"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
}

// Settlement tracks what happened to a payment's held funds. A payment is
// authorized when recorded and ends captured or released.
type Settlement string

const (
	SettlementAuthorized Settlement = "authorized"
	SettlementCaptured   Settlement = "captured"
	SettlementReleased   Settlement = "released"
)
