package models

import "time"

// NATS subjects
const (
	EventReservationCreated      = "reservation.created"
	EventReservationContribution = "reservation.contribution"
	EventReservationCompleted    = "reservation.completed"
	EventReservationCancelled    = "reservation.cancelled"
	EventReservationExpired      = "reservation.expired"
)

// ReservationCreatedEvent is published after the first contribution is stored
type ReservationCreatedEvent struct {
	ReservationID string    `json:"reservation_id"`
	Code          string    `json:"code"`
	EventID       string    `json:"event_id"`
	TableID       string    `json:"table_id"`
	UserID        string    `json:"user_id"`
	NumPeople     int       `json:"num_people"`
	GuestPhones   []string  `json:"guest_phones"`
	TotalAmount   string    `json:"total_amount"`
	AmountPaid    string    `json:"amount_paid"`
	Timestamp     time.Time `json:"timestamp"`
}

// ContributionEvent is published for every settled contribution
type ContributionEvent struct {
	ReservationID   string    `json:"reservation_id"`
	Code            string    `json:"code"`
	PaymentID       string    `json:"payment_id"`
	NumPeople       int       `json:"num_people"`
	Amount          string    `json:"amount"`
	AmountPaid      string    `json:"amount_paid"`
	AmountRemaining string    `json:"amount_remaining"`
	Timestamp       time.Time `json:"timestamp"`
}

// ReservationCompletedEvent is published when nothing remains to be paid
type ReservationCompletedEvent struct {
	ReservationID string    `json:"reservation_id"`
	Code          string    `json:"code"`
	TotalAmount   string    `json:"total_amount"`
	Timestamp     time.Time `json:"timestamp"`
}

// ReservationCancelledEvent covers user cancellation and expiry
type ReservationCancelledEvent struct {
	ReservationID string    `json:"reservation_id"`
	Code          string    `json:"code"`
	Reason        string    `json:"reason"`
	AmountPaid    string    `json:"amount_paid"`
	Timestamp     time.Time `json:"timestamp"`
}
