// Package ledger holds the rules of a shared table reservation: how it is
// created, how contributions settle it, and which status changes are legal.
//
// Every function here is pure. Callers get a new Reservation value back and
// the input is never modified, so a rejected operation leaves prior state
// exactly as it was.
package ledger

import (
	"net/mail"
	"strings"
	"time"

	apperrors "pierre/internal/errors"
	"pierre/internal/models"
	"pierre/internal/session"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var transitions = map[models.ReservationStatus][]models.ReservationStatus{
	models.StatusPending:   {models.StatusConfirmed, models.StatusCancelled},
	models.StatusConfirmed: {models.StatusCompleted, models.StatusCancelled},
}

// CanTransition reports whether from -> to moves forward in the lifecycle.
func CanTransition(from, to models.ReservationStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Transition validates a status change.
func Transition(from, to models.ReservationStatus) error {
	if !CanTransition(from, to) {
		return apperrors.New(apperrors.KindInvalidState, "reservation cannot move from %s to %s", from, to)
	}
	return nil
}

// CreateParams is everything needed to open a reservation on a table.
type CreateParams struct {
	Table              models.Table
	EventID            uuid.UUID
	NumPeople          int
	ContributionPeople int
	GuestPhones        []string
	Contact            models.ContactInfo
	SpecialRequests    *string
}

// SharesPaidUpFront defaults the creator's share count to one.
func (p CreateParams) SharesPaidUpFront() int {
	if p.ContributionPeople == 0 {
		return 1
	}
	return p.ContributionPeople
}

// ValidateCreate runs the creation checks in their fixed order: contact
// fields, party size, guest phones, authentication, minimum spend. It needs
// no network and is run by the client before anything is sent.
func ValidateCreate(p CreateParams, s *session.Session) (models.User, error) {
	if err := validateContact(p.Contact); err != nil {
		return models.User{}, err
	}

	if p.NumPeople <= 0 {
		return models.User{}, apperrors.New(apperrors.KindValidation, "number of people must be at least 1")
	}
	if p.Table.Capacity <= 0 {
		return models.User{}, apperrors.New(apperrors.KindValidation, "table %s has no seats", p.Table.Name)
	}
	if p.NumPeople > p.Table.Capacity {
		return models.User{}, apperrors.New(apperrors.KindValidation,
			"table %s seats at most %d people", p.Table.Name, p.Table.Capacity)
	}
	if shares := p.SharesPaidUpFront(); shares < 1 || shares > p.NumPeople {
		return models.User{}, apperrors.New(apperrors.KindValidation,
			"contribution must cover between 1 and %d people", p.NumPeople)
	}

	// The creator is one of the participants.
	if got, need := len(DistinctPhones(p.GuestPhones)), p.NumPeople-1; got < need {
		return models.User{}, apperrors.New(apperrors.KindInsufficientGuestInfo,
			"%d guest phone numbers required, %d given", need, got)
	}

	user, err := s.RequireUser()
	if err != nil {
		return models.User{}, err
	}

	total := TotalFor(p.Table, p.NumPeople)
	if floor := MinimumTotal(p.Table); total.LessThan(floor) {
		return models.User{}, apperrors.New(apperrors.KindBelowMinimumSpend,
			"minimum spend for %s is %s, reservation totals %s",
			p.Table.Name, models.FormatEuro(floor), models.FormatEuro(total))
	}

	return user, nil
}

func validateContact(c models.ContactInfo) error {
	var missing []string
	if strings.TrimSpace(c.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(c.Surname) == "" {
		missing = append(missing, "surname")
	}
	if strings.TrimSpace(c.Email) == "" {
		missing = append(missing, "email")
	}
	if strings.TrimSpace(c.Phone) == "" {
		missing = append(missing, "phone")
	}
	if len(missing) > 0 {
		return apperrors.New(apperrors.KindValidation, "missing contact fields: %s", strings.Join(missing, ", "))
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(c.Email)); err != nil {
		return apperrors.New(apperrors.KindValidation, "invalid contact email %q", c.Email)
	}
	return nil
}

// DistinctPhones trims, drops blanks and de-duplicates, keeping first-seen order.
func DistinctPhones(phones []string) []string {
	seen := make(map[string]struct{}, len(phones))
	out := make([]string, 0, len(phones))
	for _, p := range phones {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

// TotalFor is the amount a party of n owes at the table.
func TotalFor(t models.Table, n int) decimal.Decimal {
	return t.MinSpend.Mul(decimal.NewFromInt(int64(n)))
}

// MinimumTotal derives the least total a reservation on t may carry:
// half the seats, rounded up, each at the per-person minimum spend.
func MinimumTotal(t models.Table) decimal.Decimal {
	if !t.MinSpend.IsPositive() || !t.TotalCost.IsPositive() {
		return decimal.Zero
	}
	minPeople := t.TotalCost.Div(t.MinSpend).Div(decimal.NewFromInt(2)).Ceil()
	return minPeople.Mul(t.MinSpend)
}

// NewReservation builds the confirmed reservation stored once the creator's
// payment has been authorized. Validation must already have passed.
func NewReservation(p CreateParams, user models.User, code string, now time.Time) (models.Reservation, error) {
	total := TotalFor(p.Table, p.NumPeople)
	paid := p.Table.MinSpend.Mul(decimal.NewFromInt(int64(p.SharesPaidUpFront())))
	if paid.GreaterThan(total) {
		return models.Reservation{}, apperrors.New(apperrors.KindOverpayment,
			"initial contribution %s exceeds total %s", models.FormatEuro(paid), models.FormatEuro(total))
	}

	status := models.StatusConfirmed
	if paid.Equal(total) {
		status = models.StatusCompleted
	}

	table := p.Table
	return models.Reservation{
		ID:              uuid.New(),
		Code:            code,
		TableID:         p.Table.ID,
		EventID:         p.EventID,
		UserID:          user.ID,
		Status:          status,
		NumPeople:       p.NumPeople,
		GuestPhones:     DistinctPhones(p.GuestPhones),
		TotalAmount:     total,
		AmountPaid:      paid,
		ContactName:     p.Contact.FullName(),
		ContactEmail:    strings.TrimSpace(p.Contact.Email),
		ContactPhone:    strings.TrimSpace(p.Contact.Phone),
		SpecialRequests: p.SpecialRequests,
		CreatedAt:       now,
		UpdatedAt:       now,
		Table:           &table,
	}, nil
}

// ClampPeople keeps a share count inside [1, limit]. Clients use it to bound
// the counter; the ledger never relies on it and re-checks the range.
func ClampPeople(n, limit int) int {
	if limit < 1 {
		limit = 1
	}
	switch {
	case n < 1:
		return 1
	case n > limit:
		return limit
	}
	return n
}

// ContributionAmount validates a contribution of numPeople shares against r
// and returns what it would cost.
func ContributionAmount(r models.Reservation, numPeople int) (decimal.Decimal, error) {
	if r.Status != models.StatusConfirmed {
		return decimal.Zero, apperrors.New(apperrors.KindInvalidState,
			"reservation %s is %s and accepts no contributions", r.Code, r.Status)
	}
	if numPeople < 1 || numPeople > r.NumPeople {
		return decimal.Zero, apperrors.New(apperrors.KindValidation,
			"contribution must cover between 1 and %d people", r.NumPeople)
	}

	amount := r.PerPersonAmount().Mul(decimal.NewFromInt(int64(numPeople)))
	if r.AmountPaid.Add(amount).GreaterThan(r.TotalAmount) {
		return decimal.Zero, apperrors.New(apperrors.KindOverpayment,
			"contribution of %s exceeds the %s still due", models.FormatEuro(amount), models.FormatEuro(r.AmountRemaining()))
	}
	return amount, nil
}

// Contribute applies an authorized contribution and returns the new state.
// The reservation completes when nothing remains to be paid.
func Contribute(r models.Reservation, numPeople int, now time.Time) (models.Reservation, decimal.Decimal, error) {
	amount, err := ContributionAmount(r, numPeople)
	if err != nil {
		return r, decimal.Zero, err
	}

	next := r
	next.AmountPaid = r.AmountPaid.Add(amount)
	next.UpdatedAt = now
	if next.AmountRemaining().IsZero() {
		next.Status = models.StatusCompleted
	}
	return next, amount, nil
}

// Cancel moves a non-terminal reservation to cancelled.
func Cancel(r models.Reservation, now time.Time) (models.Reservation, error) {
	if err := Transition(r.Status, models.StatusCancelled); err != nil {
		return r, err
	}
	next := r
	next.Status = models.StatusCancelled
	next.UpdatedAt = now
	return next, nil
}

// CanLinkTicket allows one entry ticket per seat on a reservation that is
// still live.
func CanLinkTicket(r models.Reservation, linked int) error {
	if r.Status == models.StatusCancelled {
		return apperrors.New(apperrors.KindInvalidState, "reservation %s is cancelled", r.Code)
	}
	if linked >= r.NumPeople {
		return apperrors.New(apperrors.KindValidation,
			"reservation %s seats %d people and already has %d tickets", r.Code, r.NumPeople, linked)
	}
	return nil
}
