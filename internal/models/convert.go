package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NewTableResponse renders a table for the wire
func NewTableResponse(t Table) TableResponse {
	return TableResponse{
		ID:                  t.ID.String(),
		EventID:             t.EventID.String(),
		Name:                t.Name,
		Zone:                t.Zone,
		Capacity:            t.Capacity,
		MinSpend:            FormatEuro(t.MinSpend),
		TotalCost:           FormatEuro(t.TotalCost),
		Available:           t.Available,
		LocationDescription: t.LocationDescription,
		Features:            t.Features,
	}
}

// ToTable parses a wire table back into the domain type
func (tr TableResponse) ToTable() (Table, error) {
	id, err := uuid.Parse(tr.ID)
	if err != nil {
		return Table{}, fmt.Errorf("invalid table id %q: %w", tr.ID, err)
	}
	eventID, err := uuid.Parse(tr.EventID)
	if err != nil {
		return Table{}, fmt.Errorf("invalid event id %q: %w", tr.EventID, err)
	}
	minSpend, err := ParseEuro(tr.MinSpend)
	if err != nil {
		return Table{}, fmt.Errorf("table %s minSpend: %w", tr.ID, err)
	}
	totalCost, err := ParseEuro(tr.TotalCost)
	if err != nil {
		return Table{}, fmt.Errorf("table %s totalCost: %w", tr.ID, err)
	}
	return Table{
		ID:                  id,
		EventID:             eventID,
		Name:                tr.Name,
		Zone:                tr.Zone,
		Capacity:            tr.Capacity,
		MinSpend:            minSpend,
		TotalCost:           totalCost,
		Available:           tr.Available,
		LocationDescription: tr.LocationDescription,
		Features:            tr.Features,
	}, nil
}

// NewReservationResponse renders a reservation, including joined table and
// event when they were loaded
func NewReservationResponse(r Reservation) ReservationResponse {
	resp := ReservationResponse{
		ID:              r.ID.String(),
		ReservationCode: r.Code,
		Status:          string(r.Status),
		NumPeople:       r.NumPeople,
		GuestPhones:     r.GuestPhones,
		TotalAmount:     FormatEuro(r.TotalAmount),
		AmountPaid:      FormatEuro(r.AmountPaid),
		AmountRemaining: FormatEuro(r.AmountRemaining()),
		ContactName:     r.ContactName,
		ContactEmail:    r.ContactEmail,
		ContactPhone:    r.ContactPhone,
		SpecialRequests: r.SpecialRequests,
		CreatedAt:       r.CreatedAt.UTC().Format(time.RFC3339),
	}

	if r.Table != nil {
		resp.Table = &TableSummary{
			ID:                  r.Table.ID.String(),
			Name:                r.Table.Name,
			Zone:                r.Table.Zone,
			Capacity:            r.Table.Capacity,
			MinSpend:            FormatEuro(r.Table.MinSpend),
			LocationDescription: r.Table.LocationDescription,
			Features:            r.Table.Features,
		}
	}
	if r.Event != nil {
		resp.Event = &EventSummary{
			ID:    r.Event.ID.String(),
			Title: r.Event.Title,
			Venue: r.Event.Venue,
			Date:  r.Event.Date,
			Image: r.Event.Image,
		}
	}

	return resp
}

// ToReservation parses the authoritative server view. The remaining amount
// on the wire is checked against total minus paid.
func (rr ReservationResponse) ToReservation() (Reservation, error) {
	id, err := uuid.Parse(rr.ID)
	if err != nil {
		return Reservation{}, fmt.Errorf("invalid reservation id %q: %w", rr.ID, err)
	}
	total, err := ParseEuro(rr.TotalAmount)
	if err != nil {
		return Reservation{}, fmt.Errorf("totalAmount: %w", err)
	}
	paid, err := ParseEuro(rr.AmountPaid)
	if err != nil {
		return Reservation{}, fmt.Errorf("amountPaid: %w", err)
	}
	if rr.AmountRemaining != "" {
		remaining, err := ParseEuro(rr.AmountRemaining)
		if err != nil {
			return Reservation{}, fmt.Errorf("amountRemaining: %w", err)
		}
		if !paid.Add(remaining).Equal(total) {
			return Reservation{}, fmt.Errorf("inconsistent amounts: paid %s + remaining %s != total %s", paid, remaining, total)
		}
	}

	res := Reservation{
		ID:              id,
		Code:            rr.ReservationCode,
		Status:          ReservationStatus(rr.Status),
		NumPeople:       rr.NumPeople,
		GuestPhones:     rr.GuestPhones,
		TotalAmount:     total,
		AmountPaid:      paid,
		ContactName:     rr.ContactName,
		ContactEmail:    rr.ContactEmail,
		ContactPhone:    rr.ContactPhone,
		SpecialRequests: rr.SpecialRequests,
	}
	if rr.CreatedAt != "" {
		if ts, err := time.Parse(time.RFC3339, rr.CreatedAt); err == nil {
			res.CreatedAt = ts
		}
	}

	if rr.Table != nil {
		tid, _ := uuid.Parse(rr.Table.ID)
		minSpend, _ := ParseEuro(rr.Table.MinSpend)
		res.TableID = tid
		res.Table = &Table{
			ID:                  tid,
			Name:                rr.Table.Name,
			Zone:                rr.Table.Zone,
			Capacity:            rr.Table.Capacity,
			MinSpend:            minSpend,
			LocationDescription: rr.Table.LocationDescription,
			Features:            rr.Table.Features,
		}
	}
	if rr.Event != nil {
		eid, _ := uuid.Parse(rr.Event.ID)
		res.EventID = eid
		res.Event = &Event{
			ID:    eid,
			Title: rr.Event.Title,
			Venue: rr.Event.Venue,
			Date:  rr.Event.Date,
			Image: rr.Event.Image,
		}
	}

	return res, nil
}
