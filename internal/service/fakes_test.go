package service

import (
	"context"
	"sync"
	"time"

	"pierre/internal/auth"
	"pierre/internal/external"
	"pierre/internal/models"
	"pierre/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var fixedNow = time.Date(2025, time.November, 1, 10, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

type memEvents struct {
	mu     sync.Mutex
	events []models.Event
	lists  int
}

func (m *memEvents) Create(_ context.Context, e *models.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = uuid.New()
	m.events = append(m.events, *e)
	return nil
}

func (m *memEvents) GetByID(_ context.Context, id uuid.UUID) (*models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.events {
		if e.ID == id {
			e := e
			return &e, nil
		}
	}
	return nil, nil
}

func (m *memEvents) List(context.Context) ([]models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists++
	return append([]models.Event(nil), m.events...), nil
}

type memTables struct {
	mu     sync.Mutex
	tables map[uuid.UUID]*models.Table
}

func newMemTables(ts ...models.Table) *memTables {
	m := &memTables{tables: map[uuid.UUID]*models.Table{}}
	for i := range ts {
		t := ts[i]
		m.tables[t.ID] = &t
	}
	return m
}

func (m *memTables) Create(_ context.Context, t *models.Table) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.ID = uuid.New()
	cp := *t
	m.tables[t.ID] = &cp
	return nil
}

func (m *memTables) GetByID(_ context.Context, id uuid.UUID) (*models.Table, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tables[id]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, nil
}

func (m *memTables) ListByEvent(_ context.Context, eventID uuid.UUID, onlyAvailable bool) ([]models.Table, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Table{}
	for _, t := range m.tables {
		if t.EventID == eventID && (!onlyAvailable || t.Available) {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (m *memTables) setAvailable(id uuid.UUID, v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tables[id]; ok {
		t.Available = v
	}
}

// memReservations mimics the row lock of the Postgres repository with a mutex.
type memReservations struct {
	mu       sync.Mutex
	tables   *memTables
	byCode   map[string]models.Reservation
	events   map[uuid.UUID]models.Event
	payments map[string]models.ReservationPayment
	tickets  map[uuid.UUID][]uuid.UUID
	// failUpdate makes Update fail for the given codes.
	failUpdate map[string]error
}

func newMemReservations(tables *memTables) *memReservations {
	return &memReservations{
		tables:     tables,
		byCode:     map[string]models.Reservation{},
		events:     map[uuid.UUID]models.Event{},
		payments:   map[string]models.ReservationPayment{},
		tickets:    map[uuid.UUID][]uuid.UUID{},
		failUpdate: map[string]error{},
	}
}

func (m *memReservations) CodeExists(_ context.Context, code string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.byCode[code]
	return ok, nil
}

func (m *memReservations) Create(ctx context.Context, res *models.Reservation, payment *models.ReservationPayment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, _ := m.tables.GetByID(ctx, res.TableID)
	if t == nil || !t.Available {
		return repository.ErrTableUnavailable
	}
	if _, ok := m.byCode[res.Code]; ok {
		return repository.ErrDuplicateCode
	}
	if payment != nil {
		if _, ok := m.payments[payment.PaymentID]; ok {
			return repository.ErrDuplicatePayment
		}
		payment.ReservationID = res.ID
		m.payments[payment.PaymentID] = *payment
	}
	m.byCode[res.Code] = *res
	m.tables.setAvailable(res.TableID, false)
	return nil
}

func (m *memReservations) detailed(r models.Reservation) *models.Reservation {
	if e, ok := m.events[r.EventID]; ok {
		r.Event = &e
	}
	return &r
}

func (m *memReservations) GetByCode(_ context.Context, code string) (*models.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.byCode[code]
	if !ok {
		return nil, nil
	}
	return m.detailed(r), nil
}

func (m *memReservations) ListByUser(_ context.Context, userID uuid.UUID) ([]models.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Reservation{}
	for _, r := range m.byCode {
		if r.UserID == userID {
			out = append(out, *m.detailed(r))
		}
	}
	return out, nil
}

func (m *memReservations) ListByStatus(_ context.Context, status models.ReservationStatus) ([]models.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Reservation{}
	for _, r := range m.byCode {
		if r.Status == status {
			out = append(out, *m.detailed(r))
		}
	}
	return out, nil
}

func (m *memReservations) Update(_ context.Context, code string, fn repository.Mutation) (*models.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failUpdate[code]; err != nil {
		return nil, err
	}
	current, ok := m.byCode[code]
	if !ok {
		return nil, repository.ErrReservationNotFound
	}
	next, payment, err := fn(current)
	if err != nil {
		return nil, err
	}
	if payment != nil {
		if _, ok := m.payments[payment.PaymentID]; ok {
			return nil, repository.ErrDuplicatePayment
		}
		payment.ReservationID = current.ID
		m.payments[payment.PaymentID] = *payment
	}
	current.Status = next.Status
	current.AmountPaid = next.AmountPaid
	current.UpdatedAt = next.UpdatedAt
	m.byCode[code] = current
	if next.Status == models.StatusCancelled {
		m.tables.setAvailable(current.TableID, true)
	}
	return m.detailed(current), nil
}

func (m *memReservations) PaymentRecorded(_ context.Context, paymentID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.payments[paymentID]
	return ok, nil
}

func (m *memReservations) LinkTicket(_ context.Context, code string, ticketID uuid.UUID, check repository.TicketCheck) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.byCode[code]
	if !ok {
		return repository.ErrReservationNotFound
	}
	linked := m.tickets[current.ID]
	if err := check(current, len(linked)); err != nil {
		return err
	}
	for _, id := range linked {
		if id == ticketID {
			return repository.ErrTicketLinked
		}
	}
	m.tickets[current.ID] = append(linked, ticketID)
	return nil
}

func (m *memReservations) UnlinkTicket(_ context.Context, code string, ticketID uuid.UUID, check repository.TicketCheck) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.byCode[code]
	if !ok {
		return repository.ErrReservationNotFound
	}
	linked := m.tickets[current.ID]
	if err := check(current, len(linked)); err != nil {
		return err
	}
	for i, id := range linked {
		if id == ticketID {
			m.tickets[current.ID] = append(linked[:i:i], linked[i+1:]...)
			return nil
		}
	}
	return repository.ErrTicketNotLinked
}

func (m *memReservations) ListTickets(_ context.Context, reservationID uuid.UUID) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]uuid.UUID{}, m.tickets[reservationID]...), nil
}

type memUsers struct {
	mu    sync.Mutex
	users []models.User
}

func (m *memUsers) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == id {
			u := u
			return &u, nil
		}
	}
	return nil, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, nil
}

func (m *memUsers) Create(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.ID = uuid.New()
	m.users = append(m.users, *u)
	return nil
}

// fakeGateway authorizes every payment it initialized unless told otherwise.
type fakeGateway struct {
	mu        sync.Mutex
	payments  map[string]*external.PaymentState
	cancelled []string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{payments: map[string]*external.PaymentState{}}
}

func (g *fakeGateway) InitPayment(_ context.Context, amount decimal.Decimal, orderID, _ string) (*external.PaymentIntent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := "pay-" + orderID[:8]
	g.payments[id] = &external.PaymentState{PaymentID: id, OrderID: orderID, Status: external.PaymentStatusAuthorized, Amount: amount}
	return &external.PaymentIntent{PaymentID: id, OrderID: orderID, ClientSecret: "secret", Amount: amount, Currency: "EUR"}, nil
}

func (g *fakeGateway) set(id, status string, amount decimal.Decimal) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.payments[id] = &external.PaymentState{PaymentID: id, Status: status, Amount: amount}
}

func (g *fakeGateway) CheckPayment(_ context.Context, id string) (*external.PaymentState, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if p, ok := g.payments[id]; ok {
		cp := *p
		return &cp, nil
	}
	return &external.PaymentState{PaymentID: id, Status: external.PaymentStatusRejected}, nil
}

func (g *fakeGateway) CancelPayment(_ context.Context, id, _ string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cancelled = append(g.cancelled, id)
	return nil
}

type published struct {
	subject string
	data    any
}

type fakePublisher struct {
	mu       sync.Mutex
	messages []published
}

func (p *fakePublisher) Publish(subject string, data any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, published{subject, data})
	return nil
}

func (p *fakePublisher) subjects() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.messages))
	for i, m := range p.messages {
		out[i] = m.subject
	}
	return out
}

var _ TokenIssuer = (*auth.Tokens)(nil)
