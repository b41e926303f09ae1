package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	apperrors "pierre/internal/errors"
	"pierre/internal/external"
	"pierre/internal/models"
	"pierre/internal/session"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reservationFixture struct {
	svc       *ReservationService
	tables    *memTables
	repo      *memReservations
	gateway   *fakeGateway
	publisher *fakePublisher
	table     models.Table
	event     models.Event
	user      models.User
}

func newReservationFixture(t *testing.T) *reservationFixture {
	t.Helper()
	event := models.Event{ID: uuid.New(), Title: "Capodanno", Venue: "Alcatraz", Date: "2025-12-31"}
	table := models.Table{
		ID:        uuid.New(),
		EventID:   event.ID,
		Name:      "Privé 1",
		Capacity:  4,
		MinSpend:  decimal.RequireFromString("25"),
		TotalCost: decimal.RequireFromString("100"),
		Available: true,
	}
	tables := newMemTables(table)
	repo := newMemReservations(tables)
	repo.events[event.ID] = event
	gateway := newFakeGateway()
	publisher := &fakePublisher{}

	return &reservationFixture{
		svc:       NewReservationService(repo, tables, gateway, publisher, nil, clock),
		tables:    tables,
		repo:      repo,
		gateway:   gateway,
		publisher: publisher,
		table:     table,
		event:     event,
		user:      models.User{ID: uuid.New(), Email: "mario@example.com", Name: "Mario"},
	}
}

func (f *reservationFixture) signedIn() context.Context {
	return session.NewContext(context.Background(), session.Authenticated(f.user, "tok"))
}

func (f *reservationFixture) request(numPeople int, phones ...string) *models.CreateReservationRequest {
	return &models.CreateReservationRequest{
		TableID:     f.table.ID.String(),
		EventID:     f.event.ID.String(),
		NumPeople:   numPeople,
		GuestPhones: phones,
		ContactInfo: models.ContactInfo{Name: "Mario", Surname: "Rossi", Email: "mario@example.com", Phone: "+39 333 0000000"},
	}
}

// create runs the full intent then create-with-payment flow.
func (f *reservationFixture) create(t *testing.T, req *models.CreateReservationRequest) *models.Reservation {
	t.Helper()
	ctx := f.signedIn()
	intent, err := f.svc.CreatePaymentIntent(ctx, req)
	require.NoError(t, err)

	res, err := f.svc.CreateWithPayment(ctx, &models.CreateWithPaymentRequest{
		CreateReservationRequest: *req,
		PaymentID:                intent.PaymentID,
	})
	require.NoError(t, err)
	return res
}

func (f *reservationFixture) contribute(ctx context.Context, code string, n int) (*models.Reservation, error) {
	intent, err := f.svc.ContributionIntent(ctx, code, n)
	if err != nil {
		return nil, err
	}
	return f.svc.Contribute(ctx, code, &models.ContributeRequest{NumPeople: n, PaymentID: intent.PaymentID})
}

func TestCreateWithPayment(t *testing.T) {
	f := newReservationFixture(t)
	res := f.create(t, f.request(2, "+39 333 1111111"))

	assert.Regexp(t, `^RES-[A-Z0-9]{8}$`, res.Code)
	assert.Equal(t, models.StatusConfirmed, res.Status)
	assert.Equal(t, f.user.ID, res.UserID)
	assert.Equal(t, "50.00", res.TotalAmount.StringFixed(2))
	assert.Equal(t, "25.00", res.AmountPaid.StringFixed(2))

	table, _ := f.tables.GetByID(context.Background(), f.table.ID)
	assert.False(t, table.Available)
	assert.Equal(t, []string{models.EventReservationCreated}, f.publisher.subjects())
}

func TestCreatePaymentIntentRejectsBeforePayment(t *testing.T) {
	f := newReservationFixture(t)

	_, err := f.svc.CreatePaymentIntent(context.Background(), f.request(2, "+39 333 1111111"))
	assert.True(t, apperrors.Is(err, apperrors.KindAuthRequired))

	_, err = f.svc.CreatePaymentIntent(f.signedIn(), f.request(3, "+39 333 1111111"))
	assert.True(t, apperrors.Is(err, apperrors.KindInsufficientGuestInfo))

	_, err = f.svc.CreatePaymentIntent(f.signedIn(), f.request(1))
	assert.True(t, apperrors.Is(err, apperrors.KindBelowMinimumSpend))

	req := f.request(2, "+39 333 1111111")
	req.TableID = uuid.NewString()
	_, err = f.svc.CreatePaymentIntent(f.signedIn(), req)
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))

	assert.Empty(t, f.gateway.payments)
}

func TestCreateWithPaymentRequiresAuthorizedAmount(t *testing.T) {
	f := newReservationFixture(t)
	req := f.request(2, "+39 333 1111111")

	f.gateway.set("pay-declined", external.PaymentStatusRejected, decimal.RequireFromString("25"))
	_, err := f.svc.CreateWithPayment(f.signedIn(), &models.CreateWithPaymentRequest{CreateReservationRequest: *req, PaymentID: "pay-declined"})
	assert.True(t, apperrors.Is(err, apperrors.KindPaymentAuthorizationFailed))

	f.gateway.set("pay-short", external.PaymentStatusAuthorized, decimal.RequireFromString("5"))
	_, err = f.svc.CreateWithPayment(f.signedIn(), &models.CreateWithPaymentRequest{CreateReservationRequest: *req, PaymentID: "pay-short"})
	assert.True(t, apperrors.Is(err, apperrors.KindPaymentAuthorizationFailed))

	assert.Empty(t, f.repo.byCode)
}

func TestTableCannotBeReservedTwice(t *testing.T) {
	f := newReservationFixture(t)
	f.create(t, f.request(2, "+39 333 1111111"))

	_, err := f.svc.CreatePaymentIntent(f.signedIn(), f.request(2, "+39 333 2222222"))
	assert.True(t, apperrors.Is(err, apperrors.KindInvalidState))
}

func TestLosingTheTableReleasesPayment(t *testing.T) {
	f := newReservationFixture(t)
	rival := session.NewContext(context.Background(),
		session.Authenticated(models.User{ID: uuid.New(), Email: "luigi@example.com", Name: "Luigi"}, "tok2"))

	mine, err := f.svc.CreatePaymentIntent(f.signedIn(), f.request(2, "+39 333 1111111"))
	require.NoError(t, err)
	theirs, err := f.svc.CreatePaymentIntent(rival, f.request(2, "+39 333 2222222"))
	require.NoError(t, err)

	_, err = f.svc.CreateWithPayment(f.signedIn(), &models.CreateWithPaymentRequest{
		CreateReservationRequest: *f.request(2, "+39 333 1111111"),
		PaymentID:                mine.PaymentID,
	})
	require.NoError(t, err)

	_, err = f.svc.CreateWithPayment(rival, &models.CreateWithPaymentRequest{
		CreateReservationRequest: *f.request(2, "+39 333 2222222"),
		PaymentID:                theirs.PaymentID,
	})
	assert.True(t, apperrors.Is(err, apperrors.KindInvalidState))
	assert.Equal(t, []string{theirs.PaymentID}, f.gateway.cancelled)
}

func TestCreateWithPaymentReleasesOnInvalidRequest(t *testing.T) {
	f := newReservationFixture(t)
	f.gateway.set("pay-orphan", external.PaymentStatusAuthorized, decimal.RequireFromString("25"))

	req := f.request(2, "+39 333 1111111")
	req.TableID = "not-a-uuid"
	_, err := f.svc.CreateWithPayment(f.signedIn(), &models.CreateWithPaymentRequest{CreateReservationRequest: *req, PaymentID: "pay-orphan"})
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))

	_, err = f.svc.CreateWithPayment(f.signedIn(), &models.CreateWithPaymentRequest{
		CreateReservationRequest: *f.request(3, "+39 333 1111111"),
		PaymentID:                "pay-orphan",
	})
	assert.True(t, apperrors.Is(err, apperrors.KindInsufficientGuestInfo))

	assert.Equal(t, []string{"pay-orphan", "pay-orphan"}, f.gateway.cancelled)
}

func TestReplayedCreateKeepsAppliedPayment(t *testing.T) {
	f := newReservationFixture(t)
	req := f.request(2, "+39 333 1111111")
	intent, err := f.svc.CreatePaymentIntent(f.signedIn(), req)
	require.NoError(t, err)

	again := &models.CreateWithPaymentRequest{CreateReservationRequest: *req, PaymentID: intent.PaymentID}
	_, err = f.svc.CreateWithPayment(f.signedIn(), again)
	require.NoError(t, err)

	_, err = f.svc.CreateWithPayment(f.signedIn(), again)
	assert.True(t, apperrors.Is(err, apperrors.KindInvalidState))
	assert.Empty(t, f.gateway.cancelled)
}

func TestContributeSettlesReservation(t *testing.T) {
	f := newReservationFixture(t)
	res := f.create(t, f.request(2, "+39 333 1111111"))
	guest := context.Background()

	updated, err := f.contribute(guest, res.Code, 1)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, updated.Status)
	assert.True(t, updated.AmountRemaining().IsZero())
	assert.Equal(t, []string{
		models.EventReservationCreated,
		models.EventReservationContribution,
		models.EventReservationCompleted,
	}, f.publisher.subjects())

	_, err = f.contribute(guest, res.Code, 1)
	assert.True(t, apperrors.Is(err, apperrors.KindInvalidState))
}

func TestContributeLowercaseCode(t *testing.T) {
	f := newReservationFixture(t)
	res := f.create(t, f.request(4, "1", "2", "3"))

	updated, err := f.contribute(context.Background(), "  "+res.Code[4:]+" ", 2)
	require.NoError(t, err)
	assert.Equal(t, "75.00", updated.AmountPaid.StringFixed(2))
	assert.Equal(t, models.StatusConfirmed, updated.Status)
}

func TestContributeOverpaymentReleasesPayment(t *testing.T) {
	f := newReservationFixture(t)
	res := f.create(t, f.request(2, "+39 333 1111111"))

	f.gateway.set("pay-big", external.PaymentStatusAuthorized, decimal.RequireFromString("50"))
	_, err := f.svc.Contribute(context.Background(), res.Code, &models.ContributeRequest{NumPeople: 2, PaymentID: "pay-big"})
	assert.True(t, apperrors.Is(err, apperrors.KindOverpayment))
	assert.Contains(t, f.gateway.cancelled, "pay-big")

	current, err := f.svc.GetByCode(context.Background(), res.Code)
	require.NoError(t, err)
	assert.Equal(t, "25.00", current.AmountPaid.StringFixed(2))
}

func TestContributeRejectsMismatchedAmountAndReuse(t *testing.T) {
	f := newReservationFixture(t)
	res := f.create(t, f.request(4, "1", "2", "3"))

	f.gateway.set("pay-odd", external.PaymentStatusAuthorized, decimal.RequireFromString("10"))
	_, err := f.svc.Contribute(context.Background(), res.Code, &models.ContributeRequest{NumPeople: 1, PaymentID: "pay-odd"})
	assert.True(t, apperrors.Is(err, apperrors.KindPaymentAuthorizationFailed))

	f.gateway.set("pay-once", external.PaymentStatusAuthorized, decimal.RequireFromString("25"))
	_, err = f.svc.Contribute(context.Background(), res.Code, &models.ContributeRequest{NumPeople: 1, PaymentID: "pay-once"})
	require.NoError(t, err)
	_, err = f.svc.Contribute(context.Background(), res.Code, &models.ContributeRequest{NumPeople: 1, PaymentID: "pay-once"})
	assert.True(t, apperrors.Is(err, apperrors.KindInvalidState))
}

func TestConcurrentContributionsNeverOvershoot(t *testing.T) {
	f := newReservationFixture(t)
	res := f.create(t, f.request(4, "1", "2", "3"))

	var wg sync.WaitGroup
	errs := make([]error, 6)
	for i := range errs {
		id := "pay-c" + string(rune('a'+i))
		f.gateway.set(id, external.PaymentStatusAuthorized, decimal.RequireFromString("25"))
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = f.svc.Contribute(context.Background(), res.Code, &models.ContributeRequest{NumPeople: 1, PaymentID: id})
		}(i, id)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
		}
	}
	assert.Equal(t, 3, ok)

	final, err := f.svc.GetByCode(context.Background(), res.Code)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, final.Status)
	assert.True(t, final.AmountPaid.Equal(final.TotalAmount))
}

func TestGetByCode(t *testing.T) {
	f := newReservationFixture(t)
	res := f.create(t, f.request(2, "+39 333 1111111"))

	got, err := f.svc.GetByCode(context.Background(), " res-"+res.Code[4:])
	require.NoError(t, err)
	assert.Equal(t, res.ID, got.ID)
	require.NotNil(t, got.Event)
	assert.Equal(t, "Capodanno", got.Event.Title)

	_, err = f.svc.GetByCode(context.Background(), "RES-ZZZZZZZZ")
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
	_, err = f.svc.GetByCode(context.Background(), "nonsense")
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
}

func TestCancel(t *testing.T) {
	f := newReservationFixture(t)
	res := f.create(t, f.request(2, "+39 333 1111111"))

	stranger := session.NewContext(context.Background(), session.Authenticated(models.User{ID: uuid.New()}, "x"))
	_, err := f.svc.Cancel(stranger, res.Code)
	assert.True(t, errors.Is(err, apperrors.ErrForbidden))

	_, err = f.svc.Cancel(context.Background(), res.Code)
	assert.True(t, apperrors.Is(err, apperrors.KindAuthRequired))

	cancelled, err := f.svc.Cancel(f.signedIn(), res.Code)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, cancelled.Status)

	table, _ := f.tables.GetByID(context.Background(), f.table.ID)
	assert.True(t, table.Available)

	_, err = f.contribute(context.Background(), res.Code, 1)
	assert.True(t, apperrors.Is(err, apperrors.KindInvalidState))

	_, err = f.svc.Cancel(f.signedIn(), res.Code)
	assert.True(t, apperrors.Is(err, apperrors.KindInvalidState))
}

func TestMine(t *testing.T) {
	f := newReservationFixture(t)
	f.create(t, f.request(2, "+39 333 1111111"))

	mine, err := f.svc.Mine(f.signedIn())
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	_, err = f.svc.Mine(context.Background())
	assert.True(t, apperrors.Is(err, apperrors.KindAuthRequired))
}

func TestExpireOverdue(t *testing.T) {
	f := newReservationFixture(t)
	past := f.create(t, f.request(2, "+39 333 1111111"))

	// Move the event into the past and add one whose date cannot be read.
	ev := f.repo.events[f.event.ID]
	ev.Date = "2025-10-30"
	f.repo.events[f.event.ID] = ev

	odd := models.Event{ID: uuid.New(), Date: "sometime"}
	f.repo.events[odd.ID] = odd
	f.repo.byCode["RES-ODD00000"] = models.Reservation{ID: uuid.New(), Code: "RES-ODD00000", EventID: odd.ID, Status: models.StatusConfirmed}

	n, err := f.svc.ExpireOverdue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, _ := f.repo.GetByCode(context.Background(), past.Code)
	assert.Equal(t, models.StatusCancelled, got.Status)
	odds, _ := f.repo.GetByCode(context.Background(), "RES-ODD00000")
	assert.Equal(t, models.StatusConfirmed, odds.Status)
	assert.Contains(t, f.publisher.subjects(), models.EventReservationExpired)
}

func TestExpireOverdueContinuesPastFailures(t *testing.T) {
	f := newReservationFixture(t)
	stuck := f.create(t, f.request(2, "+39 333 1111111"))

	ev := f.repo.events[f.event.ID]
	ev.Date = "2025-10-30"
	f.repo.events[f.event.ID] = ev
	f.repo.byCode["RES-LATE0000"] = models.Reservation{ID: uuid.New(), Code: "RES-LATE0000", EventID: f.event.ID, Status: models.StatusConfirmed}
	f.repo.failUpdate[stuck.Code] = errors.New("connection reset")

	n, err := f.svc.ExpireOverdue(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), stuck.Code)
	assert.Equal(t, 1, n)

	late, _ := f.repo.GetByCode(context.Background(), "RES-LATE0000")
	assert.Equal(t, models.StatusCancelled, late.Status)
}

func TestReservationTickets(t *testing.T) {
	f := newReservationFixture(t)
	res := f.create(t, f.request(2, "+39 333 1111111"))
	first, second := uuid.NewString(), uuid.NewString()

	got, err := f.svc.LinkTicket(f.signedIn(), res.Code, first)
	require.NoError(t, err)
	assert.Equal(t, []string{first}, got.Tickets)
	assert.Equal(t, 2, got.Seats)

	_, err = f.svc.LinkTicket(f.signedIn(), res.Code, first)
	assert.True(t, apperrors.Is(err, apperrors.KindInvalidState))

	_, err = f.svc.LinkTicket(f.signedIn(), res.Code, second)
	require.NoError(t, err)

	_, err = f.svc.LinkTicket(f.signedIn(), res.Code, uuid.NewString())
	assert.True(t, apperrors.Is(err, apperrors.KindValidation), "one ticket per seat")

	listed, err := f.svc.Tickets(context.Background(), res.Code)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{first, second}, listed.Tickets)

	got, err = f.svc.UnlinkTicket(f.signedIn(), res.Code, first)
	require.NoError(t, err)
	assert.Equal(t, []string{second}, got.Tickets)

	_, err = f.svc.UnlinkTicket(f.signedIn(), res.Code, first)
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
}

func TestReservationTicketsRejects(t *testing.T) {
	f := newReservationFixture(t)
	res := f.create(t, f.request(2, "+39 333 1111111"))

	_, err := f.svc.LinkTicket(context.Background(), res.Code, uuid.NewString())
	assert.True(t, apperrors.Is(err, apperrors.KindAuthRequired))

	stranger := session.NewContext(context.Background(), session.Authenticated(models.User{ID: uuid.New()}, "x"))
	_, err = f.svc.LinkTicket(stranger, res.Code, uuid.NewString())
	assert.True(t, errors.Is(err, apperrors.ErrForbidden))

	_, err = f.svc.LinkTicket(f.signedIn(), res.Code, "ticket-1")
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))

	_, err = f.svc.LinkTicket(f.signedIn(), "RES-ZZZZZZZZ", uuid.NewString())
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))

	_, err = f.svc.Cancel(f.signedIn(), res.Code)
	require.NoError(t, err)
	_, err = f.svc.LinkTicket(f.signedIn(), res.Code, uuid.NewString())
	assert.True(t, apperrors.Is(err, apperrors.KindInvalidState))
}
