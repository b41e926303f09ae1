package ledger

import (
	"testing"
	"time"

	apperrors "pierre/internal/errors"
	"pierre/internal/models"
	"pierre/internal/session"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, time.November, 1, 20, 0, 0, 0, time.UTC)

func euros(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func testTable(capacity int, minSpend string) models.Table {
	ms := euros(minSpend)
	return models.Table{
		ID:        uuid.New(),
		EventID:   uuid.New(),
		Name:      "Privé 4",
		Capacity:  capacity,
		MinSpend:  ms,
		TotalCost: ms.Mul(decimal.NewFromInt(int64(capacity))),
		Available: true,
	}
}

func testContact() models.ContactInfo {
	return models.ContactInfo{
		Name:    "Giulia",
		Surname: "Rossi",
		Email:   "giulia@example.com",
		Phone:   "+39 333 000 0000",
	}
}

func signedIn() *session.Session {
	return session.Authenticated(models.User{ID: uuid.New(), Email: "giulia@example.com"}, "token")
}

func TestContribute_SplitsTotalAcrossParticipants(t *testing.T) {
	r := models.Reservation{
		Code:        "RES-ABCD1234",
		Status:      models.StatusConfirmed,
		NumPeople:   2,
		TotalAmount: euros("50"),
		AmountPaid:  decimal.Zero,
	}

	first, amount, err := Contribute(r, 1, now)
	require.NoError(t, err)
	assert.True(t, amount.Equal(euros("25")))
	assert.True(t, first.AmountPaid.Equal(euros("25")))
	assert.True(t, first.AmountRemaining().Equal(euros("25")))
	assert.Equal(t, models.StatusConfirmed, first.Status)

	second, amount, err := Contribute(first, 1, now)
	require.NoError(t, err)
	assert.True(t, amount.Equal(euros("25")))
	assert.True(t, second.AmountPaid.Equal(euros("50")))
	assert.True(t, second.AmountRemaining().IsZero())
	assert.Equal(t, models.StatusCompleted, second.Status)

	// the input value is untouched
	assert.True(t, r.AmountPaid.IsZero())
}

func TestContribute_PaidPlusRemainingEqualsTotal(t *testing.T) {
	r := models.Reservation{
		Status:      models.StatusConfirmed,
		NumPeople:   6,
		TotalAmount: euros("300"),
		AmountPaid:  euros("50"),
	}
	for _, n := range []int{2, 1, 2} {
		next, _, err := Contribute(r, n, now)
		require.NoError(t, err)
		assert.True(t, next.AmountPaid.Add(next.AmountRemaining()).Equal(next.TotalAmount))
		assert.True(t, next.AmountPaid.GreaterThanOrEqual(r.AmountPaid))
		r = next
	}
}

func TestContribute_Overpayment(t *testing.T) {
	r := models.Reservation{
		Status:      models.StatusConfirmed,
		NumPeople:   4,
		TotalAmount: euros("200"),
		AmountPaid:  euros("150"),
	}

	next, amount, err := Contribute(r, 2, now)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindOverpayment))
	assert.True(t, amount.IsZero())
	assert.True(t, next.AmountPaid.Equal(euros("150")))
}

func TestContribute_RejectsNonConfirmed(t *testing.T) {
	for _, status := range []models.ReservationStatus{
		models.StatusPending, models.StatusCompleted, models.StatusCancelled,
	} {
		t.Run(string(status), func(t *testing.T) {
			r := models.Reservation{
				Status:      status,
				NumPeople:   2,
				TotalAmount: euros("50"),
				AmountPaid:  euros("25"),
			}
			_, err := ContributionAmount(r, 1)
			assert.True(t, apperrors.Is(err, apperrors.KindInvalidState))
		})
	}
}

func TestContribute_ShareRange(t *testing.T) {
	r := models.Reservation{
		Status:      models.StatusConfirmed,
		NumPeople:   3,
		TotalAmount: euros("90"),
	}
	_, err := ContributionAmount(r, 0)
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))
	_, err = ContributionAmount(r, 4)
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))

	amount, err := ContributionAmount(r, 3)
	require.NoError(t, err)
	assert.True(t, amount.Equal(euros("90")))
}

func TestValidateCreate_InsufficientGuestInfo(t *testing.T) {
	p := CreateParams{
		Table:       testTable(6, "25"),
		NumPeople:   3,
		GuestPhones: []string{"+39 111"},
		Contact:     testContact(),
	}

	_, err := ValidateCreate(p, signedIn())
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindInsufficientGuestInfo))
}

func TestValidateCreate_DuplicatePhonesCountOnce(t *testing.T) {
	p := CreateParams{
		Table:       testTable(6, "25"),
		NumPeople:   3,
		GuestPhones: []string{"+39 111", " +39 111 ", ""},
		Contact:     testContact(),
	}

	_, err := ValidateCreate(p, signedIn())
	assert.True(t, apperrors.Is(err, apperrors.KindInsufficientGuestInfo))
}

func TestValidateCreate_Order(t *testing.T) {
	valid := CreateParams{
		Table:       testTable(6, "25"),
		NumPeople:   3,
		GuestPhones: []string{"+39 111", "+39 222"},
		Contact:     testContact(),
	}

	tests := []struct {
		name    string
		mutate  func(p *CreateParams)
		session *session.Session
		kind    apperrors.Kind
	}{
		{
			name:    "contact checked before guests and auth",
			mutate:  func(p *CreateParams) { p.Contact.Email = ""; p.GuestPhones = nil },
			session: session.New(),
			kind:    apperrors.KindValidation,
		},
		{
			name:    "malformed email",
			mutate:  func(p *CreateParams) { p.Contact.Email = "not-an-email" },
			session: signedIn(),
			kind:    apperrors.KindValidation,
		},
		{
			name:    "zero people",
			mutate:  func(p *CreateParams) { p.NumPeople = 0 },
			session: signedIn(),
			kind:    apperrors.KindValidation,
		},
		{
			name:    "over capacity",
			mutate:  func(p *CreateParams) { p.NumPeople = 7 },
			session: signedIn(),
			kind:    apperrors.KindValidation,
		},
		{
			name:    "table without seats",
			mutate:  func(p *CreateParams) { p.Table.Capacity = 0; p.NumPeople = 1; p.GuestPhones = nil },
			session: signedIn(),
			kind:    apperrors.KindValidation,
		},
		{
			name:    "guests checked before auth",
			mutate:  func(p *CreateParams) { p.GuestPhones = nil },
			session: session.New(),
			kind:    apperrors.KindInsufficientGuestInfo,
		},
		{
			name:    "anonymous",
			mutate:  func(p *CreateParams) {},
			session: session.New(),
			kind:    apperrors.KindAuthRequired,
		},
		{
			name:    "below minimum spend",
			mutate:  func(p *CreateParams) { p.NumPeople = 2; p.GuestPhones = []string{"+39 111"} },
			session: signedIn(),
			kind:    apperrors.KindBelowMinimumSpend,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			p.GuestPhones = append([]string(nil), valid.GuestPhones...)
			tt.mutate(&p)
			_, err := ValidateCreate(p, tt.session)
			require.Error(t, err)
			assert.Equal(t, tt.kind, apperrors.KindOf(err))
		})
	}

	user, err := ValidateCreate(valid, signedIn())
	require.NoError(t, err)
	assert.Equal(t, "giulia@example.com", user.Email)
}

func TestMinimumTotal(t *testing.T) {
	assert.True(t, MinimumTotal(testTable(6, "25")).Equal(euros("75")))
	assert.True(t, MinimumTotal(testTable(5, "30")).Equal(euros("90")))
	assert.True(t, MinimumTotal(models.Table{Capacity: 4}).IsZero())
}

func TestNewReservation(t *testing.T) {
	user := models.User{ID: uuid.New()}
	p := CreateParams{
		Table:       testTable(4, "25"),
		EventID:     uuid.New(),
		NumPeople:   2,
		GuestPhones: []string{"+39 111"},
		Contact:     testContact(),
	}

	r, err := NewReservation(p, user, "RES-ABCD1234", now)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, r.Status)
	assert.True(t, r.TotalAmount.Equal(euros("50")))
	assert.True(t, r.AmountPaid.Equal(euros("25")))
	assert.Equal(t, "Giulia Rossi", r.ContactName)
	assert.Equal(t, user.ID, r.UserID)
	require.NotNil(t, r.Table)

	p.ContributionPeople = 2
	r, err = NewReservation(p, user, "RES-ABCD1235", now)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, r.Status)
	assert.True(t, r.AmountRemaining().IsZero())
}

func TestTransitions(t *testing.T) {
	assert.NoError(t, Transition(models.StatusPending, models.StatusConfirmed))
	assert.NoError(t, Transition(models.StatusConfirmed, models.StatusCompleted))
	assert.NoError(t, Transition(models.StatusConfirmed, models.StatusCancelled))

	for _, from := range []models.ReservationStatus{models.StatusCompleted, models.StatusCancelled} {
		for _, to := range []models.ReservationStatus{models.StatusPending, models.StatusConfirmed, models.StatusCompleted, models.StatusCancelled} {
			assert.False(t, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
	assert.False(t, CanTransition(models.StatusCompleted, models.StatusConfirmed))

	r := models.Reservation{Status: models.StatusCompleted}
	_, err := Cancel(r, now)
	assert.True(t, apperrors.Is(err, apperrors.KindInvalidState))
}

func TestClampPeople(t *testing.T) {
	assert.Equal(t, 1, ClampPeople(0, 4))
	assert.Equal(t, 4, ClampPeople(9, 4))
	assert.Equal(t, 3, ClampPeople(3, 4))
	assert.Equal(t, 1, ClampPeople(2, 0))
}

func TestCodes(t *testing.T) {
	c, err := NewCode()
	require.NoError(t, err)
	assert.True(t, ValidCode(c), c)
	assert.Regexp(t, `^RES-[A-Z0-9]{8}$`, c)

	assert.Equal(t, "RES-ABCD1234", NormalizeCode(" abcd1234 "))
	assert.Equal(t, "RES-ABCD1234", NormalizeCode("res-abcd1234"))
	assert.False(t, ValidCode("RES-abc"))
}

func TestCanLinkTicket(t *testing.T) {
	r := models.Reservation{Code: "RES-ABCD1234", Status: models.StatusConfirmed, NumPeople: 2}

	assert.NoError(t, CanLinkTicket(r, 0))
	assert.NoError(t, CanLinkTicket(r, 1))

	err := CanLinkTicket(r, 2)
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))

	r.Status = models.StatusCompleted
	assert.NoError(t, CanLinkTicket(r, 1))

	r.Status = models.StatusCancelled
	assert.True(t, apperrors.Is(CanLinkTicket(r, 0), apperrors.KindInvalidState))
}
