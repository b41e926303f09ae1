package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEuroRoundTrip(t *testing.T) {
	assert.Equal(t, "25.00 €", FormatEuro(decimal.NewFromInt(25)))
	assert.Equal(t, "12.50 €", FormatEuro(decimal.RequireFromString("12.5")))

	for _, in := range []string{"25.00 €", "25.00€", "25,00 €", " 25 "} {
		d, err := ParseEuro(in)
		require.NoError(t, err, in)
		assert.True(t, d.Equal(decimal.NewFromInt(25)), in)
	}

	_, err := ParseEuro(" € ")
	assert.Error(t, err)
	_, err = ParseEuro("abc €")
	assert.Error(t, err)
}

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(2550), ToMinorUnits(decimal.RequireFromString("25.50")))
	assert.True(t, FromMinorUnits(2550).Equal(decimal.RequireFromString("25.5")))
}

func TestReservationResponse_Amounts(t *testing.T) {
	r := Reservation{
		ID:          uuid.New(),
		Code:        "RES-ABCD1234",
		Status:      StatusConfirmed,
		NumPeople:   2,
		TotalAmount: decimal.NewFromInt(50),
		AmountPaid:  decimal.NewFromInt(25),
		Table:       &Table{ID: uuid.New(), Name: "T1", Capacity: 4, MinSpend: decimal.NewFromInt(25)},
	}

	resp := NewReservationResponse(r)
	assert.Equal(t, "25.00 €", resp.AmountRemaining)
	require.NotNil(t, resp.Table)

	back, err := resp.ToReservation()
	require.NoError(t, err)
	assert.True(t, back.AmountPaid.Equal(r.AmountPaid))
	assert.True(t, back.AmountRemaining().Equal(decimal.NewFromInt(25)))
	assert.Equal(t, r.Table.ID, back.TableID)

	resp.AmountRemaining = "10.00 €"
	_, err = resp.ToReservation()
	assert.Error(t, err)
}
