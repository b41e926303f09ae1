package cache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"pierre/internal/models"

	"github.com/go-redis/redismock/v9"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventsHitAndMiss(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := New(db, time.Minute, time.Minute)
	ctx := context.Background()

	mock.ExpectGet(eventsKey).RedisNil()
	_, ok := c.Events(ctx)
	assert.False(t, ok)

	events := []models.Event{{ID: uuid.New(), Title: "Jazz", Venue: "Blue Note", Date: "2025-11-20"}}
	data, err := json.Marshal(events)
	require.NoError(t, err)

	mock.ExpectSet(eventsKey, data, time.Minute).SetVal("OK")
	c.SetEvents(ctx, events)

	mock.ExpectGet(eventsKey).SetVal(string(data))
	got, ok := c.Events(ctx)
	require.True(t, ok)
	assert.Equal(t, events, got)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReservationRoundTrip(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := New(db, time.Minute, 30*time.Second)
	ctx := context.Background()

	res := &models.Reservation{
		ID:          uuid.New(),
		Code:        "RES-ABCD1234",
		Status:      models.StatusConfirmed,
		NumPeople:   2,
		TotalAmount: decimal.RequireFromString("50"),
		AmountPaid:  decimal.RequireFromString("25"),
	}
	data, err := json.Marshal(res)
	require.NoError(t, err)

	mock.ExpectSet(reservationKey+res.Code, data, 30*time.Second).SetVal("OK")
	c.SetReservation(ctx, res)

	mock.ExpectGet(reservationKey + res.Code).SetVal(string(data))
	got, ok := c.Reservation(ctx, res.Code)
	require.True(t, ok)
	assert.Equal(t, res.Code, got.Code)
	assert.True(t, got.AmountRemaining().Equal(decimal.RequireFromString("25")))

	mock.ExpectDel(reservationKey + res.Code).SetVal(1)
	c.InvalidateReservation(ctx, res.Code)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestErrorsReadAsMiss(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := New(db, time.Minute, time.Minute)

	mock.ExpectGet(reservationKey + "RES-X").SetErr(errors.New("connection refused"))
	_, ok := c.Reservation(context.Background(), "RES-X")
	assert.False(t, ok)

	mock.ExpectGet(eventsKey).SetVal("{not json")
	mock.ExpectDel(eventsKey).SetVal(1)
	_, ok = c.Events(context.Background())
	assert.False(t, ok)

	require.NoError(t, mock.ExpectationsWereMet())
}
