package external

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateToken_SortedByKey(t *testing.T) {
	pc := NewPaymentClient(PaymentConfig{TeamSlug: "team", Password: "secret"})
	a := pc.generateToken(map[string]string{"Amount": "2500", "OrderId": "o-1", "Currency": "EUR"})
	b := pc.generateToken(map[string]string{"OrderId": "o-1", "Currency": "EUR", "Amount": "2500"})
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestInitPayment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/PaymentInit/init", r.URL.Path)

		var req initRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, int64(2500), req.Amount)
		assert.Equal(t, "EUR", req.Currency)
		assert.NotEmpty(t, req.Token)

		assert.Equal(t, "http://api.local/payments/notifications", req.NotificationURL)

		_ = json.NewEncoder(w).Encode(initResponse{
			Success:    true,
			PaymentID:  "pay-1",
			Amount:     req.Amount,
			Currency:   req.Currency,
			PaymentURL: "https://pay.example/pay-1",
		})
	}))
	defer srv.Close()

	pc := NewPaymentClient(PaymentConfig{BaseURL: srv.URL, TeamSlug: "team", Password: "secret", CallbackURL: "http://api.local/payments/"})
	intent, err := pc.InitPayment(context.Background(), decimal.NewFromInt(25), "order-1", "Tavolo")
	require.NoError(t, err)
	assert.Equal(t, "pay-1", intent.PaymentID)
	assert.NotEmpty(t, intent.ClientSecret)
	assert.True(t, intent.Amount.Equal(decimal.NewFromInt(25)))
	assert.Equal(t, "25.00 €", intent.Response().Amount)
}

func TestInitPayment_Unsuccessful(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(initResponse{Success: false, Message: "bad token"})
	}))
	defer srv.Close()

	pc := NewPaymentClient(PaymentConfig{BaseURL: srv.URL})
	_, err := pc.InitPayment(context.Background(), decimal.NewFromInt(25), "order-1", "Tavolo")
	assert.ErrorContains(t, err, "bad token")
}

func TestCheckPayment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(checkResponse{
			Success: true,
			Payments: []gatewayPayment{
				{PaymentID: "other", Status: PaymentStatusRejected},
				{PaymentID: "pay-1", OrderID: "order-1", Status: PaymentStatusAuthorized, Amount: 5000},
			},
		})
	}))
	defer srv.Close()

	pc := NewPaymentClient(PaymentConfig{BaseURL: srv.URL})
	state, err := pc.CheckPayment(context.Background(), "pay-1")
	require.NoError(t, err)
	assert.True(t, state.Authorized())
	assert.True(t, state.Amount.Equal(decimal.NewFromInt(50)))

	_, err = pc.CheckPayment(context.Background(), "missing")
	assert.Error(t, err)
}

func TestConfirmPayment_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	pc := NewPaymentClient(PaymentConfig{BaseURL: srv.URL})
	err := pc.ConfirmPayment(context.Background(), "pay-1", decimal.NewFromInt(25))
	assert.ErrorContains(t, err, "502")
}
