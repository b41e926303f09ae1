package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "pierre/internal/errors"
	"pierre/internal/models"
)

// APIClient talks to the reservation service over HTTP. Bearer tokens are
// passed per call so the client itself holds no identity.
type APIClient struct {
	baseURL    string
	httpClient *http.Client
}

type APIConfig struct {
	BaseURL string
	Timeout time.Duration
}

func NewAPIClient(cfg APIConfig) *APIClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &APIClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// do sends one request and returns the body of a 2xx answer. Transport
// failures are KindLookupFailed; non-2xx answers carry the server's kind
// when it sent one, and 404 is always KindNotFound.
func (ac *APIClient) do(ctx context.Context, method, path, token string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, ac.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := ac.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindLookupFailed, err, "%s %s failed", method, path)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindLookupFailed, err, "failed to read response of %s %s", method, path)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return data, nil
	}
	return nil, statusError(resp.StatusCode, data)
}

func statusError(status int, data []byte) error {
	var body models.ErrorResponse
	_ = json.Unmarshal(data, &body)

	msg := body.Error
	if msg == "" {
		msg = fmt.Sprintf("unexpected status code: %d", status)
	}

	if status == http.StatusNotFound {
		return apperrors.New(apperrors.KindNotFound, "%s", msg)
	}
	if body.Kind != "" {
		return apperrors.New(apperrors.Kind(body.Kind), "%s", msg)
	}
	if status == http.StatusUnauthorized {
		return apperrors.New(apperrors.KindAuthRequired, "%s", msg)
	}
	return apperrors.New(apperrors.KindLookupFailed, "%s", msg)
}

// decode treats an empty body as the zero value.
func decode(data []byte, out any) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return apperrors.Wrap(apperrors.KindLookupFailed, err, "malformed response")
	}
	return nil
}

// ListEvents - GET /events
func (ac *APIClient) ListEvents(ctx context.Context) ([]models.Event, error) {
	data, err := ac.do(ctx, http.MethodGet, "/events", "", nil)
	if err != nil {
		return nil, err
	}
	var result models.ListEventsResponse
	if err := decode(data, &result); err != nil {
		return nil, err
	}
	return result.Events, nil
}

// ListTables - GET /tables/event/{id}
func (ac *APIClient) ListTables(ctx context.Context, eventID string) ([]models.Table, error) {
	data, err := ac.do(ctx, http.MethodGet, "/tables/event/"+url.PathEscape(eventID), "", nil)
	if err != nil {
		return nil, err
	}
	var result models.TablesResponse
	if err := decode(data, &result); err != nil {
		return nil, err
	}

	tables := make([]models.Table, 0, len(result.Tables))
	for _, tr := range result.Tables {
		t, err := tr.ToTable()
		if err != nil {
			return nil, apperrors.Wrap(apperrors.KindLookupFailed, err, "malformed table")
		}
		tables = append(tables, t)
	}
	return tables, nil
}

func (ac *APIClient) reservation(data []byte) (models.Reservation, error) {
	var rr models.ReservationResponse
	if len(bytes.TrimSpace(data)) == 0 {
		return models.Reservation{}, apperrors.New(apperrors.KindLookupFailed, "empty reservation response")
	}
	if err := decode(data, &rr); err != nil {
		return models.Reservation{}, err
	}
	r, err := rr.ToReservation()
	if err != nil {
		return models.Reservation{}, apperrors.Wrap(apperrors.KindLookupFailed, err, "malformed reservation")
	}
	return r, nil
}

// GetReservationByCode - GET /reservations/code/{code}
func (ac *APIClient) GetReservationByCode(ctx context.Context, code string) (models.Reservation, error) {
	data, err := ac.do(ctx, http.MethodGet, "/reservations/code/"+url.PathEscape(code), "", nil)
	if err != nil {
		return models.Reservation{}, err
	}
	return ac.reservation(data)
}

// CreatePaymentIntent - POST /reservations/create-payment-intent
func (ac *APIClient) CreatePaymentIntent(ctx context.Context, token string, req models.CreateReservationRequest) (models.PaymentIntentResponse, error) {
	var intent models.PaymentIntentResponse
	data, err := ac.do(ctx, http.MethodPost, "/reservations/create-payment-intent", token, req)
	if err != nil {
		return intent, err
	}
	err = decode(data, &intent)
	return intent, err
}

// CreateWithPayment - POST /reservations/create-with-payment
func (ac *APIClient) CreateWithPayment(ctx context.Context, token string, req models.CreateWithPaymentRequest) (models.Reservation, error) {
	data, err := ac.do(ctx, http.MethodPost, "/reservations/create-with-payment", token, req)
	if err != nil {
		return models.Reservation{}, err
	}
	return ac.reservation(data)
}

// ContributionIntent - POST /reservations/code/{code}/payment-intent
func (ac *APIClient) ContributionIntent(ctx context.Context, token, code string, numPeople int) (models.PaymentIntentResponse, error) {
	var intent models.PaymentIntentResponse
	path := "/reservations/code/" + url.PathEscape(code) + "/payment-intent"
	data, err := ac.do(ctx, http.MethodPost, path, token, models.ContributionIntentRequest{NumPeople: numPeople})
	if err != nil {
		return intent, err
	}
	err = decode(data, &intent)
	return intent, err
}

// Contribute - POST /reservations/code/{code}/contribute
func (ac *APIClient) Contribute(ctx context.Context, token, code string, req models.ContributeRequest) (models.Reservation, error) {
	path := "/reservations/code/" + url.PathEscape(code) + "/contribute"
	data, err := ac.do(ctx, http.MethodPost, path, token, req)
	if err != nil {
		return models.Reservation{}, err
	}
	return ac.reservation(data)
}

// CancelReservation - POST /reservations/code/{code}/cancel
func (ac *APIClient) CancelReservation(ctx context.Context, token, code string) (models.Reservation, error) {
	path := "/reservations/code/" + url.PathEscape(code) + "/cancel"
	data, err := ac.do(ctx, http.MethodPost, path, token, nil)
	if err != nil {
		return models.Reservation{}, err
	}
	return ac.reservation(data)
}

// MyReservations - GET /reservations/mine
func (ac *APIClient) MyReservations(ctx context.Context, token string) ([]models.Reservation, error) {
	data, err := ac.do(ctx, http.MethodGet, "/reservations/mine", token, nil)
	if err != nil {
		return nil, err
	}
	var result models.ReservationsResponse
	if err := decode(data, &result); err != nil {
		return nil, err
	}
	out := make([]models.Reservation, 0, len(result.Reservations))
	for _, rr := range result.Reservations {
		r, err := rr.ToReservation()
		if err != nil {
			return nil, apperrors.Wrap(apperrors.KindLookupFailed, err, "malformed reservation")
		}
		out = append(out, r)
	}
	return out, nil
}

// Login - POST /auth/login
func (ac *APIClient) Login(ctx context.Context, email, password string) (models.AuthResponse, error) {
	var result models.AuthResponse
	data, err := ac.do(ctx, http.MethodPost, "/auth/login", "", models.LoginRequest{Email: email, Password: password})
	if err != nil {
		return result, err
	}
	if err := decode(data, &result); err != nil {
		return result, err
	}
	if result.Token == "" {
		return result, apperrors.New(apperrors.KindAuthRequired, "login returned no token")
	}
	return result, nil
}
