package external

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"pierre/internal/models"

	"github.com/shopspring/decimal"
)

// Gateway payment statuses
const (
	PaymentStatusNew        = "NEW"
	PaymentStatusAuthorized = "AUTHORIZED"
	PaymentStatusConfirmed  = "CONFIRMED"
	PaymentStatusCancelled  = "CANCELLED"
	PaymentStatusRejected   = "REJECTED"
	PaymentStatusExpired    = "EXPIRED"
)

type PaymentClient struct {
	baseURL     string
	teamSlug    string
	password    string
	currency    string
	language    string
	callbackURL string
	httpClient  *http.Client
}

type PaymentConfig struct {
	BaseURL  string
	TeamSlug string
	Password string
	Currency string
	Language string
	// CallbackURL is where the gateway redirects and notifies, e.g.
	// http://localhost:8081/api/payments. Empty disables callbacks.
	CallbackURL string
	Timeout     time.Duration
}

// Wire types. Amounts travel in euro cents.
type (
	initRequest struct {
		TeamSlug        string `json:"teamSlug"`
		Token           string `json:"token"`
		Amount          int64  `json:"amount"`
		OrderID         string `json:"orderId"`
		Currency        string `json:"currency"`
		Description     string `json:"description,omitempty"`
		Language        string `json:"language,omitempty"`
		SuccessURL      string `json:"successURL,omitempty"`
		FailURL         string `json:"failURL,omitempty"`
		NotificationURL string `json:"notificationURL,omitempty"`
	}

	initResponse struct {
		Success      bool   `json:"success"`
		PaymentID    string `json:"paymentId"`
		Amount       int64  `json:"amount"`
		Currency     string `json:"currency"`
		PaymentURL   string `json:"paymentURL"`
		ClientSecret string `json:"clientSecret"`
		Message      string `json:"message,omitempty"`
	}

	gatewayPayment struct {
		PaymentID string `json:"paymentId"`
		OrderID   string `json:"orderId"`
		Status    string `json:"status"`
		Amount    int64  `json:"amount"`
	}

	checkResponse struct {
		Success  bool             `json:"success"`
		Payments []gatewayPayment `json:"payments"`
	}
)

// PaymentIntent is an initialized gateway payment waiting for authorization.
type PaymentIntent struct {
	PaymentID    string
	OrderID      string
	ClientSecret string
	PaymentURL   string
	Amount       decimal.Decimal
	Currency     string
}

// Response renders the intent for the API.
func (pi *PaymentIntent) Response() models.PaymentIntentResponse {
	return models.PaymentIntentResponse{
		PaymentID:    pi.PaymentID,
		ClientSecret: pi.ClientSecret,
		PaymentURL:   pi.PaymentURL,
		Amount:       models.FormatEuro(pi.Amount),
		Currency:     pi.Currency,
	}
}

// PaymentState is the gateway's view of a single payment.
type PaymentState struct {
	PaymentID string
	OrderID   string
	Status    string
	Amount    decimal.Decimal
}

// Authorized reports whether the funds are held or already captured.
func (ps *PaymentState) Authorized() bool {
	return ps.Status == PaymentStatusAuthorized || ps.Status == PaymentStatusConfirmed
}

func NewPaymentClient(cfg PaymentConfig) *PaymentClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Currency == "" {
		cfg.Currency = "EUR"
	}
	if cfg.Language == "" {
		cfg.Language = "it"
	}

	return &PaymentClient{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		teamSlug:    cfg.TeamSlug,
		password:    cfg.Password,
		currency:    cfg.Currency,
		language:    cfg.Language,
		callbackURL: strings.TrimRight(cfg.CallbackURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// generateToken signs a request: values of the given params plus team slug
// and password, ordered by key, concatenated and SHA-256 hashed.
func (pc *PaymentClient) generateToken(params map[string]string) string {
	params["TeamSlug"] = pc.teamSlug
	params["Password"] = pc.password

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, key := range keys {
		sb.WriteString(params[key])
	}

	hash := sha256.Sum256([]byte(sb.String()))
	return hex.EncodeToString(hash[:])
}

func (pc *PaymentClient) post(ctx context.Context, path string, body any, out any) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, pc.baseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := pc.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// InitPayment opens a payment of amount euros for orderID.
func (pc *PaymentClient) InitPayment(ctx context.Context, amount decimal.Decimal, orderID, description string) (*PaymentIntent, error) {
	minor := models.ToMinorUnits(amount)
	token := pc.generateToken(map[string]string{
		"Amount":   strconv.FormatInt(minor, 10),
		"Currency": pc.currency,
		"OrderId":  orderID,
	})

	req := initRequest{
		TeamSlug:    pc.teamSlug,
		Token:       token,
		Amount:      minor,
		OrderID:     orderID,
		Currency:    pc.currency,
		Description: description,
		Language:    pc.language,
	}
	if pc.callbackURL != "" {
		req.SuccessURL = pc.callbackURL + "/success"
		req.FailURL = pc.callbackURL + "/fail"
		req.NotificationURL = pc.callbackURL + "/notifications"
	}

	var result initResponse
	if err := pc.post(ctx, "/api/v1/PaymentInit/init", req, &result); err != nil {
		return nil, fmt.Errorf("failed to init payment: %w", err)
	}
	if !result.Success {
		return nil, fmt.Errorf("payment init failed: %s", result.Message)
	}

	secret := result.ClientSecret
	if secret == "" {
		// Older gateway builds do not issue a secret; the signed token binds the payment instead.
		secret = token
	}

	return &PaymentIntent{
		PaymentID:    result.PaymentID,
		OrderID:      orderID,
		ClientSecret: secret,
		PaymentURL:   result.PaymentURL,
		Amount:       models.FromMinorUnits(result.Amount),
		Currency:     result.Currency,
	}, nil
}

// CheckPayment returns the gateway state of paymentID.
func (pc *PaymentClient) CheckPayment(ctx context.Context, paymentID string) (*PaymentState, error) {
	token := pc.generateToken(map[string]string{
		"PaymentId": paymentID,
	})

	req := map[string]string{
		"teamSlug":  pc.teamSlug,
		"token":     token,
		"paymentId": paymentID,
	}

	var result checkResponse
	if err := pc.post(ctx, "/api/v1/PaymentCheck/check", req, &result); err != nil {
		return nil, fmt.Errorf("failed to check payment: %w", err)
	}

	for _, p := range result.Payments {
		if p.PaymentID == paymentID {
			return &PaymentState{
				PaymentID: p.PaymentID,
				OrderID:   p.OrderID,
				Status:    p.Status,
				Amount:    models.FromMinorUnits(p.Amount),
			}, nil
		}
	}
	return nil, fmt.Errorf("payment %s not found at gateway", paymentID)
}

// ConfirmPayment captures an authorized payment.
func (pc *PaymentClient) ConfirmPayment(ctx context.Context, paymentID string, amount decimal.Decimal) error {
	minor := models.ToMinorUnits(amount)
	token := pc.generateToken(map[string]string{
		"Amount":    strconv.FormatInt(minor, 10),
		"PaymentId": paymentID,
	})

	reqData := map[string]any{
		"teamSlug":  pc.teamSlug,
		"token":     token,
		"paymentId": paymentID,
		"amount":    minor,
	}
	if err := pc.post(ctx, "/api/v1/PaymentConfirm/confirm", reqData, nil); err != nil {
		return fmt.Errorf("failed to confirm payment: %w", err)
	}
	return nil
}

// CancelPayment releases an authorized payment.
func (pc *PaymentClient) CancelPayment(ctx context.Context, paymentID string, reason string) error {
	token := pc.generateToken(map[string]string{
		"PaymentId": paymentID,
	})

	reqData := map[string]any{
		"teamSlug":  pc.teamSlug,
		"token":     token,
		"paymentId": paymentID,
		"reason":    reason,
	}
	if err := pc.post(ctx, "/api/v1/PaymentCancel/cancel", reqData, nil); err != nil {
		return fmt.Errorf("failed to cancel payment: %w", err)
	}
	return nil
}
