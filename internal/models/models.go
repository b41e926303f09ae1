package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// FlexibleBool accepts booleans encoded as strings or numbers
type FlexibleBool bool

// UnmarshalJSON parses true/false, "1"/"0", "yes"/"no" and "on"/"off"
func (fb *FlexibleBool) UnmarshalJSON(data []byte) error {
	str := strings.Trim(string(data), `"`)

	switch strings.ToLower(str) {
	case "true", "1", "yes", "on":
		*fb = true
	case "false", "0", "no", "off":
		*fb = false
	default:
		return fmt.Errorf("invalid boolean value: %s", str)
	}
	return nil
}

// Bool returns the plain bool value
func (fb FlexibleBool) Bool() bool {
	return bool(fb)
}

// ListEventsResponse - GET /events
type ListEventsResponse struct {
	Events []Event `json:"events"`
}

// EventBucket - one date section of GET /events/grouped
type EventBucket struct {
	Date   string  `json:"date"`
	Header string  `json:"header"`
	Events []Event `json:"events"`
}

// GroupedEventsResponse - GET /events/grouped
type GroupedEventsResponse struct {
	Buckets []EventBucket `json:"buckets"`
}

// CreateEventRequest - POST /events
type CreateEventRequest struct {
	Title       string  `json:"title" binding:"required"`
	Venue       string  `json:"venue" binding:"required"`
	Date        string  `json:"date" binding:"required"`
	Image       string  `json:"image"`
	Status      *string `json:"status,omitempty"`
	Time        *string `json:"time,omitempty"`
	AgeLimit    *string `json:"ageLimit,omitempty"`
	EndTime     *string `json:"endTime,omitempty"`
	Price       *string `json:"price,omitempty"`
	Description *string `json:"description,omitempty"`
}

// TableResponse - table as exposed on the wire, money formatted as "X.XX €"
type TableResponse struct {
	ID                  string   `json:"id"`
	EventID             string   `json:"eventId"`
	Name                string   `json:"name"`
	Zone                *string  `json:"zone,omitempty"`
	Capacity            int      `json:"capacity"`
	MinSpend            string   `json:"minSpend"`
	TotalCost           string   `json:"totalCost"`
	Available           bool     `json:"available"`
	LocationDescription *string  `json:"locationDescription,omitempty"`
	Features            []string `json:"features,omitempty"`
}

// TablesResponse - GET /tables/event/{id}
type TablesResponse struct {
	Tables []TableResponse `json:"tables"`
}

// CreateTableRequest - POST /tables
type CreateTableRequest struct {
	EventID             string          `json:"eventId" binding:"required"`
	Name                string          `json:"name" binding:"required"`
	Zone                *string         `json:"zone,omitempty"`
	Capacity            int             `json:"capacity" binding:"required,min=1"`
	MinSpend            decimal.Decimal `json:"minSpend"`
	Available           *FlexibleBool   `json:"available,omitempty"`
	LocationDescription *string         `json:"locationDescription,omitempty"`
	Features            []string        `json:"features,omitempty"`
}

// ContactInfo identifies the person creating a reservation
type ContactInfo struct {
	Name    string `json:"contactName"`
	Surname string `json:"contactSurname"`
	Email   string `json:"contactEmail"`
	Phone   string `json:"contactPhone"`
}

// FullName joins name and surname
func (c ContactInfo) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(c.Name) + " " + strings.TrimSpace(c.Surname))
}

// CreateReservationRequest - POST /reservations/create-payment-intent.
// ContributionPeople is how many shares the creator pays up front.
type CreateReservationRequest struct {
	TableID            string   `json:"tableId" binding:"required"`
	EventID            string   `json:"eventId" binding:"required"`
	NumPeople          int      `json:"numPeople"`
	ContributionPeople int      `json:"contributionPeople,omitempty"`
	GuestPhones        []string `json:"guestPhones"`
	ContactInfo
	SpecialRequests *string `json:"specialRequests,omitempty"`
}

// CreateWithPaymentRequest - POST /reservations/create-with-payment
type CreateWithPaymentRequest struct {
	CreateReservationRequest
	PaymentID string `json:"paymentId" binding:"required"`
}

// ContributionIntentRequest - POST /reservations/code/{code}/payment-intent
type ContributionIntentRequest struct {
	NumPeople int `json:"numPeople"`
}

// ContributeRequest - POST /reservations/code/{code}/contribute
type ContributeRequest struct {
	NumPeople int    `json:"numPeople"`
	PaymentID string `json:"paymentId" binding:"required"`
}

// PaymentIntentResponse - handed to the payment authorization step
type PaymentIntentResponse struct {
	PaymentID    string `json:"paymentId"`
	ClientSecret string `json:"clientSecret"`
	PaymentURL   string `json:"paymentUrl,omitempty"`
	Amount       string `json:"amount"`
	Currency     string `json:"currency"`
}

// TableSummary - table fields embedded in a reservation
type TableSummary struct {
	ID                  string   `json:"id"`
	Name                string   `json:"name"`
	Zone                *string  `json:"zone,omitempty"`
	Capacity            int      `json:"capacity"`
	MinSpend            string   `json:"minSpend"`
	LocationDescription *string  `json:"locationDescription,omitempty"`
	Features            []string `json:"features,omitempty"`
}

// EventSummary - event fields embedded in a reservation
type EventSummary struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Venue string `json:"venue"`
	Date  string `json:"date"`
	Image string `json:"image"`
}

// ReservationResponse - reservation with table and event details
type ReservationResponse struct {
	ID              string        `json:"id"`
	ReservationCode string        `json:"reservationCode"`
	Status          string        `json:"status"`
	NumPeople       int           `json:"numPeople"`
	GuestPhones     []string      `json:"guestPhones,omitempty"`
	TotalAmount     string        `json:"totalAmount"`
	AmountPaid      string        `json:"amountPaid"`
	AmountRemaining string        `json:"amountRemaining"`
	ContactName     string        `json:"contactName"`
	ContactEmail    string        `json:"contactEmail"`
	ContactPhone    string        `json:"contactPhone"`
	SpecialRequests *string       `json:"specialRequests,omitempty"`
	CreatedAt       string        `json:"createdAt"`
	Table           *TableSummary `json:"table,omitempty"`
	Event           *EventSummary `json:"event,omitempty"`
}

// ReservationsResponse - GET /reservations/mine
type ReservationsResponse struct {
	Reservations []ReservationResponse `json:"reservations"`
}

// LinkTicketRequest - POST /reservations/code/{code}/tickets
type LinkTicketRequest struct {
	TicketID string `json:"ticketId" binding:"required"`
}

// TicketsResponse - entry tickets linked to a reservation, at most one per seat
type TicketsResponse struct {
	ReservationCode string   `json:"reservationCode"`
	Seats           int      `json:"seats"`
	Tickets         []string `json:"tickets"`
}

// LoginRequest - POST /auth/login
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RegisterRequest - POST /auth/register
type RegisterRequest struct {
	Email       string  `json:"email" binding:"required"`
	Password    string  `json:"password" binding:"required,min=8"`
	Name        string  `json:"name" binding:"required"`
	PhoneNumber *string `json:"phone_number,omitempty"`
}

// AuthResponse - POST /auth/login and /auth/register
type AuthResponse struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

// ErrorResponse - body of every non-2xx answer
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}
