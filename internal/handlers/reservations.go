package handlers

import (
	"net/http"

	"pierre/internal/models"

	"github.com/gin-gonic/gin"
)

// CreatePaymentIntent - POST /api/reservations/create-payment-intent
// Validates the reservation and opens a payment for the creator's share
func (h *Handlers) CreatePaymentIntent(c *gin.Context) {
	var req models.CreateReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	intent, err := h.reservations.CreatePaymentIntent(c.Request.Context(), &req)
	if err != nil {
		respondError(c, "create payment intent", err)
		return
	}
	c.JSON(http.StatusOK, intent)
}

// CreateWithPayment - POST /api/reservations/create-with-payment
// Stores the reservation once its payment is authorized
func (h *Handlers) CreateWithPayment(c *gin.Context) {
	var req models.CreateWithPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	res, err := h.reservations.CreateWithPayment(c.Request.Context(), &req)
	if err != nil {
		respondError(c, "create reservation", err)
		return
	}
	c.JSON(http.StatusCreated, models.NewReservationResponse(*res))
}

// GetReservation - GET /api/reservations/code/:code
func (h *Handlers) GetReservation(c *gin.Context) {
	res, err := h.reservations.GetByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, "get reservation", err)
		return
	}
	c.JSON(http.StatusOK, models.NewReservationResponse(*res))
}

// MyReservations - GET /api/reservations/mine
func (h *Handlers) MyReservations(c *gin.Context) {
	list, err := h.reservations.Mine(c.Request.Context())
	if err != nil {
		respondError(c, "list reservations", err)
		return
	}
	out := make([]models.ReservationResponse, len(list))
	for i, r := range list {
		out[i] = models.NewReservationResponse(r)
	}
	c.JSON(http.StatusOK, models.ReservationsResponse{Reservations: out})
}

// ContributionIntent - POST /api/reservations/code/:code/payment-intent
func (h *Handlers) ContributionIntent(c *gin.Context) {
	var req models.ContributionIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	intent, err := h.reservations.ContributionIntent(c.Request.Context(), c.Param("code"), req.NumPeople)
	if err != nil {
		respondError(c, "create contribution intent", err)
		return
	}
	c.JSON(http.StatusOK, intent)
}

// Contribute - POST /api/reservations/code/:code/contribute
func (h *Handlers) Contribute(c *gin.Context) {
	var req models.ContributeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	res, err := h.reservations.Contribute(c.Request.Context(), c.Param("code"), &req)
	if err != nil {
		respondError(c, "apply contribution", err)
		return
	}
	c.JSON(http.StatusOK, models.NewReservationResponse(*res))
}

// CancelReservation - POST /api/reservations/code/:code/cancel
func (h *Handlers) CancelReservation(c *gin.Context) {
	res, err := h.reservations.Cancel(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, "cancel reservation", err)
		return
	}
	c.JSON(http.StatusOK, models.NewReservationResponse(*res))
}

// ReservationTickets - GET /api/reservations/code/:code/tickets
func (h *Handlers) ReservationTickets(c *gin.Context) {
	tickets, err := h.reservations.Tickets(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, "list reservation tickets", err)
		return
	}
	c.JSON(http.StatusOK, tickets)
}

// LinkTicket - POST /api/reservations/code/:code/tickets
func (h *Handlers) LinkTicket(c *gin.Context) {
	var req models.LinkTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	tickets, err := h.reservations.LinkTicket(c.Request.Context(), c.Param("code"), req.TicketID)
	if err != nil {
		respondError(c, "link ticket", err)
		return
	}
	c.JSON(http.StatusOK, tickets)
}

// UnlinkTicket - DELETE /api/reservations/code/:code/tickets/:ticketId
func (h *Handlers) UnlinkTicket(c *gin.Context) {
	tickets, err := h.reservations.UnlinkTicket(c.Request.Context(), c.Param("code"), c.Param("ticketId"))
	if err != nil {
		respondError(c, "unlink ticket", err)
		return
	}
	c.JSON(http.StatusOK, tickets)
}
