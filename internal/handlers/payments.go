package handlers

import (
	"net/http"

	"pierre/internal/external"
	"pierre/internal/models"
	"pierre/internal/service"

	"github.com/gin-gonic/gin"
)

// NotifyPaymentCompleted - GET /api/payments/success
// Browser redirect after the gateway authorized a payment
func (h *Handlers) NotifyPaymentCompleted(c *gin.Context) {
	h.paymentRedirect(c, external.PaymentStatusAuthorized)
}

// NotifyPaymentFailed - GET /api/payments/fail
func (h *Handlers) NotifyPaymentFailed(c *gin.Context) {
	h.paymentRedirect(c, external.PaymentStatusRejected)
}

func (h *Handlers) paymentRedirect(c *gin.Context, status string) {
	orderID := c.Query("orderId")
	if orderID == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "orderId is required", Kind: "validation"})
		return
	}

	h.reservations.HandlePaymentNotification(c.Request.Context(), service.PaymentOutcome{
		PaymentID: c.Query("paymentId"),
		OrderID:   orderID,
		Status:    status,
	})
	c.Status(http.StatusOK)
}

// PaymentNotification is the gateway's server to server callback
type PaymentNotification struct {
	PaymentID string `json:"PaymentId" binding:"required"`
	OrderID   string `json:"OrderId"`
	Status    string `json:"Status" binding:"required"`
}

// OnPaymentUpdates - POST /api/payments/notifications
func (h *Handlers) OnPaymentUpdates(c *gin.Context) {
	var n PaymentNotification
	if err := c.ShouldBindJSON(&n); err != nil {
		badRequest(c, err)
		return
	}

	h.reservations.HandlePaymentNotification(c.Request.Context(), service.PaymentOutcome{
		PaymentID: n.PaymentID,
		OrderID:   n.OrderID,
		Status:    n.Status,
	})
	c.Status(http.StatusOK)
}
