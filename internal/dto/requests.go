package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// RegisterRequest represents the request to register a new user
type RegisterRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// LoginRequest represents the request to log in
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest represents the request to refresh a token pair
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// CreateGigRequest represents the request to publish a gig
type CreateGigRequest struct {
	Title        string          `json:"title" binding:"required"`
	Description  string          `json:"description" binding:"required"`
	Category     string          `json:"category" binding:"required"`
	Price        decimal.Decimal `json:"price" binding:"required"`
	DeliveryDays int             `json:"delivery_days" binding:"required"`
	Revisions    int             `json:"revisions"`
	Tags         []string        `json:"tags"`
}

// PlaceOrderRequest represents the request to place an order for a gig
type PlaceOrderRequest struct {
	GigID        string `json:"gig_id" binding:"required"`
	Requirements string `json:"requirements" binding:"required"`
	DeliveryDate string `json:"delivery_date" binding:"required"`
}

// ParseDeliveryDate converts the RFC3339 delivery date string
func (r *PlaceOrderRequest) ParseDeliveryDate() (time.Time, error) {
	return time.Parse(time.RFC3339, r.DeliveryDate)
}

// UpdateOrderStatusRequest represents the request to change an order status
type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// SendMessageRequest represents the request to send an order or dispute message
type SendMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

// RateOrderRequest represents the request to rate a completed order
type RateOrderRequest struct {
	Score  int     `json:"score" binding:"required"`
	Review *string `json:"review"`
}

// CreateIntentRequest represents the request to start an escrow payment
type CreateIntentRequest struct {
	OrderID string `json:"order_id" binding:"required"`
}

// ConfirmPaymentRequest represents the request to confirm an escrow payment
type ConfirmPaymentRequest struct {
	PaymentID string `json:"payment_id" binding:"required"`
}

// ReleasePaymentRequest represents the request to release escrowed funds
type ReleasePaymentRequest struct {
	PaymentID string `json:"payment_id" binding:"required"`
}

// RefundPaymentRequest represents the request to refund a payment.
// A direct refund is always a full refund and cancels the order;
// partial refunds exist only as an admin dispute resolution.
type RefundPaymentRequest struct {
	PaymentID string `json:"payment_id" binding:"required"`
	Reason    string `json:"reason"`
}

// OpenDisputeRequest represents the request to open a dispute over an order
type OpenDisputeRequest struct {
	OrderID string `json:"order_id" binding:"required"`
	Type    string `json:"type" binding:"required"`
	Reason  string `json:"reason" binding:"required"`
}

// AddEvidenceRequest represents the text fields of an evidence submission.
// An optional file comes alongside as multipart form data.
type AddEvidenceRequest struct {
	Type        string `form:"type" binding:"required"`
	Description string `form:"description" binding:"required"`
}

// ResolveDisputeRequest represents the admin decision on a dispute
type ResolveDisputeRequest struct {
	Resolution    string           `json:"resolution" binding:"required"`
	AdminNotes    string           `json:"admin_notes"`
	PartialAmount *decimal.Decimal `json:"partial_amount"`
}
