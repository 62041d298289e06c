package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// События, которые пушатся участникам через WebSocket.
const (
	EventOrderStatusChanged = "order_status_changed"
	EventOrderMessage       = "order_message"
	EventPaymentCompleted   = "payment_completed"
	EventPaymentRefunded    = "payment_refunded"
	EventDisputeOpened      = "dispute_opened"
	EventDisputeResolved    = "dispute_resolved"
)

// Notification — сохранённое уведомление пользователя.
type Notification struct {
	ID        uuid.UUID       `db:"id" json:"id"`
	UserID    uuid.UUID       `db:"user_id" json:"user_id"`
	Event     string          `db:"event" json:"event"`
	Payload   json.RawMessage `db:"payload" json:"payload"`
	IsRead    bool            `db:"is_read" json:"is_read"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}
