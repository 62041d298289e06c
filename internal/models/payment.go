package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/gigmarket-backend/internal/domain/valueobject"
)

// Payment — escrow-транзакция, привязанная к заказу один к одному.
// Инвариант: PlatformFee + FreelancerAmount == Amount в любой момент;
// поля пересчитываются только вместе через valueobject.SplitFee.
type Payment struct {
	ID           uuid.UUID `db:"id" json:"id"`
	OrderID      uuid.UUID `db:"order_id" json:"order_id"`
	ClientID     uuid.UUID `db:"client_id" json:"client_id"`
	FreelancerID uuid.UUID `db:"freelancer_id" json:"freelancer_id"`

	Amount           decimal.Decimal `db:"amount" json:"amount"`
	PlatformFee      decimal.Decimal `db:"platform_fee" json:"platform_fee"`
	FreelancerAmount decimal.Decimal `db:"freelancer_amount" json:"freelancer_amount"`

	Status valueobject.PaymentStatus `db:"status" json:"status"`

	// Идентификаторы на стороне платёжного процессора.
	ProcessorIntentID *string `db:"processor_intent_id" json:"processor_intent_id,omitempty"`
	ProcessorChargeID *string `db:"processor_charge_id" json:"processor_charge_id,omitempty"`
	ProcessorRefundID *string `db:"processor_refund_id" json:"processor_refund_id,omitempty"`

	RefundReason  *string `db:"refund_reason" json:"refund_reason,omitempty"`
	DisputeReason *string `db:"dispute_reason" json:"dispute_reason,omitempty"`

	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	RefundedAt  *time.Time `db:"refunded_at" json:"refunded_at,omitempty"`
}

// FeeConsistent проверяет инвариант разбивки суммы.
func (p *Payment) FeeConsistent() bool {
	return p.PlatformFee.Add(p.FreelancerAmount).Equal(p.Amount)
}
