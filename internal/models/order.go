package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/gigmarket-backend/internal/domain/valueobject"
)

// Order описывает покупку гига. Заказы никогда не удаляются —
// история нужна для аудита и споров.
type Order struct {
	ID           uuid.UUID               `db:"id" json:"id"`
	GigID        uuid.UUID               `db:"gig_id" json:"gig_id"`
	ClientID     uuid.UUID               `db:"client_id" json:"client_id"`
	FreelancerID uuid.UUID               `db:"freelancer_id" json:"freelancer_id"`
	Status       valueobject.OrderStatus `db:"status" json:"status"`
	// Amount фиксируется из цены гига при создании и больше не меняется.
	Amount        decimal.Decimal `db:"amount" json:"amount"`
	Requirements  string          `db:"requirements" json:"requirements"`
	DeliveryDate  time.Time       `db:"delivery_date" json:"delivery_date"`
	CompletedDate *time.Time      `db:"completed_date" json:"completed_date,omitempty"`

	// Оценка выставляется клиентом один раз после завершения.
	RatingScore  *int       `db:"rating_score" json:"rating_score,omitempty"`
	RatingReview *string    `db:"rating_review" json:"rating_review,omitempty"`
	RatedAt      *time.Time `db:"rated_at" json:"rated_at,omitempty"`

	RevisionsRequested  int `db:"revisions_requested" json:"revisions_requested"`
	RevisionsCompleted  int `db:"revisions_completed" json:"revisions_completed"`
	RevisionsMaxAllowed int `db:"revisions_max_allowed" json:"revisions_max_allowed"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`

	// Сообщения загружаются отдельно.
	Messages []OrderMessage `json:"messages,omitempty"`
}

// OrderMessage — сообщение в чате заказа (append-only журнал).
type OrderMessage struct {
	ID        uuid.UUID `db:"id" json:"id"`
	OrderID   uuid.UUID `db:"order_id" json:"order_id"`
	SenderID  uuid.UUID `db:"sender_id" json:"sender_id"`
	Body      string    `db:"body" json:"body"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// IsParty сообщает, является ли пользователь стороной заказа.
func (o *Order) IsParty(userID uuid.UUID) bool {
	return o.ClientID == userID || o.FreelancerID == userID
}

// OtherParty возвращает вторую сторону заказа.
func (o *Order) OtherParty(userID uuid.UUID) uuid.UUID {
	if o.ClientID == userID {
		return o.FreelancerID
	}
	return o.ClientID
}

// IsRated сообщает, выставлена ли оценка.
func (o *Order) IsRated() bool {
	return o.RatingScore != nil
}

// IsOverdue сообщает, просрочен ли заказ.
func (o *Order) IsOverdue(now time.Time) bool {
	return now.After(o.DeliveryDate) &&
		o.Status != valueobject.OrderStatusCompleted &&
		o.Status != valueobject.OrderStatusCancelled
}

// DaysRemaining возвращает число дней до дедлайна, но не меньше нуля.
func (o *Order) DaysRemaining(now time.Time) int {
	if o.Status == valueobject.OrderStatusCompleted || o.Status == valueobject.OrderStatusCancelled {
		return 0
	}
	remaining := o.DeliveryDate.Sub(now)
	if remaining <= 0 {
		return 0
	}
	return int((remaining + 23*time.Hour) / (24 * time.Hour))
}
