package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Gig описывает услугу, опубликованную фрилансером.
// Цена снимается снапшотом при создании заказа: изменения цены гига
// не влияют на уже размещённые заказы.
type Gig struct {
	ID            uuid.UUID       `db:"id" json:"id"`
	FreelancerID  uuid.UUID       `db:"freelancer_id" json:"freelancer_id"`
	Title         string          `db:"title" json:"title"`
	Description   string          `db:"description" json:"description"`
	Category      string          `db:"category" json:"category"`
	Price         decimal.Decimal `db:"price" json:"price"`
	DeliveryDays  int             `db:"delivery_days" json:"delivery_days"`
	Revisions     int             `db:"revisions" json:"revisions"`
	Tags          pq.StringArray  `db:"tags" json:"tags"`
	RatingAverage float64         `db:"rating_average" json:"rating_average"`
	RatingCount   int             `db:"rating_count" json:"rating_count"`
	IsActive      bool            `db:"is_active" json:"is_active"`
	OrdersCount   int             `db:"orders_count" json:"orders_count"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}
