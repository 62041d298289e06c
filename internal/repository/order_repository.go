package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/gigmarket-backend/internal/domain/valueobject"
	"github.com/ignatzorin/gigmarket-backend/internal/models"
	"github.com/ignatzorin/gigmarket-backend/internal/pkg/apperror"
	"github.com/ignatzorin/gigmarket-backend/internal/repository/common"
)

// OrderRepository отвечает за таблицы orders и order_messages.
// Все смены статуса выполняются условными UPDATE по текущему статусу:
// из двух гонящихся переходов зафиксируется ровно один.
type OrderRepository struct {
	db *sqlx.DB
}

// NewOrderRepository создаёт экземпляр репозитория.
func NewOrderRepository(db *sqlx.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create размещает новый заказ в статусе pending.
func (r *OrderRepository) Create(ctx context.Context, order *models.Order) error {
	query := `
		INSERT INTO orders (gig_id, client_id, freelancer_id, status, amount, requirements, delivery_date, revisions_max_allowed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`

	if err := r.db.QueryRowxContext(
		ctx, query,
		order.GigID, order.ClientID, order.FreelancerID, order.Status,
		order.Amount, order.Requirements, order.DeliveryDate, order.RevisionsMaxAllowed,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt); err != nil {
		return fmt.Errorf("order repository: create %w", err)
	}

	return nil
}

// GetByID возвращает заказ по идентификатору.
func (r *OrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return common.GetByID[models.Order](ctx, r.db, "orders", id, apperror.ErrOrderNotFound)
}

// ListByUser возвращает заказы, где пользователь — клиент или фрилансер.
func (r *OrderRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Order, error) {
	var orders []models.Order
	query := `
		SELECT * FROM orders
		WHERE client_id = $1 OR freelancer_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`
	if err := r.db.SelectContext(ctx, &orders, query, userID, limit, offset); err != nil {
		return nil, fmt.Errorf("order repository: list by user %w", err)
	}
	return orders, nil
}

// UpdateStatus переводит заказ из from в to. Возвращает
// apperror.InvalidTransition, если статус заказа уже не from —
// так гонка двух переходов разрешается в пользу первого.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to valueobject.OrderStatus) (*models.Order, error) {
	var order models.Order
	query := `
		UPDATE orders
		SET status = $3,
		    completed_date = CASE WHEN $3 = 'completed' AND completed_date IS NULL THEN NOW() ELSE completed_date END,
		    updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING *
	`
	err := r.db.GetContext(ctx, &order, query, id, from, to)
	if errors.Is(err, sql.ErrNoRows) {
		current, getErr := r.GetByID(ctx, id)
		if getErr != nil {
			return nil, getErr
		}
		return nil, apperror.InvalidTransition(string(current.Status), string(to))
	}
	if err != nil {
		return nil, fmt.Errorf("order repository: update status %w", err)
	}
	return &order, nil
}

// AddMessage добавляет сообщение в журнал заказа.
func (r *OrderRepository) AddMessage(ctx context.Context, msg *models.OrderMessage) error {
	query := `
		INSERT INTO order_messages (order_id, sender_id, body)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	if err := r.db.QueryRowxContext(ctx, query, msg.OrderID, msg.SenderID, msg.Body).
		Scan(&msg.ID, &msg.CreatedAt); err != nil {
		return fmt.Errorf("order repository: add message %w", err)
	}
	return nil
}

// ListMessages возвращает журнал сообщений заказа в порядке добавления.
func (r *OrderRepository) ListMessages(ctx context.Context, orderID uuid.UUID) ([]models.OrderMessage, error) {
	var messages []models.OrderMessage
	query := `SELECT * FROM order_messages WHERE order_id = $1 ORDER BY created_at ASC`
	if err := r.db.SelectContext(ctx, &messages, query, orderID); err != nil {
		return nil, fmt.Errorf("order repository: list messages %w", err)
	}
	return messages, nil
}

// SetRating выставляет оценку заказу. Условия в WHERE гарантируют,
// что оценка ставится один раз и только по завершённому заказу, даже
// при одновременных запросах.
func (r *OrderRepository) SetRating(ctx context.Context, id uuid.UUID, score int, review *string, now time.Time) (*models.Order, error) {
	var order models.Order
	query := `
		UPDATE orders
		SET rating_score = $2, rating_review = $3, rated_at = $4, updated_at = NOW()
		WHERE id = $1 AND status = 'completed' AND rating_score IS NULL
		RETURNING *
	`
	err := r.db.GetContext(ctx, &order, query, id, score, review, now)
	if errors.Is(err, sql.ErrNoRows) {
		current, getErr := r.GetByID(ctx, id)
		if getErr != nil {
			return nil, getErr
		}
		if current.Status != valueobject.OrderStatusCompleted {
			return nil, apperror.ErrNotCompleted
		}
		return nil, apperror.ErrAlreadyRated
	}
	if err != nil {
		return nil, fmt.Errorf("order repository: set rating %w", err)
	}
	return &order, nil
}

// IncrementRevisions увеличивает счётчик запрошенных правок.
func (r *OrderRepository) IncrementRevisions(ctx context.Context, id uuid.UUID, requested, completed int) error {
	query := `
		UPDATE orders
		SET revisions_requested = revisions_requested + $2,
		    revisions_completed = revisions_completed + $3,
		    updated_at = NOW()
		WHERE id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, id, requested, completed); err != nil {
		return fmt.Errorf("order repository: increment revisions %w", err)
	}
	return nil
}
