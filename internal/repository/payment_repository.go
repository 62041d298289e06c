package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/gigmarket-backend/internal/domain/valueobject"
	"github.com/ignatzorin/gigmarket-backend/internal/models"
	"github.com/ignatzorin/gigmarket-backend/internal/pkg/apperror"
	"github.com/ignatzorin/gigmarket-backend/internal/repository/common"
)

// PaymentRepository отвечает за таблицу payments и связанные с ней
// переходы статуса заказа. Каждая операция выполняется в одной
// транзакции: строки платежа и заказа блокируются FOR UPDATE,
// предусловия перепроверяются уже под блокировкой.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository создаёт экземпляр репозитория.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Create создаёт платёж в статусе pending. Частичный уникальный индекс
// по (order_id, active-статусы) превращает гонку двух initiateEscrow в
// apperror.ErrAlreadyPaid для проигравшего.
func (r *PaymentRepository) Create(ctx context.Context, p *models.Payment) error {
	query := `
		INSERT INTO payments (order_id, client_id, freelancer_id, amount, platform_fee, freelancer_amount, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`

	if err := r.db.QueryRowxContext(
		ctx, query,
		p.OrderID, p.ClientID, p.FreelancerID,
		p.Amount, p.PlatformFee, p.FreelancerAmount, p.Status,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if common.IsUniqueViolation(err) {
			return apperror.ErrAlreadyPaid
		}
		return fmt.Errorf("payment repository: create %w", err)
	}

	return nil
}

// GetByID возвращает платёж по идентификатору.
func (r *PaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	return common.GetByID[models.Payment](ctx, r.db, "payments", id, apperror.ErrPaymentNotFound)
}

// GetByOrderID возвращает последний платёж по заказу.
func (r *PaymentRepository) GetByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Payment, error) {
	var p models.Payment
	query := `SELECT * FROM payments WHERE order_id = $1 ORDER BY created_at DESC LIMIT 1`
	if err := r.db.GetContext(ctx, &p, query, orderID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("payment repository: get by order %w", err)
	}
	return &p, nil
}

// GetActiveByOrderID возвращает платёж заказа в pending или processing.
func (r *PaymentRepository) GetActiveByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Payment, error) {
	var p models.Payment
	query := `SELECT * FROM payments WHERE order_id = $1 AND status IN ('pending', 'processing') LIMIT 1`
	if err := r.db.GetContext(ctx, &p, query, orderID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("payment repository: get active by order %w", err)
	}
	return &p, nil
}

// ListByUser возвращает платежи, где пользователь — клиент или фрилансер.
func (r *PaymentRepository) ListByUser(ctx context.Context, userID uuid.UUID, status string, limit, offset int) ([]models.Payment, error) {
	var payments []models.Payment
	query := `
		SELECT * FROM payments
		WHERE (client_id = $1 OR freelancer_id = $1)
	`
	args := []interface{}{userID}
	if status != "" {
		query += ` AND status = $4`
		args = append(args, limit, offset, status)
	} else {
		args = append(args, limit, offset)
	}
	query += ` ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	if err := r.db.SelectContext(ctx, &payments, query, args...); err != nil {
		return nil, fmt.Errorf("payment repository: list by user %w", err)
	}
	return payments, nil
}

// SetIntent записывает идентификатор intent на стороне процессора.
func (r *PaymentRepository) SetIntent(ctx context.Context, id uuid.UUID, intentID string) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE payments SET processor_intent_id = $2, updated_at = NOW() WHERE id = $1`, id, intentID); err != nil {
		return fmt.Errorf("payment repository: set intent %w", err)
	}
	return nil
}

// Confirm переводит платёж pending -> processing и заказ pending -> in-progress
// одной транзакцией. Повторное подтверждение уже обработанного платежа —
// no-op: возвращается текущее состояние без второго перехода.
func (r *PaymentRepository) Confirm(ctx context.Context, id uuid.UUID, chargeID string) (*models.Payment, error) {
	var payment models.Payment
	err := common.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := tx.GetContext(ctx, &payment, `SELECT * FROM payments WHERE id = $1 FOR UPDATE`, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperror.ErrPaymentNotFound
			}
			return fmt.Errorf("payment repository: confirm lock %w", err)
		}

		// Идемпотентность: подтверждение уже подтверждённого платежа
		// не двигает ни платёж, ни заказ.
		if payment.Status == valueobject.PaymentStatusProcessing {
			return nil
		}
		if payment.Status != valueobject.PaymentStatusPending {
			return apperror.InvalidTransition(string(payment.Status), string(valueobject.PaymentStatusProcessing))
		}

		if err := tx.GetContext(ctx, &payment, `
			UPDATE payments
			SET status = 'processing', processor_charge_id = $2, updated_at = NOW()
			WHERE id = $1
			RETURNING *
		`, id, chargeID); err != nil {
			return fmt.Errorf("payment repository: confirm update %w", err)
		}

		// Единственный путь, выводящий заказ из pending в работу.
		res, err := tx.ExecContext(ctx, `
			UPDATE orders SET status = 'in-progress', updated_at = NOW()
			WHERE id = $1 AND status = 'pending'
		`, payment.OrderID)
		if err != nil {
			return fmt.Errorf("payment repository: confirm order update %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return apperror.InvalidTransition(string(valueobject.OrderStatusPending), string(valueobject.OrderStatusInProgress))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// Release переводит платёж processing -> completed и заказ -> completed.
func (r *PaymentRepository) Release(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	err := common.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := tx.GetContext(ctx, &payment, `SELECT * FROM payments WHERE id = $1 FOR UPDATE`, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperror.ErrPaymentNotFound
			}
			return fmt.Errorf("payment repository: release lock %w", err)
		}

		if payment.Status != valueobject.PaymentStatusProcessing {
			return apperror.ErrNotInEscrow
		}

		if err := tx.GetContext(ctx, &payment, `
			UPDATE payments
			SET status = 'completed', completed_at = NOW(), updated_at = NOW()
			WHERE id = $1
			RETURNING *
		`, id); err != nil {
			return fmt.Errorf("payment repository: release update %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE orders
			SET status = 'completed',
			    completed_date = COALESCE(completed_date, NOW()),
			    updated_at = NOW()
			WHERE id = $1 AND status IN ('pending', 'in-progress')
		`, payment.OrderID); err != nil {
			return fmt.Errorf("payment repository: release order update %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// MarkFailed переводит платёж в failed; заказ остаётся в pending.
func (r *PaymentRepository) MarkFailed(ctx context.Context, id uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, `
		UPDATE payments SET status = 'failed', updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`, id); err != nil {
		return fmt.Errorf("payment repository: mark failed %w", err)
	}
	return nil
}

// Refund переводит платёж в refunded и, если cancelOrder, заказ в cancelled.
// Частичный возврат по решению спора оставляет заказ в работе.
func (r *PaymentRepository) Refund(ctx context.Context, id uuid.UUID, reason, refundID string, cancelOrder bool) (*models.Payment, error) {
	var payment models.Payment
	err := common.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := tx.GetContext(ctx, &payment, `SELECT * FROM payments WHERE id = $1 FOR UPDATE`, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperror.ErrPaymentNotFound
			}
			return fmt.Errorf("payment repository: refund lock %w", err)
		}

		if payment.Status != valueobject.PaymentStatusProcessing && payment.Status != valueobject.PaymentStatusCompleted {
			return apperror.ErrNotRefundable
		}

		if err := tx.GetContext(ctx, &payment, `
			UPDATE payments
			SET status = 'refunded', refund_reason = $2, processor_refund_id = $3,
			    refunded_at = NOW(), updated_at = NOW()
			WHERE id = $1
			RETURNING *
		`, id, reason, refundID); err != nil {
			return fmt.Errorf("payment repository: refund update %w", err)
		}

		if cancelOrder {
			if _, err := tx.ExecContext(ctx, `
				UPDATE orders SET status = 'cancelled', updated_at = NOW()
				WHERE id = $1 AND status NOT IN ('completed', 'cancelled')
			`, payment.OrderID); err != nil {
				return fmt.Errorf("payment repository: refund order update %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// PaymentStats — агрегаты по завершённым платежам за период.
type PaymentStats struct {
	TotalAmount   decimal.Decimal `db:"total_amount" json:"total_amount"`
	TotalPayments int             `db:"total_payments" json:"total_payments"`
	AverageAmount decimal.Decimal `db:"average_amount" json:"average_amount"`
}

// Stats возвращает статистику завершённых платежей пользователя с since.
func (r *PaymentRepository) Stats(ctx context.Context, userID uuid.UUID, since time.Time) (*PaymentStats, error) {
	var stats PaymentStats
	query := `
		SELECT COALESCE(SUM(amount), 0)            AS total_amount,
		       COUNT(*)                            AS total_payments,
		       COALESCE(ROUND(AVG(amount), 2), 0)  AS average_amount
		FROM payments
		WHERE (client_id = $1 OR freelancer_id = $1)
		  AND status = 'completed'
		  AND created_at >= $2
	`
	if err := r.db.GetContext(ctx, &stats, query, userID, since); err != nil {
		return nil, fmt.Errorf("payment repository: stats %w", err)
	}
	return &stats, nil
}
