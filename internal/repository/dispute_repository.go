package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/gigmarket-backend/internal/domain/valueobject"
	"github.com/ignatzorin/gigmarket-backend/internal/models"
	"github.com/ignatzorin/gigmarket-backend/internal/pkg/apperror"
	"github.com/ignatzorin/gigmarket-backend/internal/repository/common"
)

// DisputeRepository отвечает за таблицы disputes, dispute_evidence и
// dispute_messages. Открытие и разрешение спора затрагивают заказ,
// поэтому выполняются транзакционно с блокировкой строк.
type DisputeRepository struct {
	db *sqlx.DB
}

// NewDisputeRepository создаёт экземпляр репозитория.
func NewDisputeRepository(db *sqlx.DB) *DisputeRepository {
	return &DisputeRepository{db: db}
}

// Create открывает спор по заказу и переводит заказ в disputed.
// Под блокировкой заказа проверяется, что заказ в спорном статусе и что
// активного спора ещё нет; одновременные попытки дополнительно отсекает
// частичный уникальный индекс по активным спорам.
func (r *DisputeRepository) Create(ctx context.Context, d *models.Dispute) error {
	return common.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var orderStatus valueobject.OrderStatus
		if err := tx.GetContext(ctx, &orderStatus,
			`SELECT status FROM orders WHERE id = $1 FOR UPDATE`, d.OrderID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperror.ErrOrderNotFound
			}
			return fmt.Errorf("dispute repository: create lock order %w", err)
		}

		switch orderStatus {
		case valueobject.OrderStatusPending, valueobject.OrderStatusInProgress, valueobject.OrderStatusCompleted:
		default:
			return apperror.ErrOrderNotDisputable
		}

		var exists bool
		if err := tx.GetContext(ctx, &exists, `
			SELECT EXISTS (
				SELECT 1 FROM disputes
				WHERE order_id = $1 AND status IN ('open', 'under_review')
			)
		`, d.OrderID); err != nil {
			return fmt.Errorf("dispute repository: create check active %w", err)
		}
		if exists {
			return apperror.ErrDuplicateDispute
		}

		if err := tx.QueryRowxContext(ctx, `
			INSERT INTO disputes (order_id, initiator_id, respondent_id, type, reason, status)
			VALUES ($1, $2, $3, $4, $5, 'open')
			RETURNING id, status, created_at, updated_at
		`, d.OrderID, d.InitiatorID, d.RespondentID, d.Type, d.Reason).
			Scan(&d.ID, &d.Status, &d.CreatedAt, &d.UpdatedAt); err != nil {
			if common.IsUniqueViolation(err) {
				return apperror.ErrDuplicateDispute
			}
			return fmt.Errorf("dispute repository: create insert %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE orders SET status = 'disputed', updated_at = NOW() WHERE id = $1`, d.OrderID); err != nil {
			return fmt.Errorf("dispute repository: create order update %w", err)
		}
		return nil
	})
}

// GetByID возвращает спор вместе с доказательствами и сообщениями.
func (r *DisputeRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	d, err := common.GetByID[models.Dispute](ctx, r.db, "disputes", id, apperror.ErrDisputeNotFound)
	if err != nil {
		return nil, err
	}

	if err := r.db.SelectContext(ctx, &d.Evidence,
		`SELECT * FROM dispute_evidence WHERE dispute_id = $1 ORDER BY uploaded_at`, id); err != nil {
		return nil, fmt.Errorf("dispute repository: load evidence %w", err)
	}
	if err := r.db.SelectContext(ctx, &d.Messages,
		`SELECT * FROM dispute_messages WHERE dispute_id = $1 ORDER BY created_at`, id); err != nil {
		return nil, fmt.Errorf("dispute repository: load messages %w", err)
	}
	return d, nil
}

// GetActiveByOrderID возвращает активный спор заказа, если он есть.
func (r *DisputeRepository) GetActiveByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Dispute, error) {
	var d models.Dispute
	query := `SELECT * FROM disputes WHERE order_id = $1 AND status IN ('open', 'under_review') LIMIT 1`
	if err := r.db.GetContext(ctx, &d, query, orderID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrDisputeNotFound
		}
		return nil, fmt.Errorf("dispute repository: get active by order %w", err)
	}
	return &d, nil
}

// ListByUser возвращает споры, в которых пользователь — сторона.
func (r *DisputeRepository) ListByUser(ctx context.Context, userID uuid.UUID, status string, limit, offset int) ([]models.Dispute, error) {
	var disputes []models.Dispute
	query := `SELECT * FROM disputes WHERE (initiator_id = $1 OR respondent_id = $1)`
	args := []interface{}{userID, limit, offset}
	if status != "" {
		query += ` AND status = $4`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	if err := r.db.SelectContext(ctx, &disputes, query, args...); err != nil {
		return nil, fmt.Errorf("dispute repository: list by user %w", err)
	}
	return disputes, nil
}

// ListAll возвращает споры для админской очереди.
func (r *DisputeRepository) ListAll(ctx context.Context, status string, limit, offset int) ([]models.Dispute, error) {
	var disputes []models.Dispute
	query := `SELECT * FROM disputes WHERE 1=1`
	args := []interface{}{limit, offset}
	if status != "" {
		query += ` AND status = $3`
		args = append(args, status)
	}
	query += ` ORDER BY created_at ASC LIMIT $1 OFFSET $2`

	if err := r.db.SelectContext(ctx, &disputes, query, args...); err != nil {
		return nil, fmt.Errorf("dispute repository: list all %w", err)
	}
	return disputes, nil
}

// TakeUnderReview переводит спор open -> under_review и закрепляет админа.
func (r *DisputeRepository) TakeUnderReview(ctx context.Context, id, adminID uuid.UUID) (*models.Dispute, error) {
	var d models.Dispute
	err := r.db.GetContext(ctx, &d, `
		UPDATE disputes
		SET status = 'under_review', assigned_admin_id = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'open'
		RETURNING *
	`, id, adminID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, r.transitionError(ctx, id, valueobject.DisputeStatusUnderReview)
		}
		return nil, fmt.Errorf("dispute repository: take under review %w", err)
	}
	return &d, nil
}

// AddEvidence прикрепляет доказательство к активному спору.
func (r *DisputeRepository) AddEvidence(ctx context.Context, e *models.DisputeEvidence) error {
	if err := r.db.QueryRowxContext(ctx, `
		INSERT INTO dispute_evidence (dispute_id, type, description, file_url, uploaded_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, uploaded_at
	`, e.DisputeID, e.Type, e.Description, e.FileURL, e.UploadedBy).
		Scan(&e.ID, &e.UploadedAt); err != nil {
		return fmt.Errorf("dispute repository: add evidence %w", err)
	}
	return nil
}

// AddMessage добавляет сообщение в переписку спора.
func (r *DisputeRepository) AddMessage(ctx context.Context, m *models.DisputeMessage) error {
	if err := r.db.QueryRowxContext(ctx, `
		INSERT INTO dispute_messages (dispute_id, sender_id, body, is_admin)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, m.DisputeID, m.SenderID, m.Body, m.IsAdmin).
		Scan(&m.ID, &m.CreatedAt); err != nil {
		return fmt.Errorf("dispute repository: add message %w", err)
	}
	return nil
}

// Resolve фиксирует решение спора и переводит заказ в статус,
// предписанный решением. Возврат средств к этому моменту уже проведён
// вызывающей стороной, здесь только смена статусов.
func (r *DisputeRepository) Resolve(ctx context.Context, id uuid.UUID, resolution valueobject.DisputeResolution, adminNotes string, orderStatus valueobject.OrderStatus) (*models.Dispute, error) {
	var dispute models.Dispute
	err := common.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := tx.GetContext(ctx, &dispute, `SELECT * FROM disputes WHERE id = $1 FOR UPDATE`, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperror.ErrDisputeNotFound
			}
			return fmt.Errorf("dispute repository: resolve lock %w", err)
		}

		if dispute.Status.IsTerminal() {
			return apperror.ErrAlreadyTerminal
		}

		if err := tx.GetContext(ctx, &dispute, `
			UPDATE disputes
			SET status = 'resolved', resolution = $2, admin_notes = $3,
			    resolved_at = NOW(), updated_at = NOW()
			WHERE id = $1
			RETURNING *
		`, id, resolution, adminNotes); err != nil {
			return fmt.Errorf("dispute repository: resolve update %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE orders SET status = $2,
			    completed_date = CASE WHEN $2 = 'completed' THEN COALESCE(completed_date, NOW()) ELSE completed_date END,
			    updated_at = NOW()
			WHERE id = $1
		`, dispute.OrderID, orderStatus); err != nil {
			return fmt.Errorf("dispute repository: resolve order update %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &dispute, nil
}

// Close закрывает спор без решения. Статусы заказа и платежа не меняются.
func (r *DisputeRepository) Close(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	var d models.Dispute
	err := r.db.GetContext(ctx, &d, `
		UPDATE disputes
		SET status = 'closed', closed_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status IN ('open', 'under_review')
		RETURNING *
	`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, r.transitionError(ctx, id, valueobject.DisputeStatusClosed)
		}
		return nil, fmt.Errorf("dispute repository: close %w", err)
	}
	return &d, nil
}

// transitionError различает отсутствие спора и недопустимый переход.
func (r *DisputeRepository) transitionError(ctx context.Context, id uuid.UUID, to valueobject.DisputeStatus) error {
	var current valueobject.DisputeStatus
	if err := r.db.GetContext(ctx, &current, `SELECT status FROM disputes WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperror.ErrDisputeNotFound
		}
		return fmt.Errorf("dispute repository: read status %w", err)
	}
	if current.IsTerminal() {
		return apperror.ErrAlreadyTerminal
	}
	return apperror.InvalidTransition(string(current), string(to))
}

// DisputeStats — сводка по спорам для админской панели.
type DisputeStats struct {
	Total       int `db:"total" json:"total"`
	Open        int `db:"open" json:"open"`
	UnderReview int `db:"under_review" json:"under_review"`
	Resolved    int `db:"resolved" json:"resolved"`
	Closed      int `db:"closed" json:"closed"`
}

// Stats возвращает количество споров в каждом статусе.
func (r *DisputeRepository) Stats(ctx context.Context) (*DisputeStats, error) {
	var stats DisputeStats
	query := `
		SELECT COUNT(*)                                         AS total,
		       COUNT(*) FILTER (WHERE status = 'open')          AS open,
		       COUNT(*) FILTER (WHERE status = 'under_review')  AS under_review,
		       COUNT(*) FILTER (WHERE status = 'resolved')      AS resolved,
		       COUNT(*) FILTER (WHERE status = 'closed')        AS closed
		FROM disputes
	`
	if err := r.db.GetContext(ctx, &stats, query); err != nil {
		return nil, fmt.Errorf("dispute repository: stats %w", err)
	}
	return &stats, nil
}
