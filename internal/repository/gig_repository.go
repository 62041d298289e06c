package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/gigmarket-backend/internal/models"
	"github.com/ignatzorin/gigmarket-backend/internal/pkg/apperror"
	"github.com/ignatzorin/gigmarket-backend/internal/repository/common"
)

// GigRepository отвечает за каталог гигов. Ядро использует его как
// внешнего коллаборатора: снапшот цены при заказе, счётчик заказов и
// агрегированный рейтинг.
type GigRepository struct {
	db *sqlx.DB
}

// NewGigRepository создаёт экземпляр репозитория.
func NewGigRepository(db *sqlx.DB) *GigRepository {
	return &GigRepository{db: db}
}

// Create публикует новый гиг.
func (r *GigRepository) Create(ctx context.Context, gig *models.Gig) error {
	query := `
		INSERT INTO gigs (freelancer_id, title, description, category, price, delivery_days, revisions, tags, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE)
		RETURNING id, created_at, updated_at
	`

	if err := r.db.QueryRowxContext(
		ctx, query,
		gig.FreelancerID, gig.Title, gig.Description, gig.Category,
		gig.Price, gig.DeliveryDays, gig.Revisions, gig.Tags,
	).Scan(&gig.ID, &gig.CreatedAt, &gig.UpdatedAt); err != nil {
		return fmt.Errorf("gig repository: create %w", err)
	}

	return nil
}

// GetByID возвращает гиг по идентификатору.
func (r *GigRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Gig, error) {
	return common.GetByID[models.Gig](ctx, r.db, "gigs", id, apperror.ErrGigNotFound)
}

// List возвращает активные гиги с пагинацией.
func (r *GigRepository) List(ctx context.Context, category string, limit, offset int) ([]models.Gig, error) {
	var gigs []models.Gig
	query := `SELECT * FROM gigs WHERE is_active ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	args := []interface{}{limit, offset}
	if category != "" {
		query = `SELECT * FROM gigs WHERE is_active AND category = $3 ORDER BY created_at DESC LIMIT $1 OFFSET $2`
		args = append(args, category)
	}

	if err := r.db.SelectContext(ctx, &gigs, query, args...); err != nil {
		return nil, fmt.Errorf("gig repository: list %w", err)
	}
	return gigs, nil
}

// IncrementOrderCount увеличивает счётчик заказов гига.
func (r *GigRepository) IncrementOrderCount(ctx context.Context, id uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE gigs SET orders_count = orders_count + 1, updated_at = NOW() WHERE id = $1`, id); err != nil {
		return fmt.Errorf("gig repository: increment order count %w", err)
	}
	return nil
}

// UpdateAggregateRating пересчитывает скользящее среднее рейтинга:
// newAvg = (oldAvg*oldCount + score) / (oldCount + 1).
func (r *GigRepository) UpdateAggregateRating(ctx context.Context, id uuid.UUID, score int) error {
	query := `
		UPDATE gigs
		SET rating_average = (rating_average * rating_count + $2) / (rating_count + 1),
		    rating_count   = rating_count + 1,
		    updated_at     = NOW()
		WHERE id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, id, score); err != nil {
		return fmt.Errorf("gig repository: update aggregate rating %w", err)
	}
	return nil
}
