package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/gigmarket-backend/internal/models"
	"github.com/ignatzorin/gigmarket-backend/internal/pkg/apperror"
	"github.com/ignatzorin/gigmarket-backend/internal/validation"
)

// GigCatalogRepository описывает хранилище каталога гигов.
type GigCatalogRepository interface {
	Create(ctx context.Context, gig *models.Gig) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Gig, error)
	List(ctx context.Context, category string, limit, offset int) ([]models.Gig, error)
}

// GigService — каталог гигов. Ровно столько, сколько нужно, чтобы
// заказы было на что размещать.
type GigService struct {
	repo GigCatalogRepository
}

// NewGigService создаёт сервис каталога.
func NewGigService(repo GigCatalogRepository) *GigService {
	return &GigService{repo: repo}
}

// CreateGigInput описывает публикуемый гиг.
type CreateGigInput struct {
	FreelancerID uuid.UUID
	Title        string
	Description  string
	Category     string
	Price        decimal.Decimal
	DeliveryDays int
	Revisions    int
	Tags         []string
}

// CreateGig публикует гиг.
func (s *GigService) CreateGig(ctx context.Context, in CreateGigInput) (*models.Gig, error) {
	if err := validation.ValidateGigTitle(in.Title); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateGigDescription(in.Description); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidatePrice(in.Price); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateDeliveryDays(in.DeliveryDays); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateTags(in.Tags); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if in.Revisions < 0 {
		return nil, apperror.New(apperror.ErrCodeValidation, "число правок не может быть отрицательным")
	}

	gig := &models.Gig{
		FreelancerID: in.FreelancerID,
		Title:        in.Title,
		Description:  in.Description,
		Category:     in.Category,
		Price:        in.Price,
		DeliveryDays: in.DeliveryDays,
		Revisions:    in.Revisions,
		Tags:         in.Tags,
		IsActive:     true,
	}
	if err := s.repo.Create(ctx, gig); err != nil {
		return nil, err
	}
	return gig, nil
}

// GetGig возвращает гиг по идентификатору.
func (s *GigService) GetGig(ctx context.Context, id uuid.UUID) (*models.Gig, error) {
	return s.repo.GetByID(ctx, id)
}

// ListGigs возвращает каталог с фильтром по категории.
func (s *GigService) ListGigs(ctx context.Context, category string, limit, offset int) ([]models.Gig, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, category, limit, offset)
}
