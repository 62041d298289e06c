package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/gigmarket-backend/internal/domain/valueobject"
	"github.com/ignatzorin/gigmarket-backend/internal/logger"
	"github.com/ignatzorin/gigmarket-backend/internal/models"
	"github.com/ignatzorin/gigmarket-backend/internal/pkg/apperror"
)

// OrderRepository описывает взаимодействие сервиса с хранилищем заказов.
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to valueobject.OrderStatus) (*models.Order, error)
	AddMessage(ctx context.Context, msg *models.OrderMessage) error
	ListMessages(ctx context.Context, orderID uuid.UUID) ([]models.OrderMessage, error)
	SetRating(ctx context.Context, id uuid.UUID, score int, review *string, now time.Time) (*models.Order, error)
}

// GigRepository описывает взаимодействие с каталогом гигов.
type GigRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Gig, error)
	IncrementOrderCount(ctx context.Context, id uuid.UUID) error
	UpdateAggregateRating(ctx context.Context, id uuid.UUID, score int) error
}

// Notifier отправляет уведомление пользователю. Доставка — fire-and-forget:
// сбой уведомления никогда не откатывает вызвавший его переход статуса.
type Notifier interface {
	Notify(userID uuid.UUID, event string, payload interface{})
}

// OrderService содержит бизнес-логику жизненного цикла заказа.
// Статус заказа меняется только здесь и в двух оговорённых местах:
// подтверждение эскроу (pending -> in-progress) и споры.
type OrderService struct {
	orders   OrderRepository
	gigs     GigRepository
	notifier Notifier
}

// NewOrderService создаёт новый сервис заказов.
func NewOrderService(orders OrderRepository, gigs GigRepository, notifier Notifier) *OrderService {
	return &OrderService{
		orders:   orders,
		gigs:     gigs,
		notifier: notifier,
	}
}

// PlaceOrderInput описывает входные данные размещения заказа.
type PlaceOrderInput struct {
	ClientID     uuid.UUID
	GigID        uuid.UUID
	Requirements string
	DeliveryDate time.Time
}

// PlaceOrder размещает заказ по гигу. Сумма заказа снимается снапшотом
// с текущей цены гига, лимит правок — с настройки гига.
func (s *OrderService) PlaceOrder(ctx context.Context, in PlaceOrderInput) (*models.Order, error) {
	if strings.TrimSpace(in.Requirements) == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "требования к заказу не могут быть пустыми")
	}
	if !in.DeliveryDate.After(time.Now()) {
		return nil, apperror.ErrInvalidDeliveryDate
	}

	gig, err := s.gigs.GetByID(ctx, in.GigID)
	if err != nil {
		return nil, err
	}
	if !gig.IsActive {
		return nil, apperror.ErrGigUnavailable
	}
	if gig.FreelancerID == in.ClientID {
		return nil, apperror.ErrSelfOrderNotAllowed
	}

	order := &models.Order{
		GigID:               gig.ID,
		ClientID:            in.ClientID,
		FreelancerID:        gig.FreelancerID,
		Status:              valueobject.OrderStatusPending,
		Amount:              gig.Price,
		Requirements:        in.Requirements,
		DeliveryDate:        in.DeliveryDate,
		RevisionsMaxAllowed: gig.Revisions,
	}

	if err := s.orders.Create(ctx, order); err != nil {
		return nil, err
	}

	// Счётчик заказов гига — побочный эффект; заказ уже создан,
	// поэтому сбой только логируем.
	if err := s.gigs.IncrementOrderCount(ctx, gig.ID); err != nil && logger.Log != nil {
		logger.Log.WithError(err).WithField("gig_id", gig.ID).Warn("order service: не удалось увеличить счётчик заказов гига")
	}

	s.notify(order.FreelancerID, models.EventOrderStatusChanged, order)

	return order, nil
}

// GetOrder возвращает заказ; доступ есть только у сторон и администратора.
func (s *OrderService) GetOrder(ctx context.Context, orderID, actorID uuid.UUID, isAdmin bool) (*models.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && !order.IsParty(actorID) {
		return nil, apperror.ErrNotAuthorized
	}

	messages, err := s.orders.ListMessages(ctx, orderID)
	if err != nil {
		return nil, err
	}
	order.Messages = messages

	return order, nil
}

// ListMyOrders возвращает заказы пользователя (как клиента и как фрилансера).
func (s *OrderService) ListMyOrders(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Order, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.orders.ListByUser(ctx, userID, limit, offset)
}

// TransitionStatus переводит заказ в новый статус по запросу одной из
// сторон. Легальность перехода проверяется по графу статусов, затем ещё
// раз условным UPDATE в хранилище — гонка двух переходов невозможна.
// Статус disputed через этот путь недостижим: спор открывается отдельно.
func (s *OrderService) TransitionStatus(ctx context.Context, orderID, actorID uuid.UUID, newStatus valueobject.OrderStatus) (*models.Order, error) {
	if !newStatus.IsValid() {
		return nil, apperror.Newf(apperror.ErrCodeValidation, "неизвестный статус заказа: %q", newStatus)
	}
	if newStatus == valueobject.OrderStatusDisputed {
		return nil, apperror.New(apperror.ErrCodeValidation, "статус disputed выставляется только открытием спора")
	}

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.IsParty(actorID) {
		return nil, apperror.ErrNotAuthorized
	}
	if !order.Status.CanTransitionTo(newStatus) {
		return nil, apperror.InvalidTransition(string(order.Status), string(newStatus))
	}

	updated, err := s.orders.UpdateStatus(ctx, orderID, order.Status, newStatus)
	if err != nil {
		return nil, err
	}

	s.notify(updated.OtherParty(actorID), models.EventOrderStatusChanged, updated)

	return updated, nil
}

// RecordMessage добавляет сообщение в журнал заказа. Сообщения разрешены
// в любом статусе, включая терминальные: стороны могут продолжать
// переписку после завершения заказа.
func (s *OrderService) RecordMessage(ctx context.Context, orderID, senderID uuid.UUID, body string) (*models.OrderMessage, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "текст сообщения не может быть пустым")
	}
	if len(body) > 5000 {
		return nil, apperror.New(apperror.ErrCodeValidation, "сообщение слишком длинное (максимум 5000 символов)")
	}

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.IsParty(senderID) {
		return nil, apperror.ErrNotAuthorized
	}

	msg := &models.OrderMessage{
		OrderID:  orderID,
		SenderID: senderID,
		Body:     body,
	}
	if err := s.orders.AddMessage(ctx, msg); err != nil {
		return nil, err
	}

	s.notify(order.OtherParty(senderID), models.EventOrderMessage, msg)

	return msg, nil
}

// Rate выставляет оценку завершённому заказу. Оценить может только
// клиент и только один раз; агрегированный рейтинг гига пересчитывается
// бегущим средним.
func (s *OrderService) Rate(ctx context.Context, orderID, clientID uuid.UUID, score int, review *string) (*models.Order, error) {
	if score < 1 || score > 5 {
		return nil, apperror.New(apperror.ErrCodeValidation, "оценка должна быть от 1 до 5")
	}

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.ClientID != clientID {
		return nil, apperror.ErrNotAuthorized
	}

	rated, err := s.orders.SetRating(ctx, orderID, score, review, time.Now())
	if err != nil {
		return nil, err
	}

	// Оценка уже записана; сбой пересчёта рейтинга гига только логируем.
	if err := s.gigs.UpdateAggregateRating(ctx, rated.GigID, score); err != nil && logger.Log != nil {
		logger.Log.WithError(err).WithField("gig_id", rated.GigID).Warn("order service: не удалось пересчитать рейтинг гига")
	}

	return rated, nil
}

func (s *OrderService) notify(userID uuid.UUID, event string, payload interface{}) {
	if s.notifier != nil {
		s.notifier.Notify(userID, event, payload)
	}
}
