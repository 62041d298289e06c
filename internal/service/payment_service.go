package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/gigmarket-backend/internal/domain/valueobject"
	"github.com/ignatzorin/gigmarket-backend/internal/logger"
	"github.com/ignatzorin/gigmarket-backend/internal/models"
	"github.com/ignatzorin/gigmarket-backend/internal/pkg/apperror"
	"github.com/ignatzorin/gigmarket-backend/internal/processor"
	"github.com/ignatzorin/gigmarket-backend/internal/repository"
)

// PaymentRepository описывает взаимодействие сервиса с хранилищем платежей.
type PaymentRepository interface {
	Create(ctx context.Context, payment *models.Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	GetActiveByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Payment, error)
	ListByUser(ctx context.Context, userID uuid.UUID, status string, limit, offset int) ([]models.Payment, error)
	SetIntent(ctx context.Context, id uuid.UUID, intentID string) error
	Confirm(ctx context.Context, id uuid.UUID, chargeID string) (*models.Payment, error)
	Release(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	MarkFailed(ctx context.Context, id uuid.UUID) error
	Refund(ctx context.Context, id uuid.UUID, reason, refundID string, cancelOrder bool) (*models.Payment, error)
	Stats(ctx context.Context, userID uuid.UUID, since time.Time) (*repository.PaymentStats, error)
}

// OrderReader — доступ эскроу-сервиса к заказам. Статус заказа эскроу
// меняет только через транзакции своего репозитория, не напрямую.
type OrderReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
}

// EscrowService держит деньги заказа в escrow: списание с клиента при
// подтверждении, удержание до завершения работы, выплата или возврат.
// Только этот сервис меняет статус платежа.
type EscrowService struct {
	payments PaymentRepository
	orders   OrderReader
	gateway  processor.Gateway
	notifier Notifier
}

// NewEscrowService создаёт сервис эскроу.
func NewEscrowService(payments PaymentRepository, orders OrderReader, gateway processor.Gateway, notifier Notifier) *EscrowService {
	return &EscrowService{
		payments: payments,
		orders:   orders,
		gateway:  gateway,
		notifier: notifier,
	}
}

// InitiateEscrowResult — созданный платёж и client_secret для
// клиентского подтверждения на стороне процессора.
type InitiateEscrowResult struct {
	Payment      *models.Payment `json:"payment"`
	ClientSecret string          `json:"client_secret"`
}

// InitiateEscrow создаёт платёж по заказу и intent у процессора.
// Клиент платит цену гига плюс комиссию площадки; в записи платежа
// хранится разбиение базовой суммы на комиссию и выплату фрилансеру.
func (s *EscrowService) InitiateEscrow(ctx context.Context, orderID, clientID uuid.UUID) (*InitiateEscrowResult, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.ClientID != clientID {
		return nil, apperror.ErrNotOrderOwner
	}

	// Активный платёж по заказу проверяем до статуса заказа: после
	// подтверждения заказ уже in-progress, и повторная инициация должна
	// падать именно как "уже оплачен".
	if _, err := s.payments.GetActiveByOrderID(ctx, orderID); err == nil {
		return nil, apperror.ErrAlreadyPaid
	} else if !errors.Is(err, apperror.ErrPaymentNotFound) {
		return nil, err
	}

	if order.Status != valueobject.OrderStatusPending {
		return nil, apperror.InvalidTransition(string(order.Status), string(valueobject.OrderStatusInProgress))
	}

	split := valueobject.SplitFee(order.Amount)
	payment := &models.Payment{
		OrderID:          order.ID,
		ClientID:         order.ClientID,
		FreelancerID:     order.FreelancerID,
		Amount:           order.Amount,
		PlatformFee:      split.Fee,
		FreelancerAmount: split.Net,
		Status:           valueobject.PaymentStatusPending,
	}
	if err := s.payments.Create(ctx, payment); err != nil {
		return nil, err
	}

	intent, err := s.gateway.CreateIntent(ctx, processor.CreateIntentInput{
		Amount:   valueobject.ChargeTotal(order.Amount),
		Currency: valueobject.Currency,
		Metadata: map[string]string{
			"order_id":   order.ID.String(),
			"payment_id": payment.ID.String(),
		},
		IdempotencyKey: payment.ID.String(),
	})
	if err != nil {
		// Intent не создан — деньги не двигались, платёж хороним сразу,
		// чтобы не держать заказ занятым активным платежом.
		if ferr := s.payments.MarkFailed(ctx, payment.ID); ferr != nil && logger.Log != nil {
			logger.Log.WithError(ferr).WithField("payment_id", payment.ID).Error("escrow service: не удалось пометить платёж failed")
		}
		return nil, err
	}

	if err := s.payments.SetIntent(ctx, payment.ID, intent.ID); err != nil {
		return nil, err
	}
	payment.ProcessorIntentID = &intent.ID

	return &InitiateEscrowResult{
		Payment:      payment,
		ClientSecret: intent.ClientSecret,
	}, nil
}

// ConfirmEscrow сверяется с процессором, что списание прошло, и переводит
// платёж в processing, а заказ — в работу. Это единственный путь,
// выводящий заказ из pending.
func (s *EscrowService) ConfirmEscrow(ctx context.Context, paymentID, actorID uuid.UUID) (*models.Payment, error) {
	payment, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.ClientID != actorID {
		return nil, apperror.ErrNotOrderOwner
	}
	if payment.ProcessorIntentID == nil {
		return nil, apperror.ErrPaymentNotSucceeded
	}

	intent, err := s.gateway.RetrieveIntent(ctx, *payment.ProcessorIntentID)
	if err != nil {
		return nil, err
	}
	if !intent.Succeeded() {
		return nil, apperror.ErrPaymentNotSucceeded
	}

	confirmed, err := s.payments.Confirm(ctx, paymentID, intent.ChargeID)
	if err != nil {
		return nil, err
	}

	s.notify(confirmed.FreelancerID, models.EventOrderStatusChanged, confirmed)

	return confirmed, nil
}

// ReleaseEscrow выплачивает удержанные средства фрилансеру. Доступно
// платившему клиенту и администратору.
func (s *EscrowService) ReleaseEscrow(ctx context.Context, paymentID, actorID uuid.UUID, isAdmin bool) (*models.Payment, error) {
	payment, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && payment.ClientID != actorID {
		return nil, apperror.ErrNotAuthorized
	}

	released, err := s.payments.Release(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	s.notify(released.FreelancerID, models.EventPaymentCompleted, released)

	return released, nil
}

// RefundInput описывает возврат. PartialAmount пустой — полный возврат;
// CancelOrder управляет судьбой заказа (частичный возврат по решению
// спора оставляет заказ в работе).
type RefundInput struct {
	PaymentID     uuid.UUID
	ActorID       uuid.UUID
	IsAdmin       bool
	Reason        string
	PartialAmount *decimal.Decimal
	CancelOrder   bool
}

// Refund возвращает средства клиенту через процессор и фиксирует возврат.
func (s *EscrowService) Refund(ctx context.Context, in RefundInput) (*models.Payment, error) {
	payment, err := s.payments.GetByID(ctx, in.PaymentID)
	if err != nil {
		return nil, err
	}
	if !in.IsAdmin && payment.ClientID != in.ActorID {
		return nil, apperror.ErrNotAuthorized
	}
	if payment.Status != valueobject.PaymentStatusProcessing && payment.Status != valueobject.PaymentStatusCompleted {
		return nil, apperror.ErrNotRefundable
	}
	if payment.ProcessorChargeID == nil {
		return nil, apperror.ErrNotRefundable
	}

	amount := payment.Amount
	if in.PartialAmount != nil {
		if in.PartialAmount.LessThanOrEqual(decimal.Zero) || in.PartialAmount.GreaterThan(payment.Amount) {
			return nil, apperror.New(apperror.ErrCodeValidation, "сумма частичного возврата должна быть больше нуля и не превышать сумму платежа")
		}
		amount = *in.PartialAmount
	}

	refund, err := s.gateway.CreateRefund(ctx, processor.CreateRefundInput{
		ChargeID:       *payment.ProcessorChargeID,
		Amount:         amount,
		Reason:         in.Reason,
		IdempotencyKey: fmt.Sprintf("%s-refund", payment.ID),
	})
	if err != nil {
		return nil, err
	}

	refunded, err := s.payments.Refund(ctx, in.PaymentID, in.Reason, refund.ID, in.CancelOrder)
	if err != nil {
		return nil, err
	}

	s.notify(refunded.ClientID, models.EventPaymentRefunded, refunded)

	return refunded, nil
}

// GetPayment возвращает платёж; доступ есть у сторон и администратора.
func (s *EscrowService) GetPayment(ctx context.Context, paymentID, actorID uuid.UUID, isAdmin bool) (*models.Payment, error) {
	payment, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && payment.ClientID != actorID && payment.FreelancerID != actorID {
		return nil, apperror.ErrNotAuthorized
	}
	return payment, nil
}

// ListMyPayments возвращает платежи пользователя с пагинацией.
func (s *EscrowService) ListMyPayments(ctx context.Context, userID uuid.UUID, status string, limit, offset int) ([]models.Payment, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.payments.ListByUser(ctx, userID, status, limit, offset)
}

// Stats возвращает статистику завершённых платежей за окно 7d/30d/90d.
func (s *EscrowService) Stats(ctx context.Context, userID uuid.UUID, window string) (*repository.PaymentStats, error) {
	var days int
	switch window {
	case "7d":
		days = 7
	case "", "30d":
		days = 30
	case "90d":
		days = 90
	default:
		return nil, apperror.Newf(apperror.ErrCodeValidation, "неизвестное окно статистики: %q", window)
	}

	since := time.Now().AddDate(0, 0, -days)
	return s.payments.Stats(ctx, userID, since)
}

func (s *EscrowService) notify(userID uuid.UUID, event string, payload interface{}) {
	if s.notifier != nil {
		s.notifier.Notify(userID, event, payload)
	}
}
