package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/gigmarket-backend/internal/domain/valueobject"
	"github.com/ignatzorin/gigmarket-backend/internal/logger"
	"github.com/ignatzorin/gigmarket-backend/internal/models"
	"github.com/ignatzorin/gigmarket-backend/internal/pkg/apperror"
	"github.com/ignatzorin/gigmarket-backend/internal/repository"
)

// DisputeRepository описывает взаимодействие сервиса с хранилищем споров.
type DisputeRepository interface {
	Create(ctx context.Context, dispute *models.Dispute) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error)
	ListByUser(ctx context.Context, userID uuid.UUID, status string, limit, offset int) ([]models.Dispute, error)
	ListAll(ctx context.Context, status string, limit, offset int) ([]models.Dispute, error)
	TakeUnderReview(ctx context.Context, id, adminID uuid.UUID) (*models.Dispute, error)
	AddEvidence(ctx context.Context, evidence *models.DisputeEvidence) error
	AddMessage(ctx context.Context, msg *models.DisputeMessage) error
	Resolve(ctx context.Context, id uuid.UUID, resolution valueobject.DisputeResolution, adminNotes string, orderStatus valueobject.OrderStatus) (*models.Dispute, error)
	Close(ctx context.Context, id uuid.UUID) (*models.Dispute, error)
	Stats(ctx context.Context) (*repository.DisputeStats, error)
}

// PaymentFinder находит платёж заказа для применения решений по спору.
type PaymentFinder interface {
	GetByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Payment, error)
}

// EscrowRefunder — возврат средств через эскроу-сервис. Статус платежа
// спорный сервис сам не трогает.
type EscrowRefunder interface {
	Refund(ctx context.Context, in RefundInput) (*models.Payment, error)
}

// OrderRevisioner увеличивает счётчики правок заказа.
type OrderRevisioner interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	IncrementRevisions(ctx context.Context, id uuid.UUID, requested, completed int) error
}

// DisputeService содержит бизнес-логику разрешения споров.
type DisputeService struct {
	disputes DisputeRepository
	orders   OrderRevisioner
	payments PaymentFinder
	escrow   EscrowRefunder
	notifier Notifier
}

// NewDisputeService создаёт сервис споров.
func NewDisputeService(disputes DisputeRepository, orders OrderRevisioner, payments PaymentFinder, escrow EscrowRefunder, notifier Notifier) *DisputeService {
	return &DisputeService{
		disputes: disputes,
		orders:   orders,
		payments: payments,
		escrow:   escrow,
		notifier: notifier,
	}
}

// OpenDisputeInput описывает входные данные открытия спора.
type OpenDisputeInput struct {
	OrderID     uuid.UUID
	InitiatorID uuid.UUID
	Type        valueobject.DisputeType
	Reason      string
}

// OpenDispute открывает спор по заказу. Ответчиком становится вторая
// сторона заказа, сам заказ принудительно переводится в disputed.
func (s *DisputeService) OpenDispute(ctx context.Context, in OpenDisputeInput) (*models.Dispute, error) {
	if !in.Type.IsValid() {
		return nil, apperror.Newf(apperror.ErrCodeValidation, "неизвестный тип спора: %q", in.Type)
	}
	if strings.TrimSpace(in.Reason) == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "причина спора не может быть пустой")
	}

	order, err := s.orders.GetByID(ctx, in.OrderID)
	if err != nil {
		return nil, err
	}
	if !order.IsParty(in.InitiatorID) {
		return nil, apperror.ErrNotOrderParty
	}

	dispute := &models.Dispute{
		OrderID:      in.OrderID,
		InitiatorID:  in.InitiatorID,
		RespondentID: order.OtherParty(in.InitiatorID),
		Type:         in.Type,
		Reason:       in.Reason,
	}
	if err := s.disputes.Create(ctx, dispute); err != nil {
		return nil, err
	}

	s.notify(dispute.RespondentID, models.EventDisputeOpened, dispute)

	return dispute, nil
}

// GetDispute возвращает спор; доступ есть у сторон и администратора.
func (s *DisputeService) GetDispute(ctx context.Context, disputeID, actorID uuid.UUID, isAdmin bool) (*models.Dispute, error) {
	dispute, err := s.disputes.GetByID(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && !dispute.IsParty(actorID) {
		return nil, apperror.ErrNotAuthorized
	}
	return dispute, nil
}

// ListMyDisputes возвращает споры, в которых пользователь — сторона.
func (s *DisputeService) ListMyDisputes(ctx context.Context, userID uuid.UUID, status string, limit, offset int) ([]models.Dispute, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.disputes.ListByUser(ctx, userID, status, limit, offset)
}

// ListAll возвращает админскую очередь споров.
func (s *DisputeService) ListAll(ctx context.Context, isAdmin bool, status string, limit, offset int) ([]models.Dispute, error) {
	if !isAdmin {
		return nil, apperror.ErrNotAdmin
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.disputes.ListAll(ctx, status, limit, offset)
}

// TakeUnderReview закрепляет спор за администратором.
func (s *DisputeService) TakeUnderReview(ctx context.Context, disputeID, adminID uuid.UUID, isAdmin bool) (*models.Dispute, error) {
	if !isAdmin {
		return nil, apperror.ErrNotAdmin
	}
	return s.disputes.TakeUnderReview(ctx, disputeID, adminID)
}

// AddEvidenceInput описывает прикрепляемое доказательство.
type AddEvidenceInput struct {
	DisputeID   uuid.UUID
	UploaderID  uuid.UUID
	Type        valueobject.EvidenceType
	Description string
	FileURL     *string
}

// AddEvidence прикрепляет доказательство. Разрешено сторонам спора,
// пока спор не закрыт.
func (s *DisputeService) AddEvidence(ctx context.Context, in AddEvidenceInput) (*models.DisputeEvidence, error) {
	if !in.Type.IsValid() {
		return nil, apperror.Newf(apperror.ErrCodeValidation, "неизвестный тип доказательства: %q", in.Type)
	}

	dispute, err := s.disputes.GetByID(ctx, in.DisputeID)
	if err != nil {
		return nil, err
	}
	if !dispute.IsParty(in.UploaderID) {
		return nil, apperror.ErrNotDisputeParty
	}
	if dispute.Status == valueobject.DisputeStatusClosed {
		return nil, apperror.ErrAlreadyTerminal
	}

	evidence := &models.DisputeEvidence{
		DisputeID:   in.DisputeID,
		Type:        in.Type,
		Description: in.Description,
		FileURL:     in.FileURL,
		UploadedBy:  in.UploaderID,
	}
	if err := s.disputes.AddEvidence(ctx, evidence); err != nil {
		return nil, err
	}
	return evidence, nil
}

// AddMessage добавляет сообщение в переписку спора. Писать могут стороны
// и администратор.
func (s *DisputeService) AddMessage(ctx context.Context, disputeID, senderID uuid.UUID, body string, isAdmin bool) (*models.DisputeMessage, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "текст сообщения не может быть пустым")
	}

	dispute, err := s.disputes.GetByID(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && !dispute.IsParty(senderID) {
		return nil, apperror.ErrNotAuthorized
	}

	msg := &models.DisputeMessage{
		DisputeID: disputeID,
		SenderID:  senderID,
		Body:      body,
		IsAdmin:   isAdmin,
	}
	if err := s.disputes.AddMessage(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// ResolveInput описывает решение администратора по спору.
type ResolveInput struct {
	DisputeID     uuid.UUID
	AdminID       uuid.UUID
	IsAdmin       bool
	Resolution    valueobject.DisputeResolution
	AdminNotes    string
	PartialAmount *decimal.Decimal
}

// Resolve применяет решение администратора. Пять исходов взаимно
// исключающие: полный возврат отменяет заказ, частичный оставляет его в
// работе, continue_work и revision снимают спор, cancelled отменяет
// заказ без возврата. Возврат средств проводится до смены статусов:
// если процессор откажет, спор остаётся открытым.
func (s *DisputeService) Resolve(ctx context.Context, in ResolveInput) (*models.Dispute, error) {
	if !in.IsAdmin {
		return nil, apperror.ErrNotAdmin
	}

	dispute, err := s.disputes.GetByID(ctx, in.DisputeID)
	if err != nil {
		return nil, err
	}
	if dispute.Status.IsTerminal() {
		return nil, apperror.ErrAlreadyTerminal
	}

	var orderStatus valueobject.OrderStatus
	switch in.Resolution {
	case valueobject.ResolutionRefundFull:
		if err := s.refund(ctx, dispute, in, nil, true); err != nil {
			return nil, err
		}
		orderStatus = valueobject.OrderStatusCancelled

	case valueobject.ResolutionRefundPartial:
		if in.PartialAmount == nil {
			return nil, apperror.New(apperror.ErrCodeValidation, "для частичного возврата нужна сумма")
		}
		if err := s.refund(ctx, dispute, in, in.PartialAmount, false); err != nil {
			return nil, err
		}
		orderStatus = valueobject.OrderStatusInProgress

	case valueobject.ResolutionContinueWork:
		orderStatus = valueobject.OrderStatusInProgress

	case valueobject.ResolutionRevision:
		orderStatus = valueobject.OrderStatusInProgress
		if err := s.orders.IncrementRevisions(ctx, dispute.OrderID, 1, 0); err != nil && logger.Log != nil {
			logger.Log.WithError(err).WithField("order_id", dispute.OrderID).Warn("dispute service: не удалось увеличить счётчик правок")
		}

	case valueobject.ResolutionCancelled:
		// Отмена без возврата: средства либо не списывались, либо
		// остаются у площадки по решению администратора.
		orderStatus = valueobject.OrderStatusCancelled

	default:
		return nil, apperror.ErrInvalidResolution
	}

	resolved, err := s.disputes.Resolve(ctx, in.DisputeID, in.Resolution, in.AdminNotes, orderStatus)
	if err != nil {
		return nil, err
	}

	s.notify(resolved.InitiatorID, models.EventDisputeResolved, resolved)
	s.notify(resolved.RespondentID, models.EventDisputeResolved, resolved)

	return resolved, nil
}

// refund проводит возврат по платежу заказа в рамках решения спора.
// Отсутствие платежа — ошибка: возврат без списания невозможен.
func (s *DisputeService) refund(ctx context.Context, dispute *models.Dispute, in ResolveInput, partial *decimal.Decimal, cancelOrder bool) error {
	payment, err := s.payments.GetByOrderID(ctx, dispute.OrderID)
	if err != nil {
		return err
	}

	reason := in.AdminNotes
	if reason == "" {
		reason = "возврат по решению спора"
	}

	_, err = s.escrow.Refund(ctx, RefundInput{
		PaymentID:     payment.ID,
		ActorID:       in.AdminID,
		IsAdmin:       true,
		Reason:        reason,
		PartialAmount: partial,
		CancelOrder:   cancelOrder,
	})
	return err
}

// Close закрывает спор без решения: брошенные и дублирующие споры.
// Статусы заказа и платежа не меняются.
func (s *DisputeService) Close(ctx context.Context, disputeID uuid.UUID, isAdmin bool) (*models.Dispute, error) {
	if !isAdmin {
		return nil, apperror.ErrNotAdmin
	}
	return s.disputes.Close(ctx, disputeID)
}

// Stats возвращает сводку по спорам для админской панели.
func (s *DisputeService) Stats(ctx context.Context, isAdmin bool) (*repository.DisputeStats, error) {
	if !isAdmin {
		return nil, apperror.ErrNotAdmin
	}
	return s.disputes.Stats(ctx)
}

func (s *DisputeService) notify(userID uuid.UUID, event string, payload interface{}) {
	if s.notifier != nil {
		s.notifier.Notify(userID, event, payload)
	}
}
