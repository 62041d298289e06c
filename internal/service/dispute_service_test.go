package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/ignatzorin/gigmarket-backend/internal/domain/valueobject"
	"github.com/ignatzorin/gigmarket-backend/internal/models"
	"github.com/ignatzorin/gigmarket-backend/internal/pkg/apperror"
	"github.com/ignatzorin/gigmarket-backend/internal/repository"
)

type mockDisputeRepo struct {
	mock.Mock
}

func (m *mockDisputeRepo) Create(ctx context.Context, dispute *models.Dispute) error {
	args := m.Called(ctx, dispute)
	return args.Error(0)
}

func (m *mockDisputeRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Dispute), args.Error(1)
}

func (m *mockDisputeRepo) ListByUser(ctx context.Context, userID uuid.UUID, status string, limit, offset int) ([]models.Dispute, error) {
	args := m.Called(ctx, userID, status, limit, offset)
	return args.Get(0).([]models.Dispute), args.Error(1)
}

func (m *mockDisputeRepo) ListAll(ctx context.Context, status string, limit, offset int) ([]models.Dispute, error) {
	args := m.Called(ctx, status, limit, offset)
	return args.Get(0).([]models.Dispute), args.Error(1)
}

func (m *mockDisputeRepo) TakeUnderReview(ctx context.Context, id, adminID uuid.UUID) (*models.Dispute, error) {
	args := m.Called(ctx, id, adminID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Dispute), args.Error(1)
}

func (m *mockDisputeRepo) AddEvidence(ctx context.Context, evidence *models.DisputeEvidence) error {
	args := m.Called(ctx, evidence)
	return args.Error(0)
}

func (m *mockDisputeRepo) AddMessage(ctx context.Context, msg *models.DisputeMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *mockDisputeRepo) Resolve(ctx context.Context, id uuid.UUID, resolution valueobject.DisputeResolution, adminNotes string, orderStatus valueobject.OrderStatus) (*models.Dispute, error) {
	args := m.Called(ctx, id, resolution, adminNotes, orderStatus)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Dispute), args.Error(1)
}

func (m *mockDisputeRepo) Close(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Dispute), args.Error(1)
}

func (m *mockDisputeRepo) Stats(ctx context.Context) (*repository.DisputeStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.DisputeStats), args.Error(1)
}

type mockOrderRevisioner struct {
	mock.Mock
}

func (m *mockOrderRevisioner) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *mockOrderRevisioner) IncrementRevisions(ctx context.Context, id uuid.UUID, requested, completed int) error {
	args := m.Called(ctx, id, requested, completed)
	return args.Error(0)
}

type mockPaymentFinder struct {
	mock.Mock
}

func (m *mockPaymentFinder) GetByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Payment, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}

type mockEscrowRefunder struct {
	mock.Mock
}

func (m *mockEscrowRefunder) Refund(ctx context.Context, in RefundInput) (*models.Payment, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}

func newDisputeService(disputes *mockDisputeRepo, orders *mockOrderRevisioner, payments *mockPaymentFinder, escrow *mockEscrowRefunder) *DisputeService {
	return NewDisputeService(disputes, orders, payments, escrow, nil)
}

func openDispute(orderID uuid.UUID) *models.Dispute {
	return &models.Dispute{
		ID:           uuid.New(),
		OrderID:      orderID,
		InitiatorID:  uuid.New(),
		RespondentID: uuid.New(),
		Type:         valueobject.DisputeTypeQuality,
		Status:       valueobject.DisputeStatusOpen,
	}
}

func TestDisputeService_OpenDispute_Success(t *testing.T) {
	disputes := new(mockDisputeRepo)
	orders := new(mockOrderRevisioner)
	svc := newDisputeService(disputes, orders, new(mockPaymentFinder), new(mockEscrowRefunder))
	ctx := context.Background()

	clientID := uuid.New()
	freelancerID := uuid.New()
	order := &models.Order{ID: uuid.New(), ClientID: clientID, FreelancerID: freelancerID, Status: valueobject.OrderStatusInProgress}
	orders.On("GetByID", ctx, order.ID).Return(order, nil)
	disputes.On("Create", ctx, mock.AnythingOfType("*models.Dispute")).Return(nil)

	dispute, err := svc.OpenDispute(ctx, OpenDisputeInput{
		OrderID:     order.ID,
		InitiatorID: clientID,
		Type:        valueobject.DisputeTypeQuality,
		Reason:      "Работа не соответствует требованиям",
	})

	assert.NoError(t, err)
	assert.Equal(t, freelancerID, dispute.RespondentID)
	disputes.AssertExpectations(t)
}

func TestDisputeService_OpenDispute_NotParty(t *testing.T) {
	disputes := new(mockDisputeRepo)
	orders := new(mockOrderRevisioner)
	svc := newDisputeService(disputes, orders, new(mockPaymentFinder), new(mockEscrowRefunder))
	ctx := context.Background()

	order := &models.Order{ID: uuid.New(), ClientID: uuid.New(), FreelancerID: uuid.New(), Status: valueobject.OrderStatusInProgress}
	orders.On("GetByID", ctx, order.ID).Return(order, nil)

	_, err := svc.OpenDispute(ctx, OpenDisputeInput{
		OrderID:     order.ID,
		InitiatorID: uuid.New(),
		Type:        valueobject.DisputeTypeDelivery,
		Reason:      "Просрочка",
	})
	assert.ErrorIs(t, err, apperror.ErrNotOrderParty)
}

func TestDisputeService_OpenDispute_DuplicatePassedThrough(t *testing.T) {
	disputes := new(mockDisputeRepo)
	orders := new(mockOrderRevisioner)
	svc := newDisputeService(disputes, orders, new(mockPaymentFinder), new(mockEscrowRefunder))
	ctx := context.Background()

	clientID := uuid.New()
	order := &models.Order{ID: uuid.New(), ClientID: clientID, FreelancerID: uuid.New(), Status: valueobject.OrderStatusInProgress}
	orders.On("GetByID", ctx, order.ID).Return(order, nil)
	disputes.On("Create", ctx, mock.AnythingOfType("*models.Dispute")).Return(apperror.ErrDuplicateDispute)

	_, err := svc.OpenDispute(ctx, OpenDisputeInput{
		OrderID:     order.ID,
		InitiatorID: clientID,
		Type:        valueobject.DisputeTypeQuality,
		Reason:      "Повторно",
	})
	assert.ErrorIs(t, err, apperror.ErrDuplicateDispute)
}

func TestDisputeService_AddEvidence_ClosedDispute(t *testing.T) {
	disputes := new(mockDisputeRepo)
	svc := newDisputeService(disputes, new(mockOrderRevisioner), new(mockPaymentFinder), new(mockEscrowRefunder))
	ctx := context.Background()

	dispute := openDispute(uuid.New())
	dispute.Status = valueobject.DisputeStatusClosed
	disputes.On("GetByID", ctx, dispute.ID).Return(dispute, nil)

	_, err := svc.AddEvidence(ctx, AddEvidenceInput{
		DisputeID:   dispute.ID,
		UploaderID:  dispute.InitiatorID,
		Type:        valueobject.EvidenceTypeScreenshot,
		Description: "скриншот переписки",
	})
	assert.ErrorIs(t, err, apperror.ErrAlreadyTerminal)
}

func TestDisputeService_AddEvidence_NotParty(t *testing.T) {
	disputes := new(mockDisputeRepo)
	svc := newDisputeService(disputes, new(mockOrderRevisioner), new(mockPaymentFinder), new(mockEscrowRefunder))
	ctx := context.Background()

	dispute := openDispute(uuid.New())
	disputes.On("GetByID", ctx, dispute.ID).Return(dispute, nil)

	_, err := svc.AddEvidence(ctx, AddEvidenceInput{
		DisputeID:   dispute.ID,
		UploaderID:  uuid.New(),
		Type:        valueobject.EvidenceTypeFile,
		Description: "файл",
	})
	assert.ErrorIs(t, err, apperror.ErrNotDisputeParty)
}

func TestDisputeService_Resolve_NotAdmin(t *testing.T) {
	svc := newDisputeService(new(mockDisputeRepo), new(mockOrderRevisioner), new(mockPaymentFinder), new(mockEscrowRefunder))

	_, err := svc.Resolve(context.Background(), ResolveInput{
		DisputeID:  uuid.New(),
		AdminID:    uuid.New(),
		IsAdmin:    false,
		Resolution: valueobject.ResolutionContinueWork,
	})
	assert.ErrorIs(t, err, apperror.ErrNotAdmin)
}

func TestDisputeService_Resolve_RefundFull(t *testing.T) {
	disputes := new(mockDisputeRepo)
	payments := new(mockPaymentFinder)
	escrow := new(mockEscrowRefunder)
	svc := newDisputeService(disputes, new(mockOrderRevisioner), payments, escrow)
	ctx := context.Background()

	orderID := uuid.New()
	dispute := openDispute(orderID)
	resolved := &models.Dispute{ID: dispute.ID, OrderID: orderID, InitiatorID: dispute.InitiatorID, RespondentID: dispute.RespondentID, Status: valueobject.DisputeStatusResolved}
	payment := &models.Payment{ID: uuid.New(), OrderID: orderID, Status: valueobject.PaymentStatusProcessing}
	adminID := uuid.New()

	disputes.On("GetByID", ctx, dispute.ID).Return(dispute, nil)
	payments.On("GetByOrderID", ctx, orderID).Return(payment, nil)
	escrow.On("Refund", ctx, mock.MatchedBy(func(in RefundInput) bool {
		return in.PaymentID == payment.ID && in.IsAdmin && in.CancelOrder && in.PartialAmount == nil
	})).Return(&models.Payment{ID: payment.ID, Status: valueobject.PaymentStatusRefunded}, nil)
	disputes.On("Resolve", ctx, dispute.ID, valueobject.ResolutionRefundFull, "клиент прав", valueobject.OrderStatusCancelled).Return(resolved, nil)

	got, err := svc.Resolve(ctx, ResolveInput{
		DisputeID:  dispute.ID,
		AdminID:    adminID,
		IsAdmin:    true,
		Resolution: valueobject.ResolutionRefundFull,
		AdminNotes: "клиент прав",
	})
	assert.NoError(t, err)
	assert.Equal(t, valueobject.DisputeStatusResolved, got.Status)
	escrow.AssertExpectations(t)
}

func TestDisputeService_Resolve_RefundPartialKeepsOrderInProgress(t *testing.T) {
	disputes := new(mockDisputeRepo)
	payments := new(mockPaymentFinder)
	escrow := new(mockEscrowRefunder)
	svc := newDisputeService(disputes, new(mockOrderRevisioner), payments, escrow)
	ctx := context.Background()

	orderID := uuid.New()
	dispute := openDispute(orderID)
	payment := &models.Payment{ID: uuid.New(), OrderID: orderID, Status: valueobject.PaymentStatusProcessing}
	partial := decimal.RequireFromString("30")

	disputes.On("GetByID", ctx, dispute.ID).Return(dispute, nil)
	payments.On("GetByOrderID", ctx, orderID).Return(payment, nil)
	escrow.On("Refund", ctx, mock.MatchedBy(func(in RefundInput) bool {
		return in.PartialAmount != nil && in.PartialAmount.Equal(partial) && !in.CancelOrder
	})).Return(&models.Payment{ID: payment.ID}, nil)
	disputes.On("Resolve", ctx, dispute.ID, valueobject.ResolutionRefundPartial, "", valueobject.OrderStatusInProgress).Return(dispute, nil)

	_, err := svc.Resolve(ctx, ResolveInput{
		DisputeID:     dispute.ID,
		AdminID:       uuid.New(),
		IsAdmin:       true,
		Resolution:    valueobject.ResolutionRefundPartial,
		PartialAmount: &partial,
	})
	assert.NoError(t, err)
	escrow.AssertExpectations(t)
}

func TestDisputeService_Resolve_RefundPartialRequiresAmount(t *testing.T) {
	disputes := new(mockDisputeRepo)
	svc := newDisputeService(disputes, new(mockOrderRevisioner), new(mockPaymentFinder), new(mockEscrowRefunder))
	ctx := context.Background()

	dispute := openDispute(uuid.New())
	disputes.On("GetByID", ctx, dispute.ID).Return(dispute, nil)

	_, err := svc.Resolve(ctx, ResolveInput{
		DisputeID:  dispute.ID,
		AdminID:    uuid.New(),
		IsAdmin:    true,
		Resolution: valueobject.ResolutionRefundPartial,
	})
	assert.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
}

func TestDisputeService_Resolve_RevisionIncrementsCounter(t *testing.T) {
	disputes := new(mockDisputeRepo)
	orders := new(mockOrderRevisioner)
	svc := newDisputeService(disputes, orders, new(mockPaymentFinder), new(mockEscrowRefunder))
	ctx := context.Background()

	dispute := openDispute(uuid.New())
	disputes.On("GetByID", ctx, dispute.ID).Return(dispute, nil)
	orders.On("IncrementRevisions", ctx, dispute.OrderID, 1, 0).Return(nil)
	disputes.On("Resolve", ctx, dispute.ID, valueobject.ResolutionRevision, "", valueobject.OrderStatusInProgress).Return(dispute, nil)

	_, err := svc.Resolve(ctx, ResolveInput{
		DisputeID:  dispute.ID,
		AdminID:    uuid.New(),
		IsAdmin:    true,
		Resolution: valueobject.ResolutionRevision,
	})
	assert.NoError(t, err)
	orders.AssertExpectations(t)
}

func TestDisputeService_Resolve_CancelledSkipsRefund(t *testing.T) {
	disputes := new(mockDisputeRepo)
	payments := new(mockPaymentFinder)
	escrow := new(mockEscrowRefunder)
	svc := newDisputeService(disputes, new(mockOrderRevisioner), payments, escrow)
	ctx := context.Background()

	dispute := openDispute(uuid.New())
	disputes.On("GetByID", ctx, dispute.ID).Return(dispute, nil)
	disputes.On("Resolve", ctx, dispute.ID, valueobject.ResolutionCancelled, "", valueobject.OrderStatusCancelled).Return(dispute, nil)

	_, err := svc.Resolve(ctx, ResolveInput{
		DisputeID:  dispute.ID,
		AdminID:    uuid.New(),
		IsAdmin:    true,
		Resolution: valueobject.ResolutionCancelled,
	})
	assert.NoError(t, err)
	escrow.AssertNotCalled(t, "Refund", mock.Anything, mock.Anything)
	payments.AssertNotCalled(t, "GetByOrderID", mock.Anything, mock.Anything)
}

func TestDisputeService_Resolve_RefundFailureLeavesDisputeOpen(t *testing.T) {
	disputes := new(mockDisputeRepo)
	payments := new(mockPaymentFinder)
	escrow := new(mockEscrowRefunder)
	svc := newDisputeService(disputes, new(mockOrderRevisioner), payments, escrow)
	ctx := context.Background()

	orderID := uuid.New()
	dispute := openDispute(orderID)
	payment := &models.Payment{ID: uuid.New(), OrderID: orderID}

	disputes.On("GetByID", ctx, dispute.ID).Return(dispute, nil)
	payments.On("GetByOrderID", ctx, orderID).Return(payment, nil)
	escrow.On("Refund", ctx, mock.Anything).Return(nil, apperror.New(apperror.ErrCodeUnavailable, "процессор недоступен"))

	_, err := svc.Resolve(ctx, ResolveInput{
		DisputeID:  dispute.ID,
		AdminID:    uuid.New(),
		IsAdmin:    true,
		Resolution: valueobject.ResolutionRefundFull,
	})
	assert.Error(t, err)
	disputes.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDisputeService_Resolve_AlreadyTerminal(t *testing.T) {
	disputes := new(mockDisputeRepo)
	svc := newDisputeService(disputes, new(mockOrderRevisioner), new(mockPaymentFinder), new(mockEscrowRefunder))
	ctx := context.Background()

	dispute := openDispute(uuid.New())
	dispute.Status = valueobject.DisputeStatusResolved
	disputes.On("GetByID", ctx, dispute.ID).Return(dispute, nil)

	_, err := svc.Resolve(ctx, ResolveInput{
		DisputeID:  dispute.ID,
		AdminID:    uuid.New(),
		IsAdmin:    true,
		Resolution: valueobject.ResolutionContinueWork,
	})
	assert.ErrorIs(t, err, apperror.ErrAlreadyTerminal)
}

func TestDisputeService_Resolve_UnknownResolution(t *testing.T) {
	disputes := new(mockDisputeRepo)
	svc := newDisputeService(disputes, new(mockOrderRevisioner), new(mockPaymentFinder), new(mockEscrowRefunder))
	ctx := context.Background()

	dispute := openDispute(uuid.New())
	disputes.On("GetByID", ctx, dispute.ID).Return(dispute, nil)

	_, err := svc.Resolve(ctx, ResolveInput{
		DisputeID:  dispute.ID,
		AdminID:    uuid.New(),
		IsAdmin:    true,
		Resolution: valueobject.DisputeResolution("refund"),
	})
	assert.ErrorIs(t, err, apperror.ErrInvalidResolution)
}

func TestDisputeService_Close_NotAdmin(t *testing.T) {
	svc := newDisputeService(new(mockDisputeRepo), new(mockOrderRevisioner), new(mockPaymentFinder), new(mockEscrowRefunder))

	_, err := svc.Close(context.Background(), uuid.New(), false)
	assert.ErrorIs(t, err, apperror.ErrNotAdmin)
}

func TestDisputeService_AddMessage_AdminAllowed(t *testing.T) {
	disputes := new(mockDisputeRepo)
	svc := newDisputeService(disputes, new(mockOrderRevisioner), new(mockPaymentFinder), new(mockEscrowRefunder))
	ctx := context.Background()

	dispute := openDispute(uuid.New())
	adminID := uuid.New()
	disputes.On("GetByID", ctx, dispute.ID).Return(dispute, nil)
	disputes.On("AddMessage", ctx, mock.AnythingOfType("*models.DisputeMessage")).Return(nil)

	msg, err := svc.AddMessage(ctx, dispute.ID, adminID, "Рассматриваю спор", true)
	assert.NoError(t, err)
	assert.True(t, msg.IsAdmin)
}

func TestDisputeService_GetDispute_NotParty(t *testing.T) {
	disputes := new(mockDisputeRepo)
	svc := newDisputeService(disputes, new(mockOrderRevisioner), new(mockPaymentFinder), new(mockEscrowRefunder))
	ctx := context.Background()

	dispute := openDispute(uuid.New())
	disputes.On("GetByID", ctx, dispute.ID).Return(dispute, nil)

	_, err := svc.GetDispute(ctx, dispute.ID, uuid.New(), false)
	assert.ErrorIs(t, err, apperror.ErrNotAuthorized)
}
