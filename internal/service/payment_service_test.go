package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/ignatzorin/gigmarket-backend/internal/domain/valueobject"
	"github.com/ignatzorin/gigmarket-backend/internal/models"
	"github.com/ignatzorin/gigmarket-backend/internal/pkg/apperror"
	"github.com/ignatzorin/gigmarket-backend/internal/processor"
	"github.com/ignatzorin/gigmarket-backend/internal/repository"
)

type mockPaymentRepo struct {
	mock.Mock
}

func (m *mockPaymentRepo) Create(ctx context.Context, payment *models.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *mockPaymentRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}

func (m *mockPaymentRepo) GetActiveByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Payment, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}

func (m *mockPaymentRepo) ListByUser(ctx context.Context, userID uuid.UUID, status string, limit, offset int) ([]models.Payment, error) {
	args := m.Called(ctx, userID, status, limit, offset)
	return args.Get(0).([]models.Payment), args.Error(1)
}

func (m *mockPaymentRepo) SetIntent(ctx context.Context, id uuid.UUID, intentID string) error {
	args := m.Called(ctx, id, intentID)
	return args.Error(0)
}

func (m *mockPaymentRepo) Confirm(ctx context.Context, id uuid.UUID, chargeID string) (*models.Payment, error) {
	args := m.Called(ctx, id, chargeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}

func (m *mockPaymentRepo) Release(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}

func (m *mockPaymentRepo) MarkFailed(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockPaymentRepo) Refund(ctx context.Context, id uuid.UUID, reason, refundID string, cancelOrder bool) (*models.Payment, error) {
	args := m.Called(ctx, id, reason, refundID, cancelOrder)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}

func (m *mockPaymentRepo) Stats(ctx context.Context, userID uuid.UUID, since time.Time) (*repository.PaymentStats, error) {
	args := m.Called(ctx, userID, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.PaymentStats), args.Error(1)
}

type mockOrderReader struct {
	mock.Mock
}

func (m *mockOrderReader) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) CreateIntent(ctx context.Context, in processor.CreateIntentInput) (*processor.Intent, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*processor.Intent), args.Error(1)
}

func (m *mockGateway) RetrieveIntent(ctx context.Context, intentID string) (*processor.Intent, error) {
	args := m.Called(ctx, intentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*processor.Intent), args.Error(1)
}

func (m *mockGateway) CreateRefund(ctx context.Context, in processor.CreateRefundInput) (*processor.Refund, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*processor.Refund), args.Error(1)
}

func pendingOrder(clientID uuid.UUID) *models.Order {
	return &models.Order{
		ID:           uuid.New(),
		ClientID:     clientID,
		FreelancerID: uuid.New(),
		Status:       valueobject.OrderStatusPending,
		Amount:       decimal.RequireFromString("100"),
	}
}

func TestEscrowService_InitiateEscrow_Success(t *testing.T) {
	payments := new(mockPaymentRepo)
	orders := new(mockOrderReader)
	gateway := new(mockGateway)
	svc := NewEscrowService(payments, orders, gateway, nil)
	ctx := context.Background()

	clientID := uuid.New()
	order := pendingOrder(clientID)
	orders.On("GetByID", ctx, order.ID).Return(order, nil)
	payments.On("GetActiveByOrderID", ctx, order.ID).Return(nil, apperror.ErrPaymentNotFound)
	payments.On("Create", ctx, mock.AnythingOfType("*models.Payment")).Return(nil)

	intent := &processor.Intent{ID: "pi_1", ClientSecret: "secret_1", Status: "requires_confirmation"}
	gateway.On("CreateIntent", ctx, mock.MatchedBy(func(in processor.CreateIntentInput) bool {
		return in.Amount.Equal(decimal.RequireFromString("110")) && in.Currency == valueobject.Currency
	})).Return(intent, nil)
	payments.On("SetIntent", ctx, mock.AnythingOfType("uuid.UUID"), "pi_1").Return(nil)

	result, err := svc.InitiateEscrow(ctx, order.ID, clientID)
	assert.NoError(t, err)
	assert.Equal(t, "secret_1", result.ClientSecret)
	assert.True(t, result.Payment.PlatformFee.Equal(decimal.RequireFromString("10")))
	assert.True(t, result.Payment.FreelancerAmount.Equal(decimal.RequireFromString("90")))
	payments.AssertExpectations(t)
	gateway.AssertExpectations(t)
}

func TestEscrowService_InitiateEscrow_NotOwner(t *testing.T) {
	payments := new(mockPaymentRepo)
	orders := new(mockOrderReader)
	svc := NewEscrowService(payments, orders, new(mockGateway), nil)
	ctx := context.Background()

	order := pendingOrder(uuid.New())
	orders.On("GetByID", ctx, order.ID).Return(order, nil)

	_, err := svc.InitiateEscrow(ctx, order.ID, uuid.New())
	assert.ErrorIs(t, err, apperror.ErrNotOrderOwner)
	payments.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestEscrowService_InitiateEscrow_OrderNotPending(t *testing.T) {
	payments := new(mockPaymentRepo)
	orders := new(mockOrderReader)
	svc := NewEscrowService(payments, orders, new(mockGateway), nil)
	ctx := context.Background()

	clientID := uuid.New()
	order := pendingOrder(clientID)
	order.Status = valueobject.OrderStatusCancelled
	orders.On("GetByID", ctx, order.ID).Return(order, nil)
	payments.On("GetActiveByOrderID", ctx, order.ID).Return(nil, apperror.ErrPaymentNotFound)

	_, err := svc.InitiateEscrow(ctx, order.ID, clientID)
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)
}

func TestEscrowService_InitiateEscrow_AlreadyPaidAfterConfirm(t *testing.T) {
	payments := new(mockPaymentRepo)
	orders := new(mockOrderReader)
	svc := NewEscrowService(payments, orders, new(mockGateway), nil)
	ctx := context.Background()

	// Заказ уже оплачен и подтверждён: статус in-progress, платёж в
	// processing. Повторная инициация должна падать как "уже оплачен",
	// а не как недопустимый переход статуса.
	clientID := uuid.New()
	order := pendingOrder(clientID)
	order.Status = valueobject.OrderStatusInProgress
	active := &models.Payment{ID: uuid.New(), OrderID: order.ID, ClientID: clientID, Status: valueobject.PaymentStatusProcessing}

	orders.On("GetByID", ctx, order.ID).Return(order, nil)
	payments.On("GetActiveByOrderID", ctx, order.ID).Return(active, nil)

	_, err := svc.InitiateEscrow(ctx, order.ID, clientID)
	assert.ErrorIs(t, err, apperror.ErrAlreadyPaid)
	payments.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestEscrowService_InitiateEscrow_DuplicatePayment(t *testing.T) {
	payments := new(mockPaymentRepo)
	orders := new(mockOrderReader)
	svc := NewEscrowService(payments, orders, new(mockGateway), nil)
	ctx := context.Background()

	clientID := uuid.New()
	order := pendingOrder(clientID)
	orders.On("GetByID", ctx, order.ID).Return(order, nil)
	payments.On("GetActiveByOrderID", ctx, order.ID).Return(nil, apperror.ErrPaymentNotFound)
	payments.On("Create", ctx, mock.AnythingOfType("*models.Payment")).Return(apperror.ErrAlreadyPaid)

	_, err := svc.InitiateEscrow(ctx, order.ID, clientID)
	assert.ErrorIs(t, err, apperror.ErrAlreadyPaid)
}

func TestEscrowService_InitiateEscrow_GatewayDown(t *testing.T) {
	payments := new(mockPaymentRepo)
	orders := new(mockOrderReader)
	gateway := new(mockGateway)
	svc := NewEscrowService(payments, orders, gateway, nil)
	ctx := context.Background()

	clientID := uuid.New()
	order := pendingOrder(clientID)
	orders.On("GetByID", ctx, order.ID).Return(order, nil)
	payments.On("GetActiveByOrderID", ctx, order.ID).Return(nil, apperror.ErrPaymentNotFound)
	payments.On("Create", ctx, mock.AnythingOfType("*models.Payment")).Return(nil)
	gateway.On("CreateIntent", ctx, mock.Anything).Return(nil, apperror.New(apperror.ErrCodeUnavailable, "процессор недоступен"))
	payments.On("MarkFailed", ctx, mock.AnythingOfType("uuid.UUID")).Return(nil)

	_, err := svc.InitiateEscrow(ctx, order.ID, clientID)
	assert.Error(t, err)
	payments.AssertCalled(t, "MarkFailed", ctx, mock.AnythingOfType("uuid.UUID"))
}

func TestEscrowService_ConfirmEscrow_Success(t *testing.T) {
	payments := new(mockPaymentRepo)
	gateway := new(mockGateway)
	svc := NewEscrowService(payments, new(mockOrderReader), gateway, nil)
	ctx := context.Background()

	clientID := uuid.New()
	intentID := "pi_1"
	payment := &models.Payment{ID: uuid.New(), ClientID: clientID, FreelancerID: uuid.New(), Status: valueobject.PaymentStatusPending, ProcessorIntentID: &intentID}
	confirmed := &models.Payment{ID: payment.ID, ClientID: clientID, FreelancerID: payment.FreelancerID, Status: valueobject.PaymentStatusProcessing}

	payments.On("GetByID", ctx, payment.ID).Return(payment, nil)
	gateway.On("RetrieveIntent", ctx, intentID).Return(&processor.Intent{ID: intentID, Status: "succeeded", ChargeID: "ch_1"}, nil)
	payments.On("Confirm", ctx, payment.ID, "ch_1").Return(confirmed, nil)

	got, err := svc.ConfirmEscrow(ctx, payment.ID, clientID)
	assert.NoError(t, err)
	assert.Equal(t, valueobject.PaymentStatusProcessing, got.Status)
}

func TestEscrowService_ConfirmEscrow_NotSucceeded(t *testing.T) {
	payments := new(mockPaymentRepo)
	gateway := new(mockGateway)
	svc := NewEscrowService(payments, new(mockOrderReader), gateway, nil)
	ctx := context.Background()

	clientID := uuid.New()
	intentID := "pi_1"
	payment := &models.Payment{ID: uuid.New(), ClientID: clientID, Status: valueobject.PaymentStatusPending, ProcessorIntentID: &intentID}

	payments.On("GetByID", ctx, payment.ID).Return(payment, nil)
	gateway.On("RetrieveIntent", ctx, intentID).Return(&processor.Intent{ID: intentID, Status: "requires_payment_method"}, nil)

	_, err := svc.ConfirmEscrow(ctx, payment.ID, clientID)
	assert.ErrorIs(t, err, apperror.ErrPaymentNotSucceeded)
	payments.AssertNotCalled(t, "Confirm", mock.Anything, mock.Anything, mock.Anything)
}

func TestEscrowService_ConfirmEscrow_NoIntent(t *testing.T) {
	payments := new(mockPaymentRepo)
	svc := NewEscrowService(payments, new(mockOrderReader), new(mockGateway), nil)
	ctx := context.Background()

	clientID := uuid.New()
	payment := &models.Payment{ID: uuid.New(), ClientID: clientID, Status: valueobject.PaymentStatusPending}
	payments.On("GetByID", ctx, payment.ID).Return(payment, nil)

	_, err := svc.ConfirmEscrow(ctx, payment.ID, clientID)
	assert.ErrorIs(t, err, apperror.ErrPaymentNotSucceeded)
}

func TestEscrowService_ReleaseEscrow_FreelancerForbidden(t *testing.T) {
	payments := new(mockPaymentRepo)
	svc := NewEscrowService(payments, new(mockOrderReader), new(mockGateway), nil)
	ctx := context.Background()

	freelancerID := uuid.New()
	payment := &models.Payment{ID: uuid.New(), ClientID: uuid.New(), FreelancerID: freelancerID, Status: valueobject.PaymentStatusProcessing}
	payments.On("GetByID", ctx, payment.ID).Return(payment, nil)

	_, err := svc.ReleaseEscrow(ctx, payment.ID, freelancerID, false)
	assert.ErrorIs(t, err, apperror.ErrNotAuthorized)
}

func TestEscrowService_ReleaseEscrow_AdminAllowed(t *testing.T) {
	payments := new(mockPaymentRepo)
	svc := NewEscrowService(payments, new(mockOrderReader), new(mockGateway), nil)
	ctx := context.Background()

	payment := &models.Payment{ID: uuid.New(), ClientID: uuid.New(), FreelancerID: uuid.New(), Status: valueobject.PaymentStatusProcessing}
	released := &models.Payment{ID: payment.ID, FreelancerID: payment.FreelancerID, Status: valueobject.PaymentStatusCompleted}

	payments.On("GetByID", ctx, payment.ID).Return(payment, nil)
	payments.On("Release", ctx, payment.ID).Return(released, nil)

	got, err := svc.ReleaseEscrow(ctx, payment.ID, uuid.New(), true)
	assert.NoError(t, err)
	assert.Equal(t, valueobject.PaymentStatusCompleted, got.Status)
}

func TestEscrowService_Refund_Full(t *testing.T) {
	payments := new(mockPaymentRepo)
	gateway := new(mockGateway)
	svc := NewEscrowService(payments, new(mockOrderReader), gateway, nil)
	ctx := context.Background()

	clientID := uuid.New()
	chargeID := "ch_1"
	payment := &models.Payment{
		ID:                uuid.New(),
		ClientID:          clientID,
		Status:            valueobject.PaymentStatusProcessing,
		Amount:            decimal.RequireFromString("100"),
		ProcessorChargeID: &chargeID,
	}
	refunded := &models.Payment{ID: payment.ID, ClientID: clientID, Status: valueobject.PaymentStatusRefunded}

	payments.On("GetByID", ctx, payment.ID).Return(payment, nil)
	gateway.On("CreateRefund", ctx, mock.MatchedBy(func(in processor.CreateRefundInput) bool {
		return in.ChargeID == chargeID && in.Amount.Equal(payment.Amount)
	})).Return(&processor.Refund{ID: "re_1", Status: "succeeded"}, nil)
	payments.On("Refund", ctx, payment.ID, "не устроило качество", "re_1", true).Return(refunded, nil)

	got, err := svc.Refund(ctx, RefundInput{
		PaymentID:   payment.ID,
		ActorID:     clientID,
		Reason:      "не устроило качество",
		CancelOrder: true,
	})
	assert.NoError(t, err)
	assert.Equal(t, valueobject.PaymentStatusRefunded, got.Status)
}

func TestEscrowService_Refund_PartialBounds(t *testing.T) {
	payments := new(mockPaymentRepo)
	svc := NewEscrowService(payments, new(mockOrderReader), new(mockGateway), nil)
	ctx := context.Background()

	clientID := uuid.New()
	chargeID := "ch_1"
	payment := &models.Payment{
		ID:                uuid.New(),
		ClientID:          clientID,
		Status:            valueobject.PaymentStatusProcessing,
		Amount:            decimal.RequireFromString("100"),
		ProcessorChargeID: &chargeID,
	}
	payments.On("GetByID", ctx, payment.ID).Return(payment, nil)

	over := decimal.RequireFromString("150")
	_, err := svc.Refund(ctx, RefundInput{PaymentID: payment.ID, ActorID: clientID, PartialAmount: &over})
	assert.Error(t, err)
	assert.True(t, apperror.IsValidation(err))

	zero := decimal.Zero
	_, err = svc.Refund(ctx, RefundInput{PaymentID: payment.ID, ActorID: clientID, PartialAmount: &zero})
	assert.Error(t, err)
}

func TestEscrowService_Refund_NotRefundableStatus(t *testing.T) {
	payments := new(mockPaymentRepo)
	svc := NewEscrowService(payments, new(mockOrderReader), new(mockGateway), nil)
	ctx := context.Background()

	clientID := uuid.New()
	payment := &models.Payment{ID: uuid.New(), ClientID: clientID, Status: valueobject.PaymentStatusPending}
	payments.On("GetByID", ctx, payment.ID).Return(payment, nil)

	_, err := svc.Refund(ctx, RefundInput{PaymentID: payment.ID, ActorID: clientID})
	assert.ErrorIs(t, err, apperror.ErrNotRefundable)
}

func TestEscrowService_Refund_GatewayErrorKeepsPayment(t *testing.T) {
	payments := new(mockPaymentRepo)
	gateway := new(mockGateway)
	svc := NewEscrowService(payments, new(mockOrderReader), gateway, nil)
	ctx := context.Background()

	clientID := uuid.New()
	chargeID := "ch_1"
	payment := &models.Payment{
		ID:                uuid.New(),
		ClientID:          clientID,
		Status:            valueobject.PaymentStatusProcessing,
		Amount:            decimal.RequireFromString("100"),
		ProcessorChargeID: &chargeID,
	}
	payments.On("GetByID", ctx, payment.ID).Return(payment, nil)
	gateway.On("CreateRefund", ctx, mock.Anything).Return(nil, apperror.New(apperror.ErrCodeUnavailable, "процессор недоступен"))

	_, err := svc.Refund(ctx, RefundInput{PaymentID: payment.ID, ActorID: clientID})
	assert.Error(t, err)
	payments.AssertNotCalled(t, "Refund", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestEscrowService_Stats_UnknownWindow(t *testing.T) {
	svc := NewEscrowService(new(mockPaymentRepo), new(mockOrderReader), new(mockGateway), nil)

	_, err := svc.Stats(context.Background(), uuid.New(), "365d")
	assert.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
}
