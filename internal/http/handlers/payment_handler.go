package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/gigmarket-backend/internal/dto"
	"github.com/ignatzorin/gigmarket-backend/internal/http/handlers/common"
	"github.com/ignatzorin/gigmarket-backend/internal/service"
)

// PaymentHandler предоставляет HTTP слой для эскроу-платежей.
type PaymentHandler struct {
	escrow *service.EscrowService
}

// NewPaymentHandler создаёт хэндлер.
func NewPaymentHandler(escrow *service.EscrowService) *PaymentHandler {
	return &PaymentHandler{escrow: escrow}
}

// CreateIntent обрабатывает POST /payments/intent.
func (h *PaymentHandler) CreateIntent(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	var req dto.CreateIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	orderID, err := common.ParseUUIDString(req.OrderID)
	if err != nil {
		common.RespondBadRequest(c, "неверный идентификатор заказа")
		return
	}

	result, err := h.escrow.InitiateEscrow(c.Request.Context(), orderID, userID)
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.IntentResponse{
		Payment:      result.Payment,
		ClientSecret: result.ClientSecret,
	})
}

// Confirm обрабатывает POST /payments/confirm.
func (h *PaymentHandler) Confirm(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	var req dto.ConfirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	paymentID, err := common.ParseUUIDString(req.PaymentID)
	if err != nil {
		common.RespondBadRequest(c, "неверный идентификатор платежа")
		return
	}

	payment, err := h.escrow.ConfirmEscrow(c.Request.Context(), paymentID, userID)
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, payment)
}

// Release обрабатывает POST /payments/release.
func (h *PaymentHandler) Release(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	var req dto.ReleasePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	paymentID, err := common.ParseUUIDString(req.PaymentID)
	if err != nil {
		common.RespondBadRequest(c, "неверный идентификатор платежа")
		return
	}

	payment, err := h.escrow.ReleaseEscrow(c.Request.Context(), paymentID, userID, common.IsAdmin(c))
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, payment)
}

// Refund обрабатывает POST /payments/refund.
func (h *PaymentHandler) Refund(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	var req dto.RefundPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	paymentID, err := common.ParseUUIDString(req.PaymentID)
	if err != nil {
		common.RespondBadRequest(c, "неверный идентификатор платежа")
		return
	}

	// Прямой возврат всегда полный и отменяет заказ. Частичные возвраты
	// доступны только администратору через резолюцию спора.
	payment, err := h.escrow.Refund(c.Request.Context(), service.RefundInput{
		PaymentID:   paymentID,
		ActorID:     userID,
		IsAdmin:     common.IsAdmin(c),
		Reason:      req.Reason,
		CancelOrder: true,
	})
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, payment)
}

// ListMy обрабатывает GET /payments/my-payments.
func (h *PaymentHandler) ListMy(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	limit, offset := common.GetPagination(c)
	status := c.Query("status")

	payments, err := h.escrow.ListMyPayments(c.Request.Context(), userID, status, limit, offset)
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewListResponse(payments, limit, offset, len(payments)))
}

// Get обрабатывает GET /payments/:id.
func (h *PaymentHandler) Get(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	paymentID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	payment, err := h.escrow.GetPayment(c.Request.Context(), paymentID, userID, common.IsAdmin(c))
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, payment)
}

// Stats обрабатывает GET /payments/stats.
func (h *PaymentHandler) Stats(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	stats, err := h.escrow.Stats(c.Request.Context(), userID, c.Query("window"))
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}
