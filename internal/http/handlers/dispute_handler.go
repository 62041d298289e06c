package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/gigmarket-backend/internal/domain/valueobject"
	"github.com/ignatzorin/gigmarket-backend/internal/dto"
	"github.com/ignatzorin/gigmarket-backend/internal/http/handlers/common"
	"github.com/ignatzorin/gigmarket-backend/internal/service"
	"github.com/ignatzorin/gigmarket-backend/internal/storage"
)

// DisputeHandler предоставляет HTTP слой для споров.
type DisputeHandler struct {
	disputes *service.DisputeService
	evidence *storage.EvidenceStorage
}

// NewDisputeHandler создаёт хэндлер.
func NewDisputeHandler(disputes *service.DisputeService, evidence *storage.EvidenceStorage) *DisputeHandler {
	return &DisputeHandler{disputes: disputes, evidence: evidence}
}

// Open обрабатывает POST /disputes.
func (h *DisputeHandler) Open(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	var req dto.OpenDisputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	orderID, err := common.ParseUUIDString(req.OrderID)
	if err != nil {
		common.RespondBadRequest(c, "неверный идентификатор заказа")
		return
	}

	dispute, err := h.disputes.OpenDispute(c.Request.Context(), service.OpenDisputeInput{
		OrderID:     orderID,
		InitiatorID: userID,
		Type:        valueobject.DisputeType(req.Type),
		Reason:      req.Reason,
	})
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, dispute)
}

// ListMy обрабатывает GET /disputes/my-disputes.
func (h *DisputeHandler) ListMy(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	limit, offset := common.GetPagination(c)
	status := c.Query("status")

	disputes, err := h.disputes.ListMyDisputes(c.Request.Context(), userID, status, limit, offset)
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewListResponse(disputes, limit, offset, len(disputes)))
}

// Get обрабатывает GET /disputes/:id.
func (h *DisputeHandler) Get(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	disputeID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	dispute, err := h.disputes.GetDispute(c.Request.Context(), disputeID, userID, common.IsAdmin(c))
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, dispute)
}

// SendMessage обрабатывает POST /disputes/:id/messages.
func (h *DisputeHandler) SendMessage(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	disputeID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	message, err := h.disputes.AddMessage(c.Request.Context(), disputeID, userID, req.Content, common.IsAdmin(c))
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, message)
}

// AddEvidence обрабатывает POST /disputes/:id/evidence.
// Текстовые поля приходят как multipart form, файл опционален.
func (h *DisputeHandler) AddEvidence(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	disputeID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.AddEvidenceRequest
	if err := c.ShouldBind(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var fileURL *string
	if fileHeader, err := c.FormFile("file"); err == nil {
		f, err := fileHeader.Open()
		if err != nil {
			common.RespondBadRequest(c, "не удалось прочитать файл")
			return
		}
		defer f.Close()

		path, _, err := h.evidence.Save(c.Request.Context(), disputeID, fileHeader.Filename, f)
		if err != nil {
			common.Fail(c, err)
			return
		}
		fileURL = &path
	}

	evidence, err := h.disputes.AddEvidence(c.Request.Context(), service.AddEvidenceInput{
		DisputeID:   disputeID,
		UploaderID:  userID,
		Type:        valueobject.EvidenceType(req.Type),
		Description: req.Description,
		FileURL:     fileURL,
	})
	if err != nil {
		// Файл уже на диске, но запись не создана; подчищаем.
		if fileURL != nil {
			_ = h.evidence.Delete(c.Request.Context(), *fileURL)
		}
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, evidence)
}

// TakeUnderReview обрабатывает PUT /disputes/:id/review (только админ).
func (h *DisputeHandler) TakeUnderReview(c *gin.Context) {
	adminID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	disputeID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	dispute, err := h.disputes.TakeUnderReview(c.Request.Context(), disputeID, adminID, common.IsAdmin(c))
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, dispute)
}

// Resolve обрабатывает PUT /disputes/:id/resolve (только админ).
func (h *DisputeHandler) Resolve(c *gin.Context) {
	adminID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	disputeID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.ResolveDisputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	dispute, err := h.disputes.Resolve(c.Request.Context(), service.ResolveInput{
		DisputeID:     disputeID,
		AdminID:       adminID,
		IsAdmin:       common.IsAdmin(c),
		Resolution:    valueobject.DisputeResolution(req.Resolution),
		AdminNotes:    req.AdminNotes,
		PartialAmount: req.PartialAmount,
	})
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, dispute)
}

// Close обрабатывает PUT /disputes/:id/close (только админ).
func (h *DisputeHandler) Close(c *gin.Context) {
	disputeID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	dispute, err := h.disputes.Close(c.Request.Context(), disputeID, common.IsAdmin(c))
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, dispute)
}

// ListAll обрабатывает GET /disputes/admin/all (только админ).
func (h *DisputeHandler) ListAll(c *gin.Context) {
	limit, offset := common.GetPagination(c)
	status := c.Query("status")

	disputes, err := h.disputes.ListAll(c.Request.Context(), common.IsAdmin(c), status, limit, offset)
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewListResponse(disputes, limit, offset, len(disputes)))
}

// Stats обрабатывает GET /disputes/stats/overview (только админ).
func (h *DisputeHandler) Stats(c *gin.Context) {
	stats, err := h.disputes.Stats(c.Request.Context(), common.IsAdmin(c))
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}
