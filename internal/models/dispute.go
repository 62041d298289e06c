package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/gigmarket-backend/internal/domain/valueobject"
)

// Dispute описывает спор по заказу. Инициатор и ответчик — всегда две
// разные стороны заказа; одновременно по заказу действует не более
// одного спора.
type Dispute struct {
	ID           uuid.UUID `db:"id" json:"id"`
	OrderID      uuid.UUID `db:"order_id" json:"order_id"`
	InitiatorID  uuid.UUID `db:"initiator_id" json:"initiator_id"`
	RespondentID uuid.UUID `db:"respondent_id" json:"respondent_id"`

	Type   valueobject.DisputeType   `db:"type" json:"type"`
	Reason string                    `db:"reason" json:"reason"`
	Status valueobject.DisputeStatus `db:"status" json:"status"`

	Resolution      *valueobject.DisputeResolution `db:"resolution" json:"resolution,omitempty"`
	AdminNotes      *string                        `db:"admin_notes" json:"admin_notes,omitempty"`
	AssignedAdminID *uuid.UUID                     `db:"assigned_admin_id" json:"assigned_admin_id,omitempty"`

	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
	ResolvedAt *time.Time `db:"resolved_at" json:"resolved_at,omitempty"`
	ClosedAt   *time.Time `db:"closed_at" json:"closed_at,omitempty"`

	// Связанные данные, загружаются отдельно.
	Evidence []DisputeEvidence `json:"evidence,omitempty"`
	Messages []DisputeMessage  `json:"messages,omitempty"`
}

// DisputeEvidence — доказательство, приложенное стороной спора.
type DisputeEvidence struct {
	ID          uuid.UUID                `db:"id" json:"id"`
	DisputeID   uuid.UUID                `db:"dispute_id" json:"dispute_id"`
	Type        valueobject.EvidenceType `db:"type" json:"type"`
	Description string                   `db:"description" json:"description"`
	FileURL     *string                  `db:"file_url" json:"file_url,omitempty"`
	UploadedBy  uuid.UUID                `db:"uploaded_by" json:"uploaded_by"`
	UploadedAt  time.Time                `db:"uploaded_at" json:"uploaded_at"`
}

// DisputeMessage — сообщение в треде спора; админские помечаются флагом.
type DisputeMessage struct {
	ID        uuid.UUID `db:"id" json:"id"`
	DisputeID uuid.UUID `db:"dispute_id" json:"dispute_id"`
	SenderID  uuid.UUID `db:"sender_id" json:"sender_id"`
	Body      string    `db:"body" json:"body"`
	IsAdmin   bool      `db:"is_admin" json:"is_admin"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// IsParty сообщает, является ли пользователь стороной спора.
func (d *Dispute) IsParty(userID uuid.UUID) bool {
	return d.InitiatorID == userID || d.RespondentID == userID
}
