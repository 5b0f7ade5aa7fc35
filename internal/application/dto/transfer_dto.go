package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/pos-ledger/internal/domain/entity"
)

// CreateTransferRequest body para POST /api/transfer-requests.
type CreateTransferRequest struct {
	ProductID       string `json:"product_id"`
	FromWarehouseID string `json:"from_warehouse_id"`
	ToWarehouseID   string `json:"to_warehouse_id"`
	Notes           string `json:"notes,omitempty"`
}

// ApproveTransferRequest body para POST /api/transfer-requests/:id/approve.
type ApproveTransferRequest struct {
	Quantity decimal.Decimal `json:"quantity"`
	Notes    string          `json:"notes,omitempty"`
}

// RejectTransferRequest body para POST /api/transfer-requests/:id/reject.
type RejectTransferRequest struct {
	Notes string `json:"notes,omitempty"`
}

// TransferRequestDTO solicitud de traslado.
type TransferRequestDTO struct {
	ID              string           `json:"id"`
	ProductID       string           `json:"product_id"`
	FromWarehouseID string           `json:"from_warehouse_id"`
	ToWarehouseID   string           `json:"to_warehouse_id"`
	Quantity        *decimal.Decimal `json:"quantity,omitempty"`
	Status          string           `json:"status"`
	RequestedBy     string           `json:"requested_by"`
	ApprovedBy      *string          `json:"approved_by,omitempty"`
	ReceivedBy      *string          `json:"received_by,omitempty"`
	Notes           string           `json:"notes,omitempty"`
	ApprovalNotes   string           `json:"approval_notes,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
	ApprovedAt      *time.Time       `json:"approved_at,omitempty"`
	CompletedAt     *time.Time       `json:"completed_at,omitempty"`
}

// TransferRequestFrom convierte la entidad.
func TransferRequestFrom(t *entity.TransferRequest) TransferRequestDTO {
	return TransferRequestDTO{
		ID:              t.ID,
		ProductID:       t.ProductID,
		FromWarehouseID: t.FromWarehouseID,
		ToWarehouseID:   t.ToWarehouseID,
		Quantity:        t.Quantity,
		Status:          t.Status,
		RequestedBy:     t.RequestedBy,
		ApprovedBy:      t.ApprovedBy,
		ReceivedBy:      t.ReceivedBy,
		Notes:           t.Notes,
		ApprovalNotes:   t.ApprovalNotes,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
		ApprovedAt:      t.ApprovedAt,
		CompletedAt:     t.CompletedAt,
	}
}

// TransferRequestsFrom convierte un listado.
func TransferRequestsFrom(list []*entity.TransferRequest) []TransferRequestDTO {
	out := make([]TransferRequestDTO, 0, len(list))
	for _, t := range list {
		out = append(out, TransferRequestFrom(t))
	}
	return out
}
