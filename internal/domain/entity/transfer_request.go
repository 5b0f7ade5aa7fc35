package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de una solicitud de traslado.
const (
	TransferStatusPending   = "pending"
	TransferStatusApproved  = "approved"
	TransferStatusRejected  = "rejected"
	TransferStatusCompleted = "completed"
)

// transferTransitions transiciones permitidas; el estado solo avanza.
var transferTransitions = map[string][]string{
	TransferStatusPending:  {TransferStatusApproved, TransferStatusRejected},
	TransferStatusApproved: {TransferStatusCompleted},
}

// TransferRequest solicitud de una bodega para recibir stock de otra.
type TransferRequest struct {
	ID              string
	ProductID       string
	FromWarehouseID string
	ToWarehouseID   string
	Quantity        *decimal.Decimal // nil hasta la aprobación
	Status          string
	RequestedBy     string
	ApprovedBy      *string
	ReceivedBy      *string
	Notes           string
	ApprovalNotes   string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ApprovedAt      *time.Time
	CompletedAt     *time.Time
}

// CanTransition indica si la solicitud puede pasar al estado next.
func (t *TransferRequest) CanTransition(next string) bool {
	for _, s := range transferTransitions[t.Status] {
		if s == next {
			return true
		}
	}
	return false
}

// ApprovedQuantity cantidad aprobada o cero si aún no existe.
func (t *TransferRequest) ApprovedQuantity() decimal.Decimal {
	if t.Quantity == nil {
		return decimal.Zero
	}
	return *t.Quantity
}

// Touches indica si la solicitud involucra la bodega como origen o destino.
func (t *TransferRequest) Touches(warehouseID string) bool {
	return t.FromWarehouseID == warehouseID || t.ToWarehouseID == warehouseID
}
