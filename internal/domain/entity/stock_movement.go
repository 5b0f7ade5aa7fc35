package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de movimiento de inventario.
const (
	MovementTypeIN         = "IN"
	MovementTypeOUT        = "OUT"
	MovementTypeADJUSTMENT = "ADJUSTMENT"
	MovementTypeTRANSFER   = "TRANSFER"
)

// Causas a las que se correlaciona un movimiento.
const (
	ReferenceSale       = "sale"
	ReferenceVoid       = "void"
	ReferenceRefund     = "refund"
	ReferenceAdjustment = "adjustment"
	ReferenceTransfer   = "transfer"
)

// StockMovement entrada inmutable del libro de movimientos (append-only).
// Para cada par (producto, bodega): InventoryRecord.Quantity == Σ Quantity.
type StockMovement struct {
	ID            string
	ProductID     string
	WarehouseID   string
	Type          string
	Quantity      decimal.Decimal // delta con signo
	ReferenceType string
	ReferenceID   string
	CreatedBy     string
	CreatedAt     time.Time
	Notes         string
}

// ValidMovementType indica si t es uno de los tipos conocidos.
func ValidMovementType(t string) bool {
	switch t {
	case MovementTypeIN, MovementTypeOUT, MovementTypeADJUSTMENT, MovementTypeTRANSFER:
		return true
	}
	return false
}
