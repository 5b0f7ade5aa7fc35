package repository

import (
	"context"

	"github.com/jhoicas/pos-ledger/internal/domain/entity"
)

// MovementFilter filtros del historial de movimientos.
type MovementFilter struct {
	WarehouseID   string
	ProductID     string
	Type          string
	ReferenceType string
	ReferenceID   string
	Limit         int
	Offset        int
}

// StockMovementRepository puerto del libro de movimientos (solo inserción y lectura).
type StockMovementRepository interface {
	Create(ctx context.Context, movement *entity.StockMovement) error
	// List en orden cronológico inverso; devuelve también el total sin paginar.
	List(ctx context.Context, filter MovementFilter) ([]*entity.StockMovement, int, error)
}
