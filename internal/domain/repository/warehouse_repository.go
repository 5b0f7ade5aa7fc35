package repository

import (
	"context"

	"github.com/jhoicas/pos-ledger/internal/domain/entity"
)

// WarehouseRepository puerto de lectura de bodegas.
type WarehouseRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Warehouse, error)
	// GetDefault devuelve la bodega marcada como default, o nil si no hay.
	GetDefault(ctx context.Context) (*entity.Warehouse, error)
}
