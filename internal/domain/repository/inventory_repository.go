package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/pos-ledger/internal/domain/entity"
)

// InventoryFilter filtros del listado de inventario.
type InventoryFilter struct {
	WarehouseID string
	ProductID   string
	Search      string // SKU o nombre, sin distinguir mayúsculas
	LowStock    bool
	Limit       int
	Offset      int
}

// InventoryRepository puerto del registro de stock por (producto, bodega).
// Usado dentro de transacciones para garantizar consistencia.
type InventoryRepository interface {
	Get(ctx context.Context, productID, warehouseID string) (entity.RecordLookup, error)
	// GetForUpdate bloquea la fila (SELECT FOR UPDATE) si existe.
	GetForUpdate(ctx context.Context, productID, warehouseID string) (entity.RecordLookup, error)
	// Insert crea el registro; falla con domain.ErrConflict si el par ya existe.
	Insert(ctx context.Context, record *entity.InventoryRecord) error
	UpdateQuantity(ctx context.Context, productID, warehouseID string, quantity decimal.Decimal, now time.Time) error
	// DecrementIfAvailable descuenta qty solo si quantity >= qty, de forma atómica.
	// ok=false (sin error) cuando no alcanza o el registro no existe; remaining es la cantidad resultante
	// o la disponible en caso de fallo.
	DecrementIfAvailable(ctx context.Context, productID, warehouseID string, qty decimal.Decimal, now time.Time) (remaining decimal.Decimal, ok bool, err error)
	// UpdateLevels devuelve false si el registro no existe.
	UpdateLevels(ctx context.Context, productID, warehouseID string, min, max decimal.Decimal, now time.Time) (bool, error)
	List(ctx context.Context, filter InventoryFilter) ([]*entity.InventoryRecord, int, error)
	// ListLowStock registros con quantity <= min_stock_level; warehouseID vacío = todas las bodegas.
	ListLowStock(ctx context.Context, warehouseID string) ([]*entity.InventoryRecord, error)
}
