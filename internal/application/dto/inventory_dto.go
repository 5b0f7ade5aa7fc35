package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/pos-ledger/internal/domain/entity"
)

// AdjustStockRequest body para POST /api/inventory/adjustments. Delta con signo.
type AdjustStockRequest struct {
	ProductID   string          `json:"product_id"`
	WarehouseID string          `json:"warehouse_id"`
	Delta       decimal.Decimal `json:"delta"`
	Reason      string          `json:"reason"`
}

// DirectTransferRequest body para POST /api/inventory/transfers.
type DirectTransferRequest struct {
	ProductID       string          `json:"product_id"`
	FromWarehouseID string          `json:"from_warehouse_id"`
	ToWarehouseID   string          `json:"to_warehouse_id"`
	Quantity        decimal.Decimal `json:"quantity"`
	Notes           string          `json:"notes,omitempty"`
}

// StockLevelsRequest body para PUT /api/inventory/levels. Max 0 = sin máximo.
type StockLevelsRequest struct {
	ProductID     string          `json:"product_id"`
	WarehouseID   string          `json:"warehouse_id"`
	MinStockLevel decimal.Decimal `json:"min_stock_level"`
	MaxStockLevel decimal.Decimal `json:"max_stock_level"`
}

// InventoryRecordDTO stock actual de un producto en una bodega.
type InventoryRecordDTO struct {
	ProductID     string          `json:"product_id"`
	SKU           string          `json:"sku,omitempty"`
	ProductName   string          `json:"product_name,omitempty"`
	WarehouseID   string          `json:"warehouse_id"`
	Quantity      decimal.Decimal `json:"quantity"`
	MinStockLevel decimal.Decimal `json:"min_stock_level"`
	MaxStockLevel decimal.Decimal `json:"max_stock_level"`
	LowStock      bool            `json:"low_stock"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// StockMovementDTO entrada del libro de movimientos.
type StockMovementDTO struct {
	ID            string          `json:"id"`
	ProductID     string          `json:"product_id"`
	WarehouseID   string          `json:"warehouse_id"`
	Type          string          `json:"type"`
	Quantity      decimal.Decimal `json:"quantity"`
	ReferenceType string          `json:"reference_type"`
	ReferenceID   string          `json:"reference_id"`
	CreatedBy     string          `json:"created_by"`
	CreatedAt     time.Time       `json:"created_at"`
	Notes         string          `json:"notes,omitempty"`
}

// AdjustStockResponse registro resultante y el movimiento ADJUSTMENT.
type AdjustStockResponse struct {
	Record   InventoryRecordDTO `json:"record"`
	Movement StockMovementDTO   `json:"movement"`
}

// DirectTransferResponse ambos registros y el par de movimientos correlacionados.
type DirectTransferResponse struct {
	TransferID  string             `json:"transfer_id"`
	Source      InventoryRecordDTO `json:"source"`
	Destination InventoryRecordDTO `json:"destination"`
	Movements   []StockMovementDTO `json:"movements"`
}

// LowStockItemDTO item del reporte de bajo stock.
type LowStockItemDTO struct {
	InventoryRecordDTO
	StockRatio        decimal.Decimal `json:"stock_ratio"`
	SuggestedOrderQty decimal.Decimal `json:"suggested_order_qty"`
	Priority          int             `json:"priority"` // 1 = más urgente
}

// InventoryRecordFrom convierte la entidad.
func InventoryRecordFrom(r *entity.InventoryRecord) InventoryRecordDTO {
	if r == nil {
		return InventoryRecordDTO{}
	}
	return InventoryRecordDTO{
		ProductID:     r.ProductID,
		SKU:           r.SKU,
		ProductName:   r.ProductName,
		WarehouseID:   r.WarehouseID,
		Quantity:      r.Quantity,
		MinStockLevel: r.MinStockLevel,
		MaxStockLevel: r.MaxStockLevel,
		LowStock:      r.MinStockLevel.IsPositive() && r.IsLowStock(),
		UpdatedAt:     r.UpdatedAt,
	}
}

// StockMovementFrom convierte la entidad.
func StockMovementFrom(m *entity.StockMovement) StockMovementDTO {
	if m == nil {
		return StockMovementDTO{}
	}
	return StockMovementDTO{
		ID:            m.ID,
		ProductID:     m.ProductID,
		WarehouseID:   m.WarehouseID,
		Type:          m.Type,
		Quantity:      m.Quantity,
		ReferenceType: m.ReferenceType,
		ReferenceID:   m.ReferenceID,
		CreatedBy:     m.CreatedBy,
		CreatedAt:     m.CreatedAt,
		Notes:         m.Notes,
	}
}

// InventoryRecordsFrom convierte un listado.
func InventoryRecordsFrom(list []*entity.InventoryRecord) []InventoryRecordDTO {
	out := make([]InventoryRecordDTO, 0, len(list))
	for _, r := range list {
		out = append(out, InventoryRecordFrom(r))
	}
	return out
}

// StockMovementsFrom convierte un listado.
func StockMovementsFrom(list []*entity.StockMovement) []StockMovementDTO {
	out := make([]StockMovementDTO, 0, len(list))
	for _, m := range list {
		out = append(out, StockMovementFrom(m))
	}
	return out
}
