package inventory

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/pos-ledger/internal/domain/authz"
	"github.com/jhoicas/pos-ledger/internal/domain/entity"
	"github.com/jhoicas/pos-ledger/internal/domain/repository"
	"github.com/jhoicas/pos-ledger/pkg/tracing"
)

// LowStockItem registro bajo mínimo con la sugerencia de reposición.
type LowStockItem struct {
	Record            *entity.InventoryRecord
	StockRatio        decimal.Decimal // quantity / min; 0 si min == 0
	SuggestedOrderQty decimal.Decimal // hasta el máximo si está configurado, si no hasta el mínimo
	Priority          int             // 1 = más urgente
}

// LowStockReport devuelve los registros con quantity <= min_stock_level, el más crítico primero.
// warehouseID vacío: todas las bodegas visibles para el actor.
func (uc *LedgerUseCase) LowStockReport(ctx context.Context, actor entity.Actor, warehouseID string) (items []LowStockItem, err error) {
	ctx, span := uc.tracer.Start(ctx, "inventory.LowStockReport")
	defer func() { tracing.End(span, err) }()

	if warehouseID != "" {
		if err := uc.policy.Authorize(actor, authz.ActionInventoryRead, authz.Warehouses(warehouseID)); err != nil {
			return nil, err
		}
	}

	var records []*entity.InventoryRecord
	err = uc.txRunner.Run(ctx, func(ctx context.Context, repos repository.Repos) error {
		var err error
		records, err = repos.Inventory.ListLowStock(ctx, warehouseID)
		return err
	})
	if err != nil {
		return nil, err
	}

	items = make([]LowStockItem, 0, len(records))
	for _, r := range records {
		if warehouseID == "" && !authz.HasAccess(actor, r.WarehouseID) {
			continue
		}
		items = append(items, LowStockItem{
			Record:            r,
			StockRatio:        r.StockRatio(),
			SuggestedOrderQty: suggestedOrder(r),
		})
	}

	SortByCriticality(items)
	for i := range items {
		items[i].Priority = i + 1
	}
	return items, nil
}

// SortByCriticality ordena por ratio ascendente; empates por cantidad y luego por producto.
func SortByCriticality(items []LowStockItem) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if !a.StockRatio.Equal(b.StockRatio) {
			return a.StockRatio.LessThan(b.StockRatio)
		}
		if !a.Record.Quantity.Equal(b.Record.Quantity) {
			return a.Record.Quantity.LessThan(b.Record.Quantity)
		}
		if a.Record.ProductID != b.Record.ProductID {
			return a.Record.ProductID < b.Record.ProductID
		}
		return a.Record.WarehouseID < b.Record.WarehouseID
	})
}

func suggestedOrder(r *entity.InventoryRecord) decimal.Decimal {
	target := r.MinStockLevel
	if r.MaxStockLevel.IsPositive() {
		target = r.MaxStockLevel
	}
	qty := target.Sub(r.Quantity)
	if qty.IsNegative() {
		return decimal.Zero
	}
	return qty
}
