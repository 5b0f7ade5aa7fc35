package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/pos-ledger/internal/application/events"
	"github.com/jhoicas/pos-ledger/internal/domain"
	"github.com/jhoicas/pos-ledger/internal/domain/entity"
	"github.com/jhoicas/pos-ledger/internal/domain/repository"
)

// Primitivas que corren dentro de una transacción ya abierta por el caller (venta, traslado).
// No validan autorización: eso le corresponde al caso de uso que las invoca.

// TransferSpec parámetros de TransferInTx. ReferenceID correlaciona los dos movimientos.
type TransferSpec struct {
	ProductID       string
	FromWarehouseID string
	ToWarehouseID   string
	Quantity        decimal.Decimal
	ReferenceID     string
	ActorID         string
	Notes           string
}

func (s TransferSpec) validate() error {
	if s.ProductID == "" || s.FromWarehouseID == "" || s.ToWarehouseID == "" {
		return domain.InvalidInput("product_id/from/to", "son obligatorios")
	}
	if s.FromWarehouseID == s.ToWarehouseID {
		return domain.InvalidInput("to_warehouse_id", "origen y destino deben ser distintos")
	}
	if !s.Quantity.IsPositive() {
		return domain.InvalidInput("quantity", "debe ser mayor que cero")
	}
	return nil
}

// TransferResult registros resultantes y los dos movimientos (OUT en origen, IN en destino).
type TransferResult struct {
	TransferID  string
	Source      *entity.InventoryRecord
	Destination *entity.InventoryRecord
	Movements   []*entity.StockMovement
}

// TransferInTx descuenta el origen, crea o incrementa el destino y agrega los movimientos correlacionados.
// Bloquea ambos registros en orden de bodega para evitar deadlocks entre traslados cruzados.
func TransferInTx(ctx context.Context, repos repository.Repos, spec TransferSpec, now time.Time) (*TransferResult, error) {
	if err := spec.validate(); err != nil {
		return nil, err
	}
	if spec.ReferenceID == "" {
		spec.ReferenceID = uuid.New().String()
	}

	first, second := spec.FromWarehouseID, spec.ToWarehouseID
	if second < first {
		first, second = second, first
	}
	locked := make(map[string]entity.RecordLookup, 2)
	for _, wh := range []string{first, second} {
		lookup, err := repos.Inventory.GetForUpdate(ctx, spec.ProductID, wh)
		if err != nil {
			return nil, err
		}
		locked[wh] = lookup
	}

	src := locked[spec.FromWarehouseID]
	available := src.Quantity()
	if _, ok := src.Record(); !ok || available.LessThan(spec.Quantity) {
		return nil, &domain.InsufficientStockError{
			ProductID:   spec.ProductID,
			WarehouseID: spec.FromWarehouseID,
			Available:   available,
			Requested:   spec.Quantity,
		}
	}

	source, err := applyQuantity(ctx, repos, src, spec.ProductID, spec.FromWarehouseID, available.Sub(spec.Quantity), now)
	if err != nil {
		return nil, err
	}
	dst := locked[spec.ToWarehouseID]
	destination, err := applyQuantity(ctx, repos, dst, spec.ProductID, spec.ToWarehouseID, dst.Quantity().Add(spec.Quantity), now)
	if err != nil {
		return nil, err
	}

	out := &entity.StockMovement{
		ID:            uuid.New().String(),
		ProductID:     spec.ProductID,
		WarehouseID:   spec.FromWarehouseID,
		Type:          entity.MovementTypeOUT,
		Quantity:      spec.Quantity.Neg(),
		ReferenceType: entity.ReferenceTransfer,
		ReferenceID:   spec.ReferenceID,
		CreatedBy:     spec.ActorID,
		CreatedAt:     now,
		Notes:         spec.Notes,
	}
	in := &entity.StockMovement{
		ID:            uuid.New().String(),
		ProductID:     spec.ProductID,
		WarehouseID:   spec.ToWarehouseID,
		Type:          entity.MovementTypeIN,
		Quantity:      spec.Quantity,
		ReferenceType: entity.ReferenceTransfer,
		ReferenceID:   spec.ReferenceID,
		CreatedBy:     spec.ActorID,
		CreatedAt:     now,
		Notes:         spec.Notes,
	}
	for _, m := range []*entity.StockMovement{out, in} {
		if err := repos.Movements.Create(ctx, m); err != nil {
			return nil, err
		}
	}

	return &TransferResult{
		TransferID:  spec.ReferenceID,
		Source:      source,
		Destination: destination,
		Movements:   []*entity.StockMovement{out, in},
	}, nil
}

// DecrementForSaleInTx descuenta qty con un UPDATE condicional (quantity >= qty) y agrega el OUT de la venta.
// Re-valida el stock: si otra venta consumió la existencia desde la verificación previa, falla con InsufficientStock.
func DecrementForSaleInTx(ctx context.Context, repos repository.Repos, productID, warehouseID string, qty decimal.Decimal, saleID, actorID string, now time.Time) (*entity.InventoryRecord, error) {
	if !qty.IsPositive() {
		return nil, domain.InvalidInput("quantity", "debe ser mayor que cero")
	}
	remaining, ok, err := repos.Inventory.DecrementIfAvailable(ctx, productID, warehouseID, qty, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &domain.InsufficientStockError{
			ProductID:   productID,
			WarehouseID: warehouseID,
			Available:   remaining,
			Requested:   qty,
		}
	}
	mov := &entity.StockMovement{
		ID:            uuid.New().String(),
		ProductID:     productID,
		WarehouseID:   warehouseID,
		Type:          entity.MovementTypeOUT,
		Quantity:      qty.Neg(),
		ReferenceType: entity.ReferenceSale,
		ReferenceID:   saleID,
		CreatedBy:     actorID,
		CreatedAt:     now,
	}
	if err := repos.Movements.Create(ctx, mov); err != nil {
		return nil, err
	}
	lookup, err := repos.Inventory.Get(ctx, productID, warehouseID)
	if err != nil {
		return nil, err
	}
	rec, _ := lookup.Record()
	return rec, nil
}

// RestockInTx devuelve qty al registro (IN) referenciando la causa (anulación o devolución).
func RestockInTx(ctx context.Context, repos repository.Repos, productID, warehouseID string, qty decimal.Decimal, referenceType, referenceID, actorID, notes string, now time.Time) (*entity.InventoryRecord, error) {
	if !qty.IsPositive() {
		return nil, domain.InvalidInput("quantity", "debe ser mayor que cero")
	}
	lookup, err := repos.Inventory.GetForUpdate(ctx, productID, warehouseID)
	if err != nil {
		return nil, err
	}
	rec, err := applyQuantity(ctx, repos, lookup, productID, warehouseID, lookup.Quantity().Add(qty), now)
	if err != nil {
		return nil, err
	}
	mov := &entity.StockMovement{
		ID:            uuid.New().String(),
		ProductID:     productID,
		WarehouseID:   warehouseID,
		Type:          entity.MovementTypeIN,
		Quantity:      qty,
		ReferenceType: referenceType,
		ReferenceID:   referenceID,
		CreatedBy:     actorID,
		CreatedAt:     now,
		Notes:         notes,
	}
	if err := repos.Movements.Create(ctx, mov); err != nil {
		return nil, err
	}
	return rec, nil
}

// applyQuantity: Found -> actualiza en sitio; Absent -> inserta el registro con la cantidad dada.
func applyQuantity(ctx context.Context, repos repository.Repos, lookup entity.RecordLookup, productID, warehouseID string, qty decimal.Decimal, now time.Time) (*entity.InventoryRecord, error) {
	if rec, ok := lookup.Record(); ok {
		if err := repos.Inventory.UpdateQuantity(ctx, productID, warehouseID, qty, now); err != nil {
			return nil, err
		}
		updated := *rec
		updated.Quantity = qty
		updated.UpdatedAt = now
		return &updated, nil
	}
	rec := &entity.InventoryRecord{
		ProductID:     productID,
		WarehouseID:   warehouseID,
		Quantity:      qty,
		MinStockLevel: decimal.Zero,
		MaxStockLevel: decimal.Zero,
		UpdatedAt:     now,
	}
	// ErrConflict si otro caller creó el registro entre el lookup y el insert
	if err := repos.Inventory.Insert(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// PublishLowStock emite inventory.low_stock por cada registro con umbral configurado y cantidad <= mínimo.
func PublishLowStock(ctx context.Context, pub events.Publisher, actorID string, records ...*entity.InventoryRecord) {
	for _, r := range records {
		if r == nil || !r.MinStockLevel.IsPositive() || !r.IsLowStock() {
			continue
		}
		pub.Publish(ctx, events.New(events.TypeLowStock, actorID, map[string]any{
			"product_id":      r.ProductID,
			"warehouse_id":    r.WarehouseID,
			"quantity":        r.Quantity.String(),
			"min_stock_level": r.MinStockLevel.String(),
		}))
	}
}
