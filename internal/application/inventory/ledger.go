package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jhoicas/pos-ledger/internal/application/events"
	"github.com/jhoicas/pos-ledger/internal/domain"
	"github.com/jhoicas/pos-ledger/internal/domain/authz"
	"github.com/jhoicas/pos-ledger/internal/domain/entity"
	"github.com/jhoicas/pos-ledger/internal/domain/repository"
	"github.com/jhoicas/pos-ledger/pkg/logger"
	"github.com/jhoicas/pos-ledger/pkg/tracing"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// LedgerUseCase es el dueño del stock por (producto, bodega) y de su libro de movimientos.
// Cada mutación corre en una transacción con bloqueo de fila (SELECT FOR UPDATE) y Commit/Rollback.
type LedgerUseCase struct {
	txRunner repository.TxRunner
	policy   authz.Policy
	events   events.Publisher
	log      *logger.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

// NewLedgerUseCase construye el caso de uso.
func NewLedgerUseCase(txRunner repository.TxRunner, policy authz.Policy, publisher events.Publisher, log *logger.Logger) *LedgerUseCase {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &LedgerUseCase{
		txRunner: txRunner,
		policy:   policy,
		events:   publisher,
		log:      log.Component("inventory"),
		tracer:   tracing.Tracer("pos-ledger/inventory"),
		now:      time.Now,
	}
}

// AdjustInput corrección manual de stock; Delta con signo.
type AdjustInput struct {
	ProductID   string
	WarehouseID string
	Delta       decimal.Decimal
	Reason      string
}

// AdjustResult registro actualizado y el movimiento ADJUSTMENT generado.
type AdjustResult struct {
	Record   *entity.InventoryRecord
	Movement *entity.StockMovement
}

// Adjust aplica Delta al registro (lo crea en cero si no existe). Falla con InsufficientStock si queda negativo.
func (uc *LedgerUseCase) Adjust(ctx context.Context, actor entity.Actor, in AdjustInput) (res *AdjustResult, err error) {
	ctx, span := uc.tracer.Start(ctx, "inventory.Adjust", trace.WithAttributes(
		attribute.String("product.id", in.ProductID),
		attribute.String("warehouse.id", in.WarehouseID),
		attribute.String("quantity.delta", in.Delta.String()),
	))
	defer func() { tracing.End(span, err) }()

	if in.ProductID == "" || in.WarehouseID == "" {
		return nil, domain.InvalidInput("product_id/warehouse_id", "son obligatorios")
	}
	if in.Delta.IsZero() {
		return nil, domain.InvalidInput("delta", "no puede ser cero")
	}
	if err := uc.policy.Authorize(actor, authz.ActionStockAdjust, authz.Warehouses(in.WarehouseID)); err != nil {
		return nil, err
	}

	now := uc.now()
	err = uc.txRunner.Run(ctx, func(ctx context.Context, repos repository.Repos) error {
		if err := requireProductAndWarehouses(ctx, repos, in.ProductID, in.WarehouseID); err != nil {
			return err
		}

		lookup, err := repos.Inventory.GetForUpdate(ctx, in.ProductID, in.WarehouseID)
		if err != nil {
			return err
		}
		current := lookup.Quantity()
		next := current.Add(in.Delta)
		if next.IsNegative() {
			return &domain.InsufficientStockError{
				ProductID:   in.ProductID,
				WarehouseID: in.WarehouseID,
				Available:   current,
				Requested:   in.Delta.Neg(),
			}
		}

		record, err := applyQuantity(ctx, repos, lookup, in.ProductID, in.WarehouseID, next, now)
		if err != nil {
			return err
		}

		mov := &entity.StockMovement{
			ID:            uuid.New().String(),
			ProductID:     in.ProductID,
			WarehouseID:   in.WarehouseID,
			Type:          entity.MovementTypeADJUSTMENT,
			Quantity:      in.Delta,
			ReferenceType: entity.ReferenceAdjustment,
			ReferenceID:   uuid.New().String(),
			CreatedBy:     actor.ID,
			CreatedAt:     now,
			Notes:         in.Reason,
		}
		if err := repos.Movements.Create(ctx, mov); err != nil {
			return err
		}
		res = &AdjustResult{Record: record, Movement: mov}
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.log.Info().
		Str("product_id", in.ProductID).
		Str("warehouse_id", in.WarehouseID).
		Str("delta", in.Delta.String()).
		Str("actor_id", actor.ID).
		Msg("ajuste de inventario registrado")
	PublishLowStock(ctx, uc.events, actor.ID, res.Record)
	return res, nil
}

// TransferInput traslado directo entre bodegas.
type TransferInput struct {
	ProductID       string
	FromWarehouseID string
	ToWarehouseID   string
	Quantity        decimal.Decimal
	Notes           string
}

// Transfer mueve stock de origen a destino en una sola transacción (OUT + IN correlacionados).
func (uc *LedgerUseCase) Transfer(ctx context.Context, actor entity.Actor, in TransferInput) (res *TransferResult, err error) {
	ctx, span := uc.tracer.Start(ctx, "inventory.Transfer", trace.WithAttributes(
		attribute.String("product.id", in.ProductID),
		attribute.String("warehouse.from", in.FromWarehouseID),
		attribute.String("warehouse.to", in.ToWarehouseID),
		attribute.String("quantity", in.Quantity.String()),
	))
	defer func() { tracing.End(span, err) }()

	spec := TransferSpec{
		ProductID:       in.ProductID,
		FromWarehouseID: in.FromWarehouseID,
		ToWarehouseID:   in.ToWarehouseID,
		Quantity:        in.Quantity,
		ReferenceID:     uuid.New().String(),
		ActorID:         actor.ID,
		Notes:           in.Notes,
	}
	if err := spec.validate(); err != nil {
		return nil, err
	}
	if err := uc.policy.Authorize(actor, authz.ActionStockTransfer, authz.Warehouses(in.FromWarehouseID)); err != nil {
		return nil, err
	}

	now := uc.now()
	err = uc.txRunner.Run(ctx, func(ctx context.Context, repos repository.Repos) error {
		if err := requireProductAndWarehouses(ctx, repos, in.ProductID, in.FromWarehouseID, in.ToWarehouseID); err != nil {
			return err
		}
		var err error
		res, err = TransferInTx(ctx, repos, spec, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	uc.log.Info().
		Str("transfer_id", res.TransferID).
		Str("product_id", in.ProductID).
		Str("from", in.FromWarehouseID).
		Str("to", in.ToWarehouseID).
		Str("quantity", in.Quantity.String()).
		Msg("traslado directo completado")
	PublishLowStock(ctx, uc.events, actor.ID, res.Source)
	return res, nil
}

// LevelsInput umbrales mínimo/máximo de un registro. Max cero = sin máximo.
type LevelsInput struct {
	ProductID     string
	WarehouseID   string
	MinStockLevel decimal.Decimal
	MaxStockLevel decimal.Decimal
}

// SetStockLevels actualiza los umbrales de un registro existente.
func (uc *LedgerUseCase) SetStockLevels(ctx context.Context, actor entity.Actor, in LevelsInput) (rec *entity.InventoryRecord, err error) {
	ctx, span := uc.tracer.Start(ctx, "inventory.SetStockLevels")
	defer func() { tracing.End(span, err) }()

	if in.MinStockLevel.IsNegative() {
		return nil, domain.InvalidInput("min_stock_level", "no puede ser negativo")
	}
	if in.MaxStockLevel.IsNegative() || (in.MaxStockLevel.IsPositive() && in.MaxStockLevel.LessThan(in.MinStockLevel)) {
		return nil, domain.InvalidInput("max_stock_level", "debe ser cero o mayor o igual al mínimo")
	}
	if err := uc.policy.Authorize(actor, authz.ActionStockLevels, authz.Warehouses(in.WarehouseID)); err != nil {
		return nil, err
	}

	now := uc.now()
	err = uc.txRunner.Run(ctx, func(ctx context.Context, repos repository.Repos) error {
		ok, err := repos.Inventory.UpdateLevels(ctx, in.ProductID, in.WarehouseID, in.MinStockLevel, in.MaxStockLevel, now)
		if err != nil {
			return err
		}
		if !ok {
			return domain.NotFound("inventory_record", in.ProductID, in.WarehouseID)
		}
		lookup, err := repos.Inventory.Get(ctx, in.ProductID, in.WarehouseID)
		if err != nil {
			return err
		}
		rec, _ = lookup.Record()
		return nil
	})
	if err != nil {
		return nil, err
	}
	PublishLowStock(ctx, uc.events, actor.ID, rec)
	return rec, nil
}

// ListInventory registros paginados visibles para el actor.
func (uc *LedgerUseCase) ListInventory(ctx context.Context, actor entity.Actor, filter repository.InventoryFilter) (items []*entity.InventoryRecord, total int, err error) {
	if filter.WarehouseID != "" {
		if err := uc.policy.Authorize(actor, authz.ActionInventoryRead, authz.Warehouses(filter.WarehouseID)); err != nil {
			return nil, 0, err
		}
	}
	filter.Limit, filter.Offset = normalizePage(filter.Limit, filter.Offset)
	err = uc.txRunner.Run(ctx, func(ctx context.Context, repos repository.Repos) error {
		var err error
		items, total, err = repos.Inventory.List(ctx, filter)
		return err
	})
	return items, total, err
}

// ListMovements historial en orden cronológico inverso.
func (uc *LedgerUseCase) ListMovements(ctx context.Context, actor entity.Actor, filter repository.MovementFilter) (items []*entity.StockMovement, total int, err error) {
	if filter.WarehouseID != "" {
		if err := uc.policy.Authorize(actor, authz.ActionInventoryRead, authz.Warehouses(filter.WarehouseID)); err != nil {
			return nil, 0, err
		}
	}
	if filter.Type != "" && !entity.ValidMovementType(filter.Type) {
		return nil, 0, domain.InvalidInput("type", "tipo de movimiento desconocido")
	}
	filter.Limit, filter.Offset = normalizePage(filter.Limit, filter.Offset)
	err = uc.txRunner.Run(ctx, func(ctx context.Context, repos repository.Repos) error {
		var err error
		items, total, err = repos.Movements.List(ctx, filter)
		return err
	})
	return items, total, err
}

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// requireProductAndWarehouses valida existencia; NotFound lista todos los ids ausentes.
func requireProductAndWarehouses(ctx context.Context, repos repository.Repos, productID string, warehouseIDs ...string) error {
	product, err := repos.Products.GetByID(ctx, productID)
	if err != nil {
		return err
	}
	if product == nil {
		return domain.NotFound("product", productID)
	}
	var missing []string
	for _, id := range warehouseIDs {
		wh, err := repos.Warehouses.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if wh == nil {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return domain.NotFound("warehouse", missing...)
	}
	return nil
}
