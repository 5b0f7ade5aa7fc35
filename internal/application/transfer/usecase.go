// Package transfer implementa el flujo de solicitudes de traslado entre bodegas:
// pending -> approved -> completed, o pending -> rejected. La aprobación no reserva stock;
// el movimiento real ocurre al recibir, re-validando la existencia en el origen.
package transfer

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jhoicas/pos-ledger/internal/application/events"
	"github.com/jhoicas/pos-ledger/internal/application/inventory"
	"github.com/jhoicas/pos-ledger/internal/domain"
	"github.com/jhoicas/pos-ledger/internal/domain/authz"
	"github.com/jhoicas/pos-ledger/internal/domain/entity"
	"github.com/jhoicas/pos-ledger/internal/domain/repository"
	"github.com/jhoicas/pos-ledger/pkg/logger"
	"github.com/jhoicas/pos-ledger/pkg/tracing"
)

// UseCase máquina de estados de TransferRequest.
type UseCase struct {
	txRunner repository.TxRunner
	policy   authz.Policy
	events   events.Publisher
	log      *logger.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

// NewUseCase construye el caso de uso.
func NewUseCase(txRunner repository.TxRunner, policy authz.Policy, publisher events.Publisher, log *logger.Logger) *UseCase {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &UseCase{
		txRunner: txRunner,
		policy:   policy,
		events:   publisher,
		log:      log.Component("transfer"),
		tracer:   tracing.Tracer("pos-ledger/transfer"),
		now:      time.Now,
	}
}

// CreateInput solicitud de stock de FromWarehouseID hacia ToWarehouseID. La cantidad se fija al aprobar.
type CreateInput struct {
	ProductID       string
	FromWarehouseID string
	ToWarehouseID   string
	Notes           string
}

// Create registra una solicitud pending.
func (uc *UseCase) Create(ctx context.Context, actor entity.Actor, in CreateInput) (tr *entity.TransferRequest, err error) {
	ctx, span := uc.tracer.Start(ctx, "transfer.Create", trace.WithAttributes(
		attribute.String("warehouse.from", in.FromWarehouseID),
		attribute.String("warehouse.to", in.ToWarehouseID),
	))
	defer func() { tracing.End(span, err) }()

	if in.ProductID == "" || in.FromWarehouseID == "" || in.ToWarehouseID == "" {
		return nil, domain.InvalidInput("product_id/from/to", "son obligatorios")
	}
	if in.FromWarehouseID == in.ToWarehouseID {
		return nil, domain.InvalidInput("to_warehouse_id", "origen y destino deben ser distintos")
	}
	if err := uc.policy.Authorize(actor, authz.ActionTransferCreate, authz.Warehouses(in.FromWarehouseID, in.ToWarehouseID)); err != nil {
		return nil, err
	}

	now := uc.now()
	err = uc.txRunner.Run(ctx, func(ctx context.Context, repos repository.Repos) error {
		if err := requireEntities(ctx, repos, in.ProductID, in.FromWarehouseID, in.ToWarehouseID); err != nil {
			return err
		}
		lookup, err := repos.Inventory.Get(ctx, in.ProductID, in.FromWarehouseID)
		if err != nil {
			return err
		}
		if !lookup.Quantity().IsPositive() {
			return &domain.InsufficientStockError{
				ProductID:   in.ProductID,
				WarehouseID: in.FromWarehouseID,
				Available:   lookup.Quantity(),
				Requested:   decimal.Zero,
			}
		}
		tr = &entity.TransferRequest{
			ID:              uuid.New().String(),
			ProductID:       in.ProductID,
			FromWarehouseID: in.FromWarehouseID,
			ToWarehouseID:   in.ToWarehouseID,
			Status:          entity.TransferStatusPending,
			RequestedBy:     actor.ID,
			Notes:           in.Notes,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		return repos.Transfers.Create(ctx, tr)
	})
	if err != nil {
		return nil, err
	}

	uc.log.Info().Str("transfer_id", tr.ID).Str("from", tr.FromWarehouseID).Str("to", tr.ToWarehouseID).Msg("solicitud de traslado creada")
	uc.events.Publish(ctx, events.New(events.TypeTransferRequested, actor.ID, payload(tr)))
	return tr, nil
}

// Approve fija la cantidad y aprueba. No mueve stock.
func (uc *UseCase) Approve(ctx context.Context, actor entity.Actor, id string, quantity decimal.Decimal, notes string) (tr *entity.TransferRequest, err error) {
	ctx, span := uc.tracer.Start(ctx, "transfer.Approve", trace.WithAttributes(attribute.String("transfer.id", id)))
	defer func() { tracing.End(span, err) }()

	if !quantity.IsPositive() {
		return nil, domain.InvalidInput("quantity", "la aprobación requiere una cantidad mayor que cero")
	}
	now := uc.now()
	err = uc.txRunner.Run(ctx, func(ctx context.Context, repos repository.Repos) error {
		var err error
		tr, err = uc.lockForDecision(ctx, repos, actor, id, authz.ActionTransferDecide, entity.TransferStatusApproved)
		if err != nil {
			return err
		}
		lookup, err := repos.Inventory.Get(ctx, tr.ProductID, tr.FromWarehouseID)
		if err != nil {
			return err
		}
		if lookup.Quantity().LessThan(quantity) {
			return &domain.InsufficientStockError{
				ProductID:   tr.ProductID,
				WarehouseID: tr.FromWarehouseID,
				Available:   lookup.Quantity(),
				Requested:   quantity,
			}
		}
		q := quantity
		approver := actor.ID
		tr.Quantity = &q
		tr.Status = entity.TransferStatusApproved
		tr.ApprovedBy = &approver
		tr.ApprovedAt = &now
		tr.ApprovalNotes = notes
		tr.UpdatedAt = now
		if err := repos.Transfers.Update(ctx, tr); err != nil {
			return err
		}
		return audit(ctx, repos, actor, authz.ActionTransferDecide, tr.ID, "approved: "+notes, now)
	})
	if err != nil {
		return nil, err
	}

	uc.log.Info().Str("transfer_id", id).Str("quantity", quantity.String()).Str("actor_id", actor.ID).Msg("traslado aprobado")
	uc.events.Publish(ctx, events.New(events.TypeTransferApproved, actor.ID, payload(tr)))
	return tr, nil
}

// Reject rechaza una solicitud pending.
func (uc *UseCase) Reject(ctx context.Context, actor entity.Actor, id, notes string) (tr *entity.TransferRequest, err error) {
	ctx, span := uc.tracer.Start(ctx, "transfer.Reject", trace.WithAttributes(attribute.String("transfer.id", id)))
	defer func() { tracing.End(span, err) }()

	now := uc.now()
	err = uc.txRunner.Run(ctx, func(ctx context.Context, repos repository.Repos) error {
		var err error
		tr, err = uc.lockForDecision(ctx, repos, actor, id, authz.ActionTransferDecide, entity.TransferStatusRejected)
		if err != nil {
			return err
		}
		approver := actor.ID
		tr.Status = entity.TransferStatusRejected
		tr.ApprovedBy = &approver
		tr.ApprovalNotes = notes
		tr.UpdatedAt = now
		if err := repos.Transfers.Update(ctx, tr); err != nil {
			return err
		}
		return audit(ctx, repos, actor, authz.ActionTransferDecide, tr.ID, "rejected: "+notes, now)
	})
	if err != nil {
		return nil, err
	}

	uc.log.Info().Str("transfer_id", id).Str("actor_id", actor.ID).Msg("traslado rechazado")
	uc.events.Publish(ctx, events.New(events.TypeTransferRejected, actor.ID, payload(tr)))
	return tr, nil
}

// MarkReceived ejecuta el traslado aprobado (OUT origen + IN destino) y completa la solicitud,
// todo en la misma transacción con la fila de la solicitud bloqueada.
func (uc *UseCase) MarkReceived(ctx context.Context, actor entity.Actor, id string) (tr *entity.TransferRequest, err error) {
	ctx, span := uc.tracer.Start(ctx, "transfer.MarkReceived", trace.WithAttributes(attribute.String("transfer.id", id)))
	defer func() { tracing.End(span, err) }()

	now := uc.now()
	var moved *inventory.TransferResult
	err = uc.txRunner.Run(ctx, func(ctx context.Context, repos repository.Repos) error {
		current, err := repos.Transfers.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if current == nil {
			return domain.NotFound("transfer_request", id)
		}
		if err := uc.policy.Authorize(actor, authz.ActionTransferReceive, authz.Warehouses(current.ToWarehouseID)); err != nil {
			return err
		}
		if !current.CanTransition(entity.TransferStatusCompleted) {
			return invalidState(current, entity.TransferStatusCompleted)
		}

		moved, err = inventory.TransferInTx(ctx, repos, inventory.TransferSpec{
			ProductID:       current.ProductID,
			FromWarehouseID: current.FromWarehouseID,
			ToWarehouseID:   current.ToWarehouseID,
			Quantity:        current.ApprovedQuantity(),
			ReferenceID:     current.ID,
			ActorID:         actor.ID,
			Notes:           current.Notes,
		}, now)
		if err != nil {
			return err
		}

		receiver := actor.ID
		current.Status = entity.TransferStatusCompleted
		current.ReceivedBy = &receiver
		current.CompletedAt = &now
		current.UpdatedAt = now
		if err := repos.Transfers.Update(ctx, current); err != nil {
			return err
		}
		tr = current
		return audit(ctx, repos, actor, authz.ActionTransferReceive, tr.ID, "received", now)
	})
	if err != nil {
		return nil, err
	}

	uc.log.Info().Str("transfer_id", id).Str("quantity", tr.ApprovedQuantity().String()).Msg("traslado recibido")
	uc.events.Publish(ctx, events.New(events.TypeTransferReceived, actor.ID, payload(tr)))
	inventory.PublishLowStock(ctx, uc.events, actor.ID, moved.Source)
	return tr, nil
}

// List aplica la visibilidad del actor: admin todo; gerente solo solicitudes que tocan sus bodegas;
// el resto solo las propias. Un filtro de bodega fuera de lo visible devuelve vacío.
func (uc *UseCase) List(ctx context.Context, actor entity.Actor, filter repository.TransferFilter) (items []*entity.TransferRequest, total int, err error) {
	switch {
	case actor.IsAdmin():
		filter.VisibleWarehouseIDs = nil
		filter.RequestedBy = ""
	case actor.IsManager():
		visible := actor.WarehouseIDs()
		if filter.WarehouseID != "" && !authz.HasAccess(actor, filter.WarehouseID) {
			return []*entity.TransferRequest{}, 0, nil
		}
		filter.VisibleWarehouseIDs = visible
		filter.RequestedBy = ""
	default:
		filter.VisibleWarehouseIDs = nil
		filter.RequestedBy = actor.ID
	}
	if filter.Status != "" && !validStatus(filter.Status) {
		return nil, 0, domain.InvalidInput("status", "estado desconocido")
	}
	filter.Limit, filter.Offset = normalizePage(filter.Limit, filter.Offset)

	err = uc.txRunner.Run(ctx, func(ctx context.Context, repos repository.Repos) error {
		var err error
		items, total, err = repos.Transfers.List(ctx, filter)
		return err
	})
	return items, total, err
}

// Get solicitud visible para el actor; si no la puede ver responde NotFound.
func (uc *UseCase) Get(ctx context.Context, actor entity.Actor, id string) (*entity.TransferRequest, error) {
	var tr *entity.TransferRequest
	err := uc.txRunner.Run(ctx, func(ctx context.Context, repos repository.Repos) error {
		var err error
		tr, err = repos.Transfers.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if tr == nil || !Visible(actor, tr) {
		return nil, domain.NotFound("transfer_request", id)
	}
	return tr, nil
}

// Visible misma regla que List, para una sola solicitud.
func Visible(actor entity.Actor, tr *entity.TransferRequest) bool {
	switch {
	case actor.IsAdmin():
		return true
	case actor.IsManager():
		return authz.HasAccess(actor, tr.FromWarehouseID) || authz.HasAccess(actor, tr.ToWarehouseID)
	default:
		return tr.RequestedBy == actor.ID
	}
}

func (uc *UseCase) lockForDecision(ctx context.Context, repos repository.Repos, actor entity.Actor, id string, action authz.Action, next string) (*entity.TransferRequest, error) {
	tr, err := repos.Transfers.GetForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if tr == nil {
		return nil, domain.NotFound("transfer_request", id)
	}
	if err := uc.policy.Authorize(actor, action, authz.Warehouses(tr.FromWarehouseID, tr.ToWarehouseID)); err != nil {
		return nil, err
	}
	if !tr.CanTransition(next) {
		return nil, invalidState(tr, next)
	}
	return tr, nil
}

func invalidState(tr *entity.TransferRequest, next string) error {
	return &domain.InvalidStateError{Entity: "transfer_request", ID: tr.ID, Current: tr.Status, Requested: next}
}

func requireEntities(ctx context.Context, repos repository.Repos, productID string, warehouseIDs ...string) error {
	p, err := repos.Products.GetByID(ctx, productID)
	if err != nil {
		return err
	}
	if p == nil {
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

func audit(ctx context.Context, repos repository.Repos, actor entity.Actor, action authz.Action, id, details string, now time.Time) error {
	return repos.Audit.Create(ctx, &entity.AuditLog{
		ID:         uuid.New().String(),
		ActorID:    actor.ID,
		Action:     string(action),
		EntityType: "transfer_request",
		EntityID:   id,
		Details:    details,
		CreatedAt:  now,
	})
}

func validStatus(s string) bool {
	switch s {
	case entity.TransferStatusPending, entity.TransferStatusApproved, entity.TransferStatusRejected, entity.TransferStatusCompleted:
		return true
	}
	return false
}

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func payload(tr *entity.TransferRequest) map[string]any {
	p := map[string]any{
		"transfer_id":       tr.ID,
		"product_id":        tr.ProductID,
		"from_warehouse_id": tr.FromWarehouseID,
		"to_warehouse_id":   tr.ToWarehouseID,
		"status":            tr.Status,
	}
	if tr.Quantity != nil {
		p["quantity"] = tr.Quantity.String()
	}
	return p
}
