package sale

import (
	"context"
	"errors"
	"fmt"
	"sort"
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

// maxInvoiceRetries reintentos ante ErrConflict (factura repetida, deadlock, serialización).
const maxInvoiceRetries = 3

// Config parámetros del procesador de ventas.
type Config struct {
	Pricing       PricingConfig
	InvoicePrefix string
}

// UseCase procesa ventas: creación atómica, anulación y devolución.
type UseCase struct {
	txRunner repository.TxRunner
	policy   authz.Policy
	events   events.Publisher
	cfg      Config
	log      *logger.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

// NewUseCase construye el caso de uso de ventas.
func NewUseCase(txRunner repository.TxRunner, policy authz.Policy, publisher events.Publisher, cfg Config, log *logger.Logger) *UseCase {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if log == nil {
		log = logger.Nop()
	}
	if cfg.InvoicePrefix == "" {
		cfg.InvoicePrefix = "INV"
	}
	return &UseCase{
		txRunner: txRunner,
		policy:   policy,
		events:   publisher,
		cfg:      cfg,
		log:      log.Component("sale"),
		tracer:   tracing.Tracer("pos-ledger/sale"),
		now:      time.Now,
	}
}

// CreateSaleInput carrito, pagos y opcionales de la venta.
type CreateSaleInput struct {
	WarehouseID   string // vacío: bodega del actor, luego la default
	CustomerID    string
	Items         []LineInput
	Payments      []PaymentInput
	Discount      *DiscountInput
	LoyaltyPoints int64
}

func (in CreateSaleInput) validate() error {
	if len(in.Items) == 0 {
		return domain.InvalidInput("items", "la venta requiere al menos una línea")
	}
	for _, it := range in.Items {
		if it.ProductID == "" {
			return domain.InvalidInput("items.product_id", "es obligatorio")
		}
		if !it.Quantity.IsPositive() {
			return domain.InvalidInput("items.quantity", "debe ser mayor que cero")
		}
	}
	if len(in.Payments) == 0 {
		return domain.InvalidInput("payments", "se requiere al menos un pago")
	}
	if in.LoyaltyPoints != 0 && in.CustomerID == "" {
		return domain.InvalidInput("loyalty_points", "redimir puntos requiere un cliente")
	}
	return nil
}

// CreateSale valida, calcula totales y confirma la venta en una sola transacción.
// Ante ErrConflict (número de factura repetido, deadlock o falla de serialización) se reintenta hasta maxInvoiceRetries veces.
func (uc *UseCase) CreateSale(ctx context.Context, actor entity.Actor, in CreateSaleInput) (sale *entity.Sale, err error) {
	ctx, span := uc.tracer.Start(ctx, "sale.CreateSale", trace.WithAttributes(
		attribute.String("actor.id", actor.ID),
		attribute.Int("sale.lines", len(in.Items)),
	))
	defer func() { tracing.End(span, err) }()

	if err := in.validate(); err != nil {
		return nil, err
	}

	var touched []*entity.InventoryRecord
	for attempt := 0; ; attempt++ {
		sale, touched, err = uc.createOnce(ctx, actor, in)
		if err == nil {
			break
		}
		if !errors.Is(err, domain.ErrConflict) || attempt >= maxInvoiceRetries {
			return nil, err
		}
		uc.log.Warn().Err(err).Int("attempt", attempt+1).Msg("conflicto concurrente, reintentando venta")
	}

	span.SetAttributes(attribute.String("sale.id", sale.ID), attribute.String("sale.invoice", sale.InvoiceNumber))
	uc.log.Info().
		Str("sale_id", sale.ID).
		Str("invoice", sale.InvoiceNumber).
		Str("warehouse_id", sale.WarehouseID).
		Str("total", sale.Total.StringFixed(2)).
		Msg("venta registrada")

	uc.events.Publish(ctx, events.New(events.TypeSaleCompleted, actor.ID, salePayload(sale)))
	inventory.PublishLowStock(ctx, uc.events, actor.ID, touched...)
	return sale, nil
}

func (uc *UseCase) createOnce(ctx context.Context, actor entity.Actor, in CreateSaleInput) (*entity.Sale, []*entity.InventoryRecord, error) {
	var (
		sale    *entity.Sale
		touched []*entity.InventoryRecord
	)
	now := uc.now()
	err := uc.txRunner.Run(ctx, func(ctx context.Context, repos repository.Repos) error {
		// 1. bodega
		wh, err := uc.resolveWarehouse(ctx, repos, actor, in.WarehouseID)
		if err != nil {
			return err
		}
		if err := uc.policy.Authorize(actor, authz.ActionSaleCreate, authz.Warehouses(wh.ID)); err != nil {
			return err
		}

		// 2. productos
		products, err := loadProducts(ctx, repos, in.Items)
		if err != nil {
			return err
		}
		if overridesPrice(in.Items, products) {
			if err := uc.policy.Authorize(actor, authz.ActionSalePrice, authz.Warehouses(wh.ID)); err != nil {
				return err
			}
		}

		// 3. stock local de la bodega
		if err := checkStock(ctx, repos, wh.ID, in.Items); err != nil {
			return err
		}

		// 4-5. totales
		var customer *entity.Customer
		if in.CustomerID != "" {
			customer, err = repos.Customers.GetForUpdate(ctx, in.CustomerID)
			if err != nil {
				return err
			}
			if customer == nil {
				return domain.NotFound("customer", in.CustomerID)
			}
		}
		items, subtotal, err := PriceLines(in.Items, products)
		if err != nil {
			return err
		}
		var balance int64
		if customer != nil {
			balance = customer.LoyaltyPoints
		}
		totals, err := ComputeTotals(uc.cfg.Pricing, items, subtotal, in.Discount, in.LoyaltyPoints, balance)
		if err != nil {
			return err
		}

		// 6. pagos
		payments, err := SettlePayments(totals.Total, in.Payments)
		if err != nil {
			return err
		}

		// 7. commit atómico
		sale = &entity.Sale{
			ID:             uuid.New().String(),
			EmployeeID:     actor.ID,
			WarehouseID:    wh.ID,
			Subtotal:       totals.Subtotal,
			DiscountAmount: totals.DiscountAmount,
			TaxAmount:      totals.TaxAmount,
			Total:          totals.Total,
			Status:         entity.SaleStatusCompleted,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if customer != nil {
			id := customer.ID
			sale.CustomerID = &id
			points := customer.LoyaltyPoints
			if totals.PointsUsed > 0 {
				sale.LoyaltyPointsUsed = totals.PointsUsed
				points -= totals.PointsUsed
			} else {
				sale.LoyaltyPointsEarned = PointsEarned(totals.Total, uc.cfg.Pricing.LoyaltyAccrualRate)
				points += sale.LoyaltyPointsEarned
			}
			if err := repos.Customers.UpdateLoyaltyPoints(ctx, customer.ID, points); err != nil {
				return err
			}
		}

		seq, err := repos.Sales.NextInvoiceSequence(ctx, now)
		if err != nil {
			return err
		}
		sale.InvoiceNumber = InvoiceNumber(uc.cfg.InvoicePrefix, now, seq)

		for i := range totals.Items {
			totals.Items[i].ID = uuid.New().String()
			totals.Items[i].SaleID = sale.ID
		}
		for i := range payments {
			payments[i].ID = uuid.New().String()
			payments[i].SaleID = sale.ID
		}
		sale.Items = totals.Items
		sale.Payments = payments
		if err := repos.Sales.Create(ctx, sale); err != nil {
			return err
		}

		for _, it := range lockOrder(sale.Items) {
			rec, err := inventory.DecrementForSaleInTx(ctx, repos, it.ProductID, wh.ID, it.Quantity, sale.ID, actor.ID, now)
			if err != nil {
				return err
			}
			touched = append(touched, rec)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return sale, touched, nil
}

// overridesPrice true si alguna línea trae un precio distinto al de catálogo.
func overridesPrice(lines []LineInput, products map[string]*entity.Product) bool {
	for _, l := range lines {
		p, ok := products[l.ProductID]
		if ok && l.UnitPrice != nil && !l.UnitPrice.Equal(p.Price) {
			return true
		}
	}
	return false
}

// lockOrder líneas ordenadas por producto: dos ventas concurrentes bloquean las filas en el mismo orden.
func lockOrder(items []entity.SaleItem) []entity.SaleItem {
	out := append([]entity.SaleItem(nil), items...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}

// InvoiceNumber prefijo + fecha (YYYYMMDD) + consecutivo de 4 dígitos.
func InvoiceNumber(prefix string, day time.Time, seq int) string {
	return fmt.Sprintf("%s-%s-%04d", prefix, day.UTC().Format("20060102"), seq)
}

func (uc *UseCase) resolveWarehouse(ctx context.Context, repos repository.Repos, actor entity.Actor, explicit string) (*entity.Warehouse, error) {
	var (
		wh  *entity.Warehouse
		err error
	)
	switch {
	case explicit != "":
		wh, err = repos.Warehouses.GetByID(ctx, explicit)
		if err == nil && wh == nil {
			return nil, domain.NotFound("warehouse", explicit)
		}
	case actor.PrimaryWarehouseID != "" || len(actor.AssignedWarehouseIDs) > 0:
		id := actor.WarehouseIDs()[0]
		wh, err = repos.Warehouses.GetByID(ctx, id)
		if err == nil && wh == nil {
			return nil, domain.NotFound("warehouse", id)
		}
	default:
		wh, err = repos.Warehouses.GetDefault(ctx)
		if err == nil && wh == nil {
			return nil, domain.NotFound("warehouse", "default")
		}
	}
	if err != nil {
		return nil, err
	}
	if !wh.SaleEnabled() {
		return nil, domain.InvalidInput("warehouse_id", fmt.Sprintf("la bodega %s no está habilitada para ventas", wh.ID))
	}
	return wh, nil
}

// loadProducts NotFound con todos los ids ausentes, sin duplicados y ordenados.
func loadProducts(ctx context.Context, repos repository.Repos, lines []LineInput) (map[string]*entity.Product, error) {
	ids := uniqueProductIDs(lines)
	products, err := repos.Products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	var missing []string
	for _, id := range ids {
		if _, ok := products[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, domain.NotFound("product", missing...)
	}
	return products, nil
}

// checkStock compara la demanda agregada por producto contra el registro de la bodega.
func checkStock(ctx context.Context, repos repository.Repos, warehouseID string, lines []LineInput) error {
	demand := make(map[string]decimal.Decimal, len(lines))
	for _, l := range lines {
		demand[l.ProductID] = demand[l.ProductID].Add(l.Quantity)
	}
	for _, id := range uniqueProductIDs(lines) {
		lookup, err := repos.Inventory.Get(ctx, id, warehouseID)
		if err != nil {
			return err
		}
		if lookup.Quantity().LessThan(demand[id]) {
			return &domain.InsufficientStockError{
				ProductID:   id,
				WarehouseID: warehouseID,
				Available:   lookup.Quantity(),
				Requested:   demand[id],
			}
		}
	}
	return nil
}

func uniqueProductIDs(lines []LineInput) []string {
	seen := make(map[string]struct{}, len(lines))
	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		if _, ok := seen[l.ProductID]; ok {
			continue
		}
		seen[l.ProductID] = struct{}{}
		ids = append(ids, l.ProductID)
	}
	return ids
}

// VoidSale anula una venta completada y devuelve el stock.
func (uc *UseCase) VoidSale(ctx context.Context, actor entity.Actor, saleID, reason string) (*entity.Sale, error) {
	return uc.reverse(ctx, actor, saleID, reason, entity.SaleStatusVoided)
}

// RefundSale devuelve una venta completada: stock de vuelta y pagos marcados como reembolsados.
func (uc *UseCase) RefundSale(ctx context.Context, actor entity.Actor, saleID, reason string) (*entity.Sale, error) {
	return uc.reverse(ctx, actor, saleID, reason, entity.SaleStatusRefunded)
}

func (uc *UseCase) reverse(ctx context.Context, actor entity.Actor, saleID, reason, target string) (sale *entity.Sale, err error) {
	ctx, span := uc.tracer.Start(ctx, "sale.reverse", trace.WithAttributes(
		attribute.String("sale.id", saleID),
		attribute.String("sale.target_status", target),
	))
	defer func() { tracing.End(span, err) }()

	action, refType, eventType := authz.ActionSaleVoid, entity.ReferenceVoid, events.TypeSaleVoided
	if target == entity.SaleStatusRefunded {
		action, refType, eventType = authz.ActionSaleRefund, entity.ReferenceRefund, events.TypeSaleRefunded
	}

	now := uc.now()
	var touched []*entity.InventoryRecord
	err = uc.txRunner.Run(ctx, func(ctx context.Context, repos repository.Repos) error {
		s, err := repos.Sales.GetForUpdate(ctx, saleID)
		if err != nil {
			return err
		}
		if s == nil {
			return domain.NotFound("sale", saleID)
		}
		if err := uc.policy.Authorize(actor, action, authz.Warehouses(s.WarehouseID)); err != nil {
			return err
		}
		if s.Status != entity.SaleStatusCompleted {
			return &domain.InvalidStateError{Entity: "sale", ID: s.ID, Current: s.Status, Requested: target}
		}

		for _, it := range s.Items {
			rec, err := inventory.RestockInTx(ctx, repos, it.ProductID, s.WarehouseID, it.Quantity, refType, s.ID, actor.ID, reason, now)
			if err != nil {
				return err
			}
			touched = append(touched, rec)
		}
		if err := repos.Sales.UpdateStatus(ctx, s.ID, target, reason, now); err != nil {
			return err
		}
		if target == entity.SaleStatusRefunded {
			if err := repos.Sales.MarkPaymentsRefunded(ctx, s.ID); err != nil {
				return err
			}
		}
		if err := repos.Audit.Create(ctx, &entity.AuditLog{
			ID:         uuid.New().String(),
			ActorID:    actor.ID,
			Action:     string(action),
			EntityType: "sale",
			EntityID:   s.ID,
			Details:    reason,
			CreatedAt:  now,
		}); err != nil {
			return err
		}

		sale, err = repos.Sales.GetByID(ctx, s.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	uc.log.Info().Str("sale_id", saleID).Str("status", target).Str("actor_id", actor.ID).Msg("venta revertida")
	uc.events.Publish(ctx, events.New(eventType, actor.ID, salePayload(sale)))
	return sale, nil
}

// GetSale venta con líneas y pagos. Fuera de las bodegas del actor responde NotFound.
func (uc *UseCase) GetSale(ctx context.Context, actor entity.Actor, saleID string) (*entity.Sale, error) {
	var sale *entity.Sale
	err := uc.txRunner.Run(ctx, func(ctx context.Context, repos repository.Repos) error {
		var err error
		sale, err = repos.Sales.GetByID(ctx, saleID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if sale == nil || !authz.HasAccess(actor, sale.WarehouseID) {
		return nil, domain.NotFound("sale", saleID)
	}
	return sale, nil
}

func salePayload(s *entity.Sale) map[string]any {
	p := map[string]any{
		"sale_id":        s.ID,
		"invoice_number": s.InvoiceNumber,
		"warehouse_id":   s.WarehouseID,
		"status":         s.Status,
		"total":          s.Total.StringFixed(2),
		"items":          len(s.Items),
	}
	if s.CustomerID != nil {
		p["customer_id"] = *s.CustomerID
	}
	return p
}
