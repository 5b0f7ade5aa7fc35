package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/pos-ledger/internal/domain/entity"
	"github.com/jhoicas/pos-ledger/internal/domain/repository"
)

// Los repos asumen que el store ya está bloqueado por Run; no toman el mutex.

type productRepo struct{ d *dataset }

var _ repository.ProductRepository = (*productRepo)(nil)

func (r *productRepo) GetByID(_ context.Context, id string) (*entity.Product, error) {
	p, ok := r.d.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *productRepo) GetByIDs(_ context.Context, ids []string) (map[string]*entity.Product, error) {
	out := make(map[string]*entity.Product, len(ids))
	for _, id := range ids {
		if p, ok := r.d.products[id]; ok {
			cp := p
			out[id] = &cp
		}
	}
	return out, nil
}

type warehouseRepo struct{ d *dataset }

var _ repository.WarehouseRepository = (*warehouseRepo)(nil)

func (r *warehouseRepo) GetByID(_ context.Context, id string) (*entity.Warehouse, error) {
	w, ok := r.d.warehouses[id]
	if !ok {
		return nil, nil
	}
	return &w, nil
}

func (r *warehouseRepo) GetDefault(_ context.Context) (*entity.Warehouse, error) {
	for _, w := range r.d.warehouses {
		if w.IsDefault {
			cp := w
			return &cp, nil
		}
	}
	return nil, nil
}

type inventoryRepo struct{ d *dataset }

var _ repository.InventoryRepository = (*inventoryRepo)(nil)

func (r *inventoryRepo) Get(_ context.Context, productID, warehouseID string) (entity.RecordLookup, error) {
	rec, ok := r.d.inventory[stockKey{productID, warehouseID}]
	if !ok {
		return entity.Absent(), nil
	}
	r.decorate(&rec)
	return entity.Found(&rec), nil
}

// GetForUpdate equivale a Get: el store completo ya está bloqueado.
func (r *inventoryRepo) GetForUpdate(ctx context.Context, productID, warehouseID string) (entity.RecordLookup, error) {
	return r.Get(ctx, productID, warehouseID)
}

func (r *inventoryRepo) Insert(_ context.Context, record *entity.InventoryRecord) error {
	k := stockKey{record.ProductID, record.WarehouseID}
	if _, ok := r.d.inventory[k]; ok {
		return conflict("inventory_record %s/%s ya existe", record.ProductID, record.WarehouseID)
	}
	rec := *record
	rec.SKU, rec.ProductName = "", ""
	r.d.inventory[k] = rec
	return nil
}

func (r *inventoryRepo) UpdateQuantity(_ context.Context, productID, warehouseID string, quantity decimal.Decimal, now time.Time) error {
	k := stockKey{productID, warehouseID}
	rec, ok := r.d.inventory[k]
	if !ok {
		return nil
	}
	rec.Quantity = quantity
	rec.UpdatedAt = now
	r.d.inventory[k] = rec
	return nil
}

func (r *inventoryRepo) DecrementIfAvailable(_ context.Context, productID, warehouseID string, qty decimal.Decimal, now time.Time) (decimal.Decimal, bool, error) {
	k := stockKey{productID, warehouseID}
	rec, ok := r.d.inventory[k]
	if !ok {
		return decimal.Zero, false, nil
	}
	if rec.Quantity.LessThan(qty) {
		return rec.Quantity, false, nil
	}
	rec.Quantity = rec.Quantity.Sub(qty)
	rec.UpdatedAt = now
	r.d.inventory[k] = rec
	return rec.Quantity, true, nil
}

func (r *inventoryRepo) UpdateLevels(_ context.Context, productID, warehouseID string, min, max decimal.Decimal, now time.Time) (bool, error) {
	k := stockKey{productID, warehouseID}
	rec, ok := r.d.inventory[k]
	if !ok {
		return false, nil
	}
	rec.MinStockLevel = min
	rec.MaxStockLevel = max
	rec.UpdatedAt = now
	r.d.inventory[k] = rec
	return true, nil
}

func (r *inventoryRepo) List(_ context.Context, f repository.InventoryFilter) ([]*entity.InventoryRecord, int, error) {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	var all []*entity.InventoryRecord
	for _, rec := range r.d.inventory {
		if f.WarehouseID != "" && rec.WarehouseID != f.WarehouseID {
			continue
		}
		if f.ProductID != "" && rec.ProductID != f.ProductID {
			continue
		}
		if f.LowStock && !rec.IsLowStock() {
			continue
		}
		cp := rec
		r.decorate(&cp)
		if search != "" &&
			!strings.Contains(strings.ToLower(cp.SKU), search) &&
			!strings.Contains(strings.ToLower(cp.ProductName), search) {
			continue
		}
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].SKU != all[j].SKU {
			return all[i].SKU < all[j].SKU
		}
		return all[i].WarehouseID < all[j].WarehouseID
	})
	return page(all, f.Limit, f.Offset), len(all), nil
}

func (r *inventoryRepo) ListLowStock(_ context.Context, warehouseID string) ([]*entity.InventoryRecord, error) {
	var out []*entity.InventoryRecord
	for _, rec := range r.d.inventory {
		if warehouseID != "" && rec.WarehouseID != warehouseID {
			continue
		}
		if !rec.IsLowStock() {
			continue
		}
		cp := rec
		r.decorate(&cp)
		out = append(out, &cp)
	}
	return out, nil
}

func (r *inventoryRepo) decorate(rec *entity.InventoryRecord) {
	if p, ok := r.d.products[rec.ProductID]; ok {
		rec.SKU = p.SKU
		rec.ProductName = p.Name
	}
}

type movementRepo struct{ d *dataset }

var _ repository.StockMovementRepository = (*movementRepo)(nil)

func (r *movementRepo) Create(_ context.Context, m *entity.StockMovement) error {
	r.d.movements = append(r.d.movements, *m)
	return nil
}

func (r *movementRepo) List(_ context.Context, f repository.MovementFilter) ([]*entity.StockMovement, int, error) {
	var out []*entity.StockMovement
	// recorrido inverso: más reciente primero, desempate por orden de inserción
	for i := len(r.d.movements) - 1; i >= 0; i-- {
		m := r.d.movements[i]
		if f.WarehouseID != "" && m.WarehouseID != f.WarehouseID {
			continue
		}
		if f.ProductID != "" && m.ProductID != f.ProductID {
			continue
		}
		if f.Type != "" && m.Type != f.Type {
			continue
		}
		if f.ReferenceType != "" && m.ReferenceType != f.ReferenceType {
			continue
		}
		if f.ReferenceID != "" && m.ReferenceID != f.ReferenceID {
			continue
		}
		cp := m
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, f.Limit, f.Offset), len(out), nil
}

type transferRepo struct{ d *dataset }

var _ repository.TransferRequestRepository = (*transferRepo)(nil)

func (r *transferRepo) Create(_ context.Context, tr *entity.TransferRequest) error {
	if _, ok := r.d.transfers[tr.ID]; ok {
		return conflict("transfer_request %s ya existe", tr.ID)
	}
	r.d.transfers[tr.ID] = copyTransfer(*tr)
	return nil
}

func (r *transferRepo) GetByID(_ context.Context, id string) (*entity.TransferRequest, error) {
	tr, ok := r.d.transfers[id]
	if !ok {
		return nil, nil
	}
	cp := copyTransfer(tr)
	return &cp, nil
}

func (r *transferRepo) GetForUpdate(ctx context.Context, id string) (*entity.TransferRequest, error) {
	return r.GetByID(ctx, id)
}

func (r *transferRepo) Update(_ context.Context, tr *entity.TransferRequest) error {
	if _, ok := r.d.transfers[tr.ID]; !ok {
		return nil
	}
	r.d.transfers[tr.ID] = copyTransfer(*tr)
	return nil
}

func (r *transferRepo) List(_ context.Context, f repository.TransferFilter) ([]*entity.TransferRequest, int, error) {
	var visible map[string]struct{}
	if f.VisibleWarehouseIDs != nil {
		visible = make(map[string]struct{}, len(f.VisibleWarehouseIDs))
		for _, id := range f.VisibleWarehouseIDs {
			visible[id] = struct{}{}
		}
	}
	var out []*entity.TransferRequest
	for _, tr := range r.d.transfers {
		if f.WarehouseID != "" && !tr.Touches(f.WarehouseID) {
			continue
		}
		if f.Status != "" && tr.Status != f.Status {
			continue
		}
		if f.ProductID != "" && tr.ProductID != f.ProductID {
			continue
		}
		if f.RequestedBy != "" && tr.RequestedBy != f.RequestedBy {
			continue
		}
		if visible != nil {
			_, src := visible[tr.FromWarehouseID]
			_, dst := visible[tr.ToWarehouseID]
			if !src && !dst {
				continue
			}
		}
		cp := copyTransfer(tr)
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return page(out, f.Limit, f.Offset), len(out), nil
}

type saleRepo struct{ d *dataset }

var _ repository.SaleRepository = (*saleRepo)(nil)

// NextInvoiceSequence ventas ya registradas en el día (UTC) + 1.
func (r *saleRepo) NextInvoiceSequence(_ context.Context, day time.Time) (int, error) {
	key := day.UTC().Format("20060102")
	n := 0
	for _, s := range r.d.sales {
		if s.CreatedAt.UTC().Format("20060102") == key {
			n++
		}
	}
	return n + 1, nil
}

func (r *saleRepo) Create(_ context.Context, sale *entity.Sale) error {
	if _, ok := r.d.invoices[sale.InvoiceNumber]; ok {
		return conflict("invoice_number %s duplicado", sale.InvoiceNumber)
	}
	if _, ok := r.d.sales[sale.ID]; ok {
		return conflict("sale %s ya existe", sale.ID)
	}
	r.d.sales[sale.ID] = copySale(*sale)
	r.d.invoices[sale.InvoiceNumber] = sale.ID
	return nil
}

func (r *saleRepo) GetByID(_ context.Context, id string) (*entity.Sale, error) {
	s, ok := r.d.sales[id]
	if !ok {
		return nil, nil
	}
	cp := copySale(s)
	return &cp, nil
}

func (r *saleRepo) GetForUpdate(ctx context.Context, id string) (*entity.Sale, error) {
	return r.GetByID(ctx, id)
}

func (r *saleRepo) UpdateStatus(_ context.Context, id, status, reason string, now time.Time) error {
	s, ok := r.d.sales[id]
	if !ok {
		return nil
	}
	s.Status = status
	s.StatusReason = reason
	s.UpdatedAt = now
	r.d.sales[id] = s
	return nil
}

func (r *saleRepo) MarkPaymentsRefunded(_ context.Context, saleID string) error {
	s, ok := r.d.sales[saleID]
	if !ok {
		return nil
	}
	s = copySale(s)
	for i := range s.Payments {
		s.Payments[i].Status = entity.PaymentStatusRefunded
	}
	r.d.sales[saleID] = s
	return nil
}

type customerRepo struct{ d *dataset }

var _ repository.CustomerRepository = (*customerRepo)(nil)

func (r *customerRepo) GetByID(_ context.Context, id string) (*entity.Customer, error) {
	c, ok := r.d.customers[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (r *customerRepo) GetForUpdate(ctx context.Context, id string) (*entity.Customer, error) {
	return r.GetByID(ctx, id)
}

func (r *customerRepo) UpdateLoyaltyPoints(_ context.Context, id string, points int64) error {
	c, ok := r.d.customers[id]
	if !ok {
		return nil
	}
	c.LoyaltyPoints = points
	c.UpdatedAt = time.Now()
	r.d.customers[id] = c
	return nil
}

type auditRepo struct{ d *dataset }

var _ repository.AuditLogRepository = (*auditRepo)(nil)

func (r *auditRepo) Create(_ context.Context, entry *entity.AuditLog) error {
	r.d.audit = append(r.d.audit, *entry)
	return nil
}

func page[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
