// Package memory implementa los repositorios en memoria (tests y STORAGE_DRIVER=memory).
// Las transacciones se serializan con un mutex y el rollback restaura una copia del estado previo.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/pos-ledger/internal/domain"
	"github.com/jhoicas/pos-ledger/internal/domain/entity"
	"github.com/jhoicas/pos-ledger/internal/domain/repository"
)

type stockKey struct {
	productID   string
	warehouseID string
}

// dataset estado completo; los repos de una transacción operan directamente sobre él.
type dataset struct {
	products   map[string]entity.Product
	warehouses map[string]entity.Warehouse
	inventory  map[stockKey]entity.InventoryRecord
	movements  []entity.StockMovement
	transfers  map[string]entity.TransferRequest
	sales      map[string]entity.Sale
	invoices   map[string]string // invoice_number -> sale id
	customers  map[string]entity.Customer
	audit      []entity.AuditLog
}

func newDataset() *dataset {
	return &dataset{
		products:   make(map[string]entity.Product),
		warehouses: make(map[string]entity.Warehouse),
		inventory:  make(map[stockKey]entity.InventoryRecord),
		transfers:  make(map[string]entity.TransferRequest),
		sales:      make(map[string]entity.Sale),
		invoices:   make(map[string]string),
		customers:  make(map[string]entity.Customer),
	}
}

func (d *dataset) clone() *dataset {
	c := newDataset()
	for k, v := range d.products {
		c.products[k] = v
	}
	for k, v := range d.warehouses {
		c.warehouses[k] = v
	}
	for k, v := range d.inventory {
		c.inventory[k] = v
	}
	c.movements = append([]entity.StockMovement(nil), d.movements...)
	for k, v := range d.transfers {
		c.transfers[k] = copyTransfer(v)
	}
	for k, v := range d.sales {
		c.sales[k] = copySale(v)
	}
	for k, v := range d.invoices {
		c.invoices[k] = v
	}
	for k, v := range d.customers {
		c.customers[k] = v
	}
	c.audit = append([]entity.AuditLog(nil), d.audit...)
	return c
}

// Store base de datos en memoria.
type Store struct {
	mu   sync.Mutex
	data *dataset
}

// NewStore crea un store vacío.
func NewStore() *Store {
	return &Store{data: newDataset()}
}

// Run implementa repository.TxRunner. Una transacción a la vez; si fn falla (o hace panic) se restaura el snapshot.
func (s *Store) Run(ctx context.Context, fn func(ctx context.Context, repos repository.Repos) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	defer func() {
		if p := recover(); p != nil {
			s.data = snapshot
			panic(p)
		}
		if err != nil {
			s.data = snapshot
		}
	}()

	return fn(ctx, reposFor(s.data))
}

var _ repository.TxRunner = (*Store)(nil)

func reposFor(d *dataset) repository.Repos {
	return repository.Repos{
		Products:   &productRepo{d: d},
		Warehouses: &warehouseRepo{d: d},
		Inventory:  &inventoryRepo{d: d},
		Movements:  &movementRepo{d: d},
		Transfers:  &transferRepo{d: d},
		Sales:      &saleRepo{d: d},
		Customers:  &customerRepo{d: d},
		Audit:      &auditRepo{d: d},
	}
}

// --- Carga de datos (tests y modo demo) ---

// AddProduct registra un producto.
func (s *Store) AddProduct(p entity.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
		p.UpdatedAt = p.CreatedAt
	}
	s.data.products[p.ID] = p
}

// AddWarehouse registra una bodega.
func (s *Store) AddWarehouse(w entity.Warehouse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w.CreatedAt.IsZero() {
		w.CreatedAt = time.Now()
		w.UpdatedAt = w.CreatedAt
	}
	s.data.warehouses[w.ID] = w
}

// AddCustomer registra un cliente.
func (s *Store) AddCustomer(c entity.Customer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.customers[c.ID] = c
}

// SeedStock carga stock inicial como un movimiento ADJUSTMENT, manteniendo quantity == Σ movimientos.
func (s *Store) SeedStock(productID, warehouseID string, qty, minLevel decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := stockKey{productID, warehouseID}
	now := time.Now()
	rec, ok := s.data.inventory[k]
	if !ok {
		rec = entity.InventoryRecord{ProductID: productID, WarehouseID: warehouseID}
	}
	next := rec.Quantity.Add(qty)
	if next.IsNegative() {
		return fmt.Errorf("seed stock: cantidad negativa para %s/%s", productID, warehouseID)
	}
	rec.Quantity = next
	rec.MinStockLevel = minLevel
	rec.UpdatedAt = now
	s.data.inventory[k] = rec
	s.data.movements = append(s.data.movements, entity.StockMovement{
		ID:            uuid.New().String(),
		ProductID:     productID,
		WarehouseID:   warehouseID,
		Type:          entity.MovementTypeADJUSTMENT,
		Quantity:      qty,
		ReferenceType: entity.ReferenceAdjustment,
		ReferenceID:   "seed",
		CreatedBy:     "system",
		CreatedAt:     now,
		Notes:         "carga inicial",
	})
	return nil
}

// Quantity lectura directa del stock (tests).
func (s *Store) Quantity(productID, warehouseID string) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.inventory[stockKey{productID, warehouseID}].Quantity
}

// MovementSum Σ de deltas para el par (tests de la invariante del libro).
func (s *Store) MovementSum(productID, warehouseID string) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	sum := decimal.Zero
	for _, m := range s.data.movements {
		if m.ProductID == productID && m.WarehouseID == warehouseID {
			sum = sum.Add(m.Quantity)
		}
	}
	return sum
}

// Movements copia del libro completo en orden de inserción (tests).
func (s *Store) Movements() []entity.StockMovement {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]entity.StockMovement(nil), s.data.movements...)
}

// AuditEntries copia de la auditoría (tests).
func (s *Store) AuditEntries() []entity.AuditLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]entity.AuditLog(nil), s.data.audit...)
}

// LoyaltyPoints saldo actual del cliente (tests).
func (s *Store) LoyaltyPoints(customerID string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.customers[customerID].LoyaltyPoints
}

// SaleCount número de ventas persistidas (tests).
func (s *Store) SaleCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data.sales)
}

func copySale(s entity.Sale) entity.Sale {
	s.Items = append([]entity.SaleItem(nil), s.Items...)
	s.Payments = append([]entity.Payment(nil), s.Payments...)
	if s.CustomerID != nil {
		id := *s.CustomerID
		s.CustomerID = &id
	}
	return s
}

func copyTransfer(t entity.TransferRequest) entity.TransferRequest {
	if t.Quantity != nil {
		q := *t.Quantity
		t.Quantity = &q
	}
	if t.ApprovedBy != nil {
		v := *t.ApprovedBy
		t.ApprovedBy = &v
	}
	if t.ReceivedBy != nil {
		v := *t.ReceivedBy
		t.ReceivedBy = &v
	}
	if t.ApprovedAt != nil {
		v := *t.ApprovedAt
		t.ApprovedAt = &v
	}
	if t.CompletedAt != nil {
		v := *t.CompletedAt
		t.CompletedAt = &v
	}
	return t
}

func conflict(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{domain.ErrConflict}, args...)...)
}
