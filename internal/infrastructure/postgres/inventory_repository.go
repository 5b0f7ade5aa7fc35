package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/pos-ledger/internal/domain/entity"
	"github.com/jhoicas/pos-ledger/internal/domain/repository"
)

var _ repository.InventoryRepository = (*InventoryRepo)(nil)

// InventoryRepo registros de stock por (producto, bodega).
type InventoryRepo struct {
	q Querier
}

// NewInventoryRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInventoryRepository(q Querier) *InventoryRepo {
	return &InventoryRepo{q: q}
}

const inventorySelect = `
	SELECT i.product_id, i.warehouse_id, i.quantity, i.min_stock_level, i.max_stock_level, i.updated_at,
	       p.sku, p.name
	FROM inventory_records i
	JOIN products p ON p.id = i.product_id`

func scanRecord(row pgx.Row) (*entity.InventoryRecord, error) {
	var rec entity.InventoryRecord
	err := row.Scan(&rec.ProductID, &rec.WarehouseID, &rec.Quantity, &rec.MinStockLevel, &rec.MaxStockLevel,
		&rec.UpdatedAt, &rec.SKU, &rec.ProductName)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *InventoryRepo) lookup(ctx context.Context, op, suffix, productID, warehouseID string) (entity.RecordLookup, error) {
	rec, err := scanRecord(r.q.QueryRow(ctx,
		inventorySelect+` WHERE i.product_id = $1 AND i.warehouse_id = $2`+suffix, productID, warehouseID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return entity.Absent(), nil
		}
		return entity.Absent(), mapError(op, err)
	}
	return entity.Found(rec), nil
}

func (r *InventoryRepo) Get(ctx context.Context, productID, warehouseID string) (entity.RecordLookup, error) {
	return r.lookup(ctx, "get inventory record", "", productID, warehouseID)
}

// GetForUpdate bloquea solo la fila del registro (SELECT FOR UPDATE OF i).
func (r *InventoryRepo) GetForUpdate(ctx context.Context, productID, warehouseID string) (entity.RecordLookup, error) {
	return r.lookup(ctx, "get inventory record for update", " FOR UPDATE OF i", productID, warehouseID)
}

func (r *InventoryRepo) Insert(ctx context.Context, rec *entity.InventoryRecord) error {
	query := `
		INSERT INTO inventory_records (product_id, warehouse_id, quantity, min_stock_level, max_stock_level, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.q.Exec(ctx, query, rec.ProductID, rec.WarehouseID, rec.Quantity, rec.MinStockLevel, rec.MaxStockLevel, rec.UpdatedAt)
	if err != nil {
		return mapError("insert inventory record", err)
	}
	return nil
}

func (r *InventoryRepo) UpdateQuantity(ctx context.Context, productID, warehouseID string, quantity decimal.Decimal, now time.Time) error {
	_, err := r.q.Exec(ctx, `
		UPDATE inventory_records SET quantity = $3, updated_at = $4
		WHERE product_id = $1 AND warehouse_id = $2`, productID, warehouseID, quantity, now)
	if err != nil {
		return mapError("update inventory quantity", err)
	}
	return nil
}

// DecrementIfAvailable UPDATE condicional: la fila se bloquea y se verifica en una sola sentencia.
func (r *InventoryRepo) DecrementIfAvailable(ctx context.Context, productID, warehouseID string, qty decimal.Decimal, now time.Time) (decimal.Decimal, bool, error) {
	var remaining decimal.Decimal
	err := r.q.QueryRow(ctx, `
		UPDATE inventory_records SET quantity = quantity - $3, updated_at = $4
		WHERE product_id = $1 AND warehouse_id = $2 AND quantity >= $3
		RETURNING quantity`, productID, warehouseID, qty, now).Scan(&remaining)
	if err == nil {
		return remaining, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, false, mapError("decrement inventory", err)
	}
	lookup, err := r.Get(ctx, productID, warehouseID)
	if err != nil {
		return decimal.Zero, false, err
	}
	return lookup.Quantity(), false, nil
}

func (r *InventoryRepo) UpdateLevels(ctx context.Context, productID, warehouseID string, min, max decimal.Decimal, now time.Time) (bool, error) {
	tag, err := r.q.Exec(ctx, `
		UPDATE inventory_records SET min_stock_level = $3, max_stock_level = $4, updated_at = $5
		WHERE product_id = $1 AND warehouse_id = $2`, productID, warehouseID, min, max, now)
	if err != nil {
		return false, mapError("update stock levels", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *InventoryRepo) List(ctx context.Context, f repository.InventoryFilter) ([]*entity.InventoryRecord, int, error) {
	var w whereBuilder
	if f.WarehouseID != "" {
		w.add("i.warehouse_id = $%d", f.WarehouseID)
	}
	if f.ProductID != "" {
		w.add("i.product_id = $%d", f.ProductID)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		w.add("(p.sku ILIKE $%[1]d OR p.name ILIKE $%[1]d)", "%"+s+"%")
	}
	if f.LowStock {
		w.conds = append(w.conds, "i.quantity <= i.min_stock_level")
	}

	var total int
	countSQL := `SELECT COUNT(*) FROM inventory_records i JOIN products p ON p.id = i.product_id` + w.clause()
	if err := r.q.QueryRow(ctx, countSQL, w.args...).Scan(&total); err != nil {
		return nil, 0, mapError("count inventory", err)
	}

	pageSQL, args := w.page(f.Limit, f.Offset)
	rows, err := r.q.Query(ctx, inventorySelect+w.clause()+` ORDER BY p.sku, i.warehouse_id`+pageSQL, args...)
	if err != nil {
		return nil, 0, mapError("list inventory", err)
	}
	list, err := collectRecords(rows)
	return list, total, err
}

func (r *InventoryRepo) ListLowStock(ctx context.Context, warehouseID string) ([]*entity.InventoryRecord, error) {
	w := whereBuilder{conds: []string{"i.quantity <= i.min_stock_level"}}
	if warehouseID != "" {
		w.add("i.warehouse_id = $%d", warehouseID)
	}
	rows, err := r.q.Query(ctx, inventorySelect+w.clause(), w.args...)
	if err != nil {
		return nil, mapError("list low stock", err)
	}
	return collectRecords(rows)
}

func collectRecords(rows pgx.Rows) ([]*entity.InventoryRecord, error) {
	defer rows.Close()
	list := []*entity.InventoryRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, mapError("scan inventory record", err)
		}
		list = append(list, rec)
	}
	return list, rows.Err()
}
