package postgres

import (
	"context"

	"github.com/jhoicas/pos-ledger/internal/domain/entity"
	"github.com/jhoicas/pos-ledger/internal/domain/repository"
)

var _ repository.StockMovementRepository = (*StockMovementRepo)(nil)

// StockMovementRepo libro de movimientos; solo inserta y lee.
type StockMovementRepo struct {
	q Querier
}

// NewStockMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockMovementRepository(q Querier) *StockMovementRepo {
	return &StockMovementRepo{q: q}
}

func (r *StockMovementRepo) Create(ctx context.Context, m *entity.StockMovement) error {
	query := `
		INSERT INTO stock_movements (id, product_id, warehouse_id, type, quantity, reference_type, reference_id, created_by, created_at, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.q.Exec(ctx, query,
		m.ID, m.ProductID, m.WarehouseID, m.Type, m.Quantity, m.ReferenceType, m.ReferenceID,
		m.CreatedBy, m.CreatedAt, m.Notes,
	)
	if err != nil {
		return mapError("insert stock movement", err)
	}
	return nil
}

func (r *StockMovementRepo) List(ctx context.Context, f repository.MovementFilter) ([]*entity.StockMovement, int, error) {
	var w whereBuilder
	if f.WarehouseID != "" {
		w.add("warehouse_id = $%d", f.WarehouseID)
	}
	if f.ProductID != "" {
		w.add("product_id = $%d", f.ProductID)
	}
	if f.Type != "" {
		w.add("type = $%d", f.Type)
	}
	if f.ReferenceType != "" {
		w.add("reference_type = $%d", f.ReferenceType)
	}
	if f.ReferenceID != "" {
		w.add("reference_id = $%d", f.ReferenceID)
	}

	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM stock_movements`+w.clause(), w.args...).Scan(&total); err != nil {
		return nil, 0, mapError("count stock movements", err)
	}

	pageSQL, args := w.page(f.Limit, f.Offset)
	query := `
		SELECT id, product_id, warehouse_id, type, quantity, reference_type, reference_id, created_by, created_at, notes
		FROM stock_movements` + w.clause() + ` ORDER BY created_at DESC, id DESC` + pageSQL
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, mapError("list stock movements", err)
	}
	defer rows.Close()
	list := []*entity.StockMovement{}
	for rows.Next() {
		var m entity.StockMovement
		if err := rows.Scan(&m.ID, &m.ProductID, &m.WarehouseID, &m.Type, &m.Quantity, &m.ReferenceType,
			&m.ReferenceID, &m.CreatedBy, &m.CreatedAt, &m.Notes); err != nil {
			return nil, 0, mapError("scan stock movement", err)
		}
		list = append(list, &m)
	}
	return list, total, rows.Err()
}
