package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/pos-ledger/internal/domain/entity"
	"github.com/jhoicas/pos-ledger/internal/domain/repository"
)

var _ repository.SaleRepository = (*SaleRepo)(nil)

// SaleRepo ventas con sus líneas y pagos.
type SaleRepo struct {
	q Querier
}

// NewSaleRepository construye el adaptador. Pasar pool o tx (Querier).
func NewSaleRepository(q Querier) *SaleRepo {
	return &SaleRepo{q: q}
}

// NextInvoiceSequence ventas ya registradas en el día (UTC) + 1. Dos transacciones concurrentes
// pueden obtener el mismo número; el índice único sobre invoice_number lo rechaza con ErrConflict.
func (r *SaleRepo) NextInvoiceSequence(ctx context.Context, day time.Time) (int, error) {
	start, end := utcDay(day)
	var n int
	err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM sales WHERE created_at >= $1 AND created_at < $2`,
		start, end).Scan(&n)
	if err != nil {
		return 0, mapError("next invoice sequence", err)
	}
	return n + 1, nil
}

// utcDay [inicio, fin) del día UTC que contiene t, el mismo día que usa el número de factura.
func utcDay(t time.Time) (time.Time, time.Time) {
	d := t.UTC()
	start := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}

// Create inserta cabecera, líneas y pagos. Debe ejecutarse dentro de la tx del caso de uso.
func (r *SaleRepo) Create(ctx context.Context, s *entity.Sale) error {
	header := `
		INSERT INTO sales (id, invoice_number, employee_id, customer_id, warehouse_id, subtotal, discount_amount,
			tax_amount, loyalty_points_used, loyalty_points_earned, total, status, status_reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	_, err := r.q.Exec(ctx, header,
		s.ID, s.InvoiceNumber, s.EmployeeID, s.CustomerID, s.WarehouseID, s.Subtotal, s.DiscountAmount,
		s.TaxAmount, s.LoyaltyPointsUsed, s.LoyaltyPointsEarned, s.Total, s.Status, s.StatusReason,
		s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return mapError("insert sale", err)
	}

	for _, it := range s.Items {
		_, err := r.q.Exec(ctx, `
			INSERT INTO sale_items (id, sale_id, product_id, quantity, unit_price, discount, line_total)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			it.ID, s.ID, it.ProductID, it.Quantity, it.UnitPrice, it.Discount, it.LineTotal)
		if err != nil {
			return mapError("insert sale item", err)
		}
	}
	for _, p := range s.Payments {
		_, err := r.q.Exec(ctx, `
			INSERT INTO payments (id, sale_id, method, amount, amount_received, change_given, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			p.ID, s.ID, p.Method, p.Amount, p.AmountReceived, p.ChangeGiven, p.Status)
		if err != nil {
			return mapError("insert payment", err)
		}
	}
	return nil
}

func (r *SaleRepo) GetByID(ctx context.Context, id string) (*entity.Sale, error) {
	return r.get(ctx, "get sale", "", id)
}

func (r *SaleRepo) GetForUpdate(ctx context.Context, id string) (*entity.Sale, error) {
	return r.get(ctx, "get sale for update", " FOR UPDATE", id)
}

func (r *SaleRepo) get(ctx context.Context, op, suffix, id string) (*entity.Sale, error) {
	query := `
		SELECT id, invoice_number, employee_id, customer_id, warehouse_id, subtotal, discount_amount, tax_amount,
			loyalty_points_used, loyalty_points_earned, total, status, status_reason, created_at, updated_at
		FROM sales WHERE id = $1` + suffix
	var s entity.Sale
	err := r.q.QueryRow(ctx, query, id).Scan(
		&s.ID, &s.InvoiceNumber, &s.EmployeeID, &s.CustomerID, &s.WarehouseID, &s.Subtotal, &s.DiscountAmount,
		&s.TaxAmount, &s.LoyaltyPointsUsed, &s.LoyaltyPointsEarned, &s.Total, &s.Status, &s.StatusReason,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError(op, err)
	}
	if s.Items, err = r.items(ctx, id); err != nil {
		return nil, err
	}
	if s.Payments, err = r.payments(ctx, id); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SaleRepo) items(ctx context.Context, saleID string) ([]entity.SaleItem, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, sale_id, product_id, quantity, unit_price, discount, line_total
		FROM sale_items WHERE sale_id = $1 ORDER BY id`, saleID)
	if err != nil {
		return nil, mapError("list sale items", err)
	}
	defer rows.Close()
	var list []entity.SaleItem
	for rows.Next() {
		var it entity.SaleItem
		if err := rows.Scan(&it.ID, &it.SaleID, &it.ProductID, &it.Quantity, &it.UnitPrice, &it.Discount, &it.LineTotal); err != nil {
			return nil, mapError("scan sale item", err)
		}
		list = append(list, it)
	}
	return list, rows.Err()
}

func (r *SaleRepo) payments(ctx context.Context, saleID string) ([]entity.Payment, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, sale_id, method, amount, amount_received, change_given, status
		FROM payments WHERE sale_id = $1 ORDER BY id`, saleID)
	if err != nil {
		return nil, mapError("list payments", err)
	}
	defer rows.Close()
	var list []entity.Payment
	for rows.Next() {
		var p entity.Payment
		if err := rows.Scan(&p.ID, &p.SaleID, &p.Method, &p.Amount, &p.AmountReceived, &p.ChangeGiven, &p.Status); err != nil {
			return nil, mapError("scan payment", err)
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

func (r *SaleRepo) UpdateStatus(ctx context.Context, id, status, reason string, now time.Time) error {
	_, err := r.q.Exec(ctx, `UPDATE sales SET status = $2, status_reason = $3, updated_at = $4 WHERE id = $1`,
		id, status, reason, now)
	if err != nil {
		return mapError("update sale status", err)
	}
	return nil
}

func (r *SaleRepo) MarkPaymentsRefunded(ctx context.Context, saleID string) error {
	_, err := r.q.Exec(ctx, `UPDATE payments SET status = $2 WHERE sale_id = $1`, saleID, entity.PaymentStatusRefunded)
	if err != nil {
		return mapError("refund payments", err)
	}
	return nil
}
