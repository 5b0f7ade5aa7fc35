package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/pos-ledger/internal/domain/entity"
	"github.com/jhoicas/pos-ledger/internal/domain/repository"
)

var _ repository.CustomerRepository = (*CustomerRepo)(nil)

// CustomerRepo saldo de puntos de clientes (usable con pool o tx).
type CustomerRepo struct {
	q Querier
}

// NewCustomerRepository construye el adaptador. Pasar pool o tx (Querier).
func NewCustomerRepository(q Querier) *CustomerRepo {
	return &CustomerRepo{q: q}
}

func (r *CustomerRepo) get(ctx context.Context, op, suffix, id string) (*entity.Customer, error) {
	var c entity.Customer
	err := r.q.QueryRow(ctx, `
		SELECT id, name, loyalty_points, created_at, updated_at
		FROM customers WHERE id = $1`+suffix, id).Scan(
		&c.ID, &c.Name, &c.LoyaltyPoints, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError(op, err)
	}
	return &c, nil
}

// GetByID obtiene un cliente por ID.
func (r *CustomerRepo) GetByID(ctx context.Context, id string) (*entity.Customer, error) {
	return r.get(ctx, "get customer", "", id)
}

// GetForUpdate bloquea la fila para debitar o acreditar puntos.
func (r *CustomerRepo) GetForUpdate(ctx context.Context, id string) (*entity.Customer, error) {
	return r.get(ctx, "get customer for update", " FOR UPDATE", id)
}

func (r *CustomerRepo) UpdateLoyaltyPoints(ctx context.Context, id string, points int64) error {
	_, err := r.q.Exec(ctx, `UPDATE customers SET loyalty_points = $2, updated_at = now() WHERE id = $1`, id, points)
	if err != nil {
		return mapError("update loyalty points", err)
	}
	return nil
}
