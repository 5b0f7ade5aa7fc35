package repository

import (
	"context"

	"github.com/jhoicas/pos-ledger/internal/domain/entity"
)

// CustomerRepository puerto para el saldo de puntos de fidelización.
type CustomerRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Customer, error)
	GetForUpdate(ctx context.Context, id string) (*entity.Customer, error)
	UpdateLoyaltyPoints(ctx context.Context, id string, points int64) error
}
