package repository

import (
	"context"

	"github.com/jhoicas/pos-ledger/internal/domain/entity"
)

// ProductRepository puerto de lectura de productos (el catálogo se administra fuera de este servicio).
type ProductRepository interface {
	// GetByID devuelve nil, nil si no existe.
	GetByID(ctx context.Context, id string) (*entity.Product, error)
	// GetByIDs devuelve los productos encontrados indexados por ID; los ausentes no aparecen.
	GetByIDs(ctx context.Context, ids []string) (map[string]*entity.Product, error)
}
