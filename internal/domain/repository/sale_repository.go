package repository

import (
	"context"
	"time"

	"github.com/jhoicas/pos-ledger/internal/domain/entity"
)

// SaleRepository puerto de persistencia de ventas con sus líneas y pagos.
type SaleRepository interface {
	// NextInvoiceSequence siguiente consecutivo del día (1-based).
	NextInvoiceSequence(ctx context.Context, day time.Time) (int, error)
	// Create inserta cabecera, líneas y pagos; domain.ErrConflict si el número de factura ya existe.
	Create(ctx context.Context, sale *entity.Sale) error
	GetByID(ctx context.Context, id string) (*entity.Sale, error)
	GetForUpdate(ctx context.Context, id string) (*entity.Sale, error)
	UpdateStatus(ctx context.Context, id, status, reason string, now time.Time) error
	MarkPaymentsRefunded(ctx context.Context, saleID string) error
}
