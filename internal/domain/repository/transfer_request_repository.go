package repository

import (
	"context"

	"github.com/jhoicas/pos-ledger/internal/domain/entity"
)

// TransferFilter filtros del listado de solicitudes de traslado.
// VisibleWarehouseIDs y RequestedBy los fija el caso de uso según el actor; nil = sin restricción.
type TransferFilter struct {
	WarehouseID         string
	Status              string
	ProductID           string
	VisibleWarehouseIDs []string
	RequestedBy         string
	Limit               int
	Offset              int
}

// TransferRequestRepository puerto de persistencia de solicitudes de traslado.
type TransferRequestRepository interface {
	Create(ctx context.Context, tr *entity.TransferRequest) error
	GetByID(ctx context.Context, id string) (*entity.TransferRequest, error)
	// GetForUpdate bloquea la fila de la solicitud.
	GetForUpdate(ctx context.Context, id string) (*entity.TransferRequest, error)
	Update(ctx context.Context, tr *entity.TransferRequest) error
	List(ctx context.Context, filter TransferFilter) ([]*entity.TransferRequest, int, error)
}
