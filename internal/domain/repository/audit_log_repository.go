package repository

import (
	"context"

	"github.com/jhoicas/pos-ledger/internal/domain/entity"
)

// AuditLogRepository puerto de auditoría (solo inserción).
type AuditLogRepository interface {
	Create(ctx context.Context, entry *entity.AuditLog) error
}
