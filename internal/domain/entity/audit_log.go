package entity

import "time"

// AuditLog registro de auditoría de acciones sensibles (anulaciones, devoluciones, decisiones de traslado).
type AuditLog struct {
	ID         string
	ActorID    string
	Action     string
	EntityType string
	EntityID   string
	Details    string
	CreatedAt  time.Time
}
