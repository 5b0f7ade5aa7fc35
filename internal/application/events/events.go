// Package events define el mensaje de notificación saliente y el puerto para publicarlo.
// La entrega es best-effort y a lo sumo una vez: publicar nunca bloquea ni falla hacia el caller.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Tipos de evento.
const (
	TypeSaleCompleted     = "sale.completed"
	TypeSaleVoided        = "sale.voided"
	TypeSaleRefunded      = "sale.refunded"
	TypeTransferRequested = "transfer.requested"
	TypeTransferApproved  = "transfer.approved"
	TypeTransferRejected  = "transfer.rejected"
	TypeTransferReceived  = "transfer.received"
	TypeLowStock          = "inventory.low_stock"
)

// Event notificación emitida después de un commit exitoso.
type Event struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	OccurredAt time.Time      `json:"occurred_at"`
	ActorID    string         `json:"actor_id,omitempty"`
	Payload    map[string]any `json:"payload"`
}

// New construye un evento con ID y fecha.
func New(eventType, actorID string, payload map[string]any) Event {
	return Event{
		ID:         uuid.New().String(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		ActorID:    actorID,
		Payload:    payload,
	}
}

// Publisher entrega eventos al sink externo. Publish no bloquea y no devuelve error:
// las fallas se registran en log y se descartan.
type Publisher interface {
	Publish(ctx context.Context, ev Event)
}

// Nop descarta todos los eventos.
type Nop struct{}

// Publish no hace nada.
func (Nop) Publish(context.Context, Event) {}
