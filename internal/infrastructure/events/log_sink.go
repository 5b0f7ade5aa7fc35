package events

import (
	"context"

	appevents "github.com/jhoicas/pos-ledger/internal/application/events"
	"github.com/jhoicas/pos-ledger/pkg/logger"
)

// LogSink escribe cada evento como una línea de log estructurado.
type LogSink struct {
	log *logger.Logger
}

// NewLogSink crea el sink de log.
func NewLogSink(log *logger.Logger) *LogSink {
	if log == nil {
		log = logger.Nop()
	}
	return &LogSink{log: log.Component("events.log")}
}

func (s *LogSink) Send(_ context.Context, ev appevents.Event) error {
	s.log.Info().
		Str("event_id", ev.ID).
		Str("type", ev.Type).
		Str("actor_id", ev.ActorID).
		Time("occurred_at", ev.OccurredAt).
		Interface("payload", ev.Payload).
		Msg("evento")
	return nil
}

func (s *LogSink) Close() error { return nil }
