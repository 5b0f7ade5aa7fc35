// Package events implementa el publisher asíncrono de notificaciones y sus sinks (log, Kafka).
package events

import (
	"context"
	"sync"

	appevents "github.com/jhoicas/pos-ledger/internal/application/events"
	"github.com/jhoicas/pos-ledger/pkg/logger"
)

// Sink destino final de los eventos.
type Sink interface {
	Send(ctx context.Context, ev appevents.Event) error
	Close() error
}

// Dispatcher encola eventos en un buffer acotado y los entrega en segundo plano.
// Si el buffer está lleno el evento se descarta con un warning.
type Dispatcher struct {
	sink   Sink
	log    *logger.Logger
	queue  chan appevents.Event
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

var _ appevents.Publisher = (*Dispatcher)(nil)

// NewDispatcher arranca un worker que consume la cola hacia sink.
func NewDispatcher(sink Sink, buffer int, log *logger.Logger) *Dispatcher {
	if buffer <= 0 {
		buffer = 256
	}
	if log == nil {
		log = logger.Nop()
	}
	d := &Dispatcher{
		sink:  sink,
		log:   log.Component("events"),
		queue: make(chan appevents.Event, buffer),
	}
	d.wg.Add(1)
	go d.run()
	return d
}

// Publish nunca bloquea.
func (d *Dispatcher) Publish(_ context.Context, ev appevents.Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.log.Warn().Str("event_id", ev.ID).Str("type", ev.Type).Msg("dispatcher cerrado, evento descartado")
		return
	}
	select {
	case d.queue <- ev:
	default:
		d.log.Warn().Str("event_id", ev.ID).Str("type", ev.Type).Msg("buffer de eventos lleno, evento descartado")
	}
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for ev := range d.queue {
		d.deliver(ev)
	}
}

// deliver un panic del sink se registra y se descarta ese evento; el worker sigue vivo.
func (d *Dispatcher) deliver(ev appevents.Event) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Warn().Interface("panic", r).Str("event_id", ev.ID).Str("type", ev.Type).Msg("panic en el sink, evento descartado")
		}
	}()
	if err := d.sink.Send(context.Background(), ev); err != nil {
		d.log.Warn().Err(err).Str("event_id", ev.ID).Str("type", ev.Type).Msg("no se pudo entregar el evento")
	}
}

// Close deja de aceptar eventos, drena la cola y cierra el sink.
// Si ctx vence antes de drenar, los pendientes se pierden.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		d.log.Warn().Int("pending", len(d.queue)).Msg("cierre del dispatcher interrumpido")
		return ctx.Err()
	}
	return d.sink.Close()
}
