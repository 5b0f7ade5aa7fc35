package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appevents "github.com/jhoicas/pos-ledger/internal/application/events"
)

type memorySink struct {
	mu     sync.Mutex
	events []appevents.Event
	fail   bool
	block  chan struct{}
	panics int // los primeros n Send hacen panic
	closed bool
}

func (s *memorySink) Send(_ context.Context, ev appevents.Event) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.panics > 0 {
		s.panics--
		panic("sink roto")
	}
	if s.fail {
		return errors.New("sink caído")
	}
	s.events = append(s.events, ev)
	return nil
}

func (s *memorySink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *memorySink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func TestDispatcher_EntregaYDrenaAlCerrar(t *testing.T) {
	sink := &memorySink{}
	d := NewDispatcher(sink, 16, nil)

	for i := 0; i < 10; i++ {
		d.Publish(context.Background(), appevents.New(appevents.TypeLowStock, "u1", map[string]any{"i": i}))
	}
	require.NoError(t, d.Close(context.Background()))

	assert.Equal(t, 10, sink.count())
	assert.True(t, sink.closed)

	// después de cerrar se descarta sin panic
	d.Publish(context.Background(), appevents.New(appevents.TypeLowStock, "u1", nil))
	assert.Equal(t, 10, sink.count())
	require.NoError(t, d.Close(context.Background()))
}

func TestDispatcher_BufferLlenoDescarta(t *testing.T) {
	sink := &memorySink{block: make(chan struct{})}
	d := NewDispatcher(sink, 2, nil)

	start := time.Now()
	for i := 0; i < 20; i++ {
		d.Publish(context.Background(), appevents.New(appevents.TypeSaleCompleted, "u1", nil))
	}
	assert.Less(t, time.Since(start), time.Second, "Publish no debe bloquear")

	close(sink.block)
	require.NoError(t, d.Close(context.Background()))
	// a lo sumo el buffer más el evento que el worker ya tenía en mano
	assert.LessOrEqual(t, sink.count(), 3)
	assert.GreaterOrEqual(t, sink.count(), 1)
}

func TestDispatcher_FallaDelSinkNoPropaga(t *testing.T) {
	sink := &memorySink{fail: true}
	d := NewDispatcher(sink, 4, nil)
	d.Publish(context.Background(), appevents.New(appevents.TypeSaleVoided, "u1", nil))
	require.NoError(t, d.Close(context.Background()))
	assert.Equal(t, 0, sink.count())
}

func TestDispatcher_PanicDelSinkNoMataElWorker(t *testing.T) {
	sink := &memorySink{panics: 1}
	d := NewDispatcher(sink, 8, nil)

	for i := 0; i < 3; i++ {
		d.Publish(context.Background(), appevents.New(appevents.TypeLowStock, "u1", map[string]any{"i": i}))
	}
	require.NoError(t, d.Close(context.Background()))

	// el primero se pierde, los siguientes se entregan
	assert.Equal(t, 2, sink.count())
	assert.True(t, sink.closed)
}

type fakeWriter struct {
	msgs []kafka.Message
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestKafkaSink_Mensaje(t *testing.T) {
	w := &fakeWriter{}
	sink := &KafkaSink{writer: w}
	ev := appevents.New(appevents.TypeTransferReceived, "u9", map[string]any{"transfer_id": "t1"})

	require.NoError(t, sink.Send(context.Background(), ev))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, ev.ID, string(w.msgs[0].Key))
	assert.Equal(t, "event_type", w.msgs[0].Headers[0].Key)

	var decoded appevents.Event
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &decoded))
	assert.Equal(t, appevents.TypeTransferReceived, decoded.Type)
	assert.Equal(t, "t1", decoded.Payload["transfer_id"])
}

func TestNewKafkaSink_Validacion(t *testing.T) {
	_, err := NewKafkaSink(nil, "topic")
	assert.Error(t, err)
	_, err = NewKafkaSink([]string{"localhost:9092"}, "")
	assert.Error(t, err)
	s, err := NewKafkaSink([]string{"localhost:9092"}, "pos.inventory.events")
	require.NoError(t, err)
	require.NoError(t, s.Close())
}
