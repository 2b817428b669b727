package kafka_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	appinv "github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/kafka"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// fakeReader entrega los mensajes en orden y luego io.EOF, como un reader cerrado.
type fakeReader struct {
	mu        sync.Mutex
	msgs      []kafkago.Message
	committed []int64
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafkago.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.msgs) == 0 {
		return kafkago.Message{}, io.EOF
	}
	m := r.msgs[0]
	r.msgs = r.msgs[1:]
	return m, nil
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafkago.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

type stubHandler struct {
	errs  []error
	calls int
}

func (h *stubHandler) Handle(_ context.Context, _ entity.FulfillmentEvent) error {
	h.calls++
	if len(h.errs) == 0 {
		return nil
	}
	err := h.errs[0]
	h.errs = h.errs[1:]
	return err
}

func message(t *testing.T, offset int64, ev entity.FulfillmentEvent) kafkago.Message {
	t.Helper()
	b, err := json.Marshal(ev)
	require.NoError(t, err)
	return kafkago.Message{Offset: offset, Value: b}
}

var reservedEvent = entity.FulfillmentEvent{
	EventID: "ev-1", Type: entity.FulfillmentReserved,
	ProductID: "p-1", WarehouseID: "w-1", Quantity: 5, OrderID: "so-1",
}

func runConsumer(t *testing.T, reader *fakeReader, handler kafka.FulfillmentHandler) {
	t.Helper()
	c := kafka.NewFulfillmentConsumer(reader, handler, logger.Nop(), kafka.WithRetry(3, 0))
	require.NoError(t, c.Run(context.Background()))
}

func TestFulfillmentConsumer_ProcesaYConfirma(t *testing.T) {
	reader := &fakeReader{msgs: []kafkago.Message{message(t, 1, reservedEvent), message(t, 2, reservedEvent)}}
	handler := &stubHandler{}

	runConsumer(t, reader, handler)

	assert.Equal(t, 2, handler.calls)
	assert.Equal(t, []int64{1, 2}, reader.committed)
}

func TestFulfillmentConsumer_JSONInvalidoSeSalta(t *testing.T) {
	reader := &fakeReader{msgs: []kafkago.Message{{Offset: 7, Value: []byte("{no-json")}}}
	handler := &stubHandler{}

	runConsumer(t, reader, handler)

	assert.Zero(t, handler.calls)
	assert.Equal(t, []int64{7}, reader.committed)
}

func TestFulfillmentConsumer_ErrorDeNegocioNoSeReintenta(t *testing.T) {
	reader := &fakeReader{msgs: []kafkago.Message{message(t, 1, reservedEvent)}}
	handler := &stubHandler{errs: []error{&domain.AvailabilityError{Requested: 5, Available: 1}}}

	runConsumer(t, reader, handler)

	assert.Equal(t, 1, handler.calls)
	assert.Equal(t, []int64{1}, reader.committed)
}

func TestFulfillmentConsumer_ErrorDeSistemaSeReintenta(t *testing.T) {
	down := errors.New("db caída")

	t.Run("se recupera", func(t *testing.T) {
		reader := &fakeReader{msgs: []kafkago.Message{message(t, 1, reservedEvent)}}
		handler := &stubHandler{errs: []error{down}}
		runConsumer(t, reader, handler)
		assert.Equal(t, 2, handler.calls)
	})

	t.Run("agota los intentos", func(t *testing.T) {
		reader := &fakeReader{msgs: []kafkago.Message{message(t, 1, reservedEvent)}}
		handler := &stubHandler{errs: []error{down, down, down, down}}
		runConsumer(t, reader, handler)
		assert.Equal(t, 3, handler.calls)
		assert.Equal(t, []int64{1}, reader.committed)
	})
}

func TestFulfillmentConsumer_DuplicadoInternoSeReintenta(t *testing.T) {
	reader := &fakeReader{msgs: []kafkago.Message{message(t, 1, reservedEvent)}}
	clash := fmt.Errorf("create stock movement: %w", domain.ErrDuplicate)
	handler := &stubHandler{errs: []error{clash}}

	runConsumer(t, reader, handler)

	assert.Equal(t, 2, handler.calls, "un choque de unicidad no equivale a evento procesado")
	assert.Equal(t, []int64{1}, reader.committed)
}

func TestFulfillmentConsumer_EventoYaProcesadoNoSeReintenta(t *testing.T) {
	reader := &fakeReader{msgs: []kafkago.Message{message(t, 1, reservedEvent)}}
	handler := &stubHandler{errs: []error{fmt.Errorf("inbox ev-1: %w", domain.ErrAlreadyProcessed)}}

	runConsumer(t, reader, handler)

	assert.Equal(t, 1, handler.calls)
	assert.Equal(t, []int64{1}, reader.committed)
}

func TestFulfillmentConsumer_IdempotenteContraElLedger(t *testing.T) {
	store := memory.NewStore()
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	inv, err := entity.NewInventory("inv-1", "p-1", "w-1", 20, 0, now)
	require.NoError(t, err)
	store.Seed(*inv)

	log := logger.Nop()
	ledger := appinv.NewLedgerUseCase(store, log)
	movements := appinv.NewMovementUseCase(store, log, decimal.NewFromInt(100))
	uc := appinv.NewFulfillmentUseCase(store, ledger, movements, log)

	reader := &fakeReader{msgs: []kafkago.Message{message(t, 1, reservedEvent), message(t, 2, reservedEvent)}}
	runConsumer(t, reader, uc)

	got, ok := store.Inventory("inv-1")
	require.True(t, ok)
	assert.Equal(t, 5, got.QuantityReserved, "el evento repetido no debe reservar dos veces")
	assert.Equal(t, 15, got.QuantityAvailable)
	assert.Equal(t, []int64{1, 2}, reader.committed)
}

type captureWriter struct {
	msgs []kafkago.Message
	err  error
}

func (w *captureWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *captureWriter) Close() error { return nil }

func TestPublisher_PropagaTrazaEnHeaders(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled,
	}))

	w := &captureWriter{}
	p := kafka.NewPublisher(w)
	require.NoError(t, p.Publish(ctx, "inv-1", []byte(`{"a":1}`)))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, "inv-1", string(msg.Key))
	assert.JSONEq(t, `{"a":1}`, string(msg.Value))

	headers := map[string]string{}
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01", headers["traceparent"])
}

func TestPublisher_EnvuelveError(t *testing.T) {
	broker := errors.New("broker no disponible")
	p := kafka.NewPublisher(&captureWriter{err: broker})
	err := p.Publish(context.Background(), "k", nil)
	assert.ErrorIs(t, err, broker)
}
