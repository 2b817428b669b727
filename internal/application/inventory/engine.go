package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	domaininv "github.com/jhoicas/stock-ledger/internal/domain/inventory"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

var tracer = otel.Tracer("github.com/jhoicas/stock-ledger/internal/application/inventory")

// Resultados reportados al Observer.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected" // error de negocio (validación, estado, no encontrado)
	OutcomeError    = "error"    // error de sistema, rollback completo
)

// Observer recibe la duración y el resultado de cada operación (métricas).
type Observer interface {
	ObserveOperation(op, outcome string, elapsed time.Duration)
}

// Option configura los casos de uso del ledger.
type Option func(*engine)

// WithClock reemplaza time.Now (tests).
func WithClock(now func() time.Time) Option {
	return func(e *engine) { e.now = now }
}

// WithObserver registra un observador de operaciones.
func WithObserver(o Observer) Option {
	return func(e *engine) { e.observer = o }
}

// engine base común: transacción, trazas, logging de errores de sistema y métricas.
type engine struct {
	txRunner TxRunner
	log      *logger.Logger
	now      func() time.Time
	observer Observer
}

func newEngine(txRunner TxRunner, log *logger.Logger, component string, opts []Option) engine {
	if log == nil {
		log = logger.Nop()
	}
	e := engine{txRunner: txRunner, log: log.Component(component), now: time.Now}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

// run ejecuta fn en una transacción. Cualquier error revierte todo; los errores de sistema
// se registran con el contexto de la operación antes de devolverse al caller.
func (e *engine) run(ctx context.Context, op string, fn func(ctx context.Context, repos TxRepos) error, attrs ...attribute.KeyValue) error {
	ctx, span := tracer.Start(ctx, op, trace.WithAttributes(attrs...))
	defer span.End()

	start := time.Now()
	err := e.txRunner.Run(ctx, fn)

	outcome := OutcomeOK
	switch {
	case err == nil:
		span.SetStatus(codes.Ok, "")
	case IsBusinessError(err):
		outcome = OutcomeRejected
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	default:
		outcome = OutcomeError
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.log.Error().Err(err).Str("op", op).Msg("operación de inventario revertida")
	}
	if e.observer != nil {
		e.observer.ObserveOperation(op, outcome, time.Since(start))
	}
	return err
}

var businessErrors = []error{
	domain.ErrNotFound,
	domain.ErrInvalidInput,
	domain.ErrDuplicate,
	domain.ErrConflict,
	domain.ErrInvalidState,
	domain.ErrDuplicateRequest,
	domain.ErrAlreadyProcessed,
	domain.ErrSameWarehouse,
	domain.ErrInsufficientAvailability,
	domain.ErrInsufficientInventory,
	domain.ErrNegativeInventory,
	domain.ErrNegativeQuantity,
}

// IsBusinessError indica si err es un error de dominio recuperable por el caller.
func IsBusinessError(err error) bool {
	for _, target := range businessErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// recordEvent agrega un evento al outbox dentro de la transacción en curso.
func recordEvent(ctx context.Context, repos TxRepos, eventType, aggregateType, aggregateID string, payload any, now time.Time) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("serializar evento %s: %w", eventType, err)
	}
	return repos.Events.Create(ctx, &entity.LedgerEvent{
		ID:            uuid.New().String(),
		Type:          eventType,
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		Payload:       b,
		Status:        entity.EventPending,
		CreatedAt:     now,
	})
}

func requireActor(actor string) error {
	if actor == "" {
		return fmt.Errorf("%w: actor requerido", domain.ErrInvalidInput)
	}
	return nil
}

// nextSequenceReference toma el siguiente número del contador del día: <PREFIJO>-YYYYMMDD-NNNN.
// El contador se bloquea hasta el commit, así que transacciones concurrentes no repiten número.
func nextSequenceReference(ctx context.Context, repos TxRepos, prefix string, now time.Time) (string, error) {
	seq, err := repos.Sequences.Next(ctx, domaininv.DayPrefix(prefix, now))
	if err != nil {
		return "", err
	}
	return domaininv.SequenceReference(prefix, now, seq), nil
}

func pageBounds(page dto.PageRequest) (limit, offset int) {
	page.DefaultPage()
	if page.Limit > 100 {
		page.Limit = 100
	}
	return page.Limit, page.Offset
}
