package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// OutboxRelay publica en el broker los eventos pendientes del outbox y los marca como producidos.
type OutboxRelay struct {
	engine
	publisher Publisher
	interval  time.Duration
	batchSize int
}

// NewOutboxRelay construye el relay. interval y batchSize en cero usan 2s y 100.
func NewOutboxRelay(txRunner TxRunner, publisher Publisher, interval time.Duration, batchSize int, log *logger.Logger, opts ...Option) *OutboxRelay {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &OutboxRelay{
		engine:    newEngine(txRunner, log, "outbox", opts),
		publisher: publisher,
		interval:  interval,
		batchSize: batchSize,
	}
}

// EventEnvelope mensaje publicado en el topic del ledger.
type EventEnvelope struct {
	EventID       string          `json:"event_id"`
	Type          string          `json:"type"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	Payload       json.RawMessage `json:"payload"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Start corre el ciclo de publicación hasta que ctx se cancele.
func (r *OutboxRelay) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	r.log.Info().Dur("interval", r.interval).Int("batch_size", r.batchSize).Msg("outbox relay iniciado")
	for {
		select {
		case <-ctx.Done():
			r.log.Info().Msg("outbox relay detenido")
			return
		case <-ticker.C:
			flushCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			n, err := r.Flush(flushCtx)
			cancel()
			if err != nil && !errors.Is(err, context.Canceled) {
				r.log.Error().Err(err).Msg("error publicando eventos del outbox")
				continue
			}
			if n > 0 {
				r.log.Debug().Int("produced", n).Msg("eventos publicados")
			}
		}
	}
}

// Flush publica un lote en orden de creación. Si una publicación falla, el lote se corta ahí
// y solo se marcan los eventos ya publicados; el resto se reintenta en el siguiente ciclo.
func (r *OutboxRelay) Flush(ctx context.Context) (int, error) {
	var produced int
	var publishErr error
	err := r.run(ctx, "outbox.flush", func(ctx context.Context, repos TxRepos) error {
		events, err := repos.Events.ListPendingForUpdate(ctx, r.batchSize)
		if err != nil {
			return err
		}
		ids := make([]string, 0, len(events))
		for _, e := range events {
			b, err := json.Marshal(newEnvelope(e))
			if err != nil {
				return fmt.Errorf("serializar evento %s: %w", e.ID, err)
			}
			if err := r.publisher.Publish(ctx, e.AggregateID, b); err != nil {
				publishErr = fmt.Errorf("publicar evento %s: %w", e.ID, err)
				break
			}
			ids = append(ids, e.ID)
		}
		if len(ids) == 0 {
			return nil
		}
		rows, err := repos.Events.MarkProduced(ctx, ids)
		if err != nil {
			return err
		}
		if rows != len(ids) {
			return fmt.Errorf("outbox: se marcaron %d de %d eventos", rows, len(ids))
		}
		produced = rows
		return nil
	})
	if err != nil {
		return 0, err
	}
	return produced, publishErr
}

func newEnvelope(e *entity.LedgerEvent) EventEnvelope {
	return EventEnvelope{
		EventID:       e.ID,
		Type:          e.Type,
		AggregateType: e.AggregateType,
		AggregateID:   e.AggregateID,
		Payload:       e.Payload,
		CreatedAt:     e.CreatedAt,
	}
}
