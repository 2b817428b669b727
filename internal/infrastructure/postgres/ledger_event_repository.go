package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var (
	_ repository.LedgerEventRepository = (*LedgerEventRepository)(nil)
	_ repository.InboxRepository       = (*InboxRepository)(nil)
)

// LedgerEventRepository outbox transaccional.
type LedgerEventRepository struct {
	q Querier
}

// NewLedgerEventRepository construye el repositorio.
func NewLedgerEventRepository(q Querier) *LedgerEventRepository {
	return &LedgerEventRepository{q: q}
}

func (r *LedgerEventRepository) Create(ctx context.Context, e *entity.LedgerEvent) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO ledger_events (id, event_type, aggregate_type, aggregate_id, payload, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ID, e.Type, e.AggregateType, e.AggregateID, []byte(e.Payload), string(e.Status), e.CreatedAt,
	)
	return wrapWrite("create ledger event", err)
}

// ListPendingForUpdate SKIP LOCKED permite varias réplicas del relay sin publicar dos veces.
func (r *LedgerEventRepository) ListPendingForUpdate(ctx context.Context, limit int) ([]*entity.LedgerEvent, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, event_type, aggregate_type, aggregate_id, payload, status, created_at, produced_at
		FROM ledger_events
		WHERE status = 'pending'
		ORDER BY created_at, seq
		LIMIT $1
		FOR UPDATE SKIP LOCKED`, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending ledger events: %w", err)
	}
	defer rows.Close()

	var list []*entity.LedgerEvent
	for rows.Next() {
		var e entity.LedgerEvent
		var status string
		var payload []byte
		if err := rows.Scan(
			&e.ID, &e.Type, &e.AggregateType, &e.AggregateID, &payload, &status, &e.CreatedAt, &e.ProducedAt,
		); err != nil {
			return nil, fmt.Errorf("scan ledger event: %w", err)
		}
		e.Payload = payload
		e.Status = entity.EventStatus(status)
		list = append(list, &e)
	}
	return list, rows.Err()
}

func (r *LedgerEventRepository) MarkProduced(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := r.q.Exec(ctx, `
		UPDATE ledger_events
		SET status = 'produced', produced_at = now()
		WHERE id = ANY($1) AND status = 'pending'`, ids)
	if err != nil {
		return 0, fmt.Errorf("mark ledger events produced: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// InboxRepository eventos externos ya procesados.
type InboxRepository struct {
	q Querier
}

// NewInboxRepository construye el repositorio.
func NewInboxRepository(q Querier) *InboxRepository {
	return &InboxRepository{q: q}
}

func (r *InboxRepository) Insert(ctx context.Context, eventID, eventType string) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO ledger_inbox (event_id, event_type, processed_at)
		VALUES ($1, $2, now())`, eventID, eventType)
	if isUniqueViolation(err) {
		return fmt.Errorf("inbox %s: %w", eventID, domain.ErrAlreadyProcessed)
	}
	if err != nil {
		return fmt.Errorf("insert processed event: %w", err)
	}
	return nil
}
