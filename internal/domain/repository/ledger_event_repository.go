package repository

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// LedgerEventRepository outbox de eventos del ledger.
type LedgerEventRepository interface {
	Create(ctx context.Context, e *entity.LedgerEvent) error
	// ListPendingForUpdate bloquea (SKIP LOCKED) hasta limit eventos pendientes, en orden de creación.
	ListPendingForUpdate(ctx context.Context, limit int) ([]*entity.LedgerEvent, error)
	MarkProduced(ctx context.Context, ids []string) (int, error)
}

// InboxRepository registra eventos externos ya procesados (idempotencia del consumidor).
type InboxRepository interface {
	// Insert devuelve domain.ErrAlreadyProcessed si el evento ya fue registrado.
	Insert(ctx context.Context, eventID, eventType string) error
}
