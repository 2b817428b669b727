package inventory

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// TxRepos repositorios atados a una misma transacción.
type TxRepos struct {
	Inventory   repository.InventoryRepository
	Adjustments repository.StockAdjustmentRepository
	Movements   repository.StockMovementRepository
	Transfers   repository.StockTransferRepository
	Events      repository.LedgerEventRepository
	Inbox       repository.InboxRepository
	Sequences   repository.ReferenceSequenceRepository
}

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Si fn retorna error se hace Rollback completo; no hay commits parciales.
type TxRunner interface {
	Run(ctx context.Context, fn func(ctx context.Context, repos TxRepos) error) error
}

// Publisher publica eventos del ledger hacia el broker (implementado en infrastructure/kafka).
type Publisher interface {
	Publish(ctx context.Context, key string, payload []byte) error
}
