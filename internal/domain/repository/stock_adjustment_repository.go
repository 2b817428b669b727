package repository

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// StockAdjustmentRepository puerto append-only para ajustes.
type StockAdjustmentRepository interface {
	Create(ctx context.Context, adj *entity.StockAdjustment) error
	ExistsByReference(ctx context.Context, reference string) (bool, error)
	ListByInventory(ctx context.Context, inventoryID string, limit, offset int) ([]*entity.StockAdjustment, error)
}
