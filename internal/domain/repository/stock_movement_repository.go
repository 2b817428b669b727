package repository

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// StockMovementRepository define el puerto de persistencia para movimientos de inventario.
type StockMovementRepository interface {
	Create(ctx context.Context, m *entity.StockMovement) error
	GetByID(ctx context.Context, id string) (*entity.StockMovement, error)
	GetByIDForUpdate(ctx context.Context, id string) (*entity.StockMovement, error)
	// UpdateStatus persiste estado, aprobador, fechas y notas.
	UpdateStatus(ctx context.Context, m *entity.StockMovement) error
	ListByInventory(ctx context.Context, inventoryID string, limit, offset int) ([]*entity.StockMovement, error)
}
