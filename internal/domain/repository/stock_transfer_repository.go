package repository

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// StockTransferRepository define el puerto de persistencia para traslados entre bodegas.
type StockTransferRepository interface {
	// Create devuelve domain.ErrDuplicateRequest si ya hay un traslado abierto para la misma tupla.
	Create(ctx context.Context, t *entity.StockTransfer) error
	GetByID(ctx context.Context, id string) (*entity.StockTransfer, error)
	GetByIDForUpdate(ctx context.Context, id string) (*entity.StockTransfer, error)
	Update(ctx context.Context, t *entity.StockTransfer) error
	// FindOpen busca un traslado pending o approved para la misma tupla (origen, destino, producto).
	FindOpen(ctx context.Context, fromWarehouseID, toWarehouseID, productID string) (*entity.StockTransfer, error)

	AppendLog(ctx context.Context, l *entity.StockTransferLog) error
	ListLogs(ctx context.Context, transferID string) ([]*entity.StockTransferLog, error)
}
