package repository

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// InventoryRepository define el puerto de persistencia para registros de inventario (producto+bodega).
// Las lecturas ForUpdate bloquean la fila hasta el fin de la transacción.
type InventoryRepository interface {
	Create(ctx context.Context, inv *entity.Inventory) error
	GetByID(ctx context.Context, id string) (*entity.Inventory, error)
	GetByProductAndWarehouse(ctx context.Context, productID, warehouseID string) (*entity.Inventory, error)
	GetByIDForUpdate(ctx context.Context, id string) (*entity.Inventory, error)
	GetByProductAndWarehouseForUpdate(ctx context.Context, productID, warehouseID string) (*entity.Inventory, error)
	// UpdateQuantities persiste on_hand, reserved y available en una sola escritura.
	UpdateQuantities(ctx context.Context, inv *entity.Inventory) error
	Delete(ctx context.Context, id string) error
}
