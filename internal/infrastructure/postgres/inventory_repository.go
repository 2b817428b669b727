package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.InventoryRepository = (*InventoryRepository)(nil)

const inventoryColumns = `id, product_id, warehouse_id, quantity_on_hand, quantity_reserved, quantity_available, created_at, updated_at`

// InventoryRepository implementación PostgreSQL del puerto de inventario.
type InventoryRepository struct {
	q Querier
}

// NewInventoryRepository construye el repositorio.
func NewInventoryRepository(q Querier) *InventoryRepository {
	return &InventoryRepository{q: q}
}

func (r *InventoryRepository) Create(ctx context.Context, inv *entity.Inventory) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO inventory (`+inventoryColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		inv.ID, inv.ProductID, inv.WarehouseID,
		inv.QuantityOnHand, inv.QuantityReserved, inv.QuantityAvailable,
		inv.CreatedAt, inv.UpdatedAt,
	)
	return wrapWrite("create inventory", err)
}

func (r *InventoryRepository) GetByID(ctx context.Context, id string) (*entity.Inventory, error) {
	return r.getOne(ctx, `SELECT `+inventoryColumns+` FROM inventory WHERE id = $1`, id)
}

func (r *InventoryRepository) GetByIDForUpdate(ctx context.Context, id string) (*entity.Inventory, error) {
	return r.getOne(ctx, `SELECT `+inventoryColumns+` FROM inventory WHERE id = $1 FOR UPDATE`, id)
}

func (r *InventoryRepository) GetByProductAndWarehouse(ctx context.Context, productID, warehouseID string) (*entity.Inventory, error) {
	return r.getOne(ctx, `
		SELECT `+inventoryColumns+` FROM inventory
		WHERE product_id = $1 AND warehouse_id = $2`, productID, warehouseID)
}

func (r *InventoryRepository) GetByProductAndWarehouseForUpdate(ctx context.Context, productID, warehouseID string) (*entity.Inventory, error) {
	return r.getOne(ctx, `
		SELECT `+inventoryColumns+` FROM inventory
		WHERE product_id = $1 AND warehouse_id = $2
		FOR UPDATE`, productID, warehouseID)
}

func (r *InventoryRepository) UpdateQuantities(ctx context.Context, inv *entity.Inventory) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE inventory
		SET quantity_on_hand = $2, quantity_reserved = $3, quantity_available = $4, updated_at = $5
		WHERE id = $1`,
		inv.ID, inv.QuantityOnHand, inv.QuantityReserved, inv.QuantityAvailable, inv.UpdatedAt,
	)
	if err != nil {
		return wrapWrite("update inventory", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update inventory %s: %w", inv.ID, domain.ErrNotFound)
	}
	return nil
}

func (r *InventoryRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM inventory WHERE id = $1`, id)
	if err != nil {
		return wrapWrite("delete inventory", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete inventory %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (r *InventoryRepository) getOne(ctx context.Context, query string, args ...any) (*entity.Inventory, error) {
	inv, err := scanInventory(r.q.QueryRow(ctx, query, args...))
	if noRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get inventory: %w", err)
	}
	return inv, nil
}

func scanInventory(row pgx.Row) (*entity.Inventory, error) {
	var inv entity.Inventory
	err := row.Scan(
		&inv.ID, &inv.ProductID, &inv.WarehouseID,
		&inv.QuantityOnHand, &inv.QuantityReserved, &inv.QuantityAvailable,
		&inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}
