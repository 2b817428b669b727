package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.StockMovementRepository = (*StockMovementRepository)(nil)

const movementColumns = `id, reference_number, inventory_id, product_id, warehouse_id, movement_type,
	quantity_moved, quantity_before, quantity_after, unit_cost, total_value, status,
	COALESCE(source_type, ''), COALESCE(source_id, ''), notes, created_by, COALESCE(approved_by, ''),
	approved_at, applied_at, created_at, updated_at`

// StockMovementRepository implementación PostgreSQL de movimientos.
type StockMovementRepository struct {
	q Querier
}

// NewStockMovementRepository construye el repositorio.
func NewStockMovementRepository(q Querier) *StockMovementRepository {
	return &StockMovementRepository{q: q}
}

func (r *StockMovementRepository) Create(ctx context.Context, m *entity.StockMovement) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO stock_movements (
			id, reference_number, inventory_id, product_id, warehouse_id, movement_type,
			quantity_moved, quantity_before, quantity_after, unit_cost, total_value, status,
			source_type, source_id, notes, created_by, approved_by,
			approved_at, applied_at, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
			NULLIF($13, ''), NULLIF($14, ''), $15, $16, NULLIF($17, ''),
			$18, $19, $20, $21
		)`,
		m.ID, m.ReferenceNumber, m.InventoryID, m.ProductID, m.WarehouseID, string(m.Type),
		m.QuantityMoved, m.QuantityBefore, m.QuantityAfter, m.UnitCost, m.TotalValue, string(m.Status),
		m.SourceType, m.SourceID, m.Notes, m.CreatedBy, m.ApprovedBy,
		m.ApprovedAt, m.AppliedAt, m.CreatedAt, m.UpdatedAt,
	)
	return wrapWrite("create stock movement", err)
}

func (r *StockMovementRepository) GetByID(ctx context.Context, id string) (*entity.StockMovement, error) {
	return r.getOne(ctx, `SELECT `+movementColumns+` FROM stock_movements WHERE id = $1`, id)
}

func (r *StockMovementRepository) GetByIDForUpdate(ctx context.Context, id string) (*entity.StockMovement, error) {
	return r.getOne(ctx, `SELECT `+movementColumns+` FROM stock_movements WHERE id = $1 FOR UPDATE`, id)
}

func (r *StockMovementRepository) UpdateStatus(ctx context.Context, m *entity.StockMovement) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE stock_movements
		SET status = $2, quantity_before = $3, quantity_after = $4, notes = $5,
		    approved_by = NULLIF($6, ''), approved_at = $7, applied_at = $8, updated_at = $9
		WHERE id = $1`,
		m.ID, string(m.Status), m.QuantityBefore, m.QuantityAfter, m.Notes,
		m.ApprovedBy, m.ApprovedAt, m.AppliedAt, m.UpdatedAt,
	)
	if err != nil {
		return wrapWrite("update stock movement", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update stock movement %s: %w", m.ID, domain.ErrNotFound)
	}
	return nil
}

func (r *StockMovementRepository) ListByInventory(ctx context.Context, inventoryID string, limit, offset int) ([]*entity.StockMovement, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+movementColumns+`
		FROM stock_movements
		WHERE inventory_id = $1
		ORDER BY created_at DESC, reference_number DESC
		LIMIT $2 OFFSET $3`, inventoryID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list stock movements: %w", err)
	}
	defer rows.Close()

	var list []*entity.StockMovement
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stock movement: %w", err)
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

func (r *StockMovementRepository) getOne(ctx context.Context, query string, args ...any) (*entity.StockMovement, error) {
	m, err := scanMovement(r.q.QueryRow(ctx, query, args...))
	if noRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get stock movement: %w", err)
	}
	return m, nil
}

func scanMovement(row pgx.Row) (*entity.StockMovement, error) {
	var m entity.StockMovement
	var typ, status string
	err := row.Scan(
		&m.ID, &m.ReferenceNumber, &m.InventoryID, &m.ProductID, &m.WarehouseID, &typ,
		&m.QuantityMoved, &m.QuantityBefore, &m.QuantityAfter, &m.UnitCost, &m.TotalValue, &status,
		&m.SourceType, &m.SourceID, &m.Notes, &m.CreatedBy, &m.ApprovedBy,
		&m.ApprovedAt, &m.AppliedAt, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	m.Type = entity.MovementType(typ)
	m.Status = entity.MovementStatus(status)
	return &m, nil
}
