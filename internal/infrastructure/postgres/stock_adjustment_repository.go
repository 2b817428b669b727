package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.StockAdjustmentRepository = (*StockAdjustmentRepository)(nil)

// StockAdjustmentRepository ajustes de inventario (solo inserción).
type StockAdjustmentRepository struct {
	q Querier
}

// NewStockAdjustmentRepository construye el repositorio.
func NewStockAdjustmentRepository(q Querier) *StockAdjustmentRepository {
	return &StockAdjustmentRepository{q: q}
}

func (r *StockAdjustmentRepository) Create(ctx context.Context, adj *entity.StockAdjustment) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO stock_adjustments (
			id, inventory_id, reference_number, adjustment_type, quantity_adjusted,
			quantity_before, quantity_after, reason, notes, adjusted_by, adjusted_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		adj.ID, adj.InventoryID, adj.ReferenceNumber, string(adj.Type), adj.QuantityAdjusted,
		adj.QuantityBefore, adj.QuantityAfter, string(adj.Reason), adj.Notes, adj.AdjustedBy, adj.AdjustedAt,
	)
	return wrapWrite("create stock adjustment", err)
}

func (r *StockAdjustmentRepository) ExistsByReference(ctx context.Context, reference string) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM stock_adjustments WHERE reference_number = $1)`, reference,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check adjustment reference: %w", err)
	}
	return exists, nil
}

func (r *StockAdjustmentRepository) ListByInventory(ctx context.Context, inventoryID string, limit, offset int) ([]*entity.StockAdjustment, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, inventory_id, reference_number, adjustment_type, quantity_adjusted,
		       quantity_before, quantity_after, reason, notes, adjusted_by, adjusted_at
		FROM stock_adjustments
		WHERE inventory_id = $1
		ORDER BY adjusted_at DESC, reference_number DESC
		LIMIT $2 OFFSET $3`, inventoryID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list stock adjustments: %w", err)
	}
	defer rows.Close()

	var list []*entity.StockAdjustment
	for rows.Next() {
		var adj entity.StockAdjustment
		var typ, reason string
		if err := rows.Scan(
			&adj.ID, &adj.InventoryID, &adj.ReferenceNumber, &typ, &adj.QuantityAdjusted,
			&adj.QuantityBefore, &adj.QuantityAfter, &reason, &adj.Notes, &adj.AdjustedBy, &adj.AdjustedAt,
		); err != nil {
			return nil, fmt.Errorf("scan stock adjustment: %w", err)
		}
		adj.Type = entity.AdjustmentType(typ)
		adj.Reason = entity.AdjustmentReason(reason)
		list = append(list, &adj)
	}
	return list, rows.Err()
}
