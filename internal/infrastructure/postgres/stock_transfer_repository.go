package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.StockTransferRepository = (*StockTransferRepository)(nil)

// openTransferIndex índice único parcial: un solo traslado pending/approved por (origen, destino, producto).
const openTransferIndex = "uq_stock_transfers_open"

const transferColumns = `id, reference_number, product_id, from_warehouse_id, to_warehouse_id,
	quantity_transferred, status, notes, initiated_by, COALESCE(approved_by, ''), COALESCE(shipped_by, ''),
	COALESCE(completed_by, ''), COALESCE(cancelled_by, ''), COALESCE(cancellation_reason, ''),
	initiated_at, approved_at, shipped_at, completed_at, cancelled_at, updated_at`

// StockTransferRepository traslados y su bitácora de transiciones.
type StockTransferRepository struct {
	q Querier
}

// NewStockTransferRepository construye el repositorio.
func NewStockTransferRepository(q Querier) *StockTransferRepository {
	return &StockTransferRepository{q: q}
}

func (r *StockTransferRepository) Create(ctx context.Context, t *entity.StockTransfer) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO stock_transfers (
			id, reference_number, product_id, from_warehouse_id, to_warehouse_id,
			quantity_transferred, status, notes, initiated_by, initiated_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		t.ID, t.ReferenceNumber, t.ProductID, t.FromWarehouseID, t.ToWarehouseID,
		t.QuantityTransferred, string(t.Status), t.Notes, t.InitiatedBy, t.InitiatedAt, t.UpdatedAt,
	)
	if isConstraintViolation(err, openTransferIndex) {
		return fmt.Errorf("create stock transfer: %w", domain.ErrDuplicateRequest)
	}
	return wrapWrite("create stock transfer", err)
}

func (r *StockTransferRepository) GetByID(ctx context.Context, id string) (*entity.StockTransfer, error) {
	return r.getOne(ctx, `SELECT `+transferColumns+` FROM stock_transfers WHERE id = $1`, id)
}

func (r *StockTransferRepository) GetByIDForUpdate(ctx context.Context, id string) (*entity.StockTransfer, error) {
	return r.getOne(ctx, `SELECT `+transferColumns+` FROM stock_transfers WHERE id = $1 FOR UPDATE`, id)
}

func (r *StockTransferRepository) Update(ctx context.Context, t *entity.StockTransfer) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE stock_transfers
		SET status = $2, notes = $3,
		    approved_by = NULLIF($4, ''), shipped_by = NULLIF($5, ''), completed_by = NULLIF($6, ''),
		    cancelled_by = NULLIF($7, ''), cancellation_reason = NULLIF($8, ''),
		    approved_at = $9, shipped_at = $10, completed_at = $11, cancelled_at = $12, updated_at = $13
		WHERE id = $1`,
		t.ID, string(t.Status), t.Notes,
		t.ApprovedBy, t.ShippedBy, t.CompletedBy, t.CancelledBy, t.CancellationReason,
		t.ApprovedAt, t.ShippedAt, t.CompletedAt, t.CancelledAt, t.UpdatedAt,
	)
	if err != nil {
		return wrapWrite("update stock transfer", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update stock transfer %s: %w", t.ID, domain.ErrNotFound)
	}
	return nil
}

func (r *StockTransferRepository) FindOpen(ctx context.Context, fromWarehouseID, toWarehouseID, productID string) (*entity.StockTransfer, error) {
	return r.getOne(ctx, `
		SELECT `+transferColumns+` FROM stock_transfers
		WHERE from_warehouse_id = $1 AND to_warehouse_id = $2 AND product_id = $3
		  AND status IN ('pending', 'approved')
		ORDER BY initiated_at
		LIMIT 1`, fromWarehouseID, toWarehouseID, productID)
}

func (r *StockTransferRepository) AppendLog(ctx context.Context, l *entity.StockTransferLog) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO stock_transfer_logs (
			id, transfer_id, reference_number, transition, from_status, to_status, actor, notes, occurred_at
		) VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8, $9)`,
		l.ID, l.TransferID, l.ReferenceNumber, l.Transition, string(l.FromStatus), string(l.ToStatus),
		l.Actor, l.Notes, l.OccurredAt,
	)
	return wrapWrite("append stock transfer log", err)
}

func (r *StockTransferRepository) ListLogs(ctx context.Context, transferID string) ([]*entity.StockTransferLog, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, transfer_id, reference_number, transition, COALESCE(from_status, ''), to_status,
		       actor, notes, occurred_at
		FROM stock_transfer_logs
		WHERE transfer_id = $1
		ORDER BY occurred_at, seq`, transferID)
	if err != nil {
		return nil, fmt.Errorf("list stock transfer logs: %w", err)
	}
	defer rows.Close()

	var list []*entity.StockTransferLog
	for rows.Next() {
		var l entity.StockTransferLog
		var from, to string
		if err := rows.Scan(
			&l.ID, &l.TransferID, &l.ReferenceNumber, &l.Transition, &from, &to,
			&l.Actor, &l.Notes, &l.OccurredAt,
		); err != nil {
			return nil, fmt.Errorf("scan stock transfer log: %w", err)
		}
		l.FromStatus = entity.TransferStatus(from)
		l.ToStatus = entity.TransferStatus(to)
		list = append(list, &l)
	}
	return list, rows.Err()
}

func (r *StockTransferRepository) getOne(ctx context.Context, query string, args ...any) (*entity.StockTransfer, error) {
	t, err := scanTransfer(r.q.QueryRow(ctx, query, args...))
	if noRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get stock transfer: %w", err)
	}
	return t, nil
}

func scanTransfer(row pgx.Row) (*entity.StockTransfer, error) {
	var t entity.StockTransfer
	var status string
	err := row.Scan(
		&t.ID, &t.ReferenceNumber, &t.ProductID, &t.FromWarehouseID, &t.ToWarehouseID,
		&t.QuantityTransferred, &status, &t.Notes, &t.InitiatedBy, &t.ApprovedBy, &t.ShippedBy,
		&t.CompletedBy, &t.CancelledBy, &t.CancellationReason,
		&t.InitiatedAt, &t.ApprovedAt, &t.ShippedAt, &t.CompletedAt, &t.CancelledAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.Status = entity.TransferStatus(status)
	return &t, nil
}
