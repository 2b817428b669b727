package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// fakeQuerier devuelve el error configurado y guarda el último SQL.
type fakeQuerier struct {
	execErr error
	row     fakeRow
	lastSQL string
	args    []any
}

func (f *fakeQuerier) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.lastSQL, f.args = sql, args
	return pgconn.NewCommandTag("INSERT 0 1"), f.execErr
}

func (f *fakeQuerier) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	f.lastSQL, f.args = sql, args
	return nil, pgx.ErrNoRows
}

func (f *fakeQuerier) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	f.lastSQL, f.args = sql, args
	return f.row
}

type fakeRow struct {
	value int
	err   error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*int)) = r.value
	return nil
}

func newTransfer() *entity.StockTransfer {
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	return &entity.StockTransfer{
		ID: "t-1", ReferenceNumber: "ST-20240315-0001", ProductID: "p", FromWarehouseID: "a", ToWarehouseID: "b",
		QuantityTransferred: 5, Status: entity.TransferPending, InitiatedBy: "u", InitiatedAt: now, UpdatedAt: now,
	}
}

func TestStockTransferRepository_Create_TrasladoAbiertoDuplicado(t *testing.T) {
	q := &fakeQuerier{execErr: &pgconn.PgError{Code: "23505", ConstraintName: openTransferIndex}}
	err := NewStockTransferRepository(q).Create(context.Background(), newTransfer())
	assert.ErrorIs(t, err, domain.ErrDuplicateRequest)
	assert.NotErrorIs(t, err, domain.ErrDuplicate)

	q.execErr = &pgconn.PgError{Code: "23505", ConstraintName: "stock_transfers_reference_number_key"}
	err = NewStockTransferRepository(q).Create(context.Background(), newTransfer())
	assert.ErrorIs(t, err, domain.ErrDuplicate)
	assert.NotErrorIs(t, err, domain.ErrDuplicateRequest)
}

func TestInboxRepository_Insert_RepetidoEsYaProcesado(t *testing.T) {
	q := &fakeQuerier{execErr: &pgconn.PgError{Code: "23505"}}
	err := NewInboxRepository(q).Insert(context.Background(), "ev-1", "sales_order.reserved")
	assert.ErrorIs(t, err, domain.ErrAlreadyProcessed)
	assert.NotErrorIs(t, err, domain.ErrDuplicate)

	q.execErr = nil
	assert.NoError(t, NewInboxRepository(q).Insert(context.Background(), "ev-2", "sales_order.reserved"))
}

func TestReferenceSequenceRepository_Next_UpsertNumerico(t *testing.T) {
	q := &fakeQuerier{row: fakeRow{value: 10001}}
	seq, err := NewReferenceSequenceRepository(q).Next(context.Background(), "MOV-20240315-")
	require.NoError(t, err)
	assert.Equal(t, 10001, seq)
	assert.Contains(t, q.lastSQL, "ON CONFLICT (scope) DO UPDATE")
	assert.Equal(t, []any{"MOV-20240315-"}, q.args)

	q.row = fakeRow{err: pgx.ErrTxClosed}
	_, err = NewReferenceSequenceRepository(q).Next(context.Background(), "MOV-20240315-")
	assert.ErrorIs(t, err, pgx.ErrTxClosed)
}
