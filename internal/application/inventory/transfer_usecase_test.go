package inventory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appinv "github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

func transferInput(qty int) appinv.TransferInput {
	return appinv.TransferInput{
		ProductID:       testProductID,
		FromWarehouseID: testWarehouseA,
		ToWarehouseID:   testWarehouseB,
		Quantity:        qty,
		Actor:           testActor,
	}
}

// initiateAndShip deja un traslado en in_transit.
func (f *fixture) initiateAndShip(t *testing.T, qty int) *entity.StockTransfer {
	t.Helper()
	ctx := context.Background()
	tr, err := f.transfers.Initiate(ctx, transferInput(qty))
	require.NoError(t, err)
	_, err = f.transfers.Approve(ctx, tr.ID, testApprover)
	require.NoError(t, err)
	tr, err = f.transfers.MarkInTransit(ctx, tr.ID, "bodeguero-1")
	require.NoError(t, err)
	return tr
}

// Ciclo completo: el origen baja al despachar y el destino (inexistente) se crea al completar.
func TestTransfer_CicloCompleto(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, testInventory, testWarehouseA, 50, 0)

	tr, err := f.transfers.Initiate(ctx, transferInput(20))
	require.NoError(t, err)
	assert.Equal(t, entity.TransferPending, tr.Status)
	assert.Equal(t, "ST-20240315-0001", tr.ReferenceNumber)

	tr, err = f.transfers.Approve(ctx, tr.ID, testApprover)
	require.NoError(t, err)
	assert.Equal(t, entity.TransferApproved, tr.Status)
	assert.Equal(t, 50, f.inventory(t, testInventory).QuantityOnHand, "aprobar no mueve stock")

	tr, err = f.transfers.MarkInTransit(ctx, tr.ID, "bodeguero-1")
	require.NoError(t, err)
	assert.Equal(t, entity.TransferInTransit, tr.Status)
	assert.Equal(t, 30, f.inventory(t, testInventory).QuantityOnHand)
	_, ok := f.store.InventoryByPair(testProductID, testWarehouseB)
	assert.False(t, ok, "el destino aún no existe")

	tr, err = f.transfers.Complete(ctx, tr.ID, "bodeguero-2")
	require.NoError(t, err)
	assert.Equal(t, entity.TransferCompleted, tr.Status)
	assert.Equal(t, "bodeguero-2", tr.CompletedBy)
	require.NotNil(t, tr.CompletedAt)

	dst, ok := f.store.InventoryByPair(testProductID, testWarehouseB)
	require.True(t, ok)
	assert.Equal(t, 20, dst.QuantityOnHand)
	assert.Equal(t, 20, dst.QuantityAvailable)

	history, err := f.transfers.History(ctx, tr.ID)
	require.NoError(t, err)
	var transitions []string
	for _, h := range history {
		transitions = append(transitions, h.Transition)
	}
	assert.Equal(t, []string{
		entity.TransitionInitiated, entity.TransitionApproved, entity.TransitionInTransit, entity.TransitionCompleted,
	}, transitions)

	movs := f.store.Movements()
	require.Len(t, movs, 2)
	assert.Equal(t, entity.MovementTransferOut, movs[0].Type)
	assert.Equal(t, -20, movs[0].QuantityMoved)
	assert.Equal(t, entity.MovementTransferIn, movs[1].Type)
	assert.Equal(t, 20, movs[1].QuantityMoved)
	assert.Equal(t, tr.ID, movs[1].SourceID)
	assert.Equal(t, entity.MovementApplied, movs[1].Status)
}

// Cancelar en tránsito devuelve la cantidad al origen.
func TestTransfer_Cancel_EnTransitoCompensaOrigen(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, testInventory, testWarehouseA, 50, 0)
	tr := f.initiateAndShip(t, 20)
	require.Equal(t, 30, f.inventory(t, testInventory).QuantityOnHand)

	tr, err := f.transfers.Cancel(ctx, tr.ID, "camión averiado", testApprover)
	require.NoError(t, err)
	assert.Equal(t, entity.TransferCancelled, tr.Status)
	assert.Equal(t, "camión averiado", tr.CancellationReason)
	assert.Equal(t, testApprover, tr.CancelledBy)
	assert.Equal(t, 50, f.inventory(t, testInventory).QuantityOnHand)

	_, ok := f.store.InventoryByPair(testProductID, testWarehouseB)
	assert.False(t, ok)

	history, err := f.transfers.History(ctx, tr.ID)
	require.NoError(t, err)
	last := history[len(history)-1]
	assert.Equal(t, entity.TransitionCancelled, last.Transition)
	assert.Equal(t, entity.TransferInTransit, last.FromStatus)
	assert.Equal(t, "camión averiado", last.Notes)
}

func TestTransfer_Cancel_PendienteNoMueveStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, testInventory, testWarehouseA, 50, 0)

	tr, err := f.transfers.Initiate(ctx, transferInput(10))
	require.NoError(t, err)

	_, err = f.transfers.Cancel(ctx, tr.ID, "  ", testActor)
	require.ErrorIs(t, err, domain.ErrInvalidInput, "el motivo es obligatorio")

	tr, err = f.transfers.Cancel(ctx, tr.ID, "ya no se necesita", testActor)
	require.NoError(t, err)
	assert.Equal(t, entity.TransferCancelled, tr.Status)
	assert.Equal(t, 50, f.inventory(t, testInventory).QuantityOnHand)
	assert.Empty(t, f.store.Movements())
}

func TestTransfer_Cancel_CompletadoFalla(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, testInventory, testWarehouseA, 50, 0)
	tr := f.initiateAndShip(t, 5)
	_, err := f.transfers.Complete(ctx, tr.ID, testActor)
	require.NoError(t, err)

	_, err = f.transfers.Cancel(ctx, tr.ID, "tarde", testActor)
	var stateErr *domain.StateError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, string(entity.TransferCompleted), stateErr.Current)
	assert.Equal(t, "cancelled", stateErr.Action)
}

func TestTransfer_TransicionesFueraDeOrden(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, testInventory, testWarehouseA, 50, 0)

	tr, err := f.transfers.Initiate(ctx, transferInput(10))
	require.NoError(t, err)

	_, err = f.transfers.MarkInTransit(ctx, tr.ID, testActor)
	assert.ErrorIs(t, err, domain.ErrInvalidState, "no se despacha sin aprobar")
	_, err = f.transfers.Complete(ctx, tr.ID, testActor)
	assert.ErrorIs(t, err, domain.ErrInvalidState, "no se completa sin despachar")

	_, err = f.transfers.Approve(ctx, tr.ID, testApprover)
	require.NoError(t, err)
	_, err = f.transfers.Approve(ctx, tr.ID, testApprover)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
	assert.Equal(t, 50, f.inventory(t, testInventory).QuantityOnHand)
}

func TestTransfer_Initiate_MismaBodegaFalla(t *testing.T) {
	f := newFixture(t)
	f.seed(t, testInventory, testWarehouseA, 50, 0)

	in := transferInput(5)
	in.ToWarehouseID = testWarehouseA
	_, err := f.transfers.Initiate(context.Background(), in)
	assert.ErrorIs(t, err, domain.ErrSameWarehouse)
	assert.Empty(t, f.store.Transfers())
	assert.Empty(t, f.store.Events())
}

func TestTransfer_Initiate_DuplicadoAbiertoFalla(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, testInventory, testWarehouseA, 50, 0)

	first, err := f.transfers.Initiate(ctx, transferInput(5))
	require.NoError(t, err)
	_, err = f.transfers.Initiate(ctx, transferInput(7))
	require.ErrorIs(t, err, domain.ErrDuplicateRequest)

	// Al cancelar el primero se libera la tupla.
	_, err = f.transfers.Cancel(ctx, first.ID, "error de captura", testActor)
	require.NoError(t, err)
	second, err := f.transfers.Initiate(ctx, transferInput(7))
	require.NoError(t, err)
	assert.Equal(t, "ST-20240315-0002", second.ReferenceNumber)
}

// staleOpenCheck simula dos Initiate concurrentes: FindOpen no ve el traslado del otro.
type staleOpenCheck struct{ inner appinv.TxRunner }

func (r staleOpenCheck) Run(ctx context.Context, fn func(ctx context.Context, repos appinv.TxRepos) error) error {
	return r.inner.Run(ctx, func(ctx context.Context, repos appinv.TxRepos) error {
		repos.Transfers = blindTransfers{repos.Transfers}
		return fn(ctx, repos)
	})
}

type blindTransfers struct{ repository.StockTransferRepository }

func (blindTransfers) FindOpen(context.Context, string, string, string) (*entity.StockTransfer, error) {
	return nil, nil
}

// Aunque la verificación previa no vea el traslado abierto, el índice único lo rechaza.
func TestTransfer_Initiate_CarreraSobreLaMismaTupla(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, testInventory, testWarehouseA, 50, 0)
	racing := appinv.NewTransferUseCase(staleOpenCheck{inner: f.store}, logger.Nop(),
		appinv.WithClock(func() time.Time { return testNow }))

	_, err := racing.Initiate(ctx, transferInput(5))
	require.NoError(t, err)
	_, err = racing.Initiate(ctx, transferInput(7))
	require.ErrorIs(t, err, domain.ErrDuplicateRequest)

	assert.Equal(t, 50, f.inventory(t, testInventory).QuantityAvailable)
}

func TestTransfer_Initiate_DisponibleInsuficiente(t *testing.T) {
	f := newFixture(t)
	f.seed(t, testInventory, testWarehouseA, 50, 45)

	_, err := f.transfers.Initiate(context.Background(), transferInput(6))
	var avail *domain.AvailabilityError
	require.ErrorAs(t, err, &avail)
	assert.Equal(t, 5, avail.Available)

	_, err = f.transfers.Initiate(context.Background(), appinv.TransferInput{
		ProductID: testProductID, FromWarehouseID: testWarehouseB, ToWarehouseID: testWarehouseA, Quantity: 1, Actor: testActor,
	})
	assert.ErrorIs(t, err, domain.ErrNotFound, "sin inventario en origen")
}

// La aprobación revalida el disponible: si se reservó en el intermedio, falla.
func TestTransfer_Approve_RevalidaDisponible(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, testInventory, testWarehouseA, 20, 0)

	tr, err := f.transfers.Initiate(ctx, transferInput(15))
	require.NoError(t, err)
	_, err = f.ledger.Reserve(ctx, testInventory, 10, testActor)
	require.NoError(t, err)

	_, err = f.transfers.Approve(ctx, tr.ID, testApprover)
	require.ErrorIs(t, err, domain.ErrInsufficientAvailability)
	got, err := f.transfers.Get(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.TransferPending, got.Status)
}

// Si falla la bitácora al despachar, el origen no se descuenta.
func TestTransfer_MarkInTransit_RollbackSiFallaBitacora(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, testInventory, testWarehouseA, 20, 0)

	tr, err := f.transfers.Initiate(ctx, transferInput(5))
	require.NoError(t, err)
	_, err = f.transfers.Approve(ctx, tr.ID, testApprover)
	require.NoError(t, err)

	f.store.FailOn(memory.OpTransferAppendLog, errDBDown)
	_, err = f.transfers.MarkInTransit(ctx, tr.ID, testActor)
	require.ErrorIs(t, err, errDBDown)

	got, err := f.transfers.Get(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.TransferApproved, got.Status)
	assert.Equal(t, 20, f.inventory(t, testInventory).QuantityOnHand)
	assert.Empty(t, f.store.Movements())
}

func TestTransfer_History_Inexistente(t *testing.T) {
	f := newFixture(t)
	_, err := f.transfers.History(context.Background(), "nada")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
