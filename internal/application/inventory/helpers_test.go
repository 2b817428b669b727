package inventory_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	appinv "github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

const (
	testProductID  = "00000000-0000-0000-0000-0000000000aa"
	testWarehouseA = "00000000-0000-0000-0000-00000000000a"
	testWarehouseB = "00000000-0000-0000-0000-00000000000b"
	testInventory  = "00000000-0000-0000-0000-000000000001"
	testActor      = "usuario-1"
	testApprover   = "supervisor-1"
)

var (
	testNow   = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	errDBDown = errors.New("conexión perdida")
)

type fixture struct {
	store       *memory.Store
	ledger      *appinv.LedgerUseCase
	adjustments *appinv.AdjustmentUseCase
	movements   *appinv.MovementUseCase
	transfers   *appinv.TransferUseCase
	fulfillment *appinv.FulfillmentUseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	log := logger.Nop()
	clock := appinv.WithClock(func() time.Time { return testNow })

	ledger := appinv.NewLedgerUseCase(store, log, clock)
	movements := appinv.NewMovementUseCase(store, log, decimal.NewFromInt(100), clock)
	return &fixture{
		store:       store,
		ledger:      ledger,
		adjustments: appinv.NewAdjustmentUseCase(store, log, clock),
		movements:   movements,
		transfers:   appinv.NewTransferUseCase(store, log, clock),
		fulfillment: appinv.NewFulfillmentUseCase(store, ledger, movements, log, clock),
	}
}

// seed deja un inventario confirmado con las cantidades dadas.
func (f *fixture) seed(t *testing.T, id, warehouseID string, onHand, reserved int) entity.Inventory {
	t.Helper()
	inv, err := entity.NewInventory(id, testProductID, warehouseID, onHand, reserved, testNow)
	require.NoError(t, err)
	f.store.Seed(*inv)
	return *inv
}

func (f *fixture) inventory(t *testing.T, id string) entity.Inventory {
	t.Helper()
	inv, ok := f.store.Inventory(id)
	require.True(t, ok, "el inventario %s debe existir", id)
	return inv
}

func (f *fixture) eventTypes() []string {
	events := f.store.Events()
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.Type)
	}
	return out
}

// recordingPublisher Publisher en memoria; failAt hace fallar la publicación n (1-based).
type recordingPublisher struct {
	mu       sync.Mutex
	keys     []string
	payloads [][]byte
	failAt   int
	calls    int
}

func (p *recordingPublisher) Publish(_ context.Context, key string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.failAt > 0 && p.calls == p.failAt {
		return errors.New("broker no disponible")
	}
	p.keys = append(p.keys, key)
	p.payloads = append(p.payloads, payload)
	return nil
}
