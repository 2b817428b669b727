// Package memory implementa los puertos del ledger en memoria, con transacciones serializadas
// y rollback completo. Se usa en tests y en ejecuciones locales sin base de datos.
package memory

import (
	"context"
	"sync"

	appinv "github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// Operaciones sobre las que se puede inyectar una falla (Store.FailOn).
const (
	OpInventoryCreate      = "inventory.create"
	OpInventoryUpdate      = "inventory.update"
	OpInventoryDelete      = "inventory.delete"
	OpAdjustmentCreate     = "adjustment.create"
	OpMovementCreate       = "movement.create"
	OpMovementUpdateStatus = "movement.update_status"
	OpTransferCreate       = "transfer.create"
	OpTransferUpdate       = "transfer.update"
	OpTransferAppendLog    = "transfer.append_log"
	OpEventCreate          = "event.create"
	OpEventMarkProduced    = "event.mark_produced"
	OpInboxInsert          = "inbox.insert"
)

type state struct {
	inventory   map[string]entity.Inventory
	adjustments []entity.StockAdjustment
	movements   []entity.StockMovement
	transfers   []entity.StockTransfer
	logs        []entity.StockTransferLog
	events      []entity.LedgerEvent
	inbox       map[string]string
	sequences   map[string]int
}

func newState() *state {
	return &state{
		inventory: make(map[string]entity.Inventory),
		inbox:     make(map[string]string),
		sequences: make(map[string]int),
	}
}

func (s *state) clone() *state {
	c := &state{
		inventory:   make(map[string]entity.Inventory, len(s.inventory)),
		adjustments: append([]entity.StockAdjustment(nil), s.adjustments...),
		movements:   append([]entity.StockMovement(nil), s.movements...),
		transfers:   append([]entity.StockTransfer(nil), s.transfers...),
		logs:        append([]entity.StockTransferLog(nil), s.logs...),
		events:      append([]entity.LedgerEvent(nil), s.events...),
		inbox:       make(map[string]string, len(s.inbox)),
		sequences:   make(map[string]int, len(s.sequences)),
	}
	for k, v := range s.inventory {
		c.inventory[k] = v
	}
	for k, v := range s.inbox {
		c.inbox[k] = v
	}
	for k, v := range s.sequences {
		c.sequences[k] = v
	}
	return c
}

// Store base de datos en memoria. Run toma un lock exclusivo: las transacciones no se solapan.
type Store struct {
	mu     sync.Mutex
	data   *state
	faults map[string]*fault
}

type fault struct {
	skip int
	err  error
}

// NewStore crea un store vacío.
func NewStore() *Store {
	return &Store{data: newState(), faults: make(map[string]*fault)}
}

var _ appinv.TxRunner = (*Store)(nil)

// Run ejecuta fn sobre una copia del estado; la copia solo se confirma si fn no retorna error.
func (s *Store) Run(ctx context.Context, fn func(ctx context.Context, repos appinv.TxRepos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &tx{store: s, data: s.data.clone()}
	if err := fn(ctx, tx.repos()); err != nil {
		return err
	}
	s.data = tx.data
	return nil
}

// FailOn hace que la próxima ejecución de op retorne err (una sola vez).
func (s *Store) FailOn(op string, err error) {
	s.FailAfter(op, 0, err)
}

// FailAfter deja pasar skip ejecuciones de op y hace fallar la siguiente.
func (s *Store) FailAfter(op string, skip int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[op] = &fault{skip: skip, err: err}
}

// checkFault se llama con s.mu tomado (dentro de Run).
func (s *Store) checkFault(op string) error {
	f, ok := s.faults[op]
	if !ok {
		return nil
	}
	if f.skip > 0 {
		f.skip--
		return nil
	}
	delete(s.faults, op)
	return f.err
}

// Seed inserta un inventario directamente (setup de tests).
func (s *Store) Seed(inv entity.Inventory) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.inventory[inv.ID] = inv
}

// SeedSequence fija el último número emitido para scope (ej. "MOV-20240315-").
func (s *Store) SeedSequence(scope string, last int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.sequences[scope] = last
}

// Inventory devuelve el estado confirmado de un inventario.
func (s *Store) Inventory(id string) (entity.Inventory, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.data.inventory[id]
	return inv, ok
}

// InventoryByPair devuelve el inventario confirmado de producto+bodega.
func (s *Store) InventoryByPair(productID, warehouseID string) (entity.Inventory, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, inv := range s.data.inventory {
		if inv.ProductID == productID && inv.WarehouseID == warehouseID {
			return inv, true
		}
	}
	return entity.Inventory{}, false
}

// Adjustments devuelve los ajustes confirmados.
func (s *Store) Adjustments() []entity.StockAdjustment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]entity.StockAdjustment(nil), s.data.adjustments...)
}

// Movements devuelve los movimientos confirmados en orden de creación.
func (s *Store) Movements() []entity.StockMovement {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]entity.StockMovement(nil), s.data.movements...)
}

// Transfers devuelve los traslados confirmados.
func (s *Store) Transfers() []entity.StockTransfer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]entity.StockTransfer(nil), s.data.transfers...)
}

// Events devuelve los eventos del outbox confirmados.
func (s *Store) Events() []entity.LedgerEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]entity.LedgerEvent(nil), s.data.events...)
}
