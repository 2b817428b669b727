package memory

import (
	"context"
	"sort"
	"time"

	appinv "github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// tx estado de trabajo de una transacción. Los repositorios devuelven copias:
// los cambios solo llegan al estado con Create/Update explícitos.
type tx struct {
	store *Store
	data  *state
}

func (t *tx) repos() appinv.TxRepos {
	return appinv.TxRepos{
		Inventory:   &inventoryRepo{t},
		Adjustments: &adjustmentRepo{t},
		Movements:   &movementRepo{t},
		Transfers:   &transferRepo{t},
		Events:      &eventRepo{t},
		Inbox:       &inboxRepo{t},
		Sequences:   &sequenceRepo{t},
	}
}

type inventoryRepo struct{ *tx }

func (r *inventoryRepo) Create(_ context.Context, inv *entity.Inventory) error {
	if err := r.store.checkFault(OpInventoryCreate); err != nil {
		return err
	}
	if _, ok := r.data.inventory[inv.ID]; ok {
		return domain.ErrDuplicate
	}
	for _, cur := range r.data.inventory {
		if cur.ProductID == inv.ProductID && cur.WarehouseID == inv.WarehouseID {
			return domain.ErrDuplicate
		}
	}
	r.data.inventory[inv.ID] = *inv
	return nil
}

func (r *inventoryRepo) GetByID(_ context.Context, id string) (*entity.Inventory, error) {
	inv, ok := r.data.inventory[id]
	if !ok {
		return nil, nil
	}
	return &inv, nil
}

func (r *inventoryRepo) GetByProductAndWarehouse(_ context.Context, productID, warehouseID string) (*entity.Inventory, error) {
	for _, inv := range r.data.inventory {
		if inv.ProductID == productID && inv.WarehouseID == warehouseID {
			cp := inv
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inventoryRepo) GetByIDForUpdate(ctx context.Context, id string) (*entity.Inventory, error) {
	return r.GetByID(ctx, id)
}

func (r *inventoryRepo) GetByProductAndWarehouseForUpdate(ctx context.Context, productID, warehouseID string) (*entity.Inventory, error) {
	return r.GetByProductAndWarehouse(ctx, productID, warehouseID)
}

func (r *inventoryRepo) UpdateQuantities(_ context.Context, inv *entity.Inventory) error {
	if err := r.store.checkFault(OpInventoryUpdate); err != nil {
		return err
	}
	if _, ok := r.data.inventory[inv.ID]; !ok {
		return domain.ErrNotFound
	}
	r.data.inventory[inv.ID] = *inv
	return nil
}

func (r *inventoryRepo) Delete(_ context.Context, id string) error {
	if err := r.store.checkFault(OpInventoryDelete); err != nil {
		return err
	}
	if _, ok := r.data.inventory[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.data.inventory, id)
	return nil
}

type adjustmentRepo struct{ *tx }

func (r *adjustmentRepo) Create(_ context.Context, adj *entity.StockAdjustment) error {
	if err := r.store.checkFault(OpAdjustmentCreate); err != nil {
		return err
	}
	for _, a := range r.data.adjustments {
		if a.ReferenceNumber == adj.ReferenceNumber {
			return domain.ErrDuplicate
		}
	}
	r.data.adjustments = append(r.data.adjustments, *adj)
	return nil
}

func (r *adjustmentRepo) ExistsByReference(_ context.Context, reference string) (bool, error) {
	for _, a := range r.data.adjustments {
		if a.ReferenceNumber == reference {
			return true, nil
		}
	}
	return false, nil
}

func (r *adjustmentRepo) ListByInventory(_ context.Context, inventoryID string, limit, offset int) ([]*entity.StockAdjustment, error) {
	var out []*entity.StockAdjustment
	for i := len(r.data.adjustments) - 1; i >= 0; i-- {
		if a := r.data.adjustments[i]; a.InventoryID == inventoryID {
			out = append(out, &a)
		}
	}
	return page(out, limit, offset), nil
}

type movementRepo struct{ *tx }

func (r *movementRepo) Create(_ context.Context, m *entity.StockMovement) error {
	if err := r.store.checkFault(OpMovementCreate); err != nil {
		return err
	}
	for _, cur := range r.data.movements {
		if cur.ID == m.ID || cur.ReferenceNumber == m.ReferenceNumber {
			return domain.ErrDuplicate
		}
	}
	r.data.movements = append(r.data.movements, *m)
	return nil
}

func (r *movementRepo) GetByID(_ context.Context, id string) (*entity.StockMovement, error) {
	for _, m := range r.data.movements {
		if m.ID == id {
			cp := m
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *movementRepo) GetByIDForUpdate(ctx context.Context, id string) (*entity.StockMovement, error) {
	return r.GetByID(ctx, id)
}

func (r *movementRepo) UpdateStatus(_ context.Context, m *entity.StockMovement) error {
	if err := r.store.checkFault(OpMovementUpdateStatus); err != nil {
		return err
	}
	for i := range r.data.movements {
		if r.data.movements[i].ID == m.ID {
			r.data.movements[i] = *m
			return nil
		}
	}
	return domain.ErrNotFound
}

func (r *movementRepo) ListByInventory(_ context.Context, inventoryID string, limit, offset int) ([]*entity.StockMovement, error) {
	var out []*entity.StockMovement
	for i := len(r.data.movements) - 1; i >= 0; i-- {
		if m := r.data.movements[i]; m.InventoryID == inventoryID {
			out = append(out, &m)
		}
	}
	return page(out, limit, offset), nil
}

type transferRepo struct{ *tx }

func (r *transferRepo) Create(_ context.Context, t *entity.StockTransfer) error {
	if err := r.store.checkFault(OpTransferCreate); err != nil {
		return err
	}
	for _, cur := range r.data.transfers {
		if cur.ID == t.ID || cur.ReferenceNumber == t.ReferenceNumber {
			return domain.ErrDuplicate
		}
		if isOpenTransfer(cur.Status) && isOpenTransfer(t.Status) &&
			cur.FromWarehouseID == t.FromWarehouseID && cur.ToWarehouseID == t.ToWarehouseID &&
			cur.ProductID == t.ProductID {
			return domain.ErrDuplicateRequest
		}
	}
	r.data.transfers = append(r.data.transfers, *t)
	return nil
}

func (r *transferRepo) GetByID(_ context.Context, id string) (*entity.StockTransfer, error) {
	for _, t := range r.data.transfers {
		if t.ID == id {
			cp := t
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *transferRepo) GetByIDForUpdate(ctx context.Context, id string) (*entity.StockTransfer, error) {
	return r.GetByID(ctx, id)
}

func (r *transferRepo) Update(_ context.Context, t *entity.StockTransfer) error {
	if err := r.store.checkFault(OpTransferUpdate); err != nil {
		return err
	}
	for i := range r.data.transfers {
		if r.data.transfers[i].ID == t.ID {
			r.data.transfers[i] = *t
			return nil
		}
	}
	return domain.ErrNotFound
}

func (r *transferRepo) FindOpen(_ context.Context, fromWarehouseID, toWarehouseID, productID string) (*entity.StockTransfer, error) {
	for _, t := range r.data.transfers {
		if t.FromWarehouseID != fromWarehouseID || t.ToWarehouseID != toWarehouseID || t.ProductID != productID {
			continue
		}
		if isOpenTransfer(t.Status) {
			cp := t
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *transferRepo) AppendLog(_ context.Context, l *entity.StockTransferLog) error {
	if err := r.store.checkFault(OpTransferAppendLog); err != nil {
		return err
	}
	r.data.logs = append(r.data.logs, *l)
	return nil
}

func (r *transferRepo) ListLogs(_ context.Context, transferID string) ([]*entity.StockTransferLog, error) {
	var out []*entity.StockTransferLog
	for _, l := range r.data.logs {
		if l.TransferID == transferID {
			cp := l
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].OccurredAt.Before(out[j].OccurredAt) })
	return out, nil
}

type eventRepo struct{ *tx }

func (r *eventRepo) Create(_ context.Context, e *entity.LedgerEvent) error {
	if err := r.store.checkFault(OpEventCreate); err != nil {
		return err
	}
	r.data.events = append(r.data.events, *e)
	return nil
}

func (r *eventRepo) ListPendingForUpdate(_ context.Context, limit int) ([]*entity.LedgerEvent, error) {
	var out []*entity.LedgerEvent
	for _, e := range r.data.events {
		if e.Status != entity.EventPending {
			continue
		}
		cp := e
		out = append(out, &cp)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *eventRepo) MarkProduced(_ context.Context, ids []string) (int, error) {
	if err := r.store.checkFault(OpEventMarkProduced); err != nil {
		return 0, err
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	now := time.Now().UTC()
	n := 0
	for i := range r.data.events {
		if _, ok := set[r.data.events[i].ID]; ok && r.data.events[i].Status == entity.EventPending {
			r.data.events[i].Status = entity.EventProduced
			r.data.events[i].ProducedAt = &now
			n++
		}
	}
	return n, nil
}

type inboxRepo struct{ *tx }

func (r *inboxRepo) Insert(_ context.Context, eventID, eventType string) error {
	if err := r.store.checkFault(OpInboxInsert); err != nil {
		return err
	}
	if _, ok := r.data.inbox[eventID]; ok {
		return domain.ErrAlreadyProcessed
	}
	r.data.inbox[eventID] = eventType
	return nil
}

type sequenceRepo struct{ *tx }

func (r *sequenceRepo) Next(_ context.Context, scope string) (int, error) {
	r.data.sequences[scope]++
	return r.data.sequences[scope], nil
}

func isOpenTransfer(s entity.TransferStatus) bool {
	return s == entity.TransferPending || s == entity.TransferApproved
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
