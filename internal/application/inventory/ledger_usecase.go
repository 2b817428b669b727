package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// LedgerUseCase operaciones básicas sobre registros de inventario: alta, lectura,
// reserva, liberación, sobrescritura de on-hand y baja. Cada operación bloquea la fila
// (SELECT FOR UPDATE) y persiste en una sola transacción.
type LedgerUseCase struct {
	engine
}

// NewLedgerUseCase construye el caso de uso.
func NewLedgerUseCase(txRunner TxRunner, log *logger.Logger, opts ...Option) *LedgerUseCase {
	return &LedgerUseCase{engine: newEngine(txRunner, log, "ledger", opts)}
}

// CreateInventoryInput entrada para crear un registro producto+bodega.
type CreateInventoryInput struct {
	ProductID   string
	WarehouseID string
	OnHand      int
	Reserved    int
	Actor       string
}

// quantityEvent payload de reserve/release/set-on-hand.
type quantityEvent struct {
	Inventory *dto.InventoryResponse `json:"inventory"`
	Quantity  int                    `json:"quantity"`
	Actor     string                 `json:"actor"`
}

// CreateInventory crea el registro; ErrDuplicate si ya existe para el par producto+bodega.
func (uc *LedgerUseCase) CreateInventory(ctx context.Context, in CreateInventoryInput) (*entity.Inventory, error) {
	if err := requireActor(in.Actor); err != nil {
		return nil, err
	}
	now := uc.now()
	inv, err := entity.NewInventory(uuid.New().String(), in.ProductID, in.WarehouseID, in.OnHand, in.Reserved, now)
	if err != nil {
		return nil, err
	}
	err = uc.run(ctx, "inventory.create", func(ctx context.Context, repos TxRepos) error {
		existing, err := repos.Inventory.GetByProductAndWarehouse(ctx, in.ProductID, in.WarehouseID)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("%w: inventario para producto %s en bodega %s", domain.ErrDuplicate, in.ProductID, in.WarehouseID)
		}
		if err := repos.Inventory.Create(ctx, inv); err != nil {
			return err
		}
		return recordEvent(ctx, repos, entity.EventInventoryCreated, "inventory", inv.ID,
			quantityEvent{Inventory: dto.NewInventoryResponse(inv), Quantity: inv.QuantityOnHand, Actor: in.Actor}, now)
	}, attribute.String("product_id", in.ProductID), attribute.String("warehouse_id", in.WarehouseID))
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// GetInventory busca por producto+bodega.
func (uc *LedgerUseCase) GetInventory(ctx context.Context, productID, warehouseID string) (*entity.Inventory, error) {
	if productID == "" || warehouseID == "" {
		return nil, domain.ErrInvalidInput
	}
	var out *entity.Inventory
	err := uc.run(ctx, "inventory.get", func(ctx context.Context, repos TxRepos) error {
		inv, err := repos.Inventory.GetByProductAndWarehouse(ctx, productID, warehouseID)
		if err != nil {
			return err
		}
		if inv == nil {
			return domain.ErrNotFound
		}
		out = inv
		return nil
	})
	return out, err
}

// GetInventoryByID busca por ID.
func (uc *LedgerUseCase) GetInventoryByID(ctx context.Context, id string) (*entity.Inventory, error) {
	var out *entity.Inventory
	err := uc.run(ctx, "inventory.get", func(ctx context.Context, repos TxRepos) error {
		inv, err := repos.Inventory.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if inv == nil {
			return domain.ErrNotFound
		}
		out = inv
		return nil
	})
	return out, err
}

// Reserve aparta qty del disponible. AvailabilityError si no alcanza; nada se modifica.
func (uc *LedgerUseCase) Reserve(ctx context.Context, inventoryID string, qty int, actor string) (*entity.Inventory, error) {
	return uc.mutate(ctx, "inventory.reserve", inventoryID, actor, func(ctx context.Context, repos TxRepos, inv *entity.Inventory) error {
		return uc.reserveLocked(ctx, repos, inv, qty, actor)
	})
}

// Release libera hasta qty de lo reservado (sin bajar de cero).
func (uc *LedgerUseCase) Release(ctx context.Context, inventoryID string, qty int, actor string) (*entity.Inventory, error) {
	return uc.mutate(ctx, "inventory.release", inventoryID, actor, func(ctx context.Context, repos TxRepos, inv *entity.Inventory) error {
		return uc.releaseLocked(ctx, repos, inv, qty, actor)
	})
}

// SetOnHand sobrescribe la existencia física (conteo). ErrNegativeQuantity si qty < 0 o qty < reservado.
func (uc *LedgerUseCase) SetOnHand(ctx context.Context, inventoryID string, qty int, actor string) (*entity.Inventory, error) {
	return uc.mutate(ctx, "inventory.set_on_hand", inventoryID, actor, func(ctx context.Context, repos TxRepos, inv *entity.Inventory) error {
		return uc.setOnHandLocked(ctx, repos, inv, qty, actor)
	})
}

// DeleteInventory elimina el registro; ErrConflict mientras tenga reservas.
func (uc *LedgerUseCase) DeleteInventory(ctx context.Context, inventoryID, actor string) error {
	_, err := uc.mutate(ctx, "inventory.delete", inventoryID, actor, func(ctx context.Context, repos TxRepos, inv *entity.Inventory) error {
		if inv.QuantityReserved > 0 {
			return fmt.Errorf("%w: el inventario tiene %d unidades reservadas", domain.ErrConflict, inv.QuantityReserved)
		}
		return repos.Inventory.Delete(ctx, inv.ID)
	})
	return err
}

// mutate bloquea el registro y ejecuta fn en la misma transacción.
func (uc *LedgerUseCase) mutate(
	ctx context.Context, op, inventoryID, actor string,
	fn func(ctx context.Context, repos TxRepos, inv *entity.Inventory) error,
) (*entity.Inventory, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if inventoryID == "" {
		return nil, domain.ErrInvalidInput
	}
	var out *entity.Inventory
	err := uc.run(ctx, op, func(ctx context.Context, repos TxRepos) error {
		inv, err := repos.Inventory.GetByIDForUpdate(ctx, inventoryID)
		if err != nil {
			return err
		}
		if inv == nil {
			return domain.ErrNotFound
		}
		if err := fn(ctx, repos, inv); err != nil {
			return err
		}
		out = inv
		return nil
	}, attribute.String("inventory_id", inventoryID))
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (uc *LedgerUseCase) reserveLocked(ctx context.Context, repos TxRepos, inv *entity.Inventory, qty int, actor string) error {
	if err := inv.Reserve(qty); err != nil {
		return err
	}
	return uc.persist(ctx, repos, inv, entity.EventInventoryReserved, qty, actor)
}

func (uc *LedgerUseCase) releaseLocked(ctx context.Context, repos TxRepos, inv *entity.Inventory, qty int, actor string) error {
	if qty <= 0 {
		return domain.ErrInvalidInput
	}
	released := inv.Release(qty)
	return uc.persist(ctx, repos, inv, entity.EventInventoryReleased, released, actor)
}

func (uc *LedgerUseCase) setOnHandLocked(ctx context.Context, repos TxRepos, inv *entity.Inventory, qty int, actor string) error {
	if err := inv.SetOnHand(qty); err != nil {
		return err
	}
	return uc.persist(ctx, repos, inv, entity.EventInventoryOnHandSet, qty, actor)
}

// fulfillLocked despacho de una orden: libera la reserva y descuenta on-hand (mínimo cero).
func (uc *LedgerUseCase) fulfillLocked(ctx context.Context, repos TxRepos, inv *entity.Inventory, qty int, actor string) error {
	if qty <= 0 {
		return domain.ErrInvalidInput
	}
	if err := uc.releaseLocked(ctx, repos, inv, qty, actor); err != nil {
		return err
	}
	onHand := inv.QuantityOnHand - qty
	if onHand < 0 {
		onHand = 0
	}
	return uc.setOnHandLocked(ctx, repos, inv, onHand, actor)
}

func (uc *LedgerUseCase) persist(ctx context.Context, repos TxRepos, inv *entity.Inventory, eventType string, qty int, actor string) error {
	now := uc.now()
	inv.Touch(now)
	if err := repos.Inventory.UpdateQuantities(ctx, inv); err != nil {
		return err
	}
	return recordEvent(ctx, repos, eventType, "inventory", inv.ID,
		quantityEvent{Inventory: dto.NewInventoryResponse(inv), Quantity: qty, Actor: actor}, now)
}
