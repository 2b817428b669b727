package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	domaininv "github.com/jhoicas/stock-ledger/internal/domain/inventory"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

const maxReferenceAttempts = 5

// AdjustmentUseCase aplica correcciones directas a on-hand dejando un registro inmutable.
type AdjustmentUseCase struct {
	engine
}

// NewAdjustmentUseCase construye el caso de uso.
func NewAdjustmentUseCase(txRunner TxRunner, log *logger.Logger, opts ...Option) *AdjustmentUseCase {
	return &AdjustmentUseCase{engine: newEngine(txRunner, log, "adjustments", opts)}
}

// AdjustmentInput entrada del ajuste. Quantity se toma en valor absoluto; Type define la dirección.
type AdjustmentInput struct {
	InventoryID string
	Type        entity.AdjustmentType
	Quantity    int
	Reason      entity.AdjustmentReason
	Notes       string
	Actor       string
}

type adjustmentEvent struct {
	Adjustment *dto.AdjustmentResponse `json:"adjustment"`
	Inventory  *dto.InventoryResponse  `json:"inventory"`
}

// Apply bloquea el inventario, calcula el nuevo on-hand y guarda inventario + ajuste en una transacción.
// Una disminución mayor al on-hand deja el on-hand en cero; si el nuevo on-hand queda por debajo
// de lo reservado, la reserva se recorta al on-hand para mantener disponible >= 0.
func (uc *AdjustmentUseCase) Apply(ctx context.Context, in AdjustmentInput) (*entity.StockAdjustment, error) {
	if err := validateAdjustment(&in); err != nil {
		return nil, err
	}

	var out *entity.StockAdjustment
	err := uc.run(ctx, "adjustment.apply", func(ctx context.Context, repos TxRepos) error {
		inv, err := repos.Inventory.GetByIDForUpdate(ctx, in.InventoryID)
		if err != nil {
			return err
		}
		if inv == nil {
			return domain.ErrNotFound
		}

		now := uc.now()
		before := inv.QuantityOnHand
		after := before + in.Quantity
		released := 0
		if in.Type == entity.AdjustmentDecrease {
			after = before - in.Quantity
			if after < 0 {
				after = 0
			}
			if after < inv.QuantityReserved {
				released = inv.Release(inv.QuantityReserved - after)
			}
		}
		if err := inv.SetOnHand(after); err != nil {
			return err
		}
		inv.Touch(now)

		ref, err := uniqueAdjustmentReference(ctx, repos, now)
		if err != nil {
			return err
		}
		adj := &entity.StockAdjustment{
			ID:               uuid.New().String(),
			InventoryID:      inv.ID,
			ReferenceNumber:  ref,
			Type:             in.Type,
			QuantityAdjusted: in.Quantity,
			QuantityBefore:   before,
			QuantityAfter:    after,
			Reason:           in.Reason,
			Notes:            in.Notes,
			AdjustedBy:       in.Actor,
			AdjustedAt:       now,
		}
		if err := repos.Inventory.UpdateQuantities(ctx, inv); err != nil {
			return err
		}
		if err := repos.Adjustments.Create(ctx, adj); err != nil {
			return err
		}
		out = adj
		if err := recordEvent(ctx, repos, entity.EventAdjustmentApplied, "adjustment", adj.ID,
			adjustmentEvent{Adjustment: dto.NewAdjustmentResponse(adj), Inventory: dto.NewInventoryResponse(inv)}, now); err != nil {
			return err
		}
		if released == 0 {
			return nil
		}
		// La reserva recortada se publica igual que un release explícito.
		return recordEvent(ctx, repos, entity.EventInventoryReleased, "inventory", inv.ID,
			quantityEvent{Inventory: dto.NewInventoryResponse(inv), Quantity: released, Actor: in.Actor}, now)
	}, attribute.String("inventory_id", in.InventoryID), attribute.String("adjustment_type", string(in.Type)))
	if err != nil {
		return nil, err
	}

	uc.log.Info().
		Str("reference", out.ReferenceNumber).
		Str("inventory_id", out.InventoryID).
		Str("type", string(out.Type)).
		Int("before", out.QuantityBefore).
		Int("after", out.QuantityAfter).
		Str("actor", out.AdjustedBy).
		Msg("ajuste aplicado")
	return out, nil
}

// ListByInventory historial de ajustes de un inventario (más recientes primero).
func (uc *AdjustmentUseCase) ListByInventory(ctx context.Context, inventoryID string, page dto.PageRequest) ([]*entity.StockAdjustment, error) {
	limit, offset := pageBounds(page)
	var out []*entity.StockAdjustment
	err := uc.run(ctx, "adjustment.list", func(ctx context.Context, repos TxRepos) error {
		list, err := repos.Adjustments.ListByInventory(ctx, inventoryID, limit, offset)
		out = list
		return err
	})
	return out, err
}

func validateAdjustment(in *AdjustmentInput) error {
	if err := requireActor(in.Actor); err != nil {
		return err
	}
	if in.InventoryID == "" {
		return domain.ErrInvalidInput
	}
	if !in.Type.Valid() {
		return fmt.Errorf("%w: tipo de ajuste %q", domain.ErrInvalidInput, in.Type)
	}
	if !in.Reason.Valid() {
		return fmt.Errorf("%w: motivo de ajuste %q", domain.ErrInvalidInput, in.Reason)
	}
	if in.Quantity < 0 {
		in.Quantity = -in.Quantity
	}
	if in.Quantity == 0 {
		return fmt.Errorf("%w: la cantidad del ajuste no puede ser cero", domain.ErrInvalidInput)
	}
	return nil
}

// uniqueAdjustmentReference genera ADJ-YYYYMMDD-XXXXXX verificando que no exista.
func uniqueAdjustmentReference(ctx context.Context, repos TxRepos, now time.Time) (string, error) {
	for i := 0; i < maxReferenceAttempts; i++ {
		ref, err := domaininv.AdjustmentReference(now)
		if err != nil {
			return "", err
		}
		exists, err := repos.Adjustments.ExistsByReference(ctx, ref)
		if err != nil {
			return "", err
		}
		if !exists {
			return ref, nil
		}
	}
	return "", fmt.Errorf("%w: no se pudo generar una referencia de ajuste única", domain.ErrConflict)
}
