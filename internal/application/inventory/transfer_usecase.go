package inventory

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	domaininv "github.com/jhoicas/stock-ledger/internal/domain/inventory"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

const transferSource = "stock_transfer"

// TransferUseCase flujo de traslados entre bodegas:
// pending -> approved -> in_transit -> completed; cancelled desde cualquier estado no terminal.
// El origen se descuenta al despachar y el destino se acredita al completar; cancelar un
// traslado en tránsito devuelve la cantidad al origen.
type TransferUseCase struct {
	engine
}

// NewTransferUseCase construye el caso de uso.
func NewTransferUseCase(txRunner TxRunner, log *logger.Logger, opts ...Option) *TransferUseCase {
	return &TransferUseCase{engine: newEngine(txRunner, log, "transfers", opts)}
}

// TransferInput entrada para iniciar un traslado.
type TransferInput struct {
	ProductID       string
	FromWarehouseID string
	ToWarehouseID   string
	Quantity        int
	Notes           string
	Actor           string
}

type transferEvent struct {
	Transfer *dto.TransferResponse `json:"transfer"`
	Actor    string                `json:"actor"`
}

// Initiate valida disponibilidad en origen y que no exista otro traslado abierto para la misma tupla.
func (uc *TransferUseCase) Initiate(ctx context.Context, in TransferInput) (*entity.StockTransfer, error) {
	if err := validateTransfer(in); err != nil {
		return nil, err
	}
	var out *entity.StockTransfer
	err := uc.run(ctx, "transfer.initiate", func(ctx context.Context, repos TxRepos) error {
		src, err := repos.Inventory.GetByProductAndWarehouse(ctx, in.ProductID, in.FromWarehouseID)
		if err != nil {
			return err
		}
		if src == nil {
			return fmt.Errorf("%w: inventario de origen", domain.ErrNotFound)
		}
		if in.Quantity > src.QuantityAvailable {
			return &domain.AvailabilityError{Requested: in.Quantity, Available: src.QuantityAvailable}
		}
		open, err := repos.Transfers.FindOpen(ctx, in.FromWarehouseID, in.ToWarehouseID, in.ProductID)
		if err != nil {
			return err
		}
		if open != nil {
			return fmt.Errorf("%w: traslado %s (%s)", domain.ErrDuplicateRequest, open.ReferenceNumber, open.Status)
		}

		now := uc.now()
		ref, err := nextSequenceReference(ctx, repos, domaininv.TransferPrefix, now)
		if err != nil {
			return err
		}
		t := &entity.StockTransfer{
			ID:                  uuid.New().String(),
			ReferenceNumber:     ref,
			ProductID:           in.ProductID,
			FromWarehouseID:     in.FromWarehouseID,
			ToWarehouseID:       in.ToWarehouseID,
			QuantityTransferred: in.Quantity,
			Status:              entity.TransferPending,
			Notes:               in.Notes,
			InitiatedBy:         in.Actor,
			InitiatedAt:         now,
			UpdatedAt:           now,
		}
		if err := repos.Transfers.Create(ctx, t); err != nil {
			return err
		}
		out = t
		return uc.transition(ctx, repos, t, entity.TransitionInitiated, "", in.Actor, in.Notes, entity.EventTransferInitiated)
	}, attribute.String("product_id", in.ProductID), attribute.Int("quantity", in.Quantity))
	if err != nil {
		return nil, err
	}
	uc.logTransition(out, entity.TransitionInitiated, in.Actor)
	return out, nil
}

// Approve pending -> approved, revalidando disponibilidad en origen.
func (uc *TransferUseCase) Approve(ctx context.Context, transferID, approver string) (*entity.StockTransfer, error) {
	return uc.advance(ctx, "transfer.approve", transferID, approver, entity.TransitionApproved,
		func(ctx context.Context, repos TxRepos, t *entity.StockTransfer) error {
			if t.Status != entity.TransferPending {
				return domain.NewStateError("transfer", t.ID, string(t.Status), "approved")
			}
			src, err := repos.Inventory.GetByProductAndWarehouseForUpdate(ctx, t.ProductID, t.FromWarehouseID)
			if err != nil {
				return err
			}
			if src == nil {
				return fmt.Errorf("%w: inventario de origen", domain.ErrNotFound)
			}
			if t.QuantityTransferred > src.QuantityAvailable {
				return &domain.AvailabilityError{Requested: t.QuantityTransferred, Available: src.QuantityAvailable}
			}
			now := uc.now()
			t.Status = entity.TransferApproved
			t.ApprovedBy = approver
			t.ApprovedAt = &now
			return nil
		})
}

// MarkInTransit approved -> in_transit: descuenta la cantidad del origen.
func (uc *TransferUseCase) MarkInTransit(ctx context.Context, transferID, actor string) (*entity.StockTransfer, error) {
	return uc.advance(ctx, "transfer.ship", transferID, actor, entity.TransitionInTransit,
		func(ctx context.Context, repos TxRepos, t *entity.StockTransfer) error {
			if t.Status != entity.TransferApproved {
				return domain.NewStateError("transfer", t.ID, string(t.Status), "shipped")
			}
			src, err := repos.Inventory.GetByProductAndWarehouseForUpdate(ctx, t.ProductID, t.FromWarehouseID)
			if err != nil {
				return err
			}
			if src == nil {
				return fmt.Errorf("%w: inventario de origen", domain.ErrNotFound)
			}
			now := uc.now()
			if err := uc.applyDelta(ctx, repos, src, entity.MovementTransferOut, -t.QuantityTransferred, t, "", actor); err != nil {
				return err
			}
			t.Status = entity.TransferInTransit
			t.ShippedBy = actor
			t.ShippedAt = &now
			return nil
		})
}

// Complete in_transit -> completed: acredita el destino, creándolo en cero si no existe.
func (uc *TransferUseCase) Complete(ctx context.Context, transferID, actor string) (*entity.StockTransfer, error) {
	return uc.advance(ctx, "transfer.complete", transferID, actor, entity.TransitionCompleted,
		func(ctx context.Context, repos TxRepos, t *entity.StockTransfer) error {
			if t.Status != entity.TransferInTransit {
				return domain.NewStateError("transfer", t.ID, string(t.Status), "completed")
			}
			now := uc.now()
			dst, err := repos.Inventory.GetByProductAndWarehouseForUpdate(ctx, t.ProductID, t.ToWarehouseID)
			if err != nil {
				return err
			}
			if dst == nil {
				dst, err = entity.NewInventory(uuid.New().String(), t.ProductID, t.ToWarehouseID, 0, 0, now)
				if err != nil {
					return err
				}
				if err := repos.Inventory.Create(ctx, dst); err != nil {
					return err
				}
			}
			if err := uc.applyDelta(ctx, repos, dst, entity.MovementTransferIn, t.QuantityTransferred, t, "", actor); err != nil {
				return err
			}
			t.Status = entity.TransferCompleted
			t.CompletedBy = actor
			t.CompletedAt = &now
			return nil
		})
}

// Cancel cancela un traslado no terminal. Si estaba en tránsito devuelve la cantidad al origen
// en la misma transacción (compensación).
func (uc *TransferUseCase) Cancel(ctx context.Context, transferID, reason, actor string) (*entity.StockTransfer, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, fmt.Errorf("%w: motivo de cancelación requerido", domain.ErrInvalidInput)
	}
	return uc.advance(ctx, "transfer.cancel", transferID, actor, entity.TransitionCancelled,
		func(ctx context.Context, repos TxRepos, t *entity.StockTransfer) error {
			if !t.Status.Cancellable() {
				return domain.NewStateError("transfer", t.ID, string(t.Status), "cancelled")
			}
			if t.Status == entity.TransferInTransit {
				src, err := repos.Inventory.GetByProductAndWarehouseForUpdate(ctx, t.ProductID, t.FromWarehouseID)
				if err != nil {
					return err
				}
				if src == nil {
					return fmt.Errorf("%w: inventario de origen", domain.ErrNotFound)
				}
				if err := uc.applyDelta(ctx, repos, src, entity.MovementTransferIn, t.QuantityTransferred, t,
					"Compensación por cancelación: "+reason, actor); err != nil {
					return err
				}
			}
			now := uc.now()
			t.Status = entity.TransferCancelled
			t.CancelledBy = actor
			t.CancellationReason = reason
			t.CancelledAt = &now
			return nil
		})
}

// Get devuelve un traslado por ID.
func (uc *TransferUseCase) Get(ctx context.Context, transferID string) (*entity.StockTransfer, error) {
	var out *entity.StockTransfer
	err := uc.run(ctx, "transfer.get", func(ctx context.Context, repos TxRepos) error {
		t, err := repos.Transfers.GetByID(ctx, transferID)
		if err != nil {
			return err
		}
		if t == nil {
			return domain.ErrNotFound
		}
		out = t
		return nil
	})
	return out, err
}

// History bitácora de transiciones del traslado en orden cronológico.
func (uc *TransferUseCase) History(ctx context.Context, transferID string) ([]*entity.StockTransferLog, error) {
	var out []*entity.StockTransferLog
	err := uc.run(ctx, "transfer.history", func(ctx context.Context, repos TxRepos) error {
		t, err := repos.Transfers.GetByID(ctx, transferID)
		if err != nil {
			return err
		}
		if t == nil {
			return domain.ErrNotFound
		}
		out, err = repos.Transfers.ListLogs(ctx, transferID)
		return err
	})
	return out, err
}

// advance bloquea el traslado, ejecuta step (que valida el estado y aplica efectos) y persiste
// traslado, bitácora y evento en la misma transacción.
func (uc *TransferUseCase) advance(
	ctx context.Context, op, transferID, actor, transition string,
	step func(ctx context.Context, repos TxRepos, t *entity.StockTransfer) error,
) (*entity.StockTransfer, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if transferID == "" {
		return nil, domain.ErrInvalidInput
	}
	var out *entity.StockTransfer
	err := uc.run(ctx, op, func(ctx context.Context, repos TxRepos) error {
		t, err := repos.Transfers.GetByIDForUpdate(ctx, transferID)
		if err != nil {
			return err
		}
		if t == nil {
			return domain.ErrNotFound
		}
		from := t.Status
		if err := step(ctx, repos, t); err != nil {
			return err
		}
		t.UpdatedAt = uc.now()
		if err := repos.Transfers.Update(ctx, t); err != nil {
			return err
		}
		out = t
		return uc.transition(ctx, repos, t, transition, from, actor, t.CancellationReason, transferEventTypes[transition])
	}, attribute.String("transfer_id", transferID))
	if err != nil {
		return nil, err
	}
	uc.logTransition(out, transition, actor)
	return out, nil
}

var transferEventTypes = map[string]string{
	entity.TransitionInitiated: entity.EventTransferInitiated,
	entity.TransitionApproved:  entity.EventTransferApproved,
	entity.TransitionInTransit: entity.EventTransferInTransit,
	entity.TransitionCompleted: entity.EventTransferCompleted,
	entity.TransitionCancelled: entity.EventTransferCancelled,
}

func (uc *TransferUseCase) transition(
	ctx context.Context, repos TxRepos, t *entity.StockTransfer,
	transition string, from entity.TransferStatus, actor, notes, eventType string,
) error {
	now := uc.now()
	if err := repos.Transfers.AppendLog(ctx, &entity.StockTransferLog{
		ID:              uuid.New().String(),
		TransferID:      t.ID,
		ReferenceNumber: t.ReferenceNumber,
		Transition:      transition,
		FromStatus:      from,
		ToStatus:        t.Status,
		Actor:           actor,
		Notes:           notes,
		OccurredAt:      now,
	}); err != nil {
		return err
	}
	return recordEvent(ctx, repos, eventType, "transfer", t.ID,
		transferEvent{Transfer: dto.NewTransferResponse(t), Actor: actor}, now)
}

func (uc *TransferUseCase) logTransition(t *entity.StockTransfer, transition, actor string) {
	uc.log.Info().
		Str("transfer_id", t.ID).
		Str("reference", t.ReferenceNumber).
		Str("transition", transition).
		Str("status", string(t.Status)).
		Int("quantity", t.QuantityTransferred).
		Str("actor", actor).
		Msg("transición de traslado")
}

// applyDelta mueve on-hand del inventario ya bloqueado y deja el movimiento aplicado de auditoría.
func (uc *TransferUseCase) applyDelta(
	ctx context.Context, repos TxRepos, inv *entity.Inventory,
	mt entity.MovementType, delta int, t *entity.StockTransfer, notes, actor string,
) error {
	before := inv.QuantityAvailable
	if err := inv.ApplyDelta(delta); err != nil {
		return err
	}
	now := uc.now()
	inv.Touch(now)
	if err := repos.Inventory.UpdateQuantities(ctx, inv); err != nil {
		return err
	}
	if notes == "" {
		notes = "Traslado " + t.ReferenceNumber
	}
	return recordAppliedMovement(ctx, repos, inv, mt, delta, before, transferSource, t.ID, notes, actor, now)
}

func validateTransfer(in TransferInput) error {
	if err := requireActor(in.Actor); err != nil {
		return err
	}
	if in.ProductID == "" || in.FromWarehouseID == "" || in.ToWarehouseID == "" {
		return domain.ErrInvalidInput
	}
	if in.FromWarehouseID == in.ToWarehouseID {
		return domain.ErrSameWarehouse
	}
	if in.Quantity <= 0 {
		return fmt.Errorf("%w: la cantidad a trasladar debe ser mayor que cero", domain.ErrInvalidInput)
	}
	return nil
}
