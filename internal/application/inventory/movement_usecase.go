package inventory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	domaininv "github.com/jhoicas/stock-ledger/internal/domain/inventory"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// AutoApprover aprobador registrado cuando un ajuste de bajo valor se aprueba solo.
const AutoApprover = "system:auto-approval"

// MovementUseCase ciclo de vida de movimientos: pending -> approved -> applied, o pending -> rejected.
// El inventario solo cambia al aplicar; aprobar y aplicar ocurren en la misma transacción.
type MovementUseCase struct {
	engine
	threshold decimal.Decimal
}

// NewMovementUseCase construye el caso de uso. threshold negativo usa el valor por defecto (100);
// threshold cero desactiva la auto-aprobación.
func NewMovementUseCase(txRunner TxRunner, log *logger.Logger, threshold decimal.Decimal, opts ...Option) *MovementUseCase {
	if threshold.IsNegative() {
		threshold = domaininv.DefaultAutoApproveThreshold
	}
	return &MovementUseCase{engine: newEngine(txRunner, log, "movements", opts), threshold: threshold}
}

// MovementInput entrada para crear un movimiento. Quantity lleva signo y debe coincidir con la dirección del tipo.
type MovementInput struct {
	ProductID   string
	WarehouseID string
	Type        entity.MovementType
	Quantity    int
	UnitCost    decimal.Decimal
	Notes       string
	SourceType  string
	SourceID    string
	Actor       string
}

type movementEvent struct {
	Movement  *dto.MovementResponse  `json:"movement"`
	Inventory *dto.InventoryResponse `json:"inventory,omitempty"`
}

// Create registra el movimiento en pending. Los ajustes con |valor| < threshold se aprueban
// y aplican de inmediato dentro de la misma transacción.
func (uc *MovementUseCase) Create(ctx context.Context, in MovementInput) (*entity.StockMovement, error) {
	if err := validateMovement(in); err != nil {
		return nil, err
	}
	var out *entity.StockMovement
	err := uc.run(ctx, "movement.create", func(ctx context.Context, repos TxRepos) error {
		m, err := uc.createTx(ctx, repos, in)
		out = m
		return err
	}, attribute.String("movement_type", string(in.Type)), attribute.Int("quantity", in.Quantity))
	if err != nil {
		return nil, err
	}
	uc.logMovement(out, "movimiento registrado")
	return out, nil
}

// Approve aprueba y aplica un movimiento pendiente. ErrNegativeInventory revierte la aprobación.
func (uc *MovementUseCase) Approve(ctx context.Context, movementID, approver string) (*entity.StockMovement, error) {
	if err := requireActor(approver); err != nil {
		return nil, err
	}
	var out *entity.StockMovement
	err := uc.run(ctx, "movement.approve", func(ctx context.Context, repos TxRepos) error {
		m, err := lockMovement(ctx, repos, movementID)
		if err != nil {
			return err
		}
		if m.Status != entity.MovementPending {
			return domain.NewStateError("movement", m.ID, string(m.Status), "approved")
		}
		inv, err := repos.Inventory.GetByIDForUpdate(ctx, m.InventoryID)
		if err != nil {
			return err
		}
		if inv == nil {
			return domain.ErrNotFound
		}
		if err := uc.approveLocked(ctx, repos, m, inv, approver); err != nil {
			return err
		}
		out = m
		return nil
	}, attribute.String("movement_id", movementID))
	if err != nil {
		return nil, err
	}
	uc.logMovement(out, "movimiento aplicado")
	return out, nil
}

// Reject rechaza un movimiento pendiente. El inventario no cambia.
func (uc *MovementUseCase) Reject(ctx context.Context, movementID, reason, approver string) (*entity.StockMovement, error) {
	if err := requireActor(approver); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, fmt.Errorf("%w: motivo de rechazo requerido", domain.ErrInvalidInput)
	}
	var out *entity.StockMovement
	err := uc.run(ctx, "movement.reject", func(ctx context.Context, repos TxRepos) error {
		m, err := lockMovement(ctx, repos, movementID)
		if err != nil {
			return err
		}
		if m.Status != entity.MovementPending {
			return domain.NewStateError("movement", m.ID, string(m.Status), "rejected")
		}
		now := uc.now()
		m.Status = entity.MovementRejected
		m.ApprovedBy = approver
		m.ApprovedAt = &now
		m.Notes = appendNote(m.Notes, "Rechazado: "+reason)
		m.UpdatedAt = now
		if err := repos.Movements.UpdateStatus(ctx, m); err != nil {
			return err
		}
		out = m
		return recordEvent(ctx, repos, entity.EventMovementRejected, "movement", m.ID,
			movementEvent{Movement: dto.NewMovementResponse(m)}, now)
	}, attribute.String("movement_id", movementID))
	if err != nil {
		return nil, err
	}
	uc.logMovement(out, "movimiento rechazado")
	return out, nil
}

// Get devuelve un movimiento por ID.
func (uc *MovementUseCase) Get(ctx context.Context, movementID string) (*entity.StockMovement, error) {
	var out *entity.StockMovement
	err := uc.run(ctx, "movement.get", func(ctx context.Context, repos TxRepos) error {
		m, err := repos.Movements.GetByID(ctx, movementID)
		if err != nil {
			return err
		}
		if m == nil {
			return domain.ErrNotFound
		}
		out = m
		return nil
	})
	return out, err
}

// ListByInventory historial de movimientos de un inventario (más recientes primero).
func (uc *MovementUseCase) ListByInventory(ctx context.Context, inventoryID string, page dto.PageRequest) ([]*entity.StockMovement, error) {
	limit, offset := pageBounds(page)
	var out []*entity.StockMovement
	err := uc.run(ctx, "movement.list", func(ctx context.Context, repos TxRepos) error {
		list, err := repos.Movements.ListByInventory(ctx, inventoryID, limit, offset)
		out = list
		return err
	})
	return out, err
}

// createTx crea el movimiento dentro de la transacción del caller.
func (uc *MovementUseCase) createTx(ctx context.Context, repos TxRepos, in MovementInput) (*entity.StockMovement, error) {
	inv, err := repos.Inventory.GetByProductAndWarehouseForUpdate(ctx, in.ProductID, in.WarehouseID)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, domain.ErrNotFound
	}
	before := inv.QuantityAvailable
	after := before + in.Quantity
	if after < 0 {
		return nil, fmt.Errorf("%w: disponible %d, movimiento %d", domain.ErrInsufficientInventory, before, in.Quantity)
	}

	now := uc.now()
	ref, err := nextSequenceReference(ctx, repos, domaininv.MovementPrefix, now)
	if err != nil {
		return nil, err
	}
	m := &entity.StockMovement{
		ID:              uuid.New().String(),
		ReferenceNumber: ref,
		InventoryID:     inv.ID,
		ProductID:       inv.ProductID,
		WarehouseID:     inv.WarehouseID,
		Type:            in.Type,
		QuantityMoved:   in.Quantity,
		QuantityBefore:  before,
		QuantityAfter:   after,
		UnitCost:        in.UnitCost,
		TotalValue:      domaininv.TotalValue(in.Quantity, in.UnitCost),
		Status:          entity.MovementPending,
		SourceType:      in.SourceType,
		SourceID:        in.SourceID,
		Notes:           in.Notes,
		CreatedBy:       in.Actor,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := repos.Movements.Create(ctx, m); err != nil {
		return nil, err
	}
	if err := recordEvent(ctx, repos, entity.EventMovementCreated, "movement", m.ID,
		movementEvent{Movement: dto.NewMovementResponse(m)}, now); err != nil {
		return nil, err
	}

	if domaininv.QualifiesForAutoApproval(m.Type, m.TotalValue, uc.threshold) {
		if err := uc.approveLocked(ctx, repos, m, inv, AutoApprover); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// approveLocked pending -> approved -> applied con inventario y movimiento ya bloqueados.
func (uc *MovementUseCase) approveLocked(ctx context.Context, repos TxRepos, m *entity.StockMovement, inv *entity.Inventory, approver string) error {
	if m.Status != entity.MovementPending {
		return domain.NewStateError("movement", m.ID, string(m.Status), "approved")
	}
	now := uc.now()
	m.Status = entity.MovementApproved
	m.ApprovedBy = approver
	m.ApprovedAt = &now
	m.UpdatedAt = now
	if err := repos.Movements.UpdateStatus(ctx, m); err != nil {
		return err
	}

	// QuantityBefore/After quedan como se registraron al crear; si el disponible cambió
	// mientras estaba pendiente, lo aplicado se anota aparte.
	appliedBefore := inv.QuantityAvailable
	if err := inv.ApplyDelta(m.QuantityMoved); err != nil {
		return err
	}
	appliedAfter := inv.QuantityAvailable
	inv.Touch(now)
	if err := repos.Inventory.UpdateQuantities(ctx, inv); err != nil {
		return err
	}
	if appliedBefore != m.QuantityBefore || appliedAfter != m.QuantityAfter {
		m.Notes = appendNote(m.Notes, fmt.Sprintf("aplicado sobre disponible %d -> %d", appliedBefore, appliedAfter))
	}

	m.Status = entity.MovementApplied
	m.AppliedAt = &now
	if err := repos.Movements.UpdateStatus(ctx, m); err != nil {
		return err
	}
	return recordEvent(ctx, repos, entity.EventMovementApplied, "movement", m.ID,
		movementEvent{Movement: dto.NewMovementResponse(m), Inventory: dto.NewInventoryResponse(inv)}, now)
}

func (uc *MovementUseCase) logMovement(m *entity.StockMovement, msg string) {
	uc.log.Info().
		Str("reference", m.ReferenceNumber).
		Str("movement_id", m.ID).
		Str("type", string(m.Type)).
		Int("quantity", m.QuantityMoved).
		Str("status", string(m.Status)).
		Str("total_value", m.TotalValue.String()).
		Str("approved_by", m.ApprovedBy).
		Msg(msg)
}

// recordAppliedMovement deja constancia de un cambio ya aplicado al inventario (traslados).
// before es el disponible previo al cambio; inv ya refleja el cambio.
func recordAppliedMovement(
	ctx context.Context, repos TxRepos, inv *entity.Inventory,
	mt entity.MovementType, qty, before int,
	sourceType, sourceID, notes, actor string, now time.Time,
) error {
	ref, err := nextSequenceReference(ctx, repos, domaininv.MovementPrefix, now)
	if err != nil {
		return err
	}
	m := &entity.StockMovement{
		ID:              uuid.New().String(),
		ReferenceNumber: ref,
		InventoryID:     inv.ID,
		ProductID:       inv.ProductID,
		WarehouseID:     inv.WarehouseID,
		Type:            mt,
		QuantityMoved:   qty,
		QuantityBefore:  before,
		QuantityAfter:   inv.QuantityAvailable,
		UnitCost:        decimal.Zero,
		TotalValue:      decimal.Zero,
		Status:          entity.MovementApplied,
		SourceType:      sourceType,
		SourceID:        sourceID,
		Notes:           notes,
		CreatedBy:       actor,
		ApprovedBy:      actor,
		ApprovedAt:      &now,
		AppliedAt:       &now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	return repos.Movements.Create(ctx, m)
}

func lockMovement(ctx context.Context, repos TxRepos, id string) (*entity.StockMovement, error) {
	if id == "" {
		return nil, domain.ErrInvalidInput
	}
	m, err := repos.Movements.GetByIDForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, domain.ErrNotFound
	}
	return m, nil
}

func validateMovement(in MovementInput) error {
	if err := requireActor(in.Actor); err != nil {
		return err
	}
	if in.ProductID == "" || in.WarehouseID == "" {
		return domain.ErrInvalidInput
	}
	if !in.Type.Valid() {
		return fmt.Errorf("%w: tipo de movimiento %q", domain.ErrInvalidInput, in.Type)
	}
	if in.Quantity == 0 {
		return fmt.Errorf("%w: la cantidad del movimiento no puede ser cero", domain.ErrInvalidInput)
	}
	if in.Quantity*in.Type.Direction() < 0 {
		return fmt.Errorf("%w: el signo de la cantidad no corresponde al tipo %s", domain.ErrInvalidInput, in.Type)
	}
	if in.UnitCost.IsNegative() {
		return fmt.Errorf("%w: costo unitario negativo", domain.ErrInvalidInput)
	}
	return nil
}

func appendNote(notes, extra string) string {
	if notes == "" {
		return extra
	}
	return notes + "\n" + extra
}
