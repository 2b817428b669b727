package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// FulfillmentActor actor usado cuando el evento de órdenes no trae uno.
const FulfillmentActor = "system:order-management"

// FulfillmentUseCase aplica eventos de gestión de órdenes al ledger de forma idempotente:
// cada event_id se registra en el inbox dentro de la misma transacción que su efecto.
type FulfillmentUseCase struct {
	engine
	ledger    *LedgerUseCase
	movements *MovementUseCase
}

// NewFulfillmentUseCase construye el caso de uso reutilizando las operaciones del ledger y de movimientos.
func NewFulfillmentUseCase(txRunner TxRunner, ledger *LedgerUseCase, movements *MovementUseCase, log *logger.Logger, opts ...Option) *FulfillmentUseCase {
	return &FulfillmentUseCase{
		engine:    newEngine(txRunner, log, "fulfillment", opts),
		ledger:    ledger,
		movements: movements,
	}
}

// Handle procesa un evento. Un evento repetido devuelve domain.ErrAlreadyProcessed sin efectos;
// cualquier otro error deja el inbox sin registrar y el evento puede reintentarse.
//   - sales_order.reserved: reserva la cantidad.
//   - sales_order.released: libera la reserva.
//   - sales_order.fulfilled: libera la reserva y descuenta on-hand.
//   - purchase_order.received: crea un movimiento purchase_receive pendiente de aprobación.
func (uc *FulfillmentUseCase) Handle(ctx context.Context, ev entity.FulfillmentEvent) error {
	if ev.EventID == "" || ev.ProductID == "" || ev.WarehouseID == "" {
		return fmt.Errorf("%w: evento incompleto", domain.ErrInvalidInput)
	}
	if ev.Quantity <= 0 {
		return fmt.Errorf("%w: cantidad del evento debe ser mayor que cero", domain.ErrInvalidInput)
	}
	unitCost := decimal.Zero
	if ev.UnitCost != "" {
		c, err := decimal.NewFromString(ev.UnitCost)
		if err != nil {
			return fmt.Errorf("%w: unit_cost %q", domain.ErrInvalidInput, ev.UnitCost)
		}
		unitCost = c
	}
	actor := ev.Actor
	if actor == "" {
		actor = FulfillmentActor
	}

	err := uc.run(ctx, "fulfillment.handle", func(ctx context.Context, repos TxRepos) error {
		if err := repos.Inbox.Insert(ctx, ev.EventID, ev.Type); err != nil {
			return err
		}
		switch ev.Type {
		case entity.FulfillmentReserved, entity.FulfillmentReleased, entity.FulfillmentFulfilled:
			inv, err := repos.Inventory.GetByProductAndWarehouseForUpdate(ctx, ev.ProductID, ev.WarehouseID)
			if err != nil {
				return err
			}
			if inv == nil {
				return domain.ErrNotFound
			}
			switch ev.Type {
			case entity.FulfillmentReserved:
				return uc.ledger.reserveLocked(ctx, repos, inv, ev.Quantity, actor)
			case entity.FulfillmentReleased:
				return uc.ledger.releaseLocked(ctx, repos, inv, ev.Quantity, actor)
			default:
				return uc.ledger.fulfillLocked(ctx, repos, inv, ev.Quantity, actor)
			}
		case entity.FulfillmentPurchaseReceived:
			in := MovementInput{
				ProductID:   ev.ProductID,
				WarehouseID: ev.WarehouseID,
				Type:        entity.MovementPurchaseReceive,
				Quantity:    ev.Quantity,
				UnitCost:    unitCost,
				SourceType:  "purchase_order",
				SourceID:    ev.OrderID,
				Notes:       "Recepción de orden de compra " + ev.OrderID,
				Actor:       actor,
			}
			if err := validateMovement(in); err != nil {
				return err
			}
			_, err := uc.movements.createTx(ctx, repos, in)
			return err
		default:
			return fmt.Errorf("%w: tipo de evento %q", domain.ErrInvalidInput, ev.Type)
		}
	}, attribute.String("event_id", ev.EventID), attribute.String("event_type", ev.Type))

	switch {
	case errors.Is(err, domain.ErrAlreadyProcessed):
		uc.log.Debug().Str("event_id", ev.EventID).Str("type", ev.Type).Msg("evento ya procesado, se omite")
	case err == nil:
		uc.log.Info().
			Str("event_id", ev.EventID).
			Str("type", ev.Type).
			Str("order_id", ev.OrderID).
			Int("quantity", ev.Quantity).
			Msg("evento de órdenes aplicado")
	}
	return err
}
