package http

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// TransferHandler traslados entre bodegas (protegido).
type TransferHandler struct {
	uc  *inventory.TransferUseCase
	log *logger.Logger
}

// NewTransferHandler construye el handler.
func NewTransferHandler(uc *inventory.TransferUseCase, log *logger.Logger) *TransferHandler {
	return &TransferHandler{uc: uc, log: log}
}

// Initiate godoc
// @Summary      Iniciar traslado entre bodegas
// @Tags         transfers
// @Security     Bearer
// @Param        body  body  dto.InitiateTransferRequest  true  "from_warehouse_id, to_warehouse_id, product_id, quantity_transferred"
// @Success      201   {object}  dto.TransferResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/transfers [post]
func (h *TransferHandler) Initiate(c *fiber.Ctx) error {
	var in dto.InitiateTransferRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	t, err := h.uc.Initiate(c.UserContext(), inventory.TransferInput{
		ProductID:       in.ProductID,
		FromWarehouseID: in.FromWarehouseID,
		ToWarehouseID:   in.ToWarehouseID,
		Quantity:        in.Quantity,
		Notes:           in.Notes,
		Actor:           GetUserID(c),
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewTransferResponse(t))
}

// GetByID devuelve un traslado.
func (h *TransferHandler) GetByID(c *fiber.Ctx) error {
	t, err := h.uc.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.NewTransferResponse(t))
}

// History bitácora de transiciones en orden cronológico.
func (h *TransferHandler) History(c *fiber.Ctx) error {
	logs, err := h.uc.History(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"items": dto.NewTransferLogResponses(logs)})
}

// Approve pending -> approved.
func (h *TransferHandler) Approve(c *fiber.Ctx) error {
	return h.transition(c, h.uc.Approve)
}

// Ship approved -> in_transit; descuenta el origen.
func (h *TransferHandler) Ship(c *fiber.Ctx) error {
	return h.transition(c, h.uc.MarkInTransit)
}

// Complete in_transit -> completed; acredita el destino.
func (h *TransferHandler) Complete(c *fiber.Ctx) error {
	return h.transition(c, h.uc.Complete)
}

// Cancel cancela con motivo; si estaba en tránsito devuelve la cantidad al origen.
func (h *TransferHandler) Cancel(c *fiber.Ctx) error {
	var in dto.CancelTransferRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	t, err := h.uc.Cancel(c.UserContext(), c.Params("id"), in.Reason, GetUserID(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.NewTransferResponse(t))
}

type transitionFunc func(ctx context.Context, transferID, actor string) (*entity.StockTransfer, error)

func (h *TransferHandler) transition(c *fiber.Ctx, fn transitionFunc) error {
	t, err := fn(c.UserContext(), c.Params("id"), GetUserID(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.NewTransferResponse(t))
}
