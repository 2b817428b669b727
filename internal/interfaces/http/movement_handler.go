package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// MovementHandler solicitudes de movimiento y su aprobación (protegido).
type MovementHandler struct {
	uc  *inventory.MovementUseCase
	log *logger.Logger
}

// NewMovementHandler construye el handler.
func NewMovementHandler(uc *inventory.MovementUseCase, log *logger.Logger) *MovementHandler {
	return &MovementHandler{uc: uc, log: log}
}

// Create godoc
// @Summary      Registrar movimiento de inventario
// @Description  Los ajustes con valor absoluto menor al umbral se aprueban y aplican de inmediato.
// @Tags         movements
// @Security     Bearer
// @Param        body  body  dto.CreateMovementRequest  true  "product_id, warehouse_id, movement_type, quantity_moved (con signo), unit_cost"
// @Success      201   {object}  dto.MovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/movements [post]
func (h *MovementHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateMovementRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	m, err := h.uc.Create(c.UserContext(), inventory.MovementInput{
		ProductID:   in.ProductID,
		WarehouseID: in.WarehouseID,
		Type:        entity.MovementType(in.Type),
		Quantity:    in.Quantity,
		UnitCost:    in.UnitCost,
		Notes:       in.Notes,
		Actor:       GetUserID(c),
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewMovementResponse(m))
}

// GetByID devuelve un movimiento.
func (h *MovementHandler) GetByID(c *fiber.Ctx) error {
	m, err := h.uc.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.NewMovementResponse(m))
}

// Approve aprueba y aplica un movimiento pendiente.
func (h *MovementHandler) Approve(c *fiber.Ctx) error {
	m, err := h.uc.Approve(c.UserContext(), c.Params("id"), GetUserID(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.NewMovementResponse(m))
}

// Reject rechaza un movimiento pendiente con motivo.
func (h *MovementHandler) Reject(c *fiber.Ctx) error {
	var in dto.RejectRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	m, err := h.uc.Reject(c.UserContext(), c.Params("id"), in.Reason, GetUserID(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.NewMovementResponse(m))
}
