package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// InventoryHandler maneja registros de inventario, sus ajustes e historial (protegido).
type InventoryHandler struct {
	ledger      *inventory.LedgerUseCase
	adjustments *inventory.AdjustmentUseCase
	movements   *inventory.MovementUseCase
	log         *logger.Logger
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(ledger *inventory.LedgerUseCase, adjustments *inventory.AdjustmentUseCase, movements *inventory.MovementUseCase, log *logger.Logger) *InventoryHandler {
	return &InventoryHandler{ledger: ledger, adjustments: adjustments, movements: movements, log: log}
}

// Create godoc
// @Summary      Crear registro de inventario (producto + bodega)
// @Tags         inventory
// @Security     Bearer
// @Param        body  body  dto.CreateInventoryRequest  true  "product_id, warehouse_id, cantidades iniciales"
// @Success      201   {object}  dto.InventoryResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory [post]
func (h *InventoryHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateInventoryRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	inv, err := h.ledger.CreateInventory(c.UserContext(), inventory.CreateInventoryInput{
		ProductID:   in.ProductID,
		WarehouseID: in.WarehouseID,
		OnHand:      in.QuantityOnHand,
		Reserved:    in.QuantityReserved,
		Actor:       GetUserID(c),
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewInventoryResponse(inv))
}

// Find busca por product_id y warehouse_id (query).
func (h *InventoryHandler) Find(c *fiber.Ctx) error {
	inv, err := h.ledger.GetInventory(c.UserContext(), c.Query("product_id"), c.Query("warehouse_id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.NewInventoryResponse(inv))
}

// GetByID godoc
// @Summary      Obtener registro de inventario
// @Tags         inventory
// @Security     Bearer
// @Success      200  {object}  dto.InventoryResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/{id} [get]
func (h *InventoryHandler) GetByID(c *fiber.Ctx) error {
	inv, err := h.ledger.GetInventoryByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.NewInventoryResponse(inv))
}

// Reserve aparta cantidad disponible; todo o nada.
func (h *InventoryHandler) Reserve(c *fiber.Ctx) error {
	var in dto.QuantityRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	inv, err := h.ledger.Reserve(c.UserContext(), c.Params("id"), in.Quantity, GetUserID(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.NewInventoryResponse(inv))
}

// Release libera reserva (nunca por debajo de cero).
func (h *InventoryHandler) Release(c *fiber.Ctx) error {
	var in dto.QuantityRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	inv, err := h.ledger.Release(c.UserContext(), c.Params("id"), in.Quantity, GetUserID(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.NewInventoryResponse(inv))
}

// SetOnHand sobrescribe la existencia física.
func (h *InventoryHandler) SetOnHand(c *fiber.Ctx) error {
	var in dto.SetOnHandRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	inv, err := h.ledger.SetOnHand(c.UserContext(), c.Params("id"), in.QuantityOnHand, GetUserID(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.NewInventoryResponse(inv))
}

// Delete elimina un registro sin reservas.
func (h *InventoryHandler) Delete(c *fiber.Ctx) error {
	if err := h.ledger.DeleteInventory(c.UserContext(), c.Params("id"), GetUserID(c)); err != nil {
		return respondError(c, h.log, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// CreateAdjustment godoc
// @Summary      Aplicar ajuste de inventario
// @Tags         inventory
// @Security     Bearer
// @Param        body  body  dto.CreateAdjustmentRequest  true  "adjustment_type, quantity_adjusted, reason"
// @Success      201   {object}  dto.AdjustmentResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/inventory/{id}/adjustments [post]
func (h *InventoryHandler) CreateAdjustment(c *fiber.Ctx) error {
	var in dto.CreateAdjustmentRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	adj, err := h.adjustments.Apply(c.UserContext(), inventory.AdjustmentInput{
		InventoryID: c.Params("id"),
		Type:        entity.AdjustmentType(in.Type),
		Quantity:    in.Quantity,
		Reason:      entity.AdjustmentReason(in.Reason),
		Notes:       in.Notes,
		Actor:       GetUserID(c),
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewAdjustmentResponse(adj))
}

// ListAdjustments historial de ajustes del registro (más recientes primero).
func (h *InventoryHandler) ListAdjustments(c *fiber.Ctx) error {
	page, ok, err := parsePage(c)
	if !ok {
		return err
	}
	list, err := h.adjustments.ListByInventory(c.UserContext(), c.Params("id"), page)
	if err != nil {
		return respondError(c, h.log, err)
	}
	items := make([]*dto.AdjustmentResponse, 0, len(list))
	for _, a := range list {
		items = append(items, dto.NewAdjustmentResponse(a))
	}
	return c.JSON(fiber.Map{"items": items, "page": dto.PageResponse{Limit: page.Limit, Offset: page.Offset}})
}

// ListMovements historial de movimientos del registro (más recientes primero).
func (h *InventoryHandler) ListMovements(c *fiber.Ctx) error {
	page, ok, err := parsePage(c)
	if !ok {
		return err
	}
	list, err := h.movements.ListByInventory(c.UserContext(), c.Params("id"), page)
	if err != nil {
		return respondError(c, h.log, err)
	}
	items := make([]*dto.MovementResponse, 0, len(list))
	for _, m := range list {
		items = append(items, dto.NewMovementResponse(m))
	}
	return c.JSON(fiber.Map{"items": items, "page": dto.PageResponse{Limit: page.Limit, Offset: page.Offset}})
}
