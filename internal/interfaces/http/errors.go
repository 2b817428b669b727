package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/pkg/logger"
	"github.com/jhoicas/stock-ledger/pkg/validator"
)

type errorMapping struct {
	target  error
	status  int
	code    string
	message string
}

// Orden importa: los errores más específicos primero.
var errorMappings = []errorMapping{
	{domain.ErrNotFound, fiber.StatusNotFound, "NOT_FOUND", "recurso no encontrado"},
	{domain.ErrInvalidState, fiber.StatusConflict, "INVALID_STATE", "transición de estado no permitida"},
	{domain.ErrDuplicateRequest, fiber.StatusConflict, "DUPLICATE_REQUEST", "ya existe un traslado abierto para este producto y bodegas"},
	{domain.ErrDuplicate, fiber.StatusConflict, "DUPLICATE", "el recurso ya existe"},
	{domain.ErrInsufficientAvailability, fiber.StatusConflict, "INSUFFICIENT_AVAILABILITY", "cantidad disponible insuficiente"},
	{domain.ErrInsufficientInventory, fiber.StatusConflict, "INSUFFICIENT_INVENTORY", "inventario insuficiente"},
	{domain.ErrNegativeInventory, fiber.StatusConflict, "NEGATIVE_INVENTORY", "el inventario resultante sería negativo"},
	{domain.ErrConflict, fiber.StatusConflict, "CONFLICT", "conflicto con el estado actual"},
	{domain.ErrSameWarehouse, fiber.StatusBadRequest, "SAME_WAREHOUSE", "origen y destino deben ser distintos"},
	{domain.ErrNegativeQuantity, fiber.StatusBadRequest, "NEGATIVE_QUANTITY", "las cantidades no pueden ser negativas"},
	{domain.ErrInvalidInput, fiber.StatusBadRequest, "VALIDATION", "datos inválidos"},
}

// respondError traduce errores de dominio a HTTP. Los no reconocidos son 500 y se registran.
func respondError(c *fiber.Ctx, log *logger.Logger, err error) error {
	for _, m := range errorMappings {
		if !errors.Is(err, m.target) {
			continue
		}
		body := dto.ErrorResponse{Code: m.code, Message: m.message}
		var se *domain.StateError
		if errors.As(err, &se) {
			body.CurrentState = se.Current
			body.Message = err.Error()
		}
		var ae *domain.AvailabilityError
		if errors.As(err, &ae) {
			body.Message = ae.Error()
		}
		return c.Status(m.status).JSON(body)
	}
	log.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Msg("error interno")
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: "error interno"})
}

// parseBody decodifica y valida el cuerpo; si falla ya escribió la respuesta 400 y devuelve false.
func parseBody(c *fiber.Ctx, out any) (bool, error) {
	if err := c.BodyParser(out); err != nil {
		return false, c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if errs := validator.ValidateStruct(out); len(errs) > 0 {
		return false, c.Status(fiber.StatusBadRequest).JSON(validationResponse(errs))
	}
	return true, nil
}

func validationResponse(errs []validator.FieldError) dto.ErrorResponse {
	fields := make([]dto.FieldError, 0, len(errs))
	for _, e := range errs {
		fields = append(fields, dto.FieldError{Field: e.Field, Tag: e.Tag, Param: e.Param})
	}
	return dto.ErrorResponse{Code: "VALIDATION", Message: "datos inválidos", Fields: fields}
}

// parsePage lee limit/offset del query string (por defecto 20/0, máximo 100).
func parsePage(c *fiber.Ctx) (dto.PageRequest, bool, error) {
	page := dto.PageRequest{Limit: c.QueryInt("limit", 20), Offset: c.QueryInt("offset", 0)}
	if errs := validator.ValidateStruct(page); len(errs) > 0 {
		return page, false, c.Status(fiber.StatusBadRequest).JSON(validationResponse(errs))
	}
	return page, true, nil
}
