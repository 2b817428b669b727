package http

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/metrics"
	"github.com/jhoicas/stock-ledger/pkg/jwt"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Ledger      *inventory.LedgerUseCase
	Adjustments *inventory.AdjustmentUseCase
	Movements   *inventory.MovementUseCase
	Transfers   *inventory.TransferUseCase
	Metrics     *metrics.Metrics // opcional
	Health      func(ctx context.Context) error
	JWTSecret   string
	ServiceName string
	Log         *logger.Logger
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	log = log.Component("http")

	app.Use(tracingMiddleware())
	if deps.Metrics != nil {
		app.Use(deps.Metrics.Middleware())
		app.Get("/metrics", deps.Metrics.Handler())
	}

	// Health (público)
	app.Get("/health", func(c *fiber.Ctx) error {
		if deps.Health != nil {
			if err := deps.Health(c.UserContext()); err != nil {
				log.Warn().Err(err).Msg("health check fallido")
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable", "service": deps.ServiceName})
			}
		}
		return c.JSON(fiber.Map{"status": "ok", "service": deps.ServiceName})
	})

	// Rutas protegidas (requieren Bearer Token); el usuario del token es el actor.
	api := app.Group("/api", AuthMiddleware(deps.JWTSecret))
	approvers := RequireRole(jwt.RoleAdmin, jwt.RoleSupervisor)

	invGroup := api.Group("/inventory")
	inventoryHandler := NewInventoryHandler(deps.Ledger, deps.Adjustments, deps.Movements, log)
	invGroup.Post("/", inventoryHandler.Create)
	invGroup.Get("/", inventoryHandler.Find)
	invGroup.Get("/:id", inventoryHandler.GetByID)
	invGroup.Post("/:id/reserve", inventoryHandler.Reserve)
	invGroup.Post("/:id/release", inventoryHandler.Release)
	invGroup.Put("/:id/on-hand", inventoryHandler.SetOnHand)
	invGroup.Delete("/:id", RequireRole(jwt.RoleAdmin), inventoryHandler.Delete)
	invGroup.Post("/:id/adjustments", inventoryHandler.CreateAdjustment)
	invGroup.Get("/:id/adjustments", inventoryHandler.ListAdjustments)
	invGroup.Get("/:id/movements", inventoryHandler.ListMovements)

	movements := api.Group("/movements")
	movementHandler := NewMovementHandler(deps.Movements, log)
	movements.Post("/", movementHandler.Create)
	movements.Get("/:id", movementHandler.GetByID)
	movements.Post("/:id/approve", approvers, movementHandler.Approve)
	movements.Post("/:id/reject", approvers, movementHandler.Reject)

	transfers := api.Group("/transfers")
	transferHandler := NewTransferHandler(deps.Transfers, log)
	transfers.Post("/", transferHandler.Initiate)
	transfers.Get("/:id", transferHandler.GetByID)
	transfers.Get("/:id/history", transferHandler.History)
	transfers.Post("/:id/approve", approvers, transferHandler.Approve)
	transfers.Post("/:id/ship", transferHandler.Ship)
	transfers.Post("/:id/complete", transferHandler.Complete)
	transfers.Post("/:id/cancel", transferHandler.Cancel)
}

// tracingMiddleware abre un span por request continuando el traceparent entrante.
func tracingMiddleware() fiber.Handler {
	tracer := otel.Tracer("github.com/jhoicas/stock-ledger/internal/interfaces/http")
	return func(c *fiber.Ctx) error {
		header := http.Header{}
		c.Request().Header.VisitAll(func(k, v []byte) {
			header.Add(string(k), string(v))
		})
		ctx := otel.GetTextMapPropagator().Extract(c.UserContext(), propagation.HeaderCarrier(header))
		ctx, span := tracer.Start(ctx, c.Method()+" "+c.Path(), trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()
		c.SetUserContext(ctx)

		err := c.Next()
		status := c.Response().StatusCode()
		span.SetAttributes(
			attribute.String("http.route", c.Route().Path),
			attribute.Int("http.status_code", status),
		)
		if err != nil || status >= fiber.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
		return err
	}
}
