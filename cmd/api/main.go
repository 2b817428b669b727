package main

import (
	"context"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/stock-ledger/docs"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/kafka"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/metrics"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/observability"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/stock-ledger/internal/interfaces/http"
	"github.com/jhoicas/stock-ledger/pkg/config"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("auto_approve_threshold", cfg.Ledger.AutoApproveThreshold.String()).
		Msg("iniciando aplicación")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.App, cfg.Telemetry)
	if err != nil {
		log.Fatal().Err(err).Msg("configurar trazas")
	}

	if cfg.DB.AutoMigrate {
		if err := migrateUp(cfg.DB); err != nil {
			log.Fatal().Err(err).Msg("migraciones")
		}
		log.Info().Msg("esquema actualizado")
	}

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	if cfg.JWT.Secret == "" {
		log.Warn().Msg("JWT_SECRET vacío: todas las rutas /api responderán 401")
	}

	m := metrics.New("stock_ledger")
	opts := []inventory.Option{inventory.WithObserver(m)}

	txRunner := postgres.NewTxRunner(pool)
	ledgerUC := inventory.NewLedgerUseCase(txRunner, log, opts...)
	adjustmentUC := inventory.NewAdjustmentUseCase(txRunner, log, opts...)
	movementUC := inventory.NewMovementUseCase(txRunner, log, cfg.Ledger.AutoApproveThreshold, opts...)
	transferUC := inventory.NewTransferUseCase(txRunner, log, opts...)

	// Procesos en segundo plano: relay del outbox y consumidor de órdenes (solo con Kafka).
	var workers sync.WaitGroup
	var closers []func() error
	if cfg.Kafka.Enabled {
		publisher := kafka.NewPublisher(kafka.NewWriter(cfg.Kafka.Brokers, cfg.Kafka.LedgerTopic))
		relay := inventory.NewOutboxRelay(txRunner, publisher, cfg.Outbox.Interval, cfg.Outbox.BatchSize, log, opts...)

		fulfillmentUC := inventory.NewFulfillmentUseCase(txRunner, ledgerUC, movementUC, log, opts...)
		reader := kafka.NewReader(cfg.Kafka.Brokers, cfg.Kafka.FulfillmentTopic, cfg.Kafka.GroupID)
		consumer := kafka.NewFulfillmentConsumer(reader, fulfillmentUC, log)
		closers = append(closers, publisher.Close, consumer.Close)

		workers.Add(2)
		go func() {
			defer workers.Done()
			relay.Start(ctx)
		}()
		go func() {
			defer workers.Done()
			if err := consumer.Run(ctx); err != nil {
				log.Error().Err(err).Msg("consumidor de fulfillment finalizado")
			}
		}()
	} else {
		log.Warn().Msg("kafka deshabilitado: los eventos quedan pendientes en el outbox")
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: docs.FilePath,
		Path:     "docs",
		Title:    docs.SwaggerInfo.Title,
	}))

	httpRouter.Router(app, httpRouter.RouterDeps{
		Ledger:      ledgerUC,
		Adjustments: adjustmentUC,
		Movements:   movementUC,
		Transfers:   transferUC,
		Metrics:     m,
		Health:      pool.Ping,
		JWTSecret:   cfg.JWT.Secret,
		ServiceName: cfg.App.Name,
		Log:         log,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}
	workers.Wait()
	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			log.Error().Err(err).Msg("cerrando cliente kafka")
		}
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado de trazas")
	}

	log.Info().Msg("aplicación detenida")
}

func migrateUp(cfg config.DBConfig) error {
	mg, err := postgres.NewMigrator(cfg)
	if err != nil {
		return err
	}
	defer mg.Close()
	return mg.Up()
}
