package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// MessageReader lo que el consumidor necesita de *kafkago.Reader.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// FulfillmentHandler aplica un evento de órdenes al ledger.
type FulfillmentHandler interface {
	Handle(ctx context.Context, ev entity.FulfillmentEvent) error
}

// NewReader reader con commit manual (CommitMessages) para el consumer group.
func NewReader(brokers []string, topic, groupID string) *kafkago.Reader {
	return kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0,
	})
}

// FulfillmentConsumer lee eventos de gestión de órdenes y los aplica con FulfillmentHandler.
// El offset se confirma solo después de procesar; los errores de sistema se reintentan con backoff.
type FulfillmentConsumer struct {
	reader      MessageReader
	handler     FulfillmentHandler
	log         *logger.Logger
	maxAttempts int
	backoff     time.Duration
}

// ConsumerOption configura el consumidor.
type ConsumerOption func(*FulfillmentConsumer)

// WithRetry intentos por mensaje y espera base (se duplica en cada intento).
func WithRetry(maxAttempts int, backoff time.Duration) ConsumerOption {
	return func(c *FulfillmentConsumer) {
		if maxAttempts > 0 {
			c.maxAttempts = maxAttempts
		}
		c.backoff = backoff
	}
}

// NewFulfillmentConsumer construye el consumidor.
func NewFulfillmentConsumer(reader MessageReader, handler FulfillmentHandler, log *logger.Logger, opts ...ConsumerOption) *FulfillmentConsumer {
	if log == nil {
		log = logger.Nop()
	}
	c := &FulfillmentConsumer{
		reader:      reader,
		handler:     handler,
		log:         log.Component("fulfillment-consumer"),
		maxAttempts: 5,
		backoff:     500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run bloquea hasta que ctx se cancela o el reader se cierra.
func (c *FulfillmentConsumer) Run(ctx context.Context) error {
	c.log.Info().Msg("consumidor de fulfillment iniciado")
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				c.log.Info().Msg("consumidor de fulfillment detenido")
				return nil
			}
			if errors.Is(err, io.EOF) {
				return nil // reader cerrado
			}
			c.log.Error().Err(err).Msg("error leyendo de kafka")
			if !sleep(ctx, c.backoff) {
				return nil
			}
			continue
		}

		c.process(extractTraceContext(ctx, msg.Headers), msg)

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.log.Error().Err(err).Int64("offset", msg.Offset).Msg("error confirmando offset")
		}
	}
}

// process nunca bloquea el topic: un mensaje inválido o de negocio rechazado se registra y se salta.
func (c *FulfillmentConsumer) process(ctx context.Context, msg kafkago.Message) {
	var ev entity.FulfillmentEvent
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		c.log.Error().Err(err).
			Int("partition", msg.Partition).
			Int64("offset", msg.Offset).
			Msg("mensaje de fulfillment con JSON inválido")
		return
	}

	wait := c.backoff
	for attempt := 1; ; attempt++ {
		err := c.handler.Handle(ctx, ev)
		switch {
		case err == nil:
			return
		case errors.Is(err, domain.ErrAlreadyProcessed):
			c.log.Debug().Str("event_id", ev.EventID).Msg("evento ya procesado")
			return
		// ErrDuplicate fuera del inbox es un choque de unicidad concurrente: se reintenta.
		case inventory.IsBusinessError(err) && !errors.Is(err, domain.ErrDuplicate):
			c.log.Warn().Err(err).
				Str("event_id", ev.EventID).
				Str("type", ev.Type).
				Msg("evento de fulfillment rechazado")
			return
		case attempt >= c.maxAttempts:
			c.log.Error().Err(err).
				Str("event_id", ev.EventID).
				Int("attempts", attempt).
				Msg("evento de fulfillment descartado tras reintentos")
			return
		}
		c.log.Warn().Err(err).Str("event_id", ev.EventID).Int("attempt", attempt).Msg("reintentando evento de fulfillment")
		if !sleep(ctx, wait) {
			return
		}
		wait *= 2
	}
}

// Close cierra el reader.
func (c *FulfillmentConsumer) Close() error {
	return c.reader.Close()
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
