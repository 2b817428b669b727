package entity

import (
	"encoding/json"
	"time"
)

// Tipos de evento publicados por el ledger (outbox).
const (
	EventInventoryCreated   = "inventory.created"
	EventInventoryReserved  = "inventory.reserved"
	EventInventoryReleased  = "inventory.released"
	EventInventoryOnHandSet = "inventory.on_hand_set"
	EventAdjustmentApplied  = "adjustment.applied"
	EventMovementCreated    = "movement.created"
	EventMovementApplied    = "movement.applied"
	EventMovementRejected   = "movement.rejected"
	EventTransferInitiated  = "transfer.initiated"
	EventTransferApproved   = "transfer.approved"
	EventTransferInTransit  = "transfer.in_transit"
	EventTransferCompleted  = "transfer.completed"
	EventTransferCancelled  = "transfer.cancelled"
)

// EventStatus estado del evento en el outbox.
type EventStatus string

const (
	EventPending  EventStatus = "pending"
	EventProduced EventStatus = "produced"
)

// LedgerEvent evento de dominio guardado en la misma transacción que el cambio que lo origina.
type LedgerEvent struct {
	ID            string
	Type          string
	AggregateType string // inventory, adjustment, movement, transfer
	AggregateID   string
	Payload       json.RawMessage
	Status        EventStatus
	CreatedAt     time.Time
	ProducedAt    *time.Time
}

// Tipos de evento de fulfillment consumidos desde gestión de órdenes.
const (
	FulfillmentReserved         = "sales_order.reserved"
	FulfillmentReleased         = "sales_order.released"
	FulfillmentFulfilled        = "sales_order.fulfilled"
	FulfillmentPurchaseReceived = "purchase_order.received"
)

// FulfillmentEvent mensaje publicado por gestión de órdenes hacia el ledger.
type FulfillmentEvent struct {
	EventID     string    `json:"event_id"`
	Type        string    `json:"type"`
	ProductID   string    `json:"product_id"`
	WarehouseID string    `json:"warehouse_id"`
	Quantity    int       `json:"quantity"`
	OrderID     string    `json:"order_id"`
	UnitCost    string    `json:"unit_cost,omitempty"`
	Actor       string    `json:"actor"`
	OccurredAt  time.Time `json:"occurred_at"`
}
