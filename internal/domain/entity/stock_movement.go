package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// MovementType motivo de negocio del movimiento (enum cerrado).
type MovementType string

const (
	MovementAdjustmentIncrease MovementType = "adjustment_increase"
	MovementAdjustmentDecrease MovementType = "adjustment_decrease"
	MovementTransferIn         MovementType = "transfer_in"
	MovementTransferOut        MovementType = "transfer_out"
	MovementPurchaseReceive    MovementType = "purchase_receive"
	MovementSaleFulfill        MovementType = "sale_fulfill"
	MovementReturnCustomer     MovementType = "return_customer"
	MovementReturnSupplier     MovementType = "return_supplier"
	MovementDamageWriteOff     MovementType = "damage_writeoff"
	MovementExpiryWriteOff     MovementType = "expiry_writeoff"
)

// +1 entrada, -1 salida.
var movementDirections = map[MovementType]int{
	MovementAdjustmentIncrease: 1,
	MovementAdjustmentDecrease: -1,
	MovementTransferIn:         1,
	MovementTransferOut:        -1,
	MovementPurchaseReceive:    1,
	MovementSaleFulfill:        -1,
	MovementReturnCustomer:     1,
	MovementReturnSupplier:     -1,
	MovementDamageWriteOff:     -1,
	MovementExpiryWriteOff:     -1,
}

// Valid indica si el tipo pertenece al conjunto cerrado.
func (t MovementType) Valid() bool {
	_, ok := movementDirections[t]
	return ok
}

// Direction devuelve +1 para entradas y -1 para salidas (0 si el tipo es desconocido).
func (t MovementType) Direction() int {
	return movementDirections[t]
}

// IsAdjustment indica si el tipo es un ajuste (candidato a auto-aprobación).
func (t MovementType) IsAdjustment() bool {
	return t == MovementAdjustmentIncrease || t == MovementAdjustmentDecrease
}

// MovementStatus estado del movimiento: pending -> approved -> applied | rejected.
type MovementStatus string

const (
	MovementPending  MovementStatus = "pending"
	MovementApproved MovementStatus = "approved"
	MovementRejected MovementStatus = "rejected"
	MovementApplied  MovementStatus = "applied"
)

// IsTerminal applied y rejected no admiten más transiciones.
func (s MovementStatus) IsTerminal() bool {
	return s == MovementApplied || s == MovementRejected
}

// StockMovement solicitud de cambio de inventario con ciclo de vida y aprobación.
type StockMovement struct {
	ID              string
	ReferenceNumber string
	InventoryID     string
	ProductID       string
	WarehouseID     string
	Type            MovementType
	QuantityMoved   int // con signo
	QuantityBefore  int
	QuantityAfter   int
	UnitCost        decimal.Decimal
	TotalValue      decimal.Decimal // QuantityMoved * UnitCost
	Status          MovementStatus
	SourceType      string // transfer, purchase_order, ... (vacío si es manual)
	SourceID        string
	Notes           string
	CreatedBy       string
	ApprovedBy      string
	ApprovedAt      *time.Time
	AppliedAt       *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
