package entity

import "time"

// AdjustmentType dirección del ajuste.
type AdjustmentType string

const (
	AdjustmentIncrease AdjustmentType = "increase"
	AdjustmentDecrease AdjustmentType = "decrease"
)

// Valid indica si el tipo pertenece al conjunto cerrado.
func (t AdjustmentType) Valid() bool {
	return t == AdjustmentIncrease || t == AdjustmentDecrease
}

// AdjustmentReason motivo del ajuste (enum cerrado).
type AdjustmentReason string

const (
	ReasonDamage      AdjustmentReason = "damage"
	ReasonTheft       AdjustmentReason = "theft"
	ReasonFound       AdjustmentReason = "found"
	ReasonExpired     AdjustmentReason = "expired"
	ReasonReturned    AdjustmentReason = "returned"
	ReasonTransferIn  AdjustmentReason = "transfer_in"
	ReasonTransferOut AdjustmentReason = "transfer_out"
	ReasonCorrection  AdjustmentReason = "correction"
	ReasonRecount     AdjustmentReason = "recount"
	ReasonOther       AdjustmentReason = "other"
)

var adjustmentReasons = map[AdjustmentReason]struct{}{
	ReasonDamage: {}, ReasonTheft: {}, ReasonFound: {}, ReasonExpired: {}, ReasonReturned: {},
	ReasonTransferIn: {}, ReasonTransferOut: {}, ReasonCorrection: {}, ReasonRecount: {}, ReasonOther: {},
}

// Valid indica si el motivo pertenece al conjunto cerrado.
func (r AdjustmentReason) Valid() bool {
	_, ok := adjustmentReasons[r]
	return ok
}

// StockAdjustment registro inmutable de una corrección aplicada a un Inventory.
type StockAdjustment struct {
	ID               string
	InventoryID      string
	ReferenceNumber  string
	Type             AdjustmentType
	QuantityAdjusted int // siempre positivo
	QuantityBefore   int
	QuantityAfter    int
	Reason           AdjustmentReason
	Notes            string
	AdjustedBy       string
	AdjustedAt       time.Time
}
