package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// CreateInventoryRequest body para POST /api/inventory.
type CreateInventoryRequest struct {
	ProductID        string `json:"product_id" validate:"required,uuid"`
	WarehouseID      string `json:"warehouse_id" validate:"required,uuid"`
	QuantityOnHand   int    `json:"quantity_on_hand" validate:"min=0"`
	QuantityReserved int    `json:"quantity_reserved" validate:"min=0,ltefield=QuantityOnHand"`
}

// QuantityRequest body para reserve/release.
type QuantityRequest struct {
	Quantity int `json:"quantity" validate:"required,gt=0"`
}

// SetOnHandRequest body para PUT /api/inventory/:id/on-hand.
type SetOnHandRequest struct {
	QuantityOnHand int `json:"quantity_on_hand" validate:"min=0"`
}

// InventoryResponse salida de un registro de inventario.
type InventoryResponse struct {
	ID                string    `json:"id"`
	ProductID         string    `json:"product_id"`
	WarehouseID       string    `json:"warehouse_id"`
	QuantityOnHand    int       `json:"quantity_on_hand"`
	QuantityReserved  int       `json:"quantity_reserved"`
	QuantityAvailable int       `json:"quantity_available"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// NewInventoryResponse mapea la entidad a su salida.
func NewInventoryResponse(i *entity.Inventory) *InventoryResponse {
	if i == nil {
		return nil
	}
	return &InventoryResponse{
		ID:                i.ID,
		ProductID:         i.ProductID,
		WarehouseID:       i.WarehouseID,
		QuantityOnHand:    i.QuantityOnHand,
		QuantityReserved:  i.QuantityReserved,
		QuantityAvailable: i.QuantityAvailable,
		CreatedAt:         i.CreatedAt,
		UpdatedAt:         i.UpdatedAt,
	}
}

// CreateAdjustmentRequest body para POST /api/inventory/:id/adjustments.
// Quantity se normaliza a magnitud positiva; Type define la dirección.
type CreateAdjustmentRequest struct {
	Type     string `json:"adjustment_type" validate:"required,oneof=increase decrease"`
	Quantity int    `json:"quantity_adjusted" validate:"required,ne=0"`
	Reason   string `json:"reason" validate:"required,oneof=damage theft found expired returned transfer_in transfer_out correction recount other"`
	Notes    string `json:"notes" validate:"max=1000"`
}

// AdjustmentResponse salida de un ajuste.
type AdjustmentResponse struct {
	ID               string    `json:"id"`
	InventoryID      string    `json:"inventory_id"`
	ReferenceNumber  string    `json:"reference_number"`
	Type             string    `json:"adjustment_type"`
	QuantityAdjusted int       `json:"quantity_adjusted"`
	QuantityBefore   int       `json:"quantity_before"`
	QuantityAfter    int       `json:"quantity_after"`
	Reason           string    `json:"reason"`
	Notes            string    `json:"notes,omitempty"`
	AdjustedBy       string    `json:"adjusted_by"`
	AdjustedAt       time.Time `json:"adjusted_at"`
}

// NewAdjustmentResponse mapea la entidad a su salida.
func NewAdjustmentResponse(a *entity.StockAdjustment) *AdjustmentResponse {
	if a == nil {
		return nil
	}
	return &AdjustmentResponse{
		ID:               a.ID,
		InventoryID:      a.InventoryID,
		ReferenceNumber:  a.ReferenceNumber,
		Type:             string(a.Type),
		QuantityAdjusted: a.QuantityAdjusted,
		QuantityBefore:   a.QuantityBefore,
		QuantityAfter:    a.QuantityAfter,
		Reason:           string(a.Reason),
		Notes:            a.Notes,
		AdjustedBy:       a.AdjustedBy,
		AdjustedAt:       a.AdjustedAt,
	}
}

// CreateMovementRequest body para POST /api/movements.
type CreateMovementRequest struct {
	ProductID   string          `json:"product_id" validate:"required,uuid"`
	WarehouseID string          `json:"warehouse_id" validate:"required,uuid"`
	Type        string          `json:"movement_type" validate:"required"`
	Quantity    int             `json:"quantity_moved" validate:"required,ne=0"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	Notes       string          `json:"notes" validate:"max=1000"`
}

// RejectRequest body para rechazar un movimiento.
type RejectRequest struct {
	Reason string `json:"reason" validate:"required,notblank,max=500"`
}

// MovementResponse salida de un movimiento.
type MovementResponse struct {
	ID              string          `json:"id"`
	ReferenceNumber string          `json:"reference_number"`
	InventoryID     string          `json:"inventory_id"`
	ProductID       string          `json:"product_id"`
	WarehouseID     string          `json:"warehouse_id"`
	Type            string          `json:"movement_type"`
	QuantityMoved   int             `json:"quantity_moved"`
	QuantityBefore  int             `json:"quantity_before"`
	QuantityAfter   int             `json:"quantity_after"`
	UnitCost        decimal.Decimal `json:"unit_cost"`
	TotalValue      decimal.Decimal `json:"total_value"`
	Status          string          `json:"status"`
	SourceType      string          `json:"source_type,omitempty"`
	SourceID        string          `json:"source_id,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	CreatedBy       string          `json:"created_by"`
	ApprovedBy      string          `json:"approved_by,omitempty"`
	ApprovedAt      *time.Time      `json:"approved_at,omitempty"`
	AppliedAt       *time.Time      `json:"applied_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// NewMovementResponse mapea la entidad a su salida.
func NewMovementResponse(m *entity.StockMovement) *MovementResponse {
	if m == nil {
		return nil
	}
	return &MovementResponse{
		ID:              m.ID,
		ReferenceNumber: m.ReferenceNumber,
		InventoryID:     m.InventoryID,
		ProductID:       m.ProductID,
		WarehouseID:     m.WarehouseID,
		Type:            string(m.Type),
		QuantityMoved:   m.QuantityMoved,
		QuantityBefore:  m.QuantityBefore,
		QuantityAfter:   m.QuantityAfter,
		UnitCost:        m.UnitCost,
		TotalValue:      m.TotalValue,
		Status:          string(m.Status),
		SourceType:      m.SourceType,
		SourceID:        m.SourceID,
		Notes:           m.Notes,
		CreatedBy:       m.CreatedBy,
		ApprovedBy:      m.ApprovedBy,
		ApprovedAt:      m.ApprovedAt,
		AppliedAt:       m.AppliedAt,
		CreatedAt:       m.CreatedAt,
	}
}

// InitiateTransferRequest body para POST /api/transfers.
type InitiateTransferRequest struct {
	FromWarehouseID string `json:"from_warehouse_id" validate:"required,uuid"`
	ToWarehouseID   string `json:"to_warehouse_id" validate:"required,uuid"`
	ProductID       string `json:"product_id" validate:"required,uuid"`
	Quantity        int    `json:"quantity_transferred" validate:"required,gt=0"`
	Notes           string `json:"notes" validate:"max=1000"`
}

// CancelTransferRequest body para cancelar un traslado.
type CancelTransferRequest struct {
	Reason string `json:"cancellation_reason" validate:"required,notblank,max=500"`
}

// TransferResponse salida de un traslado.
type TransferResponse struct {
	ID                  string     `json:"id"`
	ReferenceNumber     string     `json:"reference_number"`
	ProductID           string     `json:"product_id"`
	FromWarehouseID     string     `json:"from_warehouse_id"`
	ToWarehouseID       string     `json:"to_warehouse_id"`
	QuantityTransferred int        `json:"quantity_transferred"`
	Status              string     `json:"transfer_status"`
	Notes               string     `json:"notes,omitempty"`
	InitiatedBy         string     `json:"initiated_by"`
	ApprovedBy          string     `json:"approved_by,omitempty"`
	ShippedBy           string     `json:"shipped_by,omitempty"`
	CompletedBy         string     `json:"completed_by,omitempty"`
	CancelledBy         string     `json:"cancelled_by,omitempty"`
	CancellationReason  string     `json:"cancellation_reason,omitempty"`
	InitiatedAt         time.Time  `json:"initiated_at"`
	ApprovedAt          *time.Time `json:"approved_at,omitempty"`
	ShippedAt           *time.Time `json:"shipped_at,omitempty"`
	CompletedAt         *time.Time `json:"completed_at,omitempty"`
	CancelledAt         *time.Time `json:"cancelled_at,omitempty"`
}

// NewTransferResponse mapea la entidad a su salida.
func NewTransferResponse(t *entity.StockTransfer) *TransferResponse {
	if t == nil {
		return nil
	}
	return &TransferResponse{
		ID:                  t.ID,
		ReferenceNumber:     t.ReferenceNumber,
		ProductID:           t.ProductID,
		FromWarehouseID:     t.FromWarehouseID,
		ToWarehouseID:       t.ToWarehouseID,
		QuantityTransferred: t.QuantityTransferred,
		Status:              string(t.Status),
		Notes:               t.Notes,
		InitiatedBy:         t.InitiatedBy,
		ApprovedBy:          t.ApprovedBy,
		ShippedBy:           t.ShippedBy,
		CompletedBy:         t.CompletedBy,
		CancelledBy:         t.CancelledBy,
		CancellationReason:  t.CancellationReason,
		InitiatedAt:         t.InitiatedAt,
		ApprovedAt:          t.ApprovedAt,
		ShippedAt:           t.ShippedAt,
		CompletedAt:         t.CompletedAt,
		CancelledAt:         t.CancelledAt,
	}
}

// TransferLogResponse entrada de la bitácora de un traslado.
type TransferLogResponse struct {
	Transition string    `json:"transition"`
	FromStatus string    `json:"from_status,omitempty"`
	ToStatus   string    `json:"to_status"`
	Actor      string    `json:"actor"`
	Notes      string    `json:"notes,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewTransferLogResponses mapea la bitácora completa.
func NewTransferLogResponses(logs []*entity.StockTransferLog) []TransferLogResponse {
	out := make([]TransferLogResponse, 0, len(logs))
	for _, l := range logs {
		out = append(out, TransferLogResponse{
			Transition: l.Transition,
			FromStatus: string(l.FromStatus),
			ToStatus:   string(l.ToStatus),
			Actor:      l.Actor,
			Notes:      l.Notes,
			OccurredAt: l.OccurredAt,
		})
	}
	return out
}
