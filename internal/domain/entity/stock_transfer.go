package entity

import "time"

// TransferStatus estado del traslado entre bodegas.
type TransferStatus string

const (
	TransferPending   TransferStatus = "pending"
	TransferApproved  TransferStatus = "approved"
	TransferInTransit TransferStatus = "in_transit"
	TransferCompleted TransferStatus = "completed"
	TransferCancelled TransferStatus = "cancelled"
)

// Cancellable pending, approved e in_transit admiten cancelación.
func (s TransferStatus) Cancellable() bool {
	return s == TransferPending || s == TransferApproved || s == TransferInTransit
}

// StockTransfer traslado de un producto entre dos bodegas.
// La salida se descuenta al despachar (in_transit) y la entrada se acredita al completar.
type StockTransfer struct {
	ID                  string
	ReferenceNumber     string
	ProductID           string
	FromWarehouseID     string
	ToWarehouseID       string
	QuantityTransferred int
	Status              TransferStatus
	Notes               string
	InitiatedBy         string
	ApprovedBy          string
	ShippedBy           string
	CompletedBy         string
	CancelledBy         string
	CancellationReason  string
	InitiatedAt         time.Time
	ApprovedAt          *time.Time
	ShippedAt           *time.Time
	CompletedAt         *time.Time
	CancelledAt         *time.Time
	UpdatedAt           time.Time
}

// Transiciones registradas en la bitácora del traslado.
const (
	TransitionInitiated = "initiated"
	TransitionApproved  = "approved"
	TransitionInTransit = "in_transit"
	TransitionCompleted = "completed"
	TransitionCancelled = "cancelled"
)

// StockTransferLog entrada de auditoría por cada transición del traslado.
type StockTransferLog struct {
	ID              string
	TransferID      string
	ReferenceNumber string
	Transition      string
	FromStatus      TransferStatus
	ToStatus        TransferStatus
	Actor           string
	Notes           string
	OccurredAt      time.Time
}
