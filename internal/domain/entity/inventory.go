package entity

import (
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain"
)

// Inventory es el registro de cantidades de un producto en una bodega (único por producto+bodega).
// QuantityAvailable siempre se deriva: OnHand - Reserved. Solo los métodos de este tipo lo modifican.
type Inventory struct {
	ID                string
	ProductID         string
	WarehouseID       string
	QuantityOnHand    int
	QuantityReserved  int
	QuantityAvailable int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// NewInventory construye un registro validando cantidades iniciales.
func NewInventory(id, productID, warehouseID string, onHand, reserved int, now time.Time) (*Inventory, error) {
	if productID == "" || warehouseID == "" {
		return nil, domain.ErrInvalidInput
	}
	if onHand < 0 || reserved < 0 || reserved > onHand {
		return nil, domain.ErrNegativeQuantity
	}
	inv := &Inventory{
		ID:               id,
		ProductID:        productID,
		WarehouseID:      warehouseID,
		QuantityOnHand:   onHand,
		QuantityReserved: reserved,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	inv.recompute()
	return inv, nil
}

func (i *Inventory) recompute() {
	i.QuantityAvailable = i.QuantityOnHand - i.QuantityReserved
}

// Reserve aparta qty de lo disponible. Todo o nada.
func (i *Inventory) Reserve(qty int) error {
	if qty <= 0 {
		return domain.ErrInvalidInput
	}
	i.recompute()
	if qty > i.QuantityAvailable {
		return &domain.AvailabilityError{Requested: qty, Available: i.QuantityAvailable}
	}
	i.QuantityReserved += qty
	i.recompute()
	return nil
}

// Release libera hasta qty de lo reservado, sin bajar de cero. Devuelve lo liberado.
func (i *Inventory) Release(qty int) int {
	if qty < 0 {
		qty = 0
	}
	released := qty
	if released > i.QuantityReserved {
		released = i.QuantityReserved
	}
	i.QuantityReserved -= released
	i.recompute()
	return released
}

// SetOnHand sobrescribe la existencia física. Falla si la cantidad o el disponible resultante es negativo.
func (i *Inventory) SetOnHand(qty int) error {
	if qty < 0 || qty < i.QuantityReserved {
		return domain.ErrNegativeQuantity
	}
	i.QuantityOnHand = qty
	i.recompute()
	return nil
}

// ApplyDelta mueve on-hand (y por tanto disponible) en delta. Primitiva de movimientos y traslados.
func (i *Inventory) ApplyDelta(delta int) error {
	onHand := i.QuantityOnHand + delta
	if onHand < 0 || onHand-i.QuantityReserved < 0 {
		return domain.ErrNegativeInventory
	}
	i.QuantityOnHand = onHand
	i.recompute()
	return nil
}

// Touch marca la fecha de actualización.
func (i *Inventory) Touch(now time.Time) {
	i.UpdatedAt = now
}
