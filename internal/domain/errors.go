package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound                 = errors.New("recurso no encontrado")
	ErrInvalidInput             = errors.New("entrada inválida")
	ErrDuplicate                = errors.New("recurso duplicado")
	ErrConflict                 = errors.New("conflicto con el estado actual")
	ErrInvalidState             = errors.New("transición de estado inválida")
	ErrDuplicateRequest         = errors.New("ya existe una solicitud pendiente o aprobada equivalente")
	ErrAlreadyProcessed         = errors.New("evento ya procesado")
	ErrSameWarehouse            = errors.New("la bodega de origen y destino no pueden ser la misma")
	ErrInsufficientAvailability = errors.New("cantidad disponible insuficiente")
	ErrInsufficientInventory    = errors.New("inventario insuficiente para el movimiento")
	ErrNegativeInventory        = errors.New("el inventario resultante sería negativo")
	ErrNegativeQuantity         = errors.New("la cantidad no puede ser negativa")
)

// StateError describe una transición ilegal e incluye el estado actual de la entidad.
// errors.Is(err, ErrInvalidState) es verdadero para cualquier StateError.
type StateError struct {
	Entity  string // movement, transfer
	ID      string
	Current string
	Action  string // approved, rejected, shipped, completed, cancelled
}

// NewStateError construye el error de transición.
func NewStateError(entity, id, current, action string) *StateError {
	return &StateError{Entity: entity, ID: id, Current: current, Action: action}
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s %s cannot be %s (estado actual: %s)", e.Entity, e.ID, e.Action, e.Current)
}

func (e *StateError) Unwrap() error {
	return ErrInvalidState
}

// AvailabilityError agrega contexto a ErrInsufficientAvailability para que el caller pueda reintentar.
type AvailabilityError struct {
	Requested int
	Available int
}

func (e *AvailabilityError) Error() string {
	return fmt.Sprintf("%s: solicitado %d, disponible %d", ErrInsufficientAvailability.Error(), e.Requested, e.Available)
}

func (e *AvailabilityError) Unwrap() error {
	return ErrInsufficientAvailability
}
