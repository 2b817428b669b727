package repository

import "context"

// ReferenceSequenceRepository contadores numéricos de referencias por prefijo del día.
type ReferenceSequenceRepository interface {
	// Next incrementa y devuelve el contador de scope (ej. "MOV-20240315-"); el primero es 1.
	// El contador queda bloqueado hasta el fin de la transacción.
	Next(ctx context.Context, scope string) (int, error)
}
