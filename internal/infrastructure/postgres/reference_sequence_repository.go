package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.ReferenceSequenceRepository = (*ReferenceSequenceRepository)(nil)

// ReferenceSequenceRepository un contador por prefijo del día en reference_sequences.
type ReferenceSequenceRepository struct {
	q Querier
}

// NewReferenceSequenceRepository construye el repositorio.
func NewReferenceSequenceRepository(q Querier) *ReferenceSequenceRepository {
	return &ReferenceSequenceRepository{q: q}
}

// Next el upsert toma el lock de la fila: la segunda transacción espera el commit de la primera
// y lee el valor ya incrementado.
func (r *ReferenceSequenceRepository) Next(ctx context.Context, scope string) (int, error) {
	var seq int
	err := r.q.QueryRow(ctx, `
		INSERT INTO reference_sequences (scope, last_value)
		VALUES ($1, 1)
		ON CONFLICT (scope) DO UPDATE SET last_value = reference_sequences.last_value + 1
		RETURNING last_value`, scope).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("next reference %s: %w", scope, err)
	}
	return seq, nil
}
