package inventory

import (
	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// DefaultAutoApproveThreshold valor (en moneda) bajo el cual un ajuste se aprueba solo.
var DefaultAutoApproveThreshold = decimal.NewFromInt(100)

// TotalValue valor del movimiento: cantidad (con signo) * costo unitario.
func TotalValue(quantity int, unitCost decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt(int64(quantity)).Mul(unitCost)
}

// QualifiesForAutoApproval regla de auto-aprobación: solo ajustes con |valor| < threshold.
// El límite es estricto: threshold exacto queda pendiente.
func QualifiesForAutoApproval(t entity.MovementType, totalValue, threshold decimal.Decimal) bool {
	if !t.IsAdjustment() {
		return false
	}
	return totalValue.Abs().LessThan(threshold)
}
