package inventory

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"
)

// Prefijos de número de referencia.
const (
	AdjustmentPrefix = "ADJ"
	MovementPrefix   = "MOV"
	TransferPrefix   = "ST"
)

const referenceAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// DayPrefix devuelve "<PREFIJO>-YYYYMMDD-" para la fecha dada (UTC).
func DayPrefix(prefix string, now time.Time) string {
	return prefix + "-" + now.UTC().Format("20060102") + "-"
}

// AdjustmentReference genera ADJ-YYYYMMDD-XXXXXX con sufijo aleatorio de 6 caracteres.
// La unicidad la verifica el caller contra el repositorio.
func AdjustmentReference(now time.Time) (string, error) {
	suffix, err := randomSuffix(6)
	if err != nil {
		return "", err
	}
	return DayPrefix(AdjustmentPrefix, now) + suffix, nil
}

// SequenceReference genera <PREFIJO>-YYYYMMDD-NNNN para la secuencia diaria seq (>= 1).
func SequenceReference(prefix string, now time.Time, seq int) string {
	return fmt.Sprintf("%s%04d", DayPrefix(prefix, now), seq)
}

func randomSuffix(n int) (string, error) {
	var sb strings.Builder
	sb.Grow(n)
	base := big.NewInt(int64(len(referenceAlphabet)))
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, base)
		if err != nil {
			return "", fmt.Errorf("generar referencia: %w", err)
		}
		sb.WriteByte(referenceAlphabet[idx.Int64()])
	}
	return sb.String(), nil
}
