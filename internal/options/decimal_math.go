package options

import (
	"math"

	"github.com/shopspring/decimal"
)

var (
	decTwo      = decimal.NewFromInt(2)
	decimalZero = decimal.Zero
)

func decFromFloat(val float64) decimal.Decimal {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return decimalZero
	}
	return decimal.NewFromFloat(val)
}

func decToFloat(val decimal.Decimal) float64 {
	f, _ := val.Float64()
	return f
}

func decimalCompare(a, b float64) int {
	return decFromFloat(a).Cmp(decFromFloat(b))
}

func decimalLT(a, b float64) bool { return decimalCompare(a, b) < 0 }
func decimalGT(a, b float64) bool { return decimalCompare(a, b) > 0 }
