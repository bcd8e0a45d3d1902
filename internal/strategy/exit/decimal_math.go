package exit

import (
	"math"

	"github.com/shopspring/decimal"
)

var (
	decOne      = decimal.NewFromInt(1)
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

func decimalLTE(a, b float64) bool { return decimalCompare(a, b) <= 0 }
func decimalGTE(a, b float64) bool { return decimalCompare(a, b) >= 0 }

// profitThreshold 是兑现 pct 利润后剩余的平仓成本上限。
func profitThreshold(credit, pct float64) float64 {
	return decToFloat(decFromFloat(credit).Mul(decOne.Sub(decFromFloat(pct))))
}

// lossThreshold 是触发最大亏损的平仓成本下限。
func lossThreshold(credit, multiplier float64) float64 {
	return decToFloat(decFromFloat(credit).Mul(decFromFloat(multiplier)))
}
