package action

import (
	"time"

	"github.com/shopspring/decimal"

	"wheelhouse/internal/position"
)

// RollType 区分防御性 roll（标的逼近/跌破行权价）与常规展期。
type RollType string

const (
	RollDefensive RollType = "defensive"
	RollOut       RollType = "out"
)

const (
	// 防御性 roll 把新行权价挪到现价外侧留出缓冲：put 压低，call 抬高。
	defensivePutFactor  = 0.97
	defensiveCallFactor = 1.03
	// 展期目标 DTE，最终落在 [rollMinDays, rollMaxDays]。
	rollTargetDays = 35
	rollMinDays    = 30
	rollMaxDays    = 45
)

// RollPlan 描述一次展期建议。
type RollPlan struct {
	Type      RollType  `json:"type"`
	NewStrike float64   `json:"new_strike"`
	NewExpiry time.Time `json:"new_expiry"`
	TargetDTE int       `json:"target_dte"`
}

// BuildRollPlan 生成展期计划：行权价取最近 $0.50 刻度，
// 到期日 clamp 到 [30,45] 天。
func BuildRollPlan(pos position.Position, ctx Context) RollPlan {
	plan := RollPlan{Type: RollOut, NewStrike: roundToHalf(pos.Strike)}
	switch {
	case pos.Strategy == position.StrategyCSP && ctx.Price < pos.Strike:
		plan.Type = RollDefensive
		plan.NewStrike = roundToHalf(ctx.Price * defensivePutFactor)
	case pos.Strategy == position.StrategyCC && ctx.Price > pos.Strike:
		plan.Type = RollDefensive
		plan.NewStrike = roundToHalf(ctx.Price * defensiveCallFactor)
	}
	days := clampDays(rollTargetDays)
	plan.TargetDTE = days
	asOf := ctx.AsOf
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}
	plan.NewExpiry = asOf.AddDate(0, 0, days)
	return plan
}

// roundToHalf 用 decimal 取最近 $0.50，避免浮点累计误差影响行权价刻度。
func roundToHalf(v float64) float64 {
	if v <= 0 {
		return 0
	}
	half := decimal.NewFromFloat(0.5)
	d := decimal.NewFromFloat(v).Div(half).Round(0).Mul(half)
	f, _ := d.Float64()
	return f
}

func clampDays(days int) int {
	if days < rollMinDays {
		return rollMinDays
	}
	if days > rollMaxDays {
		return rollMaxDays
	}
	return days
}
