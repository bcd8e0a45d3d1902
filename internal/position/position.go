package position

import (
	"time"

	"wheelhouse/internal/exitplan"
)

// Strategy 标记持仓所属的轮动策略腿。
type Strategy string

const (
	StrategyCSP Strategy = "CSP"
	StrategyCC  Strategy = "CC"
)

// Position 是一笔持仓的快照。引擎只读，所有变更由持久化协作方完成。
type Position struct {
	ID        int64     `json:"id"`
	Symbol    string    `json:"symbol"`
	Strategy  Strategy  `json:"strategy"`
	Strike    float64   `json:"strike"`
	Expiry    time.Time `json:"expiry"`
	Contracts int       `json:"contracts"`
	// PremiumCollected 为开仓时收取的总权利金（美元）。
	PremiumCollected float64 `json:"premium_collected"`
	State            State   `json:"state"`

	// 生命周期引擎使用的价格目标；0 表示未设置。
	StopPrice float64 `json:"stop_price,omitempty"`
	Target1   float64 `json:"target1,omitempty"`
	Target2   float64 `json:"target2,omitempty"`

	// ExitPlan 为正式退出计划，nil 表示未配置。
	ExitPlan *exitplan.Plan `json:"exit_plan,omitempty"`

	OpenedAt  time.Time `json:"opened_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// IsOpenForLifecycle 判断持仓是否参与每轮生命周期评估。
func (p Position) IsOpenForLifecycle() bool {
	return p.State == StateOpen || p.State == StatePartialExit
}
