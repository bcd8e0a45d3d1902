package lifecycle

import (
	"fmt"

	"wheelhouse/internal/position"
)

// Action 是生命周期指令的类别。
type Action string

const (
	ActionHold     Action = "HOLD"
	ActionAbort    Action = "ABORT"
	ActionExit     Action = "EXIT"
	ActionScaleOut Action = "SCALE_OUT"
)

// 各指令的稳定 reason code。
const (
	ReasonDataFailure = "DATA_FAILURE"
	ReasonRegimeBreak = "REGIME_BREAK"
	ReasonStopLoss    = "STOP_LOSS"
	ReasonTarget2     = "TARGET_2"
	ReasonTarget1     = "TARGET_1"
)

// Event 是针对单笔持仓的一条生命周期指令。
type Event struct {
	PositionID int64  `json:"position_id"`
	Symbol     string `json:"symbol"`
	Action     Action `json:"action"`
	Reason     string `json:"reason"`
	Directive  string `json:"directive"`
	Detail     string `json:"detail,omitempty"`
}

// Row 是一次评估中单个 symbol 的市场上下文，由编排层从本轮
// verdict/行情结果里投影出来。
type Row struct {
	// Price 为标的最新价；nil 表示本轮没拿到价格。
	Price *float64
	// DataFailure 表示本轮 verdict 因数据不可靠被降级。
	DataFailure bool
	// RegimeBlocked 表示本轮 verdict 因 risk-off 被拦截。
	RegimeBlocked bool
}

// rule 同 stop 引擎：优先级是显式的有序列表，首个命中即产出事件。
type rule struct {
	name string
	eval func(position.Position, Row) *Event
}

var lifecycleRules = []rule{
	{name: "data_failure", eval: evalDataFailure},
	{name: "regime_break", eval: evalRegimeBreak},
	{name: "stop_loss", eval: evalStopLoss},
	{name: "target2", eval: evalTarget2},
	{name: "target1", eval: evalTarget1},
}

// Evaluate 对单笔持仓产出至多一条指令。只评估 OPEN/PARTIAL_EXIT；
// CLOSED 或其余状态一律不产事件。无状态，可并发调用。
func Evaluate(pos position.Position, row Row) *Event {
	if !pos.IsOpenForLifecycle() {
		return nil
	}
	for _, r := range lifecycleRules {
		if ev := r.eval(pos, row); ev != nil {
			return ev
		}
	}
	return nil
}

// EvaluateRun 对一批持仓逐一评估，rows 以 symbol 为键。
// 找不到对应行的持仓按数据缺失处理。
func EvaluateRun(positions []position.Position, rows map[string]Row) []Event {
	var events []Event
	for _, pos := range positions {
		row, ok := rows[pos.Symbol]
		if !ok {
			row = Row{DataFailure: true}
		}
		if ev := Evaluate(pos, row); ev != nil {
			events = append(events, *ev)
		}
	}
	return events
}

func newEvent(pos position.Position, action Action, reason, directive, detail string) *Event {
	return &Event{
		PositionID: pos.ID,
		Symbol:     pos.Symbol,
		Action:     action,
		Reason:     reason,
		Directive:  directive,
		Detail:     detail,
	}
}

func evalDataFailure(pos position.Position, row Row) *Event {
	if !row.DataFailure {
		return nil
	}
	return newEvent(pos, ActionHold, ReasonDataFailure,
		"HOLD — DATA UNRELIABLE",
		"current run verdict is based on unreliable data")
}

func evalRegimeBreak(pos position.Position, row Row) *Event {
	if !row.RegimeBlocked {
		return nil
	}
	return newEvent(pos, ActionAbort, ReasonRegimeBreak,
		"CLOSE POSITION ASAP",
		"regime turned risk-off while position is open")
}

func evalStopLoss(pos position.Position, row Row) *Event {
	if pos.StopPrice <= 0 || row.Price == nil {
		return nil
	}
	if !breached(pos, *row.Price, pos.StopPrice) {
		return nil
	}
	return newEvent(pos, ActionExit, ReasonStopLoss,
		"EXIT IMMEDIATELY",
		fmt.Sprintf("price %.2f breached stop %.2f", *row.Price, pos.StopPrice))
}

func evalTarget2(pos position.Position, row Row) *Event {
	if pos.Target2 <= 0 || row.Price == nil {
		return nil
	}
	if !reached(pos, *row.Price, pos.Target2) {
		return nil
	}
	return newEvent(pos, ActionExit, ReasonTarget2,
		"EXIT ALL REMAINING",
		fmt.Sprintf("price %.2f reached target2 %.2f", *row.Price, pos.Target2))
}

// evalTarget1 处理分批离场：已 PARTIAL_EXIT 且仍有 target2 时等待
// target2，不重复发事件；PARTIAL_EXIT 但没有 target2 时直接清仓。
func evalTarget1(pos position.Position, row Row) *Event {
	if pos.Target1 <= 0 || row.Price == nil {
		return nil
	}
	if !reached(pos, *row.Price, pos.Target1) {
		return nil
	}
	if pos.State == position.StatePartialExit {
		if pos.Target2 > 0 {
			return nil
		}
		return newEvent(pos, ActionExit, ReasonTarget2,
			"EXIT ALL REMAINING",
			fmt.Sprintf("price %.2f reached target1 %.2f with no second target", *row.Price, pos.Target1))
	}
	return newEvent(pos, ActionScaleOut, ReasonTarget1,
		"EXIT 1 CONTRACT NOW",
		fmt.Sprintf("price %.2f reached target1 %.2f", *row.Price, pos.Target1))
}

// breached / reached 按策略腿确定方向：CSP 怕跌，CC 怕涨。
func breached(pos position.Position, price, stop float64) bool {
	if pos.Strategy == position.StrategyCC {
		return price >= stop
	}
	return price <= stop
}

func reached(pos position.Position, price, target float64) bool {
	if pos.Strategy == position.StrategyCC {
		return price <= target
	}
	return price >= target
}
