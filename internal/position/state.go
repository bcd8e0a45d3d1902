package position

import (
	"fmt"
	"sort"
)

// State 是持仓生命周期状态。
type State string

const (
	StateNew      State = "NEW"
	StateAssigned State = "ASSIGNED"
	StateOpen     State = "OPEN"
	StateRolling  State = "ROLLING"
	StateClosing  State = "CLOSING"
	// StateClosed 为终态，无任何出边。
	StateClosed State = "CLOSED"
	// StatePartialExit 只能由持久化协作方在执行 SCALE_OUT 指令后写入，
	// 不出现在正式转移表中；生命周期引擎只读地接受它。
	StatePartialExit State = "PARTIAL_EXIT"
)

// Action 是状态机动作。
type Action string

const (
	ActionAssign Action = "ASSIGN"
	ActionOpen   Action = "OPEN"
	ActionHold   Action = "HOLD"
	ActionRoll   Action = "ROLL"
	ActionClose  Action = "CLOSE"
)

// transitions 是唯一的转移来源；新增状态/动作只改这张表。
var transitions = map[State]map[Action]State{
	StateNew: {
		ActionAssign: StateAssigned,
	},
	StateAssigned: {
		ActionOpen: StateOpen,
	},
	StateOpen: {
		ActionHold:  StateOpen, // 幂等，可重复任意次
		ActionRoll:  StateRolling,
		ActionClose: StateClosing,
	},
	StateRolling: {
		ActionOpen: StateOpen,
	},
	StateClosing: {
		ActionClose: StateClosed,
	},
	StateClosed: {},
}

// InvalidTransitionError 表示编排层 bug 而非行情状况，带完整上下文抛出。
type InvalidTransitionError struct {
	Symbol        string
	From          State
	Action        Action
	CorrelationID string
}

func (e *InvalidTransitionError) Error() string {
	msg := fmt.Sprintf("invalid position transition: %s cannot %s from state %s", e.Symbol, e.Action, e.From)
	if e.CorrelationID != "" {
		msg += " (correlation_id=" + e.CorrelationID + ")"
	}
	return msg
}

// Transition 返回动作后的新状态；非法组合返回 *InvalidTransitionError。
func Transition(symbol string, current State, action Action, correlationID string) (State, error) {
	if next, ok := transitions[current][action]; ok {
		return next, nil
	}
	return current, &InvalidTransitionError{
		Symbol:        symbol,
		From:          current,
		Action:        action,
		CorrelationID: correlationID,
	}
}

// AllowedActions 返回当前状态的全部合法动作（字典序，保证可重现）。
func AllowedActions(current State) []Action {
	m := transitions[current]
	out := make([]Action, 0, len(m))
	for a := range m {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// AllowedNextStates 返回当前状态可达的状态集合（去重、字典序）。
func AllowedNextStates(current State) []State {
	m := transitions[current]
	seen := make(map[State]bool, len(m))
	out := make([]State, 0, len(m))
	for _, next := range m {
		if seen[next] {
			continue
		}
		seen[next] = true
		out = append(out, next)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
