package exitplan

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Plan 是一份已校验的正式退出计划。
type Plan struct {
	TemplateID string `json:"template_id,omitempty"`
	// ProfitTargetPct：期权价值回落到 credit×(1-pct) 即止盈（0.60 = 60%）。
	ProfitTargetPct float64 `json:"profit_target_pct"`
	// MaxLossMultiplier：期权价值达到 credit×multiplier 即止损。
	MaxLossMultiplier float64 `json:"max_loss_multiplier"`
	// TimeStopDays：DTE 低于该值触发时间止损。
	TimeStopDays int `json:"time_stop_days"`
	// UnderlyingBreachEnabled 控制是否启用标的破位规则。
	UnderlyingBreachEnabled bool `json:"underlying_breach_enabled"`
}

// FromParams 将模板参数映射为 Plan。字符串形式的数字会被宽松转换。
func FromParams(templateID string, params map[string]any) (Plan, error) {
	p := Plan{TemplateID: templateID}
	if v, ok := number(params["profit_target_pct"]); ok {
		p.ProfitTargetPct = v
	}
	if v, ok := number(params["max_loss_multiplier"]); ok {
		p.MaxLossMultiplier = v
	}
	if v, ok := number(params["time_stop_days"]); ok {
		p.TimeStopDays = int(v)
	}
	if v, ok := params["underlying_breach_enabled"].(bool); ok {
		p.UnderlyingBreachEnabled = v
	}
	if p.ProfitTargetPct < 0 || p.ProfitTargetPct > 1 {
		return Plan{}, fmt.Errorf("profit_target_pct 需位于 [0,1]，当前 %.4f", p.ProfitTargetPct)
	}
	if p.MaxLossMultiplier < 0 {
		return Plan{}, fmt.Errorf("max_loss_multiplier 不能为负")
	}
	if p.TimeStopDays < 0 {
		return Plan{}, fmt.Errorf("time_stop_days 不能为负")
	}
	return p, nil
}

func number(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
