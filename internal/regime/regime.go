package regime

import (
	"wheelhouse/internal/analysis/indicator"
)

// Direction 是基于均线排列的方向性市场分类。
type Direction string

const (
	Up       Direction = "UP"
	Down     Direction = "DOWN"
	Sideways Direction = "SIDEWAYS"
	Unknown  Direction = ""
)

// Risk 是风险开关层面的市场分类，供 verdict/stop 引擎使用。
type Risk string

const (
	RiskOn  Risk = "RISK_ON"
	RiskOff Risk = "RISK_OFF"
)

// Classify 根据 EMA 排列与中期 EMA 斜率给出方向。
// UP:   ema20 > ema50 > ema200 且 ema50 斜率 > 0
// DOWN: ema20 < ema50 < ema200 且 ema50 斜率 < 0
// 其余情况一律 SIDEWAYS。
func Classify(snap indicator.Snapshot) Direction {
	switch {
	case snap.EMAFast > snap.EMAMid && snap.EMAMid > snap.EMASlow && snap.EMAMidSlope > 0:
		return Up
	case snap.EMAFast < snap.EMAMid && snap.EMAMid < snap.EMASlow && snap.EMAMidSlope < 0:
		return Down
	default:
		return Sideways
	}
}

// Resolution 是日线/周线合并后的最终方向。
type Resolution struct {
	Daily    Direction `json:"daily"`
	Weekly   Direction `json:"weekly,omitempty"`
	Final    Direction `json:"final"`
	Conflict bool      `json:"conflict"`
}

// Resolve 要求周线与日线方向一致；不一致时强制 SIDEWAYS 并标记冲突。
// 周线为 Unknown（无周线数据）视为一致。
func Resolve(daily, weekly Direction) Resolution {
	res := Resolution{Daily: daily, Weekly: weekly, Final: daily}
	if weekly == Unknown || weekly == daily {
		return res
	}
	res.Conflict = true
	res.Final = Sideways
	return res
}

// RiskOf 把方向折叠为风险开关：只有 DOWN 视为 RISK_OFF。
func RiskOf(d Direction) Risk {
	if d == Down {
		return RiskOff
	}
	return RiskOn
}
