package config

import "strings"

// 默认值常量
const (
	defaultAppEnv       = "dev"
	defaultAppLogLevel  = "info"
	defaultAppHTTPAddr  = ":9992"
	defaultAppLogPath   = "/data/logs/wheelhouse.log"
	defaultAlertLogPath = "/data/logs/alerts.jsonl"

	defaultMarketTimeout      = 10
	defaultMarketRetries      = 3
	defaultMarketBackoffMs    = 500
	defaultDailyCandleLimit   = 250
	defaultWeeklyCandleLimit  = 120

	defaultNearLevelPct  = 0.03
	defaultCSPRSIMin     = 35
	defaultCSPRSIMax     = 60
	defaultCCRSIMin      = 40
	defaultCCRSIMax      = 75
	defaultMaxATRPercent = 0.05

	defaultEMAFast       = 20
	defaultEMAMid        = 50
	defaultEMASlow       = 200
	defaultSlopeLookback = 5
	defaultRSIPeriod     = 14
	defaultATRPeriod     = 14

	defaultFractalWindow    = 2
	defaultLevelATRMultiple = 0.5
	defaultLevelPctTol      = 0.01

	defaultMinDTE       = 21
	defaultMaxDTE       = 45
	defaultDeltaMin     = 0.15
	defaultDeltaMax     = 0.35
	defaultTargetDelta  = 0.25
	defaultMaxSpreadPct = 0.10
	defaultMinROC       = 0.005

	defaultWeightDataQuality = 0.20
	defaultWeightRegime      = 0.25
	defaultWeightLiquidity   = 0.20
	defaultWeightStrategyFit = 0.20
	defaultWeightCapital     = 0.15

	defaultCapitalWarnPct      = 0.10
	defaultCapitalHeavyPct     = 0.25
	defaultCapitalCapPct       = 0.50
	defaultCapitalWarnPenalty  = 20
	defaultCapitalHeavyPenalty = 50

	defaultMaxOpenPositions = 5

	defaultExitPlanPath = "configs/exit_plans.yaml"
	defaultExitPlanID   = "standard"

	defaultSchedulerInterval = "15m"
	defaultSchedulerOffset   = 30

	defaultDBPath          = "/data/db/wheelhouse.db"
	defaultRunLogPath      = "/data/db/wheelhouse_runs.db"
	defaultCooldownMinutes = 60
)

// applyDefaults 为所有子配置应用默认值；显式写进文件的键不回填。
func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Market.applyDefaults(keys)
	c.Eligibility.applyDefaults(keys)
	c.Selector.applyDefaults(keys)
	c.Scoring.applyDefaults(keys)
	c.Exposure.applyDefaults(keys)
	c.ExitPlans.applyDefaults(keys)
	c.Scheduler.applyDefaults(keys)
	c.Store.applyDefaults(keys)
	c.Notify.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
		stringFieldDefault("app.log_path", &a.LogPath, defaultAppLogPath),
		stringFieldDefault("app.alert_log_path", &a.AlertLogPath, defaultAlertLogPath),
	)
}

func (m *MarketConfig) applyDefaults(keys keySet) {
	if m == nil {
		return
	}
	applyFieldDefaults(keys,
		intFieldDefault("market.http_timeout_seconds", &m.HTTPTimeoutSeconds, defaultMarketTimeout),
		intFieldDefault("market.max_retries", &m.MaxRetries, defaultMarketRetries),
		intFieldDefault("market.retry_backoff_millis", &m.RetryBackoffMillis, defaultMarketBackoffMs),
		intFieldDefault("market.daily_candle_limit", &m.DailyCandleLimit, defaultDailyCandleLimit),
		intFieldDefault("market.weekly_candle_limit", &m.WeeklyCandleLimit, defaultWeeklyCandleLimit),
	)
}

func (e *EligibilityConfig) applyDefaults(keys keySet) {
	if e == nil {
		return
	}
	applyFieldDefaults(keys,
		floatFieldDefault("eligibility.near_level_pct", &e.NearLevelPct, defaultNearLevelPct),
		floatFieldDefault("eligibility.csp_rsi_min", &e.CSPRSIMin, defaultCSPRSIMin),
		floatFieldDefault("eligibility.csp_rsi_max", &e.CSPRSIMax, defaultCSPRSIMax),
		floatFieldDefault("eligibility.cc_rsi_min", &e.CCRSIMin, defaultCCRSIMin),
		floatFieldDefault("eligibility.cc_rsi_max", &e.CCRSIMax, defaultCCRSIMax),
		floatFieldDefault("eligibility.max_atr_percent", &e.MaxATRPercent, defaultMaxATRPercent),
		intFieldDefault("eligibility.indicator.ema_fast", &e.Indicator.EMAFast, defaultEMAFast),
		intFieldDefault("eligibility.indicator.ema_mid", &e.Indicator.EMAMid, defaultEMAMid),
		intFieldDefault("eligibility.indicator.ema_slow", &e.Indicator.EMASlow, defaultEMASlow),
		intFieldDefault("eligibility.indicator.slope_lookback", &e.Indicator.SlopeLookback, defaultSlopeLookback),
		intFieldDefault("eligibility.indicator.rsi_period", &e.Indicator.RSIPeriod, defaultRSIPeriod),
		intFieldDefault("eligibility.indicator.atr_period", &e.Indicator.ATRPeriod, defaultATRPeriod),
		intFieldDefault("eligibility.levels.fractal_window", &e.Levels.FractalWindow, defaultFractalWindow),
		floatFieldDefault("eligibility.levels.atr_multiple", &e.Levels.ATRMultiple, defaultLevelATRMultiple),
		floatFieldDefault("eligibility.levels.percent_tolerance", &e.Levels.PercentTolerance, defaultLevelPctTol),
	)
}

func (s *SelectorConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		intFieldDefault("selector.min_dte", &s.MinDTE, defaultMinDTE),
		intFieldDefault("selector.max_dte", &s.MaxDTE, defaultMaxDTE),
		floatFieldDefault("selector.delta_min", &s.DeltaMin, defaultDeltaMin),
		floatFieldDefault("selector.delta_max", &s.DeltaMax, defaultDeltaMax),
		floatFieldDefault("selector.target_delta", &s.TargetDelta, defaultTargetDelta),
		floatFieldDefault("selector.max_spread_pct", &s.MaxSpreadPct, defaultMaxSpreadPct),
		floatFieldDefault("selector.min_roc", &s.MinROC, defaultMinROC),
	)
}

func (s *ScoringConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		floatFieldDefault("scoring.weight_data_quality", &s.WeightDataQuality, defaultWeightDataQuality),
		floatFieldDefault("scoring.weight_regime", &s.WeightRegime, defaultWeightRegime),
		floatFieldDefault("scoring.weight_liquidity", &s.WeightLiquidity, defaultWeightLiquidity),
		floatFieldDefault("scoring.weight_strategy_fit", &s.WeightStrategyFit, defaultWeightStrategyFit),
		floatFieldDefault("scoring.weight_capital", &s.WeightCapital, defaultWeightCapital),
		floatFieldDefault("scoring.capital_warn_pct", &s.CapitalWarnPct, defaultCapitalWarnPct),
		floatFieldDefault("scoring.capital_heavy_pct", &s.CapitalHeavyPct, defaultCapitalHeavyPct),
		floatFieldDefault("scoring.capital_cap_pct", &s.CapitalCapPct, defaultCapitalCapPct),
		intFieldDefault("scoring.capital_warn_penalty", &s.CapitalWarnPenalty, defaultCapitalWarnPenalty),
		intFieldDefault("scoring.capital_heavy_penalty", &s.CapitalHeavyPenalty, defaultCapitalHeavyPenalty),
	)
}

func (e *ExposureConfig) applyDefaults(keys keySet) {
	if e == nil {
		return
	}
	applyFieldDefaults(keys,
		intFieldDefault("exposure.max_open_positions", &e.MaxOpenPositions, defaultMaxOpenPositions),
		boolFieldDefault("exposure.one_position_per_symbol", &e.OnePositionPerSym, true),
	)
}

func (e *ExitPlansConfig) applyDefaults(keys keySet) {
	if e == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("exit_plans.path", &e.Path, defaultExitPlanPath),
		stringFieldDefault("exit_plans.default_plan", &e.DefaultPlan, defaultExitPlanID),
	)
}

func (s *SchedulerConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("scheduler.interval", &s.Interval, defaultSchedulerInterval),
		intFieldDefault("scheduler.offset_seconds", &s.OffsetSeconds, defaultSchedulerOffset),
	)
}

func (s *StoreConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("store.db_path", &s.DBPath, defaultDBPath),
		stringFieldDefault("store.run_log_path", &s.RunLogPath, defaultRunLogPath),
	)
}

func (n *NotifyConfig) applyDefaults(keys keySet) {
	if n == nil {
		return
	}
	applyFieldDefaults(keys,
		intFieldDefault("notify.cooldown_minutes", &n.CooldownMinutes, defaultCooldownMinutes),
	)
}

// Helper functions

type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && strings.TrimSpace(*target) == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func intFieldDefault(key string, target *int, def int) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil && *target <= 0 },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func floatFieldDefault(key string, target *float64, def float64) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil && *target <= 0 },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func boolFieldDefault(key string, target *bool, def bool) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}
