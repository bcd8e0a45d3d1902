package config

import "strings"

// Config 是 Wheelhouse 的主配置载体。
type Config struct {
	App         AppConfig         `toml:"app"`
	Market      MarketConfig      `toml:"market"`
	Universe    UniverseConfig    `toml:"universe"`
	Eligibility EligibilityConfig `toml:"eligibility"`
	Selector    SelectorConfig    `toml:"selector"`
	Scoring     ScoringConfig     `toml:"scoring"`
	Exposure    ExposureConfig    `toml:"exposure"`
	ExitPlans   ExitPlansConfig   `toml:"exit_plans"`
	Scheduler   SchedulerConfig   `toml:"scheduler"`
	Store       StoreConfig       `toml:"store"`
	Notify      NotifyConfig      `toml:"notify"`
}

type AppConfig struct {
	Env          string `toml:"env"`
	LogLevel     string `toml:"log_level"`
	HTTPAddr     string `toml:"http_addr"`
	LogPath      string `toml:"log_path"`
	AlertLogPath string `toml:"alert_log_path"`
}

// MarketConfig 描述行情/期权链 HTTP 服务。
type MarketConfig struct {
	BaseURL             string `toml:"base_url"`
	APIKey              string `toml:"api_key"`
	HTTPTimeoutSeconds  int    `toml:"http_timeout_seconds"`
	MaxRetries          int    `toml:"max_retries"`
	RetryBackoffMillis  int    `toml:"retry_backoff_millis"`
	DailyCandleLimit    int    `toml:"daily_candle_limit"`
	WeeklyCandleLimit   int    `toml:"weekly_candle_limit"`
}

// UniverseSymbol 是评估宇宙中的一个标的。
type UniverseSymbol struct {
	Symbol     string `toml:"symbol"`
	SharesHeld int    `toml:"shares_held"`
}

type UniverseConfig struct {
	Symbols []UniverseSymbol `toml:"symbols"`
}

// EligibilityConfig 汇总准入闸门与其下层指标/支撑阻力参数。
type EligibilityConfig struct {
	NearLevelPct  float64 `toml:"near_level_pct"`
	CSPRSIMin     float64 `toml:"csp_rsi_min"`
	CSPRSIMax     float64 `toml:"csp_rsi_max"`
	CCRSIMin      float64 `toml:"cc_rsi_min"`
	CCRSIMax      float64 `toml:"cc_rsi_max"`
	MaxATRPercent float64 `toml:"max_atr_percent"`

	Indicator IndicatorConfig `toml:"indicator"`
	Levels    LevelsConfig    `toml:"levels"`
}

type IndicatorConfig struct {
	EMAFast       int `toml:"ema_fast"`
	EMAMid        int `toml:"ema_mid"`
	EMASlow       int `toml:"ema_slow"`
	SlopeLookback int `toml:"slope_lookback"`
	RSIPeriod     int `toml:"rsi_period"`
	ATRPeriod     int `toml:"atr_period"`
}

type LevelsConfig struct {
	FractalWindow    int     `toml:"fractal_window"`
	ATRMultiple      float64 `toml:"atr_multiple"`
	PercentTolerance float64 `toml:"percent_tolerance"`
}

type SelectorConfig struct {
	MinDTE          int     `toml:"min_dte"`
	MaxDTE          int     `toml:"max_dte"`
	DeltaMin        float64 `toml:"delta_min"`
	DeltaMax        float64 `toml:"delta_max"`
	TargetDelta     float64 `toml:"target_delta"`
	MaxSpreadPct    float64 `toml:"max_spread_pct"`
	MinOpenInterest int64   `toml:"min_open_interest"`
	MinVolume       int64   `toml:"min_volume"`
	MinROC          float64 `toml:"min_roc"`
}

type ScoringConfig struct {
	AccountEquity float64 `toml:"account_equity"`

	WeightDataQuality float64 `toml:"weight_data_quality"`
	WeightRegime      float64 `toml:"weight_regime"`
	WeightLiquidity   float64 `toml:"weight_liquidity"`
	WeightStrategyFit float64 `toml:"weight_strategy_fit"`
	WeightCapital     float64 `toml:"weight_capital"`

	CapitalWarnPct      float64 `toml:"capital_warn_pct"`
	CapitalHeavyPct     float64 `toml:"capital_heavy_pct"`
	CapitalCapPct       float64 `toml:"capital_cap_pct"`
	CapitalWarnPenalty  int     `toml:"capital_warn_penalty"`
	CapitalHeavyPenalty int     `toml:"capital_heavy_penalty"`
}

// ExposureConfig 控制敞口闸门：超限的 symbol 会被 verdict 层拦截。
type ExposureConfig struct {
	MaxOpenPositions  int     `toml:"max_open_positions"`
	MaxNotionalPct    float64 `toml:"max_notional_pct"`
	OnePositionPerSym bool    `toml:"one_position_per_symbol"`
}

type ExitPlansConfig struct {
	Path        string         `toml:"path"`
	DefaultPlan string         `toml:"default_plan"`
	Params      map[string]any `toml:"params"`
}

type SchedulerConfig struct {
	Interval       string `toml:"interval"`
	OffsetSeconds  int    `toml:"offset_seconds"`
	RunImmediately bool   `toml:"run_immediately"`
}

type StoreConfig struct {
	DBPath string `toml:"db_path"`
	// RunLogPath 为独立的评估轮次日志库；留空使用默认路径。
	RunLogPath string `toml:"run_log_path"`
}

type NotifyConfig struct {
	CooldownMinutes int            `toml:"cooldown_minutes"`
	Telegram        TelegramConfig `toml:"telegram"`
	Slack           SlackConfig    `toml:"slack"`
}

type TelegramConfig struct {
	Enabled  bool   `toml:"enabled"`
	BotToken string `toml:"bot_token"`
	ChatID   string `toml:"chat_id"`
}

type SlackConfig struct {
	Enabled    bool   `toml:"enabled"`
	WebhookURL string `toml:"webhook_url"`
}

// keySet 用于追踪配置文件中显式设置的字段路径。
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	_, ok := k[strings.ToLower(strings.TrimSpace(path))]
	return ok
}
