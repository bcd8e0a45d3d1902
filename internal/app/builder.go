package app

import (
	"fmt"
	"time"

	"wheelhouse/internal/alert"
	"wheelhouse/internal/analysis/indicator"
	"wheelhouse/internal/analysis/levels"
	"wheelhouse/internal/config"
	"wheelhouse/internal/eligibility"
	"wheelhouse/internal/exitplan"
	"wheelhouse/internal/gateway/notifier"
	"wheelhouse/internal/gateway/provider"
	"wheelhouse/internal/logger"
	"wheelhouse/internal/options"
	"wheelhouse/internal/scoring"
	"wheelhouse/internal/store/gormstore"
	"wheelhouse/internal/store/runlog"
	apihttp "wheelhouse/internal/transport/http/api"
)

// build 按配置装配全部依赖。构造失败直接返回，不做部分启动。
func build(cfg *config.Config) (*App, error) {
	a := &App{cfg: cfg}

	source := provider.NewSource(provider.Config{
		BaseURL:      cfg.Market.BaseURL,
		APIKey:       cfg.Market.APIKey,
		HTTPTimeout:  time.Duration(cfg.Market.HTTPTimeoutSeconds) * time.Second,
		MaxRetries:   cfg.Market.MaxRetries,
		RetryBackoff: time.Duration(cfg.Market.RetryBackoffMillis) * time.Millisecond,
	})
	chains := provider.NewChainClient(source)

	store, err := gormstore.New(cfg.Store.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	a.closers = append(a.closers, store.Close)

	runs, err := runlog.NewStore(cfg.Store.RunLogPath)
	if err != nil {
		return nil, fmt.Errorf("open run log: %w", err)
	}
	a.closers = append(a.closers, runs.Close)

	registry, err := exitplan.NewRegistry(cfg.ExitPlans.Path)
	if err != nil {
		return nil, fmt.Errorf("load exit plans: %w", err)
	}
	registry.OnChange(func(snap exitplan.Snapshot) {
		logger.Infof("exit plans reloaded: %d templates", len(snap.Templates))
	})

	alertLog, err := alert.OpenLog(cfg.App.AlertLogPath)
	if err != nil {
		return nil, fmt.Errorf("open alert log: %w", err)
	}
	a.closers = append(a.closers, alertLog.Close)

	var sinks []notifier.TextNotifier
	if cfg.Notify.Telegram.Enabled {
		sinks = append(sinks, notifier.NewTelegram(cfg.Notify.Telegram.BotToken, cfg.Notify.Telegram.ChatID))
	}
	if cfg.Notify.Slack.Enabled {
		sinks = append(sinks, notifier.NewSlack(cfg.Notify.Slack.WebhookURL))
	}
	var notify notifier.TextNotifier
	if len(sinks) > 0 {
		notify = notifier.Fanout{Sinks: sinks}
	}

	a.runner = &Runner{
		cfg:      cfg,
		source:   source,
		chains:   chains,
		store:    store,
		runs:     runs,
		registry: registry,
		deduper:  alert.NewDeduper(time.Duration(cfg.Notify.CooldownMinutes) * time.Minute),
		alertLog: alertLog,
		notify:   notify,
		gateCfg:  gateSettings(cfg),
		selCfg:   selectorConfig(cfg),
		weights:  scoringWeights(cfg),
		tiers:    capitalTiers(cfg),
	}

	httpSrv, err := apihttp.NewServer(apihttp.ServerConfig{
		Addr:  cfg.App.HTTPAddr,
		Store: store,
		Runs:  runs,
	})
	if err != nil {
		return nil, fmt.Errorf("http server: %w", err)
	}
	a.httpSrv = httpSrv

	return a, nil
}

func gateSettings(cfg *config.Config) eligibility.Settings {
	e := cfg.Eligibility
	return eligibility.Settings{
		Indicator: indicator.Settings{
			EMA: indicator.EMASettings{
				Fast:          e.Indicator.EMAFast,
				Mid:           e.Indicator.EMAMid,
				Slow:          e.Indicator.EMASlow,
				SlopeLookback: e.Indicator.SlopeLookback,
			},
			RSI: indicator.RSISettings{Period: e.Indicator.RSIPeriod},
			ATR: indicator.ATRSettings{Period: e.Indicator.ATRPeriod},
		},
		Levels: levels.Settings{
			FractalWindow:    e.Levels.FractalWindow,
			ATRMultiple:      e.Levels.ATRMultiple,
			PercentTolerance: e.Levels.PercentTolerance,
			ATRPeriod:        e.Indicator.ATRPeriod,
		},
		NearLevelPct:  e.NearLevelPct,
		CSPRSIMin:     e.CSPRSIMin,
		CSPRSIMax:     e.CSPRSIMax,
		CCRSIMin:      e.CCRSIMin,
		CCRSIMax:      e.CCRSIMax,
		MaxATRPercent: e.MaxATRPercent,
	}
}

func selectorConfig(cfg *config.Config) options.SelectorConfig {
	s := cfg.Selector
	return options.SelectorConfig{
		MinDTE:          s.MinDTE,
		MaxDTE:          s.MaxDTE,
		DeltaMin:        s.DeltaMin,
		DeltaMax:        s.DeltaMax,
		TargetDelta:     s.TargetDelta,
		MaxSpreadPct:    s.MaxSpreadPct,
		MinOpenInterest: s.MinOpenInterest,
		MinVolume:       s.MinVolume,
		MinROC:          s.MinROC,
	}
}

func scoringWeights(cfg *config.Config) scoring.Weights {
	s := cfg.Scoring
	return scoring.Weights{
		DataQuality:       s.WeightDataQuality,
		Regime:            s.WeightRegime,
		OptionsLiquidity:  s.WeightLiquidity,
		StrategyFit:       s.WeightStrategyFit,
		CapitalEfficiency: s.WeightCapital,
	}
}

func capitalTiers(cfg *config.Config) scoring.CapitalTiers {
	s := cfg.Scoring
	return scoring.CapitalTiers{
		WarnPct:      s.CapitalWarnPct,
		HeavyPct:     s.CapitalHeavyPct,
		CapPct:       s.CapitalCapPct,
		WarnPenalty:  float64(s.CapitalWarnPenalty),
		HeavyPenalty: float64(s.CapitalHeavyPenalty),
	}
}
