package config

import (
	"fmt"
	"strings"
	"time"
)

// validate 对配置进行基础校验。
func validate(c *Config) error {
	if err := c.Market.validate(); err != nil {
		return err
	}
	if err := c.Universe.validate(); err != nil {
		return err
	}
	if err := c.Eligibility.validate(); err != nil {
		return err
	}
	if err := c.Selector.validate(); err != nil {
		return err
	}
	if err := c.Scheduler.validate(); err != nil {
		return err
	}
	if err := c.Notify.validate(); err != nil {
		return err
	}
	return nil
}

func (m *MarketConfig) validate() error {
	if strings.TrimSpace(m.BaseURL) == "" {
		return fmt.Errorf("market.base_url is required")
	}
	return nil
}

func (u *UniverseConfig) validate() error {
	if len(u.Symbols) == 0 {
		return fmt.Errorf("universe.symbols requires at least one symbol")
	}
	seen := make(map[string]bool, len(u.Symbols))
	for i, s := range u.Symbols {
		sym := strings.TrimSpace(s.Symbol)
		if sym == "" {
			return fmt.Errorf("universe.symbols[%d] missing symbol", i)
		}
		if seen[sym] {
			return fmt.Errorf("universe.symbols contains duplicate %s", sym)
		}
		seen[sym] = true
		if s.SharesHeld < 0 {
			return fmt.Errorf("universe.symbols.%s shares_held must be >= 0", sym)
		}
	}
	return nil
}

func (e *EligibilityConfig) validate() error {
	if e.CSPRSIMin >= e.CSPRSIMax {
		return fmt.Errorf("eligibility csp rsi range invalid: min=%v max=%v", e.CSPRSIMin, e.CSPRSIMax)
	}
	if e.CCRSIMin >= e.CCRSIMax {
		return fmt.Errorf("eligibility cc rsi range invalid: min=%v max=%v", e.CCRSIMin, e.CCRSIMax)
	}
	if e.NearLevelPct <= 0 || e.NearLevelPct >= 1 {
		return fmt.Errorf("eligibility.near_level_pct must be in (0,1)")
	}
	if e.Indicator.EMAFast >= e.Indicator.EMAMid || e.Indicator.EMAMid >= e.Indicator.EMASlow {
		return fmt.Errorf("eligibility.indicator ema periods must satisfy fast < mid < slow")
	}
	return nil
}

func (s *SelectorConfig) validate() error {
	if s.MinDTE >= s.MaxDTE {
		return fmt.Errorf("selector dte window invalid: min=%d max=%d", s.MinDTE, s.MaxDTE)
	}
	if s.DeltaMin >= s.DeltaMax {
		return fmt.Errorf("selector delta band invalid: min=%v max=%v", s.DeltaMin, s.DeltaMax)
	}
	if s.TargetDelta < s.DeltaMin || s.TargetDelta > s.DeltaMax {
		return fmt.Errorf("selector.target_delta %v outside delta band [%v,%v]", s.TargetDelta, s.DeltaMin, s.DeltaMax)
	}
	if s.MinOpenInterest < 0 || s.MinVolume < 0 {
		return fmt.Errorf("selector liquidity minima must be >= 0")
	}
	return nil
}

func (s *SchedulerConfig) validate() error {
	d, err := time.ParseDuration(s.Interval)
	if err != nil {
		return fmt.Errorf("scheduler.interval invalid: %w", err)
	}
	if d < time.Minute {
		return fmt.Errorf("scheduler.interval must be >= 1m")
	}
	if s.OffsetSeconds < 0 {
		return fmt.Errorf("scheduler.offset_seconds must be >= 0")
	}
	return nil
}

func (n *NotifyConfig) validate() error {
	if n.Telegram.Enabled {
		if strings.TrimSpace(n.Telegram.BotToken) == "" || strings.TrimSpace(n.Telegram.ChatID) == "" {
			return fmt.Errorf("notify.telegram requires bot_token and chat_id when enabled")
		}
	}
	if n.Slack.Enabled && strings.TrimSpace(n.Slack.WebhookURL) == "" {
		return fmt.Errorf("notify.slack requires webhook_url when enabled")
	}
	return nil
}
