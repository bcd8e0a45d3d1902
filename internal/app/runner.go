package app

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"wheelhouse/internal/alert"
	"wheelhouse/internal/config"
	"wheelhouse/internal/eligibility"
	"wheelhouse/internal/exitplan"
	"wheelhouse/internal/gateway/notifier"
	"wheelhouse/internal/lifecycle"
	"wheelhouse/internal/logger"
	"wheelhouse/internal/market"
	"wheelhouse/internal/options"
	"wheelhouse/internal/position"
	"wheelhouse/internal/regime"
	"wheelhouse/internal/scoring"
	"wheelhouse/internal/store/gormstore"
	"wheelhouse/internal/store/runlog"
	"wheelhouse/internal/strategy/action"
	"wheelhouse/internal/strategy/exit"
	"wheelhouse/internal/verdict"
)

const maxConcurrentSymbols = 4

// Runner 驱动一轮完整评估：候选判定→合约选择→评分→裁决→持仓巡检→告警。
// 每个 (symbol, 评估时间) 至多评估一次，引擎本身无状态。
type Runner struct {
	cfg      *config.Config
	source   market.Source
	chains   options.ChainProvider
	store    *gormstore.GormStore
	runs     *runlog.Store
	registry *exitplan.Registry
	deduper  *alert.Deduper
	alertLog *alert.Log
	notify   notifier.TextNotifier

	gateCfg eligibility.Settings
	selCfg  options.SelectorConfig
	weights scoring.Weights
	tiers   scoring.CapitalTiers
}

// symbolResult 是单 symbol 评估的中间产物。
type symbolResult struct {
	symbol     string
	price      float64
	priceOK    bool
	mode       eligibility.Mode
	trace      eligibility.Trace
	selection  options.Result
	score      scoring.Breakdown
	resolution verdict.Resolution
	risk       regime.Risk
	dataFatal  bool
}

// RunOnce 执行一轮评估。行情侧失败降级为结构化结论，绝不让整轮失败；
// 只有持久化等编排故障才返回 error。
func (r *Runner) RunOnce(ctx context.Context) error {
	runID := uuid.NewString()
	asOf := time.Now().UTC()
	status := r.source.Status(ctx)

	openPositions, err := r.store.ListOpenPositions(ctx)
	if err != nil {
		return fmt.Errorf("list open positions: %w", err)
	}
	openBySymbol := make(map[string][]position.Position)
	for _, pos := range openPositions {
		openBySymbol[pos.Symbol] = append(openBySymbol[pos.Symbol], pos)
	}

	results := make([]symbolResult, len(r.cfg.Universe.Symbols))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(maxConcurrentSymbols)
	for i, sym := range r.cfg.Universe.Symbols {
		i, sym := i, sym
		group.Go(func() error {
			results[i] = r.evaluateSymbol(groupCtx, sym, status, len(openPositions), openBySymbol[strings.ToUpper(sym.Symbol)], asOf)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}

	entries := make([]gormstore.VerdictEntry, 0, len(results))
	rows := make(map[string]lifecycle.Row, len(results))
	for _, res := range results {
		entries = append(entries, gormstore.VerdictEntry{
			RunID:       runID,
			Symbol:      res.symbol,
			Mode:        string(res.mode),
			Verdict:     string(res.resolution.Verdict),
			Reason:      res.resolution.Reason,
			Score:       res.score.Composite,
			Band:        string(res.score.Band),
			Contract:    res.selection.Contract,
			Trace:       res.trace,
			EvaluatedAt: asOf,
		})
		row := lifecycle.Row{
			DataFailure:   res.dataFatal,
			RegimeBlocked: res.resolution.ReasonCode == verdict.CodeRegimeRiskOff,
		}
		if res.priceOK {
			price := res.price
			row.Price = &price
		}
		rows[res.symbol] = row
	}
	if err := r.store.InsertVerdicts(ctx, entries); err != nil {
		return fmt.Errorf("persist verdicts: %w", err)
	}

	// 持仓巡检：stop 引擎优先，HOLD 才进入启发式梯子。
	var alerts []alert.Alert
	for _, res := range results {
		for _, pos := range openBySymbol[res.symbol] {
			alerts = append(alerts, r.inspectPosition(ctx, pos, res, asOf)...)
		}
	}

	events := lifecycle.EvaluateRun(openPositions, rows)
	if err := r.store.InsertLifecycleEvents(ctx, runID, events); err != nil {
		return fmt.Errorf("persist lifecycle events: %w", err)
	}
	for _, ev := range events {
		alerts = append(alerts, alert.Alert{
			Type:       "LIFECYCLE",
			ReasonCode: ev.Reason,
			Symbol:     ev.Symbol,
			Stage:      string(ev.Action),
			Severity:   lifecycleSeverity(ev.Action),
			Summary:    ev.Directive,
			ActionHint: ev.Detail,
		})
		text := notifier.FromLifecycleEvent(ev, asOf).RenderMarkdown()
		logger.InfoBlock(text)
	}

	sent, suppressed := r.dispatchAlerts(ctx, alerts, asOf)

	r.recordRun(ctx, runID, asOf, status, results, len(events), sent, suppressed)

	stats := r.source.Stats()
	logger.Infof("run %s done: symbols=%d events=%d alerts_sent=%d suppressed=%d source_errors=%d",
		runID, len(results), len(events), sent, suppressed, stats.Errors)
	return nil
}

// recordRun 把本轮汇总写进独立的轮次日志库；失败只记警告，不影响主链路。
func (r *Runner) recordRun(ctx context.Context, runID string, startedAt time.Time, status market.MarketStatus, results []symbolResult, events, sent, suppressed int) {
	if r.runs == nil {
		return
	}
	rec := runlog.RunRecord{
		RunID:            runID,
		StartedAt:        startedAt.UnixMilli(),
		FinishedAt:       time.Now().UnixMilli(),
		MarketStatus:     string(status),
		SymbolsTotal:     len(results),
		LifecycleEvents:  events,
		AlertsSent:       sent,
		AlertsSuppressed: suppressed,
	}
	rec.DurationMillis = rec.FinishedAt - rec.StartedAt
	for _, res := range results {
		switch res.resolution.Verdict {
		case verdict.Eligible:
			rec.EligibleCount++
		case verdict.Blocked:
			rec.BlockedCount++
		default:
			rec.HoldCount++
		}
	}
	if err := r.runs.Append(ctx, rec); err != nil {
		logger.Warnf("run log append failed: %v", err)
	}
}

// evaluateSymbol 运行 gate→selector→scoring→verdict 流水线。
// 任何行情缺口都折叠为结构化结论，不向上抛错。
func (r *Runner) evaluateSymbol(ctx context.Context, sym config.UniverseSymbol, status market.MarketStatus, openCount int, symPositions []position.Position, asOf time.Time) symbolResult {
	symbol := strings.ToUpper(strings.TrimSpace(sym.Symbol))
	res := symbolResult{symbol: symbol, mode: eligibility.ModeNone, risk: regime.RiskOn}

	daily, err := r.source.FetchDaily(ctx, symbol, r.cfg.Market.DailyCandleLimit)
	if err != nil {
		logger.Warnf("%s: fetch daily failed: %v", symbol, err)
	}
	weekly, err := r.source.FetchWeekly(ctx, symbol, r.cfg.Market.WeeklyCandleLimit)
	if err != nil {
		logger.Warnf("%s: fetch weekly failed: %v", symbol, err)
	}
	price, err := r.source.LatestPrice(ctx, symbol)
	if err != nil {
		logger.Warnf("%s: latest price unavailable: %v", symbol, err)
	} else {
		res.price = price
		res.priceOK = true
	}

	mode, trace := eligibility.Run(eligibility.Input{
		Symbol:     symbol,
		SharesHeld: float64(sym.SharesHeld),
		Price:      price,
		Daily:      daily,
		Weekly:     weekly,
	}, r.gateCfg)
	res.mode = mode
	res.trace = trace
	res.risk = regime.RiskOf(trace.Regime.Final)

	current := verdict.Hold
	currentReason := "screen: " + strings.Join(trace.RejectionReasonCodes, ",")
	chainAvailable := true
	if mode != eligibility.ModeNone && trace.Price > 0 {
		res.selection = options.Select(ctx, symbol, mode, options.Snapshot{
			Price:  trace.Price,
			Regime: trace.Regime.Final,
			AsOf:   asOf,
		}, r.chains, r.selCfg)
		chainAvailable = !containsReason(res.selection.RejectionReasons, options.ReasonChainUnavailable)
		if res.selection.Eligible {
			current = verdict.Eligible
			currentReason = fmt.Sprintf("%s candidate %s %.1f @ %s", mode,
				res.selection.Contract.Right, res.selection.Contract.Strike,
				res.selection.Contract.Expiry.Format("2006-01-02"))
		} else {
			currentReason = "selector: " + strings.Join(res.selection.RejectionReasons, ",")
		}
	}

	res.score = r.scoreSymbol(res)

	resolution := verdict.Resolve(current, currentReason, verdict.Context{
		PositionBlocked:     r.cfg.Exposure.OnePositionPerSym && len(symPositions) > 0,
		PositionBlockReason: fmt.Sprintf("%d open position(s) on %s", len(symPositions), symbol),
		ExposureBlocked:     r.cfg.Exposure.MaxOpenPositions > 0 && openCount >= r.cfg.Exposure.MaxOpenPositions,
		ExposureBlockReason: fmt.Sprintf("open positions %d >= limit %d", openCount, r.cfg.Exposure.MaxOpenPositions),
		ChainAvailable:      chainAvailable,
		PriceMissing:        !res.priceOK && trace.Price <= 0,
		MissingIntraday:     missingIntraday(res.selection),
		MarketStatus:        status,
		Risk:                res.risk,
	})
	res.resolution = resolution
	res.dataFatal = resolution.DataIncompleteType == verdict.IncompleteFatal
	return res
}

// scoreSymbol 把评估中间产物折算成五个分项。启发式，只影响排序展示。
func (r *Runner) scoreSymbol(res symbolResult) scoring.Breakdown {
	c := scoring.Components{}

	c.DataQuality = 100
	if !res.priceOK {
		c.DataQuality -= 40
	}
	if len(res.trace.RuleChecks) > 0 && res.trace.RuleChecks[0].Rule == "min_candles" && !res.trace.RuleChecks[0].Passed {
		c.DataQuality = 0
	}

	switch res.trace.Regime.Final {
	case regime.Up:
		c.Regime = 90
	case regime.Sideways:
		c.Regime = 55
	case regime.Down:
		c.Regime = 35
	}
	if res.trace.Regime.Conflict {
		c.Regime = math.Min(c.Regime, 40)
	}

	if res.selection.Eligible {
		ct := res.selection.Contract
		c.OptionsLiquidity = 100 - math.Min(ct.SpreadPct/r.selCfg.MaxSpreadPct, 1)*60
		fit := 1 - math.Min(math.Abs(math.Abs(ct.Delta)-r.selCfg.TargetDelta)/r.selCfg.TargetDelta, 1)
		c.StrategyFit = 40 + 60*fit
		c.CapitalEfficiency = scoring.CapitalEfficiency(ct.Strike, r.cfg.Scoring.AccountEquity, r.tiers)
	} else {
		c.OptionsLiquidity = 20
		c.StrategyFit = 20
		c.CapitalEfficiency = 50
	}

	b := scoring.Compute(c, r.weights)
	// 趋势冲突时封顶到 C 档下沿，避免冲突标的混进候选前列。
	if res.trace.Regime.Conflict && b.Composite > 49 {
		b = b.WithComposite(49, "capped: daily/weekly regime conflict")
	}
	return b
}

// inspectPosition 对一笔持仓跑 stop 引擎与动作梯子，产出告警。
func (r *Runner) inspectPosition(ctx context.Context, pos position.Position, res symbolResult, asOf time.Time) []alert.Alert {
	dte := options.DaysToExpiry(asOf, pos.Expiry)

	// 没绑定退出计划的持仓回填默认模板；构建失败保持 nil，
	// stop 引擎会以 HOLD/NO_EXIT_PLAN 显式暴露。
	if pos.ExitPlan == nil && r.cfg.ExitPlans.DefaultPlan != "" {
		if plan, err := r.registry.Build(r.cfg.ExitPlans.DefaultPlan, r.cfg.ExitPlans.Params); err == nil {
			pos.ExitPlan = &plan
		} else {
			logger.Warnf("%s: default exit plan %q unusable: %v", pos.Symbol, r.cfg.ExitPlans.DefaultPlan, err)
		}
	}

	optionValue, ok := r.positionOptionValue(ctx, pos)
	if !ok {
		logger.Warnf("%s: option value unavailable for position %d, stop rules skipped", pos.Symbol, pos.ID)
		return nil
	}

	stopDecision := exit.Evaluate(exit.Input{
		Position:    pos,
		OptionValue: optionValue,
		Price:       res.price,
		DTE:         dte,
		Risk:        res.risk,
	})
	if stopDecision.Action != exit.ActionHold {
		return []alert.Alert{{
			Type:       "STOP",
			ReasonCode: strings.Join(stopDecision.ReasonCodes, ","),
			Symbol:     pos.Symbol,
			Stage:      string(pos.State),
			Severity:   stopSeverity(stopDecision.Urgency),
			Summary:    fmt.Sprintf("%s position %d: %s", pos.Symbol, pos.ID, strings.Join(stopDecision.ReasonCodes, ",")),
			ActionHint: stopDecision.Detail,
		}}
	}

	premiumPct := 0.0
	if pos.PremiumCollected > 0 {
		premiumPct = (1 - optionValue/pos.PremiumCollected) * 100
	}
	actionDecision := action.Evaluate(pos, action.Context{
		Price:              res.price,
		EMA50:              res.trace.Snapshot.EMAMid,
		EMA200:             res.trace.Snapshot.EMASlow,
		Risk:               res.risk,
		PremiumCapturedPct: premiumPct,
		DTE:                dte,
		AsOf:               asOf,
	})
	if actionDecision.Action == action.ActionHold {
		return nil
	}
	summary := fmt.Sprintf("%s position %d: %s", pos.Symbol, pos.ID, actionDecision.Action)
	if actionDecision.RollPlan != nil {
		summary += fmt.Sprintf(" → strike %.2f exp %s", actionDecision.RollPlan.NewStrike,
			actionDecision.RollPlan.NewExpiry.Format("2006-01-02"))
	}
	return []alert.Alert{{
		Type:       "ACTION",
		ReasonCode: strings.Join(actionDecision.ReasonCodes, ","),
		Symbol:     pos.Symbol,
		Stage:      string(pos.State),
		Severity:   alert.SeverityWarning,
		Summary:    summary,
		ActionHint: actionDecision.Detail,
	}}
}

// positionOptionValue 从期权链回查该持仓合约的当前平仓成本。
func (r *Runner) positionOptionValue(ctx context.Context, pos position.Position) (float64, bool) {
	right := options.Put
	if pos.Strategy == position.StrategyCC {
		right = options.Call
	}
	quotes, err := r.chains.Chain(ctx, pos.Symbol, pos.Expiry, right)
	if err != nil {
		return 0, false
	}
	for _, q := range quotes {
		if math.Abs(q.Strike-pos.Strike) > 1e-9 {
			continue
		}
		if q.Bid == nil || q.Ask == nil {
			return 0, false
		}
		mid := (*q.Bid + *q.Ask) / 2
		if mid <= 0 {
			return 0, false
		}
		return mid * 100 * float64(pos.Contracts), true
	}
	return 0, false
}

// dispatchAlerts 把告警过一遍冷却去重，落 JSONL 与数据库，再推外部渠道。
// 返回 (实际发送数, 被冷却抑制数)。
func (r *Runner) dispatchAlerts(ctx context.Context, alerts []alert.Alert, asOf time.Time) (int, int) {
	var sent, suppressedCount int
	for _, a := range alerts {
		send, suppressed := r.deduper.ShouldSend(a.Fingerprint())
		if !send {
			suppressedCount++
		}
		rec, err := r.alertLog.Append(a, send, suppressed)
		if err != nil {
			logger.Errorf("alert log append failed: %v", err)
			continue
		}
		if err := r.store.InsertAlertRecord(ctx, rec); err != nil {
			logger.Warnf("alert record mirror failed: %v", err)
		}
		if !send {
			continue
		}
		sent++
		if r.notify == nil {
			continue
		}
		text := notifier.FromAlert(a, asOf).RenderMarkdown()
		if err := r.notify.SendText(text); err != nil {
			logger.Errorf("notify failed (fingerprint=%s): %v", rec.Fingerprint, err)
		}
	}
	return sent, suppressedCount
}

func containsReason(reasons []string, want string) bool {
	for _, r := range reasons {
		if r == want {
			return true
		}
	}
	return false
}

// missingIntraday 标注盘中缺失字段；这些缺口永不致命。
func missingIntraday(sel options.Result) []string {
	if !sel.Eligible || sel.Contract == nil {
		return nil
	}
	var missing []string
	if sel.Contract.OpenInterest == 0 {
		missing = append(missing, "open_interest")
	}
	if sel.Contract.Volume == 0 {
		missing = append(missing, "volume")
	}
	return missing
}

func stopSeverity(u exit.Urgency) alert.Severity {
	switch u {
	case exit.UrgencyHigh:
		return alert.SeverityCritical
	case exit.UrgencyMedium:
		return alert.SeverityWarning
	default:
		return alert.SeverityInfo
	}
}

func lifecycleSeverity(a lifecycle.Action) alert.Severity {
	switch a {
	case lifecycle.ActionAbort, lifecycle.ActionExit:
		return alert.SeverityCritical
	case lifecycle.ActionScaleOut:
		return alert.SeverityWarning
	default:
		return alert.SeverityInfo
	}
}
