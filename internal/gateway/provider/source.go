package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tidwall/gjson"

	"wheelhouse/internal/logger"
	"wheelhouse/internal/market"
)

const maxHistoryLimit = 1000

// Source 基于延迟行情 HTTP API 实现 market.Source。
// 重试与退避在这里收口，上层引擎拿到的只有数据或结构化失败。
type Source struct {
	cfg    Config
	client *http.Client

	historyRequests atomic.Int64
	quoteRequests   atomic.Int64
	errors          atomic.Int64

	statusMu sync.Mutex
	status   market.MarketStatus
	statusAt time.Time
}

func NewSource(cfg Config) *Source {
	final := cfg.withDefaults()
	return &Source{
		cfg:    final,
		client: &http.Client{Timeout: final.HTTPTimeout},
		status: market.MarketUnknown,
	}
}

func (s *Source) FetchDaily(ctx context.Context, symbol string, limit int) ([]market.Candle, error) {
	return s.fetchHistory(ctx, symbol, "1d", limit)
}

func (s *Source) FetchWeekly(ctx context.Context, symbol string, limit int) ([]market.Candle, error) {
	return s.fetchHistory(ctx, symbol, "1w", limit)
}

func (s *Source) fetchHistory(ctx context.Context, symbol, interval string, limit int) ([]market.Candle, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	if limit <= 0 {
		limit = 250
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	s.historyRequests.Add(1)

	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("interval", interval)
	q.Set("limit", fmt.Sprintf("%d", limit))
	body, err := s.get(ctx, "/v1/candles", q)
	if err != nil {
		s.errors.Add(1)
		return nil, err
	}

	rows := gjson.GetBytes(body, "candles")
	if !rows.Exists() {
		s.errors.Add(1)
		return nil, fmt.Errorf("candles missing in response for %s", symbol)
	}
	out := make([]market.Candle, 0, int(rows.Get("#").Int()))
	rows.ForEach(func(_, row gjson.Result) bool {
		c := market.Candle{
			TS:     time.UnixMilli(row.Get("ts").Int()).UTC(),
			Open:   row.Get("open").Float(),
			High:   row.Get("high").Float(),
			Low:    row.Get("low").Float(),
			Close:  row.Get("close").Float(),
			Volume: row.Get("volume").Float(),
		}
		out = append(out, c)
		return true
	})
	if err := market.ValidateSeries(out); err != nil {
		s.errors.Add(1)
		return nil, fmt.Errorf("candle series for %s: %w", symbol, err)
	}
	return out, nil
}

func (s *Source) LatestPrice(ctx context.Context, symbol string) (float64, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return 0, fmt.Errorf("symbol is required")
	}
	s.quoteRequests.Add(1)

	q := url.Values{}
	q.Set("symbol", symbol)
	body, err := s.get(ctx, "/v1/quote", q)
	if err != nil {
		s.errors.Add(1)
		return 0, err
	}
	price := gjson.GetBytes(body, "last").Float()
	if price <= 0 {
		s.errors.Add(1)
		return 0, fmt.Errorf("no last price for %s", symbol)
	}
	return price, nil
}

// Status 带 1 分钟缓存，避免每个 symbol 都打一次市场时钟接口。
func (s *Source) Status(ctx context.Context) market.MarketStatus {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	if time.Since(s.statusAt) < time.Minute {
		return s.status
	}
	body, err := s.get(ctx, "/v1/market/clock", nil)
	if err != nil {
		logger.Warnf("market clock unavailable: %v", err)
		s.status = market.MarketUnknown
		s.statusAt = time.Now()
		return s.status
	}
	switch strings.ToUpper(gjson.GetBytes(body, "status").String()) {
	case "OPEN":
		s.status = market.MarketOpen
	case "CLOSED":
		s.status = market.MarketClosed
	default:
		s.status = market.MarketUnknown
	}
	s.statusAt = time.Now()
	return s.status
}

func (s *Source) Stats() market.SourceStats {
	return market.SourceStats{
		HistoryRequests: s.historyRequests.Load(),
		QuoteRequests:   s.quoteRequests.Load(),
		Errors:          s.errors.Load(),
	}
}

// get 执行一次带重试的 GET。429/5xx 按线性退避重试，4xx 直接失败。
func (s *Source) get(ctx context.Context, path string, q url.Values) ([]byte, error) {
	endpoint := strings.TrimRight(s.cfg.BaseURL, "/") + path
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}

	var lastErr error
	for i := 0; i < s.cfg.MaxRetries; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(i) * s.cfg.RetryBackoff):
			}
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		if s.cfg.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
		}
		resp, err := s.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		switch {
		case resp.StatusCode/100 == 2:
			if readErr != nil {
				lastErr = readErr
				continue
			}
			return body, nil
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode/100 == 5:
			lastErr = fmt.Errorf("%s status=%d", path, resp.StatusCode)
			continue
		default:
			return nil, fmt.Errorf("%s status=%d", path, resp.StatusCode)
		}
	}
	return nil, lastErr
}
