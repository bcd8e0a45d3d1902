package provider

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"wheelhouse/internal/logger"
	"wheelhouse/internal/options"
)

// ChainClient 基于同一 HTTP 服务实现 options.ChainProvider。
// 鉴权/限流/网络错误统一折叠为 error，由选择器归为 chain_unavailable。
type ChainClient struct {
	source *Source
}

func NewChainClient(source *Source) *ChainClient {
	return &ChainClient{source: source}
}

func (c *ChainClient) Expirations(ctx context.Context, symbol string) ([]time.Time, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	body, err := c.source.get(ctx, "/v1/options/expirations", q)
	if err != nil {
		return nil, fmt.Errorf("expirations for %s: %w", symbol, err)
	}

	var out []time.Time
	gjson.GetBytes(body, "expirations").ForEach(func(_, row gjson.Result) bool {
		t, err := time.ParseInLocation("2006-01-02", row.String(), time.UTC)
		if err != nil {
			logger.Warnf("skip bad expiration %q for %s: %v", row.String(), symbol, err)
			return true
		}
		out = append(out, t)
		return true
	})
	return out, nil
}

func (c *ChainClient) Chain(ctx context.Context, symbol string, expiration time.Time, right options.Right) ([]options.Quote, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("expiration", expiration.Format("2006-01-02"))
	q.Set("right", strings.ToLower(string(right)))
	body, err := c.source.get(ctx, "/v1/options/chain", q)
	if err != nil {
		return nil, fmt.Errorf("chain for %s %s: %w", symbol, expiration.Format("2006-01-02"), err)
	}

	var out []options.Quote
	gjson.GetBytes(body, "quotes").ForEach(func(_, row gjson.Result) bool {
		// 坏行只跳过这一行，不让整条链失败。
		strike := row.Get("strike").Float()
		if strike <= 0 {
			logger.Warnf("skip bad strike row for %s: %s", symbol, row.Raw)
			return true
		}
		quote := options.Quote{
			Strike: strike,
			Delta:  row.Get("delta").Float(),
		}
		if v := row.Get("bid"); v.Exists() {
			f := v.Float()
			quote.Bid = &f
		}
		if v := row.Get("ask"); v.Exists() {
			f := v.Float()
			quote.Ask = &f
		}
		if v := row.Get("open_interest"); v.Exists() {
			n := v.Int()
			quote.OpenInterest = &n
		}
		if v := row.Get("volume"); v.Exists() {
			n := v.Int()
			quote.Volume = &n
		}
		out = append(out, quote)
		return true
	})
	return out, nil
}
