package market

import "context"

// MarketStatus 描述评估时刻市场的开闭状态。
type MarketStatus string

const (
	MarketOpen    MarketStatus = "OPEN"
	MarketClosed  MarketStatus = "CLOSED"
	MarketUnknown MarketStatus = "UNKNOWN"
)

// SourceStats 记录行情源的请求统计，便于运行时观察。
type SourceStats struct {
	HistoryRequests int64 `json:"history_requests"`
	QuoteRequests   int64 `json:"quote_requests"`
	Errors          int64 `json:"errors"`
}

// Source 是唯一会发生网络 I/O 的行情入口，重试/退避由实现方负责。
type Source interface {
	// FetchDaily 返回按时间升序排列的日线，最多 limit 根。
	FetchDaily(ctx context.Context, symbol string, limit int) ([]Candle, error)
	// FetchWeekly 返回周线序列，用于多周期趋势确认；无周线数据时返回 nil。
	FetchWeekly(ctx context.Context, symbol string, limit int) ([]Candle, error)
	// LatestPrice 返回最新成交价；行情缺失返回 0 与 error。
	LatestPrice(ctx context.Context, symbol string) (float64, error)
	// Status 返回市场开闭状态，未知时返回 MarketUnknown。
	Status(ctx context.Context) MarketStatus
	// Stats 返回累计请求统计。
	Stats() SourceStats
}
