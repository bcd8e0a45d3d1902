package options

import (
	"context"
	"time"

	"wheelhouse/internal/regime"
)

// Right 表示期权方向。
type Right string

const (
	Put  Right = "PUT"
	Call Right = "CALL"
)

// Quote 是链上的一行报价。延迟行情下流动性字段可能缺失，用指针区分缺失与 0。
type Quote struct {
	Strike       float64  `json:"strike"`
	Delta        float64  `json:"delta"`
	Bid          *float64 `json:"bid,omitempty"`
	Ask          *float64 `json:"ask,omitempty"`
	OpenInterest *int64   `json:"open_interest,omitempty"`
	Volume       *int64   `json:"volume,omitempty"`
}

// ChainProvider 是期权链的唯一外部能力入口。实现方负责重试/退避，
// 并把鉴权/限流等错误折叠为 error，由选择器转成 chain_unavailable。
type ChainProvider interface {
	Expirations(ctx context.Context, symbol string) ([]time.Time, error)
	Chain(ctx context.Context, symbol string, expiration time.Time, right Right) ([]Quote, error)
}

// Snapshot 是选择器所需的标的快照。
type Snapshot struct {
	Price  float64          `json:"price"`
	IVRank float64          `json:"iv_rank"`
	Regime regime.Direction `json:"regime"`
	AsOf   time.Time        `json:"as_of"`
}

// Contract 是选中的具体合约。
type Contract struct {
	Symbol       string    `json:"symbol"`
	Right        Right     `json:"right"`
	Strike       float64   `json:"strike"`
	Expiry       time.Time `json:"expiry"`
	DTE          int       `json:"dte"`
	Delta        float64   `json:"delta"`
	Bid          float64   `json:"bid"`
	Ask          float64   `json:"ask"`
	Mid          float64   `json:"mid"`
	SpreadPct    float64   `json:"spread_pct"`
	ROC          float64   `json:"roc"`
	OpenInterest int64     `json:"open_interest"`
	Volume       int64     `json:"volume"`
}

// Result 是一次合约选择的结果。Eligible 为真时 Contract 必非 nil，
// 否则 RejectionReasons 必非空。
type Result struct {
	Eligible         bool      `json:"eligible"`
	Contract         *Contract `json:"chosen_contract,omitempty"`
	ROC              float64   `json:"roc,omitempty"`
	DTE              int       `json:"dte,omitempty"`
	SpreadPct        float64   `json:"spread_pct,omitempty"`
	RejectionReasons []string  `json:"rejection_reasons,omitempty"`
}

func reject(reasons ...string) Result {
	return Result{Eligible: false, RejectionReasons: reasons}
}

// DaysToExpiry 按自然日计算 DTE（忽略时分秒）。
func DaysToExpiry(asOf, expiry time.Time) int {
	a := time.Date(asOf.Year(), asOf.Month(), asOf.Day(), 0, 0, 0, 0, time.UTC)
	e := time.Date(expiry.Year(), expiry.Month(), expiry.Day(), 0, 0, 0, 0, time.UTC)
	return int(e.Sub(a).Hours() / 24)
}
