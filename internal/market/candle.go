package market

import (
	"fmt"
	"time"
)

// Candle 表示一根日线/周线 OHLCV。
type Candle struct {
	TS     time.Time `json:"ts"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// ValidateSeries 检查 K 线序列严格升序且无重复时间戳。
func ValidateSeries(candles []Candle) error {
	for i := 1; i < len(candles); i++ {
		if !candles[i].TS.After(candles[i-1].TS) {
			return fmt.Errorf("candle series not strictly ascending at index %d (ts %s <= %s)",
				i, candles[i].TS.Format(time.RFC3339), candles[i-1].TS.Format(time.RFC3339))
		}
	}
	return nil
}

// Closes 提取收盘价序列。
func Closes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

// Highs 提取最高价序列。
func Highs(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.High
	}
	return out
}

// Lows 提取最低价序列。
func Lows(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Low
	}
	return out
}

// LastClose 返回最后一根收盘价，空序列返回 0。
func LastClose(candles []Candle) float64 {
	if len(candles) == 0 {
		return 0
	}
	return candles[len(candles)-1].Close
}
