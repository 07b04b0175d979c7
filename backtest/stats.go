package backtest

import (
	"math"
	"time"

	"github.com/dnldd/edge/shared"
)

// EquityPoint represents the account equity after a closed trade.
type EquityPoint struct {
	Date   time.Time
	Equity float64
}

// Stats represents aggregate backtest performance statistics. They are derived
// purely from the trade history, recomputing them from the same trades always
// yields identical numbers.
type Stats struct {
	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	WinRate       float64
	ProfitFactor  float64
	MaxDrawdown   float64
	SharpeLike    float64
	NetProfit     float64
	EquityCurve   []EquityPoint
}

// ComputeStats aggregates the provided trade history into backtest statistics.
func ComputeStats(trades []*shared.Trade, initialBalance float64) *Stats {
	stats := &Stats{
		TotalTrades: len(trades),
		EquityCurve: make([]EquityPoint, 0, len(trades)),
	}

	var grossProfit float64
	var grossLoss float64
	returns := make([]float64, 0, len(trades))

	equity := initialBalance
	peak := initialBalance
	for idx := range trades {
		pnl := trades[idx].PNL
		stats.NetProfit += pnl

		switch {
		case pnl > 0:
			stats.WinningTrades++
			grossProfit += pnl
		case pnl < 0:
			stats.LosingTrades++
			grossLoss += -pnl
		}

		if equity > 0 {
			returns = append(returns, pnl/equity)
		}

		equity += pnl
		stats.EquityCurve = append(stats.EquityCurve, EquityPoint{
			Date:   trades[idx].ClosedOn,
			Equity: equity,
		})

		if equity > peak {
			peak = equity
		}
		if peak > 0 {
			drawdown := (peak - equity) / peak
			if drawdown > stats.MaxDrawdown {
				stats.MaxDrawdown = drawdown
			}
		}
	}

	if stats.TotalTrades > 0 {
		stats.WinRate = float64(stats.WinningTrades) / float64(stats.TotalTrades)
	}
	if grossLoss > 0 {
		stats.ProfitFactor = grossProfit / grossLoss
	}

	stats.SharpeLike = sharpeLike(returns)

	return stats
}

// sharpeLike returns the mean per-trade return over its standard deviation.
func sharpeLike(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}

	var sum float64
	for idx := range returns {
		sum += returns[idx]
	}
	mean := sum / float64(len(returns))

	var varianceSum float64
	for idx := range returns {
		diff := returns[idx] - mean
		varianceSum += diff * diff
	}
	stddev := math.Sqrt(varianceSum / float64(len(returns)-1))
	if stddev == 0 {
		return 0
	}

	return mean / stddev
}
