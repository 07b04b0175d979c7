package structure

import (
	"github.com/dnldd/edge/shared"
)

// fetchLiquiditySweeps returns the liquidity sweeps of the provided window. A
// bullish sweep occurs when a candle's low breaks below the prior lookback
// minimum low and the candle closes back above it, a stop hunt below resting
// liquidity. The bearish mirror applies to prior highs.
func fetchLiquiditySweeps(candles []*shared.Candlestick, lookback int) []LiquiditySweep {
	sweeps := make([]LiquiditySweep, 0)

	for idx := lookback; idx < len(candles); idx++ {
		candle := candles[idx]

		priorLow := lowestLow(candles[idx-lookback : idx])
		if candle.Low < priorLow && candle.Close > priorLow {
			sweeps = append(sweeps, LiquiditySweep{
				Level:     priorLow,
				Sentiment: shared.Bullish,
				Date:      candle.Date,
			})
			continue
		}

		priorHigh := highestHigh(candles[idx-lookback : idx])
		if candle.High > priorHigh && candle.Close < priorHigh {
			sweeps = append(sweeps, LiquiditySweep{
				Level:     priorHigh,
				Sentiment: shared.Bearish,
				Date:      candle.Date,
			})
		}
	}

	return sweeps
}

// fetchLiquidityLevels returns the resting liquidity levels of the provided
// window, the prior extremes stops are expected to accumulate around.
func fetchLiquidityLevels(swingHighs []SwingPoint, swingLows []SwingPoint) []float64 {
	levels := make([]float64, 0, len(swingHighs)+len(swingLows))
	for idx := range swingLows {
		levels = append(levels, swingLows[idx].Price)
	}
	for idx := range swingHighs {
		levels = append(levels, swingHighs[idx].Price)
	}

	return levels
}

// lowestLow returns the lowest low of the provided candles.
func lowestLow(candles []*shared.Candlestick) float64 {
	lowest := candles[0].Low
	for idx := range candles {
		if candles[idx].Low < lowest {
			lowest = candles[idx].Low
		}
	}

	return lowest
}

// highestHigh returns the highest high of the provided candles.
func highestHigh(candles []*shared.Candlestick) float64 {
	highest := candles[0].High
	for idx := range candles {
		if candles[idx].High > highest {
			highest = candles[idx].High
		}
	}

	return highest
}
