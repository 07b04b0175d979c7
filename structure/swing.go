package structure

import (
	"github.com/dnldd/edge/shared"
)

// SwingPoint represents a swing extreme in a candle window.
type SwingPoint struct {
	Index int
	Price float64
}

// fetchSwingHighs returns the swing highs of the provided window. An index is a
// swing high if its high strictly exceeds the highs of the half-window on both
// sides of it.
func fetchSwingHighs(candles []*shared.Candlestick, halfWindow int) []SwingPoint {
	swings := make([]SwingPoint, 0)

	for idx := halfWindow; idx < len(candles)-halfWindow; idx++ {
		high := candles[idx].High

		isSwing := true
		for offset := 1; offset <= halfWindow; offset++ {
			if candles[idx-offset].High >= high || candles[idx+offset].High >= high {
				isSwing = false
				break
			}
		}

		if isSwing {
			swings = append(swings, SwingPoint{Index: idx, Price: high})
		}
	}

	return swings
}

// fetchSwingLows returns the swing lows of the provided window, symmetric to
// fetchSwingHighs.
func fetchSwingLows(candles []*shared.Candlestick, halfWindow int) []SwingPoint {
	swings := make([]SwingPoint, 0)

	for idx := halfWindow; idx < len(candles)-halfWindow; idx++ {
		low := candles[idx].Low

		isSwing := true
		for offset := 1; offset <= halfWindow; offset++ {
			if candles[idx-offset].Low <= low || candles[idx+offset].Low <= low {
				isSwing = false
				break
			}
		}

		if isSwing {
			swings = append(swings, SwingPoint{Index: idx, Price: low})
		}
	}

	return swings
}

// classifyTrend derives the window trend from its swing progression. The trend is
// bullish only if the two most recent swing highs and the two most recent swing
// lows are both strictly increasing, bearish on the strict mirror, and ranging
// otherwise or when fewer than two swings of either type exist.
func classifyTrend(swingHighs []SwingPoint, swingLows []SwingPoint) Trend {
	if len(swingHighs) < 2 || len(swingLows) < 2 {
		return Ranging
	}

	prevHigh := swingHighs[len(swingHighs)-2].Price
	lastHigh := swingHighs[len(swingHighs)-1].Price
	prevLow := swingLows[len(swingLows)-2].Price
	lastLow := swingLows[len(swingLows)-1].Price

	switch {
	case lastHigh > prevHigh && lastLow > prevLow:
		return BullishTrend
	case lastHigh < prevHigh && lastLow < prevLow:
		return BearishTrend
	default:
		return Ranging
	}
}

// fetchStructureBreaks returns closes beyond the most recent swing extremes. A
// close above the last swing high is a bullish break of structure, a close below
// the last swing low the bearish mirror.
func fetchStructureBreaks(candles []*shared.Candlestick, swingHighs []SwingPoint, swingLows []SwingPoint) []StructureBreak {
	breaks := make([]StructureBreak, 0)

	if len(swingHighs) > 0 {
		lastHigh := swingHighs[len(swingHighs)-1]
		for idx := lastHigh.Index + 1; idx < len(candles); idx++ {
			if candles[idx].Close > lastHigh.Price {
				breaks = append(breaks, StructureBreak{
					Level:     lastHigh.Price,
					Sentiment: shared.Bullish,
					Date:      candles[idx].Date,
				})
				break
			}
		}
	}

	if len(swingLows) > 0 {
		lastLow := swingLows[len(swingLows)-1]
		for idx := lastLow.Index + 1; idx < len(candles); idx++ {
			if candles[idx].Close < lastLow.Price {
				breaks = append(breaks, StructureBreak{
					Level:     lastLow.Price,
					Sentiment: shared.Bearish,
					Date:      candles[idx].Date,
				})
				break
			}
		}
	}

	return breaks
}
