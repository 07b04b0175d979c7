package structure

import (
	"github.com/dnldd/edge/shared"
)

// fetchFairValueGaps returns the unfilled fair value gaps of the provided window.
// For three consecutive candles a bullish gap exists when the middle candle's high
// exceeds the previous high, the next candle's low holds above the middle candle's
// low and the distance between the next low and previous high clears the minimum
// gap ratio. Bearish gaps are the mirror. Gaps covered by a later candle's range
// are filled and excluded.
func fetchFairValueGaps(candles []*shared.Candlestick, minGapRatio float64) []FairValueGap {
	gaps := make([]FairValueGap, 0)

	for idx := 1; idx < len(candles)-1; idx++ {
		prev := candles[idx-1]
		cur := candles[idx]
		next := candles[idx+1]

		gap, ok := fetchGapAt(prev, cur, next, minGapRatio)
		if !ok {
			continue
		}

		if gapFilled(candles[idx+2:], gap) {
			continue
		}

		gaps = append(gaps, gap)
	}

	return gaps
}

// fetchGapAt evaluates the three provided consecutive candles for a fair value gap.
func fetchGapAt(prev *shared.Candlestick, cur *shared.Candlestick, next *shared.Candlestick, minGapRatio float64) (FairValueGap, bool) {
	if cur.Close == 0 {
		return FairValueGap{}, false
	}

	minGapSize := minGapRatio * cur.Close

	// Bullish gap: displacement up leaves untraded range between the previous high
	// and the next low.
	if cur.High > prev.High && next.Low > cur.Low && next.Low-prev.High > minGapSize {
		gapLow := prev.High
		gapHigh := next.Low
		return FairValueGap{
			High:      gapHigh,
			Midpoint:  (gapHigh + gapLow) / 2,
			Low:       gapLow,
			Sentiment: shared.Bullish,
			GapRatio:  (gapHigh - gapLow) / cur.Close,
			Date:      cur.Date,
		}, true
	}

	// Bearish gap: displacement down leaves untraded range between the next high
	// and the previous low.
	if cur.Low < prev.Low && next.High < cur.High && prev.Low-next.High > minGapSize {
		gapLow := next.High
		gapHigh := prev.Low
		return FairValueGap{
			High:      gapHigh,
			Midpoint:  (gapHigh + gapLow) / 2,
			Low:       gapLow,
			Sentiment: shared.Bearish,
			GapRatio:  (gapHigh - gapLow) / cur.Close,
			Date:      cur.Date,
		}, true
	}

	return FairValueGap{}, false
}

// gapFilled checks whether any of the provided later candles covers the gap interval.
func gapFilled(candles []*shared.Candlestick, gap FairValueGap) bool {
	for idx := range candles {
		if candles[idx].Low <= gap.Low && candles[idx].High >= gap.High {
			return true
		}
	}

	return false
}
