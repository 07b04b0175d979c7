package structure

import (
	"testing"

	"github.com/dnldd/edge/shared"
	"github.com/peterldowns/testy/assert"
)

func TestFetchFairValueGaps(t *testing.T) {
	candles := []*shared.Candlestick{
		obCandle(99.5, 100, 100, 99, 10, 0),
		// Displacement candle leaving untraded range above the previous high.
		obCandle(100, 101.5, 102, 99.5, 30, 5),
		obCandle(101.5, 101.8, 102.2, 100.5, 12, 10),
	}

	gaps := fetchFairValueGaps(candles, 0.001)
	assert.Equal(t, 1, len(gaps))
	assert.Equal(t, shared.Bullish, gaps[0].Sentiment)
	assert.Equal(t, float64(100), gaps[0].Low)
	assert.Equal(t, float64(100.5), gaps[0].High)
	assert.Equal(t, float64(100.25), gaps[0].Midpoint)
}

func TestFetchFairValueGapsMinimumSize(t *testing.T) {
	candles := []*shared.Candlestick{
		obCandle(99.5, 100, 100, 99, 10, 0),
		// The displacement leaves a gap below the minimum size threshold.
		obCandle(100, 101.5, 102, 99.5, 30, 5),
		obCandle(101.5, 101.8, 102.2, 100.05, 12, 10),
	}

	gaps := fetchFairValueGaps(candles, 0.001)
	assert.Equal(t, 0, len(gaps))
}

func TestFetchFairValueGapsFilled(t *testing.T) {
	candles := []*shared.Candlestick{
		obCandle(99.5, 100, 100, 99, 10, 0),
		obCandle(100, 101.5, 102, 99.5, 30, 5),
		obCandle(101.5, 101.8, 102.2, 100.5, 12, 10),
		// A later candle trades back through the full gap interval, filling it.
		obCandle(101.8, 99.8, 102, 99.7, 15, 15),
	}

	gaps := fetchFairValueGaps(candles, 0.001)
	assert.Equal(t, 0, len(gaps))
}

func TestFetchFairValueGapsBearish(t *testing.T) {
	candles := []*shared.Candlestick{
		obCandle(100.5, 100, 101, 100, 10, 0),
		// Displacement down leaving untraded range below the previous low.
		obCandle(100, 98.5, 100.5, 98, 30, 5),
		obCandle(98.5, 98.2, 99.5, 97.8, 12, 10),
	}

	gaps := fetchFairValueGaps(candles, 0.001)
	assert.Equal(t, 1, len(gaps))
	assert.Equal(t, shared.Bearish, gaps[0].Sentiment)
	assert.Equal(t, float64(99.5), gaps[0].Low)
	assert.Equal(t, float64(100), gaps[0].High)
}
