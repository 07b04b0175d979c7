package structure

import (
	"github.com/dnldd/edge/shared"
)

const (
	// momentumStrengthBonus is the strength boost for a volume-backed
	// marubozu origin candle.
	momentumStrengthBonus = 0.1
)

// fetchOrderBlocks returns the order blocks of the provided window. An order block
// is a candle whose body is at least the configured fraction of its full range,
// immediately followed by a candle closing against its direction.
func fetchOrderBlocks(candles []*shared.Candlestick, minBodyRatio float64, volumePeriod int) []OrderBlock {
	blocks := make([]OrderBlock, 0)

	for idx := 1; idx < len(candles)-1; idx++ {
		candle := candles[idx]

		bodyRatio := candle.BodyRatio()
		if bodyRatio < minBodyRatio {
			continue
		}

		sentiment := candle.FetchSentiment()
		if sentiment == shared.Neutral {
			continue
		}

		// The next candle must pull back against the block candle's direction.
		next := candles[idx+1]
		switch sentiment {
		case shared.Bullish:
			if next.Close >= next.Open {
				continue
			}
		case shared.Bearish:
			if next.Close <= next.Open {
				continue
			}
		}

		// Strength weighs the block's volume against the trailing average and its
		// body dominance equally, bounded to [0, 1].
		volumeRatio := fetchVolumeRatio(candles, idx, volumePeriod)
		if volumeRatio > 1 {
			volumeRatio = 1
		}

		strength := (volumeRatio + bodyRatio) / 2
		if shared.FetchMomentum(candle, candles[idx-1]) == shared.High {
			// A volume-backed marubozu origin carries more weight than
			// body and volume dominance alone.
			strength += momentumStrengthBonus
		}
		if strength > 1 {
			strength = 1
		}

		blocks = append(blocks, OrderBlock{
			High:      candle.High,
			Low:       candle.Low,
			Sentiment: sentiment,
			Strength:  strength,
			Age:       len(candles) - 1 - idx,
			Date:      candle.Date,
		})
	}

	return blocks
}

// fetchVolumeRatio returns the ratio of the candle's volume to the average volume
// of the trailing period before it.
func fetchVolumeRatio(candles []*shared.Candlestick, idx int, period int) float64 {
	start := idx - period
	if start < 0 {
		start = 0
	}

	if idx == start {
		return 0
	}

	var volumeSum float64
	for i := start; i < idx; i++ {
		volumeSum += candles[i].Volume
	}

	average := volumeSum / float64(idx-start)
	if average == 0 {
		return 0
	}

	return candles[idx].Volume / average
}
