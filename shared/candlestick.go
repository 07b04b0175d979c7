package shared

import (
	"math"
	"time"
)

const (
	// minimumVolumeDifferencePercent is the minimum difference in volume considered substantive.
	minimumVolumeDifferencePercent = 0.2
)

// Momentum represents the momentum of a candlestick.
type Momentum int

const (
	High Momentum = iota
	Medium
	Low
)

// String stringifies the provided momentum.
func (m Momentum) String() string {
	switch m {
	case High:
		return "high"
	case Medium:
		return "medium"
	default:
		return "low"
	}
}

// Kind represents type of candlestick.
type Kind int

const (
	Marubozu Kind = iota
	Pinbar
	Doji
	Unknown
)

// String stringifies the provided candlestick kind.
func (k Kind) String() string {
	switch k {
	case Marubozu:
		return "marubozu"
	case Pinbar:
		return "pinbar"
	case Doji:
		return "doji"
	default:
		return "unknown"
	}
}

// Sentiment represents the candlestick sentiment.
type Sentiment int

const (
	Neutral Sentiment = iota
	Bullish
	Bearish
)

// String stringifies the provided sentiment.
func (s Sentiment) String() string {
	switch s {
	case Bullish:
		return "bullish"
	case Bearish:
		return "bearish"
	default:
		return "neutral"
	}
}

// Candlestick represents a unit candlestick for a market. It is immutable once produced.
type Candlestick struct {
	Open   float64
	Low    float64
	High   float64
	Close  float64
	Volume float64
	Date   time.Time

	// Metadata fields.
	Market    string
	Timeframe Timeframe
}

// FetchSentiment returns the provided candlestick's sentiment.
func (c *Candlestick) FetchSentiment() Sentiment {
	sentiment := c.Close - c.Open
	switch {
	case sentiment < 0:
		return Bearish
	case sentiment > 0:
		return Bullish
	default:
		return Neutral
	}
}

// Range returns the full range of the candlestick.
func (c *Candlestick) Range() float64 {
	return c.High - c.Low
}

// Body returns the body size of the candlestick.
func (c *Candlestick) Body() float64 {
	return math.Abs(c.Close - c.Open)
}

// BodyRatio returns the fraction of the candle's range taken up by its body.
func (c *Candlestick) BodyRatio() float64 {
	candleRange := c.Range()
	if candleRange == 0 {
		return 0
	}

	return c.Body() / candleRange
}

// TrueRange returns the true range of the candlestick relative to the previous close.
func (c *Candlestick) TrueRange(prevClose float64) float64 {
	highLow := c.High - c.Low
	highClose := math.Abs(c.High - prevClose)
	lowClose := math.Abs(c.Low - prevClose)

	return math.Max(highLow, math.Max(highClose, lowClose))
}

// FetchKind returns the candlestick type.
func (c *Candlestick) FetchKind() Kind {
	candleRange := c.Range()
	if candleRange == 0 {
		return Unknown
	}

	upperWickRange := c.High - math.Max(c.Open, c.Close)
	lowerWickRange := math.Min(c.Open, c.Close) - c.Low

	bodyPercent := c.Body() / candleRange
	upperWickPercent := upperWickRange / candleRange
	lowerWickPercent := lowerWickRange / candleRange

	switch {
	case bodyPercent <= 0.3 && (upperWickPercent >= 0.6 || lowerWickPercent >= 0.6):
		// If the candle body is not more than 30 percent of the candle and has one of its wicks
		// being at least 60 percent of the candle, it's a pin bar.
		return Pinbar
	case bodyPercent <= 0.3 && upperWickPercent >= 0.3 && lowerWickPercent >= 0.3:
		// If the candle body is not more than 30 percent of the candle and has almost
		// identical wicks on both sides of it, it's a doji candle.
		return Doji
	case bodyPercent >= 0.7:
		// If the candle body accounts for over 70 percent of the candle, It is a marubozu candle.
		return Marubozu
	default:
		return Unknown
	}
}

// FetchMomentum returns the current candles momentum.
func FetchMomentum(current *Candlestick, prev *Candlestick) Momentum {
	if prev.Volume == 0 {
		return Low
	}

	volumeDifference := current.Volume - prev.Volume
	volumeDifferencePercent := volumeDifference / prev.Volume

	kind := current.FetchKind()
	switch {
	case kind == Marubozu:
		switch {
		case volumeDifference > 0 && volumeDifferencePercent >= minimumVolumeDifferencePercent:
			return High
		case volumeDifference > 0 && volumeDifferencePercent < minimumVolumeDifferencePercent:
			return Medium
		default:
			// If there is a marubozu candle with little to no volume backing it, it is likely a
			// momentum trap. Avoid it.
			return Low
		}
	default:
		return Low
	}
}
