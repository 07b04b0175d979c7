package structure

import (
	"time"

	"github.com/dnldd/edge/shared"
)

// Trend represents the prevailing market direction of a window.
type Trend int

const (
	Ranging Trend = iota
	BullishTrend
	BearishTrend
)

// String stringifies the provided trend.
func (t Trend) String() string {
	switch t {
	case BullishTrend:
		return "bullish"
	case BearishTrend:
		return "bearish"
	default:
		return "ranging"
	}
}

// Strength represents the strength of a trend.
type Strength int

const (
	Weak Strength = iota
	Moderate
	Strong
)

// String stringifies the provided strength.
func (s Strength) String() string {
	switch s {
	case Strong:
		return "strong"
	case Moderate:
		return "moderate"
	default:
		return "weak"
	}
}

// Volatility represents the volatility bucket of a window.
type Volatility int

const (
	LowVolatility Volatility = iota
	MediumVolatility
	HighVolatility
)

// String stringifies the provided volatility.
func (v Volatility) String() string {
	switch v {
	case HighVolatility:
		return "high"
	case MediumVolatility:
		return "medium"
	default:
		return "low"
	}
}

// Phase represents the market phase of a window.
type Phase int

const (
	Accumulation Phase = iota
	Markup
	Distribution
	Markdown
)

// String stringifies the provided phase.
func (p Phase) String() string {
	switch p {
	case Markup:
		return "markup"
	case Distribution:
		return "distribution"
	case Markdown:
		return "markdown"
	default:
		return "accumulation"
	}
}

// OrderBlock represents a candle interpreted as the origin of institutional
// buying or selling, identified by a large body followed by a pullback.
type OrderBlock struct {
	High      float64
	Low       float64
	Sentiment shared.Sentiment
	Strength  float64
	Age       int
	Date      time.Time
}

// FairValueGap represents a price interval skipped across three consecutive
// candles, expected to be revisited later.
type FairValueGap struct {
	High      float64
	Midpoint  float64
	Low       float64
	Sentiment shared.Sentiment
	GapRatio  float64
	Date      time.Time
}

// LiquiditySweep represents a brief breach of a prior extreme price followed by
// a close back across it, interpreted as stop-loss hunting.
type LiquiditySweep struct {
	Level     float64
	Sentiment shared.Sentiment
	Date      time.Time
}

// StructureBreak represents a close beyond the most recent swing extreme.
type StructureBreak struct {
	Level     float64
	Sentiment shared.Sentiment
	Date      time.Time
}

// Snapshot represents the structural state of a market derived from a trailing
// candle window. It is recomputed per window, never mutated in place.
type Snapshot struct {
	Market           string
	Trend            Trend
	Strength         Strength
	Volatility       Volatility
	Phase            Phase
	SupportLevels    []float64
	ResistanceLevels []float64
	OrderBlocks      []OrderBlock
	FairValueGaps    []FairValueGap
	LiquidityLevels  []float64
	LiquiditySweeps  []LiquiditySweep
	StructureBreaks  []StructureBreak
	WindowEnd        time.Time
}

// NewNeutralSnapshot returns the defined fallback snapshot for windows below the
// minimum analyzable length.
func NewNeutralSnapshot(market string) *Snapshot {
	return &Snapshot{
		Market:     market,
		Trend:      Ranging,
		Strength:   Weak,
		Volatility: LowVolatility,
		Phase:      Accumulation,
	}
}

// SentimentBias returns the sentiment implied by the snapshot's trend.
func (s *Snapshot) SentimentBias() shared.Sentiment {
	switch s.Trend {
	case BullishTrend:
		return shared.Bullish
	case BearishTrend:
		return shared.Bearish
	default:
		return shared.Neutral
	}
}
