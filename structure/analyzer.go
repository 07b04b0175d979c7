package structure

import (
	"errors"
	"math"
	"sync"
	"time"

	"github.com/dnldd/edge/shared"
)

const (
	// DefaultMinWindow is the default minimum window length for a full analysis.
	DefaultMinWindow = 50
	// DefaultSwingHalfWindow is the default half-window used for swing extrema.
	DefaultSwingHalfWindow = 3
	// DefaultMinGapRatio is the default minimum fair value gap size as a fraction
	// of price.
	DefaultMinGapRatio = 0.001
	// DefaultOrderBlockBodyRatio is the default minimum body fraction of an order
	// block candle.
	DefaultOrderBlockBodyRatio = 0.7
	// DefaultLiquidityLookback is the default lookback for liquidity sweeps.
	DefaultLiquidityLookback = 10
	// DefaultCacheSize is the default number of snapshots retained by the analyzer.
	DefaultCacheSize = 32

	// Trend strength thresholds for the average per-candle trend score.
	minStrongTrendThreshold   = 0.005
	minModerateTrendThreshold = 0.002

	// Volatility bucket thresholds for the mean absolute single-candle return.
	minHighVolatilityThreshold   = 0.004
	minMediumVolatilityThreshold = 0.0015
)

// AnalyzerConfig represents the market structure analyzer configuration.
type AnalyzerConfig struct {
	// Market is the name of the analyzed market.
	Market string
	// MinWindow is the minimum window length for a full analysis. Shorter windows
	// yield the neutral snapshot.
	MinWindow int
	// SwingHalfWindow is the half-window used for swing extrema detection.
	SwingHalfWindow int
	// MinGapRatio is the minimum fair value gap size as a fraction of price.
	MinGapRatio float64
	// OrderBlockBodyRatio is the minimum body fraction of an order block candle.
	OrderBlockBodyRatio float64
	// LiquidityLookback is the lookback period for liquidity sweeps.
	LiquidityLookback int
	// VolumePeriod is the trailing period for volume averages.
	VolumePeriod int
	// CacheSize is the number of snapshots retained, evicted by capacity.
	CacheSize int
}

// Validate asserts the config has sane inputs, applying defaults for unset fields.
func (cfg *AnalyzerConfig) Validate() error {
	if cfg.Market == "" {
		return errors.New("analyzer market cannot be an empty string")
	}
	if cfg.MinWindow == 0 {
		cfg.MinWindow = DefaultMinWindow
	}
	if cfg.SwingHalfWindow == 0 {
		cfg.SwingHalfWindow = DefaultSwingHalfWindow
	}
	if cfg.MinGapRatio == 0 {
		cfg.MinGapRatio = DefaultMinGapRatio
	}
	if cfg.OrderBlockBodyRatio == 0 {
		cfg.OrderBlockBodyRatio = DefaultOrderBlockBodyRatio
	}
	if cfg.LiquidityLookback == 0 {
		cfg.LiquidityLookback = DefaultLiquidityLookback
	}
	if cfg.VolumePeriod == 0 {
		cfg.VolumePeriod = shared.AverageVolumePeriod
	}
	if cfg.CacheSize == 0 {
		cfg.CacheSize = DefaultCacheSize
	}

	return nil
}

// cacheEntry pairs a snapshot with the window end it was derived from.
type cacheEntry struct {
	key      time.Time
	snapshot *Snapshot
}

// Analyzer derives structural snapshots from candle windows. Analysis is a pure
// function of the window, the only state is a bounded snapshot cache keyed by the
// window end, evicted by capacity.
type Analyzer struct {
	cfg      *AnalyzerConfig
	cache    []cacheEntry
	cacheIdx int
	cacheMtx sync.RWMutex
}

// NewAnalyzer initializes a new market structure analyzer.
func NewAnalyzer(cfg *AnalyzerConfig) (*Analyzer, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	return &Analyzer{
		cfg:   cfg,
		cache: make([]cacheEntry, 0, cfg.CacheSize),
	}, nil
}

// fetchCached returns the cached snapshot for the provided window end, if any.
func (a *Analyzer) fetchCached(key time.Time) *Snapshot {
	a.cacheMtx.RLock()
	defer a.cacheMtx.RUnlock()

	for idx := range a.cache {
		if a.cache[idx].key.Equal(key) {
			return a.cache[idx].snapshot
		}
	}

	return nil
}

// cacheSnapshot stores the provided snapshot, overwriting the oldest entry once
// at capacity.
func (a *Analyzer) cacheSnapshot(key time.Time, snapshot *Snapshot) {
	a.cacheMtx.Lock()
	defer a.cacheMtx.Unlock()

	entry := cacheEntry{key: key, snapshot: snapshot}
	if len(a.cache) < cap(a.cache) {
		a.cache = append(a.cache, entry)
		return
	}

	a.cache[a.cacheIdx] = entry
	a.cacheIdx = (a.cacheIdx + 1) % cap(a.cache)
}

// Analyze derives a structural snapshot from the provided candle window. Windows
// shorter than the minimum yield the neutral snapshot, never an error.
func (a *Analyzer) Analyze(candles []*shared.Candlestick) *Snapshot {
	if len(candles) < a.cfg.MinWindow {
		return NewNeutralSnapshot(a.cfg.Market)
	}

	windowEnd := candles[len(candles)-1].Date
	if cached := a.fetchCached(windowEnd); cached != nil {
		return cached
	}

	swingHighs := fetchSwingHighs(candles, a.cfg.SwingHalfWindow)
	swingLows := fetchSwingLows(candles, a.cfg.SwingHalfWindow)

	trend := classifyTrend(swingHighs, swingLows)
	strength := categorizeTrendStrength(trend, candles)
	volatility := categorizeVolatility(candles)

	lastClose := candles[len(candles)-1].Close
	supports, resistances := fetchLevels(swingHighs, swingLows, lastClose)

	snapshot := &Snapshot{
		Market:           a.cfg.Market,
		Trend:            trend,
		Strength:         strength,
		Volatility:       volatility,
		Phase:            fetchPhase(trend, volatility),
		SupportLevels:    supports,
		ResistanceLevels: resistances,
		OrderBlocks:      fetchOrderBlocks(candles, a.cfg.OrderBlockBodyRatio, a.cfg.VolumePeriod),
		FairValueGaps:    fetchFairValueGaps(candles, a.cfg.MinGapRatio),
		LiquidityLevels:  fetchLiquidityLevels(swingHighs, swingLows),
		LiquiditySweeps:  fetchLiquiditySweeps(candles, a.cfg.LiquidityLookback),
		StructureBreaks:  fetchStructureBreaks(candles, swingHighs, swingLows),
		WindowEnd:        windowEnd,
	}

	a.cacheSnapshot(windowEnd, snapshot)

	return snapshot
}

// categorizeTrendStrength classifies the strength of the provided trend using the
// average per-candle trend score of the window.
func categorizeTrendStrength(trend Trend, candles []*shared.Candlestick) Strength {
	if trend == Ranging {
		return Weak
	}

	first := candles[0].Close
	last := candles[len(candles)-1].Close
	if first == 0 {
		return Weak
	}

	trendScore := math.Abs((last-first)/first) / float64(len(candles))
	switch {
	case trendScore > minStrongTrendThreshold:
		return Strong
	case trendScore > minModerateTrendThreshold:
		return Moderate
	default:
		return Weak
	}
}

// categorizeVolatility buckets the mean absolute single-candle return of the window.
func categorizeVolatility(candles []*shared.Candlestick) Volatility {
	var returnSum float64
	var count int
	for idx := 1; idx < len(candles); idx++ {
		prevClose := candles[idx-1].Close
		if prevClose == 0 {
			continue
		}

		returnSum += math.Abs((candles[idx].Close - prevClose) / prevClose)
		count++
	}

	if count == 0 {
		return LowVolatility
	}

	meanReturn := returnSum / float64(count)
	switch {
	case meanReturn > minHighVolatilityThreshold:
		return HighVolatility
	case meanReturn > minMediumVolatilityThreshold:
		return MediumVolatility
	default:
		return LowVolatility
	}
}

// fetchPhase maps the provided trend and volatility deterministically to a market phase.
func fetchPhase(trend Trend, volatility Volatility) Phase {
	switch trend {
	case BullishTrend:
		if volatility == LowVolatility {
			return Accumulation
		}
		return Markup
	case BearishTrend:
		if volatility == LowVolatility {
			return Distribution
		}
		return Markdown
	default:
		if volatility == LowVolatility {
			return Accumulation
		}
		return Distribution
	}
}

// fetchLevels splits swing extremes into support and resistance relative to the
// provided close.
func fetchLevels(swingHighs []SwingPoint, swingLows []SwingPoint, close float64) ([]float64, []float64) {
	supports := make([]float64, 0, len(swingLows))
	resistances := make([]float64, 0, len(swingHighs))

	for idx := range swingLows {
		if swingLows[idx].Price <= close {
			supports = append(supports, swingLows[idx].Price)
		}
	}

	for idx := range swingHighs {
		if swingHighs[idx].Price >= close {
			resistances = append(resistances, swingHighs[idx].Price)
		}
	}

	return supports, resistances
}
