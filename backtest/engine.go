package backtest

import (
	"errors"
	"fmt"
	"time"

	"github.com/dnldd/edge/engine"
	"github.com/dnldd/edge/position"
	"github.com/dnldd/edge/risk"
	"github.com/dnldd/edge/shared"
	"github.com/dnldd/edge/structure"
	"github.com/rs/zerolog"
)

// EngineConfig represents the backtest engine configuration.
type EngineConfig struct {
	// Market is the name of the backtested market.
	Market string
	// InitialBalance is the starting account balance.
	InitialBalance float64
	// MaxHold is the maximum holding duration for a position.
	MaxHold time.Duration
	// AnalyzerConfig is the structure analyzer configuration.
	AnalyzerConfig structure.AnalyzerConfig
	// ScorerConfig is the signal scorer configuration.
	ScorerConfig engine.ScorerConfig
	// RiskConfig is the risk manager configuration.
	RiskConfig risk.ManagerConfig
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Validate asserts the config has sane inputs, applying defaults for unset fields.
func (cfg *EngineConfig) Validate() error {
	var errs error

	if cfg.Market == "" {
		errs = errors.Join(errs, errors.New("backtest market cannot be an empty string"))
	}
	if cfg.InitialBalance <= 0 {
		errs = errors.Join(errs, fmt.Errorf("initial balance must be positive: %f", cfg.InitialBalance))
	}
	if cfg.MaxHold == 0 {
		cfg.MaxHold = position.DefaultMaxHold
	}
	if cfg.Logger == nil {
		errs = errors.Join(errs, errors.New("logger cannot be nil"))
	}

	return errs
}

// Result represents the outcome of a backtest run.
type Result struct {
	Trades []*shared.Trade
	Stats  *Stats
}

// Engine replays the live evaluation path over a historical candle series,
// simulating fills deterministically by first touch against the candle path.
type Engine struct {
	cfg      *EngineConfig
	analyzer *structure.Analyzer
	scorer   *engine.Scorer
	risk     *risk.Manager
}

// NewEngine initializes a new backtest engine.
func NewEngine(cfg *EngineConfig) (*Engine, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	acfg := cfg.AnalyzerConfig
	acfg.Market = cfg.Market
	analyzer, err := structure.NewAnalyzer(&acfg)
	if err != nil {
		return nil, fmt.Errorf("creating analyzer: %w", err)
	}

	scorer, err := engine.NewScorer(&cfg.ScorerConfig)
	if err != nil {
		return nil, fmt.Errorf("creating scorer: %w", err)
	}

	riskManager, err := risk.NewManager(&cfg.RiskConfig)
	if err != nil {
		return nil, fmt.Errorf("creating risk manager: %w", err)
	}

	return &Engine{
		cfg:      cfg,
		analyzer: analyzer,
		scorer:   scorer,
		risk:     riskManager,
	}, nil
}

// volumeRatio returns the ratio of the last candle's volume to the average volume
// of the trailing period before it.
func volumeRatio(window []*shared.Candlestick, period int) float64 {
	if len(window) < 2 {
		return 0
	}

	start := len(window) - 1 - period
	if start < 0 {
		start = 0
	}

	trailing := window[start : len(window)-1]
	var volumeSum float64
	for idx := range trailing {
		volumeSum += trailing[idx].Volume
	}

	average := volumeSum / float64(len(trailing))
	if average == 0 {
		return 0
	}

	return window[len(window)-1].Volume / average
}

// Run replays the provided candle series through the live evaluation path and
// returns the simulated trades with their aggregated statistics.
func (e *Engine) Run(candles []*shared.Candlestick) (*Result, error) {
	if len(candles) == 0 {
		return nil, errors.New("no candles provided for backtest")
	}

	market := position.NewMarket(e.cfg.Market)
	balance := e.cfg.InitialBalance
	trades := make([]*shared.Trade, 0)

	windowSize := int(shared.SnapshotSize)

	for idx := range candles {
		candle := candles[idx]

		// Manage any open position against the candle before a new evaluation, so
		// stop and target touches resolve in candle order.
		trade, _, err := market.Update(candle, e.cfg.MaxHold)
		if err != nil {
			return nil, fmt.Errorf("updating position: %w", err)
		}
		if trade != nil {
			trades = append(trades, trade)
			balance += trade.PNL
			e.risk.RecordTradeResult(trade.PNL, balance, trade.ClosedOn)
			continue
		}

		if market.HasOpenPosition() {
			continue
		}

		// The evaluation only starts once enough history exists for the analyzer's
		// minimum window.
		if idx+1 < e.analyzerMinWindow() {
			continue
		}

		if e.risk.EntriesHalted(candle.Date) {
			continue
		}

		start := idx + 1 - windowSize
		if start < 0 {
			start = 0
		}
		window := candles[start : idx+1]

		session, err := shared.NewSessionContext(candle.Date)
		if err != nil {
			return nil, fmt.Errorf("deriving session context: %w", err)
		}

		snapshot := e.analyzer.Analyze(window)

		ratio := volumeRatio(window, shared.AverageVolumePeriod)
		score := e.scorer.Evaluate(snapshot, session, ratio, candle.FetchSentiment())
		if score == nil || !score.Accepted {
			continue
		}

		entry := candle.Close
		strongStructure := snapshot.Strength == structure.Strong
		params, err := e.risk.Size(score.Direction, entry, score.Confidence,
			strongStructure, balance, window)
		if err != nil {
			// Degenerate risk parameters reject the signal.
			e.cfg.Logger.Debug().Msgf("rejecting %s entry: %v", e.cfg.Market, err)
			continue
		}

		signal := shared.NewEntrySignal(e.cfg.Market, candle.Timeframe, score.Direction,
			entry, score.Confidence, score.Confluence, params.StopLoss, params.TakeProfit,
			params.Quantity, params.Partials, score.Reasons, candle.Date)

		pos, err := position.NewPosition(&signal)
		if err != nil {
			return nil, fmt.Errorf("creating position: %w", err)
		}

		err = market.OpenPosition(pos)
		if err != nil {
			return nil, fmt.Errorf("opening position: %w", err)
		}
	}

	// A position still open at the end of the series is concluded at the final
	// close so its result participates in the statistics.
	if market.HasOpenPosition() {
		last := candles[len(candles)-1]
		exit := shared.NewExitSignal(e.cfg.Market, last.Timeframe, directionOf(market),
			last.Close, []shared.Reason{shared.MaxHoldExceeded}, last.Date)
		trade, err := market.ClosePosition(&exit)
		if err != nil {
			return nil, fmt.Errorf("closing final position: %w", err)
		}

		trades = append(trades, trade)
		balance += trade.PNL
	}

	result := &Result{
		Trades: trades,
		Stats:  ComputeStats(trades, e.cfg.InitialBalance),
	}

	return result, nil
}

// analyzerMinWindow returns the analyzer's minimum window length.
func (e *Engine) analyzerMinWindow() int {
	minWindow := e.cfg.AnalyzerConfig.MinWindow
	if minWindow == 0 {
		minWindow = structure.DefaultMinWindow
	}

	return minWindow
}

// directionOf returns the direction of the market's open position.
func directionOf(market *position.Market) shared.Direction {
	pos := market.FetchOpenPosition()
	if pos == nil {
		return shared.Long
	}

	return pos.Direction
}
