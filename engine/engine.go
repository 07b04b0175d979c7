package engine

import (
	"context"
	"fmt"

	"github.com/dnldd/edge/risk"
	"github.com/dnldd/edge/shared"
	"github.com/dnldd/edge/structure"
	"github.com/rs/zerolog"
)

const (
	// bufferSize is the default buffer size for channels.
	bufferSize = 64
)

// EngineConfig represents the signal engine configuration.
type EngineConfig struct {
	// Markets represents the collection of ids of the markets to evaluate.
	Markets []string
	// QuoteAsset is the asset the account balance is denominated in.
	QuoteAsset string
	// Subscribe registers the provided subscriber for market updates.
	Subscribe func(sub chan shared.Candlestick)
	// RequestCandleData relays the provided candle data request for processing.
	RequestCandleData func(req *shared.CandleDataRequest)
	// RequestAverageVolume relays the provided average volume request for processing.
	RequestAverageVolume func(req *shared.AverageVolumeRequest)
	// SendEntrySignal relays the provided entry signal for processing.
	SendEntrySignal func(signal shared.EntrySignal)
	// AccountInfo fetches account balance details.
	AccountInfo shared.AccountInfoProvider
	// RiskManager sizes accepted signals and tracks stop-trading conditions.
	RiskManager *risk.Manager
	// ScorerConfig is the signal scorer configuration.
	ScorerConfig ScorerConfig
	// AnalyzerConfig is the per-market structure analyzer configuration template.
	AnalyzerConfig structure.AnalyzerConfig
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Engine evaluates market updates for entries by driving the structure analyzer,
// signal scorer and risk manager for each tracked market.
type Engine struct {
	cfg           *EngineConfig
	analyzers     map[string]*structure.Analyzer
	scorer        *Scorer
	updateSignals chan shared.Candlestick
	workers       map[string]chan struct{}
}

// NewEngine initializes a new signal engine.
func NewEngine(cfg *EngineConfig) (*Engine, error) {
	scorer, err := NewScorer(&cfg.ScorerConfig)
	if err != nil {
		return nil, fmt.Errorf("creating scorer: %w", err)
	}

	analyzers := make(map[string]*structure.Analyzer, len(cfg.Markets))
	workers := make(map[string]chan struct{}, len(cfg.Markets))
	for idx := range cfg.Markets {
		acfg := cfg.AnalyzerConfig
		acfg.Market = cfg.Markets[idx]
		analyzer, err := structure.NewAnalyzer(&acfg)
		if err != nil {
			return nil, fmt.Errorf("creating %s analyzer: %w", cfg.Markets[idx], err)
		}

		analyzers[cfg.Markets[idx]] = analyzer

		// Evaluations are partitioned per market so independent markets can be
		// processed concurrently with no shared mutation.
		workers[cfg.Markets[idx]] = make(chan struct{}, 1)
	}

	e := &Engine{
		cfg:           cfg,
		analyzers:     analyzers,
		scorer:        scorer,
		updateSignals: make(chan shared.Candlestick, bufferSize),
		workers:       workers,
	}

	cfg.Subscribe(e.updateSignals)

	return e, nil
}

// handleMarketUpdate evaluates the provided market update for an entry.
func (e *Engine) handleMarketUpdate(ctx context.Context, candle *shared.Candlestick) {
	if candle.Timeframe != shared.FiveMinute {
		// Entries are only evaluated on the five minute timeframe.
		return
	}

	analyzer, ok := e.analyzers[candle.Market]
	if !ok {
		e.cfg.Logger.Error().Msgf("no analyzer found for market %s", candle.Market)
		return
	}

	if e.cfg.RiskManager.EntriesHalted(candle.Date) {
		// New entries are disabled for the rest of the trading day, existing
		// positions continue to be managed.
		return
	}

	session, err := shared.NewSessionContext(candle.Date)
	if err != nil {
		e.cfg.Logger.Error().Msgf("deriving session context: %v", err)
		return
	}

	dataReq := shared.NewCandleDataRequest(candle.Market, candle.Timeframe, shared.SnapshotSize)
	e.cfg.RequestCandleData(dataReq)
	window := <-dataReq.Response

	snapshot := analyzer.Analyze(window)

	volumeReq := shared.NewAverageVolumeRequest(candle.Market, candle.Timeframe)
	e.cfg.RequestAverageVolume(volumeReq)
	averageVolume := <-volumeReq.Response

	var volumeRatio float64
	if averageVolume > 0 {
		volumeRatio = candle.Volume / averageVolume
	}

	score := e.scorer.Evaluate(snapshot, session, volumeRatio, candle.FetchSentiment())
	if score == nil || !score.Accepted {
		return
	}

	balance, err := e.cfg.AccountInfo.FetchAvailableBalance(ctx, e.cfg.QuoteAsset)
	if err != nil {
		// An unavailable balance is treated as unable to afford an entry this
		// cycle, existing positions are unaffected.
		e.cfg.Logger.Warn().Msgf("fetching available balance: %v", err)
		return
	}

	entry := candle.Close
	strongStructure := snapshot.Strength == structure.Strong
	params, err := e.cfg.RiskManager.Size(score.Direction, entry, score.Confidence,
		strongStructure, balance, window)
	if err != nil {
		// Degenerate risk parameters reject the signal before any position exists.
		e.cfg.Logger.Error().Msgf("sizing %s entry: %v", candle.Market, err)
		return
	}

	signal := shared.NewEntrySignal(candle.Market, candle.Timeframe, score.Direction, entry,
		score.Confidence, score.Confluence, params.StopLoss, params.TakeProfit,
		params.Quantity, params.Partials, score.Reasons, candle.Date)

	e.cfg.SendEntrySignal(signal)
}

// Run manages the lifecycle processes of the signal engine.
func (e *Engine) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case candle := <-e.updateSignals:
			// Use the dedicated market worker so evaluations for a market are
			// serialized while distinct markets proceed concurrently.
			worker, ok := e.workers[candle.Market]
			if !ok {
				e.cfg.Logger.Error().Msgf("no worker found for market %s", candle.Market)
				continue
			}

			worker <- struct{}{}
			go func(candle *shared.Candlestick) {
				e.handleMarketUpdate(ctx, candle)
				<-worker
			}(&candle)
		}
	}
}
