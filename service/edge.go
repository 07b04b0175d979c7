package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dnldd/edge/backtest"
	"github.com/dnldd/edge/database"
	"github.com/dnldd/edge/engine"
	"github.com/dnldd/edge/fetch"
	"github.com/dnldd/edge/market"
	"github.com/dnldd/edge/position"
	"github.com/dnldd/edge/risk"
	"github.com/dnldd/edge/shared"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
)

const (
	// backtestTradesCSVPath is the output path for backtest trades.
	backtestTradesCSVPath = "backtest-trades.csv"
)

// EdgeConfig represents the configuration struct for the edge service.
type EdgeConfig struct {
	// Markets represents the tracked markets.
	Markets []string
	// QuoteAsset is the asset the account balance is denominated in.
	QuoteAsset string
	// FMPAPIKey is the FMP service API Key.
	FMPAPIKey string
	// DatabaseEndpoint represents the database connection endpoint.
	DatabaseEndpoint string
	// DatabaseUser is the database user.
	DatabaseUser string
	// DatabasePass is the database user pass.
	DatabasePass string
	// InitialBalance is the starting account balance.
	InitialBalance float64
	// MaxPollRuns caps the number of market data polling cycles.
	MaxPollRuns int
	// Backtest is the backtesting flag.
	Backtest bool
	// BacktestDataFilepath is the filepath to the backtest data.
	BacktestDataFilepath string
	// Cancel is the context cancellation function.
	Cancel context.CancelFunc
}

// Validate asserts the config has sane inputs.
func (cfg *EdgeConfig) Validate() error {
	var errs error

	if cfg.Cancel == nil {
		errs = errors.Join(errs, fmt.Errorf("context cancellation function cannot be nil"))
	}
	if cfg.InitialBalance <= 0 {
		errs = errors.Join(errs, fmt.Errorf("initial balance must be positive: %f", cfg.InitialBalance))
	}

	switch {
	case cfg.Backtest:
		if cfg.BacktestDataFilepath == "" {
			errs = errors.Join(errs, fmt.Errorf("backtest data filepath cannot be an empty string"))
		}
	default:
		if len(cfg.Markets) == 0 {
			errs = errors.Join(errs, fmt.Errorf("no markets provided for edge service"))
		}
		if cfg.QuoteAsset == "" {
			errs = errors.Join(errs, fmt.Errorf("quote asset cannot be an empty string"))
		}
		if cfg.FMPAPIKey == "" {
			errs = errors.Join(errs, fmt.Errorf("fmp api key cannot be an empty string"))
		}
		if cfg.DatabaseEndpoint == "" {
			errs = errors.Join(errs, fmt.Errorf("database endpoint cannot be an empty string"))
		}
	}

	return errs
}

// Edge represents a market structure entry finding service.
type Edge struct {
	cfg             *EdgeConfig
	fetchManager    *fetch.Manager
	marketManager   *market.Manager
	positionManager *position.Manager
	signalEngine    *engine.Engine
	backtestEngine  *backtest.Engine
	historicData    *backtest.HistoricData
	logger          *zerolog.Logger
	wg              sync.WaitGroup
}

// NewEdge initializes a new edge service.
func NewEdge(ctx context.Context, cfg *EdgeConfig) (*Edge, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating edge service config: %w", err)
	}

	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	logger := log.With().Str("service", "edge").Logger()

	if cfg.Backtest {
		historicData, err := backtest.NewHistoricData(cfg.BacktestDataFilepath)
		if err != nil {
			return nil, fmt.Errorf("loading historic data: %w", err)
		}

		backtestLogger := logger.With().Str("component", "backtest").Logger()
		backtestEngine, err := backtest.NewEngine(&backtest.EngineConfig{
			Market:         historicData.FetchMarket(),
			InitialBalance: cfg.InitialBalance,
			Logger:         &backtestLogger,
		})
		if err != nil {
			return nil, fmt.Errorf("creating backtest engine: %w", err)
		}

		return &Edge{
			cfg:            cfg,
			backtestEngine: backtestEngine,
			historicData:   historicData,
			logger:         &logger,
		}, nil
	}

	fmp, err := fetch.NewFMPClient(&fetch.FMPConfig{APIKey: cfg.FMPAPIKey, BaseURL: fetch.BaseURL})
	if err != nil {
		return nil, fmt.Errorf("creating fmp client: %w", err)
	}

	fetchMgrLogger := logger.With().Str("component", "fetchmanager").Logger()
	fetchMgr, err := fetch.NewManager(&fetch.ManagerConfig{
		Markets:        cfg.Markets,
		Timeframes:     []shared.Timeframe{shared.FiveMinute, shared.OneHour},
		ExchangeClient: fmp,
		MaxPollRuns:    cfg.MaxPollRuns,
		Logger:         &fetchMgrLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating fetch manager: %w", err)
	}

	marketMgrLogger := logger.With().Str("component", "marketmanager").Logger()
	marketMgr, err := market.NewManager(&market.ManagerConfig{
		Markets:    cfg.Markets,
		Timeframes: []shared.Timeframe{shared.FiveMinute, shared.OneHour},
		Subscribe:  fetchMgr.Subscribe,
		CatchUp:    fetchMgr.SendCatchUpSignal,
		Logger:     &marketMgrLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating market manager: %w", err)
	}

	dbLogger := logger.With().Str("component", "database").Logger()
	db, err := database.NewDatabase(ctx, &database.DatabaseConfig{
		Endpoint: cfg.DatabaseEndpoint,
		User:     cfg.DatabaseUser,
		Pass:     cfg.DatabasePass,
		Logger:   &dbLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating database: %w", err)
	}

	brokerLogger := logger.With().Str("component", "paperbroker").Logger()
	broker, err := NewPaperBroker(cfg.InitialBalance, &brokerLogger)
	if err != nil {
		return nil, fmt.Errorf("creating paper broker: %w", err)
	}

	riskMgr, err := risk.NewManager(&risk.ManagerConfig{})
	if err != nil {
		return nil, fmt.Errorf("creating risk manager: %w", err)
	}

	notifierLogger := logger.With().Str("component", "notifier").Logger()
	notifier := NewLogNotifier(&notifierLogger)

	positionMgrLogger := logger.With().Str("component", "positionmanager").Logger()
	positionMgr, err := position.NewManager(&position.ManagerConfig{
		Markets:            cfg.Markets,
		Subscribe:          fetchMgr.Subscribe,
		OrderGateway:       broker,
		Notifier:           notifier,
		PersistClosedTrade: db.PersistClosedTrade,
		RecordTradeResult: func(pnl float64, day time.Time) {
			balance := broker.AdjustBalance(pnl)
			riskMgr.RecordTradeResult(pnl, balance, day)
		},
		Logger: &positionMgrLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating position manager: %w", err)
	}

	engineLogger := logger.With().Str("component", "engine").Logger()
	signalEngine, err := engine.NewEngine(&engine.EngineConfig{
		Markets:              cfg.Markets,
		QuoteAsset:           cfg.QuoteAsset,
		Subscribe:            fetchMgr.Subscribe,
		RequestCandleData:    marketMgr.SendCandleDataRequest,
		RequestAverageVolume: marketMgr.SendAverageVolumeRequest,
		SendEntrySignal:      positionMgr.SendEntrySignal,
		AccountInfo:          broker,
		RiskManager:          riskMgr,
		Logger:               &engineLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating signal engine: %w", err)
	}

	service := &Edge{
		cfg:             cfg,
		fetchManager:    fetchMgr,
		marketManager:   marketMgr,
		positionManager: positionMgr,
		signalEngine:    signalEngine,
		logger:          &logger,
	}

	return service, nil
}

// runBacktest replays the loaded historic data and reports the results.
func (e *Edge) runBacktest() {
	result, err := e.backtestEngine.Run(e.historicData.FetchCandles())
	if err != nil {
		e.logger.Error().Msgf("running backtest: %v", err)
		e.cfg.Cancel()
		return
	}

	result.LogStats(e.logger)

	err = result.PersistTradesCSV(backtestTradesCSVPath)
	if err != nil {
		e.logger.Error().Msgf("persisting backtest trades: %v", err)
	}

	e.cfg.Cancel()
}

// Run handles the lifecycle processes of the edge service.
func (e *Edge) Run(ctx context.Context) {
	if e.cfg.Backtest {
		e.runBacktest()
		return
	}

	e.wg.Add(4)

	go func() {
		e.positionManager.Run(ctx)
		e.wg.Done()
	}()

	go func() {
		e.signalEngine.Run(ctx)
		e.wg.Done()
	}()

	go func() {
		e.marketManager.Run(ctx)
		e.wg.Done()
	}()

	go func() {
		e.fetchManager.Run(ctx)
		e.wg.Done()
	}()

	e.wg.Wait()

	err := e.positionManager.PersistTradesCSV()
	if err != nil {
		e.logger.Error().Msgf("persisting trades: %v", err)
	}
}
