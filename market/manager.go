package market

import (
	"context"
	"fmt"
	"time"

	"github.com/dnldd/edge/shared"
	"github.com/rs/zerolog"
)

const (
	// bufferSize is the default buffer size for channels.
	bufferSize = 64
	// defaultCatchUpLookback is the fallback catch up window on startup.
	defaultCatchUpLookback = time.Hour * 24
)

// ManagerConfig represents the market manager configuration.
type ManagerConfig struct {
	// Markets represents the collection of ids of the markets to manage.
	Markets []string
	// Timeframes are the tracked timeframes per market.
	Timeframes []shared.Timeframe
	// CatchUpLookback is how far back the catch up process reaches on startup.
	CatchUpLookback time.Duration
	// Subscribe registers the provided subscriber for market updates.
	Subscribe func(sub chan shared.Candlestick)
	// CatchUp signals a catch up process for a market.
	CatchUp func(signal shared.CatchUpSignal)
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Manager manages the candle windows of all tracked markets and serves data
// requests from them.
type Manager struct {
	cfg                   *ManagerConfig
	markets               map[string]*Market
	updateSignals         chan shared.Candlestick
	candleDataRequests    chan *shared.CandleDataRequest
	averageVolumeRequests chan *shared.AverageVolumeRequest
	workers               map[string]chan struct{}
}

// NewManager initializes a new market manager.
func NewManager(cfg *ManagerConfig) (*Manager, error) {
	markets := make(map[string]*Market, len(cfg.Markets))
	workers := make(map[string]chan struct{}, len(cfg.Markets))
	for idx := range cfg.Markets {
		mCfg := &MarketConfig{
			Market:     cfg.Markets[idx],
			Timeframes: cfg.Timeframes,
		}
		market, err := NewMarket(mCfg)
		if err != nil {
			return nil, fmt.Errorf("creating market: %w", err)
		}

		markets[cfg.Markets[idx]] = market
		workers[cfg.Markets[idx]] = make(chan struct{}, 1)
	}

	m := &Manager{
		cfg:                   cfg,
		markets:               markets,
		updateSignals:         make(chan shared.Candlestick, bufferSize),
		candleDataRequests:    make(chan *shared.CandleDataRequest, bufferSize),
		averageVolumeRequests: make(chan *shared.AverageVolumeRequest, bufferSize),
		workers:               workers,
	}

	cfg.Subscribe(m.updateSignals)

	return m, nil
}

// SendCandleDataRequest relays the provided candle data request for processing.
func (m *Manager) SendCandleDataRequest(req *shared.CandleDataRequest) {
	select {
	case m.candleDataRequests <- req:
		// do nothing.
	default:
		m.cfg.Logger.Error().Msgf("candle data request channel at capacity: %d/%d",
			len(m.candleDataRequests), bufferSize)
	}
}

// SendAverageVolumeRequest relays the provided average volume request for processing.
func (m *Manager) SendAverageVolumeRequest(req *shared.AverageVolumeRequest) {
	select {
	case m.averageVolumeRequests <- req:
		// do nothing.
	default:
		m.cfg.Logger.Error().Msgf("average volume request channel at capacity: %d/%d",
			len(m.averageVolumeRequests), bufferSize)
	}
}

// handleUpdateCandle processes the provided market update candle.
func (m *Manager) handleUpdateCandle(candle *shared.Candlestick) {
	market, ok := m.markets[candle.Market]
	if !ok {
		m.cfg.Logger.Error().Msgf("no market found with name %s for update", candle.Market)
		return
	}

	err := market.Update(candle)
	if err != nil {
		m.cfg.Logger.Error().Msgf("updating %s market: %v", candle.Market, err)
		return
	}
}

// handleCandleDataRequest serves the provided candle data request.
func (m *Manager) handleCandleDataRequest(req *shared.CandleDataRequest) {
	market, ok := m.markets[req.Market]
	if !ok {
		m.cfg.Logger.Error().Msgf("no market found with name %s for candle data request", req.Market)
		req.Response <- nil
		return
	}

	req.Response <- market.FetchCandleData(req.Timeframe, req.N)
}

// handleAverageVolumeRequest serves the provided average volume request.
func (m *Manager) handleAverageVolumeRequest(req *shared.AverageVolumeRequest) {
	market, ok := m.markets[req.Market]
	if !ok {
		m.cfg.Logger.Error().Msgf("no market found with name %s for average volume request", req.Market)
		req.Response <- 0
		return
	}

	req.Response <- market.FetchAverageVolume(req.Timeframe)
}

// catchUp signals a catch up for all tracked markets.
func (m *Manager) catchUp() {
	if m.cfg.CatchUp == nil {
		return
	}

	lookback := m.cfg.CatchUpLookback
	if lookback == 0 {
		lookback = defaultCatchUpLookback
	}

	now, _, err := shared.NewYorkTime()
	if err != nil {
		m.cfg.Logger.Error().Msgf("fetching new york time for catch up: %v", err)
		return
	}

	for name := range m.markets {
		signal := shared.NewCatchUpSignal(name, m.cfg.Timeframes, now.Add(-lookback))
		m.cfg.CatchUp(signal)

		go func(market *Market, signal shared.CatchUpSignal) {
			<-signal.Status
			market.SetCaughtUp()
		}(m.markets[name], signal)
	}
}

// Run manages the lifecycle processes of the market manager.
func (m *Manager) Run(ctx context.Context) {
	m.catchUp()

	for {
		select {
		case <-ctx.Done():
			return
		case candle := <-m.updateSignals:
			// Use the dedicated market worker to handle the update signal.
			worker, ok := m.workers[candle.Market]
			if !ok {
				m.cfg.Logger.Error().Msgf("no worker found for market %s", candle.Market)
				continue
			}

			worker <- struct{}{}
			go func(candle *shared.Candlestick) {
				m.handleUpdateCandle(candle)
				<-worker
			}(&candle)
		case req := <-m.candleDataRequests:
			m.handleCandleDataRequest(req)
		case req := <-m.averageVolumeRequests:
			m.handleAverageVolumeRequest(req)
		}
	}
}
