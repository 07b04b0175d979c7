package fetch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dnldd/edge/shared"
	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"
)

const (
	// bufferSize is the default buffer size for channels.
	bufferSize = 64
	// maxWorkers is the maximum number of concurrent workers.
	maxWorkers = 8
	// minSubscriberBuffer is the minimum buffer size for subscribers.
	minSubscriberBuffer = 24
	// defaultMaxPollRuns bounds the polling job when no limit is configured.
	defaultMaxPollRuns = 100_000
)

// ManagerConfig represents the configuration for the fetch manager.
type ManagerConfig struct {
	// Markets represents the collection of ids of the markets to fetch data for.
	Markets []string
	// Timeframes are the timeframes to fetch data for.
	Timeframes []shared.Timeframe
	// ExchangeClient represents the market exchange client.
	ExchangeClient shared.MarketFetcher
	// MaxPollRuns caps the number of polling cycles the manager executes.
	MaxPollRuns int
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Validate asserts the config sane defaults are set.
func (cfg *ManagerConfig) Validate() error {
	if len(cfg.Markets) == 0 {
		return fmt.Errorf("no markets provided for fetch manager")
	}
	if cfg.ExchangeClient == nil {
		return fmt.Errorf("exchange client cannot be nil")
	}
	if cfg.Logger == nil {
		return fmt.Errorf("logger cannot be nil")
	}
	if len(cfg.Timeframes) == 0 {
		cfg.Timeframes = []shared.Timeframe{shared.FiveMinute}
	}
	if cfg.MaxPollRuns <= 0 {
		cfg.MaxPollRuns = defaultMaxPollRuns
	}

	return nil
}

// Manager represents the market fetch manager.
type Manager struct {
	cfg              *ManagerConfig
	loc              *time.Location
	lastUpdatedTimes map[string]time.Time
	lastUpdatedMtx   sync.Mutex
	jobScheduler     *gocron.Scheduler
	catchUpSignals   chan shared.CatchUpSignal
	subscribers      []chan shared.Candlestick
	subscribersMtx   sync.Mutex
	workers          chan struct{}
}

// NewManager initializes the fetch manager.
func NewManager(cfg *ManagerConfig) (*Manager, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating fetch manager config: %w", err)
	}

	loc, err := time.LoadLocation(shared.NewYorkLocation)
	if err != nil {
		return nil, fmt.Errorf("loading new york timezone: %w", err)
	}

	mgr := &Manager{
		cfg:              cfg,
		loc:              loc,
		lastUpdatedTimes: make(map[string]time.Time),
		jobScheduler:     gocron.NewScheduler(loc),
		catchUpSignals:   make(chan shared.CatchUpSignal, bufferSize),
		subscribers:      make([]chan shared.Candlestick, 0, minSubscriberBuffer),
		workers:          make(chan struct{}, maxWorkers),
	}

	return mgr, nil
}

// Subscribe registers the provided subscriber for market updates.
func (m *Manager) Subscribe(sub chan shared.Candlestick) {
	m.subscribersMtx.Lock()
	defer m.subscribersMtx.Unlock()

	m.subscribers = append(m.subscribers, sub)
}

// notifySubscribers notifies subscribers of the new market update.
func (m *Manager) notifySubscribers(candle *shared.Candlestick) {
	m.subscribersMtx.Lock()
	defer m.subscribersMtx.Unlock()

	for k := range m.subscribers {
		m.subscribers[k] <- *candle
	}
}

// SendCatchUpSignal relays the provided market catch up signal for processing.
func (m *Manager) SendCatchUpSignal(signal shared.CatchUpSignal) {
	select {
	case m.catchUpSignals <- signal:
		// do nothing.
	default:
		m.cfg.Logger.Error().Msgf("catchup signal channel at capacity: %d/%d",
			len(m.catchUpSignals), bufferSize)
	}
}

// fetchAndRelay fetches candles for the provided market and timeframe starting
// at the provided time and relays them to subscribers. It returns the date of
// the last relayed candle.
func (m *Manager) fetchAndRelay(ctx context.Context, market string, timeframe shared.Timeframe, start time.Time) (time.Time, error) {
	data, err := m.cfg.ExchangeClient.FetchIndexIntradayHistorical(ctx, market, timeframe, start, time.Time{})
	if err != nil {
		return time.Time{}, fmt.Errorf("fetching intraday historical data for %s: %w", market, err)
	}

	candles, err := ParseCandlesticks(data, market, timeframe, m.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing candlesticks for %s: %w", market, err)
	}

	if len(candles) == 0 {
		return time.Time{}, nil
	}

	for idx := range candles {
		m.notifySubscribers(&candles[idx])
	}

	return candles[len(candles)-1].Date, nil
}

// handleCatchUpSignal processes the provided catch up signal.
func (m *Manager) handleCatchUpSignal(ctx context.Context, signal shared.CatchUpSignal) {
	for idx := range signal.Timeframes {
		last, err := m.fetchAndRelay(ctx, signal.Market, signal.Timeframes[idx], signal.Start)
		if err != nil {
			m.cfg.Logger.Error().Msgf("catching up on %s: %v", signal.Market, err)
			continue
		}

		if !last.IsZero() {
			m.lastUpdatedMtx.Lock()
			m.lastUpdatedTimes[signal.Market] = last
			m.lastUpdatedMtx.Unlock()
		}
	}

	signal.Status <- shared.Processed
}

// pollMarketData fetches new market data for all tracked markets. It is a no-op
// while the market is closed.
func (m *Manager) pollMarketData(ctx context.Context) {
	now := time.Now().In(m.loc)
	open, _, err := shared.IsMarketOpen(now)
	if err != nil {
		m.cfg.Logger.Error().Msgf("checking market open status: %v", err)
		return
	}
	if !open {
		return
	}

	for idx := range m.cfg.Markets {
		market := m.cfg.Markets[idx]

		m.lastUpdatedMtx.Lock()
		start, ok := m.lastUpdatedTimes[market]
		m.lastUpdatedMtx.Unlock()
		if !ok {
			// The market has not caught up yet, skip polling it.
			continue
		}

		for tIdx := range m.cfg.Timeframes {
			last, err := m.fetchAndRelay(ctx, market, m.cfg.Timeframes[tIdx], start)
			if err != nil {
				m.cfg.Logger.Error().Msgf("polling %s: %v", market, err)
				continue
			}

			if !last.IsZero() {
				m.lastUpdatedMtx.Lock()
				if last.After(m.lastUpdatedTimes[market]) {
					m.lastUpdatedTimes[market] = last
				}
				m.lastUpdatedMtx.Unlock()
			}
		}
	}
}

// Run manages the lifecycle processes of the fetch manager.
func (m *Manager) Run(ctx context.Context) {
	// The polling job is bounded, it never reschedules past its run limit.
	_, err := m.jobScheduler.Every(1).Minute().LimitRunsTo(m.cfg.MaxPollRuns).
		Do(func() { m.pollMarketData(ctx) })
	if err != nil {
		m.cfg.Logger.Error().Msgf("scheduling market data polling job: %v", err)
		return
	}

	m.jobScheduler.StartAsync()
	defer m.jobScheduler.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case signal := <-m.catchUpSignals:
			m.workers <- struct{}{}
			go func(signal shared.CatchUpSignal) {
				m.handleCatchUpSignal(ctx, signal)
				<-m.workers
			}(signal)
		}
	}
}
