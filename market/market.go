package market

import (
	"fmt"

	"github.com/dnldd/edge/shared"
	"go.uber.org/atomic"
)

// MarketConfig represents the configuration for a tracked market.
type MarketConfig struct {
	// Market is the name of the tracked market.
	Market string
	// Timeframes are the tracked timeframes for the market.
	Timeframes []shared.Timeframe
	// SnapshotSize is the trailing window size kept per timeframe.
	SnapshotSize int32
}

// Market tracks the trailing candle windows of a market per timeframe.
type Market struct {
	cfg       *MarketConfig
	snapshots map[shared.Timeframe]*shared.CandlestickSnapshot
	caughtUp  atomic.Bool
}

// NewMarket initializes a new market.
func NewMarket(cfg *MarketConfig) (*Market, error) {
	if cfg.SnapshotSize == 0 {
		cfg.SnapshotSize = shared.SnapshotSize
	}

	snapshots := make(map[shared.Timeframe]*shared.CandlestickSnapshot, len(cfg.Timeframes))
	for idx := range cfg.Timeframes {
		snapshot, err := shared.NewCandlestickSnapshot(cfg.SnapshotSize)
		if err != nil {
			return nil, fmt.Errorf("creating %s snapshot: %w", cfg.Timeframes[idx].String(), err)
		}

		snapshots[cfg.Timeframes[idx]] = snapshot
	}

	return &Market{
		cfg:       cfg,
		snapshots: snapshots,
	}, nil
}

// Update processes the provided market data for the market.
func (m *Market) Update(candle *shared.Candlestick) error {
	snapshot, ok := m.snapshots[candle.Timeframe]
	if !ok {
		// Untracked timeframes are ignored.
		return nil
	}

	err := snapshot.Update(candle)
	if err != nil {
		return fmt.Errorf("updating %s snapshot: %w", candle.Timeframe.String(), err)
	}

	return nil
}

// FetchCandleData returns the last n candles of the provided timeframe.
func (m *Market) FetchCandleData(timeframe shared.Timeframe, n int32) []*shared.Candlestick {
	snapshot, ok := m.snapshots[timeframe]
	if !ok {
		return nil
	}

	return snapshot.LastN(n)
}

// FetchAverageVolume returns the average volume of the provided timeframe.
func (m *Market) FetchAverageVolume(timeframe shared.Timeframe) float64 {
	snapshot, ok := m.snapshots[timeframe]
	if !ok {
		return 0
	}

	return snapshot.AverageVolumeN(shared.AverageVolumePeriod)
}

// SetCaughtUp flags the market as caught up on market data.
func (m *Market) SetCaughtUp() {
	m.caughtUp.Store(true)
}

// IsCaughtUp checks whether the market is caught up on market data.
func (m *Market) IsCaughtUp() bool {
	return m.caughtUp.Load()
}
