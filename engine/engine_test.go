package engine

import (
	"context"
	"testing"
	"time"

	"github.com/dnldd/edge/risk"
	"github.com/dnldd/edge/shared"
	"github.com/peterldowns/testy/assert"
	"github.com/rs/zerolog/log"
)

// stubAccount serves a fixed account balance.
type stubAccount struct {
	balance float64
}

func (a *stubAccount) FetchAvailableBalance(_ context.Context, _ string) (float64, error) {
	return a.balance, nil
}

// trendingWindow creates a rising zigzag five minute series ending at the
// provided time.
func trendingWindow(n int, end time.Time) []*shared.Candlestick {
	wave := []float64{0, 1, 2, 3, 2, 1, 0, 1}
	candles := make([]*shared.Candlestick, 0, n)
	for idx := range n {
		value := 100 + float64(idx)*0.5 + wave[idx%8]
		candles = append(candles, &shared.Candlestick{
			Market:    "^GSPC",
			Timeframe: shared.FiveMinute,
			Open:      value - 0.1,
			Close:     value + 0.1,
			High:      value + 0.3,
			Low:       value - 0.3,
			Volume:    10,
			Date:      end.Add(-time.Minute * 5 * time.Duration(n-1-idx)),
		})
	}

	return candles
}

type engineHarness struct {
	engine       *Engine
	riskManager  *risk.Manager
	window       []*shared.Candlestick
	dataRequests int
	entrySignals chan shared.EntrySignal
}

func setupEngine(t *testing.T, window []*shared.Candlestick) *engineHarness {
	riskManager, err := risk.NewManager(&risk.ManagerConfig{})
	assert.NoError(t, err)

	h := &engineHarness{
		riskManager:  riskManager,
		window:       window,
		entrySignals: make(chan shared.EntrySignal, 4),
	}

	cfg := &EngineConfig{
		Markets:    []string{"^GSPC"},
		QuoteAsset: "USD",
		Subscribe:  func(sub chan shared.Candlestick) {},
		RequestCandleData: func(req *shared.CandleDataRequest) {
			h.dataRequests++
			req.Response <- h.window
		},
		RequestAverageVolume: func(req *shared.AverageVolumeRequest) {
			req.Response <- 5
		},
		SendEntrySignal: func(signal shared.EntrySignal) {
			h.entrySignals <- signal
		},
		AccountInfo: &stubAccount{balance: 10_000},
		RiskManager: riskManager,
		Logger:      &log.Logger,
	}

	eng, err := NewEngine(cfg)
	assert.NoError(t, err)
	h.engine = eng

	return h
}

func TestHandleMarketUpdateEmitsEntry(t *testing.T) {
	loc, err := time.LoadLocation(shared.NewYorkLocation)
	assert.NoError(t, err)

	// The window ends in the new york killzone during session overlap.
	end := time.Date(2024, 3, 4, 10, 0, 0, 0, loc)
	window := trendingWindow(60, end)
	h := setupEngine(t, window)

	last := window[len(window)-1]
	h.engine.handleMarketUpdate(context.Background(), last)

	// Ensure a trending market in the killzone emits a long entry.
	assert.Equal(t, 1, len(h.entrySignals))
	signal := <-h.entrySignals
	assert.Equal(t, "^GSPC", signal.Market)
	assert.Equal(t, shared.Long, signal.Direction)
	assert.Equal(t, last.Close, signal.Price)
	assert.True(t, signal.Quantity > 0)
	assert.True(t, signal.StopLoss < signal.Price)
	assert.True(t, signal.TakeProfit > signal.Price)
	assert.True(t, len(signal.Partials) > 0)
}

func TestHandleMarketUpdateIgnoresOtherTimeframes(t *testing.T) {
	loc, err := time.LoadLocation(shared.NewYorkLocation)
	assert.NoError(t, err)

	end := time.Date(2024, 3, 4, 10, 0, 0, 0, loc)
	window := trendingWindow(60, end)
	h := setupEngine(t, window)

	hourly := *window[len(window)-1]
	hourly.Timeframe = shared.OneHour
	h.engine.handleMarketUpdate(context.Background(), &hourly)

	// No evaluation happens off the five minute timeframe.
	assert.Equal(t, 0, h.dataRequests)
	assert.Equal(t, 0, len(h.entrySignals))
}

func TestHandleMarketUpdateHaltedEntries(t *testing.T) {
	loc, err := time.LoadLocation(shared.NewYorkLocation)
	assert.NoError(t, err)

	end := time.Date(2024, 3, 4, 10, 0, 0, 0, loc)
	window := trendingWindow(60, end)
	h := setupEngine(t, window)

	// Three consecutive losses halt new entries for the day.
	for range 3 {
		h.riskManager.RecordTradeResult(-10, 10_000, end)
	}

	h.engine.handleMarketUpdate(context.Background(), window[len(window)-1])
	assert.Equal(t, 0, h.dataRequests)
	assert.Equal(t, 0, len(h.entrySignals))
}

func TestEngineRun(t *testing.T) {
	loc, err := time.LoadLocation(shared.NewYorkLocation)
	assert.NoError(t, err)

	end := time.Date(2024, 3, 4, 10, 0, 0, 0, loc)
	window := trendingWindow(60, end)
	h := setupEngine(t, window)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		h.engine.Run(ctx)
		close(done)
	}()

	// Ensure a relayed market update flows through to an entry signal.
	h.engine.updateSignals <- *window[len(window)-1]
	select {
	case <-h.entrySignals:
	case <-time.After(time.Second * 5):
		t.Fatal("timed out waiting for entry signal")
	}

	// Ensure the engine can be gracefully shutdown.
	cancel()
	<-done
}
