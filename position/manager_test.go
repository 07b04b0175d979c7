package position

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/dnldd/edge/shared"
	"github.com/peterldowns/testy/assert"
	"github.com/rs/zerolog/log"
)

// stubGateway confirms or rejects orders for position manager tests.
type stubGateway struct {
	fail   bool
	placed int
}

func (g *stubGateway) PlaceOrder(_ context.Context, _ string, _ shared.Direction, _ float64, _ float64) (string, error) {
	if g.fail {
		return "", errors.New("gateway unavailable")
	}

	g.placed++
	return "order-1", nil
}

func (g *stubGateway) CancelOrder(_ context.Context, _ string) error {
	return nil
}

// stubNotifier captures relayed notifications.
type stubNotifier struct {
	mtx      sync.Mutex
	kinds    []shared.NotificationKind
	messages []string
}

func (n *stubNotifier) Notify(kind shared.NotificationKind, message string) {
	n.mtx.Lock()
	defer n.mtx.Unlock()

	n.kinds = append(n.kinds, kind)
	n.messages = append(n.messages, message)
}

func (n *stubNotifier) count() int {
	n.mtx.Lock()
	defer n.mtx.Unlock()

	return len(n.messages)
}

func setupPositionManager(t *testing.T, gateway shared.OrderGateway) (*Manager, *stubNotifier, *[]*shared.Trade) {
	notifier := &stubNotifier{}
	persisted := &[]*shared.Trade{}

	cfg := &ManagerConfig{
		Markets:      []string{"^GSPC"},
		Subscribe:    func(sub chan shared.Candlestick) {},
		OrderGateway: gateway,
		Notifier:     notifier,
		PersistClosedTrade: func(_ context.Context, trade *shared.Trade) error {
			*persisted = append(*persisted, trade)
			return nil
		},
		RecordTradeResult: func(pnl float64, day time.Time) {},
		Logger:            &log.Logger,
	}

	mgr, err := NewManager(cfg)
	assert.NoError(t, err)

	return mgr, notifier, persisted
}

func TestHandleEntrySignal(t *testing.T) {
	gateway := &stubGateway{}
	mgr, notifier, _ := setupPositionManager(t, gateway)

	ctx := context.Background()

	// Ensure a valid entry opens a position once the gateway confirms.
	entry := testEntrySignal()
	entry.Status = make(chan shared.StatusCode, 1)
	mgr.handleEntrySignal(ctx, entry)
	assert.Equal(t, shared.Processed, <-entry.Status)
	assert.Equal(t, 1, gateway.placed)
	assert.True(t, mgr.markets["^GSPC"].HasOpenPosition())

	// Ensure a second entry for the market is rejected loudly.
	before := notifier.count()
	second := testEntrySignal()
	mgr.handleEntrySignal(ctx, second)
	assert.True(t, notifier.count() > before)
	assert.Equal(t, 1, gateway.placed)

	// Ensure an entry for an unknown market is discarded.
	unknown := testEntrySignal()
	unknown.Market = "^AAPL"
	mgr.handleEntrySignal(ctx, unknown)
	assert.Equal(t, 1, gateway.placed)
}

func TestHandleEntrySignalGatewayFailure(t *testing.T) {
	mgr, _, _ := setupPositionManager(t, &stubGateway{fail: true})

	// A rejected order leaves no position behind.
	entry := testEntrySignal()
	mgr.handleEntrySignal(context.Background(), entry)
	assert.False(t, mgr.markets["^GSPC"].HasOpenPosition())
}

func TestHandleExitSignal(t *testing.T) {
	mgr, _, persisted := setupPositionManager(t, &stubGateway{})

	ctx := context.Background()
	entry := testEntrySignal()
	mgr.handleEntrySignal(ctx, entry)
	assert.True(t, mgr.markets["^GSPC"].HasOpenPosition())

	// Ensure an exit signal closes the open position and records the trade.
	exit := shared.NewExitSignal("^GSPC", shared.FiveMinute, shared.Long, 101,
		[]shared.Reason{shared.StructureBreak}, entry.CreatedOn.Add(time.Minute*30))
	mgr.handleExitSignal(ctx, &exit)
	assert.Equal(t, shared.Processed, <-exit.Status)
	assert.False(t, mgr.markets["^GSPC"].HasOpenPosition())

	trades := mgr.FetchTrades()
	assert.Equal(t, 1, len(trades))
	assert.Equal(t, float64(10), trades[0].PNL)
	assert.Equal(t, 1, len(*persisted))
}

func TestHandleMarketUpdate(t *testing.T) {
	mgr, _, persisted := setupPositionManager(t, &stubGateway{})

	ctx := context.Background()
	entry := testEntrySignal()
	mgr.handleEntrySignal(ctx, entry)

	// Ensure a non five minute candle is ignored.
	hourly := testCandle(100, 99, 100.5, 98, 5)
	hourly.Timeframe = shared.OneHour
	mgr.handleMarketUpdate(ctx, hourly)
	assert.True(t, mgr.markets["^GSPC"].HasOpenPosition())

	// Ensure a stop touch closes the position and records the trade.
	mgr.handleMarketUpdate(ctx, testCandle(100, 98.6, 100.25, 98.25, 10))
	assert.False(t, mgr.markets["^GSPC"].HasOpenPosition())

	trades := mgr.FetchTrades()
	assert.Equal(t, 1, len(trades))
	assert.Equal(t, shared.StopLossHit, trades[0].ExitReason)
	assert.Equal(t, float64(-15), trades[0].PNL)
	assert.Equal(t, 1, len(*persisted))
}

func TestPersistTradesCSV(t *testing.T) {
	mgr, _, _ := setupPositionManager(t, &stubGateway{})
	t.Cleanup(func() { os.Remove(tradesCSVPath) })

	ctx := context.Background()
	entry := testEntrySignal()
	mgr.handleEntrySignal(ctx, entry)

	exit := shared.NewExitSignal("^GSPC", shared.FiveMinute, shared.Long, 101,
		[]shared.Reason{shared.StructureBreak}, entry.CreatedOn.Add(time.Minute*30))
	mgr.handleExitSignal(ctx, &exit)

	err := mgr.PersistTradesCSV()
	assert.NoError(t, err)

	readb, err := os.ReadFile(tradesCSVPath)
	assert.NoError(t, err)
	assert.True(t, len(readb) > 0)
}

func TestManagerRun(t *testing.T) {
	mgr, _, _ := setupPositionManager(t, &stubGateway{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		mgr.Run(ctx)
		close(done)
	}()

	// Ensure the manager processes a relayed entry signal.
	entry := testEntrySignal()
	entry.Status = make(chan shared.StatusCode, 1)
	mgr.SendEntrySignal(*entry)
	assert.Equal(t, shared.Processed, <-entry.Status)

	// Ensure the manager can be gracefully shutdown.
	cancel()
	<-done
}

func TestFillPositionManagerChannels(t *testing.T) {
	mgr, _, _ := setupPositionManager(t, &stubGateway{})

	entry := testEntrySignal()
	exit := shared.NewExitSignal("^GSPC", shared.FiveMinute, shared.Long, 101,
		[]shared.Reason{shared.StructureBreak}, entry.CreatedOn)

	// Fill the signal channels used by the manager.
	for range bufferSize + 1 {
		mgr.SendEntrySignal(*entry)
		mgr.SendExitSignal(exit)
	}

	assert.Equal(t, len(mgr.entrySignals), bufferSize)
	assert.Equal(t, len(mgr.exitSignals), bufferSize)
}
