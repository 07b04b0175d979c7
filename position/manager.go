package position

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/dnldd/edge/shared"
	"github.com/rs/zerolog"
)

const (
	// bufferSize is the default buffer size for channels.
	bufferSize = 64
	// DefaultMaxHold is the default maximum holding duration for a position.
	DefaultMaxHold = time.Hour * 8
	// tradesCSVPath is the output path for the trades csv.
	tradesCSVPath = "trades.csv"
)

// ManagerConfig represents the position manager configuration.
type ManagerConfig struct {
	// Markets represents the collection of ids of the markets to manage.
	Markets []string
	// MaxHold is the maximum holding duration for a position.
	MaxHold time.Duration
	// Subscribe registers the provided subscriber for market updates.
	Subscribe func(sub chan shared.Candlestick)
	// OrderGateway places and cancels orders. An entry only becomes a position
	// once the gateway confirms the order.
	OrderGateway shared.OrderGateway
	// Notifier relays trade and error notifications, fire-and-forget.
	Notifier shared.NotificationSink
	// PersistClosedTrade persists the provided closed trade.
	PersistClosedTrade func(ctx context.Context, trade *shared.Trade) error
	// RecordTradeResult relays realized trade results for stop-trading tracking.
	RecordTradeResult func(pnl float64, day time.Time)
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Manager manages positions through their lifecycles. Lifecycle state is
// partitioned per market with one exclusive owner each.
type Manager struct {
	cfg           *ManagerConfig
	markets       map[string]*Market
	trades        []*shared.Trade
	tradesMtx     sync.RWMutex
	entrySignals  chan shared.EntrySignal
	exitSignals   chan shared.ExitSignal
	updateSignals chan shared.Candlestick
	workers       map[string]chan struct{}
}

// NewManager initializes a new position manager.
func NewManager(cfg *ManagerConfig) (*Manager, error) {
	if cfg.MaxHold == 0 {
		cfg.MaxHold = DefaultMaxHold
	}

	markets := make(map[string]*Market, len(cfg.Markets))
	workers := make(map[string]chan struct{}, len(cfg.Markets))
	for idx := range cfg.Markets {
		markets[cfg.Markets[idx]] = NewMarket(cfg.Markets[idx])
		workers[cfg.Markets[idx]] = make(chan struct{}, 1)
	}

	m := &Manager{
		cfg:           cfg,
		markets:       markets,
		trades:        []*shared.Trade{},
		entrySignals:  make(chan shared.EntrySignal, bufferSize),
		exitSignals:   make(chan shared.ExitSignal, bufferSize),
		updateSignals: make(chan shared.Candlestick, bufferSize),
		workers:       workers,
	}

	cfg.Subscribe(m.updateSignals)

	return m, nil
}

// SendEntrySignal relays the provided entry signal for processing.
func (m *Manager) SendEntrySignal(signal shared.EntrySignal) {
	select {
	case m.entrySignals <- signal:
		// do nothing.
	default:
		m.cfg.Logger.Error().Msgf("entry signal channel at capacity: %d/%d",
			len(m.entrySignals), bufferSize)
	}
}

// SendExitSignal relays the provided exit signal for processing.
func (m *Manager) SendExitSignal(signal shared.ExitSignal) {
	select {
	case m.exitSignals <- signal:
		// do nothing.
	default:
		m.cfg.Logger.Error().Msgf("exit signal channel at capacity: %d/%d",
			len(m.exitSignals), bufferSize)
	}
}

// recordClosedTrade persists the provided closed trade and relays its result.
func (m *Manager) recordClosedTrade(ctx context.Context, trade *shared.Trade) {
	m.tradesMtx.Lock()
	m.trades = append(m.trades, trade)
	m.tradesMtx.Unlock()

	if m.cfg.RecordTradeResult != nil {
		m.cfg.RecordTradeResult(trade.PNL, trade.ClosedOn)
	}

	err := m.cfg.PersistClosedTrade(ctx, trade)
	if err != nil {
		// Persistence failures never affect trading decisions.
		m.cfg.Logger.Error().Msgf("persisting closed trade %s: %v", trade.ID, err)
	}

	msg := fmt.Sprintf("Closed %s position (%s) for %s @ %f, pnl %f (%s)",
		trade.Direction.String(), trade.ID, trade.Market, trade.ExitPrice,
		trade.PNL, trade.ExitReason.String())
	m.cfg.Notifier.Notify(shared.TradeNotification, msg)
}

// handleEntrySignal processes the provided entry signal.
func (m *Manager) handleEntrySignal(ctx context.Context, signal *shared.EntrySignal) {
	defer func() {
		if signal.Status != nil {
			signal.Status <- shared.Processed
		}
	}()

	market, ok := m.markets[signal.Market]
	if !ok {
		m.cfg.Logger.Error().Msgf("no market found with name %s for entry", signal.Market)
		return
	}

	if market.HasOpenPosition() {
		// Only one open position is permitted per market. A second entry is
		// surfaced loudly and discarded, never silently replacing the open one.
		msg := fmt.Sprintf("rejected %s entry for %s: a position is already open",
			signal.Direction.String(), signal.Market)
		m.cfg.Logger.Error().Msg(msg)
		m.cfg.Notifier.Notify(shared.ErrorNotification, msg)
		return
	}

	position, err := NewPosition(signal)
	if err != nil {
		m.cfg.Logger.Error().Msgf("creating new position: %v", err)
		m.cfg.Notifier.Notify(shared.ErrorNotification, err.Error())
		return
	}

	_, err = m.cfg.OrderGateway.PlaceOrder(ctx, signal.Market, signal.Direction,
		signal.Quantity, signal.Price)
	if err != nil {
		// A rejected or unreachable gateway leaves no position behind, the next
		// evaluation cycle may retry.
		m.cfg.Logger.Warn().Msgf("placing %s order for %s: %v", signal.Direction.String(),
			signal.Market, err)
		m.cfg.Notifier.Notify(shared.ErrorNotification,
			fmt.Sprintf("order placement failed for %s: %v", signal.Market, err))
		return
	}

	err = market.OpenPosition(position)
	if err != nil {
		m.cfg.Logger.Error().Msgf("opening position: %v", err)
		m.cfg.Notifier.Notify(shared.ErrorNotification, err.Error())
		return
	}

	msg := fmt.Sprintf("Opened %s position (%s) for %s @ %f with stoploss %f and target %f",
		position.Direction.String(), position.ID, position.Market, position.EntryPrice,
		position.StopLoss, position.TakeProfit)
	m.cfg.Notifier.Notify(shared.TradeNotification, msg)
}

// handleExitSignal processes the provided exit signal.
func (m *Manager) handleExitSignal(ctx context.Context, signal *shared.ExitSignal) {
	defer func() {
		if signal.Status != nil {
			signal.Status <- shared.Processed
		}
	}()

	market, ok := m.markets[signal.Market]
	if !ok {
		m.cfg.Logger.Error().Msgf("no market found with name %s for exit", signal.Market)
		return
	}

	trade, err := market.ClosePosition(signal)
	if err != nil {
		m.cfg.Logger.Error().Msgf("closing position: %v", err)
		return
	}

	m.recordClosedTrade(ctx, trade)
}

// handleMarketUpdate evaluates open positions against the provided market update.
func (m *Manager) handleMarketUpdate(ctx context.Context, candle *shared.Candlestick) {
	if candle.Timeframe != shared.FiveMinute {
		// Positions are managed on the five minute timeframe.
		return
	}

	market, ok := m.markets[candle.Market]
	if !ok {
		m.cfg.Logger.Error().Msgf("no market found with name %s for update", candle.Market)
		return
	}

	trade, taken, err := market.Update(candle, m.cfg.MaxHold)
	if err != nil {
		m.cfg.Logger.Error().Msgf("updating %s positions: %v", candle.Market, err)
		return
	}

	for idx := range taken {
		m.cfg.Logger.Info().Msgf("took %s partial at %.1fR (%f) for %s",
			candle.Market, taken[idx].RMultiple, taken[idx].Price, candle.Market)
	}

	if trade != nil {
		m.recordClosedTrade(ctx, trade)
	}
}

// FetchTrades returns the closed trade history.
func (m *Manager) FetchTrades() []*shared.Trade {
	m.tradesMtx.RLock()
	defer m.tradesMtx.RUnlock()

	trades := make([]*shared.Trade, len(m.trades))
	copy(trades, m.trades)
	return trades
}

// PersistTradesCSV writes the closed trade history to the trades csv.
func (m *Manager) PersistTradesCSV() error {
	file, err := os.Create(tradesCSVPath)
	if err != nil {
		return fmt.Errorf("creating trades csv: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"id", "market", "direction", "entryprice", "exitprice",
		"quantity", "pnl", "exitreason", "createdon", "closedon"}
	err = writer.Write(header)
	if err != nil {
		return fmt.Errorf("writing trades csv header: %w", err)
	}

	m.tradesMtx.RLock()
	defer m.tradesMtx.RUnlock()

	for idx := range m.trades {
		trade := m.trades[idx]
		record := []string{
			trade.ID,
			trade.Market,
			trade.Direction.String(),
			strconv.FormatFloat(trade.EntryPrice, 'f', -1, 64),
			strconv.FormatFloat(trade.ExitPrice, 'f', -1, 64),
			strconv.FormatFloat(trade.Quantity, 'f', -1, 64),
			strconv.FormatFloat(trade.PNL, 'f', -1, 64),
			trade.ExitReason.String(),
			trade.CreatedOn.Format(shared.DateLayout),
			trade.ClosedOn.Format(shared.DateLayout),
		}

		err = writer.Write(record)
		if err != nil {
			return fmt.Errorf("writing trades csv record: %w", err)
		}
	}

	return nil
}

// Run manages the lifecycle processes of the position manager.
func (m *Manager) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case signal := <-m.entrySignals:
			worker, ok := m.workers[signal.Market]
			if !ok {
				m.cfg.Logger.Error().Msgf("no worker found for market %s", signal.Market)
				continue
			}

			worker <- struct{}{}
			go func(signal *shared.EntrySignal) {
				m.handleEntrySignal(ctx, signal)
				<-worker
			}(&signal)
		case signal := <-m.exitSignals:
			worker, ok := m.workers[signal.Market]
			if !ok {
				m.cfg.Logger.Error().Msgf("no worker found for market %s", signal.Market)
				continue
			}

			worker <- struct{}{}
			go func(signal *shared.ExitSignal) {
				m.handleExitSignal(ctx, signal)
				<-worker
			}(&signal)
		case candle := <-m.updateSignals:
			worker, ok := m.workers[candle.Market]
			if !ok {
				continue
			}

			worker <- struct{}{}
			go func(candle *shared.Candlestick) {
				m.handleMarketUpdate(ctx, candle)
				<-worker
			}(&candle)
		}
	}
}
