package position

import (
	"fmt"
	"sync"
	"time"

	"github.com/dnldd/edge/shared"
)

// Market owns the position lifecycle for a single market. At most one open
// position is permitted per market at a time.
type Market struct {
	market      string
	position    *Position
	positionMtx sync.RWMutex
}

// NewMarket initializes a new market.
func NewMarket(market string) *Market {
	return &Market{
		market: market,
	}
}

// HasOpenPosition checks whether the market currently has an open position.
func (m *Market) HasOpenPosition() bool {
	m.positionMtx.RLock()
	defer m.positionMtx.RUnlock()

	return m.position != nil
}

// FetchOpenPosition returns the market's open position, nil when flat.
func (m *Market) FetchOpenPosition() *Position {
	m.positionMtx.RLock()
	defer m.positionMtx.RUnlock()

	return m.position
}

// OpenPosition adds the provided position to the market. Opening a position while
// one is already open is an invariant violation, the existing position is never
// silently replaced.
func (m *Market) OpenPosition(position *Position) error {
	if position == nil {
		return fmt.Errorf("position cannot be nil")
	}
	if position.Market != m.market {
		return fmt.Errorf("unexpected position market provided: %s", position.Market)
	}

	m.positionMtx.Lock()
	defer m.positionMtx.Unlock()

	if m.position != nil {
		return fmt.Errorf("invariant violation: %s already has an open position (%s)",
			m.market, m.position.ID)
	}

	m.position = position

	return nil
}

// Update evaluates the market's open position against the provided candle. The
// returned trade is non-nil once the position fully closes.
func (m *Market) Update(candle *shared.Candlestick, maxHold time.Duration) (*shared.Trade, []shared.PartialLevel, error) {
	if candle.Market != m.market {
		return nil, nil, fmt.Errorf("unexpected candlestick market provided: %s", candle.Market)
	}

	m.positionMtx.Lock()
	defer m.positionMtx.Unlock()

	if m.position == nil {
		return nil, nil, nil
	}

	// Exit conditions are evaluated before in-candle management so a stopped out
	// candle cannot also ratchet the stop.
	exitPrice, reason, done := m.position.CheckExit(candle, maxHold)
	if done {
		trade := m.position.Close(exitPrice, reason, candle.Date)
		m.position = nil
		return trade, nil, nil
	}

	taken := m.position.TakePartials(candle)
	m.position.ApplyTrailingStop(m.position.favorableExtreme(candle))

	if m.position.Quantity <= 0 {
		// The partial ladder consumed the full position.
		trade := m.position.Close(candle.Close, shared.PartialTargetHit, candle.Date)
		m.position = nil
		return trade, taken, nil
	}

	return nil, taken, nil
}

// ClosePosition force closes the market's open position using the provided exit signal.
func (m *Market) ClosePosition(signal *shared.ExitSignal) (*shared.Trade, error) {
	if signal.Market != m.market {
		return nil, fmt.Errorf("unexpected %s exit signal provided for %s market", signal.Market, m.market)
	}

	m.positionMtx.Lock()
	defer m.positionMtx.Unlock()

	if m.position == nil {
		return nil, fmt.Errorf("no open position for %s to close", m.market)
	}
	if m.position.Direction != signal.Direction {
		return nil, fmt.Errorf("exit signal direction %s does not match %s position",
			signal.Direction.String(), m.position.Direction.String())
	}

	var reason shared.Reason
	if len(signal.Reasons) > 0 {
		reason = signal.Reasons[0]
	}

	trade := m.position.Close(signal.Price, reason, signal.CreatedOn)
	m.position = nil

	return trade, nil
}
