package risk

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dnldd/edge/shared"
	"github.com/rs/zerolog"
	"go.uber.org/atomic"
)

const (
	// DefaultRiskFraction is the default fraction of the account risked per trade.
	DefaultRiskFraction = 0.01
	// DefaultFixedStopPercent is the default fixed-percentage stop distance.
	DefaultFixedStopPercent = 0.015
	// DefaultATRPeriod is the default period for average true range calculations.
	DefaultATRPeriod = 14
	// DefaultATRMultiplier is the default multiplier for volatility-derived stops.
	DefaultATRMultiplier = 1.5
	// DefaultRewardMultiple is the default minimum acceptable risk-reward multiple.
	DefaultRewardMultiple = 3.0
	// DefaultMaxNotionalFraction is the default cap on position notional as a
	// fraction of the account balance.
	DefaultMaxNotionalFraction = 0.25
	// DefaultMaxConsecutiveLosses is the default consecutive loss count that halts
	// new entries for the day.
	DefaultMaxConsecutiveLosses = 3
	// DefaultDailyLossLimitFraction is the default daily loss fraction of the
	// account that halts new entries for the day.
	DefaultDailyLossLimitFraction = 0.03

	// strongStructureRewardBoost scales the reward multiple up when structural
	// strength is high.
	strongStructureRewardBoost = 1.5

	// partialLadderEpsilon is the allowed rounding slack on ladder percentages.
	partialLadderEpsilon = 1e-9
)

// LadderRung represents a configured partial profit rung.
type LadderRung struct {
	// RMultiple is the favorable risk multiple at which the rung fires.
	RMultiple float64
	// Percent is the percentage of the position closed at the rung.
	Percent float64
}

// ManagerConfig represents the risk manager configuration.
type ManagerConfig struct {
	// RiskFraction is the fraction of the account risked per trade.
	RiskFraction float64
	// FixedStopPercent is the fixed-percentage stop distance from entry.
	FixedStopPercent float64
	// ATRPeriod is the period for average true range calculations.
	ATRPeriod int
	// ATRMultiplier scales the average true range into a stop distance.
	ATRMultiplier float64
	// RewardMultiple is the minimum acceptable risk-reward multiple.
	RewardMultiple float64
	// MaxNotionalFraction caps position notional as a fraction of the balance.
	MaxNotionalFraction float64
	// PartialLadder is the partial profit ladder, ascending in risk multiples.
	// Rung percentages must sum to 100.
	PartialLadder []LadderRung
	// MaxConsecutiveLosses halts new entries for the day once reached.
	MaxConsecutiveLosses uint32
	// DailyLossLimitFraction halts new entries once the day's realized loss
	// reaches this fraction of the account.
	DailyLossLimitFraction float64
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Validate asserts the config has sane inputs, applying defaults for unset fields.
func (cfg *ManagerConfig) Validate() error {
	var errs error

	if cfg.RiskFraction == 0 {
		cfg.RiskFraction = DefaultRiskFraction
	}
	if cfg.RiskFraction < 0 || cfg.RiskFraction > 1 {
		errs = errors.Join(errs, fmt.Errorf("risk fraction out of range: %f", cfg.RiskFraction))
	}
	if cfg.FixedStopPercent == 0 {
		cfg.FixedStopPercent = DefaultFixedStopPercent
	}
	if cfg.ATRPeriod == 0 {
		cfg.ATRPeriod = DefaultATRPeriod
	}
	if cfg.ATRMultiplier == 0 {
		cfg.ATRMultiplier = DefaultATRMultiplier
	}
	if cfg.RewardMultiple == 0 {
		cfg.RewardMultiple = DefaultRewardMultiple
	}
	if cfg.RewardMultiple < 2 {
		errs = errors.Join(errs, fmt.Errorf("reward multiple below minimum acceptable: %f", cfg.RewardMultiple))
	}
	if cfg.MaxNotionalFraction == 0 {
		cfg.MaxNotionalFraction = DefaultMaxNotionalFraction
	}
	if cfg.MaxConsecutiveLosses == 0 {
		cfg.MaxConsecutiveLosses = DefaultMaxConsecutiveLosses
	}
	if cfg.DailyLossLimitFraction == 0 {
		cfg.DailyLossLimitFraction = DefaultDailyLossLimitFraction
	}
	if len(cfg.PartialLadder) == 0 {
		cfg.PartialLadder = []LadderRung{
			{RMultiple: 0.3, Percent: 20},
			{RMultiple: 0.6, Percent: 30},
			{RMultiple: 1.0, Percent: 30},
			{RMultiple: 1.5, Percent: 20},
		}
	}

	var percentSum float64
	var prevMultiple float64
	for idx := range cfg.PartialLadder {
		rung := cfg.PartialLadder[idx]
		if rung.RMultiple <= prevMultiple {
			errs = errors.Join(errs, fmt.Errorf("partial ladder not ascending at rung %d", idx))
		}
		prevMultiple = rung.RMultiple
		percentSum += rung.Percent
	}
	if percentSum < 100-partialLadderEpsilon || percentSum > 100+partialLadderEpsilon {
		errs = errors.Join(errs, fmt.Errorf("partial ladder percentages sum to %f, expected 100", percentSum))
	}

	return errs
}

// Params represents the computed risk parameters for an accepted signal.
type Params struct {
	StopLoss   float64
	TakeProfit float64
	Quantity   float64
	Partials   []shared.PartialLevel
}

// Manager computes stops, targets, position sizes and partial ladders, and tracks
// the stop-trading conditions which disable new entries.
type Manager struct {
	cfg               *ManagerConfig
	halted            atomic.Bool
	haltedDay         atomic.Time
	consecutiveLosses atomic.Uint32
	dailyPNL          float64
	dailyPNLDay       time.Time
	dailyMtx          sync.Mutex
}

// NewManager initializes a new risk manager.
func NewManager(cfg *ManagerConfig) (*Manager, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	return &Manager{cfg: cfg}, nil
}

// AverageTrueRange returns the average true range of the provided candles over the
// configured period.
func (m *Manager) AverageTrueRange(candles []*shared.Candlestick) float64 {
	if len(candles) < 2 {
		return 0
	}

	start := len(candles) - m.cfg.ATRPeriod
	if start < 1 {
		start = 1
	}

	var trSum float64
	var count int
	for idx := start; idx < len(candles); idx++ {
		trSum += candles[idx].TrueRange(candles[idx-1].Close)
		count++
	}

	return trSum / float64(count)
}

// StopLoss returns the stoploss for the provided entry, the tighter of the
// fixed-percentage distance and the volatility-derived distance, on the adverse
// side of the entry.
func (m *Manager) StopLoss(direction shared.Direction, entry float64, candles []*shared.Candlestick) (float64, float64) {
	fixedDistance := entry * m.cfg.FixedStopPercent

	distance := fixedDistance
	atr := m.AverageTrueRange(candles)
	if atr > 0 {
		volatilityDistance := atr * m.cfg.ATRMultiplier
		if volatilityDistance < distance {
			distance = volatilityDistance
		}
	}

	switch direction {
	case shared.Long:
		return entry - distance, distance
	default:
		return entry + distance, distance
	}
}

// TakeProfit returns the target for the provided entry and stop distance, scaled
// up when structural strength is high.
func (m *Manager) TakeProfit(direction shared.Direction, entry float64, stopDistance float64, strongStructure bool) float64 {
	rewardMultiple := m.cfg.RewardMultiple
	if strongStructure {
		rewardMultiple *= strongStructureRewardBoost
	}

	targetDistance := stopDistance * rewardMultiple
	switch direction {
	case shared.Long:
		return entry + targetDistance
	default:
		return entry - targetDistance
	}
}

// PositionSize returns the position size for the provided entry and stoploss,
// scaled down by confidence and capped at the maximum notional fraction of the
// account. A zero stop distance is degenerate and returns an error, signals with
// one must be rejected before sizing.
func (m *Manager) PositionSize(balance float64, entry float64, stopLoss float64, confidence float64) (float64, error) {
	riskPerUnit := entry - stopLoss
	if riskPerUnit < 0 {
		riskPerUnit = -riskPerUnit
	}
	if riskPerUnit == 0 {
		return 0, errors.New("degenerate risk per unit: entry equals stoploss")
	}

	size := (balance * m.cfg.RiskFraction) / riskPerUnit

	// Confidence only ever scales the size down.
	if confidence < 1 {
		size *= confidence
	}

	if entry > 0 {
		maxSize := (balance * m.cfg.MaxNotionalFraction) / entry
		if size > maxSize {
			size = maxSize
		}
	}

	return size, nil
}

// PartialLadder returns the partial profit ladder for the provided entry and stop
// distance, each rung priced at its risk multiple in the profit direction.
func (m *Manager) PartialLadder(direction shared.Direction, entry float64, stopDistance float64) []shared.PartialLevel {
	ladder := make([]shared.PartialLevel, 0, len(m.cfg.PartialLadder))
	for idx := range m.cfg.PartialLadder {
		rung := m.cfg.PartialLadder[idx]

		var price float64
		switch direction {
		case shared.Long:
			price = entry + stopDistance*rung.RMultiple
		default:
			price = entry - stopDistance*rung.RMultiple
		}

		ladder = append(ladder, shared.PartialLevel{
			RMultiple: rung.RMultiple,
			Percent:   rung.Percent,
			Price:     price,
		})
	}

	return ladder
}

// Size computes the full set of risk parameters for the provided entry.
func (m *Manager) Size(direction shared.Direction, entry float64, confidence float64,
	strongStructure bool, balance float64, candles []*shared.Candlestick) (*Params, error) {
	stopLoss, stopDistance := m.StopLoss(direction, entry, candles)
	if stopDistance == 0 {
		return nil, errors.New("degenerate stop distance for entry")
	}

	quantity, err := m.PositionSize(balance, entry, stopLoss, confidence)
	if err != nil {
		return nil, err
	}

	params := &Params{
		StopLoss:   stopLoss,
		TakeProfit: m.TakeProfit(direction, entry, stopDistance, strongStructure),
		Quantity:   quantity,
		Partials:   m.PartialLadder(direction, entry, stopDistance),
	}

	return params, nil
}

// RecordTradeResult updates the stop-trading state with the provided realized
// trade result. Once the consecutive loss count or the daily loss limit is
// breached, new entries are halted for the remainder of the trading day.
func (m *Manager) RecordTradeResult(pnl float64, balance float64, day time.Time) {
	if pnl >= 0 {
		m.consecutiveLosses.Store(0)
	} else {
		m.consecutiveLosses.Add(1)
	}

	m.dailyMtx.Lock()
	if !sameDay(m.dailyPNLDay, day) {
		m.dailyPNLDay = day
		m.dailyPNL = 0
	}
	m.dailyPNL += pnl
	dailyPNL := m.dailyPNL
	m.dailyMtx.Unlock()

	lossLimit := balance * m.cfg.DailyLossLimitFraction
	switch {
	case m.consecutiveLosses.Load() >= m.cfg.MaxConsecutiveLosses:
		m.halt(day, "consecutive loss limit reached")
	case dailyPNL <= -lossLimit && lossLimit > 0:
		m.halt(day, "daily loss limit reached")
	}
}

// halt disables new entries for the remainder of the provided trading day.
func (m *Manager) halt(day time.Time, reason string) {
	if m.halted.Load() && sameDay(m.haltedDay.Load(), day) {
		return
	}

	m.halted.Store(true)
	m.haltedDay.Store(day)
	if m.cfg.Logger != nil {
		m.cfg.Logger.Warn().Msgf("halting new entries for the day: %s", reason)
	}
}

// EntriesHalted checks whether new entries are disabled for the provided day.
// Existing open positions continue to be managed to closure regardless.
func (m *Manager) EntriesHalted(now time.Time) bool {
	if !m.halted.Load() {
		return false
	}

	if !sameDay(m.haltedDay.Load(), now) {
		// A new trading day lifts the halt.
		m.halted.Store(false)
		m.consecutiveLosses.Store(0)
		return false
	}

	return true
}

// sameDay checks whether the provided times fall on the same calendar day.
func sameDay(a time.Time, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
