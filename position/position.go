package position

import (
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/dnldd/edge/shared"
	"github.com/google/uuid"
)

// Status represents the status of a position.
type Status int

const (
	Active Status = iota
	Closed
)

// String stringifies the provided position status.
func (s Status) String() string {
	switch s {
	case Active:
		return "active"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// Position represents an open market position started by an accepted entry signal.
// It is owned exclusively by its market and mutated only by its transition methods.
type Position struct {
	ID              string
	Market          string
	Timeframe       shared.Timeframe
	Direction       shared.Direction
	EntryPrice      float64
	Quantity        float64
	InitialQuantity float64
	StopLoss        float64
	InitialStopLoss float64
	TakeProfit      float64
	Partials        []shared.PartialLevel
	RealizedPNL     float64
	EntryReasons    []shared.Reason
	Status          Status
	CreatedOn       time.Time
}

// NewPosition initializes a new position from the provided entry signal. The stop
// and target must sit on the correct sides of the entry and the quantity must be
// positive, violations are invariant errors rather than values to coerce.
func NewPosition(entry *shared.EntrySignal) (*Position, error) {
	if entry == nil {
		return nil, fmt.Errorf("entry signal cannot be nil")
	}
	if entry.Quantity <= 0 {
		return nil, fmt.Errorf("invariant violation: non-positive quantity %f for %s entry",
			entry.Quantity, entry.Market)
	}

	switch entry.Direction {
	case shared.Long:
		if entry.StopLoss >= entry.Price {
			return nil, fmt.Errorf("invariant violation: long stoploss %f not below entry %f",
				entry.StopLoss, entry.Price)
		}
		if entry.TakeProfit <= entry.Price {
			return nil, fmt.Errorf("invariant violation: long target %f not above entry %f",
				entry.TakeProfit, entry.Price)
		}
	case shared.Short:
		if entry.StopLoss <= entry.Price {
			return nil, fmt.Errorf("invariant violation: short stoploss %f not above entry %f",
				entry.StopLoss, entry.Price)
		}
		if entry.TakeProfit >= entry.Price {
			return nil, fmt.Errorf("invariant violation: short target %f not below entry %f",
				entry.TakeProfit, entry.Price)
		}
	}

	partials := make([]shared.PartialLevel, len(entry.Partials))
	copy(partials, entry.Partials)

	pos := &Position{
		ID:              uuid.New().String(),
		Market:          entry.Market,
		Timeframe:       entry.Timeframe,
		Direction:       entry.Direction,
		EntryPrice:      entry.Price,
		Quantity:        entry.Quantity,
		InitialQuantity: entry.Quantity,
		StopLoss:        entry.StopLoss,
		InitialStopLoss: entry.StopLoss,
		TakeProfit:      entry.TakeProfit,
		Partials:        partials,
		EntryReasons:    entry.Reasons,
		Status:          Active,
		CreatedOn:       entry.CreatedOn,
	}

	return pos, nil
}

// InitialRisk returns the initial stop distance from entry, the position's risk unit.
func (p *Position) InitialRisk() float64 {
	return math.Abs(p.EntryPrice - p.InitialStopLoss)
}

// directionSign returns the pnl sign of the position's direction.
func (p *Position) directionSign() float64 {
	if p.Direction == shared.Short {
		return -1
	}
	return 1
}

// favorableExtreme returns the most favorable price the provided candle reached
// for the position.
func (p *Position) favorableExtreme(candle *shared.Candlestick) float64 {
	if p.Direction == shared.Long {
		return candle.High
	}
	return candle.Low
}

// ApplyTrailingStop ratchets the stoploss toward profit once the provided price
// has advanced at least one risk unit from entry. The stop only ever tightens,
// it never moves against the position.
func (p *Position) ApplyTrailingStop(price float64) {
	risk := p.InitialRisk()
	if risk == 0 {
		return
	}

	advance := (price - p.EntryPrice) * p.directionSign()
	if advance < risk {
		return
	}

	// Trail the stop one risk unit behind the favorable price.
	switch p.Direction {
	case shared.Long:
		candidate := price - risk
		if candidate > p.StopLoss {
			p.StopLoss = candidate
		}
	case shared.Short:
		candidate := price + risk
		if candidate < p.StopLoss {
			p.StopLoss = candidate
		}
	}
}

// TakePartials closes the fraction of the position assigned to each partial rung
// the provided candle reached. Each rung fires at most once.
func (p *Position) TakePartials(candle *shared.Candlestick) []shared.PartialLevel {
	extreme := p.favorableExtreme(candle)

	taken := make([]shared.PartialLevel, 0)
	for idx := 0; idx < len(p.Partials); {
		rung := p.Partials[idx]

		reached := (extreme-rung.Price)*p.directionSign() >= 0
		if !reached {
			idx++
			continue
		}

		closeQuantity := p.InitialQuantity * rung.Percent / 100
		if closeQuantity > p.Quantity {
			closeQuantity = p.Quantity
		}

		p.RealizedPNL += (rung.Price - p.EntryPrice) * closeQuantity * p.directionSign()
		p.Quantity -= closeQuantity
		p.Partials = slices.Delete(p.Partials, idx, idx+1)

		taken = append(taken, rung)
	}

	return taken
}

// stopTouched checks whether the provided candle touched the stoploss.
func (p *Position) stopTouched(candle *shared.Candlestick) bool {
	if p.Direction == shared.Long {
		return candle.Low <= p.StopLoss
	}
	return candle.High >= p.StopLoss
}

// targetTouched checks whether the provided candle touched the target.
func (p *Position) targetTouched(candle *shared.Candlestick) bool {
	if p.Direction == shared.Long {
		return candle.High >= p.TakeProfit
	}
	return candle.Low <= p.TakeProfit
}

// CheckExit evaluates the position's exit conditions against the provided candle.
// When both the stop and the target are touched within the same candle the
// ambiguity is resolved deterministically using the candle's open-to-close
// direction: an up-close implies the low traded first, a down-close the high.
func (p *Position) CheckExit(candle *shared.Candlestick, maxHold time.Duration) (float64, shared.Reason, bool) {
	stop := p.stopTouched(candle)
	target := p.targetTouched(candle)

	switch {
	case stop && target:
		lowFirst := candle.Close >= candle.Open
		var stopFirst bool
		if p.Direction == shared.Long {
			// The long stop sits below entry, so the low trading first means the
			// stop was hit first.
			stopFirst = lowFirst
		} else {
			stopFirst = !lowFirst
		}

		if stopFirst {
			return p.StopLoss, shared.StopLossHit, true
		}
		return p.TakeProfit, shared.TargetHit, true
	case stop:
		return p.StopLoss, shared.StopLossHit, true
	case target:
		return p.TakeProfit, shared.TargetHit, true
	}

	if maxHold > 0 && candle.Date.Sub(p.CreatedOn) >= maxHold {
		return candle.Close, shared.MaxHoldExceeded, true
	}

	return 0, 0, false
}

// Close concludes the position at the provided exit price and returns its closed
// trade record. Realized pnl includes any already-realized partial exits.
func (p *Position) Close(exitPrice float64, reason shared.Reason, closedOn time.Time) *shared.Trade {
	pnl := (exitPrice-p.EntryPrice)*p.Quantity*p.directionSign() + p.RealizedPNL
	p.Status = Closed

	return &shared.Trade{
		ID:         p.ID,
		Market:     p.Market,
		Direction:  p.Direction,
		EntryPrice: p.EntryPrice,
		ExitPrice:  exitPrice,
		Quantity:   p.InitialQuantity,
		PNL:        pnl,
		ExitReason: reason,
		CreatedOn:  p.CreatedOn,
		ClosedOn:   closedOn,
	}
}
