package shared

import (
	"time"
)

// StatusCode represents a request or signal status code.
type StatusCode int

const (
	Processing StatusCode = iota
	Processed
)

// PartialLevel represents a single rung of a partial profit ladder. The price is
// derived from the entry, stoploss and risk multiple of the rung.
type PartialLevel struct {
	RMultiple float64
	Percent   float64
	Price     float64
}

// EntrySignal represents a fully sized entry signal for a position.
type EntrySignal struct {
	Market     string
	Timeframe  Timeframe
	Direction  Direction
	Price      float64
	Confidence float64
	Confluence float64
	StopLoss   float64
	TakeProfit float64
	Quantity   float64
	Partials   []PartialLevel
	Reasons    []Reason
	CreatedOn  time.Time
	Status     chan StatusCode
}

// NewEntrySignal initializes a new entry signal.
func NewEntrySignal(market string, timeframe Timeframe, direction Direction, price float64,
	confidence float64, confluence float64, stopLoss float64, takeProfit float64,
	quantity float64, partials []PartialLevel, reasons []Reason, created time.Time) EntrySignal {
	return EntrySignal{
		Market:     market,
		Timeframe:  timeframe,
		Direction:  direction,
		Price:      price,
		Confidence: confidence,
		Confluence: confluence,
		StopLoss:   stopLoss,
		TakeProfit: takeProfit,
		Quantity:   quantity,
		Partials:   partials,
		Reasons:    reasons,
		CreatedOn:  created,
		Status:     make(chan StatusCode, 1),
	}
}

// RiskPerUnit returns the distance between the entry price and the stoploss.
func (s *EntrySignal) RiskPerUnit() float64 {
	switch s.Direction {
	case Long:
		return s.Price - s.StopLoss
	default:
		return s.StopLoss - s.Price
	}
}

// ExitSignal represents an exit signal for a position.
type ExitSignal struct {
	Market    string
	Timeframe Timeframe
	Direction Direction
	Price     float64
	Reasons   []Reason
	CreatedOn time.Time
	Status    chan StatusCode
}

// NewExitSignal initializes a new exit signal.
func NewExitSignal(market string, timeframe Timeframe, direction Direction, price float64,
	reasons []Reason, created time.Time) ExitSignal {
	return ExitSignal{
		Market:    market,
		Timeframe: timeframe,
		Direction: direction,
		Price:     price,
		Reasons:   reasons,
		CreatedOn: created,
		Status:    make(chan StatusCode, 1),
	}
}
