package shared

import "time"

const (
	// AverageVolumePeriod is the number of candles used for average volume calculations.
	AverageVolumePeriod = 20
)

// CandleDataRequest represents a request to fetch the trailing candle window for a market.
type CandleDataRequest struct {
	Market    string
	Timeframe Timeframe
	N         int32
	Response  chan []*Candlestick
}

// NewCandleDataRequest initializes a new candle data request.
func NewCandleDataRequest(market string, timeframe Timeframe, n int32) *CandleDataRequest {
	return &CandleDataRequest{
		Market:    market,
		Timeframe: timeframe,
		N:         n,
		Response:  make(chan []*Candlestick, 1),
	}
}

// AverageVolumeRequest represents a request to fetch the average volume for a market.
type AverageVolumeRequest struct {
	Market    string
	Timeframe Timeframe
	Response  chan float64
}

// NewAverageVolumeRequest initializes a new average volume request.
func NewAverageVolumeRequest(market string, timeframe Timeframe) *AverageVolumeRequest {
	return &AverageVolumeRequest{
		Market:    market,
		Timeframe: timeframe,
		Response:  make(chan float64, 1),
	}
}

// CatchUpSignal represents a signal to catch up on market data.
type CatchUpSignal struct {
	Market     string
	Timeframes []Timeframe
	Start      time.Time
	Status     chan StatusCode
}

// NewCatchUpSignal initializes a new catch up signal.
func NewCatchUpSignal(market string, timeframes []Timeframe, start time.Time) CatchUpSignal {
	return CatchUpSignal{
		Market:     market,
		Timeframes: timeframes,
		Start:      start,
		Status:     make(chan StatusCode, 1),
	}
}
