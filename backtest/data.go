package backtest

import (
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/dnldd/edge/shared"
	"github.com/tidwall/gjson"
)

// HistoricData represents historic market data loaded for a backtest.
type HistoricData struct {
	market  string
	candles []*shared.Candlestick
	start   time.Time
	end     time.Time
}

// ParseCandlesticks parses candlesticks from the provided json data.
func ParseCandlesticks(data []gjson.Result, market string, timeframe shared.Timeframe, loc *time.Location) ([]*shared.Candlestick, error) {
	candles := make([]*shared.Candlestick, 0, len(data))

	for idx := range data {
		candle := &shared.Candlestick{
			Open:      data[idx].Get("open").Float(),
			Low:       data[idx].Get("low").Float(),
			High:      data[idx].Get("high").Float(),
			Close:     data[idx].Get("close").Float(),
			Volume:    data[idx].Get("volume").Float(),
			Market:    market,
			Timeframe: timeframe,
		}

		date, err := time.ParseInLocation(shared.DateLayout, data[idx].Get("date").String(), loc)
		if err != nil {
			return nil, fmt.Errorf("parsing candlestick date: %w", err)
		}

		candle.Date = date
		candles = append(candles, candle)
	}

	return candles, nil
}

// NewHistoricData loads historic data from the provided file path. The file holds
// a market name and its candle series per timeframe, only the five minute series
// is used for backtests.
func NewHistoricData(filePath string) (*HistoricData, error) {
	readb, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("reading historic data from file with path '%s': %w", filePath, err)
	}

	b := gjson.ParseBytes(readb)

	market := b.Get("market").String()
	if market == "" {
		return nil, fmt.Errorf("historic data file '%s' has no market", filePath)
	}

	loc, err := time.LoadLocation(shared.NewYorkLocation)
	if err != nil {
		return nil, fmt.Errorf("loading new york location: %w", err)
	}

	data := b.Get(shared.FiveMinute.String()).Array()
	if len(data) == 0 {
		return nil, fmt.Errorf("historic data file '%s' has no five minute data", filePath)
	}

	candles, err := ParseCandlesticks(data, market, shared.FiveMinute, loc)
	if err != nil {
		return nil, fmt.Errorf("parsing candlesticks: %w", err)
	}

	slices.SortFunc(candles, func(a, b *shared.Candlestick) int {
		switch {
		case a.Date.Before(b.Date):
			return -1
		case a.Date.After(b.Date):
			return 1
		default:
			return 0
		}
	})

	historicData := &HistoricData{
		market:  market,
		candles: candles,
		start:   candles[0].Date,
		end:     candles[len(candles)-1].Date,
	}

	return historicData, nil
}

// FetchMarket returns the backtest market.
func (h *HistoricData) FetchMarket() string {
	return h.market
}

// FetchCandles returns the loaded candle series.
func (h *HistoricData) FetchCandles() []*shared.Candlestick {
	return h.candles
}

// FetchStartTime returns the start time of the loaded historical data.
func (h *HistoricData) FetchStartTime() time.Time {
	return h.start
}

// FetchEndTime returns the end time of the loaded historical data.
func (h *HistoricData) FetchEndTime() time.Time {
	return h.end
}
