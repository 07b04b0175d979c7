package backtest

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dnldd/edge/shared"
	"github.com/peterldowns/testy/assert"
	"github.com/tidwall/gjson"
)

const historicDataJSON = `{
	"market": "^GSPC",
	"5m": [
		{"date": "2024-03-04 10:05:00", "open": 101, "high": 102, "low": 100.5, "close": 101.5, "volume": 2},
		{"date": "2024-03-04 10:00:00", "open": 100, "high": 101, "low": 99.5, "close": 100.5, "volume": 3}
	]
}`

func TestNewHistoricData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "historic.json")
	err := os.WriteFile(path, []byte(historicDataJSON), 0o644)
	assert.NoError(t, err)

	data, err := NewHistoricData(path)
	assert.NoError(t, err)

	assert.Equal(t, "^GSPC", data.FetchMarket())
	assert.Equal(t, 2, len(data.FetchCandles()))

	// Candles are sorted by date regardless of file order.
	candles := data.FetchCandles()
	assert.True(t, candles[0].Date.Before(candles[1].Date))
	assert.Equal(t, float64(100), candles[0].Open)
	assert.Equal(t, data.FetchStartTime(), candles[0].Date)
	assert.Equal(t, data.FetchEndTime(), candles[1].Date)
}

func TestNewHistoricDataErrors(t *testing.T) {
	dir := t.TempDir()

	// Ensure a missing market errors.
	noMarket := filepath.Join(dir, "nomarket.json")
	err := os.WriteFile(noMarket, []byte(`{"5m": [{"date": "2024-03-04 10:00:00"}]}`), 0o644)
	assert.NoError(t, err)
	_, err = NewHistoricData(noMarket)
	assert.Error(t, err)

	// Ensure an empty five minute series errors.
	noData := filepath.Join(dir, "nodata.json")
	err = os.WriteFile(noData, []byte(`{"market": "^GSPC"}`), 0o644)
	assert.NoError(t, err)
	_, err = NewHistoricData(noData)
	assert.Error(t, err)

	// Ensure a missing file errors.
	_, err = NewHistoricData(filepath.Join(dir, "absent.json"))
	assert.Error(t, err)
}

func TestParseCandlesticksBadDate(t *testing.T) {
	loc, err := time.LoadLocation(shared.NewYorkLocation)
	assert.NoError(t, err)

	data := gjson.Parse(`[{"date": "not-a-date", "open": 1}]`).Array()
	_, err = ParseCandlesticks(data, "^GSPC", shared.FiveMinute, loc)
	assert.Error(t, err)
}
