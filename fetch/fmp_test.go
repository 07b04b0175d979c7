package fetch

import (
	"strings"
	"testing"
	"time"

	"github.com/dnldd/edge/shared"
	"github.com/peterldowns/testy/assert"
	"github.com/tidwall/gjson"
)

func TestNewFMPClient(t *testing.T) {
	// Ensure an empty api key errors.
	_, err := NewFMPClient(&FMPConfig{})
	assert.Error(t, err)

	// Ensure a missing base url defaults to the api base url.
	client, err := NewFMPClient(&FMPConfig{APIKey: "key"})
	assert.NoError(t, err)
	assert.Equal(t, BaseURL, client.cfg.BaseURL)
}

func TestFormURL(t *testing.T) {
	client, err := NewFMPClient(&FMPConfig{APIKey: "key", BaseURL: "https://example.com"})
	assert.NoError(t, err)

	formed := client.formURL("/historical-chart/5min", "symbol=^GSPC")
	assert.Equal(t, "https://example.com/historical-chart/5min?symbol=^GSPC", formed)

	// Ensure the buffer resets between calls.
	formed = client.formURL("/historical-chart/1min", "symbol=^GSPC")
	assert.True(t, strings.HasPrefix(formed, "https://example.com/historical-chart/1min"))
}

func TestParseCandlesticks(t *testing.T) {
	loc, err := time.LoadLocation(shared.NewYorkLocation)
	assert.NoError(t, err)

	payload := `[
		{"date": "2024-03-04 10:00:00", "open": 100, "high": 101, "low": 99.5, "close": 100.5, "volume": 3},
		{"date": "2024-03-04 10:05:00", "open": 100.5, "high": 102, "low": 100, "close": 101.5, "volume": 2}
	]`

	candles, err := ParseCandlesticks(gjson.Parse(payload).Array(), "^GSPC", shared.FiveMinute, loc)
	assert.NoError(t, err)
	assert.Equal(t, 2, len(candles))

	first := candles[0]
	assert.Equal(t, "^GSPC", first.Market)
	assert.Equal(t, shared.FiveMinute, first.Timeframe)
	assert.Equal(t, float64(100), first.Open)
	assert.Equal(t, float64(101), first.High)
	assert.Equal(t, 99.5, first.Low)
	assert.Equal(t, 100.5, first.Close)
	assert.Equal(t, float64(3), first.Volume)

	// Dates parse in the new york location.
	expected := time.Date(2024, 3, 4, 10, 0, 0, 0, loc)
	assert.True(t, first.Date.Equal(expected))
	assert.Equal(t, shared.NewYorkLocation, first.Date.Location().String())
}

func TestParseCandlesticksBadDate(t *testing.T) {
	loc, err := time.LoadLocation(shared.NewYorkLocation)
	assert.NoError(t, err)

	data := gjson.Parse(`[{"date": "04/03/2024", "open": 1}]`).Array()
	_, err = ParseCandlesticks(data, "^GSPC", shared.FiveMinute, loc)
	assert.Error(t, err)
}
