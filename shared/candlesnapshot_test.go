package shared

import (
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
)

// snapshotCandle creates a candle for snapshot tests with the provided offset
// in minutes from the base time.
func snapshotCandle(base time.Time, offsetMinutes int, volume float64) *Candlestick {
	return &Candlestick{
		Open:      10,
		Low:       9,
		High:      11,
		Close:     10,
		Volume:    volume,
		Date:      base.Add(time.Minute * time.Duration(offsetMinutes)),
		Market:    "^GSPC",
		Timeframe: FiveMinute,
	}
}

func TestCandlestickSnapshotUpdate(t *testing.T) {
	base := time.Date(2024, 3, 4, 9, 30, 0, 0, time.UTC)

	// Ensure the snapshot size must be positive.
	_, err := NewCandlestickSnapshot(0)
	assert.Error(t, err)

	snapshot, err := NewCandlestickSnapshot(4)
	assert.NoError(t, err)

	// Ensure in-order updates are accepted.
	assert.NoError(t, snapshot.Update(snapshotCandle(base, 0, 1)))
	assert.NoError(t, snapshot.Update(snapshotCandle(base, 5, 2)))
	assert.Equal(t, int32(2), snapshot.Count())

	// Ensure candles with a high below their low are rejected.
	malformed := snapshotCandle(base, 10, 1)
	malformed.High = 5
	malformed.Low = 8
	assert.Error(t, snapshot.Update(malformed))

	// Ensure out of order and duplicate timestamps are rejected.
	assert.Error(t, snapshot.Update(snapshotCandle(base, 5, 1)))
	assert.Error(t, snapshot.Update(snapshotCandle(base, 2, 1)))
	assert.Equal(t, int32(2), snapshot.Count())
}

func TestCandlestickSnapshotLastN(t *testing.T) {
	base := time.Date(2024, 3, 4, 9, 30, 0, 0, time.UTC)

	snapshot, err := NewCandlestickSnapshot(4)
	assert.NoError(t, err)

	// Fill past capacity so the ring wraps.
	for idx := 0; idx < 6; idx++ {
		assert.NoError(t, snapshot.Update(snapshotCandle(base, idx*5, float64(idx+1))))
	}

	assert.Equal(t, int32(4), snapshot.Count())

	// Ensure the last entry is the most recent update.
	last := snapshot.Last()
	assert.Equal(t, base.Add(time.Minute*25), last.Date)

	// Ensure LastN is ordered oldest first after wrapping.
	set := snapshot.LastN(3)
	assert.Equal(t, 3, len(set))
	for idx := 1; idx < len(set); idx++ {
		assert.True(t, set[idx].Date.After(set[idx-1].Date))
	}
	assert.Equal(t, last.Date, set[len(set)-1].Date)
}

func TestCandlestickSnapshotAverageVolumeN(t *testing.T) {
	base := time.Date(2024, 3, 4, 9, 30, 0, 0, time.UTC)

	snapshot, err := NewCandlestickSnapshot(8)
	assert.NoError(t, err)

	// Ensure there is no average without enough entries.
	assert.Equal(t, float64(0), snapshot.AverageVolumeN(3))

	volumes := []float64{2, 4, 6, 100}
	for idx := range volumes {
		assert.NoError(t, snapshot.Update(snapshotCandle(base, idx*5, volumes[idx])))
	}

	// Ensure the most recent candle is excluded from the average it is
	// compared against.
	assert.Equal(t, float64(4), snapshot.AverageVolumeN(3))
}
