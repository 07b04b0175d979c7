package shared

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/atomic"
)

const (
	// SnapshotSize is the default maximum number of entries for a candlestick snapshot.
	SnapshotSize = 200
)

// CandlestickSnapshot represents an append-only trailing window of candlestick data,
// ordered by timestamp with no duplicates.
type CandlestickSnapshot struct {
	data    []*Candlestick
	dataMtx sync.RWMutex
	start   atomic.Int32
	count   atomic.Int32
	size    atomic.Int32
}

// NewCandlestickSnapshot initializes a new candlestick snapshot.
func NewCandlestickSnapshot(size int32) (*CandlestickSnapshot, error) {
	if size <= 0 {
		return nil, errors.New("snapshot size must be positive")
	}

	snapshot := &CandlestickSnapshot{
		data: make([]*Candlestick, size),
	}

	snapshot.size.Store(size)
	return snapshot, nil
}

// Update appends the provided candlestick to the snapshot. Candlesticks must arrive
// in strictly increasing timestamp order for their timeframe.
func (s *CandlestickSnapshot) Update(candle *Candlestick) error {
	if candle.High < candle.Low {
		return fmt.Errorf("malformed candlestick for %s: high %f below low %f",
			candle.Market, candle.High, candle.Low)
	}

	s.dataMtx.Lock()
	defer s.dataMtx.Unlock()

	start := s.start.Load()
	count := s.count.Load()
	size := s.size.Load()

	if count > 0 {
		last := s.data[(start+count-1)%size]
		if !candle.Date.After(last.Date) {
			return fmt.Errorf("out of order candlestick for %s: %s is not after %s",
				candle.Market, candle.Date, last.Date)
		}
	}

	end := (start + count) % size
	s.data[end] = candle

	if count == size {
		// Overwrite the oldest entry when the snapshot is at capacity.
		s.start.Store((start + 1) % size)
	} else {
		s.count.Add(1)
	}

	return nil
}

// Count returns the number of entries in the snapshot.
func (s *CandlestickSnapshot) Count() int32 {
	return s.count.Load()
}

// Last returns the last added entry for the snapshot.
func (s *CandlestickSnapshot) Last() *Candlestick {
	s.dataMtx.RLock()
	defer s.dataMtx.RUnlock()

	start := s.start.Load()
	count := s.count.Load()
	size := s.size.Load()
	if count == 0 {
		return nil
	}

	end := (start + count - 1) % size
	return s.data[end]
}

// LastN fetches the last n number of elements from the snapshot, ordered oldest first.
func (s *CandlestickSnapshot) LastN(n int32) []*Candlestick {
	s.dataMtx.RLock()
	defer s.dataMtx.RUnlock()

	if n <= 0 {
		return nil
	}

	start := s.start.Load()
	count := s.count.Load()
	size := s.size.Load()

	// Clamp the number of elements expected if it is greater than the snapshot count.
	if n > count {
		n = count
	}

	set := make([]*Candlestick, n)
	start = (start + count - n + size) % size

	for i := range n {
		idx := (start + i) % size
		set[i] = s.data[idx]
	}

	return set
}

// AverageVolumeN returns the average volume for the last n candles besides the most
// recent one.
func (s *CandlestickSnapshot) AverageVolumeN(n int32) float64 {
	count := s.count.Load()
	if count < 2 || n <= 0 {
		return 0
	}

	candles := s.LastN(n + 1)

	// The most recent candle is excluded from the average it is compared against.
	candles = candles[:len(candles)-1]

	var volumeSum float64
	for idx := range candles {
		volumeSum += candles[idx].Volume
	}

	return volumeSum / float64(len(candles))
}

// LowestLowN returns the lowest low of the last n candles besides the most recent one.
func (s *CandlestickSnapshot) LowestLowN(n int32) float64 {
	count := s.count.Load()
	if count < 2 || n <= 0 {
		return 0
	}

	candles := s.LastN(n + 1)
	candles = candles[:len(candles)-1]

	lowest := candles[0].Low
	for idx := range candles {
		if candles[idx].Low < lowest {
			lowest = candles[idx].Low
		}
	}

	return lowest
}

// HighestHighN returns the highest high of the last n candles besides the most recent one.
func (s *CandlestickSnapshot) HighestHighN(n int32) float64 {
	count := s.count.Load()
	if count < 2 || n <= 0 {
		return 0
	}

	candles := s.LastN(n + 1)
	candles = candles[:len(candles)-1]

	highest := candles[0].High
	for idx := range candles {
		if candles[idx].High > highest {
			highest = candles[idx].High
		}
	}

	return highest
}
