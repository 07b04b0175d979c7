package shared

import (
	"fmt"
	"time"
)

const (
	// Session names.
	Asia    = "asia"
	London  = "london"
	NewYork = "newyork"

	// Market session times (futures) in new york time (ET).
	AsiaOpen     = "18:00"
	AsiaClose    = "03:00"
	LondonOpen   = "03:00"
	LondonClose  = "11:00"
	NewYorkOpen  = "08:00"
	NewYorkClose = "17:00"

	// Killzone windows in new york time (ET). These are the windows of each session
	// historically associated with elevated volatility.
	LondonKillzoneOpen   = "03:00"
	LondonKillzoneClose  = "05:00"
	NewYorkKillzoneOpen  = "08:30"
	NewYorkKillzoneClose = "11:00"
)

// Session represents a market session.
type Session struct {
	Name  string
	High  float64
	Low   float64
	Open  time.Time
	Close time.Time
}

// NewSession initializes a new market session.
func NewSession(name string, open string, close string, now time.Time) (*Session, error) {
	sessionOpen, err := time.Parse(SessionTimeLayout, open)
	if err != nil {
		return nil, fmt.Errorf("parsing session open: %w", err)
	}

	sessionClose, err := time.Parse(SessionTimeLayout, close)
	if err != nil {
		return nil, fmt.Errorf("parsing session close: %w", err)
	}

	loc := now.Location()
	if loc.String() != NewYorkLocation {
		return nil, fmt.Errorf("expected new york location for provided time, got %v", loc.String())
	}

	sOpen := time.Date(now.Year(), now.Month(), now.Day(), sessionOpen.Hour(), sessionOpen.Minute(), 0, 0, loc)
	sClose := time.Date(now.Year(), now.Month(), now.Day(), sessionClose.Hour(), sessionClose.Minute(), 0, 0, loc)
	if sClose.Before(sOpen) {
		sClose = sClose.Add(time.Hour * 24)
	}

	session := &Session{
		Name:  name,
		Open:  sOpen,
		Close: sClose,
	}

	return session, nil
}

// Update updates the provided session's high and low.
func (s *Session) Update(candle *Candlestick) {
	if s.Low == 0 {
		s.Low = candle.Low
	}
	if s.High == 0 {
		s.High = candle.High
	}
	if candle.Low < s.Low {
		s.Low = candle.Low
	}
	if candle.High > s.High {
		s.High = candle.High
	}
}

// IsCurrentSession checks whether the provided session is the current session.
func (s *Session) IsCurrentSession(current time.Time) bool {
	return (current.Equal(s.Open) || current.After(s.Open)) && current.Before(s.Close)
}

// normalizeToNewYork converts the provided time to new york time.
func normalizeToNewYork(now time.Time) (time.Time, error) {
	if now.Location().String() == NewYorkLocation {
		return now, nil
	}

	loc, err := time.LoadLocation(NewYorkLocation)
	if err != nil {
		return time.Time{}, fmt.Errorf("loading new york timezone: %w", err)
	}

	return now.In(loc), nil
}

// CurrentSession returns the current active session name. Times in other
// locations are converted to new york time.
func CurrentSession(now time.Time) (string, error) {
	now, err := normalizeToNewYork(now)
	if err != nil {
		return "", err
	}

	yesterday := now.AddDate(0, 0, -1)

	sessions := []struct {
		name  string
		open  string
		close string
		time  time.Time
	}{
		{Asia, AsiaOpen, AsiaClose, yesterday},
		{London, LondonOpen, LondonClose, now},
		{NewYork, NewYorkOpen, NewYorkClose, now},
		{Asia, AsiaOpen, AsiaClose, now},
	}

	for _, sess := range sessions {
		session, err := NewSession(sess.name, sess.open, sess.close, sess.time)
		if err != nil {
			return "", fmt.Errorf("creating %s session: %w", sess.name, err)
		}

		if (now.Equal(session.Open) || now.After(session.Open)) && now.Before(session.Close) {
			return session.Name, nil
		}
	}

	return "", nil
}

// IsMarketOpen checks whether the markets (only futures) are open by checking if the current
// time is within one of the market sessions.
func IsMarketOpen(now time.Time) (bool, string, error) {
	name, err := CurrentSession(now)
	if err != nil {
		return false, name, fmt.Errorf("fetching current market session: %v", err)
	}

	var open bool
	if name != "" {
		open = true
	}

	return open, name, nil
}

// inWindow checks whether the provided time falls in the given time-of-day window.
func inWindow(now time.Time, open string, close string) (bool, error) {
	windowOpen, err := time.Parse(SessionTimeLayout, open)
	if err != nil {
		return false, fmt.Errorf("parsing window open: %w", err)
	}

	windowClose, err := time.Parse(SessionTimeLayout, close)
	if err != nil {
		return false, fmt.Errorf("parsing window close: %w", err)
	}

	loc := now.Location()
	wOpen := time.Date(now.Year(), now.Month(), now.Day(), windowOpen.Hour(), windowOpen.Minute(), 0, 0, loc)
	wClose := time.Date(now.Year(), now.Month(), now.Day(), windowClose.Hour(), windowClose.Minute(), 0, 0, loc)

	return (now.Equal(wOpen) || now.After(wOpen)) && now.Before(wClose), nil
}

// InKillzone checks whether the provided time is within a session killzone.
// Times in other locations are converted to new york time.
func InKillzone(now time.Time) (bool, error) {
	now, err := normalizeToNewYork(now)
	if err != nil {
		return false, err
	}

	killzones := []struct {
		open  string
		close string
	}{
		{LondonKillzoneOpen, LondonKillzoneClose},
		{NewYorkKillzoneOpen, NewYorkKillzoneClose},
	}

	for _, kz := range killzones {
		in, err := inWindow(now, kz.open, kz.close)
		if err != nil {
			return false, err
		}
		if in {
			return true, nil
		}
	}

	return false, nil
}

// InSessionOverlap checks whether the provided time is within the london and
// new york session overlap. Times in other locations are converted to new
// york time.
func InSessionOverlap(now time.Time) (bool, error) {
	now, err := normalizeToNewYork(now)
	if err != nil {
		return false, err
	}

	return inWindow(now, NewYorkOpen, LondonClose)
}

// SessionContext describes the time-of-day context used to weight signals.
type SessionContext struct {
	Session  string
	Killzone bool
	Overlap  bool
}

// NewSessionContext derives the session context for the provided time. Times in
// other locations are converted to new york time.
func NewSessionContext(now time.Time) (*SessionContext, error) {
	now, err := normalizeToNewYork(now)
	if err != nil {
		return nil, err
	}

	name, err := CurrentSession(now)
	if err != nil {
		return nil, fmt.Errorf("fetching current session: %w", err)
	}

	killzone, err := InKillzone(now)
	if err != nil {
		return nil, fmt.Errorf("checking killzone: %w", err)
	}

	overlap, err := InSessionOverlap(now)
	if err != nil {
		return nil, fmt.Errorf("checking session overlap: %w", err)
	}

	return &SessionContext{
		Session:  name,
		Killzone: killzone,
		Overlap:  overlap,
	}, nil
}
