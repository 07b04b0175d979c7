package shared

import (
	"testing"
)

func TestFetchSentiment(t *testing.T) {
	tests := []struct {
		name   string
		candle Candlestick
		want   Sentiment
	}{
		{
			name: "neutral candle",
			candle: Candlestick{
				Open:  5,
				Close: 5,
				High:  9,
				Low:   1,
			},
			want: Neutral,
		},
		{
			name: "bullish candle",
			candle: Candlestick{
				Open:  5,
				Close: 15,
				High:  20,
				Low:   1,
			},
			want: Bullish,
		},
		{
			name: "bearish candle",
			candle: Candlestick{
				Open:  15,
				Close: 5,
				High:  20,
				Low:   1,
			},
			want: Bearish,
		},
	}

	for _, test := range tests {
		sentiment := test.candle.FetchSentiment()
		if sentiment != test.want {
			t.Errorf("%s: expected %s sentiment, got %s",
				test.name, test.want.String(), sentiment.String())
		}
	}
}

func TestCandleMetrics(t *testing.T) {
	candle := Candlestick{
		Open:  10,
		Close: 18,
		High:  20,
		Low:   10,
	}

	if candle.Range() != 10 {
		t.Errorf("expected range 10, got %f", candle.Range())
	}
	if candle.Body() != 8 {
		t.Errorf("expected body 8, got %f", candle.Body())
	}
	if candle.BodyRatio() != 0.8 {
		t.Errorf("expected body ratio 0.8, got %f", candle.BodyRatio())
	}
}

func TestFetchKind(t *testing.T) {
	tests := []struct {
		name   string
		candle Candlestick
		want   Kind
	}{
		{
			name: "zero range candle",
			candle: Candlestick{
				Open:  5,
				Close: 5,
				High:  5,
				Low:   5,
			},
			want: Unknown,
		},
		{
			name: "marubozu candle",
			candle: Candlestick{
				Open:  10,
				Close: 18,
				High:  18,
				Low:   10,
			},
			want: Marubozu,
		},
		{
			name: "pin bar candle",
			candle: Candlestick{
				Open:  10,
				Close: 11,
				High:  20,
				Low:   10,
			},
			want: Pinbar,
		},
		{
			name: "doji candle",
			candle: Candlestick{
				Open:  9.5,
				Close: 10.5,
				High:  14,
				Low:   6,
			},
			want: Doji,
		},
		{
			name: "unclassified candle",
			candle: Candlestick{
				Open:  10,
				Close: 15,
				High:  18,
				Low:   8,
			},
			want: Unknown,
		},
	}

	for _, test := range tests {
		kind := test.candle.FetchKind()
		if kind != test.want {
			t.Errorf("%s: expected %s kind, got %s",
				test.name, test.want.String(), kind.String())
		}
	}
}

func TestFetchMomentum(t *testing.T) {
	marubozu := func(volume float64) *Candlestick {
		return &Candlestick{
			Open:   10,
			Close:  18,
			High:   18,
			Low:    10,
			Volume: volume,
		}
	}

	tests := []struct {
		name    string
		current *Candlestick
		prev    *Candlestick
		want    Momentum
	}{
		{
			name:    "no prior volume",
			current: marubozu(30),
			prev:    &Candlestick{Volume: 0},
			want:    Low,
		},
		{
			name:    "volume backed marubozu",
			current: marubozu(30),
			prev:    &Candlestick{Volume: 10},
			want:    High,
		},
		{
			name:    "modest volume increase",
			current: marubozu(11),
			prev:    &Candlestick{Volume: 10},
			want:    Medium,
		},
		{
			name:    "flat volume marubozu",
			current: marubozu(10),
			prev:    &Candlestick{Volume: 10},
			want:    Low,
		},
		{
			name: "volume backed doji",
			current: &Candlestick{
				Open:   9.5,
				Close:  10.5,
				High:   14,
				Low:    6,
				Volume: 30,
			},
			prev: &Candlestick{Volume: 10},
			want: Low,
		},
	}

	for _, test := range tests {
		momentum := FetchMomentum(test.current, test.prev)
		if momentum != test.want {
			t.Errorf("%s: expected %s momentum, got %s",
				test.name, test.want.String(), momentum.String())
		}
	}
}

func TestTrueRange(t *testing.T) {
	tests := []struct {
		name      string
		candle    Candlestick
		prevClose float64
		want      float64
	}{
		{
			name: "plain range dominates",
			candle: Candlestick{
				High: 20,
				Low:  10,
			},
			prevClose: 15,
			want:      10,
		},
		{
			name: "gap up dominates",
			candle: Candlestick{
				High: 30,
				Low:  28,
			},
			prevClose: 20,
			want:      10,
		},
		{
			name: "gap down dominates",
			candle: Candlestick{
				High: 12,
				Low:  10,
			},
			prevClose: 20,
			want:      10,
		},
	}

	for _, test := range tests {
		tr := test.candle.TrueRange(test.prevClose)
		if tr != test.want {
			t.Errorf("%s: expected true range %f, got %f", test.name, test.want, tr)
		}
	}
}
