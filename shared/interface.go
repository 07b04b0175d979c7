package shared

import (
	"context"
	"time"

	"github.com/tidwall/gjson"
)

// MarketFetcher defines the requirements for fetching index market data.
type MarketFetcher interface {
	// FetchIndexIntradayHistorical fetches intraday historical market data. It may
	// return fewer candles than requested, but never a non-monotonic series.
	FetchIndexIntradayHistorical(ctx context.Context, market string, timeframe Timeframe, start time.Time, end time.Time) ([]gjson.Result, error)
}

// OrderGateway defines the requirements for placing and cancelling orders. An order
// returned without error has been confirmed filled by the gateway.
type OrderGateway interface {
	// PlaceOrder places an order for the provided market and returns its id.
	PlaceOrder(ctx context.Context, market string, direction Direction, quantity float64, limitPrice float64) (string, error)
	// CancelOrder cancels the order with the provided id.
	CancelOrder(ctx context.Context, orderID string) error
}

// AccountInfoProvider defines the requirements for fetching account details.
type AccountInfoProvider interface {
	// FetchAvailableBalance fetches the available balance for the provided asset.
	FetchAvailableBalance(ctx context.Context, asset string) (float64, error)
}

// NotificationKind represents the type of a notification message.
type NotificationKind int

const (
	TradeNotification NotificationKind = iota
	ErrorNotification
	StatusNotification
)

// String stringifies the provided notification kind.
func (k NotificationKind) String() string {
	switch k {
	case TradeNotification:
		return "trade"
	case ErrorNotification:
		return "error"
	case StatusNotification:
		return "status"
	default:
		return "unknown"
	}
}

// NotificationSink defines the requirements for relaying notifications. Delivery is
// fire-and-forget, failures here never affect trading decisions.
type NotificationSink interface {
	// Notify relays the provided message.
	Notify(kind NotificationKind, message string)
}
