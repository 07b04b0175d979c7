package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/dnldd/edge/shared"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// PaperBroker simulates an execution venue. Orders fill immediately at their
// limit price and the account balance is adjusted as trades conclude.
type PaperBroker struct {
	balance    float64
	balanceMtx sync.RWMutex
	orders     map[string]struct{}
	ordersMtx  sync.Mutex
	logger     *zerolog.Logger
}

// Ensure the paper broker implements the order gateway and account info interfaces.
var _ shared.OrderGateway = (*PaperBroker)(nil)
var _ shared.AccountInfoProvider = (*PaperBroker)(nil)

// NewPaperBroker initializes a new paper broker with the provided starting balance.
func NewPaperBroker(initialBalance float64, logger *zerolog.Logger) (*PaperBroker, error) {
	if initialBalance <= 0 {
		return nil, fmt.Errorf("initial balance must be positive: %f", initialBalance)
	}

	return &PaperBroker{
		balance: initialBalance,
		orders:  make(map[string]struct{}),
		logger:  logger,
	}, nil
}

// PlaceOrder places an order for the provided market and returns its id.
func (b *PaperBroker) PlaceOrder(_ context.Context, market string, direction shared.Direction, quantity float64, limitPrice float64) (string, error) {
	if quantity <= 0 {
		return "", fmt.Errorf("order quantity must be positive: %f", quantity)
	}

	id := uuid.New().String()

	b.ordersMtx.Lock()
	b.orders[id] = struct{}{}
	b.ordersMtx.Unlock()

	b.logger.Info().Msgf("filled %s order (%s) for %s, %f @ %f", direction.String(),
		id, market, quantity, limitPrice)

	return id, nil
}

// CancelOrder cancels the order with the provided id.
func (b *PaperBroker) CancelOrder(_ context.Context, orderID string) error {
	b.ordersMtx.Lock()
	defer b.ordersMtx.Unlock()

	_, ok := b.orders[orderID]
	if !ok {
		return fmt.Errorf("no order found with id %s", orderID)
	}

	delete(b.orders, orderID)
	return nil
}

// FetchAvailableBalance fetches the available balance for the provided asset.
func (b *PaperBroker) FetchAvailableBalance(_ context.Context, _ string) (float64, error) {
	b.balanceMtx.RLock()
	defer b.balanceMtx.RUnlock()

	return b.balance, nil
}

// AdjustBalance applies the provided realized pnl to the account balance and
// returns the updated balance.
func (b *PaperBroker) AdjustBalance(pnl float64) float64 {
	b.balanceMtx.Lock()
	defer b.balanceMtx.Unlock()

	b.balance += pnl
	return b.balance
}
