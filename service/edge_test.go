package service

import (
	"context"
	"testing"

	"github.com/peterldowns/testy/assert"
)

func TestEdgeConfigValidate(t *testing.T) {
	_, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Ensure a missing cancel function and balance error.
	cfg := &EdgeConfig{}
	assert.Error(t, cfg.Validate())

	// Ensure live mode requires markets, quote asset, api key and a database endpoint.
	cfg = &EdgeConfig{
		Cancel:         cancel,
		InitialBalance: 10_000,
	}
	assert.Error(t, cfg.Validate())

	cfg = &EdgeConfig{
		Cancel:           cancel,
		InitialBalance:   10_000,
		Markets:          []string{"^GSPC"},
		QuoteAsset:       "USD",
		FMPAPIKey:        "key",
		DatabaseEndpoint: "http://localhost:4001",
	}
	assert.NoError(t, cfg.Validate())

	// Ensure backtest mode only requires the data filepath and balance.
	cfg = &EdgeConfig{
		Cancel:         cancel,
		InitialBalance: 10_000,
		Backtest:       true,
	}
	assert.Error(t, cfg.Validate())

	cfg = &EdgeConfig{
		Cancel:               cancel,
		InitialBalance:       10_000,
		Backtest:             true,
		BacktestDataFilepath: "testdata/historic.json",
	}
	assert.NoError(t, cfg.Validate())
}
