package main

import (
	"context"
	"log"
	"os"
	"os/signal"

	"github.com/dnldd/edge/service"
)

// handleTermination processes context cancellation signals or interrupt signals from the OS.
func handleTermination(ctx context.Context, cancel context.CancelFunc) {
	// Listen for interrupt signals.
	signals := []os.Signal{os.Interrupt}
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, signals...)

	// Wait for the context to be cancelled or an interrupt signal.
	for {
		select {
		case <-ctx.Done():
			return

		case <-interrupt:
			cancel()
		}
	}
}

func main() {
	var cfg Config
	err := loadConfig(&cfg, "")
	if err != nil {
		log.Printf("loading config: %v", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	edgeCfg := service.EdgeConfig{
		Markets:              cfg.Markets,
		QuoteAsset:           cfg.QuoteAsset,
		FMPAPIKey:            cfg.FMPAPIKey,
		DatabaseEndpoint:     cfg.DatabaseEndpoint,
		DatabaseUser:         cfg.DatabaseUser,
		DatabasePass:         cfg.DatabasePass,
		InitialBalance:       cfg.InitialBalance,
		MaxPollRuns:          cfg.MaxPollRuns,
		Backtest:             cfg.Backtest,
		BacktestDataFilepath: cfg.BacktestDataFilepath,
		Cancel:               cancel,
	}
	edge, err := service.NewEdge(ctx, &edgeCfg)
	if err != nil {
		log.Printf("creating edge service: %v", err)
		return
	}

	go handleTermination(ctx, cancel)
	edge.Run(ctx)
}
