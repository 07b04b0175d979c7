package backtest

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/dnldd/edge/shared"
	"github.com/rs/zerolog"
)

// PersistTradesCSV writes the backtest trade history to a csv at the provided path.
func (r *Result) PersistTradesCSV(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating backtest trades csv: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"id", "market", "direction", "entryprice", "exitprice",
		"quantity", "pnl", "exitreason", "createdon", "closedon"}
	err = writer.Write(header)
	if err != nil {
		return fmt.Errorf("writing backtest trades csv header: %w", err)
	}

	for idx := range r.Trades {
		trade := r.Trades[idx]
		record := []string{
			trade.ID,
			trade.Market,
			trade.Direction.String(),
			strconv.FormatFloat(trade.EntryPrice, 'f', -1, 64),
			strconv.FormatFloat(trade.ExitPrice, 'f', -1, 64),
			strconv.FormatFloat(trade.Quantity, 'f', -1, 64),
			strconv.FormatFloat(trade.PNL, 'f', -1, 64),
			trade.ExitReason.String(),
			trade.CreatedOn.Format(shared.DateLayout),
			trade.ClosedOn.Format(shared.DateLayout),
		}

		err = writer.Write(record)
		if err != nil {
			return fmt.Errorf("writing backtest trades csv record: %w", err)
		}
	}

	return nil
}

// LogStats writes the backtest statistics to the provided logger.
func (r *Result) LogStats(logger *zerolog.Logger) {
	logger.Info().
		Int("trades", r.Stats.TotalTrades).
		Int("wins", r.Stats.WinningTrades).
		Int("losses", r.Stats.LosingTrades).
		Float64("winrate", r.Stats.WinRate).
		Float64("profitfactor", r.Stats.ProfitFactor).
		Float64("maxdrawdown", r.Stats.MaxDrawdown).
		Float64("sharpe", r.Stats.SharpeLike).
		Float64("netprofit", r.Stats.NetProfit).
		Msg("backtest complete")
}
