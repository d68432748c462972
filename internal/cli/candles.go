package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"optionflow/internal/candles"
	apperrors "optionflow/internal/errors"
	"optionflow/internal/models"
)

func addCandleCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newCandlesCmd(app))
	rootCmd.AddCommand(newCurrentCandleCmd(app))
	rootCmd.AddCommand(newActiveCmd(app))
}

func newCandlesCmd(app *App) *cobra.Command {
	var timeframe string
	var limit int

	cmd := &cobra.Command{
		Use:   "candles <symbol>",
		Short: "Show historical OHLCV candles for a symbol",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Store == nil {
				return apperrors.ErrStoreUnavailable
			}

			tf, err := models.ParseTimeframe(timeframe)
			if err != nil {
				return fmt.Errorf("%w: %q", apperrors.ErrInvalidTimeframe, timeframe)
			}

			engine := candles.NewEngine(app.Store, app.Logger)
			series, err := engine.HistoricalCandles(cmd.Context(), args[0], tf, limit)
			if err != nil {
				return err
			}
			if len(series) == 0 {
				output.Warning("No candles for %s", args[0])
				return nil
			}

			if output.IsJSON() {
				return output.JSON(series)
			}

			output.Bold("%s  %s  (%d candles)", args[0], tf, len(series))
			table := NewTable(output, "TIME", "OPEN", "HIGH", "LOW", "CLOSE", "VOLUME", "STATE")
			for _, c := range series {
				state := "live"
				if c.Complete {
					state = "done"
				}
				table.AddRow(
					c.BucketStart.Format("2006-01-02 15:04"),
					fmt.Sprintf("%.2f", c.Open),
					fmt.Sprintf("%.2f", c.High),
					fmt.Sprintf("%.2f", c.Low),
					fmt.Sprintf("%.2f", c.Close),
					fmt.Sprintf("%d", c.Volume),
					state,
				)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().StringVarP(&timeframe, "timeframe", "t", "1m", "candle timeframe (1m, 5m, 15m, 1h)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of candles")
	return cmd
}

func newCurrentCandleCmd(app *App) *cobra.Command {
	var timeframe string

	cmd := &cobra.Command{
		Use:   "candle <symbol>",
		Short: "Show the in-progress candle for a symbol",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Store == nil {
				return apperrors.ErrStoreUnavailable
			}

			tf, err := models.ParseTimeframe(timeframe)
			if err != nil {
				return fmt.Errorf("%w: %q", apperrors.ErrInvalidTimeframe, timeframe)
			}

			engine := candles.NewEngine(app.Store, app.Logger)
			candle, err := engine.CurrentCandle(cmd.Context(), args[0], tf)
			if err != nil {
				return err
			}
			if candle == nil {
				output.Warning("No ticks in the current %s bucket for %s", tf, args[0])
				return nil
			}

			if output.IsJSON() {
				return output.JSON(candle)
			}

			output.Bold("%s  %s  bucket %s", candle.Symbol, tf, candle.BucketStart.Format("15:04:05"))
			output.Printf("  O %.2f  H %.2f  L %.2f  C %.2f  V %d\n",
				candle.Open, candle.High, candle.Low, candle.Close, candle.Volume)
			return nil
		},
	}

	cmd.Flags().StringVarP(&timeframe, "timeframe", "t", "1m", "candle timeframe (1m, 5m, 15m, 1h)")
	return cmd
}

func newActiveCmd(app *App) *cobra.Command {
	var windowMinutes int

	cmd := &cobra.Command{
		Use:   "active",
		Short: "List symbols with recent tick activity",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Store == nil {
				return apperrors.ErrStoreUnavailable
			}

			since := time.Now().Add(-time.Duration(windowMinutes) * time.Minute)
			symbols, err := app.Store.ActiveSymbols(cmd.Context(), since)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(symbols)
			}
			if len(symbols) == 0 {
				output.Warning("No active symbols in the last %d minutes", windowMinutes)
				return nil
			}
			for _, s := range symbols {
				output.Println(s)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&windowMinutes, "window", "w", 5, "activity window in minutes")
	return cmd
}
