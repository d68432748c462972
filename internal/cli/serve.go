package cli

import (
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"optionflow/internal/candles"
	apperrors "optionflow/internal/errors"
	"optionflow/internal/oi"
)

func addServeCommand(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newServeCmd(app))
}

// newServeCmd runs the long-lived engine: the candle sweep plus one OI
// subscription per configured underlying, until interrupted.
func newServeCmd(app *App) *cobra.Command {
	var symbols []string
	var exchange string
	var noSweep bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the candle sweep and OI fetch scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Store == nil {
				return apperrors.ErrStoreUnavailable
			}
			exch, err := parseExchangeFlag(exchange)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if len(symbols) == 0 {
				symbols = app.Config.Symbols.Indices
			}

			hub := candles.NewHub()
			defer hub.Close()

			if !noSweep {
				engine := candles.NewEngine(app.Store, app.Logger)
				sweeper := candles.NewSweeper(engine, app.Store, hub,
					app.Config.SweepInterval(), app.Config.ActiveWindow(), app.Logger)
				go sweeper.Run(ctx)
			}

			limiter := oi.NewLimiter(app.Config.Scheduler.RequestsPerSecond)
			fetcher := oi.NewFetcher(app.Feed, app.Store, app.ATM, limiter, app.Logger)
			manager := oi.NewManager(fetcher, app.ATM, app.Logger)
			defer manager.StopAll()

			for _, symbol := range symbols {
				expiry, err := app.Registry.NextExpiry(ctx, symbol, exch)
				if err != nil {
					app.Logger.Warn().Err(err).Str("symbol", symbol).
						Msg("Skipping OI subscription, no expiry")
					continue
				}
				if err := manager.Start(ctx, symbol, exch, expiry,
					app.Config.Scheduler.StrikeRange, app.Config.FetchInterval()); err != nil {
					app.Logger.Warn().Err(err).Str("symbol", symbol).
						Msg("Failed to start OI subscription")
				}
			}

			active := manager.Active()
			if len(active) == 0 && noSweep {
				output.Warning("Nothing to run")
				return nil
			}

			output.Info("Engine running: %d OI subscriptions [%s]",
				len(active), strings.Join(active, ", "))
			output.Dim("Press Ctrl+C to stop")

			<-ctx.Done()
			output.Println()
			output.Info("Shutting down")
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&symbols, "symbols", "s", nil, "underlyings to track (default: configured indices)")
	cmd.Flags().StringVarP(&exchange, "exchange", "e", "NSE", "exchange (NSE, BSE)")
	cmd.Flags().BoolVar(&noSweep, "no-sweep", false, "disable the candle sweep loop")
	return cmd
}
