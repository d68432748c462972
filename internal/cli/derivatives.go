package cli

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	apperrors "optionflow/internal/errors"
	"optionflow/internal/models"
	"optionflow/internal/oi"
	"optionflow/internal/registry"
	"optionflow/pkg/utils"
)

func addDerivativesCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newExpiriesCmd(app))
	rootCmd.AddCommand(newATMCmd(app))
	rootCmd.AddCommand(newChainCmd(app))
	rootCmd.AddCommand(newOIChangesCmd(app))
	rootCmd.AddCommand(newMarketCmd())
}

func parseExchangeFlag(s string) (models.Exchange, error) {
	switch models.Exchange(s) {
	case models.NSE, models.BSE, models.NFO, models.BFO:
		return models.Exchange(s), nil
	}
	return "", fmt.Errorf("invalid exchange: %q", s)
}

func newExpiriesCmd(app *App) *cobra.Command {
	var exchange string
	var monthlyOnly bool
	var refresh bool

	cmd := &cobra.Command{
		Use:   "expiries <symbol>",
		Short: "List option expiry dates for an underlying",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			exch, err := parseExchangeFlag(exchange)
			if err != nil {
				return err
			}

			expiries, err := app.Registry.ExpiryDates(cmd.Context(), args[0], exch, refresh)
			if err != nil {
				return err
			}
			if monthlyOnly {
				expiries = registry.FilterMonthlyExpiries(expiries)
			}

			if output.IsJSON() {
				return output.JSON(expiries)
			}
			if len(expiries) == 0 {
				output.Warning("No expiries for %s", args[0])
				return nil
			}
			for _, e := range expiries {
				monthly, _ := registry.IsMonthlyExpiry(e)
				if monthly {
					output.Printf("%s  %s\n", e, output.Yellow("monthly"))
				} else {
					output.Println(e)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&exchange, "exchange", "e", "NSE", "exchange (NSE, BSE)")
	cmd.Flags().BoolVarP(&monthlyOnly, "monthly", "m", false, "monthly expiries only")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "bypass the expiry cache")
	return cmd
}

func newATMCmd(app *App) *cobra.Command {
	var exchange string

	cmd := &cobra.Command{
		Use:   "atm <symbol>",
		Short: "Show the at-the-money strike for an underlying",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			exch, err := parseExchangeFlag(exchange)
			if err != nil {
				return err
			}

			quote, err := app.Feed.Quote(cmd.Context(), args[0], exch)
			if err != nil {
				return err
			}

			atmStrike := app.ATM.ATM(args[0], quote.LTP)
			interval, _ := app.Registry.StrikeInterval(args[0])

			if output.IsJSON() {
				return output.JSON(map[string]float64{
					"spot":     quote.LTP,
					"atm":      atmStrike,
					"interval": interval,
				})
			}

			output.Bold("%s", args[0])
			output.Printf("  Spot:     %.2f\n", quote.LTP)
			output.Printf("  ATM:      %.0f\n", atmStrike)
			output.Printf("  Interval: %.0f\n", interval)
			return nil
		},
	}

	cmd.Flags().StringVarP(&exchange, "exchange", "e", "NSE", "exchange (NSE, BSE)")
	return cmd
}

func newChainCmd(app *App) *cobra.Command {
	var exchange, expiry string
	var strikeRange int
	var monthly bool

	cmd := &cobra.Command{
		Use:   "chain <symbol>",
		Short: "Fetch and show the option chain around the ATM strike",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Store == nil {
				return apperrors.ErrStoreUnavailable
			}
			exch, err := parseExchangeFlag(exchange)
			if err != nil {
				return err
			}

			if expiry == "" {
				if monthly {
					expiry, err = app.Registry.MonthlyExpiry(cmd.Context(), args[0], exch)
				} else {
					expiry, err = app.Registry.NextExpiry(cmd.Context(), args[0], exch)
				}
				if err != nil {
					return err
				}
			}

			limiter := oi.NewLimiter(app.Config.Scheduler.RequestsPerSecond)
			fetcher := oi.NewFetcher(app.Feed, app.Store, app.ATM, limiter, app.Logger)

			spot, err := fetcher.FetchUnderlyingPrice(cmd.Context(), args[0], exch)
			if err != nil {
				return err
			}
			atmStrike := app.ATM.ATM(args[0], spot)

			chain, err := fetcher.FetchOptionChain(cmd.Context(), args[0], expiry, atmStrike, strikeRange, exch)
			if err != nil {
				return err
			}
			chain.SpotPrice = spot

			if output.IsJSON() {
				return output.JSON(chain)
			}
			renderChain(output, app, chain)
			return nil
		},
	}

	cmd.Flags().StringVarP(&exchange, "exchange", "e", "NSE", "exchange (NSE, BSE)")
	cmd.Flags().StringVarP(&expiry, "expiry", "x", "", "expiry (DD-MMM-YY, default nearest)")
	cmd.Flags().IntVarP(&strikeRange, "range", "r", 5, "strikes above/below ATM")
	cmd.Flags().BoolVarP(&monthly, "monthly", "m", false, "use the nearest monthly expiry")
	return cmd
}

func renderChain(output *Output, app *App, chain *models.OptionChain) {
	output.Bold("%s  %s  spot %.2f  ATM %.0f", chain.Underlying, chain.Expiry, chain.SpotPrice, chain.ATMStrike)
	output.Dim("fetched %d of %d contracts", chain.Fetched, chain.Attempted)

	strikes := make([]float64, 0, len(chain.CE)+len(chain.PE))
	seen := make(map[float64]bool)
	for s := range chain.CE {
		if !seen[s] {
			seen[s] = true
			strikes = append(strikes, s)
		}
	}
	for s := range chain.PE {
		if !seen[s] {
			seen[s] = true
			strikes = append(strikes, s)
		}
	}
	sort.Float64s(strikes)

	table := NewTable(output, "CE OI", "CE LTP", "STRIKE", "PE LTP", "PE OI")
	for _, strike := range strikes {
		ceOI, ceLTP, peOI, peLTP := "-", "-", "-", "-"
		if q, ok := chain.CE[strike]; ok {
			ceOI = fmt.Sprintf("%d", q.OI)
			ceLTP = fmt.Sprintf("%.2f", q.LTP)
		}
		if q, ok := chain.PE[strike]; ok {
			peOI = fmt.Sprintf("%d", q.OI)
			peLTP = fmt.Sprintf("%.2f", q.LTP)
		}
		strikeCell := fmt.Sprintf("%.0f", strike)
		if strike == chain.ATMStrike {
			strikeCell = output.Yellow(strikeCell + " *")
		}
		table.AddRow(ceOI, ceLTP, strikeCell, peLTP, peOI)
	}
	table.Render()
}

func newOIChangesCmd(app *App) *cobra.Command {
	var exchange, expiry string

	cmd := &cobra.Command{
		Use:   "oi <symbol>",
		Short: "Show day-over-day open interest changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Store == nil {
				return apperrors.ErrStoreUnavailable
			}
			exch, err := parseExchangeFlag(exchange)
			if err != nil {
				return err
			}

			if expiry == "" {
				expiry, err = app.Registry.NextExpiry(cmd.Context(), args[0], exch)
				if err != nil {
					return err
				}
			}

			limiter := oi.NewLimiter(app.Config.Scheduler.RequestsPerSecond)
			fetcher := oi.NewFetcher(app.Feed, app.Store, app.ATM, limiter, app.Logger)

			changes, err := fetcher.OIChanges(cmd.Context(), args[0], expiry, exch)
			if err != nil {
				return err
			}
			if len(changes) == 0 {
				output.Warning("No stored OI for %s %s", args[0], expiry)
				return nil
			}

			if output.IsJSON() {
				return output.JSON(changes)
			}

			keys := make([]models.OptionKey, 0, len(changes))
			for k := range changes {
				keys = append(keys, k)
			}
			sort.Slice(keys, func(i, j int) bool {
				if keys[i].Strike != keys[j].Strike {
					return keys[i].Strike < keys[j].Strike
				}
				return keys[i].Type < keys[j].Type
			})

			output.Bold("%s  %s", args[0], expiry)
			table := NewTable(output, "STRIKE", "TYPE", "OI", "PREV", "CHANGE", "CHANGE %")
			for _, k := range keys {
				c := changes[k]
				table.AddRow(
					fmt.Sprintf("%.0f", c.Strike),
					string(c.Type),
					fmt.Sprintf("%d", c.CurrentOI),
					fmt.Sprintf("%d", c.PreviousOI),
					output.FormatSigned(c.Change),
					output.FormatPercent(c.ChangePercent),
				)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().StringVarP(&exchange, "exchange", "e", "NSE", "exchange (NSE, BSE)")
	cmd.Flags().StringVarP(&expiry, "expiry", "x", "", "expiry (DD-MMM-YY, default nearest)")
	return cmd
}

func newMarketCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "market",
		Short: "Show market session status",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			open := utils.IsMarketOpen()
			if output.IsJSON() {
				output.JSON(map[string]bool{"open": open})
				return
			}
			output.Printf("Market: %s\n", output.MarketStatus(open))
			if !open {
				next := utils.NextMarketOpenAfter(time.Now())
				output.Dim("Next open: %s", next.Format("Mon 02 Jan 15:04 MST"))
			}
		},
	}
}
