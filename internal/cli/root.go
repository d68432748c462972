package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"optionflow/internal/atm"
	"optionflow/internal/config"
	"optionflow/internal/feed"
	"optionflow/internal/logging"
	"optionflow/internal/registry"
	"optionflow/internal/store"
)

// Version information
const (
	Version = "0.2.0"
)

// App holds the application dependencies.
type App struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Store    store.DataStore
	Feed     feed.Source
	Registry *registry.Registry
	ATM      *atm.Engine
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	client := feed.NewOpenAlgoClient(cfg.Feed.Host, cfg.Feed.APIKey, cfg.FeedTimeout())
	app.Feed = feed.NewBreaker(client, feed.DefaultBreakerConfig(), logger)
	app.Registry = registry.New(app.Feed, cfg.Symbols.Indices, cfg.Symbols.Stocks, logger)
	app.ATM = atm.NewEngine(app.Registry, logger)

	dataStore, err := store.NewSQLiteStore(cfg.Storage.Path)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize store, some features may be unavailable")
	} else {
		app.Store = dataStore
		logger.Debug().Str("path", cfg.Storage.Path).Msg("SQLite store initialized")
	}

	rootCmd := &cobra.Command{
		Use:   "optionflow",
		Short: "Market data engine for Indian F&O instruments",
		Long: `Optionflow aggregates tick data into OHLCV candles and tracks option
open interest around the at-the-money strike for NSE/BSE derivatives.

Use 'optionflow help <command>' for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/optionflow)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
	addCandleCommands(rootCmd, app)
	addDerivativesCommands(rootCmd, app)
	addServeCommand(rootCmd, app)

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"version": Version})
			} else {
				output.Printf("optionflow v%s\n", Version)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and manage application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			showConfig(output, app.Config)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"path": config.DefaultConfigDir()})
			} else {
				output.Println(config.DefaultConfigDir())
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration files",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				output.JSON(map[string]bool{"valid": true})
			} else {
				output.Success("Configuration is valid")
			}
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) {
	output.Bold("Storage")
	output.Printf("  Path:            %s\n", cfg.Storage.Path)
	output.Println()

	output.Bold("Feed")
	output.Printf("  Host:            %s\n", cfg.Feed.Host)
	output.Printf("  Timeout:         %ds\n", cfg.Feed.TimeoutSeconds)
	output.Println()

	output.Bold("Scheduler")
	output.Printf("  Rate Limit:      %.1f req/s\n", cfg.Scheduler.RequestsPerSecond)
	output.Printf("  Strike Range:    %d\n", cfg.Scheduler.StrikeRange)
	output.Printf("  Fetch Interval:  %ds\n", cfg.Scheduler.FetchIntervalSeconds)
	output.Println()

	output.Bold("Symbols")
	output.Printf("  Indices:         %d tracked\n", len(cfg.Symbols.Indices))
	output.Printf("  Stocks:          %d tracked\n", len(cfg.Symbols.Stocks))
}
