package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/replenish/internal/app"
	"github.com/andresuchdata/replenish/internal/config"
	"github.com/andresuchdata/replenish/pkg/logger"
)

type appKey struct{}

func newLogLevelFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "log-level",
		Usage:   "Log level (debug, info, warn, error)",
		EnvVars: []string{"LOG_LEVEL"},
	}
}

func newLogFormatFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:  "log-format",
		Usage: "Log format (console or json)",
		Value: "console",
	}
}

// initApp loads configuration and stores the wired application in the
// command context.
func initApp(c *cli.Context) error {
	cfg := config.Load()

	if c.String("log-format") == "json" {
		logger.Use(logger.New(os.Stderr, "json"))
	}
	level := cfg.LogLevel
	if c.IsSet("log-level") {
		level = c.String("log-level")
	}
	logger.SetLevel(level)

	applyOverrides(c, cfg)

	application, err := app.New(c.Context, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	c.Context = context.WithValue(c.Context, appKey{}, application)
	return nil
}

func closeApp(c *cli.Context) error {
	if application, ok := c.Context.Value(appKey{}).(*app.App); ok && application != nil {
		application.Close()
	}
	return nil
}

func appFrom(c *cli.Context) *app.App {
	return c.Context.Value(appKey{}).(*app.App)
}

// applyOverrides copies explicitly set flags over the environment config.
func applyOverrides(c *cli.Context, cfg *config.Config) {
	if c.IsSet("output-dir") {
		cfg.Pipeline.OutputDir = c.String("output-dir")
	}
	if c.IsSet("xlsx") {
		cfg.Pipeline.XLSXEnabled = c.Bool("xlsx")
	}
	if c.IsSet("workers") {
		cfg.Pipeline.WorkerCount = c.Int("workers")
	}
	if c.IsSet("sales-key") {
		cfg.Forecast.SalesKey = c.String("sales-key")
	}
	if c.IsSet("stock-key") {
		cfg.Forecast.StockKey = c.String("stock-key")
	}
	if c.IsSet("derive-stock") && c.Bool("derive-stock") {
		cfg.Forecast.StockKey = ""
	}
	if c.IsSet("model-prefix") {
		cfg.Forecast.ModelPrefix = c.String("model-prefix")
	}
}

func main() {
	cliApp := &cli.App{
		Name:  "advisor",
		Usage: "Forecast demand and produce reorder advice",
		Flags: []cli.Flag{
			newLogLevelFlag(),
			newLogFormatFlag(),
			&cli.StringFlag{
				Name:    "model-prefix",
				Usage:   "Storage prefix of the model artifacts",
				EnvVars: []string{"FORECAST_MODEL_PREFIX"},
			},
			&cli.StringFlag{
				Name:    "sales-key",
				Usage:   "Storage key of the cleaned sales table (csv or xlsx)",
				EnvVars: []string{"FORECAST_SALES_KEY"},
			},
			&cli.StringFlag{
				Name:    "stock-key",
				Usage:   "Storage key of the current stock table",
				EnvVars: []string{"FORECAST_STOCK_KEY"},
			},
		},
		Commands: []*cli.Command{
			batchCommand(),
			predictCommand(),
			adviseCommand(),
			currentStockCommand(),
			importSalesCommand(),
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		logger.Log.Error().Err(err).Msg("advisor failed")
		os.Exit(1)
	}
}
