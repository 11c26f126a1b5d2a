package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/replenish/internal/advisor"
	"github.com/andresuchdata/replenish/internal/pipeline"
	"github.com/andresuchdata/replenish/internal/service"
	"github.com/andresuchdata/replenish/internal/snapshot"
	"github.com/andresuchdata/replenish/pkg/logger"
)

func batchCommand() *cli.Command {
	return &cli.Command{
		Name:  "batch",
		Usage: "Forecast every product and write inventory advice",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:  "product",
				Usage: "Product id to include (repeatable); defaults to the whole catalog",
			},
			&cli.IntFlag{
				Name:    "horizon",
				Usage:   "Forecast horizon in days; must cover lead time plus safety stock",
				EnvVars: []string{"FORECAST_BATCH_HORIZON"},
			},
			&cli.IntFlag{Name: "lead-time", Usage: "Lead time in days", EnvVars: []string{"ADVISOR_LEAD_TIME_DAYS"}},
			&cli.IntFlag{Name: "safety-stock", Usage: "Safety stock in days", EnvVars: []string{"ADVISOR_SAFETY_STOCK_DAYS"}},
			&cli.IntFlag{Name: "min-order", Usage: "Minimum order quantity", EnvVars: []string{"ADVISOR_MIN_ORDER_QUANTITY"}},
			&cli.IntFlag{Name: "max-order", Usage: "Maximum order quantity", EnvVars: []string{"ADVISOR_MAX_ORDER_QUANTITY"}},
			&cli.StringFlag{
				Name:    "output-dir",
				Usage:   "Directory for the CSV outputs",
				EnvVars: []string{"PIPELINE_OUTPUT_DIR"},
			},
			&cli.BoolFlag{
				Name:    "xlsx",
				Usage:   "Also write an XLSX workbook into the output directory",
				EnvVars: []string{"PIPELINE_XLSX_ENABLED"},
			},
			&cli.IntFlag{
				Name:    "workers",
				Usage:   "Concurrent product workers",
				EnvVars: []string{"PIPELINE_WORKER_COUNT"},
			},
			&cli.BoolFlag{
				Name:  "derive-stock",
				Usage: "Use each product's latest stock_level instead of the current stock table",
			},
		},
		Before: initApp,
		After:  closeApp,
		Action: runBatch,
	}
}

func runBatch(c *cli.Context) error {
	a := appFrom(c)

	policy := a.Config.Advisor
	if c.IsSet("lead-time") {
		policy.LeadTimeDays = c.Int("lead-time")
	}
	if c.IsSet("safety-stock") {
		policy.SafetyStockDays = c.Int("safety-stock")
	}
	if c.IsSet("min-order") {
		policy.MinOrderQuantity = c.Int("min-order")
	}
	if c.IsSet("max-order") {
		policy.MaxOrderQuantity = c.Int("max-order")
	}

	orch, err := a.Orchestrator("cli")
	if err != nil {
		return err
	}

	result, err := orch.Run(c.Context, pipeline.RunRequest{
		ProductIDs: c.StringSlice("product"),
		Horizon:    c.Int("horizon"),
		Policy:     &policy,
	})
	if result != nil {
		printSummary(result)
	}
	return err
}

func printSummary(result *pipeline.BatchResult) {
	s := result.Summary
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Products advised\t%d\n", s.TotalProducts)
	fmt.Fprintf(w, "Products skipped\t%d\n", s.SkippedProducts)
	fmt.Fprintf(w, "Products to order\t%d\n", s.ProductsToOrder)
	fmt.Fprintf(w, "Urgency HIGH/MEDIUM/LOW\t%d/%d/%d\n", s.HighUrgency, s.MediumUrgency, s.LowUrgency)
	fmt.Fprintf(w, "Total order quantity\t%d\n", s.TotalOrderQuantity)
	fmt.Fprintf(w, "Avg days of stock\t%s (%d infinite)\n", pipeline.Round1(s.AvgDaysOfStock), s.InfiniteDaysOfStock)
	w.Flush()
}

func predictCommand() *cli.Command {
	return &cli.Command{
		Name:  "predict",
		Usage: "Print the demand forecast of one product as JSON",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "product", Usage: "Product id", Required: true},
			&cli.IntFlag{
				Name:    "days",
				Usage:   "Days ahead",
				Value:   advisor.QuickHorizonDays,
				EnvVars: []string{"FORECAST_PREDICT_HORIZON"},
			},
		},
		Before: initApp,
		After:  closeApp,
		Action: func(c *cli.Context) error {
			svc, err := advisoryService(c)
			if err != nil {
				return err
			}
			points, err := svc.Predict(c.Context, c.String("product"), c.Int("days"))
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(points)
		},
	}
}

func adviseCommand() *cli.Command {
	return &cli.Command{
		Name:  "advise",
		Usage: "Print the fixed policy reorder advice of one product",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "product", Usage: "Product id", Required: true},
			&cli.IntFlag{Name: "stock", Usage: "Current stock", Required: true},
		},
		Before: initApp,
		After:  closeApp,
		Action: func(c *cli.Context) error {
			svc, err := advisoryService(c)
			if err != nil {
				return err
			}
			advice, err := svc.Advise(c.Context, c.String("product"), c.Int("stock"))
			if err != nil {
				return err
			}

			days := "inf"
			if !math.IsInf(advice.DaysOfStock, 0) {
				days = pipeline.Round1(advice.DaysOfStock)
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "Product\t%s\n", advice.ProductID)
			fmt.Fprintf(w, "Advice\t%s\n", advice.Advice)
			fmt.Fprintf(w, "Order quantity\t%d\n", advice.OrderQuantity)
			fmt.Fprintf(w, "Reorder point\t%d\n", advice.ReorderPoint)
			fmt.Fprintf(w, "Days of stock\t%s\n", days)
			fmt.Fprintf(w, "Urgency\t%s\n", advice.Urgency)
			return w.Flush()
		},
	}
}

func advisoryService(c *cli.Context) (*service.AdvisoryService, error) {
	a := appFrom(c)
	if err := a.LoadModels(c.Context); err != nil {
		return nil, err
	}
	return a.AdvisoryService(nil), nil
}

func currentStockCommand() *cli.Command {
	return &cli.Command{
		Name:  "current-stock",
		Usage: "Derive the current stock table from each product's latest stock level",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "output",
				Usage: "Storage key to write; defaults to the configured stock key",
			},
		},
		Before: initApp,
		After:  closeApp,
		Action: func(c *cli.Context) error {
			a := appFrom(c)
			snap, err := a.Snapshots.ReadSnapshot(c.Context)
			if err != nil {
				return err
			}
			table := snapshot.DeriveCurrentStock(snap)

			if repo := a.StockWriter(); repo != nil {
				if err := repo.UpsertCurrentStock(c.Context, table.Levels()); err != nil {
					return err
				}
				logger.Log.Info().Int("products", len(table)).Msg("current stock written to database")
				return nil
			}

			key := c.String("output")
			if key == "" {
				key = a.Config.Forecast.StockKey
			}
			if key == "" {
				return fmt.Errorf("no stock key configured; pass --output")
			}
			var buf bytes.Buffer
			if err := snapshot.WriteCurrentStock(&buf, table); err != nil {
				return err
			}
			if err := a.Objects.UploadObject(c.Context, key, buf.Bytes()); err != nil {
				return err
			}
			logger.Log.Info().Int("products", len(table)).Str("key", key).Msg("current stock written")
			return nil
		},
	}
}

func importSalesCommand() *cli.Command {
	return &cli.Command{
		Name:  "import-sales",
		Usage: "Load the cleaned sales table from storage into postgres",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "truncate", Usage: "Empty sales_history before loading", Value: true},
		},
		Before: initApp,
		After:  closeApp,
		Action: func(c *cli.Context) error {
			a := appFrom(c)
			repo := a.SalesImporter()
			if repo == nil {
				return fmt.Errorf("import-sales needs DB_ENABLED=true")
			}

			source := &snapshot.StorageSource{Objects: a.Objects, SalesKey: a.Config.Forecast.SalesKey}
			rows, err := source.ReadSalesRows(c.Context)
			if err != nil {
				return err
			}
			if c.Bool("truncate") {
				if err := repo.Truncate(c.Context); err != nil {
					return err
				}
			}
			n, err := repo.Import(c.Context, rows)
			if err != nil {
				return err
			}
			logger.Log.Info().Int64("rows", n).Str("key", a.Config.Forecast.SalesKey).Msg("sales history imported")
			return nil
		},
	}
}
