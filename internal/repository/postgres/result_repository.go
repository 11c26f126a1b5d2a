package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/andresuchdata/replenish/internal/pipeline"
)

// ResultRepository persists batch forecasts and advice. Writes go through
// sqlx named statements inside one transaction per run.
type ResultRepository struct {
	db *DB
}

func NewResultRepository(db *DB) *ResultRepository {
	return &ResultRepository{db: db}
}

var _ pipeline.ResultSink = (*ResultRepository)(nil)

func (r *ResultRepository) Name() string { return "postgres" }

type forecastPointRow struct {
	RunID              int64     `db:"run_id"`
	ProductID          string    `db:"product_id"`
	Date               time.Time `db:"date"`
	SeasonalPrediction float64   `db:"seasonal_prediction"`
	FeaturePrediction  float64   `db:"feature_prediction"`
	CombinedPrediction float64   `db:"combined_prediction"`
	LowerBound         float64   `db:"lower_bound"`
	UpperBound         float64   `db:"upper_bound"`
}

type adviceRow struct {
	RunID           int64           `db:"run_id"`
	ProductID       string          `db:"product_id"`
	CurrentStock    float64         `db:"current_stock"`
	ReorderPoint    float64         `db:"reorder_point"`
	OrderQuantity   int             `db:"order_quantity"`
	AvgDailyDemand  float64         `db:"avg_daily_demand"`
	DaysOfStock     sql.NullFloat64 `db:"days_of_stock"`
	Urgency         string          `db:"urgency"`
	ConfidenceWidth float64         `db:"confidence_width"`
	NeedsOrder      bool            `db:"needs_order"`
	Advice          string          `db:"advice"`
	Reason          string          `db:"reason"`
}

type summaryRow struct {
	RunID               int64   `db:"run_id"`
	TotalProducts       int     `db:"total_products"`
	ProductsToOrder     int     `db:"products_to_order"`
	HighUrgency         int     `db:"high_urgency"`
	MediumUrgency       int     `db:"medium_urgency"`
	LowUrgency          int     `db:"low_urgency"`
	TotalOrderQuantity  int     `db:"total_order_quantity"`
	AvgDaysOfStock      float64 `db:"avg_days_of_stock"`
	InfiniteDaysOfStock int     `db:"infinite_days_of_stock"`
	SkippedProducts     int     `db:"skipped_products"`
}

const (
	insertForecastPoints = `
		INSERT INTO forecast_points (
			run_id, product_id, date, seasonal_prediction, feature_prediction,
			combined_prediction, lower_bound, upper_bound
		) VALUES (
			:run_id, :product_id, :date, :seasonal_prediction, :feature_prediction,
			:combined_prediction, :lower_bound, :upper_bound
		)`

	insertAdvice = `
		INSERT INTO inventory_advice (
			run_id, product_id, current_stock, reorder_point, order_quantity,
			avg_daily_demand, days_of_stock, urgency, confidence_width,
			needs_order, advice, reason
		) VALUES (
			:run_id, :product_id, :current_stock, :reorder_point, :order_quantity,
			:avg_daily_demand, :days_of_stock, :urgency, :confidence_width,
			:needs_order, :advice, :reason
		)`

	insertSummary = `
		INSERT INTO inventory_advice_summary (
			run_id, total_products, products_to_order, high_urgency, medium_urgency,
			low_urgency, total_order_quantity, avg_days_of_stock,
			infinite_days_of_stock, skipped_products
		) VALUES (
			:run_id, :total_products, :products_to_order, :high_urgency, :medium_urgency,
			:low_urgency, :total_order_quantity, :avg_days_of_stock,
			:infinite_days_of_stock, :skipped_products
		)`
)

// Write implements pipeline.ResultSink. Results without a run id have nothing
// to key on and are rejected.
func (r *ResultRepository) Write(ctx context.Context, result *pipeline.BatchResult) error {
	if result.RunID == 0 {
		return fmt.Errorf("postgres sink: batch result has no run id")
	}

	points := forecastRows(result)
	advices := adviceRows(result)
	summary := summaryRowOf(result)

	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if len(points) > 0 {
			if _, err := tx.NamedExecContext(ctx, insertForecastPoints, points); err != nil {
				return fmt.Errorf("insert forecast points: %w", err)
			}
		}
		if len(advices) > 0 {
			if _, err := tx.NamedExecContext(ctx, insertAdvice, advices); err != nil {
				return fmt.Errorf("insert advice: %w", err)
			}
		}
		if _, err := tx.NamedExecContext(ctx, insertSummary, summary); err != nil {
			return fmt.Errorf("insert advice summary: %w", err)
		}
		return nil
	})
}

func forecastRows(result *pipeline.BatchResult) []forecastPointRow {
	var rows []forecastPointRow
	for _, seq := range result.Forecasts {
		for _, p := range seq.Points {
			rows = append(rows, forecastPointRow{
				RunID:              result.RunID,
				ProductID:          seq.ProductID,
				Date:               p.Date,
				SeasonalPrediction: p.SeasonalPrediction,
				FeaturePrediction:  p.FeaturePrediction,
				CombinedPrediction: p.CombinedPrediction,
				LowerBound:         p.LowerBound,
				UpperBound:         p.UpperBound,
			})
		}
	}
	return rows
}

// adviceRows stores an infinite days_of_stock as NULL.
func adviceRows(result *pipeline.BatchResult) []adviceRow {
	rows := make([]adviceRow, 0, len(result.Advices))
	for _, a := range result.Advices {
		days := sql.NullFloat64{Float64: a.DaysOfStock, Valid: true}
		if math.IsInf(a.DaysOfStock, 0) || math.IsNaN(a.DaysOfStock) {
			days = sql.NullFloat64{}
		}
		rows = append(rows, adviceRow{
			RunID:           result.RunID,
			ProductID:       a.ProductID,
			CurrentStock:    a.CurrentStock,
			ReorderPoint:    a.ReorderPoint,
			OrderQuantity:   a.OrderQuantity,
			AvgDailyDemand:  a.AvgDailyDemand,
			DaysOfStock:     days,
			Urgency:         string(a.Urgency),
			ConfidenceWidth: a.ConfidenceWidth,
			NeedsOrder:      a.NeedsOrder,
			Advice:          a.Advice,
			Reason:          a.Reason,
		})
	}
	return rows
}

func summaryRowOf(result *pipeline.BatchResult) summaryRow {
	s := result.Summary
	return summaryRow{
		RunID:               result.RunID,
		TotalProducts:       s.TotalProducts,
		ProductsToOrder:     s.ProductsToOrder,
		HighUrgency:         s.HighUrgency,
		MediumUrgency:       s.MediumUrgency,
		LowUrgency:          s.LowUrgency,
		TotalOrderQuantity:  s.TotalOrderQuantity,
		AvgDaysOfStock:      s.AvgDaysOfStock,
		InfiniteDaysOfStock: s.InfiniteDaysOfStock,
		SkippedProducts:     s.SkippedProducts,
	}
}
