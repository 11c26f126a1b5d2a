package domain

import (
	"fmt"
	"math"
	"time"
)

// Blend weights applied to the seasonal and feature predictions.
const (
	SeasonalWeight = 0.7
	FeatureWeight  = 0.3
)

// FeatureRow is the latest cleaned sales row known for a product.
type FeatureRow struct {
	ProductID         string    `json:"product_id" db:"product_id"`
	Date              time.Time `json:"date" db:"date"`
	SalesQuantity     float64   `json:"sales_quantity" db:"sales_quantity"`
	StockLevel        float64   `json:"stock_level" db:"stock_level"`
	DayOfWeek         int       `json:"day_of_week" db:"day_of_week"`
	Month             int       `json:"month" db:"month"`
	Year              int       `json:"year" db:"year"`
	IsWeekend         int       `json:"is_weekend" db:"is_weekend"`
	Sales7dAvg        float64   `json:"sales_7d_avg" db:"sales_7d_avg"`
	StockToSalesRatio float64   `json:"stock_to_sales_ratio" db:"stock_to_sales_ratio"`
}

// CheckFinite rejects a row whose numeric features hold NaN or an infinity.
func (f FeatureRow) CheckFinite() error {
	values := []struct {
		col string
		v   float64
	}{
		{"sales_quantity", f.SalesQuantity},
		{"stock_level", f.StockLevel},
		{"sales_7d_avg", f.Sales7dAvg},
		{"stock_to_sales_ratio", f.StockToSalesRatio},
	}
	for _, c := range values {
		if math.IsNaN(c.v) || math.IsInf(c.v, 0) {
			return fmt.Errorf("product %s on %s: non-finite %s: %w",
				f.ProductID, f.Date.Format("2006-01-02"), c.col, ErrInvalidInput)
		}
	}
	return nil
}

// StockLevel is one row of the current-stock lookup.
type StockLevel struct {
	ProductID    string  `json:"product_id" db:"product_id"`
	CurrentStock float64 `json:"current_stock" db:"current_stock"`
}

// ForecastPoint is the blended estimate for one product and date.
// LowerBound and UpperBound come from the seasonal model only and are not
// guaranteed to bracket CombinedPrediction.
type ForecastPoint struct {
	Date               time.Time `json:"date"`
	SeasonalPrediction float64   `json:"seasonal_prediction"`
	FeaturePrediction  float64   `json:"feature_prediction"`
	CombinedPrediction float64   `json:"combined_prediction"`
	LowerBound         float64   `json:"lower_bound"`
	UpperBound         float64   `json:"upper_bound"`
}

// Blend returns the weighted combination of a seasonal and a feature prediction.
func Blend(seasonal, feature float64) float64 {
	return SeasonalWeight*seasonal + FeatureWeight*feature
}

// ForecastSequence is the chronological forecast of one product.
type ForecastSequence struct {
	ProductID     string          `json:"product_id"`
	LastKnownDate time.Time       `json:"last_known_date"`
	Points        []ForecastPoint `json:"points"`
}

// Len returns the number of forecast points.
func (s ForecastSequence) Len() int {
	return len(s.Points)
}

// ForecastSummary condenses a sequence into the prediction_summary row.
type ForecastSummary struct {
	ProductID            string  `json:"product_id"`
	AvgPredictedDemand   float64 `json:"avg_predicted_demand"`
	MinPredictedDemand   float64 `json:"min_predicted_demand"`
	MaxPredictedDemand   float64 `json:"max_predicted_demand"`
	PredictionConfidence float64 `json:"prediction_confidence"`
}

// Summarize computes the forecast summary of the sequence. An empty sequence
// yields zero values.
func (s ForecastSequence) Summarize() ForecastSummary {
	summary := ForecastSummary{ProductID: s.ProductID}
	if len(s.Points) == 0 {
		return summary
	}

	summary.MinPredictedDemand = math.Inf(1)
	summary.MaxPredictedDemand = math.Inf(-1)
	var total, width float64
	for _, p := range s.Points {
		total += p.CombinedPrediction
		width += p.UpperBound - p.LowerBound
		summary.MinPredictedDemand = math.Min(summary.MinPredictedDemand, p.CombinedPrediction)
		summary.MaxPredictedDemand = math.Max(summary.MaxPredictedDemand, p.CombinedPrediction)
	}
	n := float64(len(s.Points))
	summary.AvgPredictedDemand = total / n
	summary.PredictionConfidence = width / n

	return summary
}

// PredictionPoint is the API shape of a forecast point.
type PredictionPoint struct {
	Date            string  `json:"date"`
	PredictedDemand float64 `json:"predicted_demand"`
	LowerBound      float64 `json:"lower_bound"`
	UpperBound      float64 `json:"upper_bound"`
}

// ReorderAdvice is the replenishment decision for one product.
type ReorderAdvice struct {
	ProductID       string  `json:"product_id"`
	CurrentStock    float64 `json:"current_stock"`
	ReorderPoint    float64 `json:"reorder_point"`
	OrderQuantity   int     `json:"order_quantity"`
	AvgDailyDemand  float64 `json:"avg_daily_demand"`
	DaysOfStock     float64 `json:"days_of_stock"`
	Urgency         Urgency `json:"urgency"`
	ConfidenceWidth float64 `json:"confidence_width"`
	// NeedsOrder reports raw_gap > 0. It drives Advice and Reason and may
	// disagree with OrderQuantity, which is floored at the minimum order.
	NeedsOrder bool   `json:"needs_order"`
	Advice     string `json:"advice"`
	Reason     string `json:"reason"`
}

// QuickAdvice is the response of the fixed-policy single product entry point.
type QuickAdvice struct {
	ProductID     string  `json:"product_id"`
	Advice        string  `json:"advice"`
	OrderQuantity int     `json:"order_quantity"`
	ReorderPoint  int     `json:"reorder_point"`
	DaysOfStock   float64 `json:"days_of_stock"`
	Urgency       Urgency `json:"urgency"`
}
