package pipeline

import (
	"strconv"

	"github.com/andresuchdata/replenish/internal/domain"
)

func predictionTable(productID string, seq domain.ForecastSequence) Table {
	t := Table{
		Name: PredictionFileName(productID),
		Header: []string{
			"date", "seasonal_prediction", "feature_prediction",
			"combined_prediction", "lower_bound", "upper_bound",
		},
	}
	for _, p := range seq.Points {
		t.Rows = append(t.Rows, []string{
			p.Date.Format(reportDateLayout),
			formatFloat(p.SeasonalPrediction),
			formatFloat(p.FeaturePrediction),
			formatFloat(p.CombinedPrediction),
			formatFloat(p.LowerBound),
			formatFloat(p.UpperBound),
		})
	}
	return t
}

func predictionSummaryTable(r *BatchResult) Table {
	t := Table{
		Name: "prediction_summary.csv",
		Header: []string{
			"product_id", "avg_predicted_demand", "min_predicted_demand",
			"max_predicted_demand", "prediction_confidence",
		},
	}
	for _, s := range r.ForecastSummaries() {
		t.Rows = append(t.Rows, []string{
			s.ProductID,
			formatFloat(s.AvgPredictedDemand),
			formatFloat(s.MinPredictedDemand),
			formatFloat(s.MaxPredictedDemand),
			formatFloat(s.PredictionConfidence),
		})
	}
	return t
}

func adviceTable(r *BatchResult) Table {
	t := Table{
		Name: "inventory_advice.csv",
		Header: []string{
			"product_id", "current_stock", "reorder_point", "order_quantity",
			"days_of_stock", "urgency", "advice", "reason",
			"avg_daily_demand", "confidence_width",
		},
	}
	for _, a := range r.Advices {
		t.Rows = append(t.Rows, []string{
			a.ProductID,
			formatFloat(a.CurrentStock),
			strconv.Itoa(int(a.ReorderPoint)),
			strconv.Itoa(a.OrderQuantity),
			Round1(a.DaysOfStock),
			string(a.Urgency),
			a.Advice,
			a.Reason,
			Round1(a.AvgDailyDemand),
			Round1(a.ConfidenceWidth),
		})
	}
	return t
}

func adviceSummaryTable(r *BatchResult) Table {
	s := r.Summary
	return Table{
		Name: "inventory_advice_summary.csv",
		Header: []string{
			"total_products", "products_to_order", "high_urgency", "medium_urgency",
			"low_urgency", "total_order_quantity", "avg_days_of_stock",
			"infinite_days_of_stock", "skipped_products",
		},
		Rows: [][]string{{
			strconv.Itoa(s.TotalProducts),
			strconv.Itoa(s.ProductsToOrder),
			strconv.Itoa(s.HighUrgency),
			strconv.Itoa(s.MediumUrgency),
			strconv.Itoa(s.LowUrgency),
			strconv.Itoa(s.TotalOrderQuantity),
			Round1(s.AvgDaysOfStock),
			strconv.Itoa(s.InfiniteDaysOfStock),
			strconv.Itoa(s.SkippedProducts),
		}},
	}
}

func skippedTable(r *BatchResult) Table {
	t := Table{
		Name:   "skipped_products.csv",
		Header: []string{"product_id", "error_kind", "message"},
	}
	for _, s := range r.Skipped {
		t.Rows = append(t.Rows, []string{s.ProductID, s.Kind, s.Message})
	}
	return t
}
