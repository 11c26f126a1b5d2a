package domain

import "math"

// BatchSummary aggregates the successfully advised products of one run.
type BatchSummary struct {
	TotalProducts      int `json:"total_products"`
	ProductsToOrder    int `json:"products_to_order"`
	HighUrgency        int `json:"high_urgency"`
	MediumUrgency      int `json:"medium_urgency"`
	LowUrgency         int `json:"low_urgency"`
	TotalOrderQuantity int `json:"total_order_quantity"`
	// AvgDaysOfStock is the mean over finite days_of_stock only; it is 0 when
	// no product has a finite value.
	AvgDaysOfStock      float64 `json:"avg_days_of_stock"`
	InfiniteDaysOfStock int     `json:"infinite_days_of_stock"`
	SkippedProducts     int     `json:"skipped_products"`
}

// Summarize aggregates advices into a BatchSummary. skipped is reported as is.
func Summarize(advices []ReorderAdvice, skipped int) BatchSummary {
	summary := BatchSummary{
		TotalProducts:   len(advices),
		SkippedProducts: skipped,
	}

	var finiteTotal float64
	var finiteCount int
	for _, a := range advices {
		if a.OrderQuantity > 0 {
			summary.ProductsToOrder++
		}
		summary.TotalOrderQuantity += a.OrderQuantity

		switch a.Urgency {
		case UrgencyHigh:
			summary.HighUrgency++
		case UrgencyMedium:
			summary.MediumUrgency++
		case UrgencyLow:
			summary.LowUrgency++
		}

		if math.IsInf(a.DaysOfStock, 0) || math.IsNaN(a.DaysOfStock) {
			summary.InfiniteDaysOfStock++
			continue
		}
		finiteTotal += a.DaysOfStock
		finiteCount++
	}

	if finiteCount > 0 {
		summary.AvgDaysOfStock = finiteTotal / float64(finiteCount)
	}

	return summary
}
