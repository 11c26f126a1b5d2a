package advisor

import (
	"fmt"
	"math"

	"github.com/andresuchdata/replenish/internal/domain"
)

// Fixed policy of the single product advice endpoint.
const (
	QuickHorizonDays     = 30
	QuickLeadTimeDays    = 7
	QuickSafetyStockDays = 5
)

// Quick is the fixed-policy advice used by the API. The reorder point is the
// mean daily demand over the whole sequence times the lead plus safety days,
// truncated; the order quantity is the unclamped gap to it.
func Quick(seq domain.ForecastSequence, currentStock int) (domain.QuickAdvice, error) {
	if seq.Len() == 0 {
		return domain.QuickAdvice{}, fmt.Errorf("product %s: empty forecast: %w", seq.ProductID, domain.ErrInsufficientHorizon)
	}
	if currentStock < 0 {
		return domain.QuickAdvice{}, fmt.Errorf("current stock %d: %w", currentStock, domain.ErrInvalidInput)
	}
	if err := checkFinite(seq); err != nil {
		return domain.QuickAdvice{}, err
	}

	var total float64
	for _, pt := range seq.Points {
		total += pt.CombinedPrediction
	}
	dailyDemand := total / float64(seq.Len())

	daysOfStock := math.Inf(1)
	if dailyDemand > 0 {
		daysOfStock = float64(currentStock) / dailyDemand
	}

	reorderPoint := int(dailyDemand * float64(QuickLeadTimeDays+QuickSafetyStockDays))
	orderQty := reorderPoint - currentStock
	if orderQty < 0 {
		orderQty = 0
	}

	advice := "No immediate order needed"
	if orderQty > 0 {
		advice = fmt.Sprintf("Order %d units", orderQty)
	}

	return domain.QuickAdvice{
		ProductID:     seq.ProductID,
		Advice:        advice,
		OrderQuantity: orderQty,
		ReorderPoint:  reorderPoint,
		DaysOfStock:   daysOfStock,
		Urgency:       ClassifyUrgency(daysOfStock, QuickLeadTimeDays, QuickSafetyStockDays),
	}, nil
}
