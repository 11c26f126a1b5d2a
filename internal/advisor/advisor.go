package advisor

import (
	"fmt"
	"math"
	"strconv"

	"github.com/andresuchdata/replenish/internal/domain"
)

// Advisor turns a forecast sequence and a stock level into a reorder decision.
type Advisor struct {
	policy Policy
}

func New(policy Policy) (*Advisor, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return &Advisor{policy: policy}, nil
}

func (a *Advisor) Policy() Policy { return a.policy }

// Advise computes the reorder decision for one product.
//
// The clamp floor applies even when no order is needed, so OrderQuantity can
// equal MinOrderQuantity while Advice says no order is needed. Both follow
// the policy as configured; callers that act on the numbers should check
// NeedsOrder.
func (a *Advisor) Advise(seq domain.ForecastSequence, currentStock float64) (domain.ReorderAdvice, error) {
	p := a.policy
	window := p.Window()

	if math.IsNaN(currentStock) || math.IsInf(currentStock, 0) || currentStock < 0 {
		return domain.ReorderAdvice{}, fmt.Errorf("current stock %v: %w", currentStock, domain.ErrInvalidInput)
	}
	if seq.Len() < window {
		return domain.ReorderAdvice{}, fmt.Errorf("product %s: %d points for window %d: %w",
			seq.ProductID, seq.Len(), window, domain.ErrInsufficientHorizon)
	}
	if err := checkFinite(seq); err != nil {
		return domain.ReorderAdvice{}, err
	}

	// 1. Demand and mean interval width over the reorder window
	var leadTimeDemand, widthSum float64
	for _, pt := range seq.Points[:window] {
		leadTimeDemand += pt.CombinedPrediction
		widthSum += pt.UpperBound - pt.LowerBound
	}
	uncertainty := widthSum / float64(window)

	// 2. Reorder point with the uncertainty buffer
	reorderPoint := leadTimeDemand + UncertaintyWeight*uncertainty

	// 3. Order quantity, clamped to [min, max]
	rawGap := math.Max(0, reorderPoint-currentStock)
	clamped := math.Min(float64(p.MaxOrderQuantity), math.Max(float64(p.MinOrderQuantity), rawGap))
	orderQty := int(math.RoundToEven(clamped))

	// 4. Coverage over the whole sequence
	var total, totalWidth float64
	for _, pt := range seq.Points {
		total += pt.CombinedPrediction
		totalWidth += pt.UpperBound - pt.LowerBound
	}
	n := float64(seq.Len())
	avgDemand := total / n

	daysOfStock := math.Inf(1)
	if avgDemand > 0 {
		daysOfStock = currentStock / avgDemand
	}

	advice := domain.ReorderAdvice{
		ProductID:       seq.ProductID,
		CurrentStock:    currentStock,
		ReorderPoint:    reorderPoint,
		OrderQuantity:   orderQty,
		AvgDailyDemand:  avgDemand,
		DaysOfStock:     daysOfStock,
		Urgency:         ClassifyUrgency(daysOfStock, p.LeadTimeDays, p.SafetyStockDays),
		ConfidenceWidth: totalWidth / n,
		NeedsOrder:      rawGap > 0,
	}

	// 5. Text follows the raw gap, not the clamped quantity
	stock := strconv.FormatFloat(currentStock, 'f', -1, 64)
	if advice.NeedsOrder {
		advice.Advice = fmt.Sprintf("Order %d units of %s", orderQty, seq.ProductID)
		advice.Reason = fmt.Sprintf("Current stock (%s) is below reorder point (%d)", stock, int(reorderPoint))
	} else {
		advice.Advice = fmt.Sprintf("No immediate order needed for %s", seq.ProductID)
		advice.Reason = fmt.Sprintf("Current stock (%s) is sufficient", stock)
	}

	return advice, nil
}

// checkFinite rejects a sequence holding a NaN or infinite prediction or bound.
func checkFinite(seq domain.ForecastSequence) error {
	for _, pt := range seq.Points {
		for _, v := range [...]float64{pt.CombinedPrediction, pt.LowerBound, pt.UpperBound} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("product %s: non-finite forecast on %s: %w",
					seq.ProductID, pt.Date.Format("2006-01-02"), domain.ErrInvalidInput)
			}
		}
	}
	return nil
}
