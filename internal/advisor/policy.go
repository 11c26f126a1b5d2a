package advisor

import (
	"fmt"

	"github.com/andresuchdata/replenish/internal/domain"
)

// UncertaintyWeight is the share of the mean seasonal interval width added to
// the lead time demand.
const UncertaintyWeight = 0.5

// Policy holds the replenishment parameters. There are no implicit defaults.
type Policy struct {
	LeadTimeDays     int `json:"lead_time_days"`
	SafetyStockDays  int `json:"safety_stock_days"`
	MinOrderQuantity int `json:"min_order_quantity"`
	MaxOrderQuantity int `json:"max_order_quantity"`
}

// Window is the number of forecast days the reorder point covers.
func (p Policy) Window() int {
	return p.LeadTimeDays + p.SafetyStockDays
}

func (p Policy) Validate() error {
	switch {
	case p.LeadTimeDays < 0 || p.SafetyStockDays < 0:
		return fmt.Errorf("lead time and safety stock days must be non-negative: %w", domain.ErrInvalidInput)
	case p.Window() < 1:
		return fmt.Errorf("reorder window must cover at least one day: %w", domain.ErrInvalidInput)
	case p.MinOrderQuantity < 0:
		return fmt.Errorf("min order quantity must be non-negative: %w", domain.ErrInvalidInput)
	case p.MaxOrderQuantity < p.MinOrderQuantity:
		return fmt.Errorf("max order quantity %d below min %d: %w", p.MaxOrderQuantity, p.MinOrderQuantity, domain.ErrInvalidInput)
	}
	return nil
}

// ClassifyUrgency maps days of stock onto a tier; the first matching rule wins.
func ClassifyUrgency(daysOfStock float64, leadTimeDays, safetyStockDays int) domain.Urgency {
	switch {
	case daysOfStock < float64(leadTimeDays):
		return domain.UrgencyHigh
	case daysOfStock < float64(leadTimeDays+safetyStockDays):
		return domain.UrgencyMedium
	default:
		return domain.UrgencyLow
	}
}
