package domain

// Urgency is the coarse replenishment tier of a product.
type Urgency string

const (
	UrgencyHigh   Urgency = "HIGH"
	UrgencyMedium Urgency = "MEDIUM"
	UrgencyLow    Urgency = "LOW"
)

var urgencySeverity = map[Urgency]int{
	UrgencyLow:    0,
	UrgencyMedium: 1,
	UrgencyHigh:   2,
}

// Severity orders tiers so that LOW < MEDIUM < HIGH. Unknown tiers return -1.
func (u Urgency) Severity() int {
	if s, ok := urgencySeverity[u]; ok {
		return s
	}

	return -1
}
