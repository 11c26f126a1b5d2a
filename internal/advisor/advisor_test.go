package advisor

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/replenish/internal/domain"
)

var defaultPolicy = Policy{
	LeadTimeDays:     7,
	SafetyStockDays:  5,
	MinOrderQuantity: 5,
	MaxOrderQuantity: 200,
}

func flatSequence(n int, combined, lower, upper float64) domain.ForecastSequence {
	start := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	points := make([]domain.ForecastPoint, n)
	for i := range points {
		points[i] = domain.ForecastPoint{
			Date:               start.AddDate(0, 0, i),
			SeasonalPrediction: combined,
			FeaturePrediction:  combined,
			CombinedPrediction: combined,
			LowerBound:         lower,
			UpperBound:         upper,
		}
	}
	return domain.ForecastSequence{ProductID: "P001", LastKnownDate: start.AddDate(0, 0, -1), Points: points}
}

func newAdvisor(t *testing.T, p Policy) *Advisor {
	t.Helper()
	a, err := New(p)
	require.NoError(t, err)
	return a
}

func TestAdviseOrderNeeded(t *testing.T) {
	a := newAdvisor(t, defaultPolicy)

	advice, err := a.Advise(flatSequence(12, 10, 8, 12), 50)
	require.NoError(t, err)

	assert.InDelta(t, 122, advice.ReorderPoint, 1e-9)
	assert.Equal(t, 72, advice.OrderQuantity)
	assert.InDelta(t, 10, advice.AvgDailyDemand, 1e-9)
	assert.InDelta(t, 5.0, advice.DaysOfStock, 1e-9)
	assert.InDelta(t, 4, advice.ConfidenceWidth, 1e-9)
	assert.Equal(t, domain.UrgencyHigh, advice.Urgency)
	assert.True(t, advice.NeedsOrder)
	assert.Equal(t, "Order 72 units of P001", advice.Advice)
	assert.Equal(t, "Current stock (50) is below reorder point (122)", advice.Reason)
}

func TestAdviseNoOrderStillReportsFloor(t *testing.T) {
	a := newAdvisor(t, defaultPolicy)

	advice, err := a.Advise(flatSequence(12, 10, 8, 12), 200)
	require.NoError(t, err)

	// raw gap is zero but the clamp floor still applies
	assert.False(t, advice.NeedsOrder)
	assert.Equal(t, 5, advice.OrderQuantity)
	assert.InDelta(t, 20.0, advice.DaysOfStock, 1e-9)
	assert.Equal(t, domain.UrgencyLow, advice.Urgency)
	assert.Equal(t, "No immediate order needed for P001", advice.Advice)
	assert.Equal(t, "Current stock (200) is sufficient", advice.Reason)
}

func TestAdviseUsesOnlyWindowForReorderPoint(t *testing.T) {
	a := newAdvisor(t, defaultPolicy)
	seq := flatSequence(42, 10, 8, 12)
	for i := 12; i < 42; i++ {
		seq.Points[i].CombinedPrediction = 1000
		seq.Points[i].UpperBound = 1000
	}

	advice, err := a.Advise(seq, 50)
	require.NoError(t, err)
	assert.InDelta(t, 122, advice.ReorderPoint, 1e-9)
	// averages still span the whole sequence
	assert.InDelta(t, (12*10+30*1000)/42.0, advice.AvgDailyDemand, 1e-9)
}

func TestAdviseClampsToMaximum(t *testing.T) {
	a := newAdvisor(t, defaultPolicy)

	advice, err := a.Advise(flatSequence(12, 100, 90, 110), 0)
	require.NoError(t, err)
	assert.True(t, advice.NeedsOrder)
	assert.Equal(t, 200, advice.OrderQuantity)
	assert.Equal(t, "Order 200 units of P001", advice.Advice)
}

func TestAdviseClampsSmallGapToMinimum(t *testing.T) {
	a := newAdvisor(t, defaultPolicy)

	// reorder point 122, stock 120 -> gap 2 -> floor 5
	advice, err := a.Advise(flatSequence(12, 10, 8, 12), 120)
	require.NoError(t, err)
	assert.True(t, advice.NeedsOrder)
	assert.Equal(t, 5, advice.OrderQuantity)
}

func TestAdviseOrderQuantityBounds(t *testing.T) {
	a := newAdvisor(t, defaultPolicy)

	for _, stock := range []float64{0, 1, 10, 60, 119.5, 121, 122, 150, 500} {
		for _, demand := range []float64{0, 0.4, 3, 10, 55} {
			advice, err := a.Advise(flatSequence(20, demand, demand-1, demand+1), stock)
			require.NoError(t, err)
			if advice.NeedsOrder {
				assert.GreaterOrEqual(t, advice.OrderQuantity, defaultPolicy.MinOrderQuantity)
				assert.LessOrEqual(t, advice.OrderQuantity, defaultPolicy.MaxOrderQuantity)
			} else {
				assert.Equal(t, defaultPolicy.MinOrderQuantity, advice.OrderQuantity)
			}
		}
	}
}

func TestAdviseZeroDemandIsInfiniteCoverage(t *testing.T) {
	a := newAdvisor(t, defaultPolicy)

	advice, err := a.Advise(flatSequence(12, 0, 0, 0), 30)
	require.NoError(t, err)
	assert.True(t, math.IsInf(advice.DaysOfStock, 1))
	assert.Equal(t, domain.UrgencyLow, advice.Urgency)
	assert.False(t, advice.NeedsOrder)

	advice, err = a.Advise(flatSequence(12, 0, 0, 0), 0)
	require.NoError(t, err)
	assert.True(t, math.IsInf(advice.DaysOfStock, 1))
}

func TestAdviseNegativeMeanDemandIsInfiniteCoverage(t *testing.T) {
	a := newAdvisor(t, defaultPolicy)

	advice, err := a.Advise(flatSequence(12, -2, -3, -1), 10)
	require.NoError(t, err)
	assert.True(t, math.IsInf(advice.DaysOfStock, 1))
}

func TestAdviseNearZeroDemand(t *testing.T) {
	a := newAdvisor(t, defaultPolicy)

	advice, err := a.Advise(flatSequence(12, 1e-300, 0, 0), 10)
	require.NoError(t, err)
	assert.False(t, math.IsNaN(advice.DaysOfStock))
}

func TestAdviseInsufficientHorizon(t *testing.T) {
	a := newAdvisor(t, defaultPolicy)

	_, err := a.Advise(flatSequence(11, 10, 8, 12), 50)
	assert.True(t, errors.Is(err, domain.ErrInsufficientHorizon))
}

func TestAdviseRejectsInvalidStock(t *testing.T) {
	a := newAdvisor(t, defaultPolicy)

	for _, stock := range []float64{-1, math.NaN(), math.Inf(1)} {
		_, err := a.Advise(flatSequence(12, 10, 8, 12), stock)
		assert.True(t, errors.Is(err, domain.ErrInvalidInput))
	}
}

func TestAdviseRejectsNonFiniteForecast(t *testing.T) {
	a := newAdvisor(t, defaultPolicy)

	cases := []struct {
		name   string
		day    int
		mutate func(*domain.ForecastPoint)
	}{
		{name: "nan combined", day: 3, mutate: func(p *domain.ForecastPoint) { p.CombinedPrediction = math.NaN() }},
		{name: "inf upper bound", day: 3, mutate: func(p *domain.ForecastPoint) { p.UpperBound = math.Inf(1) }},
		{name: "negative inf lower bound", day: 0, mutate: func(p *domain.ForecastPoint) { p.LowerBound = math.Inf(-1) }},
		{name: "nan beyond window", day: 15, mutate: func(p *domain.ForecastPoint) { p.CombinedPrediction = math.NaN() }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			seq := flatSequence(20, 10, 8, 12)
			tc.mutate(&seq.Points[tc.day])

			_, err := a.Advise(seq, 50)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrInvalidInput))
			assert.Contains(t, err.Error(), seq.Points[tc.day].Date.Format("2006-01-02"))

			_, err = Quick(seq, 50)
			assert.True(t, errors.Is(err, domain.ErrInvalidInput))
		})
	}
}

func TestPolicyValidate(t *testing.T) {
	cases := map[string]Policy{
		"negative lead":   {LeadTimeDays: -1, SafetyStockDays: 5, MinOrderQuantity: 0, MaxOrderQuantity: 1},
		"empty window":    {MinOrderQuantity: 0, MaxOrderQuantity: 1},
		"negative min":    {LeadTimeDays: 7, MinOrderQuantity: -1, MaxOrderQuantity: 1},
		"max below min":   {LeadTimeDays: 7, MinOrderQuantity: 10, MaxOrderQuantity: 5},
		"negative safety": {LeadTimeDays: 7, SafetyStockDays: -1, MaxOrderQuantity: 5},
	}
	for name, p := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := New(p)
			assert.True(t, errors.Is(err, domain.ErrInvalidInput))
		})
	}

	assert.NoError(t, defaultPolicy.Validate())
	assert.Equal(t, 12, defaultPolicy.Window())
}

func TestUrgencyIsMonotonic(t *testing.T) {
	prev := -1
	for days := 30.0; days >= -1; days -= 0.25 {
		s := ClassifyUrgency(days, 7, 5).Severity()
		assert.GreaterOrEqual(t, s, prev, "days=%v", days)
		prev = s
	}
	assert.Equal(t, domain.UrgencyLow, ClassifyUrgency(math.Inf(1), 7, 5))
	assert.Equal(t, domain.UrgencyMedium, ClassifyUrgency(7, 7, 5))
	assert.Equal(t, domain.UrgencyLow, ClassifyUrgency(12, 7, 5))
}

func TestQuickAdvice(t *testing.T) {
	cases := []struct {
		name     string
		demand   float64
		stock    int
		rop      int
		order    int
		urgency  domain.Urgency
		advice   string
		infinite bool
	}{
		{name: "order", demand: 10.9, stock: 50, rop: 130, order: 80, urgency: domain.UrgencyHigh, advice: "Order 80 units"},
		{name: "medium", demand: 10, stock: 100, rop: 120, order: 20, urgency: domain.UrgencyMedium, advice: "Order 20 units"},
		{name: "sufficient", demand: 10, stock: 300, rop: 120, order: 0, urgency: domain.UrgencyLow, advice: "No immediate order needed"},
		{name: "zero demand", demand: 0, stock: 5, rop: 0, order: 0, urgency: domain.UrgencyLow, advice: "No immediate order needed", infinite: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q, err := Quick(flatSequence(QuickHorizonDays, tc.demand, 0, 0), tc.stock)
			require.NoError(t, err)
			assert.Equal(t, tc.rop, q.ReorderPoint)
			assert.Equal(t, tc.order, q.OrderQuantity)
			assert.Equal(t, tc.urgency, q.Urgency)
			assert.Equal(t, tc.advice, q.Advice)
			assert.Equal(t, tc.infinite, math.IsInf(q.DaysOfStock, 1))
		})
	}
}

func TestQuickAdviceRejectsEmptyForecast(t *testing.T) {
	_, err := Quick(domain.ForecastSequence{ProductID: "P001"}, 10)
	assert.True(t, errors.Is(err, domain.ErrInsufficientHorizon))

	_, err = Quick(flatSequence(5, 1, 0, 0), -3)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}
