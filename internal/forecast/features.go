package forecast

import (
	"time"

	"github.com/andresuchdata/replenish/internal/domain"
)

// FutureDates returns horizon consecutive days starting the day after last.
func FutureDates(last time.Time, horizon int) []time.Time {
	y, m, d := last.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	dates := make([]time.Time, horizon)
	for i := range dates {
		dates[i] = start.AddDate(0, 0, i+1)
	}
	return dates
}

// DayOfWeek numbers days from Monday = 0.
func DayOfWeek(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// FeatureMatrix builds one raw feature row per date. Calendar fields follow
// the date; the rolling average and the stock ratio stay at the snapshot's
// last observed values.
func FeatureMatrix(snap domain.FeatureRow, dates []time.Time) [][]float64 {
	rows := make([][]float64, len(dates))
	for i, d := range dates {
		dow := DayOfWeek(d)
		weekend := 0.0
		if dow >= 5 {
			weekend = 1
		}
		rows[i] = []float64{
			float64(dow),
			float64(d.Month()),
			float64(d.Year()),
			weekend,
			snap.Sales7dAvg,
			snap.StockToSalesRatio,
		}
	}
	return rows
}
