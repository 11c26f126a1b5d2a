package model

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

const dateLayout = "2006-01-02"

// Date is a calendar day serialized as YYYY-MM-DD.
type Date struct {
	time.Time
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return fmt.Errorf("parse date %q: %w", s, err)
	}
	d.Time = t
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Time.Format(dateLayout))
}

// Changepoint adds Delta to the trend slope from Date onward.
type Changepoint struct {
	Date  Date    `json:"date"`
	Delta float64 `json:"delta"`
}

// Trend is a piecewise-linear trend anchored at Origin.
type Trend struct {
	K            float64       `json:"k"`
	M            float64       `json:"m"`
	Origin       Date          `json:"origin"`
	Changepoints []Changepoint `json:"changepoints"`
}

// Seasonality is an additive Fourier series with Period in days.
// Coefficients[n] holds the (cos, sin) pair of order n+1.
type Seasonality struct {
	Name         string       `json:"name"`
	Period       float64      `json:"period"`
	Coefficients [][2]float64 `json:"coefficients"`
}

// Interval describes the uncertainty band around the point estimate.
type Interval struct {
	Width  float64 `json:"width"`
	Sigma  float64 `json:"sigma"`
	Growth float64 `json:"growth"`
}

// SeasonalModel is a fitted trend plus seasonality model for one product.
type SeasonalModel struct {
	ProductID     string        `json:"product_id"`
	HistoryEnd    Date          `json:"history_end"`
	Trend         Trend         `json:"trend"`
	Seasonalities []Seasonality `json:"seasonalities"`
	Interval      Interval      `json:"interval"`
}

// SeasonalPrediction is the model output for one date.
type SeasonalPrediction struct {
	Yhat  float64
	Lower float64
	Upper float64
}

// ParseSeasonalModel decodes and validates a seasonal model document.
func ParseSeasonalModel(data []byte) (*SeasonalModel, error) {
	var m SeasonalModel
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode seasonal model: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks the structural soundness of the model.
func (m *SeasonalModel) Validate() error {
	if m.ProductID == "" {
		return fmt.Errorf("seasonal model: missing product_id")
	}
	if m.Trend.Origin.IsZero() {
		return fmt.Errorf("seasonal model %s: missing trend origin", m.ProductID)
	}
	for _, s := range m.Seasonalities {
		if s.Period <= 0 {
			return fmt.Errorf("seasonal model %s: seasonality %q has non-positive period", m.ProductID, s.Name)
		}
	}
	if m.Interval.Width <= 0 || m.Interval.Width >= 1 {
		return fmt.Errorf("seasonal model %s: interval width %v outside (0, 1)", m.ProductID, m.Interval.Width)
	}
	if m.Interval.Sigma < 0 || m.Interval.Growth < 0 {
		return fmt.Errorf("seasonal model %s: negative interval parameters", m.ProductID)
	}
	return nil
}

// Predict evaluates the model over the whole date vector.
func (m *SeasonalModel) Predict(dates []time.Time) []SeasonalPrediction {
	out := make([]SeasonalPrediction, len(dates))
	z := math.Sqrt2 * math.Erfinv(m.Interval.Width)

	for i, d := range dates {
		yhat := m.trendAt(d) + m.seasonalAt(d)

		h := daysBetween(m.HistoryEnd.Time, d)
		if h < 0 || m.HistoryEnd.IsZero() {
			h = 0
		}
		half := z * m.Interval.Sigma * (1 + m.Interval.Growth*h)

		out[i] = SeasonalPrediction{Yhat: yhat, Lower: yhat - half, Upper: yhat + half}
	}
	return out
}

func (m *SeasonalModel) trendAt(d time.Time) float64 {
	t := daysBetween(m.Trend.Origin.Time, d)
	y := m.Trend.K*t + m.Trend.M
	for _, cp := range m.Trend.Changepoints {
		tc := daysBetween(m.Trend.Origin.Time, cp.Date.Time)
		if t >= tc {
			y += cp.Delta * (t - tc)
		}
	}
	return y
}

func (m *SeasonalModel) seasonalAt(d time.Time) float64 {
	t := float64(d.Unix()) / 86400
	var y float64
	for _, s := range m.Seasonalities {
		for n, c := range s.Coefficients {
			x := 2 * math.Pi * float64(n+1) * t / s.Period
			y += c[0]*math.Cos(x) + c[1]*math.Sin(x)
		}
	}
	return y
}

func daysBetween(from, to time.Time) float64 {
	return to.Sub(from).Hours() / 24
}
