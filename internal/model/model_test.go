package model

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

const flatSeasonal = `{
  "product_id": "P001",
  "history_end": "2024-01-31",
  "trend": {"k": 0, "m": 10, "origin": "2024-01-01", "changepoints": []},
  "seasonalities": [],
  "interval": {"width": 0.8, "sigma": 1.5, "growth": 0}
}`

func TestSeasonalModelFlatTrend(t *testing.T) {
	m, err := ParseSeasonalModel([]byte(flatSeasonal))
	require.NoError(t, err)

	preds := m.Predict([]time.Time{day("2024-02-01"), day("2024-02-02")})
	require.Len(t, preds, 2)

	half := math.Sqrt2 * math.Erfinv(0.8) * 1.5
	for _, p := range preds {
		assert.InDelta(t, 10, p.Yhat, 1e-9)
		assert.InDelta(t, 10-half, p.Lower, 1e-9)
		assert.InDelta(t, 10+half, p.Upper, 1e-9)
	}
}

func TestSeasonalModelTrendChangepoint(t *testing.T) {
	m := &SeasonalModel{
		ProductID: "P001",
		Trend: Trend{
			K:      1,
			M:      0,
			Origin: Date{day("2024-01-01")},
			Changepoints: []Changepoint{
				{Date: Date{day("2024-01-11")}, Delta: -0.5},
			},
		},
		Interval: Interval{Width: 0.8},
	}

	preds := m.Predict([]time.Time{day("2024-01-06"), day("2024-01-21")})
	assert.InDelta(t, 5, preds[0].Yhat, 1e-9)
	// 20 days at slope 1, minus 10 days of the -0.5 delta
	assert.InDelta(t, 15, preds[1].Yhat, 1e-9)
}

func TestSeasonalModelWeeklyPeriodicity(t *testing.T) {
	m := &SeasonalModel{
		ProductID: "P001",
		Trend:     Trend{Origin: Date{day("2024-01-01")}, M: 20},
		Seasonalities: []Seasonality{
			{Name: "weekly", Period: 7, Coefficients: [][2]float64{{3, 1}, {0.5, -0.25}}},
		},
		Interval: Interval{Width: 0.8},
	}

	a := day("2024-03-04")
	preds := m.Predict([]time.Time{a, a.AddDate(0, 0, 7), a.AddDate(0, 0, 1)})
	assert.InDelta(t, preds[0].Yhat, preds[1].Yhat, 1e-9)
	assert.NotEqual(t, preds[0].Yhat, preds[2].Yhat)
}

func TestSeasonalModelIntervalGrowsWithHorizon(t *testing.T) {
	m, err := ParseSeasonalModel([]byte(flatSeasonal))
	require.NoError(t, err)
	m.Interval.Growth = 0.1

	preds := m.Predict([]time.Time{day("2024-02-01"), day("2024-02-10")})
	near := preds[0].Upper - preds[0].Lower
	far := preds[1].Upper - preds[1].Lower
	assert.Greater(t, far, near)
}

func TestParseSeasonalModelRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"malformed":      `{`,
		"missing id":     `{"trend":{"origin":"2024-01-01"},"interval":{"width":0.8}}`,
		"missing origin": `{"product_id":"P1","interval":{"width":0.8}}`,
		"bad width":      `{"product_id":"P1","trend":{"origin":"2024-01-01"},"interval":{"width":1.5}}`,
		"bad period":     `{"product_id":"P1","trend":{"origin":"2024-01-01"},"seasonalities":[{"name":"w","period":0}],"interval":{"width":0.8}}`,
		"bad date":       `{"product_id":"P1","trend":{"origin":"01/01/2024"},"interval":{"width":0.8}}`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseSeasonalModel([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestScalerTransform(t *testing.T) {
	s, err := ParseScaler([]byte(`{"mean":[1,1,1,1,1,1],"scale":[2,2,2,2,2,0]}`))
	require.NoError(t, err)

	out, err := s.Transform([][]float64{{3, 3, 3, 3, 3, 3}})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1, 1, 1, 1, 2}, out[0])

	_, err = s.Transform([][]float64{{1, 2}})
	assert.Error(t, err)
}

func TestParseScalerRejectsWrongWidth(t *testing.T) {
	_, err := ParseScaler([]byte(`{"mean":[0,0],"scale":[1,1]}`))
	assert.Error(t, err)

	_, err = ParseScaler([]byte(`{"features":["a","b","c","d","e","f"],"mean":[0,0,0,0,0,0],"scale":[1,1,1,1,1,1]}`))
	assert.Error(t, err)
}

func TestLinearRegressor(t *testing.T) {
	r, err := ParseRegressor([]byte(`{"kind":"linear","intercept":2,"coefficients":[1,0,0,0,0.5,0]}`))
	require.NoError(t, err)
	assert.Equal(t, KindLinear, r.Kind())

	out, err := r.Predict([][]float64{{1, 9, 9, 9, 4, 9}, {0, 0, 0, 0, 0, 0}})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{5, 2}, out, 1e-9)
}

func TestForestRegressorAveragesTrees(t *testing.T) {
	doc := `{
	  "kind": "forest",
	  "features": ["day_of_week","month","year","is_weekend","sales_7d_avg","stock_to_sales_ratio"],
	  "trees": [
	    {"nodes": [
	      {"feature": 3, "threshold": 0.5, "left": 1, "right": 2},
	      {"left": -1, "right": -1, "value": 10},
	      {"left": -1, "right": -1, "value": 20}
	    ]},
	    {"nodes": [{"left": -1, "right": -1, "value": 4}]}
	  ]
	}`
	r, err := ParseRegressor([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, KindForest, r.Kind())

	out, err := r.Predict([][]float64{
		{0, 0, 0, 0, 0, 0},
		{0, 0, 0, 1, 0, 0},
	})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{7, 12}, out, 1e-9)
}

func TestParseRegressorRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"unknown kind":       `{"kind":"svm"}`,
		"short coefficients": `{"kind":"linear","coefficients":[1,2]}`,
		"empty forest":       `{"kind":"forest","trees":[]}`,
		"backward child":     `{"kind":"forest","trees":[{"nodes":[{"feature":0,"left":0,"right":0}]}]}`,
		"feature range":      `{"kind":"forest","trees":[{"nodes":[{"feature":9,"left":1,"right":1},{"left":-1}]}]}`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseRegressor([]byte(doc))
			assert.Error(t, err)
		})
	}
}
