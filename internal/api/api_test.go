package api

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/replenish/internal/advisor"
	"github.com/andresuchdata/replenish/internal/domain"
	"github.com/andresuchdata/replenish/internal/model"
	"github.com/andresuchdata/replenish/internal/modelstore"
	"github.com/andresuchdata/replenish/internal/pipeline"
	"github.com/andresuchdata/replenish/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeAdvisory struct {
	predictDays int
	batchReq    service.BatchRequest
	err         error
}

func (f *fakeAdvisory) Predict(_ context.Context, productID string, daysAhead int) ([]domain.PredictionPoint, error) {
	f.predictDays = daysAhead
	if f.err != nil {
		return nil, f.err
	}
	return []domain.PredictionPoint{
		{Date: "2024-04-01", PredictedDemand: 10.5, LowerBound: 8, UpperBound: 13},
		{Date: "2024-04-02", PredictedDemand: 11, LowerBound: 8.5, UpperBound: 13.5},
	}, nil
}

func (f *fakeAdvisory) Advise(_ context.Context, productID string, currentStock int) (domain.QuickAdvice, error) {
	if f.err != nil {
		return domain.QuickAdvice{}, f.err
	}
	if currentStock == 0 {
		return domain.QuickAdvice{ProductID: productID, Advice: "No immediate order needed", DaysOfStock: math.Inf(1), Urgency: domain.UrgencyLow}, nil
	}
	return domain.QuickAdvice{
		ProductID: productID, Advice: "Order 70 units", OrderQuantity: 70,
		ReorderPoint: 120, DaysOfStock: float64(currentStock) / 16, Urgency: domain.UrgencyHigh,
	}, nil
}

func (f *fakeAdvisory) RunBatch(_ context.Context, req service.BatchRequest) (*pipeline.BatchResult, error) {
	f.batchReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &pipeline.BatchResult{
		RunID:   4,
		Horizon: 42,
		Policy:  advisor.Policy{LeadTimeDays: 7, SafetyStockDays: 5, MinOrderQuantity: 5, MaxOrderQuantity: 200},
		Advices: []domain.ReorderAdvice{
			{ProductID: "P001", DaysOfStock: 3.14159, AvgDailyDemand: 9.96, Urgency: domain.UrgencyHigh, OrderQuantity: 80, NeedsOrder: true},
			{ProductID: "P002", DaysOfStock: math.Inf(1), Urgency: domain.UrgencyLow, OrderQuantity: 5},
		},
		Skipped: []pipeline.SkipRecord{{ProductID: "P003", Kind: "stock_missing", Message: "product P003: current stock missing"}},
		Summary: domain.BatchSummary{TotalProducts: 2, ProductsToOrder: 2, InfiniteDaysOfStock: 1, SkippedProducts: 1, AvgDaysOfStock: 3.14159},
	}, nil
}

func doJSON(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestPredictDemand(t *testing.T) {
	fake := &fakeAdvisory{}
	router := NewRouter(&Services{Advisory: fake}, nil)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/predictions/demand", `{"product_id":"P001"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 30, fake.predictDays)

	var body struct {
		ProductID   string                   `json:"product_id"`
		Predictions []domain.PredictionPoint `json:"predictions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "P001", body.ProductID)
	require.Len(t, body.Predictions, 2)
	assert.Equal(t, "2024-04-01", body.Predictions[0].Date)

	doJSON(t, router, http.MethodPost, "/api/v1/predictions/demand", `{"product_id":"P001","days_ahead":7}`)
	assert.Equal(t, 7, fake.predictDays)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("product P9: %w", domain.ErrProductNotFound), http.StatusNotFound},
		{fmt.Errorf("product P9: %w", domain.ErrModelNotFound), http.StatusNotFound},
		{fmt.Errorf("product P9: %w", domain.ErrSnapshotMissing), http.StatusNotFound},
		{fmt.Errorf("days ahead -1: %w", domain.ErrInvalidInput), http.StatusBadRequest},
		{fmt.Errorf("feature model: %w", domain.ErrArtifactLoad), http.StatusInternalServerError},
		{fmt.Errorf("redis down"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			router := NewRouter(&Services{Advisory: &fakeAdvisory{err: tt.err}}, nil)
			rec := doJSON(t, router, http.MethodPost, "/api/v1/predictions/demand", `{"product_id":"P9"}`)
			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusInternalServerError {
				assert.NotContains(t, rec.Body.String(), tt.err.Error())
			}
		})
	}
}

func TestInventoryAdvice(t *testing.T) {
	router := NewRouter(&Services{Advisory: &fakeAdvisory{}}, nil)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/predictions/advice", `{"product_id":"P001","current_stock":50}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Order 70 units", body["advice"])
	assert.Equal(t, float64(120), body["reorder_point"])
	assert.Equal(t, "HIGH", body["urgency"])
	// 50 / 16 = 3.125
	assert.Equal(t, 3.1, body["days_of_stock"])

	rec = doJSON(t, router, http.MethodPost, "/api/v1/predictions/advice", `{"product_id":"P001","current_stock":79}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 4.9, body["days_of_stock"])

	// Infinite days of stock render as null.
	rec = doJSON(t, router, http.MethodPost, "/api/v1/predictions/advice", `{"product_id":"P001","current_stock":0}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Nil(t, body["days_of_stock"])

	rec = doJSON(t, router, http.MethodPost, "/api/v1/predictions/advice", `{"product_id":"P001"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRunBatch(t *testing.T) {
	fake := &fakeAdvisory{}
	router := NewRouter(&Services{Advisory: fake}, nil)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/advice/batch",
		`{"product_ids":["P001","P002","P003"],"horizon":42,"policy":{"lead_time_days":7,"safety_stock_days":5,"min_order_quantity":5,"max_order_quantity":200}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"P001", "P002", "P003"}, fake.batchReq.ProductIDs)
	require.NotNil(t, fake.batchReq.Policy)
	assert.Equal(t, 200, fake.batchReq.Policy.MaxOrderQuantity)

	var body struct {
		RunID   int64 `json:"run_id"`
		Advices []struct {
			ProductID   string   `json:"product_id"`
			DaysOfStock *float64 `json:"days_of_stock"`
		} `json:"advices"`
		Skipped []pipeline.SkipRecord `json:"skipped"`
		Summary domain.BatchSummary   `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, int64(4), body.RunID)
	require.Len(t, body.Advices, 2)
	require.NotNil(t, body.Advices[0].DaysOfStock)
	assert.Equal(t, 3.1, *body.Advices[0].DaysOfStock)
	assert.Nil(t, body.Advices[1].DaysOfStock)
	require.Len(t, body.Skipped, 1)
	assert.Equal(t, "stock_missing", body.Skipped[0].Kind)
	assert.Equal(t, 1, body.Summary.InfiniteDaysOfStock)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/advice/batch", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, fake.batchReq.Policy)
}

func TestRunBatchDisabled(t *testing.T) {
	router := NewRouter(&Services{Advisory: &fakeAdvisory{err: service.ErrBatchDisabled}}, nil)
	rec := doJSON(t, router, http.MethodPost, "/api/v1/advice/batch", `{}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHealthAndModelRoutes(t *testing.T) {
	store, err := modelstore.NewStore(
		map[string]*model.SeasonalModel{"P001": {
			ProductID: "P001",
			Trend:     model.Trend{M: 5, Origin: model.Date{Time: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}},
			Interval:  model.Interval{Width: 0.8, Sigma: 1},
		}},
		&model.LinearRegressor{Coefficients: make([]float64, model.FeatureCount)},
		&model.StandardScaler{Mean: make([]float64, model.FeatureCount), Scale: make([]float64, model.FeatureCount)},
	)
	require.NoError(t, err)
	router := NewRouter(&Services{Models: modelstore.NewStaticRegistry(store)}, nil)

	rec := doJSON(t, router, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"models":1`)

	rec = doJSON(t, router, http.MethodGet, "/admin/models", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "P001")

	empty := NewRouter(&Services{Models: modelstore.NewRegistry(nil)}, nil)
	rec = doJSON(t, empty, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestNormalizeAllowedOrigins(t *testing.T) {
	origins, allowAll := normalizeAllowedOrigins([]string{"https://a.example, https://b.example", " "})
	assert.False(t, allowAll)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, origins)

	_, allowAll = normalizeAllowedOrigins([]string{"*"})
	assert.True(t, allowAll)
}
