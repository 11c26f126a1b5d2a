package pipeline

import (
	"context"
	"time"

	"github.com/andresuchdata/replenish/internal/advisor"
	"github.com/andresuchdata/replenish/internal/domain"
)

// Forecaster produces the blended forecast of one product.
type Forecaster interface {
	Forecast(ctx context.Context, productID string, horizon int) (domain.ForecastSequence, error)
}

// StockLookup resolves the current stock of one product.
type StockLookup interface {
	Lookup(productID string) (float64, error)
}

// ResultSink persists a finished batch.
type ResultSink interface {
	Name() string
	Write(ctx context.Context, result *BatchResult) error
}

// RunRecorder tracks batch runs and their skipped products.
type RunRecorder interface {
	CreateRun(ctx context.Context, run *AdvisoryRun) error
	CompleteRun(ctx context.Context, run *AdvisoryRun) error
	RecordSkips(ctx context.Context, runID int64, skips []SkipRecord) error
}

// BatchConfig holds configuration for the orchestrator
type BatchConfig struct {
	Name        string
	WorkerCount int // Number of concurrent product workers
	Horizon     int // Default forecast horizon when a run does not set one
	Policy      advisor.Policy
}

// DefaultBatchConfig returns the stock replenishment defaults
func DefaultBatchConfig(name string) BatchConfig {
	policy := advisor.Policy{
		LeadTimeDays:     7,
		SafetyStockDays:  5,
		MinOrderQuantity: 5,
		MaxOrderQuantity: 200,
	}
	return BatchConfig{
		Name:        name,
		WorkerCount: 4,
		Horizon:     policy.Window() + 30,
		Policy:      policy,
	}
}

// RunStatus represents the current state of a batch run
type RunStatus string

const (
	StatusProcessing RunStatus = "processing"
	StatusCompleted  RunStatus = "completed"
	StatusFailed     RunStatus = "failed"
)

// AdvisoryRun tracks a single execution of the batch
type AdvisoryRun struct {
	ID              int64
	Name            string
	Status          RunStatus
	Horizon         int
	Policy          advisor.Policy
	TotalProducts   int
	AdvisedProducts int
	SkippedProducts int
	OrderProducts   int
	StartedAt       time.Time
	CompletedAt     *time.Time
	ErrorMessage    string
}

// SkipRecord explains why a product was left out of a batch.
type SkipRecord struct {
	ProductID string `json:"product_id"`
	Kind      string `json:"error_kind"`
	Message   string `json:"message"`
	Err       error  `json:"-"`
}

func newSkipRecord(productID string, err error) SkipRecord {
	return SkipRecord{
		ProductID: productID,
		Kind:      domain.ErrorKind(err),
		Message:   err.Error(),
		Err:       err,
	}
}

// ProductResult is the outcome of one product: either an advice with its
// forecast or the error that skipped it.
type ProductResult struct {
	ProductID string
	Forecast  domain.ForecastSequence
	Advice    domain.ReorderAdvice
	Err       error
}

func (r ProductResult) OK() bool { return r.Err == nil }

// BatchResult is everything a run produced. Forecasts and Advices share
// ordering and follow the input product order.
type BatchResult struct {
	RunID       int64
	Horizon     int
	Policy      advisor.Policy
	Forecasts   []domain.ForecastSequence
	Advices     []domain.ReorderAdvice
	Skipped     []SkipRecord
	Summary     domain.BatchSummary
	StartedAt   time.Time
	CompletedAt time.Time
}

// ForecastSummaries condenses every forecast of the batch.
func (r *BatchResult) ForecastSummaries() []domain.ForecastSummary {
	out := make([]domain.ForecastSummary, len(r.Forecasts))
	for i, f := range r.Forecasts {
		out[i] = f.Summarize()
	}
	return out
}
