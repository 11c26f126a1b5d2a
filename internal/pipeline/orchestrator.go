package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/replenish/internal/advisor"
	"github.com/andresuchdata/replenish/internal/domain"
)

// Orchestrator runs the forecast and advice steps over a product catalog.
type Orchestrator struct {
	cfg   BatchConfig
	load  EnvironmentLoader
	runs  RunRecorder
	sinks MultiSink
}

type Option func(*Orchestrator)

// WithRunRecorder persists run and skip records.
func WithRunRecorder(r RunRecorder) Option {
	return func(o *Orchestrator) { o.runs = r }
}

// WithSinks adds result sinks, written in order after the batch computed.
// Every sink is written even when an earlier one fails.
func WithSinks(sinks ...ResultSink) Option {
	return func(o *Orchestrator) { o.sinks = append(o.sinks, sinks...) }
}

func NewOrchestrator(cfg BatchConfig, load EnvironmentLoader, opts ...Option) (*Orchestrator, error) {
	if load == nil {
		return nil, fmt.Errorf("orchestrator needs an environment loader")
	}
	if err := cfg.Policy.Validate(); err != nil {
		return nil, err
	}
	o := &Orchestrator{cfg: cfg, load: load}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// RunRequest selects products, horizon and policy for one run. Zero values
// fall back to the catalog and the configured defaults.
type RunRequest struct {
	ProductIDs []string
	Horizon    int
	Policy     *advisor.Policy
}

// Run executes one batch. Per-product failures are skipped and recorded;
// an environment load or sink failure fails the run.
func (o *Orchestrator) Run(ctx context.Context, req RunRequest) (*BatchResult, error) {
	policy := o.cfg.Policy
	if req.Policy != nil {
		policy = *req.Policy
	}
	adv, err := advisor.New(policy)
	if err != nil {
		return nil, err
	}

	horizon := req.Horizon
	if horizon == 0 {
		horizon = o.cfg.Horizon
	}
	if horizon < policy.Window() {
		return nil, fmt.Errorf("horizon %d shorter than reorder window %d: %w", horizon, policy.Window(), domain.ErrInsufficientHorizon)
	}

	run := &AdvisoryRun{
		Name:      o.cfg.Name,
		Status:    StatusProcessing,
		Horizon:   horizon,
		Policy:    policy,
		StartedAt: time.Now().UTC(),
	}
	if o.runs != nil {
		if err := o.runs.CreateRun(ctx, run); err != nil {
			return nil, fmt.Errorf("failed to create advisory run: %w", err)
		}
	}

	log.Info().
		Str("pipeline", o.cfg.Name).
		Int64("run_id", run.ID).
		Int("horizon", horizon).
		Msg("starting advisory batch")

	// 1. Shared state, loaded once before any product runs
	env, err := o.load(ctx)
	if err != nil {
		o.failRun(ctx, run, err)
		return nil, fmt.Errorf("load environment: %w", err)
	}

	productIDs := req.ProductIDs
	if len(productIDs) == 0 {
		productIDs = env.Catalog
	}
	productIDs = dedupe(productIDs)
	run.TotalProducts = len(productIDs)

	// 2. Products in parallel
	worker := NewWorker(env.Forecaster, adv, env.Stock, horizon)
	results, err := worker.processProductsParallel(ctx, productIDs, o.cfg.WorkerCount)
	if err != nil {
		o.failRun(ctx, run, err)
		return nil, err
	}

	// 3. Split into the advised subset and skips
	result := &BatchResult{
		RunID:     run.ID,
		Horizon:   horizon,
		Policy:    policy,
		StartedAt: run.StartedAt,
	}
	for _, r := range results {
		if !r.OK() {
			skip := newSkipRecord(r.ProductID, r.Err)
			log.Warn().
				Str("product_id", r.ProductID).
				Str("kind", skip.Kind).
				Err(r.Err).
				Msg("skipping product")
			result.Skipped = append(result.Skipped, skip)
			continue
		}
		result.Forecasts = append(result.Forecasts, r.Forecast)
		result.Advices = append(result.Advices, r.Advice)
	}
	result.Summary = domain.Summarize(result.Advices, len(result.Skipped))
	result.CompletedAt = time.Now().UTC()

	run.AdvisedProducts = result.Summary.TotalProducts
	run.SkippedProducts = result.Summary.SkippedProducts
	run.OrderProducts = result.Summary.ProductsToOrder

	// 4. Sinks
	if err := o.sinks.Write(ctx, result); err != nil {
		err = fmt.Errorf("write results: %w", err)
		o.failRun(ctx, run, err)
		return result, err
	}

	if o.runs != nil && len(result.Skipped) > 0 {
		if err := o.runs.RecordSkips(ctx, run.ID, result.Skipped); err != nil {
			log.Warn().Err(err).Int64("run_id", run.ID).Msg("failed to record skipped products")
		}
	}
	o.completeRun(ctx, run, StatusCompleted, "")

	s := result.Summary
	log.Info().
		Str("pipeline", o.cfg.Name).
		Int64("run_id", run.ID).
		Int("advised", s.TotalProducts).
		Int("skipped", s.SkippedProducts).
		Int("to_order", s.ProductsToOrder).
		Int("high", s.HighUrgency).
		Int("medium", s.MediumUrgency).
		Int("low", s.LowUrgency).
		Int("total_order_quantity", s.TotalOrderQuantity).
		Float64("avg_days_of_stock", s.AvgDaysOfStock).
		Dur("duration", result.CompletedAt.Sub(result.StartedAt)).
		Msg("advisory batch completed")

	return result, nil
}

func (o *Orchestrator) failRun(ctx context.Context, run *AdvisoryRun, err error) {
	log.Error().Err(err).Int64("run_id", run.ID).Msg("advisory batch failed")
	o.completeRun(ctx, run, StatusFailed, err.Error())
}

func (o *Orchestrator) completeRun(ctx context.Context, run *AdvisoryRun, status RunStatus, message string) {
	if o.runs == nil {
		return
	}
	now := time.Now().UTC()
	run.Status = status
	run.ErrorMessage = message
	run.CompletedAt = &now

	// record the outcome even when the batch context is already cancelled
	if errors.Is(ctx.Err(), context.Canceled) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
	}
	if err := o.runs.CompleteRun(ctx, run); err != nil {
		log.Warn().Err(err).Int64("run_id", run.ID).Msg("failed to complete advisory run")
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
