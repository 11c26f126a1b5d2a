package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/andresuchdata/replenish/internal/pipeline"
)

// ErrRunNotFound is returned when no advisory run has the requested id.
var ErrRunNotFound = errors.New("advisory run not found")

// RunRepository tracks advisory batch runs and their skipped products.
type RunRepository struct {
	pool DatabasePool
}

// NewRunRepository creates a new run repository
func NewRunRepository(pool DatabasePool) *RunRepository {
	return &RunRepository{pool: pool}
}

var _ pipeline.RunRecorder = (*RunRepository)(nil)

// CreateRun inserts run and sets its ID
func (r *RunRepository) CreateRun(ctx context.Context, run *pipeline.AdvisoryRun) error {
	query := `
		INSERT INTO advisory_runs (
			name, status, horizon, lead_time_days, safety_stock_days,
			min_order_qty, max_order_qty, total_products, started_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`

	err := r.pool.QueryRow(
		ctx, query,
		run.Name, string(run.Status), run.Horizon,
		run.Policy.LeadTimeDays, run.Policy.SafetyStockDays,
		run.Policy.MinOrderQuantity, run.Policy.MaxOrderQuantity,
		run.TotalProducts, run.StartedAt,
	).Scan(&run.ID)
	if err != nil {
		return fmt.Errorf("create advisory run: %w", err)
	}
	return nil
}

// CompleteRun stores the final status and counters of run
func (r *RunRepository) CompleteRun(ctx context.Context, run *pipeline.AdvisoryRun) error {
	query := `
		UPDATE advisory_runs
		SET status = $1, advised_products = $2, skipped_products = $3,
		    order_products = $4, completed_at = $5, error_message = $6
		WHERE id = $7
	`

	tag, err := r.pool.Exec(
		ctx, query,
		string(run.Status), run.AdvisedProducts, run.SkippedProducts,
		run.OrderProducts, run.CompletedAt, run.ErrorMessage, run.ID,
	)
	if err != nil {
		return fmt.Errorf("complete advisory run %d: %w", run.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("advisory run %d: %w", run.ID, ErrRunNotFound)
	}
	return nil
}

// RecordSkips stores why products were left out of a run
func (r *RunRepository) RecordSkips(ctx context.Context, runID int64, skips []pipeline.SkipRecord) error {
	query := `
		INSERT INTO advisory_skips (run_id, product_id, error_kind, message)
		VALUES ($1, $2, $3, $4)
	`

	for _, s := range skips {
		if _, err := r.pool.Exec(ctx, query, runID, s.ProductID, s.Kind, s.Message); err != nil {
			return fmt.Errorf("record skip of %s: %w", s.ProductID, err)
		}
	}
	return nil
}

// GetRun retrieves a run by ID
func (r *RunRepository) GetRun(ctx context.Context, id int64) (*pipeline.AdvisoryRun, error) {
	query := `
		SELECT id, name, status, horizon, lead_time_days, safety_stock_days,
		       min_order_qty, max_order_qty, total_products, advised_products,
		       skipped_products, order_products, started_at, completed_at, error_message
		FROM advisory_runs
		WHERE id = $1
	`

	run := &pipeline.AdvisoryRun{}
	var status string
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&run.ID, &run.Name, &status, &run.Horizon,
		&run.Policy.LeadTimeDays, &run.Policy.SafetyStockDays,
		&run.Policy.MinOrderQuantity, &run.Policy.MaxOrderQuantity,
		&run.TotalProducts, &run.AdvisedProducts, &run.SkippedProducts,
		&run.OrderProducts, &run.StartedAt, &run.CompletedAt, &run.ErrorMessage,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("advisory run %d: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get advisory run %d: %w", id, err)
	}
	run.Status = pipeline.RunStatus(status)

	return run, nil
}

// ListSkips retrieves the skipped products of a run
func (r *RunRepository) ListSkips(ctx context.Context, runID int64) ([]pipeline.SkipRecord, error) {
	query := `
		SELECT product_id, error_kind, message
		FROM advisory_skips
		WHERE run_id = $1
		ORDER BY product_id
	`

	rows, err := r.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("list skips of run %d: %w", runID, err)
	}
	defer rows.Close()

	var skips []pipeline.SkipRecord
	for rows.Next() {
		var s pipeline.SkipRecord
		if err := rows.Scan(&s.ProductID, &s.Kind, &s.Message); err != nil {
			return nil, err
		}
		skips = append(skips, s)
	}

	return skips, rows.Err()
}
