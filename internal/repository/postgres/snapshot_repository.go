package postgres

import (
	"context"
	"fmt"

	"github.com/andresuchdata/replenish/internal/domain"
	"github.com/andresuchdata/replenish/internal/snapshot"
)

// SnapshotRepository reads the latest cleaned sales row of every product.
type SnapshotRepository struct {
	pool DatabasePool
}

func NewSnapshotRepository(pool DatabasePool) *SnapshotRepository {
	return &SnapshotRepository{pool: pool}
}

var _ snapshot.Reader = (*SnapshotRepository)(nil)

const latestSalesQuery = `
	SELECT DISTINCT ON (product_id)
	       product_id, date, sales_quantity, stock_level, day_of_week, month,
	       year, is_weekend, sales_7d_avg, stock_to_sales_ratio
	FROM sales_history
	ORDER BY product_id, date DESC
`

// ReadSnapshot implements snapshot.Reader
func (r *SnapshotRepository) ReadSnapshot(ctx context.Context) (*snapshot.Snapshot, error) {
	rows, err := r.pool.Query(ctx, latestSalesQuery)
	if err != nil {
		return nil, fmt.Errorf("query latest sales: %w", err)
	}
	defer rows.Close()

	var out []domain.FeatureRow
	for rows.Next() {
		var f domain.FeatureRow
		if err := rows.Scan(
			&f.ProductID, &f.Date, &f.SalesQuantity, &f.StockLevel, &f.DayOfWeek,
			&f.Month, &f.Year, &f.IsWeekend, &f.Sales7dAvg, &f.StockToSalesRatio,
		); err != nil {
			return nil, fmt.Errorf("scan sales row: %w", err)
		}
		if err := f.CheckFinite(); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return snapshot.New(out), nil
}
