package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/andresuchdata/replenish/internal/domain"
)

var salesHistoryColumns = []string{
	"product_id", "date", "sales_quantity", "stock_level", "day_of_week", "month",
	"year", "is_weekend", "sales_7d_avg", "stock_to_sales_ratio",
}

// SalesRepository bulk loads the cleaned sales table.
type SalesRepository struct {
	pool DatabasePool
}

func NewSalesRepository(pool DatabasePool) *SalesRepository {
	return &SalesRepository{pool: pool}
}

// Import copies rows into sales_history and registers unseen products in the
// catalog. Existing dates of the same product must be removed first with
// Truncate; COPY does not upsert.
func (r *SalesRepository) Import(ctx context.Context, rows []domain.FeatureRow) (int64, error) {
	n, err := r.pool.CopyFrom(ctx, pgx.Identifier{"sales_history"}, salesHistoryColumns,
		pgx.CopyFromSlice(len(rows), func(i int) ([]interface{}, error) {
			f := rows[i]
			return []interface{}{
				f.ProductID, f.Date, f.SalesQuantity, f.StockLevel, f.DayOfWeek,
				f.Month, f.Year, f.IsWeekend, f.Sales7dAvg, f.StockToSalesRatio,
			}, nil
		}))
	if err != nil {
		return 0, fmt.Errorf("copy sales history: %w", err)
	}

	if _, err := r.pool.Exec(ctx, `
		INSERT INTO products (id)
		SELECT DISTINCT product_id FROM sales_history
		ON CONFLICT (id) DO NOTHING
	`); err != nil {
		return n, fmt.Errorf("register products: %w", err)
	}
	return n, nil
}

// Truncate empties sales_history.
func (r *SalesRepository) Truncate(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, `TRUNCATE sales_history`); err != nil {
		return fmt.Errorf("truncate sales history: %w", err)
	}
	return nil
}
