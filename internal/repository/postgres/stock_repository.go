package postgres

import (
	"context"
	"fmt"
	"math"

	"github.com/andresuchdata/replenish/internal/domain"
	"github.com/andresuchdata/replenish/internal/snapshot"
)

// StockRepository reads and writes the current_stock table.
type StockRepository struct {
	pool DatabasePool
}

func NewStockRepository(pool DatabasePool) *StockRepository {
	return &StockRepository{pool: pool}
}

var _ snapshot.StockReader = (*StockRepository)(nil)

// ReadCurrentStock implements snapshot.StockReader
func (r *StockRepository) ReadCurrentStock(ctx context.Context) (snapshot.StockTable, error) {
	rows, err := r.pool.Query(ctx, `SELECT product_id, current_stock FROM current_stock`)
	if err != nil {
		return nil, fmt.Errorf("query current stock: %w", err)
	}
	defer rows.Close()

	table := make(snapshot.StockTable)
	for rows.Next() {
		var id string
		var stock float64
		if err := rows.Scan(&id, &stock); err != nil {
			return nil, fmt.Errorf("scan current stock: %w", err)
		}
		if math.IsNaN(stock) || math.IsInf(stock, 0) {
			return nil, fmt.Errorf("current stock of %s: %w", id, domain.ErrInvalidInput)
		}
		table[id] = stock
	}

	return table, rows.Err()
}

// UpsertCurrentStock writes levels, replacing existing rows of the same product
func (r *StockRepository) UpsertCurrentStock(ctx context.Context, levels []domain.StockLevel) error {
	query := `
		INSERT INTO current_stock (product_id, current_stock, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (product_id)
		DO UPDATE SET current_stock = EXCLUDED.current_stock, updated_at = NOW()
	`

	for _, l := range levels {
		if _, err := r.pool.Exec(ctx, query, l.ProductID, l.CurrentStock); err != nil {
			return fmt.Errorf("upsert stock of %s: %w", l.ProductID, err)
		}
	}
	return nil
}
