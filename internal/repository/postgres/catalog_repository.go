package postgres

import (
	"context"
	"fmt"
)

// CatalogRepository lists the known products.
type CatalogRepository struct {
	pool DatabasePool
}

func NewCatalogRepository(pool DatabasePool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

// ListProductIDs returns every product id, sorted.
func (r *CatalogRepository) ListProductIDs(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM products ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// Exists reports whether productID is in the catalog.
func (r *CatalogRepository) Exists(ctx context.Context, productID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, productID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check product %s: %w", productID, err)
	}
	return exists, nil
}
