package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/replenish/internal/advisor"
)

// Worker runs the forecast and advice steps for single products.
type Worker struct {
	forecaster Forecaster
	advisor    *advisor.Advisor
	stock      StockLookup
	horizon    int
}

func NewWorker(forecaster Forecaster, adv *advisor.Advisor, stock StockLookup, horizon int) *Worker {
	return &Worker{
		forecaster: forecaster,
		advisor:    adv,
		stock:      stock,
		horizon:    horizon,
	}
}

// ProcessProduct never panics on a bad product; every failure ends up in
// the returned result.
func (w *Worker) ProcessProduct(ctx context.Context, productID string) ProductResult {
	result := ProductResult{ProductID: productID}

	currentStock, err := w.stock.Lookup(productID)
	if err != nil {
		result.Err = err
		return result
	}

	seq, err := w.forecaster.Forecast(ctx, productID, w.horizon)
	if err != nil {
		result.Err = fmt.Errorf("forecast: %w", err)
		return result
	}

	advice, err := w.advisor.Advise(seq, currentStock)
	if err != nil {
		result.Err = fmt.Errorf("advise: %w", err)
		return result
	}

	result.Forecast = seq
	result.Advice = advice
	return result
}

// processProductsParallel fans products out over a worker pool. Results are
// written by index, so the output order matches productIDs.
func (w *Worker) processProductsParallel(ctx context.Context, productIDs []string, workerCount int) ([]ProductResult, error) {
	if workerCount < 1 {
		workerCount = 1
	}

	results := make([]ProductResult, len(productIDs))
	jobChan := make(chan int, len(productIDs))
	var wg sync.WaitGroup

	// Start workers
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for idx := range jobChan {
				if ctx.Err() != nil {
					results[idx] = ProductResult{ProductID: productIDs[idx], Err: ctx.Err()}
					continue
				}
				results[idx] = w.ProcessProduct(ctx, productIDs[idx])
				if err := results[idx].Err; err != nil {
					log.Debug().Int("worker", workerID).Str("product_id", productIDs[idx]).Err(err).Msg("product failed")
				}
			}
		}(i)
	}

	// Enqueue jobs
	for idx := range productIDs {
		jobChan <- idx
	}
	close(jobChan)

	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
