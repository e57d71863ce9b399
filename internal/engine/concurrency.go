package engine

import (
	"context"
	"sync"

	"githubledger/ledger-adapt/internal/logging"
	"githubledger/ledger-adapt/internal/models"
)

// concurrencyThreshold is the batch size below which the per-row phase runs
// sequentially; pool startup costs more than it saves on small batches.
const concurrencyThreshold = 100

// processRows runs the per-row phase over the batch and returns each row's
// provisionals indexed by row position, so output order never depends on
// worker scheduling.
func (e *Engine) processRows(ctx context.Context, rows []models.RawRow, b *batch) [][]provisional {
	results := make([][]provisional, len(rows))

	if len(rows) < concurrencyThreshold || e.workers <= 1 {
		for i, row := range rows {
			results[i] = e.processRow(ctx, row, b)
		}
		return results
	}

	e.logger.WithFields(
		logging.Field{Key: "rows", Value: len(rows)},
		logging.Field{Key: "workers", Value: e.workers},
	).Debug("Processing batch concurrently")

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < e.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = e.processRow(ctx, rows[i], b)
			}
		}()
	}

	for i := range rows {
		select {
		case jobs <- i:
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return results
		}
	}
	close(jobs)
	wg.Wait()
	return results
}
