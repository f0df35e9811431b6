package engine

import (
	"context"
	"sync"
	"time"

	"github.com/astrodl/ffibulk/internal/domain"
)

// Run drives every item to a terminal state with up to workers items in
// flight. Items are independent, so neither dispatch nor completion order
// matters; the collector just counts terminal results.
func (e *Engine) Run(ctx context.Context, runID string, items []domain.WorkItem, workers int, clobber bool) (*Summary, error) {
	total := len(items)
	e.progress.Reset(total)

	if total == 0 {
		return &Summary{}, nil
	}

	if workers > total {
		workers = total
	}
	bufferSize := workers * 2

	jobs := make(chan domain.WorkItem, bufferSize)
	results := make(chan Result, bufferSize)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.worker(ctx, jobs, results, clobber)
		}()
	}
	defer wg.Wait()

	go func() {
		defer close(jobs)
		for _, item := range items {
			select {
			case <-ctx.Done():
				return
			case jobs <- item:
			}
		}
	}()

	for done := 0; done < total; done++ {
		select {
		case <-ctx.Done():
			return e.progress.Summary(), ctx.Err()
		case res := <-results:
			e.finishItem(runID, res)
		}
	}

	return e.progress.Summary(), nil
}

// worker pulls items until the channel closes or the run is cancelled.
func (e *Engine) worker(ctx context.Context, jobs <-chan domain.WorkItem, results chan<- Result, clobber bool) {
	for {
		select {
		case <-ctx.Done():
			return
		case item, ok := <-jobs:
			if !ok {
				return
			}
			res := e.processItem(ctx, item, clobber)

			// The collector stops listening once the run is cancelled,
			// so the send must never block past that point or Run's
			// wg.Wait would hang.
			select {
			case results <- res:
			case <-ctx.Done():
				return
			}
		}
	}
}

// finishItem advances the progress counters, logs, and writes the ledger
// row for one terminal result.
func (e *Engine) finishItem(runID string, res Result) {
	errMsg := ""

	switch res.Status {
	case domain.StatusCompleted:
		e.progress.ItemCompleted()
		e.log.Debug("completed %s", res.Item.FileName)
	case domain.StatusSkipped:
		e.progress.ItemSkipped()
	case domain.StatusFailed:
		errMsg = res.Err.Error()
		e.progress.ItemFailed(res.Item.FileName, errMsg)
		e.log.Error("[fail] %s: %v", res.Item.FileName, res.Err)
	}

	if e.ledger == nil {
		return
	}

	err := e.ledger.RecordItem(domain.RunItem{
		RunID:      runID,
		FileName:   res.Item.FileName,
		SourceURL:  res.Item.SourceURL,
		DestPath:   res.Item.DestPath,
		Status:     res.Status,
		Error:      errMsg,
		FinishedAt: time.Now(),
	})
	if err != nil {
		e.log.Warn("ledger write failed for %s: %v", res.Item.FileName, err)
	}
}
