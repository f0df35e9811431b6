package engine

import "github.com/astrodl/ffibulk/internal/domain"

// Result is one item's terminal state as it comes off a worker.
type Result struct {
	Item   domain.WorkItem
	Status domain.ItemStatus
	Err    error
}

// Summary aggregates a finished (or aborted) run.
type Summary struct {
	Total     int
	Completed int
	Failed    int
	Skipped   int
}
