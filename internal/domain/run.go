package domain

import "time"

// Run is one invocation of the download pipeline, recorded in the ledger
// so large batches can be audited after the fact.
type Run struct {
	ID        string
	Sector    int
	Camera    int
	Chip      int
	OutDir    string
	StartedAt time.Time

	FinishedAt time.Time
	Total      int
	Completed  int
	Failed     int
	Skipped    int
}

// RunItem is the terminal state of one work item within a run.
type RunItem struct {
	RunID      string
	FileName   string
	SourceURL  string
	DestPath   string
	Status     ItemStatus
	Error      string
	FinishedAt time.Time
}
