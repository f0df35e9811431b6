package domain

// WorkItem is one file to transfer: where it comes from and where it lands.
// Items are built once by the manifest parser and never mutated; retries
// re-process the same item.
type WorkItem struct {
	SourceURL string
	DestPath  string
	FileName  string
}

type ItemStatus string

const (
	StatusCompleted ItemStatus = "completed"
	StatusFailed    ItemStatus = "failed"
	StatusSkipped   ItemStatus = "skipped"
)
