package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Progress tracks terminal-item counts for a run. Counters are atomics so
// the collector, the CLI renderer, and the status API can share it
// without locking; the failure list keeps its own mutex.
type Progress struct {
	total     atomic.Int64
	completed atomic.Uint64
	failed    atomic.Uint64
	skipped   atomic.Uint64
	startedAt time.Time

	mu       sync.Mutex
	failures []Failure
}

// Failure is one permanently failed item, kept for the status API and the
// end-of-run report.
type Failure struct {
	FileName string `json:"file_name"`
	Error    string `json:"error"`
}

// Snapshot is a point-in-time view of the run, JSON-shaped for the
// status endpoint.
type Snapshot struct {
	Total     int64   `json:"total"`
	Completed uint64  `json:"completed"`
	Failed    uint64  `json:"failed"`
	Skipped   uint64  `json:"skipped"`
	Done      uint64  `json:"done"`
	Percent   float64 `json:"percent"`
	Elapsed   string  `json:"elapsed"`
}

func NewProgress() *Progress {
	return &Progress{startedAt: time.Now()}
}

// Reset rearms the counters for a batch of the given size.
func (p *Progress) Reset(total int) {
	p.total.Store(int64(total))
	p.completed.Store(0)
	p.failed.Store(0)
	p.skipped.Store(0)
	p.startedAt = time.Now()

	p.mu.Lock()
	p.failures = nil
	p.mu.Unlock()
}

func (p *Progress) ItemCompleted() { p.completed.Add(1) }
func (p *Progress) ItemSkipped()   { p.skipped.Add(1) }

func (p *Progress) ItemFailed(fileName, errMsg string) {
	p.failed.Add(1)

	p.mu.Lock()
	p.failures = append(p.failures, Failure{FileName: fileName, Error: errMsg})
	p.mu.Unlock()
}

func (p *Progress) Failures() []Failure {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Failure, len(p.failures))
	copy(out, p.failures)
	return out
}

func (p *Progress) Snapshot() Snapshot {
	total := p.total.Load()
	done := p.completed.Load() + p.failed.Load() + p.skipped.Load()

	percent := 0.0
	if total > 0 {
		percent = float64(done) / float64(total) * 100
	}

	return Snapshot{
		Total:     total,
		Completed: p.completed.Load(),
		Failed:    p.failed.Load(),
		Skipped:   p.skipped.Load(),
		Done:      done,
		Percent:   percent,
		Elapsed:   time.Since(p.startedAt).Truncate(time.Second).String(),
	}
}

func (p *Progress) Summary() *Summary {
	s := p.Snapshot()
	return &Summary{
		Total:     int(s.Total),
		Completed: int(s.Completed),
		Failed:    int(s.Failed),
		Skipped:   int(s.Skipped),
	}
}

// StartCLI redraws a one-line progress bar until the context ends. The
// bar advances once per item that reaches a terminal state.
func (p *Progress) StartCLI(ctx context.Context) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.render()
		case <-ctx.Done():
			return
		}
	}
}

// RenderFinal draws the closing state of the bar and moves to a new line.
func (p *Progress) RenderFinal() {
	p.render()
	fmt.Println()
}

func (p *Progress) render() {
	s := p.Snapshot()
	if s.Total == 0 {
		return
	}

	const barWidth = 20
	filled := int(s.Percent / 100 * barWidth)
	bar := strings.Repeat("=", filled)
	if filled < barWidth {
		bar += ">" + strings.Repeat(" ", barWidth-filled-1)
	}

	fmt.Printf("\r[%s] %5.1f%% | %d/%d files | failed: %d | skipped: %d | %s   ",
		bar, s.Percent, s.Done, s.Total, s.Failed, s.Skipped, s.Elapsed)
}
