// Package engine drives work items through fetch, validation, and atomic
// placement with a fixed-size worker pool.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/astrodl/ffibulk/internal/domain"
	"github.com/astrodl/ffibulk/internal/fetch"
	"github.com/astrodl/ffibulk/internal/fits"
	"github.com/astrodl/ffibulk/internal/logger"
)

// Ledger records each item's terminal state. The engine treats it as
// best-effort: a ledger write failure is logged, never fatal.
type Ledger interface {
	RecordItem(item domain.RunItem) error
}

type Engine struct {
	fs       afero.Fs
	client   *fetch.Client
	log      *logger.Logger
	ledger   Ledger
	progress *Progress
}

func New(fs afero.Fs, client *fetch.Client, log *logger.Logger, ledger Ledger, progress *Progress) *Engine {
	return &Engine{
		fs:       fs,
		client:   client,
		log:      log,
		ledger:   ledger,
		progress: progress,
	}
}

// processItem takes one work item to a terminal state. Validation
// failures retry the whole fetch indefinitely; everything else is final
// for the item.
func (e *Engine) processItem(ctx context.Context, item domain.WorkItem, clobber bool) Result {
	if !clobber {
		exists, err := afero.Exists(e.fs, item.DestPath)
		if err != nil {
			// Treated as not-present: worst case is a redundant
			// download, but the miss should be visible in the log.
			e.log.Debug("could not stat %s, fetching anyway: %v", item.DestPath, err)
		}
		if exists {
			e.log.Debug("skipping %s: destination already exists", item.FileName)
			return Result{Item: item, Status: domain.StatusSkipped}
		}
	}

	// Retry forever on corruption: the archive occasionally serves a
	// truncated body and the next attempt usually comes back clean. A
	// permanently corrupt source will loop here; the retry logging is
	// the operator's signal to intervene.
	for attempt := 1; ; attempt++ {
		err := e.fetchAndPlace(ctx, item)
		if err == nil {
			return Result{Item: item, Status: domain.StatusCompleted}
		}

		var verr *fits.ValidationError
		if errors.As(err, &verr) && ctx.Err() == nil {
			e.log.Warn("[retry] %s: attempt %d failed validation: %v", item.FileName, attempt, verr)
			continue
		}

		return Result{Item: item, Status: domain.StatusFailed, Err: err}
	}
}

// fetchAndPlace performs one attempt: stream to a temp file next to the
// destination, fsync, deep-parse, then rename into place. The temp file
// lives in the destination directory so the final move stays on one
// filesystem and therefore atomic.
func (e *Engine) fetchAndPlace(ctx context.Context, item domain.WorkItem) error {
	body, err := e.client.Get(ctx, item.SourceURL)
	if err != nil {
		return err
	}
	defer body.Close()

	tmpPath := filepath.Join(filepath.Dir(item.DestPath), "."+item.FileName+".tmp")

	tmp, err := e.fs.OpenFile(tmpPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("could not create temp file: %w", err)
	}

	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		e.fs.Remove(tmpPath)
		return fmt.Errorf("%w: streaming %s: %v", domain.ErrItemFetch, item.SourceURL, err)
	}

	// Force the bytes to stable storage before judging them.
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		e.fs.Remove(tmpPath)
		return fmt.Errorf("could not sync temp file: %w", err)
	}

	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		tmp.Close()
		e.fs.Remove(tmpPath)
		return fmt.Errorf("could not rewind temp file: %w", err)
	}

	if _, err := fits.Validate(tmp); err != nil {
		tmp.Close()
		e.fs.Remove(tmpPath)
		return err
	}

	if err := tmp.Close(); err != nil {
		e.fs.Remove(tmpPath)
		return fmt.Errorf("could not close temp file: %w", err)
	}

	if err := e.fs.Rename(tmpPath, item.DestPath); err != nil {
		e.fs.Remove(tmpPath)
		return fmt.Errorf("could not place %s: %w", item.DestPath, err)
	}

	return nil
}
