package store

import (
	"database/sql"
	"fmt"

	"github.com/astrodl/ffibulk/internal/domain"
)

func (l *Ledger) CreateRun(run *domain.Run) error {
	query := `INSERT INTO runs (id, sector, camera, chip, out_dir, started_at, total)
              VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := l.db.Exec(query,
		run.ID,
		run.Sector,
		run.Camera,
		run.Chip,
		run.OutDir,
		run.StartedAt,
		run.Total,
	)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

func (l *Ledger) FinishRun(run *domain.Run) error {
	query := `UPDATE runs
              SET finished_at = ?, total = ?, completed = ?, failed = ?, skipped = ?
              WHERE id = ?`

	_, err := l.db.Exec(query,
		run.FinishedAt,
		run.Total,
		run.Completed,
		run.Failed,
		run.Skipped,
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to finalize run: %w", err)
	}
	return nil
}

func (l *Ledger) RecordItem(item domain.RunItem) error {
	query := `INSERT OR REPLACE INTO run_items (run_id, file_name, source_url, dest_path, status, error, finished_at)
              VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := l.db.Exec(query,
		item.RunID,
		item.FileName,
		item.SourceURL,
		item.DestPath,
		string(item.Status),
		item.Error,
		item.FinishedAt,
	)
	return err
}

// ListRuns returns all recorded runs, newest first. Run IDs are KSUIDs,
// so lexical order is chronological.
func (l *Ledger) ListRuns() ([]*domain.Run, error) {
	rows, err := l.db.Query(`SELECT id, sector, camera, chip, out_dir, started_at, finished_at,
                                    total, completed, failed, skipped
                             FROM runs ORDER BY id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*domain.Run
	for rows.Next() {
		run := &domain.Run{}
		var finished sql.NullTime

		err := rows.Scan(&run.ID, &run.Sector, &run.Camera, &run.Chip, &run.OutDir,
			&run.StartedAt, &finished, &run.Total, &run.Completed, &run.Failed, &run.Skipped)
		if err != nil {
			return nil, err
		}

		if finished.Valid {
			run.FinishedAt = finished.Time
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// FailedItems returns the permanently failed items of a run so an
// operator can chase them down individually.
func (l *Ledger) FailedItems(runID string) ([]domain.RunItem, error) {
	rows, err := l.db.Query(`SELECT run_id, file_name, source_url, dest_path, status, error, finished_at
                             FROM run_items WHERE run_id = ? AND status = ?`,
		runID, string(domain.StatusFailed))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.RunItem
	for rows.Next() {
		var item domain.RunItem
		var status string

		err := rows.Scan(&item.RunID, &item.FileName, &item.SourceURL, &item.DestPath,
			&status, &item.Error, &item.FinishedAt)
		if err != nil {
			return nil, err
		}

		item.Status = domain.ItemStatus(status)
		items = append(items, item)
	}

	return items, rows.Err()
}
