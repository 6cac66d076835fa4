package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const fetchColumns = `id, url, title, status, error, original_bytes, final_bytes,
	duration_seconds, width, height, codec, container, compressed,
	file_path, thumb_path, created_at, completed_at`

// InsertFetch stores a new fetch record, normally in pending state.
func (d *Database) InsertFetch(rec *FetchRecord) error {
	return d.timed("insert_fetch", func(ctx context.Context) error {
		_, err := d.db.ExecContext(ctx, `
			INSERT INTO fetches (id, url, title, status, created_at)
			VALUES (?, ?, ?, ?, ?)`,
			rec.ID, rec.URL, rec.Title, rec.Status, rec.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert fetch %s: %w", rec.ID, err)
		}
		return nil
	})
}

// MarkCompleted transitions a fetch to completed and persists its result
// fields. rec.CompletedAt is set as a side effect.
func (d *Database) MarkCompleted(rec *FetchRecord) error {
	now := time.Now().UTC()
	rec.CompletedAt = &now
	rec.Status = StatusCompleted

	return d.timed("mark_completed", func(ctx context.Context) error {
		res, err := d.db.ExecContext(ctx, `
			UPDATE fetches
			SET status = ?, title = ?, original_bytes = ?, final_bytes = ?,
			    duration_seconds = ?, width = ?, height = ?, codec = ?,
			    container = ?, compressed = ?, file_path = ?, thumb_path = ?,
			    completed_at = ?
			WHERE id = ?`,
			rec.Status, rec.Title, rec.OriginalBytes, rec.FinalBytes,
			rec.DurationSeconds, rec.Width, rec.Height, rec.Codec,
			rec.Container, rec.Compressed, rec.FilePath, rec.ThumbPath,
			rec.CompletedAt, rec.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to complete fetch %s: %w", rec.ID, err)
		}
		return requireRow(res)
	})
}

// MarkFailed transitions a fetch to failed with an error message.
func (d *Database) MarkFailed(id, errMsg string) error {
	now := time.Now().UTC()

	return d.timed("mark_failed", func(ctx context.Context) error {
		res, err := d.db.ExecContext(ctx, `
			UPDATE fetches
			SET status = ?, error = ?, completed_at = ?
			WHERE id = ?`,
			StatusFailed, errMsg, now, id,
		)
		if err != nil {
			return fmt.Errorf("failed to mark fetch %s failed: %w", id, err)
		}
		return requireRow(res)
	})
}

// GetFetch returns one fetch record by ID.
func (d *Database) GetFetch(id string) (*FetchRecord, error) {
	var rec *FetchRecord

	err := d.timed("get_fetch", func(ctx context.Context) error {
		row := d.db.QueryRowContext(ctx,
			`SELECT `+fetchColumns+` FROM fetches WHERE id = ?`, id)

		var err error
		rec, err = scanFetch(row)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ListFetches returns up to limit records, newest first, optionally filtered
// by status (empty status = all).
func (d *Database) ListFetches(limit int, status Status) ([]*FetchRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	var records []*FetchRecord

	err := d.timed("list_fetches", func(ctx context.Context) error {
		query := `SELECT ` + fetchColumns + ` FROM fetches`
		args := []interface{}{}

		if status != "" {
			query += ` WHERE status = ?`
			args = append(args, status)
		}
		query += ` ORDER BY created_at DESC LIMIT ?`
		args = append(args, limit)

		rows, err := d.db.QueryContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("failed to list fetches: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			rec, err := scanFetch(rows)
			if err != nil {
				return err
			}
			records = append(records, rec)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// DeleteFetch removes a fetch record. File removal is the caller's job.
func (d *Database) DeleteFetch(id string) error {
	return d.timed("delete_fetch", func(ctx context.Context) error {
		res, err := d.db.ExecContext(ctx, `DELETE FROM fetches WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete fetch %s: %w", id, err)
		}
		return requireRow(res)
	})
}

// GetStats returns aggregate counts and stored bytes across the history.
func (d *Database) GetStats() (*Stats, error) {
	stats := &Stats{}

	err := d.timed("get_stats", func(ctx context.Context) error {
		row := d.db.QueryRowContext(ctx, `
			SELECT COUNT(*),
			       COALESCE(SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END), 0),
			       COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0),
			       COALESCE(SUM(CASE WHEN status = 'pending' THEN 1 ELSE 0 END), 0),
			       COALESCE(SUM(CASE WHEN status = 'completed' THEN final_bytes ELSE 0 END), 0)
			FROM fetches`)

		return row.Scan(&stats.TotalFetches, &stats.Completed, &stats.Failed,
			&stats.Pending, &stats.StoredBytes)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}
	return stats, nil
}

// scanner abstracts *sql.Row and *sql.Rows for scanFetch.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanFetch(s scanner) (*FetchRecord, error) {
	rec := &FetchRecord{}
	var completedAt sql.NullTime

	err := s.Scan(
		&rec.ID, &rec.URL, &rec.Title, &rec.Status, &rec.Error,
		&rec.OriginalBytes, &rec.FinalBytes, &rec.DurationSeconds,
		&rec.Width, &rec.Height, &rec.Codec, &rec.Container,
		&rec.Compressed, &rec.FilePath, &rec.ThumbPath,
		&rec.CreatedAt, &completedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan fetch record: %w", err)
	}

	if completedAt.Valid {
		t := completedAt.Time
		rec.CompletedAt = &t
	}

	return rec, nil
}

// requireRow converts a zero-row update or delete into ErrNotFound.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
