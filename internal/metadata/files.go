package metadata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const fileColumns = "id, app_id, filename, file_path, file_size, file_hash, uploaded_at"

func scanFile(row rowScanner) (*File, error) {
	var (
		f          File
		uploadedAt string
	)
	if err := row.Scan(&f.ID, &f.AppID, &f.Filename, &f.Path, &f.Size, &f.Hash, &uploadedAt); err != nil {
		return nil, err
	}
	t, err := parseTime(uploadedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing uploaded_at: %w", err)
	}
	f.UploadedAt = t
	return &f, nil
}

// AddFile records an uploaded file. A record with the same filename for the
// same app is replaced. Returns ErrNotFound if the app does not exist.
func (s *Store) AddFile(ctx context.Context, f File) (*File, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(1) FROM apps WHERE app_id = ?", f.AppID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("checking app: %w", err)
	}
	if exists == 0 {
		return nil, ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM files WHERE app_id = ? AND filename = ?", f.AppID, f.Filename); err != nil {
		return nil, fmt.Errorf("replacing file record: %w", err)
	}

	uploadedAt := timeNow().UTC().Truncate(time.Microsecond)
	res, err := tx.ExecContext(ctx, `
		INSERT INTO files (app_id, filename, file_path, file_size, file_hash, uploaded_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, f.AppID, f.Filename, f.Path, f.Size, f.Hash, formatTime(uploadedAt))
	if err != nil {
		return nil, fmt.Errorf("inserting file: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading file id: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing file: %w", err)
	}

	f.ID = id
	f.UploadedAt = uploadedAt
	return &f, nil
}

// ListFiles returns an app's files, most recently uploaded first.
func (s *Store) ListFiles(ctx context.Context, appID string) ([]File, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+fileColumns+" FROM files WHERE app_id = ? ORDER BY uploaded_at DESC, id DESC", appID)
	if err != nil {
		return nil, fmt.Errorf("querying files: %w", err)
	}
	defer rows.Close()

	files := []File{}
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning file: %w", err)
		}
		files = append(files, *f)
	}
	return files, rows.Err()
}

// GetFile returns one file record by filename or ErrNotFound.
func (s *Store) GetFile(ctx context.Context, appID, filename string) (*File, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+fileColumns+" FROM files WHERE app_id = ? AND filename = ?", appID, filename)
	f, err := scanFile(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scanning file: %w", err)
	}
	return f, nil
}

// CountFiles returns how many files an app has.
func (s *Store) CountFiles(ctx context.Context, appID string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM files WHERE app_id = ?", appID).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting files: %w", err)
	}
	return n, nil
}

// DeleteFile removes one file record. Returns ErrNotFound if absent.
func (s *Store) DeleteFile(ctx context.Context, appID, filename string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM files WHERE app_id = ? AND filename = ?", appID, filename)
	if err != nil {
		return fmt.Errorf("deleting file: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
