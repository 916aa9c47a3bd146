package metadata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const appColumns = "app_id, name, status, last_indexed_at, created_at, updated_at"

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanApp(row rowScanner) (*App, error) {
	var (
		app                  App
		status               string
		lastIndexed          sql.NullString
		createdAt, updatedAt string
	)
	if err := row.Scan(&app.ID, &app.Name, &status, &lastIndexed, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	app.Status = Status(status)

	var err error
	if app.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if app.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	if lastIndexed.Valid && lastIndexed.String != "" {
		t, err := parseTime(lastIndexed.String)
		if err != nil {
			return nil, fmt.Errorf("parsing last_indexed_at: %w", err)
		}
		app.LastIndexedAt = &t
	}
	return &app, nil
}

// CreateApp inserts a new app in CREATED status.
// Returns ErrAlreadyExists, leaving the existing record untouched, when id is taken.
func (s *Store) CreateApp(ctx context.Context, id, name string) (*App, error) {
	now := formatTime(timeNow())
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO apps (app_id, name, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(app_id) DO NOTHING
	`, id, name, string(StatusCreated), now, now)
	if err != nil {
		return nil, fmt.Errorf("inserting app: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("checking insert: %w", err)
	}
	if n == 0 {
		return nil, ErrAlreadyExists
	}
	return s.GetApp(ctx, id)
}

// GetApp returns the app with the given id or ErrNotFound.
func (s *Store) GetApp(ctx context.Context, id string) (*App, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+appColumns+" FROM apps WHERE app_id = ?", id)
	app, err := scanApp(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scanning app: %w", err)
	}
	return app, nil
}

// ListApps returns every app, newest first.
func (s *Store) ListApps(ctx context.Context) ([]App, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+appColumns+" FROM apps ORDER BY created_at DESC, rowid DESC")
	if err != nil {
		return nil, fmt.Errorf("querying apps: %w", err)
	}
	defer rows.Close()

	apps := []App{}
	for rows.Next() {
		app, err := scanApp(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning app: %w", err)
		}
		apps = append(apps, *app)
	}
	return apps, rows.Err()
}

// UpdateStatus sets an app's status. A nil lastIndexedAt keeps the stored value.
func (s *Store) UpdateStatus(ctx context.Context, id string, status Status, lastIndexedAt *time.Time) error {
	if !status.Valid() {
		return fmt.Errorf("invalid status %q", status)
	}

	var indexed sql.NullString
	if lastIndexedAt != nil {
		indexed = sql.NullString{String: formatTime(*lastIndexedAt), Valid: true}
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE apps
		SET status = ?, last_indexed_at = COALESCE(?, last_indexed_at), updated_at = ?
		WHERE app_id = ?
	`, string(status), indexed, formatTime(timeNow()), id)
	if err != nil {
		return fmt.Errorf("updating status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteApp removes the app and all of its file records.
func (s *Store) DeleteApp(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM files WHERE app_id = ?", id); err != nil {
		return fmt.Errorf("deleting files: %w", err)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM apps WHERE app_id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting app: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}
